package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hlorenzi/customasm-go/pkg/config"
)

func newInitCmd() *cobra.Command {
	var projectFile string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a starting casm.toml project file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.DefaultConfig()
			if err := cfg.Save(projectFile); err != nil {
				return err
			}
			fmt.Printf("wrote %s\n", projectFile)
			return nil
		},
	}
	cmd.Flags().StringVarP(&projectFile, "project", "p", "casm.toml", "Project file path to write")
	return cmd
}

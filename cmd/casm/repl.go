package main

import (
	"github.com/spf13/cobra"

	"github.com/hlorenzi/customasm-go/pkg/repl"
)

func newReplCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Start an interactive expression evaluator",
		RunE: func(cmd *cobra.Command, args []string) error {
			return repl.Run()
		},
	}
}

package main

import (
	"github.com/spf13/cobra"

	"github.com/hlorenzi/customasm-go/pkg/resolver"
	"github.com/hlorenzi/customasm-go/pkg/ruledef"
	"github.com/hlorenzi/customasm-go/pkg/watch"
)

func newWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Show a live dashboard of the resolver's fixpoint convergence",
		Long: "Without a wired text front end (see `casm build`), watch runs its " +
			"dashboard against a small built-in demonstration program exercising " +
			"forward-referencing labels and #res/#align convergence.",
		RunE: func(cmd *cobra.Command, args []string) error {
			program := watch.DemoProgram()
			return watch.Run(&ruledef.Set{}, program, resolver.DefaultOptions())
		},
	}
	return cmd
}

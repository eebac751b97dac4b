// Command casm is the CLI driver around the assembler core. Mirrors
// cmd/z80opt/main.go's shape: one cobra.Command root built in main(),
// subcommands with flag-bound locals, RunE returning wrapped errors.
package main

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/hlorenzi/customasm-go/pkg/config"
	"github.com/hlorenzi/customasm-go/pkg/fileserver"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "casm",
		Short: "A customizable assembler: user-defined instruction sets, bit-exact output",
	}

	rootCmd.AddCommand(newBuildCmd(), newReplCmd(), newWatchCmd(), newPackCmd(), newInitCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newBuildCmd() *cobra.Command {
	var projectFile string
	var gzipOut bool
	var verbose bool

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Assemble a project's source against its ruledefs and write output",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(projectFile)
			if err != nil {
				return err
			}
			colorOutput := term.IsTerminal(int(os.Stdout.Fd()))

			fs := fileserver.New(".")
			buildID := uuid.New()
			if verbose {
				fmt.Printf("build %s (color diagnostics: %v)\n", buildID, colorOutput)
			}

			// Turning cfg.Project.RuledefFiles + cfg.Project.SourceFile into a
			// ruledef.Set and asmast.TopLevel requires lexing and directive
			// parsing — explicitly named as an external collaborator to the
			// core (spec.md §1's scope list), so it is not implemented here.
			// Everything downstream of that step (resolver.Driver.Run,
			// output.Builder.Build, the pkg/output dump formatters, gzip
			// wrapping) is fully wired and ready to run against whatever
			// front end produces that pair.
			_ = fs
			return fmt.Errorf("casm build: directive parsing front end not wired (source=%s, ruledefs=%v, gzip=%v)",
				cfg.Project.SourceFile, cfg.Project.RuledefFiles, gzipOut)
		},
	}
	cmd.Flags().StringVarP(&projectFile, "project", "p", "casm.toml", "Project file path")
	cmd.Flags().BoolVar(&gzipOut, "gzip", false, "Gzip-compress the raw binary output")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	return cmd
}

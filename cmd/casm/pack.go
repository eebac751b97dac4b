package main

import (
	"fmt"
	"os"

	"github.com/klauspost/compress/gzip"
	"github.com/spf13/cobra"

	"github.com/hlorenzi/customasm-go/pkg/output"
)

// newPackCmd wires klauspost/compress/gzip and blake2b (via
// pkg/output.ChecksumHex) into standalone file utilities that don't
// require the assembler front end: gzip-compressing a raw binary output
// file, and printing its content checksum for build-log diagnostics.
func newPackCmd() *cobra.Command {
	var checksumOnly bool

	cmd := &cobra.Command{
		Use:   "pack <file>",
		Short: "Gzip-compress a raw output file, or print its checksum with --checksum",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := args[0]
			data, err := os.ReadFile(in)
			if err != nil {
				return err
			}

			if checksumOnly {
				fmt.Println(output.ChecksumHex(data))
				return nil
			}

			out, err := os.Create(in + ".gz")
			if err != nil {
				return err
			}
			defer out.Close()

			gw := gzip.NewWriter(out)
			defer gw.Close()
			if _, err := gw.Write(data); err != nil {
				return err
			}
			fmt.Printf("wrote %s.gz (checksum %s)\n", in, output.ChecksumHex(data))
			return nil
		},
	}
	cmd.Flags().BoolVar(&checksumOnly, "checksum", false, "Print the BLAKE2b-256 checksum instead of compressing")
	return cmd
}

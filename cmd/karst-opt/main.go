// Copyright (C) 2022 Sneller, Inc.
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

// karst-opt reads a textual IR program, runs the requested
// passes over it, and prints the resulting program.
package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/karst-ir/karst/expand"
	"github.com/karst-ir/karst/ir"
	"github.com/karst-ir/karst/rewrite"
)

type options struct {
	expandArith bool
	output      string
	verify      bool
}

func main() {
	if err := command().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "karst-opt:", err)
		os.Exit(1)
	}
}

func command() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:   "karst-opt [flags] <input>",
		Short: "Run IR passes over a textual program",
		Long: `karst-opt parses a textual IR program, runs the requested
passes over it in flag order, and prints the result. An input
path of "-" reads standard input.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(opts, args[0], cmd.OutOrStdout())
		},
	}
	cmd.Flags().BoolVar(&opts.expandArith, "expand-arith", false, "expand composite arithmetic ops into primitives")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file path (default stdout)")
	cmd.Flags().BoolVar(&opts.verify, "verify", false, "re-parse the printed output")
	return cmd
}

func run(opts *options, input string, stdout io.Writer) error {
	var src io.Reader = os.Stdin
	if input != "-" {
		f, err := os.Open(input)
		if err != nil {
			return err
		}
		defer f.Close()
		src = f
	}
	prog, err := ir.Parse(src)
	if err != nil {
		return err
	}

	var passes []rewrite.Pass
	if opts.expandArith {
		passes = append(passes, expand.NewPass())
	}
	for _, pass := range passes {
		if err := pass.Run(prog); err != nil {
			return fmt.Errorf("pass %s: %w", pass.Name(), err)
		}
	}

	text := prog.String()
	if opts.verify {
		if _, err := ir.Parse(strings.NewReader(text)); err != nil {
			return fmt.Errorf("verify: output does not parse: %w", err)
		}
	}
	if opts.output == "" {
		_, err = io.WriteString(stdout, text)
		return err
	}
	return os.WriteFile(opts.output, []byte(text), 0644)
}

package main

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	kerrors "github.com/vango-dev/klinecore/internal/errors"
	"github.com/vango-dev/klinecore/pkg/reconcile"
)

func diffCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "diff <prev> <next>",
		Short: "Print the ops turning one key list into another",
		Long: `Print the minimal positional ops turning prev into next.

Keys are separated by spaces or commas. Duplicate keys are matched in
order of occurrence.

Examples:
  klinecore diff "a b c d" "a c b d"
  klinecore diff a,b,c c,b,a --json`,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 2 {
				return kerrors.New("E601").WithDetailf("diff takes 2 arguments, got %d", len(args))
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			prev, next := splitKeys(args[0]), splitKeys(args[1])
			ops := reconcile.Diff(prev, next)
			if got := reconcile.Apply(prev, ops); !slices.Equal(got, next) {
				return fmt.Errorf("diff: replay produced %v, want %v", got, next)
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				if ops == nil {
					ops = []reconcile.Op[string]{}
				}
				return enc.Encode(ops)
			}
			for _, op := range ops {
				fmt.Fprintln(out, op)
			}
			counts := reconcile.Count(ops)
			fmt.Fprintf(out, "%d ops: %d create, %d remove, %d move\n", len(ops),
				counts[reconcile.OpCreate], counts[reconcile.OpRemove], counts[reconcile.OpMove])
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print ops as JSON")

	return cmd
}

func splitKeys(s string) []string {
	keys := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t'
	})
	if len(keys) == 0 {
		return nil
	}
	return keys
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cosmos/randtree-bench/randtree"
)

func renderCommand() *cobra.Command {
	var (
		keys   []int
		remove []int
		format string
	)
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Print the tree built by inserting --keys in order, then removing --remove.",
		RunE: func(cmd *cobra.Command, args []string) error {
			tree := randtree.New[int, struct{}]()
			for _, k := range keys {
				tree.Insert(k, struct{}{})
			}
			for _, k := range remove {
				if _, ok := tree.Remove(k); !ok {
					return fmt.Errorf("key %d not in tree", k)
				}
			}
			if err := tree.Verify(); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			switch format {
			case "dot":
				return tree.RenderDotGraph(out, nil)
			case "text":
				_, err := fmt.Fprint(out, tree.TreePrint(nil).String())
				return err
			default:
				return fmt.Errorf("unknown format: %s", format)
			}
		},
	}
	cmd.Flags().IntSliceVar(&keys, "keys", []int{4, 2, 1, 3, 6, 5, 7}, "keys to insert, in order")
	cmd.Flags().IntSliceVar(&remove, "remove", nil, "keys to remove after inserting")
	cmd.Flags().StringVar(&format, "format", "text", "output format (text|dot)")
	return cmd
}

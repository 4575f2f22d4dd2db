package main

import (
	"fmt"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/areajoin/internal/normalize"
	"github.com/areajoin/internal/similarity"
)

// createScoreCmd creates a command that shows how two raw keys compare
func createScoreCmd(a *app) *cobra.Command {
	var kindName, modeName string

	cmd := &cobra.Command{
		Use:     "score A B",
		Short:   "Normalize two keys and print their similarity",
		Example: `  areajoin score --kind text --mode token-sort "St. Main 123" "123 Main St"`,
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setup(cmd, map[string]string{}); err != nil {
				return err
			}

			kind, err := normalize.ParseKind(kindName)
			if err != nil {
				return err
			}
			mode, err := similarity.ParseMode(modeName)
			if err != nil {
				return err
			}
			scorer, err := similarity.New(mode)
			if err != nil {
				return err
			}

			ka, kb := normalize.Key(args[0], kind), normalize.Key(args[1], kind)
			score := scorer.Score(ka, kb)

			table := tablewriter.NewWriter(cmd.OutOrStdout())
			table.Header("Raw", "Normalized")
			for _, row := range [][]string{{args[0], ka}, {args[1], kb}} {
				if err := table.Append(row); err != nil {
					return err
				}
			}
			if err := table.Render(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s score: %.2f\n", mode, score)
			return nil
		},
	}

	cmd.Flags().StringVar(&kindName, "kind", "", "Key normalization: postal or text")
	cmd.Flags().StringVar(&modeName, "mode", "", "Similarity: ratio, token-sort or levenshtein")
	cmd.MarkFlagRequired("kind")
	cmd.MarkFlagRequired("mode")

	return cmd
}

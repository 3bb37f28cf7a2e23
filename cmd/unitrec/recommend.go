package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/rushteam/unitrec/service"
)

func recommendCmd() *cobra.Command {
	var (
		topN   int
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "recommend <userId>",
		Short: "Print recommendations for a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n := service.DefaultTopN
			if cmd.Flags().Changed("top") {
				if topN < 0 {
					return fmt.Errorf("--top must be >= 0, got %d", topN)
				}
				n = topN
			}

			_, rec, err := bootstrap(cmd.Context())
			if err != nil {
				return err
			}
			defer rec.Close()

			recs, err := rec.Recommend(cmd.Context(), args[0], n)
			if err != nil {
				return err
			}
			if asJSON {
				out, err := json.MarshalIndent(recs, "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(out))
				return nil
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "PRODUCT\tNAME\tCATEGORY\tSCORE")
			for _, r := range recs {
				fmt.Fprintf(w, "%s\t%s\t%s\t%.4f\n", r.ProductID, r.Name, r.Category, r.Score)
			}
			return w.Flush()
		},
	}
	cmd.Flags().IntVarP(&topN, "top", "n", 0, "number of recommendations (default recommend.default_top_n)")
	cmd.Flags().BoolVarP(&asJSON, "json", "j", false, "output as JSON")
	return cmd
}

package main

import (
	"fmt"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
)

func ingestCmd() *cobra.Command {
	var tenant, timestamp string
	cmd := &cobra.Command{
		Use:   "ingest <userId> <productId>",
		Short: "Record a user-product interaction",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, rec, err := bootstrap(cmd.Context())
			if err != nil {
				return err
			}
			defer rec.Close()

			ack, err := rec.Ingest(cmd.Context(), args[0], args[1], tenant, timestamp)
			if err != nil {
				return err
			}
			out, err := json.Marshal(ack)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}
	cmd.Flags().StringVarP(&tenant, "tenant", "t", "", "business unit (b2bUnit) of the event")
	cmd.Flags().StringVar(&timestamp, "timestamp", "", "event timestamp, defaults to now (RFC3339)")
	_ = cmd.MarkFlagRequired("tenant")
	return cmd
}

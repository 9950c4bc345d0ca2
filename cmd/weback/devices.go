package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"weback-home/internal/infra/weback"
)

func newDevicesCmd(opts *rootOptions) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "devices",
		Short: "List the devices bound to the account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := opts.load()
			if err != nil {
				return err
			}
			client, err := newWeBackClient(cfg, logger)
			if err != nil {
				return err
			}

			registry := weback.NewRegistry(client, logger)
			if err := registry.Sync(cmd.Context()); err != nil {
				return err
			}
			devices := registry.Devices()

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(devices)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "THING\tNAME\tSUB_TYPE\tTYPE")
			for _, d := range devices {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", d.Name, d.DisplayName(), d.SubType, d.Type())
			}
			return w.Flush()
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the raw descriptors as JSON")
	return cmd
}

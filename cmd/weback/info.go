package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"weback-home/internal/domain"
)

func newInfoCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "info <sub_type> <thing_name>",
		Short: "Fetch the current status of one device",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := opts.load()
			if err != nil {
				return err
			}
			client, err := newWeBackClient(cfg, logger)
			if err != nil {
				return err
			}

			subType, thingName := args[0], args[1]
			data, err := client.DeviceInfo(cmd.Context(), subType, thingName)
			if err != nil {
				return fmt.Errorf("device info: %w", err)
			}

			out := cmd.OutOrStdout()
			d := domain.Device{Name: thingName, SubType: subType, Status: domain.StatusFromInfo(data)}
			if t, err := domain.ThermostatFromDevice(d); err == nil {
				fmt.Fprintf(out, "%s: %s, %.1f°C (target %.1f°C)\n",
					thingName, t.Action, t.CurrentTemperature, t.TargetTemperature)
			}

			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(data)
		},
	}
}

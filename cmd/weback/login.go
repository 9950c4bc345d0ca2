package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newLoginCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Log in (or reuse cached credentials) and print the session",
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

			if err := client.Login(cmd.Context()); err != nil {
				return fmt.Errorf("login: %w", err)
			}

			session, _ := client.Session()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "user:    %s\n", session.User)
			fmt.Fprintf(out, "region:  %s\n", session.Region)
			fmt.Fprintf(out, "api:     %s\n", session.APIURL)
			fmt.Fprintf(out, "expires: %s\n", session.Expiry.Format(time.RFC3339))
			return nil
		},
	}
}

package main

import (
	"quantkit/internal/client"
	"quantkit/internal/service"

	"github.com/spf13/cobra"
)

func newHealthCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check that the configured server is up",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c := client.New(opts.settings.ServerURL, opts.settings.RESTTimeout)
			status, err := c.Health(cmd.Context())
			if err != nil {
				return err
			}
			return writeJSON(cmd, service.HealthResponse{Status: status})
		},
	}
}

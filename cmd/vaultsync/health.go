package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var healthCmd = &cobra.Command{
	Use:     "health",
	Short:   "Check the health of the vaultsync server",
	GroupID: "system",
	RunE: func(cmd *cobra.Command, args []string) error {
		status, err := syncClient.Health(context.Background())
		if err != nil {
			return fmt.Errorf("checking health: %w", err)
		}

		if jsonOutput {
			printJSON(status)
		} else {
			fmt.Printf("Health: %s (%d subscribers)\n", status.Status, status.Subscribers)
		}

		if status.Status != "ok" {
			return fmt.Errorf("unhealthy: %s", status.Status)
		}
		return nil
	},
}

package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var viewersCmd = &cobra.Command{
	Use:     "viewers <item-id>",
	Short:   "List devices currently viewing an item",
	GroupID: "sync",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		v, err := syncClient.ListViewers(context.Background(), args[0])
		if err != nil {
			return fmt.Errorf("listing viewers: %w", err)
		}
		if jsonOutput {
			printJSON(v)
			return nil
		}
		printViewers(v.ItemID, v.Viewers)
		return nil
	},
}

package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/vaultsync/internal/model"
)

var publishCmd = &cobra.Command{
	Use:   "publish <type> [item-id]",
	Short: "Broadcast an event to every connected client",
	Long: `Broadcast an event to every connected client.

Item events (item-locked, item-unlocked, item-deleted) take the item ID.
settings-updated is stamped with this client's device ID.`,
	GroupID: "sync",
	Args:    cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		itemID := ""
		if len(args) > 1 {
			itemID = args[1]
		}
		deviceID := ""
		if model.EventType(args[0]) == model.EventSettingsUpdated {
			id, err := resolveDeviceID()
			if err != nil {
				return err
			}
			deviceID = id
		}

		evt, err := buildEvent(model.EventType(args[0]), itemID, deviceID)
		if err != nil {
			return err
		}
		n, err := syncClient.Publish(context.Background(), evt)
		if err != nil {
			return fmt.Errorf("publishing: %w", err)
		}

		if jsonOutput {
			printJSON(map[string]int{"delivered": n})
		} else {
			fmt.Printf("Published %s to %d subscriber(s)\n", evt.Type, n)
		}
		return nil
	},
}

// buildEvent assembles the payload each event type expects.
func buildEvent(t model.EventType, itemID, deviceID string) (model.Event, error) {
	switch {
	case t.IsItemEvent():
		if itemID == "" {
			return model.Event{}, fmt.Errorf("%s requires an item ID", t)
		}
		return model.NewEvent(t, model.ItemPayload{ID: itemID})
	case t == model.EventSettingsUpdated:
		return model.NewEvent(t, model.SettingsPayload{DeviceID: deviceID})
	default:
		return model.NewEvent(t, nil)
	}
}

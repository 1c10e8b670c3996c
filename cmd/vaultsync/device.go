package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var deviceCmd = &cobra.Command{
	Use:     "device",
	Short:   "Show or register this client's device ID",
	GroupID: "sync",
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := resolveDeviceID()
		if err != nil {
			return err
		}
		if jsonOutput {
			printJSON(map[string]string{"deviceId": id})
		} else {
			fmt.Println(id)
		}
		return nil
	},
}

var deviceRegisterCmd = &cobra.Command{
	Use:   "register",
	Short: "Register this device with the server",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := resolveDeviceID()
		if err != nil {
			return err
		}
		d, err := syncClient.RegisterDevice(context.Background(), id)
		if err != nil {
			return fmt.Errorf("registering device: %w", err)
		}
		if jsonOutput {
			printJSON(d)
		} else {
			fmt.Printf("Registered %s (first seen %s)\n", d.ID, d.CreatedAt.Format("2006-01-02 15:04:05"))
		}
		return nil
	},
}

func init() {
	deviceCmd.AddCommand(deviceRegisterCmd)
}

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/vaultsync/internal/client"
)

var (
	serverURL  string
	authToken  string
	deviceFlag string
	jsonOutput bool

	syncClient client.SyncClient
)

func defaultServerURL() string {
	if s := os.Getenv("VAULTSYNC_URL"); s != "" {
		return s
	}
	if p, err := loadProfile(); err == nil && p.URL != "" {
		return p.URL
	}
	return "http://localhost:8080"
}

func defaultToken() string {
	if s := os.Getenv("VAULTSYNC_TOKEN"); s != "" {
		return s
	}
	if p, err := loadProfile(); err == nil {
		return p.Token
	}
	return ""
}

var rootCmd = &cobra.Command{
	Use:           "vaultsync <command>",
	Short:         "Real-time sync service for the time-lock vault",
	SilenceUsage:  true,
	SilenceErrors: false,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if serverURL == "" {
			return fmt.Errorf("--server must not be empty")
		}
		syncClient = client.NewHTTPClient(serverURL, authToken)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if syncClient != nil {
			syncClient.Close()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", defaultServerURL(), "server base URL")
	rootCmd.PersistentFlags().StringVar(&authToken, "token", defaultToken(), "bearer token")
	rootCmd.PersistentFlags().StringVar(&deviceFlag, "device", "", "device ID (default: from the client profile)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output as JSON")

	rootCmd.AddGroup(
		&cobra.Group{ID: "sync", Title: "Sync:"},
		&cobra.Group{ID: "system", Title: "System:"},
	)
	cobra.EnableCommandSorting = false

	// Sync
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(publishCmd)
	rootCmd.AddCommand(viewersCmd)
	rootCmd.AddCommand(prefsCmd)
	rootCmd.AddCommand(deviceCmd)

	// System
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(healthCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

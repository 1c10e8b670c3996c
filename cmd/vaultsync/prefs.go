package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/vaultsync/internal/client"
	"github.com/alfredjeanlab/vaultsync/internal/model"
)

var prefsCmd = &cobra.Command{
	Use:     "prefs",
	Short:   "Read or change this device's synced settings",
	GroupID: "sync",
}

var prefsGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Show the stored settings",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := resolveDeviceID()
		if err != nil {
			return err
		}
		settings, err := currentSettings(context.Background(), id)
		if err != nil {
			return err
		}
		if jsonOutput {
			printJSON(settings)
		} else {
			printSettings(settings)
		}
		return nil
	},
}

var prefsSetCmd = &cobra.Command{
	Use:   "set <key=value>...",
	Short: "Change one or more settings",
	Long: `Change one or more settings and upload the result.

Keys: theme, language, timeFormat, defaultLockMinutes, showCountdown,
confirmDelete, notifications.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		id, err := resolveDeviceID()
		if err != nil {
			return err
		}
		settings, err := currentSettings(ctx, id)
		if err != nil {
			return err
		}
		for _, arg := range args {
			key, value, ok := strings.Cut(arg, "=")
			if !ok {
				return fmt.Errorf("expected key=value, got %q", arg)
			}
			if err := applySetting(&settings, key, value); err != nil {
				return err
			}
		}
		if err := model.ValidateSettings(settings); err != nil {
			return err
		}

		prefs, err := syncClient.SavePreferences(ctx, id, settings)
		if err != nil {
			return fmt.Errorf("saving settings: %w", err)
		}
		if jsonOutput {
			printJSON(prefs)
		} else {
			printSettings(prefs.Settings)
		}
		return nil
	},
}

func init() {
	prefsCmd.AddCommand(prefsGetCmd)
	prefsCmd.AddCommand(prefsSetCmd)
}

// currentSettings returns the stored settings, or the defaults for a device
// that has never saved any.
func currentSettings(ctx context.Context, deviceID string) (model.Settings, error) {
	prefs, err := syncClient.GetPreferences(ctx, deviceID)
	if client.IsNotFound(err) {
		return model.DefaultSettings(), nil
	}
	if err != nil {
		return model.Settings{}, fmt.Errorf("getting settings: %w", err)
	}
	return prefs.Settings, nil
}

func applySetting(s *model.Settings, key, value string) error {
	switch key {
	case "theme":
		s.Theme = value
	case "language":
		s.Language = value
	case "timeFormat":
		s.TimeFormat = value
	case "defaultLockMinutes":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("defaultLockMinutes: %w", err)
		}
		s.DefaultLockMinutes = n
	case "showCountdown", "confirmDelete", "notifications":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		switch key {
		case "showCountdown":
			s.ShowCountdown = b
		case "confirmDelete":
			s.ConfirmDelete = b
		default:
			s.Notifications = b
		}
	default:
		return fmt.Errorf("unknown setting %q", key)
	}
	return nil
}

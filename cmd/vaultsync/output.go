package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/alfredjeanlab/vaultsync/internal/model"
)

func printJSON(v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error marshaling JSON: %v\n", err)
		return
	}
	fmt.Println(string(data))
}

func printSettings(s model.Settings) {
	fmt.Printf("Theme:          %s\n", s.Theme)
	fmt.Printf("Language:       %s\n", s.Language)
	fmt.Printf("Time Format:    %s\n", s.TimeFormat)
	fmt.Printf("Default Lock:   %dm\n", s.DefaultLockMinutes)
	fmt.Printf("Show Countdown: %t\n", s.ShowCountdown)
	fmt.Printf("Confirm Delete: %t\n", s.ConfirmDelete)
	fmt.Printf("Notifications:  %t\n", s.Notifications)
}

func printViewers(itemID string, viewers []string) {
	if len(viewers) == 0 {
		fmt.Printf("No one is viewing %s.\n", itemID)
		return
	}
	fmt.Printf("%d viewing %s: %s\n", len(viewers), itemID, strings.Join(viewers, ", "))
}

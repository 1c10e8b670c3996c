package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/alfredjeanlab/vaultsync/internal/idgen"
)

// Profile is the client-side configuration file.
type Profile struct {
	URL      string `toml:"url,omitempty"`
	Token    string `toml:"token,omitempty"`
	DeviceID string `toml:"device_id,omitempty"`
}

// profilePath returns the profile location. VAULTSYNC_CLIENT_CONFIG
// overrides the default ~/.config/vaultsync/client.toml.
func profilePath() (string, error) {
	if p := os.Getenv("VAULTSYNC_CLIENT_CONFIG"); p != "" {
		return p, nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "vaultsync", "client.toml"), nil
}

func loadProfile() (Profile, error) {
	path, err := profilePath()
	if err != nil {
		return Profile{}, err
	}
	var p Profile
	if _, err := toml.DecodeFile(path, &p); err != nil {
		if os.IsNotExist(err) {
			return Profile{}, nil
		}
		return Profile{}, fmt.Errorf("reading %s: %w", path, err)
	}
	return p, nil
}

func saveProfile(p Profile) error {
	path, err := profilePath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(p)
}

// resolveDeviceID returns the --device flag if set, otherwise the profile's
// device ID, generating and persisting one on first use.
func resolveDeviceID() (string, error) {
	if deviceFlag != "" {
		return deviceFlag, nil
	}
	p, err := loadProfile()
	if err != nil {
		return "", err
	}
	if p.DeviceID != "" {
		return p.DeviceID, nil
	}
	id, err := idgen.NewDeviceID()
	if err != nil {
		return "", err
	}
	p.DeviceID = id
	if err := saveProfile(p); err != nil {
		return "", fmt.Errorf("saving device ID: %w", err)
	}
	return id, nil
}

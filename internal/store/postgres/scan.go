package postgres

import (
	"encoding/json"
	"fmt"

	"github.com/alfredjeanlab/vaultsync/internal/model"
)

// scannable is the interface satisfied by both *sql.Row and *sql.Rows.
type scannable interface {
	Scan(dest ...any) error
}

// scanDevice scans a row in deviceColumns order.
func scanDevice(row scannable) (*model.Device, error) {
	var d model.Device
	if err := row.Scan(&d.ID, &d.CreatedAt, &d.LastSeenAt); err != nil {
		return nil, err
	}
	return &d, nil
}

// scanPreferences scans a row in preferencesColumns order. A NULL or empty
// settings document decodes to the zero Settings.
func scanPreferences(row scannable) (*model.Preferences, error) {
	var (
		p   model.Preferences
		raw []byte
	)
	if err := row.Scan(&p.DeviceID, &raw, &p.UpdatedAt); err != nil {
		return nil, err
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &p.Settings); err != nil {
			return nil, fmt.Errorf("decode settings for %q: %w", p.DeviceID, err)
		}
	}
	return &p, nil
}

func scanSession(row scannable) (model.Session, error) {
	var s model.Session
	err := row.Scan(&s.DeviceID, &s.ItemID, &s.LastActiveAt)
	return s, err
}

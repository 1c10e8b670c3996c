package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/alfredjeanlab/vaultsync/internal/model"
)

const (
	deviceColumns      = `id, created_at, last_seen_at`
	preferencesColumns = `device_id, settings, updated_at`
	sessionColumns     = `device_id, item_id, last_active_at`
)

// executor is the interface satisfied by both *sql.DB and *sql.Tx.
type executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// notFound maps sql.ErrNoRows onto model.ErrNotFound.
func notFound(err error, what string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, model.ErrNotFound)
	}
	return err
}

func queryEnsureDevice(ctx context.Context, db executor, id string, now time.Time) (*model.Device, error) {
	row := db.QueryRowContext(ctx, `
		INSERT INTO devices (id, created_at, last_seen_at) VALUES ($1, $2, $2)
		ON CONFLICT (id) DO UPDATE SET last_seen_at = EXCLUDED.last_seen_at
		RETURNING `+deviceColumns, id, now)
	return scanDevice(row)
}

func queryGetDevice(ctx context.Context, db executor, id string) (*model.Device, error) {
	row := db.QueryRowContext(ctx, `SELECT `+deviceColumns+` FROM devices WHERE id = $1`, id)
	d, err := scanDevice(row)
	if err != nil {
		return nil, notFound(err, fmt.Sprintf("device %q", id))
	}
	return d, nil
}

func queryListDevices(ctx context.Context, db executor) ([]*model.Device, error) {
	rows, err := db.QueryContext(ctx, `SELECT `+deviceColumns+` FROM devices ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var devices []*model.Device
	for rows.Next() {
		d, err := scanDevice(rows)
		if err != nil {
			return nil, err
		}
		devices = append(devices, d)
	}
	return devices, rows.Err()
}

func queryDeviceExists(ctx context.Context, db executor, id string) (bool, error) {
	var exists bool
	err := db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM devices WHERE id = $1)`, id).Scan(&exists)
	return exists, err
}

func queryGetPreferences(ctx context.Context, db executor, deviceID string) (*model.Preferences, error) {
	row := db.QueryRowContext(ctx, `SELECT `+preferencesColumns+` FROM preferences WHERE device_id = $1`, deviceID)
	p, err := scanPreferences(row)
	if err != nil {
		return nil, notFound(err, fmt.Sprintf("preferences for %q", deviceID))
	}
	return p, nil
}

func queryUpsertPreferences(ctx context.Context, db executor, p *model.Preferences) error {
	settings, err := json.Marshal(p.Settings)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	_, err = db.ExecContext(ctx, `
		INSERT INTO preferences (device_id, settings, updated_at) VALUES ($1, $2, $3)
		ON CONFLICT (device_id) DO UPDATE SET settings = EXCLUDED.settings, updated_at = EXCLUDED.updated_at`,
		p.DeviceID, settings, p.UpdatedAt)
	return err
}

func queryListPreferences(ctx context.Context, db executor) ([]*model.Preferences, error) {
	rows, err := db.QueryContext(ctx, `SELECT `+preferencesColumns+` FROM preferences ORDER BY device_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Preferences
	for rows.Next() {
		p, err := scanPreferences(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// queryUpsertSession never moves last_active_at backwards.
func queryUpsertSession(ctx context.Context, db executor, s model.Session) (model.Session, error) {
	row := db.QueryRowContext(ctx, `
		INSERT INTO sessions (device_id, item_id, last_active_at) VALUES ($1, $2, $3)
		ON CONFLICT (device_id, item_id) DO UPDATE
			SET last_active_at = GREATEST(sessions.last_active_at, EXCLUDED.last_active_at)
		RETURNING `+sessionColumns, s.DeviceID, s.ItemID, s.LastActiveAt)
	return scanSession(row)
}

func queryDeleteSession(ctx context.Context, db executor, deviceID, itemID string) error {
	_, err := db.ExecContext(ctx, `DELETE FROM sessions WHERE device_id = $1 AND item_id = $2`, deviceID, itemID)
	return err
}

func queryListSessions(ctx context.Context, db executor, itemID string) ([]model.Session, error) {
	rows, err := db.QueryContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE item_id = $1 ORDER BY device_id`, itemID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func queryDeleteSessionsBefore(ctx context.Context, db executor, cutoff time.Time) (int, error) {
	res, err := db.ExecContext(ctx, `DELETE FROM sessions WHERE last_active_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

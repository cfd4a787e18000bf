package store

import (
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/jahartley/rv-hvac-controller/internal/model"
)

// Store persists user settings and per-device state across restarts. The
// control core itself keeps nothing on disk; this is the host's memory of
// what the user last asked for.
type Store struct {
	db *sql.DB
}

// Settings is the persisted slice of supervisor state.
type Settings struct {
	SystemMode   model.SystemMode
	FanMode      model.FanMode
	HeatSetpoint int
	CoolSetpoint int
}

// DeviceState is the persisted slice of per-device state.
type DeviceState struct {
	Enabled    bool
	RunSeconds int64
}

func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	schema := `
CREATE TABLE IF NOT EXISTS settings (
	id INTEGER PRIMARY KEY CHECK (id = 1),
	system_mode TEXT NOT NULL,
	fan_mode TEXT NOT NULL,
	heat_setpoint INTEGER NOT NULL,
	cool_setpoint INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS devices (
	name TEXT PRIMARY KEY,
	enabled INTEGER NOT NULL DEFAULT 1,
	run_seconds INTEGER NOT NULL DEFAULT 0
);`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// LoadSettings returns the persisted settings, or (nil, nil) when nothing
// has been saved yet.
func (s *Store) LoadSettings() (*Settings, error) {
	row := s.db.QueryRow(`SELECT system_mode, fan_mode, heat_setpoint, cool_setpoint FROM settings WHERE id = 1`)

	var modeStr, fanStr string
	var set Settings
	if err := row.Scan(&modeStr, &fanStr, &set.HeatSetpoint, &set.CoolSetpoint); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read settings: %w", err)
	}

	mode, err := model.ParseSystemMode(modeStr)
	if err != nil {
		return nil, fmt.Errorf("corrupt settings row: %w", err)
	}
	fan, err := model.ParseFanMode(fanStr)
	if err != nil {
		return nil, fmt.Errorf("corrupt settings row: %w", err)
	}
	set.SystemMode = mode
	set.FanMode = fan
	return &set, nil
}

func (s *Store) SaveSettings(set Settings) error {
	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO settings (id, system_mode, fan_mode, heat_setpoint, cool_setpoint) VALUES (1, ?, ?, ?, ?)`,
		set.SystemMode.String(), set.FanMode.String(), set.HeatSetpoint, set.CoolSetpoint,
	)
	if err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	return nil
}

// LoadDevices returns persisted per-device state keyed by item name.
// Devices never saved are simply absent.
func (s *Store) LoadDevices() (map[string]DeviceState, error) {
	rows, err := s.db.Query(`SELECT name, enabled, run_seconds FROM devices`)
	if err != nil {
		return nil, fmt.Errorf("failed to read devices: %w", err)
	}
	defer rows.Close()

	out := make(map[string]DeviceState)
	for rows.Next() {
		var name string
		var st DeviceState
		if err := rows.Scan(&name, &st.Enabled, &st.RunSeconds); err != nil {
			return nil, fmt.Errorf("failed to scan device row: %w", err)
		}
		out[name] = st
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed reading device rows: %w", err)
	}
	return out, nil
}

func (s *Store) SaveDevice(name string, st DeviceState) error {
	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO devices (name, enabled, run_seconds) VALUES (?, ?, ?)`,
		name, st.Enabled, st.RunSeconds,
	)
	if err != nil {
		return fmt.Errorf("failed to save device %s: %w", name, err)
	}
	return nil
}

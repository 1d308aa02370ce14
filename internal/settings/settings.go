// Package settings keeps user preferences and bookkeeping values in the
// database's app storage area.
package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"
)

// Storage keys.
const (
	KeySettings   = "settings"
	KeyLastSync   = "lastSync"
	KeyBackupInfo = "backupInfo"
)

var (
	ErrUnknownKey   = errors.New("settings: unknown key")
	ErrInvalidValue = errors.New("settings: invalid value")
)

// Settings are the user preferences exported with every backup.
type Settings struct {
	Theme            string  `json:"theme"`
	Language         string  `json:"language"`
	Notifications    bool    `json:"notifications"`
	MileageUnit      string  `json:"mileageUnit"`
	DefaultVehicleID *string `json:"defaultVehicleId"`
}

// Defaults returns the settings used before anything was saved.
func Defaults() Settings {
	return Settings{
		Theme:         "light",
		Language:      "ru",
		Notifications: true,
		MileageUnit:   "km",
	}
}

// UnmarshalJSON accepts the older defaultCarId spelling.
func (s *Settings) UnmarshalJSON(data []byte) error {
	type plain Settings
	aux := struct {
		*plain
		DefaultCarID *string `json:"defaultCarId"`
	}{plain: (*plain)(s)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if s.DefaultVehicleID == nil && aux.DefaultCarID != nil {
		s.DefaultVehicleID = aux.DefaultCarID
	}
	return nil
}

// Keys lists the preference names accepted by Value and With.
func Keys() []string {
	return []string{"theme", "language", "notifications", "mileageUnit", "defaultVehicleId"}
}

// Value returns a single preference formatted as text.
func (s Settings) Value(key string) (string, error) {
	switch key {
	case "theme":
		return s.Theme, nil
	case "language":
		return s.Language, nil
	case "notifications":
		return strconv.FormatBool(s.Notifications), nil
	case "mileageUnit":
		return s.MileageUnit, nil
	case "defaultVehicleId":
		if s.DefaultVehicleID == nil {
			return "", nil
		}
		return *s.DefaultVehicleID, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
}

// With returns a copy of s with key set from its text form.
func (s Settings) With(key, value string) (Settings, error) {
	switch key {
	case "theme":
		if value != "light" && value != "dark" {
			return s, fmt.Errorf("%w: theme must be light or dark", ErrInvalidValue)
		}
		s.Theme = value
	case "language":
		if value == "" {
			return s, fmt.Errorf("%w: language is empty", ErrInvalidValue)
		}
		s.Language = value
	case "notifications":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return s, fmt.Errorf("%w: notifications must be true or false", ErrInvalidValue)
		}
		s.Notifications = b
	case "mileageUnit":
		if value != "km" && value != "mi" {
			return s, fmt.Errorf("%w: mileageUnit must be km or mi", ErrInvalidValue)
		}
		s.MileageUnit = value
	case "defaultVehicleId":
		if value == "" {
			s.DefaultVehicleID = nil
		} else {
			v := value
			s.DefaultVehicleID = &v
		}
	default:
		return s, fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	return s, nil
}

// BackupInfo tracks exports made from this database.
type BackupInfo struct {
	LastBackup  *time.Time `json:"lastBackup"`
	BackupCount int        `json:"backupCount"`
}

// Storage is the raw key/value area the store writes to.
type Storage interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Remove(ctx context.Context, key string) (bool, error)
}

// Store reads and writes JSON values by key.
type Store struct {
	storage Storage
}

func NewStore(storage Storage) *Store {
	return &Store{storage: storage}
}

// Get decodes the value under key into out and reports whether it existed.
func (s *Store) Get(ctx context.Context, key string, out any) (bool, error) {
	raw, ok, err := s.storage.Get(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return true, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

// Set stores v as JSON under key.
func (s *Store) Set(ctx context.Context, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return s.storage.Set(ctx, key, raw)
}

func (s *Store) Remove(ctx context.Context, key string) (bool, error) {
	return s.storage.Remove(ctx, key)
}

// Settings returns the saved preferences layered over Defaults.
func (s *Store) Settings(ctx context.Context) (Settings, error) {
	out := Defaults()
	if _, err := s.Get(ctx, KeySettings, &out); err != nil {
		return Defaults(), err
	}
	return out, nil
}

func (s *Store) SaveSettings(ctx context.Context, settings Settings) error {
	return s.Set(ctx, KeySettings, settings)
}

// RawSettings returns the stored settings document unchanged, or the encoded
// defaults when nothing was saved.
func (s *Store) RawSettings(ctx context.Context) (json.RawMessage, error) {
	raw, ok, err := s.storage.Get(ctx, KeySettings)
	if err != nil {
		return nil, err
	}
	if !ok {
		return json.Marshal(Defaults())
	}
	return json.RawMessage(raw), nil
}

// SaveRawSettings stores a settings document taken from a backup as-is.
func (s *Store) SaveRawSettings(ctx context.Context, raw json.RawMessage) error {
	if !json.Valid(raw) {
		return fmt.Errorf("%w: settings are not valid JSON", ErrInvalidValue)
	}
	return s.storage.Set(ctx, KeySettings, raw)
}

// LastSync returns the last sync time, zero when never recorded.
func (s *Store) LastSync(ctx context.Context) (time.Time, error) {
	var t time.Time
	if _, err := s.Get(ctx, KeyLastSync, &t); err != nil {
		return time.Time{}, err
	}
	return t, nil
}

func (s *Store) SetLastSync(ctx context.Context, t time.Time) error {
	return s.Set(ctx, KeyLastSync, t.UTC())
}

func (s *Store) BackupInfo(ctx context.Context) (BackupInfo, error) {
	var info BackupInfo
	if _, err := s.Get(ctx, KeyBackupInfo, &info); err != nil {
		return BackupInfo{}, err
	}
	return info, nil
}

func (s *Store) SetBackupInfo(ctx context.Context, info BackupInfo) error {
	return s.Set(ctx, KeyBackupInfo, info)
}

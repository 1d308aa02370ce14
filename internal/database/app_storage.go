package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// AppStorage is a flat key/value area for settings and snapshots, kept
// apart from the record collections. Values are JSON documents.
type AppStorage struct {
	ctx *Context
}

func NewAppStorage(dbCtx *Context) *AppStorage {
	return &AppStorage{ctx: dbCtx}
}

// Get returns the raw JSON value for key and whether it was present.
func (s *AppStorage) Get(ctx context.Context, key string) ([]byte, bool, error) {
	queries := queriesFromContext(s.ctx)
	if queries == nil {
		return nil, false, fmt.Errorf("app storage: missing database context")
	}

	row, err := queries.GetStorageValue(ctx, key)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("get %s: %w", key, classifyError(err))
	}
	return []byte(row.Value), true, nil
}

// Set stores value, which must be valid JSON, under key.
func (s *AppStorage) Set(ctx context.Context, key string, value []byte) error {
	queries := queriesFromContext(s.ctx)
	if queries == nil {
		return fmt.Errorf("app storage: missing database context")
	}

	if err := queries.SetStorageValue(ctx, key, string(value)); err != nil {
		return fmt.Errorf("set %s: %w", key, classifyError(err))
	}
	return nil
}

// Remove deletes key and reports whether it existed.
func (s *AppStorage) Remove(ctx context.Context, key string) (bool, error) {
	queries := queriesFromContext(s.ctx)
	if queries == nil {
		return false, fmt.Errorf("app storage: missing database context")
	}

	affected, err := queries.DeleteStorageValue(ctx, key)
	if err != nil {
		return false, fmt.Errorf("remove %s: %w", key, classifyError(err))
	}
	return affected > 0, nil
}

func (s *AppStorage) Keys(ctx context.Context) ([]string, error) {
	queries := queriesFromContext(s.ctx)
	if queries == nil {
		return nil, fmt.Errorf("app storage: missing database context")
	}

	keys, err := queries.ListStorageKeys(ctx)
	if err != nil {
		return nil, fmt.Errorf("list keys: %w", classifyError(err))
	}
	if keys == nil {
		keys = []string{}
	}
	return keys, nil
}

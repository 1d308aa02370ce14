package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	sqldb "github.com/cartracker/cartracker/internal/database/sqlc"
)

// RecordStore performs CRUD on the named collections. Each call is atomic on
// its own; no transaction spans two calls.
type RecordStore struct {
	ctx *Context
	now func() time.Time
}

// RecordStoreOption customises a RecordStore.
type RecordStoreOption func(*RecordStore)

// WithClock replaces the clock used for ids and updatedAt stamps.
func WithClock(now func() time.Time) RecordStoreOption {
	return func(s *RecordStore) {
		if now != nil {
			s.now = now
		}
	}
}

func NewRecordStore(dbCtx *Context, opts ...RecordStoreOption) *RecordStore {
	s := &RecordStore{ctx: dbCtx, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewID returns a record id made of the unix millisecond time and nine
// random characters.
func NewID(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:9]
	return strconv.FormatInt(now.UnixMilli(), 10) + "_" + suffix
}

// Add inserts record and returns its id, assigning one when the record has
// none. An id that already exists fails with ErrDuplicateKey.
func (s *RecordStore) Add(ctx context.Context, c Collection, record Record) (string, error) {
	queries := queriesFromContext(s.ctx)
	if queries == nil {
		return "", fmt.Errorf("record store: missing database context")
	}
	if err := c.validate(); err != nil {
		return "", err
	}

	rec := record.clone()
	id := rec.ID()
	if id == "" {
		id = NewID(s.now())
		rec["id"] = id
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return "", fmt.Errorf("encode record: %w", err)
	}

	if err := queries.InsertRecord(ctx, string(c), id, string(data)); err != nil {
		return "", fmt.Errorf("add %s/%s: %w", c, id, classifyError(err))
	}
	return id, nil
}

// Put inserts record or replaces the stored record with the same id.
func (s *RecordStore) Put(ctx context.Context, c Collection, record Record) (string, error) {
	queries := queriesFromContext(s.ctx)
	if queries == nil {
		return "", fmt.Errorf("record store: missing database context")
	}
	if err := c.validate(); err != nil {
		return "", err
	}

	rec := record.clone()
	id := rec.ID()
	if id == "" {
		id = NewID(s.now())
		rec["id"] = id
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return "", fmt.Errorf("encode record: %w", err)
	}

	if err := queries.UpsertRecord(ctx, string(c), id, string(data)); err != nil {
		return "", fmt.Errorf("put %s/%s: %w", c, id, classifyError(err))
	}
	return id, nil
}

// Get returns the record with id, or nil when there is none.
func (s *RecordStore) Get(ctx context.Context, c Collection, id string) (Record, error) {
	queries := queriesFromContext(s.ctx)
	if queries == nil {
		return nil, fmt.Errorf("record store: missing database context")
	}
	if err := c.validate(); err != nil {
		return nil, err
	}

	row, err := queries.GetRecord(ctx, string(c), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get %s/%s: %w", c, id, classifyError(err))
	}
	return parseRecord([]byte(row.Data))
}

// GetAll returns the records of a collection. With an empty indexName it
// scans the whole collection in insertion order. Otherwise it returns the
// records whose index value falls in keyRange, ordered by that value. The
// result is never nil.
func (s *RecordStore) GetAll(ctx context.Context, c Collection, indexName string, keyRange *KeyRange) ([]Record, error) {
	queries := queriesFromContext(s.ctx)
	if queries == nil {
		return nil, fmt.Errorf("record store: missing database context")
	}
	if err := c.validate(); err != nil {
		return nil, err
	}

	var (
		rows []sqldb.Record
		err  error
	)
	if indexName == "" {
		rows, err = queries.ListRecords(ctx, string(c))
	} else {
		path, pathErr := c.indexPath(indexName)
		if pathErr != nil {
			return nil, pathErr
		}
		params := sqldb.ListRecordsByIndexParams{Table: string(c), Path: path}
		if keyRange != nil {
			params.Lower = sqlValue(keyRange.Lower)
			params.Upper = sqlValue(keyRange.Upper)
			params.LowerOpen = keyRange.LowerOpen
			params.UpperOpen = keyRange.UpperOpen
		}
		rows, err = queries.ListRecordsByIndex(ctx, params)
	}
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", c, classifyError(err))
	}

	result := make([]Record, 0, len(rows))
	for _, row := range rows {
		rec, err := parseRecord([]byte(row.Data))
		if err != nil {
			return nil, fmt.Errorf("list %s: row %s: %w", c, row.ID, err)
		}
		result = append(result, rec)
	}
	return result, nil
}

// Update merges partial over the stored record and stamps updatedAt. The
// merge is shallow: present keys overwrite and omitted keys are kept. A nil
// value removes the key, except id and updatedAt which are always written.
// A missing record fails with ErrNotFound.
func (s *RecordStore) Update(ctx context.Context, c Collection, id string, partial Record) (string, error) {
	if queriesFromContext(s.ctx) == nil {
		return "", fmt.Errorf("record store: missing database context")
	}
	if err := c.validate(); err != nil {
		return "", err
	}

	err := withTx(ctx, s.ctx, func(queries *sqldb.Queries) error {
		row, err := queries.GetRecord(ctx, string(c), id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("update %s/%s: %w", c, id, ErrNotFound)
			}
			return fmt.Errorf("update %s/%s: %w", c, id, classifyError(err))
		}

		current, err := parseRecord([]byte(row.Data))
		if err != nil {
			return err
		}
		for k, v := range partial {
			if k == "id" {
				continue
			}
			if v == nil {
				delete(current, k)
				continue
			}
			current[k] = v
		}
		current["id"] = row.ID
		current["updatedAt"] = s.now().UTC().Format(time.RFC3339Nano)

		data, err := json.Marshal(current)
		if err != nil {
			return fmt.Errorf("encode record: %w", err)
		}
		if _, err := queries.UpdateRecordData(ctx, string(c), id, string(data)); err != nil {
			return fmt.Errorf("update %s/%s: %w", c, id, classifyError(err))
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

// Delete removes the record and reports whether it existed.
func (s *RecordStore) Delete(ctx context.Context, c Collection, id string) (bool, error) {
	queries := queriesFromContext(s.ctx)
	if queries == nil {
		return false, fmt.Errorf("record store: missing database context")
	}
	if err := c.validate(); err != nil {
		return false, err
	}

	affected, err := queries.DeleteRecord(ctx, string(c), id)
	if err != nil {
		return false, fmt.Errorf("delete %s/%s: %w", c, id, classifyError(err))
	}
	return affected > 0, nil
}

// Count returns the number of records in a collection.
func (s *RecordStore) Count(ctx context.Context, c Collection) (int64, error) {
	queries := queriesFromContext(s.ctx)
	if queries == nil {
		return 0, fmt.Errorf("record store: missing database context")
	}
	if err := c.validate(); err != nil {
		return 0, err
	}

	n, err := queries.CountRecords(ctx, string(c))
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", c, classifyError(err))
	}
	return n, nil
}

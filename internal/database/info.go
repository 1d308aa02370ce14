package database

import (
	"context"
	"fmt"
)

// Info describes an open database.
type Info struct {
	Name        string           `json:"name"`
	Path        string           `json:"path"`
	Version     uint             `json:"version"`
	Collections []CollectionInfo `json:"collections"`
}

type CollectionInfo struct {
	Name    string `json:"name"`
	Records int64  `json:"records"`
}

// Describe reports the schema version and the row count of every table.
func Describe(ctx context.Context, dbCtx *Context) (Info, error) {
	queries := queriesFromContext(dbCtx)
	if queries == nil {
		return Info{}, fmt.Errorf("database info: missing database context")
	}

	tables, err := queries.ListTables(ctx)
	if err != nil {
		return Info{}, fmt.Errorf("list tables: %w", classifyError(err))
	}

	info := Info{Name: dbCtx.Name, Path: dbCtx.Path, Version: dbCtx.Version}
	for _, table := range tables {
		c := Collection(table)
		if c.validate() != nil {
			continue
		}
		n, err := queries.CountRecords(ctx, table)
		if err != nil {
			return Info{}, fmt.Errorf("count %s: %w", table, classifyError(err))
		}
		info.Collections = append(info.Collections, CollectionInfo{Name: table, Records: n})
	}
	return info, nil
}

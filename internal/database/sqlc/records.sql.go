package sqldb

import (
	"context"
	"fmt"
	"strings"
)

// Collection tables share one layout, so queries take the table name as a
// parameter. Callers must only pass names from the database package registry.

const insertRecord = `INSERT INTO %q (id, data) VALUES (?, json(?))`

func (q *Queries) InsertRecord(ctx context.Context, table, id, data string) error {
	_, err := q.db.ExecContext(ctx, fmt.Sprintf(insertRecord, table), id, data)
	return err
}

const upsertRecord = `INSERT INTO %q (id, data) VALUES (?, json(?))
ON CONFLICT(id) DO UPDATE SET data = excluded.data, updated_at = CURRENT_TIMESTAMP`

func (q *Queries) UpsertRecord(ctx context.Context, table, id, data string) error {
	_, err := q.db.ExecContext(ctx, fmt.Sprintf(upsertRecord, table), id, data)
	return err
}

const getRecord = `SELECT id, data FROM %q WHERE id = ?`

func (q *Queries) GetRecord(ctx context.Context, table, id string) (Record, error) {
	row := q.db.QueryRowContext(ctx, fmt.Sprintf(getRecord, table), id)
	var r Record
	err := row.Scan(&r.ID, &r.Data)
	return r, err
}

const listRecords = `SELECT id, data FROM %q ORDER BY rowid`

func (q *Queries) ListRecords(ctx context.Context, table string) ([]Record, error) {
	return q.queryRecords(ctx, fmt.Sprintf(listRecords, table))
}

type ListRecordsByIndexParams struct {
	Table     string
	Path      string
	Lower     any
	Upper     any
	LowerOpen bool
	UpperOpen bool
}

// ListRecordsByIndex scans rows whose indexed JSON value lies inside the
// bounds. A nil bound is unbounded; rows without the value are skipped.
func (q *Queries) ListRecordsByIndex(ctx context.Context, arg ListRecordsByIndexParams) ([]Record, error) {
	expr := fmt.Sprintf("json_extract(data, '%s')", arg.Path)

	conds := []string{expr + " IS NOT NULL"}
	args := make([]any, 0, 2)
	if arg.Lower != nil {
		op := ">="
		if arg.LowerOpen {
			op = ">"
		}
		conds = append(conds, fmt.Sprintf("%s %s ?", expr, op))
		args = append(args, arg.Lower)
	}
	if arg.Upper != nil {
		op := "<="
		if arg.UpperOpen {
			op = "<"
		}
		conds = append(conds, fmt.Sprintf("%s %s ?", expr, op))
		args = append(args, arg.Upper)
	}

	query := fmt.Sprintf("SELECT id, data FROM %q WHERE %s ORDER BY %s, rowid",
		arg.Table, strings.Join(conds, " AND "), expr)
	return q.queryRecords(ctx, query, args...)
}

const updateRecordData = `UPDATE %q SET data = json(?), updated_at = CURRENT_TIMESTAMP WHERE id = ?`

func (q *Queries) UpdateRecordData(ctx context.Context, table, id, data string) (int64, error) {
	res, err := q.db.ExecContext(ctx, fmt.Sprintf(updateRecordData, table), data, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const deleteRecord = `DELETE FROM %q WHERE id = ?`

func (q *Queries) DeleteRecord(ctx context.Context, table, id string) (int64, error) {
	res, err := q.db.ExecContext(ctx, fmt.Sprintf(deleteRecord, table), id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const deleteAllRecords = `DELETE FROM %q`

func (q *Queries) DeleteAllRecords(ctx context.Context, table string) error {
	_, err := q.db.ExecContext(ctx, fmt.Sprintf(deleteAllRecords, table))
	return err
}

const countRecords = `SELECT COUNT(*) FROM %q`

func (q *Queries) CountRecords(ctx context.Context, table string) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, fmt.Sprintf(countRecords, table)).Scan(&n)
	return n, err
}

const listTables = `SELECT name FROM sqlite_master
WHERE type = 'table' AND name NOT LIKE 'sqlite_%' AND name != 'schema_migrations'
ORDER BY name`

func (q *Queries) ListTables(ctx context.Context) ([]string, error) {
	rows, err := q.db.QueryContext(ctx, listTables)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (q *Queries) queryRecords(ctx context.Context, query string, args ...any) ([]Record, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Record
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.ID, &r.Data); err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

package sqldb

import "context"

const getStorageValue = `SELECT key, value FROM app_storage WHERE key = ?`

func (q *Queries) GetStorageValue(ctx context.Context, key string) (StorageValue, error) {
	row := q.db.QueryRowContext(ctx, getStorageValue, key)
	var v StorageValue
	err := row.Scan(&v.Key, &v.Value)
	return v, err
}

const setStorageValue = `INSERT INTO app_storage (key, value) VALUES (?, json(?))
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`

func (q *Queries) SetStorageValue(ctx context.Context, key, value string) error {
	_, err := q.db.ExecContext(ctx, setStorageValue, key, value)
	return err
}

const deleteStorageValue = `DELETE FROM app_storage WHERE key = ?`

func (q *Queries) DeleteStorageValue(ctx context.Context, key string) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteStorageValue, key)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const deleteAllStorageValues = `DELETE FROM app_storage`

func (q *Queries) DeleteAllStorageValues(ctx context.Context) error {
	_, err := q.db.ExecContext(ctx, deleteAllStorageValues)
	return err
}

const listStorageKeys = `SELECT key FROM app_storage ORDER BY key`

func (q *Queries) ListStorageKeys(ctx context.Context) ([]string, error) {
	rows, err := q.db.QueryContext(ctx, listStorageKeys)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

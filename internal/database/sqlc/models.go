package sqldb

// Record is one row of a record collection table. Data holds the JSON document.
type Record struct {
	ID   string
	Data string
}

// StorageValue is one row of the app_storage table.
type StorageValue struct {
	Key   string
	Value string
}

// Package backup encodes the whole garage into a portable JSON document and
// reads it back.
package backup

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/cartracker/cartracker/internal/vehicle"
)

// FormatVersion is written into every document.
const FormatVersion = "1.0"

// ErrInvalidFormat is returned for input that is not a backup document.
var ErrInvalidFormat = errors.New("backup: invalid format")

// Document is a full snapshot of the garage. Vehicles are kept as raw JSON:
// legacy shapes are resolved when the vehicles are loaded, not here.
type Document struct {
	Version    string            `json:"version"`
	ExportedAt time.Time         `json:"exportedAt"`
	Vehicles   []json.RawMessage `json:"vehicles"`
	Settings   json.RawMessage   `json:"settings,omitempty"`
}

// Serialize builds a document from vehicles and the opaque settings value.
func Serialize(vehicles []vehicle.Vehicle, settings json.RawMessage, now time.Time) (Document, error) {
	doc := Document{
		Version:    FormatVersion,
		ExportedAt: now.UTC(),
		Vehicles:   make([]json.RawMessage, 0, len(vehicles)),
		Settings:   settings,
	}
	for _, v := range vehicles {
		data, err := json.Marshal(v)
		if err != nil {
			return Document{}, fmt.Errorf("encode vehicle %s: %w", v.ID, err)
		}
		doc.Vehicles = append(doc.Vehicles, data)
	}
	return doc, nil
}

// Encode writes doc as indented JSON.
func Encode(w io.Writer, doc Document) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

// Marshal returns doc as indented JSON.
func Marshal(doc Document) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, doc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode reads a document from r.
func Decode(r io.Reader) (Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Document{}, fmt.Errorf("read backup: %w", err)
	}
	return Parse(data)
}

// Parse reads a document. It fails with ErrInvalidFormat when the input is
// not a JSON object or its vehicle list is missing or not an array. Files
// written by older versions use "cars" and "exportDate" and are accepted.
func Parse(data []byte) (Document, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil || fields == nil {
		return Document{}, fmt.Errorf("%w: not a JSON object", ErrInvalidFormat)
	}

	rawVehicles, ok := fields["vehicles"]
	if !ok {
		rawVehicles, ok = fields["cars"]
	}
	if !ok {
		return Document{}, fmt.Errorf("%w: vehicles missing", ErrInvalidFormat)
	}
	trimmed := bytes.TrimSpace(rawVehicles)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return Document{}, fmt.Errorf("%w: vehicles is not an array", ErrInvalidFormat)
	}

	doc := Document{Vehicles: []json.RawMessage{}}
	if err := json.Unmarshal(trimmed, &doc.Vehicles); err != nil {
		return Document{}, fmt.Errorf("%w: %w", ErrInvalidFormat, err)
	}
	if doc.Vehicles == nil {
		doc.Vehicles = []json.RawMessage{}
	}

	if raw, ok := fields["version"]; ok {
		_ = json.Unmarshal(raw, &doc.Version)
	}
	for _, key := range []string{"exportedAt", "exportDate", "timestamp"} {
		if raw, ok := fields[key]; ok {
			if err := json.Unmarshal(raw, &doc.ExportedAt); err == nil {
				break
			}
		}
	}
	if raw, ok := fields["settings"]; ok && !bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		doc.Settings = raw
	}
	return doc, nil
}

// DecodeVehicles decodes the document's vehicles.
func (d Document) DecodeVehicles() ([]vehicle.Vehicle, error) {
	result := make([]vehicle.Vehicle, 0, len(d.Vehicles))
	for i, raw := range d.Vehicles {
		var v vehicle.Vehicle
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, fmt.Errorf("%w: vehicle %d: %w", ErrInvalidFormat, i, err)
		}
		result = append(result, v)
	}
	return result, nil
}

// FileName returns the name a backup exported at now is saved under.
func FileName(now time.Time) string {
	return "car-tracker-backup-" + now.UTC().Format("2006-01-02") + ".json"
}

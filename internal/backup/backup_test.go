package backup_test

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cartracker/cartracker/internal/backup"
	"github.com/cartracker/cartracker/internal/catalog"
)

var exportTime = time.Date(2024, 6, 1, 9, 30, 0, 0, time.UTC)

func TestSerializeEncodeDecode(t *testing.T) {
	vehicles := catalog.DemoVehicles()
	settings := json.RawMessage(`{"theme":"dark"}`)

	doc, err := backup.Serialize(vehicles, settings, exportTime)
	require.NoError(t, err)
	assert.Equal(t, backup.FormatVersion, doc.Version)
	assert.Len(t, doc.Vehicles, 3)

	var buf bytes.Buffer
	require.NoError(t, backup.Encode(&buf, doc))
	assert.Contains(t, buf.String(), "\n  \"version\": \"1.0\"")

	parsed, err := backup.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, "1.0", parsed.Version)
	assert.True(t, parsed.ExportedAt.Equal(exportTime))
	assert.JSONEq(t, `{"theme":"dark"}`, string(parsed.Settings))

	decoded, err := parsed.DecodeVehicles()
	require.NoError(t, err)
	require.Len(t, decoded, 3)
	for i := range vehicles {
		assert.Equal(t, vehicles[i], decoded[i])
	}
}

func TestParseRejectsInvalidDocuments(t *testing.T) {
	cases := map[string]string{
		"not json":        `{"vehicles": [`,
		"not an object":   `[1, 2]`,
		"missing":         `{"version": "1.0"}`,
		"object vehicles": `{"vehicles": {"id": "1"}}`,
		"null vehicles":   `{"vehicles": null}`,
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := backup.Parse([]byte(input))
			assert.ErrorIs(t, err, backup.ErrInvalidFormat)
		})
	}
}

func TestParseKeepsVehiclesUnchanged(t *testing.T) {
	input := `{"version":"1.0","exportDate":"2024-01-01T00:00:00.000Z","cars":[{"id":1,"insurance":{"number":"A"}}]}`

	doc, err := backup.Parse([]byte(input))
	require.NoError(t, err)
	require.Len(t, doc.Vehicles, 1)
	assert.JSONEq(t, `{"id":1,"insurance":{"number":"A"}}`, string(doc.Vehicles[0]))
	assert.Equal(t, 2024, doc.ExportedAt.Year())
	assert.Nil(t, doc.Settings)

	vehicles, err := doc.DecodeVehicles()
	require.NoError(t, err)
	assert.Equal(t, "1", vehicles[0].ID)
	assert.Len(t, vehicles[0].InsurancePolicies, 1)
}

func TestParseEmptyVehicleList(t *testing.T) {
	doc, err := backup.Parse([]byte(`{"vehicles": []}`))
	require.NoError(t, err)
	assert.NotNil(t, doc.Vehicles)
	assert.Empty(t, doc.Vehicles)
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "car-tracker-backup-2024-06-01.json", backup.FileName(exportTime))
}

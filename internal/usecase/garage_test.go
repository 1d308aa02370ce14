package usecase_test

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cartracker/cartracker/internal/backup"
	"github.com/cartracker/cartracker/internal/catalog"
	"github.com/cartracker/cartracker/internal/database"
	"github.com/cartracker/cartracker/internal/filesystem"
	"github.com/cartracker/cartracker/internal/services"
	"github.com/cartracker/cartracker/internal/settings"
	"github.com/cartracker/cartracker/internal/status"
	"github.com/cartracker/cartracker/internal/usecase"
	"github.com/cartracker/cartracker/internal/vehicle"
)

var testNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func newGarage(t *testing.T, opts ...services.VehicleOption) *usecase.Garage {
	t.Helper()
	t.Setenv("CARTRACKER_DIR", t.TempDir())

	dbCtx, err := database.CreateDatabase(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.CloseDatabase(dbCtx) })

	clock := func() time.Time { return testNow }
	store := database.NewRecordStore(dbCtx, database.WithClock(clock))
	opts = append([]services.VehicleOption{services.WithClock(clock)}, opts...)
	svc := services.NewVehicleService(store, opts...)
	_, err = svc.Initialize(context.Background())
	require.NoError(t, err)

	return usecase.NewGarage(svc, settings.NewStore(database.NewAppStorage(dbCtx)), zerolog.Nop())
}

func TestOverviewEvaluatesActiveVehicles(t *testing.T) {
	g := newGarage(t)

	views := g.Overview(testNow)
	require.Len(t, views, 3)
	assert.Equal(t, "P593BK39", views[0].Vehicle.Plate)

	jeep := views[0]
	assert.Equal(t, status.InsuranceNormal, jeep.Insurance.Status)
	require.NotNil(t, jeep.Insurance.Active)
	assert.Equal(t, "OSAGO123456", jeep.Insurance.Active.Number)
	assert.NotNil(t, jeep.Critical)
	require.NotEmpty(t, jeep.Components)
	for _, c := range jeep.Components {
		assert.NotEmpty(t, c.Name, c.Key)
	}
}

func TestDetailUnknownVehicle(t *testing.T) {
	g := newGarage(t)

	_, err := g.Detail(context.Background(), "missing", testNow)
	assert.ErrorIs(t, err, services.ErrNotFound)
}

func TestDetailIncludesInactiveVehicle(t *testing.T) {
	ctx := context.Background()
	g := newGarage(t)
	id := g.Overview(testNow)[1].Vehicle.ID

	require.NoError(t, g.Vehicles().DeleteVehicle(ctx, id))

	view, err := g.Detail(ctx, id, testNow)
	require.NoError(t, err)
	assert.False(t, view.Vehicle.IsActive)
}

func TestCreateFromTemplate(t *testing.T) {
	ctx := context.Background()
	g := newGarage(t, services.WithSeed(func() []vehicle.Vehicle { return nil }))

	v, err := g.CreateFromTemplate(ctx, "volvoXC90", catalog.Overrides{Plate: "B777OP77", CurrentMileage: 120000})
	require.NoError(t, err)
	assert.NotEmpty(t, v.ID)
	assert.Equal(t, "volvoXC90", v.TemplateKey)
	assert.Equal(t, 120000, v.CurrentMileage)
	assert.Len(t, g.Overview(testNow), 1)

	_, err = g.CreateFromTemplate(ctx, "tesla", catalog.Overrides{})
	assert.ErrorIs(t, err, catalog.ErrUnknownTemplate)
}

func TestExportImportRestoresGarageAndSettings(t *testing.T) {
	ctx := context.Background()
	g := newGarage(t)

	dark, err := settings.Defaults().With("theme", "dark")
	require.NoError(t, err)
	require.NoError(t, g.Settings().SaveSettings(ctx, dark))

	doc, err := g.Export(ctx, testNow)
	require.NoError(t, err)
	assert.Equal(t, backup.FormatVersion, doc.Version)
	assert.Len(t, doc.Vehicles, 3)

	info, err := g.Settings().BackupInfo(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, info.BackupCount)
	require.NotNil(t, info.LastBackup)
	assert.True(t, testNow.Equal(*info.LastBackup))

	require.NoError(t, g.Settings().SaveSettings(ctx, settings.Defaults()))
	removed := g.Overview(testNow)[2].Vehicle.ID
	require.NoError(t, g.Vehicles().DeleteVehicle(ctx, removed))
	require.Len(t, g.Overview(testNow), 2)

	count, err := g.Import(ctx, doc)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
	assert.Len(t, g.Overview(testNow), 3)

	restored, err := g.Settings().Settings(ctx)
	require.NoError(t, err)
	assert.Equal(t, "dark", restored.Theme)
}

func TestExportFileAndImportFile(t *testing.T) {
	ctx := context.Background()
	g := newGarage(t)

	path, hash, err := g.ExportFile(ctx, testNow)
	require.NoError(t, err)
	assert.Contains(t, path, "car-tracker-backup-2024-06-01.json")

	ok, err := filesystem.VerifyFile(path, hash)
	require.NoError(t, err)
	assert.True(t, ok)

	count, err := g.ImportFile(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestImportRejectsTooManyActiveVehicles(t *testing.T) {
	ctx := context.Background()
	g := newGarage(t, services.WithMaxActive(2))

	doc, err := backup.Serialize(catalog.DemoVehicles(), nil, testNow)
	require.NoError(t, err)

	_, err = g.Import(ctx, doc)
	assert.ErrorIs(t, err, services.ErrLimitExceeded)
}

func TestQuickBackupRoundTrip(t *testing.T) {
	ctx := context.Background()
	g := newGarage(t)

	_, err := g.RestoreQuickBackup(ctx)
	assert.ErrorIs(t, err, usecase.ErrNoSnapshot)

	info, err := g.QuickBackupInfo(ctx)
	require.NoError(t, err)
	assert.Nil(t, info)

	taken, err := g.QuickBackup(ctx, testNow)
	require.NoError(t, err)
	assert.Equal(t, 3, taken.Vehicles)

	id := g.Overview(testNow)[0].Vehicle.ID
	require.NoError(t, g.Vehicles().HardDeleteVehicle(ctx, id))
	require.Len(t, g.Overview(testNow), 2)

	count, err := g.RestoreQuickBackup(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
	assert.Len(t, g.Overview(testNow), 3)

	info, err = g.QuickBackupInfo(ctx)
	require.NoError(t, err)
	require.NotNil(t, info)
	assert.True(t, testNow.Equal(info.TakenAt))
}

func TestImportLegacyCarsKeepsVehiclesActive(t *testing.T) {
	g := newGarage(t)
	ctx := context.Background()

	doc, err := backup.Parse([]byte(`{"cars":[{"id":"car_1","name":"Old Jeep","currentMileage":120000,"insurance":[]}],"exportDate":"2024-01-01T00:00:00Z"}`))
	require.NoError(t, err)

	n, err := g.Import(ctx, doc)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	views := g.Overview(testNow)
	require.Len(t, views, 1)
	assert.Equal(t, "car_1", views[0].Vehicle.ID)
	assert.Equal(t, "Old Jeep", views[0].Vehicle.Name)
	assert.True(t, views[0].Vehicle.IsActive)
	assert.NotNil(t, views[0].Vehicle.InsurancePolicies)
}

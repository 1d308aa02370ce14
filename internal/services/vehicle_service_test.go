package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cartracker/cartracker/internal/catalog"
	"github.com/cartracker/cartracker/internal/database"
	"github.com/cartracker/cartracker/internal/services"
	"github.com/cartracker/cartracker/internal/vehicle"
)

var testNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func noSeed() []vehicle.Vehicle { return nil }

func setupStore(t *testing.T) *database.RecordStore {
	t.Helper()
	dbCtx, err := database.CreateDatabase(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, database.CloseDatabase(dbCtx))
	})
	return database.NewRecordStore(dbCtx, database.WithClock(func() time.Time { return testNow }))
}

func newService(t *testing.T, store *database.RecordStore, opts ...services.VehicleOption) *services.VehicleService {
	t.Helper()
	opts = append([]services.VehicleOption{services.WithClock(func() time.Time { return testNow })}, opts...)
	svc := services.NewVehicleService(store, opts...)
	_, err := svc.Initialize(context.Background())
	require.NoError(t, err)
	return svc
}

func addCar(t *testing.T, svc *services.VehicleService, name string, mileage int) vehicle.Vehicle {
	t.Helper()
	v, err := catalog.Instantiate("hyundaiCreta", catalog.Overrides{Name: name, CurrentMileage: mileage})
	require.NoError(t, err)
	added, err := svc.AddVehicle(context.Background(), v)
	require.NoError(t, err)
	return added
}

func TestInitializeSeedsOnceAndIsIdempotent(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	svc := services.NewVehicleService(store, services.WithClock(func() time.Time { return testNow }))

	first, err := svc.Initialize(ctx)
	require.NoError(t, err)
	require.Len(t, first, 3)

	second, err := svc.Initialize(ctx)
	require.NoError(t, err)
	require.Len(t, second, 3)
	for i := range first {
		assert.Equal(t, first[i].ID, second[i].ID)
	}

	all, err := store.GetAll(ctx, database.Vehicles, "", nil)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	again := services.NewVehicleService(store, services.WithClock(func() time.Time { return testNow }))
	third, err := again.Initialize(ctx)
	require.NoError(t, err)
	assert.Len(t, third, 3)
}

func TestInitializeDoesNotReseedWhenOnlyInactiveRowsRemain(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	_, err := store.Add(ctx, database.Vehicles, database.Record{"name": "Old", "isActive": false})
	require.NoError(t, err)

	svc := services.NewVehicleService(store)
	active, err := svc.Initialize(ctx)
	require.NoError(t, err)
	assert.NotNil(t, active)
	assert.Empty(t, active)
}

func TestInitializeNormalizesLegacyInsurance(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	id, err := store.Add(ctx, database.Vehicles, database.Record{
		"name":     "JEEP",
		"isActive": true,
		"insurance": map[string]any{
			"number":  "OSAGO123456",
			"company": "Ingosstrakh",
			"type":    "osago",
			"endDate": "2025-01-14",
		},
	})
	require.NoError(t, err)
	emptyID, err := store.Add(ctx, database.Vehicles, database.Record{
		"name":      "VOLVO",
		"isActive":  true,
		"insurance": map[string]any{"endDate": "2025-01-14"},
	})
	require.NoError(t, err)

	svc := newService(t, store)

	v, err := svc.GetVehicle(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, v)
	require.Len(t, v.InsurancePolicies, 1)
	assert.Equal(t, vehicle.Compulsory, v.InsurancePolicies[0].Type)

	empty, err := svc.GetVehicle(ctx, emptyID)
	require.NoError(t, err)
	assert.NotNil(t, empty.InsurancePolicies)
	assert.Empty(t, empty.InsurancePolicies)

	raw, err := store.Get(ctx, database.Vehicles, id)
	require.NoError(t, err)
	assert.NotContains(t, raw, "insurance")
	assert.IsType(t, []any{}, raw["insurancePolicies"])

	var reloaded vehicle.Vehicle
	require.NoError(t, raw.Decode(&reloaded))
	assert.False(t, reloaded.NeedsInsuranceMigration())
}

func TestInitializeTreatsMissingActiveFlagAsActive(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	_, err := store.Put(ctx, database.Vehicles, database.Record{
		"id":        "car_1",
		"name":      "Legacy",
		"insurance": []any{},
	})
	require.NoError(t, err)

	svc := newService(t, store)

	active := svc.ListActiveVehicles()
	require.Len(t, active, 1)
	assert.Equal(t, "car_1", active[0].ID)
	assert.True(t, active[0].IsActive)

	raw, err := store.Get(ctx, database.Vehicles, "car_1")
	require.NoError(t, err)
	assert.Equal(t, true, raw["isActive"])
	assert.NotContains(t, raw, "insurance")

	all, err := store.GetAll(ctx, database.Vehicles, "", nil)
	require.NoError(t, err)
	assert.Len(t, all, 1, "a legacy garage is not seeded")
}

func TestAddVehicleEnforcesLimit(t *testing.T) {
	store := setupStore(t)
	svc := newService(t, store, services.WithSeed(noSeed))

	for _, name := range []string{"A", "B", "C"} {
		addCar(t, svc, name, 0)
	}
	assert.False(t, svc.CanAddMore())

	v, err := catalog.Instantiate("jeepLiberty", catalog.Overrides{})
	require.NoError(t, err)
	_, err = svc.AddVehicle(context.Background(), v)
	assert.ErrorIs(t, err, services.ErrLimitExceeded)

	active := svc.ListActiveVehicles()
	require.Len(t, active, 3)
	assert.Equal(t, "A", active[0].Name)
	assert.Equal(t, "C", active[2].Name)
}

func TestAddVehicleStampsAndValidates(t *testing.T) {
	store := setupStore(t)
	svc := newService(t, store, services.WithSeed(noSeed))
	ctx := context.Background()

	_, err := svc.AddVehicle(ctx, vehicle.Vehicle{})
	assert.ErrorIs(t, err, services.ErrValidation)

	added := addCar(t, svc, "Creta", 45000)
	assert.NotEmpty(t, added.ID)
	assert.True(t, added.IsActive)
	assert.True(t, added.CreatedAt.Equal(testNow))
	assert.NotNil(t, added.InsurancePolicies)

	raw, err := store.Get(ctx, database.Vehicles, added.ID)
	require.NoError(t, err)
	assert.Equal(t, "Creta", raw["name"])
}

func TestSoftDeleteKeepsRow(t *testing.T) {
	store := setupStore(t)
	svc := newService(t, store, services.WithSeed(noSeed))
	ctx := context.Background()

	keep := addCar(t, svc, "Keep", 0)
	gone := addCar(t, svc, "Gone", 0)

	require.NoError(t, svc.DeleteVehicle(ctx, gone.ID))

	active := svc.ListActiveVehicles()
	require.Len(t, active, 1)
	assert.Equal(t, keep.ID, active[0].ID)

	v, err := svc.GetVehicle(ctx, gone.ID)
	require.NoError(t, err)
	require.NotNil(t, v)
	assert.False(t, v.IsActive)
	assert.True(t, v.DeletedAt.Equal(testNow))

	assert.ErrorIs(t, svc.DeleteVehicle(ctx, gone.ID), services.ErrNotFound)
	assert.True(t, svc.CanAddMore())
}

func TestHardDeleteRemovesRow(t *testing.T) {
	store := setupStore(t)
	svc := newService(t, store, services.WithSeed(noSeed))
	ctx := context.Background()

	v := addCar(t, svc, "Gone", 0)
	require.NoError(t, svc.HardDeleteVehicle(ctx, v.ID))

	got, err := svc.GetVehicle(ctx, v.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.ErrorIs(t, svc.HardDeleteVehicle(ctx, v.ID), services.ErrNotFound)
}

func TestUpdateVehicleKeepsCacheAndStoreInSync(t *testing.T) {
	store := setupStore(t)
	svc := newService(t, store, services.WithSeed(noSeed))
	ctx := context.Background()

	v := addCar(t, svc, "Creta", 45000)
	name := "Creta 2.0"
	single := vehicle.SinglePolicy(vehicle.Policy{Number: "X1", EndDate: vehicle.NewDate(2025, 1, 1)})

	updated, err := svc.UpdateVehicle(ctx, v.ID, services.VehiclePatch{Name: &name, Insurance: &single})
	require.NoError(t, err)
	assert.Equal(t, "Creta 2.0", updated.Name)
	require.Len(t, updated.InsurancePolicies, 1)
	assert.True(t, updated.InsurancePolicies[0].IsActive)

	raw, err := store.Get(ctx, database.Vehicles, v.ID)
	require.NoError(t, err)
	var stored vehicle.Vehicle
	require.NoError(t, raw.Decode(&stored))
	assert.Equal(t, stored, svc.ListActiveVehicles()[0])
	assert.True(t, stored.UpdatedAt.Equal(testNow))

	_, err = svc.UpdateVehicle(ctx, "missing", services.VehiclePatch{Name: &name})
	assert.ErrorIs(t, err, services.ErrNotFound)

	empty := ""
	_, err = svc.UpdateVehicle(ctx, v.ID, services.VehiclePatch{Name: &empty})
	assert.ErrorIs(t, err, services.ErrValidation)
}

func TestInsurancePolicyLifecycle(t *testing.T) {
	store := setupStore(t)
	svc := newService(t, store, services.WithSeed(noSeed))
	ctx := context.Background()
	v := addCar(t, svc, "Creta", 0)

	_, err := svc.AddInsurancePolicy(ctx, v.ID, vehicle.Policy{Company: "RESO"})
	assert.ErrorIs(t, err, services.ErrValidation)

	first, err := svc.AddInsurancePolicy(ctx, v.ID, vehicle.Policy{
		Number:  "OS-1",
		EndDate: vehicle.NewDate(2024, 6, 20),
	})
	require.NoError(t, err)
	assert.Equal(t, testNow.UnixMilli(), first.ID)
	assert.Equal(t, vehicle.Compulsory, first.Type)
	assert.Equal(t, "2024-06-01", first.StartDate.String())
	assert.True(t, first.IsActive)

	second, err := svc.AddInsurancePolicy(ctx, v.ID, vehicle.Policy{
		Number:  "KA-1",
		Type:    vehicle.Comprehensive,
		EndDate: vehicle.NewDate(2023, 1, 1),
	})
	require.NoError(t, err)
	assert.Equal(t, first.ID+1, second.ID)
	assert.False(t, second.IsActive)

	active, err := svc.GetActivePolicy(ctx, v.ID)
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, "OS-1", active.Number)

	end := vehicle.NewDate(2025, 1, 1)
	updated, err := svc.UpdateInsurancePolicy(ctx, v.ID, second.Ref(), services.PolicyPatch{EndDate: &end})
	require.NoError(t, err)
	assert.True(t, updated.IsActive)
	assert.Equal(t, "KA-1", updated.Number)

	_, err = svc.UpdateInsurancePolicy(ctx, v.ID, "nope", services.PolicyPatch{EndDate: &end})
	assert.ErrorIs(t, err, services.ErrNotFound)

	require.NoError(t, svc.DeleteInsurancePolicy(ctx, v.ID, first.Ref()))
	assert.ErrorIs(t, svc.DeleteInsurancePolicy(ctx, v.ID, first.Ref()), services.ErrNotFound)

	got, err := svc.GetVehicle(ctx, v.ID)
	require.NoError(t, err)
	require.Len(t, got.InsurancePolicies, 1)
	assert.Equal(t, "KA-1", got.InsurancePolicies[0].Number)
}

func TestLegacyPolicyAddressedByNumber(t *testing.T) {
	store := setupStore(t)
	svc := newService(t, store)
	ctx := context.Background()

	creta := svc.ListActiveVehicles()[2]
	require.Equal(t, "E555XX99", creta.Plate)

	company := "SOGAZ Life"
	updated, err := svc.UpdateInsurancePolicy(ctx, creta.ID, "KASKO555888", services.PolicyPatch{Company: &company})
	require.NoError(t, err)
	assert.Equal(t, "SOGAZ Life", updated.Company)

	require.NoError(t, svc.DeleteInsurancePolicy(ctx, creta.ID, "OSAGO333444"))
	got, err := svc.GetVehicle(ctx, creta.ID)
	require.NoError(t, err)
	assert.Len(t, got.InsurancePolicies, 1)
}

func TestGetActivePolicyAbsent(t *testing.T) {
	store := setupStore(t)
	svc := newService(t, store, services.WithSeed(noSeed))
	ctx := context.Background()
	v := addCar(t, svc, "Creta", 0)

	p, err := svc.GetActivePolicy(ctx, v.ID)
	require.NoError(t, err)
	assert.Nil(t, p)

	_, err = svc.GetActivePolicy(ctx, "missing")
	assert.ErrorIs(t, err, services.ErrNotFound)
}

func TestRecordMaintenanceMovesOdometerForward(t *testing.T) {
	store := setupStore(t)
	svc := newService(t, store, services.WithSeed(noSeed))
	ctx := context.Background()
	v := addCar(t, svc, "Creta", 45000)

	updated, err := svc.RecordMaintenance(ctx, v.ID, "engineOil", vehicle.LastChange{Mileage: 46000, Material: "5W-30"})
	require.NoError(t, err)
	assert.Equal(t, 46000, updated.CurrentMileage)
	assert.Equal(t, "2024-06-01", updated.LastChanges["engineOil"].Date.String())
	assert.Equal(t, "5W-30", updated.LastChanges["engineOil"].Material)

	updated, err = svc.RecordMaintenance(ctx, v.ID, "airFilter", vehicle.LastChange{Mileage: 40000})
	require.NoError(t, err)
	assert.Equal(t, 46000, updated.CurrentMileage)
	assert.Len(t, updated.LastChanges, 2)

	_, err = svc.RecordMaintenance(ctx, v.ID, "haldexOil", vehicle.LastChange{Mileage: 1})
	assert.ErrorIs(t, err, services.ErrValidation)
}

func TestUpdateMileageRejectsDecrease(t *testing.T) {
	store := setupStore(t)
	svc := newService(t, store, services.WithSeed(noSeed))
	ctx := context.Background()
	v := addCar(t, svc, "Creta", 45000)

	_, err := svc.UpdateMileage(ctx, v.ID, 44000)
	assert.ErrorIs(t, err, services.ErrValidation)

	updated, err := svc.UpdateMileage(ctx, v.ID, 47000)
	require.NoError(t, err)
	assert.Equal(t, 47000, updated.CurrentMileage)
	assert.Equal(t, "2024-06-01", updated.LastMileageUpdate.String())
}

func TestReplaceRestoresSnapshot(t *testing.T) {
	store := setupStore(t)
	svc := newService(t, store)
	ctx := context.Background()

	snapshot, err := svc.ListAllVehicles(ctx)
	require.NoError(t, err)
	before := svc.ListActiveVehicles()

	require.NoError(t, svc.DeleteVehicle(ctx, before[0].ID))
	_, err = svc.UpdateMileage(ctx, before[1].ID, 999999)
	require.NoError(t, err)

	n, err := svc.Replace(ctx, snapshot)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	after := svc.ListActiveVehicles()
	require.Len(t, after, len(before))
	for i := range before {
		want, got := before[i], after[i]
		want.UpdatedAt, got.UpdatedAt = time.Time{}, time.Time{}
		assert.Equal(t, want, got)
	}
}

func TestReplaceRejectsTooManyActive(t *testing.T) {
	store := setupStore(t)
	svc := newService(t, store, services.WithSeed(noSeed), services.WithMaxActive(1))

	incoming := catalog.DemoVehicles()
	_, err := svc.Replace(context.Background(), incoming)
	assert.ErrorIs(t, err, services.ErrLimitExceeded)
	assert.Empty(t, svc.ListActiveVehicles())
}

type failingPutStore struct {
	*database.RecordStore
	err error
}

func (s failingPutStore) Put(context.Context, database.Collection, database.Record) (string, error) {
	return "", s.err
}

func TestReplaceReloadsCacheAfterFailedWrite(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	svc := services.NewVehicleService(
		failingPutStore{RecordStore: store, err: database.ErrIO},
		services.WithClock(func() time.Time { return testNow }),
		services.WithSeed(noSeed),
	)
	_, err := svc.Initialize(ctx)
	require.NoError(t, err)
	current := addCar(t, svc, "Current", 1000)

	incoming, err := catalog.Instantiate("hyundaiCreta", catalog.Overrides{Name: "Restored"})
	require.NoError(t, err)
	incoming.ID = "car_restored"
	incoming.IsActive = true

	_, err = svc.Replace(ctx, []vehicle.Vehicle{incoming})
	require.ErrorIs(t, err, database.ErrIO)

	raw, err := store.Get(ctx, database.Vehicles, current.ID)
	require.NoError(t, err)
	assert.Equal(t, false, raw["isActive"])
	assert.Empty(t, svc.ListActiveVehicles())
}

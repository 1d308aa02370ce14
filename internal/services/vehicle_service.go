package services

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/cartracker/cartracker/internal/catalog"
	"github.com/cartracker/cartracker/internal/database"
	"github.com/cartracker/cartracker/internal/vehicle"
)

var (
	// ErrNotFound is returned when a vehicle or policy does not exist.
	ErrNotFound = database.ErrNotFound
	// ErrLimitExceeded is returned when the active vehicle cap is reached.
	ErrLimitExceeded = errors.New("vehicle limit exceeded")
	// ErrValidation is returned when input misses a required field or is out of range.
	ErrValidation = errors.New("validation failed")
)

// DefaultMaxActive is the number of active vehicles allowed by default.
const DefaultMaxActive = 3

// RecordStore is the storage used by VehicleService.
type RecordStore interface {
	Add(ctx context.Context, c database.Collection, record database.Record) (string, error)
	Put(ctx context.Context, c database.Collection, record database.Record) (string, error)
	Get(ctx context.Context, c database.Collection, id string) (database.Record, error)
	GetAll(ctx context.Context, c database.Collection, indexName string, keyRange *database.KeyRange) ([]database.Record, error)
	Update(ctx context.Context, c database.Collection, id string, partial database.Record) (string, error)
	Delete(ctx context.Context, c database.Collection, id string) (bool, error)
}

// VehicleService manages vehicles on top of the record store and keeps the
// active ones cached in store order. Every mutation writes the store, reads
// the row back and only then updates the cache.
type VehicleService struct {
	mu        sync.Mutex
	store     RecordStore
	cache     []vehicle.Vehicle
	maxActive int
	seed      func() []vehicle.Vehicle
	now       func() time.Time
	log       zerolog.Logger
}

// VehicleOption customises a VehicleService.
type VehicleOption func(*VehicleService)

func WithMaxActive(n int) VehicleOption {
	return func(s *VehicleService) {
		if n > 0 {
			s.maxActive = n
		}
	}
}

func WithClock(now func() time.Time) VehicleOption {
	return func(s *VehicleService) {
		if now != nil {
			s.now = now
		}
	}
}

func WithLogger(log zerolog.Logger) VehicleOption {
	return func(s *VehicleService) {
		s.log = log
	}
}

// WithSeed replaces the vehicles an empty store is seeded with.
func WithSeed(seed func() []vehicle.Vehicle) VehicleOption {
	return func(s *VehicleService) {
		s.seed = seed
	}
}

// NewVehicleService creates a VehicleService. Call Initialize before use.
func NewVehicleService(store RecordStore, opts ...VehicleOption) *VehicleService {
	s := &VehicleService{
		store:     store,
		maxActive: DefaultMaxActive,
		seed:      catalog.DemoVehicles,
		now:       time.Now,
		log:       zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// VehiclePatch lists the fields UpdateVehicle changes. Nil fields are kept.
type VehiclePatch struct {
	Name              *string
	Year              *int
	Plate             *string
	VIN               *string
	Color             *string
	CurrentMileage    *int
	LastMileageUpdate *vehicle.Date
	Intervals         map[string]vehicle.Interval
	LastChanges       map[string]vehicle.LastChange
	Insurance         *vehicle.PolicySet
}

// PolicyPatch lists the fields UpdateInsurancePolicy changes. Nil fields are kept.
type PolicyPatch struct {
	Number    *string
	Company   *string
	Type      *vehicle.PolicyType
	StartDate *vehicle.Date
	EndDate   *vehicle.Date
	Cost      *float64
}

// Initialize loads the vehicles, rewrites rows still using the legacy
// insurance field or missing isActive and seeds an empty store with the demo garage. It returns
// the active vehicles. Calling it again does not seed twice.
func (s *VehicleService) Initialize(ctx context.Context) ([]vehicle.Vehicle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.store.GetAll(ctx, database.Vehicles, "", nil)
	if err != nil {
		return nil, fmt.Errorf("load vehicles: %w", err)
	}

	migrated := 0
	for _, rec := range records {
		v, err := decodeVehicle(rec)
		if err != nil {
			return nil, err
		}
		partial := database.Record{}
		if v.NeedsInsuranceMigration() {
			partial["insurancePolicies"] = v.InsurancePolicies
			partial["insurance"] = nil
		}
		if v.NeedsActiveBackfill() {
			partial["isActive"] = true
		}
		if len(partial) == 0 {
			continue
		}
		if _, err := s.store.Update(ctx, database.Vehicles, v.ID, partial); err != nil {
			return nil, fmt.Errorf("normalize vehicle %s: %w", v.ID, err)
		}
		migrated++
	}
	if migrated > 0 {
		s.log.Info().Int("vehicles", migrated).Msg("legacy vehicle rows normalized")
	}

	if len(records) == 0 && s.seed != nil {
		if err := s.seedLocked(ctx); err != nil {
			return nil, err
		}
	}

	if err := s.loadLocked(ctx); err != nil {
		return nil, err
	}
	return cloneAll(s.cache), nil
}

func (s *VehicleService) seedLocked(ctx context.Context) error {
	now := s.now().UTC()
	demo := s.seed()
	for _, v := range demo {
		v = v.Normalized()
		v.ID = ""
		v.IsActive = true
		v.CreatedAt = now
		v.UpdatedAt = now
		refreshPolicies(v.InsurancePolicies, now)

		rec, err := database.RecordFrom(v)
		if err != nil {
			return err
		}
		if _, err := s.store.Add(ctx, database.Vehicles, rec); err != nil {
			return fmt.Errorf("seed %s: %w", v.Name, err)
		}
	}
	s.log.Info().Int("vehicles", len(demo)).Msg("empty garage seeded")
	return nil
}

func (s *VehicleService) loadLocked(ctx context.Context) error {
	records, err := s.store.GetAll(ctx, database.Vehicles, "isActive", database.Only(true))
	if err != nil {
		return fmt.Errorf("load active vehicles: %w", err)
	}

	active := make([]vehicle.Vehicle, 0, len(records))
	for _, rec := range records {
		v, err := decodeVehicle(rec)
		if err != nil {
			return err
		}
		active = append(active, v)
	}
	s.cache = active
	return nil
}

// AddVehicle stores a new active vehicle. It fails with ErrLimitExceeded
// when the active cap is reached, leaving the cache unchanged.
func (s *VehicleService) AddVehicle(ctx context.Context, v vehicle.Vehicle) (vehicle.Vehicle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.cache) >= s.maxActive {
		return vehicle.Vehicle{}, fmt.Errorf("%w: at most %d active vehicles", ErrLimitExceeded, s.maxActive)
	}
	if err := validateVehicle(v); err != nil {
		return vehicle.Vehicle{}, err
	}

	now := s.now().UTC()
	v = v.Normalized()
	v.IsActive = true
	v.CreatedAt = now
	v.UpdatedAt = now
	v.DeletedAt = time.Time{}
	refreshPolicies(v.InsurancePolicies, now)

	rec, err := database.RecordFrom(v)
	if err != nil {
		return vehicle.Vehicle{}, err
	}
	id, err := s.store.Add(ctx, database.Vehicles, rec)
	if err != nil {
		return vehicle.Vehicle{}, fmt.Errorf("add vehicle: %w", err)
	}

	stored, err := s.readLocked(ctx, id)
	if err != nil {
		return vehicle.Vehicle{}, err
	}
	s.cache = append(s.cache, stored)

	s.log.Info().Str("vehicle_id", id).Str("name", stored.Name).Msg("vehicle added")
	return stored.Clone(), nil
}

// UpdateVehicle applies patch to an active vehicle.
func (s *VehicleService) UpdateVehicle(ctx context.Context, id string, patch VehiclePatch) (vehicle.Vehicle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexLocked(id)
	if idx < 0 {
		return vehicle.Vehicle{}, fmt.Errorf("vehicle %s: %w", id, ErrNotFound)
	}

	partial := database.Record{}
	if patch.Name != nil {
		if *patch.Name == "" {
			return vehicle.Vehicle{}, fmt.Errorf("%w: name is required", ErrValidation)
		}
		partial["name"] = *patch.Name
	}
	if patch.Year != nil {
		partial["year"] = *patch.Year
	}
	if patch.Plate != nil {
		partial["plate"] = *patch.Plate
	}
	if patch.VIN != nil {
		partial["vin"] = *patch.VIN
	}
	if patch.Color != nil {
		partial["color"] = *patch.Color
	}
	if patch.CurrentMileage != nil {
		if *patch.CurrentMileage < 0 {
			return vehicle.Vehicle{}, fmt.Errorf("%w: mileage must not be negative", ErrValidation)
		}
		partial["currentMileage"] = *patch.CurrentMileage
	}
	if patch.LastMileageUpdate != nil {
		partial["lastMileageUpdate"] = *patch.LastMileageUpdate
	}
	if patch.Intervals != nil {
		partial["intervals"] = patch.Intervals
	}
	if patch.LastChanges != nil {
		partial["lastChanges"] = patch.LastChanges
	}
	if patch.Insurance != nil {
		policies := patch.Insurance.Normalize()
		refreshPolicies(policies, s.now())
		partial["insurancePolicies"] = policies
		partial["insurance"] = nil
	}

	updated, err := s.updateLocked(ctx, idx, partial)
	if err != nil {
		return vehicle.Vehicle{}, err
	}
	s.log.Info().Str("vehicle_id", id).Msg("vehicle updated")
	return updated, nil
}

// DeleteVehicle soft-deletes a vehicle: the row stays in the store marked
// inactive and the vehicle leaves the active cache.
func (s *VehicleService) DeleteVehicle(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexLocked(id)
	if idx < 0 {
		return fmt.Errorf("vehicle %s: %w", id, ErrNotFound)
	}

	if _, err := s.store.Update(ctx, database.Vehicles, id, database.Record{
		"isActive":  false,
		"deletedAt": s.now().UTC(),
	}); err != nil {
		return fmt.Errorf("delete vehicle %s: %w", id, err)
	}
	s.cache = slices.Delete(s.cache, idx, idx+1)

	s.log.Info().Str("vehicle_id", id).Msg("vehicle deleted")
	return nil
}

// HardDeleteVehicle removes the row from the store.
func (s *VehicleService) HardDeleteVehicle(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existed, err := s.store.Delete(ctx, database.Vehicles, id)
	if err != nil {
		return fmt.Errorf("remove vehicle %s: %w", id, err)
	}
	if !existed {
		return fmt.Errorf("vehicle %s: %w", id, ErrNotFound)
	}
	if idx := s.indexLocked(id); idx >= 0 {
		s.cache = slices.Delete(s.cache, idx, idx+1)
	}

	s.log.Info().Str("vehicle_id", id).Msg("vehicle removed")
	return nil
}

// GetVehicle returns the vehicle with id, reading through to the store for
// vehicles that are not cached. It returns nil when there is none.
func (s *VehicleService) GetVehicle(ctx context.Context, id string) (*vehicle.Vehicle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if idx := s.indexLocked(id); idx >= 0 {
		v := s.cache[idx].Clone()
		return &v, nil
	}

	rec, err := s.store.Get(ctx, database.Vehicles, id)
	if err != nil {
		return nil, fmt.Errorf("get vehicle %s: %w", id, err)
	}
	if rec == nil {
		return nil, nil
	}
	v, err := decodeVehicle(rec)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// ListActiveVehicles returns the active vehicles in store order.
func (s *VehicleService) ListActiveVehicles() []vehicle.Vehicle {
	s.mu.Lock()
	defer s.mu.Unlock()

	return cloneAll(s.cache)
}

// ListAllVehicles returns active and soft-deleted vehicles from the store.
func (s *VehicleService) ListAllVehicles(ctx context.Context) ([]vehicle.Vehicle, error) {
	records, err := s.store.GetAll(ctx, database.Vehicles, "", nil)
	if err != nil {
		return nil, fmt.Errorf("list vehicles: %w", err)
	}

	result := make([]vehicle.Vehicle, 0, len(records))
	for _, rec := range records {
		v, err := decodeVehicle(rec)
		if err != nil {
			return nil, err
		}
		result = append(result, v)
	}
	return result, nil
}

// CanAddMore reports whether another active vehicle fits under the cap.
func (s *VehicleService) CanAddMore() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.cache) < s.maxActive
}

// MaxActive returns the active vehicle cap.
func (s *VehicleService) MaxActive() int {
	return s.maxActive
}

// RecordMaintenance stores change as the last change of component. The
// odometer only moves forward: a change recorded at a higher mileage raises
// currentMileage, a lower one leaves it.
func (s *VehicleService) RecordMaintenance(ctx context.Context, id, component string, change vehicle.LastChange) (vehicle.Vehicle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexLocked(id)
	if idx < 0 {
		return vehicle.Vehicle{}, fmt.Errorf("vehicle %s: %w", id, ErrNotFound)
	}
	current := s.cache[idx]

	if _, ok := current.Intervals[component]; !ok {
		return vehicle.Vehicle{}, fmt.Errorf("%w: vehicle %s does not track %q", ErrValidation, id, component)
	}
	if change.Mileage < 0 {
		return vehicle.Vehicle{}, fmt.Errorf("%w: mileage must not be negative", ErrValidation)
	}
	if change.Date.IsZero() {
		change.Date = vehicle.DateOf(s.now())
	}

	changes := maps.Clone(current.LastChanges)
	if changes == nil {
		changes = map[string]vehicle.LastChange{}
	}
	changes[component] = change

	partial := database.Record{"lastChanges": changes}
	if change.Mileage > current.CurrentMileage {
		partial["currentMileage"] = change.Mileage
		partial["lastMileageUpdate"] = change.Date
	}

	updated, err := s.updateLocked(ctx, idx, partial)
	if err != nil {
		return vehicle.Vehicle{}, err
	}
	s.log.Info().Str("vehicle_id", id).Str("component", component).Int("mileage", change.Mileage).Msg("maintenance recorded")
	return updated, nil
}

// UpdateMileage sets the odometer reading. Lower readings are rejected.
func (s *VehicleService) UpdateMileage(ctx context.Context, id string, mileage int) (vehicle.Vehicle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexLocked(id)
	if idx < 0 {
		return vehicle.Vehicle{}, fmt.Errorf("vehicle %s: %w", id, ErrNotFound)
	}
	if mileage < s.cache[idx].CurrentMileage {
		return vehicle.Vehicle{}, fmt.Errorf("%w: mileage %d is below current %d", ErrValidation, mileage, s.cache[idx].CurrentMileage)
	}

	return s.updateLocked(ctx, idx, database.Record{
		"currentMileage":    mileage,
		"lastMileageUpdate": vehicle.DateOf(s.now()),
	})
}

// GetActivePolicy returns the first policy of the vehicle that has not
// expired, or nil when there is none.
func (s *VehicleService) GetActivePolicy(ctx context.Context, vehicleID string) (*vehicle.Policy, error) {
	v, err := s.GetVehicle(ctx, vehicleID)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, fmt.Errorf("vehicle %s: %w", vehicleID, ErrNotFound)
	}

	p, ok := v.ActivePolicy(s.now())
	if !ok {
		return nil, nil
	}
	return &p, nil
}

// AddInsurancePolicy appends a policy to the vehicle. The policy gets a
// millisecond id unique within the vehicle.
func (s *VehicleService) AddInsurancePolicy(ctx context.Context, vehicleID string, p vehicle.Policy) (vehicle.Policy, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexLocked(vehicleID)
	if idx < 0 {
		return vehicle.Policy{}, fmt.Errorf("vehicle %s: %w", vehicleID, ErrNotFound)
	}
	if p.Number == "" {
		return vehicle.Policy{}, fmt.Errorf("%w: policy number is required", ErrValidation)
	}

	now := s.now()
	policies := slices.Clone(s.cache[idx].InsurancePolicies)

	p.ID = now.UnixMilli()
	for slices.ContainsFunc(policies, func(existing vehicle.Policy) bool { return existing.ID == p.ID }) {
		p.ID++
	}
	if p.Type == "" {
		p.Type = vehicle.Compulsory
	}
	if p.StartDate.IsZero() {
		p.StartDate = vehicle.DateOf(now)
	}
	p.IsActive = p.IsActiveAt(now)
	policies = append(policies, p)

	if _, err := s.updateLocked(ctx, idx, database.Record{
		"insurancePolicies": policies,
		"insurance":         nil,
	}); err != nil {
		return vehicle.Policy{}, err
	}

	s.log.Info().Str("vehicle_id", vehicleID).Int64("policy_id", p.ID).Msg("policy added")
	return p, nil
}

// UpdateInsurancePolicy changes the policy addressed by ref, an id or, for
// legacy policies, a number.
func (s *VehicleService) UpdateInsurancePolicy(ctx context.Context, vehicleID, ref string, patch PolicyPatch) (vehicle.Policy, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexLocked(vehicleID)
	if idx < 0 {
		return vehicle.Policy{}, fmt.Errorf("vehicle %s: %w", vehicleID, ErrNotFound)
	}
	policies := slices.Clone(s.cache[idx].InsurancePolicies)
	pos := vehicle.FindPolicy(policies, ref)
	if pos < 0 {
		return vehicle.Policy{}, fmt.Errorf("policy %s: %w", ref, ErrNotFound)
	}

	p := policies[pos]
	if patch.Number != nil {
		if *patch.Number == "" {
			return vehicle.Policy{}, fmt.Errorf("%w: policy number is required", ErrValidation)
		}
		p.Number = *patch.Number
	}
	if patch.Company != nil {
		p.Company = *patch.Company
	}
	if patch.Type != nil {
		p.Type = *patch.Type
	}
	if patch.StartDate != nil {
		p.StartDate = *patch.StartDate
	}
	if patch.EndDate != nil {
		p.EndDate = *patch.EndDate
		p.IsActive = p.IsActiveAt(s.now())
	}
	if patch.Cost != nil {
		cost := *patch.Cost
		p.Cost = &cost
	}
	policies[pos] = p

	if _, err := s.updateLocked(ctx, idx, database.Record{
		"insurancePolicies": policies,
		"insurance":         nil,
	}); err != nil {
		return vehicle.Policy{}, err
	}
	return p, nil
}

// DeleteInsurancePolicy removes the policy addressed by ref.
func (s *VehicleService) DeleteInsurancePolicy(ctx context.Context, vehicleID, ref string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexLocked(vehicleID)
	if idx < 0 {
		return fmt.Errorf("vehicle %s: %w", vehicleID, ErrNotFound)
	}
	policies := slices.Clone(s.cache[idx].InsurancePolicies)
	pos := vehicle.FindPolicy(policies, ref)
	if pos < 0 {
		return fmt.Errorf("policy %s: %w", ref, ErrNotFound)
	}
	policies = slices.Delete(policies, pos, pos+1)

	_, err := s.updateLocked(ctx, idx, database.Record{
		"insurancePolicies": policies,
		"insurance":         nil,
	})
	return err
}

// Replace makes vehicles the stored garage: incoming rows are written as
// they are and active vehicles missing from the set are soft-deleted. It
// returns the number of vehicles written.
func (s *VehicleService) Replace(ctx context.Context, vehicles []vehicle.Vehicle) (n int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	incoming := make(map[string]bool, len(vehicles))
	active := 0
	for _, v := range vehicles {
		if v.ID != "" {
			incoming[v.ID] = true
		}
		if v.IsActive {
			active++
		}
	}
	if active > s.maxActive {
		return 0, fmt.Errorf("%w: backup holds %d active vehicles, limit is %d", ErrLimitExceeded, active, s.maxActive)
	}

	// A failed write leaves the store partly replaced; the cache follows it.
	defer func() {
		if err != nil {
			if loadErr := s.loadLocked(ctx); loadErr != nil {
				err = errors.Join(err, fmt.Errorf("reload vehicles: %w", loadErr))
			}
		}
	}()

	now := s.now().UTC()
	for _, current := range s.cache {
		if incoming[current.ID] {
			continue
		}
		if _, err := s.store.Update(ctx, database.Vehicles, current.ID, database.Record{
			"isActive":  false,
			"deletedAt": now,
		}); err != nil {
			return 0, fmt.Errorf("retire vehicle %s: %w", current.ID, err)
		}
	}

	for _, v := range vehicles {
		v = v.Normalized()
		if v.CreatedAt.IsZero() {
			v.CreatedAt = now
		}
		if v.UpdatedAt.IsZero() {
			v.UpdatedAt = now
		}
		rec, err := database.RecordFrom(v)
		if err != nil {
			return 0, err
		}
		if _, err := s.store.Put(ctx, database.Vehicles, rec); err != nil {
			return 0, fmt.Errorf("import vehicle %s: %w", v.ID, err)
		}
	}

	if err := s.loadLocked(ctx); err != nil {
		return 0, err
	}
	s.log.Info().Int("vehicles", len(vehicles)).Msg("garage replaced")
	return len(vehicles), nil
}

func (s *VehicleService) updateLocked(ctx context.Context, idx int, partial database.Record) (vehicle.Vehicle, error) {
	id := s.cache[idx].ID
	if _, err := s.store.Update(ctx, database.Vehicles, id, partial); err != nil {
		return vehicle.Vehicle{}, fmt.Errorf("update vehicle %s: %w", id, err)
	}

	stored, err := s.readLocked(ctx, id)
	if err != nil {
		return vehicle.Vehicle{}, err
	}
	s.cache[idx] = stored
	return stored.Clone(), nil
}

func (s *VehicleService) readLocked(ctx context.Context, id string) (vehicle.Vehicle, error) {
	rec, err := s.store.Get(ctx, database.Vehicles, id)
	if err != nil {
		return vehicle.Vehicle{}, fmt.Errorf("read vehicle %s: %w", id, err)
	}
	if rec == nil {
		return vehicle.Vehicle{}, fmt.Errorf("vehicle %s: %w", id, ErrNotFound)
	}
	return decodeVehicle(rec)
}

func (s *VehicleService) indexLocked(id string) int {
	return slices.IndexFunc(s.cache, func(v vehicle.Vehicle) bool { return v.ID == id })
}

func decodeVehicle(rec database.Record) (vehicle.Vehicle, error) {
	var v vehicle.Vehicle
	if err := rec.Decode(&v); err != nil {
		return vehicle.Vehicle{}, fmt.Errorf("vehicle %s: %w", rec.ID(), err)
	}
	v.ID = rec.ID()
	return v, nil
}

func validateVehicle(v vehicle.Vehicle) error {
	if v.Name == "" {
		return fmt.Errorf("%w: name is required", ErrValidation)
	}
	if v.CurrentMileage < 0 {
		return fmt.Errorf("%w: mileage must not be negative", ErrValidation)
	}
	return nil
}

func refreshPolicies(policies []vehicle.Policy, now time.Time) {
	for i := range policies {
		policies[i].IsActive = policies[i].IsActiveAt(now)
	}
}

func cloneAll(vehicles []vehicle.Vehicle) []vehicle.Vehicle {
	out := make([]vehicle.Vehicle, 0, len(vehicles))
	for _, v := range vehicles {
		out = append(out, v.Clone())
	}
	return out
}

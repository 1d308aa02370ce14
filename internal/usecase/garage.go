package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/cartracker/cartracker/internal/backup"
	"github.com/cartracker/cartracker/internal/catalog"
	"github.com/cartracker/cartracker/internal/filesystem"
	"github.com/cartracker/cartracker/internal/services"
	"github.com/cartracker/cartracker/internal/settings"
	"github.com/cartracker/cartracker/internal/status"
	"github.com/cartracker/cartracker/internal/vehicle"
)

// KeyQuickBackup is the app storage key holding the quick snapshot.
const KeyQuickBackup = "quickBackup"

// ErrNoSnapshot is returned when no quick snapshot has been taken.
var ErrNoSnapshot = errors.New("no quick backup found")

// Garage combines the vehicle service, the status engine and the backup
// codec into the operations the CLI and the MCP server expose.
type Garage struct {
	vehicles *services.VehicleService
	settings *settings.Store
	log      zerolog.Logger
}

func NewGarage(vehicles *services.VehicleService, store *settings.Store, log zerolog.Logger) *Garage {
	return &Garage{
		vehicles: vehicles,
		settings: store,
		log:      log,
	}
}

// Vehicles returns the underlying vehicle service.
func (g *Garage) Vehicles() *services.VehicleService {
	return g.vehicles
}

// Settings returns the underlying settings store.
func (g *Garage) Settings() *settings.Store {
	return g.settings
}

// ComponentView is one maintenance item ready for display.
type ComponentView struct {
	Key              string              `json:"key"`
	Name             string              `json:"name"`
	Status           status.Status       `json:"status"`
	Interval         vehicle.Interval    `json:"interval"`
	LastChange       *vehicle.LastChange `json:"lastChange,omitempty"`
	NextDueMileage   int                 `json:"nextDueMileage,omitempty"`
	MileageRemaining int                 `json:"mileageRemaining,omitempty"`
	NextDueDate      vehicle.Date        `json:"nextDueDate,omitzero"`
	DaysRemaining    *int                `json:"daysRemaining,omitempty"`
	Progress         float64             `json:"progress"`
}

// InsuranceView summarises the insurance state of a vehicle.
type InsuranceView struct {
	Status          status.InsuranceStatus `json:"status"`
	Active          *vehicle.Policy        `json:"active,omitempty"`
	DaysUntilExpiry *int                   `json:"daysUntilExpiry,omitempty"`
}

// VehicleView is a vehicle together with its evaluated status.
type VehicleView struct {
	Vehicle    vehicle.Vehicle `json:"vehicle"`
	Status     status.Status   `json:"status"`
	Critical   []string        `json:"critical"`
	Insurance  InsuranceView   `json:"insurance"`
	Components []ComponentView `json:"components"`
}

// NewVehicleView evaluates v at now.
func NewVehicleView(v vehicle.Vehicle, now time.Time) VehicleView {
	summary := status.Evaluate(v, now)
	view := VehicleView{
		Vehicle:  v,
		Status:   summary.Maintenance,
		Critical: summary.Critical,
		Insurance: InsuranceView{
			Status:          summary.Insurance.Status,
			Active:          summary.Insurance.Active,
			DaysUntilExpiry: summary.Insurance.DaysUntilExpiry,
		},
		Components: make([]ComponentView, 0, len(summary.Components)),
	}
	if view.Critical == nil {
		view.Critical = []string{}
	}
	for _, c := range summary.Components {
		view.Components = append(view.Components, ComponentView{
			Key:              c.Key,
			Name:             catalog.ComponentName(c.Key),
			Status:           c.Status,
			Interval:         c.Interval,
			LastChange:       c.LastChange,
			NextDueMileage:   c.NextDueMileage,
			MileageRemaining: c.MileageRemaining,
			NextDueDate:      c.NextDueDate,
			DaysRemaining:    c.DaysRemaining,
			Progress:         c.Progress,
		})
	}
	return view
}

// Overview evaluates every active vehicle in store order.
func (g *Garage) Overview(now time.Time) []VehicleView {
	active := g.vehicles.ListActiveVehicles()
	views := make([]VehicleView, 0, len(active))
	for _, v := range active {
		views = append(views, NewVehicleView(v, now))
	}
	return views
}

// Detail evaluates a single vehicle, active or not.
func (g *Garage) Detail(ctx context.Context, id string, now time.Time) (VehicleView, error) {
	v, err := g.vehicles.GetVehicle(ctx, id)
	if err != nil {
		return VehicleView{}, err
	}
	if v == nil {
		return VehicleView{}, fmt.Errorf("vehicle %s: %w", id, services.ErrNotFound)
	}
	return NewVehicleView(*v, now), nil
}

// CreateFromTemplate adds a vehicle built from a catalog template.
func (g *Garage) CreateFromTemplate(ctx context.Context, key string, o catalog.Overrides) (vehicle.Vehicle, error) {
	v, err := catalog.Instantiate(key, o)
	if err != nil {
		return vehicle.Vehicle{}, err
	}
	return g.vehicles.AddVehicle(ctx, v)
}

// Export builds a backup document of every stored vehicle and the current
// settings, and records the export in the backup info.
func (g *Garage) Export(ctx context.Context, now time.Time) (backup.Document, error) {
	vehicles, err := g.vehicles.ListAllVehicles(ctx)
	if err != nil {
		return backup.Document{}, err
	}
	raw, err := g.settings.RawSettings(ctx)
	if err != nil {
		return backup.Document{}, err
	}

	doc, err := backup.Serialize(vehicles, raw, now)
	if err != nil {
		return backup.Document{}, err
	}

	info, err := g.settings.BackupInfo(ctx)
	if err != nil {
		return backup.Document{}, err
	}
	at := now.UTC()
	info.LastBackup = &at
	info.BackupCount++
	if err := g.settings.SetBackupInfo(ctx, info); err != nil {
		return backup.Document{}, err
	}

	g.log.Info().Int("vehicles", len(vehicles)).Msg("garage exported")
	return doc, nil
}

// ExportFile exports the garage into the backups directory and returns the
// path and hash of the written file.
func (g *Garage) ExportFile(ctx context.Context, now time.Time) (string, string, error) {
	doc, err := g.Export(ctx, now)
	if err != nil {
		return "", "", err
	}
	data, err := backup.Marshal(doc)
	if err != nil {
		return "", "", err
	}
	return filesystem.SaveBackup(backup.FileName(now), data)
}

// Import replaces the garage with the document's vehicles and restores its
// settings. It returns the number of vehicles imported.
func (g *Garage) Import(ctx context.Context, doc backup.Document) (int, error) {
	vehicles, err := doc.DecodeVehicles()
	if err != nil {
		return 0, err
	}

	count, err := g.vehicles.Replace(ctx, vehicles)
	if err != nil {
		return 0, err
	}

	if len(doc.Settings) > 0 {
		if err := g.settings.SaveRawSettings(ctx, doc.Settings); err != nil {
			return count, err
		}
	}

	g.log.Info().Int("vehicles", count).Msg("garage imported")
	return count, nil
}

// ImportFile reads a backup file and imports it.
func (g *Garage) ImportFile(ctx context.Context, path string) (int, error) {
	data, err := filesystem.ReadFile(path)
	if err != nil {
		return 0, err
	}
	doc, err := backup.Parse(data)
	if err != nil {
		return 0, err
	}
	return g.Import(ctx, doc)
}

// SnapshotInfo describes the stored quick snapshot.
type SnapshotInfo struct {
	TakenAt  time.Time `json:"takenAt"`
	Vehicles int       `json:"vehicles"`
}

// QuickBackup stores a snapshot of the stored vehicles in app storage,
// replacing the previous one.
func (g *Garage) QuickBackup(ctx context.Context, now time.Time) (SnapshotInfo, error) {
	vehicles, err := g.vehicles.ListAllVehicles(ctx)
	if err != nil {
		return SnapshotInfo{}, err
	}
	doc, err := backup.Serialize(vehicles, nil, now)
	if err != nil {
		return SnapshotInfo{}, err
	}
	if err := g.settings.Set(ctx, KeyQuickBackup, doc); err != nil {
		return SnapshotInfo{}, err
	}

	g.log.Info().Int("vehicles", len(vehicles)).Msg("quick backup taken")
	return SnapshotInfo{TakenAt: doc.ExportedAt, Vehicles: len(doc.Vehicles)}, nil
}

// QuickBackupInfo returns the stored snapshot's description, or nil when
// none was taken.
func (g *Garage) QuickBackupInfo(ctx context.Context) (*SnapshotInfo, error) {
	doc, ok, err := g.quickBackup(ctx)
	if err != nil || !ok {
		return nil, err
	}
	return &SnapshotInfo{TakenAt: doc.ExportedAt, Vehicles: len(doc.Vehicles)}, nil
}

// RestoreQuickBackup replaces the garage with the stored snapshot.
func (g *Garage) RestoreQuickBackup(ctx context.Context) (int, error) {
	doc, ok, err := g.quickBackup(ctx)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, ErrNoSnapshot
	}
	return g.Import(ctx, doc)
}

func (g *Garage) quickBackup(ctx context.Context) (backup.Document, bool, error) {
	var raw json.RawMessage
	ok, err := g.settings.Get(ctx, KeyQuickBackup, &raw)
	if err != nil || !ok {
		return backup.Document{}, false, err
	}
	doc, err := backup.Parse(raw)
	if err != nil {
		return backup.Document{}, true, err
	}
	return doc, true, nil
}

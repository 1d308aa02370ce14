package mcp

import (
	"context"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog"

	"github.com/cartracker/cartracker/internal/catalog"
	"github.com/cartracker/cartracker/internal/usecase"
	"github.com/cartracker/cartracker/internal/vehicle"
)

// Server exposes the garage as MCP tools.
type Server struct {
	server *mcp.Server
	garage *usecase.Garage
	now    func() time.Time
	log    zerolog.Logger
}

// Option customises a Server.
type Option func(*Server)

func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		if now != nil {
			s.now = now
		}
	}
}

func WithLogger(log zerolog.Logger) Option {
	return func(s *Server) {
		s.log = log
	}
}

// NewServer creates a new MCP server instance
func NewServer(garage *usecase.Garage, version string, opts ...Option) *Server {
	mcpServer := mcp.NewServer(&mcp.Implementation{
		Name:    "cartracker",
		Version: version,
	}, nil)

	s := &Server{
		server: mcpServer,
		garage: garage,
		now:    time.Now,
		log:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.registerTools()
	return s
}

// Run serves requests over stdio until ctx is done or the client disconnects.
func (s *Server) Run(ctx context.Context) error {
	s.log.Info().Msg("mcp server started")
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "garage_list",
		Description: "List the vehicles in the garage with their maintenance and insurance status",
	}, s.handleList)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "garage_status",
		Description: "Show the status of every maintenance component and the active insurance policy of a vehicle",
	}, s.handleStatus)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "garage_record_service",
		Description: "Record that a maintenance component of a vehicle was replaced",
	}, s.handleRecordService)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "garage_update_mileage",
		Description: "Set the odometer reading of a vehicle",
	}, s.handleUpdateMileage)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "garage_add_policy",
		Description: "Add an insurance policy to a vehicle",
	}, s.handleAddPolicy)
}

// Input/Output types for each tool

type ListInput struct {
	IncludeInactive bool `json:"includeInactive,omitempty" jsonschema:"Include soft-deleted vehicles"`
}

type VehicleSummary struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	Plate           string   `json:"plate"`
	Mileage         int      `json:"mileage"`
	Active          bool     `json:"active"`
	Status          string   `json:"status"`
	InsuranceStatus string   `json:"insuranceStatus"`
	Critical        []string `json:"critical"`
}

type ListOutput struct {
	Vehicles  []VehicleSummary `json:"vehicles"`
	MaxActive int              `json:"maxActive"`
}

type StatusInput struct {
	Vehicle string `json:"vehicle" jsonschema:"Vehicle id, plate or name"`
}

type ComponentStatus struct {
	Key              string  `json:"key"`
	Name             string  `json:"name"`
	Status           string  `json:"status"`
	LastChangeDate   string  `json:"lastChangeDate,omitempty"`
	LastChangeKm     *int    `json:"lastChangeMileage,omitempty"`
	NextDueMileage   int     `json:"nextDueMileage,omitempty"`
	MileageRemaining int     `json:"mileageRemaining,omitempty"`
	NextDueDate      string  `json:"nextDueDate,omitempty"`
	DaysRemaining    *int    `json:"daysRemaining,omitempty"`
	Progress         float64 `json:"progress"`
}

type PolicyInfo struct {
	Ref       string   `json:"ref"`
	Number    string   `json:"number"`
	Company   string   `json:"company"`
	Type      string   `json:"type"`
	StartDate string   `json:"startDate,omitempty"`
	EndDate   string   `json:"endDate,omitempty"`
	Cost      *float64 `json:"cost,omitempty"`
}

type StatusOutput struct {
	Vehicle         VehicleSummary    `json:"vehicle"`
	Components      []ComponentStatus `json:"components"`
	ActivePolicy    *PolicyInfo       `json:"activePolicy,omitempty"`
	DaysUntilExpiry *int              `json:"daysUntilExpiry,omitempty"`
}

type RecordServiceInput struct {
	Vehicle   string `json:"vehicle" jsonschema:"Vehicle id, plate or name"`
	Component string `json:"component" jsonschema:"Component key, e.g. engineOil"`
	Mileage   int    `json:"mileage" jsonschema:"Odometer reading at the change"`
	Date      string `json:"date,omitempty" jsonschema:"Date of the change as YYYY-MM-DD (today if omitted)"`
	Material  string `json:"material,omitempty" jsonschema:"Part or fluid used"`
	Notes     string `json:"notes,omitempty" jsonschema:"Free-form notes"`
}

type RecordServiceOutput struct {
	Message   string          `json:"message"`
	Component ComponentStatus `json:"component"`
}

type UpdateMileageInput struct {
	Vehicle string `json:"vehicle" jsonschema:"Vehicle id, plate or name"`
	Mileage int    `json:"mileage" jsonschema:"New odometer reading, not below the current one"`
}

type UpdateMileageOutput struct {
	Message string         `json:"message"`
	Vehicle VehicleSummary `json:"vehicle"`
}

type AddPolicyInput struct {
	Vehicle   string   `json:"vehicle" jsonschema:"Vehicle id, plate or name"`
	Number    string   `json:"number" jsonschema:"Policy number"`
	Company   string   `json:"company,omitempty" jsonschema:"Insurance company"`
	Type      string   `json:"type,omitempty" jsonschema:"compulsory or comprehensive (compulsory if omitted)"`
	StartDate string   `json:"startDate,omitempty" jsonschema:"Start date as YYYY-MM-DD (today if omitted)"`
	EndDate   string   `json:"endDate" jsonschema:"End date as YYYY-MM-DD"`
	Cost      *float64 `json:"cost,omitempty" jsonschema:"Premium paid"`
}

type AddPolicyOutput struct {
	Message string     `json:"message"`
	Policy  PolicyInfo `json:"policy"`
}

// Tool handlers

func (s *Server) handleList(ctx context.Context, req *mcp.CallToolRequest, input ListInput) (*mcp.CallToolResult, ListOutput, error) {
	now := s.now()
	vehicles := s.garage.Vehicles().ListActiveVehicles()
	if input.IncludeInactive {
		all, err := s.garage.Vehicles().ListAllVehicles(ctx)
		if err != nil {
			return nil, ListOutput{}, fmt.Errorf("failed to list vehicles: %w", err)
		}
		vehicles = all
	}

	out := ListOutput{
		Vehicles:  make([]VehicleSummary, 0, len(vehicles)),
		MaxActive: s.garage.Vehicles().MaxActive(),
	}
	for _, v := range vehicles {
		out.Vehicles = append(out.Vehicles, summarize(usecase.NewVehicleView(v, now)))
	}
	return nil, out, nil
}

func (s *Server) handleStatus(ctx context.Context, req *mcp.CallToolRequest, input StatusInput) (*mcp.CallToolResult, StatusOutput, error) {
	all, err := s.garage.Vehicles().ListAllVehicles(ctx)
	if err != nil {
		return nil, StatusOutput{}, fmt.Errorf("failed to list vehicles: %w", err)
	}
	v, err := usecase.ResolveVehicle(all, input.Vehicle)
	if err != nil {
		return nil, StatusOutput{}, err
	}

	view := usecase.NewVehicleView(v, s.now())
	out := StatusOutput{
		Vehicle:         summarize(view),
		Components:      make([]ComponentStatus, 0, len(view.Components)),
		DaysUntilExpiry: view.Insurance.DaysUntilExpiry,
	}
	for _, c := range view.Components {
		out.Components = append(out.Components, componentStatus(c))
	}
	if view.Insurance.Active != nil {
		p := policyInfo(*view.Insurance.Active)
		out.ActivePolicy = &p
	}
	return nil, out, nil
}

func (s *Server) handleRecordService(ctx context.Context, req *mcp.CallToolRequest, input RecordServiceInput) (*mcp.CallToolResult, RecordServiceOutput, error) {
	v, err := usecase.ResolveVehicle(s.garage.Vehicles().ListActiveVehicles(), input.Vehicle)
	if err != nil {
		return nil, RecordServiceOutput{}, err
	}
	date, err := vehicle.ParseDate(input.Date)
	if err != nil {
		return nil, RecordServiceOutput{}, fmt.Errorf("invalid date: %w", err)
	}

	updated, err := s.garage.Vehicles().RecordMaintenance(ctx, v.ID, input.Component, vehicle.LastChange{
		Date:     date,
		Mileage:  input.Mileage,
		Material: input.Material,
		Notes:    input.Notes,
	})
	if err != nil {
		return nil, RecordServiceOutput{}, fmt.Errorf("failed to record service: %w", err)
	}

	out := RecordServiceOutput{
		Message: fmt.Sprintf("Recorded %s for %s at %d km", catalog.ComponentName(input.Component), updated.Name, input.Mileage),
	}
	for _, c := range usecase.NewVehicleView(updated, s.now()).Components {
		if c.Key == input.Component {
			out.Component = componentStatus(c)
		}
	}
	return nil, out, nil
}

func (s *Server) handleUpdateMileage(ctx context.Context, req *mcp.CallToolRequest, input UpdateMileageInput) (*mcp.CallToolResult, UpdateMileageOutput, error) {
	v, err := usecase.ResolveVehicle(s.garage.Vehicles().ListActiveVehicles(), input.Vehicle)
	if err != nil {
		return nil, UpdateMileageOutput{}, err
	}

	updated, err := s.garage.Vehicles().UpdateMileage(ctx, v.ID, input.Mileage)
	if err != nil {
		return nil, UpdateMileageOutput{}, fmt.Errorf("failed to update mileage: %w", err)
	}

	return nil, UpdateMileageOutput{
		Message: fmt.Sprintf("Mileage of %s set to %d km", updated.Name, updated.CurrentMileage),
		Vehicle: summarize(usecase.NewVehicleView(updated, s.now())),
	}, nil
}

func (s *Server) handleAddPolicy(ctx context.Context, req *mcp.CallToolRequest, input AddPolicyInput) (*mcp.CallToolResult, AddPolicyOutput, error) {
	v, err := usecase.ResolveVehicle(s.garage.Vehicles().ListActiveVehicles(), input.Vehicle)
	if err != nil {
		return nil, AddPolicyOutput{}, err
	}

	kind, err := vehicle.ParsePolicyType(input.Type)
	if err != nil {
		return nil, AddPolicyOutput{}, err
	}
	start, err := vehicle.ParseDate(input.StartDate)
	if err != nil {
		return nil, AddPolicyOutput{}, fmt.Errorf("invalid start date: %w", err)
	}
	end, err := vehicle.ParseDate(input.EndDate)
	if err != nil {
		return nil, AddPolicyOutput{}, fmt.Errorf("invalid end date: %w", err)
	}

	p, err := s.garage.Vehicles().AddInsurancePolicy(ctx, v.ID, vehicle.Policy{
		Number:    input.Number,
		Company:   input.Company,
		Type:      kind,
		StartDate: start,
		EndDate:   end,
		Cost:      input.Cost,
	})
	if err != nil {
		return nil, AddPolicyOutput{}, fmt.Errorf("failed to add policy: %w", err)
	}

	return nil, AddPolicyOutput{
		Message: fmt.Sprintf("Added policy %s to %s", p.Number, v.Name),
		Policy:  policyInfo(p),
	}, nil
}

func summarize(view usecase.VehicleView) VehicleSummary {
	return VehicleSummary{
		ID:              view.Vehicle.ID,
		Name:            view.Vehicle.Name,
		Plate:           view.Vehicle.Plate,
		Mileage:         view.Vehicle.CurrentMileage,
		Active:          view.Vehicle.IsActive,
		Status:          string(view.Status),
		InsuranceStatus: string(view.Insurance.Status),
		Critical:        view.Critical,
	}
}

func componentStatus(c usecase.ComponentView) ComponentStatus {
	out := ComponentStatus{
		Key:              c.Key,
		Name:             c.Name,
		Status:           string(c.Status),
		NextDueMileage:   c.NextDueMileage,
		MileageRemaining: c.MileageRemaining,
		DaysRemaining:    c.DaysRemaining,
		Progress:         c.Progress,
	}
	if c.LastChange != nil {
		out.LastChangeDate = c.LastChange.Date.String()
		km := c.LastChange.Mileage
		out.LastChangeKm = &km
	}
	if !c.NextDueDate.IsZero() {
		out.NextDueDate = c.NextDueDate.String()
	}
	return out
}

func policyInfo(p vehicle.Policy) PolicyInfo {
	return PolicyInfo{
		Ref:       p.Ref(),
		Number:    p.Number,
		Company:   p.Company,
		Type:      string(p.Type),
		StartDate: p.StartDate.String(),
		EndDate:   p.EndDate.String(),
		Cost:      p.Cost,
	}
}

package service

import (
	"context"
	"io"

	"controlling_resistances/internal/logger"
	"controlling_resistances/internal/models"
	"controlling_resistances/internal/repository"
	"controlling_resistances/internal/thermal"
)

// Authorization manages operator accounts and bearer tokens.
type Authorization interface {
	SignUp(ctx context.Context, username, password string) (models.Operator, error)
	GenerateToken(ctx context.Context, username, password string) (string, error)
	ParseToken(accessToken string) (Identity, error)
	SetRole(ctx context.Context, id int, role string) error
}

// Control runs the heater schedule in real time.
type Control interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Status() ControlStatus
	Done() <-chan struct{}
}

// Monitoring exposes the persisted per-heater state.
type Monitoring interface {
	Heaters(ctx context.Context) ([]models.HeaterState, error)
	Heater(ctx context.Context, id int) (models.HeaterState, error)
}

// EventLog exposes append-only logs with filtering access.
type EventLog interface {
	List(ctx context.Context, f LogFilter) ([]models.HeaterEvent, error)
}

// Estimation fits heater parameters and replays schedules offline.
type Estimation interface {
	EstimateAll(ctx context.Context, ambient float64, series []thermal.Series) []models.HeaterEstimate
	Simulate(p SimulateParams) (thermal.Trajectory, error)
	WriteReconstruction(w io.Writer, series []thermal.Series, estimates []models.HeaterEstimate) error
}

// Service aggregates all sub-services.
type Service struct {
	Control
	Monitoring
	EventLog
	Estimation
	Authorization
}

// Options carries everything the services need besides the repositories.
type Options struct {
	Control    ControlOptions
	ControlDep ControlDeps
	Fit        thermal.FitConfig
	Auth       AuthOptions
}

func NewService(repos *repository.Repository, opts Options, log *logger.Logger) *Service {
	return &Service{
		Control:       NewControlService(repos.StateRepo, repos.EventRepo, opts.ControlDep, opts.Control, log),
		Monitoring:    NewMonitoringService(repos.StateRepo),
		EventLog:      NewEventLogService(repos.EventRepo),
		Estimation:    NewEstimationService(opts.Fit, repos.EventRepo, log),
		Authorization: NewAuthService(repos.Accounts, opts.Auth),
	}
}

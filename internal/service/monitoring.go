package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"controlling_resistances/internal/models"
	"controlling_resistances/internal/repository"
)

// ErrHeaterNotFound is returned for a heater that has never been driven.
var ErrHeaterNotFound = errors.New("heater not found")

type MonitoringService struct {
	stateRepo repository.StateRepo
}

func NewMonitoringService(stateRepo repository.StateRepo) *MonitoringService {
	return &MonitoringService{stateRepo: stateRepo}
}

// Heaters returns the latest persisted state of every heater.
func (s *MonitoringService) Heaters(ctx context.Context) ([]models.HeaterState, error) {
	states, err := s.stateRepo.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range states {
		states[i].UpdatedAt = toUTC(states[i].UpdatedAt)
	}
	return states, nil
}

// Heater returns one heater's state.
func (s *MonitoringService) Heater(ctx context.Context, id int) (models.HeaterState, error) {
	state, err := s.stateRepo.Load(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return models.HeaterState{}, fmt.Errorf("%w: %d", ErrHeaterNotFound, id)
		}
		return models.HeaterState{}, err
	}
	state.UpdatedAt = toUTC(state.UpdatedAt)
	return state, nil
}

// toUTC normalizes non-zero time to UTC, preserving zero values.
func toUTC(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return t.UTC()
}

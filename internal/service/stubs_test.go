package service

import (
	"context"
	"sort"
	"sync"

	"controlling_resistances/internal/models"
	"controlling_resistances/internal/repository"
)

// memStateRepo is an in-memory repository.StateRepo.
type memStateRepo struct {
	mu       sync.Mutex
	rows     map[int]models.HeaterState
	saveAlls int
	err      error
}

func newMemStateRepo() *memStateRepo {
	return &memStateRepo{rows: map[int]models.HeaterState{}}
}

func (m *memStateRepo) Save(_ context.Context, s models.HeaterState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.rows[s.Heater] = s
	return nil
}

func (m *memStateRepo) SaveAll(_ context.Context, states []models.HeaterState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveAlls++
	if m.err != nil {
		return m.err
	}
	for _, s := range states {
		m.rows[s.Heater] = s
	}
	return nil
}

func (m *memStateRepo) Load(_ context.Context, heater int) (models.HeaterState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return models.HeaterState{}, m.err
	}
	s, ok := m.rows[heater]
	if !ok {
		return models.HeaterState{}, repository.ErrNotFound
	}
	return s, nil
}

func (m *memStateRepo) List(_ context.Context) ([]models.HeaterState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	out := make([]models.HeaterState, 0, len(m.rows))
	for _, s := range m.rows {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Heater < out[j].Heater })
	return out, nil
}

// memEventRepo records appended events; safe for the dispatcher workers.
type memEventRepo struct {
	mu        sync.Mutex
	events    []models.HeaterEvent
	appendErr error
}

func (m *memEventRepo) Append(_ context.Context, e models.HeaterEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, e)
	return m.appendErr
}

func (m *memEventRepo) List(_ context.Context, _ repository.EventQuery) ([]models.HeaterEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.HeaterEvent(nil), m.events...), nil
}

func (m *memEventRepo) ofType(typ string) []models.HeaterEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.HeaterEvent
	for _, e := range m.events {
		if e.Type == typ {
			out = append(out, e)
		}
	}
	return out
}

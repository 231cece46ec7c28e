package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"controlling_resistances/internal/models"
	"controlling_resistances/internal/repository"
)

// MaxLogLimit caps LogFilter.Limit.
const MaxLogLimit = 1000

var (
	errInvalidTimeRange = errors.New("invalid time range: From must be <= To")
	errInvalidHeater    = errors.New("invalid heater: must be >= 0")
	errInvalidLimit     = errors.New("invalid limit: must be between 0 and 1000")
)

type EventLogService struct {
	eventRepo repository.EventRepo
}

func NewEventLogService(eventRepo repository.EventRepo) *EventLogService {
	return &EventLogService{eventRepo: eventRepo}
}

// normalizeToUTC returns t in UTC, preserving zero time values.
func normalizeToUTC(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return t.UTC()
}

func normalizeEventType(s string) string {
	return strings.TrimSpace(strings.ToUpper(s))
}

// toEventQuery validates f and converts it to the repository query.
func toEventQuery(f LogFilter) (repository.EventQuery, error) {
	q := repository.EventQuery{
		From:   normalizeToUTC(f.From),
		To:     normalizeToUTC(f.To),
		Type:   normalizeEventType(f.Type),
		Heater: f.Heater,
		Limit:  f.Limit,
	}
	switch {
	case !q.From.IsZero() && !q.To.IsZero() && q.From.After(q.To):
		return repository.EventQuery{}, errInvalidTimeRange
	case q.Heater != nil && *q.Heater < 0:
		return repository.EventQuery{}, errInvalidHeater
	case q.Limit < 0 || q.Limit > MaxLogLimit:
		return repository.EventQuery{}, errInvalidLimit
	}
	return q, nil
}

// List returns the events matching f, oldest first.
func (s *EventLogService) List(ctx context.Context, f LogFilter) ([]models.HeaterEvent, error) {
	q, err := toEventQuery(f)
	if err != nil {
		return nil, err
	}
	return s.eventRepo.List(ctx, q)
}

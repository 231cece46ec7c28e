package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"controlling_resistances/internal/models"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// Accounts stores operator logins.
type Accounts interface {
	Create(ctx context.Context, username, hash string) (models.Operator, error)
	GetByUsername(ctx context.Context, username string) (models.Operator, error)
	SetRole(ctx context.Context, id int, role string) error
}

type StateRepo interface {
	Save(ctx context.Context, s models.HeaterState) error
	SaveAll(ctx context.Context, states []models.HeaterState) error
	Load(ctx context.Context, heater int) (models.HeaterState, error)
	List(ctx context.Context) ([]models.HeaterState, error)
}

// EventQuery selects control events. Zero values leave a field unfiltered.
type EventQuery struct {
	From   time.Time // inclusive
	To     time.Time // inclusive
	Type   string
	Heater *int
	// Limit keeps only the most recent events; the result stays oldest first.
	Limit int
}

type EventRepo interface {
	Append(ctx context.Context, e models.HeaterEvent) error
	List(ctx context.Context, q EventQuery) ([]models.HeaterEvent, error)
}

type Repository struct {
	StateRepo StateRepo
	EventRepo EventRepo
	Accounts  Accounts
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{
		StateRepo: NewStateSQLite(db),
		EventRepo: NewEventSQLite(db),
		Accounts:  NewAccountSQLite(db),
	}
}

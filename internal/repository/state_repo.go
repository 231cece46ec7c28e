package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"controlling_resistances/internal/models"
)

type StateSQLite struct {
	db *sql.DB
}

func NewStateSQLite(db *sql.DB) *StateSQLite {
	return &StateSQLite{db: db}
}

const (
	upsertStateSQL = `
		INSERT INTO heater_state (heater, address, temp_c, commanded, is_on, overridden, tick, running, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(heater) DO UPDATE SET
			address=excluded.address,
			temp_c=excluded.temp_c,
			commanded=excluded.commanded,
			is_on=excluded.is_on,
			overridden=excluded.overridden,
			tick=excluded.tick,
			running=excluded.running,
			updated_at=excluded.updated_at
	`

	selectStateColumns = `SELECT heater, address, temp_c, commanded, is_on, overridden, tick, running, updated_at FROM heater_state`

	selectStateSQL     = selectStateColumns + ` WHERE heater=?`
	selectAllStatesSQL = selectStateColumns + ` ORDER BY heater ASC`
)

// stamp returns the persisted timestamp: UTC, or now when unset.
func stamp(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t.UTC()
}

func stateArgs(s models.HeaterState) []any {
	return []any{
		s.Heater,
		s.Address,
		s.TempC,
		s.Commanded,
		s.On,
		s.Overridden,
		s.Tick,
		s.Running,
		stamp(s.UpdatedAt),
	}
}

// Save inserts or updates the row of one heater.
func (r *StateSQLite) Save(ctx context.Context, state models.HeaterState) error {
	if _, err := r.db.ExecContext(ctx, upsertStateSQL, stateArgs(state)...); err != nil {
		return fmt.Errorf("save heater %d state: %w", state.Heater, err)
	}
	return nil
}

// SaveAll writes one control tick worth of heater rows in a single transaction.
func (r *StateSQLite) SaveAll(ctx context.Context, states []models.HeaterState) error {
	if len(states) == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin state transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, upsertStateSQL)
	if err != nil {
		return fmt.Errorf("prepare state upsert: %w", err)
	}
	defer stmt.Close()

	for _, s := range states {
		if _, err := stmt.ExecContext(ctx, stateArgs(s)...); err != nil {
			return fmt.Errorf("save heater %d state: %w", s.Heater, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit state transaction: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanState(row rowScanner) (models.HeaterState, error) {
	var (
		s       models.HeaterState
		address sql.NullString
	)
	if err := row.Scan(
		&s.Heater,
		&address,
		&s.TempC,
		&s.Commanded,
		&s.On,
		&s.Overridden,
		&s.Tick,
		&s.Running,
		&s.UpdatedAt,
	); err != nil {
		return models.HeaterState{}, err
	}
	s.Address = address.String
	s.UpdatedAt = s.UpdatedAt.UTC()
	return s, nil
}

// Load fetches the row of one heater; ErrNotFound if it was never saved.
func (r *StateSQLite) Load(ctx context.Context, heater int) (models.HeaterState, error) {
	s, err := scanState(r.db.QueryRowContext(ctx, selectStateSQL, heater))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.HeaterState{}, ErrNotFound
		}
		return models.HeaterState{}, fmt.Errorf("load heater %d state: %w", heater, err)
	}
	return s, nil
}

// List returns every heater row ordered by heater index.
func (r *StateSQLite) List(ctx context.Context) ([]models.HeaterState, error) {
	rows, err := r.db.QueryContext(ctx, selectAllStatesSQL)
	if err != nil {
		return nil, fmt.Errorf("list heater states: %w", err)
	}
	defer rows.Close()

	out := make([]models.HeaterState, 0, 8)
	for rows.Next() {
		s, err := scanState(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

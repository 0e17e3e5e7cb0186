package trips

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ostrval/carpooling/internal/common"
	"github.com/ostrval/carpooling/internal/dbx"
	"github.com/ostrval/carpooling/internal/server/models"
)

// PostgresRepository stores trips with the companion list as a JSONB column,
// so a trip row round-trips through encoding/json.
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, trip *models.Trip) (*models.Trip, error) {

	companions, err := json.Marshal(orEmpty(trip.Companions))
	if err != nil {
		return nil, fmt.Errorf("encoding companions: %w", err)
	}

	query :=
		`INSERT INTO trips (user_id, companions, date)
		 VALUES ($1, $2, $3)
		 RETURNING id
		 `

	err = r.db.QueryRowContext(ctx, query,
		trip.UserID, companions, trip.Date).Scan(&trip.ID)

	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return trip, nil
}

func (r *PostgresRepository) Get(ctx context.Context, id int64) (*models.Trip, error) {
	query :=
		`SELECT id, user_id, companions, date FROM trips
		 WHERE id = $1
		 `

	trip := &models.Trip{}
	var companions []byte
	err := r.db.QueryRowContext(ctx, query, id).Scan(&trip.ID, &trip.UserID, &companions, &trip.Date)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	if err := json.Unmarshal(companions, &trip.Companions); err != nil {
		return nil, fmt.Errorf("decoding companions: %w", err)
	}

	return trip, nil
}

// AddCompanion appends userID to the trip's companion list in a single
// guarded UPDATE, so concurrent adds to the same trip serialize on the row
// and neither overwrites the other. A row is only touched when the user is
// not already a companion; zero affected rows is also what an absent trip
// produces, so absence is left for Get to report.
func (r *PostgresRepository) AddCompanion(ctx context.Context, id, userID int64) error {

	query :=
		`UPDATE trips SET companions = companions || to_jsonb($2::bigint)
		 WHERE id = $1 AND NOT companions @> to_jsonb($2::bigint)
		 `

	if _, err := r.db.ExecContext(ctx, query, id, userID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}

// orEmpty keeps the JSONB column a list even when the slice is nil.
func orEmpty(companions []int64) []int64 {
	if companions == nil {
		return []int64{}
	}
	return companions
}

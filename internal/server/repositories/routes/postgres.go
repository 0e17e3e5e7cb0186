package routes

import (
	"context"
	"fmt"

	"github.com/ostrval/carpooling/internal/dbx"
	"github.com/ostrval/carpooling/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, route *models.Route) (*models.Route, error) {

	query :=
		`INSERT INTO routes (user_id, start_point, end_point)
		 VALUES ($1, $2, $3)
		 RETURNING id
		 `

	err := r.db.QueryRowContext(ctx, query,
		route.UserID, route.StartPoint, route.EndPoint).Scan(&route.ID)

	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return route, nil
}

func (r *PostgresRepository) ListByOwner(ctx context.Context, userID int64) ([]models.Route, error) {
	query :=
		`SELECT id, user_id, start_point, end_point FROM routes
		 WHERE user_id = $1
		 ORDER BY id
		 `

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []models.Route
	for rows.Next() {
		var route models.Route
		if err := rows.Scan(&route.ID, &route.UserID, &route.StartPoint, &route.EndPoint); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, route)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return result, nil
}

package routes

import (
	"context"

	"github.com/ostrval/carpooling/internal/server/models"
)

type Repository interface {
	// Create inserts the route; the store assigns the identifier.
	Create(ctx context.Context, route *models.Route) (*models.Route, error)

	// ListByOwner returns every route owned by userID in ascending id
	// order, so repeated calls are deterministic.
	ListByOwner(ctx context.Context, userID int64) ([]models.Route, error)
}

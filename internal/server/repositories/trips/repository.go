package trips

import (
	"context"

	"github.com/ostrval/carpooling/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, trip *models.Trip) (*models.Trip, error)
	Get(ctx context.Context, id int64) (*models.Trip, error)

	// AddCompanion appends userID to the trip's companion list unless it
	// is already present. The append must be atomic: concurrent calls for
	// the same trip may not overwrite each other's additions. Appending to
	// an absent trip affects nothing and is not an error; callers detect
	// absence via Get.
	AddCompanion(ctx context.Context, id, userID int64) error
}

package users

import (
	"context"

	"github.com/ostrval/carpooling/internal/server/models"
)

// Repository is the user record store. The relational and document-style
// implementations are mutually exclusive deployment configurations selected
// at startup; there is no dual-write.
type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	SearchByName(ctx context.Context, firstName, lastName string) ([]models.User, error)
}

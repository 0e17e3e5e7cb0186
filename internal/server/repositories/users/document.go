package users

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ostrval/carpooling/internal/common"
	"github.com/ostrval/carpooling/internal/server/models"
)

// DocumentRepository keeps user documents in an in-process collection keyed
// by username. It is the document-store deployment alternative to the
// relational repository and backs tests that need a real Repository without
// a database.
type DocumentRepository struct {
	mu     sync.RWMutex
	nextID int64
	docs   map[string]models.User
}

func NewDocumentRepository() *DocumentRepository {
	return &DocumentRepository{docs: make(map[string]models.User)}
}

func (r *DocumentRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.docs[user.Username]; ok {
		return nil, fmt.Errorf("db error: username %q already exists", user.Username)
	}

	r.nextID++
	user.ID = r.nextID
	user.CreatedAt = time.Now()
	r.docs[user.Username] = *user

	return user, nil
}

func (r *DocumentRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	doc, ok := r.docs[username]
	if !ok {
		return nil, common.ErrNotFound
	}
	return &doc, nil
}

func (r *DocumentRepository) SearchByName(ctx context.Context, firstName, lastName string) ([]models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	first := strings.ToLower(firstName)
	last := strings.ToLower(lastName)

	var result []models.User
	for _, doc := range r.docs {
		if strings.Contains(strings.ToLower(doc.FirstName), first) &&
			strings.Contains(strings.ToLower(doc.LastName), last) {
			result = append(result, doc)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })

	return result, nil
}

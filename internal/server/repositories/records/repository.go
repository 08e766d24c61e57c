package records

import (
	"context"

	"github.com/dmitrijs2005/medkeeper/internal/identity"
	"github.com/dmitrijs2005/medkeeper/internal/server/models"
)

// Repository stores Record rows and the id counter.
type Repository interface {
	// NextID increments the record counter and returns the new value.
	NextID(ctx context.Context) (int64, error)
	Create(ctx context.Context, record *models.Record) error
	// GetByID returns common.ErrorNotFound for ids never created.
	GetByID(ctx context.Context, id int64) (*models.Record, error)
	Deactivate(ctx context.Context, id int64) error
	// ListIDsByCreator returns ids in creation order.
	ListIDsByCreator(ctx context.Context, creator identity.Address) ([]int64, error)
}

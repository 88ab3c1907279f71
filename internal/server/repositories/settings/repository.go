package settings

import (
	"context"

	"github.com/dmitrijs2005/fundkeeper/internal/server/models"
)

type Repository interface {
	Get(ctx context.Context, key string) (*models.Setting, error)
	Upsert(ctx context.Context, key, value string) (*models.Setting, error)
	List(ctx context.Context) ([]*models.Setting, error)
}

package handles

import (
	"context"

	"github.com/dmitrijs2005/invisibledrop/internal/relayer/models"
)

type Repository interface {
	// Register stores c, replacing the value and ACL of an existing handle.
	Register(ctx context.Context, c *models.Ciphertext) error
	// Get returns the ciphertext with its ACL, or common.ErrorNotFound.
	Get(ctx context.Context, handle string) (*models.Ciphertext, error)
}

package audit

import (
	"context"

	"github.com/dmitrijs2005/invisibledrop/internal/relayer/models"
	"github.com/ethereum/go-ethereum/common"
)

type Repository interface {
	Record(ctx context.Context, e *models.AuditEntry) error
	ListByUser(ctx context.Context, user common.Address, limit int) ([]models.AuditEntry, error)
}

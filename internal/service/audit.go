package service

import (
	"context"
	"encoding/json"

	"github.com/ayo6706/wallet-reserve/internal/models"
	"github.com/ayo6706/wallet-reserve/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AuditService appends immutable audit entries inside the caller's atomic
// unit, so the audited change and its record commit or abort together.
type AuditService struct{}

func NewAuditService() *AuditService {
	return &AuditService{}
}

func (s *AuditService) Write(ctx context.Context, tx repository.TxStore, entityType string, entityID uuid.UUID, action, prevState, nextState string, metadata json.RawMessage) error {
	entry := &models.AuditEntry{
		EntityType: entityType,
		EntityID:   entityID,
		Action:     action,
		PrevState:  prevState,
		NextState:  nextState,
		Metadata:   metadata,
	}
	if err := tx.InsertAuditEntry(ctx, entry); err != nil {
		zap.L().Error("audit write failed",
			zap.String("entity_type", entityType),
			zap.String("entity_id", entityID.String()),
			zap.String("action", action),
			zap.Error(err))
		return err
	}
	return nil
}

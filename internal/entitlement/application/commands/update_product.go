package commands

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/sigil/internal/entitlement/application/services"
	"github.com/felixgeelhaar/sigil/internal/entitlement/domain"
	sharedapplication "github.com/felixgeelhaar/sigil/internal/shared/application"
)

// UpdateProductCommand signals that catalog products changed (content
// attached, detached, relabeled) and certificates referencing them may be
// stale. The catalog itself is updated through the catalog writer before
// this command runs.
type UpdateProductCommand struct {
	OwnerID           uuid.UUID
	ChangedProductIDs []string
}

func (UpdateProductCommand) CommandName() string { return "entitlement.product.update" }

var _ sharedapplication.CommandHandler[UpdateProductCommand, *UpdateProductResult] = (*UpdateProductHandler)(nil)

// UpdateProductResult reports the re-evaluation fanout.
type UpdateProductResult struct {
	ConsumersEvaluated int
	Regenerated        []services.RegenerationResult
}

// UpdateProductHandler handles the UpdateProductCommand.
type UpdateProductHandler struct {
	entitlements domain.Repository
	regenerator  *services.Regenerator
	logger       *slog.Logger
}

// NewUpdateProductHandler creates a new UpdateProductHandler.
func NewUpdateProductHandler(entitlements domain.Repository, regenerator *services.Regenerator, logger *slog.Logger) *UpdateProductHandler {
	return &UpdateProductHandler{
		entitlements: entitlements,
		regenerator:  regenerator,
		logger:       logger,
	}
}

// Handle re-evaluates every consumer under the owner. Each consumer runs
// under its own lock and transaction; one consumer's failure stops the
// fanout but cannot corrupt consumers already processed.
func (h *UpdateProductHandler) Handle(ctx context.Context, cmd UpdateProductCommand) (*UpdateProductResult, error) {
	consumerIDs, err := h.entitlements.ListActiveConsumerIDs(ctx, cmd.OwnerID)
	if err != nil {
		return nil, err
	}

	result := &UpdateProductResult{}
	for _, consumerID := range consumerIDs {
		results, err := h.regenerator.ResolveAndRegenerate(ctx, consumerID, cmd.ChangedProductIDs)
		if err != nil {
			return nil, err
		}
		result.ConsumersEvaluated++
		for _, r := range results {
			if r.Changed {
				result.Regenerated = append(result.Regenerated, r)
			}
		}
	}

	h.logger.Info("product update processed",
		"owner_id", cmd.OwnerID,
		"changed_products", cmd.ChangedProductIDs,
		"consumers", result.ConsumersEvaluated,
		"regenerated", len(result.Regenerated))
	return result, nil
}

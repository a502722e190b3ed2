package queries

import (
	"context"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/sigil/internal/entitlement/domain"
	sharedapplication "github.com/felixgeelhaar/sigil/internal/shared/application"
)

// ListEntitlementsQuery lists a consumer's active entitlements.
type ListEntitlementsQuery struct {
	ConsumerID uuid.UUID
}

func (ListEntitlementsQuery) QueryName() string { return "entitlement.list" }

var _ sharedapplication.QueryHandler[ListEntitlementsQuery, []EntitlementDTO] = (*ListEntitlementsHandler)(nil)

// ListEntitlementsHandler handles the ListEntitlementsQuery.
type ListEntitlementsHandler struct {
	entitlements domain.Repository
}

// NewListEntitlementsHandler creates a new ListEntitlementsHandler.
func NewListEntitlementsHandler(entitlements domain.Repository) *ListEntitlementsHandler {
	return &ListEntitlementsHandler{entitlements: entitlements}
}

// Handle executes the ListEntitlementsQuery.
func (h *ListEntitlementsHandler) Handle(ctx context.Context, q ListEntitlementsQuery) ([]EntitlementDTO, error) {
	active, err := h.entitlements.ListActiveByConsumer(ctx, q.ConsumerID)
	if err != nil {
		return nil, err
	}
	dtos := make([]EntitlementDTO, 0, len(active))
	for _, ent := range active {
		dtos = append(dtos, toEntitlementDTO(ent))
	}
	return dtos, nil
}

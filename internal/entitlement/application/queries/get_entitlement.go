package queries

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/sigil/internal/entitlement/domain"
	sharedapplication "github.com/felixgeelhaar/sigil/internal/shared/application"
)

// EntitlementDTO is the read model for a single entitlement.
type EntitlementDTO struct {
	ID                 uuid.UUID `json:"id"`
	ConsumerID         uuid.UUID `json:"consumer_id"`
	PoolID             uuid.UUID `json:"pool_id"`
	ProductID          string    `json:"product_id"`
	ProvidedProductIDs []string  `json:"provided_product_ids"`
	Status             string    `json:"status"`
	Serial             int64     `json:"serial,omitempty"`
	Digest             string    `json:"digest,omitempty"`
	IssuedAt           time.Time `json:"issued_at,omitempty"`
}

func toEntitlementDTO(ent *domain.Entitlement) EntitlementDTO {
	dto := EntitlementDTO{
		ID:                 ent.ID(),
		ConsumerID:         ent.ConsumerID(),
		PoolID:             ent.PoolID(),
		ProductID:          ent.ProductID(),
		ProvidedProductIDs: ent.ProvidedProductIDs(),
		Status:             string(ent.Status()),
	}
	if cert := ent.Certificate(); cert != nil {
		dto.Serial = cert.Serial()
		dto.Digest = cert.Digest()
		dto.IssuedAt = cert.IssuedAt()
	}
	return dto
}

// GetEntitlementQuery fetches one entitlement by id.
type GetEntitlementQuery struct {
	EntitlementID uuid.UUID
}

func (GetEntitlementQuery) QueryName() string { return "entitlement.get" }

var _ sharedapplication.QueryHandler[GetEntitlementQuery, *EntitlementDTO] = (*GetEntitlementHandler)(nil)

// GetEntitlementHandler handles the GetEntitlementQuery.
type GetEntitlementHandler struct {
	entitlements domain.Repository
}

// NewGetEntitlementHandler creates a new GetEntitlementHandler.
func NewGetEntitlementHandler(entitlements domain.Repository) *GetEntitlementHandler {
	return &GetEntitlementHandler{entitlements: entitlements}
}

// Handle executes the GetEntitlementQuery.
func (h *GetEntitlementHandler) Handle(ctx context.Context, q GetEntitlementQuery) (*EntitlementDTO, error) {
	ent, err := h.entitlements.FindByID(ctx, q.EntitlementID)
	if err != nil {
		return nil, err
	}
	dto := toEntitlementDTO(ent)
	return &dto, nil
}

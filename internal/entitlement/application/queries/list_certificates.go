package queries

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/sigil/internal/entitlement/domain"
	sharedapplication "github.com/felixgeelhaar/sigil/internal/shared/application"
)

// CertificateDTO is the read model for an issued certificate.
type CertificateDTO struct {
	EntitlementID uuid.UUID `json:"entitlement_id"`
	Serial        int64     `json:"serial"`
	Digest        string    `json:"digest"`
	Payload       []byte    `json:"payload"`
	IssuedAt      time.Time `json:"issued_at"`
}

// ListCertificatesQuery lists the active certificates of a consumer. The
// result is the consumer's current certificate set; serials revoked by
// regeneration never appear.
type ListCertificatesQuery struct {
	ConsumerID uuid.UUID
}

func (ListCertificatesQuery) QueryName() string { return "entitlement.certificates" }

var _ sharedapplication.QueryHandler[ListCertificatesQuery, []CertificateDTO] = (*ListCertificatesHandler)(nil)

// ListCertificatesHandler handles the ListCertificatesQuery.
type ListCertificatesHandler struct {
	entitlements domain.Repository
}

// NewListCertificatesHandler creates a new ListCertificatesHandler.
func NewListCertificatesHandler(entitlements domain.Repository) *ListCertificatesHandler {
	return &ListCertificatesHandler{entitlements: entitlements}
}

// Handle executes the ListCertificatesQuery.
func (h *ListCertificatesHandler) Handle(ctx context.Context, q ListCertificatesQuery) ([]CertificateDTO, error) {
	active, err := h.entitlements.ListActiveByConsumer(ctx, q.ConsumerID)
	if err != nil {
		return nil, err
	}

	certs := make([]CertificateDTO, 0, len(active))
	for _, ent := range active {
		cert := ent.Certificate()
		if cert == nil {
			continue
		}
		certs = append(certs, CertificateDTO{
			EntitlementID: ent.ID(),
			Serial:        cert.Serial(),
			Digest:        cert.Digest(),
			Payload:       cert.Payload(),
			IssuedAt:      cert.IssuedAt(),
		})
	}
	return certs, nil
}

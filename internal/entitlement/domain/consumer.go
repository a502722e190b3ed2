package domain

import (
	"strings"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/sigil/internal/shared/domain"
)

// Consumer is a registered system that binds entitlements. Its entitled
// closure is always derived from its active entitlements, never stored.
type Consumer struct {
	domain.BaseAggregateRoot
	ownerID             uuid.UUID
	name                string
	installedProductIDs []string
}

// NewConsumer registers a consumer under an owner.
func NewConsumer(ownerID uuid.UUID, name string) (*Consumer, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrConsumerEmptyName
	}
	return &Consumer{
		BaseAggregateRoot: domain.NewBaseAggregateRoot(),
		ownerID:           ownerID,
		name:              name,
	}, nil
}

func (c *Consumer) OwnerID() uuid.UUID { return c.ownerID }
func (c *Consumer) Name() string       { return c.name }

// InstalledProductIDs returns the product ids the consumer reports installed.
// Auto-bind uses them to pick pools.
func (c *Consumer) InstalledProductIDs() []string {
	ids := make([]string, len(c.installedProductIDs))
	copy(ids, c.installedProductIDs)
	return ids
}

// SetInstalledProductIDs replaces the installed product set.
func (c *Consumer) SetInstalledProductIDs(ids []string) {
	c.installedProductIDs = make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		c.installedProductIDs = append(c.installedProductIDs, id)
	}
	c.Touch()
}

// RehydrateConsumer recreates a consumer from persisted state.
func RehydrateConsumer(base domain.BaseEntity, version int, ownerID uuid.UUID, name string, installedProductIDs []string) *Consumer {
	c := &Consumer{
		BaseAggregateRoot: domain.RehydrateBaseAggregateRoot(base, version),
		ownerID:           ownerID,
		name:              name,
	}
	c.installedProductIDs = append(c.installedProductIDs, installedProductIDs...)
	return c
}

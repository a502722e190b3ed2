package domain

import (
	"strings"

	"github.com/google/uuid"
)

// Product attribute keys recognized by the certificate pipeline.
const (
	AttrStackingID = "stacking_id"
	AttrVariant    = "variant"
	AttrVersion    = "version"
	AttrArch       = "arch"
)

// ProductContent is a content set attached to a product, with a flag marking
// whether the content is enabled for that product.
type ProductContent struct {
	content *Content
	enabled bool
}

// NewProductContent creates a product content attachment.
func NewProductContent(content *Content, enabled bool) ProductContent {
	return ProductContent{content: content, enabled: enabled}
}

func (pc ProductContent) Content() *Content { return pc.content }
func (pc ProductContent) Enabled() bool     { return pc.enabled }

// Product is a marketed product owned by a single owner. It may bundle other
// products (provided products) and carries an ordered list of attached
// content sets. Products are keyed by (owner, product id); the id is a plain
// string as it is defined by the upstream catalog, not by this system.
type Product struct {
	id                 string
	ownerID            uuid.UUID
	name               string
	providedProductIDs []string
	productContent     []ProductContent
	attributes         map[string]string
}

// NewProduct creates a product.
func NewProduct(ownerID uuid.UUID, id, name string) (*Product, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrProductEmptyID
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrProductEmptyName
	}

	return &Product{
		id:         id,
		ownerID:    ownerID,
		name:       name,
		attributes: make(map[string]string),
	}, nil
}

func (p *Product) ID() string         { return p.id }
func (p *Product) OwnerID() uuid.UUID { return p.ownerID }
func (p *Product) Name() string       { return p.name }

// ProvidedProductIDs returns the ids of products bundled under this product.
func (p *Product) ProvidedProductIDs() []string {
	ids := make([]string, len(p.providedProductIDs))
	copy(ids, p.providedProductIDs)
	return ids
}

// SetProvidedProductIDs replaces the provided-product set.
func (p *Product) SetProvidedProductIDs(ids []string) {
	p.providedProductIDs = make([]string, 0, len(ids))
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
		p.providedProductIDs = append(p.providedProductIDs, id)
	}
}

// ProductContent returns the attached content sets in attach order.
func (p *Product) ProductContent() []ProductContent {
	pcs := make([]ProductContent, len(p.productContent))
	copy(pcs, p.productContent)
	return pcs
}

// AddContent attaches a content set. Attach order is preserved; it determines
// the order content appears in certificates.
func (p *Product) AddContent(content *Content, enabled bool) error {
	for _, pc := range p.productContent {
		if pc.content.ID() == content.ID() {
			return ErrDuplicateContent
		}
	}
	p.productContent = append(p.productContent, NewProductContent(content, enabled))
	return nil
}

// Attribute returns the value for an attribute key, or "" when unset.
func (p *Product) Attribute(key string) string {
	return p.attributes[key]
}

// SetAttribute sets a product attribute.
func (p *Product) SetAttribute(key, value string) {
	p.attributes[key] = value
}

// Attributes returns a copy of the attribute map.
func (p *Product) Attributes() map[string]string {
	attrs := make(map[string]string, len(p.attributes))
	for k, v := range p.attributes {
		attrs[k] = v
	}
	return attrs
}

// RehydrateProduct recreates a product from persisted state.
func RehydrateProduct(ownerID uuid.UUID, id, name string, providedProductIDs []string, productContent []ProductContent, attributes map[string]string) *Product {
	p := &Product{
		id:             id,
		ownerID:        ownerID,
		name:           name,
		productContent: productContent,
		attributes:     make(map[string]string, len(attributes)),
	}
	p.SetProvidedProductIDs(providedProductIDs)
	for k, v := range attributes {
		p.attributes[k] = v
	}
	return p
}

package domain

import "strings"

// RepoType tags the kind of repository a content set describes. The engine
// treats it as opaque data; it is carried into certificates unchanged.
type RepoType string

const (
	RepoTypeYum       RepoType = "yum"
	RepoTypeFile      RepoType = "file"
	RepoTypeKickstart RepoType = "kickstart"
)

// IsValid checks if the repository type is one of the known tags.
func (t RepoType) IsValid() bool {
	switch t {
	case RepoTypeYum, RepoTypeFile, RepoTypeKickstart:
		return true
	default:
		return false
	}
}

// Content is a product content set: one addressable repository a consumer may
// be granted access to. A content set with a non-empty modified-product-id
// set is conditional: it is only unlocked when the consumer's entitled
// closure contains at least one of the required product ids.
type Content struct {
	id                 string
	name               string
	label              string
	repoType           RepoType
	vendor             string
	contentURL         string
	modifiedProductIDs []string
}

// NewContent creates a content set.
func NewContent(id, name, label string, repoType RepoType) (*Content, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrContentEmptyID
	}
	label = strings.TrimSpace(label)
	if label == "" {
		return nil, ErrContentEmptyLabel
	}
	if !repoType.IsValid() {
		return nil, ErrContentInvalidType
	}

	return &Content{
		id:       id,
		name:     name,
		label:    label,
		repoType: repoType,
	}, nil
}

func (c *Content) ID() string         { return c.id }
func (c *Content) Name() string       { return c.name }
func (c *Content) Label() string      { return c.label }
func (c *Content) RepoType() RepoType { return c.repoType }
func (c *Content) Vendor() string     { return c.vendor }
func (c *Content) ContentURL() string { return c.contentURL }

// ModifiedProductIDs returns the product ids that unlock this content set.
// Empty means the content is unconditional.
func (c *Content) ModifiedProductIDs() []string {
	ids := make([]string, len(c.modifiedProductIDs))
	copy(ids, c.modifiedProductIDs)
	return ids
}

// IsConditional reports whether inclusion depends on other entitled products.
func (c *Content) IsConditional() bool {
	return len(c.modifiedProductIDs) > 0
}

// SetModifiedProductIDs replaces the required-product set.
func (c *Content) SetModifiedProductIDs(ids []string) {
	c.modifiedProductIDs = make([]string, 0, len(ids))
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
		c.modifiedProductIDs = append(c.modifiedProductIDs, id)
	}
}

// SetVendor sets the vendor string carried into certificates.
func (c *Content) SetVendor(vendor string) {
	c.vendor = vendor
}

// SetContentURL sets the repository URL carried into certificates.
func (c *Content) SetContentURL(url string) {
	c.contentURL = url
}

// RehydrateContent recreates a content set from persisted state.
func RehydrateContent(id, name, label string, repoType RepoType, vendor, contentURL string, modifiedProductIDs []string) *Content {
	c := &Content{
		id:         id,
		name:       name,
		label:      label,
		repoType:   repoType,
		vendor:     vendor,
		contentURL: contentURL,
	}
	c.SetModifiedProductIDs(modifiedProductIDs)
	return c
}

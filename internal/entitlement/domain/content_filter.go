package domain

import catalog "github.com/felixgeelhaar/sigil/internal/catalog/domain"

// EligibleContent filters a product's attached content against the consumer's
// entitled closure. Disabled attachments are dropped. A conditional content
// set is included when at least one of its required product ids is in the
// closure; an empty required set means unconditional. Attach order is
// preserved so downstream digests are deterministic.
func EligibleContent(product *catalog.Product, closure ProductSet) []catalog.ProductContent {
	eligible := make([]catalog.ProductContent, 0)
	for _, pc := range product.ProductContent() {
		if !pc.Enabled() {
			continue
		}
		required := pc.Content().ModifiedProductIDs()
		if len(required) == 0 || closure.ContainsAny(required) {
			eligible = append(eligible, pc)
		}
	}
	return eligible
}

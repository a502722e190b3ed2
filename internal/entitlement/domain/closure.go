package domain

// ProductSet is a set of product ids.
type ProductSet map[string]struct{}

// Contains reports set membership.
func (s ProductSet) Contains(productID string) bool {
	_, ok := s[productID]
	return ok
}

// ContainsAny reports whether any of the given ids is in the set.
func (s ProductSet) ContainsAny(productIDs []string) bool {
	for _, id := range productIDs {
		if _, ok := s[id]; ok {
			return true
		}
	}
	return false
}

// Equal reports whether two sets hold the same ids.
func (s ProductSet) Equal(other ProductSet) bool {
	if len(s) != len(other) {
		return false
	}
	for id := range s {
		if _, ok := other[id]; !ok {
			return false
		}
	}
	return true
}

// Closure computes the set of product ids a consumer is entitled to: the
// union over active entitlements of the master product id and the provided
// product snapshot taken at pool creation. Revoked entitlements contribute
// nothing.
func Closure(entitlements []*Entitlement) ProductSet {
	closure := make(ProductSet)
	for _, ent := range entitlements {
		if !ent.IsActive() {
			continue
		}
		closure[ent.ProductID()] = struct{}{}
		for _, id := range ent.ProvidedProductIDs() {
			closure[id] = struct{}{}
		}
	}
	return closure
}

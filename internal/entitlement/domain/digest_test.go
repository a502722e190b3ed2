package domain

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	catalog "github.com/felixgeelhaar/sigil/internal/catalog/domain"
)

func TestContentDigest_Deterministic(t *testing.T) {
	build := func() (*catalog.Product, []catalog.ProductContent) {
		product := newTestProduct(t, "p1")
		// Insertion order of attributes must not matter.
		for i := 0; i < 10; i++ {
			product.SetAttribute(fmt.Sprintf("attr-%d", i), fmt.Sprintf("v-%d", i))
		}
		product.SetAttribute(catalog.AttrStackingID, "stack-1")
		require.NoError(t, product.AddContent(newTestContent(t, "c1"), true))
		require.NoError(t, product.AddContent(newTestContent(t, "c2"), true))
		return product, EligibleContent(product, ProductSet{})
	}

	productA, eligibleA := build()
	productB, eligibleB := build()
	assert.Equal(t, ContentDigest(productA, eligibleA), ContentDigest(productB, eligibleB))
}

func TestContentDigest_Is64HexChars(t *testing.T) {
	product := newTestProduct(t, "p1")
	digest := ContentDigest(product, nil)
	assert.Len(t, digest, 64)
	assert.Regexp(t, "^[0-9a-f]{64}$", digest)
}

func TestContentDigest_ChangesWithContentSet(t *testing.T) {
	product := newTestProduct(t, "p1")
	require.NoError(t, product.AddContent(newTestContent(t, "c1"), true))
	require.NoError(t, product.AddContent(newTestContent(t, "c2", "q1"), true))

	withConditional := ContentDigest(product, EligibleContent(product, ProductSet{"q1": {}}))
	withoutConditional := ContentDigest(product, EligibleContent(product, ProductSet{}))
	assert.NotEqual(t, withConditional, withoutConditional)
}

func TestContentDigest_ChangesWithAttributes(t *testing.T) {
	product := newTestProduct(t, "p1")
	before := ContentDigest(product, nil)
	product.SetAttribute(catalog.AttrStackingID, "stack-1")
	after := ContentDigest(product, nil)
	assert.NotEqual(t, before, after)
}

func TestContentDigest_SensitiveToContentOrder(t *testing.T) {
	forward := newTestProduct(t, "p1")
	require.NoError(t, forward.AddContent(newTestContent(t, "c1"), true))
	require.NoError(t, forward.AddContent(newTestContent(t, "c2"), true))

	reversed := newTestProduct(t, "p1")
	require.NoError(t, reversed.AddContent(newTestContent(t, "c2"), true))
	require.NoError(t, reversed.AddContent(newTestContent(t, "c1"), true))

	assert.NotEqual(t,
		ContentDigest(forward, EligibleContent(forward, ProductSet{})),
		ContentDigest(reversed, EligibleContent(reversed, ProductSet{})))
}

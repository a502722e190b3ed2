package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProduct_Valid(t *testing.T) {
	ownerID := uuid.New()
	product, err := NewProduct(ownerID, "prod-1", "Enterprise Server")
	require.NoError(t, err)
	assert.Equal(t, "prod-1", product.ID())
	assert.Equal(t, ownerID, product.OwnerID())
	assert.Equal(t, "Enterprise Server", product.Name())
	assert.Empty(t, product.ProductContent())
}

func TestNewProduct_EmptyID(t *testing.T) {
	_, err := NewProduct(uuid.New(), "", "Enterprise Server")
	require.ErrorIs(t, err, ErrProductEmptyID)
}

func TestNewProduct_EmptyName(t *testing.T) {
	_, err := NewProduct(uuid.New(), "prod-1", "  ")
	require.ErrorIs(t, err, ErrProductEmptyName)
}

func TestProduct_AddContent_PreservesOrder(t *testing.T) {
	product, err := NewProduct(uuid.New(), "prod-1", "Enterprise Server")
	require.NoError(t, err)

	first, err := NewContent("c1", "Base", "base", RepoTypeYum)
	require.NoError(t, err)
	second, err := NewContent("c2", "Extras", "extras", RepoTypeYum)
	require.NoError(t, err)

	require.NoError(t, product.AddContent(first, true))
	require.NoError(t, product.AddContent(second, false))

	attached := product.ProductContent()
	require.Len(t, attached, 2)
	assert.Equal(t, "c1", attached[0].Content().ID())
	assert.True(t, attached[0].Enabled())
	assert.Equal(t, "c2", attached[1].Content().ID())
	assert.False(t, attached[1].Enabled())
}

func TestProduct_AddContent_Duplicate(t *testing.T) {
	product, err := NewProduct(uuid.New(), "prod-1", "Enterprise Server")
	require.NoError(t, err)

	content, err := NewContent("c1", "Base", "base", RepoTypeYum)
	require.NoError(t, err)
	require.NoError(t, product.AddContent(content, true))
	require.ErrorIs(t, product.AddContent(content, false), ErrDuplicateContent)
}

func TestProduct_SetProvidedProductIDs(t *testing.T) {
	product, err := NewProduct(uuid.New(), "prod-1", "Enterprise Server")
	require.NoError(t, err)

	product.SetProvidedProductIDs([]string{"p1", "p2", "p1", " ", "p3"})
	assert.Equal(t, []string{"p1", "p2", "p3"}, product.ProvidedProductIDs())
}

func TestProduct_Attributes(t *testing.T) {
	product, err := NewProduct(uuid.New(), "prod-1", "Enterprise Server")
	require.NoError(t, err)

	assert.Empty(t, product.Attribute(AttrStackingID))
	product.SetAttribute(AttrStackingID, "stack-9")
	assert.Equal(t, "stack-9", product.Attribute(AttrStackingID))

	attrs := product.Attributes()
	attrs[AttrStackingID] = "mutated"
	assert.Equal(t, "stack-9", product.Attribute(AttrStackingID))
}

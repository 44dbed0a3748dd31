package catalog

import (
	"testing"

	"foodhub/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultMenu(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	assert.Len(t, c.List(CategoryAll), 21)
	assert.Equal(t, []string{"pizza", "burger", "drinks", "dessert", "pasta", "salad"}, c.Categories())

	item, err := c.Lookup(1)
	require.NoError(t, err)
	assert.Equal(t, "Margherita Pizza", item.Name)
	assert.True(t, item.UnitPrice.Equal(decimal.RequireFromString("12.99")))
}

func TestLookupUnknown(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	_, err = c.Lookup(999)
	assert.ErrorIs(t, err, ErrItemNotFound)
}

func TestListByCategory(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	pizzas := c.List("Pizza")
	require.Len(t, pizzas, 4)
	for _, p := range pizzas {
		assert.Equal(t, "pizza", p.Category)
	}
	assert.Empty(t, c.List("sushi"))
	assert.Len(t, c.List(""), 21)
}

func TestSearch(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	burgers := c.Search("BURGER")
	assert.Len(t, burgers, 4)

	veggie := c.Search(" veggie ")
	require.Len(t, veggie, 2)
	assert.Equal(t, int64(4), veggie[0].ID)
	assert.Equal(t, int64(8), veggie[1].ID)

	assert.Len(t, c.Search(""), 21)
}

func TestFeatured(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	featured := c.Featured()
	assert.Len(t, featured, 9)
	for _, f := range featured {
		assert.True(t, f.Featured)
	}
}

func TestNewRejectsDuplicates(t *testing.T) {
	_, err := New([]models.MenuItem{{ID: 1}, {ID: 1}})
	assert.Error(t, err)

	_, err = New([]models.MenuItem{{ID: 2, UnitPrice: decimal.NewFromInt(-1)}})
	assert.Error(t, err)
}

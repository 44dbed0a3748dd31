// Package catalog serves the static menu the cart is filled from.
package catalog

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"foodhub/internal/models"
)

//go:embed menu.json
var defaultMenu []byte

// CategoryAll selects every item in List
const CategoryAll = "all"

// ErrItemNotFound is returned by Lookup for unknown ids
var ErrItemNotFound = errors.New("menu item not found")

// Catalog is a read-only, ordered menu
type Catalog struct {
	items []models.MenuItem
	byID  map[int64]int
}

// New builds a catalog from items in display order
func New(items []models.MenuItem) (*Catalog, error) {
	c := &Catalog{
		items: make([]models.MenuItem, 0, len(items)),
		byID:  make(map[int64]int, len(items)),
	}
	for _, item := range items {
		if _, dup := c.byID[item.ID]; dup {
			return nil, fmt.Errorf("duplicate menu item id %d", item.ID)
		}
		if item.UnitPrice.IsNegative() {
			return nil, fmt.Errorf("menu item %d has a negative price", item.ID)
		}
		c.byID[item.ID] = len(c.items)
		c.items = append(c.items, item)
	}
	return c, nil
}

// Default returns the embedded FoodHub menu
func Default() (*Catalog, error) {
	var items []models.MenuItem
	if err := json.Unmarshal(defaultMenu, &items); err != nil {
		return nil, fmt.Errorf("failed to parse embedded menu: %w", err)
	}
	return New(items)
}

// Lookup returns the item with the given id
func (c *Catalog) Lookup(id int64) (models.MenuItem, error) {
	i, ok := c.byID[id]
	if !ok {
		return models.MenuItem{}, fmt.Errorf("%w: %d", ErrItemNotFound, id)
	}
	return c.items[i], nil
}

// List returns the items of a category; "" and "all" return the whole menu
func (c *Catalog) List(category string) []models.MenuItem {
	category = strings.ToLower(strings.TrimSpace(category))
	if category == "" || category == CategoryAll {
		return append([]models.MenuItem(nil), c.items...)
	}
	return c.filter(func(item models.MenuItem) bool {
		return item.Category == category
	})
}

// Search matches query against item names, case-insensitively
func (c *Catalog) Search(query string) []models.MenuItem {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return c.List(CategoryAll)
	}
	return c.filter(func(item models.MenuItem) bool {
		return strings.Contains(strings.ToLower(item.Name), query)
	})
}

// Featured returns the items highlighted on the home page
func (c *Catalog) Featured() []models.MenuItem {
	return c.filter(func(item models.MenuItem) bool {
		return item.Featured
	})
}

// Categories returns the distinct categories in menu order
func (c *Catalog) Categories() []string {
	seen := make(map[string]bool)
	var categories []string
	for _, item := range c.items {
		if !seen[item.Category] {
			seen[item.Category] = true
			categories = append(categories, item.Category)
		}
	}
	return categories
}

func (c *Catalog) filter(keep func(models.MenuItem) bool) []models.MenuItem {
	out := []models.MenuItem{}
	for _, item := range c.items {
		if keep(item) {
			out = append(out, item)
		}
	}
	return out
}

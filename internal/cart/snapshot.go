package cart

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"foodhub/internal/models"

	"github.com/shopspring/decimal"
)

// SnapshotVersion is written with every persisted cart
const SnapshotVersion = 1

// ErrUnsupportedSnapshotVersion is returned for snapshots this build cannot read
var ErrUnsupportedSnapshotVersion = errors.New("unsupported cart snapshot version")

type snapshot struct {
	Version int               `json:"version"`
	Items   []models.LineItem `json:"items"`
}

// legacyLineItem is the unversioned layout written by the browser storefront:
// a bare array of these objects.
type legacyLineItem struct {
	ID       int64           `json:"id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Image    string          `json:"image"`
	Quantity int             `json:"quantity"`
}

// EncodeSnapshot serializes items at the current version
func EncodeSnapshot(items []models.LineItem) ([]byte, error) {
	if items == nil {
		items = []models.LineItem{}
	}
	data, err := json.Marshal(snapshot{Version: SnapshotVersion, Items: items})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal cart snapshot: %w", err)
	}
	return data, nil
}

// DecodeSnapshot reads a persisted cart, migrating older layouts. The result
// satisfies the cart invariants: no line with quantity < 1 and one line per id.
func DecodeSnapshot(data []byte) ([]models.LineItem, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, nil
	}

	var items []models.LineItem
	if data[0] == '[' {
		legacy, err := decodeLegacy(data)
		if err != nil {
			return nil, err
		}
		items = legacy
	} else {
		var snap snapshot
		if err := json.Unmarshal(data, &snap); err != nil {
			return nil, fmt.Errorf("failed to unmarshal cart snapshot: %w", err)
		}
		if snap.Version != SnapshotVersion {
			return nil, fmt.Errorf("%w: %d", ErrUnsupportedSnapshotVersion, snap.Version)
		}
		items = snap.Items
	}

	return normalize(items), nil
}

func decodeLegacy(data []byte) ([]models.LineItem, error) {
	var legacy []legacyLineItem
	if err := json.Unmarshal(data, &legacy); err != nil {
		return nil, fmt.Errorf("failed to unmarshal legacy cart: %w", err)
	}

	items := make([]models.LineItem, 0, len(legacy))
	for _, l := range legacy {
		items = append(items, models.LineItem{
			ItemID:    l.ID,
			Name:      l.Name,
			UnitPrice: l.Price,
			ImageRef:  l.Image,
			Quantity:  l.Quantity,
		})
	}
	return items, nil
}

// normalize drops non-positive quantities and lines that would overflow the
// item count, and merges repeated ids into the first occurrence.
func normalize(items []models.LineItem) []models.LineItem {
	out := make([]models.LineItem, 0, len(items))
	index := make(map[int64]int, len(items))
	total := 0

	for _, item := range items {
		if item.Quantity < 1 || total > math.MaxInt-item.Quantity {
			continue
		}
		total += item.Quantity
		if i, ok := index[item.ItemID]; ok {
			out[i].Quantity += item.Quantity
			continue
		}
		index[item.ItemID] = len(out)
		out = append(out, item)
	}
	return out
}

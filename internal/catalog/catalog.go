// internal/catalog/catalog.go
package catalog

import (
	"fmt"
	"sort"

	"github.com/chronoline/chronoline/internal/models"
)

// Catalog is the read-only ordered card dataset the engine draws decks from.
// Cards are kept sorted by year; the engine treats everything but id and year
// as opaque display data.
type Catalog struct {
	cards []models.Card
}

// New builds a catalog from a card list. Cards are sorted by year. Duplicate
// ids and empty datasets are rejected.
func New(cards []models.Card) (*Catalog, error) {
	if len(cards) == 0 {
		return nil, fmt.Errorf("catalog is empty")
	}
	sorted := make([]models.Card, len(cards))
	copy(sorted, cards)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Year < sorted[j].Year
	})
	seen := make(map[int]bool, len(sorted))
	for _, c := range sorted {
		if seen[c.ID] {
			return nil, fmt.Errorf("catalog contains duplicate card id %d", c.ID)
		}
		seen[c.ID] = true
	}
	return &Catalog{cards: sorted}, nil
}

// Cards returns an independent copy of the catalog so callers can shuffle or
// mutate their copy freely.
func (c *Catalog) Cards() []models.Card {
	out := make([]models.Card, len(c.cards))
	copy(out, c.cards)
	return out
}

// Len returns the number of cards in the catalog.
func (c *Catalog) Len() int {
	return len(c.cards)
}

// internal/catalog/file.go
package catalog

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/chronoline/chronoline/internal/models"
)

// LoadFile reads a catalog from a JSON file containing an array of cards.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}
	var cards []models.Card
	if err := json.Unmarshal(data, &cards); err != nil {
		return nil, fmt.Errorf("failed to parse catalog file %s: %w", path, err)
	}
	return New(cards)
}

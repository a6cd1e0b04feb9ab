package endpoint

import (
	"encoding/json"
	"os"
)

// Catalog maps supplier ids to display names. Lookups for unknown ids fall
// back to the id itself.
type Catalog map[string]string

func LoadCatalog(path string) (Catalog, error) {
	bs, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var c Catalog
	if err := json.Unmarshal(bs, &c); err != nil {
		return nil, err
	}

	return c, nil
}

func (c Catalog) Name(supplierID string) string {
	if name, ok := c[supplierID]; ok && name != "" {
		return name
	}
	return supplierID
}

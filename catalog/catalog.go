package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Wine is one catalog entry, keyed by barcode.
type Wine struct {
	Name        string   `json:"name"`
	Type        string   `json:"type"`
	Volume      string   `json:"volume"`
	Description string   `json:"description"`
	Image       string   `json:"img"`
	MealType    []string `json:"meal_type"`
	Atmosphere  []string `json:"atmosphere"`
}

// Catalog is the static barcode → wine reference data, loaded once at
// startup and never written.
type Catalog struct {
	Wines map[string]Wine `json:"wines"`
}

func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	var c Catalog
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if c.Wines == nil {
		c.Wines = map[string]Wine{}
	}
	return &c, nil
}

// Lookup returns the wine for a barcode, or false for barcodes the catalog
// does not know.
func (c *Catalog) Lookup(barcode string) (Wine, bool) {
	w, ok := c.Wines[barcode]
	return w, ok
}

// FilterByPairing returns the barcodes of wines whose meal or atmosphere
// tags match the given suggestion, in no particular order.
func (c *Catalog) FilterByPairing(tag string) []string {
	var out []string
	for barcode, w := range c.Wines {
		if containsTag(w.MealType, tag) || containsTag(w.Atmosphere, tag) {
			out = append(out, barcode)
		}
	}
	return out
}

// ZoneType maps a wine's type string to its thermal zone drawer class
// (red, white, rose). Unrecognized types return "".
func (c *Catalog) ZoneType(barcode string) string {
	w, ok := c.Wines[barcode]
	if !ok {
		return ""
	}
	t := strings.ToLower(w.Type)
	switch {
	case strings.Contains(t, "rose"), strings.Contains(t, "rosé"), strings.Contains(t, "rosado"):
		return "rose"
	case strings.Contains(t, "white"), strings.Contains(t, "blanco"):
		return "white"
	case strings.Contains(t, "red"), strings.Contains(t, "tinto"):
		return "red"
	}
	return ""
}

func containsTag(tags []string, tag string) bool {
	for _, t := range tags {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}

// Package catalog loads the affiliate products that content is generated for.
package catalog

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/reelkit/reelkit/internal/errclass"
)

// Product is one affiliate product.
type Product struct {
	Name           string  `yaml:"name" json:"name"`
	URL            string  `yaml:"url" json:"url"`
	Price          float64 `yaml:"price" json:"price"`
	CommissionRate float64 `yaml:"commission_rate" json:"commission_rate"`
	Category       string  `yaml:"category,omitempty" json:"category,omitempty"`
	Audience       string  `yaml:"audience,omitempty" json:"audience,omitempty"`
}

// Validate checks the fields that commission math depends on.
func (p Product) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return errclass.NewValidationError("name", "product name is required")
	}
	if p.Price <= 0 {
		return errclass.NewValidationError("price", "product %q price must be positive", p.Name)
	}
	if p.CommissionRate <= 0 || p.CommissionRate > 1 {
		return errclass.NewValidationError("commission_rate", "product %q commission_rate must be in (0, 1]", p.Name)
	}
	return nil
}

// Catalog is an ordered set of products.
type Catalog struct {
	Products []Product `yaml:"products"`
}

// Parse decodes and validates a catalog document.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, errclass.NewValidationError("catalog", "invalid catalog yaml: %v", err)
	}
	if len(c.Products) == 0 {
		return nil, errclass.NewValidationError("products", "catalog has no products")
	}

	seen := make(map[string]struct{}, len(c.Products))
	for idx := range c.Products {
		p := &c.Products[idx]
		p.Name = strings.TrimSpace(p.Name)
		p.Category = strings.ToLower(strings.TrimSpace(p.Category))
		if err := p.Validate(); err != nil {
			return nil, err
		}
		key := strings.ToLower(p.Name)
		if _, dup := seen[key]; dup {
			return nil, errclass.NewValidationError("name", "duplicate product %q", p.Name)
		}
		seen[key] = struct{}{}
	}
	return &c, nil
}

// Load reads a catalog file.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- catalog path is user-provided
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(data)
}

// Find returns the product with name, case-insensitively.
func (c *Catalog) Find(name string) (Product, bool) {
	if c == nil {
		return Product{}, false
	}
	want := strings.ToLower(strings.TrimSpace(name))
	for _, p := range c.Products {
		if strings.ToLower(p.Name) == want {
			return p, true
		}
	}
	return Product{}, false
}

// Names returns the product names sorted.
func (c *Catalog) Names() []string {
	if c == nil {
		return nil
	}
	names := make([]string, 0, len(c.Products))
	for _, p := range c.Products {
		names = append(names, p.Name)
	}
	sort.Strings(names)
	return names
}

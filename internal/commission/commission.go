// Package commission projects affiliate earnings for a product from view counts.
package commission

import (
	"math"

	"github.com/reelkit/reelkit/internal/catalog"
	"github.com/reelkit/reelkit/internal/errclass"
)

// Assumptions describe the funnel from views to sales.
type Assumptions struct {
	Views            int64   `json:"views" mapstructure:"views"`
	ClickThroughRate float64 `json:"click_through_rate" mapstructure:"ctr"`
	ConversionRate   float64 `json:"conversion_rate" mapstructure:"conversion_rate"`
}

// DefaultAssumptions are conservative short-form video funnel rates.
func DefaultAssumptions() Assumptions {
	return Assumptions{Views: 10000, ClickThroughRate: 0.01, ConversionRate: 0.02}
}

// Validate rejects negative views and rates outside [0, 1].
func (a Assumptions) Validate() error {
	if a.Views < 0 {
		return errclass.NewValidationError("views", "views must not be negative")
	}
	if a.ClickThroughRate < 0 || a.ClickThroughRate > 1 {
		return errclass.NewValidationError("ctr", "click-through rate must be in [0, 1]")
	}
	if a.ConversionRate < 0 || a.ConversionRate > 1 {
		return errclass.NewValidationError("conversion_rate", "conversion rate must be in [0, 1]")
	}
	return nil
}

// Estimate is the projected outcome for one product.
type Estimate struct {
	Product      string      `json:"product"`
	Assumptions  Assumptions `json:"assumptions"`
	Clicks       float64     `json:"clicks"`
	Sales        float64     `json:"sales"`
	GrossRevenue float64     `json:"gross_revenue"`
	Commission   float64     `json:"commission"`
	PerSale      float64     `json:"per_sale"`
	PerThousand  float64     `json:"per_thousand_views"`
}

// Calculate projects earnings for product under a.
func Calculate(product catalog.Product, a Assumptions) (Estimate, error) {
	if err := product.Validate(); err != nil {
		return Estimate{}, err
	}
	if err := a.Validate(); err != nil {
		return Estimate{}, err
	}

	clicks := float64(a.Views) * a.ClickThroughRate
	sales := clicks * a.ConversionRate
	perSale := product.Price * product.CommissionRate

	est := Estimate{
		Product:      product.Name,
		Assumptions:  a,
		Clicks:       round(clicks),
		Sales:        round(sales),
		GrossRevenue: round(sales * product.Price),
		Commission:   round(sales * perSale),
		PerSale:      round(perSale),
	}
	if a.Views > 0 {
		est.PerThousand = round(sales * perSale / float64(a.Views) * 1000)
	}
	return est, nil
}

// CalculateAll estimates every product in c, preserving catalog order.
func CalculateAll(c *catalog.Catalog, a Assumptions) ([]Estimate, error) {
	if c == nil {
		return nil, nil
	}
	out := make([]Estimate, 0, len(c.Products))
	for _, p := range c.Products {
		est, err := Calculate(p, a)
		if err != nil {
			return nil, err
		}
		out = append(out, est)
	}
	return out, nil
}

func round(v float64) float64 {
	return math.Round(v*100) / 100
}

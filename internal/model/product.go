package model

import (
	"time"
)

// Product represents a catalog product with its stock level and metadata.
type Product struct {
	ID            int64
	Name          string
	Price         float64
	StockQuantity int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// InitMeta stamps both timestamps with the same current UTC time.
// The ID is assigned by the store on insert.
func (p *Product) InitMeta() {
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now
}

// ProductPatch holds the fields of a partial update. A nil field is left untouched.
type ProductPatch struct {
	Name          *string
	Price         *float64
	StockQuantity *int
}

// Apply copies every present field of the patch onto the product and
// refreshes UpdatedAt.
func (p *Product) Apply(patch ProductPatch) {
	if patch.Name != nil {
		p.Name = *patch.Name
	}
	if patch.Price != nil {
		p.Price = *patch.Price
	}
	if patch.StockQuantity != nil {
		p.StockQuantity = *patch.StockQuantity
	}
	p.UpdatedAt = time.Now().UTC()
}

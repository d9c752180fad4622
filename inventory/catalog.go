package inventory

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
)

// Catalog validates product CRUD before it reaches the store.
type Catalog struct {
	store CatalogStore
}

func NewCatalog(store CatalogStore) *Catalog {
	return &Catalog{store: store}
}

// Create stores a new product and returns it with its id.
func (c *Catalog) Create(ctx context.Context, name string, price decimal.Decimal, stock int) (Product, error) {
	p := Product{Name: strings.TrimSpace(name), Price: price, Stock: stock}
	if err := ValidateProduct(p); err != nil {
		return Product{}, err
	}
	created, err := c.store.CreateProduct(ctx, p)
	if err != nil {
		return Product{}, Unavailable("catalog.create", err)
	}
	return created, nil
}

// Get returns a product. ErrNotFound if it doesn't exist.
func (c *Catalog) Get(ctx context.Context, id ProductID) (Product, error) {
	if id <= 0 {
		return Product{}, invalid("product_id", "must be positive")
	}
	p, err := c.store.GetProduct(ctx, id)
	if err != nil {
		return Product{}, Unavailable("catalog.get", err)
	}
	if p == nil {
		return Product{}, productNotFound(id)
	}
	return *p, nil
}

// List returns all products ordered by id.
func (c *Catalog) List(ctx context.Context) ([]Product, error) {
	products, err := c.store.ListProducts(ctx)
	if err != nil {
		return nil, Unavailable("catalog.list", err)
	}
	if products == nil {
		products = []Product{}
	}
	return products, nil
}

// Update applies a partial update and returns the stored product.
// Only the fields set in u are written.
func (c *Catalog) Update(ctx context.Context, id ProductID, u ProductUpdate) (Product, error) {
	if id <= 0 {
		return Product{}, invalid("product_id", "must be positive")
	}
	if u.Name != nil {
		trimmed := strings.TrimSpace(*u.Name)
		u.Name = &trimmed
	}
	if err := ValidateUpdate(u); err != nil {
		return Product{}, err
	}
	if u.IsEmpty() {
		return c.Get(ctx, id)
	}
	updated, err := c.store.UpdateProduct(ctx, id, u)
	if err != nil {
		return Product{}, Unavailable("catalog.update", err)
	}
	return updated, nil
}

// Delete removes a product. Sale history keeps its snapshot of the name
// and unit price.
func (c *Catalog) Delete(ctx context.Context, id ProductID) error {
	if id <= 0 {
		return invalid("product_id", "must be positive")
	}
	if err := c.store.DeleteProduct(ctx, id); err != nil {
		return Unavailable("catalog.delete", err)
	}
	return nil
}

// ValidateProduct checks the catalog invariants on p.
func ValidateProduct(p Product) error {
	if strings.TrimSpace(p.Name) == "" {
		return invalid("name", "must not be empty")
	}
	if p.Price.IsNegative() {
		return invalid("price", "must not be negative")
	}
	if p.Stock < 0 {
		return invalid("stock", "must not be negative")
	}
	return nil
}

// ValidateUpdate checks the fields u sets against the same invariants.
func ValidateUpdate(u ProductUpdate) error {
	if u.Name != nil && strings.TrimSpace(*u.Name) == "" {
		return invalid("name", "must not be empty")
	}
	if u.Price != nil && u.Price.IsNegative() {
		return invalid("price", "must not be negative")
	}
	if u.Stock != nil && *u.Stock < 0 {
		return invalid("stock", "must not be negative")
	}
	return nil
}

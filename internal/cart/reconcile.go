package cart

import (
	"context"

	"github.com/shopspring/decimal"
)

// Line is one cart line as returned to clients and kept in the cache.
type Line struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Weight    decimal.Decimal `json:"weight"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

// OrderedItem is a purchased quantity to subtract from a cart.
type OrderedItem struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// lineStore is the cart surface reconciliation needs. FindLine returns nil
// when the product is not in the cart.
type lineStore interface {
	FindLine(ctx context.Context, productID string) (*Line, error)
	DeleteLine(ctx context.Context, productID string) error
	SetQuantity(ctx context.Context, productID string, quantity int, subtotal decimal.Decimal) error
}

// Reconcile subtracts ordered quantities from the cart held by store. Lines
// missing from the cart are skipped, lines bought in full are removed and the
// rest are decremented with the subtotal recomputed from the cart's own
// unit price. Running it twice with the same items never goes negative.
func Reconcile(ctx context.Context, store lineStore, ordered []OrderedItem) error {
	for _, item := range ordered {
		if item.ProductID == "" || item.Quantity <= 0 {
			continue
		}
		line, err := store.FindLine(ctx, item.ProductID)
		if err != nil {
			return err
		}
		if line == nil {
			continue
		}
		if line.Quantity <= item.Quantity {
			if err := store.DeleteLine(ctx, item.ProductID); err != nil {
				return err
			}
			continue
		}
		remaining := line.Quantity - item.Quantity
		subtotal := line.UnitPrice.Mul(decimal.NewFromInt(int64(remaining)))
		if err := store.SetQuantity(ctx, item.ProductID, remaining, subtotal); err != nil {
			return err
		}
	}
	return nil
}

// ReconcileGuest applies Reconcile to a guest cart held by the client and
// returns the remaining lines in their original order. lines is not modified.
func ReconcileGuest(lines []Line, ordered []OrderedItem) []Line {
	store := &guestLines{lines: append([]Line(nil), lines...)}
	// guestLines never fails.
	_ = Reconcile(context.Background(), store, ordered)
	return store.lines
}

type guestLines struct {
	lines []Line
}

func (g *guestLines) index(productID string) int {
	for i := range g.lines {
		if g.lines[i].ProductID == productID {
			return i
		}
	}
	return -1
}

func (g *guestLines) FindLine(ctx context.Context, productID string) (*Line, error) {
	idx := g.index(productID)
	if idx < 0 {
		return nil, nil
	}
	line := g.lines[idx]
	return &line, nil
}

func (g *guestLines) DeleteLine(ctx context.Context, productID string) error {
	if idx := g.index(productID); idx >= 0 {
		g.lines = append(g.lines[:idx], g.lines[idx+1:]...)
	}
	return nil
}

func (g *guestLines) SetQuantity(ctx context.Context, productID string, quantity int, subtotal decimal.Decimal) error {
	if idx := g.index(productID); idx >= 0 {
		g.lines[idx].Quantity = quantity
		g.lines[idx].Subtotal = subtotal
	}
	return nil
}

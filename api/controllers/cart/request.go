package cart

import (
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/api/validators"
	"github.com/angelmondragon/storefront-backend/internal/cart"
)

type lineRequest struct {
	ProductID string          `json:"product_id" validate:"required,max=64"`
	Name      string          `json:"name" validate:"required,max=200"`
	Quantity  int             `json:"quantity" validate:"gt=0"`
	UnitPrice decimal.Decimal `json:"unit_price" validate:"gte=0"`
	Weight    decimal.Decimal `json:"weight" validate:"gte=0"`
}

type quantityRequest struct {
	Quantity int `json:"quantity" validate:"gte=0"`
}

type syncRequest struct {
	Items []lineRequest `json:"items" validate:"dive"`
}

type orderedItemRequest struct {
	ProductID string `json:"product_id" validate:"required,max=64"`
	Quantity  int    `json:"quantity" validate:"gt=0"`
}

type removeOrderedRequest struct {
	Items []orderedItemRequest `json:"items" validate:"required,min=1,dive"`
}

type guestLineRequest struct {
	ProductID string          `json:"product_id" validate:"required,max=64"`
	Name      string          `json:"name" validate:"omitempty,max=200"`
	Quantity  int             `json:"quantity" validate:"gte=0"`
	UnitPrice decimal.Decimal `json:"unit_price" validate:"gte=0"`
	Weight    decimal.Decimal `json:"weight" validate:"gte=0"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

type guestReconcileRequest struct {
	Lines   []guestLineRequest   `json:"lines" validate:"dive"`
	Ordered []orderedItemRequest `json:"ordered" validate:"dive"`
}

type guestCartResponse struct {
	Items         []cart.Line     `json:"items"`
	TotalQuantity int             `json:"total_quantity"`
	Subtotal      decimal.Decimal `json:"subtotal"`
}

func (l lineRequest) toInput() cart.AddInput {
	return cart.AddInput{
		ProductID: validators.SanitizeString(l.ProductID, 64),
		Name:      validators.SanitizeString(l.Name, 200),
		Quantity:  l.Quantity,
		UnitPrice: l.UnitPrice,
		Weight:    l.Weight,
	}
}

func toOrderedItems(items []orderedItemRequest) []cart.OrderedItem {
	ordered := make([]cart.OrderedItem, 0, len(items))
	for _, item := range items {
		ordered = append(ordered, cart.OrderedItem{
			ProductID: validators.SanitizeString(item.ProductID, 64),
			Quantity:  item.Quantity,
		})
	}
	return ordered
}

func toGuestLines(lines []guestLineRequest) []cart.Line {
	out := make([]cart.Line, 0, len(lines))
	for _, line := range lines {
		out = append(out, cart.Line{
			ProductID: validators.SanitizeString(line.ProductID, 64),
			Name:      line.Name,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
			Weight:    line.Weight,
			Subtotal:  line.Subtotal,
		})
	}
	return out
}

func newGuestCartResponse(lines []cart.Line) guestCartResponse {
	resp := guestCartResponse{Items: lines, Subtotal: decimal.Zero}
	if resp.Items == nil {
		resp.Items = []cart.Line{}
	}
	for _, line := range resp.Items {
		resp.TotalQuantity += line.Quantity
		resp.Subtotal = resp.Subtotal.Add(line.Subtotal)
	}
	return resp
}

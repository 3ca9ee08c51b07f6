package client

import (
	"context"
	"fmt"
	"net/http"
)

// PurchaseSummary — строка списка прошлых покупок.
type PurchaseSummary struct {
	ID        int64   `json:"id"`
	Date      string  `json:"fecha"`
	Total     float64 `json:"total"`
	Shipping  float64 `json:"envio"`
	ItemCount int     `json:"cantidad_items"`
}

// PurchaseLine — неизменяемый снимок строки покупки.
type PurchaseLine struct {
	ProductID int64   `json:"producto_id"`
	Name      string  `json:"nombre"`
	UnitPrice float64 `json:"precio_unitario"`
	Quantity  int     `json:"cantidad"`
	Subtotal  float64 `json:"subtotal"`
}

// PurchaseDetail — полные данные одной покупки.
type PurchaseDetail struct {
	ID       int64          `json:"id"`
	Date     string         `json:"fecha"`
	Address  string         `json:"direccion"`
	Card     string         `json:"tarjeta"`
	Lines    []PurchaseLine `json:"items"`
	Subtotal float64        `json:"subtotal"`
	Shipping float64        `json:"envio"`
	Total    float64        `json:"total"`
}

// ListPurchases возвращает историю покупок текущего пользователя.
func (c *Client) ListPurchases(ctx context.Context) ([]PurchaseSummary, error) {
	if !c.session.IsAuthenticated() {
		return nil, ErrNotAuthenticated
	}

	var res []PurchaseSummary
	if err := c.do(ctx, http.MethodGet, "/compras", nil, &res); err != nil {
		return nil, err
	}
	return res, nil
}

// GetPurchase возвращает детали покупки по идентификатору.
func (c *Client) GetPurchase(ctx context.Context, id int64) (*PurchaseDetail, error) {
	if !c.session.IsAuthenticated() {
		return nil, ErrNotAuthenticated
	}

	var res PurchaseDetail
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/compras/%d", id), nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

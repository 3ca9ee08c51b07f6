package client

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/AlejandroDiBattista/TUP25-P4/internal/catalog"
)

// CartLine — строка корзины в ответе сервера. Подсчёты принадлежат серверу,
// клиент их не пересчитывает и не корректирует.
type CartLine struct {
	ProductID int64   `json:"producto_id"`
	Name      string  `json:"nombre"`
	Category  string  `json:"categoria"`
	UnitPrice float64 `json:"precio"`
	Quantity  int     `json:"cantidad"`
	Subtotal  float64 `json:"subtotal"`
	Stock     int     `json:"stock_disponible"`
	Image     string  `json:"imagen"`
}

// Cart — снимок корзины c итогами, рассчитанными сервером.
type Cart struct {
	Lines    []CartLine `json:"items"`
	Subtotal float64    `json:"subtotal"`
	Tax      float64    `json:"iva"`
	Shipping float64    `json:"envio"`
	Total    float64    `json:"total"`
}

// Quantity возвращает количество товара в снимке корзины.
func (c *Cart) Quantity(productID int64) int {
	if c == nil {
		return 0
	}
	for _, l := range c.Lines {
		if l.ProductID == productID {
			return l.Quantity
		}
	}
	return 0
}

// CheckoutResult — итоги оформленной покупки.
type CheckoutResult struct {
	PurchaseID int64   `json:"compra_id"`
	Subtotal   float64 `json:"subtotal"`
	Tax        float64 `json:"iva"`
	Shipping   float64 `json:"envio"`
	Total      float64 `json:"total"`
}

// CartSynchronizer держит локальный снимок серверной корзины. Контракт
// обновления: каждая успешная мутация завершается полной перезагрузкой
// корзины до возврата из метода; при неудачной мутации перезагрузка не
// выполняется и остаётся последний известный снимок. Методы рассчитаны
// на последовательные вызовы, поэтому устаревший ответ не может
// перезаписать более новый.
type CartSynchronizer struct {
	client   *Client
	logger   *zap.SugaredLogger
	snapshot *Cart
}

// NewCartSynchronizer создаёт синхронизатор корзины поверх клиента API.
func NewCartSynchronizer(c *Client, logger *zap.SugaredLogger) *CartSynchronizer {
	return &CartSynchronizer{
		client: c,
		logger: logger,
	}
}

// Snapshot возвращает последний известный снимок корзины; nil до первой загрузки.
func (s *CartSynchronizer) Snapshot() *Cart {
	return s.snapshot
}

// Refresh запрашивает у сервера авторитетное состояние корзины.
func (s *CartSynchronizer) Refresh(ctx context.Context) error {
	if !s.client.session.IsAuthenticated() {
		return ErrNotAuthenticated
	}

	var cart Cart
	if err := s.client.do(ctx, http.MethodGet, "/carrito", nil, &cart); err != nil {
		return err
	}

	s.snapshot = &cart
	return nil
}

type addToCartRequest struct {
	ProductID int64 `json:"producto_id"`
	Quantity  int   `json:"cantidad"`
}

// Add добавляет товар в корзину. Нехватка остатка с учётом уже лежащего
// в корзине количества фиксируется локально, без сетевого вызова.
func (s *CartSynchronizer) Add(ctx context.Context, p catalog.Product, qty int) error {
	if !s.client.session.IsAuthenticated() {
		return ErrNotAuthenticated
	}
	if qty <= 0 {
		return fmt.Errorf("quantity must be positive")
	}

	if qty > p.Stock-s.snapshot.Quantity(p.ID) {
		return fmt.Errorf("%w: product %d", ErrNoStock, p.ID)
	}

	err := s.client.do(ctx, http.MethodPost, "/carrito/agregar", addToCartRequest{
		ProductID: p.ID,
		Quantity:  qty,
	}, nil)

	return s.finish(ctx, "add to cart", err)
}

// Remove убирает товар из корзины целиком.
func (s *CartSynchronizer) Remove(ctx context.Context, productID int64) error {
	if !s.client.session.IsAuthenticated() {
		return ErrNotAuthenticated
	}

	path := fmt.Sprintf("/carrito/quitar/%d", productID)
	err := s.client.do(ctx, http.MethodDelete, path, nil, nil)

	return s.finish(ctx, "remove from cart", err)
}

type setQuantityRequest struct {
	Quantity int `json:"cantidad"`
}

// SetQuantity выставляет точное количество товара. Отрицательные значения
// прижимаются к нулю, ноль означает удаление позиции.
func (s *CartSynchronizer) SetQuantity(ctx context.Context, productID int64, qty int) error {
	if !s.client.session.IsAuthenticated() {
		return ErrNotAuthenticated
	}
	if qty < 0 {
		qty = 0
	}

	path := fmt.Sprintf("/carrito/%d", productID)
	err := s.client.do(ctx, http.MethodPut, path, setQuantityRequest{Quantity: qty}, nil)

	return s.finish(ctx, "set quantity", err)
}

// Increment увеличивает количество товара на единицу от текущего снимка.
func (s *CartSynchronizer) Increment(ctx context.Context, productID int64) error {
	return s.SetQuantity(ctx, productID, s.snapshot.Quantity(productID)+1)
}

// Decrement уменьшает количество товара на единицу от текущего снимка.
func (s *CartSynchronizer) Decrement(ctx context.Context, productID int64) error {
	return s.SetQuantity(ctx, productID, s.snapshot.Quantity(productID)-1)
}

// Clear опустошает корзину на сервере.
func (s *CartSynchronizer) Clear(ctx context.Context) error {
	if !s.client.session.IsAuthenticated() {
		return ErrNotAuthenticated
	}

	err := s.client.do(ctx, http.MethodPost, "/carrito/cancelar", nil, nil)

	return s.finish(ctx, "clear cart", err)
}

type checkoutRequest struct {
	Address string `json:"direccion"`
	Card    string `json:"tarjeta"`
}

// Checkout оформляет покупку из текущей корзины.
func (s *CartSynchronizer) Checkout(ctx context.Context, address, card string) (*CheckoutResult, error) {
	if !s.client.session.IsAuthenticated() {
		return nil, ErrNotAuthenticated
	}

	var result CheckoutResult
	err := s.client.do(ctx, http.MethodPost, "/carrito/finalizar", checkoutRequest{
		Address: address,
		Card:    card,
	}, &result)
	if err := s.finish(ctx, "checkout", err); err != nil {
		return nil, err
	}

	return &result, nil
}

// finish применяет контракт обновления: только успешная мутация
// перезагружает корзину, неудачная логируется и оставляет старый снимок.
func (s *CartSynchronizer) finish(ctx context.Context, op string, err error) error {
	if err != nil {
		s.logger.Errorw(op+" failed", "error", err)
		return err
	}

	if err := s.Refresh(ctx); err != nil {
		s.logger.Errorw("cart refresh failed", "op", op, "error", err)
		return err
	}
	return nil
}

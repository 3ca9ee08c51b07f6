// Package handler содержит HTTP-обработчики API магазина.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/AlejandroDiBattista/TUP25-P4/internal/middleware"
	"github.com/AlejandroDiBattista/TUP25-P4/internal/model"
	"github.com/AlejandroDiBattista/TUP25-P4/internal/repository"
	"github.com/AlejandroDiBattista/TUP25-P4/internal/service"
)

// Service определяет контракт бизнес-логики, используемой HTTP-обработчиками.
type Service interface {
	RegisterUser(ctx context.Context, name, email, password string) error
	AuthenticateUser(ctx context.Context, email, password string) (*model.User, error)
	GetUser(ctx context.Context, id int64) (*model.User, error)
	RevokeToken(ctx context.Context, jti uuid.UUID) error
	ListProducts(ctx context.Context, category, search string) ([]model.Product, error)
	GetProduct(ctx context.Context, id int64) (*model.Product, error)
	GetCart(ctx context.Context, userID int64) (model.Cart, error)
	AddToCart(ctx context.Context, userID, productID int64, qty int) error
	SetCartQuantity(ctx context.Context, userID, productID int64, qty int) error
	RemoveFromCart(ctx context.Context, userID, productID int64) error
	ClearCart(ctx context.Context, userID int64) error
	Checkout(ctx context.Context, userID int64, address, card string) (*model.Purchase, model.Cart, error)
	ListPurchases(ctx context.Context, userID int64) ([]repository.PurchaseSummary, error)
	GetPurchase(ctx context.Context, userID, purchaseID int64) (*model.Purchase, []model.PurchaseItem, error)
}

// Handler реализует HTTP-обработчики API магазина.
type Handler struct {
	service        Service
	logger         *zap.Logger
	authMiddleware *middleware.AuthMiddleware
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
func NewHandler(s Service, logger *zap.Logger, auth *middleware.AuthMiddleware) *Handler {
	return &Handler{
		service:        s,
		logger:         logger,
		authMiddleware: auth,
	}
}

func pesos(cents int64) float64 {
	return float64(cents) / 100
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeDetail отвечает ошибкой в формате {"detail": ...}, как это делает бэкенд курса.
func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"mensaje": msg})
}

type registerRequest struct {
	Name     string `json:"nombre"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register обрабатывает регистрацию нового пользователя.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusBadRequest, "cuerpo de la petición inválido")
		return
	}

	err := h.service.RegisterUser(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrValidation):
			writeDetail(w, http.StatusUnprocessableEntity, err.Error())
		case errors.Is(err, repository.ErrUserExists):
			writeDetail(w, http.StatusBadRequest, "El email ya existe")
		default:
			h.logger.Error("register user error", zap.Error(err))
			writeDetail(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
		}
		return
	}

	writeMessage(w, http.StatusCreated, "Usuario registrado correctamente")
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	Name        string `json:"nombre"`
	Email       string `json:"email"`
}

// Login выполняет аутентификацию пользователя и выдачу токена доступа.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusBadRequest, "cuerpo de la petición inválido")
		return
	}

	user, err := h.service.AuthenticateUser(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			writeDetail(w, http.StatusUnauthorized, "Credenciales inválidas")
			return
		}
		h.logger.Error("login user error", zap.Error(err))
		writeDetail(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
		return
	}

	token, err := h.authMiddleware.IssueToken(user.ID)
	if err != nil {
		h.logger.Error("issue token error", zap.Error(err))
		writeDetail(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
		return
	}

	writeJSON(w, http.StatusOK, tokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
		Name:        user.Name,
		Email:       user.Email,
	})
}

// Logout отзывает текущий токен доступа.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	jti, ok := middleware.GetTokenIDFromContext(r.Context())
	if !ok {
		writeDetail(w, http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
		return
	}

	if err := h.service.RevokeToken(r.Context(), jti); err != nil {
		h.logger.Error("revoke token error", zap.Error(err))
		writeDetail(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
		return
	}

	writeMessage(w, http.StatusOK, "Sesión cerrada correctamente")
}

type userResponse struct {
	Name  string `json:"nombre"`
	Email string `json:"email"`
}

// CurrentUser возвращает профиль текущего пользователя.
func (h *Handler) CurrentUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeDetail(w, http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
		return
	}

	user, err := h.service.GetUser(r.Context(), userID)
	if err != nil {
		h.logger.Error("get user error", zap.Error(err), zap.Int64("userID", userID))
		writeDetail(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
		return
	}

	writeJSON(w, http.StatusOK, userResponse{Name: user.Name, Email: user.Email})
}

type productResponse struct {
	ID          int64   `json:"id"`
	Name        string  `json:"nombre"`
	Description string  `json:"descripcion"`
	Price       float64 `json:"precio"`
	Category    string  `json:"categoria"`
	Rating      float64 `json:"valoracion"`
	Stock       int     `json:"existencia"`
	Image       string  `json:"imagen"`
}

func toProductResponse(p model.Product) productResponse {
	return productResponse{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       pesos(p.PriceCents),
		Category:    p.Category,
		Rating:      p.Rating,
		Stock:       p.Stock,
		Image:       p.Image,
	}
}

// ListProducts возвращает каталог, опционально суженный параметрами categoria и buscar.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.service.ListProducts(r.Context(), r.URL.Query().Get("categoria"), r.URL.Query().Get("buscar"))
	if err != nil {
		h.logger.Error("list products error", zap.Error(err))
		writeDetail(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
		return
	}

	resp := make([]productResponse, 0, len(products))
	for _, p := range products {
		resp = append(resp, toProductResponse(p))
	}

	writeJSON(w, http.StatusOK, resp)
}

// GetProduct возвращает один товар каталога.
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "identificador inválido")
		return
	}

	p, err := h.service.GetProduct(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			writeDetail(w, http.StatusNotFound, "Producto no encontrado")
			return
		}
		h.logger.Error("get product error", zap.Error(err), zap.Int64("productID", id))
		writeDetail(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
		return
	}

	writeJSON(w, http.StatusOK, toProductResponse(*p))
}

type cartLineResponse struct {
	ProductID int64   `json:"producto_id"`
	Name      string  `json:"nombre"`
	Category  string  `json:"categoria"`
	Price     float64 `json:"precio"`
	Quantity  int     `json:"cantidad"`
	Subtotal  float64 `json:"subtotal"`
	Stock     int     `json:"stock_disponible"`
	Image     string  `json:"imagen"`
}

type cartResponse struct {
	Items    []cartLineResponse `json:"items"`
	Subtotal float64            `json:"subtotal"`
	Tax      float64            `json:"iva"`
	Shipping float64            `json:"envio"`
	Total    float64            `json:"total"`
}

func toCartResponse(cart model.Cart) cartResponse {
	items := make([]cartLineResponse, 0, len(cart.Lines))
	for _, l := range cart.Lines {
		items = append(items, cartLineResponse{
			ProductID: l.ProductID,
			Name:      l.Name,
			Category:  l.Category,
			Price:     pesos(l.PriceCents),
			Quantity:  l.Quantity,
			Subtotal:  pesos(l.SubtotalCents),
			Stock:     l.Stock,
			Image:     l.Image,
		})
	}

	return cartResponse{
		Items:    items,
		Subtotal: pesos(cart.SubtotalCents),
		Tax:      pesos(cart.TaxCents),
		Shipping: pesos(cart.ShippingCents),
		Total:    pesos(cart.TotalCents),
	}
}

// GetCart возвращает корзину текущего пользователя.
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeDetail(w, http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
		return
	}

	cart, err := h.service.GetCart(r.Context(), userID)
	if err != nil {
		h.logger.Error("get cart error", zap.Error(err), zap.Int64("userID", userID))
		writeDetail(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
		return
	}

	writeJSON(w, http.StatusOK, toCartResponse(cart))
}

type addToCartRequest struct {
	ProductID int64 `json:"producto_id"`
	Quantity  int   `json:"cantidad"`
}

// AddToCart добавляет товар в корзину текущего пользователя.
func (h *Handler) AddToCart(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeDetail(w, http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
		return
	}

	var req addToCartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusBadRequest, "cuerpo de la petición inválido")
		return
	}

	if err := h.service.AddToCart(r.Context(), userID, req.ProductID, req.Quantity); err != nil {
		h.writeCartError(w, r, err, userID)
		return
	}

	writeMessage(w, http.StatusOK, "Producto agregado al carrito correctamente")
}

type setQuantityRequest struct {
	Quantity int `json:"cantidad"`
}

// SetQuantity выставляет точное количество товара в корзине.
func (h *Handler) SetQuantity(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeDetail(w, http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
		return
	}

	productID, err := strconv.ParseInt(chi.URLParam(r, "productoID"), 10, 64)
	if err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "identificador inválido")
		return
	}

	var req setQuantityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusBadRequest, "cuerpo de la petición inválido")
		return
	}

	if err := h.service.SetCartQuantity(r.Context(), userID, productID, req.Quantity); err != nil {
		h.writeCartError(w, r, err, userID)
		return
	}

	if req.Quantity == 0 {
		writeMessage(w, http.StatusOK, "Producto eliminado")
		return
	}
	writeMessage(w, http.StatusOK, "Cantidad actualizada correctamente")
}

// RemoveFromCart убирает товар из корзины целиком.
func (h *Handler) RemoveFromCart(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeDetail(w, http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
		return
	}

	productID, err := strconv.ParseInt(chi.URLParam(r, "productoID"), 10, 64)
	if err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "identificador inválido")
		return
	}

	if err := h.service.RemoveFromCart(r.Context(), userID, productID); err != nil {
		h.writeCartError(w, r, err, userID)
		return
	}

	writeMessage(w, http.StatusOK, "Producto eliminado del carrito")
}

// ClearCart опустошает корзину текущего пользователя.
func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeDetail(w, http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
		return
	}

	if err := h.service.ClearCart(r.Context(), userID); err != nil {
		h.logger.Error("clear cart error", zap.Error(err), zap.Int64("userID", userID))
		writeDetail(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
		return
	}

	writeMessage(w, http.StatusOK, "Carrito vaciado correctamente")
}

func (h *Handler) writeCartError(w http.ResponseWriter, r *http.Request, err error, userID int64) {
	switch {
	case errors.Is(err, service.ErrValidation):
		writeDetail(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, repository.ErrProductNotFound):
		writeDetail(w, http.StatusNotFound, "Producto no encontrado")
	case errors.Is(err, repository.ErrCartItemNotFound):
		writeDetail(w, http.StatusNotFound, "Producto no está en el carrito")
	case errors.Is(err, repository.ErrInsufficientStock):
		writeDetail(w, http.StatusBadRequest, "Stock insuficiente")
	default:
		h.logger.Error("cart operation error", zap.Error(err), zap.Int64("userID", userID), zap.String("path", r.URL.Path))
		writeDetail(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
	}
}

type checkoutRequest struct {
	Address string `json:"direccion"`
	Card    string `json:"tarjeta"`
}

type checkoutResponse struct {
	PurchaseID int64   `json:"compra_id"`
	Subtotal   float64 `json:"subtotal"`
	Tax        float64 `json:"iva"`
	Shipping   float64 `json:"envio"`
	Total      float64 `json:"total"`
}

// Checkout оформляет покупку из активной корзины.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeDetail(w, http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
		return
	}

	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusBadRequest, "cuerpo de la petición inválido")
		return
	}

	purchase, cart, err := h.service.Checkout(r.Context(), userID, req.Address, req.Card)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrValidation):
			writeDetail(w, http.StatusUnprocessableEntity, err.Error())
		case errors.Is(err, repository.ErrCartEmpty):
			writeDetail(w, http.StatusBadRequest, "El carrito está vacío")
		case errors.Is(err, repository.ErrInsufficientStock):
			writeDetail(w, http.StatusBadRequest, "Stock insuficiente al finalizar compra")
		default:
			h.logger.Error("checkout error", zap.Error(err), zap.Int64("userID", userID))
			writeDetail(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
		}
		return
	}

	writeJSON(w, http.StatusOK, checkoutResponse{
		PurchaseID: purchase.ID,
		Subtotal:   pesos(cart.SubtotalCents),
		Tax:        pesos(cart.TaxCents),
		Shipping:   pesos(cart.ShippingCents),
		Total:      pesos(cart.TotalCents),
	})
}

type purchaseSummaryResponse struct {
	ID        int64   `json:"id"`
	Date      string  `json:"fecha"`
	Total     float64 `json:"total"`
	Shipping  float64 `json:"envio"`
	ItemCount int     `json:"cantidad_items"`
}

// ListPurchases возвращает историю покупок текущего пользователя, новые первыми.
func (h *Handler) ListPurchases(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeDetail(w, http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
		return
	}

	purchases, err := h.service.ListPurchases(r.Context(), userID)
	if err != nil {
		h.logger.Error("list purchases error", zap.Error(err), zap.Int64("userID", userID))
		writeDetail(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
		return
	}

	resp := make([]purchaseSummaryResponse, 0, len(purchases))
	for _, p := range purchases {
		resp = append(resp, purchaseSummaryResponse{
			ID:        p.ID,
			Date:      p.Date.Format(time.RFC3339),
			Total:     pesos(p.TotalCents),
			Shipping:  pesos(p.ShippingCents),
			ItemCount: p.ItemCount,
		})
	}

	writeJSON(w, http.StatusOK, resp)
}

type purchaseLineResponse struct {
	ProductID int64   `json:"producto_id"`
	Name      string  `json:"nombre"`
	UnitPrice float64 `json:"precio_unitario"`
	Quantity  int     `json:"cantidad"`
	Subtotal  float64 `json:"subtotal"`
}

type purchaseDetailResponse struct {
	ID       int64                  `json:"id"`
	Date     string                 `json:"fecha"`
	Address  string                 `json:"direccion"`
	Card     string                 `json:"tarjeta"`
	Items    []purchaseLineResponse `json:"items"`
	Subtotal float64                `json:"subtotal"`
	Shipping float64                `json:"envio"`
	Total    float64                `json:"total"`
}

// GetPurchase возвращает детали одной покупки текущего пользователя.
func (h *Handler) GetPurchase(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeDetail(w, http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
		return
	}

	purchaseID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "identificador inválido")
		return
	}

	purchase, items, err := h.service.GetPurchase(r.Context(), userID, purchaseID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrPurchaseNotFound):
			writeDetail(w, http.StatusNotFound, "Compra no encontrada")
		case errors.Is(err, repository.ErrPurchaseForbidden):
			writeDetail(w, http.StatusForbidden, "No autorizado")
		default:
			h.logger.Error("get purchase error", zap.Error(err), zap.Int64("userID", userID), zap.Int64("purchaseID", purchaseID))
			writeDetail(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
		}
		return
	}

	var subtotalCents int64
	lines := make([]purchaseLineResponse, 0, len(items))
	for _, it := range items {
		lineSubtotal := it.UnitPriceCents * int64(it.Quantity)
		subtotalCents += lineSubtotal

		lines = append(lines, purchaseLineResponse{
			ProductID: it.ProductID,
			Name:      it.Name,
			UnitPrice: pesos(it.UnitPriceCents),
			Quantity:  it.Quantity,
			Subtotal:  pesos(lineSubtotal),
		})
	}

	writeJSON(w, http.StatusOK, purchaseDetailResponse{
		ID:       purchase.ID,
		Date:     purchase.Date.Format(time.RFC3339),
		Address:  purchase.Address,
		Card:     purchase.Card,
		Items:    lines,
		Subtotal: pesos(subtotalCents),
		Shipping: pesos(purchase.ShippingCents),
		Total:    pesos(purchase.TotalCents),
	})
}

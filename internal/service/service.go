// Package service реализует бизнес-логику сервера магазина.
package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/AlejandroDiBattista/TUP25-P4/internal/model"
	"github.com/AlejandroDiBattista/TUP25-P4/internal/repository"
)

// ErrInvalidCredentials возвращается при неверной паре email/пароль.
var ErrInvalidCredentials = errors.New("invalid credentials")

// ErrValidation помечает нарушения предусловий входных данных.
var ErrValidation = errors.New("validation error")

var (
	emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	cardPattern  = regexp.MustCompile(`^\d{16}$`)
)

// Repository описывает контракт доступа к данным, используемый сервисом.
type Repository interface {
	Close() error
	CreateUser(ctx context.Context, name, email string, passwordHash []byte) (int64, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	GetUserByID(ctx context.Context, id int64) (*model.User, error)
	ListProducts(ctx context.Context, category, search string) ([]model.Product, error)
	GetProduct(ctx context.Context, id int64) (*model.Product, error)
	GetCartLines(ctx context.Context, userID int64) ([]model.CartLine, error)
	AddCartItem(ctx context.Context, userID, productID int64, qty int) error
	SetCartItemQuantity(ctx context.Context, userID, productID int64, qty int) error
	RemoveCartItem(ctx context.Context, userID, productID int64) error
	ClearCart(ctx context.Context, userID int64) error
	Checkout(ctx context.Context, userID int64, address, card string) (*model.Purchase, model.Cart, error)
	ListPurchases(ctx context.Context, userID int64) ([]repository.PurchaseSummary, error)
	GetPurchase(ctx context.Context, userID, purchaseID int64) (*model.Purchase, []model.PurchaseItem, error)
	RevokeToken(ctx context.Context, jti uuid.UUID) error
	IsTokenRevoked(ctx context.Context, jti uuid.UUID) (bool, error)
}

// Service содержит бизнес-логику сервера магазина.
type Service struct {
	repo Repository
}

// NewService создаёт новый сервис с указанным репозиторием.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Close закрывает ресурсы сервиса.
func (s *Service) Close() error {
	if s.repo != nil {
		return s.repo.Close()
	}
	return nil
}

// RegisterUser регистрирует нового пользователя. Аутентификацию не выполняет.
func (s *Service) RegisterUser(ctx context.Context, name, email, password string) error {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)

	if len(name) < 3 {
		return fmt.Errorf("%w: el nombre debe tener al menos 3 caracteres", ErrValidation)
	}
	if !emailPattern.MatchString(email) {
		return fmt.Errorf("%w: email inválido", ErrValidation)
	}
	if len(password) < 6 {
		return fmt.Errorf("%w: la contraseña debe tener al menos 6 caracteres", ErrValidation)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	if _, err := s.repo.CreateUser(ctx, name, email, hash); err != nil {
		return err
	}
	return nil
}

// AuthenticateUser проверяет email и пароль и возвращает пользователя.
func (s *Service) AuthenticateUser(ctx context.Context, email, password string) (*model.User, error) {
	u, err := s.repo.GetUserByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return u, nil
}

// GetUser возвращает пользователя по идентификатору.
func (s *Service) GetUser(ctx context.Context, id int64) (*model.User, error) {
	return s.repo.GetUserByID(ctx, id)
}

// RevokeToken отзывает токен с указанным jti.
func (s *Service) RevokeToken(ctx context.Context, jti uuid.UUID) error {
	return s.repo.RevokeToken(ctx, jti)
}

// ListProducts возвращает каталог, при необходимости суженный по категории и поиску.
func (s *Service) ListProducts(ctx context.Context, category, search string) ([]model.Product, error) {
	return s.repo.ListProducts(ctx, category, search)
}

// GetProduct возвращает товар по идентификатору.
func (s *Service) GetProduct(ctx context.Context, id int64) (*model.Product, error) {
	return s.repo.GetProduct(ctx, id)
}

// GetCart возвращает корзину пользователя с рассчитанными итогами.
func (s *Service) GetCart(ctx context.Context, userID int64) (model.Cart, error) {
	lines, err := s.repo.GetCartLines(ctx, userID)
	if err != nil {
		return model.Cart{}, err
	}
	return model.ComputeCart(lines), nil
}

// AddToCart добавляет товар в корзину пользователя.
func (s *Service) AddToCart(ctx context.Context, userID, productID int64, qty int) error {
	if qty <= 0 {
		return fmt.Errorf("%w: la cantidad debe ser mayor a cero", ErrValidation)
	}
	return s.repo.AddCartItem(ctx, userID, productID, qty)
}

// SetCartQuantity выставляет точное количество позиции; ноль удаляет её,
// отрицательные значения отклоняются.
func (s *Service) SetCartQuantity(ctx context.Context, userID, productID int64, qty int) error {
	if qty < 0 {
		return fmt.Errorf("%w: la cantidad no puede ser negativa", ErrValidation)
	}
	return s.repo.SetCartItemQuantity(ctx, userID, productID, qty)
}

// RemoveFromCart убирает товар из корзины.
func (s *Service) RemoveFromCart(ctx context.Context, userID, productID int64) error {
	return s.repo.RemoveCartItem(ctx, userID, productID)
}

// ClearCart опустошает корзину пользователя.
func (s *Service) ClearCart(ctx context.Context, userID int64) error {
	return s.repo.ClearCart(ctx, userID)
}

// Checkout оформляет покупку из активной корзины.
func (s *Service) Checkout(ctx context.Context, userID int64, address, card string) (*model.Purchase, model.Cart, error) {
	address = strings.TrimSpace(address)

	if len(address) < 8 {
		return nil, model.Cart{}, fmt.Errorf("%w: la dirección debe tener al menos 8 caracteres", ErrValidation)
	}
	if !cardPattern.MatchString(card) {
		return nil, model.Cart{}, fmt.Errorf("%w: la tarjeta debe tener 16 dígitos", ErrValidation)
	}

	return s.repo.Checkout(ctx, userID, address, card)
}

// ListPurchases возвращает историю покупок пользователя.
func (s *Service) ListPurchases(ctx context.Context, userID int64) ([]repository.PurchaseSummary, error) {
	return s.repo.ListPurchases(ctx, userID)
}

// GetPurchase возвращает покупку пользователя вместе с её строками.
func (s *Service) GetPurchase(ctx context.Context, userID, purchaseID int64) (*model.Purchase, []model.PurchaseItem, error) {
	return s.repo.GetPurchase(ctx, userID, purchaseID)
}

// IsTokenRevoked сообщает, был ли токен отозван.
func (s *Service) IsTokenRevoked(ctx context.Context, jti uuid.UUID) (bool, error) {
	return s.repo.IsTokenRevoked(ctx, jti)
}

// Package model содержит доменные сущности интернет-магазина.
package model

import "time"

// User представляет зарегистрированного пользователя магазина.
type User struct {
	ID           int64
	Name         string
	Email        string
	PasswordHash []byte
	CreatedAt    time.Time
}

// Product описывает товар каталога. Цена хранится в центах.
type Product struct {
	ID          int64
	Name        string
	Description string
	Category    string
	PriceCents  int64
	Rating      float64
	Stock       int
	Image       string
}

// CartItem описывает позицию активной корзины пользователя.
type CartItem struct {
	ProductID int64
	Quantity  int
}

// CartLine — строка корзины, дополненная данными товара.
type CartLine struct {
	ProductID     int64
	Name          string
	Category      string
	PriceCents    int64
	Quantity      int
	SubtotalCents int64
	Stock         int
	Image         string
}

// Cart — корзина с рассчитанными на сервере итогами.
type Cart struct {
	Lines         []CartLine
	SubtotalCents int64
	TaxCents      int64
	ShippingCents int64
	TotalCents    int64
}

// Purchase описывает завершённую покупку.
type Purchase struct {
	ID            int64
	UserID        int64
	Date          time.Time
	Address       string
	Card          string
	ShippingCents int64
	TotalCents    int64
}

// PurchaseItem — неизменяемый снимок строки покупки.
type PurchaseItem struct {
	ProductID      int64
	Name           string
	UnitPriceCents int64
	Quantity       int
}

package client

import (
	"errors"
	"fmt"
)

// Ошибки локальных предусловий: фиксируются до какого-либо сетевого вызова.
var (
	// ErrNotAuthenticated возвращается для операций, требующих входа в систему.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrNoStock возвращается при попытке добавить в корзину больше, чем есть на складе.
	ErrNoStock = errors.New("no stock available")
)

// ErrTransport помечает сетевые сбои, при которых ответ сервера не был получен.
var ErrTransport = errors.New("transport error")

// APIError описывает ответ сервера со статусом вне диапазона 2xx.
type APIError struct {
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("server returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("server returned status %d: %s", e.StatusCode, e.Detail)
}

// Message возвращает текст ошибки для показа пользователю: сообщение сервера,
// если оно есть, иначе переданное сообщение по умолчанию.
func (e *APIError) Message(fallback string) string {
	if e.Detail != "" {
		return e.Detail
	}
	return fallback
}

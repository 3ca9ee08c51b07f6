// Package middleware содержит HTTP middleware для сервера магазина.
package middleware

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type contextKey string

const (
	userIDKey  contextKey = "userID"
	tokenIDKey contextKey = "tokenID"
)

const tokenTTL = 24 * time.Hour

// RevocationChecker сообщает, был ли токен с указанным jti отозван.
type RevocationChecker interface {
	IsTokenRevoked(ctx context.Context, jti uuid.UUID) (bool, error)
}

// AuthMiddleware выполняет проверку bearer-токена и выдачу новых токенов.
type AuthMiddleware struct {
	secretKey []byte
	revoked   RevocationChecker
}

// NewAuthMiddleware создаёт AuthMiddleware с указанным секретным ключом.
// Проверка отзыва опциональна: nil отключает её.
func NewAuthMiddleware(secret string, revoked RevocationChecker) *AuthMiddleware {
	key := []byte(secret)
	if len(key) == 0 {
		randomKey := make([]byte, 32)
		if _, err := rand.Read(randomKey); err == nil {
			key = randomKey
		} else {
			key = []byte("default-secret-key")
		}
	}

	return &AuthMiddleware{
		secretKey: key,
		revoked:   revoked,
	}
}

// IssueToken выдаёт подписанный токен доступа для указанного пользователя.
func (a *AuthMiddleware) IssueToken(userID int64) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatInt(userID, 10),
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(a.secretKey)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Middleware проверяет заголовок Authorization и добавляет идентификаторы
// пользователя и токена в контекст запроса.
func (a *AuthMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, jti, ok := a.parseBearer(r.Header.Get("Authorization"))
		if !ok {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}

		if a.revoked != nil {
			revoked, err := a.revoked.IsTokenRevoked(r.Context(), jti)
			if err != nil {
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}
			if revoked {
				http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
				return
			}
		}

		ctx := context.WithValue(r.Context(), userIDKey, userID)
		ctx = context.WithValue(ctx, tokenIDKey, jti)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (a *AuthMiddleware) parseBearer(header string) (int64, uuid.UUID, bool) {
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return 0, uuid.Nil, false
	}

	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(strings.TrimPrefix(header, prefix), claims,
		func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, errors.New("unexpected signing method")
			}
			return a.secretKey, nil
		},
	)
	if err != nil || !token.Valid {
		return 0, uuid.Nil, false
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return 0, uuid.Nil, false
	}

	jti, err := uuid.Parse(claims.ID)
	if err != nil {
		return 0, uuid.Nil, false
	}

	return userID, jti, true
}

// GetUserIDFromContext извлекает идентификатор пользователя из контекста запроса.
func GetUserIDFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(userIDKey).(int64)
	return id, ok
}

// GetTokenIDFromContext извлекает jti текущего токена из контекста запроса.
func GetTokenIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	jti, ok := ctx.Value(tokenIDKey).(uuid.UUID)
	return jti, ok
}

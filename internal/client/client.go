// Package client инкапсулирует HTTP-взаимодействие с сервером магазина:
// аутентификацию, загрузку каталога, синхронизацию корзины и историю покупок.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/AlejandroDiBattista/TUP25-P4/internal/catalog"
	"github.com/AlejandroDiBattista/TUP25-P4/internal/session"
)

// Client выполняет запросы к API магазина от имени текущей сессии.
type Client struct {
	baseURL    string
	httpClient *http.Client
	session    *session.Store
}

// NewClient создаёт HTTP-клиент магазина для указанного адреса и хранилища сессии.
func NewClient(baseURL string, store *session.Store) *Client {
	base := strings.TrimRight(baseURL, "/")
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}

	return &Client{
		baseURL: base,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		session: store,
	}
}

// Session возвращает хранилище сессии, с которым работает клиент.
func (c *Client) Session() *session.Store {
	return c.session
}

// AuthHeaders возвращает заголовки для запроса к API. Заголовки пересчитываются
// при каждом вызове, поэтому смена сессии между вызовами видна немедленно.
func (c *Client) AuthHeaders() http.Header {
	h := http.Header{}
	h.Set("Content-Type", "application/json")

	if token, ok := c.session.Token(); ok {
		h.Set("Authorization", "Bearer "+token)
	}
	return h
}

// do выполняет один запрос к API: сетевые сбои помечаются ErrTransport,
// статус вне 2xx превращается в *APIError с сообщением сервера.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reqBody *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	} else {
		reqBody = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header = c.AuthHeaders()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode}

		var payload struct {
			Detail string `json:"detail"`
		}
		if decodeErr := json.NewDecoder(resp.Body).Decode(&payload); decodeErr == nil {
			apiErr.Detail = payload.Detail
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

type registerRequest struct {
	Name     string `json:"nombre"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type messageResponse struct {
	Message string `json:"mensaje"`
}

// Register создаёт новую учётную запись. Состояние сессии не меняется:
// результат только сообщается вызывающему.
func (c *Client) Register(ctx context.Context, name, email, password string) (string, error) {
	var resp messageResponse
	err := c.do(ctx, http.MethodPost, "/registrar", registerRequest{
		Name:     name,
		Email:    email,
		Password: password,
	}, &resp)
	if err != nil {
		return "", err
	}
	return resp.Message, nil
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

// Login выполняет вход и при успехе сохраняет токен и профиль в сессии.
func (c *Client) Login(ctx context.Context, email, password string) error {
	var resp tokenResponse
	err := c.do(ctx, http.MethodPost, "/iniciar-sesion", loginRequest{
		Email:    email,
		Password: password,
	}, &resp)
	if err != nil {
		return err
	}

	return c.session.SetCredential(resp.AccessToken, resp.TokenType, session.Profile{
		Name:  resp.Name,
		Email: resp.Email,
	})
}

// Logout уведомляет сервер о выходе и безусловно очищает локальную сессию.
// Сбой серверного вызова намеренно проглатывается: локальный выход происходит всегда.
func (c *Client) Logout(ctx context.Context) error {
	if c.session.IsAuthenticated() {
		_ = c.do(ctx, http.MethodPost, "/cerrar-sesion", nil, nil)
	}

	return c.session.Clear()
}

type userResponse struct {
	Name  string `json:"nombre"`
	Email string `json:"email"`
}

// CurrentUser запрашивает профиль текущего пользователя и при успехе
// обновляет кэш в сессии. При ошибке сессия остаётся нетронутой.
func (c *Client) CurrentUser(ctx context.Context) (session.Profile, error) {
	if !c.session.IsAuthenticated() {
		return session.Profile{}, ErrNotAuthenticated
	}

	var resp userResponse
	if err := c.do(ctx, http.MethodGet, "/usuarios/me", nil, &resp); err != nil {
		return session.Profile{}, err
	}

	p := session.Profile{Name: resp.Name, Email: resp.Email}
	if err := c.session.SetProfile(p); err != nil {
		return session.Profile{}, err
	}
	return p, nil
}

// LoadProducts загружает каталог целиком и нормализует устаревшие поля.
func (c *Client) LoadProducts(ctx context.Context) ([]catalog.Product, error) {
	var raw []catalog.RawProduct
	if err := c.do(ctx, http.MethodGet, "/productos", nil, &raw); err != nil {
		return nil, err
	}
	return catalog.Normalize(raw), nil
}

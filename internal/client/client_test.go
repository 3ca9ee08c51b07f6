package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/AlejandroDiBattista/TUP25-P4/internal/session"
)

func newTestSession(t *testing.T) *session.Store {
	t.Helper()

	st, err := session.New(filepath.Join(t.TempDir(), "session.json"))
	if err != nil {
		t.Fatalf("session.New: %v", err)
	}
	return st
}

func testContext(t *testing.T) context.Context {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestLogin_StoresCredentialAndAuthHeaders(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/iniciar-sesion" || r.Method != http.MethodPost {
			t.Fatalf("unexpected request: %s %s", r.Method, r.URL.Path)
		}

		var req loginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if req.Email != "ada@example.com" {
			t.Fatalf("email = %q", req.Email)
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(tokenResponse{
			AccessToken: "tok-T",
			TokenType:   "bearer",
			Name:        "Ada",
			Email:       "ada@example.com",
		})
	}))
	defer ts.Close()

	st := newTestSession(t)
	c := NewClient(ts.URL, st)

	if err := c.Login(testContext(t), "ada@example.com", "secret"); err != nil {
		t.Fatalf("Login: %v", err)
	}

	if !st.IsAuthenticated() {
		t.Fatalf("session must be authenticated after login")
	}
	if got := c.AuthHeaders().Get("Authorization"); got != "Bearer tok-T" {
		t.Fatalf("Authorization = %q, want Bearer tok-T", got)
	}
	if p := st.GetProfile(); p.Name != "Ada" || p.Email != "ada@example.com" {
		t.Fatalf("profile = %+v", p)
	}
}

func TestAuthHeaders_AnonymousHasNoAuthorization(t *testing.T) {
	c := NewClient("http://localhost:1", newTestSession(t))

	h := c.AuthHeaders()
	if h.Get("Authorization") != "" {
		t.Fatalf("anonymous client must not send Authorization")
	}
	if h.Get("Content-Type") != "application/json" {
		t.Fatalf("Content-Type = %q", h.Get("Content-Type"))
	}
}

func TestLogin_BackendErrorKeepsSessionAnonymous(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]string{"detail": "Credenciales inválidas"})
	}))
	defer ts.Close()

	st := newTestSession(t)
	c := NewClient(ts.URL, st)

	err := c.Login(testContext(t), "ada@example.com", "wrong")

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %v, want *APIError", err)
	}
	if apiErr.StatusCode != http.StatusUnauthorized || apiErr.Detail != "Credenciales inválidas" {
		t.Fatalf("unexpected APIError: %+v", apiErr)
	}
	if st.IsAuthenticated() {
		t.Fatalf("failed login must not store a credential")
	}
}

func TestLogout_ClearsSessionEvenWhenBackendUnreachable(t *testing.T) {
	st := newTestSession(t)
	if err := st.SetCredential("tok", "bearer", session.Profile{Name: "Ada"}); err != nil {
		t.Fatalf("SetCredential: %v", err)
	}

	// Никто не слушает этот адрес: серверное уведомление гарантированно упадёт.
	c := NewClient("http://127.0.0.1:1", st)

	if err := c.Logout(testContext(t)); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if st.IsAuthenticated() {
		t.Fatalf("session must be cleared after logout")
	}
}

func TestRegister_DoesNotChangeAuthenticationState(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/registrar" {
			t.Fatalf("path = %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(messageResponse{Message: "Usuario registrado correctamente"})
	}))
	defer ts.Close()

	st := newTestSession(t)
	c := NewClient(ts.URL, st)

	msg, err := c.Register(testContext(t), "Ada", "ada@example.com", "secret")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if msg != "Usuario registrado correctamente" {
		t.Fatalf("message = %q", msg)
	}
	if st.IsAuthenticated() {
		t.Fatalf("register must not authenticate the session")
	}
}

func TestCurrentUser_RequiresAuthentication(t *testing.T) {
	c := NewClient("http://localhost:1", newTestSession(t))

	_, err := c.CurrentUser(testContext(t))
	if !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("error = %v, want ErrNotAuthenticated", err)
	}
}

func TestCurrentUser_RefreshesCachedProfile(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Fatalf("Authorization = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(userResponse{Name: "Ada Nueva", Email: "ada@example.com"})
	}))
	defer ts.Close()

	st := newTestSession(t)
	if err := st.SetCredential("tok", "bearer", session.Profile{Name: "Ada Vieja"}); err != nil {
		t.Fatalf("SetCredential: %v", err)
	}

	c := NewClient(ts.URL, st)
	p, err := c.CurrentUser(testContext(t))
	if err != nil {
		t.Fatalf("CurrentUser: %v", err)
	}
	if p.Name != "Ada Nueva" || st.GetProfile().Name != "Ada Nueva" {
		t.Fatalf("profile not refreshed: %+v / %+v", p, st.GetProfile())
	}
}

func TestCurrentUser_ErrorLeavesCacheIntact(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer ts.Close()

	st := newTestSession(t)
	if err := st.SetCredential("tok", "bearer", session.Profile{Name: "Ada"}); err != nil {
		t.Fatalf("SetCredential: %v", err)
	}

	c := NewClient(ts.URL, st)
	if _, err := c.CurrentUser(testContext(t)); err == nil {
		t.Fatalf("expected error")
	}
	if st.GetProfile().Name != "Ada" {
		t.Fatalf("cached profile must be untouched on error")
	}
}

func TestLoadProducts_NormalizesLegacyTitle(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/productos" {
			t.Fatalf("path = %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{"id": 1, "nombre": "Mouse", "categoria": "Periféricos", "existencia": 5},
			{"id": 2, "titulo": "Teclado legacy", "categoria": "Periféricos", "existencia": 3}
		]`))
	}))
	defer ts.Close()

	c := NewClient(ts.URL, newTestSession(t))

	products, err := c.LoadProducts(testContext(t))
	if err != nil {
		t.Fatalf("LoadProducts: %v", err)
	}
	if len(products) != 2 {
		t.Fatalf("products = %d, want 2", len(products))
	}
	if products[1].Name != "Teclado legacy" {
		t.Fatalf("legacy name not normalized: %+v", products[1])
	}
}

func TestDo_TransportErrorIsDistinct(t *testing.T) {
	c := NewClient("http://127.0.0.1:1", newTestSession(t))

	_, err := c.LoadProducts(testContext(t))
	if !errors.Is(err, ErrTransport) {
		t.Fatalf("error = %v, want ErrTransport", err)
	}
}

func TestListPurchases_And_GetPurchase(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/compras":
			w.Write([]byte(`[{"id": 7, "fecha": "2024-11-02T10:00:00", "total": 1250.5, "envio": 0, "cantidad_items": 2}]`))
		case "/compras/7":
			w.Write([]byte(`{"id": 7, "fecha": "2024-11-02T10:00:00", "direccion": "Calle Falsa 123",
				"tarjeta": "4111111111111111",
				"items": [{"producto_id": 1, "nombre": "Mouse", "precio_unitario": 500, "cantidad": 2, "subtotal": 1000}],
				"subtotal": 1000, "envio": 0, "total": 1250.5}`))
		default:
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
	}))
	defer ts.Close()

	st := newTestSession(t)
	if err := st.SetCredential("tok", "bearer", session.Profile{}); err != nil {
		t.Fatalf("SetCredential: %v", err)
	}
	c := NewClient(ts.URL, st)

	list, err := c.ListPurchases(testContext(t))
	if err != nil {
		t.Fatalf("ListPurchases: %v", err)
	}
	if len(list) != 1 || list[0].ID != 7 || list[0].ItemCount != 2 {
		t.Fatalf("unexpected list: %+v", list)
	}

	detail, err := c.GetPurchase(testContext(t), 7)
	if err != nil {
		t.Fatalf("GetPurchase: %v", err)
	}
	if detail.ID != 7 || len(detail.Lines) != 1 || detail.Lines[0].Name != "Mouse" {
		t.Fatalf("unexpected detail: %+v", detail)
	}
}

package session

import (
	"os"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "session.json")
	st, err := New(path)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return st, path
}

func TestNew_MissingFileMeansAnonymous(t *testing.T) {
	st, _ := newTestStore(t)

	if st.IsAuthenticated() {
		t.Fatalf("fresh store must be anonymous")
	}
	if _, ok := st.Token(); ok {
		t.Fatalf("fresh store must have no token")
	}
}

func TestSetCredential_PersistsAcrossReopen(t *testing.T) {
	st, path := newTestStore(t)

	err := st.SetCredential("tok-123", "bearer", Profile{Name: "Ada", Email: "ada@example.com"})
	if err != nil {
		t.Fatalf("SetCredential: %v", err)
	}

	reopened, err := New(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}

	if !reopened.IsAuthenticated() {
		t.Fatalf("reopened store must be authenticated")
	}
	token, ok := reopened.Token()
	if !ok || token != "tok-123" {
		t.Fatalf("token = %q, %v; want tok-123, true", token, ok)
	}
	p := reopened.GetProfile()
	if p.Name != "Ada" || p.Email != "ada@example.com" {
		t.Fatalf("profile = %+v", p)
	}
}

func TestSetProfile_KeepsToken(t *testing.T) {
	st, _ := newTestStore(t)

	if err := st.SetCredential("tok", "bearer", Profile{Name: "Old"}); err != nil {
		t.Fatalf("SetCredential: %v", err)
	}
	if err := st.SetProfile(Profile{Name: "New", Email: "new@example.com"}); err != nil {
		t.Fatalf("SetProfile: %v", err)
	}

	token, ok := st.Token()
	if !ok || token != "tok" {
		t.Fatalf("token lost after profile refresh")
	}
	if st.GetProfile().Name != "New" {
		t.Fatalf("profile not updated: %+v", st.GetProfile())
	}
}

func TestClear_RemovesEverything(t *testing.T) {
	st, path := newTestStore(t)

	if err := st.SetCredential("tok", "bearer", Profile{Name: "Ada"}); err != nil {
		t.Fatalf("SetCredential: %v", err)
	}
	if err := st.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}

	if st.IsAuthenticated() {
		t.Fatalf("store must be anonymous after Clear")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("session file must be removed, stat err = %v", err)
	}

	// Clear поверх пустого хранилища не считается ошибкой.
	if err := st.Clear(); err != nil {
		t.Fatalf("second Clear: %v", err)
	}
}

package handler

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dt2patel/traveller/internal/database"
	"github.com/dt2patel/traveller/internal/middleware"
	"github.com/dt2patel/traveller/internal/store"
)

func setupAuthHandler(t *testing.T) (*AuthHandler, *store.SessionStore) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	sessions := store.NewSessionStore(db)
	return NewAuthHandler(store.NewUserStore(db), sessions, slog.Default()), sessions
}

func postJSON(target string, body any) *http.Request {
	var buf bytes.Buffer
	json.NewEncoder(&buf).Encode(body)
	return httptest.NewRequest(http.MethodPost, target, &buf)
}

func sessionCookie(rec *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == middleware.SessionCookieName {
			return c
		}
	}
	return nil
}

func TestRegisterAndLogin(t *testing.T) {
	h, sessions := setupAuthHandler(t)

	rec := httptest.NewRecorder()
	h.Register(rec, postJSON("/register", map[string]string{
		"email":    "traveller@example.com",
		"password": "correct-horse",
	}))

	if rec.Code != http.StatusCreated {
		t.Fatalf("register status = %d, want 201: %s", rec.Code, rec.Body.String())
	}
	cookie := sessionCookie(rec)
	if cookie == nil || cookie.Value == "" {
		t.Fatal("expected session cookie on register")
	}

	sess, err := sessions.GetByToken(cookie.Value)
	if err != nil || sess == nil {
		t.Fatalf("session lookup: %v, %v", sess, err)
	}

	rec = httptest.NewRecorder()
	h.Login(rec, postJSON("/login", map[string]string{
		"email":    "traveller@example.com",
		"password": "correct-horse",
	}))
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	if sessionCookie(rec) == nil {
		t.Error("expected session cookie on login")
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	h, _ := setupAuthHandler(t)

	creds := map[string]string{"email": "traveller@example.com", "password": "correct-horse"}

	rec := httptest.NewRecorder()
	h.Register(rec, postJSON("/register", creds))
	if rec.Code != http.StatusCreated {
		t.Fatalf("first register = %d, want 201", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.Register(rec, postJSON("/register", creds))
	if rec.Code != http.StatusConflict {
		t.Errorf("second register = %d, want 409", rec.Code)
	}
}

func TestRegisterWeakPassword(t *testing.T) {
	h, _ := setupAuthHandler(t)

	rec := httptest.NewRecorder()
	h.Register(rec, postJSON("/register", map[string]string{
		"email":    "traveller@example.com",
		"password": "short",
	}))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	h, _ := setupAuthHandler(t)

	rec := httptest.NewRecorder()
	h.Register(rec, postJSON("/register", map[string]string{
		"email":    "traveller@example.com",
		"password": "correct-horse",
	}))

	rec = httptest.NewRecorder()
	h.Login(rec, postJSON("/login", map[string]string{
		"email":    "traveller@example.com",
		"password": "wrong-horse",
	}))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestLoginUnknownEmail(t *testing.T) {
	h, _ := setupAuthHandler(t)

	rec := httptest.NewRecorder()
	h.Login(rec, postJSON("/login", map[string]string{
		"email":    "nobody@example.com",
		"password": "whatever-pass",
	}))
	// Indistinguishable from a wrong password
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestLogoutClearsSession(t *testing.T) {
	h, sessions := setupAuthHandler(t)

	rec := httptest.NewRecorder()
	h.Register(rec, postJSON("/register", map[string]string{
		"email":    "traveller@example.com",
		"password": "correct-horse",
	}))
	cookie := sessionCookie(rec)
	if cookie == nil {
		t.Fatal("expected session cookie")
	}

	req := httptest.NewRequest(http.MethodPost, "/logout", nil)
	req.AddCookie(cookie)
	rec = httptest.NewRecorder()
	h.Logout(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}

	sess, err := sessions.GetByToken(cookie.Value)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if sess != nil {
		t.Error("expected session deleted after logout")
	}
}

package accounts

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/blokid/blokid-backend/internal/db/models"
	"github.com/blokid/blokid-backend/internal/middleware"
	"github.com/blokid/blokid-backend/internal/services"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubService struct {
	registered []services.RegisterInput
	loginEmail string
	registerFn func(services.RegisterInput) (*models.User, error)
	loginFn    func(email, password string) (*services.Token, error)
}

func (s *stubService) Register(_ context.Context, in services.RegisterInput) (*models.User, error) {
	s.registered = append(s.registered, in)
	return s.registerFn(in)
}

func (s *stubService) Login(_ context.Context, email, password string) (*services.Token, error) {
	s.loginEmail = email
	return s.loginFn(email, password)
}

func newRouter(svc Service, user *models.User) *gin.Engine {
	h := NewHandlers(svc)
	r := gin.New()
	r.POST("/auth/register", h.RegisterHandler())
	r.POST("/auth/login", h.LoginHandler())
	r.GET("/auth/me", func(c *gin.Context) {
		if user != nil {
			c.Set(middleware.UserKey, user)
		}
		c.Next()
	}, h.MeHandler())
	return r
}

func postJSON(r *gin.Engine, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRegisterHandler_Created(t *testing.T) {
	svc := &stubService{registerFn: func(in services.RegisterInput) (*models.User, error) {
		return &models.User{ID: "user-1", Email: in.Email, HashedPassword: "secret-hash", IsActive: true}, nil
	}}

	w := postJSON(newRouter(svc, nil), "/auth/register", `{"email":"alice@example.com","password":"pw"}`)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201 (body %s)", w.Code, w.Body.String())
	}
	if strings.Contains(w.Body.String(), "secret-hash") {
		t.Error("response leaked the password hash")
	}
	var body map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body["email"] != "alice@example.com" {
		t.Errorf("email = %v", body["email"])
	}
}

func TestRegisterHandler_DuplicateEmail(t *testing.T) {
	svc := &stubService{registerFn: func(services.RegisterInput) (*models.User, error) {
		return nil, &services.Error{Kind: services.ErrConflict, Message: "Email already registered"}
	}}

	w := postJSON(newRouter(svc, nil), "/auth/register", `{"email":"alice@example.com","password":"pw"}`)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
	if !strings.Contains(w.Body.String(), "Email already registered") {
		t.Errorf("body = %s", w.Body.String())
	}
}

func TestRegisterHandler_InvalidBody(t *testing.T) {
	svc := &stubService{}
	r := newRouter(svc, nil)

	for _, body := range []string{`{`, `{"email":"not-an-email","password":"pw"}`, `{"email":"a@example.com"}`} {
		w := postJSON(r, "/auth/register", body)
		if w.Code != http.StatusBadRequest {
			t.Errorf("body %s: status = %d, want 400", body, w.Code)
		}
	}
	if len(svc.registered) != 0 {
		t.Errorf("service called %d times for invalid bodies", len(svc.registered))
	}
}

func TestLoginHandler_JSON(t *testing.T) {
	svc := &stubService{loginFn: func(email, password string) (*services.Token, error) {
		return &services.Token{AccessToken: "jwt", TokenType: "bearer", ExpiresIn: 1800}, nil
	}}

	w := postJSON(newRouter(svc, nil), "/auth/login", `{"email":"alice@example.com","password":"pw"}`)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var tok services.Token
	if err := json.Unmarshal(w.Body.Bytes(), &tok); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if tok.AccessToken != "jwt" || tok.TokenType != "bearer" {
		t.Errorf("token = %+v", tok)
	}
}

func TestLoginHandler_Form(t *testing.T) {
	svc := &stubService{loginFn: func(email, password string) (*services.Token, error) {
		return &services.Token{AccessToken: "jwt", TokenType: "bearer"}, nil
	}}

	form := url.Values{"username": {"alice@example.com"}, "password": {"pw"}}
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	newRouter(svc, nil).ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", w.Code, w.Body.String())
	}
	if svc.loginEmail != "alice@example.com" {
		t.Errorf("login email = %q", svc.loginEmail)
	}
}

func TestLoginHandler_Failures(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"bad credentials", &services.Error{Kind: services.ErrInvalidCredentials, Message: "Incorrect email or password"}, http.StatusUnauthorized},
		{"inactive", &services.Error{Kind: services.ErrInactiveUser, Message: "Inactive user"}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &stubService{loginFn: func(string, string) (*services.Token, error) { return nil, tt.err }}
			w := postJSON(newRouter(svc, nil), "/auth/login", `{"email":"alice@example.com","password":"pw"}`)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}

func TestMeHandler(t *testing.T) {
	user := &models.User{ID: "user-1", Email: "alice@example.com", IsActive: true}

	w := httptest.NewRecorder()
	newRouter(&stubService{}, user).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/auth/me", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), "alice@example.com") {
		t.Errorf("body = %s", w.Body.String())
	}

	w = httptest.NewRecorder()
	newRouter(&stubService{}, nil).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/auth/me", nil))
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status without user = %d, want 401", w.Code)
	}
}

package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"threadcart/internal/domain"
	custommiddleware "threadcart/internal/middleware"
	"threadcart/internal/repository"
	"threadcart/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"go.uber.org/zap"
)

// Mock repositories for testing
type mockUserRepository struct {
	users map[string]*domain.User
}

func newMockUserRepository() *mockUserRepository {
	return &mockUserRepository{
		users: make(map[string]*domain.User),
	}
}

func (m *mockUserRepository) Create(ctx context.Context, user *domain.User) error {
	if _, exists := m.users[user.Email]; exists {
		return repository.ErrUserAlreadyExists
	}
	m.users[user.Email] = user
	return nil
}

func (m *mockUserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	user, exists := m.users[email]
	if !exists {
		return nil, repository.ErrUserNotFound
	}
	return user, nil
}

func (m *mockUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	for _, user := range m.users {
		if user.ID == id {
			return user, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

type mockRefreshTokenRepository struct {
	tokens map[string]*domain.RefreshToken
}

func newMockRefreshTokenRepository() *mockRefreshTokenRepository {
	return &mockRefreshTokenRepository{
		tokens: make(map[string]*domain.RefreshToken),
	}
}

func (m *mockRefreshTokenRepository) Create(ctx context.Context, token *domain.RefreshToken) error {
	m.tokens[token.Token] = token
	return nil
}

func (m *mockRefreshTokenRepository) FindByToken(ctx context.Context, token string) (*domain.RefreshToken, error) {
	refreshToken, exists := m.tokens[token]
	if !exists {
		return nil, repository.ErrRefreshTokenNotFound
	}
	if refreshToken.Revoked {
		return nil, repository.ErrRefreshTokenRevoked
	}
	return refreshToken, nil
}

func (m *mockRefreshTokenRepository) Revoke(ctx context.Context, token string) error {
	refreshToken, exists := m.tokens[token]
	if !exists {
		return repository.ErrRefreshTokenNotFound
	}
	refreshToken.Revoked = true
	return nil
}

func newUserHandlerFixture() (*UserHandler, service.UserService) {
	userRepo := newMockUserRepository()
	refreshTokenRepo := newMockRefreshTokenRepository()
	userService := service.NewUserService(userRepo, refreshTokenRepo, "test-secret")
	logger, _ := zap.NewDevelopment()
	return NewUserHandler(userService, logger), userService
}

func TestProperty_InvalidSignupDataIsRejected(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("signup with invalid data returns the error envelope", prop.ForAll(
		func(invalidCase int) bool {
			handler, _ := newUserHandlerFixture()

			var reqBody SignupRequest

			// Generate different invalid cases
			switch invalidCase % 4 {
			case 0:
				// Empty email
				reqBody = SignupRequest{
					Name:     "John Doe",
					Email:    "",
					Password: "ValidPass123",
				}
			case 1:
				// Invalid email format
				reqBody = SignupRequest{
					Name:     "John Doe",
					Email:    "not-an-email",
					Password: "ValidPass123",
				}
			case 2:
				// Short password (less than 8 characters)
				reqBody = SignupRequest{
					Name:     "John Doe",
					Email:    "test@example.com",
					Password: "short",
				}
			case 3:
				// Missing name
				reqBody = SignupRequest{
					Email:    "test@example.com",
					Password: "ValidPass123",
				}
			}

			body, _ := json.Marshal(reqBody)
			req := httptest.NewRequest(http.MethodPost, "/signup", bytes.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()

			handler.Signup(w, req)

			if w.Code != http.StatusBadRequest {
				t.Logf("FAIL: Expected 400 status code, got %d", w.Code)
				return false
			}

			var response map[string]interface{}
			if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
				t.Logf("FAIL: Could not decode error response: %v", err)
				return false
			}

			if success, ok := response["success"].(bool); !ok || success {
				t.Logf("FAIL: Expected success=false in error response")
				return false
			}
			if _, exists := response["message"]; !exists {
				t.Logf("FAIL: Response missing 'message' field")
				return false
			}

			return true
		},
		gen.IntRange(0, 100),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestProperty_SuccessfulSignupReturnsBothTokens(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("signup returns access and refresh tokens in the envelope", prop.ForAll(
		func(name string, email string, password string) bool {
			handler, userService := newUserHandlerFixture()

			reqBody := SignupRequest{
				Name:     name,
				Email:    email,
				Password: password,
			}
			body, _ := json.Marshal(reqBody)
			req := httptest.NewRequest(http.MethodPost, "/signup", bytes.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()

			handler.Signup(w, req)

			if w.Code != http.StatusCreated {
				t.Logf("FAIL: Expected 201 status code, got %d", w.Code)
				return false
			}

			var resp AuthResponse
			if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
				t.Logf("FAIL: Could not decode response: %v", err)
				return false
			}

			if !resp.Success {
				t.Logf("FAIL: Expected success=true")
				return false
			}
			if resp.Token == "" || resp.RefreshToken == "" {
				t.Logf("FAIL: Tokens missing from response")
				return false
			}

			// The returned token is immediately usable
			claims, err := userService.ValidateToken(resp.Token)
			if err != nil {
				t.Logf("FAIL: Access token validation failed: %v", err)
				return false
			}
			if claims.Role != "user" {
				t.Logf("FAIL: Expected default role user, got %s", claims.Role)
				return false
			}

			return true
		},
		gen.RegexMatch(`[A-Z][a-z]{2,15}`),
		gen.RegexMatch(`[a-z]{3,10}@[a-z]{3,8}\.(com|org|net)`),
		gen.RegexMatch(`[A-Za-z0-9!@#$%]{8,20}`),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestProperty_ValidLoginReturnsBothTokens(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("valid login returns access token and refresh token", prop.ForAll(
		func(name string, email string, password string) bool {
			handler, userService := newUserHandlerFixture()

			// Register the user first
			_, _, _, err := userService.Signup(context.Background(), name, email, password)
			if err != nil {
				return true // Skip if signup fails
			}

			loginReq := LoginRequest{
				Email:    email,
				Password: password,
			}
			body, _ := json.Marshal(loginReq)
			req := httptest.NewRequest(http.MethodPost, "/login", bytes.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()

			handler.Login(w, req)

			if w.Code != http.StatusOK {
				t.Logf("FAIL: Expected 200 status code, got %d", w.Code)
				return false
			}

			var resp AuthResponse
			if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
				t.Logf("FAIL: Could not decode login response: %v", err)
				return false
			}

			if !resp.Success || resp.Token == "" || resp.RefreshToken == "" {
				t.Logf("FAIL: Incomplete login response: %+v", resp)
				return false
			}

			// The refresh token round-trips into a new access token
			newAccessToken, err := userService.RefreshToken(context.Background(), resp.RefreshToken)
			if err != nil {
				t.Logf("FAIL: Refresh token is not valid: %v", err)
				return false
			}
			if newAccessToken == "" {
				t.Logf("FAIL: Refresh returned empty access token")
				return false
			}

			return true
		},
		gen.RegexMatch(`[A-Z][a-z]{2,15}`),
		gen.RegexMatch(`[a-z]{3,10}@[a-z]{3,8}\.(com|org|net)`),
		gen.RegexMatch(`[A-Za-z0-9!@#$%]{8,20}`),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestLoginWithWrongPasswordReturns401(t *testing.T) {
	handler, userService := newUserHandlerFixture()

	if _, _, _, err := userService.Signup(context.Background(), "Ada", "ada@example.com", "correct-horse"); err != nil {
		t.Fatalf("signup failed: %v", err)
	}

	body, _ := json.Marshal(LoginRequest{Email: "ada@example.com", Password: "wrong-horse"})
	req := httptest.NewRequest(http.MethodPost, "/login", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	handler.Login(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestDuplicateSignupReturns409(t *testing.T) {
	handler, userService := newUserHandlerFixture()

	if _, _, _, err := userService.Signup(context.Background(), "Ada", "ada@example.com", "correct-horse"); err != nil {
		t.Fatalf("signup failed: %v", err)
	}

	body, _ := json.Marshal(SignupRequest{Name: "Ada", Email: "ada@example.com", Password: "correct-horse"})
	req := httptest.NewRequest(http.MethodPost, "/signup", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	handler.Signup(w, req)

	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", w.Code)
	}
}

func TestLogoutRevokesAndRefreshRejects(t *testing.T) {
	handler, userService := newUserHandlerFixture()

	_, refreshToken, _, err := userService.Signup(context.Background(), "Ada", "ada@example.com", "correct-horse")
	if err != nil {
		t.Fatalf("signup failed: %v", err)
	}

	body, _ := json.Marshal(RefreshRequest{RefreshToken: refreshToken})
	req := httptest.NewRequest(http.MethodPost, "/logout", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	handler.Logout(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	body, _ = json.Marshal(RefreshRequest{RefreshToken: refreshToken})
	req = httptest.NewRequest(http.MethodPost, "/refresh", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()

	handler.RefreshToken(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 after logout, got %d", w.Code)
	}
}

func newUserRouter() (chi.Router, service.UserService) {
	handler, userService := newUserHandlerFixture()
	logger := zap.NewNop()

	r := chi.NewRouter()
	handler.RegisterRoutes(r, nil, custommiddleware.AuthMiddleware("test-secret", logger))
	return r, userService
}

func TestProfileReturnsAccountWithCartSlots(t *testing.T) {
	router, userService := newUserRouter()

	accessToken, _, user, err := userService.Signup(context.Background(), "Ada", "ada@example.com", "correct-horse")
	if err != nil {
		t.Fatalf("signup failed: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/profile", nil)
	req.Header.Set("Authorization", "Bearer "+accessToken)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var profile UserProfile
	if err := json.NewDecoder(w.Body).Decode(&profile); err != nil {
		t.Fatalf("could not decode profile: %v", err)
	}

	if profile.ID != user.ID.String() {
		t.Errorf("expected id %q, got %q", user.ID.String(), profile.ID)
	}
	if profile.Name != "Ada" || profile.Email != "ada@example.com" {
		t.Errorf("unexpected profile: %+v", profile)
	}
	if profile.Role != "user" {
		t.Errorf("expected role user, got %q", profile.Role)
	}
	if len(profile.CartData) != domain.CartSlots {
		t.Fatalf("expected %d cart slots, got %d", domain.CartSlots, len(profile.CartData))
	}
	for i, qty := range profile.CartData {
		if qty != 0 {
			t.Fatalf("expected empty cart, slot %d holds %d", i, qty)
		}
	}
}

func TestProfileWithoutTokenReturns401(t *testing.T) {
	router, _ := newUserRouter()

	req := httptest.NewRequest(http.MethodGet, "/profile", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

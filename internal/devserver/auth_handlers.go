package devserver

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/jmcleod/optiva/internal/util"
	"github.com/jmcleod/optiva/internal/uuid"
)

const minPasswordLen = 8

// RegisterRequest is the body of POST /auth/register.
type RegisterRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RefreshTokenRequest is the body of POST /auth/refresh and /auth/logout.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// AuthResponse is returned by register, login and refresh.
type AuthResponse struct {
	UserID       string `json:"userId"`
	Email        string `json:"email"`
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	TokenType    string `json:"tokenType"`
	ExpiresIn    int64  `json:"expiresIn"`
}

// MessageResponse is returned by logout and logout-all.
type MessageResponse struct {
	Message string `json:"message"`
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func authResponse(acct *account, pair tokenPair) AuthResponse {
	return AuthResponse{
		UserID:       acct.ID,
		Email:        acct.Email,
		FirstName:    acct.FirstName,
		LastName:     acct.LastName,
		AccessToken:  pair.Access,
		RefreshToken: pair.Refresh,
		TokenType:    "Bearer",
		ExpiresIn:    pair.ExpiresIn,
	}
}

// Register creates an account and signs it in.
func (s *Server) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	email := normalizeEmail(req.Email)
	fields := map[string]string{}
	if !strings.Contains(email, "@") {
		fields["email"] = "must be a well-formed email address"
	}
	if len(req.Password) < minPasswordLen {
		fields["password"] = "size must be at least 8"
	}
	if len(fields) > 0 {
		writeFieldErrors(w, r, http.StatusBadRequest, "Validation failed", fields)
		return
	}

	salt, err := util.RandomBytes(16)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	hash, err := util.DeriveArgon2idKey(req.Password, salt, s.kdf)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}

	s.mu.Lock()
	if _, exists := s.accounts[email]; exists {
		s.mu.Unlock()
		writeError(w, r, http.StatusBadRequest, "Email is already registered")
		return
	}
	acct := &account{
		ID:           uuid.New(),
		Email:        email,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Salt:         salt,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}
	s.accounts[email] = acct
	s.byID[acct.ID] = acct
	pair, err := s.issue(acct)
	s.mu.Unlock()
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}

	s.audit.logEvent(AuditRegister, r, acct.ID)
	writeJSON(w, http.StatusCreated, authResponse(acct, pair))
}

// Login verifies credentials and returns a new token pair.
func (s *Server) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	email := normalizeEmail(req.Email)

	if blocked, retryAfter := s.limiter.check(email); blocked {
		s.audit.logFailure(AuditLoginRateLimited, r, "too many failures")
		writeRateLimited(w, r, retryAfter)
		return
	}

	s.mu.Lock()
	acct, ok := s.accounts[email]
	s.mu.Unlock()
	if !ok || !s.passwordMatches(acct, req.Password) {
		s.limiter.recordFailure(email)
		s.audit.logFailure(AuditLoginFailure, r, "invalid credentials")
		writeError(w, r, http.StatusUnauthorized, "Invalid email or password")
		return
	}
	s.limiter.recordSuccess(email)

	s.mu.Lock()
	pair, err := s.issue(acct)
	s.mu.Unlock()
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}

	s.audit.logEvent(AuditLoginSuccess, r, acct.ID)
	writeJSON(w, http.StatusOK, authResponse(acct, pair))
}

func (s *Server) passwordMatches(acct *account, password string) bool {
	hash, err := util.DeriveArgon2idKey(password, acct.Salt, s.kdf)
	if err != nil {
		return false
	}
	defer util.WipeBytes(hash)
	return subtle.ConstantTimeCompare(hash, acct.PasswordHash) == 1
}

// Refresh rotates a refresh token. Test hooks may hold or fail the call.
func (s *Server) Refresh(w http.ResponseWriter, r *http.Request) {
	s.refreshCalls.Add(1)

	var req RefreshTokenRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	s.hooksMu.Lock()
	gate := s.refreshGate
	fail := s.refreshFail > 0
	if fail {
		s.refreshFail--
	}
	s.hooksMu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-r.Context().Done():
			return
		}
	}
	if fail {
		s.audit.logFailure(AuditRefreshFailure, r, "forced failure")
		writeError(w, r, http.StatusUnauthorized, "Invalid or expired refresh token")
		return
	}

	acct, pair, err := s.rotate(req.RefreshToken)
	if err != nil {
		s.audit.logFailure(AuditRefreshFailure, r, err.Error())
		writeError(w, r, http.StatusBadRequest, "Invalid or expired refresh token")
		return
	}

	s.audit.logEvent(AuditRefresh, r, acct.ID)
	writeJSON(w, http.StatusOK, authResponse(acct, pair))
}

// Logout revokes the presented refresh token. Unknown tokens are ignored.
func (s *Server) Logout(w http.ResponseWriter, r *http.Request) {
	var req RefreshTokenRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	s.mu.Lock()
	grant, ok := s.grants[req.RefreshToken]
	delete(s.grants, req.RefreshToken)
	s.mu.Unlock()

	userID := ""
	if ok {
		userID = grant.UserID
	}
	s.audit.logEvent(AuditLogout, r, userID)
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Logged out successfully"})
}

// LogoutAll revokes every refresh token of the authenticated user.
func (s *Server) LogoutAll(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromContext(r.Context())
	n := s.revokeUser(userID)
	s.audit.logEvent(AuditLogoutAll, r, userID, slog.Int("revoked", n))
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Logged out from all devices"})
}

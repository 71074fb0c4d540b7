package devserver

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/jmcleod/optiva/internal/util"
	"github.com/jmcleod/optiva/internal/uuid"
)

const (
	issuer            = "optiva-devserver"
	refreshTokenChars = 48
)

var errStaleGeneration = errors.New("access token generation revoked")

type account struct {
	ID           string
	Email        string
	FirstName    string
	LastName     string
	Salt         []byte
	PasswordHash []byte
	CreatedAt    time.Time
}

type refreshGrant struct {
	UserID    string
	ExpiresAt time.Time
}

type accessClaims struct {
	jwt.RegisteredClaims
	Email      string `json:"email"`
	Generation int64  `json:"gen"`
}

type tokenPair struct {
	Access    string
	Refresh   string
	ExpiresIn int64
}

// issue mints an access token and a fresh refresh grant for acct. Callers
// hold s.mu.
func (s *Server) issue(acct *account) (tokenPair, error) {
	now := time.Now()
	claims := accessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   acct.ID,
			ID:        uuid.New(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessTTL)),
		},
		Email:      acct.Email,
		Generation: s.generation.Load(),
	}
	access, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return tokenPair{}, fmt.Errorf("signing access token: %w", err)
	}
	refresh, err := util.RandomChars(refreshTokenChars)
	if err != nil {
		return tokenPair{}, fmt.Errorf("generating refresh token: %w", err)
	}
	s.grants[refresh] = refreshGrant{UserID: acct.ID, ExpiresAt: now.Add(s.refreshTTL)}
	return tokenPair{Access: access, Refresh: refresh, ExpiresIn: int64(s.accessTTL / time.Second)}, nil
}

// parseAccess validates a bearer token and returns its claims.
func (s *Server) parseAccess(raw string) (*accessClaims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	claims := &accessClaims{}
	_, err := parser.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	})
	if err != nil {
		return nil, err
	}
	if claims.Generation != s.generation.Load() {
		return nil, errStaleGeneration
	}
	return claims, nil
}

// rotate consumes a refresh token. The old token is invalid afterwards
// whether or not issuing the new pair succeeds.
func (s *Server) rotate(refresh string) (*account, tokenPair, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	grant, ok := s.grants[refresh]
	if !ok {
		return nil, tokenPair{}, errors.New("unknown refresh token")
	}
	delete(s.grants, refresh)
	if time.Now().After(grant.ExpiresAt) {
		return nil, tokenPair{}, errors.New("refresh token expired")
	}
	acct, ok := s.byID[grant.UserID]
	if !ok {
		return nil, tokenPair{}, errors.New("account no longer exists")
	}
	pair, err := s.issue(acct)
	if err != nil {
		return nil, tokenPair{}, err
	}
	return acct, pair, nil
}

// revokeUser drops every refresh grant belonging to userID and returns how
// many were removed.
func (s *Server) revokeUser(userID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for tok, g := range s.grants {
		if g.UserID == userID {
			delete(s.grants, tok)
			n++
		}
	}
	return n
}

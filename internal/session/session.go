package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Conversly/storefront/internal/loaders"
	"github.com/Conversly/storefront/internal/notify"
	"github.com/Conversly/storefront/internal/remote"
	"github.com/Conversly/storefront/internal/types"
	"github.com/Conversly/storefront/internal/utils"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// Backend is the subset of the remote client the session drives.
type Backend interface {
	UserIsAuth(ctx context.Context) (*types.User, error)
	SellerIsAuth(ctx context.Context) error
	Login(ctx context.Context, creds types.Credentials) (*remote.AuthResult, error)
	Register(ctx context.Context, creds types.Credentials) (*remote.AuthResult, error)
	Logout(ctx context.Context) error
	SetToken(token string)
	ClearToken()
}

// Cart is what the session needs from the cart store: the server cart is
// installed at login and dropped when the session ends.
type Cart interface {
	Seed(ctx context.Context, items types.CartItems) error
	Reset(ctx context.Context) error
}

// SyncSwitch turns backend cart synchronisation on and off.
type SyncSwitch interface {
	SetActive(active bool)
}

// Session holds the signed-in shopper and the seller flag. Both come from
// the backend and are fetched independently, so privileged views must gate
// on IsSeller alone.
type Session struct {
	backend  Backend
	kv       loaders.Store
	cart     Cart
	sync     SyncSwitch
	notifier notify.Notifier
	now      func() time.Time

	mu     sync.RWMutex
	user   *types.User
	seller bool
	token  string
}

func New(backend Backend, kv loaders.Store, cart Cart, syncer SyncSwitch, notifier notify.Notifier) *Session {
	if notifier == nil {
		notifier = notify.Discard{}
	}
	return &Session{
		backend:  backend,
		kv:       kv,
		cart:     cart,
		sync:     syncer,
		notifier: notifier,
		now:      time.Now,
	}
}

// Restore reloads the persisted token and user. An expired token is thrown
// away. It reports whether a token is now attached to the client.
func (s *Session) Restore(ctx context.Context) bool {
	var token string
	if raw, err := s.kv.Get(ctx, loaders.KeyToken); err == nil {
		if err := json.Unmarshal(raw, &token); err != nil {
			utils.Zlog.Warn("Persisted token is corrupt, ignoring", zap.Error(err))
			token = ""
		}
	} else if !errors.Is(err, loaders.ErrNotFound) {
		utils.Zlog.Warn("Failed to read persisted token", zap.Error(err))
	}

	if token != "" && tokenExpired(token, s.now()) {
		utils.Zlog.Info("Persisted token has expired, discarding")
		s.forget(ctx, loaders.KeyToken)
		s.forget(ctx, loaders.KeyUser)
		token = ""
	}

	var user *types.User
	if token != "" {
		if raw, err := s.kv.Get(ctx, loaders.KeyUser); err == nil {
			var u types.User
			if err := json.Unmarshal(raw, &u); err == nil && u.ID != "" {
				user = &u
			}
		}
	}

	s.mu.Lock()
	s.token = token
	s.user = user
	s.mu.Unlock()

	if token == "" {
		return false
	}
	s.backend.SetToken(token)
	return true
}

// tokenExpired reads the exp claim of a JWT without verifying it. Tokens
// that are not JWTs, or carry no exp, never expire client-side.
func tokenExpired(token string, now time.Time) bool {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return false
	}
	if claims.ExpiresAt == nil {
		return false
	}
	return !claims.ExpiresAt.After(now)
}

// FetchUser asks the backend who is signed in. On success the backend cart
// replaces the local one. Any failure ends the session quietly; an
// unauthorized answer also drops the token.
func (s *Session) FetchUser(ctx context.Context) error {
	user, err := s.backend.UserIsAuth(ctx)
	if err != nil {
		utils.Zlog.Info("No active session", zap.Error(err))
		s.clearUser(ctx)
		if errors.Is(err, remote.ErrUnauthorized) {
			s.clearToken(ctx)
		}
		return err
	}
	s.establish(ctx, user)
	return nil
}

// FetchSeller refreshes the seller flag. Any failure means not a seller.
func (s *Session) FetchSeller(ctx context.Context) bool {
	err := s.backend.SellerIsAuth(ctx)
	seller := err == nil
	if err != nil {
		utils.Zlog.Debug("Seller check failed", zap.Error(err))
	}
	s.mu.Lock()
	s.seller = seller
	s.mu.Unlock()
	return seller
}

func (s *Session) Login(ctx context.Context, creds types.Credentials) (*types.User, error) {
	return s.authenticate(ctx, creds, s.backend.Login, "Logged in successfully!")
}

func (s *Session) Register(ctx context.Context, creds types.Credentials) (*types.User, error) {
	return s.authenticate(ctx, creds, s.backend.Register, "Registered successfully!")
}

func (s *Session) authenticate(
	ctx context.Context,
	creds types.Credentials,
	call func(context.Context, types.Credentials) (*remote.AuthResult, error),
	success string,
) (*types.User, error) {
	res, err := call(ctx, creds)
	if err != nil {
		s.notifier.Error(remote.Message(err, "Authentication failed"))
		return nil, fmt.Errorf("failed to authenticate %s: %w", creds.Email, err)
	}
	if res.Token == "" {
		s.notifier.Error("Authentication failed")
		return nil, errors.New("backend returned no token")
	}

	s.mu.Lock()
	s.token = res.Token
	s.mu.Unlock()
	s.backend.SetToken(res.Token)
	s.persist(ctx, loaders.KeyToken, res.Token)

	user := res.User
	s.establish(ctx, &user)
	s.notifier.Success(success)
	return &user, nil
}

func (s *Session) establish(ctx context.Context, user *types.User) {
	s.mu.Lock()
	s.user = user
	s.mu.Unlock()
	s.persist(ctx, loaders.KeyUser, user)

	if err := s.cart.Seed(ctx, user.CartItems); err != nil {
		utils.Zlog.Warn("Failed to persist seeded cart", zap.Error(err))
	}
	if s.sync != nil {
		s.sync.SetActive(true)
	}
	utils.Zlog.Info("Session established",
		zap.String("userId", user.ID),
		zap.Int("cartEntries", len(user.CartItems)))
}

// Logout tells the backend on a best-effort basis and always ends the
// local session.
func (s *Session) Logout(ctx context.Context) {
	if err := s.backend.Logout(ctx); err != nil {
		utils.Zlog.Warn("Backend logout failed, clearing local session anyway", zap.Error(err))
	}
	s.clearUser(ctx)
	s.clearToken(ctx)
	s.mu.Lock()
	s.seller = false
	s.mu.Unlock()
	s.notifier.Success("Logged out")
}

func (s *Session) clearUser(ctx context.Context) {
	if s.sync != nil {
		s.sync.SetActive(false)
	}
	s.mu.Lock()
	s.user = nil
	s.mu.Unlock()
	s.forget(ctx, loaders.KeyUser)
	if err := s.cart.Reset(ctx); err != nil {
		utils.Zlog.Warn("Failed to persist cleared cart", zap.Error(err))
	}
}

func (s *Session) clearToken(ctx context.Context) {
	s.mu.Lock()
	s.token = ""
	s.mu.Unlock()
	s.backend.ClearToken()
	s.forget(ctx, loaders.KeyToken)
}

func (s *Session) persist(ctx context.Context, key string, v interface{}) {
	raw, err := json.Marshal(v)
	if err == nil {
		err = s.kv.Set(ctx, key, raw)
	}
	if err != nil {
		utils.Zlog.Warn("Failed to persist session state", zap.String("key", key), zap.Error(err))
	}
}

func (s *Session) forget(ctx context.Context, key string) {
	if err := s.kv.Delete(ctx, key); err != nil {
		utils.Zlog.Warn("Failed to delete session state", zap.String("key", key), zap.Error(err))
	}
}

// User returns a copy of the signed-in user, or nil.
func (s *Session) User() *types.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	u.CartItems = s.user.CartItems.Clone()
	return &u
}

func (s *Session) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user != nil
}

func (s *Session) IsSeller() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.seller
}

func (s *Session) HasToken() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token != ""
}

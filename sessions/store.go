// Package sessions owns the authentication state of each browser device.
package sessions

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"

	perrors "github.com/zenty/portal/internal/errors"
	"github.com/zenty/portal/internal/metrics"
	"github.com/zenty/portal/storage"
	"github.com/zenty/portal/users"
)

// Backend is the part of the backend REST contract the Store depends on.
type Backend interface {
	Login(ctx context.Context, email, password string) (string, error)
	RegisterCustomer(ctx context.Context, reg users.CustomerRegistration) (string, error)
	RegisterMerchant(ctx context.Context, reg users.MerchantRegistration) (string, error)
	CustomerProfile(ctx context.Context, token string) (*users.Customer, error)
	MerchantProfile(ctx context.Context, token string) (*users.Merchant, error)
	UpdateProfile(ctx context.Context, token string, update users.ProfileUpdate) (*users.Customer, error)
	UpdateMerchantProfile(ctx context.Context, token string, update users.MerchantProfileUpdate) (*users.Merchant, error)
	DeleteUser(ctx context.Context, token, userID string) error
}

// Store is the single owner of one device's Session. Network calls run outside the
// lock; persisting and committing a result happen together under it, and only when
// no newer operation has started since.
type Store struct {
	device  string
	storage storage.Store
	backend Backend

	mu         sync.Mutex
	session    Session
	generation uint64

	initOnce sync.Once
	initErr  error
	resolved chan struct{}
}

func NewStore(device string, store storage.Store, backend Backend) *Store {
	return &Store{
		device:   device,
		storage:  store,
		backend:  backend,
		session:  Session{Status: StatusResolving},
		resolved: make(chan struct{}),
	}
}

func (s *Store) Device() string {
	return s.device
}

// Snapshot returns a copy of the current Session.
func (s *Store) Snapshot() Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session.clone()
}

// Wait blocks until rehydration has finished or ctx is done.
func (s *Store) Wait(ctx context.Context) error {
	select {
	case <-s.resolved:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Initialize rehydrates the Session from storage. It runs once; later calls return the
// first call's result. The Store is resolved afterwards whatever the outcome.
func (s *Store) Initialize(ctx context.Context) error {
	s.initOnce.Do(func() {
		defer s.markResolved()
		err := s.rehydrate(ctx)
		// A rejected credential is an expected outcome, not a failure to report
		if perrors.Is(err, perrors.ErrSessionExpired) || perrors.Is(err, perrors.ErrSuperseded) {
			err = nil
		}
		s.initErr = err
	})
	return s.initErr
}

func (s *Store) rehydrate(ctx context.Context) (err error) {
	gen := s.begin()
	role := users.Role("")
	defer func() { observe("initialize", role, err) }()

	token, hasToken, err := s.storage.Get(ctx, s.device, storage.KeyToken)
	if err != nil {
		return fmt.Errorf("[Store Initialize] failed to read credential: %w", err)
	}
	rawRole, hasRole, err := s.storage.Get(ctx, s.device, storage.KeyRole)
	if err != nil {
		return fmt.Errorf("[Store Initialize] failed to read role: %w", err)
	}

	if !hasToken && !hasRole {
		return nil
	}
	parsed, ok := users.ParseRole(rawRole)
	if !hasToken || !hasRole || token == "" || !ok {
		log.Debug().Str("device", s.device).Msg("clearing incomplete persisted session")
		return s.expire(ctx, gen, perrors.ErrSessionExpired)
	}
	role = parsed

	identity, err := s.fetchProfile(ctx, token, role)
	if err != nil {
		log.Info().Err(err).Str("device", s.device).Msg("persisted credential rejected, logging out")
		return s.expire(ctx, gen, fmt.Errorf("[Store Initialize] %w: %w", perrors.ErrSessionExpired, err))
	}
	return s.commit(ctx, gen, token, identity)
}

func (s *Store) markResolved() {
	s.mu.Lock()
	s.session.Status = StatusResolved
	s.mu.Unlock()
	close(s.resolved)
}

// Login exchanges credentials for a token and resolves the identity of role.
// It waits for rehydration to finish. On any failure the previous Session is left
// untouched.
func (s *Store) Login(ctx context.Context, email, password string, role users.Role) (err error) {
	defer func() { observe("login", role, err) }()
	if !role.Valid() {
		return perrors.NewValidationError(map[string]string{"role": "Type de compte invalide"})
	}
	// A rehydration in flight must settle first, or a failed attempt would supersede it
	if err := s.Wait(ctx); err != nil {
		return fmt.Errorf("[Store Login] %w", err)
	}
	gen := s.begin()

	token, err := s.backend.Login(ctx, email, password)
	if err != nil {
		return authError("[Store Login]", perrors.ErrAuthentication, err)
	}
	return s.establish(ctx, gen, "[Store Login]", perrors.ErrAuthentication, token, role)
}

// Register validates the form, creates the account and then behaves like Login.
func (s *Store) Register(ctx context.Context, form users.RegistrationForm) (err error) {
	role := form.Role
	defer func() { observe("register", role, err) }()
	if err := form.Validate(); err != nil {
		return err
	}
	if err := s.Wait(ctx); err != nil {
		return fmt.Errorf("[Store Register] %w", err)
	}
	gen := s.begin()

	var token string
	switch payload := form.Payload().(type) {
	case users.MerchantRegistration:
		token, err = s.backend.RegisterMerchant(ctx, payload)
	case users.CustomerRegistration:
		token, err = s.backend.RegisterCustomer(ctx, payload)
	}
	if err != nil {
		return authError("[Store Register]", perrors.ErrRegistration, err)
	}
	return s.establish(ctx, gen, "[Store Register]", perrors.ErrRegistration, token, role)
}

// establish is the shared tail of Login and Register: check the role claim, fetch the
// profile, then persist and commit.
func (s *Store) establish(ctx context.Context, gen uint64, op string, kind error, token string, role users.Role) error {
	if claimed, ok := roleClaim(token); ok && claimed != role {
		return fmt.Errorf("%s %w: %w (credential belongs to a %s account)", op, kind, perrors.ErrWrongRole, claimed)
	}

	identity, err := s.fetchProfile(ctx, token, role)
	if err != nil {
		return authError(op, kind, err)
	}
	return s.commit(ctx, gen, token, identity)
}

// RefreshProfile refetches the identity with the current credential. A rejected
// credential logs the device out and returns ErrSessionExpired.
func (s *Store) RefreshProfile(ctx context.Context) (err error) {
	current := s.Snapshot()
	defer func() { observe("refresh", current.Role, err) }()
	if !current.Authenticated() {
		return nil
	}
	gen := s.begin()

	identity, err := s.fetchProfile(ctx, current.Credential, current.Role)
	if err != nil {
		return s.expire(ctx, gen, fmt.Errorf("[Store RefreshProfile] %w: %w", perrors.ErrSessionExpired, err))
	}
	return s.commit(ctx, gen, current.Credential, identity)
}

// Logout clears memory and storage. It supersedes every operation in flight and is
// idempotent.
func (s *Store) Logout(ctx context.Context) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	role := s.session.Role
	defer func() { observe("logout", role, err) }()

	s.generation++
	err = s.storage.Delete(ctx, s.device, storage.SessionKeys...)
	s.session = s.session.anonymous()
	if err != nil {
		return fmt.Errorf("[Store Logout] failed to clear storage: %w", err)
	}
	return nil
}

// UpdateProfile applies a partial update to the customer's profile.
func (s *Store) UpdateProfile(ctx context.Context, update users.ProfileUpdate) (err error) {
	current := s.Snapshot()
	defer func() { observe("update_profile", current.Role, err) }()
	if err := requireCustomer(current); err != nil {
		return err
	}
	if err := update.Validate(); err != nil {
		return err
	}
	if update.Empty() {
		return nil
	}
	gen := s.begin()

	customer, err := s.backend.UpdateProfile(ctx, current.Credential, update)
	if err != nil {
		return s.failAuthorized(ctx, gen, "[Store UpdateProfile]", err)
	}
	return s.commit(ctx, gen, current.Credential, customer)
}

// UpdateMerchantProfile applies a partial update to the merchant's profile, including
// the payout IBAN.
func (s *Store) UpdateMerchantProfile(ctx context.Context, update users.MerchantProfileUpdate) (err error) {
	current := s.Snapshot()
	defer func() { observe("update_merchant_profile", current.Role, err) }()
	if err := requireMerchant(current); err != nil {
		return err
	}
	if err := update.Validate(); err != nil {
		return err
	}
	if update.Empty() {
		return nil
	}
	gen := s.begin()

	merchant, err := s.backend.UpdateMerchantProfile(ctx, current.Credential, update)
	if err != nil {
		return s.failAuthorized(ctx, gen, "[Store UpdateMerchantProfile]", err)
	}
	return s.commit(ctx, gen, current.Credential, merchant)
}

// DeleteAccount deletes the customer's account and logs the device out.
func (s *Store) DeleteAccount(ctx context.Context) (err error) {
	current := s.Snapshot()
	defer func() { observe("delete_account", current.Role, err) }()
	if err := requireCustomer(current); err != nil {
		return err
	}
	gen := s.begin()

	if err := s.backend.DeleteUser(ctx, current.Credential, current.Customer.ID); err != nil {
		return s.failAuthorized(ctx, gen, "[Store DeleteAccount]", err)
	}
	return s.expire(ctx, gen, nil)
}

// Cached returns the identity last persisted for this device. It may be stale and is
// only fit for an optimistic first paint.
func (s *Store) Cached(ctx context.Context) (users.Identity, bool) {
	rawRole, ok, err := s.storage.Get(ctx, s.device, storage.KeyRole)
	if err != nil || !ok {
		return nil, false
	}
	role, ok := users.ParseRole(rawRole)
	if !ok {
		return nil, false
	}

	key := storage.KeyCustomer
	var identity users.Identity = &users.Customer{}
	if role == users.RoleMerchant {
		key = storage.KeyMerchant
		identity = &users.Merchant{}
	}
	raw, ok, err := s.storage.Get(ctx, s.device, key)
	if err != nil || !ok {
		return nil, false
	}
	if err := json.Unmarshal([]byte(raw), identity); err != nil {
		log.Debug().Err(err).Str("device", s.device).Msg("unreadable cached profile")
		return nil, false
	}
	return identity, true
}

// begin stamps a new operation.
func (s *Store) begin() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
	return s.generation
}

func (s *Store) fetchProfile(ctx context.Context, token string, role users.Role) (users.Identity, error) {
	if role == users.RoleMerchant {
		m, err := s.backend.MerchantProfile(ctx, token)
		if err != nil {
			return nil, err
		}
		return m, nil
	}
	c, err := s.backend.CustomerProfile(ctx, token)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// commit persists then applies an authenticated Session, unless gen was superseded.
func (s *Store) commit(ctx context.Context, gen uint64, token string, identity users.Identity) error {
	profile, err := json.Marshal(identity)
	if err != nil {
		return fmt.Errorf("[Store commit] failed to encode profile: %w", err)
	}
	role := identity.Role()
	profileKey, staleKey := storage.KeyCustomer, storage.KeyMerchant
	if role == users.RoleMerchant {
		profileKey, staleKey = storage.KeyMerchant, storage.KeyCustomer
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		return perrors.ErrSuperseded
	}

	writes := []struct{ key, value string }{
		{storage.KeyToken, token},
		{storage.KeyRole, role.String()},
		{profileKey, string(profile)},
	}
	for _, w := range writes {
		if err := s.storage.Set(ctx, s.device, w.key, w.value); err != nil {
			// Never leave a partial credential behind
			_ = s.storage.Delete(ctx, s.device, storage.SessionKeys...)
			s.session = s.session.anonymous()
			return fmt.Errorf("[Store commit] failed to persist %s: %w", w.key, err)
		}
	}
	if err := s.storage.Delete(ctx, s.device, staleKey); err != nil {
		log.Warn().Err(err).Str("device", s.device).Msg("failed to drop stale profile")
	}

	next := Session{Status: s.session.Status, Role: role, Credential: token}
	switch v := identity.(type) {
	case *users.Customer:
		c := *v
		next.Customer = &c
	case *users.Merchant:
		m := *v
		next.Merchant = &m
	}
	s.session = next
	return nil
}

// expire clears the Session unless gen was superseded, then returns cause.
func (s *Store) expire(ctx context.Context, gen uint64, cause error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		return perrors.ErrSuperseded
	}
	if err := s.storage.Delete(ctx, s.device, storage.SessionKeys...); err != nil {
		log.Err(err).Str("device", s.device).Msg("failed to clear persisted session")
	}
	s.session = s.session.anonymous()
	return cause
}

// failAuthorized turns a 401 from an authenticated call into an expired session.
func (s *Store) failAuthorized(ctx context.Context, gen uint64, op string, err error) error {
	if perrors.StatusCode(err) == http.StatusUnauthorized {
		return s.expire(ctx, gen, fmt.Errorf("%s %w: %w", op, perrors.ErrSessionExpired, err))
	}
	return fmt.Errorf("%s %w", op, err)
}

func requireCustomer(current Session) error {
	if !current.Authenticated() {
		return perrors.ErrNotAuthenticated
	}
	if current.Role != users.RoleCustomer {
		return perrors.ErrWrongRole
	}
	return nil
}

func requireMerchant(current Session) error {
	if !current.Authenticated() {
		return perrors.ErrNotAuthenticated
	}
	if current.Role != users.RoleMerchant {
		return perrors.ErrWrongRole
	}
	return nil
}

// authError classifies a failed login/registration call. Transport failures stay
// network errors; anything else is reported as kind.
func authError(op string, kind error, err error) error {
	if perrors.Is(err, perrors.ErrNetwork) {
		return fmt.Errorf("%s %w", op, err)
	}
	return fmt.Errorf("%s %w: %w", op, kind, err)
}

// roleClaim reads an unverified "role" claim from a JWT credential. Opaque
// credentials carry no claim.
func roleClaim(token string) (users.Role, bool) {
	parsed, _, err := jwtlib.NewParser().ParseUnverified(token, jwtlib.MapClaims{})
	if err != nil {
		return "", false
	}
	claims, ok := parsed.Claims.(jwtlib.MapClaims)
	if !ok {
		return "", false
	}
	raw, ok := claims["role"].(string)
	if !ok {
		return "", false
	}
	return users.ParseRole(raw)
}

func observe(op string, role users.Role, err error) {
	label := role.String()
	if label == "" {
		label = "none"
	}
	metrics.SessionOperationsTotal.WithLabelValues(op, label, result(err)).Inc()
}

func result(err error) string {
	switch {
	case err == nil:
		return "ok"
	case perrors.Is(err, perrors.ErrSuperseded):
		return "superseded"
	case perrors.Is(err, perrors.ErrSessionExpired):
		return "expired"
	case perrors.Is(err, perrors.ErrNetwork):
		return "network"
	case perrors.Is(err, perrors.ErrAuthentication),
		perrors.Is(err, perrors.ErrRegistration),
		perrors.Is(err, perrors.ErrValidation):
		return "rejected"
	}
	return "error"
}

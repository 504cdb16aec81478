// Package handoff binds a pending terminal session to the signed-in customer.
//
// A terminal shows a QR code pointing at /enregistrement?session_id=<id>. Opening it
// never binds anything: the customer has to confirm, which issues exactly one bind call.
package handoff

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/zenty/portal/guard"
	perrors "github.com/zenty/portal/internal/errors"
	"github.com/zenty/portal/internal/metrics"
	"github.com/zenty/portal/sessions"
	"github.com/zenty/portal/users"
)

// Path of the hand-off page
const Path = "/enregistrement"

// SuccessTarget is where a successful hand-off continues.
const SuccessTarget = "/palm"

// ErrInvalidTransition is returned when a Flow that already ran is authorized again.
var ErrInvalidTransition = errors.New("invalid hand-off transition")

// Binder is the backend call that authorizes a device session.
type Binder interface {
	BindSession(ctx context.Context, token, sessionID, userID string) error
}

type View string

const (
	ViewLoading  View = "loading" // No id yet, or the session is still resolving
	ViewConfirm  View = "confirm"
	ViewRedirect View = "redirect"
)

type Entry struct {
	View     View
	Location string
}

// Enter decides what opening the hand-off page shows.
func Enter(sessionID string, s sessions.Session) Entry {
	if sessionID == "" || !s.Resolved() {
		return Entry{View: ViewLoading}
	}
	if !s.Authenticated() {
		return Entry{View: ViewRedirect, Location: LoginDetourURL(sessionID)}
	}
	if s.Role != users.RoleCustomer {
		return Entry{View: ViewRedirect, Location: guard.LandingFor(s.Role)}
	}
	return Entry{View: ViewConfirm}
}

// LoginDetourURL sends an anonymous visitor to the login form, carrying the id.
func LoginDetourURL(sessionID string) string {
	return guard.Home + "?login=1&session_id=" + url.QueryEscape(sessionID)
}

// ReturnURL brings a visitor back to the hand-off page after logging in.
func ReturnURL(sessionID string) string {
	return Path + "?session_id=" + url.QueryEscape(sessionID)
}

type State string

const (
	StateIdle        State = "idle"
	StateAuthorizing State = "authorizing"
	StateSuccess     State = "success"
	StateError       State = "error"
)

// Flow is the confirmation state machine of one hand-off attempt:
// idle -> authorizing -> success | error. A Flow runs at most once. Retrying after an
// error starts a fresh Flow, which is what each confirmation submission does.
type Flow struct {
	sessionID string
	binder    Binder

	mu    sync.Mutex
	state State
	err   error
}

func NewFlow(sessionID string, binder Binder) *Flow {
	return &Flow{sessionID: sessionID, binder: binder, state: StateIdle}
}

func (f *Flow) SessionID() string {
	return f.sessionID
}

func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Err is the failure of the last attempt, nil unless the state is error.
func (f *Flow) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

// Authorize issues the bind call for the session's customer. It only runs from idle.
func (f *Flow) Authorize(ctx context.Context, s sessions.Session) error {
	f.mu.Lock()
	if f.state != StateIdle {
		state := f.state
		f.mu.Unlock()
		return fmt.Errorf("[Handoff Authorize] %w: from %s", ErrInvalidTransition, state)
	}
	if err := checkSession(f.sessionID, s); err != nil {
		f.state, f.err = StateError, err
		f.mu.Unlock()
		return err
	}
	f.state = StateAuthorizing
	f.mu.Unlock()

	err := f.binder.BindSession(ctx, s.Credential, f.sessionID, s.Customer.ID)

	f.mu.Lock()
	defer f.mu.Unlock()
	if err != nil {
		metrics.HandoffBindsTotal.WithLabelValues("error").Inc()
		log.Warn().Err(err).Str("session_id", f.sessionID).Msg("hand-off bind failed")
		f.state, f.err = StateError, fmt.Errorf("[Handoff Authorize] %w", err)
		return f.err
	}
	metrics.HandoffBindsTotal.WithLabelValues("ok").Inc()
	f.state, f.err = StateSuccess, nil
	return nil
}

func checkSession(sessionID string, s sessions.Session) error {
	if sessionID == "" {
		return perrors.NewValidationError(map[string]string{"session_id": "Identifiant de session manquant"})
	}
	if !s.Authenticated() {
		return perrors.ErrNotAuthenticated
	}
	if s.Role != users.RoleCustomer || s.Customer == nil {
		return perrors.ErrWrongRole
	}
	return nil
}

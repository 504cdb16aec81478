package handoff_test

import (
	"context"
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zenty/portal/handoff"
	perrors "github.com/zenty/portal/internal/errors"
	"github.com/zenty/portal/sessions"
	"github.com/zenty/portal/users"
)

type bindCall struct {
	token, sessionID, userID string
}

type recordingBinder struct {
	mu    sync.Mutex
	calls []bindCall
	errs  []error // returned in order, nil once exhausted
}

func (b *recordingBinder) BindSession(_ context.Context, token, sessionID, userID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, bindCall{token, sessionID, userID})
	if len(b.errs) == 0 {
		return nil
	}
	err := b.errs[0]
	b.errs = b.errs[1:]
	return err
}

func (b *recordingBinder) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.calls)
}

var (
	resolving = sessions.Session{Status: sessions.StatusResolving}
	anonymous = sessions.Session{Status: sessions.StatusResolved}
	customer  = sessions.Session{Status: sessions.StatusResolved, Role: users.RoleCustomer, Credential: "T", Customer: &users.Customer{ID: "u1"}}
	merchant  = sessions.Session{Status: sessions.StatusResolved, Role: users.RoleMerchant, Credential: "M", Merchant: &users.Merchant{ID: "m1"}}
)

func TestEnter(t *testing.T) {
	tests := []struct {
		name      string
		sessionID string
		session   sessions.Session
		want      handoff.Entry
	}{
		{name: "no id", sessionID: "", session: customer, want: handoff.Entry{View: handoff.ViewLoading}},
		{name: "resolving", sessionID: "abc", session: resolving, want: handoff.Entry{View: handoff.ViewLoading}},
		{name: "anonymous", sessionID: "abc", session: anonymous, want: handoff.Entry{View: handoff.ViewRedirect, Location: "/?login=1&session_id=abc"}},
		{name: "merchant", sessionID: "abc", session: merchant, want: handoff.Entry{View: handoff.ViewRedirect, Location: "/merchant/dashboard"}},
		{name: "customer", sessionID: "abc", session: customer, want: handoff.Entry{View: handoff.ViewConfirm}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, handoff.Enter(tt.sessionID, tt.session))
		})
	}
}

func TestURLs(t *testing.T) {
	require.Equal(t, "/?login=1&session_id=a+b%26c", handoff.LoginDetourURL("a b&c"))
	require.Equal(t, "/enregistrement?session_id=xyz", handoff.ReturnURL("xyz"))
}

func TestFlow_NothingBindsBeforeAuthorize(t *testing.T) {
	b := &recordingBinder{}
	f := handoff.NewFlow("abc", b)

	require.Equal(t, handoff.ViewConfirm, handoff.Enter(f.SessionID(), customer).View)
	require.Equal(t, handoff.StateIdle, f.State())
	require.Zero(t, b.count())
}

func TestFlow_AuthorizeSuccess(t *testing.T) {
	b := &recordingBinder{}
	f := handoff.NewFlow("abc", b)

	require.NoError(t, f.Authorize(context.Background(), customer))
	require.Equal(t, handoff.StateSuccess, f.State())
	require.NoError(t, f.Err())
	require.Equal(t, []bindCall{{token: "T", sessionID: "abc", userID: "u1"}}, b.calls)

	// Success is terminal
	require.ErrorIs(t, f.Authorize(context.Background(), customer), handoff.ErrInvalidTransition)
	require.Equal(t, 1, b.count())
}

func TestFlow_RetryIsAFreshFlow(t *testing.T) {
	b := &recordingBinder{errs: []error{&perrors.APIError{StatusCode: http.StatusNotFound, Message: "Session not found"}}}
	f := handoff.NewFlow("abc", b)

	err := f.Authorize(context.Background(), customer)
	require.Error(t, err)
	require.Equal(t, handoff.StateError, f.State())
	require.Equal(t, "Session not found", perrors.Message(f.Err()))

	// No automatic transition out of error
	require.ErrorIs(t, f.Authorize(context.Background(), customer), handoff.ErrInvalidTransition)
	require.Equal(t, 1, b.count())

	retry := handoff.NewFlow("abc", b)
	require.Equal(t, handoff.StateIdle, retry.State())
	require.NoError(t, retry.Authorize(context.Background(), customer))
	require.Equal(t, handoff.StateSuccess, retry.State())
	require.Equal(t, handoff.StateError, f.State())
	require.Equal(t, 2, b.count())
}

func TestFlow_RequiresCustomer(t *testing.T) {
	tests := []struct {
		name      string
		sessionID string
		session   sessions.Session
		want      error
	}{
		{name: "anonymous", sessionID: "abc", session: anonymous, want: perrors.ErrNotAuthenticated},
		{name: "merchant", sessionID: "abc", session: merchant, want: perrors.ErrWrongRole},
		{name: "missing id", sessionID: "", session: customer, want: perrors.ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := &recordingBinder{}
			f := handoff.NewFlow(tt.sessionID, b)
			require.ErrorIs(t, f.Authorize(context.Background(), tt.session), tt.want)
			require.Equal(t, handoff.StateError, f.State())
			require.Zero(t, b.count())
		})
	}
}

package server

import (
	"context"
	"net/http"
	"net/url"

	"github.com/google/uuid"

	"github.com/zenty/portal/sessions"
)

// deviceCookieName identifies the browser; its value namespaces the device's session storage
const deviceCookieName = "zenty_device"

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

// ContextKeyStore holds the device's *sessions.Store
const ContextKeyStore ContextKey = "session_store"

func (s *Server) SetDeviceCookie(w http.ResponseWriter, r *http.Request, device string) {
	http.SetCookie(w, &http.Cookie{
		Name:     deviceCookieName,
		Value:    device,
		Path:     "/",
		HttpOnly: true,
		Secure:   getScheme(r) == "https",
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(s.config.GetMaxSessionAge().Seconds()),
	})
}

// deviceFromRequest returns the device id from the cookie, or "" when missing or malformed.
func deviceFromRequest(r *http.Request) string {
	cookie, err := r.Cookie(deviceCookieName)
	if err != nil || cookie.Value == "" {
		return ""
	}
	if _, err := uuid.Parse(cookie.Value); err != nil {
		return ""
	}
	return cookie.Value
}

// DeviceMiddleware attaches the device's session store, issuing a device cookie on first visit.
func (s *Server) DeviceMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		device := deviceFromRequest(r)
		if device == "" {
			device = uuid.NewString()
			s.SetDeviceCookie(w, r, device)
		}
		store := s.sessions.Get(device)
		ctx := context.WithValue(r.Context(), ContextKeyStore, store)
		next(w, r.WithContext(ctx))
	}
}

func storeFrom(ctx context.Context) *sessions.Store {
	store, _ := ctx.Value(ContextKeyStore).(*sessions.Store)
	return store
}

// resolvedSnapshot waits a bounded time for rehydration and returns the session as it
// stands, which may still be resolving.
func (s *Server) resolvedSnapshot(r *http.Request) sessions.Session {
	store := storeFrom(r.Context())
	if store == nil {
		return sessions.Session{Status: sessions.StatusResolving}
	}
	if snap := store.Snapshot(); snap.Resolved() {
		return snap
	}
	ctx, cancel := context.WithTimeout(r.Context(), s.config.GetResolveWait())
	defer cancel()
	_ = store.Wait(ctx)
	return store.Snapshot()
}

// redirectSuccess helper for htmx-aware success redirects
func redirectSuccess(w http.ResponseWriter, r *http.Request, path string) {
	if isHTMXRequest(r) {
		w.Header().Set("HX-Redirect", path)
		w.WriteHeader(http.StatusNoContent) // 204 - no content, just redirect instruction
		return
	}
	http.Redirect(w, r, path, http.StatusSeeOther)
}

// redirectWithError helper for htmx-aware error redirects
func redirectWithError(w http.ResponseWriter, r *http.Request, path, errorMsg string) {
	redirectWithValues(w, r, path, url.Values{"error": {errorMsg}})
}

// redirectWithValues redirects to path with query values, skipping empty ones.
func redirectWithValues(w http.ResponseWriter, r *http.Request, path string, values url.Values) {
	clean := url.Values{}
	for k, vs := range values {
		for _, v := range vs {
			if v != "" {
				clean.Add(k, v)
			}
		}
	}
	if len(clean) > 0 {
		path += "?" + clean.Encode()
	}
	redirectSuccess(w, r, path)
}

// isHTMXRequest checks if the request was initiated by HTMX
func isHTMXRequest(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

package server

import (
	"net/http"
	"net/url"

	"github.com/rs/zerolog/log"

	"github.com/zenty/portal/guard"
	"github.com/zenty/portal/handoff"
	perrors "github.com/zenty/portal/internal/errors"
	"github.com/zenty/portal/users"
)

const (
	msgNetwork          = "Erreur de connexion au serveur"
	msgBadCredentials   = "Email ou mot de passe incorrect"
	msgMissingFields    = "Email et mot de passe requis"
	msgRegisterFailed   = "Impossible de créer le compte"
	msgNotCustomer      = "Ce compte est un compte commerçant. Choisissez « Commerçant » pour vous connecter."
	msgNotMerchant      = "Ce compte est un compte client. Choisissez « Client » pour vous connecter."
	msgServiceUnavail   = "Service momentanément indisponible"
	msgSessionExpired   = "Votre session a expiré, veuillez vous reconnecter"
	msgResetLinkInvalid = "Lien de réinitialisation invalide"
)

// LoginSubmissionHandler processes the login form (POST /auth/login)
func (s *Server) LoginSubmissionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form data", http.StatusBadRequest)
			return
		}

		email := r.PostFormValue("email")
		password := r.PostFormValue("password")
		sessionID := r.PostFormValue("session_id")
		role, ok := users.ParseRole(r.PostFormValue("role"))
		if !ok {
			role = users.RoleCustomer
		}

		back := url.Values{
			"login":      {"1"},
			"role":       {role.String()},
			"email":      {email},
			"session_id": {sessionID},
		}

		if email == "" || password == "" {
			back.Set("error", msgMissingFields)
			redirectWithValues(w, r, RouteHome, back)
			return
		}

		err := storeFrom(r.Context()).Login(r.Context(), email, password, role)
		if perrors.Is(err, perrors.ErrSuperseded) {
			redirectSuccess(w, r, RouteHome)
			return
		}
		if err != nil {
			log.Err(err).Str("role", role.String()).Msg("Login failed")
			back.Set("error", loginErrorMessage(err, role))
			redirectWithValues(w, r, RouteHome, back)
			return
		}

		redirectSuccess(w, r, afterSignIn(role, sessionID))
	}
}

// RegisterSubmissionHandler processes both sign-up forms (POST /auth/register)
func (s *Server) RegisterSubmissionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form data", http.StatusBadRequest)
			return
		}

		role, ok := users.ParseRole(r.PostFormValue("role"))
		if !ok {
			role = users.RoleCustomer
		}
		sessionID := r.PostFormValue("session_id")
		form := users.RegistrationForm{
			Role:            role,
			Email:           r.PostFormValue("email"),
			Password:        r.PostFormValue("password"),
			ConfirmPassword: r.PostFormValue("confirmPassword"),
			Phone:           r.PostFormValue("phone"),
			AcceptTerms:     r.PostFormValue("acceptTerms") == "on",
			FirstName:       r.PostFormValue("firstName"),
			LastName:        r.PostFormValue("lastName"),
			CompanyName:     r.PostFormValue("companyName"),
			Address:         r.PostFormValue("address"),
		}

		err := storeFrom(r.Context()).Register(r.Context(), form)

		var valErr *perrors.ValidationError
		switch {
		case err == nil:
			redirectSuccess(w, r, afterSignIn(role, sessionID))
		case perrors.As(err, &valErr):
			form.Password, form.ConfirmPassword = "", ""
			s.renderLanding(w, r, http.StatusUnprocessableEntity, LandingData{
				ShowRegister: true,
				Role:         role,
				SessionID:    sessionID,
				Email:        form.Email,
				Form:         form,
				Fields:       valErr.Fields,
			})
		case perrors.Is(err, perrors.ErrSuperseded):
			redirectSuccess(w, r, RouteHome)
		default:
			log.Err(err).Str("role", role.String()).Msg("Registration failed")
			redirectWithValues(w, r, RouteHome, url.Values{
				"register":   {"1"},
				"role":       {role.String()},
				"email":      {form.Email},
				"session_id": {sessionID},
				"error":      {registerErrorMessage(err)},
			})
		}
	}
}

// LogoutHandler clears the device session (POST /auth/logout)
func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := storeFrom(r.Context()).Logout(r.Context()); err != nil {
			log.Err(err).Msg("Logout: failed to clear session storage")
		}
		redirectSuccess(w, r, RouteHome)
	}
}

// afterSignIn is where a successful login or registration continues.
func afterSignIn(role users.Role, sessionID string) string {
	if sessionID != "" && role == users.RoleCustomer {
		return handoff.ReturnURL(sessionID)
	}
	return guard.LandingFor(role)
}

func loginErrorMessage(err error, role users.Role) string {
	switch {
	case perrors.Is(err, perrors.ErrNetwork):
		return msgNetwork
	case perrors.Is(err, perrors.ErrWrongRole) && role == users.RoleCustomer:
		return msgNotCustomer
	case perrors.Is(err, perrors.ErrWrongRole):
		return msgNotMerchant
	default:
		return msgBadCredentials
	}
}

func registerErrorMessage(err error) string {
	if perrors.Is(err, perrors.ErrNetwork) {
		return msgNetwork
	}
	if perrors.StatusCode(err) != 0 {
		return perrors.Message(err)
	}
	return msgRegisterFailed
}

// backendErrorMessage is the flash shown when a page-level backend call fails.
func backendErrorMessage(err error) string {
	switch {
	case perrors.Is(err, perrors.ErrNetwork):
		return msgNetwork
	case perrors.StatusCode(err) >= http.StatusInternalServerError:
		return msgServiceUnavail
	case perrors.StatusCode(err) != 0:
		return perrors.Message(err)
	default:
		return msgServiceUnavail
	}
}

package server

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog/log"

	perrors "github.com/zenty/portal/internal/errors"
	"github.com/zenty/portal/users"
)

const (
	noticeResetSent = "Si un compte existe pour cet email, un lien de réinitialisation vient d'être envoyé."
	noticeResetDone = "Mot de passe modifié, vous pouvez vous connecter."
)

type passwordPageData struct {
	Email  string
	Token  string
	Fields map[string]string
}

func (s *Server) ForgotPasswordGetHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data := passwordPageData{Email: r.URL.Query().Get("email")}
		s.render(w, r, http.StatusOK, pageForgotPassword, s.pageData(r, "Mot de passe oublié", data))
	}
}

// ForgotPasswordPostHandler asks the backend to mail a reset link. The answer never
// reveals whether the address has an account.
func (s *Server) ForgotPasswordPostHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form data", http.StatusBadRequest)
			return
		}
		email := strings.TrimSpace(r.PostFormValue("email"))
		if email == "" {
			redirectWithError(w, r, RouteForgotPassword, "Email obligatoire")
			return
		}

		if err := s.api.ForgotPassword(r.Context(), email); err != nil {
			log.Err(err).Msg("Forgot password request failed")
			redirectWithValues(w, r, RouteForgotPassword, url.Values{
				"email": {email},
				"error": {backendErrorMessage(err)},
			})
			return
		}
		redirectWithValues(w, r, RouteForgotPassword, url.Values{"notice": {noticeResetSent}})
	}
}

func (s *Server) ResetPasswordGetHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := r.URL.Query().Get("token")
		data := s.pageData(r, "Nouveau mot de passe", passwordPageData{Token: token})
		if token == "" && data.Error == "" {
			data.Error = msgResetLinkInvalid
		}
		s.render(w, r, http.StatusOK, pageResetPassword, data)
	}
}

func (s *Server) ResetPasswordPostHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form data", http.StatusBadRequest)
			return
		}
		form := users.PasswordResetForm{
			Token:           r.PostFormValue("token"),
			Password:        r.PostFormValue("password"),
			ConfirmPassword: r.PostFormValue("confirmPassword"),
		}

		if err := form.Validate(); err != nil {
			var valErr *perrors.ValidationError
			if !perrors.As(err, &valErr) {
				log.Err(err).Msg("Reset password validation failed")
				http.Error(w, "Invalid form data", http.StatusBadRequest)
				return
			}
			data := s.pageData(r, "Nouveau mot de passe", passwordPageData{Token: form.Token, Fields: valErr.Fields})
			if _, missing := valErr.Fields["token"]; missing {
				data.Error = msgResetLinkInvalid
			}
			s.render(w, r, http.StatusUnprocessableEntity, pageResetPassword, data)
			return
		}

		if err := s.api.ResetPassword(r.Context(), form.Token, form.Password); err != nil {
			log.Err(err).Msg("Reset password failed")
			redirectWithValues(w, r, RouteResetPassword, url.Values{
				"token": {form.Token},
				"error": {backendErrorMessage(err)},
			})
			return
		}
		redirectWithValues(w, r, RouteHome, url.Values{"login": {"1"}, "notice": {noticeResetDone}})
	}
}

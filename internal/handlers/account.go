package handlers

import (
	"errors"
	"net/http"
	"strings"

	"changemgmt/db"
	"changemgmt/internal/auth"

	"golang.org/x/crypto/bcrypt"
)

const msgInvalidLogin = "Invalid login attempt."

// safeReturnURL accepts only local paths, so login cannot redirect off-site.
func safeReturnURL(raw string) string {
	if raw == "" || !strings.HasPrefix(raw, "/") ||
		strings.HasPrefix(raw, "//") || strings.HasPrefix(raw, "/\\") {
		return requestBasePath
	}
	return raw
}

// LoginFormHandler renders the sign-in page.
func (h *Handler) LoginFormHandler(w http.ResponseWriter, r *http.Request) {
	if _, ok := auth.PrincipalFrom(r.Context()); ok {
		http.Redirect(w, r, safeReturnURL(r.URL.Query().Get("ReturnUrl")), http.StatusSeeOther)
		return
	}
	h.render(w, r, http.StatusOK, "login", &pageData{
		Title:     "Log in",
		ReturnURL: r.URL.Query().Get("ReturnUrl"),
	})
}

// LoginHandler checks the credentials and starts a session.
func (h *Handler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var form LoginForm
	if err := h.decodeForm(w, r, &form); err != nil {
		h.renderError(w, r, http.StatusBadRequest, "Invalid form submission.")
		return
	}
	form.Username = strings.TrimSpace(form.Username)

	fail := func(status int) {
		h.render(w, r, status, "login", &pageData{
			Title:     "Log in",
			ReturnURL: form.ReturnURL,
			LoginName: form.Username,
			Message:   msgInvalidLogin,
		})
	}
	if form.Username == "" || form.Password == "" {
		fail(http.StatusUnauthorized)
		return
	}

	log := h.log.WithField("user", form.Username)
	u, err := h.Store.GetUserByUsername(r.Context(), form.Username)
	if errors.Is(err, db.ErrNotFound) {
		log.Info("login failed: unknown user")
		fail(http.StatusUnauthorized)
		return
	}
	if err != nil {
		log.WithError(err).Error("login lookup")
		h.renderError(w, r, http.StatusInternalServerError, "An error occurred while signing in.")
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(form.Password)); err != nil {
		log.Info("login failed: wrong password")
		fail(http.StatusUnauthorized)
		return
	}

	roles, err := h.Store.GetUserRoles(r.Context(), u.ID)
	if err != nil {
		log.WithError(err).Error("load roles")
		h.renderError(w, r, http.StatusInternalServerError, "An error occurred while signing in.")
		return
	}
	if _, err := h.auth.SignIn(w, &auth.Principal{Username: u.Username, Roles: roles}); err != nil {
		log.WithError(err).Error("issue session")
		h.renderError(w, r, http.StatusInternalServerError, "An error occurred while signing in.")
		return
	}

	log.WithField("roles", roles).Info("user logged in")
	http.Redirect(w, r, safeReturnURL(form.ReturnURL), http.StatusSeeOther)
}

// LogoutHandler ends the session.
func (h *Handler) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.PrincipalFrom(r.Context())
	if err := h.auth.SignOut(r.Context(), w, p); err != nil {
		h.log.WithError(err).Warn("logout")
	}
	if p != nil {
		h.log.WithField("user", p.Username).Info("user logged out")
	}
	http.Redirect(w, r, auth.LoginPath, http.StatusSeeOther)
}

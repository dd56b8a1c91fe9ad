package handlers

import (
	"bytes"
	"encoding/json"
	"html/template"
	"net/http"
	"net/url"
	"strings"
	"time"

	"changemgmt/internal/auth"
	"changemgmt/models"
)

const (
	flashCookieName = "changemgmt_flash"
	displayLayout   = "2006-01-02 15:04"
)

var templateFuncs = template.FuncMap{
	"date": func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.Format(displayLayout)
	},
	"optdate": func(t *time.Time) string {
		if t == nil {
			return ""
		}
		return t.Format(displayLayout)
	},
	"optstr": func(s *string) string {
		if s == nil {
			return ""
		}
		return *s
	},
}

type flash struct {
	Kind    string
	Message string
}

// pageData is the view model shared by every page.
type pageData struct {
	Title      string
	Username   string
	IsAdmin    bool
	IsEmployee bool
	Flash      *flash

	Requests     []models.Request
	Request      *models.Request
	StatusFilter string
	Heading      string
	BasePath     string

	Form       *RequestForm
	FormAction string
	Errors     fieldErrors
	CanDecide  bool
	Priorities []models.Priority
	Statuses   []models.Status

	ReturnURL string
	LoginName string
	Message   string
}

// setFlash stores a one-shot message shown on the next rendered page.
func (h *Handler) setFlash(w http.ResponseWriter, kind, msg string) {
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookieName,
		Value:    url.QueryEscape(kind + ":" + msg),
		Path:     "/",
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteStrictMode,
	})
}

func (h *Handler) popFlash(w http.ResponseWriter, r *http.Request) *flash {
	c, err := r.Cookie(flashCookieName)
	if err != nil {
		return nil
	}
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteStrictMode,
	})
	raw, err := url.QueryUnescape(c.Value)
	if err != nil {
		return nil
	}
	kind, msg, ok := strings.Cut(raw, ":")
	if !ok || (kind != "success" && kind != "error") {
		return nil
	}
	return &flash{Kind: kind, Message: msg}
}

// render executes page into a buffer so a template error never leaves a
// half-written response.
func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, page string, data *pageData) {
	if data == nil {
		data = &pageData{}
	}
	if p, ok := auth.PrincipalFrom(r.Context()); ok {
		data.Username = p.Username
		data.IsAdmin = p.IsAdmin()
		data.IsEmployee = p.HasRole(models.RoleEmployee)
	}
	if data.Flash == nil {
		data.Flash = h.popFlash(w, r)
	}

	t, ok := h.pages[page]
	if !ok {
		h.log.WithField("page", page).Error("unknown page")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		h.log.WithError(err).WithField("page", page).Error("render page")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (h *Handler) renderError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	if auth.WantsJSON(r) {
		writeJSON(w, status, map[string]string{"error": msg})
		return
	}
	h.render(w, r, status, "error", &pageData{Title: http.StatusText(status), Message: msg})
}

func (h *Handler) NotFoundHandler(w http.ResponseWriter, r *http.Request) {
	h.renderError(w, r, http.StatusNotFound, "The requested resource was not found.")
}

func (h *Handler) AccessDeniedHandler(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusForbidden, "access_denied", &pageData{Title: "Access denied"})
}

// listEnvelope is the JSON listing body: a flat array under "data".
type listEnvelope struct {
	Data []models.Request `json:"data"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

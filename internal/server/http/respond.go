package httpserver

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/and161185/macronizer/internal/errs"
)

// errorBody is the JSON error shape of every /api endpoint.
type errorBody struct {
	Message        string            `json:"message"`
	Errors         map[string]string `json:"errors,omitempty"`
	UpstreamStatus int               `json:"upstream_status,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeValidation(w http.ResponseWriter, fields map[string]string) {
	writeJSON(w, http.StatusBadRequest, errorBody{Message: "validation failed", Errors: fields})
}

// apiError maps domain errors to responses. Unexpected errors are logged and hidden.
func (s *Server) apiError(w http.ResponseWriter, r *http.Request, err error, notFoundMsg string) {
	switch {
	case errors.Is(err, errs.ErrValidation):
		writeJSON(w, http.StatusBadRequest, errorBody{Message: err.Error()})
	case errors.Is(err, errs.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Message: notFoundMsg})
	case errors.Is(err, errs.ErrAlreadyExists):
		writeJSON(w, http.StatusConflict, errorBody{Message: "username or email already taken"})
	default:
		s.log.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		writeJSON(w, http.StatusInternalServerError, errorBody{Message: "Server Error"})
	}
}

const maxJSONBody = 1 << 20

// decodeJSON reads a bounded JSON body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Message: "malformed JSON body"})
		return false
	}
	return true
}

// --- flash messages ---

const flashCookie = "macronizer_flash"

const (
	flashInfo    = "info"
	flashSuccess = "success"
	flashWarning = "warning"
	flashDanger  = "danger"
)

const (
	msgAccessUnauthorized = "Access unauthorized."
	msgForcedLogout       = "You have been logged out. Please log in again."
	msgLoggedOut          = "You have logged out."
	msgUsernameTaken      = "Username taken."
	msgBadCredentials     = "Invalid username/password."
	msgTooManyAttempts    = "Too many failed attempts. Try again later."
	msgWelcome            = "Account created."
)

type flash struct {
	Category string
	Message  string
}

// setFlash stores one message for the next rendered page.
func setFlash(w http.ResponseWriter, category, msg string) {
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookie,
		Value:    url.QueryEscape(category + "|" + msg),
		Path:     "/",
		MaxAge:   60,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// popFlash reads and clears the pending message.
func popFlash(w http.ResponseWriter, r *http.Request) *flash {
	c, err := r.Cookie(flashCookie)
	if err != nil {
		return nil
	}
	http.SetCookie(w, &http.Cookie{Name: flashCookie, Value: "", Path: "/", MaxAge: -1})
	raw, err := url.QueryUnescape(c.Value)
	if err != nil {
		return nil
	}
	cat, msg, ok := strings.Cut(raw, "|")
	if !ok || msg == "" {
		return nil
	}
	return &flash{Category: cat, Message: msg}
}

// render executes a page template into a buffer, then writes it with status.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, data pageData) {
	if data.Flash == nil {
		data.Flash = popFlash(w, r)
	}
	if data.User == nil {
		data.User, _ = UserFromCtx(r.Context())
	}
	data.Today = s.now().Format("2006-01-02")

	var buf bytes.Buffer
	if err := s.pages.ExecuteTemplate(&buf, name, data); err != nil {
		s.log.Error("render", zap.String("page", name), zap.Error(err))
		http.Error(w, "Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

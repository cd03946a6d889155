package httpserver

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/and161185/macronizer/internal/convert"
	"github.com/and161185/macronizer/internal/errs"
	"github.com/and161185/macronizer/internal/model"
	"github.com/and161185/macronizer/internal/session"
)

// forceLogout ends the current session when an authenticated user opens an auth page.
// It returns the warning to show, or nil when the request was anonymous.
func (s *Server) forceLogout(w http.ResponseWriter, r *http.Request) (*flash, *http.Request) {
	u, ok := UserFromCtx(r.Context())
	if !ok {
		return nil, r
	}
	if err := s.sessions.Revoke(r.Context(), session.TokenFromRequest(r)); err != nil {
		s.log.Warn("revoke session", zap.Int64("user_id", u.ID), zap.Error(err))
	}
	s.sessions.ClearCookie(w)
	return &flash{Category: flashWarning, Message: msgForcedLogout}, r.WithContext(WithUser(r.Context(), nil))
}

func (s *Server) loginPage(w http.ResponseWriter, r *http.Request) {
	f, r := s.forceLogout(w, r)
	s.render(w, r, http.StatusOK, "login.html", pageData{Title: "Log In", Flash: f})
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	warn, r := s.forceLogout(w, r)
	if err := r.ParseForm(); err != nil {
		s.render(w, r, http.StatusBadRequest, "login.html", pageData{Title: "Log In", Flash: warn})
		return
	}
	form := convert.LoginForm{
		Username: r.PostForm.Get("username"),
		Password: r.PostForm.Get("password"),
	}
	data := pageData{Title: "Log In", Flash: warn, Form: map[string]string{"username": form.Username}}
	if fields := s.check(form); fields != nil {
		data.Errors = fields
		s.render(w, r, http.StatusBadRequest, "login.html", data)
		return
	}

	u, err := s.auth.Authenticate(r.Context(), form.Username, form.Password, clientIP(r))
	switch {
	case err == nil:
	case errors.Is(err, errs.ErrUnauthorized):
		data.Flash = &flash{Category: flashDanger, Message: msgBadCredentials}
		s.render(w, r, http.StatusUnauthorized, "login.html", data)
		return
	case errors.Is(err, errs.ErrRateLimited):
		data.Flash = &flash{Category: flashDanger, Message: msgTooManyAttempts}
		s.render(w, r, http.StatusTooManyRequests, "login.html", data)
		return
	default:
		s.pageError(w, r, "login", err)
		return
	}
	if warn != nil {
		setFlash(w, warn.Category, warn.Message)
	}
	s.startSession(w, r, u.ID)
}

func (s *Server) registerPage(w http.ResponseWriter, r *http.Request) {
	f, r := s.forceLogout(w, r)
	s.render(w, r, http.StatusOK, "register.html", pageData{Title: "Register", Flash: f})
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	warn, r := s.forceLogout(w, r)
	if err := r.ParseForm(); err != nil {
		s.render(w, r, http.StatusBadRequest, "register.html", pageData{Title: "Register", Flash: warn})
		return
	}
	form := convert.RegisterForm{
		Name:     r.PostForm.Get("name"),
		Email:    r.PostForm.Get("email"),
		Username: r.PostForm.Get("username"),
		Password: r.PostForm.Get("password"),
	}
	data := pageData{
		Title: "Register",
		Flash: warn,
		Form:  map[string]string{"name": form.Name, "email": form.Email, "username": form.Username},
	}
	if fields := s.check(form); fields != nil {
		data.Errors = fields
		s.render(w, r, http.StatusBadRequest, "register.html", data)
		return
	}

	u, err := s.auth.Register(r.Context(), model.Registration{
		Name:     form.Name,
		Email:    form.Email,
		Username: form.Username,
		Password: form.Password,
	})
	switch {
	case err == nil:
	case errors.Is(err, errs.ErrAlreadyExists):
		setFlash(w, flashDanger, msgUsernameTaken)
		http.Redirect(w, r, "/register", http.StatusSeeOther)
		return
	case errors.Is(err, errs.ErrValidation):
		data.Flash = &flash{Category: flashDanger, Message: err.Error()}
		s.render(w, r, http.StatusBadRequest, "register.html", data)
		return
	default:
		s.pageError(w, r, "register", err)
		return
	}
	s.log.Info("user registered", zap.Int64("user_id", u.ID))
	if warn != nil {
		setFlash(w, warn.Category, warn.Message)
	} else {
		setFlash(w, flashSuccess, msgWelcome)
	}
	s.startSession(w, r, u.ID)
}

// startSession issues a session cookie and sends the browser to the dashboard.
func (s *Server) startSession(w http.ResponseWriter, r *http.Request, userID int64) {
	tok, exp, err := s.sessions.Issue(r.Context(), userID)
	if err != nil {
		s.pageError(w, r, "issue session", err)
		return
	}
	s.sessions.SetCookie(w, tok, exp)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Revoke(r.Context(), session.TokenFromRequest(r)); err != nil {
		s.log.Warn("revoke session", zap.Error(err))
	}
	s.sessions.ClearCookie(w)
	setFlash(w, flashInfo, msgLoggedOut)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (s *Server) pageError(w http.ResponseWriter, r *http.Request, op string, err error) {
	s.log.Error(op, zap.String("path", r.URL.Path), zap.Error(err))
	http.Error(w, "Server Error", http.StatusInternalServerError)
}

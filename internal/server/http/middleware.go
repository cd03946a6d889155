package httpserver

import (
	"errors"
	"net"
	"net/http"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/and161185/macronizer/internal/errs"
	"github.com/and161185/macronizer/internal/session"
)

// Logging returns middleware for structured request logging.
func Logging(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			// metadata only, never bodies or form values
			log.Info("http",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", status),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("dur", time.Since(start)),
				zap.String("peer", clientIP(r)),
				zap.String("req_id", middleware.GetReqID(r.Context())),
			)
		})
	}
}

// Recover returns middleware that turns panics into a logged 500.
func Recover(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					if rec == http.ErrAbortHandler {
						panic(rec)
					}
					log.Error("panic",
						zap.Any("reason", rec),
						zap.ByteString("stack", debug.Stack()),
						zap.String("path", r.URL.Path),
					)
					writeJSON(w, http.StatusInternalServerError, errorBody{Message: "Server Error"})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// NoCache marks every response as non-cacheable so pages never show a stale login state.
func NoCache(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Cache-Control", "no-cache, no-store, must-revalidate")
		h.Set("Pragma", "no-cache")
		h.Set("Expires", "0")
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "same-origin")
		next.ServeHTTP(w, r)
	})
}

// identify resolves the session cookie into a user and stores it in context.
// Any failure leaves the request anonymous.
func (s *Server) identify(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tok := session.TokenFromRequest(r)
		if tok == "" {
			next.ServeHTTP(w, r)
			return
		}
		ctx := r.Context()
		uid, err := s.sessions.Resolve(ctx, tok)
		if err != nil {
			if !errors.Is(err, session.ErrNoSession) {
				s.log.Warn("session resolve", zap.Error(err))
			} else {
				s.sessions.ClearCookie(w)
			}
			next.ServeHTTP(w, r)
			return
		}
		u, err := s.auth.UserByID(ctx, uid)
		if err != nil {
			if !errors.Is(err, errs.ErrNotFound) {
				s.log.Warn("session user lookup", zap.Int64("user_id", uid), zap.Error(err))
			}
			next.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUser(ctx, u)))
	})
}

// requirePage redirects anonymous browser requests to the login page.
func (s *Server) requirePage(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := UserFromCtx(r.Context()); !ok {
			setFlash(w, flashDanger, msgAccessUnauthorized)
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requireAPI rejects anonymous API requests with 401 JSON.
func (s *Server) requireAPI(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := UserFromCtx(r.Context()); !ok {
			writeJSON(w, http.StatusUnauthorized, errorBody{Message: "unauthorized"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientIP uses RemoteAddr only; proxy headers are not trusted.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return strings.TrimSpace(r.RemoteAddr)
	}
	return host
}

const (
	throttleTTL   = 30 * time.Minute
	throttleSweep = 5 * time.Minute
)

type throttleEntry struct {
	lim     *rate.Limiter
	lastUse time.Time
}

// ipThrottle is a per-IP token bucket; idle entries are swept lazily.
type ipThrottle struct {
	mu        sync.Mutex
	limit     rate.Limit
	burst     int
	entries   map[string]*throttleEntry
	lastSweep time.Time
}

func newIPThrottle(perMin, burst int) *ipThrottle {
	if perMin <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = 1
	}
	return &ipThrottle{
		limit:   rate.Limit(float64(perMin) / 60),
		burst:   burst,
		entries: map[string]*throttleEntry{},
	}
}

func (t *ipThrottle) allow(ip string, now time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if now.Sub(t.lastSweep) > throttleSweep {
		for k, e := range t.entries {
			if now.Sub(e.lastUse) > throttleTTL {
				delete(t.entries, k)
			}
		}
		t.lastSweep = now
	}
	e, ok := t.entries[ip]
	if !ok {
		e = &throttleEntry{lim: rate.NewLimiter(t.limit, t.burst)}
		t.entries[ip] = e
	}
	e.lastUse = now
	return e.lim.AllowN(now, 1)
}

// throttle limits credential submissions per client IP.
func (s *Server) throttle(next http.Handler) http.Handler {
	if s.authThrottle == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost && !s.authThrottle.allow(clientIP(r), s.now()) {
			w.Header().Set("Retry-After", "60")
			http.Error(w, "Too many requests, slow down.", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

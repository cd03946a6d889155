// Package httpserver exposes the meal ledger over HTTP: server-rendered pages
// for the browser and a JSON API under /api.
package httpserver

import (
	"embed"
	"html/template"
	"io/fs"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/and161185/macronizer/internal/nutrition"
	"github.com/and161185/macronizer/internal/service"
	"github.com/and161185/macronizer/internal/session"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/*.js
var staticFS embed.FS

// Options tunes optional server behavior.
type Options struct {
	AllowedOrigins []string
	AuthRatePerMin int
	AuthRateBurst  int
	Now            func() time.Time
}

// Server wires HTTP handlers to services.
type Server struct {
	auth     service.AuthService
	ledger   service.LedgerService
	foods    nutrition.Searcher
	sessions *session.Manager
	log      *zap.Logger

	validate     *validator.Validate
	pages        *template.Template
	static       http.Handler
	authThrottle *ipThrottle
	origins      []string
	now          func() time.Time
}

// New constructs a Server. Templates are parsed eagerly so a broken page fails at startup.
func New(
	auth service.AuthService,
	ledger service.LedgerService,
	foods nutrition.Searcher,
	sessions *session.Manager,
	log *zap.Logger,
	opts Options,
) (*Server, error) {
	if log == nil {
		log = zap.NewNop()
	}
	pages, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	scripts, err := fs.Sub(staticFS, "static")
	if err != nil {
		return nil, err
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Server{
		auth:         auth,
		ledger:       ledger,
		foods:        foods,
		sessions:     sessions,
		log:          log,
		validate:     newValidator(),
		pages:        pages,
		static:       http.StripPrefix("/static/", http.FileServer(http.FS(scripts))),
		authThrottle: newIPThrottle(opts.AuthRatePerMin, opts.AuthRateBurst),
		origins:      opts.AllowedOrigins,
		now:          now,
	}, nil
}

// Routes builds the router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(Recover(s.log))
	r.Use(middleware.RequestID)
	r.Use(Logging(s.log))
	r.Use(NoCache)
	if len(s.origins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   s.origins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Content-Type"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}
	r.Use(s.identify)

	r.Get("/healthz", s.healthz)
	r.Handle("/static/*", s.static)

	r.Group(func(r chi.Router) {
		r.Use(s.throttle)
		r.Get("/login", s.loginPage)
		r.Post("/login", s.login)
		r.Get("/register", s.registerPage)
		r.Post("/register", s.register)
	})

	r.Group(func(r chi.Router) {
		r.Use(s.requirePage)
		r.Get("/", s.dashboard)
		r.Get("/nutrition", s.nutritionPage)
		r.Get("/profile", s.profilePage)
		r.Post("/logout", s.logout)
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(s.requireAPI)
		r.Get("/food/search", s.foodSearch)
		r.Delete("/food/delete/{foodId}", s.foodDelete)
		r.Get("/log/search", s.logSearch)
		r.Post("/log/new", s.logNew)
		r.Patch("/log/update", s.logUpdate)
		r.Put("/user/edit", s.userEdit)
	})

	return r
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

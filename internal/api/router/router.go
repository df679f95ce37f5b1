package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/sokrateshealth/anamnesis-platform/internal/auth"
	"github.com/sokrateshealth/anamnesis-platform/internal/clinic"
	httpmiddleware "github.com/sokrateshealth/anamnesis-platform/internal/http/middleware"
	"github.com/sokrateshealth/anamnesis-platform/internal/intake"
	"github.com/sokrateshealth/anamnesis-platform/pkg/logging"
)

// Config holds router configuration.
type Config struct {
	Logger             *logging.Logger
	IntakeHandler      *intake.Handler
	AuthHandler        *auth.Handler
	ClinicHandler      *clinic.Handler
	MetricsHandler     http.Handler
	JWTSecret          string
	CORSAllowedOrigins []string
}

// New creates a Chi router with all routes configured.
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	// Public endpoints: patient session flow plus doctor login.
	r.Group(func(public chi.Router) {
		public.Get("/health", handleHealth)
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}

		if cfg.IntakeHandler != nil {
			public.Route("/sessions", func(r chi.Router) {
				r.Post("/", cfg.IntakeHandler.HandleCreateSession)
				r.Route("/{sessionID}", func(r chi.Router) {
					r.Get("/", cfg.IntakeHandler.HandleGetSession)
					r.Post("/messages", cfg.IntakeHandler.HandleSendMessage)
					r.Post("/complete", cfg.IntakeHandler.HandleCompleteSession)
					r.Post("/rating", cfg.IntakeHandler.HandleSubmitRating)
				})
			})
		}

		if cfg.AuthHandler != nil {
			public.Route("/auth", func(r chi.Router) {
				r.Post("/register", cfg.AuthHandler.HandleRegister)
				r.Post("/login", cfg.AuthHandler.HandleLogin)
			})
		}
	})

	// Doctor dashboard, behind the doctor token.
	if cfg.ClinicHandler != nil && cfg.JWTSecret != "" {
		r.Route("/dashboard", func(dashboard chi.Router) {
			dashboard.Use(httpmiddleware.DoctorJWT(cfg.JWTSecret))
			dashboard.Mount("/", cfg.ClinicHandler.Routes())
		})
	}

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

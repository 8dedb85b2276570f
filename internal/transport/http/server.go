package http

import (
	"net/http"
	"strconv"

	"cogscreen-service/internal/app"
	"cogscreen-service/internal/domain"
	"cogscreen-service/internal/observability"
	"cogscreen-service/internal/security"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/gorilla/websocket"
)

// TokenVerifier validates bearer tokens.
type TokenVerifier interface {
	Parse(token string) (*security.Claims, error)
}

// Server exposes the screening use cases over HTTP and WebSocket.
type Server struct {
	assessment     *app.AssessmentService
	accounts       *app.AccountService
	appointments   *app.AppointmentService
	dashboard      *app.DashboardService
	feed           *app.Feed
	tokens         TokenVerifier
	metrics        *observability.Metrics
	allowedOrigins []string
	upgrader       websocket.Upgrader
}

// Deps groups what the server needs. Metrics and Feed may be nil.
type Deps struct {
	Assessment     *app.AssessmentService
	Accounts       *app.AccountService
	Appointments   *app.AppointmentService
	Dashboard      *app.DashboardService
	Feed           *app.Feed
	Tokens         TokenVerifier
	Metrics        *observability.Metrics
	AllowedOrigins []string
}

func NewServer(d Deps) *Server {
	return &Server{
		assessment:     d.Assessment,
		accounts:       d.Accounts,
		appointments:   d.Appointments,
		dashboard:      d.Dashboard,
		feed:           d.Feed,
		tokens:         d.Tokens,
		metrics:        d.Metrics,
		allowedOrigins: d.AllowedOrigins,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// Router wires every route.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer)
	r.Use(s.countRequests)
	if len(s.allowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   s.allowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders:   []string{"Authorization", "Content-Type"},
			ExposedHeaders:   []string{"Content-Length"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	r.Post("/auth/signup", s.handleSignup)
	r.Post("/auth/login", s.handleLogin)

	r.Group(func(pr chi.Router) {
		pr.Use(s.authenticate)

		pr.Route("/patient", func(p chi.Router) {
			p.Use(requireRole(domain.RolePatient))
			p.Post("/chat/next", s.handleNext)
			p.Post("/chat/answer", s.handleAnswer)
			p.Post("/chat/finish", s.handleFinish)
			p.Get("/chat/progress", s.handleProgress)
			p.Get("/sessions/{id}/explain", s.handleExplain)
			p.Get("/history", s.handleRiskHistory)
		})

		pr.With(requireRole(domain.RoleDoctor)).Get("/doctor/dashboard", s.handleDashboard)

		pr.Get("/doctors", s.handleDoctors)
		pr.Post("/appointments", s.handleBook)
		pr.Get("/appointments", s.handleAppointments)

		pr.With(requireRole(domain.RolePatient)).Get("/ws/chat", s.ServeChat)
		pr.With(requireRole(domain.RoleDoctor)).Get("/ws/doctor", s.ServeDoctorFeed)
	})
	return r
}

func (s *Server) countRequests(next http.Handler) http.Handler {
	if s.metrics == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		s.metrics.RequestServed(route, strconv.Itoa(status))
	})
}

package handlers

import (
	"context"
	"net"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/diagnosis/taskmanager/internal/domain"
	"github.com/diagnosis/taskmanager/internal/service"
	"github.com/diagnosis/taskmanager/pkg/auth"
	"github.com/diagnosis/taskmanager/pkg/config"
	"github.com/diagnosis/taskmanager/pkg/logger"
	"github.com/diagnosis/taskmanager/pkg/middleware"
	"github.com/diagnosis/taskmanager/pkg/ratelimit"
)

const (
	serviceName = "task-manager-api"
	apiVersion  = "1.0.0"
)

type Handlers struct {
	authService service.AuthService
	otpService  service.OTPService
	taskService service.TaskService
	sessions    *auth.SessionIssuer
	otpLimiter  ratelimit.Limiter
	config      *config.Config
}

func New(
	authService service.AuthService,
	otpService service.OTPService,
	taskService service.TaskService,
	sessions *auth.SessionIssuer,
	otpLimiter ratelimit.Limiter,
	config *config.Config,
) *Handlers {
	return &Handlers{
		authService: authService,
		otpService:  otpService,
		taskService: taskService,
		sessions:    sessions,
		otpLimiter:  otpLimiter,
		config:      config,
	}
}

// Routes builds the HTTP handler. healthCheck backs /healthz and may be nil.
func (h *Handlers) Routes(healthCheck func(ctx context.Context) error) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.ServiceName(serviceName))
	r.Use(middleware.Logging)
	r.Use(middleware.Recover(h.config.IsDevelopment()))
	r.Use(middleware.CORS(h.config.CORS.AllowedOrigins))
	r.Use(middleware.Health(healthCheck))

	r.NotFound(h.NotFound)
	r.MethodNotAllowed(h.MethodNotAllowed)

	r.Route("/api", func(r chi.Router) {
		r.Get("/", h.Info)

		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", h.Register)
			r.Post("/login", h.Login)
			r.Post("/forgot-password", h.ForgotPassword)
			r.Post("/reset-password", h.ResetPassword)
			r.With(h.RequireAuth).Get("/me", h.Me)
		})

		r.Route("/otp", func(r chi.Router) {
			r.With(h.OTPRateLimit).Post("/send-registration", h.SendRegistrationOTP)
			r.With(h.OTPRateLimit).Post("/send-login", h.SendLoginOTP)
			r.Post("/verify", h.VerifyOTP)
		})

		r.Route("/tasks", func(r chi.Router) {
			r.Use(h.RequireAuth)
			r.Get("/", h.ListTasks)
			r.Post("/", h.CreateTask)
			r.Get("/stats", h.TaskStats)
			r.Get("/{id}", h.GetTask)
			r.Put("/{id}", h.UpdateTask)
			r.Delete("/{id}", h.DeleteTask)
		})
	})

	return r
}

// RequireAuth accepts a bearer session token for a user that still exists
// and stores the user id in the request context.
func (h *Handlers) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			h.writeError(w, r, domain.Errorf(domain.ErrUnauthorized, "Not authorized, no token"))
			return
		}

		userID, err := h.sessions.Validate(strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer ")))
		if err != nil {
			logger.DebugContext(r.Context(), "Session token rejected", "error", err)
			h.writeError(w, r, domain.Errorf(domain.ErrUnauthorized, "Not authorized, token failed"))
			return
		}

		if _, err := h.authService.GetUser(r.Context(), userID); err != nil {
			if domain.Message(err) != "" {
				err = domain.Errorf(domain.ErrUnauthorized, "Not authorized, user not found")
			}
			h.writeError(w, r, err)
			return
		}

		ctx := context.WithValue(r.Context(), logger.UserIDKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// OTPRateLimit caps OTP sends per client IP. Limiter failures let the
// request through.
func (h *Handlers) OTPRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		allowed, err := h.otpLimiter.Allow(r.Context(), "otp:"+getClientIP(r))
		if err != nil {
			logger.ErrorContext(r.Context(), "Rate limit check failed", "error", err)
		} else if !allowed {
			h.writeError(w, r, domain.Errorf(domain.ErrRateLimited, "Too many requests. Please try again later."))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handlers) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, envelope{
		"success": true,
		"message": "Task Manager API is running",
		"version": apiVersion,
	})
}

func (h *Handlers) NotFound(w http.ResponseWriter, r *http.Request) {
	h.writeError(w, r, domain.Errorf(domain.ErrNotFound, "Not Found - %s", r.URL.Path))
}

func (h *Handlers) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusMethodNotAllowed, envelope{
		"success": false,
		"message": "Method not allowed",
	})
}

func userIDFrom(r *http.Request) int64 {
	id, _ := r.Context().Value(logger.UserIDKey).(int64)
	return id
}

func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if idx := strings.Index(xff, ","); idx != -1 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

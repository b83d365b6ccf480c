package httpx

import (
	"log/slog"
	"net/http"

	"github.com/caretrack/licensure/internal/service"
	"github.com/caretrack/licensure/internal/sources"
)

// RouterServices holds the services the HTTP router needs.
type RouterServices struct {
	Licenses *service.LicenseService
	Recorder *service.RecorderService
	Tasks    *service.TaskEngine
	Runs     RunService
	Registry *sources.Registry
	Auth     AuthServiceInterface
	// RunSecret authenticates machine callers of the run-trigger endpoint.
	// Empty disables the endpoint.
	RunSecret    string
	CookieDomain string
	Logger       *slog.Logger
}

// NewRouter creates and configures the HTTP router.
func NewRouter(services RouterServices) http.Handler {
	mux := http.NewServeMux()

	licenseHandlers := &LicenseHandlers{Svc: services.Licenses}
	verificationHandlers := &VerificationHandlers{Recorder: services.Recorder}
	taskHandlers := &TaskHandlers{Engine: services.Tasks}
	runHandlers := &RunHandlers{Svc: services.Runs, Registry: services.Registry}

	registerLicenseRoutes(mux, licenseHandlers, verificationHandlers, services.Auth)
	registerTaskRoutes(mux, taskHandlers, services.Auth)
	registerRunRoutes(mux, runHandlers, services)

	mux.Handle("GET /healthz", http.HandlerFunc(healthHandler))
	mux.Handle("HEAD /healthz", http.HandlerFunc(healthHandler))

	if services.Auth != nil {
		authHandlers := &AuthHandlers{
			Svc:          services.Auth,
			CookieDomain: services.CookieDomain,
			Logger:       services.Logger,
		}
		registerAuthRoutes(mux, authHandlers)
	}

	return mux
}

// authWrap requires a valid session when auth is configured; without auth it
// is a no-op and the services see a guest session, which the access policy
// denies for every role-gated action.
func authWrap(auth AuthServiceInterface) func(http.Handler) http.Handler {
	if auth == nil {
		return func(h http.Handler) http.Handler { return h }
	}
	return RequireAuth(auth)
}

func registerLicenseRoutes(
	mux *http.ServeMux,
	h *LicenseHandlers,
	vh *VerificationHandlers,
	auth AuthServiceInterface,
) {
	wrap := authWrap(auth)

	mux.Handle("POST /api/licenses", wrap(http.HandlerFunc(h.Create)))
	mux.Handle("GET /api/licenses", wrap(http.HandlerFunc(h.List)))
	mux.Handle("GET /api/licenses/{id}", wrap(http.HandlerFunc(h.GetByID)))
	mux.Handle("PUT /api/licenses/{id}", wrap(http.HandlerFunc(h.Update)))
	mux.Handle("DELETE /api/licenses/{id}", wrap(http.HandlerFunc(h.Delete)))

	mux.Handle("GET /api/licenses/{id}/verifications", wrap(http.HandlerFunc(vh.ListByLicense)))
	mux.Handle("POST /api/licenses/{id}/verifications", wrap(http.HandlerFunc(vh.RecordManual)))
	mux.Handle("GET /api/verifications/{id}", wrap(http.HandlerFunc(vh.GetByID)))
}

func registerTaskRoutes(mux *http.ServeMux, h *TaskHandlers, auth AuthServiceInterface) {
	wrap := authWrap(auth)

	mux.Handle("GET /api/tasks", wrap(http.HandlerFunc(h.List)))
	mux.Handle("GET /api/tasks/{id}", wrap(http.HandlerFunc(h.GetByID)))
	mux.Handle("PUT /api/tasks/{id}", wrap(http.HandlerFunc(h.Update)))
}

func registerRunRoutes(mux *http.ServeMux, h *RunHandlers, services RouterServices) {
	wrap := authWrap(services.Auth)

	// The trigger endpoint is for schedulers and operators with the shared
	// secret, not browser sessions.
	mux.Handle("POST /api/verify-runs", RequireRunSecret(services.RunSecret)(http.HandlerFunc(h.Trigger)))
	mux.Handle("GET /api/verify-runs", wrap(http.HandlerFunc(h.List)))
	mux.Handle("GET /api/verify-runs/{id}", wrap(http.HandlerFunc(h.GetByID)))
	mux.Handle("GET /api/jurisdictions", wrap(http.HandlerFunc(h.Jurisdictions)))
}

func registerAuthRoutes(mux *http.ServeMux, h *AuthHandlers) {
	mux.HandleFunc("GET /auth/login", h.Login)
	mux.HandleFunc("GET /auth/callback", h.Callback)
	mux.HandleFunc("POST /auth/logout", h.Logout)
	mux.HandleFunc("GET /auth/status", h.Status)
}

package httpx

import (
	"log/slog"
	"net/http"

	"github.com/target/taskdesk/internal/ports"
	"github.com/target/taskdesk/internal/service"
)

// RouterServices holds the dependencies needed by the router.
type RouterServices struct {
	Users    *service.UserService
	Verifier ports.TokenVerifier
	Logger   *slog.Logger
}

// NewRouter builds the HTTP handler for the users API.
func NewRouter(services RouterServices) http.Handler {
	logger := services.Logger
	if logger == nil {
		logger = slog.Default()
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", healthHandler)

	if services.Users != nil && services.Verifier != nil {
		registerUserRoutes(mux, &UserHandlers{Svc: services.Users, Logger: logger}, services.Verifier)
	}

	mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		WriteError(w, ErrorParams{Code: http.StatusNotFound, ErrCode: "not_found", Err: errNotFound})
	})

	var h http.Handler = mux
	h = Logging(logger)(h)
	h = RequestID()(h)
	h = Recover(logger)(h)
	return h
}

func registerUserRoutes(mux *http.ServeMux, h *UserHandlers, verifier ports.TokenVerifier) {
	auth := RequireBearer(verifier)
	mux.Handle("POST /users", auth(http.HandlerFunc(h.Upsert)))
	mux.Handle("GET /users/me", auth(http.HandlerFunc(h.Me)))
	mux.HandleFunc("/users", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Allow", http.MethodPost)
		WriteError(w, ErrorParams{Code: http.StatusMethodNotAllowed, ErrCode: "method_not_allowed", Err: errMethodNotAllowed})
	})
}

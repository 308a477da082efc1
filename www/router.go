package www

import (
	"net/http"

	"fdsbridge/bridge"
	"fdsbridge/config"
	"fdsbridge/store"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/sessions"
)

// Handlers holds dependencies for HTTP handlers.
type Handlers struct {
	bridge   *bridge.Bridge
	cfg      *config.WebConfig
	db       *store.DB
	cookies  *sessions.CookieStore
	eventHub *EventHub
}

// NewRouter creates the chi router and returns it along with a stop
// function for the SSE hub.
func NewRouter(br *bridge.Bridge, cfg *config.WebConfig, db *store.DB) (http.Handler, func()) {
	h := &Handlers{
		bridge:   br,
		cfg:      cfg,
		db:       db,
		cookies:  newCookieStore(cfg.SessionSecret),
		eventHub: NewEventHub(),
	}

	h.eventHub.Start()
	h.eventHub.SetupBridgeListeners(br.Bus())

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))

	r.Post("/api/login", h.apiLogin)
	r.Post("/api/logout", h.apiLogout)

	r.Group(func(r chi.Router) {
		r.Use(h.requireAuth)

		r.Get("/api/status", h.apiStatus)
		r.Get("/api/scenario", h.apiScenario)
		r.Get("/api/scenario/elements/{kind}", h.apiScenarioElements)
		r.Get("/api/scenario/locate", h.apiLocate)
		r.Post("/api/select", h.apiSelect)
		r.Post("/api/geometry/refresh", h.apiGeometryRefresh)
		r.Get("/api/journal", h.apiJournal)
		r.Get("/events", h.eventHub.HandleSSE)
	})

	return r, h.eventHub.Stop
}

// requireAuth gates the API behind the admin session. Auth is disabled when
// no password hash is configured (local single-user setups).
func (h *Handlers) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.cfg.AdminPasswordHash == "" {
			next.ServeHTTP(w, r)
			return
		}
		if _, ok := h.currentUser(r); !ok {
			writeError(w, http.StatusUnauthorized, "not logged in")
			return
		}
		next.ServeHTTP(w, r)
	})
}

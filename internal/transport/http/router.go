package http

import (
	"net/http"
	"time"

	obsmw "rdapi/internal/observability/middleware"
	"rdapi/internal/service"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Services struct {
	Auth      service.AuthService
	Tokens    service.TokenService
	Users     service.UserService
	Devices   service.DeviceService
	Personals service.PersonalService
	Tags      service.TagService
	Audit     service.AuditService
	Records   service.RecordService
}

type Options struct {
	TrustProxy     bool
	CORSOrigins    []string
	LoginRateLimit int // per IP and minute, 0 disables
	RequestTimeout time.Duration
}

type handler struct {
	svc  Services
	opts Options
}

func NewRouter(svc Services, opts Options) http.Handler {
	h := &handler{svc: svc, opts: opts}
	r := chi.NewRouter()

	r.Use(obsmw.WithRequestAndTrace)
	r.Use(obsmw.Recover)
	r.Use(obsmw.WithMetrics)
	if opts.TrustProxy {
		r.Use(chimw.RealIP)
	}
	r.Use(obsmw.LogRequests)
	if opts.RequestTimeout > 0 {
		r.Use(chimw.Timeout(opts.RequestTimeout))
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   originsOrAll(opts.CORSOrigins),
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		// peers and the relay server
		r.Post("/heartbeat", h.heartbeat)
		r.Post("/sysinfo", h.sysinfo)
		r.Post("/audit/conn", h.auditConn)
		r.Post("/audit/file", h.auditFile)
		r.Post("/record", h.record)

		r.Group(func(r chi.Router) {
			if opts.LoginRateLimit > 0 {
				r.Use(httprate.LimitByIP(opts.LoginRateLimit, time.Minute))
			}
			r.Post("/login", h.login)
		})

		r.Group(func(r chi.Router) {
			r.Use(RequireAuth(svc.Tokens))

			r.Post("/logout", h.logout)
			r.Post("/currentUser", h.currentUser)
			r.Get("/users", h.users)
			r.Get("/peers", h.peers)
			r.Post("/device-group/accessible", h.deviceGroups)

			r.Route("/ab", func(r chi.Router) {
				r.Post("/personal", h.abPersonal)
				r.Post("/settings", h.abSettings)
				r.Get("/shared/profiles", h.abSharedProfiles)
				r.Post("/shared/profiles", h.abSharedProfiles)
				r.Post("/peers", h.abPeers)
				r.Post("/tags/{guid}", h.abTags)
				r.Post("/peer/add/{guid}", h.abPeerAdd)
				r.Put("/peer/update/{guid}", h.abPeerUpdate)
				r.Delete("/peer/{guid}", h.abPeerDelete)
				r.Post("/tag/add/{guid}", h.abTagAdd)
				r.Put("/tag/add/{guid}", h.abTagAdd)
				r.Put("/tag/rename/{guid}", h.abTagRename)
				r.Put("/tag/update/{guid}", h.abTagUpdate)
				r.Delete("/tag/{guid}", h.abTagDelete)
			})

			r.Route("/console", h.consoleRoutes)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeFail(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeFail(w, http.StatusMethodNotAllowed, "method not allowed")
	})
	return r
}

func originsOrAll(in []string) []string {
	if len(in) == 0 {
		return []string{"*"}
	}
	return in
}

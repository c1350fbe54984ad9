package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/zhouzirui/interview-coach/backend/internal/handler/live"
	"github.com/zhouzirui/interview-coach/backend/internal/handler/profile"
	"github.com/zhouzirui/interview-coach/backend/internal/handler/session"
	"github.com/zhouzirui/interview-coach/backend/internal/handler/stream"
	middlewarePkg "github.com/zhouzirui/interview-coach/backend/internal/middleware"
	profileModel "github.com/zhouzirui/interview-coach/backend/internal/model/profile"
	"github.com/zhouzirui/interview-coach/backend/pkg/utils"
)

// Pinger reports whether the session store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options carries everything the router needs.
type Options struct {
	Engine    session.Engine
	Profiles  profileModel.Store
	Store     Pinger
	Origins   *middlewarePkg.OriginPolicy
	Gatherer  prometheus.Gatherer
	Heartbeat time.Duration
	Logger    *zap.Logger
}

// NewRouter wires HTTP routes to the interview engine.
func NewRouter(opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS(opts.Origins))

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]string{"message": "AI Interview Trainer API is running"})
	})
	r.Get("/healthz", handleHealth(opts.Store))

	if opts.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))
	}

	sessionHandler := session.New(opts.Engine, opts.Logger)
	profileHandler := profile.New(opts.Profiles)
	streamHandler := stream.New(opts.Engine, opts.Heartbeat, opts.Logger)
	liveHandler := live.New(opts.Engine, opts.Origins, opts.Logger)

	r.Route("/api", func(api chi.Router) {
		profileHandler.RegisterRoutes(api)
		sessionHandler.RegisterRoutes(api)
		streamHandler.RegisterRoutes(api)
		liveHandler.RegisterRoutes(api)
	})

	return r
}

func handleHealth(store Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if store != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := store.Ping(ctx); err != nil {
				utils.RespondError(w, http.StatusServiceUnavailable, "session store unavailable")
				return
			}
		}
		utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

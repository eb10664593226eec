package http

import (
	"log/slog"
	"time"

	"github.com/geocoder89/admithub/internal/http/handlers"
	"github.com/geocoder89/admithub/internal/http/middlewares"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/geocoder89/admithub/internal/observability"
)

// Dependencies gathers everything the router wires into handlers. All
// fields are interfaces (or nilable) so tests can build partial routers.
type Dependencies struct {
	Log *slog.Logger

	Admission handlers.AdmissionController
	Payments  handlers.IntentCreator
	Users     handlers.UserReader
	JWT       handlers.TokenIssuer
	Verifier  middlewares.TokenVerifier

	DBPinger    handlers.Pinger
	CachePinger handlers.Pinger

	Prom     *observability.Prom
	Registry *prometheus.Registry

	Env            string
	AllowedOrigins []string
}

func NewRouter(deps Dependencies) *gin.Engine {
	if deps.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(RequestID())

	if deps.Log != nil {
		r.Use(RequestLogger(deps.Log))
	}

	r.Use(otelgin.Middleware("admithub"))

	if deps.Prom != nil {
		r.Use(deps.Prom.GinHandleMiddleware())
	}

	r.Use(middlewares.CORSMiddleware(deps.AllowedOrigins))
	r.Use(middlewares.MaxBodyBytes(1 << 20)) // 1 MiB
	r.Use(middlewares.RequireJSON())

	// health + metrics
	health := handlers.NewHealthHandler(deps.DBPinger, deps.CachePinger)
	r.GET("/healthz", health.Healthz)
	r.GET("/readyz", health.Readyz)

	if deps.Registry != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{})))
	}

	authMW := middlewares.NewAuthMiddleware(deps.Verifier)

	// anonymous registration gets an IP-based limiter; the window is
	// deliberately generous, it exists to blunt scripted re-registration
	registerLimiter := middlewares.NewRateLimiter(30, time.Minute)

	attendees := handlers.NewAttendeeHandler(deps.Admission)

	r.POST("/events/:id/attendees",
		registerLimiter.Middleware(middlewares.KeyByIP),
		attendees.Register,
	)
	r.GET("/events/:id/attendees", authMW.OptionalAuth(), attendees.ListForEvent)

	r.POST("/attendees/:id/confirm-payment", attendees.ConfirmPayment)
	r.DELETE("/attendees/:id", attendees.Cancel)
	r.PATCH("/attendees/:id/status", authMW.RequireAuth(), attendees.UpdateStatus)

	if deps.Payments != nil {
		payments := handlers.NewPaymentHandler(deps.Payments)
		r.POST("/payments/intents",
			registerLimiter.Middleware(middlewares.KeyByIP),
			payments.CreateIntent,
		)
	}

	if deps.Users != nil && deps.JWT != nil {
		auth := handlers.NewAuthHandler(deps.Users, deps.JWT)
		loginLimiter := middlewares.NewRateLimiter(10, time.Minute)
		r.POST("/auth/login", loginLimiter.Middleware(middlewares.KeyByIP), auth.Login)
	}

	return r
}

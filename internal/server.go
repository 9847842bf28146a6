package internal

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/IBM/pgxpoolprometheus"
	"github.com/getsentry/sentry-go"
	"github.com/go-redis/redis/extra/redisotel/v8"
	"github.com/go-redis/redis/v8"
	"github.com/go-redis/redis_rate/v9"
	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/2beens/watchstats/internal/activity"
	"github.com/2beens/watchstats/internal/auth"
	"github.com/2beens/watchstats/internal/config"
	"github.com/2beens/watchstats/internal/db"
	"github.com/2beens/watchstats/internal/middleware"
	"github.com/2beens/watchstats/internal/predictions"
	"github.com/2beens/watchstats/internal/telemetry/metrics"
	"github.com/2beens/watchstats/internal/telemetry/tracing"
	"github.com/2beens/watchstats/pkg"
)

type Server struct {
	httpServer        *http.Server
	metricsHttpServer *http.Server
	versionInfo       string
	textGenAPIKey     string

	config *config.Config
	dbPool *pgxpool.Pool

	redisClient  *redis.Client
	loginChecker *auth.LoginChecker
	authService  *auth.Service

	tracedHttpClient *http.Client

	// metrics
	metricsManager *metrics.Manager
	promRegistry   *prometheus.Registry
	otelShutdown   func()
}

type NewServerParams struct {
	Config                  *config.Config
	VersionInfo             string
	RedisPassword           string
	TextGenAPIKey           string
	HoneycombTracingEnabled bool
}

func NewServer(
	ctx context.Context,
	params NewServerParams,
) (*Server, error) {
	dbPool, err := db.NewDBPool(ctx, db.NewDBPoolParams{
		DBHost:         params.Config.PostgresHost,
		DBPort:         params.Config.PostgresPort,
		DBName:         params.Config.PostgresDBName,
		TracingEnabled: params.HoneycombTracingEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("new db pool: %w", err)
	}

	if err := dbPool.Ping(ctx); err != nil {
		log.Warnf("failed to ping db: %s", err)
	}

	pgxpoolCollector := pgxpoolprometheus.NewCollector(
		dbPool,
		map[string]string{"db_name": params.Config.PostgresDBName},
	)
	promRegistry := metrics.SetupPrometheus(pgxpoolCollector)
	metricsManager := metrics.NewManager("watchstats", "main", promRegistry)
	metricsManager.GaugeLifeSignal.Set(0)

	rdb := redis.NewClient(&redis.Options{
		Addr:     net.JoinHostPort(params.Config.RedisHost, params.Config.RedisPort),
		Password: params.RedisPassword,
		DB:       0, // use default DB
	})

	if params.HoneycombTracingEnabled {
		rdb.AddHook(redisotel.NewTracingHook())
	}

	rdbStatus := rdb.Ping(ctx)
	if err := rdbStatus.Err(); err != nil {
		log.Errorf("--> failed to ping redis: %s", err)
	} else {
		log.Debugf("redis ping: %s", rdbStatus.Val())
	}

	authService := auth.NewService(auth.DefaultTTL, rdb)
	go func() {
		for range time.Tick(time.Hour * 8) {
			authService.ScanAndClean(ctx)
		}
	}()

	// use honeycomb distro to setup OpenTelemetry SDK
	otelShutdown, err := tracing.HoneycombSetup(params.HoneycombTracingEnabled, "watchstats-backend")
	if err != nil {
		return nil, err
	}

	tracedHttpClient := &http.Client{
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}

	return &Server{
		config:        params.Config,
		dbPool:        dbPool,
		versionInfo:   params.VersionInfo,
		textGenAPIKey: params.TextGenAPIKey,

		redisClient:  rdb,
		authService:  authService,
		loginChecker: auth.NewLoginChecker(rdb),

		tracedHttpClient: tracedHttpClient,

		// telemetry
		metricsManager: metricsManager,
		promRegistry:   promRegistry,
		otelShutdown:   otelShutdown,
	}, nil
}

func (s *Server) routerSetup() (*mux.Router, error) {
	r := mux.NewRouter()
	r.Use(otelmux.Middleware("watchstats-router"))

	r.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		pkg.WriteTextResponseOK(w, "watchstats backend, all good here")
	}).Methods("GET")
	r.HandleFunc("/version", func(w http.ResponseWriter, r *http.Request) {
		pkg.WriteTextResponseOK(w, s.versionInfo)
	}).Methods("GET")

	api := r.PathPrefix("/api/v0.1").Subrouter()

	reqRateLimiter := redis_rate.NewLimiter(s.redisClient)
	authRateLimit := middleware.RateLimit(
		reqRateLimiter,
		"auth",
		s.config.AuthRateLimitAllowedPerMin,
		s.metricsManager,
	)

	authHandler := auth.NewHandler(
		auth.NewUsersRepo(s.dbPool),
		s.authService,
	)
	api.Handle("/register", authRateLimit(http.HandlerFunc(authHandler.HandleRegister))).Methods("POST", "OPTIONS").Name("register")
	api.Handle("/login", authRateLimit(http.HandlerFunc(authHandler.HandleLogin))).Methods("POST", "OPTIONS").Name("login")
	api.HandleFunc("/logout", authHandler.HandleLogout).Methods("POST", "OPTIONS").Name("logout")

	activityRepo := activity.NewRepo(s.dbPool)
	activityHandler := activity.NewHandler(activityRepo, s.metricsManager)
	api.HandleFunc("/activity/upload", activityHandler.HandleUpload).Methods("POST", "OPTIONS").Name("upload-activity")
	api.HandleFunc("/activity", activityHandler.HandleList).Methods("GET", "OPTIONS").Name("list-activity")
	api.HandleFunc("/activity/summary", activityHandler.HandleSummary).Methods("GET", "OPTIONS").Name("activity-summary")
	api.HandleFunc("/activity/daily-trends", activityHandler.HandleDailyTrends).Methods("GET", "OPTIONS").Name("daily-trends")
	api.HandleFunc("/activity/weekly-trends", activityHandler.HandleWeeklyTrends).Methods("GET", "OPTIONS").Name("weekly-trends")
	api.HandleFunc("/activity/date/{date}", activityHandler.HandleGetByDate).Methods("GET", "OPTIONS").Name("activity-by-date")

	predictionsRepo := predictions.NewRepo(s.dbPool)
	predictionsGenerator := predictions.NewGenerator(
		predictionsRepo,
		activityRepo,
		predictions.NewTextGenClient(s.tracedHttpClient, s.config.TextGenEndpoint, s.textGenAPIKey),
		s.metricsManager,
	)
	predictionsHandler := predictions.NewHandler(predictionsRepo, predictionsGenerator)
	api.HandleFunc("/predictions/generate", predictionsHandler.HandleGenerate).Methods("POST", "OPTIONS").Name("generate-predictions")
	api.HandleFunc("/predictions", predictionsHandler.HandleList).Methods("GET", "OPTIONS").Name("list-predictions")

	// all the rest - unhandled paths
	r.HandleFunc("/{unknown}", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}).Methods("GET", "POST", "PUT", "OPTIONS").Name("unknown")

	authMiddleware := middleware.NewAuthMiddlewareHandler(s.loginChecker)

	r.Use(middleware.PanicRecovery(s.metricsManager))
	r.Use(middleware.LogRequest())
	r.Use(middleware.RequestMetrics(s.metricsManager))
	r.Use(middleware.Cors())
	r.Use(authMiddleware.AuthCheck())
	r.Use(middleware.DrainAndCloseRequest())

	return r, nil
}

func (s *Server) Serve(ctx context.Context, host string, port int) {
	router, err := s.routerSetup()
	if err != nil {
		log.Fatalf("failed to setup router: %s", err)
	}

	ipAndPort := net.JoinHostPort(host, strconv.Itoa(port))
	s.httpServer = &http.Server{
		Handler:      router,
		Addr:         ipAndPort,
		WriteTimeout: time.Minute,
		ReadTimeout:  time.Minute,
		ConnState:    s.connStateMetrics,
	}

	metricsRouter := mux.NewRouter()
	metricsRouter.Handle("/metrics", promhttp.HandlerFor(
		s.promRegistry,
		promhttp.HandlerOpts{},
	))
	metricsAddr := net.JoinHostPort(s.config.PrometheusMetricsHost, s.config.PrometheusMetricsPort)
	s.metricsHttpServer = &http.Server{
		Addr:    metricsAddr,
		Handler: metricsRouter,
	}

	go func() {
		log.Infof(" > server listening on: [%s]", ipAndPort)
		err := s.httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("main service, listen and serve: %s", err)
		}
	}()

	go func() {
		log.Debugf(" > metrics listening on: [%s]", metricsAddr)
		err := s.metricsHttpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("metrics service, listen and serve: %s", err)
		}
	}()

	s.metricsManager.GaugeLifeSignal.Set(1)
}

func (s *Server) GracefulShutdown() {
	log.Debug("graceful shutdown initiated ...")

	s.metricsManager.GaugeLifeSignal.Set(0)

	s.otelShutdown()
	log.Trace("otel shut down ...")

	if s.redisClient != nil {
		if err := s.redisClient.Close(); err != nil {
			log.Errorf("failed to close redis client conn: %s", err)
		}
	}

	if s.dbPool != nil {
		log.Debugln("closing db pool ...")
		s.dbPool.Close() // blocking operation
		log.Debugln("db pool closed")
	}

	if ok := sentry.Flush(5 * time.Second); ok {
		log.Debugf("sentry flush ok: %t", ok)
	}

	maxWaitDuration := time.Second * 15
	ctx, timeoutCancel := context.WithTimeout(context.Background(), maxWaitDuration)
	defer timeoutCancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		log.Error(" >>> failed to gracefully shutdown http server")
	}
	log.Warnln("server shut down")

	if err := s.metricsHttpServer.Shutdown(ctx); err != nil {
		log.Error(" >>> failed to gracefully shutdown metrics http server")
	}
	log.Warnln("metrics server shut down")
}

func (s *Server) connStateMetrics(_ net.Conn, state http.ConnState) {
	switch state {
	case http.StateNew:
		s.metricsManager.GaugeRequests.Add(1)
	case http.StateClosed:
		s.metricsManager.GaugeRequests.Add(-1)
	default:
		// do nothing
	}
}

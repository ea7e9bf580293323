package internal

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/2beens/fittrack/internal/activity"
	"github.com/2beens/fittrack/internal/catalog"
	"github.com/2beens/fittrack/internal/clock"
	"github.com/2beens/fittrack/internal/config"
	"github.com/2beens/fittrack/internal/db"
	"github.com/2beens/fittrack/internal/geo"
	"github.com/2beens/fittrack/internal/history"
	"github.com/2beens/fittrack/internal/location"
	"github.com/2beens/fittrack/internal/middleware"
	"github.com/2beens/fittrack/internal/telemetry/metrics"
	"github.com/2beens/fittrack/internal/telemetry/tracing"
	"github.com/2beens/fittrack/internal/workout"

	"github.com/IBM/pgxpoolprometheus"
	"github.com/getsentry/sentry-go"
	"github.com/go-redis/redis/v8"
	"github.com/go-redis/redis_rate/v9"
	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/multierr"
)

const serviceName = "fittrack"

type Server struct {
	httpServer        *http.Server
	metricsHttpServer *http.Server
	// request contexts derive from it, cancelled first on shutdown so the
	// metrics streams end
	baseCtx    context.Context
	baseCancel context.CancelFunc

	config      *config.Config
	dbPool      *pgxpool.Pool
	redisClient *redis.Client

	catalog         *catalog.Catalog
	history         history.Store
	pushProvider    *location.PushProvider
	activityTracker *activity.Tracker
	workoutTracker  *workout.Tracker

	// metrics
	metricsManager *metrics.Manager
	promRegistry   *prometheus.Registry
	otelShutdown   func()
}

type NewServerParams struct {
	Config                  *config.Config
	RedisPassword           string
	HoneycombTracingEnabled bool
}

func NewServer(
	ctx context.Context,
	params NewServerParams,
) (*Server, error) {
	cfg := params.Config
	s := &Server{
		config: cfg,
	}

	if cfg.HistoryBackend == config.HistoryBackendRedis || cfg.RateLimitAllowedPerMin > 0 {
		s.redisClient = redis.NewClient(&redis.Options{
			Addr:     net.JoinHostPort(cfg.RedisHost, strconv.Itoa(cfg.RedisPort)),
			Password: params.RedisPassword,
			DB:       0, // use default DB
		})

		rdbStatus := s.redisClient.Ping(ctx)
		if err := rdbStatus.Err(); err != nil {
			log.Errorf("--> failed to ping redis: %s", err)
		} else {
			log.Debugf("redis ping: %s", rdbStatus.Val())
		}
	}

	var extraCollectors []prometheus.Collector
	if cfg.HistoryBackend == config.HistoryBackendPostgres {
		dbPool, err := db.NewDBPool(ctx, db.NewDBPoolParams{
			DBHost:         cfg.PostgresHost,
			DBPort:         cfg.PostgresPort,
			DBName:         cfg.PostgresDBName,
			TracingEnabled: params.HoneycombTracingEnabled,
		})
		if err != nil {
			return nil, fmt.Errorf("new db pool: %w", err)
		}
		s.dbPool = dbPool

		if err := dbPool.Ping(ctx); err != nil {
			log.Warnf("failed to ping db: %s", err)
		} else if _, err := dbPool.Exec(ctx, history.Schema); err != nil {
			return nil, fmt.Errorf("create history schema: %w", err)
		}

		extraCollectors = append(extraCollectors, pgxpoolprometheus.NewCollector(
			dbPool,
			map[string]string{"db_name": cfg.PostgresDBName},
		))
	}

	s.promRegistry = metrics.SetupPrometheus(extraCollectors...)
	s.metricsManager = metrics.NewManager("fittrack", "main", s.promRegistry)
	s.metricsManager.GaugeLifeSignal.Set(0)

	// use honeycomb distro to setup OpenTelemetry SDK
	otelShutdown, err := tracing.HoneycombSetup(params.HoneycombTracingEnabled, serviceName, s.redisClient)
	if err != nil {
		return nil, err
	}
	s.otelShutdown = otelShutdown

	s.history, err = newHistoryStore(cfg, s.redisClient, s.dbPool)
	if err != nil {
		return nil, err
	}

	s.catalog, err = catalog.Load(cfg.CatalogPath)
	if err != nil {
		return nil, fmt.Errorf("load exercise catalog: %w", err)
	}
	programs, err := workout.LoadPrograms(cfg.ProgramsPath, s.catalog)
	if err != nil {
		return nil, fmt.Errorf("load programs: %w", err)
	}

	scheduler := clock.NewTickerScheduler()
	s.pushProvider = location.NewPushProvider()
	s.activityTracker = activity.NewTracker(activity.TrackerParams{
		Provider:   s.pushProvider,
		Scheduler:  scheduler,
		History:    s.history,
		Metrics:    s.metricsManager,
		JumpFilter: geo.JumpFilter{MaxJumpMeters: cfg.MaxJumpMeters},
	})
	s.workoutTracker = workout.NewTracker(workout.TrackerParams{
		Catalog:   s.catalog,
		Programs:  programs,
		History:   s.history,
		Scheduler: scheduler,
		Metrics:   s.metricsManager,
	})

	log.Debugf(
		"server ready: history [%s], %d exercises, %d programs",
		cfg.HistoryBackend, s.catalog.Len(), len(programs.List()),
	)

	return s, nil
}

func newHistoryStore(cfg *config.Config, rdb *redis.Client, dbPool *pgxpool.Pool) (history.Store, error) {
	var store history.Store
	switch cfg.HistoryBackend {
	case config.HistoryBackendMemory, "":
		store = history.NewMemoryStore(cfg.HistoryMaxEntries)
	case config.HistoryBackendRedis:
		store = history.NewRedisStore(rdb, cfg.HistoryMaxEntries)
	case config.HistoryBackendPostgres:
		store = history.NewPsqlStore(dbPool, cfg.HistoryMaxEntries)
	default:
		return nil, fmt.Errorf("unknown history backend: %s", cfg.HistoryBackend)
	}

	if cfg.HistoryCacheSizeMB > 0 {
		return history.NewCachedStore(store, cfg.HistoryCacheSizeMB), nil
	}
	return store, nil
}

func (s *Server) routerSetup() *mux.Router {
	r := mux.NewRouter()
	r.Use(otelmux.Middleware("main-router"))

	// mutating control requests, rate limited when enabled
	control := r.Methods("POST", "PUT", "DELETE", "OPTIONS").Subrouter()
	if s.redisClient != nil && s.config.RateLimitAllowedPerMin > 0 {
		control.Use(middleware.RateLimit(
			redis_rate.NewLimiter(s.redisClient),
			s.metricsManager,
			"control",
			s.config.RateLimitAllowedPerMin,
		))
	}

	activityHandler := activity.NewHandler(s.activityTracker, s.pushProvider)
	// location fixes arrive every second or so, they stay out of the rate limit
	r.HandleFunc("/activity/location", activityHandler.HandleLocation).Methods("POST", "OPTIONS").Name("activity-location")
	control.HandleFunc("/activity/start", activityHandler.HandleStart).Methods("POST", "OPTIONS").Name("activity-start")
	control.HandleFunc("/activity/pause", activityHandler.HandlePause).Methods("POST", "OPTIONS").Name("activity-pause")
	control.HandleFunc("/activity/resume", activityHandler.HandleResume).Methods("POST", "OPTIONS").Name("activity-resume")
	control.HandleFunc("/activity/stop", activityHandler.HandleStop).Methods("POST", "OPTIONS").Name("activity-stop")
	r.HandleFunc("/activity/metrics", activityHandler.HandleMetrics).Methods("GET", "OPTIONS").Name("activity-metrics")
	r.HandleFunc("/activity/stream", activityHandler.HandleStream).Methods("GET", "OPTIONS").Name("activity-stream")
	r.HandleFunc("/activity/history", activityHandler.HandleHistory).Methods("GET", "OPTIONS").Name("activity-history")

	workoutHandler := workout.NewHandler(s.workoutTracker, s.catalog)
	control.HandleFunc("/workout/start", workoutHandler.HandleStart).Methods("POST", "OPTIONS").Name("workout-start")
	control.HandleFunc("/workout/program", workoutHandler.HandleSaveProgram).Methods("POST", "OPTIONS").Name("workout-save-program")
	control.HandleFunc("/workout/program/{name}", workoutHandler.HandleStartProgram).Methods("POST", "OPTIONS").Name("workout-start-program")
	control.HandleFunc("/workout/exercise", workoutHandler.HandleAddExercise).Methods("POST", "OPTIONS").Name("workout-add-exercise")
	control.HandleFunc("/workout/exercise/{exid}/set", workoutHandler.HandleAddSet).Methods("POST", "OPTIONS").Name("workout-add-set")
	control.HandleFunc("/workout/exercise/{exid}/set/{sid}", workoutHandler.HandleUpdateSet).Methods("PUT", "OPTIONS").Name("workout-update-set")
	control.HandleFunc("/workout/exercise/{exid}/set/{sid}", workoutHandler.HandleRemoveSet).Methods("DELETE", "OPTIONS").Name("workout-remove-set")
	control.HandleFunc("/workout/exercise/{exid}/set/{sid}/complete", workoutHandler.HandleCompleteSet).Methods("POST", "OPTIONS").Name("workout-complete-set")
	control.HandleFunc("/workout/rest/skip", workoutHandler.HandleSkipRest).Methods("POST", "OPTIONS").Name("workout-skip-rest")
	control.HandleFunc("/workout/rest/adjust", workoutHandler.HandleAdjustRest).Methods("POST", "OPTIONS").Name("workout-adjust-rest")
	control.HandleFunc("/workout/finish", workoutHandler.HandleFinish).Methods("POST", "OPTIONS").Name("workout-finish")
	r.HandleFunc("/workout", workoutHandler.HandleCurrent).Methods("GET", "OPTIONS").Name("workout-current")
	r.HandleFunc("/workout/rest", workoutHandler.HandleRest).Methods("GET", "OPTIONS").Name("workout-rest")
	r.HandleFunc("/workout/history", workoutHandler.HandleHistory).Methods("GET", "OPTIONS").Name("workout-history")
	r.HandleFunc("/programs", workoutHandler.HandlePrograms).Methods("GET", "OPTIONS").Name("programs")
	r.HandleFunc("/exercises", workoutHandler.HandleExercises).Methods("GET", "OPTIONS").Name("exercises")

	r.Use(middleware.PanicRecovery(s.metricsManager))
	r.Use(middleware.LogRequest())
	r.Use(middleware.RequestMetrics(s.metricsManager))
	r.Use(middleware.Cors(s.config.AllowedOrigins))
	r.Use(middleware.LimitAndDrainBody(middleware.DefaultMaxBodyBytes))

	return r
}

func (s *Server) Serve(host string, port int) {
	s.baseCtx, s.baseCancel = context.WithCancel(context.Background())

	ipAndPort := net.JoinHostPort(host, strconv.Itoa(port))
	s.httpServer = &http.Server{
		Handler:      s.routerSetup(),
		Addr:         ipAndPort,
		WriteTimeout: time.Minute,
		ReadTimeout:  time.Minute,
		BaseContext: func(net.Listener) context.Context {
			return s.baseCtx
		},
	}

	metricsRouter := mux.NewRouter()
	metricsRouter.Handle("/metrics", otelhttp.NewHandler(
		promhttp.HandlerFor(s.promRegistry, promhttp.HandlerOpts{}),
		"metrics",
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

// GracefulShutdown stops serving, tears the trackers down without persisting
// the live session or workout, and closes the backends.
func (s *Server) GracefulShutdown() error {
	log.Debug("graceful shutdown initiated ...")
	s.metricsManager.GaugeLifeSignal.Set(0)

	var err error

	maxWaitDuration := time.Second * 15
	ctx, timeoutCancel := context.WithTimeout(context.Background(), maxWaitDuration)
	defer timeoutCancel()

	if s.baseCancel != nil {
		s.baseCancel()
	}
	if s.httpServer != nil {
		if shutdownErr := s.httpServer.Shutdown(ctx); shutdownErr != nil {
			err = multierr.Append(err, fmt.Errorf("shutdown http server: %w", shutdownErr))
		}
		log.Warnln("server shut down")
	}
	if s.metricsHttpServer != nil {
		if shutdownErr := s.metricsHttpServer.Shutdown(ctx); shutdownErr != nil {
			err = multierr.Append(err, fmt.Errorf("shutdown metrics server: %w", shutdownErr))
		}
		log.Warnln("metrics server shut down")
	}

	if closeErr := s.activityTracker.Close(); closeErr != nil {
		err = multierr.Append(err, fmt.Errorf("close activity tracker: %w", closeErr))
	}
	s.workoutTracker.Close()

	s.otelShutdown()
	log.Trace("otel shut down ...")

	if s.redisClient != nil {
		if closeErr := s.redisClient.Close(); closeErr != nil {
			err = multierr.Append(err, fmt.Errorf("close redis client: %w", closeErr))
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

	return err
}

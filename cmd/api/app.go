package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/freshkeep/hub/internal/aiprovider"
	"github.com/freshkeep/hub/internal/api/handlers"
	"github.com/freshkeep/hub/internal/api/middleware"
	"github.com/freshkeep/hub/internal/config"
	"github.com/freshkeep/hub/internal/corpus"
	"github.com/freshkeep/hub/internal/models"
	"github.com/freshkeep/hub/internal/observability"
	"github.com/freshkeep/hub/internal/prompt"
	"github.com/freshkeep/hub/internal/repository"
	"github.com/freshkeep/hub/internal/service"
	"github.com/freshkeep/hub/pkg/httpretry"
)

// App holds all server dependencies and coordinates startup and shutdown.
type App struct {
	cfg            *config.Config
	server         *http.Server
	meterProvider  *sdkmetric.MeterProvider
	tracerProvider *sdktrace.TracerProvider
}

// routes groups the handlers registered on the mux.
type routes struct {
	health  *handlers.HealthHandler
	status  *handlers.StatusHandler
	recipes *handlers.RecipesHandler
	waste   *handlers.WasteHandler
	expiry  *handlers.ExpiryHandler
	metrics http.Handler // nil unless OTEL_METRICS_EXPORTER=prometheus
}

// setupMetrics creates the meter provider and hub metrics when metrics are enabled.
// promHandler is non-nil only for the prometheus exporter.
func setupMetrics(cfg *config.Config) (*sdkmetric.MeterProvider, http.Handler, *observability.Metrics, error) {
	mp, promHandler, err := observability.NewMeterProvider(cfg)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("create meter provider: %w", err)
	}

	if mp == nil {
		return nil, nil, nil, nil
	}

	metrics, err := observability.NewMetrics(mp.Meter("hub"))
	if err != nil {
		if err2 := observability.ShutdownMeterProvider(context.Background(), mp); err2 != nil {
			slog.Error("shutdown meter provider after metrics error", "error", err2)
		}

		return nil, nil, nil, fmt.Errorf("create metrics: %w", err)
	}

	return mp, promHandler, metrics, nil
}

// loadRecipeCorpus and loadKnowledgeBase never fail startup: a missing or unreadable corpus
// leaves the pipeline degraded.
func loadRecipeCorpus(path string) []models.CorpusItem {
	items, err := corpus.LoadRecipes(path)
	if err != nil {
		slog.Warn("recipe corpus unavailable", "path", path, "error", err)

		return nil
	}

	return items
}

func loadKnowledgeBase(path string) []models.CorpusChunk {
	chunks, err := corpus.LoadKnowledgeBase(path)
	if err != nil {
		slog.Warn("knowledge base unavailable", "path", path, "error", err)

		return nil
	}

	return chunks
}

// NewApp builds and wires all components. It does not start the HTTP server;
// call Run to start and block until shutdown or failure. db may be nil (history disabled).
func NewApp(ctx context.Context, cfg *config.Config, db *pgxpool.Pool) (*App, error) {
	var (
		err           error
		meterProvider *sdkmetric.MeterProvider
		promHandler   http.Handler
		metrics       *observability.Metrics
	)

	if cfg.OtelMetricsExporter == "" {
		slog.Warn("metrics not enabled (OTEL_METRICS_EXPORTER empty or unset)")
	} else {
		meterProvider, promHandler, metrics, err = setupMetrics(cfg)
		if err != nil {
			return nil, err
		}
	}

	var (
		pipelineMetrics observability.PipelineMetrics
		cacheMetrics    observability.CacheMetrics
		apiMetrics      observability.APIMetrics
	)
	if metrics != nil {
		pipelineMetrics = metrics.Pipeline
		cacheMetrics = metrics.Cache
		apiMetrics = metrics.API
	}

	var tracerProvider *sdktrace.TracerProvider

	if cfg.OtelTracesExporter == "" {
		slog.Warn("tracing not enabled (OTEL_TRACES_EXPORTER empty or unset)")
	} else {
		tracerProvider, err = observability.NewTracerProvider(cfg)
		if err != nil {
			if meterProvider != nil {
				if err2 := observability.ShutdownMeterProvider(context.Background(), meterProvider); err2 != nil {
					slog.Error("shutdown meter provider after tracer provider error", "error", err2)
				}
			}

			return nil, fmt.Errorf("create tracer provider: %w", err)
		}
	}

	// No-op when the default logger already came from observability.NewLogger.
	slog.SetDefault(slog.New(observability.NewTraceContextHandler(slog.Default().Handler())))

	if tracerProvider != nil {
		otel.SetTracerProvider(tracerProvider)
	}

	if meterProvider != nil {
		otel.SetMeterProvider(meterProvider)
	}

	app := &App{cfg: cfg, meterProvider: meterProvider, tracerProvider: tracerProvider}

	r, err := newRoutes(ctx, cfg, db, pipelineMetrics, cacheMetrics)
	if err != nil {
		if shutdownErr := shutdownObservability(context.Background(), tracerProvider, meterProvider); shutdownErr != nil {
			slog.Error("shutdown observability after wiring error", "error", shutdownErr)
		}

		return nil, err
	}

	r.metrics = promHandler
	app.server = newHTTPServer(cfg, r, apiMetrics, meterProvider, tracerProvider)

	return app, nil
}

// newRoutes loads the corpora and builds the pipelines and their handlers.
func newRoutes(
	ctx context.Context,
	cfg *config.Config,
	db *pgxpool.Pool,
	pipelineMetrics observability.PipelineMetrics,
	cacheMetrics observability.CacheMetrics,
) (*routes, error) {
	httpClient := httpretry.NewClient(httpretry.Options{
		Timeout: cfg.GenerationTimeout,
		Logger:  slog.Default(),
	})

	ai, err := aiprovider.New(ctx, cfg, httpClient)
	if err != nil {
		return nil, fmt.Errorf("create AI client: %w", err)
	}

	var (
		embedder  service.EmbeddingClient
		generator service.GenerationClient
	)
	if ai != nil {
		embedder = ai
		generator = ai
	}

	var historyRepo service.SuggestionHistoryRepository

	if db != nil {
		repo := repository.NewSuggestionHistoryRepository(db)
		if err := repo.EnsureSchema(ctx); err != nil {
			return nil, err
		}

		historyRepo = repo
	}

	historyService := service.NewSuggestionHistoryService(historyRepo)

	recipeService := service.NewRecipeService(service.RecipeServiceParams{
		Generator:      generator,
		Corpus:         loadRecipeCorpus(cfg.RecipeCorpusPath),
		TopK:           cfg.RecipeTopK,
		NumSuggestions: cfg.RecipeNumSuggestions,
		PantryStaples:  prompt.DefaultPantryStaples,
		Language:       cfg.ResponseLanguage,
		Timeout:        cfg.GenerationTimeout,
		Recorder:       historyService,
		Metrics:        pipelineMetrics,
		Logger:         slog.Default(),
	})

	queryCache, err := service.NewQueryEmbeddingCache(cfg.QueryCacheSize, cfg.GenerationTimeout)
	if err != nil {
		return nil, err
	}

	wasteService := service.NewWasteService(service.WasteServiceParams{
		Embedder:  embedder,
		Generator: generator,
		Chunks:    loadKnowledgeBase(cfg.KnowledgeBasePath),
		TopK:      cfg.KnowledgeTopK,
		MinScore:  cfg.KnowledgeMinScore,
		Language:  cfg.ResponseLanguage,

		EmbeddingDimensions: cfg.EmbeddingDimensions,

		Timeout:      cfg.GenerationTimeout,
		QueryCache:   queryCache,
		CacheMetrics: cacheMetrics,
		Metrics:      pipelineMetrics,
		Logger:       slog.Default(),
	})

	return &routes{
		health:  handlers.NewHealthHandler(),
		status:  handlers.NewStatusHandler(recipeService, wasteService),
		recipes: handlers.NewRecipesHandler(recipeService, historyService, slog.Default()),
		waste:   handlers.NewWasteHandler(wasteService, slog.Default()),
		expiry:  handlers.NewExpiryHandler(nil),
	}, nil
}

// newHTTPServer builds the HTTP server. /health and /metrics are public; /v1/ routes get the body
// limit and, when API_KEY is set, bearer auth.
// Handler chain: RequestID -> otelhttp(Logging(Metrics(mux))) so access logs get trace_id/span_id
// from context and Metrics sees the matched route pattern.
func newHTTPServer(
	cfg *config.Config,
	r *routes,
	apiMetrics observability.APIMetrics,
	meterProvider *sdkmetric.MeterProvider,
	tracerProvider *sdktrace.TracerProvider,
) *http.Server {
	var bodyTooLarge middleware.RequestBodyTooLargeRecorder
	if apiMetrics != nil {
		bodyTooLarge = apiMetrics
	}

	auth := middleware.Auth(cfg.APIKey)
	maxBody := middleware.MaxBody(cfg.MaxRequestBodyBytes, bodyTooLarge)
	protected := func(h http.HandlerFunc) http.Handler {
		return auth(maxBody(h))
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", r.health.Check)

	if r.metrics != nil {
		mux.Handle("GET /metrics", r.metrics)
	}

	mux.Handle("GET /v1/pipelines/status", protected(r.status.Pipelines))
	mux.Handle("POST /v1/recipes/suggest", protected(r.recipes.Suggest))
	mux.Handle("GET /v1/recipes/history", protected(r.recipes.History))
	mux.Handle("POST /v1/waste/qa", protected(r.waste.Ask))
	mux.Handle("POST /v1/ingredients/expiry", protected(r.expiry.Estimate))

	otelOpts := []otelhttp.Option{
		// Skip tracing and HTTP metrics for health checks and scrapes to reduce noise.
		otelhttp.WithFilter(func(req *http.Request) bool {
			return req.URL.Path != "/health" && req.URL.Path != "/metrics"
		}),
	}
	if meterProvider != nil {
		otelOpts = append(otelOpts, otelhttp.WithMeterProvider(meterProvider))
	}

	if tracerProvider != nil {
		otelOpts = append(otelOpts, otelhttp.WithTracerProvider(tracerProvider))
	}

	// Metrics must wrap the mux directly to read r.Pattern.
	inner := middleware.Logging(slog.Default())(middleware.Metrics(apiMetrics)(mux))
	handler := otelhttp.NewHandler(inner, "hub-api", otelOpts...)
	handler = middleware.RequestID(handler)

	const (
		readTimeout = 15 * time.Second
		idleTimeout = 60 * time.Second
	)

	// Generation can take up to GENERATION_TIMEOUT (plus retries), so the write deadline follows it.
	writeTimeout := 2*cfg.GenerationTimeout + 15*time.Second

	return &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadTimeout:       readTimeout,
		ReadHeaderTimeout: readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	}
}

// Run starts the HTTP server and blocks until ctx is cancelled (e.g. signal) or the server fails.
// Caller should then call Shutdown.
func (a *App) Run(ctx context.Context) error {
	runErr := make(chan error, 1)

	go func() {
		slog.Info("Starting server", "port", a.cfg.Port)

		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			runErr <- fmt.Errorf("server: %w", err)
		}
	}()

	select {
	case err := <-runErr:
		return err
	case <-ctx.Done():
		return nil
	}
}

// shutdownObservability shuts down tracer and meter providers. Logs secondary errors, returns the first.
func shutdownObservability(ctx context.Context, tracer *sdktrace.TracerProvider, meter *sdkmetric.MeterProvider) error {
	var first error

	if tracer != nil {
		if err := observability.ShutdownTracerProvider(ctx, tracer); err != nil {
			first = err
		}
	}

	if meter != nil {
		if err := observability.ShutdownMeterProvider(ctx, meter); err != nil {
			if first == nil {
				first = err
			} else {
				slog.Error("shutdown meter provider", "error", err)
			}
		}
	}

	return first
}

// Shutdown stops the server, then flushes observability. Call after Run returns.
func (a *App) Shutdown(ctx context.Context) (err error) {
	defer func() {
		obsErr := shutdownObservability(ctx, a.tracerProvider, a.meterProvider)
		if err == nil {
			err = obsErr
		} else if obsErr != nil {
			slog.Error("shutdown observability", "error", obsErr)
		}
	}()

	if err = a.server.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server shutdown: %w", err)
	}

	return nil
}

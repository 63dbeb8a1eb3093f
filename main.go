package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Gobusters/ectoenv"
	"github.com/Gobusters/ectoinject"
	"github.com/Gobusters/ectologger"
	"github.com/Gobusters/ectologger/zapadapter"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	_ "github.com/lib/pq"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"

	"github.com/Ramsey-B/laurel/config"
	"github.com/Ramsey-B/laurel/internal/database"
	datasetrepo "github.com/Ramsey-B/laurel/internal/repositories/dataset"
	entryrepo "github.com/Ramsey-B/laurel/internal/repositories/datasetentry"
	candidaterepo "github.com/Ramsey-B/laurel/internal/repositories/matchcandidate"
	projectrepo "github.com/Ramsey-B/laurel/internal/repositories/project"
	taskrepo "github.com/Ramsey-B/laurel/internal/repositories/task"
	"github.com/Ramsey-B/laurel/pkg/events"
	graphpkg "github.com/Ramsey-B/laurel/pkg/graph"
	"github.com/Ramsey-B/laurel/pkg/kafka"
	"github.com/Ramsey-B/laurel/pkg/middleware"
	"github.com/Ramsey-B/laurel/pkg/processor"
	candidateroutes "github.com/Ramsey-B/laurel/pkg/routes/candidate"
	datasetroutes "github.com/Ramsey-B/laurel/pkg/routes/dataset"
	graphroutes "github.com/Ramsey-B/laurel/pkg/routes/graph"
	"github.com/Ramsey-B/laurel/pkg/routes/health"
	projectroutes "github.com/Ramsey-B/laurel/pkg/routes/project"
	taskroutes "github.com/Ramsey-B/laurel/pkg/routes/task"
	"github.com/Ramsey-B/laurel/pkg/startup"
	"github.com/Ramsey-B/laurel/pkg/tracing"
	"github.com/Ramsey-B/laurel/pkg/tracing/exporters"
	"github.com/Ramsey-B/laurel/pkg/workflow"
)

var version = "dev"

// app holds the long-lived resources built during startup so shutdown can
// release them in reverse order.
type app struct {
	cfg    config.Config
	logger ectologger.Logger

	tracerProvider *sdktrace.TracerProvider
	sqlDB          *sqlx.DB
	db             database.DB

	projects   *projectrepo.Repository
	datasets   *datasetrepo.Repository
	entries    *entryrepo.Repository
	tasks      *taskrepo.Repository
	candidates *candidaterepo.Repository

	producer *kafka.Producer
	emitter  *events.Emitter
	consumer *kafka.Consumer

	graphClient *graphpkg.Client

	echo   *echo.Echo
	health *health.Checker
}

// dependency adapts a pair of closures to the startup.Dependency interface
type dependency struct {
	name      string
	dependsOn []string
	start     func(ctx context.Context) error
	stop      func(ctx context.Context) error
}

func (d *dependency) Name() string                    { return d.name }
func (d *dependency) DependsOn() []string             { return d.dependsOn }
func (d *dependency) Start(ctx context.Context) error { return d.start(ctx) }
func (d *dependency) Stop(ctx context.Context) error {
	if d.stop == nil {
		return nil
	}
	return d.stop(ctx)
}

func main() {
	_ = godotenv.Load()

	var cfg config.Config
	if err := ectoenv.BindEnv(&cfg); err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}

	container, err := ectoinject.NewDIDefaultContainer()
	if err != nil {
		logger.WithError(err).Error("Failed to create DI container")
		os.Exit(1)
	}
	if err := ectoinject.RegisterInstance[ectologger.Logger](container, logger); err != nil {
		logger.WithError(err).Error("Failed to register logger")
		os.Exit(1)
	}
	if err := ectoinject.RegisterInstance[config.Config](container, cfg); err != nil {
		logger.WithError(err).Error("Failed to register config")
		os.Exit(1)
	}

	a := &app{cfg: cfg, logger: logger}

	mgr := startup.NewManager(logger, cfg.StartupMaxAttempts)

	mgr.Add(&dependency{
		name:  "tracing",
		start: a.startTracing,
		stop:  a.stopTracing,
	})

	mgr.Add(&dependency{
		name: "postgres",
		start: func(ctx context.Context) error {
			if err := a.startPostgres(ctx); err != nil {
				return err
			}
			if err := ectoinject.RegisterInstance[database.DB](container, a.db); err != nil {
				return err
			}
			if err := ectoinject.RegisterInstance[*projectrepo.Repository](container, a.projects); err != nil {
				return err
			}
			if err := ectoinject.RegisterInstance[*datasetrepo.Repository](container, a.datasets); err != nil {
				return err
			}
			if err := ectoinject.RegisterInstance[*entryrepo.Repository](container, a.entries); err != nil {
				return err
			}
			if err := ectoinject.RegisterInstance[*taskrepo.Repository](container, a.tasks); err != nil {
				return err
			}
			return ectoinject.RegisterInstance[*candidaterepo.Repository](container, a.candidates)
		},
		stop: func(ctx context.Context) error {
			if a.sqlDB == nil {
				return nil
			}
			return a.sqlDB.Close()
		},
	})

	mgr.Add(&dependency{
		name:      "migrations",
		dependsOn: []string{"postgres"},
		start:     a.runMigrations,
	})

	mgr.Add(&dependency{
		name: "graph",
		start: func(ctx context.Context) error {
			exporter, err := a.startGraph(ctx)
			if err != nil || exporter == nil {
				return err
			}
			return ectoinject.RegisterInstance[*graphpkg.ExportService](container, exporter)
		},
		stop: func(ctx context.Context) error {
			if a.graphClient == nil {
				return nil
			}
			return a.graphClient.Close(ctx)
		},
	})

	mgr.Add(&dependency{
		name:  "kafka-producer",
		start: a.startProducer,
		stop: func(ctx context.Context) error {
			if a.producer == nil {
				return nil
			}
			return a.producer.Close()
		},
	})

	mgr.Add(&dependency{
		name:      "kafka-consumer",
		dependsOn: []string{"postgres", "migrations", "kafka-producer"},
		start:     a.startConsumer,
		stop: func(ctx context.Context) error {
			if a.consumer == nil {
				return nil
			}
			return a.consumer.Stop()
		},
	})

	mgr.Add(&dependency{
		name:      "api",
		dependsOn: []string{"postgres", "migrations", "kafka-producer", "kafka-consumer", "graph"},
		start: func(ctx context.Context) error {
			svc := workflow.NewService(a.db, a.logger, a.projects, a.datasets, a.entries, a.tasks, a.candidates, a.emitter)
			if err := ectoinject.RegisterInstance[*workflow.Service](container, svc); err != nil {
				return err
			}
			return a.startAPI(ctx)
		},
		stop: func(ctx context.Context) error {
			if a.echo == nil {
				return nil
			}
			return a.echo.Shutdown(ctx)
		},
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := mgr.Start(ctx); err != nil {
		logger.WithError(err).Error("Startup failed")
		os.Exit(1)
	}

	a.health.SetReady(true)
	logger.WithField("version", version).Infof("%s is ready", cfg.AppName)

	<-ctx.Done()
	logger.Info("Shutting down")
	a.health.SetReady(false)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := mgr.Stop(shutdownCtx); err != nil {
		logger.WithError(err).Error("Shutdown did not complete cleanly")
	}
}

func newLogger(cfg config.Config) (ectologger.Logger, error) {
	var zapLogger *zap.Logger
	var err error
	if cfg.PrettyLogs {
		zapLogger, err = zap.NewDevelopment()
	} else {
		zapLogger, err = zap.NewProduction()
	}
	if err != nil {
		return nil, err
	}
	return zapadapter.NewZapEctoLogger(zapLogger, nil), nil
}

func (a *app) startTracing(ctx context.Context) error {
	if !a.cfg.TracingEnabled {
		return nil
	}

	exporter, err := exporters.NewOTLPExporter(ctx, exporters.OTLPConfig{
		Endpoint: a.cfg.TracingOTLPEndpoint,
		Protocol: a.cfg.TracingOTLPProtocol,
		Insecure: a.cfg.TracingInsecure,
		Timeout:  10 * time.Second,
	})
	if err != nil {
		return fmt.Errorf("failed to create OTLP exporter: %w", err)
	}

	a.tracerProvider = sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(resource.NewSchemaless(
			attribute.String("service.name", a.cfg.AppName),
			attribute.String("service.version", version),
		)),
	)
	otel.SetTracerProvider(a.tracerProvider)
	tracing.SetTracer(a.tracerProvider.Tracer(a.cfg.AppName))
	return nil
}

func (a *app) stopTracing(ctx context.Context) error {
	if a.tracerProvider == nil {
		return nil
	}
	return a.tracerProvider.Shutdown(ctx)
}

func (a *app) startPostgres(ctx context.Context) error {
	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		a.cfg.DatabaseHost,
		a.cfg.DatabasePort,
		a.cfg.DatabaseUserName,
		a.cfg.DatabasePassword,
		a.cfg.DatabaseName,
		a.cfg.DatabaseSSLMode,
	)

	sqlDB, err := sqlx.ConnectContext(ctx, a.cfg.DatabaseDriver, dsn)
	if err != nil {
		return fmt.Errorf("failed to connect to postgres: %w", err)
	}
	sqlDB.SetMaxOpenConns(a.cfg.DatabaseMaxOpenConns)
	sqlDB.SetMaxIdleConns(a.cfg.DatabaseMaxIdleConns)
	sqlDB.SetConnMaxLifetime(a.cfg.DatabaseConnMaxLifetime)

	a.sqlDB = sqlDB
	a.db = database.NewDatabaseInstance(sqlDB, a.logger)

	a.projects = projectrepo.NewRepository(a.db, a.logger)
	a.datasets = datasetrepo.NewRepository(a.db, a.logger)
	a.entries = entryrepo.NewRepository(a.db, a.logger)
	a.tasks = taskrepo.NewRepository(a.db, a.logger)
	a.candidates = candidaterepo.NewRepository(a.db, a.logger)
	return nil
}

func (a *app) runMigrations(ctx context.Context) error {
	driver, err := migratepg.WithInstance(a.sqlDB.DB, &migratepg.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	svc := database.NewMigrationService(a.logger, &database.MigrationConfig{
		MigrationFolderPath: a.cfg.DatabaseMigrationFolderPath,
		Version:             uint(a.cfg.DatabaseMigrationVersion),
		Force:               a.cfg.DatabaseMigrationForce,
		AutoRollback:        a.cfg.DatabaseMigrationAutoRollback,
	})
	return svc.Migrate(a.cfg.DatabaseName, driver)
}

func (a *app) startGraph(ctx context.Context) (*graphpkg.ExportService, error) {
	if !a.cfg.GraphDBEnabled {
		return nil, nil
	}

	client, err := graphpkg.NewClient(graphpkg.Config{
		Host:     a.cfg.GraphDBHost,
		Port:     a.cfg.GraphDBPort,
		Username: a.cfg.GraphDBUser,
		Password: a.cfg.GraphDBPassword,
	}, a.logger)
	if err != nil {
		return nil, err
	}
	if err := client.VerifyConnectivity(ctx); err != nil {
		return nil, fmt.Errorf("graph database unreachable: %w", err)
	}

	a.graphClient = client
	return graphpkg.NewExportService(client, a.logger), nil
}

func (a *app) startProducer(ctx context.Context) error {
	if !a.cfg.KafkaProducerEnabled {
		return nil
	}

	a.producer = kafka.NewProducer(kafka.ProducerConfig{
		Brokers:      a.cfg.KafkaBrokers,
		Topic:        a.cfg.KafkaReviewEventsTopic,
		BatchSize:    a.cfg.KafkaBatchSize,
		BatchTimeout: time.Duration(a.cfg.KafkaBatchTimeout) * time.Millisecond,
		RequiredAcks: a.cfg.KafkaRequiredAcks,
		Compression:  a.cfg.KafkaCompression,
	}, a.logger)
	a.emitter = events.NewEmitter(a.producer, a.logger)
	return nil
}

func (a *app) startConsumer(ctx context.Context) error {
	if !a.cfg.KafkaConsumerEnabled {
		return nil
	}

	proc := processor.NewProcessor(
		a.logger,
		a.db,
		a.cfg.MatchingSettings(),
		a.projects,
		a.entries,
		a.tasks,
		a.candidates,
		a.emitter,
	)

	a.consumer = kafka.NewConsumer(a.cfg, a.logger, proc.HandleMessage)
	return a.consumer.Start(ctx)
}

func (a *app) startAPI(ctx context.Context) error {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Server.ReadTimeout = time.Duration(a.cfg.HttpServerReadTimeoutSeconds) * time.Second
	e.Server.WriteTimeout = time.Duration(a.cfg.HttpServerWriteTimeoutSeconds) * time.Second
	e.Server.IdleTimeout = time.Duration(a.cfg.HttpServerIdleTimeoutSeconds) * time.Second
	e.Server.ReadHeaderTimeout = time.Duration(a.cfg.ReadHeaderTimeoutSeconds) * time.Second
	e.Server.MaxHeaderBytes = a.cfg.MaxHeaderBytes

	e.Use(middleware.Context())
	e.Use(otelecho.Middleware(a.cfg.AppName))
	e.Use(middleware.Logger(a.logger))
	e.HTTPErrorHandler = middleware.Error(a.logger)

	var consumerCheck interface{ Health() bool }
	if a.consumer != nil {
		consumerCheck = a.consumer
	}
	a.health = health.NewChecker(a.sqlDB, consumerCheck, version)
	a.health.RegisterRoutes(e)

	api := e.Group("/api/v1")
	datasetroutes.Register(api.Group("/datasets"))
	projectroutes.Register(api.Group("/projects"))
	taskroutes.Register(api.Group("/tasks"))
	candidateroutes.Register(api.Group("/candidates"))
	graphroutes.Register(api.Group("/graph"))

	a.echo = e

	go func() {
		if err := e.Start(fmt.Sprintf(":%d", a.cfg.Port)); err != nil {
			a.logger.WithError(err).Info("HTTP server stopped")
		}
	}()
	a.logger.WithField("port", a.cfg.Port).Infof("HTTP server listening on :%d", a.cfg.Port)
	return nil
}

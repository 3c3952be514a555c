package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	httpadp "collateral-ledger/internal/adapter/http"
	idemp "collateral-ledger/internal/adapter/middleware"
	"collateral-ledger/internal/adapter/publisher"
	"collateral-ledger/internal/adapter/repository/memory"
	"collateral-ledger/internal/adapter/repository/mysql"
	"collateral-ledger/internal/config"
	"collateral-ledger/internal/domain/event"
	"collateral-ledger/internal/domain/loan"
	"collateral-ledger/internal/domain/uow"
	"collateral-ledger/internal/infrastructure/cache"
	"collateral-ledger/internal/infrastructure/db"
	"collateral-ledger/internal/infrastructure/metrics"
	"collateral-ledger/internal/logging"
	"collateral-ledger/internal/usecase/ledger"
)

const serviceName = "collateral-ledger"

type store struct {
	loans  loan.Repository
	events event.Repository
	uow    uow.UnitOfWork
	ping   httpadp.Pinger
	close  func() error
}

func openStore(cfg *config.Config) (*store, error) {
	var (
		gdb *gorm.DB
		err error
	)
	switch cfg.StoreDriver {
	case config.DriverMemory:
		s := memory.NewStore()
		return &store{
			loans:  memory.NewLoanRepository(s),
			events: memory.NewEventRepository(s),
			uow:    memory.NewUoW(s),
			ping:   httpadp.PingFunc(func(context.Context) error { return nil }),
			close:  func() error { return nil },
		}, nil
	case config.DriverSQLite:
		gdb, err = db.OpenSQLite(cfg.SQLitePath)
	default:
		gdb, err = db.OpenGorm(cfg.MySQLDSN())
	}
	if err != nil {
		return nil, err
	}
	if err := mysql.Migrate(gdb); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, err
	}
	return &store{
		loans:  mysql.NewLoanRepository(gdb),
		events: mysql.NewEventRepository(gdb),
		uow:    mysql.NewGormUoW(gdb),
		ping:   httpadp.PingFunc(sqlDB.PingContext),
		close:  sqlDB.Close,
	}, nil
}

func main() {
	cfg := config.Load()
	logger := logging.Setup(serviceName, cfg.AppEnv, cfg.LogLevel)
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid config", "error", err)
		os.Exit(1)
	}

	st, err := openStore(cfg)
	if err != nil {
		logger.Error("store unavailable", "driver", cfg.StoreDriver, "error", err)
		os.Exit(1)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	ledgerMetrics := metrics.New(reg)

	opts := []ledger.Option{ledger.WithLogger(logger), ledger.WithMetrics(ledgerMetrics)}
	deps := map[string]httpadp.Pinger{"store": st.ping}

	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb, err = cache.OpenRedis(context.Background(), cfg.RedisAddr, cfg.RedisDB)
		if err != nil {
			logger.Error("redis unavailable", "addr", cfg.RedisAddr, "error", err)
			os.Exit(1)
		}
		opts = append(opts, ledger.WithPublisher(publisher.NewRedisStream(rdb, cfg.EventStream, cfg.EventStreamMaxLen)))
		deps["redis"] = httpadp.PingFunc(func(ctx context.Context) error { return rdb.Ping(ctx).Err() })
	} else {
		logger.Warn("REDIS_ADDR not set: idempotency and event streaming disabled")
	}

	uc := ledger.NewUsecase(st.loans, st.events, st.uow, opts...)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = httpadp.NewValidator()
	e.Use(middleware.Recover(), middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []any{"method", v.Method, "uri", v.URI, "status", v.Status, "latency", v.Latency}
			if v.Error != nil {
				attrs = append(attrs, "error", v.Error)
			}
			logger.InfoContext(c.Request().Context(), "http request", attrs...)
			return nil
		},
	}))

	// routes
	e.GET("/health", httpadp.NewHandler(deps).Health)
	e.GET("/metrics", echo.WrapHandler(ledgerMetrics.Handler()))

	api := e.Group("")
	if rdb != nil {
		api.Use(idemp.Idempotency(idemp.NewReplayStore(rdb, time.Duration(cfg.IdempTTLSecs)*time.Second)))
	}
	httpadp.NewLedgerHandler(uc).Register(api)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		addr := ":" + cfg.AppPort
		logger.Info("listening", "addr", addr, "store", cfg.StoreDriver)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server stopped", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", "error", err)
	}
	if rdb != nil {
		_ = rdb.Close()
	}
	if err := st.close(); err != nil {
		logger.Error("store close", "error", err)
	}
	slog.Info("bye")
}

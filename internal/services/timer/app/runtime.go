package app

import (
	"context"
	"fmt"
	"log"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/louisbranch/focus.space/internal/platform/timeouts"
	statsdomain "github.com/louisbranch/focus.space/internal/services/stats/domain"
	statssqlite "github.com/louisbranch/focus.space/internal/services/stats/storage/sqlite"
	"github.com/louisbranch/focus.space/internal/services/timer/domain"
	"github.com/louisbranch/focus.space/internal/services/timer/scheduler"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"
)

// RuntimeConfig controls focus service startup and loop behavior. Values are
// loaded from FOCUS_SPACE_* environment variables and may be overridden by
// flags.
type RuntimeConfig struct {
	Port               int           `env:"FOCUS_SPACE_PORT"`
	StatsDBPath        string        `env:"FOCUS_SPACE_STATS_DB_PATH"`
	MinSessionMinutes  int           `env:"FOCUS_SPACE_MIN_SESSION_MINUTES"`
	MaxSessionMinutes  int           `env:"FOCUS_SPACE_MAX_SESSION_MINUTES"`
	TickInterval       time.Duration `env:"FOCUS_SPACE_TICK_INTERVAL"`
	BreakReminderDelay time.Duration `env:"FOCUS_SPACE_BREAK_REMINDER_DELAY"`
	SweepInterval      time.Duration `env:"FOCUS_SPACE_SWEEP_INTERVAL"`
}

const (
	defaultFocusPort     = 8091
	defaultSweepInterval = 30 * time.Minute
)

// Run starts the focus runtime: stats storage, the trigger scheduler, the
// session state machine, a health endpoint, and the reconciliation sweep
// loop. It blocks until ctx is cancelled.
func Run(ctx context.Context, cfg RuntimeConfig) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if cfg.Port <= 0 {
		cfg.Port = defaultFocusPort
	}
	if strings.TrimSpace(cfg.StatsDBPath) == "" {
		cfg.StatsDBPath = statssqlite.MemoryPath
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = defaultSweepInterval
	}

	if cfg.StatsDBPath != statssqlite.MemoryPath {
		if dir := filepath.Dir(cfg.StatsDBPath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create stats storage dir: %w", err)
			}
		}
	}

	statsStore, err := statssqlite.Open(cfg.StatsDBPath)
	if err != nil {
		return fmt.Errorf("open stats sqlite store: %w", err)
	}
	defer func() {
		if closeErr := statsStore.Close(); closeErr != nil {
			log.Printf("close stats sqlite store: %v", closeErr)
		}
	}()

	statsService := statsdomain.NewService(statsStore, noopTaskCounter{}, nil)

	triggers := scheduler.New()
	defer triggers.Stop()

	sessionService := domain.NewService(
		domain.NewStore(),
		triggers,
		LogNotifier{},
		newStatsCommitter(statsService),
		nil,
		domain.Config{
			MinSessionMinutes:  cfg.MinSessionMinutes,
			MaxSessionMinutes:  cfg.MaxSessionMinutes,
			TickInterval:       cfg.TickInterval,
			BreakReminderDelay: cfg.BreakReminderDelay,
		},
	)

	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.Port))
	if err != nil {
		return fmt.Errorf("listen on focus port %d: %w", cfg.Port, err)
	}
	defer listener.Close()

	grpcServer := grpc.NewServer(grpc.StatsHandler(otelgrpc.NewServerHandler()))
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus("focus.runtime", grpc_health_v1.HealthCheckResponse_SERVING)

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- grpcServer.Serve(listener)
	}()
	defer func() {
		healthServer.Shutdown()
		grpcServer.GracefulStop()
		<-serveErr
	}()

	log.Printf("focus server listening at %v", listener.Addr())
	return runSweepLoop(ctx, sessionService, cfg.SweepInterval)
}

// runSweepLoop periodically reconciles the scheduler against session state,
// cancelling trigger entries whose owning session is idle.
func runSweepLoop(ctx context.Context, sessions *domain.Service, interval time.Duration) error {
	tracer := otel.Tracer("focus.sweep")
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			sweep(ctx, tracer, sessions)
		}
	}
}

func sweep(ctx context.Context, tracer trace.Tracer, sessions *domain.Service) {
	sweepCtx, cancel := context.WithTimeout(ctx, timeouts.Sweep)
	defer cancel()
	_, span := tracer.Start(sweepCtx, "sessions.sweep")
	defer span.End()

	cancelled := sessions.Sweep()
	span.SetAttributes(attribute.Int("sweep.cancelled_entries", cancelled))
	if cancelled > 0 {
		log.Printf("sweep reconciled scheduler entries count=%d", cancelled)
	}
}

// noopTaskCounter reports zero completed tasks; a real task service plugs in
// through the same port.
type noopTaskCounter struct{}

func (noopTaskCounter) CompletedTaskCount(context.Context, string) (int, error) {
	return 0, nil
}

// statsCommitter adapts the stats aggregator to the session commit port,
// discarding the returned snapshot.
type statsCommitter struct {
	stats  *statsdomain.Service
	tracer trace.Tracer
}

func newStatsCommitter(stats *statsdomain.Service) *statsCommitter {
	return &statsCommitter{stats: stats, tracer: otel.Tracer("focus.stats")}
}

func (c *statsCommitter) CommitSession(ctx context.Context, userID string, actualMinutes int) error {
	if c == nil || c.stats == nil {
		return nil
	}
	ctx, span := c.tracer.Start(ctx, "stats.commit_session")
	defer span.End()
	span.SetAttributes(attribute.Int("session.actual_minutes", actualMinutes))

	_, err := c.stats.CommitSession(ctx, userID, actualMinutes)
	if err != nil {
		span.RecordError(err)
	}
	return err
}

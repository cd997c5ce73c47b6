package daemon

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/traction-app/traction/internal/api"
	"github.com/traction-app/traction/internal/app/journal"
	"github.com/traction-app/traction/internal/app/tasks"
	"github.com/traction-app/traction/internal/health"
	"github.com/traction-app/traction/internal/infra/scheduler"
	"github.com/traction-app/traction/internal/infra/sqlite"
)

// JournalJobID names the auto-journal job in the runner registry.
const JournalJobID = "auto-generate-journal"

// Daemon is the core traction runtime. It wires together all services.
type Daemon struct {
	Config  Config
	DB      *sqlite.DB
	Tasks   *tasks.Service
	Journal *journal.Generator
	Runner  *scheduler.Runner
	Health  *health.Checker
	Server  *api.Server
	cancel  context.CancelFunc
}

// New creates and initializes a Daemon with all services wired.
func New() (*Daemon, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return NewWithConfig(cfg)
}

// NewWithConfig creates a Daemon with the given configuration. Job
// registration happens here: an unsupported schedule pattern fails startup
// instead of degrading at tick time.
func NewWithConfig(cfg Config) (*Daemon, error) {
	dir := cfg.Storage.Dir
	if dir == "" {
		dir = tractionHome()
	}
	db, err := sqlite.Open(dir)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	taskSvc := tasks.NewService(db)
	gen := journal.NewGenerator(db)
	gen.SetDefaultScheduleTime(cfg.Journal.DefaultTime)

	tick := time.Duration(cfg.Scheduler.TickSeconds) * time.Second
	runner := scheduler.NewRunner(scheduler.Config{Tick: tick})

	schedule, err := scheduler.Parse(cfg.Scheduler.JournalCron)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("journal schedule: %w", err)
	}
	if err := runner.Register(JournalJobID, schedule, gen.Run); err != nil {
		db.Close()
		return nil, fmt.Errorf("register journal job: %w", err)
	}

	var schedulerProbe health.SchedulerStatus
	if cfg.Scheduler.Enabled {
		schedulerProbe = runner
	}
	checker := health.NewChecker(db, dir, schedulerProbe)

	srv := api.NewServer(taskSvc, gen, runner, cfg.API.DefaultOwner)
	srv.SetHealthChecker(checker)
	if cfg.Telemetry.Prometheus {
		srv.EnableMetrics()
	}

	return &Daemon{
		Config:  cfg,
		DB:      db,
		Tasks:   taskSvc,
		Journal: gen,
		Runner:  runner,
		Health:  checker,
		Server:  srv,
	}, nil
}

// Serve starts the HTTP server and the scheduler loop, blocking until
// shutdown.
func (d *Daemon) Serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	// Scheduler loop runs independently of request handling and stops
	// through the same context as everything else.
	if d.Config.Scheduler.Enabled {
		go d.Runner.Run(ctx)
	}
	go d.Health.Run(ctx)

	addr := fmt.Sprintf("%s:%d", d.Config.API.Host, d.Config.API.Port)

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      d.Server.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  2 * time.Minute,
	}

	// Graceful shutdown on signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case <-sigCh:
		case <-ctx.Done():
		}
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		_ = httpServer.Shutdown(shutdownCtx)
		_ = d.DB.Close()
	}()

	fmt.Printf("traction serving on http://%s\n", addr)
	if d.Config.Telemetry.Prometheus {
		fmt.Printf("  Metrics: http://%s/metrics\n", addr)
	}

	if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Close shuts down all daemon resources.
func (d *Daemon) Close() {
	if d.cancel != nil {
		d.cancel()
	}
	if d.DB != nil {
		_ = d.DB.Close()
	}
}

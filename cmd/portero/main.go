package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/portero-acs/portero/internal/config"
	dbpkg "github.com/portero-acs/portero/internal/db"
	"github.com/portero-acs/portero/internal/httpapi"
	"github.com/portero-acs/portero/internal/metrics"
	"github.com/portero-acs/portero/internal/portero/engine"
	"github.com/portero-acs/portero/internal/portero/hardware"
	"github.com/portero-acs/portero/internal/portero/queue"
	"github.com/portero-acs/portero/internal/portero/store/sqlite"
	"github.com/portero-acs/portero/internal/portero/wiegand"
	"github.com/portero-acs/portero/internal/scheduler"
	"github.com/portero-acs/portero/internal/settings"
)

func main() {
	cfg := config.FromEnv()
	logger := log.New(os.Stdout, "portero ", log.LstdFlags|log.LUTC)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Database and single-writer worker.
	db, err := dbpkg.Open(ctx, dbpkg.Config{Path: cfg.DBPath, Env: cfg.Env})
	if err != nil {
		logger.Fatalf("db open: %v", err)
	}
	defer db.Close()
	writer := dbpkg.NewWorker(db)
	defer writer.Close()

	keyfobStore := sqlite.NewKeyfobStore(db)
	logStore := sqlite.NewAccessLogStore(db, writer)
	eventStore := sqlite.NewSystemEventStore(db, writer)

	// Persisted settings, reloaded when the admin UI rewrites the file.
	settingsStore, err := settings.Load(cfg.SettingsPath, logger)
	if err != nil {
		logger.Fatalf("settings: %v", err)
	}
	if err := settingsStore.Watch(); err != nil {
		logger.Printf("settings: running without file watch: %v", err)
	}
	defer settingsStore.Close()

	// Metrics.
	registry := prometheus.NewRegistry()
	m := metrics.New()
	if err := m.Register(registry); err != nil {
		logger.Fatalf("metrics: %v", err)
	}

	// Reader queue + hardware subsystem.
	credQueue := queue.New(cfg.QueueCapacity, logger, m)
	hw := hardware.Setup(hardware.Config{
		ChipName: cfg.GPIOChip,
		D0:       cfg.WiegandD0,
		D1:       cfg.WiegandD1,
		Relay:    cfg.RelayLine,
		DoorName: cfg.DoorName,
		Disabled: cfg.HardwareOff,
		Reader:   wiegand.AssemblerConfig{},
	}, nil, credQueue, settingsStore, eventStore, logger, m)
	defer hw.Cleanup()
	hw.StartReader(ctx)

	// Decision engine, ticked by the scheduler while hardware is up.
	eng := engine.New(engine.Config{BatchSize: cfg.BatchSize},
		keyfobStore, logStore, hw.Door(), credQueue, logger, m)

	sched := scheduler.New(logger)
	hw.ApplyJobPolicy(sched, func() { eng.Tick(ctx) })

	pruner := engine.NewLogPruner(logStore, cfg.LogRetentionDays, logger)
	if pruner.Enabled() {
		if err := sched.AddCron("access_log_pruner", "30 3 * * *", func() { pruner.Prune(ctx) }); err != nil {
			logger.Printf("scheduler: pruner job: %v", err)
		}
	} else {
		logger.Printf("access log pruner disabled (retention=0)")
	}
	sched.Start()

	// HTTP surface for the admin UI and dashboards.
	srv := httpapi.NewServer(httpapi.Dependencies{
		Logger:   logger,
		Addr:     cfg.HTTPAddr,
		Hardware: hw,
		Settings: settingsStore,
		Logs:     logStore,
		Events:   eventStore,
		Registry: registry,
	})

	go func() {
		logger.Printf("listening on %s", cfg.HTTPAddr)
		if err := srv.Start(); err != nil {
			logger.Printf("server error: %v", err)
			stop()
		}
	}()

	<-ctx.Done()

	// Shutdown: stop accepting work, finish running jobs, then the
	// deferred hardware cleanup re-asserts the locked relay exactly once.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)

	select {
	case <-sched.Stop().Done():
	case <-shutdownCtx.Done():
	}
}

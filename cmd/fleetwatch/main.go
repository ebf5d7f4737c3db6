// cmd/fleetwatch/main.go

package main

import (
	"context"
	"flag"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/oceanops/fleetwatch/pkg/alerting"
	"github.com/oceanops/fleetwatch/pkg/analyzer"
	"github.com/oceanops/fleetwatch/pkg/api"
	"github.com/oceanops/fleetwatch/pkg/config"
	"github.com/oceanops/fleetwatch/pkg/db"
	"github.com/oceanops/fleetwatch/pkg/lifecycle"
	"github.com/oceanops/fleetwatch/pkg/querier"
	"github.com/oceanops/fleetwatch/pkg/runlog"
	"github.com/oceanops/fleetwatch/pkg/scheduler"
	"github.com/oceanops/fleetwatch/pkg/tickets"
)

// engineService adapts the sweep engine to the lifecycle contract. The
// engine stops when its context is canceled, so Stop only waits for
// that to take effect.
type engineService struct {
	engine *scheduler.Engine
	store  db.Service
}

func (s *engineService) Start(ctx context.Context) error {
	return s.engine.Start(ctx)
}

func (s *engineService) Stop(context.Context) error {
	return s.store.Close()
}

func main() {
	configPath := flag.String("config", "/etc/fleetwatch/fleetwatch.json", "Path to config file")
	flag.Parse()

	var cfg config.Config
	if err := config.LoadAndValidate(*configPath, &cfg); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	store, err := db.New(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}

	alerters := make([]alerting.AlertService, 0, len(cfg.Webhooks))
	for _, wh := range cfg.Webhooks {
		alerters = append(alerters, alerting.NewWebhookAlerter(wh))
	}

	manager := alerting.NewManager(store, alerters, time.Duration(cfg.SLA.EscalationAge))
	workflow := tickets.NewWorkflow(
		store,
		tickets.NewJiraClient(&cfg.Ticketing),
		tickets.NewSlackNotifier(&cfg.Approval),
		time.Duration(cfg.Approval.Timeout),
	)
	runs := runlog.New(store)
	hub := api.NewHub()

	engine := scheduler.New(scheduler.Params{
		Units:       cfg.Units,
		Querier:     querier.NewHTTPClient(&cfg.Store),
		Analyzer:    analyzer.New(cfg.SLA.UptimeThreshold, time.Duration(cfg.SLA.Window)),
		Alerts:      manager,
		Workflow:    workflow,
		RunLog:      runs,
		Store:       store,
		Events:      hub,
		Interval:    time.Duration(cfg.Scheduler.Interval),
		Window:      time.Duration(cfg.SLA.Window),
		Retention:   time.Duration(cfg.Retention),
		BackoffBase: time.Duration(cfg.Scheduler.BackoffBase),
		Concurrency: cfg.Scheduler.Concurrency,
		MaxAttempts: cfg.Scheduler.MaxAttempts,
	})

	server := api.NewServer(store, runs, engine, workflow, hub)

	if err := lifecycle.RunServer(context.Background(), &lifecycle.ServerOptions{
		ListenAddr:  cfg.ListenAddr,
		ServiceName: "fleetwatch",
		Service:     &engineService{engine: engine, store: store},
		Handler:     server.Router(),
	}); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

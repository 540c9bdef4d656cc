// Package app wires the dispatch engine from configuration.
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/link-bedside-nurses/dispatch/api/dispatchhttp"
	"github.com/link-bedside-nurses/dispatch/config"
	"github.com/link-bedside-nurses/dispatch/core/appointment"
	"github.com/link-bedside-nurses/dispatch/core/directory"
	"github.com/link-bedside-nurses/dispatch/core/exclusion"
	"github.com/link-bedside-nurses/dispatch/core/match"
	coremetrics "github.com/link-bedside-nurses/dispatch/core/metrics"
	"github.com/link-bedside-nurses/dispatch/core/model"
	"github.com/link-bedside-nurses/dispatch/infra/logger"
	"github.com/link-bedside-nurses/dispatch/infra/metrics"
	"github.com/link-bedside-nurses/dispatch/infra/mqtt"
	"github.com/link-bedside-nurses/dispatch/infra/postgres"
	"github.com/link-bedside-nurses/dispatch/infra/redisstore"
	"github.com/link-bedside-nurses/dispatch/internal/eventbus"
)

// Service owns the wired dispatch engine and its HTTP surface.
type Service struct {
	Matcher      *match.Matcher
	Appointments *appointment.Service

	handler     http.Handler
	addr        string
	bus         eventbus.EventBus
	log         logger.Logger
	promEnabled bool
	promPort    string
	closers     []func()
}

// New creates a Service from the configuration. A missing Postgres URL or
// Redis address falls back to the in-process stores, which is only suitable
// for a single instance.
func New(ctx context.Context, cfg *config.Config) (*Service, error) {
	logg := logger.New("service")

	var (
		store appointment.Store
		dir   directory.Directory
	)
	var closers []func()
	if cfg.Postgres.URL != "" {
		pg, err := postgres.New(ctx, cfg.Postgres, logger.New("postgres"))
		if err != nil {
			return nil, fmt.Errorf("postgres: %w", err)
		}
		closers = append(closers, pg.Close)
		store, dir = pg, pg
	} else {
		logg.Warnf("no postgres url configured, using in-memory appointment store")
		mem := appointment.NewMemoryStore()
		store = mem
		dir = emptyDirectory{}
	}

	var excl exclusion.Store
	if cfg.Redis.Addr != "" {
		rs, err := redisstore.New(cfg.Redis, logger.New("redis"))
		if err != nil {
			return nil, fmt.Errorf("redis: %w", err)
		}
		closers = append(closers, func() { _ = rs.Close() })
		excl = rs
	} else {
		logg.Warnf("no redis address configured, exclusions are process-local")
		excl = exclusion.NewMemoryStore(time.Duration(cfg.Redis.TTLSeconds)*time.Second, nil)
	}

	var redispatch appointment.Redispatcher = appointment.NopRedispatcher{}
	if cfg.MQTT.Enabled {
		pub, err := mqtt.NewRedispatchPublisher(cfg.MQTT)
		if err != nil {
			return nil, fmt.Errorf("mqtt publisher: %w", err)
		}
		closers = append(closers, pub.Disconnect)
		redispatch = pub
	}

	var sinks []coremetrics.Sink
	if cfg.Metrics.PrometheusEnabled {
		sink, err := metrics.NewPromSink(cfg.Metrics)
		if err != nil {
			return nil, fmt.Errorf("prom sink: %w", err)
		}
		sinks = append(sinks, sink)
	}
	if cfg.Metrics.InfluxEnabled {
		sinks = append(sinks, metrics.NewInfluxSinkWithFallback(cfg.Metrics))
	}
	var sink coremetrics.Sink = coremetrics.NopSink{}
	if len(sinks) == 1 {
		sink = sinks[0]
	} else if len(sinks) > 1 {
		sink = metrics.NewMultiSink(sinks...)
	}

	bus := eventbus.New()
	matcher, err := match.New(store, excl, dir, cfg.Match, bus, logger.New("matcher"), sink)
	if err != nil {
		return nil, fmt.Errorf("matcher: %w", err)
	}
	appts, err := appointment.NewService(store, excl, redispatch, bus, logger.New("appointments"), sink)
	if err != nil {
		return nil, fmt.Errorf("appointment service: %w", err)
	}

	return &Service{
		Matcher:      matcher,
		Appointments: appts,
		handler:      dispatchhttp.New(matcher, appts, logger.New("api")),
		addr:         cfg.HTTP.Addr,
		bus:          bus,
		log:          logg,
		promEnabled:  cfg.Metrics.PrometheusEnabled,
		promPort:     cfg.Metrics.PrometheusPort,
		closers:      closers,
	}, nil
}

// Run serves the API until the context is cancelled.
func (s *Service) Run(ctx context.Context) error {
	if s.promEnabled {
		go func() {
			if err := metrics.StartPromServer(ctx, s.promPort); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}
	srv := &http.Server{Addr: s.addr, Handler: s.handler}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.log.Errorf("api server shutdown: %v", err)
		}
	}()
	s.log.Infof("dispatch API listening on %s", s.addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Close releases resources held by the service.
func (s *Service) Close() error {
	s.bus.Close()
	for _, c := range s.closers {
		c()
	}
	return nil
}

// emptyDirectory serves the in-memory fallback: no caregivers are known, so
// every match resolves to an empty result.
type emptyDirectory struct{}

func (emptyDirectory) FindNear(context.Context, model.GeoPoint, float64) ([]directory.Candidate, error) {
	return nil, nil
}

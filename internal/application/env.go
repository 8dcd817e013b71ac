// Package application wires configuration, fetching and sinks together and
// runs the three pipeline commands: the reference extraction, the public
// contracts normalization and the grants aggregation.
package application

import (
	"context"
	"fmt"

	"github.com/JonMunkholm/opendata/internal/config"
	"github.com/JonMunkholm/opendata/internal/loader"
	"github.com/JonMunkholm/opendata/internal/logging"
	"github.com/JonMunkholm/opendata/internal/objectstore"
	"github.com/JonMunkholm/opendata/internal/sink"
)

// Env holds the shared resources of a run.
type Env struct {
	Source    loader.Source
	Factory   *loader.Factory
	Sink      sink.Sink
	OutputDir string

	closers []func()
}

// NewEnv assembles an environment from already built parts.
func NewEnv(src loader.Source, out sink.Sink, outputDir string) *Env {
	return &Env{
		Source:    src,
		Factory:   loader.NewFactory(src),
		Sink:      out,
		OutputDir: outputDir,
	}
}

// Setup builds the fetcher and every configured sink. The CSV directory sink
// is always present; Postgres, SQLite and the object store are added when
// configured.
func Setup(ctx context.Context, cfg *config.Config) (*Env, error) {
	log := logging.FromContext(ctx)

	var store *objectstore.Store
	var objects loader.ObjectGetter
	if cfg.S3.Enabled() {
		s, err := objectstore.New(objectstore.Config{
			Endpoint:  cfg.S3.Endpoint,
			Region:    cfg.S3.Region,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
			Bucket:    cfg.S3.Bucket,
			UseSSL:    cfg.S3.UseSSL,
		})
		if err != nil {
			return nil, fmt.Errorf("object store: %w", err)
		}
		store, objects = s, s
	}

	fetcher, err := loader.NewFetcher(loader.FetcherConfig{
		Timeout:      cfg.Fetch.Timeout,
		RateLimitRPS: cfg.Fetch.RateLimitRPS,
		CacheSize:    cfg.Fetch.CacheSize,
		MaxBytes:     cfg.Fetch.MaxBytes,
		UserAgent:    cfg.Fetch.UserAgent,
	}, objects)
	if err != nil {
		return nil, err
	}

	dir, err := sink.NewDirSink(cfg.Output.Dir)
	if err != nil {
		return nil, err
	}
	env := NewEnv(fetcher, nil, cfg.Output.Dir)
	env.Factory.MaxBytes = cfg.Fetch.MaxBytes
	sinks := sink.Multi{dir}

	if cfg.Database.URL != "" {
		pg, err := sink.NewPostgres(ctx, sink.PostgresConfig{
			URL:             cfg.Database.URL,
			MaxConns:        cfg.Database.MaxConns,
			MinConns:        cfg.Database.MinConns,
			MaxConnLifetime: cfg.Database.MaxConnLifetime,
			MaxConnIdleTime: cfg.Database.MaxConnIdleTime,
		})
		if err != nil {
			env.Close()
			return nil, err
		}
		env.closers = append(env.closers, pg.Close)
		sinks = append(sinks, pg)
		log.Info("postgres sink enabled")
	}

	if cfg.Database.SQLitePath != "" {
		lite, err := sink.NewSQLite(cfg.Database.SQLitePath)
		if err != nil {
			env.Close()
			return nil, err
		}
		env.closers = append(env.closers, func() { lite.Close() })
		sinks = append(sinks, lite)
		log.Info("sqlite sink enabled", "path", cfg.Database.SQLitePath)
	}

	if store != nil && cfg.S3.Upload {
		sinks = append(sinks, sink.NewObjectSink(store, cfg.S3.Prefix))
		log.Info("object sink enabled", "bucket", store.Bucket(), "prefix", cfg.S3.Prefix)
	}

	env.Sink = sinks
	return env, nil
}

// Close releases database connections.
func (e *Env) Close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		e.closers[i]()
	}
	e.closers = nil
}

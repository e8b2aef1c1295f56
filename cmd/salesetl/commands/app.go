package commands

import (
	"context"
	"time"

	"github.com/wonny/sales-etl/internal/contracts"
	"github.com/wonny/sales-etl/internal/extract"
	"github.com/wonny/sales-etl/internal/load"
	"github.com/wonny/sales-etl/internal/notify"
	"github.com/wonny/sales-etl/internal/pipeline"
	"github.com/wonny/sales-etl/internal/quality"
	"github.com/wonny/sales-etl/internal/transform"
	"github.com/wonny/sales-etl/pkg/config"
	"github.com/wonny/sales-etl/pkg/database"
	"github.com/wonny/sales-etl/pkg/logger"
	"github.com/wonny/sales-etl/pkg/redis"
)

// app holds the wired components shared by every command.
// ⭐ SSOT: 의존성 조립은 여기서만
type app struct {
	cfg *config.Config
	log *logger.Logger

	db         *database.DB
	loader     *load.Loader
	repo       *quality.Repository
	dispatcher *notify.Dispatcher
	evaluator  *quality.Evaluator
	runner     *pipeline.Runner
}

// newApp loads configuration and wires the pipeline. Offline apps skip the
// database and can only preview the transform.
func newApp(offline bool) (*app, error) {
	var (
		cfg *config.Config
		err error
	)
	if offline {
		cfg, err = config.LoadOffline()
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}
	if verbose {
		cfg.LogLevel = "debug"
	}

	log := logger.New(cfg)
	a := &app{cfg: cfg, log: log}

	source := extract.NewExcelSource(cfg.Source, log)
	normalizer := transform.NewNormalizer(log)

	if offline {
		a.runner = pipeline.NewRunner(source, normalizer, nil, nil, log)
		return a, nil
	}

	db, err := database.New(cfg)
	if err != nil {
		return nil, &contracts.PersistenceError{Op: "connect", Err: err}
	}
	a.db = db

	a.loader = load.NewLoader(db.Pool, db.Schema, log)
	a.repo = quality.NewRepository(db.Pool, db.Schema)
	a.dispatcher = notify.NewDispatcher(cfg.Notify, log)
	a.evaluator = quality.NewEvaluator(a.repo, a.dispatcher, cfg.Quality, log)
	a.runner = pipeline.NewRunner(source, normalizer, a.loader, a.evaluator, log).
		WithStageTimeout(cfg.Database.StatementTimeout)

	return a, nil
}

// locker returns a Redis-backed run lock, or nil when Redis is disabled
func (a *app) locker() (*redis.Locker, func(), error) {
	if !a.cfg.Redis.Enabled {
		return nil, func() {}, nil
	}

	client, err := redis.New(a.cfg.Redis)
	if err != nil {
		return nil, nil, err
	}
	a.log.WithField("addr", a.cfg.Redis.Host+":"+a.cfg.Redis.Port).Info("Redis lock enabled")

	return redis.NewLocker(client, "sales-etl"), func() { _ = client.Close() }, nil
}

func (a *app) close() {
	if a.db != nil {
		a.db.Close()
	}
}

// timeout bounds one whole run: the stage timeout once per stage
func (a *app) timeout() time.Duration {
	return time.Duration(len(contracts.AllStages())) * a.cfg.Database.StatementTimeout
}

func (a *app) timeoutContext() (context.Context, context.CancelFunc) {
	if d := a.timeout(); d > 0 {
		return context.WithTimeout(context.Background(), d)
	}
	return context.WithCancel(context.Background())
}

// Package container wires the dependencies shared by the API server and the admin CLI.
package container

import (
	"context"
	"log"
	"os"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/ssriya/grader/core"
	"github.com/ssriya/grader/core/gradebook"
	"github.com/ssriya/grader/core/user"
	logsvc "github.com/ssriya/grader/services/logger"
	"github.com/ssriya/grader/storage/cache"
	rediscache "github.com/ssriya/grader/storage/cache/redis"
	"github.com/ssriya/grader/storage/database"
	inmemdb "github.com/ssriya/grader/storage/database/inmem"
	sqlxrepos "github.com/ssriya/grader/storage/database/sqlx"
)

type Options struct {
	// LogPrefix prefixes the lines of the std logger, e.g. "API : ".
	LogPrefix string
	// Migrate applies pending migrations once the database is open.
	Migrate bool
}

type Container struct {
	Conf         *core.Config
	Logger       core.Logger
	DBLogger     core.Logger
	Validate     *validator.Validate
	Translator   ut.Translator
	UserSvc      *user.Service
	GradebookSvc *gradebook.Service
	// DB is nil for the memory engine.
	DB *sqlx.DB

	closers []func() error
}

func NewLogger(conf *core.Config, prefix string) core.Logger {
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, prefix, log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)
	return logger
}

// New builds every dependency from conf. Close releases them.
func New(ctx context.Context, conf *core.Config, opts Options) (*Container, error) {
	c := &Container{
		Conf:     conf,
		Logger:   NewLogger(conf, opts.LogPrefix),
		DBLogger: NewLogger(conf, "DB : "),
	}

	c.Translator = core.NewTranslator()
	c.Validate = core.NewValidator(c.Translator)
	user.InitValidators(c.Validate, c.Translator)
	gradebook.InitValidators(c.Validate, c.Translator)

	usrRepo, gbRepo, err := c.setUpStorage(opts.Migrate)
	if err != nil {
		_ = c.Close()
		return nil, errors.Wrap(err, "setting up storage")
	}
	reports, err := c.setUpCache(ctx)
	if err != nil {
		_ = c.Close()
		return nil, errors.Wrap(err, "setting up cache")
	}

	c.UserSvc = user.NewService(usrRepo)
	c.GradebookSvc = gradebook.NewService(gbRepo, c.UserSvc, reports, c.Logger)
	return c, nil
}

func (c *Container) setUpStorage(migrate bool) (user.Repository, gradebook.Repository, error) {
	conf := c.Conf
	if conf.Database.Engine == database.EngineMemory {
		mem := inmemdb.Open()
		return inmemdb.NewUserRepository(mem), inmemdb.NewGradebookRepository(mem), nil
	}

	if err := database.CreateIfNotExist(conf); err != nil {
		return nil, nil, err
	}
	db, err := database.Open(conf)
	if err != nil {
		return nil, nil, err
	}
	c.DB = db
	c.closers = append(c.closers, func() error {
		if err := db.Close(); err != nil {
			c.DBLogger.Error("failed to close", err)
			return err
		}
		return nil
	})

	if migrate {
		if err = database.Migrate(db); err != nil {
			return nil, nil, errors.Wrap(err, "migrating database")
		}
	}
	return sqlxrepos.NewUserRepository(db), sqlxrepos.NewGradebookRepository(db), nil
}

// setUpCache connects to redis when the report cache is enabled.
func (c *Container) setUpCache(ctx context.Context) (gradebook.ReportCache, error) {
	conf := c.Conf.Cache
	if !conf.Enabled {
		return cache.NewNop(), nil
	}
	client, err := rediscache.NewClient(ctx, conf)
	if err != nil {
		return nil, err
	}
	c.closers = append(c.closers, client.Close)
	return rediscache.NewReportCache(client, conf.TTL), nil
}

// Close releases the database and cache connections, last opened first.
func (c *Container) Close() error {
	var firstErr error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	c.closers = nil
	return firstErr
}

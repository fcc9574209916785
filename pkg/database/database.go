package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/bookdrop/bookdrop/pkg/config"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

const memoryPath = ":memory:"

// queryLogger logs every query with its duration. Only installed when
// database_debug is set.
type queryLogger struct {
	log logger.Logger
}

func (*queryLogger) BeforeQuery(ctx context.Context, _ *bun.QueryEvent) context.Context {
	return ctx
}

func (ql *queryLogger) AfterQuery(_ context.Context, event *bun.QueryEvent) {
	data := logger.Data{
		"operation":   event.Operation(),
		"duration_ms": time.Since(event.StartTime).Milliseconds(),
	}
	if event.Err != nil && !errors.Is(event.Err, sql.ErrNoRows) {
		ql.log.Err(event.Err).Warn(event.Query, data)
		return
	}
	ql.log.Debug(event.Query, data)
}

// New opens the catalog database, waiting for it to become reachable and
// applying the connection pragmas.
func New(cfg *config.Config) (*bun.DB, error) {
	sqldb, err := sql.Open(sqliteshim.ShimName, cfg.DatabaseFilePath)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if cfg.DatabaseFilePath == memoryPath {
		// Each connection to ":memory:" would see its own empty database.
		sqldb.SetMaxOpenConns(1)
	}

	db := bun.NewDB(sqldb, sqlitedialect.New())
	if cfg.DatabaseDebug {
		db.AddQueryHook(&queryLogger{logger.NewWithLevel("debug")})
	}

	if err := waitForConnection(db, cfg.DatabaseConnectRetryCount, cfg.DatabaseConnectRetryDelay); err != nil {
		_ = db.Close()
		return nil, err
	}

	pragmas := []struct {
		stmt string
		args []interface{}
	}{
		// Readers aren't blocked while an import unit commits.
		{"PRAGMA journal_mode=WAL", nil},
		{"PRAGMA busy_timeout=?", []interface{}{cfg.DatabaseBusyTimeout.Milliseconds()}},
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p.stmt, p.args...); err != nil {
			_ = db.Close()
			return nil, errors.Wrapf(err, "failed to run %q", p.stmt)
		}
	}

	return db, nil
}

func waitForConnection(db *bun.DB, attempts int, delay time.Duration) error {
	if attempts < 1 {
		attempts = 1
	}
	var err error
	for i := 0; i < attempts; i++ {
		if err = db.Ping(); err == nil {
			return nil
		}
		if i < attempts-1 {
			time.Sleep(delay)
		}
	}
	return errors.Wrap(err, "database unreachable")
}

package database

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"log"
	"net/url"
	"path"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/included-edu/included/core"
	appfs "github.com/included-edu/included/fs"
)

const (
	EnginePostgres = "postgres"
	EngineSQLite   = "sqlite"

	migrationsDir = "migrations"
)

func postgresDSN(dbName string, admin bool, conf *core.Config) string {
	user := url.UserPassword(conf.Database.User, conf.Database.Password)
	if admin && conf.Database.AdminUser != "" {
		user = url.UserPassword(conf.Database.AdminUser, conf.Database.AdminPassword)
	}

	sslMode := "require"
	if conf.Database.DisableTLS {
		sslMode = "disable"
	}
	q := make(url.Values)
	q.Set("sslmode", sslMode)
	q.Set("timezone", "utc")

	u := url.URL{
		Scheme:   "postgres",
		User:     user,
		Host:     conf.Database.Address(),
		Path:     dbName,
		RawQuery: q.Encode(),
	}
	return u.String()
}

// SQLiteDSN enables foreign keys and waits on locks instead of failing.
func SQLiteDSN(path string) string {
	return "file:" + path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_time_format=sqlite"
}

// Open opens the app database configured by conf.Database.Engine.
func Open(conf *core.Config) (*sqlx.DB, error) {
	switch conf.Database.Engine {
	case EnginePostgres:
		return sqlx.Open(EnginePostgres, postgresDSN(conf.Database.Name, false, conf))
	case EngineSQLite:
		return OpenSQLite(conf.Database.Path)
	}
	return nil, errors.Errorf("unsupported database engine %q", conf.Database.Engine)
}

// OpenSQLite opens a sqlite database file. sqlite allows one writer: the pool is limited to one connection.
func OpenSQLite(path string) (*sqlx.DB, error) {
	db, err := sqlx.Open(EngineSQLite, SQLiteDSN(path))
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	return db, nil
}

// Ping waits for the database to be ready. Waits 100ms longer between each attempt.
func Ping(ctx context.Context, db core.DB) error {
	var err error
	maxAttempts := 30
	for attempts := 1; attempts <= maxAttempts; attempts++ {
		err = db.PingContext(ctx)
		if err == nil {
			break
		}
		select {
		case <-ctx.Done():
			return errors.Wrap(ctx.Err(), "DB ping")
		case <-time.After(time.Duration(attempts) * 100 * time.Millisecond):
		}
	}

	if err != nil {
		return errors.Wrap(err, "DB ping timeout")
	}
	return nil
}

func createAppUser(db *sqlx.DB, conf *core.Config) error {
	if conf.Database.User == "" {
		return nil
	}

	var exists bool
	if err := db.Get(&exists, "SELECT EXISTS (SELECT 1 FROM pg_roles WHERE rolname = $1)", conf.Database.User); err != nil {
		return errors.Wrap(err, "checking app user")
	}
	if !exists {
		q := fmt.Sprintf("CREATE USER %s CREATEDB ENCRYPTED PASSWORD '%s'", quoteIdent(conf.Database.User), conf.Database.Password)
		if _, err := db.Exec(q); err != nil {
			return errors.Wrap(err, "creating app user")
		}
	}
	return nil
}

func createDB(db *sqlx.DB, conf *core.Config) error {
	var exists bool
	if err := db.Get(&exists, "SELECT EXISTS (SELECT 1 FROM pg_database WHERE datname = $1)", conf.Database.Name); err != nil {
		return errors.Wrap(err, "checking DB")
	}
	if !exists {
		if _, err := db.Exec("CREATE DATABASE " + quoteIdent(conf.Database.Name)); err != nil {
			return errors.Wrap(err, "creating database")
		}
	}
	return nil
}

func quoteIdent(name string) string {
	return `"` + name + `"`
}

// CreateIfNotExist bootstraps the postgres app user and database. sqlite files are created on open.
func CreateIfNotExist(ctx context.Context, conf *core.Config) error {
	if conf.Database.Engine != EnginePostgres {
		return nil
	}

	// connect as admin
	db, err := sqlx.Open(EnginePostgres, postgresDSN("postgres", true, conf))
	if err != nil {
		return errors.Wrap(err, "opening database")
	}
	defer func() { _ = db.Close() }()

	if err = Ping(ctx, db); err != nil {
		return errors.Wrap(err, "pinging database")
	}
	if err = createAppUser(db, conf); err != nil {
		return errors.Wrap(err, "creating app user")
	}

	// create DB as app user
	appDB, err := sqlx.Open(EnginePostgres, postgresDSN("postgres", false, conf))
	if err != nil {
		return errors.Wrap(err, "opening database")
	}
	defer func() { _ = appDB.Close() }()

	if err = createDB(appDB, conf); err != nil {
		return errors.Wrap(err, "creating database")
	}
	return nil
}

// Migrations returns the migration files of an engine.
func Migrations(engine string) (fs.FS, error) {
	return fs.Sub(appfs.FS, path.Join(migrationsDir, engine))
}

func setupGoose(engine string) error {
	migrations, err := Migrations(engine)
	if err != nil {
		return errors.Wrap(err, "loading migrations")
	}
	goose.SetBaseFS(migrations)
	goose.SetLogger(goose.NopLogger())
	dialect := engine
	if engine == EngineSQLite {
		dialect = "sqlite3"
	}
	return errors.Wrap(goose.SetDialect(dialect), "setting goose dialect")
}

// RunMigrations runs a goose command (up, down, status, ...) against db.
func RunMigrations(ctx context.Context, engine, command string, db *sql.DB, args ...string) error {
	if err := setupGoose(engine); err != nil {
		return err
	}
	if command == "status" {
		goose.SetLogger(log.Default())
	}
	return goose.RunContext(ctx, command, db, ".", args...)
}

// Migrate applies all pending migrations.
func Migrate(ctx context.Context, engine string, db *sql.DB) error {
	if err := RunMigrations(ctx, engine, "up", db); err != nil {
		return errors.Wrap(err, "migrating database")
	}
	return nil
}

package database

import (
	"database/sql"
	"fmt"
	"net/url"
	"time"

	_ "github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/pressly/goose/v3"

	"github.com/mtokoni/tathmini/core"
	appfs "github.com/mtokoni/tathmini/fs"
)

const readyTimeout = 30 * time.Second

func connURL(dbName string, admin bool, conf *core.Config) string {
	usr := url.UserPassword(conf.Database.User, conf.Database.Password)
	if admin && conf.Database.AdminUser != "" {
		usr = url.UserPassword(conf.Database.AdminUser, conf.Database.AdminPassword)
	}

	q := make(url.Values)
	q.Set("timezone", "utc")
	if conf.Database.DisableTLS {
		q.Set("sslmode", "disable")
	} else {
		q.Set("sslmode", "require")
	}

	u := url.URL{
		Scheme:   conf.Database.Engine,
		User:     usr,
		Host:     conf.Database.Address(),
		Path:     dbName,
		RawQuery: q.Encode(),
	}
	return u.String()
}

// Open connects to the application database. The connection is lazy; call
// waitReady or Ping before first use.
func Open(conf *core.Config) (*sql.DB, error) {
	return sql.Open(conf.Database.Engine, connURL(conf.Database.Name, false, conf))
}

// waitReady polls until the database accepts connections, backing off 100ms
// more on each attempt.
func waitReady(db *sql.DB) error {
	deadline := time.Now().Add(readyTimeout)
	var err error
	for attempt := 1; time.Now().Before(deadline); attempt++ {
		if err = db.Ping(); err == nil {
			return nil
		}
		time.Sleep(time.Duration(attempt) * 100 * time.Millisecond)
	}
	return errors.Wrap(err, "DB ping timeout")
}

// ensure runs createStmt unless existsQuery matches name. Postgres cannot
// parameterize DDL, so name is interpolated; it only ever comes from config.
func ensure(db *sql.DB, existsQuery, createStmt, name string) error {
	var exists bool
	err := db.QueryRow(existsQuery, name).Scan(&exists)
	switch {
	case err == sql.ErrNoRows:
	case err != nil:
		return err
	case exists:
		return nil
	}
	_, err = db.Exec(fmt.Sprintf(createStmt, name))
	return err
}

// CreateIfNotExist provisions the app role and database, connecting with the
// admin credentials first so a fresh cluster bootstraps itself.
func CreateIfNotExist(conf *core.Config) error {
	admin, err := sql.Open(conf.Database.Engine, connURL("postgres", true, conf))
	if err != nil {
		return errors.Wrap(err, "opening admin connection")
	}
	defer func() { _ = admin.Close() }()

	if err = waitReady(admin); err != nil {
		return errors.Wrap(err, "waiting for database")
	}

	if conf.Database.User != "" {
		err = ensure(admin,
			"SELECT true FROM pg_roles WHERE rolname = $1",
			"CREATE USER %s CREATEDB ENCRYPTED PASSWORD '"+conf.Database.Password+"'",
			conf.Database.User,
		)
		if err != nil {
			return errors.Wrap(err, "creating app user")
		}
	}

	app, err := sql.Open(conf.Database.Engine, connURL("postgres", false, conf))
	if err != nil {
		return errors.Wrap(err, "opening app connection")
	}
	defer func() { _ = app.Close() }()

	err = ensure(app,
		"SELECT true FROM pg_database WHERE datname = $1",
		"CREATE DATABASE %s",
		conf.Database.Name,
	)
	return errors.Wrap(err, "creating database")
}

// Migrate applies all pending embedded migrations.
func Migrate(db *sql.DB) error {
	goose.SetBaseFS(appfs.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		return errors.Wrap(err, "setting goose dialect")
	}
	if err := goose.Up(db, "migrations"); err != nil {
		return errors.Wrap(err, "migrating database")
	}
	return nil
}

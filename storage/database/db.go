package database

import (
	"database/sql"
	"net/url"
	"time"

	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/trezcool/goose"

	"github.com/trezcool/colegio/core"
	appfs "github.com/trezcool/colegio/fs"
)

const (
	// maintenance database every Postgres server has
	maintenanceDB = "postgres"

	roleExistsQuery     = "SELECT true FROM pg_roles WHERE rolname = $1"
	databaseExistsQuery = "SELECT true FROM pg_database WHERE datname = $1"
)

func open(dbName string, admin bool, conf *core.Config) (*sql.DB, error) {
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
		Scheme:   conf.Database.Engine,
		User:     user,
		Host:     conf.Database.Address(),
		Path:     dbName,
		RawQuery: q.Encode(),
	}
	return sql.Open(conf.Database.Engine, u.String())
}

// Open opens the application database as the app user.
func Open(conf *core.Config) (*sql.DB, error) {
	db, err := open(conf.Database.Name, false, conf)
	return db, errors.Wrap(err, "opening database")
}

// ping waits for the database to be ready. Waits 100ms longer between each attempt.
func ping(db *sql.DB) error {
	var err error
	maxAttempts := 30
	for attempts := 1; attempts <= maxAttempts; attempts++ {
		if err = db.Ping(); err == nil {
			return nil
		}
		time.Sleep(time.Duration(attempts) * 100 * time.Millisecond)
	}
	return errors.Wrap(err, "DB ping timeout")
}

// exists runs a `SELECT true ... WHERE x = $1` query.
func exists(db *sql.DB, query, name string) (bool, error) {
	var found bool
	err := db.QueryRow(query, name).Scan(&found)
	if err == sql.ErrNoRows {
		return false, nil
	}
	return found, err
}

func createUserStmt(name, pwd string) string {
	return "CREATE USER " + pq.QuoteIdentifier(name) + " CREATEDB ENCRYPTED PASSWORD " + pq.QuoteLiteral(pwd)
}

func createDatabaseStmt(name string) string {
	return "CREATE DATABASE " + pq.QuoteIdentifier(name)
}

func createAppUser(db *sql.DB, conf *core.Config) error {
	if conf.Database.User == "" {
		return nil
	}
	found, err := exists(db, roleExistsQuery, conf.Database.User)
	if err != nil {
		return errors.Wrap(err, "checking app user")
	}
	if found {
		return nil
	}
	_, err = db.Exec(createUserStmt(conf.Database.User, conf.Database.Password))
	return errors.Wrap(err, "creating app user")
}

func createDB(db *sql.DB, conf *core.Config) error {
	found, err := exists(db, databaseExistsQuery, conf.Database.Name)
	if err != nil {
		return errors.Wrap(err, "checking database")
	}
	if found {
		return nil
	}
	_, err = db.Exec(createDatabaseStmt(conf.Database.Name))
	return errors.Wrap(err, "creating database")
}

// withDB opens the maintenance database, runs fn on it and closes it, whatever fn returns.
func withDB(admin bool, conf *core.Config, fn func(db *sql.DB) error) (err error) {
	db, err := open(maintenanceDB, admin, conf)
	if err != nil {
		return errors.Wrap(err, "opening maintenance database")
	}
	defer func() {
		if cErr := db.Close(); cErr != nil && err == nil {
			err = errors.Wrap(cErr, "closing maintenance database")
		}
	}()

	if err = ping(db); err != nil {
		return err
	}
	return fn(db)
}

// CreateIfNotExist creates the app user (as the admin user) then the app database (as the app user, who owns it)
// when they are missing.
func CreateIfNotExist(conf *core.Config) error {
	if err := withDB(true, conf, func(db *sql.DB) error { return createAppUser(db, conf) }); err != nil {
		return err
	}
	return withDB(false, conf, func(db *sql.DB) error { return createDB(db, conf) })
}

// Migrate applies every pending migration embedded in appfs.
func Migrate(db *sql.DB) error {
	if err := goose.RunFS("up", db, appfs.FS, "migrations"); err != nil {
		return errors.Wrap(err, "migrating database")
	}
	return nil
}

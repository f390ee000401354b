package database

import (
	"database/sql"
	"database/sql/driver"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/colegio/core"
)

// recordingDriver is a database/sql driver answering the existence checks from a fixed set of names.
// It records the statements it runs and the connections left open.
type recordingDriver struct {
	mu       sync.Mutex
	existing map[string]bool
	failExec bool
	openConn int
	execs    []string
	queries  []string
	args     []driver.Value
}

var recorder = new(recordingDriver)

func init() {
	sql.Register("recordingpg", recorder)
}

func (d *recordingDriver) reset(existing ...string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.existing = make(map[string]bool)
	for _, name := range existing {
		d.existing[name] = true
	}
	d.failExec, d.openConn = false, 0
	d.execs, d.queries, d.args = nil, nil, nil
}

func (d *recordingDriver) Open(string) (driver.Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.openConn++
	return &recordingConn{d: d}, nil
}

type recordingConn struct{ d *recordingDriver }

func (c *recordingConn) Prepare(query string) (driver.Stmt, error) {
	return &recordingStmt{d: c.d, query: query}, nil
}

func (c *recordingConn) Close() error {
	c.d.mu.Lock()
	defer c.d.mu.Unlock()
	c.d.openConn--
	return nil
}

func (c *recordingConn) Begin() (driver.Tx, error) {
	return nil, errors.New("transactions are not supported")
}

type recordingStmt struct {
	d     *recordingDriver
	query string
}

func (s *recordingStmt) Close() error  { return nil }
func (s *recordingStmt) NumInput() int { return -1 }

func (s *recordingStmt) Exec([]driver.Value) (driver.Result, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	s.d.execs = append(s.d.execs, s.query)
	if s.d.failExec {
		return nil, errors.New("permission denied")
	}
	return driver.RowsAffected(0), nil
}

func (s *recordingStmt) Query(args []driver.Value) (driver.Rows, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	s.d.queries = append(s.d.queries, s.query)
	s.d.args = append(s.d.args, args...)
	found := len(args) == 1 && s.d.existing[args[0].(string)]
	return &recordingRows{left: found}, nil
}

type recordingRows struct{ left bool }

func (r *recordingRows) Columns() []string { return []string{"bool"} }
func (r *recordingRows) Close() error      { return nil }

func (r *recordingRows) Next(dest []driver.Value) error {
	if !r.left {
		return io.EOF
	}
	r.left = false
	dest[0] = true
	return nil
}

func newConfig() *core.Config {
	return &core.Config{Database: core.DatabaseConfig{
		Engine:        "recordingpg",
		Host:          "localhost",
		Port:          "5432",
		Name:          `colegio"; DROP DATABASE postgres; --`,
		User:          "Colegio App",
		Password:      "it's secret",
		AdminUser:     "postgres",
		AdminPassword: "postgres",
		DisableTLS:    true,
	}}
}

func TestCreateIfNotExist(t *testing.T) {
	t.Run("creates missing user and database", func(t *testing.T) {
		recorder.reset()
		require.NoError(t, CreateIfNotExist(newConfig()))

		assert.Equal(t, []string{roleExistsQuery, databaseExistsQuery}, recorder.queries)
		assert.Equal(t, []driver.Value{"Colegio App", `colegio"; DROP DATABASE postgres; --`}, recorder.args)
		assert.Equal(t, []string{
			`CREATE USER "Colegio App" CREATEDB ENCRYPTED PASSWORD 'it''s secret'`,
			`CREATE DATABASE "colegio""; DROP DATABASE postgres; --"`,
		}, recorder.execs)
		assert.Zero(t, recorder.openConn, "every connection is closed")
	})

	t.Run("nothing to create", func(t *testing.T) {
		conf := newConfig()
		recorder.reset(conf.Database.User, conf.Database.Name)
		require.NoError(t, CreateIfNotExist(conf))

		assert.Len(t, recorder.queries, 2)
		assert.Empty(t, recorder.execs)
		assert.Zero(t, recorder.openConn)
	})

	t.Run("admin connection closed on failure", func(t *testing.T) {
		recorder.reset()
		recorder.failExec = true
		err := CreateIfNotExist(newConfig())
		require.Error(t, err)
		assert.True(t, strings.HasPrefix(err.Error(), "creating app user"), err.Error())

		assert.Len(t, recorder.execs, 1, "the database is not created without its owner")
		assert.Zero(t, recorder.openConn)
	})
}

func TestCreateStmts(t *testing.T) {
	assert.Equal(t, `CREATE USER "colegio" CREATEDB ENCRYPTED PASSWORD 'pwd'`, createUserStmt("colegio", "pwd"))
	assert.Equal(t, `CREATE DATABASE "Colegio"`, createDatabaseStmt("Colegio"))
}

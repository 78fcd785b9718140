package clickhouse

import (
	"context"
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildDSN(t *testing.T) {
	dsn := buildDSN(ClientConfig{
		Host:         "ch",
		Port:         9000,
		Database:     "astro",
		User:         "default",
		Password:     "p@ss",
		DialTimeout:  5 * time.Second,
		ReadTimeout:  30 * time.Second,
		MaxExecTime:  time.Minute,
		AsyncInsert:  true,
		WaitForAsync: true,
	})

	u, err := url.Parse(dsn)
	require.NoError(t, err)
	assert.Equal(t, "clickhouse", u.Scheme)
	assert.Equal(t, "ch:9000", u.Host)
	assert.Equal(t, "/astro", u.Path)
	pw, _ := u.User.Password()
	assert.Equal(t, "p@ss", pw)

	q := u.Query()
	assert.Equal(t, "5s", q.Get("dial_timeout"))
	assert.Equal(t, "30s", q.Get("read_timeout"))
	assert.Equal(t, "60", q.Get("max_execution_time"))
	assert.Equal(t, "1", q.Get("async_insert"))
	assert.Equal(t, "1", q.Get("wait_for_async_insert"))
	assert.Empty(t, q.Get("write_timeout"))
}

func TestBuildDSNHTTP(t *testing.T) {
	dsn := buildDSN(ClientConfig{Host: "ch", Port: 8123, Database: "astro", UseHTTP: true})
	assert.Equal(t, "http://ch:8123/astro", dsn)
}

func TestNewClientRequiresHost(t *testing.T) {
	_, err := NewClient(WithPort(9000))
	require.Error(t, err)
}

func TestInitSchema(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	c := NewClientFromDB(db)

	mock.ExpectExec("CREATE DATABASE IF NOT EXISTS astro").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS astro.ephemeris").WillReturnError(errors.New("syntax"))

	err = c.InitSchema(context.Background(), []string{
		"CREATE DATABASE IF NOT EXISTS astro",
		"CREATE TABLE IF NOT EXISTS astro.ephemeris (x Int8) ENGINE = Memory",
		"never reached",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "init schema")
	require.NoError(t, mock.ExpectationsWereMet())

	mock.ExpectClose()
	require.NoError(t, c.Close())
}

package server

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/medkeeper/internal/logging"
	"github.com/dmitrijs2005/medkeeper/internal/server/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stubOpenDB(t *testing.T, fn func(dsn string) (*sql.DB, error)) {
	t.Helper()
	orig := openDB
	openDB = fn
	t.Cleanup(func() { openDB = orig })
}

func testConfig() *config.Config {
	c := &config.Config{}
	c.LoadDefaults()
	c.EndpointAddrGRPC = "127.0.0.1:0"
	c.EndpointAddrHTTP = "127.0.0.1:0"
	return c
}

func TestNewApp_OpenError(t *testing.T) {
	stubOpenDB(t, func(string) (*sql.DB, error) { return nil, errors.New("bad dsn") })

	_, err := NewApp(context.Background(), testConfig())
	require.ErrorContains(t, err, "db init error: bad dsn")
}

func TestNewApp_PingError(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	mock.ExpectPing().WillReturnError(errors.New("refused"))
	mock.ExpectClose()

	stubOpenDB(t, func(string) (*sql.DB, error) { return db, nil })

	_, err = NewApp(context.Background(), testConfig())
	require.ErrorContains(t, err, "db ping error: refused")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRun_StopsOnCancelAndClosesDB(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	mock.ExpectClose()

	app := &App{config: testConfig(), logger: logging.Nop{}, db: db}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		app.Run(ctx)
		close(done)
	}()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("app did not stop")
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

package mysqlmirror

import (
	"context"
	"database/sql/driver"
	"errors"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meetngreet/interview-backend/internal/domain"
)

func TestNewWithoutDSNIsDisabled(t *testing.T) {
	t.Parallel()
	m, err := New("")
	require.NoError(t, err)
	assert.False(t, m.Enabled())

	// No-ops on a disabled mirror.
	m.SyncSession(context.Background(), domain.SessionSnapshot{Session: domain.Session{ID: "sess-1"}})
	m.DeleteSession(context.Background(), "sess-1")
	require.NoError(t, m.Close())
}

func TestIsConnError(t *testing.T) {
	t.Parallel()
	assert.True(t, isConnError(driver.ErrBadConn))
	assert.True(t, isConnError(context.DeadlineExceeded))
	assert.True(t, isConnError(&net.OpError{Op: "dial", Err: errors.New("connection refused")}))
	assert.False(t, isConnError(errors.New("Duplicate entry 'x' for key 'PRIMARY'")))
	assert.False(t, isConnError(nil))
}

func TestTripDisablesPermanently(t *testing.T) {
	t.Parallel()
	m, err := New("user:pass@tcp(127.0.0.1:1)/reporting")
	require.NoError(t, err)
	assert.True(t, m.Enabled())

	m.trip(driver.ErrBadConn)
	assert.False(t, m.Enabled())
	// Second trip is a no-op.
	m.trip(driver.ErrBadConn)
	assert.False(t, m.Enabled())
	require.NoError(t, m.Close())
}

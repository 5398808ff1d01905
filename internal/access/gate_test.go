package access

import (
	"context"
	"testing"

	"github.com/latchwork/latchd/internal/audit"
	"github.com/latchwork/latchd/internal/models"
	"github.com/stretchr/testify/require"
)

func TestGateResolve_FirstContactRegisters(t *testing.T) {
	conn := newTestDB(t)
	gate := NewGate(conn, audit.NewRecorder(conn))

	device, created, err := gate.Resolve(context.Background(), "chip-001")
	require.NoError(t, err)
	require.True(t, created)
	require.Equal(t, models.DeviceStatusUnknown, device.Status)

	// Registration is on the activity trail as a system event.
	var activity models.ActivityRecord
	require.NoError(t, conn.Where("type = ?", models.ActivityCreate).First(&activity).Error)
	require.Empty(t, activity.Actor)
}

func TestGateResolve_SecondContactReturnsSameRow(t *testing.T) {
	conn := newTestDB(t)
	gate := NewGate(conn, audit.NewRecorder(conn))

	first, _, err := gate.Resolve(context.Background(), "chip-001")
	require.NoError(t, err)
	second, created, err := gate.Resolve(context.Background(), "chip-001")
	require.NoError(t, err)
	require.False(t, created)
	require.Equal(t, first.ID, second.ID)

	var count int64
	require.NoError(t, conn.Model(&models.Device{}).Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestGateResolve_EmptyChipID(t *testing.T) {
	conn := newTestDB(t)
	gate := NewGate(conn, audit.NewRecorder(conn))

	_, _, err := gate.Resolve(context.Background(), "  ")
	require.Error(t, err)
}

func TestGateTrustAndBlock(t *testing.T) {
	conn := newTestDB(t)
	gate := NewGate(conn, audit.NewRecorder(conn))

	_, _, err := gate.Resolve(context.Background(), "chip-001")
	require.NoError(t, err)

	trusted, err := gate.Trust(context.Background(), "chip-001")
	require.NoError(t, err)
	require.Equal(t, models.DeviceStatusTrusted, trusted.Status)

	blocked, err := gate.Block(context.Background(), "chip-001")
	require.NoError(t, err)
	require.Equal(t, models.DeviceStatusBlocked, blocked.Status)

	_, err = gate.Trust(context.Background(), "chip-missing")
	require.Error(t, err)
}

package history

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/itohio/plantguard/pkg/guard"
	"github.com/itohio/plantguard/pkg/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpen_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.RecordSample(telemetry.Classify(time.UnixMilli(1000), 42)))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()

	got, err := s.Recent(10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 42, got[0].Percent)
}

func TestRecent(t *testing.T) {
	s := openStore(t)
	base := time.UnixMilli(1700000000000)

	for i, p := range []int{5, 25, 45, 65, 85} {
		require.NoError(t, s.RecordSample(telemetry.Classify(base.Add(time.Duration(i)*time.Second), p)))
	}

	got, err := s.Recent(3)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []int{45, 65, 85}, []int{got[0].Percent, got[1].Percent, got[2].Percent})
	assert.True(t, got[0].Timestamp.Equal(base.Add(2*time.Second)))
	assert.Equal(t, guard.BandMedium, got[0].Band)
	assert.Equal(t, guard.ColorGreen, got[1].Indicator)

	empty := openStore(t)
	got, err = empty.Recent(3)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestRange(t *testing.T) {
	s := openStore(t)
	base := time.UnixMilli(1700000000000)
	for i := range 10 {
		require.NoError(t, s.RecordSample(telemetry.Classify(base.Add(time.Duration(i)*time.Minute), i*10)))
	}

	got, err := s.Range(base.Add(2*time.Minute), base.Add(4*time.Minute))
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, 20, got[0].Percent)
	assert.Equal(t, 40, got[2].Percent)
}

func TestCommands(t *testing.T) {
	s := openStore(t)
	base := time.UnixMilli(1700000000000)

	require.NoError(t, s.RecordCommand(base, guard.CommandOpen, "gui"))
	require.NoError(t, s.RecordCommand(base.Add(time.Second), guard.CommandClose, "web"))

	got, err := s.Commands(10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, guard.CommandClose, got[0].Command)
	assert.Equal(t, "F", got[0].Action)
	assert.Equal(t, "web", got[0].Source)
	assert.Equal(t, guard.CommandOpen, got[1].Command)
	assert.True(t, got[1].Timestamp.Equal(base))
}

func TestPrune(t *testing.T) {
	s := openStore(t)
	now := time.UnixMilli(1700000000000)

	require.NoError(t, s.RecordSample(telemetry.Classify(now.Add(-48*time.Hour), 10)))
	require.NoError(t, s.RecordSample(telemetry.Classify(now.Add(-time.Hour), 20)))
	require.NoError(t, s.RecordCommand(now.Add(-72*time.Hour), guard.CommandOpen, "gui"))
	require.NoError(t, s.RecordCommand(now, guard.CommandClose, "gui"))

	n, err := s.Prune(24*time.Hour, now)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	readings, err := s.Recent(10)
	require.NoError(t, err)
	require.Len(t, readings, 1)
	assert.Equal(t, 20, readings[0].Percent)

	cmds, err := s.Commands(10)
	require.NoError(t, err)
	require.Len(t, cmds, 1)
	assert.Equal(t, guard.CommandClose, cmds[0].Command)
}

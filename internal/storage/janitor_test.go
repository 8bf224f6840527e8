package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePruner struct {
	cutoff time.Time
	n      int64
}

func (p *fakePruner) DeleteTasksBefore(_ context.Context, cutoff time.Time) (int64, error) {
	p.cutoff = cutoff
	return p.n, nil
}

func TestJanitor_RunOnce(t *testing.T) {
	uploads, err := NewFolder(filepath.Join(t.TempDir(), "uploads"))
	require.NoError(t, err)
	outputs, err := NewFolder(filepath.Join(t.TempDir(), "outputs"))
	require.NoError(t, err)

	old := time.Now().Add(-48 * time.Hour)
	touch(t, uploads, "a.srt", 1, old)
	touch(t, outputs, "a.bilingual.srt", 1, old)
	touch(t, outputs, "b.bilingual.srt", 1, time.Now())

	pruner := &fakePruner{n: 4}
	j := NewJanitor("", 24*time.Hour, uploads, outputs).WithTaskPruner(pruner)
	assert.Nil(t, j.LastReport())

	report, err := j.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, report.RemovedFiles)
	assert.Equal(t, int64(4), report.PrunedTasks)
	assert.WithinDuration(t, time.Now().Add(-24*time.Hour), pruner.cutoff, time.Minute)

	last := j.LastReport()
	require.NotNil(t, last)
	assert.Equal(t, 2, last.RemovedFiles)

	names, err := outputs.Names()
	require.NoError(t, err)
	assert.Equal(t, []string{"b.bilingual.srt"}, names)
}

func TestJanitor_DisabledSchedule(t *testing.T) {
	j := NewJanitor("", time.Hour)
	assert.False(t, j.Enabled())
	require.NoError(t, j.Start(context.Background()))

	info, err := j.TriggerInfo(time.Now())
	require.NoError(t, err)
	assert.Nil(t, info)
	<-j.Stop().Done()
}

func TestJanitor_Schedule(t *testing.T) {
	j := NewJanitor("0 3 * * *", time.Hour)
	require.NoError(t, j.Start(context.Background()))
	defer j.Stop()

	ref := time.Date(2026, 10, 16, 12, 0, 0, 0, time.Local)
	info, err := j.TriggerInfo(ref)
	require.NoError(t, err)
	require.NotNil(t, info)
	assert.Equal(t, time.Date(2026, 10, 17, 3, 0, 0, 0, time.Local), info.Next)
	assert.Equal(t, time.Date(2026, 10, 16, 3, 0, 0, 0, time.Local), info.Last)
}

func TestJanitor_InvalidSchedule(t *testing.T) {
	j := NewJanitor("not a cron", time.Hour)
	require.Error(t, j.Start(context.Background()))
}

package tasks

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryStore struct {
	mu      sync.Mutex
	tasks   map[string]*Record
	upserts []Status
}

func newMemoryStore() *memoryStore {
	return &memoryStore{tasks: make(map[string]*Record)}
}

func (m *memoryStore) LoadTasks(_ context.Context) ([]*Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ret := make([]*Record, 0, len(m.tasks))
	for _, rec := range m.tasks {
		ret = append(ret, rec.Clone())
	}
	return ret, nil
}

func (m *memoryStore) UpsertTask(_ context.Context, rec *Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tasks[rec.ID] = rec.Clone()
	m.upserts = append(m.upserts, rec.Status)
	return nil
}

func (m *memoryStore) get(id string) *Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tasks[id].Clone()
}

func (m *memoryStore) statuses() []Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Status(nil), m.upserts...)
}

func TestRegistry_MarksUnfinishedTasksInterrupted(t *testing.T) {
	store := newMemoryStore()
	now := time.Now()
	store.tasks["t-1"] = &Record{ID: "t-1", Kind: KindTranslate, Status: StatusProcessing, Progress: 40, CreatedAt: now.Add(-2 * time.Minute)}
	store.tasks["t-2"] = &Record{ID: "t-2", Kind: KindTranslate, Status: StatusPending, CreatedAt: now.Add(-time.Minute)}
	store.tasks["t-3"] = &Record{
		ID:        "t-3",
		Kind:      KindTranslate,
		Status:    StatusCompleted,
		Progress:  100,
		Result:    &Result{Filename: "a.bilingual.srt"},
		CreatedAt: now,
	}

	r := NewRegistry(1, store)

	for _, id := range []string{"t-1", "t-2"} {
		rec, ok := r.Get(id)
		require.True(t, ok)
		assert.Equal(t, StatusFailed, rec.Status)
		assert.Equal(t, InterruptedMessage, rec.Error)
		assert.Equal(t, ProgressErrored, rec.Progress)
		assert.Equal(t, StatusFailed, store.get(id).Status)
	}

	done, ok := r.Get("t-3")
	require.True(t, ok)
	assert.Equal(t, StatusCompleted, done.Status)
	require.NotNil(t, done.Result)

	list := r.List()
	require.Len(t, list, 3)
	assert.Equal(t, "t-3", list[0].ID)
	assert.Equal(t, "t-1", list[2].ID)
}

func TestRegistry_PersistsTransitionsOnly(t *testing.T) {
	store := newMemoryStore()
	r := NewRegistry(1, store)
	r.Start()
	defer r.Stop()

	h := r.Submit(KindTranslate, "a.srt", func(_ context.Context, report Reporter) (*Result, error) {
		for p := 10; p <= 90; p += 10 {
			report.Progress(p)
		}
		return &Result{Filename: "a.bilingual.srt"}, nil
	})
	waitStatus(t, r, h.ID, StatusCompleted)

	require.Eventually(t, func() bool {
		return len(store.statuses()) == 3
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, []Status{StatusPending, StatusProcessing, StatusCompleted}, store.statuses())
	assert.Equal(t, 100, store.get(h.ID).Progress)
}

package storage

import (
	"context"
	"sync"
	"time"

	"github.com/MimeLyc/subtitle-studio/pkg/icron"
	"github.com/MimeLyc/subtitle-studio/pkg/log"
	"github.com/robfig/cron/v3"
	"golang.org/x/sync/singleflight"
)

// TaskPruner deletes persisted task history.
type TaskPruner interface {
	DeleteTasksBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// SweepReport summarizes one cleanup run.
type SweepReport struct {
	RemovedFiles int
	PrunedTasks  int64
	FinishedAt   time.Time
}

// Janitor periodically removes stale files from its folders. An empty
// expression disables scheduling; RunOnce still works.
type Janitor struct {
	expr    string
	maxAge  time.Duration
	folders []*Folder
	pruner  TaskPruner

	cron  *cron.Cron
	group singleflight.Group

	mu   sync.Mutex
	last *SweepReport
}

func NewJanitor(expr string, maxAge time.Duration, folders ...*Folder) *Janitor {
	return &Janitor{
		expr:    expr,
		maxAge:  maxAge,
		folders: folders,
		cron:    cron.New(),
	}
}

// WithTaskPruner also prunes task history older than the max age.
func (j *Janitor) WithTaskPruner(p TaskPruner) *Janitor {
	j.pruner = p
	return j
}

func (j *Janitor) Enabled() bool {
	return j.expr != ""
}

// Start schedules the cleanup and starts the cron engine.
func (j *Janitor) Start(ctx context.Context) error {
	if !j.Enabled() {
		log.Info("Scheduled cleanup disabled")
		return nil
	}
	schedule, err := icron.Parse(j.expr)
	if err != nil {
		return err
	}
	j.cron.Schedule(schedule, cron.FuncJob(func() {
		if _, err := j.RunOnce(ctx); err != nil {
			log.Error("Scheduled cleanup failed: %v", err)
		}
	}))
	j.cron.Start()
	log.Info("Scheduled cleanup %q, removing files older than %s", j.expr, j.maxAge)
	return nil
}

// Stop stops the cron engine. The returned context is done once a running
// cleanup has finished.
func (j *Janitor) Stop() context.Context {
	return j.cron.Stop()
}

// RunOnce sweeps every folder now. Overlapping calls share one run.
func (j *Janitor) RunOnce(ctx context.Context) (*SweepReport, error) {
	v, err, _ := j.group.Do("sweep", func() (any, error) {
		report := &SweepReport{}
		for _, folder := range j.folders {
			removed, err := folder.Sweep(j.maxAge)
			report.RemovedFiles += len(removed)
			if err != nil {
				return report, err
			}
			if len(removed) > 0 {
				log.Info("Removed %d stale files from %s", len(removed), folder.Root())
			}
		}
		if j.pruner != nil {
			n, err := j.pruner.DeleteTasksBefore(ctx, time.Now().Add(-j.maxAge))
			if err != nil {
				return report, err
			}
			report.PrunedTasks = n
		}
		report.FinishedAt = time.Now()

		j.mu.Lock()
		j.last = report
		j.mu.Unlock()
		return report, nil
	})
	report, _ := v.(*SweepReport)
	return report, err
}

// LastReport returns the most recent successful run, nil before the first one.
func (j *Janitor) LastReport() *SweepReport {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.last == nil {
		return nil
	}
	tmp := *j.last
	return &tmp
}

// TriggerInfo reports the previous and next scheduled run around now, nil when
// scheduling is disabled.
func (j *Janitor) TriggerInfo(now time.Time) (*icron.TriggerInfo, error) {
	if !j.Enabled() {
		return nil, nil
	}
	return icron.GetTriggerInfo(j.expr, now)
}

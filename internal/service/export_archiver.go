package service

import (
	"context"
	"fmt"
	"path"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/studyrhythm/studyrhythm-api/pkg/jobs"
)

type exportFileStore interface {
	Save(filename string, data []byte) (string, error)
}

// ExportArchiver keeps a disk copy of every rendered progress export. Writes
// go through a background queue so the download response never waits on disk
// IO.
type ExportArchiver struct {
	queue  *jobs.Queue
	store  exportFileStore
	logger *zap.Logger
	now    func() time.Time
}

type archiveTask struct {
	UserID   int64
	Filename string
	Content  []byte
}

// NewExportArchiver builds an archiver backed by the given file store.
func NewExportArchiver(store exportFileStore, logger *zap.Logger) *ExportArchiver {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &ExportArchiver{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
	a.queue = jobs.NewQueue("export-archive", a.handle, jobs.QueueConfig{
		Workers: 1,
		Logger:  logger,
	})
	return a
}

// Start launches the archive workers.
func (a *ExportArchiver) Start(ctx context.Context) {
	if a == nil {
		return
	}
	a.queue.Start(ctx)
}

// Stop drains the archive workers.
func (a *ExportArchiver) Stop() {
	if a == nil {
		return
	}
	a.queue.Stop()
}

// Archive enqueues a disk copy of the export. Failures are logged and never
// surfaced to the caller; the download itself already succeeded.
func (a *ExportArchiver) Archive(userID int64, result *ExportResult) {
	if a == nil || result == nil {
		return
	}
	filename := a.archiveName(userID, result.Filename)
	err := a.queue.Enqueue(jobs.Task{
		ID:      uuid.NewString(),
		Kind:    "progress-export",
		Payload: archiveTask{UserID: userID, Filename: filename, Content: result.Content},
	})
	if err != nil {
		a.logger.Warn("failed to enqueue export archive", zap.Int64("userId", userID), zap.Error(err))
	}
}

func (a *ExportArchiver) handle(_ context.Context, task jobs.Task) error {
	payload, ok := task.Payload.(archiveTask)
	if !ok {
		a.logger.Error("unexpected archive payload", zap.String("task_id", task.ID))
		return nil
	}
	if _, err := a.store.Save(payload.Filename, payload.Content); err != nil {
		return fmt.Errorf("archive export for user %d: %w", payload.UserID, err)
	}
	a.logger.Debug("export archived",
		zap.Int64("userId", payload.UserID),
		zap.String("filename", payload.Filename))
	return nil
}

func (a *ExportArchiver) archiveName(userID int64, original string) string {
	ext := path.Ext(original)
	stamp := a.now().UTC().Format("20060102T150405")
	return fmt.Sprintf("progress_%d_%s%s", userID, stamp, ext)
}

package worker

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"

	"github.com/clauselens/clauselens/internal/application/analysis"
	"github.com/clauselens/clauselens/internal/config"
	"github.com/clauselens/clauselens/internal/infrastructure/monitoring/logging"
	"github.com/clauselens/clauselens/pkg/errors"
)

const (
	processedDir = "processed"
	failedDir    = "failed"
)

// Inbox watches a directory for dropped contract files, uploads each one and
// queues it for analysis.  Handled files move to processed/ or failed/ so a
// restart never re-ingests them.
type Inbox struct {
	dir          string
	pollInterval time.Duration
	service      analysis.Service
	worker       *Worker
	log          logging.Logger
}

// NewInbox builds the inbox watcher for cfg.InboxDir.
func NewInbox(cfg config.WorkerConfig, service analysis.Service, w *Worker, log logging.Logger) (*Inbox, error) {
	if cfg.InboxDir == "" {
		return nil, errors.New(errors.ErrCodeValidation, "worker: inbox_dir is required")
	}
	if log == nil {
		log = logging.NewNopLogger()
	}
	pollInterval := cfg.InboxPollInterval
	if pollInterval <= 0 {
		pollInterval = 30 * time.Second
	}

	for _, sub := range []string{"", processedDir, failedDir} {
		if err := os.MkdirAll(filepath.Join(cfg.InboxDir, sub), 0o755); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeInternal, "worker: create inbox directory")
		}
	}

	return &Inbox{
		dir:          cfg.InboxDir,
		pollInterval: pollInterval,
		service:      service,
		worker:       w,
		log:          log,
	}, nil
}

// Run watches the inbox until ctx is canceled.  fsnotify catches new files as
// they land; the periodic rescan picks up files that predate the watch or
// whose events were dropped.
func (in *Inbox) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "worker: create inbox watcher")
	}
	defer watcher.Close()

	if err := watcher.Add(in.dir); err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "worker: watch inbox directory")
	}
	in.log.Info("inbox watching", logging.String("dir", in.dir))

	// Files already present before the watch started.
	in.scan(ctx)

	ticker := time.NewTicker(in.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			in.scan(ctx)
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op.Has(fsnotify.Create) || event.Op.Has(fsnotify.Rename) {
				in.handleFile(ctx, event.Name)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			in.log.Warn("inbox watcher error", logging.Err(err))
		}
	}
}

// scan ingests every eligible file currently in the inbox.
func (in *Inbox) scan(ctx context.Context) {
	entries, err := os.ReadDir(in.dir)
	if err != nil {
		in.log.Warn("inbox scan failed", logging.Err(err))
		return
	}
	for _, entry := range entries {
		if ctx.Err() != nil {
			return
		}
		if entry.IsDir() {
			continue
		}
		in.handleFile(ctx, filepath.Join(in.dir, entry.Name()))
	}
}

// handleFile uploads one dropped contract and queues its analysis.
func (in *Inbox) handleFile(ctx context.Context, path string) {
	name := filepath.Base(path)
	if !eligible(name) {
		return
	}
	log := in.log.With(logging.String("file", name))

	raw, err := os.ReadFile(path)
	if err != nil {
		// Create events fire before the writer finishes; the rescan will
		// retry the file.
		log.Debug("inbox file not readable yet", logging.Err(err))
		return
	}

	summary, err := in.service.Upload(ctx, &analysis.UploadInput{
		Filename: name,
		Text:     string(raw),
	})
	if err != nil {
		log.Error("inbox upload failed", logging.Err(err))
		in.moveTo(path, failedDir)
		return
	}

	contractID, err := uuid.Parse(summary.ID)
	if err != nil {
		log.Error("inbox upload returned invalid contract id", logging.Err(err))
		in.moveTo(path, failedDir)
		return
	}

	in.moveTo(path, processedDir)
	if !in.worker.Enqueue(contractID) {
		// Uploaded but not queued; the contract stays in "uploaded" state and
		// can be analyzed via the API.
		log.Warn("inbox contract uploaded but queue is full",
			logging.String("contract_id", summary.ID))
		return
	}
	log.Info("inbox contract queued", logging.String("contract_id", summary.ID))
}

func (in *Inbox) moveTo(path, sub string) {
	target := filepath.Join(in.dir, sub, filepath.Base(path))
	if err := os.Rename(path, target); err != nil {
		in.log.Warn("inbox file move failed",
			logging.String("file", path), logging.Err(err))
	}
}

// eligible filters which inbox files are treated as contracts.
func eligible(name string) bool {
	if strings.HasPrefix(name, ".") {
		return false
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".txt", ".text", ".md":
		return true
	}
	return false
}

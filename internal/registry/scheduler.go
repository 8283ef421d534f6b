package registry

import (
	"log/slog"

	"github.com/robfig/cron/v3"
)

// DefaultRescanSchedule is the periodic safety-net rescan interval. The
// fsnotify Watcher is the primary reload trigger; this catches changes
// fsnotify can miss — editors that replace a watched directory inode,
// network filesystems that don't propagate events, bind-mounted plugin
// directories.
const DefaultRescanSchedule = "@every 5m"

// Scheduler runs a periodic Registry.Reload on a cron(v3) schedule,
// generalizing the periodic-rescan role internal/services/scheduler
// plays for ticket auto-close jobs in the teacher codebase.
type Scheduler struct {
	reg    *Registry
	cron   *cron.Cron
	logger *slog.Logger
}

// NewScheduler builds a Scheduler for reg using spec (a cron(v3)
// schedule expression, e.g. DefaultRescanSchedule). logger defaults to
// slog.Default().
func NewScheduler(reg *Registry, spec string, logger *slog.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if spec == "" {
		spec = DefaultRescanSchedule
	}
	c := cron.New()
	s := &Scheduler{reg: reg, cron: c, logger: logger}
	_, err := c.AddFunc(spec, s.rescan)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Scheduler) rescan() {
	if err := s.reg.Reload(); err != nil {
		s.logger.Warn("periodic registry rescan failed", "error", err)
	}
}

// Start begins running the scheduled rescan in the background.
func (s *Scheduler) Start() { s.cron.Start() }

// Stop halts the scheduler, waiting for any in-progress rescan to finish.
func (s *Scheduler) Stop() { <-s.cron.Stop().Done() }

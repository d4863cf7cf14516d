package worker

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"bilancio/internal/core"
	"bilancio/internal/ledger"
	applog "bilancio/internal/log"
	"bilancio/internal/services"

	"github.com/robfig/cron/v3"
)

// DefaultArchiveSchedule runs at 03:00 on the first day of every month.
const DefaultArchiveSchedule = "0 3 1 * *"

// Exporter renders a user's monthly report. *services.ReportService satisfies it.
type Exporter interface {
	MonthlyPDF(ctx context.Context, userID string, p core.Period) (services.Export, error)
	Today() core.Date
}

type ArchiveResult struct {
	Period   core.Period
	Written  []string
	Failures int
}

// ReportArchiver writes the previous month's PDF report of every active
// user under dir/<user id>/.
type ReportArchiver struct {
	users   ledger.UserStore
	reports Exporter
	dir     string
	logger  *applog.Logger

	mu   sync.Mutex
	cron *cron.Cron
}

func NewReportArchiver(users ledger.UserStore, reports Exporter, dir string, logger *applog.Logger) *ReportArchiver {
	if logger == nil {
		logger = applog.Nop()
	}
	return &ReportArchiver{
		users:   users,
		reports: reports,
		dir:     dir,
		logger:  logger.WithComponent(applog.ComponentScheduler),
	}
}

// Start schedules Run with a five-field cron spec. The jobs run until Stop.
func (a *ReportArchiver) Start(ctx context.Context, spec string) error {
	if spec == "" {
		spec = DefaultArchiveSchedule
	}
	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		res, err := a.Run(ctx)
		if err != nil {
			a.logger.ErrorContext(ctx, "Report archive run failed", applog.FieldError, err)
			return
		}
		a.logger.InfoContext(ctx, "Report archive run completed",
			applog.FieldPeriod, res.Period.String(), "written", len(res.Written), "failures", res.Failures)
	})
	if err != nil {
		return fmt.Errorf("schedule report archive %q: %w", spec, err)
	}

	a.mu.Lock()
	a.cron = c
	a.mu.Unlock()
	c.Start()
	a.logger.Info("Report archiver scheduled", "schedule", spec, "dir", a.dir)
	return nil
}

// Stop halts the schedule and waits for a running job to finish.
func (a *ReportArchiver) Stop() {
	a.mu.Lock()
	c := a.cron
	a.cron = nil
	a.mu.Unlock()
	if c != nil {
		<-c.Stop().Done()
	}
}

// Run archives the month before the current one. One user's failure does
// not stop the others.
func (a *ReportArchiver) Run(ctx context.Context) (ArchiveResult, error) {
	p := a.reports.Today().Period().Prev()
	active := true
	users, err := a.users.ListUsers(ctx, ledger.UserFilter{Role: core.RoleUser, Active: &active})
	if err != nil {
		return ArchiveResult{Period: p}, fmt.Errorf("list users: %w", err)
	}

	res := ArchiveResult{Period: p, Written: []string{}}
	for _, u := range users {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		path, err := a.ArchiveUser(ctx, u.ID, p)
		if err != nil {
			res.Failures++
			a.logger.ErrorContext(ctx, "Failed to archive report",
				applog.FieldError, err, applog.FieldUserID, u.ID, applog.FieldPeriod, p.String())
			continue
		}
		res.Written = append(res.Written, path)
	}
	return res, nil
}

// ArchiveUser renders one monthly report and writes it to disk, replacing any earlier copy.
func (a *ReportArchiver) ArchiveUser(ctx context.Context, userID string, p core.Period) (string, error) {
	export, err := a.reports.MonthlyPDF(ctx, userID, p)
	if err != nil {
		return "", fmt.Errorf("render report: %w", err)
	}
	dir := filepath.Join(a.dir, userID)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("create archive dir: %w", err)
	}
	path := filepath.Join(dir, export.Filename)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, export.Body, 0o640); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("move report into place: %w", err)
	}
	a.logger.InfoContext(ctx, "Archived monthly report",
		applog.FieldOperation, applog.OpArchive, applog.FieldUserID, userID, applog.FieldPeriod, p.String(), applog.FieldReport, path)
	return path, nil
}

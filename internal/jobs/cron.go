package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"crm-system/pkg/config"
)

// Job is one scheduled unit of work. Run reports how many items it handled.
type Job interface {
	Name() string
	Run(ctx context.Context) (int, error)
}

type CronManager struct {
	cron    *cron.Cron
	timeout time.Duration
	logger  *zap.Logger
}

func NewCronManager(logger *zap.Logger) *CronManager {
	cronLogger := cron.PrintfLogger(zap.NewStdLog(logger.Named("cron")))
	return &CronManager{
		cron:    cron.New(cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger))),
		timeout: 5 * time.Minute,
		logger:  logger,
	}
}

// SetupJobs registers the reminder notifier and the orphan sweeper on their schedules.
func (cm *CronManager) SetupJobs(cfg config.JobsConfig, notifier, sweeper Job) error {
	if err := cm.Schedule(cfg.ReminderSpec, notifier); err != nil {
		return err
	}
	if err := cm.Schedule(cfg.SweeperSpec, sweeper); err != nil {
		return err
	}
	cm.logger.Info("cron jobs configured",
		zap.String("reminders", cfg.ReminderSpec), zap.String("orphan_sweep", cfg.SweeperSpec))
	return nil
}

func (cm *CronManager) Schedule(spec string, job Job) error {
	_, err := cm.cron.AddFunc(spec, func() { cm.runOnce(job) })
	if err != nil {
		return fmt.Errorf("schedule %s (%q): %w", job.Name(), spec, err)
	}
	return nil
}

func (cm *CronManager) runOnce(job Job) {
	ctx, cancel := context.WithTimeout(context.Background(), cm.timeout)
	defer cancel()

	started := time.Now()
	n, err := job.Run(ctx)
	if err != nil {
		cm.logger.Error("job failed", zap.String("job", job.Name()), zap.Int("handled", n), zap.Error(err))
		return
	}
	if n > 0 {
		cm.logger.Info("job finished",
			zap.String("job", job.Name()), zap.Int("handled", n), zap.Duration("took", time.Since(started)))
	}
}

func (cm *CronManager) Start() {
	cm.logger.Info("starting cron scheduler")
	cm.cron.Start()
}

// Stop waits for running jobs until ctx expires.
func (cm *CronManager) Stop(ctx context.Context) {
	cm.logger.Info("stopping cron scheduler")
	select {
	case <-cm.cron.Stop().Done():
	case <-ctx.Done():
		cm.logger.Warn("cron jobs still running at shutdown")
	}
}

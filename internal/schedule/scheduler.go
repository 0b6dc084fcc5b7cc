package schedule

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

type Job interface {
	Name() string
	Run(ctx context.Context) error
}

type entry struct {
	job     Job
	spec    string
	running atomic.Bool
}

// CronScheduler runs jobs on five-field cron specs. A job never overlaps
// with itself; a tick that arrives while it is still running is dropped.
type CronScheduler struct {
	cron    *cron.Cron
	entries map[string]*entry
	ctx     context.Context
}

func NewCronScheduler() *CronScheduler {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	return &CronScheduler{
		cron:    cron.New(cron.WithParser(parser)),
		entries: make(map[string]*entry),
		ctx:     context.Background(),
	}
}

func (c *CronScheduler) AddJob(job Job, spec string) error {
	name := job.Name()
	if _, ok := c.entries[name]; ok {
		return fmt.Errorf("job %s already scheduled", name)
	}
	e := &entry{job: job, spec: spec}
	if _, err := c.cron.AddFunc(spec, func() { _, _ = c.run(e) }); err != nil {
		return fmt.Errorf("schedule job %s: %w", name, err)
	}
	c.entries[name] = e
	logutil.GetLogger(context.Background()).Info("job scheduled", zap.String("job", name), zap.String("spec", spec))
	return nil
}

// RunNow runs a scheduled job in the calling goroutine. ran is false when
// the job was already running.
func (c *CronScheduler) RunNow(name string) (ran bool, err error) {
	e, ok := c.entries[name]
	if !ok {
		return false, fmt.Errorf("job %s not scheduled", name)
	}
	return c.run(e)
}

func (c *CronScheduler) Start(ctx context.Context) {
	if ctx != nil {
		c.ctx = ctx
	}
	c.cron.Start()
}

// Stop waits for running jobs to return.
func (c *CronScheduler) Stop() {
	<-c.cron.Stop().Done()
}

func (c *CronScheduler) run(e *entry) (bool, error) {
	logger := logutil.GetLogger(c.ctx).With(zap.String("job", e.job.Name()), zap.String("spec", e.spec))
	if !e.running.CompareAndSwap(false, true) {
		logger.Info("job skipped: still running")
		return false, nil
	}
	defer e.running.Store(false)

	start := time.Now()
	err := e.job.Run(c.ctx)
	if err != nil {
		logger.Error("job finished", zap.Error(err), zap.Duration("duration", time.Since(start)))
		return true, err
	}
	logger.Debug("job finished", zap.Duration("duration", time.Since(start)))
	return true, nil
}

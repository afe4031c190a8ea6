package worker

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/fox-one/pkg/logger"
	"github.com/robfig/cron/v3"
)

// Worker background worker
type Worker interface {
	Run(ctx context.Context) error
}

// OnWork one round of work
type OnWork func(ctx context.Context) error

// CronJob run OnWork on a cron schedule, a tick is skipped while the previous round is running
type CronJob struct {
	Name     string
	Spec     string
	Location *time.Location
	OnWork   OnWork

	running int32
}

// Run schedule the job and block until ctx is done
func (job *CronJob) Run(ctx context.Context) error {
	log := logger.FromContext(ctx).WithField("worker", job.Name)

	loc := job.Location
	if loc == nil {
		loc = time.Local
	}

	c := cron.New(cron.WithLocation(loc))
	if _, err := c.AddFunc(job.Spec, func() { job.tick(ctx) }); err != nil {
		log.WithError(err).Errorln("add cron func")
		return err
	}

	log.Infof("scheduled at %q", job.Spec)
	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	return nil
}

func (job *CronJob) tick(ctx context.Context) {
	if !atomic.CompareAndSwapInt32(&job.running, 0, 1) {
		return
	}
	defer atomic.StoreInt32(&job.running, 0)

	if err := job.OnWork(ctx); err != nil {
		logger.FromContext(ctx).WithField("worker", job.Name).WithError(err).Errorln("on work")
	}
}

package worker

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCronJobSkipsOverlappingTicks(t *testing.T) {
	ctx := context.Background()

	var (
		calls   int
		release = make(chan struct{})
		started = make(chan struct{})
	)

	job := &CronJob{
		Name: "test",
		Spec: "@every 1s",
		OnWork: func(ctx context.Context) error {
			calls++
			close(started)
			<-release
			return nil
		},
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		job.tick(ctx)
	}()

	<-started
	job.tick(ctx)
	close(release)
	wg.Wait()

	assert.Equal(t, 1, calls)
}

func TestCronJobInvalidSpec(t *testing.T) {
	job := &CronJob{
		Name:   "test",
		Spec:   "not a spec",
		OnWork: func(ctx context.Context) error { return nil },
	}

	assert.Error(t, job.Run(context.Background()))
}

package jobs

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/go-co-op/gocron"
)

// Job ids.
const (
	CodecWarmupJob = "codec-warmup"
	CodecRetryJob  = "codec-retry"
)

// ProgressUpdate is broadcast over the websocket hub while a job runs.
type ProgressUpdate struct {
	JobID    string  `json:"job_id"`
	Message  string  `json:"message"`
	Progress float64 `json:"progress"`
	Done     bool    `json:"done"`
}

func broadcast(app JobContext, update ProgressUpdate) {
	if app == nil {
		return
	}
	if hub := app.WsHub(); hub != nil {
		hub.BroadcastJSON(update)
	}
}

// RegisterAll registers every background job with the manager.
func RegisterAll(jm *JobManager) {
	jm.Register(CodecWarmupJob, "Initialize Codecs", RunCodecWarmup)
	jm.Register(CodecRetryJob, "Retry Failed Codecs", RunCodecRetry)
}

// RunCodecWarmup loads every codec concurrently with the configured timeout.
// It fails only when no codec at all could be loaded.
func RunCodecWarmup(ctx context.Context, app JobContext, report Reporter) error {
	report("Loading codecs...", 0)
	results := app.Codecs().InitializeAll(ctx, app.Config().LoadTimeout())

	loaded := 0
	for _, ok := range results {
		if ok {
			loaded++
		}
	}
	if len(results) > 0 && loaded == 0 {
		return errors.New("no codec could be loaded")
	}
	report(fmt.Sprintf("%d of %d codecs available.", loaded, len(results)), 100)
	return ctx.Err()
}

// RunCodecRetry reloads every codec that is currently failed.
func RunCodecRetry(ctx context.Context, app JobContext, report Reporter) error {
	report("Retrying failed codecs...", 0)
	recovered := app.Codecs().RetryFailed(ctx)
	report(fmt.Sprintf("Recovered %d codecs.", recovered), 100)
	return ctx.Err()
}

// StartJobs starts the background job scheduler.
func StartJobs(app JobContext) *gocron.Scheduler {
	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()

	startCodecRetryJob(s, app)

	log.Println("Starting background job scheduler...")
	s.StartAsync()
	return s
}

func startCodecRetryJob(s *gocron.Scheduler, app JobContext) {
	interval := app.Config().Codecs.RetryInterval
	if interval == 0 {
		log.Println("Codec retry interval is 0, scheduled retry is disabled.")
		return
	}

	log.Printf("Scheduling job: '%s' to run every %d minutes.", CodecRetryJob, interval)

	_, err := s.Every(interval).Minutes().WaitForSchedule().Do(func() {
		log.Println("Scheduler is triggering job:", CodecRetryJob)
		// Submit the job to the manager instead of running it directly.
		// This prevents conflicts with manually triggered jobs.
		err := app.JobManager().RunJob(CodecRetryJob, app)
		if errors.Is(err, ErrJobRunning) {
			log.Printf("Skipping scheduled '%s', another job is running.", CodecRetryJob)
		} else if err != nil {
			log.Printf("Scheduled job '%s' could not start: %v", CodecRetryJob, err)
		}
	})
	if err != nil {
		log.Printf("Error scheduling '%s' job: %v", CodecRetryJob, err)
	}
}

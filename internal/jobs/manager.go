package jobs

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/vrsandeep/squish-go/internal/codec"
	"github.com/vrsandeep/squish-go/internal/config"
	"github.com/vrsandeep/squish-go/internal/websocket"
)

var (
	ErrJobRunning  = errors.New("a job is already running")
	ErrJobNotFound = errors.New("job not found")
)

// Job states reported in JobStatus.Status.
const (
	StateIdle     = "idle"
	StateRunning  = "running"
	StateSuccess  = "success"
	StateFailed   = "failed"
	StateCanceled = "canceled"
)

// JobContext is an interface that provides the necessary dependencies for a job to run.
// The core.App struct will implement this interface.
type JobContext interface {
	Config() *config.Config
	Codecs() *codec.Registry
	WsHub() *websocket.Hub
	JobManager() *JobManager
}

// Reporter records the progress of the running job, from 0 to 100.
type Reporter func(message string, progress float64)

// Task is the body of a job. A returned error marks the run as failed.
type Task func(ctx context.Context, app JobContext, report Reporter) error

type JobStatus struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Status    string    `json:"status"`
	Message   string    `json:"message"`
	Progress  float64   `json:"progress"`
	StartTime time.Time `json:"start_time,omitempty"`
	EndTime   time.Time `json:"end_time,omitempty"`
}

// JobManager runs registered jobs one at a time and keeps the last status of each.
type JobManager struct {
	mu      sync.Mutex
	jobs    map[string]Task
	status  map[string]*JobStatus
	current string
	cancel  context.CancelFunc
	done    chan struct{}
	appCtx  JobContext
}

func NewManager(appCtx JobContext) *JobManager {
	return &JobManager{
		jobs:   make(map[string]Task),
		status: make(map[string]*JobStatus),
		appCtx: appCtx,
	}
}

func (jm *JobManager) Register(id, name string, task Task) {
	jm.mu.Lock()
	defer jm.mu.Unlock()
	jm.jobs[id] = task
	jm.status[id] = &JobStatus{ID: id, Name: name, Status: StateIdle}
}

// RunJob starts a registered job in the background. Only one job runs at a time;
// a second call returns ErrJobRunning until the first finishes.
func (jm *JobManager) RunJob(id string, app JobContext) error {
	jm.mu.Lock()
	if jm.current != "" {
		running := jm.current
		jm.mu.Unlock()
		return fmt.Errorf("%w: '%s'", ErrJobRunning, running)
	}
	task, ok := jm.jobs[id]
	if !ok {
		jm.mu.Unlock()
		return fmt.Errorf("%w: '%s'", ErrJobNotFound, id)
	}
	if app == nil {
		app = jm.appCtx
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	jm.current = id
	jm.cancel = cancel
	jm.done = done

	status := jm.status[id]
	status.Status = StateRunning
	status.StartTime = time.Now()
	status.EndTime = time.Time{}
	status.Message = "Job started..."
	status.Progress = 0
	jm.mu.Unlock()

	log.Printf("Starting job: %s", id)
	go func() {
		var err error
		defer func() {
			if r := recover(); r != nil {
				log.Printf("Job '%s' panicked: %v", id, r)
				err = fmt.Errorf("job panicked: %v", r)
			}
			jm.finish(ctx, app, id, err)
			cancel()
			close(done)
		}()

		err = task(ctx, app, func(message string, progress float64) {
			jm.report(app, id, message, progress)
		})
	}()
	return nil
}

func (jm *JobManager) report(app JobContext, id, message string, progress float64) {
	jm.mu.Lock()
	if s, ok := jm.status[id]; ok {
		s.Message = message
		s.Progress = progress
	}
	jm.mu.Unlock()
	broadcast(app, ProgressUpdate{JobID: id, Message: message, Progress: progress})
}

func (jm *JobManager) finish(ctx context.Context, app JobContext, id string, err error) {
	jm.mu.Lock()
	status := jm.status[id]
	status.EndTime = time.Now()
	switch {
	case err != nil && ctx.Err() != nil:
		status.Status = StateCanceled
		status.Message = "Job canceled."
	case err != nil:
		status.Status = StateFailed
		status.Message = err.Error()
	default:
		status.Status = StateSuccess
		status.Progress = 100
		if status.Message == "" || status.Message == "Job started..." {
			status.Message = "Job completed successfully."
		}
	}
	final := ProgressUpdate{JobID: id, Message: status.Message, Progress: status.Progress, Done: true}
	jm.current = ""
	jm.cancel = nil
	jm.done = nil
	jm.mu.Unlock()

	if err != nil {
		log.Printf("Job '%s' finished with error: %v", id, err)
	} else {
		log.Printf("Finished job: %s", id)
	}
	broadcast(app, final)
}

// Running returns the id of the job in flight.
func (jm *JobManager) Running() (string, bool) {
	jm.mu.Lock()
	defer jm.mu.Unlock()
	return jm.current, jm.current != ""
}

// Stop cancels the running job, if any, and waits for it to return.
func (jm *JobManager) Stop() {
	jm.mu.Lock()
	cancel, done := jm.cancel, jm.done
	jm.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// GetStatus returns a copy of every job status ordered by id.
func (jm *JobManager) GetStatus() []JobStatus {
	jm.mu.Lock()
	defer jm.mu.Unlock()

	statuses := make([]JobStatus, 0, len(jm.status))
	for _, s := range jm.status {
		statuses = append(statuses, *s)
	}
	sort.Slice(statuses, func(i, j int) bool { return statuses[i].ID < statuses[j].ID })
	return statuses
}

// Package queue provides the rebuild job queue and job records.
package queue

// Action selects what a job does with its image.
type Action int

const (
	// ActionBuild builds the image from its context directory.
	ActionBuild Action = iota

	// ActionPull pulls the image from its registry.
	ActionPull
)

func (a Action) String() string {
	switch a {
	case ActionPull:
		return "pull"
	default:
		return "build"
	}
}

// Spec describes one queued unit of work. DedupKey is the normalized
// image reference; two specs with the same key are the same work.
type Spec struct {
	Image      string
	DedupKey   string
	Container  string
	ContextDir string
	EntryPath  string
	Dockerfile string
	BuildArgs  []string
	NoCache    bool
	Action     Action
}

// Status represents the current state of a job.
type Status int

const (
	// StatusPending indicates the job is waiting in the queue.
	StatusPending Status = iota

	// StatusRunning indicates a worker is executing the job.
	StatusRunning

	// StatusSucceeded indicates the job finished successfully.
	StatusSucceeded

	// StatusFailed indicates the job's process failed.
	StatusFailed

	// StatusCancelled indicates the job was interrupted before finishing.
	StatusCancelled
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusRunning:
		return "running"
	case StatusSucceeded:
		return "succeeded"
	case StatusFailed:
		return "failed"
	case StatusCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// IsTerminal returns true if the status is a final state.
func (s Status) IsTerminal() bool {
	return s == StatusSucceeded || s == StatusFailed || s == StatusCancelled
}

// Job is one started unit of work, identified by a stable integer id so
// late messages can be matched (or discarded) safely.
type Job struct {
	ID     int
	Spec   Spec
	Status Status

	// FailReason holds the error text when Status is StatusFailed.
	FailReason string

	output []string
	limit  int
}

// NewJob creates a running job record with a bounded output log.
func NewJob(id int, spec Spec, outputLimit int) *Job {
	if outputLimit < 1 {
		outputLimit = 1
	}
	return &Job{
		ID:     id,
		Spec:   spec,
		Status: StatusRunning,
		limit:  outputLimit,
	}
}

// AppendOutput records one output line, dropping the oldest lines beyond
// the configured limit.
func (j *Job) AppendOutput(line string) {
	j.output = append(j.output, line)
	if overflow := len(j.output) - j.limit; overflow > 0 {
		j.output = j.output[overflow:]
	}
}

// Output returns the retained output lines in emission order.
func (j *Job) Output() []string {
	return j.output
}

// MarkSucceeded transitions the job to succeeded.
func (j *Job) MarkSucceeded() {
	j.Status = StatusSucceeded
}

// MarkFailed transitions the job to failed with a reason.
func (j *Job) MarkFailed(reason string) {
	j.Status = StatusFailed
	j.FailReason = reason
}

// MarkCancelled transitions the job to cancelled.
func (j *Job) MarkCancelled() {
	j.Status = StatusCancelled
}

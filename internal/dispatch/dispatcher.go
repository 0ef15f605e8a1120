// Package dispatch binds the broker to the grader.
//
// One Dispatcher serves one worker process: it decodes job deliveries,
// gates them through a bounded in-flight semaphore, runs the grader,
// publishes the verdict and settles the delivery. A message is acked
// only after its verdict has been published; everything transient is
// nacked back to the queue for redelivery.
package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"judgeworker/internal/broker"
	"judgeworker/internal/model"
	"judgeworker/internal/status"
	appErr "judgeworker/pkg/errors"
	"judgeworker/pkg/utils/logger"
)

// Grader produces one verdict per job.
type Grader interface {
	Grade(ctx context.Context, job model.Job) (model.Verdict, error)
}

// Publisher sends results to the broker.
type Publisher interface {
	Publish(ctx context.Context, queue string, body []byte) error
	PublishReply(ctx context.Context, queue, correlationID string, body []byte) error
}

// Config holds dispatcher dependencies.
type Config struct {
	Grader      Grader
	Publisher   Publisher
	Status      status.Repository // optional; Noop when nil
	ResultQueue string
	MaxInflight int // default 1
}

// Dispatcher handles job deliveries. HandleDelivery is safe for
// concurrent use; in-flight jobs are bounded by MaxInflight.
type Dispatcher struct {
	grader      Grader
	pub         Publisher
	status      status.Repository
	resultQueue string
	sem         chan struct{}

	wg         sync.WaitGroup
	jobs       context.Context
	cancelJobs context.CancelFunc
}

// New validates the configuration and builds a Dispatcher.
func New(cfg Config) (*Dispatcher, error) {
	if cfg.Grader == nil {
		return nil, fmt.Errorf("grader is required")
	}
	if cfg.Publisher == nil {
		return nil, fmt.Errorf("publisher is required")
	}
	if cfg.ResultQueue == "" {
		return nil, fmt.Errorf("result queue is required")
	}
	if cfg.Status == nil {
		cfg.Status = status.Noop{}
	}
	if cfg.MaxInflight < 1 {
		cfg.MaxInflight = 1
	}

	// jobs are scoped to the dispatcher, not the consume loop, so a
	// shutdown can stop deliveries while in-flight jobs drain
	jobs, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		grader:      cfg.Grader,
		pub:         cfg.Publisher,
		status:      cfg.Status,
		resultQueue: cfg.ResultQueue,
		sem:         make(chan struct{}, cfg.MaxInflight),
		jobs:        jobs,
		cancelJobs:  cancel,
	}, nil
}

// HandleDelivery processes one delivery end to end. It satisfies
// broker.Handler.
func (d *Dispatcher) HandleDelivery(ctx context.Context, msg broker.Delivery) {
	d.wg.Add(1)
	defer d.wg.Done()

	job, err := decodeJob(msg.Body)
	if err != nil {
		// not retriable: ack it away and log
		logger.Warn(ctx, "dropping malformed job message", zap.Error(err))
		if err := msg.Acker.Ack(); err != nil {
			logger.Error(ctx, "ack malformed message failed", zap.Error(err))
		}
		return
	}

	jobCtx := logger.ContextWithSubmissionID(d.jobs, job.SubmissionID)
	logger.Info(jobCtx, "job received",
		zap.Int64("problem_id", job.ProblemID),
		zap.String("language", job.Language),
		zap.Bool("redelivered", msg.Redelivered))

	receivedAt := time.Now().Unix()
	d.saveStatus(jobCtx, status.Status{
		SubmissionID: job.SubmissionID,
		State:        status.StateReceived,
		ReceivedAt:   receivedAt,
	})

	d.sem <- struct{}{}
	defer func() { <-d.sem }()

	d.saveStatus(jobCtx, status.Status{
		SubmissionID: job.SubmissionID,
		State:        status.StateJudging,
		ReceivedAt:   receivedAt,
	})

	verdict, err := d.grader.Grade(jobCtx, job)
	if err != nil {
		logger.Warn(jobCtx, "grading failed, requeueing",
			zap.Int("code", int(appErr.GetCode(err))), zap.Error(err))
		d.nack(jobCtx, msg)
		return
	}

	if err := d.publishResult(jobCtx, msg, job.SubmissionID, verdict); err != nil {
		logger.Error(jobCtx, "publish verdict failed, requeueing", zap.Error(err))
		d.nack(jobCtx, msg)
		return
	}

	d.saveStatus(jobCtx, status.Status{
		SubmissionID: job.SubmissionID,
		State:        status.StateFinished,
		Verdict:      &verdict,
		ReceivedAt:   receivedAt,
		FinishedAt:   time.Now().Unix(),
	})

	if err := msg.Acker.Ack(); err != nil {
		logger.Error(jobCtx, "ack failed", zap.Error(err))
		return
	}
	logger.Info(jobCtx, "job finished", zap.String("status", verdict.Status))
}

// publishResult sends the result to the output queue and, when the job
// was an RPC request, a correlated copy to its reply queue.
func (d *Dispatcher) publishResult(ctx context.Context, msg broker.Delivery, submissionID string, verdict model.Verdict) error {
	body, err := json.Marshal(model.Result{SubmissionID: submissionID, Result: verdict})
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	if err := d.pub.Publish(ctx, d.resultQueue, body); err != nil {
		return err
	}
	if msg.ReplyTo != "" && msg.CorrelationID != "" {
		// best effort: the durable result queue already has the verdict
		if err := d.pub.PublishReply(ctx, msg.ReplyTo, msg.CorrelationID, body); err != nil {
			logger.Warn(ctx, "publish rpc reply failed", zap.Error(err))
		}
	}
	return nil
}

func (d *Dispatcher) nack(ctx context.Context, msg broker.Delivery) {
	if err := msg.Acker.Nack(true); err != nil {
		logger.Error(ctx, "nack failed", zap.Error(err))
	}
}

func (d *Dispatcher) saveStatus(ctx context.Context, st status.Status) {
	if err := d.status.Save(ctx, st); err != nil {
		logger.Warn(ctx, "save status failed",
			zap.String("state", string(st.State)), zap.Error(err))
	}
}

// Shutdown gives in-flight jobs a drain window, then cancels them,
// which kills their sandbox subprocesses and removes their workspaces.
// It reports whether everything drained within the window.
func (d *Dispatcher) Shutdown(timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.cancelJobs()
		return true
	case <-time.After(timeout):
		d.cancelJobs()
		<-done
		return false
	}
}

// decodeJob parses and validates a job payload.
func decodeJob(body []byte) (model.Job, error) {
	var job model.Job
	if err := json.Unmarshal(body, &job); err != nil {
		return model.Job{}, appErr.Wrapf(err, appErr.MalformedMessage, "decode job")
	}
	if job.SubmissionID == "" {
		return model.Job{}, appErr.New(appErr.MalformedMessage).WithMessage("job missing submission_id")
	}
	if job.Language == "" {
		return model.Job{}, appErr.New(appErr.MalformedMessage).WithMessage("job missing language")
	}
	if job.ProblemID <= 0 {
		return model.Job{}, appErr.Newf(appErr.MalformedMessage, "job has invalid problem_id %d", job.ProblemID)
	}
	return job, nil
}

// Package worker runs contract analysis in the background.  Jobs arrive from
// two intakes — the Kafka contract.uploaded topic and the filesystem inbox —
// and are funneled through one queue so a contract queued by both paths is
// still analyzed once (a per-contract Redis lock guards the overlap window).
package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"golang.org/x/sync/errgroup"

	"github.com/clauselens/clauselens/internal/application/analysis"
	"github.com/clauselens/clauselens/internal/config"
	"github.com/clauselens/clauselens/internal/infrastructure/monitoring/logging"
	"github.com/clauselens/clauselens/internal/infrastructure/monitoring/prometheus"
	"github.com/clauselens/clauselens/pkg/errors"
)

const queueName = "analysis"

// Lock is the per-contract mutual exclusion taken around one analysis run.
type Lock interface {
	Acquire(ctx context.Context) error
	Release(ctx context.Context) error
}

// LockFactory builds the lock for one contract.
type LockFactory func(contractID uuid.UUID) Lock

// Options configures the worker pool.
type Options struct {
	Service analysis.Service
	Locks   LockFactory
	Metrics *prometheus.AppMetrics
	Logger  logging.Logger

	Concurrency  int
	QueueDepth   int
	MaxRetries   int
	RetryBackoff time.Duration
}

// Worker owns the job queue and the pool of analysis goroutines.
type Worker struct {
	service analysis.Service
	locks   LockFactory
	metrics *prometheus.AppMetrics
	log     logging.Logger

	concurrency  int
	maxRetries   int
	retryBackoff time.Duration

	jobs chan uuid.UUID
}

// New builds a Worker from opts, applying the config defaults.
func New(opts Options) *Worker {
	if opts.Logger == nil {
		opts.Logger = logging.NewNopLogger()
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = 4
	}
	if opts.QueueDepth < 1 {
		opts.QueueDepth = 256
	}
	if opts.RetryBackoff <= 0 {
		opts.RetryBackoff = 5 * time.Second
	}

	return &Worker{
		service:      opts.Service,
		locks:        opts.Locks,
		metrics:      opts.Metrics,
		log:          opts.Logger,
		concurrency:  opts.Concurrency,
		maxRetries:   opts.MaxRetries,
		retryBackoff: opts.RetryBackoff,
		jobs:         make(chan uuid.UUID, opts.QueueDepth),
	}
}

// FromConfig builds a Worker from the worker config section.
func FromConfig(cfg config.WorkerConfig, service analysis.Service, locks LockFactory,
	metrics *prometheus.AppMetrics, log logging.Logger) *Worker {
	return New(Options{
		Service:      service,
		Locks:        locks,
		Metrics:      metrics,
		Logger:       log,
		Concurrency:  cfg.Concurrency,
		QueueDepth:   cfg.QueueDepth,
		MaxRetries:   cfg.MaxRetries,
		RetryBackoff: cfg.RetryBackoff,
	})
}

// Enqueue queues a contract for analysis.  It returns false when the queue is
// full; callers decide whether that is fatal (inbox) or retryable (Kafka).
func (w *Worker) Enqueue(contractID uuid.UUID) bool {
	select {
	case w.jobs <- contractID:
		w.recordQueueDepth()
		return true
	default:
		w.log.Warn("analysis queue full, job rejected",
			logging.String("contract_id", contractID.String()))
		return false
	}
}

// Run blocks until ctx is canceled, processing jobs with the configured
// concurrency.
func (w *Worker) Run(ctx context.Context) error {
	w.log.Info("worker pool starting", logging.Int("concurrency", w.concurrency))

	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < w.concurrency; i++ {
		g.Go(func() error {
			for {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case id := <-w.jobs:
					w.recordQueueDepth()
					w.process(ctx, id)
				}
			}
		})
	}

	err := g.Wait()
	if err == context.Canceled {
		return nil
	}
	return err
}

// process runs one analysis under the contract's lock, retrying transient
// failures.
func (w *Worker) process(ctx context.Context, contractID uuid.UUID) {
	log := w.log.With(logging.String("contract_id", contractID.String()))

	if w.locks != nil {
		lock := w.locks(contractID)
		if err := lock.Acquire(ctx); err != nil {
			// Another worker holds it; that run covers this job.
			log.Debug("analysis lock busy, skipping", logging.Err(err))
			return
		}
		defer func() {
			if err := lock.Release(context.WithoutCancel(ctx)); err != nil {
				log.Warn("analysis lock release failed", logging.Err(err))
			}
		}()
	}

	start := time.Now()
	var lastErr error
	for attempt := 0; attempt <= w.maxRetries; attempt++ {
		if attempt > 0 {
			if w.metrics != nil {
				w.metrics.WorkerRetriesTotal.WithLabelValues(string(errors.GetCode(lastErr))).Inc()
			}
			select {
			case <-time.After(w.retryBackoff):
			case <-ctx.Done():
				return
			}
		}

		result, err := w.service.Analyze(ctx, contractID)
		if err == nil {
			log.Info("contract analyzed",
				logging.Int("clauses", result.Contract.ClauseCount),
				logging.Duration("duration", time.Since(start)),
			)
			w.recordAnalysis(result, time.Since(start), false)
			return
		}
		lastErr = err

		// Validation and not-found failures won't change on retry.
		if !retryable(err) {
			break
		}
		log.Warn("analysis attempt failed", logging.Int("attempt", attempt+1), logging.Err(err))
	}

	log.Error("contract analysis failed", logging.Err(lastErr))
	w.recordAnalysis(nil, time.Since(start), true)
}

func (w *Worker) recordAnalysis(result *analysis.AnalysisResult, duration time.Duration, failed bool) {
	if w.metrics == nil {
		return
	}
	sections, clauses, level := 0, 0, ""
	if result != nil && result.Structured != nil {
		sections = len(result.Structured.Sections)
		clauses = len(result.Structured.Clauses)
	}
	if result != nil && result.Risk != nil {
		level = string(result.Risk.Level)
	}
	w.metrics.RecordAnalysis("worker", sections, clauses, level, duration, failed)
}

func (w *Worker) recordQueueDepth() {
	if w.metrics != nil {
		w.metrics.WorkerQueueDepth.WithLabelValues(queueName).Set(float64(len(w.jobs)))
	}
}

// retryable reports whether the failure class is worth another attempt.
func retryable(err error) bool {
	switch errors.GetCode(err) {
	case errors.ErrCodeContractNotFound,
		errors.ErrCodeContractEmptyText,
		errors.ErrCodeContractInvalidState,
		errors.ErrCodeValidation,
		errors.ErrCodeBadRequest:
		return false
	}
	return true
}

// KafkaHandler adapts the worker queue to the contract.uploaded topic.  The
// returned handler reports an error when the queue is full so the message
// stays uncommitted and is redelivered.
func (w *Worker) KafkaHandler() func(ctx context.Context, msg kafka.Message) error {
	return func(ctx context.Context, msg kafka.Message) error {
		var event struct {
			AggregateID string `json:"aggregate_id"`
		}
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			// Malformed payloads never become parseable; drop them.
			w.log.Error("malformed contract event, dropping",
				logging.String("topic", msg.Topic), logging.Err(err))
			return nil
		}

		contractID, err := uuid.Parse(event.AggregateID)
		if err != nil {
			w.log.Error("contract event with invalid aggregate id, dropping",
				logging.String("aggregate_id", event.AggregateID))
			return nil
		}

		if !w.Enqueue(contractID) {
			return errors.New(errors.ErrCodeTooManyRequests, "analysis queue full")
		}
		return nil
	}
}

// Package dispatch implements the Work Dispatcher of spec §4.I: it binds
// the Carousel Scheduler's selections to concrete executions, running
// scans through a bounded worker pool, enqueuing periodic housekeeping on
// fixed schedules, and supporting at-next-boundary cancellation.
package dispatch

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/Jeffail/tunny"
	cronlib "github.com/robfig/cron/v3"

	"github.com/valstan/setka/internal/carousel"
	"github.com/valstan/setka/internal/core"
	"github.com/valstan/setka/internal/queue"
)

// Task frequency schedules from spec §4.I.
const (
	scanScheduleCron     = "@every 1m"
	validateScheduleCron = "@every 1h"
	optimizeScheduleCron = "@daily"
	statusScheduleCron   = "@every 15m"
)

// Scanner performs one carousel scan: fetching, filtering, and persisting
// a region's wall for one credential. Implementations compose the
// Upstream Client, Filter Pipeline, and Store; the Dispatcher only
// orchestrates when and how many run concurrently.
type Scanner interface {
	Scan(ctx context.Context, region core.Region, credential core.Credential) (postsFetched int, err error)
}

// Validator probes a single credential against the upstream API.
type Validator interface {
	Validate(ctx context.Context, credential core.Credential) error
}

// FrequencyTuner reports the median posts-per-scan over the trailing
// window, the self-tuning input of spec §4.H.
type FrequencyTuner interface {
	MedianPostsPerScan(ctx context.Context) (float64, error)
}

// StatusReporter publishes an operator-facing status snapshot.
type StatusReporter interface {
	ReportStatus(ctx context.Context) error
}

// Directory supplies the current regions and credentials the Scheduler
// selects over, and persists the credential-status side effect of a
// failed scan (spec §4.H: a token-invalid failure excludes the
// credential from selection until revalidated).
type Directory interface {
	ActiveRegions(ctx context.Context) ([]core.Region, error)
	Credentials(ctx context.Context) ([]core.Credential, error)
	UpdateCredential(ctx context.Context, credential core.Credential) (core.Credential, error)
}

// Tasks persists the CarouselTask lifecycle of spec §3/§4.H
// (queued -> running -> completed|failed) for each scan the Dispatcher
// runs.
type Tasks interface {
	Create(ctx context.Context, task core.CarouselTask) (core.CarouselTask, error)
	Update(ctx context.Context, task core.CarouselTask) (core.CarouselTask, error)
}

// Metrics is the set of counters/gauges spec §4.I requires the Dispatcher
// to emit.
type Metrics interface {
	RecordTaskDuration(kind queue.Kind, d time.Duration)
	RecordTaskResult(kind queue.Kind, success bool)
	RecordPostsFetched(regionID int64, count int)
	RecordRateLimitHit()
}

type nopMetrics struct{}

func (nopMetrics) RecordTaskDuration(queue.Kind, time.Duration) {}
func (nopMetrics) RecordTaskResult(queue.Kind, bool)            {}
func (nopMetrics) RecordPostsFetched(int64, int)                {}
func (nopMetrics) RecordRateLimitHit()                          {}

// Dispatcher binds the Scheduler's decisions to the queue and a bounded
// worker pool (spec §5: "a small worker pool (<= max_concurrent_scans)").
type Dispatcher struct {
	scheduler  *carousel.Scheduler
	queue      *queue.Queue
	directory  Directory
	scanner    Scanner
	validator  Validator
	tuner      FrequencyTuner
	status     StatusReporter
	tasks      Tasks
	metrics    Metrics
	logger     core.Logger

	pool *tunny.Pool

	mu         sync.Mutex
	nextTaskID int64
	running    map[int64]context.CancelFunc
}

// Config bundles a Dispatcher's collaborators.
type Config struct {
	Scheduler *carousel.Scheduler
	Queue     *queue.Queue
	Directory Directory
	Scanner   Scanner
	Validator Validator
	Tuner     FrequencyTuner
	Status    StatusReporter
	Tasks     Tasks
	Metrics   Metrics
	Logger    core.Logger
}

// New builds a Dispatcher whose worker pool is bounded by the scheduler's
// MaxConcurrentScans.
func New(cfg Config) *Dispatcher {
	if cfg.Metrics == nil {
		cfg.Metrics = nopMetrics{}
	}
	if cfg.Logger == nil {
		cfg.Logger = core.NopLogger{}
	}
	d := &Dispatcher{
		scheduler: cfg.Scheduler,
		queue:     cfg.Queue,
		directory: cfg.Directory,
		scanner:   cfg.Scanner,
		validator: cfg.Validator,
		tuner:     cfg.Tuner,
		status:    cfg.Status,
		tasks:     cfg.Tasks,
		metrics:   cfg.Metrics,
		logger:    cfg.Logger,
		running:   make(map[int64]context.CancelFunc),
	}
	d.pool = tunny.NewFunc(cfg.Scheduler.MaxConcurrentScans(), func(payload interface{}) interface{} {
		return d.execute(payload.(queue.Message))
	})
	return d
}

// Close releases the worker pool.
func (d *Dispatcher) Close() {
	d.pool.Close()
}

// RunWorkers starts workerCount goroutines draining the queue through the
// bounded pool until ctx is cancelled.
func (d *Dispatcher) RunWorkers(ctx context.Context, workerCount int) {
	var wg sync.WaitGroup
	for i := 0; i < workerCount; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				msg, ok := d.queue.Dequeue(ctx)
				if !ok {
					return
				}
				d.pool.Process(msg)
			}
		}()
	}
	wg.Wait()
}

// execResult is what each pool worker returns to its caller; currently
// informational only, useful for tests and future Nack wiring.
type execResult struct {
	kind    queue.Kind
	success bool
	err     error
}

func (d *Dispatcher) execute(msg queue.Message) execResult {
	start := time.Now()
	var result execResult
	switch msg.Kind {
	case queue.KindScanNextRegion:
		result = d.executeScan(msg)
	case queue.KindValidateTokens:
		result = d.executeValidate(msg)
	case queue.KindOptimizeFrequency:
		result = d.executeOptimize(msg)
	case queue.KindStatus:
		result = d.executeStatus(msg)
	default:
		result = execResult{kind: msg.Kind, success: false, err: context.Canceled}
	}
	d.metrics.RecordTaskDuration(msg.Kind, time.Since(start))
	d.metrics.RecordTaskResult(msg.Kind, result.success)
	return result
}

// registerRunning reserves a cancellable context for one scan execution, letting
// CancelRunning interrupt it at its next upstream-request boundary (spec
// §4.I: the running request itself is not preempted).
func (d *Dispatcher) registerRunning(ctx context.Context) (int64, context.Context) {
	runCtx, cancel := context.WithCancel(ctx)
	d.mu.Lock()
	d.nextTaskID++
	id := d.nextTaskID
	d.running[id] = cancel
	d.mu.Unlock()
	return id, runCtx
}

func (d *Dispatcher) unregisterRunning(id int64) {
	d.mu.Lock()
	delete(d.running, id)
	d.mu.Unlock()
}

// CancelRunning cancels a task's context; the running Scanner observes it
// at its next await boundary rather than being preempted immediately.
func (d *Dispatcher) CancelRunning(taskID int64) bool {
	d.mu.Lock()
	cancel, ok := d.running[taskID]
	d.mu.Unlock()
	if ok {
		cancel()
	}
	return ok
}

func (d *Dispatcher) executeScan(msg queue.Message) execResult {
	job, ok := msg.Payload.(queue.ScanJob)
	if !ok {
		return execResult{kind: msg.Kind, success: false, err: context.Canceled}
	}
	region, cred := job.Region, job.Credential

	id, ctx := d.registerRunning(context.Background())
	defer d.unregisterRunning(id)

	task := d.startTask(ctx, region, cred)

	fetched, err := d.scanner.Scan(ctx, region, cred)
	d.scheduler.Finish(region.ID, cred.ID)
	if err != nil {
		d.logger.Warnf("scan region=%d failed: %v", region.ID, err)
		d.failTask(ctx, task, cred, err)
		return execResult{kind: msg.Kind, success: false, err: err}
	}
	d.completeTask(ctx, task, fetched)
	d.metrics.RecordPostsFetched(region.ID, fetched)
	return execResult{kind: msg.Kind, success: true}
}

// startTask records a queued-then-running CarouselTask for one scan
// execution. d.tasks is optional so tests can omit it; a zero-value task
// is returned in that case and the later persist calls become no-ops.
func (d *Dispatcher) startTask(ctx context.Context, region core.Region, cred core.Credential) core.CarouselTask {
	if d.tasks == nil {
		return core.CarouselTask{}
	}
	task, err := d.tasks.Create(ctx, core.CarouselTask{
		RegionID:     region.ID,
		CredentialID: cred.ID,
		State:        core.TaskQueued,
	})
	if err != nil {
		d.logger.Warnf("dispatcher: create task for region=%d: %v", region.ID, err)
		return core.CarouselTask{}
	}
	if err := carousel.Transition(&task, core.TaskRunning, time.Now()); err != nil {
		d.logger.Warnf("dispatcher: transition task %d to running: %v", task.ID, err)
		return task
	}
	if _, err := d.tasks.Update(ctx, task); err != nil {
		d.logger.Warnf("dispatcher: persist running task %d: %v", task.ID, err)
	}
	return task
}

func (d *Dispatcher) completeTask(ctx context.Context, task core.CarouselTask, fetched int) {
	if d.tasks == nil || task.ID == 0 {
		return
	}
	task.PostsFetched = int64(fetched)
	if err := carousel.Transition(&task, core.TaskCompleted, time.Now()); err != nil {
		d.logger.Warnf("dispatcher: transition task %d to completed: %v", task.ID, err)
		return
	}
	if _, err := d.tasks.Update(ctx, task); err != nil {
		d.logger.Warnf("dispatcher: persist completed task %d: %v", task.ID, err)
	}
}

// failTask marks task failed and, for a token-invalid auth failure,
// invalidates the bound credential so the Scheduler excludes it from
// future selection until it is revalidated (spec §4.H).
func (d *Dispatcher) failTask(ctx context.Context, task core.CarouselTask, cred core.Credential, scanErr error) {
	reason := scanErr.Error()
	if core.KindOf(scanErr) == core.KindUpstreamAuth {
		reason = carousel.TokenInvalidReason
	}
	if d.tasks == nil || task.ID == 0 {
		if reason == carousel.TokenInvalidReason {
			d.invalidateCredential(ctx, cred, reason)
		}
		return
	}
	if err := carousel.Fail(&task, &cred, reason, time.Now()); err != nil {
		d.logger.Warnf("dispatcher: fail task %d: %v", task.ID, err)
	}
	if _, err := d.tasks.Update(ctx, task); err != nil {
		d.logger.Warnf("dispatcher: persist failed task %d: %v", task.ID, err)
	}
	if reason == carousel.TokenInvalidReason {
		d.invalidateCredential(ctx, cred, reason)
	}
}

func (d *Dispatcher) invalidateCredential(ctx context.Context, cred core.Credential, reason string) {
	cred.Status = core.CredentialStatusInvalid
	cred.ErrorMessage = reason
	if _, err := d.directory.UpdateCredential(ctx, cred); err != nil {
		d.logger.Warnf("dispatcher: invalidate credential %d: %v", cred.ID, err)
	}
}

func (d *Dispatcher) executeValidate(msg queue.Message) execResult {
	cred, ok := msg.Payload.(core.Credential)
	if !ok || d.validator == nil {
		return execResult{kind: msg.Kind, success: false}
	}
	if err := d.validator.Validate(context.Background(), cred); err != nil {
		return execResult{kind: msg.Kind, success: false, err: err}
	}
	return execResult{kind: msg.Kind, success: true}
}

func (d *Dispatcher) executeOptimize(msg queue.Message) execResult {
	if d.tuner == nil {
		return execResult{kind: msg.Kind, success: false}
	}
	median, err := d.tuner.MedianPostsPerScan(context.Background())
	if err != nil {
		return execResult{kind: msg.Kind, success: false, err: err}
	}
	d.scheduler.AdjustFrequency(median)
	return execResult{kind: msg.Kind, success: true}
}

func (d *Dispatcher) executeStatus(msg queue.Message) execResult {
	if d.status == nil {
		return execResult{kind: msg.Kind, success: false}
	}
	if err := d.status.ReportStatus(context.Background()); err != nil {
		return execResult{kind: msg.Kind, success: false, err: err}
	}
	return execResult{kind: msg.Kind, success: true}
}

// StartSchedules wires the fixed task-frequency cron schedule of spec
// §4.I (scan_next_region effectively 1/min via the scheduler tick,
// validate_tokens 1/h, optimize_frequency 1/d, status 4/h) and starts it.
// The returned stop function shuts the cron runner down.
func (d *Dispatcher) StartSchedules(ctx context.Context) (stop func(), err error) {
	c := cronlib.New()

	if _, err = c.AddFunc(scanScheduleCron, func() { d.tickScan(ctx) }); err != nil {
		return nil, err
	}
	if _, err = c.AddFunc(validateScheduleCron, func() { d.tickValidateAll(ctx) }); err != nil {
		return nil, err
	}
	if _, err = c.AddFunc(optimizeScheduleCron, func() {
		_, _ = d.queue.Enqueue(ctx, queue.Message{Kind: queue.KindOptimizeFrequency, ScheduledAt: time.Now()})
	}); err != nil {
		return nil, err
	}
	if _, err = c.AddFunc(statusScheduleCron, func() {
		_, _ = d.queue.Enqueue(ctx, queue.Message{Kind: queue.KindStatus, ScheduledAt: time.Now()})
	}); err != nil {
		return nil, err
	}

	c.Start()
	return func() { <-c.Stop().Done() }, nil
}

// tickScan asks the Scheduler for the next selection and, if one exists,
// enqueues a scan job for it.
func (d *Dispatcher) tickScan(ctx context.Context) {
	regions, err := d.directory.ActiveRegions(ctx)
	if err != nil {
		d.logger.Warnf("dispatcher: list regions: %v", err)
		return
	}
	creds, err := d.directory.Credentials(ctx)
	if err != nil {
		d.logger.Warnf("dispatcher: list credentials: %v", err)
		return
	}
	sel, ok := d.scheduler.Select(regions, creds)
	if !ok {
		return
	}
	now := time.Now()
	_, err = d.queue.Enqueue(ctx, queue.Message{
		Kind:        queue.KindScanNextRegion,
		RegionID:    sel.Region.ID,
		Payload:     queue.ScanJob{Region: sel.Region, Credential: sel.Credential},
		ScheduledAt: now,
	})
	if err != nil {
		d.logger.Warnf("dispatcher: enqueue scan: %v", err)
	}
}

func (d *Dispatcher) tickValidateAll(ctx context.Context) {
	creds, err := d.directory.Credentials(ctx)
	if err != nil {
		return
	}
	now := time.Now()
	for _, c := range creds {
		// DedupKey carries the credential id: RegionID is 0 for every
		// validate_tokens message, so without it every credential past
		// the first would collide on (kind, region, minute) and be
		// silently dropped as a duplicate.
		_, _ = d.queue.Enqueue(ctx, queue.Message{
			Kind:        queue.KindValidateTokens,
			DedupKey:    strconv.FormatInt(c.ID, 10),
			Payload:     c,
			ScheduledAt: now,
		})
	}
}

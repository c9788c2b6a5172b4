// Package sender delivers outbound Telegram calls off the update goroutine.
// Jobs are sharded by chat so one chat sees its messages in enqueue order.
package sender

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/m3rciful/relaybot/core/logger"
	"github.com/m3rciful/relaybot/core/telegram/netutil"
)

var (
	// ErrQueueClosed is returned by Enqueue after Close.
	ErrQueueClosed = errors.New("telegram sender: queue closed")
	// ErrQueueFull is returned when the chat's shard has no free slot.
	ErrQueueFull = errors.New("telegram sender: queue full")
)

const (
	defaultQueueSize    = 256
	defaultWorkers      = 4
	defaultRetryBackoff = 2 * time.Second
	defaultMaxDuration  = 12 * time.Second
)

// Options controls the behaviour of the outbound dispatcher.
type Options struct {
	// QueueSize is the buffer of each worker shard.
	QueueSize int
	// Workers is the number of shards.
	Workers    int
	MaxRetries int
	// RetryBackoff is multiplied by the attempt number between retries.
	RetryBackoff time.Duration
	// MaxDuration bounds the time spent retrying a single job.
	MaxDuration time.Duration
}

func (o Options) withDefaults() Options {
	if o.QueueSize <= 0 {
		o.QueueSize = defaultQueueSize
	}
	if o.Workers <= 0 {
		o.Workers = defaultWorkers
	}
	o.MaxRetries = max(o.MaxRetries, 0)
	if o.RetryBackoff <= 0 {
		o.RetryBackoff = defaultRetryBackoff
	}
	if o.MaxDuration <= 0 {
		o.MaxDuration = defaultMaxDuration
	}
	return o
}

type job struct {
	ctx      context.Context
	action   string
	endpoint string
	run      func() error
}

func (j job) attrs() []slog.Attr {
	attrs := []slog.Attr{slog.String("action", j.action)}
	if j.endpoint != "" {
		attrs = append(attrs, slog.String("endpoint", j.endpoint))
	}
	return attrs
}

// Dispatcher executes outbound Telegram calls asynchronously with retries.
type Dispatcher struct {
	opts   Options
	shards []chan job
	rr     atomic.Uint64
	failed atomic.Uint64

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewDispatcher starts one worker per shard. Zero options take defaults.
func NewDispatcher(opts Options) *Dispatcher {
	opts = opts.withDefaults()
	d := &Dispatcher{
		opts:   opts,
		shards: make([]chan job, opts.Workers),
	}
	for i := range d.shards {
		d.shards[i] = make(chan job, opts.QueueSize)
		d.wg.Add(1)
		go d.work(d.shards[i])
	}
	return d
}

// Enqueue schedules run. It never blocks: a saturated shard yields
// ErrQueueFull. run may be called several times when retries are enabled.
func (d *Dispatcher) Enqueue(ctx context.Context, action, endpoint string, run func() error) error {
	return d.EnqueueWait(ctx, action, endpoint, run, 0)
}

// EnqueueWait is Enqueue that waits up to wait for room on a saturated shard
// before giving up with ErrQueueFull. Close is held off while it waits.
func (d *Dispatcher) EnqueueWait(ctx context.Context, action, endpoint string, run func() error, wait time.Duration) error {
	if run == nil {
		return errors.New("telegram sender: nil run function")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrQueueClosed
	}
	shard := d.shards[d.shardFor(ctx)]
	j := job{ctx: ctx, action: action, endpoint: endpoint, run: run}
	select {
	case shard <- j:
		return nil
	default:
	}
	if wait <= 0 {
		return ErrQueueFull
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case shard <- j:
		return nil
	case <-ctx.Done():
		return errors.Join(ErrQueueFull, ctx.Err())
	case <-timer.C:
		return ErrQueueFull
	}
}

// shardFor pins a chat to one shard; jobs without a chat go round-robin.
func (d *Dispatcher) shardFor(ctx context.Context) int {
	n := uint64(len(d.shards))
	chatID := logger.ChatIDFrom(ctx)
	if chatID == 0 {
		return int(d.rr.Add(1) % n)
	}
	if chatID < 0 {
		chatID = -chatID
	}
	return int(uint64(chatID) % n)
}

// ErrorCount returns the number of jobs that finally failed.
func (d *Dispatcher) ErrorCount() uint64 {
	return d.failed.Load()
}

// Close stops accepting jobs, drains the queues and waits for the workers.
// It is safe to call more than once.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	for _, ch := range d.shards {
		close(ch)
	}
	d.mu.Unlock()
	d.wg.Wait()
}

func (d *Dispatcher) work(jobs <-chan job) {
	defer d.wg.Done()
	for j := range jobs {
		d.process(j)
	}
}

func (d *Dispatcher) process(j job) {
	start := time.Now()
	logger.Debug(j.ctx, "tg.sender", "send.start", j.attrs()...)

	attempts, err := d.deliver(j)
	attrs := append(j.attrs(),
		slog.Int("attempts", attempts),
		slog.Duration("elapsed", time.Since(start)),
	)
	if err == nil {
		if attempts > 1 {
			logger.Info(j.ctx, "tg.sender", "send.retry.success", attrs...)
			return
		}
		logger.Debug(j.ctx, "tg.sender", "send.success", attrs...)
		return
	}

	d.failed.Add(1)
	logger.Error(j.ctx, "tg.sender", "send.fail", append(attrs,
		slog.String("err", logger.RedactToken(err.Error())),
		slog.String("err_code", classifyError(err)),
	)...)
}

// deliver runs the job until it succeeds, fails permanently or runs out of
// attempts or time.
func (d *Dispatcher) deliver(j job) (int, error) {
	ctx, cancel := context.WithTimeout(j.ctx, d.opts.MaxDuration)
	defer cancel()

	limit := d.opts.MaxRetries + 1
	var err error
	for attempt := 1; ; attempt++ {
		if cerr := ctx.Err(); cerr != nil {
			return attempt - 1, errors.Join(err, cerr)
		}
		if err = j.run(); err == nil {
			return attempt, nil
		}
		delay, retry := d.backoff(err, attempt)
		if !retry || attempt >= limit {
			return attempt, err
		}
		logger.Debug(j.ctx, "tg.sender", "send.retry.backoff", append(j.attrs(),
			slog.Int("attempt", attempt),
			slog.Duration("backoff", delay),
		)...)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return attempt, errors.Join(err, ctx.Err())
		case <-timer.C:
		}
	}
}

// backoff returns the wait before the next attempt and whether err is worth
// retrying at all. Flood control errors wait the server supplied delay.
func (d *Dispatcher) backoff(err error, attempt int) (time.Duration, bool) {
	if after, ok := retryAfter(err); ok {
		return after, true
	}
	if !netutil.ShouldRetry(err) {
		return 0, false
	}
	return d.opts.RetryBackoff * time.Duration(attempt), true
}

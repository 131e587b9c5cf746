package sync

import (
	"context"
	gosync "sync"
	"sync/atomic"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"
)

// DefaultInterval is the badge refresh period when none is configured.
const DefaultInterval = 3 * time.Second

// countTimeout is the maximum time allowed for a single recount.
const countTimeout = 10 * time.Second

// Counter computes the unread count of a user.
type Counter interface {
	UnreadCount(ctx context.Context, email string) (int, error)
}

// CountMsg is a tea.Msg carrying a freshly computed unread count.
type CountMsg struct {
	Email string
	Count int
	At    time.Time

	// Generation identifies the Poller that produced the count.
	Generation uint64
}

var generations atomic.Uint64

// Poller recounts a user's unread notifications on a fixed interval while
// it runs. Only the newest count is kept for the consumer.
type Poller struct {
	counter    Counter
	email      string
	interval   time.Duration
	logger     *zap.Logger
	generation uint64

	countCh   chan CountMsg
	triggerCh chan struct{}

	mu      gosync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
	last    CountMsg
	hasLast bool
}

// New creates a Poller for email. A non-positive interval uses
// DefaultInterval.
func New(c Counter, email string, interval time.Duration, logger *zap.Logger) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Poller{
		counter:    c,
		email:      email,
		interval:   interval,
		logger:     logger,
		generation: generations.Add(1),
		countCh:    make(chan CountMsg, 1),
		triggerCh:  make(chan struct{}, 1),
	}
}

// Generation is unique to this Poller and stamped on every CountMsg it
// publishes.
func (p *Poller) Generation() uint64 {
	return p.generation
}

// Owns reports whether msg was published by this Poller.
func (p *Poller) Owns(msg CountMsg) bool {
	return p != nil && msg.Generation == p.generation
}

// Interval returns the polling period.
func (p *Poller) Interval() time.Duration {
	return p.interval
}

// Start launches the polling goroutine, counting once immediately, and
// returns a tea.Cmd that delivers the next CountMsg. Starting a running
// poller is a no-op that returns nil.
func (p *Poller) Start(ctx context.Context) tea.Cmd {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return nil
	}
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	p.running = true
	p.cancel = cancel
	p.done = done
	p.mu.Unlock()

	go p.run(ctx, done)

	return p.WaitForNextCount()
}

// Stop cancels the polling goroutine and waits for it to exit. No count is
// published after Stop returns.
func (p *Poller) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	cancel, done := p.cancel, p.done
	p.running = false
	p.mu.Unlock()

	cancel()
	<-done

	// Drop a count published while stopping.
	select {
	case <-p.countCh:
	default:
	}
}

// Running reports whether the polling goroutine is active.
func (p *Poller) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// Refresh asks for an immediate recount without waiting for the next tick.
func (p *Poller) Refresh() tea.Cmd {
	select {
	case p.triggerCh <- struct{}{}:
	default:
		// A recount is already pending.
	}
	return nil
}

// Last returns the most recent count, if any.
func (p *Poller) Last() (CountMsg, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last, p.hasLast
}

// Counts exposes published counts for consumers outside Bubble Tea.
func (p *Poller) Counts() <-chan CountMsg {
	return p.countCh
}

// WaitForNextCount returns a tea.Cmd that waits for the next count. It
// yields nil once the poller stops.
func (p *Poller) WaitForNextCount() tea.Cmd {
	p.mu.Lock()
	done := p.done
	p.mu.Unlock()

	return func() tea.Msg {
		if done == nil {
			return nil
		}
		select {
		case msg := <-p.countCh:
			return msg
		case <-done:
			return nil
		}
	}
}

// run is the polling loop.
func (p *Poller) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.count(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.count(ctx)
		case <-p.triggerCh:
			p.count(ctx)
		}
	}
}

// count recomputes the unread count and publishes it. Failures are logged
// and the previous count stands.
func (p *Poller) count(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, countTimeout)
	defer cancel()

	n, err := p.counter.UnreadCount(ctx, p.email)
	if ctx.Err() != nil && err != nil {
		return
	}
	if err != nil {
		p.logger.Warn("unread count failed", zap.String("student", p.email), zap.Error(err))
		return
	}

	msg := CountMsg{Email: p.email, Count: n, At: time.Now(), Generation: p.generation}

	p.publish(ctx, msg)

	p.mu.Lock()
	p.last = msg
	p.hasLast = true
	p.mu.Unlock()
}

// publish replaces any unconsumed count with msg.
func (p *Poller) publish(ctx context.Context, msg CountMsg) {
	for {
		if ctx.Err() != nil {
			return
		}
		select {
		case p.countCh <- msg:
			return
		default:
		}
		select {
		case <-p.countCh:
		default:
		}
	}
}

package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/rapport/internal/logging"
	"github.com/aretw0/rapport/internal/runtime"
	"github.com/aretw0/rapport/pkg/domain"
	"github.com/aretw0/rapport/pkg/ports"
	"github.com/google/uuid"
)

// Controller is the submission state machine of one chat session.
//
// It owns the only mutable domain.State. Every transition goes through
// runtime.Step while holding mu, so the guard check and the switch to
// Sending are a single atomic step: at most one exchange is ever outstanding and
// a concurrent second submission is rejected, not queued.
type Controller struct {
	client ports.AnswerClient
	hooks  domain.LifecycleHooks
	logger *slog.Logger
	buffer int
	now    func() time.Time
	id     string

	mu      sync.Mutex
	state   domain.State
	closed  bool
	streams *Broadcaster

	inflight sync.WaitGroup
}

// Option configures the Controller.
type Option func(*Controller)

// WithLogger configures a logger for diagnostics (including exchange failure details).
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		c.logger = logger
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(c *Controller) {
		c.hooks = hooks
	}
}

// WithSessionID sets the session identifier (default: a random UUID).
func WithSessionID(id string) Option {
	return func(c *Controller) {
		c.state.SessionID = id
	}
}

// WithSubscriberBuffer sets the channel capacity of new subscriptions.
func WithSubscriberBuffer(n int) Option {
	return func(c *Controller) {
		c.buffer = n
	}
}

// NewController creates a controller in the Idle phase with an empty transcript.
func NewController(client ports.AnswerClient, opts ...Option) *Controller {
	c := &Controller{
		client: client,
		logger: logging.NewNop(),
		buffer: DefaultSubscriberBuffer,
		now:    time.Now,
		state:  domain.NewState(""),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.state.SessionID == "" {
		c.state.SessionID = uuid.NewString()
	}
	c.id = c.state.SessionID
	c.logger = c.logger.With("session_id", c.id)
	c.streams = NewBroadcaster(c.logger)
	return c
}

// SessionID returns the session identifier.
func (c *Controller) SessionID() string {
	return c.id
}

// Snapshot returns the current state as seen by renderers.
func (c *Controller) Snapshot() domain.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Snapshot()
}

// Subscribe returns a channel of snapshots, primed with the current one.
// Cancel must be called to release the subscription.
func (c *Controller) Subscribe() (<-chan domain.Snapshot, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return c.streams.Subscribe(c.buffer)
	}
	return c.streams.SubscribeFrom(c.buffer, c.state.Snapshot())
}

// SetInput replaces the pending input. It is accepted in any phase:
// typing is never blocked by an outstanding exchange.
func (c *Controller) SetInput(text string) domain.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	next, _, err := c.apply(domain.InputChanged{Text: text})
	if err != nil {
		c.logger.Error("Input rejected", "err", err)
	}
	return next.Snapshot()
}

// Submit sends the pending input.
//
// When the submission is accepted the user turn is already in the transcript
// when Submit returns, the phase is Sending, and the exchange runs in the
// background. Cancelling ctx afterwards does not abort the exchange.
//
// A blank input (domain.ErrBlankInput) or an outstanding exchange
// (domain.ErrSessionBusy) rejects the submission without changing any state.
func (c *Controller) Submit(ctx context.Context) (*Exchange, error) {
	return c.begin(ctx, domain.Submitted{})
}

// SubmitText replaces the pending input with text and submits it as one
// transition. A rejected submission leaves the pending input untouched, and
// a concurrent caller can never swap its own text in between.
func (c *Controller) SubmitText(ctx context.Context, text string) (*Exchange, error) {
	return c.begin(ctx, domain.InputChanged{Text: text}, domain.Submitted{})
}

// Ask submits text and waits for the outcome.
//
// The returned error reports only a rejected submission or ctx ending while
// waiting; a failed exchange is reflected in the snapshot's LastError.
func (c *Controller) Ask(ctx context.Context, text string) (domain.Snapshot, error) {
	x, err := c.SubmitText(ctx, text)
	if err != nil {
		return c.Snapshot(), err
	}
	return x.Wait(ctx)
}

// begin runs evs against a copy of the state and commits the result only if
// every step is accepted. The last event must be domain.Submitted.
func (c *Controller) begin(ctx context.Context, evs ...domain.Event) (*Exchange, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, domain.ErrSessionClosed
	}

	next := c.state
	var dispatch *runtime.Dispatch
	for _, ev := range evs {
		var err error
		next, dispatch, err = runtime.Step(next, ev)
		if err != nil {
			c.mu.Unlock()
			c.logger.Debug("Submission ignored", "reason", err)
			return nil, err
		}
	}
	if dispatch == nil {
		c.mu.Unlock()
		return nil, fmt.Errorf("no exchange dispatched by %T", evs[len(evs)-1])
	}
	c.commit(next)
	c.inflight.Add(1)
	c.mu.Unlock()

	x := &Exchange{
		Message: dispatch.Message,
		Version: next.Version,
		done:    make(chan struct{}),
	}

	event := &domain.ExchangeEvent{
		Timestamp: c.now(),
		SessionID: next.SessionID,
		Message:   dispatch.Message,
	}
	c.logger.Debug("Exchange started", "version", next.Version, "message_size", len(dispatch.Message))
	fire(ctx, c.hooks.OnSubmit, event)

	go c.exchange(context.WithoutCancel(ctx), x, event.Timestamp)
	return x, nil
}

// Wait blocks until every outstanding exchange has been applied.
func (c *Controller) Wait() {
	c.inflight.Wait()
}

// Close rejects further submissions, waits for an outstanding exchange to
// resolve and closes every subscription.
func (c *Controller) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	c.inflight.Wait()
	c.streams.Close()
	c.logger.Debug("Session closed")
	return nil
}

// apply runs one transition and broadcasts the result. The caller holds c.mu.
func (c *Controller) apply(ev domain.Event) (domain.State, *runtime.Dispatch, error) {
	next, dispatch, err := runtime.Step(c.state, ev)
	if err != nil {
		return c.state, nil, err
	}
	c.commit(next)
	return next, dispatch, nil
}

// commit replaces the state and broadcasts it if it changed. The caller holds c.mu,
// which keeps subscribers receiving snapshots in version order. Broadcast never blocks.
func (c *Controller) commit(next domain.State) {
	changed := next.Version != c.state.Version
	c.state = next
	if changed {
		c.streams.Broadcast(next.Snapshot())
	}
}

func (c *Controller) exchange(ctx context.Context, x *Exchange, started time.Time) {
	defer c.inflight.Done()
	defer close(x.done)

	answer, err := c.send(ctx, x.Message)

	event := &domain.ExchangeEvent{
		Timestamp: c.now(),
		SessionID: c.SessionID(),
		Message:   x.Message,
		Duration:  c.now().Sub(started),
	}

	var ev domain.Event
	if err != nil {
		ev = domain.ExchangeFailed{Err: err}
		event.Err = err
		event.Kind = domain.KindOf(err)
	} else {
		ev = domain.AnswerReceived{Answer: answer}
		event.Answer = &answer
	}

	c.mu.Lock()
	next, _, stepErr := c.apply(ev)
	c.mu.Unlock()

	x.snapshot = next.Snapshot()
	x.err = err

	if stepErr != nil {
		// Unreachable while the guard holds; logged so a broken invariant is visible.
		c.logger.Error("Exchange outcome rejected", "err", stepErr)
	}

	if err != nil {
		// The user sees domain.FailureMessage; the detail stays in the logs.
		attrs := []any{"kind", event.Kind, "err", err, "duration", event.Duration}
		var xerr *domain.ExchangeError
		if errors.As(err, &xerr) && xerr.Kind == domain.FailureHTTP {
			attrs = append(attrs, "status", xerr.Status, "detail", xerr.Detail)
		}
		c.logger.Warn("Exchange failed", attrs...)
		fire(ctx, c.hooks.OnFailure, event)
		return
	}

	c.logger.Debug("Exchange answered", "fallback", answer.Fallback, "duration", event.Duration)
	fire(ctx, c.hooks.OnAnswer, event)
}

// send calls the client, turning a panic into a transport failure so the
// session always returns to Idle.
func (c *Controller) send(ctx context.Context, message string) (answer domain.Answer, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &domain.ExchangeError{Kind: domain.FailureTransport, Err: fmt.Errorf("answer client panic: %v", r)}
		}
	}()
	return c.client.Send(ctx, message)
}

func fire(ctx context.Context, hook func(context.Context, *domain.ExchangeEvent), e *domain.ExchangeEvent) {
	if hook != nil {
		hook(ctx, e)
	}
}

// Exchange is a handle on an accepted submission.
type Exchange struct {
	// Message is the trimmed utterance that was sent.
	Message string

	// Version is the state version right after the user turn was appended.
	Version uint64

	done     chan struct{}
	snapshot domain.Snapshot
	err      error
}

// Done is closed once the outcome has been applied to the session.
func (x *Exchange) Done() <-chan struct{} {
	return x.done
}

// Wait blocks until the outcome is applied or ctx ends, and returns the
// snapshot produced by the outcome.
func (x *Exchange) Wait(ctx context.Context) (domain.Snapshot, error) {
	select {
	case <-x.done:
		return x.snapshot, nil
	case <-ctx.Done():
		return domain.Snapshot{}, ctx.Err()
	}
}

// Err returns the classified failure of the exchange, or nil on success.
// It is only meaningful after Done is closed.
func (x *Exchange) Err() error {
	<-x.done
	return x.err
}

// Package hostproto implements the widget side of the host handshake:
// announce with "ready", acknowledge "init" with "initEnd", deliver every
// "open" to a Listener, and fall back to standalone when the host never
// answers. Nothing here is fatal; failures degrade to a status line.
package hostproto

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Channel is the message pipe to the host.
type Channel interface {
	Send(ctx context.Context, v any) error
	Receive(ctx context.Context) ([]byte, error)
}

// Listener receives protocol callbacks. Calls come from the Run goroutine,
// one at a time.
type Listener interface {
	StatusChanged(state State, status string)
	Open(ctx context.Context, msg OpenMessage)
}

// Observer is notified of protocol traffic; used for metrics.
type Observer interface {
	MessageSent(method string)
	MessageReceived(method string)
	MessageDropped(reason string)
	HandshakeFinished(outcome string, elapsed time.Duration)
}

// Config controls handshake timing. Retries only fire while the protocol
// awaits init, so every retry must fall before HostTimeout; Validate
// reports a schedule that cannot complete.
type Config struct {
	APIVersion   int
	ReadyRetries int           // extra "ready" sends while awaiting init
	RetryBackoff time.Duration // the n-th retry fires n*RetryBackoff after the previous send
	HostTimeout  time.Duration // wait for "init" before going standalone
}

// DefaultConfig returns the stock timings.
func DefaultConfig() Config {
	return Config{
		APIVersion:   APIVersion,
		ReadyRetries: 3,
		RetryBackoff: 2 * time.Second,
		HostTimeout:  15 * time.Second,
	}
}

// LastReadyAt is when the final "ready" retry fires, measured from the
// first send.
func (c Config) LastReadyAt() time.Duration {
	n := c.ReadyRetries
	return time.Duration(n*(n+1)/2) * c.RetryBackoff
}

// Validate reports a retry schedule that outlasts the host timeout.
func (c Config) Validate() error {
	if c.ReadyRetries <= 0 || c.RetryBackoff <= 0 || c.HostTimeout <= 0 {
		return nil
	}
	if last := c.LastReadyAt(); last >= c.HostTimeout {
		return fmt.Errorf("ready retry %d fires at %s, after the %s host timeout", c.ReadyRetries, last, c.HostTimeout)
	}
	return nil
}

// Protocol runs one handshake over a Channel.
type Protocol struct {
	cfg      Config
	ch       Channel
	listener Listener
	observer Observer
	log      *zap.Logger

	sendMu sync.Mutex

	mu      sync.RWMutex
	state   State
	status  string
	started time.Time
	readies int
}

// New creates a protocol. observer may be nil.
func New(ch Channel, listener Listener, observer Observer, cfg Config, log *zap.Logger) *Protocol {
	if cfg.APIVersion == 0 {
		cfg.APIVersion = APIVersion
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Protocol{
		cfg:      cfg,
		ch:       ch,
		listener: listener,
		observer: observer,
		log:      log,
		state:    StateInit,
		status:   StatusInitializing,
	}
}

// State returns the current handshake state.
func (p *Protocol) State() State {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state
}

// Status returns the status line for the view.
func (p *Protocol) Status() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.status
}

// ReadyCount returns how many "ready" messages have been sent.
func (p *Protocol) ReadyCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.readies
}

// Close asks the host to close the widget. Local state is unchanged.
func (p *Protocol) Close(ctx context.Context) error {
	return p.send(ctx, MethodClose, CloseMessage{APIVersion: p.cfg.APIVersion, Method: MethodClose, IsSuccess: true})
}

// Update sends changed activity properties to the host.
func (p *Protocol) Update(ctx context.Context, activity map[string]any) error {
	return p.send(ctx, MethodUpdate, UpdateMessage{APIVersion: p.cfg.APIVersion, Method: MethodUpdate, Activity: activity})
}

// Run performs the handshake and processes host messages until ctx is done
// or the channel fails. Inbound frames, timers and cancellation are handled
// in a single loop, so each event completes before the next is seen.
func (p *Protocol) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	frames := make(chan []byte)
	recvErr := make(chan error, 1)
	go func() {
		for {
			b, err := p.ch.Receive(ctx)
			if err != nil {
				recvErr <- err
				return
			}
			select {
			case frames <- b:
			case <-ctx.Done():
				return
			}
		}
	}()

	p.mu.Lock()
	p.started = time.Now()
	p.mu.Unlock()

	p.sendReady(ctx)
	p.setState(StateAwaitingInit, StatusInitializing)

	var retryC, waitC <-chan time.Time
	var retry, wait *time.Timer
	if p.cfg.ReadyRetries > 0 && p.cfg.RetryBackoff > 0 {
		retry = time.NewTimer(p.cfg.RetryBackoff)
		defer retry.Stop()
		retryC = retry.C
	}
	if p.cfg.HostTimeout > 0 {
		wait = time.NewTimer(p.cfg.HostTimeout)
		defer wait.Stop()
		waitC = wait.C
	}
	retries := 0

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case err := <-recvErr:
			if errors.Is(err, context.Canceled) {
				return err
			}
			p.log.Info("host channel closed", zap.Error(err))
			return err

		case <-retryC:
			if p.State() != StateAwaitingInit {
				retryC = nil
				continue
			}
			retries++
			p.log.Debug("resending ready", zap.Int("retry", retries))
			p.sendReady(ctx)
			if retries < p.cfg.ReadyRetries {
				retry.Reset(time.Duration(retries+1) * p.cfg.RetryBackoff)
			} else {
				retryC = nil
			}

		case <-waitC:
			waitC = nil
			if p.State() == StateAwaitingInit {
				retryC = nil
				p.finishHandshake("standalone")
				p.setState(StateStandalone, StatusStandalone)
			}

		case frame := <-frames:
			if p.handle(ctx, frame) {
				retryC, waitC = nil, nil
			}
		}
	}
}

// handle processes one inbound frame. It reports whether the handshake
// completed.
func (p *Protocol) handle(ctx context.Context, frame []byte) bool {
	in, ok := Normalize(frame)
	if !ok {
		p.log.Debug("dropping unparsable host message")
		p.dropped("unparsable")
		return false
	}
	if p.observer != nil {
		p.observer.MessageReceived(in.Method)
	}

	state := p.State()
	if state == StateStandalone {
		p.log.Debug("ignoring host message in standalone mode", zap.String("method", in.Method))
		p.dropped("standalone")
		return false
	}

	switch in.Method {
	case MethodInit:
		if state != StateAwaitingInit {
			p.log.Debug("ignoring repeated init")
			return false
		}
		if err := p.send(ctx, MethodInitEnd, InitEndMessage{APIVersion: p.cfg.APIVersion, Method: MethodInitEnd}); err != nil {
			p.log.Warn("sending initEnd failed", zap.Error(err))
		}
		p.finishHandshake("connected")
		p.setState(StateConnected, StatusConnected)
		return true

	case MethodOpen:
		if state != StateConnected {
			p.log.Debug("ignoring open before init")
			p.dropped("not_connected")
			return false
		}
		activity, ok := in.ExtractActivity()
		if !ok {
			p.setState(StateConnected, StatusNoData)
			return false
		}
		p.setState(StateConnected, StatusConnected)
		if p.listener != nil {
			p.listener.Open(ctx, OpenMessage{Activity: activity, User: in.User})
		}
		return false

	default:
		p.log.Debug("ignoring unrecognized method", zap.String("method", in.Method))
		p.dropped("unrecognized")
		return false
	}
}

func (p *Protocol) sendReady(ctx context.Context) {
	if err := p.send(ctx, MethodReady, NewReady(p.cfg.APIVersion)); err != nil {
		p.log.Warn("sending ready failed", zap.Error(err))
	}
	p.mu.Lock()
	p.readies++
	p.mu.Unlock()
}

func (p *Protocol) send(ctx context.Context, method string, msg any) error {
	p.sendMu.Lock()
	defer p.sendMu.Unlock()
	if err := p.ch.Send(ctx, msg); err != nil {
		return err
	}
	if p.observer != nil {
		p.observer.MessageSent(method)
	}
	return nil
}

func (p *Protocol) setState(s State, status string) {
	p.mu.Lock()
	changed := p.state != s || p.status != status
	p.state = s
	p.status = status
	p.mu.Unlock()
	if changed && p.listener != nil {
		p.listener.StatusChanged(s, status)
	}
}

func (p *Protocol) finishHandshake(outcome string) {
	p.mu.RLock()
	elapsed := time.Since(p.started)
	p.mu.RUnlock()
	p.log.Info("host handshake finished", zap.String("outcome", outcome), zap.Duration("elapsed", elapsed))
	if p.observer != nil {
		p.observer.HandshakeFinished(outcome, elapsed)
	}
}

func (p *Protocol) dropped(reason string) {
	if p.observer != nil {
		p.observer.MessageDropped(reason)
	}
}

package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/matthewbaird/stationcu/internal/hostproto"
	"github.com/matthewbaird/stationcu/internal/session"
)

// simHost plays the host side of the widget protocol in-process.
type simHost struct {
	sess   *session.Session
	ch     *hostproto.MemoryChannel
	cancel context.CancelFunc
	done   chan error
}

func startHost(ctx context.Context, sess *session.Session) *simHost {
	ctx, cancel := context.WithCancel(ctx)
	h := &simHost{
		sess:   sess,
		ch:     hostproto.NewMemoryChannel(),
		cancel: cancel,
		done:   make(chan error, 1),
	}
	go func() { h.done <- sess.RunHost(ctx, h.ch) }()
	return h
}

func (h *simHost) handshake(ctx context.Context, timeout time.Duration) error {
	if err := h.ch.DeliverJSON(map[string]any{"apiVersion": hostproto.APIVersion, "method": hostproto.MethodInit}); err != nil {
		return err
	}
	return waitFor(ctx, timeout, "host handshake", func() bool {
		return h.sess.HostState() == hostproto.StateConnected
	})
}

func (h *simHost) open(ctx context.Context, timeout time.Duration, field, aid, login, name string, payload []byte) error {
	activity := map[string]any{field: string(payload)}
	if aid != "" {
		activity["aid"] = aid
	}
	msg := map[string]any{
		"apiVersion": hostproto.APIVersion,
		"method":     hostproto.MethodOpen,
		"activity":   activity,
	}
	if login != "" || name != "" {
		msg["user"] = hostproto.User{Login: login, Name: name}
	}
	if err := h.ch.DeliverJSON(msg); err != nil {
		return err
	}
	return waitFor(ctx, timeout, "open to apply", func() bool {
		snap := h.sess.Store().Snapshot()
		return snap.Loaded || snap.LoadError != ""
	})
}

func (h *simHost) stop() {
	h.cancel()
	h.ch.Close()
	<-h.done
}

func waitFor(ctx context.Context, timeout time.Duration, what string, cond func() bool) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	tick := time.NewTicker(5 * time.Millisecond)
	defer tick.Stop()
	for !cond() {
		select {
		case <-ctx.Done():
			return fmt.Errorf("timed out waiting for %s", what)
		case <-tick.C:
		}
	}
	return nil
}

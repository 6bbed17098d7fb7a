// Package feed subscribes to the zKillboard websocket and hands every
// killmail to a Sink.
package feed

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"golang.org/x/exp/slices"

	"github.com/guarzo/eve-battles/internal/killmail"
)

// DefaultURL is the public zKillboard killstream.
const DefaultURL = "wss://zkillboard.com/websocket/"

// Sink receives raw killmails.
type Sink interface {
	Save(ctx context.Context, raw killmail.RawEvent) error
}

type Config struct {
	URL            string
	ReconnectDelay time.Duration
	// IgnoreSystemIDs are never stored.
	IgnoreSystemIDs []int64
	// TrackedIDs, when set, limits storage to killmails with a victim or
	// attacker in one of these corporations or alliances.
	TrackedIDs []int64
}

// Stats counts messages since the listener started.
type Stats struct {
	Received int64
	Stored   int64
	Ignored  int64
	Failed   int64
}

// Listener keeps a websocket subscription alive until its context ends.
type Listener struct {
	logger     logrus.FieldLogger
	cfg        Config
	sink       Sink
	normalizer *killmail.Normalizer
	dialer     *websocket.Dialer

	received, stored, ignored, failed atomic.Int64

	mu   sync.Mutex
	conn *websocket.Conn
}

// NewListener constructor
func NewListener(cfg Config, sink Sink, logger logrus.FieldLogger) *Listener {
	if cfg.URL == "" {
		cfg.URL = DefaultURL
	}
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = 10 * time.Second
	}
	return &Listener{
		logger:     logger,
		cfg:        cfg,
		sink:       sink,
		normalizer: killmail.NewNormalizer(logger),
		dialer:     websocket.DefaultDialer,
	}
}

// Run connects and reads until ctx is cancelled, reconnecting after any
// failure.
func (l *Listener) Run(ctx context.Context) error {
	for {
		err := l.connectAndListen(ctx)
		if ctx.Err() != nil {
			l.logger.Info("Feed listener stopped")
			return nil
		}
		l.logger.WithError(err).Warnf("Feed connection lost; reconnecting in %s", l.cfg.ReconnectDelay)

		select {
		case <-ctx.Done():
			l.logger.Info("Feed listener stopped")
			return nil
		case <-time.After(l.cfg.ReconnectDelay):
		}
	}
}

func (l *Listener) connectAndListen(ctx context.Context) error {
	conn, _, err := l.dialer.DialContext(ctx, l.cfg.URL, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", l.cfg.URL, err)
	}
	l.mu.Lock()
	l.conn = conn
	l.mu.Unlock()
	defer l.Close()

	subMessage := map[string]string{
		"action":  "sub",
		"channel": "killstream",
	}
	if err := conn.WriteJSON(subMessage); err != nil {
		return fmt.Errorf("send sub message: %w", err)
	}
	l.logger.WithField("url", l.cfg.URL).Info("Connected to killmail feed")

	// unblock ReadMessage when the caller gives up
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			l.Close()
		case <-done:
		}
	}()

	return l.readLoop(ctx, conn)
}

// readLoop reads from the websocket until an error
func (l *Listener) readLoop(ctx context.Context, conn *websocket.Conn) error {
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		l.received.Add(1)
		if err := l.handle(ctx, message); err != nil {
			l.failed.Add(1)
			l.logger.WithError(err).Warn("Error handling feed message")
		}
	}
}

var errIgnored = errors.New("ignored")

func (l *Listener) handle(ctx context.Context, message []byte) error {
	raw := killmail.RawEvent(message)
	h, err := killmail.ParseHeader(raw)
	if err != nil {
		return err
	}
	entry := l.logger.WithFields(logrus.Fields{
		"killmail_id": h.KillmailID,
		"system_id":   h.SystemID,
	})

	if err := l.filter(raw, h); err != nil {
		l.ignored.Add(1)
		entry.Debugf("Skipping killmail: %v", err)
		return nil
	}
	if err := l.sink.Save(ctx, raw); err != nil {
		return err
	}
	l.stored.Add(1)
	entry.Debug("Stored killmail")
	return nil
}

func (l *Listener) filter(raw killmail.RawEvent, h killmail.Header) error {
	if slices.Contains(l.cfg.IgnoreSystemIDs, h.SystemID) {
		return fmt.Errorf("system %d %w", h.SystemID, errIgnored)
	}
	if len(l.cfg.TrackedIDs) == 0 {
		return nil
	}
	ev, err := l.normalizer.Normalize(raw)
	if err != nil {
		return err
	}
	if l.tracked(ev.Victim) {
		return nil
	}
	for _, a := range ev.Attackers {
		if l.tracked(a) {
			return nil
		}
	}
	return fmt.Errorf("no tracked corporation or alliance: %w", errIgnored)
}

func (l *Listener) tracked(e killmail.Entity) bool {
	for _, id := range l.cfg.TrackedIDs {
		if id == e.CorporationID || id == e.AllianceID {
			return true
		}
	}
	return false
}

// Close closes the current websocket, if any.
func (l *Listener) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.conn != nil {
		l.conn.Close()
		l.conn = nil
	}
}

func (l *Listener) Stats() Stats {
	return Stats{
		Received: l.received.Load(),
		Stored:   l.stored.Load(),
		Ignored:  l.ignored.Load(),
		Failed:   l.failed.Load(),
	}
}

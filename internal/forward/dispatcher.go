// Package forward relays inbound messages to the destinations named by a
// tenant's forwarding rules.
package forward

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/matheus3301/wprelay/internal/bus"
	"github.com/matheus3301/wprelay/internal/protocol"
	"github.com/matheus3301/wprelay/internal/status"
	"github.com/matheus3301/wprelay/internal/store"
	"go.uber.org/zap"
)

var (
	// ErrNoActiveSession is returned when the rule owner has no live handle.
	ErrNoActiveSession = errors.New("no active session")
	// ErrMediaDownload wraps attachment download failures.
	ErrMediaDownload = errors.New("media download failed")
)

// RuleSource looks up forwarding rules by source chat.
type RuleSource interface {
	RulesFrom(ctx context.Context, tenantID, fromJID string) ([]store.ForwardingRule, error)
}

// Session is the slice of a protocol handle the dispatcher needs.
type Session interface {
	Send(ctx context.Context, to string, content protocol.Content) (string, error)
	Download(ctx context.Context, media protocol.Media) ([]byte, error)
}

// SessionFunc returns a live session for the rule owner.
type SessionFunc func(ctx context.Context) (Session, error)

// Status is the result of relaying one message through one rule.
type Status string

const (
	StatusSent    Status = "sent"
	StatusSkipped Status = "skipped"
	StatusFailed  Status = "failed"
)

// Outcome reports one relay attempt.
type Outcome struct {
	Tenant    string
	RuleID    string
	MessageID string
	From      string
	To        string
	Kind      string
	Status    Status
	ServerID  string
	Error     string
}

// Dispatcher relays inbound messages according to stored rules.
type Dispatcher struct {
	rules      RuleSource
	stagingDir string
	bus        *bus.Bus
	logger     *zap.Logger
}

// NewDispatcher creates a dispatcher that stages attachments under stagingDir.
func NewDispatcher(rules RuleSource, stagingDir string, b *bus.Bus, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		rules:      rules,
		stagingDir: stagingDir,
		bus:        b,
		logger:     logger,
	}
}

// Dispatch relays every message in the batch. Failures are logged per rule
// and never stop the rest of the batch.
func (d *Dispatcher) Dispatch(ctx context.Context, tenantID string, session SessionFunc, msgs []protocol.Message) []Outcome {
	var outcomes []Outcome
	for _, msg := range msgs {
		outcomes = append(outcomes, d.dispatchOne(ctx, tenantID, session, msg)...)
	}
	return outcomes
}

func (d *Dispatcher) dispatchOne(ctx context.Context, tenantID string, session SessionFunc, msg protocol.Message) []Outcome {
	logger := d.logger.With(zap.String("tenant", tenantID), zap.String("msg_id", msg.ID), zap.String("chat", msg.ChatJID))

	rules, err := d.rules.RulesFrom(ctx, tenantID, msg.ChatJID)
	if err != nil {
		logger.Error("failed to load forwarding rules", zap.Error(err))
		return nil
	}
	if len(rules) == 0 {
		return nil
	}

	kind := "unknown"
	if msg.Content != nil {
		kind = msg.Content.Kind()
	}

	var (
		payload  protocol.Content
		prepared bool
		prepErr  error
	)
	outcomes := make([]Outcome, 0, len(rules))
	for _, rule := range rules {
		out := Outcome{
			Tenant:    tenantID,
			RuleID:    rule.ID,
			MessageID: msg.ID,
			From:      rule.FromJID,
			To:        rule.ToJID,
			Kind:      kind,
		}

		sess, err := session(ctx)
		if err != nil {
			d.fail(logger, &out, "no session for rule owner", err)
			outcomes = append(outcomes, out)
			continue
		}

		if !prepared {
			payload, prepErr = d.prepare(ctx, tenantID, sess, msg.Content)
			prepared = true
			if prepErr != nil {
				logger.Warn("attachment download failed, skipping message", zap.String("kind", kind), zap.Error(prepErr))
			}
		}
		if prepErr != nil {
			out.Status = StatusFailed
			out.Error = prepErr.Error()
			d.publish(out)
			outcomes = append(outcomes, out)
			continue
		}
		if payload == nil {
			out.Status = StatusSkipped
			d.publish(out)
			outcomes = append(outcomes, out)
			continue
		}

		serverID, err := sess.Send(ctx, rule.ToJID, payload)
		if err != nil {
			d.fail(logger, &out, "forward failed", err)
			outcomes = append(outcomes, out)
			continue
		}
		out.Status = StatusSent
		out.ServerID = serverID
		logger.Info("message forwarded", zap.String("rule", rule.ID), zap.String("to", rule.ToJID), zap.String("kind", kind))
		d.publish(out)
		outcomes = append(outcomes, out)
	}
	return outcomes
}

// prepare turns inbound content into a relay payload. A nil payload with a
// nil error means the content is deliberately not relayed.
func (d *Dispatcher) prepare(ctx context.Context, tenantID string, sess Session, content protocol.Content) (protocol.Content, error) {
	switch c := content.(type) {
	case protocol.Text:
		return c, nil
	case protocol.Media:
		return d.stage(ctx, tenantID, sess, c)
	case protocol.Contact:
		return c, nil
	case protocol.Location:
		return c, nil
	case protocol.LiveLocation:
		return c, nil
	case protocol.Poll:
		return nil, nil
	case protocol.Unsupported:
		d.logger.Info("unsupported content skipped", zap.String("tenant", tenantID), zap.String("kind", c.Kind()))
		return nil, nil
	default:
		d.logger.Info("unknown content skipped", zap.String("tenant", tenantID), zap.String("type", fmt.Sprintf("%T", content)))
		return nil, nil
	}
}

// stage downloads the attachment into a temp file and reads it back. The
// file is removed before returning on every path.
func (d *Dispatcher) stage(ctx context.Context, tenantID string, sess Session, m protocol.Media) (protocol.Content, error) {
	data, err := sess.Download(ctx, m)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMediaDownload, err)
	}

	if err := os.MkdirAll(d.stagingDir, 0700); err != nil {
		return nil, fmt.Errorf("staging dir: %w", err)
	}
	f, err := os.CreateTemp(d.stagingDir, tenantID+"-*."+string(m.MediaKind))
	if err != nil {
		return nil, fmt.Errorf("staging file: %w", err)
	}
	path := f.Name()
	defer func() { _ = os.Remove(path) }()

	_, writeErr := f.Write(data)
	if closeErr := f.Close(); closeErr != nil && writeErr == nil {
		writeErr = closeErr
	}
	if writeErr != nil {
		return nil, fmt.Errorf("write staging file: %w", writeErr)
	}

	staged, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read staging file: %w", err)
	}

	out := m
	out.Data = staged
	out.Ref = nil
	return out, nil
}

func (d *Dispatcher) fail(logger *zap.Logger, out *Outcome, msg string, err error) {
	logger.Error(msg, zap.String("rule", out.RuleID), zap.String("to", out.To), zap.Error(err))
	out.Status = StatusFailed
	out.Error = err.Error()
	d.publish(*out)
}

func (d *Dispatcher) publish(out Outcome) {
	if d.bus == nil {
		return
	}
	d.bus.Publish(bus.Event{
		Kind:      status.Kind(out.Tenant, status.KindForward),
		Timestamp: time.Now(),
		Payload:   out,
	})
}

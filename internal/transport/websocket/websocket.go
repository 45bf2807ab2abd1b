// Package websocket is the relay-backed snapshot transport. One connection
// per participant; the relay timestamps snapshots and fans them out to the
// rest of the session.
package websocket

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/distsim/transformsync/internal/transport"
	"github.com/distsim/transformsync/pkg/core"
	"github.com/distsim/transformsync/pkg/streaming"
)

// Config holds WebSocket backend configuration.
type Config struct {
	URL         string
	Secret      string
	Session     string
	Participant string
}

// AuthorityHandler reacts to authority grants pushed by the relay.
type AuthorityHandler func(id core.ObjectID, authoritative bool)

// Backend streams transform snapshots over WebSocket through the relay.
// It implements transport.Broadcaster.
type Backend struct {
	conn *connection
	cfg  Config

	mu          sync.Mutex
	sink        transport.Sink
	onAuthority AuthorityHandler
}

// New creates a new WebSocket transport backend.
func New(cfg Config, logger *slog.Logger) *Backend {
	b := &Backend{cfg: cfg}
	b.conn = newConnection(logger, b.handleEnvelope)
	return b
}

// SetSink installs the receiver for incoming snapshots. Must be set before
// Init so no early relay message is lost.
func (b *Backend) SetSink(s transport.Sink) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sink = s
}

// SetAuthorityHandler installs the callback for relay authority grants.
func (b *Backend) SetAuthorityHandler(h AuthorityHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onAuthority = h
}

// Init connects to the relay and joins the configured session, waiting for
// the relay's ack.
func (b *Backend) Init() error {
	if err := b.conn.dial(b.cfg.URL, b.cfg.Secret); err != nil {
		return err
	}

	data, err := marshalEnvelope(streaming.TypeJoinSession, streaming.JoinSessionPayload{
		Session:     b.cfg.Session,
		Participant: b.cfg.Participant,
	})
	if err != nil {
		return err
	}

	// Cache for reconnect replay.
	b.conn.mu.Lock()
	b.conn.cachedJoinMsg = data
	b.conn.mu.Unlock()

	return b.conn.sendAndWait(data, streaming.TypeJoinSession, ackTimeout)
}

// Close leaves the session and disconnects.
func (b *Backend) Close() error {
	if err := b.sendEnvelope(streaming.TypeLeaveSession, nil); err != nil {
		b.conn.logger.Warn("Failed to send leave_session", "error", err)
	}

	b.conn.mu.Lock()
	b.conn.cachedJoinMsg = nil
	b.conn.mu.Unlock()

	return b.conn.close()
}

// BroadcastSnapshot pushes one encoded snapshot to the relay. The relay
// stamps the session timestamp on receipt; Immediate asks it to bypass its
// own coalescing for seed broadcasts.
func (b *Backend) BroadcastSnapshot(id core.ObjectID, payload []byte, immediate bool) error {
	return b.sendEnvelope(streaming.TypeSnapshot, streaming.SnapshotPayload{
		ObjectID:  id,
		Key:       core.ComponentKeyTransform,
		Data:      payload,
		Immediate: immediate,
	})
}

// marshalEnvelope builds a JSON-encoded Envelope from a message type and payload.
func marshalEnvelope(msgType string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", msgType, err)
	}
	env := streaming.Envelope{Type: msgType, Payload: raw}
	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("marshal %s envelope: %w", msgType, err)
	}
	return data, nil
}

// sendEnvelope marshals the payload into an Envelope and pushes it
// to the write loop (fire-and-forget).
func (b *Backend) sendEnvelope(msgType string, payload any) error {
	data, err := marshalEnvelope(msgType, payload)
	if err != nil {
		return err
	}
	b.conn.send(data)
	return nil
}

// handleEnvelope routes relay pushes to the installed handlers.
func (b *Backend) handleEnvelope(env streaming.Envelope) {
	b.mu.Lock()
	sink := b.sink
	onAuthority := b.onAuthority
	b.mu.Unlock()

	switch env.Type {
	case streaming.TypeSnapshot:
		if sink == nil {
			return
		}
		var p streaming.SnapshotPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			b.conn.logger.Debug("Malformed snapshot payload", "error", err)
			return
		}
		sink(transport.Incoming{
			ObjectID:  p.ObjectID,
			Key:       p.Key,
			Timestamp: p.Timestamp,
			Payload:   p.Data,
		})

	case streaming.TypeAuthorityGrant:
		if onAuthority == nil {
			return
		}
		var p streaming.AuthorityGrantPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			b.conn.logger.Debug("Malformed authority payload", "error", err)
			return
		}
		onAuthority(p.ObjectID, p.Authoritative)

	default:
		b.conn.logger.Debug("Unhandled envelope type", "type", env.Type)
	}
}

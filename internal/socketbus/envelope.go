package socketbus

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	ackTimeout     = 5 * time.Second
	dispatchRace   = 10 * time.Second
)

// Envelope types carried on the bot transport.
const (
	EnvelopeEventsAPI      = "events_api"
	EnvelopeInteractive    = "interactive"
	EnvelopeSlashCommands  = "slash_commands"
)

// Envelope is a self-delimiting frame sent server -> bot.
type Envelope struct {
	EnvelopeID             string      `json:"envelope_id"`
	Type                   string      `json:"type"`
	Payload                interface{} `json:"payload"`
	AcceptsResponsePayload bool        `json:"accepts_response_payload"`
}

// Ack is a bot -> server acknowledgment of an envelope.
type Ack struct {
	EnvelopeID string          `json:"envelope_id"`
	Payload    json.RawMessage `json:"payload,omitempty"`
}

func parseAck(data []byte) (Ack, bool) {
	var a Ack
	if err := json.Unmarshal(data, &a); err != nil || a.EnvelopeID == "" {
		return Ack{}, false
	}
	return a, true
}

func newConnectionID() string { return "conn_" + uuid.NewString() }

func helloEnvelope(connectionID string, numConnections int) map[string]interface{} {
	return map[string]interface{}{
		"type": "hello",
		"connection_info": map[string]interface{}{
			"connection_id": connectionID,
		},
		"num_connections": numConnections,
		"debug_info": map[string]interface{}{
			"host": "emulator",
		},
	}
}

// viewSubmissionAck is the subset of an acknowledgment payload interpreted
// when the original envelope carried a view_submission interaction.
type viewSubmissionAck struct {
	ResponseAction string                 `json:"response_action"`
	View           map[string]interface{} `json:"view"`
}

// DispatchOpts configures one envelope send.
type DispatchOpts struct {
	Type       string
	Payload    interface{}
	TargetBotID string // empty means broadcast to all connected bots

	// ViewID and InterpretViewSubmission tell the bus to apply the
	// bot's response_action to the named view once its ack arrives.
	InterpretViewSubmission bool
	ViewID                  string
}

// Dispatch sends an envelope to the targeted bot, or to every connected bot
// when TargetBotID is empty, and races all sends against a 10s overall
// timeout. Per-connection acks are awaited up to 5s each; acks are
// advisory, so a timeout is logged and otherwise ignored.
func (b *Bus) Dispatch(opts DispatchOpts) {
	targets := b.targetConnections(opts.TargetBotID)
	if len(targets) == 0 {
		return
	}

	if b.metrics != nil {
		b.metrics.RecordEnvelopeDispatched(opts.Type)
	}

	var wg sync.WaitGroup
	done := make(chan struct{})
	for _, c := range targets {
		wg.Add(1)
		go func(c *Connection) {
			defer wg.Done()
			b.sendOne(c, opts)
		}(c)
	}
	go func() { wg.Wait(); close(done) }()

	select {
	case <-done:
	case <-time.After(dispatchRace):
		b.logger.Warn().Str("type", opts.Type).Msg("dispatch race timed out; outstanding sends considered done")
	}
}

func (b *Bus) targetConnections(targetBotID string) []*Connection {
	b.mu.Lock()
	defer b.mu.Unlock()

	if targetBotID == "" {
		out := make([]*Connection, 0, len(b.connections))
		for _, c := range b.connections {
			out = append(out, c)
		}
		return out
	}

	bot, ok := b.state.GetBot(targetBotID)
	if !ok {
		return nil
	}
	if c, ok := b.connections[bot.ConnectionID]; ok {
		return []*Connection{c}
	}
	return nil
}

func (b *Bus) sendOne(c *Connection, opts DispatchOpts) {
	env := Envelope{
		EnvelopeID:             "env_" + uuid.NewString(),
		Type:                   opts.Type,
		Payload:                opts.Payload,
		AcceptsResponsePayload: opts.InterpretViewSubmission,
	}

	key := c.ID + ":" + env.EnvelopeID
	ackCh := make(chan Ack, 1)
	b.pendingMu.Lock()
	b.pending[key] = ackCh
	b.pendingMu.Unlock()
	defer func() {
		b.pendingMu.Lock()
		delete(b.pending, key)
		b.pendingMu.Unlock()
	}()

	start := time.Now()
	if err := c.writeJSON(env); err != nil {
		b.logger.Warn().Err(err).Str("connection_id", c.ID).Msg("envelope send failed")
		return
	}

	select {
	case ack := <-ackCh:
		if b.metrics != nil {
			b.metrics.ObserveAck(opts.Type, time.Since(start).Seconds())
		}
		if opts.InterpretViewSubmission {
			b.applyViewSubmissionAck(opts.ViewID, ack)
		}
	case <-time.After(ackTimeout):
		if b.metrics != nil {
			b.metrics.RecordAckTimeout()
		}
		b.logger.Warn().Str("connection_id", c.ID).Str("envelope_id", env.EnvelopeID).Msg("ack timeout")
	}
}

func (b *Bus) applyViewSubmissionAck(viewID string, ack Ack) {
	if viewID == "" || len(ack.Payload) == 0 {
		_ = b.state.CloseView(viewID)
		return
	}
	var vs viewSubmissionAck
	if err := json.Unmarshal(ack.Payload, &vs); err != nil {
		_ = b.state.CloseView(viewID)
		return
	}
	switch vs.ResponseAction {
	case "update":
		_, _ = b.state.UpdateView(viewID, vs.View)
	case "errors":
		// leave the view open
	case "clear", "":
		_ = b.state.CloseView(viewID)
	default:
		_ = b.state.CloseView(viewID)
	}
}

func (b *Bus) resolveAck(connID string, ack Ack) {
	key := connID + ":" + ack.EnvelopeID
	b.pendingMu.Lock()
	ch, ok := b.pending[key]
	b.pendingMu.Unlock()
	if !ok {
		return
	}
	select {
	case ch <- ack:
	default:
	}
}

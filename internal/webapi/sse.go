package webapi

import (
	"bufio"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"

	"github.com/slackemu/emulator/internal/state"
)

func writeSSE(w *bufio.Writer, data []byte) error {
	if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
		return err
	}
	return w.Flush()
}

// simulatorEvents streams every State event to the UI, prefixed by a
// "connected" control message.
func (s *Server) simulatorEvents(c *fiber.Ctx) error {
	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")

	sub, unsub := s.state.Subscribe()
	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		defer unsub()

		connected, _ := json.Marshal(map[string]interface{}{"type": "connected"})
		if err := writeSSE(w, connected); err != nil {
			return
		}

		keepalive := time.NewTicker(15 * time.Second)
		defer keepalive.Stop()
		for {
			select {
			case ev, open := <-sub:
				if !open {
					return
				}
				data, err := json.Marshal(sseEvent(ev))
				if err != nil {
					continue
				}
				if err := writeSSE(w, data); err != nil {
					return
				}
			case <-keepalive.C:
				if _, err := w.WriteString(": keepalive\n\n"); err != nil {
					return
				}
				if err := w.Flush(); err != nil {
					return
				}
			}
		}
	}))
	return nil
}

func sseEvent(ev state.Event) map[string]interface{} {
	out := map[string]interface{}{"type": string(ev.Type), "event_id": ev.ID}
	for k, v := range ev.Payload {
		out[k] = v
	}
	return out
}

// logRecord is one line ingested via POST /logs and replayed to GET /logs
// subscribers.
type logRecord struct {
	Level  int                    `json:"level"`
	Time   int64                  `json:"time"`
	Msg    string                 `json:"msg"`
	Module string                 `json:"module,omitempty"`
	Extra  map[string]interface{} `json:"-"`
}

type logHub struct {
	mu   sync.Mutex
	subs map[int]chan logRecord
	next int
}

func newLogHub() *logHub {
	return &logHub{subs: make(map[int]chan logRecord)}
}

func (h *logHub) subscribe() (<-chan logRecord, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := h.next
	h.next++
	ch := make(chan logRecord, 64)
	h.subs[id] = ch
	return ch, func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if c, ok := h.subs[id]; ok {
			delete(h.subs, id)
			close(c)
		}
	}
}

func (h *logHub) publish(r logRecord) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.subs {
		select {
		case ch <- r:
		default:
		}
	}
}

func (s *Server) simulatorLogsGet(c *fiber.Ctx) error {
	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")

	sub, unsub := s.logs.subscribe()
	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		defer unsub()
		for rec := range sub {
			data, err := json.Marshal(rec)
			if err != nil {
				continue
			}
			if err := writeSSE(w, data); err != nil {
				return
			}
		}
	}))
	return nil
}

func (s *Server) simulatorLogsPost(c *fiber.Ctx) error {
	var rec logRecord
	if err := c.BodyParser(&rec); err != nil {
		return writeError(c, errInvalidJSON(err))
	}
	s.logs.publish(rec)
	return ok(c, nil)
}

package bridge

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	kerrors "github.com/vango-dev/klinecore/internal/errors"
	"github.com/vango-dev/klinecore/pkg/reactive"
	"github.com/vango-dev/klinecore/pkg/reconcile"
	"github.com/vango-dev/klinecore/pkg/telemetry"
)

// Hub fans reconcile ops out to connected renderers. It is safe for
// concurrent use.
type Hub struct {
	config   Config
	logger   *slog.Logger
	metrics  *telemetry.Metrics
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[string]*client
	lists   map[string]*ListState
	pending map[string][]OpFrame
	order   []string
	seq     uint64
	closed  bool
}

// Option configures a Hub.
type Option func(*Hub)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Hub) {
		h.logger = logger
	}
}

// WithMetrics records connection and frame metrics.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(h *Hub) {
		h.metrics = m
	}
}

// NewHub creates a Hub. Zero fields of config take their default.
func NewHub(config Config, opts ...Option) *Hub {
	config = config.withDefaults()
	h := &Hub{
		config: config,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		clients: make(map[string]*client),
		lists:   make(map[string]*ListState),
		pending: make(map[string][]OpFrame),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Sink returns a reconcile sink publishing ops under the list name.
func Sink[K comparable, U any](h *Hub, list string) reconcile.Sink[K, U] {
	return reconcile.SinkFunc[K, U](func(op reconcile.Op[K], out U) {
		h.record(list, OpFrame{
			Op:       op.Kind,
			Key:      op.Key,
			Index:    op.Index,
			From:     op.From,
			Fallback: op.Fallback,
			Value:    out,
		})
	})
}

func (h *Hub) record(list string, op OpFrame) {
	if op.Fallback {
		op.Key = nil
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.pending[list]; !ok {
		h.order = append(h.order, list)
	}
	h.pending[list] = append(h.pending[list], op)
}

// FlushCompleted implements reactive.Observer by publishing the ops
// collected during the flush.
func (h *Hub) FlushCompleted(reactive.FlushStats) {
	h.Flush()
}

// Flush applies the collected ops to the published state and sends them,
// one frame per list, in the order the lists first changed. It returns the
// number of frames sent to each renderer.
//
// Op values are encoded to JSON here, so Flush must run on the goroutine
// that owns the runtime. The Hub calls it itself after every flush.
func (h *Hub) Flush() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	frames := 0
	for _, list := range h.order {
		ops := h.pending[list]
		state, ok := h.lists[list]
		if !ok {
			state = &ListState{}
			h.lists[list] = state
		}
		for i := range ops {
			ops[i].Value = h.encode(list, ops[i])
			state.apply(ops[i])
		}
		h.seq++
		h.broadcast(Frame{Type: FrameOps, Seq: h.seq, List: list, Ops: ops})
		frames++
	}
	h.order = h.order[:0]
	clear(h.pending)
	return frames
}

// encode returns the JSON form of an op's value. Removes carry no value.
func (h *Hub) encode(list string, op OpFrame) any {
	if op.Op == reconcile.OpRemove || op.Value == nil {
		return nil
	}
	b, err := json.Marshal(op.Value)
	if err != nil {
		h.logger.Error("value encode failed", "list", list, "key", op.Key, "error", err)
		return nil
	}
	return json.RawMessage(b)
}

// Snapshot returns a copy of every list's state and the sequence number of
// the last ops frame it reflects. Unflushed ops are not included.
func (h *Hub) Snapshot() Frame {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.snapshot()
}

func (h *Hub) snapshot() Frame {
	lists := make(map[string]ListState, len(h.lists))
	for name, s := range h.lists {
		lists[name] = s.clone()
	}
	return Frame{Type: FrameSnapshot, Seq: h.seq, Lists: lists}
}

// Lists returns the published list names, sorted.
func (h *Hub) Lists() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	names := make([]string, 0, len(h.lists))
	for name := range h.lists {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Clients returns the number of connected renderers.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every renderer. Later connections are refused.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	clients := make([]*client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		h.drop(c, websocket.CloseGoingAway)
	}
}

// broadcast queues f on every renderer. Renderers with a full queue are
// dropped. h.mu must be held.
func (h *Hub) broadcast(f Frame) {
	if len(h.clients) == 0 {
		return
	}
	msg, err := json.Marshal(f)
	if err != nil {
		h.logger.Error("frame encode failed", "type", f.Type, "list", f.List, "error", err)
		return
	}
	for _, c := range h.clients {
		select {
		case c.send <- msg:
		default:
			h.logger.Warn("renderer too slow", "client", c.id, "error", kerrors.New("E502"))
			if h.metrics != nil {
				h.metrics.BridgeError("slow")
			}
			go h.drop(c, websocket.ClosePolicyViolation)
		}
	}
}

// ServeWS upgrades the request and streams frames to the renderer until it
// disconnects.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", "error", kerrors.New("E501").Wrap(err))
		if h.metrics != nil {
			h.metrics.BridgeError("upgrade")
		}
		return
	}

	c := &client{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan []byte, h.config.SendBuffer),
		done: make(chan struct{}),
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
			time.Now().Add(h.config.WriteTimeout))
		conn.Close()
		return
	}
	// Queue hello and snapshot before registering so no ops frame can
	// overtake them.
	hello, _ := json.Marshal(Frame{Type: FrameHello, Seq: h.seq, Client: c.id})
	snap, err := json.Marshal(h.snapshot())
	if err != nil {
		h.mu.Unlock()
		h.logger.Error("snapshot encode failed", "error", err)
		conn.Close()
		return
	}
	c.send <- hello
	c.send <- snap
	h.clients[c.id] = c
	if h.metrics != nil {
		h.metrics.ClientConnected()
	}
	h.mu.Unlock()

	h.logger.Info("renderer connected", "client", c.id, "remote", r.RemoteAddr)

	go h.writeLoop(c)
	h.readLoop(c)
}

func (h *Hub) drop(c *client, code int) {
	c.once.Do(func() {
		h.mu.Lock()
		delete(h.clients, c.id)
		h.mu.Unlock()

		close(c.done)
		c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(code, ""),
			time.Now().Add(h.config.WriteTimeout))
		c.conn.Close()

		if h.metrics != nil {
			h.metrics.ClientDisconnected()
		}
		h.logger.Info("renderer disconnected", "client", c.id)
	})
}

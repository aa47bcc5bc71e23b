package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/vanshika/fraudring/internal/domain"
	"github.com/vanshika/fraudring/internal/interaction"
	"github.com/vanshika/fraudring/internal/layout"
	"github.com/vanshika/fraudring/internal/ring"
	"github.com/vanshika/fraudring/internal/service"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second
	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second
	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10
	// Maximum message size allowed from peer.
	maxMessageSize = 4 << 20

	defaultTickInterval = 16 * time.Millisecond
)

// Client message types.
const (
	msgLoad         = "load"
	msgPointerMove  = "pointer_move"
	msgPointerLeave = "pointer_leave"
	msgClick        = "click"
	msgResize       = "resize"
)

// Server message types.
const (
	msgTick     = "tick"
	msgSettled  = "settled"
	msgFrame    = "frame"
	msgNavigate = "navigate"
	msgError    = "error"
)

type clientMessage struct {
	Type   string              `json:"type"`
	Ring   *domain.RingPayload `json:"ring,omitempty"`
	X      float64             `json:"x"`
	Y      float64             `json:"y"`
	Width  float64             `json:"width"`
	Height float64             `json:"height"`
}

type serverMessage struct {
	Type       string                     `json:"type"`
	RingID     string                     `json:"ring_id,omitempty"`
	Generation uint64                     `json:"generation,omitempty"`
	Tick       int                        `json:"tick,omitempty"`
	Positions  map[string]layout.Position `json:"positions,omitempty"`
	Settlement *layout.Settlement         `json:"settlement,omitempty"`
	Frame      *interaction.Frame         `json:"frame,omitempty"`
	MerchantID string                     `json:"merchant_id,omitempty"`
	Path       string                     `json:"path,omitempty"`
	APIPath    string                     `json:"api_path,omitempty"`
	Error      string                     `json:"error,omitempty"`
	Details    string                     `json:"details,omitempty"`
}

// StreamOptions configures the layout stream.
type StreamOptions struct {
	Layout         layout.Config
	Style          interaction.Style
	AllowedOrigins []string
	// TickInterval paces simulation ticks; defaults to one frame at 60Hz.
	TickInterval time.Duration
}

// StreamHandler serves /api/layout/stream. Every connection owns one layout
// engine and one interaction controller: the client loads rings and forwards
// pointer events, the server streams ticks, frames and navigation intents.
type StreamHandler struct {
	logger   *slog.Logger
	opts     StreamOptions
	upgrader websocket.Upgrader

	mu     sync.Mutex
	closed bool
	done   chan struct{}
	wg     sync.WaitGroup
}

// NewStreamHandler constructs a StreamHandler.
func NewStreamHandler(logger *slog.Logger, opts StreamOptions) *StreamHandler {
	if opts.TickInterval <= 0 {
		opts.TickInterval = defaultTickInterval
	}
	h := &StreamHandler{
		logger: logger.With("component", "layout_stream"),
		opts:   opts,
		done:   make(chan struct{}),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return originAllowed(opts.AllowedOrigins, r.Header.Get("Origin"))
		},
	}
	return h
}

// ServeHTTP upgrades the request and runs the session until the peer goes
// away or the handler is closed.
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		writeFailure(w, http.StatusServiceUnavailable, "Layout stream closed")
		return
	}
	h.wg.Add(1)
	h.mu.Unlock()
	defer h.wg.Done()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// the upgrader has already answered the client
		h.logger.Warn("websocket upgrade failed", "error", err, "request_id", RequestID(r.Context()))
		return
	}

	s := newSession(h, conn, RequestID(r.Context()))
	s.run()
}

// Close ends every open session and waits for them to return. Connections
// upgraded after Close are refused.
func (h *StreamHandler) Close() {
	h.mu.Lock()
	if !h.closed {
		h.closed = true
		close(h.done)
	}
	h.mu.Unlock()
	h.wg.Wait()
}

type session struct {
	id     string
	h      *StreamHandler
	conn   *websocket.Conn
	logger *slog.Logger

	engine     *layout.Engine
	controller *interaction.Controller
	settled    []layout.Settlement
	running    bool
}

func newSession(h *StreamHandler, conn *websocket.Conn, requestID string) *session {
	id := requestID
	if id == "" {
		id = uuid.NewString()
	}
	engine := layout.NewEngine(h.opts.Layout)
	s := &session{
		id:         id,
		h:          h,
		conn:       conn,
		logger:     h.logger.With("session_id", id),
		engine:     engine,
		controller: interaction.NewController(engine, h.opts.Style, h.opts.Layout),
	}
	// listeners run synchronously inside Load and Tick on the session goroutine
	engine.OnSettled(func(st layout.Settlement) {
		s.settled = append(s.settled, st)
	})
	return s
}

// readPump decodes client messages until the connection fails.
func (s *session) readPump(inbound chan<- clientMessage, quit <-chan struct{}) {
	defer close(inbound)
	s.conn.SetReadLimit(maxMessageSize)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warn("websocket read failed", "error", err)
			}
			return
		}
		var msg clientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			msg = clientMessage{Type: msgError}
		}
		select {
		case inbound <- msg:
		case <-quit:
			return
		}
	}
}

// run is the only writer of the connection.
func (s *session) run() {
	inbound := make(chan clientMessage)
	quit := make(chan struct{})
	readerDone := make(chan struct{})
	go func() {
		defer close(readerDone)
		s.readPump(inbound, quit)
	}()

	ticker := time.NewTicker(s.h.opts.TickInterval)
	ping := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		ping.Stop()
		close(quit)
		_ = s.conn.Close()
		<-readerDone
	}()

	s.logger.Debug("layout stream opened")
	defer s.logger.Debug("layout stream closed")

	for {
		select {
		case <-s.h.done:
			_ = s.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
				time.Now().Add(writeWait))
			return
		case msg, ok := <-inbound:
			if !ok {
				return
			}
			if err := s.handle(msg); err != nil {
				s.logger.Debug("websocket write failed", "error", err)
				return
			}
		case <-ticker.C:
			if !s.running {
				continue
			}
			if err := s.tick(); err != nil {
				s.logger.Debug("websocket write failed", "error", err)
				return
			}
		case <-ping.C:
			if err := s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

func (s *session) handle(msg clientMessage) error {
	switch msg.Type {
	case msgLoad:
		return s.load(msg.Ring)
	case msgPointerMove:
		s.controller.PointerMove(msg.X, msg.Y)
		return s.sendFrame()
	case msgPointerLeave:
		s.controller.PointerLeave()
		return s.sendFrame()
	case msgClick:
		intent, ok := s.controller.Click()
		if ok {
			if err := s.send(serverMessage{
				Type:       msgNavigate,
				MerchantID: intent.MerchantID,
				Path:       intent.Path(),
				APIPath:    intent.APIPath(),
			}); err != nil {
				return err
			}
		}
		return s.sendFrame()
	case msgResize:
		s.controller.Resize(msg.Width, msg.Height)
		return s.sendFrame()
	case msgError:
		return s.send(serverMessage{Type: msgError, Error: "Invalid message"})
	default:
		return s.send(serverMessage{Type: msgError, Error: "Unknown message type", Details: msg.Type})
	}
}

func (s *session) load(payload *domain.RingPayload) error {
	if payload == nil {
		return s.send(serverMessage{Type: msgError, Error: service.MsgMalformedRing, Details: "ring is required"})
	}
	r, err := ring.Build(*payload)
	if err != nil {
		return s.send(serverMessage{Type: msgError, Error: service.MsgMalformedRing, Details: err.Error()})
	}

	s.settled = s.settled[:0]
	gen := s.engine.Load(r)
	s.controller.Bind(r, gen)
	s.running = true
	s.logger.Debug("ring loaded", "ring_id", r.ID(), "generation", gen, "nodes", r.Size())

	// trivial rings settle inside Load, before the controller is bound
	if st, ok := s.engine.Settlement(); ok {
		s.settled = s.settled[:0]
		return s.finish(st)
	}
	return s.sendFrame()
}

func (s *session) tick() error {
	frame, err := s.engine.Tick()
	if err != nil {
		if errors.Is(err, layout.ErrNoRing) {
			s.running = false
			return nil
		}
		return err
	}
	view := s.controller.Frame()
	if err := s.send(serverMessage{
		Type:       msgTick,
		RingID:     frame.RingID,
		Generation: frame.Generation,
		Tick:       frame.Tick,
		Positions:  frame.Positions,
		Frame:      &view,
	}); err != nil {
		return err
	}

	pending := s.settled
	s.settled = nil
	for _, st := range pending {
		if err := s.finish(st); err != nil {
			return err
		}
	}
	return nil
}

func (s *session) finish(st layout.Settlement) error {
	s.running = false
	s.controller.Settled(st)
	view := s.controller.Frame()
	return s.send(serverMessage{
		Type:       msgSettled,
		RingID:     st.RingID,
		Generation: st.Generation,
		Tick:       st.Ticks,
		Positions:  s.engine.Positions(),
		Settlement: &st,
		Frame:      &view,
	})
}

func (s *session) sendFrame() error {
	view := s.controller.Frame()
	return s.send(serverMessage{Type: msgFrame, Frame: &view})
}

func (s *session) send(msg serverMessage) error {
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return s.conn.WriteJSON(msg)
}

// Package monitor publishes session progress over a websocket feed and a
// Prometheus endpoint. The render thread only ever hands it events through
// non-blocking sends.
package monitor

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	jsoniter "github.com/json-iterator/go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"blossom/accumulation"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	eventBuffer  = 64
	clientBuffer = 16
	writeTimeout = time.Second
)

// Snapshot is one message of the websocket feed.
type Snapshot struct {
	Type         string             `json:"type"`
	Samples      int                `json:"samples"`
	State        accumulation.State `json:"state"`
	Phase        bool               `json:"phase"`
	Accumulating bool               `json:"accumulating"`
	ElapsedMs    int64              `json:"elapsedMs"`
	ReloadOK     *bool              `json:"reloadOk,omitempty"`
	ReloadError  string             `json:"reloadError,omitempty"`
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // local tooling connects from file:// pages
	},
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Server is the progress side channel. It implements accumulation.Observer.
type Server struct {
	log      *zap.Logger
	registry *prometheus.Registry
	metrics  *metrics

	events     chan Snapshot
	register   chan *client
	unregister chan *client
	clients    map[*client]struct{}
	latest     []byte
	done       chan struct{}

	httpServer *http.Server
}

// New returns a server that is not yet listening.
func New(logger *zap.Logger) *Server {
	reg := prometheus.NewRegistry()
	return &Server{
		log:        logger.Named("monitor"),
		registry:   reg,
		metrics:    newMetrics(reg),
		events:     make(chan Snapshot, eventBuffer),
		register:   make(chan *client),
		unregister: make(chan *client),
		clients:    make(map[*client]struct{}),
		done:       make(chan struct{}),
	}
}

// Handler serves /ws and /metrics.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	return mux
}

// Start listens on addr and runs the hub until ctx is done.
func (s *Server) Start(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.httpServer = &http.Server{Handler: s.Handler(), ReadHeaderTimeout: 5 * time.Second}
	go s.Run(ctx)
	go func() {
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Warn("monitor server exited", zap.Error(err))
		}
	}()
	s.log.Info("monitor listening", zap.String("addr", ln.Addr().String()))
	return nil
}

// Shutdown stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// Run owns the client set: it registers clients and fans snapshots out to
// them until ctx is done. Slow clients miss snapshots instead of stalling the
// hub.
func (s *Server) Run(ctx context.Context) {
	defer func() {
		close(s.done)
		for c := range s.clients {
			close(c.send)
		}
	}()
	for {
		select {
		case <-ctx.Done():
			return
		case c := <-s.register:
			s.clients[c] = struct{}{}
			if s.latest != nil {
				c.send <- s.latest
			}
		case c := <-s.unregister:
			if _, ok := s.clients[c]; ok {
				delete(s.clients, c)
				close(c.send)
			}
		case snap := <-s.events:
			msg, err := json.Marshal(snap)
			if err != nil {
				s.log.Error("encoding snapshot", zap.Error(err))
				continue
			}
			s.latest = msg
			for c := range s.clients {
				select {
				case c.send <- msg:
				default:
				}
			}
		}
	}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade", zap.Error(err))
		return
	}
	c := &client{conn: conn, send: make(chan []byte, clientBuffer)}
	select {
	case s.register <- c:
	case <-s.done:
		conn.Close()
		return
	}
	go s.writeLoop(c)

	// The feed is one-way; reading only detects the close.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	select {
	case s.unregister <- c:
	case <-s.done:
	}
}

func (s *Server) writeLoop(c *client) {
	defer c.conn.Close()
	for msg := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			s.log.Debug("websocket write", zap.Error(err))
			return
		}
	}
}

func (s *Server) publish(snap Snapshot) {
	select {
	case s.events <- snap:
	default:
		s.metrics.droppedTotal.Inc()
	}
}

func (s *Server) SampleCompleted(p accumulation.Progress) {
	s.metrics.samplesTotal.Inc()
	s.metrics.sampleCount.Set(float64(p.Samples))
	if p.Accumulating {
		s.metrics.accumulating.Set(1)
	} else {
		s.metrics.accumulating.Set(0)
	}
	s.publish(Snapshot{
		Type:         "progress",
		Samples:      p.Samples,
		State:        p.State,
		Phase:        p.Phase,
		Accumulating: p.Accumulating,
		ElapsedMs:    p.Elapsed.Milliseconds(),
	})
}

func (s *Server) Presented(int) { s.metrics.presentsTotal.Inc() }

func (s *Server) Upscaled(samples int) {
	s.metrics.upscalesTotal.Inc()
	s.publish(Snapshot{Type: "upscale", Samples: samples, State: accumulation.StateUpscale})
}

func (s *Server) Reloaded(ok bool, err error) {
	s.metrics.reloadAttempts.Inc()
	snap := Snapshot{Type: "reload", ReloadOK: &ok}
	if !ok {
		s.metrics.reloadFailures.Inc()
		if err != nil {
			snap.ReloadError = err.Error()
		}
	}
	s.publish(snap)
}

var _ accumulation.Observer = (*Server)(nil)

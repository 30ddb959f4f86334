package net

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"PanoPaint/internal/bridge"
)

const (
	writeWait  = 5 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
	sendBuffer = 256
	maxMessage = 1 << 20
)

// Peer is one connected viewer page.
type Peer struct {
	ID   string
	Addr string

	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

func (p *Peer) close() {
	p.once.Do(func() {
		close(p.send)
	})
}

// Hub serves the viewer page and keeps a websocket to every open copy of
// it. Frames go to all pages; whatever a page posts goes to Deliver.
// Hub implements bridge.Surface.
type Hub struct {
	// Deliver receives every message posted by a page.
	Deliver   func(raw []byte)
	// OnConnect, when set, runs after a page connects.
	OnConnect func(p *Peer)

	mu       sync.RWMutex
	peers    map[string]*Peer
	upgrader websocket.Upgrader
	page     []byte
}

var _ bridge.Surface = (*Hub)(nil)

// NewHub returns a hub serving a viewer page that loads the tour at
// tourURL.
func NewHub(tourURL string, deliver func(raw []byte)) (*Hub, error) {
	page, err := renderPage(tourURL)
	if err != nil {
		return nil, err
	}
	return &Hub{
		Deliver: deliver,
		peers:   make(map[string]*Peer),
		page:    page,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
	}, nil
}

// Count returns the number of connected pages.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.peers)
}

// Send queues f for every connected page. Without pages it reports
// bridge.ErrNoSurface, which the channel treats as a no-op.
func (h *Hub) Send(f bridge.Frame) error {
	data, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("encode frame: %w", err)
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	if len(h.peers) == 0 {
		return bridge.ErrNoSurface
	}
	for _, p := range h.peers {
		select {
		case p.send <- data:
		default:
			log.Printf("[HUB] %s is not keeping up, dropping frame", p.Addr)
		}
	}
	return nil
}

// Handler serves the page at / and the websocket at /ws.
func (h *Hub) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write(h.page)
	})
	mux.HandleFunc("/ws", h.serveWS)
	return mux
}

func (h *Hub) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[HUB] upgrade from %s: %v", r.RemoteAddr, err)
		return
	}
	p := &Peer{ID: uuid.NewString(), Addr: r.RemoteAddr, conn: conn, send: make(chan []byte, sendBuffer)}
	h.add(p)
	go h.writeLoop(p)
	if h.OnConnect != nil {
		h.OnConnect(p)
	}
	h.readLoop(p)
}

func (h *Hub) add(p *Peer) {
	h.mu.Lock()
	h.peers[p.ID] = p
	h.mu.Unlock()
	log.Printf("[HUB] viewer connected from %s", p.Addr)
}

func (h *Hub) remove(p *Peer) {
	h.mu.Lock()
	if _, ok := h.peers[p.ID]; ok {
		delete(h.peers, p.ID)
		p.close()
	}
	h.mu.Unlock()
	log.Printf("[HUB] viewer at %s disconnected", p.Addr)
}

func (h *Hub) readLoop(p *Peer) {
	defer func() {
		h.remove(p)
		p.conn.Close()
	}()
	p.conn.SetReadLimit(maxMessage)
	p.conn.SetReadDeadline(time.Now().Add(pongWait))
	p.conn.SetPongHandler(func(string) error {
		return p.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		_, raw, err := p.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[HUB] read from %s: %v", p.Addr, err)
			}
			return
		}
		if h.Deliver != nil {
			h.Deliver(raw)
		}
	}
}

func (h *Hub) writeLoop(p *Peer) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		p.conn.Close()
	}()
	for {
		select {
		case data, ok := <-p.send:
			p.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				p.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := p.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			p.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := p.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Close disconnects every page.
func (h *Hub) Close() {
	h.mu.Lock()
	for id, p := range h.peers {
		delete(h.peers, id)
		p.close()
	}
	h.mu.Unlock()
}

// ListenAndServe serves the hub on port until ctx is done.
func (h *Hub) ListenAndServe(ctx context.Context, port int) error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return fmt.Errorf("listen on port %d: %w", port, err)
	}
	srv := &http.Server{Handler: h.Handler(), ReadHeaderTimeout: 10 * time.Second}
	go func() {
		<-ctx.Done()
		h.Close()
		shut, cancel := context.WithTimeout(context.Background(), writeWait)
		defer cancel()
		srv.Shutdown(shut)
	}()
	log.Printf("[HUB] serving viewer on port %d", port)
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

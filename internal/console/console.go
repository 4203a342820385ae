// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package console implements the read-only diagnostics surface:
// textual "dump" commands over HTTP, and a WebSocket feed of sweep
// state transitions and trap-forward events, grounded on the teacher's
// internal/ebpf/controlplane gorilla/mux wiring pattern.
package console

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/ibfabric/osmd/internal/logging"
	"github.com/ibfabric/osmd/internal/subnet"
	"github.com/ibfabric/osmd/internal/sweep"
)

// Event is one line of the diagnostics feed streamed to WebSocket
// clients.
type Event struct {
	Kind string    `json:"kind"` // "sweep_state" | "trap_forwarded"
	Time time.Time `json:"time"`
	Data string    `json:"data"`
}

// Console serves read-only subnet dumps and an event feed. It never
// accepts a write: every handler is a GET, keeping the interactive
// shell itself out of scope.
type Console struct {
	Subnet *subnet.Subnet
	Log    *logging.Logger

	router   *mux.Router
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*websocket.Conn]chan Event
}

// New builds a Console bound to sn and wires its routes.
func New(sn *subnet.Subnet, log *logging.Logger) *Console {
	c := &Console{
		Subnet:  sn,
		Log:     log,
		router:  mux.NewRouter(),
		clients: make(map[*websocket.Conn]chan Event),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Diagnostics only, never a credentialed API; any origin may
			// open a read-only feed.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
	c.setupRoutes()
	return c
}

// Handler returns the console's http.Handler for mounting under a server.
func (c *Console) Handler() http.Handler { return c.router }

func (c *Console) setupRoutes() {
	c.router.HandleFunc("/dump/lft/{switch_id}", c.handleDumpLFT).Methods(http.MethodGet)
	c.router.HandleFunc("/dump/mcfdb", c.handleDumpMCFDB).Methods(http.MethodGet)
	c.router.HandleFunc("/dump/sa", c.handleDumpSA).Methods(http.MethodGet)
	c.router.HandleFunc("/dump/minhop", c.handleDumpMinHop).Methods(http.MethodGet)
	c.router.HandleFunc("/dump/nodenamemap", c.handleNodeNameMap).Methods(http.MethodGet)
	c.router.HandleFunc("/events", c.handleEvents).Methods(http.MethodGet)
}

func (c *Console) handleDumpLFT(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	var id int
	if _, err := fmt.Sscan(vars["switch_id"], &id); err != nil {
		http.Error(w, "invalid switch_id", http.StatusBadRequest)
		return
	}
	c.Subnet.RLock()
	defer c.Subnet.RUnlock()
	out, err := c.Subnet.DumpLFT(subnet.SwitchID(id))
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	writeText(w, out)
}

func (c *Console) handleDumpMCFDB(w http.ResponseWriter, r *http.Request) {
	c.Subnet.RLock()
	defer c.Subnet.RUnlock()
	writeText(w, c.Subnet.DumpMCFDB())
}

func (c *Console) handleDumpSA(w http.ResponseWriter, r *http.Request) {
	c.Subnet.RLock()
	defer c.Subnet.RUnlock()
	writeText(w, c.Subnet.DumpSA())
}

func (c *Console) handleDumpMinHop(w http.ResponseWriter, r *http.Request) {
	c.Subnet.RLock()
	defer c.Subnet.RUnlock()
	writeText(w, c.Subnet.DumpMinHop())
}

func (c *Console) handleNodeNameMap(w http.ResponseWriter, r *http.Request) {
	c.Subnet.RLock()
	defer c.Subnet.RUnlock()
	writeText(w, c.Subnet.NodeNameMap())
}

func (c *Console) handleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := c.upgrader.Upgrade(w, r, nil)
	if err != nil {
		if c.Log != nil {
			c.Log.Error("console: websocket upgrade failed", "err", err)
		}
		return
	}
	ch := make(chan Event, 16)
	c.mu.Lock()
	c.clients[conn] = ch
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.clients, conn)
		c.mu.Unlock()
		conn.Close()
	}()

	for ev := range ch {
		if err := conn.WriteJSON(ev); err != nil {
			return
		}
	}
}

// Broadcast pushes ev to every connected diagnostics client, dropping it
// for any client whose outbound buffer is full rather than blocking the
// sweeper or trap engine.
func (c *Console) Broadcast(ev Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, ch := range c.clients {
		select {
		case ch <- ev:
		default:
		}
	}
}

// WatchSweep wires o's state-change notifications into the event feed.
func (c *Console) WatchSweep(o *sweep.Orchestrator) {
	o.OnStateChange = func(s sweep.State) {
		c.Broadcast(Event{Kind: "sweep_state", Time: time.Now(), Data: s.String()})
	}
}

// NotifyTrapForwarded records a trap-forward event on the feed.
func (c *Console) NotifyTrapForwarded(rid string) {
	c.Broadcast(Event{Kind: "trap_forwarded", Time: time.Now(), Data: rid})
}

// Shutdown closes every connected client's channel, used on process exit.
func (c *Console) Shutdown(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for conn, ch := range c.clients {
		close(ch)
		conn.Close()
	}
	c.clients = make(map[*websocket.Conn]chan Event)
}

func writeText(w http.ResponseWriter, s string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte(s))
}

// Package adminserver exposes a JSON HTTP API and a live WebSocket
// event stream for observing and inspecting a running switch: its port
// table, MAC learning table, and spanning-tree state.
//
// The reference implementation has no admin surface at all; this
// package is a supplemental feature (see SPEC_FULL.md) built the way
// this codebase's ambient stack builds every other server: gorilla/mux
// for routing, served over h2c so gRPC-shaped clients and plain HTTP/1.1
// clients (switchctl, curl) both work without TLS in development, and
// a JWT bearer-token gate in front of every /api/v1 route (/healthz is
// never gated).
package adminserver

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/l2bridge/goswitch/internal/mactable"
	"github.com/l2bridge/goswitch/internal/ports"
	"github.com/l2bridge/goswitch/internal/stp"
)

// View is the read-only surface of a running switch this server
// exposes. The composition root implements it by wiring in the real
// Registry, mactable.Table, and stp.Engine.
type View interface {
	Registry() *ports.Registry
	MACTable() *mactable.Table
	STP() *stp.Engine
}

// Server is the admin HTTP server.
type Server struct {
	handler  http.Handler
	upgrader websocket.Upgrader
	view     View
	logger   *slog.Logger
}

// New builds an admin Server. jwtSecret may be empty to disable
// authentication (see config.AdminConfig.Dev).
func New(view View, jwtSecret string, logger *slog.Logger) *Server {
	s := &Server{
		view:     view,
		logger:   logger.With(slog.String("component", "adminserver")),
		upgrader: websocket.Upgrader{ReadBufferSize: 1024, WriteBufferSize: 1024},
	}

	r := mux.NewRouter()
	r.Use(loggingMiddleware(s.logger))
	r.Use(recoveryMiddleware(s.logger))

	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(jwtMiddleware(jwtSecret))
	api.HandleFunc("/ports", s.handlePorts).Methods(http.MethodGet)
	api.HandleFunc("/mactable", s.handleMACTable).Methods(http.MethodGet)
	api.HandleFunc("/stp", s.handleSTP).Methods(http.MethodGet)
	api.HandleFunc("/events", s.handleEvents)

	r.HandleFunc("/healthz", s.handleHealthz).Methods(http.MethodGet)

	s.handler = r
	return s
}

// Handler returns the h2c-wrapped HTTP handler, suitable for
// http.Server.Handler.
func (s *Server) Handler() http.Handler {
	return h2c.NewHandler(s.handler, &http2.Server{})
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// portView is the JSON shape of one registered interface.
type portView struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Kind  string `json:"kind"`
	VLAN  uint16 `json:"vlan,omitempty"`
	State string `json:"stp_state,omitempty"`
}

func (s *Server) handlePorts(w http.ResponseWriter, _ *http.Request) {
	reg := s.view.Registry()
	stpEngine := s.view.STP()

	out := make([]portView, 0, len(reg.All()))
	for _, p := range reg.All() {
		pv := portView{ID: p.ID, Name: p.Name, Kind: p.Kind.String(), VLAN: p.VLAN}
		if p.Kind == ports.Trunk {
			if st, ok := stpEngine.TrunkState(p.Name); ok {
				pv.State = st.String()
			}
		}
		out = append(out, pv)
	}
	writeJSON(w, http.StatusOK, out)
}

type macEntryView struct {
	MAC       string `json:"mac"`
	Interface string `json:"interface"`
}

func (s *Server) handleMACTable(w http.ResponseWriter, _ *http.Request) {
	snap := s.view.MACTable().Snapshot()
	out := make([]macEntryView, 0, len(snap))
	for mac, iface := range snap {
		out = append(out, macEntryView{MAC: mac.String(), Interface: iface})
	}
	writeJSON(w, http.StatusOK, out)
}

type stpView struct {
	OwnBridgeID  uint32            `json:"own_bridge_id"`
	RootBridgeID uint32            `json:"root_bridge_id"`
	RootPathCost uint32            `json:"root_path_cost"`
	RootPort     string            `json:"root_port,omitempty"`
	IsRoot       bool              `json:"is_root"`
	Trunks       map[string]string `json:"trunks"`
}

func (s *Server) handleSTP(w http.ResponseWriter, _ *http.Request) {
	snap := s.view.STP().Snapshot()
	trunks := make(map[string]string, len(snap.TrunkState))
	for name, state := range snap.TrunkState {
		trunks[name] = state.String()
	}
	writeJSON(w, http.StatusOK, stpView{
		OwnBridgeID:  snap.OwnBridgeID,
		RootBridgeID: snap.RootBridgeID,
		RootPathCost: snap.RootPathCost,
		RootPort:     snap.RootPort,
		IsRoot:       snap.OwnBridgeID == snap.RootBridgeID,
		Trunks:       trunks,
	})
}

// transitionEvent is the JSON shape pushed to websocket subscribers for
// every stp.Transition.
type transitionEvent struct {
	Trunk    string `json:"trunk"`
	State    string `json:"state"`
	RootID   uint32 `json:"root_bridge_id"`
	RootCost uint32 `json:"root_path_cost"`
	RootPort string `json:"root_port,omitempty"`
}

// handleEvents upgrades the connection to a WebSocket and streams every
// stp.Transition as JSON until the client disconnects or the request
// context is cancelled.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", slog.Any("err", err))
		return
	}
	defer conn.Close()

	transitions := s.view.STP().Transitions()
	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case t, ok := <-transitions:
			if !ok {
				return
			}
			ev := transitionEvent{
				Trunk:    t.Trunk,
				State:    t.State.String(),
				RootID:   t.RootID,
				RootCost: t.RootCost,
				RootPort: t.RootPort,
			}
			conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
			if err := conn.WriteJSON(ev); err != nil {
				s.logger.Debug("websocket write failed, closing", slog.Any("err", err))
				return
			}
		}
	}
}

type errorBody struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, err error) {
	msg := "unauthorized"
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorBody{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// BPDUs never pass through this API -- they are addressed to the
// bridge-group multicast address and consumed entirely by the STP
// engine, never reaching an ingress path this package observes.

package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/xiaomi-sm6250/powerhal/internal/logger"
	"github.com/xiaomi-sm6250/powerhal/internal/modeext"
	"github.com/xiaomi-sm6250/powerhal/internal/power"
	"github.com/xiaomi-sm6250/powerhal/internal/protocol"
)

const (
	pingInterval  = 20 * time.Second
	writeTimeout  = 10 * time.Second
	writeChanSize = 64
)

// Dispatcher is the hint side of the HAL.
type Dispatcher interface {
	Ready() bool
	SustainedPerfMode() bool
	UpdateHint(name string, enable bool)
	SetInteractive(interactive bool)
	PowerHintAsync(h power.Hint, data int32)
	PowerHintAsync12(h power.Hint, data int32)
	PowerHintAsync13(h power.Hint, data int32)
	SetFeature(f power.Feature, activate bool)
	GetPlatformLowPowerStats() ([]power.PlatformSleepState, power.Status)
	GetSubsystemLowPowerStats() ([]power.SubsystemStats, power.Status)
}

// ModeToggler is the mode side of the HAL.
type ModeToggler interface {
	IsModeSupported(m modeext.Mode) bool
	SetMode(m modeext.Mode, enabled bool) bool
}

// Server exposes the HAL over a local WebSocket endpoint.
type Server struct {
	power    Dispatcher
	modes    ModeToggler
	path     string
	upgrader websocket.Upgrader

	httpSrv *http.Server

	mu    sync.Mutex
	conns map[*websocket.Conn]struct{}
}

// New creates a Server answering on path.
func New(p Dispatcher, modes ModeToggler, path string) *Server {
	s := &Server{
		power: p,
		modes: modes,
		path:  path,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
		conns: make(map[*websocket.Conn]struct{}),
	}
	s.httpSrv = &http.Server{Handler: s.Handler(), ReadHeaderTimeout: 5 * time.Second}
	return s
}

// Handler returns the HTTP handler serving the WebSocket endpoint.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(s.path, s.serveWS)
	return mux
}

// Serve accepts connections on l until Shutdown. It returns at once if
// Shutdown was already called.
func (s *Server) Serve(l net.Listener) error {
	if err := s.httpSrv.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting connections and closes open ones.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	for c := range s.conns {
		c.Close()
	}
	s.mu.Unlock()
	return s.httpSrv.Shutdown(ctx)
}

func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warnf("server: upgrade failed: %v", err)
		return
	}
	s.mu.Lock()
	s.conns[conn] = struct{}{}
	s.mu.Unlock()
	logger.Debugf("server: client %s connected", conn.RemoteAddr())

	writeCh := make(chan protocol.Response, writeChanSize)
	writeDone := make(chan struct{})
	go s.writeLoop(conn, writeCh, writeDone)

	defer func() {
		close(writeDone)
		conn.Close()
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
		logger.Debugf("server: client %s disconnected", conn.RemoteAddr())
	}()

	// Single reader; requests are handled in arrival order.
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var req protocol.Request
		if err := json.Unmarshal(raw, &req); err != nil {
			logger.Warnf("server: invalid message: %v", err)
			continue
		}

		resp := s.Handle(req)
		select {
		case writeCh <- resp:
		case <-time.After(writeTimeout):
			logger.Warnf("server: dropping %s response, writer stalled", resp.Type)
		}
	}
}

// writeLoop is the single goroutine that writes to conn.
func (s *Server) writeLoop(conn *websocket.Conn, ch <-chan protocol.Response, done <-chan struct{}) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				return
			}
		case msg := <-ch:
			_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteJSON(msg); err != nil {
				logger.Warnf("server: write error: %v", err)
				return
			}
		}
	}
}

// Handle executes one request and returns its acknowledgement.
func (s *Server) Handle(req protocol.Request) protocol.Response {
	switch req.Type {
	case protocol.TypePing:
		return protocol.NewResponse(req, true, nil)
	case protocol.TypeStatus:
		return protocol.NewResponse(req, true, protocol.StatusResult{
			Ready:         s.power.Ready(),
			SustainedPerf: s.power.SustainedPerfMode(),
		})
	case protocol.TypeSetInteractive:
		return s.handleSetInteractive(req)
	case protocol.TypeUpdateHint:
		return s.handleUpdateHint(req)
	case protocol.TypePowerHint:
		return s.handlePowerHint(req)
	case protocol.TypeSetFeature:
		return s.handleSetFeature(req)
	case protocol.TypeGetPlatformLowPowerStats:
		states, status := s.power.GetPlatformLowPowerStats()
		return protocol.NewResponse(req, true, protocol.StatsResult{Status: int32(status), States: states})
	case protocol.TypeGetSubsystemLowPowerStats:
		states, status := s.power.GetSubsystemLowPowerStats()
		return protocol.NewResponse(req, true, protocol.StatsResult{Status: int32(status), States: states})
	case protocol.TypeIsModeSupported:
		return s.handleIsModeSupported(req)
	case protocol.TypeSetMode:
		return s.handleSetMode(req)
	default:
		return protocol.ErrorResponse(req, fmt.Errorf("unknown request type: %s", req.Type))
	}
}

func decode(req protocol.Request, v interface{}) error {
	if len(req.Payload) == 0 {
		return fmt.Errorf("%s: missing payload", req.Type)
	}
	if err := json.Unmarshal(req.Payload, v); err != nil {
		return fmt.Errorf("%s: %w", req.Type, err)
	}
	return nil
}

func (s *Server) handleSetInteractive(req protocol.Request) protocol.Response {
	var p protocol.SetInteractivePayload
	if err := decode(req, &p); err != nil {
		return protocol.ErrorResponse(req, err)
	}
	s.power.SetInteractive(p.Interactive)
	return protocol.NewResponse(req, true, nil)
}

func (s *Server) handleUpdateHint(req protocol.Request) protocol.Response {
	var p protocol.UpdateHintPayload
	if err := decode(req, &p); err != nil {
		return protocol.ErrorResponse(req, err)
	}
	if p.Name == "" {
		return protocol.ErrorResponse(req, fmt.Errorf("update_hint: name is required"))
	}
	s.power.UpdateHint(p.Name, p.Enable)
	return protocol.NewResponse(req, true, nil)
}

func (s *Server) handlePowerHint(req protocol.Request) protocol.Response {
	var p protocol.PowerHintPayload
	if err := decode(req, &p); err != nil {
		return protocol.ErrorResponse(req, err)
	}
	h, err := power.ParseHint(string(p.Hint))
	if err != nil {
		return protocol.ErrorResponse(req, err)
	}
	switch p.Version {
	case protocol.Version10:
		s.power.PowerHintAsync(h, p.Data)
	case protocol.Version12:
		s.power.PowerHintAsync12(h, p.Data)
	case "", protocol.Version13:
		s.power.PowerHintAsync13(h, p.Data)
	default:
		return protocol.ErrorResponse(req, fmt.Errorf("power_hint: unsupported version %q", p.Version))
	}
	return protocol.NewResponse(req, true, nil)
}

func (s *Server) handleSetFeature(req protocol.Request) protocol.Response {
	var p protocol.SetFeaturePayload
	if err := decode(req, &p); err != nil {
		return protocol.ErrorResponse(req, err)
	}
	f, err := power.ParseFeature(string(p.Feature))
	if err != nil {
		return protocol.ErrorResponse(req, err)
	}
	s.power.SetFeature(f, p.Activate)
	return protocol.NewResponse(req, true, nil)
}

func (s *Server) handleIsModeSupported(req protocol.Request) protocol.Response {
	var p protocol.ModePayload
	if err := decode(req, &p); err != nil {
		return protocol.ErrorResponse(req, err)
	}
	m, err := modeext.ParseMode(string(p.Mode))
	if err != nil {
		return protocol.ErrorResponse(req, err)
	}
	return protocol.NewResponse(req, true, protocol.ModeResult{
		Mode:      m.String(),
		Supported: s.modes.IsModeSupported(m),
	})
}

func (s *Server) handleSetMode(req protocol.Request) protocol.Response {
	var p protocol.ModePayload
	if err := decode(req, &p); err != nil {
		return protocol.ErrorResponse(req, err)
	}
	m, err := modeext.ParseMode(string(p.Mode))
	if err != nil {
		return protocol.ErrorResponse(req, err)
	}
	handled := s.modes.SetMode(m, p.Enabled)
	return protocol.NewResponse(req, handled, protocol.ModeResult{Mode: m.String(), Handled: handled})
}

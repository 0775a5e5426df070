// Package server exposes the manager over a WebSocket JSON command channel.
// This is the boundary the UI shell talks to; no UI state lives here.
package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/lumisync/lumisync/internal/device"
	"github.com/lumisync/lumisync/internal/manager"
)

type Server struct {
	mgr      *manager.Manager
	start    time.Time
	upgrader websocket.Upgrader
}

func New(mgr *manager.Manager) *Server {
	return &Server{
		mgr:   mgr,
		start: time.Now(),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Routes returns the HTTP mux: /ws for commands, /health for liveness.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.HandleControlWS)
	mux.HandleFunc("/health", s.HandleHealth)
	return mux
}

func (s *Server) ListenAndServe(addr string) error {
	log.Info().Str("addr", addr).Msg("command server listening")
	return http.ListenAndServe(addr, s.Routes())
}

type request struct {
	ID         string          `json:"id,omitempty"`
	Cmd        string          `json:"cmd"`
	Port       string          `json:"port,omitempty"`
	EffectID   string          `json:"effect_id,omitempty"`
	Brightness *uint8          `json:"brightness,omitempty"`
	Params     json.RawMessage `json:"params,omitempty"`
}

type response struct {
	ID    string `json:"id,omitempty"`
	Cmd   string `json:"cmd"`
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
	Data  any    `json:"data,omitempty"`
}

func (s *Server) HandleControlWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var req request
		if err := json.Unmarshal(data, &req); err != nil {
			log.Debug().Err(err).Msg("bad command payload")
			continue
		}

		resp := s.dispatch(req)
		conn.SetWriteDeadline(time.Now().Add(time.Second))
		if err := conn.WriteJSON(resp); err != nil {
			return
		}
	}
}

func (s *Server) dispatch(req request) response {
	resp := response{ID: req.ID, Cmd: req.Cmd, OK: true}

	switch req.Cmd {
	case "scan_devices":
		resp.Data = s.mgr.ScanDevices()
	case "list_effects":
		resp.Data = effectCatalog(s.mgr.ListEffects())
	case "start_effect":
		if err := s.mgr.StartEffect(req.Port, req.EffectID); err != nil {
			return fail(resp, err)
		}
	case "stop_effect":
		if err := s.mgr.StopEffect(req.Port); err != nil {
			return fail(resp, err)
		}
	case "update_effect_params":
		if err := s.mgr.UpdateEffectParams(req.Port, req.Params); err != nil {
			return fail(resp, err)
		}
	case "set_brightness":
		if req.Brightness == nil {
			resp.OK = false
			resp.Error = "missing brightness"
			return resp
		}
		if err := s.mgr.SetBrightness(req.Port, *req.Brightness); err != nil {
			return fail(resp, err)
		}
	default:
		resp.OK = false
		resp.Error = "unknown command: " + req.Cmd
	}
	return resp
}

func fail(resp response, err error) response {
	resp.OK = false
	resp.Error = err.Error()
	return resp
}

type effectEntry struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Description string       `json:"description,omitempty"`
	Group       string       `json:"group,omitempty"`
	Icon        string       `json:"icon,omitempty"`
	Params      []paramEntry `json:"params,omitempty"`
}

type paramEntry struct {
	device.Param
	Options []device.SelectOption `json:"options,omitempty"`
}

// effectCatalog projects registry entries for the wire, resolving dynamic
// select options at list time.
func effectCatalog(infos []device.EffectInfo) []effectEntry {
	out := make([]effectEntry, 0, len(infos))
	for _, info := range infos {
		entry := effectEntry{
			ID:          info.ID,
			Name:        info.Name,
			Description: info.Description,
			Group:       info.Group,
			Icon:        info.Icon,
		}
		for _, p := range info.Params {
			pe := paramEntry{Param: p, Options: p.Options}
			if p.LoadOptions != nil {
				opts, err := p.LoadOptions()
				if err != nil {
					log.Debug().Err(err).Str("effect", info.ID).Str("param", p.Key).Msg("option load failed")
				} else {
					pe.Options = opts
				}
			}
			entry.Params = append(entry.Params, pe)
		}
		out = append(out, entry)
	}
	return out
}

func (s *Server) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	resp := map[string]any{
		"uptime_s": time.Since(s.start).Seconds(),
		"devices":  len(s.mgr.Devices()),
	}
	_ = json.NewEncoder(w).Encode(resp)
}

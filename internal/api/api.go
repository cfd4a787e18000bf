package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/jahartley/rv-hvac-controller/internal/controller"
	"github.com/jahartley/rv-hvac-controller/internal/model"
	"github.com/jahartley/rv-hvac-controller/internal/store"
)

// Server exposes the supervisor over REST for the coach touchscreen and
// remote app. All writes go through the controller's setters; the server
// never touches actuators.
type Server struct {
	ctrl *controller.Controller
	db   *store.Store
}

type ModeRequest struct {
	Mode string `json:"mode"`
}

type SetpointRequest struct {
	Setpoint int `json:"setpoint"`
}

type TemperatureRequest struct {
	Temperature int `json:"temperature"`
}

type EnabledRequest struct {
	Enabled bool `json:"enabled"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

// NewServer wires the API to the controller. The store may be nil; settings
// then simply do not survive restarts.
func NewServer(ctrl *controller.Controller, db *store.Store) *Server {
	return &Server{ctrl: ctrl, db: db}
}

func (s *Server) Start(port int) error {
	mux := s.Handler()

	// CORS wrapper for the browser-based touchscreen UI
	corsHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		mux.ServeHTTP(w, r)
	})

	addr := fmt.Sprintf("0.0.0.0:%d", port)
	log.Info().Str("address", addr).Msg("Starting REST API server")

	return http.ListenAndServe(addr, corsHandler)
}

// Handler returns the routing handler without binding a listener.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/api/system/mode", s.handleSystemMode)
	mux.HandleFunc("/api/system/fan", s.handleFanMode)
	mux.HandleFunc("/api/setpoints/heat", s.handleHeatSetpoint)
	mux.HandleFunc("/api/setpoints/cool", s.handleCoolSetpoint)
	mux.HandleFunc("/api/temperature", s.handleTemperature)
	mux.HandleFunc("/api/devices/", s.handleDeviceOperations)
	return mux
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	s.writeJSON(w, http.StatusOK, s.ctrl.Status())
}

func (s *Server) handleSystemMode(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.writeJSON(w, http.StatusOK, ModeRequest{Mode: s.ctrl.Mode().String()})
	case http.MethodPut:
		var req ModeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.writeError(w, http.StatusBadRequest, "Invalid JSON payload")
			return
		}
		mode, err := model.ParseSystemMode(req.Mode)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "Invalid system mode. Valid modes: off, cool, heat, auto")
			return
		}
		s.ctrl.SetSystemMode(mode)
		s.persistSettings()
		log.Info().Str("mode", req.Mode).Msg("System mode updated via API")
		w.WriteHeader(http.StatusOK)
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

func (s *Server) handleFanMode(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.writeJSON(w, http.StatusOK, ModeRequest{Mode: s.ctrl.FanMode().String()})
	case http.MethodPut:
		var req ModeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.writeError(w, http.StatusBadRequest, "Invalid JSON payload")
			return
		}
		mode, err := model.ParseFanMode(req.Mode)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "Invalid fan mode. Valid modes: auto, low, high, circulate")
			return
		}
		s.ctrl.SetFanMode(mode)
		s.persistSettings()
		log.Info().Str("fan_mode", req.Mode).Msg("Fan mode updated via API")
		w.WriteHeader(http.StatusOK)
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

func (s *Server) handleHeatSetpoint(w http.ResponseWriter, r *http.Request) {
	s.handleSetpoint(w, r, s.ctrl.SetHeatSetpoint)
}

func (s *Server) handleCoolSetpoint(w http.ResponseWriter, r *http.Request) {
	s.handleSetpoint(w, r, s.ctrl.SetCoolSetpoint)
}

func (s *Server) handleSetpoint(w http.ResponseWriter, r *http.Request, set func(int) bool) {
	if r.Method != http.MethodPut {
		s.writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	var req SetpointRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid JSON payload")
		return
	}
	if !set(req.Setpoint) {
		s.writeError(w, http.StatusUnprocessableEntity, "Setpoint rejected: heating and cooling setpoints must stay at least 2 degrees apart")
		return
	}
	s.persistSettings()
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleTemperature(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		s.writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	var req TemperatureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid JSON payload")
		return
	}
	s.ctrl.SetTemperature(req.Temperature)
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleDeviceOperations(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/devices/")
	parts := strings.Split(path, "/")

	if len(parts) != 2 || parts[0] == "" || parts[1] != "enabled" {
		s.writeError(w, http.StatusNotFound, "Unknown device operation")
		return
	}
	if r.Method != http.MethodPut {
		s.writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	item, err := model.ParseHardwareItem(parts[0])
	if err != nil {
		s.writeError(w, http.StatusNotFound, "Unknown device")
		return
	}

	var req EnabledRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid JSON payload")
		return
	}

	s.ctrl.SetEnabled(item, req.Enabled)
	if s.db != nil {
		if err := s.db.SaveDevice(item.String(), store.DeviceState{
			Enabled:    req.Enabled,
			RunSeconds: s.ctrl.RunTimeSeconds(item),
		}); err != nil {
			log.Error().Err(err).Stringer("device", item).Msg("Failed to persist device state")
		}
	}
	log.Info().Stringer("device", item).Bool("enabled", req.Enabled).Msg("Device enabled flag updated via API")
	w.WriteHeader(http.StatusOK)
}

func (s *Server) persistSettings() {
	if s.db == nil {
		return
	}
	err := s.db.SaveSettings(store.Settings{
		SystemMode:   s.ctrl.Mode(),
		FanMode:      s.ctrl.FanMode(),
		HeatSetpoint: s.ctrl.HeatSetpoint(),
		CoolSetpoint: s.ctrl.CoolSetpoint(),
	})
	if err != nil {
		log.Error().Err(err).Msg("Failed to persist settings")
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, ErrorResponse{Error: msg})
}

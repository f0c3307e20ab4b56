package api

import (
	"encoding/json"
	"net/http"
	"time"

	coreerrors "lanlink-core/internal/core/errors"
	"lanlink-core/internal/health"
	"lanlink-core/internal/session"
	"lanlink-core/internal/version"
)

// SessionView GET /session 的返回
type SessionView struct {
	session.State
	Identity *session.Identity `json:"identity,omitempty"`
}

// handleHealth 任一组件 unhealthy 时返回 503
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	body := map[string]interface{}{
		"status":  health.ComponentStatusHealthy,
		"version": version.Version,
		"uptime":  time.Since(s.started).Round(time.Second).String(),
		"state":   s.session.State().Connection,
	}
	code := http.StatusOK
	if s.config.Health != nil {
		report := s.config.Health.Check(r.Context())
		body["status"] = report.Status
		body["components"] = report.Components
		if report.Status == health.ComponentStatusUnhealthy {
			code = http.StatusServiceUnavailable
		}
	}
	respondJSON(w, code, body)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	view := SessionView{State: s.session.State()}
	if id, ok := s.session.Identity(); ok {
		view.Identity = &id
	}
	respondJSON(w, http.StatusOK, view)
}

func (s *Server) handleGetPeers(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.session.State().Peers)
}

func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	var req session.ConnectOptions
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, coreerrors.CodeInvalidParam, "invalid request body: "+err.Error())
		return
	}
	if err := s.session.Connect(r.Context(), req); err != nil {
		s.logger.Warnf("connect room %q failed: %v", req.RoomName, err)
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, s.session.State())
}

// handleDisconnect 停止失败时本地状态仍已清理，返回 200 并附带警告
func (s *Server) handleDisconnect(w http.ResponseWriter, r *http.Request) {
	err := s.session.Disconnect(r.Context())
	if err != nil && !coreerrors.IsCode(err, coreerrors.CodeStopFailed) {
		respondErr(w, err)
		return
	}
	data := map[string]interface{}{"state": s.session.State()}
	if err != nil {
		data["warning"] = coreerrors.Message(err)
	}
	respondJSON(w, http.StatusOK, data)
}

func (s *Server) handleClearError(w http.ResponseWriter, r *http.Request) {
	s.session.ClearError()
	respondJSON(w, http.StatusOK, s.session.State())
}

func (s *Server) handleDiagnostics(w http.ResponseWriter, r *http.Request) {
	if s.config.Diagnostics == nil {
		respondError(w, http.StatusNotImplemented, coreerrors.CodeNotSupported, "diagnostics not available")
		return
	}
	if st := s.session.State().Connection; st != session.StateDisconnected && st != session.StateError {
		respondError(w, http.StatusConflict, coreerrors.CodeInvalidState, "diagnostics stop all instances, disconnect first")
		return
	}
	if !s.diagMu.TryLock() {
		respondError(w, http.StatusConflict, coreerrors.CodeInvalidState, "diagnostics already running")
		return
	}
	defer s.diagMu.Unlock()

	respondJSON(w, http.StatusOK, s.config.Diagnostics(r.Context()))
}

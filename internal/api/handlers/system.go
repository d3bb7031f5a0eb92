package handlers

import (
	"net/http"
	"time"

	"github.com/atalaya-security/riskguard/internal/api"
	"github.com/atalaya-security/riskguard/internal/knowledge"
)

type StatsProvider interface {
	Stats() knowledge.ServiceStats
	State() knowledge.State
}

type SystemHandler struct {
	svc       StatsProvider
	version   string
	startedAt time.Time
}

func NewSystemHandler(svc StatsProvider, version string) *SystemHandler {
	return &SystemHandler{svc: svc, version: version, startedAt: time.Now()}
}

type SystemStatsResponse struct {
	Version       string                 `json:"version"`
	UptimeSeconds int64                  `json:"uptime_seconds"`
	ServiceState  string                 `json:"service_state"`
	Knowledge     knowledge.ServiceStats `json:"knowledge"`
}

func (h *SystemHandler) Stats(w http.ResponseWriter, r *http.Request) {
	api.Success(w, http.StatusOK, SystemStatsResponse{
		Version:       h.version,
		UptimeSeconds: int64(time.Since(h.startedAt).Seconds()),
		ServiceState:  string(h.svc.State()),
		Knowledge:     h.svc.Stats(),
	})
}

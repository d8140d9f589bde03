package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/scanwatch/dispatch-engine/internal/config"
)

// ConfigView is the redacted, read-only projection of config.Config exposed
// at /api/config (§6 "Configuration (recognized options)"). Secrets
// (WhisperAPIKey, DatabaseURL) are never included.
type ConfigView struct {
	ScannerSystems    []string `json:"scannerSystems"`
	ScannerTalkgroups []string `json:"scannerTalkgroups"`

	TranscriptionProvider    string `json:"transcriptionProvider"`
	TranscriptionConcurrency int    `json:"transcriptionConcurrency"`

	GeocoderPrimary         string `json:"geocoderPrimary"`
	GeocoderFallback        string `json:"geocoderFallback"`
	GeocoderCacheTTLSeconds int    `json:"geocoderCacheTtlSeconds"`

	AlertsScanIntervalSeconds int `json:"alertsScanIntervalSeconds"`

	HospitalTalkgroups       []int `json:"hospitalTalkgroups"`
	HospitalWindowSeconds    int   `json:"hospitalWindowSeconds"`
	HospitalCloseIdleSeconds int   `json:"hospitalCloseIdleSeconds"`

	LinkerWindowSeconds int `json:"linkerWindowSeconds"`

	LiveHubHeartbeatSeconds int `json:"liveHubHeartbeatSeconds"`
}

// ConfigHandler serves /api/config/… (§6).
type ConfigHandler struct {
	cfg *config.Config
}

func NewConfigHandler(cfg *config.Config) *ConfigHandler {
	return &ConfigHandler{cfg: cfg}
}

func (h *ConfigHandler) Routes(r chi.Router) {
	r.Get("/config", h.Get)
}

func (h *ConfigHandler) Get(w http.ResponseWriter, r *http.Request) {
	talkgroups := make([]int, 0, len(h.cfg.HospitalTalkgroupSet()))
	for tg := range h.cfg.HospitalTalkgroupSet() {
		talkgroups = append(talkgroups, tg)
	}

	WriteJSON(w, http.StatusOK, ConfigView{
		ScannerSystems:            h.cfg.ScannerSystemList(),
		ScannerTalkgroups:         h.cfg.ScannerTalkgroupList(),
		TranscriptionProvider:     h.cfg.TranscriptionProvider,
		TranscriptionConcurrency:  h.cfg.TranscriptionConcurrency,
		GeocoderPrimary:           h.cfg.GeocoderPrimary,
		GeocoderFallback:          h.cfg.GeocoderFallback,
		GeocoderCacheTTLSeconds:   h.cfg.GeocoderCacheTTLSeconds,
		AlertsScanIntervalSeconds: h.cfg.AlertsScanIntervalSeconds,
		HospitalTalkgroups:        talkgroups,
		HospitalWindowSeconds:     h.cfg.HospitalWindowSeconds,
		HospitalCloseIdleSeconds:  h.cfg.HospitalCloseIdleSeconds,
		LinkerWindowSeconds:       h.cfg.LinkerWindowSeconds,
		LiveHubHeartbeatSeconds:   h.cfg.LiveHubHeartbeatSeconds,
	})
}

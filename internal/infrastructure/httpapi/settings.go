package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/Sangdi-IT/yq-monitor/internal/usecase"
)

type settingsDTO struct {
	ClickIntervalMs int    `json:"clickIntervalMs"`
	URLKeyword      string `json:"urlKeyword"`
	TargetURL       string `json:"targetUrl"`
}

// handleV1Settings reads and updates runtime settings. Only the click interval is writable.
func (d *Deps) handleV1Settings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, d.currentSettings())
	case http.MethodPost:
		var in struct {
			ClickIntervalMs *int `json:"clickIntervalMs"`
		}
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			writeError(w, http.StatusBadRequest, "BAD_JSON", "invalid json", nil)
			return
		}
		if in.ClickIntervalMs != nil {
			if err := d.Svc.SetClickIntervalMs(*in.ClickIntervalMs); err != nil {
				writeError(w, http.StatusBadRequest, "BAD_VALUE", "clickIntervalMs must be between 1 and 3600000", map[string]any{"clickIntervalMs": *in.ClickIntervalMs, "max": usecase.MaxClickIntervalMs})
				return
			}
			d.Logger.Info().Int("clickIntervalMs", *in.ClickIntervalMs).Msg("click interval updated")
		}
		writeJSON(w, http.StatusOK, d.currentSettings())
	default:
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "use GET/POST", nil)
	}
}

func (d *Deps) currentSettings() settingsDTO {
	return settingsDTO{
		ClickIntervalMs: d.Svc.ClickIntervalMs(),
		URLKeyword:      d.Cfg.URLKeyword,
		TargetURL:       d.Cfg.TargetURL,
	}
}

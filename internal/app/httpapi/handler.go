package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	app "github.com/nexboard/module_layer/internal/app"
	"github.com/nexboard/module_layer/internal/app/services/resolver"
	"github.com/nexboard/module_layer/internal/app/storage"
	"github.com/nexboard/module_layer/pkg/logger"
)

// handler bundles HTTP endpoints for the module-layer services.
type handler struct {
	app *app.Application
	log *logger.Logger
}

// NewHandler returns a mux exposing the module-layer REST API.
func NewHandler(application *app.Application, log *logger.Logger) http.Handler {
	if log == nil {
		log = logger.NewDefault("httpapi")
	}
	h := &handler{app: application, log: log}
	mux := http.NewServeMux()
	mux.HandleFunc("/health", h.health)
	mux.HandleFunc("/api/admin/modules/implementations/all", h.adminImplementations)
	mux.HandleFunc("/api/admin/modules/organizations", h.adminOrganizations)
	mux.HandleFunc("/api/admin/modules/stats", h.adminStats)
	mux.HandleFunc("/api/admin/maintenance", h.adminMaintenance)
	mux.HandleFunc("/api/system/maintenance-status", h.maintenanceStatus)
	mux.HandleFunc("/api/organizations/", h.organizationResources)
	return mux
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// adminImplementations lists every implementation in the catalog, ordered by
// (base_module_id, implementation_key).
func (h *handler) adminImplementations(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	impls, err := h.app.Registry.ListAll(r.Context())
	if err != nil {
		h.log.WithError(err).Error("list implementations")
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"success": false,
			"error":   err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"data":    impls,
	})
}

// adminOrganizations folds the assignment store over every organization.
func (h *handler) adminOrganizations(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, errMethodNotAllowed)
		return
	}

	orgs, err := h.app.Assignments.ListAll(r.Context())
	if err != nil {
		h.log.WithError(err).Error("list organization assignments")
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, orgs)
}

// adminStats serves catalog statistics, cached for a few seconds.
func (h *handler) adminStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, errMethodNotAllowed)
		return
	}

	stats, err := h.app.Registry.Stats(r.Context())
	if err != nil {
		h.log.WithError(err).Error("registry stats")
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// adminMaintenance toggles maintenance mode: POST enables, DELETE disables.
func (h *handler) adminMaintenance(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var payload struct {
			Reason string `json:"reason"`
		}
		if r.Body != nil && r.ContentLength != 0 {
			if err := decodeJSON(r.Body, &payload); err != nil {
				writeError(w, http.StatusBadRequest, err)
				return
			}
		}
		if err := h.app.Maintenance.Enable(r.Context(), payload.Reason); err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true})

	case http.MethodDelete:
		if err := h.app.Maintenance.Disable(r.Context()); err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true})

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// maintenanceStatus reports the gate state. The gate fails open, and so does
// this handler: any internal failure still answers 200 with inMaintenance
// false, so the status probe can never take tenants down with it.
func (h *handler) maintenanceStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	status := h.app.Maintenance.CheckStatus(r.Context())
	resp := struct {
		InMaintenance bool   `json:"inMaintenance"`
		Reason        string `json:"reason,omitempty"`
	}{
		InMaintenance: status.InMaintenance,
		Reason:        status.Reason,
	}
	writeJSON(w, http.StatusOK, resp)
}

// organizationResources serves /api/organizations/{id}/modules[/{baseModuleID}].
func (h *handler) organizationResources(w http.ResponseWriter, r *http.Request) {
	trimmed := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/organizations"), "/")
	parts := strings.Split(trimmed, "/")
	if len(parts) == 0 || parts[0] == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	organizationID := parts[0]

	if len(parts) < 2 || parts[1] != "modules" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	switch len(parts) {
	case 2:
		resolved, err := h.app.Resolver.ResolveAll(r.Context(), organizationID)
		if err != nil {
			h.writeResolveError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, resolved)
	case 3:
		resolved, err := h.app.Resolver.Resolve(r.Context(), organizationID, parts[2])
		if err != nil {
			h.writeResolveError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, resolved)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

// writeResolveError maps resolver errors onto the HTTP surface. Maintenance
// is a distinct state for the rendering layer, never a blank render.
func (h *handler) writeResolveError(w http.ResponseWriter, err error) {
	switch {
	case resolver.IsMaintenanceBlocked(err):
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"maintenance": true,
			"error":       err.Error(),
		})
	case resolver.IsConfigurationError(err):
		h.log.WithError(err).Error("tenant configuration error")
		writeError(w, http.StatusInternalServerError, err)
	case storage.IsNotFound(err):
		writeError(w, http.StatusNotFound, err)
	default:
		h.log.WithError(err).Error("module resolution failed")
		writeError(w, http.StatusInternalServerError, err)
	}
}

var errMethodNotAllowed = errors.New("method not allowed")

func decodeJSON(body io.ReadCloser, dst interface{}) error {
	defer body.Close()
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}

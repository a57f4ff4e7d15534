package server

import (
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/fleetops/fleetcast/internal/backup"
	"github.com/fleetops/fleetcast/internal/database"
	"github.com/fleetops/fleetcast/internal/scheduler"
	"github.com/fleetops/fleetcast/internal/version"
)

// SystemHandlers provides host health, manual job triggers, and backup
// inspection endpoints.
type SystemHandlers struct {
	databases []*database.DB
	backups   *backup.Service // nil when backups are not configured
	dataDir   string
	jobs      map[string]scheduler.Job
	log       zerolog.Logger
}

// NewSystemHandlers creates system handlers.
func NewSystemHandlers(databases []*database.DB, backups *backup.Service, dataDir string, log zerolog.Logger) *SystemHandlers {
	return &SystemHandlers{
		databases: databases,
		backups:   backups,
		dataDir:   dataDir,
		jobs:      make(map[string]scheduler.Job),
		log:       log.With().Str("handler", "system").Logger(),
	}
}

// SetJobs registers jobs for manual triggering via the API.
func (h *SystemHandlers) SetJobs(jobs ...scheduler.Job) {
	for _, job := range jobs {
		h.jobs[job.Name()] = job
	}
}

// RegisterRoutes registers all system routes
func (h *SystemHandlers) RegisterRoutes(r chi.Router) {
	r.Get("/system/health", h.handleHealth)

	r.Post("/jobs/{name}", h.handleTriggerJob)

	r.Get("/backups", h.handleListBackups)
	r.Post("/backups", h.handleCreateBackup)
}

type databaseHealth struct {
	Name   string  `json:"name"`
	OK     bool    `json:"ok"`
	SizeMB float64 `json:"size_mb"`
}

type systemHealthResponse struct {
	Status        string           `json:"status"`
	Version       string           `json:"version"`
	CPUPercent    float64          `json:"cpu_percent"`
	MemoryPercent float64          `json:"memory_percent"`
	DiskFreeGB    float64          `json:"disk_free_gb"`
	DataDirSizeMB float64          `json:"data_dir_size_mb"`
	Databases     []databaseHealth `json:"databases"`
}

func (h *SystemHandlers) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := systemHealthResponse{
		Status:        "ok",
		Version:       version.Version,
		DataDirSizeMB: h.dirSizeMB(h.dataDir),
	}

	resp.CPUPercent, resp.MemoryPercent = h.hostStats()

	if usage, err := disk.Usage(h.dataDir); err == nil {
		resp.DiskFreeGB = float64(usage.Free) / 1e9
	} else {
		h.log.Warn().Err(err).Msg("Failed to read disk usage")
	}

	for _, db := range h.databases {
		entry := databaseHealth{Name: db.Name(), OK: true}
		if err := db.QuickCheck(r.Context()); err != nil {
			entry.OK = false
			resp.Status = "degraded"
		}
		if info, err := os.Stat(db.Path()); err == nil {
			entry.SizeMB = float64(info.Size()) / 1024 / 1024
		}
		resp.Databases = append(resp.Databases, entry)
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *SystemHandlers) handleTriggerJob(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	job, ok := h.jobs[name]
	if !ok {
		writeError(w, http.StatusNotFound, "unknown job "+name)
		return
	}

	h.log.Info().Str("job", name).Msg("Manual job trigger")

	if err := job.Run(); err != nil {
		h.log.Error().Err(err).Str("job", name).Msg("Manually triggered job failed")
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "success", "job": name})
}

func (h *SystemHandlers) handleListBackups(w http.ResponseWriter, r *http.Request) {
	if h.backups == nil {
		writeError(w, http.StatusServiceUnavailable, "backups are not configured")
		return
	}

	backups, err := h.backups.ListBackups(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list backups")
		writeError(w, http.StatusInternalServerError, "failed to list backups")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"backups": backups})
}

func (h *SystemHandlers) handleCreateBackup(w http.ResponseWriter, r *http.Request) {
	if h.backups == nil {
		writeError(w, http.StatusServiceUnavailable, "backups are not configured")
		return
	}

	if err := h.backups.CreateAndUploadBackup(r.Context()); err != nil {
		h.log.Error().Err(err).Msg("Manual backup failed")
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

// hostStats samples CPU and RAM usage. Short interval so the endpoint stays
// responsive under polling.
func (h *SystemHandlers) hostStats() (float64, float64) {
	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil || len(cpuPercent) == 0 {
		h.log.Warn().Err(err).Msg("Failed to get CPU percentage")
		cpuPercent = []float64{0}
	}

	memStat, err := mem.VirtualMemory()
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get memory statistics")
		return cpuPercent[0], 0
	}

	return cpuPercent[0], memStat.UsedPercent
}

// dirSizeMB calculates total size of a directory in MB
func (h *SystemHandlers) dirSizeMB(dirPath string) float64 {
	var totalSize int64

	err := filepath.Walk(dirPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // Skip errors
		}
		if !info.IsDir() {
			totalSize += info.Size()
		}
		return nil
	})
	if err != nil {
		h.log.Warn().Err(err).Str("dir", dirPath).Msg("Failed to calculate directory size")
		return 0
	}

	return float64(totalSize) / 1024 / 1024
}

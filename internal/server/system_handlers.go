package server

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/quantfolio/advisor/internal/database"
)

// SystemHandlers serves liveness and system health endpoints.
type SystemHandlers struct {
	log         zerolog.Logger
	startupTime time.Time
	databases   []*database.DB
}

// NewSystemHandlers creates the system handlers. Nil databases are
// skipped so tests can pass a subset.
func NewSystemHandlers(log zerolog.Logger, dbs ...*database.DB) *SystemHandlers {
	var databases []*database.DB
	for _, db := range dbs {
		if db != nil {
			databases = append(databases, db)
		}
	}
	return &SystemHandlers{
		log:         log.With().Str("component", "system_handlers").Logger(),
		startupTime: time.Now(),
		databases:   databases,
	}
}

// HandleLiveness answers a bare liveness probe.
// GET /health
func (h *SystemHandlers) HandleLiveness(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type databaseHealth struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type systemHealth struct {
	Status        string           `json:"status"`
	UptimeSeconds int64            `json:"uptimeSeconds"`
	CPUPercent    float64          `json:"cpuPercent"`
	RAMPercent    float64          `json:"ramPercent"`
	Databases     []databaseHealth `json:"databases"`
}

// HandleSystemHealth reports process uptime, host load and database
// connectivity.
// GET /api/system/health
func (h *SystemHandlers) HandleSystemHealth(w http.ResponseWriter, r *http.Request) {
	cpuPercent, ramPercent := h.systemStats()

	status := "ok"
	dbHealth := make([]databaseHealth, 0, len(h.databases))
	for _, db := range h.databases {
		entry := databaseHealth{Name: db.Name(), Status: "ok"}
		if err := db.QuickCheck(r.Context()); err != nil {
			entry.Status = "error"
			entry.Error = err.Error()
			status = "degraded"
		}
		dbHealth = append(dbHealth, entry)
	}

	respondJSON(w, http.StatusOK, systemHealth{
		Status:        status,
		UptimeSeconds: int64(time.Since(h.startupTime).Seconds()),
		CPUPercent:    cpuPercent,
		RAMPercent:    ramPercent,
		Databases:     dbHealth,
	})
}

// systemStats samples CPU over a short window so the endpoint stays
// responsive, and reads memory usage instantly.
func (h *SystemHandlers) systemStats() (float64, float64) {
	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get CPU percentage")
		cpuPercent = []float64{0}
	}

	memStat, err := mem.VirtualMemory()
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get memory statistics")
		return 0, 0
	}

	cpuAvg := 0.0
	if len(cpuPercent) > 0 {
		cpuAvg = cpuPercent[0]
	}

	return cpuAvg, memStat.UsedPercent
}

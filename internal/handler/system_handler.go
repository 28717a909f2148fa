package handler

import (
	"context"
	"net/http"
	"runtime"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/mockprep/coach-gateway/internal/response"
	"github.com/mockprep/coach-gateway/internal/service"
)

const probeTimeout = 2 * time.Second

// Probe checks one dependency.
type Probe func(ctx context.Context) error

// QueueDepth reports how many items wait in a queue.
type QueueDepth interface {
	Len(ctx context.Context) (int64, error)
}

// SystemHandler reports the gateway's health and runtime figures.
type SystemHandler struct {
	probes    map[string]Probe
	journal   QueueDepth
	flows     *service.FlowService
	startTime time.Time
	log       zerolog.Logger
}

func NewSystemHandler(probes map[string]Probe, journal QueueDepth, flows *service.FlowService, log zerolog.Logger) *SystemHandler {
	return &SystemHandler{
		probes:    probes,
		journal:   journal,
		flows:     flows,
		startTime: time.Now(),
		log:       log.With().Str("component", "system_handler").Logger(),
	}
}

type systemStatus struct {
	Status       string            `json:"status"`
	Uptime       string            `json:"uptime"`
	Checks       map[string]string `json:"checks"`
	JournalQueue int64             `json:"journal_queue"`
	LiveFlows    int               `json:"live_flows"`
	Goroutines   int               `json:"goroutines"`
	HeapAlloc    uint64            `json:"heap_alloc"`
	GoVersion    string            `json:"go_version"`
}

// Health godoc
// GET /health
// Responds 503 when a dependency check fails.
func (h *SystemHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), probeTimeout)
	defer cancel()

	st := systemStatus{
		Status:    "ok",
		Uptime:    time.Since(h.startTime).Truncate(time.Second).String(),
		Checks:    make(map[string]string, len(h.probes)),
		GoVersion: runtime.Version(),
	}

	names := make([]string, 0, len(h.probes))
	for name := range h.probes {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := h.probes[name](ctx); err != nil {
			h.log.Warn().Err(err).Str("check", name).Msg("Health check failed")
			st.Checks[name] = err.Error()
			st.Status = "degraded"
			continue
		}
		st.Checks[name] = "ok"
	}

	if h.journal != nil {
		if n, err := h.journal.Len(ctx); err == nil {
			st.JournalQueue = n
		}
	}
	if h.flows != nil {
		st.LiveFlows = h.flows.Count()
	}

	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	st.Goroutines = runtime.NumGoroutine()
	st.HeapAlloc = ms.HeapAlloc

	status := http.StatusOK
	if st.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	response.Success(c, status, st)
}

package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/irfndi/mto-floor-go/internal/cache"
)

var startTime = time.Now()

// HealthChecker is implemented by backing services that can be pinged.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// HealthHandler reports process and dependency health.
type HealthHandler struct {
	redis   HealthChecker
	caches  *CacheHandler
	version string
}

// MemoryStats is a host memory snapshot.
type MemoryStats struct {
	TotalBytes     uint64  `json:"totalBytes"`
	UsedBytes      uint64  `json:"usedBytes"`
	AvailableBytes uint64  `json:"availableBytes"`
	UsedPercent    float64 `json:"usedPercent"`
}

type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Services  map[string]string `json:"services"`
	Version   string            `json:"version"`
	Uptime    string            `json:"uptime"`
	Memory    *MemoryStats      `json:"memory,omitempty"`
	Caches    []cache.Stats     `json:"caches"`
}

// NewHealthHandler creates a HealthHandler. redis is nil for the memory
// cache backend.
func NewHealthHandler(redis HealthChecker, caches *CacheHandler, version string) *HealthHandler {
	if caches == nil {
		caches = NewCacheHandler()
	}
	return &HealthHandler{
		redis:   redis,
		caches:  caches,
		version: version,
	}
}

// HealthCheck reports overall status. A failing dependency makes it 503.
// GET /health
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	services := map[string]string{"api": "healthy"}

	if h.redis != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := h.redis.HealthCheck(ctx); err != nil {
			services["redis"] = "unhealthy: " + err.Error()
		} else {
			services["redis"] = "healthy"
		}
	}

	overallStatus := "healthy"
	for _, status := range services {
		if status != "healthy" {
			overallStatus = "unhealthy"
			break
		}
	}

	response := HealthResponse{
		Status:    overallStatus,
		Timestamp: time.Now(),
		Services:  services,
		Version:   h.version,
		Uptime:    time.Since(startTime).String(),
		Memory:    memoryStats(),
		Caches:    h.caches.Snapshot(),
	}

	status := http.StatusOK
	if overallStatus != "healthy" {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, response)
}

// LivenessCheck only proves the process is responsive.
// GET /health/live
func (h *HealthHandler) LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "alive",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

func memoryStats() *MemoryStats {
	vm, err := mem.VirtualMemory()
	if err != nil {
		return nil
	}
	return &MemoryStats{
		TotalBytes:     vm.Total,
		UsedBytes:      vm.Used,
		AvailableBytes: vm.Available,
		UsedPercent:    vm.UsedPercent,
	}
}

package health

import (
	"context"
	"time"
)

// Pinger is a dependency the readiness probe checks
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthChecker struct {
	archive Pinger // nil when receipt archiving is off
	started time.Time
}

type HealthStatus struct {
	Status        string          `json:"status"`
	Archive       ComponentHealth `json:"archive"`
	UptimeSeconds int64           `json:"uptime_seconds"`
}

type ComponentHealth struct {
	Status       string `json:"status"` // healthy, unhealthy or disabled
	ResponseTime int64  `json:"response_time_ms"`
}

func NewHealthChecker(archive Pinger) *HealthChecker {
	return &HealthChecker{archive: archive, started: time.Now()}
}

func (h *HealthChecker) CheckBasic() HealthStatus {
	archiveHealth := h.checkArchive()

	status := "healthy"
	if archiveHealth.Status == "unhealthy" {
		status = "unhealthy"
	}

	return HealthStatus{
		Status:        status,
		Archive:       archiveHealth,
		UptimeSeconds: int64(time.Since(h.started).Seconds()),
	}
}

func (h *HealthChecker) checkArchive() ComponentHealth {
	if h.archive == nil {
		return ComponentHealth{Status: "disabled"}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	start := time.Now()
	err := h.archive.Ping(ctx)
	responseTime := time.Since(start).Milliseconds()

	if err != nil {
		return ComponentHealth{
			Status:       "unhealthy",
			ResponseTime: responseTime,
		}
	}

	return ComponentHealth{
		Status:       "healthy",
		ResponseTime: responseTime,
	}
}

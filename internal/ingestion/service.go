package ingestion

import (
	"github.com/gin-gonic/gin"

	"github.com/verdict-lab/project-verdict/internal/observability"
	"github.com/verdict-lab/project-verdict/internal/queue"
	"github.com/verdict-lab/project-verdict/internal/schema"
)

type Service struct {
	registry         *schema.Registry
	queue            *queue.Queue
	metrics          *observability.Metrics
	maxBodySizeBytes int
}

func NewService(reg *schema.Registry, q *queue.Queue, metrics *observability.Metrics, maxBodySizeMB int) *Service {
	if reg == nil {
		panic("ingestion: registry must not be nil")
	}
	if q == nil {
		panic("ingestion: queue must not be nil")
	}
	if metrics == nil {
		panic("ingestion: metrics must not be nil")
	}
	if maxBodySizeMB <= 0 {
		maxBodySizeMB = 1 // default to 1MB
	}
	return &Service{
		registry:         reg,
		queue:            q,
		metrics:          metrics,
		maxBodySizeBytes: maxBodySizeMB * 1024 * 1024,
	}
}

// RegisterRoutes registers the ingestion service routes.
func (s *Service) RegisterRoutes(r gin.IRouter) {
	r.POST("/event", s.PublishHandler)
	r.GET("/queue-size", s.QueueSizeHandler)
}

// Package access serves the synchronous read path: GET /can<feature>
// answers from grant state in O(1), never evaluating rules.
package access

import (
	"github.com/gin-gonic/gin"

	"github.com/verdict-lab/project-verdict/internal/core/feature"
	"github.com/verdict-lab/project-verdict/internal/grant"
)

type Service struct {
	features *feature.Registry
	grants   *grant.Service
}

func NewService(features *feature.Registry, grants *grant.Service) *Service {
	if features == nil {
		panic("access: feature registry must not be nil")
	}
	if grants == nil {
		panic("access: grant service must not be nil")
	}
	return &Service{features: features, grants: grants}
}

// RegisterRoutes registers the access service routes. The param route and
// the static routes coexist at the same level; gin matches statics first.
func (s *Service) RegisterRoutes(r gin.IRouter) {
	r.GET("/", s.RootHandler)
	r.GET("/:gate", s.GateHandler)
}

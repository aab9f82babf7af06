package access

import (
	"net/http"
	"regexp"

	"github.com/gin-gonic/gin"

	httperr "github.com/verdict-lab/project-verdict/internal/core/errors"
)

// gateRE matches the whole gate path segment: "can" + feature name.
var gateRE = regexp.MustCompile(`^can([a-z]{1,16})$`)

// HeaderUserID identifies the user being checked. The value is trusted;
// there is no authentication on this surface.
const HeaderUserID = "x-user-id"

// RootHandler answers the base path. Kept as a trivial liveness probe for
// humans; machines use /health.
func (s *Service) RootHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"Hello": "World"})
}

// GateHandler handles GET /can<feature>. The header is checked before the
// feature lookup, so a missing user id answers 400 even for unknown gates.
func (s *Service) GateHandler(c *gin.Context) {
	m := gateRE.FindStringSubmatch(c.Param("gate"))
	if m == nil {
		writeError(c, http.StatusBadRequest, httperr.HttpInvalidRequestError,
			"Gate paths look like /can<feature>")
		return
	}

	userID := c.GetHeader(HeaderUserID)
	if userID == "" {
		writeError(c, http.StatusBadRequest, httperr.HttpInvalidRequestError,
			"x-user-id header is required")
		return
	}

	f, err := s.features.ByName(m[1])
	if err != nil {
		writeError(c, http.StatusNotFound, httperr.HttpUnknownFeatureError, err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user_id":   userID,
		"feature":   f.Name,
		"has_grant": s.grants.HasGrant(userID, f),
	})
}

func writeError(c *gin.Context, status int, code, message string) {
	c.JSON(status, httperr.ErrorResponse{Code: code, Message: message})
}

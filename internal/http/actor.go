package http

import (
	nethttp "net/http"

	"property_portal_backend/internal/interventions/domain"
	"property_portal_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
)

// ActorFrom builds the workflow actor from the authenticated identity.
// It aborts with 401 and returns false when the request carries no usable identity.
func ActorFrom(c *gin.Context) (domain.Actor, bool) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return domain.Actor{}, false
	}
	role, err := domain.ParseRole(id.Role())
	if err != nil {
		httpkit.Error(c, nethttp.StatusUnauthorized, "unknown role", nil)
		c.Abort()
		return domain.Actor{}, false
	}
	return domain.Actor{ID: id.UserID(), Role: role, TeamID: id.TeamID()}, true
}

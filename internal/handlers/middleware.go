package handlers

import (
	"net/http"
	"strings"

	"controlling_resistances/internal/service"

	"github.com/gin-gonic/gin"
)

const (
	authorizationHeader = "Authorization"
	bearerScheme        = "Bearer"
	identityCtx         = "identity"

	errMissingAuth   = "missing Authorization header"
	errAuthFormat    = "invalid Authorization header format"
	errTokenRejected = "invalid or expired token"
	errRoleForbidden = "operator role required"
)

// authMiddleware rejects requests without a valid bearer token and stores
// the caller's service.Identity under identityCtx.
func (h *Handler) authMiddleware(c *gin.Context) {
	header := c.GetHeader(authorizationHeader)
	if header == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errMissingAuth})
		return
	}

	scheme, token, ok := strings.Cut(header, " ")
	if !ok || scheme != bearerScheme || token == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errAuthFormat})
		return
	}

	id, err := h.services.ParseToken(token)
	if err != nil {
		if h.log != nil {
			h.log.Infow("auth_token_rejected", "err", err, "path", c.FullPath())
		}
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errTokenRejected})
		return
	}

	c.Set(identityCtx, id)
	c.Next()
}

// requireOperator must run after authMiddleware.
func (h *Handler) requireOperator(c *gin.Context) {
	if !identity(c).CanControl() {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": errRoleForbidden})
		return
	}
	c.Next()
}

// identity returns the caller set by authMiddleware, or the zero Identity.
func identity(c *gin.Context) service.Identity {
	v, _ := c.Get(identityCtx)
	id, _ := v.(service.Identity)
	return id
}

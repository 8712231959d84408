package handlers

import (
	"net/http"
	"strings"

	"degradation_monitor/internal/models"

	"github.com/gin-gonic/gin"
)

// operatorIDKey is the gin context key holding the authenticated operator ID.
const operatorIDKey = "operatorId"

// tokenQueryParam carries the token on the WebSocket handshake, where
// browsers cannot set headers.
const tokenQueryParam = "token"

const (
	errMissingAuthHeader = "missing Authorization header"
	errMissingToken      = "missing Authorization header or token parameter"
	errBadAuthHeader     = "invalid Authorization header format"
	errBadToken          = "invalid or expired token"
)

// operatorIdMiddleware requires a bearer token in the Authorization header.
func (h *Handler) operatorIdMiddleware(c *gin.Context) {
	token, msg := bearerToken(c.GetHeader("Authorization"))
	if msg != "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": msg})
		return
	}
	h.authenticate(c, token)
}

// streamAuthMiddleware accepts the bearer header or, failing that, the
// token query parameter. It runs before the upgrade so a rejected client
// gets a plain 401.
func (h *Handler) streamAuthMiddleware(c *gin.Context) {
	if header := c.GetHeader("Authorization"); header != "" {
		h.operatorIdMiddleware(c)
		return
	}
	token := strings.TrimSpace(c.Query(tokenQueryParam))
	if token == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errMissingToken})
		return
	}
	h.authenticate(c, token)
}

// bearerToken extracts the token from an Authorization header value. A
// non-empty message describes why the header was rejected.
func bearerToken(header string) (string, string) {
	if header == "" {
		return "", errMissingAuthHeader
	}
	scheme, token, ok := strings.Cut(header, " ")
	token = strings.TrimSpace(token)
	if !ok || scheme != "Bearer" || token == "" {
		return "", errBadAuthHeader
	}
	return token, ""
}

// authenticate verifies token and attaches the operator to the gin context
// and to the request context, where services pick up the actor of a write.
func (h *Handler) authenticate(c *gin.Context, token string) {
	actor, err := h.services.ParseToken(token)
	if err != nil {
		if h.log != nil {
			h.log.Debugw("auth_token_rejected", "path", c.FullPath(), "err", err)
		}
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errBadToken})
		return
	}

	c.Set(operatorIDKey, actor.OperatorID)
	c.Request = c.Request.WithContext(models.WithActor(c.Request.Context(), actor))
	c.Next()
}

package handlers

import (
	"errors"
	"net/http"

	"degradation_monitor/internal/service"

	"github.com/gin-gonic/gin"
)

const errLoadOperator = "failed to load operator"

// Credentials is the shared payload for sign-up and sign-in.
type Credentials struct {
	Username string `json:"username" binding:"required" example:"operator"`
	Password string `json:"password" binding:"required" example:"secret"`
}

// @Summary      Register operator
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      Credentials  true  "Credentials"
// @Success      200   {object}  map[string]int  "id"
// @Failure      400   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Router       /auth/sign-up [post]
func (h *Handler) signUp(c *gin.Context) {
	var input Credentials
	if ok := h.bindJSONOrBadRequest(c, &input); !ok {
		return
	}

	id, err := h.services.SignUp(c.Request.Context(), input.Username, input.Password)
	if err != nil {
		if h.log != nil {
			h.log.Infow("auth_sign_up_failed", "username", input.Username, "err", err)
		}
		code := http.StatusBadRequest
		if errors.Is(err, service.ErrUsernameTaken) {
			code = http.StatusConflict
		}
		c.JSON(code, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"id": id})
}

// @Summary      Sign in
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      Credentials  true  "Credentials"
// @Success      200   {object}  map[string]string  "token"
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Router       /auth/sign-in [post]
func (h *Handler) signIn(c *gin.Context) {
	var input Credentials
	if ok := h.bindJSONOrBadRequest(c, &input); !ok {
		return
	}

	token, err := h.services.GenerateToken(c.Request.Context(), input.Username, input.Password)
	if err != nil {
		if h.log != nil {
			h.log.Infow("auth_sign_in_failed", "username", input.Username, "err", err)
		}
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token})
}

// @Summary      Current operator
// @Tags         auth
// @Produce      json
// @Success      200   {object}  models.Operator
// @Failure      401   {object}  map[string]string
// @Failure      500   {object}  map[string]string
// @Router       /api/v1/operator [get]
// @Security     BearerAuth
func (h *Handler) getOperator(c *gin.Context) {
	id := c.GetInt(operatorIDKey)
	op, err := h.services.Operator(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrOperatorNotFound) {
			// token outlived its account
			c.JSON(http.StatusUnauthorized, gin.H{"error": errBadToken})
			return
		}
		h.logAndJSONError(c, http.StatusInternalServerError, errLoadOperator, "operator_load_failed", err,
			"operator_id", id)
		return
	}
	c.JSON(http.StatusOK, op)
}

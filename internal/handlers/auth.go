package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"controlling_resistances/internal/service"

	"github.com/gin-gonic/gin"
)

type authCredentials struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type roleRequest struct {
	Role string `json:"role" binding:"required,oneof=viewer operator" example:"operator"`
}

// @Summary      Sign up
// @Description  The first account becomes an operator; later accounts are viewers until promoted.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      authCredentials  true  "Credentials"
// @Success      201   {object}  models.Operator
// @Failure      400   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Router       /auth/sign-up [post]
func (h *Handler) signUp(c *gin.Context) {
	var input authCredentials
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	op, err := h.services.SignUp(c.Request.Context(), input.Username, input.Password)
	switch {
	case err == nil:
		if h.log != nil {
			h.log.Infow("operator_signed_up", "id", op.ID, "username", op.Username, "role", op.Role)
		}
		c.JSON(http.StatusCreated, op)
	case errors.Is(err, service.ErrUsernameTaken):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrInvalidUsername), errors.Is(err, service.ErrWeakPassword):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		h.logAndJSONError(c, http.StatusInternalServerError, "failed to create account", "sign_up_failed", err)
	}
}

// @Summary      Sign in
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      authCredentials  true  "Credentials"
// @Success      200   {object}  map[string]string
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Router       /auth/sign-in [post]
func (h *Handler) signIn(c *gin.Context) {
	var input authCredentials
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	token, err := h.services.GenerateToken(c.Request.Context(), input.Username, input.Password)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"token": token})
	case errors.Is(err, service.ErrInvalidCredentials):
		if h.log != nil {
			h.log.Infow("sign_in_rejected", "username", input.Username)
		}
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	default:
		h.logAndJSONError(c, http.StatusInternalServerError, "failed to sign in", "sign_in_failed", err)
	}
}

// @Summary      Set account role
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        id    path      int          true  "Account id"
// @Param        body  body      roleRequest  true  "New role"
// @Success      200   {object}  map[string]interface{}
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      403   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Router       /api/v1/operators/{id}/role [put]
// @Security     BearerAuth
func (h *Handler) setRole(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid account id"})
		return
	}
	var input roleRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err = h.services.SetRole(c.Request.Context(), id, input.Role)
	switch {
	case err == nil:
		if h.log != nil {
			h.log.Infow("operator_role_changed", "id", id, "role", input.Role, "by", identity(c).OperatorID)
		}
		c.JSON(http.StatusOK, gin.H{"id": id, "role": input.Role})
	case errors.Is(err, service.ErrInvalidRole):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrAccountNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		h.logAndJSONError(c, http.StatusInternalServerError, "failed to set role", "set_role_failed", err, "id", id)
	}
}

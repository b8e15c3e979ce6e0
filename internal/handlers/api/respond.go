package handlers_api

import (
	"strconv"

	"biostore/internal/models/clerrors"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RespondError écrit {"error": msg} avec le statut correspondant au type d'erreur
func RespondError(c *gin.Context, err error) {
	status := clerrors.StatusCode(err)
	if status >= 500 {
		zerolog.Ctx(c.Request.Context()).Error().
			Err(err).
			Str("path", c.FullPath()).
			Msg("Request failed")
	}
	c.AbortWithStatusJSON(status, gin.H{"error": clerrors.Message(err)})
}

// ParamID lit un identifiant numérique positif dans l'URL
func ParamID(c *gin.Context, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, clerrors.Validation("invalid %s", name)
	}
	return uint(id), nil
}

// BindJSON décode le corps, une erreur devient une erreur de validation
func BindJSON(c *gin.Context, dst any) error {
	if err := c.ShouldBindJSON(dst); err != nil {
		return clerrors.Validation("invalid request body: %s", err.Error())
	}
	return nil
}

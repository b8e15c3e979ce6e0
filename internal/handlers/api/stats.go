package handlers_api

import (
	"net/http"

	"biostore/internal/models/clpages"

	"github.com/gin-gonic/gin"
)

type StatsHandler struct {
	pages *clpages.Service
}

func NewStatsHandler(pages *clpages.Service) *StatsHandler {
	return &StatsHandler{pages: pages}
}

// PublicStats retourne le nombre de pages et la somme des compteurs
func (h *StatsHandler) PublicStats(c *gin.Context) {
	stats, err := h.pages.PublicStats(c.Request.Context())
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

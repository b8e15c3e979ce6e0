package handlers_analytics

import (
	"net/http"

	"biostore/internal/clmiddleware"
	handlers_api "biostore/internal/handlers/api"
	"biostore/internal/models/clanalytics"
	"biostore/internal/models/clpages"

	"github.com/gin-gonic/gin"
)

type AnalyticsHandler struct {
	service *clanalytics.Service
	pages   *clpages.Service
}

func NewAnalyticsHandler(service *clanalytics.Service, pages *clpages.Service) *AnalyticsHandler {
	return &AnalyticsHandler{
		service: service,
		pages:   pages,
	}
}

// RecordView enregistre une vue, les en-têtes complètent le corps
func (ah *AnalyticsHandler) RecordView(c *gin.Context) {
	var in clanalytics.ViewInput
	if err := handlers_api.BindJSON(c, &in); err != nil {
		handlers_api.RespondError(c, err)
		return
	}
	if in.UserAgent == nil {
		if ua := c.Request.UserAgent(); ua != "" {
			in.UserAgent = &ua
		}
	}
	if in.Referrer == nil {
		if ref := c.Request.Referer(); ref != "" {
			in.Referrer = &ref
		}
	}

	if err := ah.service.RecordView(c.Request.Context(), in, c.ClientIP()); err != nil {
		handlers_api.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (ah *AnalyticsHandler) RecordClick(c *gin.Context) {
	var in clanalytics.ClickInput
	if err := handlers_api.BindJSON(c, &in); err != nil {
		handlers_api.RespondError(c, err)
		return
	}

	if err := ah.service.RecordClick(c.Request.Context(), in); err != nil {
		handlers_api.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// owned vérifie l'accès du propriétaire et retourne l'id de la page
func (ah *AnalyticsHandler) owned(c *gin.Context) (uint, bool) {
	pageID, err := handlers_api.ParamID(c, "pageId")
	if err != nil {
		handlers_api.RespondError(c, err)
		return 0, false
	}
	if _, _, err := ah.pages.Owner(c.Request.Context(), clmiddleware.AuthID(c), pageID); err != nil {
		handlers_api.RespondError(c, err)
		return 0, false
	}
	return pageID, true
}

// GetAnalytics retourne le rapport de la période ?period= (7d par défaut)
func (ah *AnalyticsHandler) GetAnalytics(c *gin.Context) {
	pageID, ok := ah.owned(c)
	if !ok {
		return
	}

	report, err := ah.service.GetAnalytics(c.Request.Context(), pageID, c.Query("period"))
	if err != nil {
		handlers_api.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (ah *AnalyticsHandler) GetSummary(c *gin.Context) {
	pageID, ok := ah.owned(c)
	if !ok {
		return
	}

	summary, err := ah.service.GetSummary(c.Request.Context(), pageID)
	if err != nil {
		handlers_api.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// GetRealtime retourne les compteurs du jour
func (ah *AnalyticsHandler) GetRealtime(c *gin.Context) {
	pageID, ok := ah.owned(c)
	if !ok {
		return
	}

	stats, err := ah.service.GetRealtime(c.Request.Context(), pageID)
	if err != nil {
		handlers_api.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

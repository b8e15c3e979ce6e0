package handlers_sales

import (
	"net/http"

	"biostore/internal/clmiddleware"
	handlers_api "biostore/internal/handlers/api"
	"biostore/internal/models/clsales"

	"github.com/gin-gonic/gin"
)

type SalesHandler struct {
	ledger *clsales.Ledger
}

func NewSalesHandler(ledger *clsales.Ledger) *SalesHandler {
	return &SalesHandler{ledger: ledger}
}

func (h *SalesHandler) Record(c *gin.Context) {
	var in clsales.SaleInput
	if err := handlers_api.BindJSON(c, &in); err != nil {
		handlers_api.RespondError(c, err)
		return
	}

	sale, err := h.ledger.RecordSale(c.Request.Context(), clmiddleware.AuthID(c), in)
	if err != nil {
		handlers_api.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, sale)
}

// List retourne les ventes de la période ?period= (30d par défaut)
func (h *SalesHandler) List(c *gin.Context) {
	pageID, err := handlers_api.ParamID(c, "pageId")
	if err != nil {
		handlers_api.RespondError(c, err)
		return
	}

	sales, err := h.ledger.ListSales(c.Request.Context(), clmiddleware.AuthID(c), pageID, c.Query("period"))
	if err != nil {
		handlers_api.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sales)
}

func (h *SalesHandler) Summary(c *gin.Context) {
	pageID, err := handlers_api.ParamID(c, "pageId")
	if err != nil {
		handlers_api.RespondError(c, err)
		return
	}

	summary, err := h.ledger.GetSalesSummary(c.Request.Context(), clmiddleware.AuthID(c), pageID, c.Query("period"))
	if err != nil {
		handlers_api.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (h *SalesHandler) Delete(c *gin.Context) {
	saleID, err := handlers_api.ParamID(c, "saleId")
	if err != nil {
		handlers_api.RespondError(c, err)
		return
	}

	if err := h.ledger.DeleteSale(c.Request.Context(), clmiddleware.AuthID(c), saleID); err != nil {
		handlers_api.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

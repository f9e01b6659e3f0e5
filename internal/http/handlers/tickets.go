package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetETicketPDF handles GET /api/bookings/:id/ticket.
func (h Handler) GetETicketPDF(c *gin.Context) {
	pdf, filename, err := h.Tickets.GenerateETicket(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.Header("Content-Disposition", `inline; filename="`+filename+`"`)
	c.Data(http.StatusOK, "application/pdf", pdf)
}

// GetReceiptPDF handles GET /api/bookings/:id/receipt.
func (h Handler) GetReceiptPDF(c *gin.Context) {
	pdf, filename, err := h.Tickets.GenerateReceipt(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "application/pdf", pdf)
}

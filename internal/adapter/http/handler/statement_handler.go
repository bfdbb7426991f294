package handler

import (
	"strconv"

	"bank-ledger/internal/adapter/http/dto"
	"bank-ledger/internal/adapter/http/middleware"
	"bank-ledger/internal/core/ports"
	"bank-ledger/pkg/apperror"
	"bank-ledger/pkg/response"

	"github.com/gin-gonic/gin"
)

// StatementHandler lists the caller's statement.
type StatementHandler struct {
	ledger ports.LedgerService
}

// NewStatementHandler creates a new StatementHandler.
func NewStatementHandler(ledger ports.LedgerService) *StatementHandler {
	return &StatementHandler{ledger: ledger}
}

// List handles GET /api/v1/statements?page=&page_size=.
func (h *StatementHandler) List(c *gin.Context) {
	owner, ok := middleware.OwnerID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	params := ports.StatementListParams{OwnerID: owner}
	var err error
	if raw := c.Query("page"); raw != "" {
		if params.Page, err = strconv.Atoi(raw); err != nil {
			response.Error(c, apperror.Validation("page must be an integer"))
			return
		}
	}
	if raw := c.Query("page_size"); raw != "" {
		if params.PageSize, err = strconv.Atoi(raw); err != nil {
			response.Error(c, apperror.Validation("page_size must be an integer"))
			return
		}
	}

	entries, total, err := h.ledger.ListStatements(c.Request.Context(), params)
	if err != nil {
		response.Error(c, err)
		return
	}

	params = params.Normalized()
	response.OK(c, dto.NewStatementListResponse(entries, total, params.Page, params.PageSize))
}

package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/simgate/sim-gateway/internal/api/dto"
	"github.com/simgate/sim-gateway/internal/service"
	apperrors "github.com/simgate/sim-gateway/pkg/util/errorutil"
)

// TransactionsHandler serves the recorded outcome history.
type TransactionsHandler struct {
	service *service.TransactionService
}

// NewTransactionsHandler constructs handler.
func NewTransactionsHandler(transactionService *service.TransactionService) *TransactionsHandler {
	return &TransactionsHandler{service: transactionService}
}

// List GET /transactions?slot=&limit=.
func (h *TransactionsHandler) List(c *fiber.Ctx) error {
	var slot *int
	if raw := c.Query("slot"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return apperrors.NewValidationError("invalid slot", map[string]any{"slot": raw})
		}
		slot = &n
	}
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return apperrors.NewValidationError("invalid limit", map[string]any{"limit": raw})
		}
		limit = n
	}

	txs, err := h.service.ListRecent(c.UserContext(), slot, limit)
	if err != nil {
		if errors.Is(err, service.ErrHistoryDisabled) {
			return apperrors.NewDomainError("HISTORY_DISABLED", err.Error(), http.StatusServiceUnavailable, nil)
		}
		return err
	}
	items := make([]dto.TransactionResponse, 0, len(txs))
	for _, tx := range txs {
		items = append(items, dto.NewTransactionResponse(tx))
	}
	return c.JSON(fiber.Map{"data": items})
}

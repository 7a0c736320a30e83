package handlers

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/simgate/sim-gateway/internal/api/dto"
	"github.com/simgate/sim-gateway/internal/domain"
	"github.com/simgate/sim-gateway/internal/service"
)

// UssdHandler runs USSD sessions. Operational failures are answered with 200
// and the outcome; only malformed requests and unknown slots are errors.
type UssdHandler struct {
	gateway  *service.GatewayService
	validate *validator.Validate
}

// NewUssdHandler constructs handler.
func NewUssdHandler(gateway *service.GatewayService, validate *validator.Validate) *UssdHandler {
	return &UssdHandler{gateway: gateway, validate: validate}
}

// Send POST /ussd.
func (h *UssdHandler) Send(c *fiber.Ctx) error {
	var req dto.SendUssdRequest
	if err := bindJSON(c, h.validate, &req); err != nil {
		return err
	}
	outcome, err := h.gateway.SendUSSD(c.UserContext(), domain.UssdSessionRequest{
		Selector: domain.SlotSelector{SlotNumber: req.Slot, Operator: req.Operator},
		Code:     req.Code,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewOutcomeResponse(outcome)})
}

// Balance POST /slots/balance.
func (h *UssdHandler) Balance(c *fiber.Ctx) error {
	var req dto.BalanceRequest
	if err := bindJSON(c, h.validate, &req); err != nil {
		return err
	}
	result, err := h.gateway.CheckBalance(c.UserContext(), domain.SlotSelector{SlotNumber: req.Slot, Operator: req.Operator})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.BalanceResponse{
		Outcome: dto.NewOutcomeResponse(result.Outcome),
		Balance: result.Balance,
	}})
}

// Transfer POST /transfers.
func (h *UssdHandler) Transfer(c *fiber.Ctx) error {
	var req dto.TransferRequest
	if err := bindJSON(c, h.validate, &req); err != nil {
		return err
	}
	outcome, err := h.gateway.Transfer(c.UserContext(), service.TransferInput{
		Selector:  domain.SlotSelector{SlotNumber: req.Slot, Operator: req.Operator},
		Recipient: req.Recipient,
		Amount:    req.Amount,
		PIN:       req.PIN,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewOutcomeResponse(outcome)})
}

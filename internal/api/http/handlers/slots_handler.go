package handlers

import (
	"errors"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/simgate/sim-gateway/internal/api/dto"
	"github.com/simgate/sim-gateway/internal/domain"
	"github.com/simgate/sim-gateway/internal/service"
	apperrors "github.com/simgate/sim-gateway/pkg/util/errorutil"
)

// SlotsHandler exposes the slot pool.
type SlotsHandler struct {
	gateway  *service.GatewayService
	validate *validator.Validate
}

// NewSlotsHandler constructs handler.
func NewSlotsHandler(gateway *service.GatewayService, validate *validator.Validate) *SlotsHandler {
	return &SlotsHandler{gateway: gateway, validate: validate}
}

// ListSlots GET /slots.
func (h *SlotsHandler) ListSlots(c *fiber.Ctx) error {
	slots := h.gateway.ListSlots()
	items := make([]dto.SlotResponse, 0, len(slots))
	for _, slot := range slots {
		items = append(items, dto.NewSlotResponse(slot))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetSlot GET /slots/:number.
func (h *SlotsHandler) GetSlot(c *fiber.Ctx) error {
	number, err := slotParam(c)
	if err != nil {
		return err
	}
	slot, err := h.gateway.GetSlot(number)
	if err != nil {
		return slotError(number, err)
	}
	return c.JSON(fiber.Map{"data": dto.NewSlotResponse(slot)})
}

// UpdateStatus PATCH /slots/:number/status.
func (h *SlotsHandler) UpdateStatus(c *fiber.Ctx) error {
	number, err := slotParam(c)
	if err != nil {
		return err
	}
	var req dto.UpdateSlotStatusRequest
	if err := bindJSON(c, h.validate, &req); err != nil {
		return err
	}
	slot, err := h.gateway.SetSlotStatus(c.UserContext(), number, domain.SlotStatus(req.Status))
	if err != nil {
		return slotError(number, err)
	}
	return c.JSON(fiber.Map{
		"data":     dto.NewSlotResponse(slot),
		"deferred": slot.Status == domain.SlotStatusBusy,
	})
}

func slotParam(c *fiber.Ctx) (int, error) {
	number, err := strconv.Atoi(c.Params("number"))
	if err != nil || number < 1 {
		return 0, apperrors.NewValidationError("invalid slot number", map[string]any{"number": c.Params("number")})
	}
	return number, nil
}

func slotError(number int, err error) error {
	if errors.Is(err, domain.ErrSlotNotFound) {
		return apperrors.NewNotFound("slot", map[string]any{"number": number})
	}
	return err
}

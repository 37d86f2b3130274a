package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/appointment-service/internal/api/dto"
	"github.com/spec-kit/appointment-service/internal/auth"
	"github.com/spec-kit/appointment-service/internal/service"
	apperrors "github.com/spec-kit/appointment-service/pkg/util/errorutil"
)

// AppointmentsHandler manages customer appointment endpoints.
type AppointmentsHandler struct {
	service   *service.AppointmentService
	presenter dto.Presenter
	now       func() time.Time
}

// NewAppointmentsHandler constructs handler. A nil clock means time.Now.
func NewAppointmentsHandler(appointmentService *service.AppointmentService, presenter dto.Presenter, now func() time.Time) *AppointmentsHandler {
	if now == nil {
		now = time.Now
	}
	return &AppointmentsHandler{service: appointmentService, presenter: presenter, now: now}
}

// List GET /appointments?page=N.
func (h *AppointmentsHandler) List(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}
	page := c.QueryInt("page", 1)

	appointments, err := h.service.ListActive(c.UserContext(), principal.User.ID, page, 0)
	if err != nil {
		return err
	}
	items := make([]dto.AppointmentListItem, 0, len(appointments))
	for i := range appointments {
		items = append(items, h.presenter.ListItem(&appointments[i]))
	}
	return c.JSON(items)
}

// Create POST /appointments.
func (h *AppointmentsHandler) Create(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}
	var req dto.CreateAppointmentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("validation fails", map[string]any{"body": "invalid payload"})
	}
	if req.ProviderID <= 0 || req.Date == "" {
		return apperrors.NewValidationError("validation fails", map[string]any{"required": []string{"provider_id", "date"}})
	}

	appt, err := h.service.Book(c.UserContext(), principal.User.ID, req.ProviderID, req.Date, h.now())
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(h.presenter.Appointment(appt))
}

// Cancel DELETE /appointments/:id.
func (h *AppointmentsHandler) Cancel(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return apperrors.NewValidationError("invalid appointment id", nil)
	}

	appt, err := h.service.Cancel(c.UserContext(), principal.User.ID, id, h.now())
	if err != nil {
		return err
	}
	return c.JSON(h.presenter.Appointment(appt))
}

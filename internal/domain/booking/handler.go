package booking

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/clinicdesk/clinicdesk/internal/domain/appointment"
	"github.com/clinicdesk/clinicdesk/internal/domain/token"
	"github.com/clinicdesk/clinicdesk/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes wires the three route surfaces: unauthenticated patient
// routes (slot display and booking), staff routes, and the public
// token-redemption routes.
func (h *Handler) RegisterRoutes(public, staff, selfService *echo.Group) {
	public.GET("/slots", h.GetSlots)
	public.POST("/bookings", h.CreateBooking)

	staff.POST("/bookings/:id/confirm", h.ConfirmBooking,
		auth.RequireRole(auth.RoleReceptionist, auth.RoleDoctor))

	selfService.POST("/cancel", h.RedeemCancel)
	selfService.POST("/reschedule", h.RedeemReschedule)
}

func httpError(err error) error {
	switch {
	case errors.Is(err, ErrClinicNotFound),
		errors.Is(err, ErrDoctorNotFound),
		errors.Is(err, ErrServiceNotFound),
		errors.Is(err, appointment.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, token.ErrNotFound),
		errors.Is(err, token.ErrExpired),
		errors.Is(err, token.ErrUsed),
		errors.Is(err, token.ErrWrongKind):
		return echo.NewHTTPError(http.StatusNotFound, "token not found or expired")
	case errors.Is(err, appointment.ErrSlotTaken),
		errors.Is(err, appointment.ErrTooLateToCancel),
		errors.Is(err, appointment.ErrInvalidTransition),
		errors.Is(err, ErrTimeOffConflict),
		errors.Is(err, ErrAlreadyCancelled):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, ErrServiceNotOffered),
		errors.Is(err, ErrOutsideAvailability):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	default:
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
}

func (h *Handler) GetSlots(c echo.Context) error {
	clinicID, err := uuid.Parse(c.QueryParam("clinic_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "clinic_id is required")
	}
	doctorID, err := uuid.Parse(c.QueryParam("doctor_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "doctor_id is required")
	}
	date, err := time.Parse("2006-01-02", c.QueryParam("date"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
	}
	var serviceID *uuid.UUID
	if v := c.QueryParam("service_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid service_id")
		}
		serviceID = &id
	}

	slots, err := h.svc.GetSlots(c.Request().Context(), clinicID, doctorID, serviceID, date)
	if err != nil {
		return httpError(err)
	}
	if slots == nil {
		slots = []Slot{}
	}
	return c.JSON(http.StatusOK, map[string]any{"date": date.Format("2006-01-02"), "slots": slots})
}

func (h *Handler) CreateBooking(c echo.Context) error {
	var req CreateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Channel == "" {
		req.Channel = appointment.ChannelWeb
	}
	res, err := h.svc.CreateBooking(c.Request().Context(), req)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, res)
}

func (h *Handler) ConfirmBooking(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid booking id")
	}
	res, err := h.svc.ConfirmBooking(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, res)
}

type redeemCancelRequest struct {
	Token string `json:"token"`
}

func (h *Handler) RedeemCancel(c echo.Context) error {
	var req redeemCancelRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Token == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "token is required")
	}
	res, err := h.svc.RedeemCancel(c.Request().Context(), req.Token)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, res)
}

type redeemRescheduleRequest struct {
	Token    string    `json:"token"`
	NewStart time.Time `json:"new_start"`
	NewEnd   time.Time `json:"new_end"`
}

func (h *Handler) RedeemReschedule(c echo.Context) error {
	var req redeemRescheduleRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Token == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "token is required")
	}
	appt, err := h.svc.RedeemReschedule(c.Request().Context(), req.Token, req.NewStart, req.NewEnd)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, appt)
}

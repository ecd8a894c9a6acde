package riskassessment

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/bhis/bhis/internal/platform/auth"
	"github.com/bhis/bhis/internal/platform/export"
	"github.com/bhis/bhis/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/risk-assessments", auth.RequireRole(auth.ClinicalRoles...))
	g.POST("/preview", h.Preview)
	g.POST("/export", h.Export)
	g.POST("", h.Create)
	g.GET("/:id", h.Get)
	g.PUT("/:id", h.Update)
	g.GET("/:id/export", h.ExportSaved)

	clinical := auth.RequireRole(auth.ClinicalRoles...)
	api.GET("/patients/:id/risk-assessments", h.ListByPatient, clinical)
	api.GET("/patients/:id/risk-assessments/prefill", h.Prefill, clinical)
}

type saveRequest struct {
	PatientID *uuid.UUID `json:"patient_id"`
	Form      Form       `json:"form"`
}

func (h *Handler) Preview(c echo.Context) error {
	var f Form
	if err := c.Bind(&f); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	doc, err := h.svc.Preview(f)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, doc)
}

func (h *Handler) Export(c echo.Context) error {
	var f Form
	if err := c.Bind(&f); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	a, err := h.svc.Export(c.Request().Context(), f)
	if err != nil {
		return httpError(err)
	}
	return sendArtifact(c, a)
}

func (h *Handler) Create(c echo.Context) error {
	var req saveRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	a := &Assessment{PatientID: req.PatientID, Form: req.Form}
	if uid, err := uuid.Parse(auth.UserIDFromContext(c.Request().Context())); err == nil {
		a.CreatedBy = &uid
	}
	if err := h.svc.Create(c.Request().Context(), a); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, map[string]interface{}{"assessment": a})
}

func (h *Handler) Get(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	a, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"assessment": a})
}

func (h *Handler) Update(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var req saveRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	a, err := h.svc.Update(c.Request().Context(), id, req.Form, req.PatientID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"assessment": a})
}

func (h *Handler) ExportSaved(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	a, err := h.svc.ExportByID(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return sendArtifact(c, a)
}

func (h *Handler) ListByPatient(c echo.Context) error {
	patientID, err := parseID(c)
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	list, total, err := h.svc.ListByPatient(c.Request().Context(), patientID, pg.Limit, pg.Offset)
	if err != nil {
		return httpError(err)
	}
	basePath := fmt.Sprintf("/api/patients/%s/risk-assessments", patientID)
	return c.JSON(http.StatusOK, pagination.NewResponse(list, total, pg.Limit, pg.Offset).WithLinks(basePath))
}

func (h *Handler) Prefill(c echo.Context) error {
	patientID, err := parseID(c)
	if err != nil {
		return err
	}
	f, err := h.svc.Prefill(c.Request().Context(), patientID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"form": f})
}

func sendArtifact(c echo.Context, a *export.Artifact) error {
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", a.Name))
	c.Response().Header().Set("X-Page-Count", fmt.Sprint(a.Pages))
	return c.Blob(http.StatusOK, a.ContentType, a.Data)
}

func parseID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}

func httpError(err error) error {
	var verr *ValidationError
	var xerr *export.ExportError
	switch {
	case errors.As(err, &verr):
		return echo.NewHTTPError(http.StatusBadRequest, verr.Error())
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "risk assessment not found")
	case errors.Is(err, ErrPatientNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "patient not found")
	case errors.As(err, &xerr) && xerr.Stage == export.StageCanceled:
		return echo.NewHTTPError(http.StatusServiceUnavailable, "export canceled")
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}

package queue

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/bhis/bhis/internal/platform/auth"
)

// PatientDirectory resolves registered patients for queue intake and records
// the visit once service completes.
type PatientDirectory interface {
	Lookup(ctx context.Context, id uuid.UUID) (name string, age int, err error)
	RecordVisit(ctx context.Context, patientID uuid.UUID, purpose string) error
}

// CountsGauge receives the queue tally after every mutation.
type CountsGauge interface {
	SetQueueCounts(waiting, inProgress, completed, cancelled int)
}

// Notifier pushes queue changes to live displays.
type Notifier interface {
	Notify(topic, eventType string, payload interface{})
}

// Topic and event names published through the Notifier.
const (
	Topic           = "queue"
	EventAdded      = "queue.added"
	EventTransition = "queue.transition"
	EventSnapshot   = "queue.snapshot"
)

// Change is the payload of every queue event.
type Change struct {
	Entry  *Entry  `json:"entry,omitempty"`
	Counts Counts  `json:"counts"`
	Active []Entry `json:"active,omitempty"`
}

type Handler struct {
	store    *Store
	patients PatientDirectory
	gauge    CountsGauge
	notifier Notifier
	stream   echo.HandlerFunc
	logger   zerolog.Logger
}

func NewHandler(store *Store, logger zerolog.Logger) *Handler {
	return &Handler{store: store, logger: logger}
}

// SetPatientDirectory attaches the optional patient registry.
func (h *Handler) SetPatientDirectory(d PatientDirectory) {
	h.patients = d
}

// SetCountsGauge attaches the optional metrics sink.
func (h *Handler) SetCountsGauge(g CountsGauge) {
	h.gauge = g
}

// SetNotifier attaches the live feed. stream, when non-nil, serves
// GET /queue/stream.
func (h *Handler) SetNotifier(n Notifier, stream echo.HandlerFunc) {
	h.notifier = n
	h.stream = stream
}

// Snapshot returns the counts plus entries in service, then those waiting.
func (h *Handler) Snapshot() Change {
	active := append(h.store.NowServing(), h.store.List(FilterWaiting, "")...)
	return Change{Counts: h.store.Counts(), Active: active}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/queue", auth.RequireRole(auth.ClinicalRoles...))
	if h.stream != nil {
		g.GET("/stream", h.stream)
	}
	g.GET("", h.List)
	g.GET("/counts", h.Counts)
	g.GET("/now-serving", h.NowServing)
	g.GET("/:id", h.Get)
	g.POST("", h.Add)
	g.POST("/:id/start", h.StartService)
	g.POST("/:id/complete", h.CompleteService)
	g.POST("/:id/cancel", h.Cancel)
}

func (h *Handler) List(c echo.Context) error {
	filter, err := ParseFilter(c.QueryParam("filter"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	entries := h.store.List(filter, c.QueryParam("q"))
	return c.JSON(http.StatusOK, map[string]interface{}{
		"entries": entries,
		"total":   len(entries),
	})
}

func (h *Handler) Counts(c echo.Context) error {
	return c.JSON(http.StatusOK, h.store.Counts())
}

func (h *Handler) NowServing(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"entries": h.store.NowServing(),
	})
}

func (h *Handler) Get(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	e, err := h.store.Get(id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, e)
}

func (h *Handler) Add(c echo.Context) error {
	var ne NewEntry
	if err := c.Bind(&ne); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if ne.PatientID != nil && h.patients != nil {
		name, age, err := h.patients.Lookup(c.Request().Context(), *ne.PatientID)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "unknown patient_id")
		}
		if ne.Name == "" {
			ne.Name = name
		}
		if ne.Age == nil {
			ne.Age = &age
		}
	}

	e, err := h.store.Add(ne)
	if err != nil {
		return httpError(err)
	}
	h.logger.Info().
		Int("queue_id", e.ID).
		Str("priority", string(e.Priority)).
		Msg("patient joined queue")
	h.publish(EventAdded, e)
	return c.JSON(http.StatusCreated, e)
}

func (h *Handler) StartService(c echo.Context) error {
	return h.transition(c, h.store.StartService)
}

func (h *Handler) CompleteService(c echo.Context) error {
	return h.transition(c, h.store.CompleteService)
}

func (h *Handler) Cancel(c echo.Context) error {
	return h.transition(c, h.store.Cancel)
}

func (h *Handler) transition(c echo.Context, apply func(int) (Entry, error)) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	e, err := apply(id)
	if err != nil {
		return httpError(err)
	}
	h.logger.Info().
		Int("queue_id", e.ID).
		Str("status", string(e.Status)).
		Int("wait_time_minutes", e.WaitTimeMinutes).
		Msg("queue transition")

	if e.Status == StatusCompleted && e.PatientID != nil && h.patients != nil {
		if err := h.patients.RecordVisit(c.Request().Context(), *e.PatientID, e.Purpose); err != nil {
			h.logger.Warn().Err(err).
				Int("queue_id", e.ID).
				Str("patient_id", e.PatientID.String()).
				Msg("failed to record visit")
		}
	}
	h.publish(EventTransition, e)
	return c.JSON(http.StatusOK, e)
}

func (h *Handler) publish(event string, e Entry) {
	cnt := h.store.Counts()
	if h.gauge != nil {
		h.gauge.SetQueueCounts(cnt.Waiting, cnt.InProgress, cnt.Completed, cnt.Cancelled)
	}
	if h.notifier != nil {
		h.notifier.Notify(Topic, event, Change{Entry: &e, Counts: cnt})
	}
}

func parseID(c echo.Context) (int, error) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}

func httpError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrInvalidTransition):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, ErrInvalidEntry):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
}

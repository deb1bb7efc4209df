// Schedule HTTP handlers.
//
// This file exposes REST endpoints for message schedules:
//   - GET    /schedules   (projection: stored rows plus computed defaults)
//   - POST   /schedules   (create or replace)
//   - PATCH  /schedules   (partial update)
//   - DELETE /schedules   (disarm)
package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/event-campaigns/internal/domain"
	"github.com/tbourn/event-campaigns/internal/services"
)

//
// DTOs
//

// UpsertScheduleRequest is the JSON payload for creating or replacing a schedule.
type UpsertScheduleRequest struct {
	EventID      string    `json:"eventId" binding:"required" example:"6f1c2a0e-3b1d-4c55-9a39-0d7a0f3b9e11"`
	OwnerAccount string    `json:"ownerAccount" example:"acct_123"`
	Kind         string    `json:"kind" binding:"required" example:"reminder"`
	SendAt       time.Time `json:"sendAt" binding:"required" example:"2026-06-03T07:00:00Z"`
	Auto         bool      `json:"auto" example:"true"`
}

// PatchScheduleRequest updates only the fields that are present.
type PatchScheduleRequest struct {
	EventID      string     `json:"eventId" binding:"required"`
	OwnerAccount string     `json:"ownerAccount"`
	Kind         string     `json:"kind" binding:"required"`
	SendAt       *time.Time `json:"sendAt,omitempty"`
	Auto         *bool      `json:"auto,omitempty"`
}

// DisarmScheduleRequest names the schedule to disarm. Fields may also be
// given as query parameters.
type DisarmScheduleRequest struct {
	EventID      string `json:"eventId" form:"eventId"`
	OwnerAccount string `json:"ownerAccount" form:"ownerAccount"`
	Kind         string `json:"kind" form:"kind"`
}

// ListSchedulesResponse wraps the schedule projection of one event.
type ListSchedulesResponse struct {
	EventID   string                  `json:"eventId"`
	Schedules []services.ScheduleView `json:"schedules"`
}

//
// Handlers
//

// ListSchedules godoc
// @ID          listSchedules
// @Summary     List schedules of an event
// @Description Returns one entry per schedulable kind: the stored row when present, otherwise the computed default (auto=false, persisted=false).
// @Tags        Schedules
// @Produce     json
//
// @Param       X-Account-ID  header  string  false "Owning account (fallback)"  example(acct_123)
// @Param       eventId       query   string  true  "Event ID"
// @Param       ownerAccount  query   string  false "Owning account"
//
// @Success     200  {object} handlers.ListSchedulesResponse
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Event not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /schedules [get]
func (h *Handlers) ListSchedules(c *gin.Context) {
	eventID := strings.TrimSpace(c.Query("eventId"))
	owner := ownerAccount(c, "")
	if eventID == "" || owner == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "eventId and ownerAccount required")
		return
	}

	views, err := h.schedSvc.List(c.Request.Context(), owner, eventID)
	if err != nil {
		failService(c, err)
		return
	}
	ok(c, http.StatusOK, ListSchedulesResponse{EventID: eventID, Schedules: views})
}

// UpsertSchedule godoc
// @ID          upsertSchedule
// @Summary     Create or replace a schedule
// @Description Stores the send time and arm flag for (eventId, kind). An armed schedule must be in the future.
// @Tags        Schedules
// @Accept      json
// @Produce     json
//
// @Param       X-Account-ID  header  string  false "Owning account (fallback)"  example(acct_123)
// @Param       body          body    handlers.UpsertScheduleRequest  true  "Schedule"
//
// @Success     200  {object} domain.Schedule
// @Failure     400  {object} handlers.ErrorResponse "Bad request or unschedulable kind"
// @Failure     404  {object} handlers.ErrorResponse "Event not found"
// @Failure     409  {object} handlers.ErrorResponse "Event canceled"
// @Failure     422  {object} handlers.ErrorResponse "Armed schedule in the past"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /schedules [post]
func (h *Handlers) UpsertSchedule(c *gin.Context) {
	var req UpsertScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.SendAt.IsZero() {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "eventId, kind and sendAt required")
		return
	}
	owner := ownerAccount(c, req.OwnerAccount)
	if owner == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "ownerAccount required")
		return
	}

	sc, err := h.schedSvc.Upsert(c.Request.Context(), owner, req.EventID, domain.MessageKind(req.Kind), req.SendAt, req.Auto)
	if err != nil {
		failService(c, err)
		return
	}
	ok(c, http.StatusOK, sc)
}

// PatchSchedule godoc
// @ID          patchSchedule
// @Summary     Update a schedule
// @Description Changes sendAt and/or auto. Missing fields keep the stored value, or the computed default when nothing is stored.
// @Tags        Schedules
// @Accept      json
// @Produce     json
//
// @Param       X-Account-ID  header  string  false "Owning account (fallback)"  example(acct_123)
// @Param       body          body    handlers.PatchScheduleRequest  true  "Fields to change"
//
// @Success     200  {object} domain.Schedule
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Event not found"
// @Failure     409  {object} handlers.ErrorResponse "Event canceled"
// @Failure     422  {object} handlers.ErrorResponse "Armed schedule in the past"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /schedules [patch]
func (h *Handlers) PatchSchedule(c *gin.Context) {
	var req PatchScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "eventId and kind required")
		return
	}
	if req.SendAt == nil && req.Auto == nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "nothing to update")
		return
	}
	owner := ownerAccount(c, req.OwnerAccount)
	if owner == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "ownerAccount required")
		return
	}

	sc, err := h.schedSvc.Patch(c.Request.Context(), owner, req.EventID, domain.MessageKind(req.Kind),
		services.SchedulePatch{SendAt: req.SendAt, Auto: req.Auto})
	if err != nil {
		failService(c, err)
		return
	}
	ok(c, http.StatusOK, sc)
}

// DisarmSchedule godoc
// @ID          disarmSchedule
// @Summary     Disarm a schedule
// @Description Turns automatic sending off for (eventId, kind). Idempotent.
// @Tags        Schedules
// @Accept      json
//
// @Param       X-Account-ID  header  string  false "Owning account (fallback)"  example(acct_123)
// @Param       eventId       query   string  false "Event ID (or in body)"
// @Param       kind          query   string  false "Message kind (or in body)"
// @Param       body          body    handlers.DisarmScheduleRequest  false  "Schedule to disarm"
//
// @Success     204  {string} string "No Content"
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Event not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /schedules [delete]
func (h *Handlers) DisarmSchedule(c *gin.Context) {
	var req DisarmScheduleRequest
	_ = c.ShouldBindQuery(&req)
	if req.EventID == "" || req.Kind == "" {
		if c.Request.ContentLength != 0 {
			if err := c.ShouldBindJSON(&req); err != nil {
				fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
				return
			}
		}
	}
	if req.EventID == "" || req.Kind == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "eventId and kind required")
		return
	}
	owner := ownerAccount(c, req.OwnerAccount)
	if owner == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "ownerAccount required")
		return
	}

	if err := h.schedSvc.Disarm(c.Request.Context(), owner, req.EventID, domain.MessageKind(req.Kind)); err != nil {
		failService(c, err)
		return
	}
	noContent(c)
}

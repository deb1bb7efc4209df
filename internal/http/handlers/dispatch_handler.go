// Dispatch HTTP handlers.
//
// This file exposes:
//   - POST /dispatch   (run one manual batch)
//   - GET  /audience   (who a batch would reach right now)
//
// Idempotency:
// POST /dispatch honors Idempotency-Key. The middleware replays the stored
// response of a completed batch (`Idempotency-Replayed: true`), so a retried
// request never sends twice.
package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/event-campaigns/internal/campaign"
	"github.com/tbourn/event-campaigns/internal/domain"
	"github.com/tbourn/event-campaigns/internal/services"
)

//
// DTOs
//

// DispatchRequest is the JSON payload for a manual send.
type DispatchRequest struct {
	EventID      string `json:"eventId" binding:"required" example:"6f1c2a0e-3b1d-4c55-9a39-0d7a0f3b9e11"`
	OwnerAccount string `json:"ownerAccount" example:"acct_123"`
	Kind         string `json:"kind" binding:"required" example:"invitation"`
	// Segment applies to cancel notices only: all | coming | declined | no-answer.
	Segment string `json:"segment,omitempty" example:"all"`
	// SkipAlreadySent defaults to true.
	SkipAlreadySent *bool              `json:"skipAlreadySent,omitempty" example:"true"`
	Overrides       campaign.Overrides `json:"overrides"`
}

//
// Handlers
//

// Dispatch godoc
// @ID          dispatch
// @Summary     Send a message kind to an event's audience
// @Description Resolves the audience, checks credit for the whole batch (all or nothing) and sends one message per recipient.
// @Description Per-recipient failures are reported in the results and cost no credit. Supports Idempotency-Key.
// @Tags        Dispatch
// @Accept      json
// @Produce     json
//
// @Param       X-Account-ID     header  string  false "Owning account (fallback)"  example(acct_123)
// @Param       Idempotency-Key  header  string  false "Idempotency key for safe retries"  example(7a8d9f4c-1b2a-4c3d-8e9f-0123456789ab)
// @Param       body             body    handlers.DispatchRequest  true  "Dispatch"
//
// @Success     200  {object} services.DispatchResult
// @Header      200  {string} Idempotency-Replayed "true when served from a previous identical request"
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     402  {object} handlers.InsufficientCreditResponse "Insufficient credit"
// @Failure     404  {object} handlers.ErrorResponse "Event not found"
// @Failure     409  {object} handlers.ErrorResponse "Event canceled"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /dispatch [post]
func (h *Handlers) Dispatch(c *gin.Context) {
	var req DispatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "eventId and kind required")
		return
	}
	owner := ownerAccount(c, req.OwnerAccount)
	if owner == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "ownerAccount required")
		return
	}
	skip := true
	if req.SkipAlreadySent != nil {
		skip = *req.SkipAlreadySent
	}

	res, err := h.dispatchSvc.Dispatch(c.Request.Context(), services.DispatchRequest{
		OwnerID:         owner,
		EventID:         req.EventID,
		Kind:            domain.MessageKind(req.Kind),
		Segment:         domain.Segment(req.Segment),
		SkipAlreadySent: skip,
		Overrides:       req.Overrides,
		Trigger:         domain.TriggerManual,
	})
	if err != nil {
		failService(c, err)
		return
	}
	ok(c, http.StatusOK, res)
}

// PreviewAudience godoc
// @ID          previewAudience
// @Summary     Preview a dispatch
// @Description Counts the recipients a dispatch would reach now and whether the balance covers them. Nothing is sent.
// @Tags        Dispatch
// @Produce     json
//
// @Param       X-Account-ID     header  string  false "Owning account (fallback)"  example(acct_123)
// @Param       eventId          query   string  true  "Event ID"
// @Param       ownerAccount     query   string  false "Owning account"
// @Param       kind             query   string  true  "Message kind"  Enums(save-date, invitation, reminder, table-number, thank-you, cancel)
// @Param       segment          query   string  false "Cancel segment"  Enums(all, coming, declined, no-answer)
// @Param       skipAlreadySent  query   bool    false "Exclude phones already reached"  default(true)
//
// @Success     200  {object} services.AudiencePreview
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Event not found"
// @Failure     409  {object} handlers.ErrorResponse "Event canceled"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /audience [get]
func (h *Handlers) PreviewAudience(c *gin.Context) {
	eventID := strings.TrimSpace(c.Query("eventId"))
	kind := strings.TrimSpace(c.Query("kind"))
	owner := ownerAccount(c, "")
	if eventID == "" || kind == "" || owner == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "eventId, kind and ownerAccount required")
		return
	}
	skip := true
	if v := c.Query("skipAlreadySent"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "skipAlreadySent must be a boolean")
			return
		}
		skip = b
	}

	p, err := h.dispatchSvc.Preview(c.Request.Context(), services.DispatchRequest{
		OwnerID:         owner,
		EventID:         eventID,
		Kind:            domain.MessageKind(kind),
		Segment:         domain.Segment(c.Query("segment")),
		SkipAlreadySent: skip,
	})
	if err != nil {
		failService(c, err)
		return
	}
	ok(c, http.StatusOK, p)
}

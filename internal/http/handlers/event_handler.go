// Event, billing and scheduler HTTP handlers.
//
//   - POST /events/{id}/cancel     (mark canceled, disarm every schedule)
//   - GET  /accounts/{id}/credit   (balance)
//   - POST /accounts/{id}/credit   (top up or charge back)
//   - POST /scheduler/run          (fire due schedules now)
package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/event-campaigns/internal/services"
)

//
// DTOs
//

// CancelEventRequest is the optional JSON payload of a cancel call.
type CancelEventRequest struct {
	OwnerAccount string `json:"ownerAccount" example:"acct_123"`
}

// AdjustCreditRequest changes a balance by Delta (may be negative).
type AdjustCreditRequest struct {
	Delta int64 `json:"delta" binding:"required" example:"100"`
}

// CreditResponse is the public view of a credit account.
type CreditResponse struct {
	OwnerAccount string `json:"ownerAccount"`
	Balance      int64  `json:"balance"`
	Reserved     int64  `json:"reserved"`
	Used         int64  `json:"used"`
}

// RunSchedulerResponse lists what a scheduler run fired.
type RunSchedulerResponse struct {
	Fired []services.FiredSchedule `json:"fired"`
}

//
// Handlers
//

// CancelEvent godoc
// @ID          cancelEvent
// @Summary     Cancel an event
// @Description Marks the event canceled and disarms all of its schedules. Only cancel notices can be dispatched afterwards.
// @Tags        Events
// @Accept      json
// @Produce     json
//
// @Param       X-Account-ID  header  string  false "Owning account (fallback)"  example(acct_123)
// @Param       id            path    string  true  "Event ID"
// @Param       body          body    handlers.CancelEventRequest  false  "Owner"
//
// @Success     200  {object} domain.Event
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Event not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /events/{id}/cancel [post]
func (h *Handlers) CancelEvent(c *gin.Context) {
	var req CancelEventRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
			return
		}
	}
	owner := ownerAccount(c, req.OwnerAccount)
	if owner == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "ownerAccount required")
		return
	}

	ev, err := h.eventSvc.Cancel(c.Request.Context(), owner, c.Param("id"))
	if err != nil {
		failService(c, err)
		return
	}
	ok(c, http.StatusOK, ev)
}

// GetCredit godoc
// @ID          getCredit
// @Summary     Get credit balance
// @Tags        Billing
// @Produce     json
//
// @Param       id  path  string  true  "Account ID"
//
// @Success     200  {object} handlers.CreditResponse
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /accounts/{id}/credit [get]
func (h *Handlers) GetCredit(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	acc, err := h.creditSvc.Balance(c.Request.Context(), id)
	if err != nil {
		failService(c, err)
		return
	}
	ok(c, http.StatusOK, CreditResponse{OwnerAccount: id, Balance: acc.Balance, Reserved: acc.Reserved, Used: acc.Used})
}

// AdjustCredit godoc
// @ID          adjustCredit
// @Summary     Adjust credit balance
// @Description Adds delta to the balance. A charge that would make the balance negative is refused.
// @Tags        Billing
// @Accept      json
// @Produce     json
//
// @Param       id    path  string  true  "Account ID"
// @Param       body  body  handlers.AdjustCreditRequest  true  "Delta"
//
// @Success     200  {object} handlers.CreditResponse
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     409  {object} handlers.ErrorResponse "Balance would become negative"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /accounts/{id}/credit [post]
func (h *Handlers) AdjustCredit(c *gin.Context) {
	var req AdjustCreditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "non-zero delta required")
		return
	}
	id := strings.TrimSpace(c.Param("id"))
	acc, err := h.creditSvc.Adjust(c.Request.Context(), id, req.Delta)
	if err != nil {
		failService(c, err)
		return
	}
	ok(c, http.StatusOK, CreditResponse{OwnerAccount: id, Balance: acc.Balance, Reserved: acc.Reserved, Used: acc.Used})
}

// RunScheduler godoc
// @ID          runScheduler
// @Summary     Fire due schedules
// @Description Claims every armed schedule whose send time has passed and dispatches it best-effort. Each schedule fires at most once.
// @Tags        Scheduler
// @Produce     json
//
// @Success     200  {object} handlers.RunSchedulerResponse
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /scheduler/run [post]
func (h *Handlers) RunScheduler(c *gin.Context) {
	fired, err := h.schedRunner.RunDue(c.Request.Context(), h.now())
	if err != nil {
		failService(c, err)
		return
	}
	if fired == nil {
		fired = []services.FiredSchedule{}
	}
	ok(c, http.StatusOK, RunSchedulerResponse{Fired: fired})
}

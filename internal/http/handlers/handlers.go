// Package handlers – service contracts and shared helpers.
//
// The campaign API exposes:
//   - /schedules        (list, upsert, patch, disarm)
//   - /dispatch         (run a batch, Idempotency-Key aware)
//   - /audience         (preview a batch)
//   - /delivery-log     (paginated, weak ETag)
//   - /events/{id}/cancel
//   - /accounts/{id}/credit
//   - /scheduler/run
//
// Handlers are transport-thin: they validate input, call application services,
// and translate results and sentinel errors into HTTP responses.
package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/event-campaigns/internal/domain"
	"github.com/tbourn/event-campaigns/internal/http/middleware"
	"github.com/tbourn/event-campaigns/internal/repo"
	"github.com/tbourn/event-campaigns/internal/services"
	"github.com/tbourn/event-campaigns/internal/sysutil"
	"github.com/tbourn/event-campaigns/internal/utils"
)

//
// Service contracts (context-aware)
//

// ScheduleService manages per-(event, kind) schedules.
type ScheduleService interface {
	List(ctx context.Context, ownerID, eventID string) ([]services.ScheduleView, error)
	Upsert(ctx context.Context, ownerID, eventID string, kind domain.MessageKind, sendAt time.Time, auto bool) (*domain.Schedule, error)
	Patch(ctx context.Context, ownerID, eventID string, kind domain.MessageKind, p services.SchedulePatch) (*domain.Schedule, error)
	Disarm(ctx context.Context, ownerID, eventID string, kind domain.MessageKind) error
}

// DispatchService runs and previews batches.
type DispatchService interface {
	Dispatch(ctx context.Context, req services.DispatchRequest) (*services.DispatchResult, error)
	Preview(ctx context.Context, req services.DispatchRequest) (*services.AudiencePreview, error)
}

// DeliveryLogService reads the append-only delivery log.
type DeliveryLogService interface {
	ListPage(ctx context.Context, f repo.DeliveryFilter, page, pageSize int) ([]domain.DeliveryLogEntry, int64, error)
	Stats(ctx context.Context, f repo.DeliveryFilter) (int64, *time.Time, error)
}

// EventService covers the event operations owned by this engine.
type EventService interface {
	Cancel(ctx context.Context, ownerID, eventID string) (*domain.Event, error)
}

// CreditService exposes the account ledger.
type CreditService interface {
	Balance(ctx context.Context, ownerID string) (*domain.CreditAccount, error)
	Adjust(ctx context.Context, ownerID string, delta int64) (*domain.CreditAccount, error)
}

// SchedulerService fires due schedules on demand.
type SchedulerService interface {
	RunDue(ctx context.Context, now time.Time) ([]services.FiredSchedule, error)
}

//
// Handler wiring
//

// Services bundles the dependencies of Handlers.
type Services struct {
	Schedules  ScheduleService
	Dispatch   DispatchService
	Deliveries DeliveryLogService
	Events     EventService
	Credits    CreditService
	Scheduler  SchedulerService
}

// Handlers groups the campaign HTTP endpoints.
type Handlers struct {
	schedSvc    ScheduleService
	dispatchSvc DispatchService
	logSvc      DeliveryLogService
	eventSvc    EventService
	creditSvc   CreditService
	schedRunner SchedulerService

	now func() time.Time
}

// New constructs Handlers bound to the given services.
func New(s Services) *Handlers {
	return &Handlers{
		schedSvc:    s.Schedules,
		dispatchSvc: s.Dispatch,
		logSvc:      s.Deliveries,
		eventSvc:    s.Events,
		creditSvc:   s.Credits,
		schedRunner: s.Scheduler,
		now:         time.Now,
	}
}

// ownerAccount resolves the owning account: explicit body value, then the
// ownerAccount query parameter, then the X-Account-ID header.
func ownerAccount(c *gin.Context, fromBody string) string {
	return strings.TrimSpace(sysutil.FirstNonEmpty(fromBody, c.Query("ownerAccount"), middleware.AccountIDFrom(c)))
}

//
// DTOs
//

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

func newPagination(page, pageSize int, total int64) Pagination {
	totalPages := utils.TotalPages(total, pageSize)
	return Pagination{
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
	}
}

// failService maps service sentinels onto the error envelope.
func failService(c *gin.Context, err error) {
	var ice *services.InsufficientCreditError
	switch {
	case errors.As(err, &ice):
		failWith(c, http.StatusPaymentRequired, ErrCodeInsufficientCredit, ice.Error(), InsufficientCreditResponse{
			ErrorResponse: envelope(c, ErrCodeInsufficientCredit, ice.Error()),
			Balance:       ice.Balance,
			Required:      ice.Required,
		})
	case errors.Is(err, services.ErrInsufficientCredit):
		fail(c, http.StatusPaymentRequired, ErrCodeInsufficientCredit, err.Error())
	case errors.Is(err, services.ErrEventNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, err.Error())
	case errors.Is(err, services.ErrEventCanceled):
		fail(c, http.StatusConflict, ErrCodeEventCanceled, err.Error())
	case errors.Is(err, services.ErrInvalidSchedule):
		fail(c, http.StatusUnprocessableEntity, ErrCodeInvalidSchedule, err.Error())
	case errors.Is(err, services.ErrKindNotSchedulable),
		errors.Is(err, services.ErrUnknownKind),
		errors.Is(err, services.ErrInvalidSegment):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
	case errors.Is(err, services.ErrNegativeBalance):
		fail(c, http.StatusConflict, ErrCodeNegativeBalance, err.Error())
	default:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
	}
}

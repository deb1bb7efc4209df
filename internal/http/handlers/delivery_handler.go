// Delivery log HTTP handler.
//
//   - GET /delivery-log   (paginated, newest first, weak ETag)
package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/event-campaigns/internal/campaign"
	"github.com/tbourn/event-campaigns/internal/domain"
	"github.com/tbourn/event-campaigns/internal/repo"
	"github.com/tbourn/event-campaigns/internal/utils"
)

// ListDeliveryLogResponse wraps a page of delivery log rows.
type ListDeliveryLogResponse struct {
	Entries    []domain.DeliveryLogEntry `json:"entries"`
	Pagination Pagination                `json:"pagination"`
}

// ListDeliveryLog godoc
// @ID          listDeliveryLog
// @Summary     Query the delivery log
// @Description Returns delivery attempts of an event, newest first. Supports weak ETag via If-None-Match and may return 304.
// @Tags        DeliveryLog
// @Produce     json
//
// @Param       X-Account-ID   header  string  false "Owning account (fallback)"  example(acct_123)
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"
// @Param       eventId        query   string  true  "Event ID"
// @Param       ownerAccount   query   string  false "Owning account"
// @Param       kind           query   string  false "Message kind"
// @Param       guestPhone     query   string  false "Guest phone (any formatting)"
// @Param       outcome        query   string  false "sent | failed"
// @Param       page           query   int     false "Page number"     minimum(1) default(1)
// @Param       page_size      query   int     false "Items per page"  minimum(1) maximum(200) default(50)
//
// @Success     200  {object} handlers.ListDeliveryLogResponse
// @Header      200  {string} ETag "Weak ETag for current result"
// @Success     304  {string} string "Not Modified"
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /delivery-log [get]
func (h *Handlers) ListDeliveryLog(c *gin.Context) {
	ctx := c.Request.Context()
	f := repo.DeliveryFilter{
		OwnerID: ownerAccount(c, ""),
		EventID: strings.TrimSpace(c.Query("eventId")),
	}
	if f.OwnerID == "" || f.EventID == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "eventId and ownerAccount required")
		return
	}
	if k := c.Query("kind"); k != "" {
		kind, err := domain.ParseMessageKind(k)
		if err != nil {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "unknown message kind")
			return
		}
		f.Kind = kind
	}
	if p := c.Query("guestPhone"); p != "" {
		phone, valid := campaign.NormalizePhone(p)
		if !valid {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid guestPhone")
			return
		}
		f.Phone = phone
	}
	switch o := domain.Outcome(c.Query("outcome")); o {
	case "":
	case domain.OutcomeSent, domain.OutcomeFailed:
		f.Outcome = o
	default:
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "outcome must be sent or failed")
		return
	}
	pg := utils.ParsePage(c.Query("page"), c.Query("page_size"))

	// ETag pre-check (best effort). The log is append-only, so count and
	// newest timestamp identify the result.
	if count, maxTS, err := h.logSvc.Stats(ctx, f); err == nil {
		var ts int64
		if maxTS != nil {
			ts = maxTS.UnixNano()
		}
		etag := fmt.Sprintf(`W/"deliveries:%s:%d:%d:%d:%d"`, f.EventID, count, ts, pg.Number, pg.Size)
		c.Header("ETag", etag)
		if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
			c.Status(http.StatusNotModified)
			return
		}
	}

	items, total, err := h.logSvc.ListPage(ctx, f, pg.Number, pg.Size)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, ListDeliveryLogResponse{
		Entries:    items,
		Pagination: newPagination(pg.Number, pg.Size, total),
	})
}

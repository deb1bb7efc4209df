package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/event-campaigns/internal/campaign"
	"github.com/tbourn/event-campaigns/internal/domain"
	"github.com/tbourn/event-campaigns/internal/http/middleware"
	"github.com/tbourn/event-campaigns/internal/repo"
	"github.com/tbourn/event-campaigns/internal/services"
)

// ---------- test DB + repo shim ----------

func newHandlerDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:handlers_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db.Exec("PRAGMA foreign_keys=ON;")
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

type testScheduleRepo struct{}

func (testScheduleRepo) GetEvent(ctx context.Context, db *gorm.DB, id, ownerID string) (*domain.Event, error) {
	return repo.GetEvent(ctx, db, id, ownerID)
}

func (testScheduleRepo) GetSchedule(ctx context.Context, db *gorm.DB, eventID string, kind domain.MessageKind) (*domain.Schedule, error) {
	return repo.GetSchedule(ctx, db, eventID, kind)
}

func (testScheduleRepo) ListSchedules(ctx context.Context, db *gorm.DB, eventID string) ([]domain.Schedule, error) {
	return repo.ListSchedules(ctx, db, eventID)
}

func (testScheduleRepo) UpsertSchedule(ctx context.Context, db *gorm.DB, eventID string, kind domain.MessageKind, sendAt time.Time, auto bool) (*domain.Schedule, error) {
	return repo.UpsertSchedule(ctx, db, eventID, kind, sendAt, auto)
}

func (testScheduleRepo) DisarmSchedule(ctx context.Context, db *gorm.DB, eventID string, kind domain.MessageKind) (int64, error) {
	return repo.DisarmSchedule(ctx, db, eventID, kind)
}

// recordingSender counts transport calls.
type recordingSender struct {
	mu    sync.Mutex
	calls []string
	fail  func(phone string) error
}

func (s *recordingSender) Send(_ context.Context, phone, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, phone)
	if s.fail != nil {
		return s.fail(phone)
	}
	return nil
}

func (s *recordingSender) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

// ---------- fixture ----------

type fixture struct {
	db     *gorm.DB
	sender *recordingSender
	r      *gin.Engine
}

// newFixture wires real services over an in-memory DB, the way the router
// does, plus the account and idempotency middleware.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db := newHandlerDB(t)
	sender := &recordingSender{}
	dispatcher := &services.DispatchService{DB: db, Sender: sender, Composer: campaign.NewComposer("https://rsvp.test")}

	h := New(Services{
		Schedules:  services.NewScheduleService(db, testScheduleRepo{}),
		Dispatch:   dispatcher,
		Deliveries: &services.DeliveryLogService{DB: db},
		Events:     &services.EventService{DB: db},
		Credits:    &services.CreditService{DB: db},
		Scheduler:  &services.SchedulerService{DB: db, Dispatcher: dispatcher},
	})

	r := gin.New()
	r.Use(middleware.Account())
	r.Use(middleware.IdempotencyValidator(
		middleware.IdempotencyOptions{
			Store: func(ctx context.Context, account, scope, key string, status int, body []byte) error {
				_, err := repo.CreateIdempotency(ctx, db, account, scope, key, status, body, time.Hour)
				return err
			},
		},
		func(ctx context.Context, account, scope, key string, now time.Time) (*middleware.StoredResponse, error) {
			rec, err := repo.GetIdempotency(ctx, db, account, scope, key, now)
			if err != nil || rec == nil {
				return nil, err
			}
			return &middleware.StoredResponse{Status: rec.Status, Body: rec.Body}, nil
		},
	))
	r.GET("/schedules", h.ListSchedules)
	r.POST("/schedules", h.UpsertSchedule)
	r.PATCH("/schedules", h.PatchSchedule)
	r.DELETE("/schedules", h.DisarmSchedule)
	r.POST("/dispatch", h.Dispatch)
	r.GET("/audience", h.PreviewAudience)
	r.GET("/delivery-log", h.ListDeliveryLog)
	r.POST("/events/:id/cancel", h.CancelEvent)
	r.GET("/accounts/:id/credit", h.GetCredit)
	r.POST("/accounts/:id/credit", h.AdjustCredit)
	r.POST("/scheduler/run", h.RunScheduler)

	return &fixture{db: db, sender: sender, r: r}
}

func (f *fixture) do(t *testing.T, method, target string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	req := httptest.NewRequest(method, target, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	f.r.ServeHTTP(w, req)
	return w
}

func (f *fixture) seedEvent(t *testing.T, owner string, at time.Time) *domain.Event {
	t.Helper()
	ev := &domain.Event{
		ID: uuid.NewString(), OwnerID: owner, Type: domain.EventWedding,
		Name1: "Dana", Name2: "Avi", EventAt: at.UTC(), Timezone: "UTC", Venue: "Garden Hall",
	}
	if err := f.db.Create(ev).Error; err != nil {
		t.Fatalf("seed event: %v", err)
	}
	return ev
}

func (f *fixture) seedGuest(t *testing.T, eventID, phone string, st domain.RSVPStatus) {
	t.Helper()
	g := &domain.Recipient{ID: uuid.NewString(), EventID: eventID, Name: "Guest " + phone, Phone: phone, RSVPStatus: st}
	if err := f.db.Create(g).Error; err != nil {
		t.Fatalf("seed guest: %v", err)
	}
	time.Sleep(time.Millisecond)
}

func (f *fixture) seedCredit(t *testing.T, owner string, n int64) {
	t.Helper()
	if _, err := repo.AdjustCredit(context.Background(), f.db, owner, n); err != nil {
		t.Fatalf("seed credit: %v", err)
	}
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return v
}

func expectCode(t *testing.T, w *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	if w.Code != status {
		t.Fatalf("status = %d; want %d (body %s)", w.Code, status, w.Body.String())
	}
	if code == "" {
		return
	}
	if got := decode[ErrorResponse](t, w); got.Code != code {
		t.Fatalf("code = %q; want %q", got.Code, code)
	}
}


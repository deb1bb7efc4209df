package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/event-campaigns/internal/campaign"
	"github.com/tbourn/event-campaigns/internal/domain"
	"github.com/tbourn/event-campaigns/internal/repo"
)

// ---------- test helpers ----------

func newSvcDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:svc_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db.Exec("PRAGMA foreign_keys=ON;")
	require.NoError(t, repo.AutoMigrate(db))
	return db
}

func seedEvent(t *testing.T, db *gorm.DB, owner string, at time.Time) *domain.Event {
	t.Helper()
	ev := &domain.Event{
		ID: uuid.NewString(), OwnerID: owner, Type: domain.EventWedding,
		Name1: "Dana", Name2: "Avi", EventAt: at.UTC(), Timezone: "UTC",
		Venue: "Garden Hall",
	}
	require.NoError(t, db.Create(ev).Error)
	return ev
}

func seedGuest(t *testing.T, db *gorm.DB, eventID, name, phone string, st domain.RSVPStatus) domain.Recipient {
	t.Helper()
	r := domain.Recipient{ID: uuid.NewString(), EventID: eventID, Name: name, Phone: phone, RSVPStatus: st}
	require.NoError(t, db.Create(&r).Error)
	// Keep creation order strictly increasing for stable resolution order.
	time.Sleep(time.Millisecond)
	return r
}

func seedCredit(t *testing.T, db *gorm.DB, owner string, balance int64) {
	t.Helper()
	_, err := repo.AdjustCredit(context.Background(), db, owner, balance)
	require.NoError(t, err)
}

func credit(t *testing.T, db *gorm.DB, owner string) *domain.CreditAccount {
	t.Helper()
	acc, err := repo.GetCredit(context.Background(), db, owner)
	require.NoError(t, err)
	return acc
}

func logRows(t *testing.T, db *gorm.DB, eventID string) []domain.DeliveryLogEntry {
	t.Helper()
	var out []domain.DeliveryLogEntry
	require.NoError(t, db.Where("event_id = ?", eventID).Order("created_at asc").Find(&out).Error)
	return out
}

// fakeSender records calls and fails or panics for configured phones.
type fakeSender struct {
	mu     sync.Mutex
	calls  []string
	fail   map[string]bool
	panics map[string]bool
}

func (f *fakeSender) Send(_ context.Context, phone, _ string) error {
	f.mu.Lock()
	f.calls = append(f.calls, phone)
	fail, boom := f.fail[phone], f.panics[phone]
	f.mu.Unlock()
	if boom {
		panic("gateway exploded")
	}
	if fail {
		return fmt.Errorf("gateway rejected %s", phone)
	}
	return nil
}

func (f *fakeSender) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// gatedSender holds the first Send until release is closed; entered is
// closed once that first Send has started.
type gatedSender struct {
	fakeSender
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func newGatedSender() *gatedSender {
	return &gatedSender{entered: make(chan struct{}), release: make(chan struct{})}
}

func (g *gatedSender) Send(ctx context.Context, phone, text string) error {
	g.once.Do(func() {
		close(g.entered)
		<-g.release
	})
	return g.fakeSender.Send(ctx, phone, text)
}

func newDispatcher(db *gorm.DB, s *fakeSender) *DispatchService {
	return &DispatchService{DB: db, Sender: s, Composer: campaign.NewComposer("https://rsvp.test")}
}

// scheduleRepo adapts repo free functions to ScheduleRepo.
type scheduleRepo struct{}

func (scheduleRepo) GetEvent(ctx context.Context, db *gorm.DB, id, ownerID string) (*domain.Event, error) {
	return repo.GetEvent(ctx, db, id, ownerID)
}
func (scheduleRepo) GetSchedule(ctx context.Context, db *gorm.DB, eventID string, kind domain.MessageKind) (*domain.Schedule, error) {
	return repo.GetSchedule(ctx, db, eventID, kind)
}
func (scheduleRepo) ListSchedules(ctx context.Context, db *gorm.DB, eventID string) ([]domain.Schedule, error) {
	return repo.ListSchedules(ctx, db, eventID)
}
func (scheduleRepo) UpsertSchedule(ctx context.Context, db *gorm.DB, eventID string, kind domain.MessageKind, sendAt time.Time, auto bool) (*domain.Schedule, error) {
	return repo.UpsertSchedule(ctx, db, eventID, kind, sendAt, auto)
}
func (scheduleRepo) DisarmSchedule(ctx context.Context, db *gorm.DB, eventID string, kind domain.MessageKind) (int64, error) {
	return repo.DisarmSchedule(ctx, db, eventID, kind)
}

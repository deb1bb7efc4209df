package repo

import (
	"fmt"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite (no CGO)
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/event-campaigns/internal/domain"
)

// newTestDB opens a private in-memory database with the full schema. A
// single connection keeps PRAGMA foreign_keys effective for every query.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:repo_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	db.Exec("PRAGMA foreign_keys=ON;")
	if err := AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func seedEvent(t *testing.T, db *gorm.DB, id, owner string, at time.Time) *domain.Event {
	t.Helper()
	ev := &domain.Event{ID: id, OwnerID: owner, Type: domain.EventWedding, Name1: "A", Name2: "B", EventAt: at.UTC(), Timezone: "UTC"}
	if err := db.Create(ev).Error; err != nil {
		t.Fatalf("seed event: %v", err)
	}
	return ev
}

// Package domain defines the persistence models of the campaign engine:
// events and their recipients (owned by the surrounding guest-management
// tool), schedules, the append-only delivery log and credit accounts.
// These types are mapped with GORM.
package domain

import (
	"time"
)

// Event is a celebration whose guests receive notifications. Rows are owned
// by the external event CRUD; the campaign engine only flips Canceled.
//
// Fields:
//   - ID: UUID primary key (char(36)).
//   - OwnerID: billing account that pays for sends; indexed.
//   - Type: drives celebrant naming in composed messages.
//   - Name1 / Name2: celebrant names (Name2 used for weddings).
//   - EventAt: instant of the event, stored in UTC.
//   - Timezone: IANA zone used for local dates and default send times.
//   - Canceled: once true only cancel notices may be sent.
type Event struct {
	ID        string    `json:"id"       gorm:"type:char(36);primaryKey"`
	OwnerID   string    `json:"ownerId"  gorm:"type:varchar(64);not null;index:idx_owner_events"`
	Type      EventType `json:"type"     gorm:"type:varchar(16);not null;default:'other'"`
	Name1     string    `json:"name1"    gorm:"type:varchar(255);not null;default:''"`
	Name2     string    `json:"name2"    gorm:"type:varchar(255);not null;default:''"`
	EventAt   time.Time `json:"eventAt"  gorm:"not null"`
	Timezone  string    `json:"timezone" gorm:"type:varchar(64);not null;default:'UTC'"`
	Venue     string    `json:"venue"    gorm:"type:varchar(255);not null;default:''"`
	Address   string    `json:"address"  gorm:"type:varchar(255);not null;default:''"`
	Canceled  bool      `json:"canceled" gorm:"not null;default:false"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName returns the database table name for Event.
func (Event) TableName() string { return "events" }

// Location resolves the event timezone, falling back to UTC when the zone
// is blank or unknown.
func (e Event) Location() *time.Location {
	if e.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(e.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Recipient is a guest of an event. Phone is free text as typed by the
// host and may be blank or unparsable. Table is the seating label copied
// from the seating plan, blank until seats are assigned.
type Recipient struct {
	ID         string     `json:"id"         gorm:"type:char(36);primaryKey"`
	EventID    string     `json:"eventId"    gorm:"type:char(36);not null;index:idx_event_guests"`
	Name       string     `json:"name"       gorm:"type:varchar(255);not null;default:''"`
	Phone      string     `json:"phone"      gorm:"type:varchar(64);not null;default:''"`
	RSVPStatus RSVPStatus `json:"rsvpStatus" gorm:"column:rsvp_status;type:varchar(16);not null;default:'no-answer';check:rsvp_status IN ('no-answer','coming','not-coming','maybe')"`
	Table      string     `json:"table"      gorm:"column:table_label;type:varchar(32);not null;default:''"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`

	Event Event `json:"-" gorm:"foreignKey:EventID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Recipient.
func (Recipient) TableName() string { return "guests" }

// Schedule is the persisted send plan for one (event, kind). Auto=true
// means the scheduler will fire it once SendAt has passed. Disarming keeps
// SendAt so the operator can re-arm later.
type Schedule struct {
	ID        string      `json:"id"      gorm:"type:char(36);primaryKey"`
	EventID   string      `json:"eventId" gorm:"type:char(36);not null;uniqueIndex:ux_schedule_event_kind,priority:1"`
	Kind      MessageKind `json:"kind"    gorm:"type:varchar(16);not null;uniqueIndex:ux_schedule_event_kind,priority:2"`
	SendAt    time.Time   `json:"sendAt"  gorm:"not null;index:idx_schedules_due,priority:2"`
	Auto      bool        `json:"auto"    gorm:"not null;default:false;index:idx_schedules_due,priority:1"`
	CreatedAt time.Time   `json:"createdAt"`
	UpdatedAt time.Time   `json:"updatedAt"`

	// Schedules go away with their event.
	Event Event `json:"-" gorm:"foreignKey:EventID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Schedule.
func (Schedule) TableName() string { return "schedules" }

// DeliveryLogEntry is one append-only record per send attempt. There is no
// foreign key to events so the history survives event deletion.
type DeliveryLogEntry struct {
	ID        string      `json:"id"                 gorm:"type:char(36);primaryKey"`
	OwnerID   string      `json:"ownerAccount"       gorm:"type:varchar(64);not null;index:idx_delivery_lookup,priority:1"`
	EventID   string      `json:"eventId"            gorm:"type:char(36);not null;index:idx_delivery_lookup,priority:2"`
	Kind      MessageKind `json:"kind"               gorm:"type:varchar(16);not null;index:idx_delivery_lookup,priority:3"`
	Outcome   Outcome     `json:"outcome"            gorm:"type:varchar(8);not null;index:idx_delivery_lookup,priority:4;check:outcome IN ('sent','failed')"`
	GuestID   string      `json:"guestId"            gorm:"type:char(36);not null"`
	Phone     string      `json:"guestPhone"         gorm:"type:varchar(32);not null;index:idx_delivery_phone"`
	Error     string      `json:"error,omitempty"    gorm:"type:text;not null;default:''"`
	BatchID   string      `json:"batchId"            gorm:"type:char(36);not null;index"`
	Trigger   Trigger     `json:"trigger"            gorm:"type:varchar(16);not null;default:'manual'"`
	CreatedAt time.Time   `json:"createdAt"          gorm:"index"`
}

// TableName returns the database table name for DeliveryLogEntry.
func (DeliveryLogEntry) TableName() string { return "delivery_log" }

// CreditAccount holds an owner's prepaid send credits. Reserved counts
// credits taken by sends that have not settled yet.
type CreditAccount struct {
	OwnerID   string    `json:"ownerAccount" gorm:"type:varchar(64);primaryKey"`
	Balance   int64     `json:"balance"      gorm:"not null;default:0;check:chk_credit_balance,balance >= 0"`
	Reserved  int64     `json:"reserved"     gorm:"not null;default:0;check:chk_credit_reserved,reserved >= 0"`
	Used      int64     `json:"used"         gorm:"not null;default:0"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName returns the database table name for CreditAccount.
func (CreditAccount) TableName() string { return "credit_accounts" }

package model

import "time"

// Kind identifies which registration subsystem a group originated from.
type Kind string

const (
    KindTierPass Kind = "tier_pass" // delegate tier / pass registrations
    KindEvent    Kind = "event"     // per-event registrations
)

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool { return k == KindTierPass || k == KindEvent }

// Status is the review state of a registration group.  pending is the only
// initial state; approved and rejected are terminal.
type Status string

const (
    StatusPending  Status = "pending"
    StatusApproved Status = "approved"
    StatusRejected Status = "rejected"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
    return s == StatusPending || s == StatusApproved || s == StatusRejected
}

// Terminal reports whether no further transition is allowed out of s.
func (s Status) Terminal() bool { return s == StatusApproved || s == StatusRejected }

// Contact is the member responsible for a group.  Email is the join key
// used when the two subsystems are searched together.
type Contact struct {
    Name  string `json:"name"`
    Email string `json:"email"`
    Phone string `json:"phone"`
}

// Selection describes what a tier/pass member bought.  Exactly one of Tier or
// PassType is set.  PassTier is only meaningful for pass types that have
// sub-tiers.  Event members carry an empty Selection.
type Selection struct {
    Tier     string `json:"tier,omitempty"`
    PassType string `json:"pass_type,omitempty"`
    PassTier string `json:"pass_tier,omitempty"`
}

// Member is a single attendee within a group.
//
// Fields:
//  UserID    – USER- token, unique within the group.
//  Name      – attendee name.
//  Email     – attendee email.
//  Phone     – attendee phone.
//  College   – attendee college.
//  Selection – tier or pass chosen (tier/pass kind only).
//  Amount    – price derived from the selection, never read from storage.
type Member struct {
    UserID    string    `json:"user_id"`
    Name      string    `json:"name"`
    Email     string    `json:"email"`
    Phone     string    `json:"phone"`
    College   string    `json:"college"`
    Selection Selection `json:"selection"`
    Amount    int64     `json:"amount"`
}

// ReviewMeta is stamped on a group when it leaves pending.
type ReviewMeta struct {
    ReviewedAt      time.Time
    ReviewedBy      string
    RejectionReason string
}

// Registration is the unified view over both subsystems.  TotalAmount is
// always recomputed from Members; StoredTotal keeps whatever the database
// row said so that disagreements can be reported.  Issues lists integrity
// problems found while normalising the row (stale totals, unknown
// selections, inconsistent review metadata).
type Registration struct {
    GroupID               string     `json:"group_id"`
    Kind                  Kind       `json:"kind"`
    EventID               uint64     `json:"event_id,omitempty"`
    EventName             string     `json:"event_name,omitempty"`
    Contact               Contact    `json:"contact"`
    Members               []Member   `json:"members"`
    TotalAmount           int64      `json:"total_amount"`
    StoredTotal           int64      `json:"stored_total"`
    PaymentTransactionID  string     `json:"payment_transaction_id"`
    PaymentScreenshotPath *string    `json:"payment_screenshot_path,omitempty"`
    Status                Status     `json:"status"`
    CreatedAt             time.Time  `json:"created_at"`
    ReviewedAt            *time.Time `json:"reviewed_at,omitempty"`
    ReviewedBy            *string    `json:"reviewed_by,omitempty"`
    RejectionReason       *string    `json:"rejection_reason,omitempty"`
    Issues                []string   `json:"issues,omitempty"`
}

// TotalMismatch reports whether the persisted total disagrees with the
// recomputed one.
func (r Registration) TotalMismatch() bool { return r.StoredTotal != r.TotalAmount }

// Event is a row of the events table.  PriceAmount is charged per
// participant.
type Event struct {
    ID          uint64 `json:"id"`
    Name        string `json:"name"`
    PriceAmount int64  `json:"price"`
    MaxTeamSize int    `json:"max_team_size"`
    IsActive    bool   `json:"is_active"`
}

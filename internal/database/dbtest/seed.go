package dbtest

import (
	"database/sql"
	"testing"
	"time"
)

// Member is a seeded member row.  Empty contact fields get placeholders.
type Member struct {
	UserID   string
	Name     string
	Email    string
	Tier     string
	PassType string
	PassTier string
}

// Group is a seeded group row.  Status defaults to pending and CreatedAt to
// a fixed instant so ordering in tests is explicit.
type Group struct {
	GroupID      string
	EventID      int64
	ContactName  string
	ContactEmail string
	Total        int64
	Status       string
	CreatedAt    time.Time
	ReviewedAt   *time.Time
	ReviewedBy   string
	Reason       string
	Members      []Member
}

// BaseTime is the default creation time of seeded groups.
var BaseTime = time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC)

// SeedEvent inserts an events row and returns its id.
func SeedEvent(t testing.TB, db *sql.DB, name string, price int64, maxTeam int, active bool) int64 {
	t.Helper()
	res, err := db.Exec(`INSERT INTO events (name, price_amount, max_team_size, is_active) VALUES (?, ?, ?, ?)`,
		name, price, maxTeam, active)
	if err != nil {
		t.Fatalf("seed event: %v", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		t.Fatalf("seed event id: %v", err)
	}
	return id
}

// SeedTierPass inserts a tier/pass group with its members.  Seeds skip
// group_ids so tests can stage ids shared by both subsystems.
func SeedTierPass(t testing.TB, db *sql.DB, g Group) {
	t.Helper()
	g = defaults(g)
	Exec(t, db, `INSERT INTO tier_pass_groups
		(group_id, contact_name, contact_email, contact_phone, total_amount, payment_txn_id,
		 status, created_at, reviewed_at, reviewed_by, rejection_reason)
		VALUES (?, ?, ?, '9000000000', ?, 'UPI0001', ?, ?, ?, ?, ?)`,
		g.GroupID, g.ContactName, g.ContactEmail, g.Total, g.Status, g.CreatedAt,
		timeOrNil(g.ReviewedAt), strOrNil(g.ReviewedBy), strOrNil(g.Reason))
	for i, m := range g.Members {
		Exec(t, db, `INSERT INTO tier_pass_members
			(group_id, user_id, name, email, phone, college, tier, pass_type, pass_tier, position)
			VALUES (?, ?, ?, ?, '9000000000', 'NIT', ?, ?, ?, ?)`,
			g.GroupID, m.UserID, m.Name, m.Email, strOrNil(m.Tier), strOrNil(m.PassType), strOrNil(m.PassTier), i)
	}
}

// SeedEventGroup inserts an event group with its participants.
func SeedEventGroup(t testing.TB, db *sql.DB, g Group) {
	t.Helper()
	g = defaults(g)
	Exec(t, db, `INSERT INTO event_groups
		(group_id, event_id, contact_name, contact_email, contact_phone, total_amount, payment_txn_id,
		 status, created_at, reviewed_at, reviewed_by, rejection_reason)
		VALUES (?, ?, ?, ?, '9000000000', ?, 'UPI0002', ?, ?, ?, ?, ?)`,
		g.GroupID, g.EventID, g.ContactName, g.ContactEmail, g.Total, g.Status, g.CreatedAt,
		timeOrNil(g.ReviewedAt), strOrNil(g.ReviewedBy), strOrNil(g.Reason))
	for i, m := range g.Members {
		Exec(t, db, `INSERT INTO event_members
			(group_id, user_id, name, email, phone, college, position)
			VALUES (?, ?, ?, ?, '9000000000', 'NIT', ?)`,
			g.GroupID, m.UserID, m.Name, m.Email, i)
	}
}

func defaults(g Group) Group {
	if g.Status == "" {
		g.Status = "pending"
	}
	if g.CreatedAt.IsZero() {
		g.CreatedAt = BaseTime
	}
	if g.ContactName == "" && len(g.Members) > 0 {
		g.ContactName = g.Members[0].Name
	}
	if g.ContactEmail == "" && len(g.Members) > 0 {
		g.ContactEmail = g.Members[0].Email
	}
	return g
}

func strOrNil(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func timeOrNil(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UTC()
}

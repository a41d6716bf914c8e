package repository

import (
    "context"
    "database/sql"
    "errors"

    "github.com/iliyamo/fest-registration/internal/model"
)

const (
    eventGroupsTable  = "event_groups"
    eventMembersTable = "event_members"
)

// EventRegRepo reads and transitions per-event registrations.  Each group
// in event_groups belongs to one row of events and owns its participants in
// event_members.  The events table also backs the public catalog.
type EventRegRepo struct {
    db *sql.DB
}

// NewEventRegRepo returns a new EventRegRepo bound to the given database.
func NewEventRegRepo(db *sql.DB) *EventRegRepo { return &EventRegRepo{db: db} }

// DB exposes the underlying handle so callers can start transactions.
func (r *EventRegRepo) DB() *sql.DB { return r.db }

// Kind identifies the subsystem served by this repository.
func (r *EventRegRepo) Kind() model.Kind { return model.KindEvent }

const eventGroupSelect = `SELECT g.group_id, g.event_id, e.name, e.price_amount,
        g.contact_name, g.contact_email, g.contact_phone, g.total_amount,
        g.payment_txn_id, g.payment_screenshot_path, g.status, g.created_at,
        g.reviewed_at, g.reviewed_by, g.rejection_reason
    FROM event_groups g
    JOIN events e ON e.id = g.event_id`

const eventMemberQuery = `SELECT group_id, user_id, name, email, phone, college, position
    FROM event_members
    WHERE group_id IN (%IN%)
    ORDER BY group_id, position`

func scanEventGroup(sc interface{ Scan(...interface{}) error }) (GroupRecord, error) {
    var g GroupRecord
    var ns groupScanner
    err := sc.Scan(
        &g.GroupID, &g.EventID, &g.EventName, &g.EventPrice,
        &g.ContactName, &g.ContactEmail, &g.ContactPhone, &g.TotalAmount,
        &g.PaymentTxnID, &ns.screenshot, &g.Status, &g.CreatedAt,
        &ns.reviewedAt, &ns.reviewedBy, &ns.reason,
    )
    if err != nil {
        return g, err
    }
    ns.apply(&g)
    return g, nil
}

func scanEventMember(rows *sql.Rows) (MemberRecord, error) {
    var m MemberRecord
    err := rows.Scan(&m.GroupID, &m.UserID, &m.Name, &m.Email, &m.Phone, &m.College, &m.Position)
    return m, err
}

// FetchGroup returns a single event group with all participants.
func (r *EventRegRepo) FetchGroup(ctx context.Context, groupID string) (GroupRecord, error) {
    g, err := scanEventGroup(r.db.QueryRowContext(ctx, eventGroupSelect+` WHERE g.group_id = ?`, groupID))
    if errors.Is(err, sql.ErrNoRows) {
        return GroupRecord{}, ErrNotFound
    }
    if err != nil {
        return GroupRecord{}, err
    }
    groups := []GroupRecord{g}
    if err := attachMembers(ctx, r.db, eventMemberQuery, groups, scanEventMember); err != nil {
        return GroupRecord{}, err
    }
    return groups[0], nil
}

// FetchByEmail returns every event group where the contact or a
// participant uses email (lower-cased by the caller).
func (r *EventRegRepo) FetchByEmail(ctx context.Context, email string) ([]GroupRecord, error) {
    ids, err := groupIDsByEmail(ctx, r.db, eventGroupsTable, eventMembersTable, email)
    if err != nil {
        return nil, err
    }
    if len(ids) == 0 {
        return []GroupRecord{}, nil
    }
    ph, args := placeholders(ids)
    return r.query(ctx, eventGroupSelect+` WHERE g.group_id IN (`+ph+`) ORDER BY g.created_at DESC, g.group_id`, args...)
}

// FetchByUserID expands a participant token to its owning group.
func (r *EventRegRepo) FetchByUserID(ctx context.Context, userID string) (GroupRecord, error) {
    gid, err := groupIDByUserID(ctx, r.db, eventMembersTable, userID)
    if err != nil {
        return GroupRecord{}, err
    }
    return r.FetchGroup(ctx, gid)
}

// FetchAll lists event groups ordered by creation time descending,
// optionally restricted to one status and/or one event.
func (r *EventRegRepo) FetchAll(ctx context.Context, f GroupFilter) ([]GroupRecord, error) {
    q := eventGroupSelect + ` WHERE 1=1`
    var args []interface{}
    if f.Status != "" {
        q += ` AND g.status = ?`
        args = append(args, f.Status)
    }
    if f.EventID != 0 {
        q += ` AND g.event_id = ?`
        args = append(args, f.EventID)
    }
    q += ` ORDER BY g.created_at DESC, g.group_id`
    return r.query(ctx, q, args...)
}

func (r *EventRegRepo) query(ctx context.Context, q string, args ...interface{}) ([]GroupRecord, error) {
    rows, err := r.db.QueryContext(ctx, q, args...)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    groups := make([]GroupRecord, 0)
    for rows.Next() {
        g, err := scanEventGroup(rows)
        if err != nil {
            return nil, err
        }
        groups = append(groups, g)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    if err := attachMembers(ctx, r.db, eventMemberQuery, groups, scanEventMember); err != nil {
        return nil, err
    }
    return groups, nil
}

// GuardedTransition moves an event group from expected to next in one
// conditional UPDATE.  See TierPassRepo.GuardedTransition.
func (r *EventRegRepo) GuardedTransition(ctx context.Context, groupID string, expected, next model.Status, meta model.ReviewMeta) error {
    return guardedTransition(ctx, r.db, eventGroupsTable, groupID, expected, next, meta)
}

// GroupExists reports whether groupID is already used by an event group.
func (r *EventRegRepo) GroupExists(ctx context.Context, groupID string) (bool, error) {
    return groupExists(ctx, r.db, eventGroupsTable, groupID)
}

// CreateTx inserts a pending event group and its participants inside tx.
func (r *EventRegRepo) CreateTx(ctx context.Context, tx *sql.Tx, g GroupRecord) error {
    const q = `INSERT INTO event_groups
        (group_id, event_id, contact_name, contact_email, contact_phone, total_amount,
         payment_txn_id, payment_screenshot_path, status, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
    if err := reserveGroupID(ctx, tx, g.GroupID, model.KindEvent); err != nil {
        return err
    }
    var shot interface{}
    if g.ScreenshotPath != nil {
        shot = *g.ScreenshotPath
    }
    if _, err := tx.ExecContext(ctx, q, g.GroupID, g.EventID, g.ContactName, g.ContactEmail, g.ContactPhone,
        g.TotalAmount, g.PaymentTxnID, shot, string(model.StatusPending), g.CreatedAt.UTC()); err != nil {
        if isDuplicateKey(err) {
            return ErrConflict
        }
        return err
    }
    if len(g.Members) == 0 {
        return nil
    }
    query := `INSERT INTO event_members (group_id, user_id, name, email, phone, college, position) VALUES `
    args := make([]interface{}, 0, len(g.Members)*7)
    for i, m := range g.Members {
        if i > 0 {
            query += ","
        }
        query += "(?, ?, ?, ?, ?, ?, ?)"
        args = append(args, g.GroupID, m.UserID, m.Name, m.Email, m.Phone, m.College, i)
    }
    if _, err := tx.ExecContext(ctx, query, args...); err != nil {
        if isDuplicateKey(err) {
            return ErrConflict
        }
        return err
    }
    return nil
}

// ListEvents returns the events open for registration, ordered by name.
func (r *EventRegRepo) ListEvents(ctx context.Context) ([]model.Event, error) {
    const q = `SELECT id, name, price_amount, max_team_size, is_active
               FROM events WHERE is_active = 1 ORDER BY name`
    rows, err := r.db.QueryContext(ctx, q)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := make([]model.Event, 0)
    for rows.Next() {
        var e model.Event
        if err := rows.Scan(&e.ID, &e.Name, &e.PriceAmount, &e.MaxTeamSize, &e.IsActive); err != nil {
            return nil, err
        }
        out = append(out, e)
    }
    return out, rows.Err()
}

// GetEvent loads a single event.  ErrNotFound is returned when missing.
func (r *EventRegRepo) GetEvent(ctx context.Context, id uint64) (model.Event, error) {
    const q = `SELECT id, name, price_amount, max_team_size, is_active FROM events WHERE id = ?`
    var e model.Event
    err := r.db.QueryRowContext(ctx, q, id).Scan(&e.ID, &e.Name, &e.PriceAmount, &e.MaxTeamSize, &e.IsActive)
    if errors.Is(err, sql.ErrNoRows) {
        return model.Event{}, ErrNotFound
    }
    return e, err
}

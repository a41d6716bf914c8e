package repository

import (
    "context"
    "database/sql"
    "errors"

    "github.com/iliyamo/fest-registration/internal/model"
)

const (
    tierPassGroupsTable  = "tier_pass_groups"
    tierPassMembersTable = "tier_pass_members"
)

// TierPassRepo reads and transitions delegate tier/pass registrations.  A
// group lives in tier_pass_groups and owns one or more tier_pass_members
// rows keyed by group_id.  All timestamps are stored in UTC.
type TierPassRepo struct {
    db *sql.DB
}

// NewTierPassRepo returns a new TierPassRepo bound to the given database.
func NewTierPassRepo(db *sql.DB) *TierPassRepo { return &TierPassRepo{db: db} }

// DB exposes the underlying handle so callers can start transactions.
func (r *TierPassRepo) DB() *sql.DB { return r.db }

// Kind identifies the subsystem served by this repository.
func (r *TierPassRepo) Kind() model.Kind { return model.KindTierPass }

const tierPassGroupColumns = `group_id, contact_name, contact_email, contact_phone, total_amount,
        payment_txn_id, payment_screenshot_path, status, created_at,
        reviewed_at, reviewed_by, rejection_reason`

const tierPassMemberQuery = `SELECT group_id, user_id, name, email, phone, college,
        tier, pass_type, pass_tier, position
    FROM tier_pass_members
    WHERE group_id IN (%IN%)
    ORDER BY group_id, position`

func scanTierPassGroup(sc interface{ Scan(...interface{}) error }) (GroupRecord, error) {
    var g GroupRecord
    var ns groupScanner
    err := sc.Scan(
        &g.GroupID, &g.ContactName, &g.ContactEmail, &g.ContactPhone, &g.TotalAmount,
        &g.PaymentTxnID, &ns.screenshot, &g.Status, &g.CreatedAt,
        &ns.reviewedAt, &ns.reviewedBy, &ns.reason,
    )
    if err != nil {
        return g, err
    }
    ns.apply(&g)
    return g, nil
}

func scanTierPassMember(rows *sql.Rows) (MemberRecord, error) {
    var m MemberRecord
    var tier, passType, passTier sql.NullString
    err := rows.Scan(&m.GroupID, &m.UserID, &m.Name, &m.Email, &m.Phone, &m.College,
        &tier, &passType, &passTier, &m.Position)
    m.Tier, m.PassType, m.PassTier = tier.String, passType.String, passTier.String
    return m, err
}

// FetchGroup returns a single group with all its members.  ErrNotFound is
// returned when no such group exists.
func (r *TierPassRepo) FetchGroup(ctx context.Context, groupID string) (GroupRecord, error) {
    q := `SELECT ` + tierPassGroupColumns + ` FROM tier_pass_groups WHERE group_id = ?`
    g, err := scanTierPassGroup(r.db.QueryRowContext(ctx, q, groupID))
    if errors.Is(err, sql.ErrNoRows) {
        return GroupRecord{}, ErrNotFound
    }
    if err != nil {
        return GroupRecord{}, err
    }
    groups := []GroupRecord{g}
    if err := attachMembers(ctx, r.db, tierPassMemberQuery, groups, scanTierPassMember); err != nil {
        return GroupRecord{}, err
    }
    return groups[0], nil
}

// FetchByEmail returns every group where the contact or any member uses
// email.  The comparison is case-insensitive; callers pass the address
// lower-cased.  Each group is returned once with its full member list.
func (r *TierPassRepo) FetchByEmail(ctx context.Context, email string) ([]GroupRecord, error) {
    ids, err := groupIDsByEmail(ctx, r.db, tierPassGroupsTable, tierPassMembersTable, email)
    if err != nil {
        return nil, err
    }
    return r.fetchMany(ctx, ids)
}

// FetchByUserID expands a member token to its owning group.
func (r *TierPassRepo) FetchByUserID(ctx context.Context, userID string) (GroupRecord, error) {
    gid, err := groupIDByUserID(ctx, r.db, tierPassMembersTable, userID)
    if err != nil {
        return GroupRecord{}, err
    }
    return r.FetchGroup(ctx, gid)
}

// FetchAll lists all groups ordered by creation time descending.
func (r *TierPassRepo) FetchAll(ctx context.Context, f GroupFilter) ([]GroupRecord, error) {
    q := `SELECT ` + tierPassGroupColumns + ` FROM tier_pass_groups`
    var args []interface{}
    if f.Status != "" {
        q += ` WHERE status = ?`
        args = append(args, f.Status)
    }
    q += ` ORDER BY created_at DESC, group_id`
    return r.query(ctx, q, args...)
}

func (r *TierPassRepo) fetchMany(ctx context.Context, ids []string) ([]GroupRecord, error) {
    if len(ids) == 0 {
        return []GroupRecord{}, nil
    }
    ph, args := placeholders(ids)
    q := `SELECT ` + tierPassGroupColumns + ` FROM tier_pass_groups
          WHERE group_id IN (` + ph + `)
          ORDER BY created_at DESC, group_id`
    return r.query(ctx, q, args...)
}

func (r *TierPassRepo) query(ctx context.Context, q string, args ...interface{}) ([]GroupRecord, error) {
    rows, err := r.db.QueryContext(ctx, q, args...)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    groups := make([]GroupRecord, 0)
    for rows.Next() {
        g, err := scanTierPassGroup(rows)
        if err != nil {
            return nil, err
        }
        groups = append(groups, g)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    if err := attachMembers(ctx, r.db, tierPassMemberQuery, groups, scanTierPassMember); err != nil {
        return nil, err
    }
    return groups, nil
}

// GuardedTransition moves a group from expected to next and stamps the
// review metadata in one conditional UPDATE.  It returns ErrNotFound when
// the group is missing and ErrPreconditionFailed when its status is no
// longer expected.
func (r *TierPassRepo) GuardedTransition(ctx context.Context, groupID string, expected, next model.Status, meta model.ReviewMeta) error {
    return guardedTransition(ctx, r.db, tierPassGroupsTable, groupID, expected, next, meta)
}

// GroupExists reports whether groupID is already used by a tier/pass group.
func (r *TierPassRepo) GroupExists(ctx context.Context, groupID string) (bool, error) {
    return groupExists(ctx, r.db, tierPassGroupsTable, groupID)
}

// CreateTx reserves the group id, then inserts a pending group and its
// members inside tx.  The caller must commit or rollback.  A group id used
// by either subsystem, or a duplicate member token, yields ErrConflict so
// the caller can retry with fresh identifiers.
func (r *TierPassRepo) CreateTx(ctx context.Context, tx *sql.Tx, g GroupRecord) error {
    const q = `INSERT INTO tier_pass_groups
        (group_id, contact_name, contact_email, contact_phone, total_amount,
         payment_txn_id, payment_screenshot_path, status, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
    if err := reserveGroupID(ctx, tx, g.GroupID, model.KindTierPass); err != nil {
        return err
    }
    var shot interface{}
    if g.ScreenshotPath != nil {
        shot = *g.ScreenshotPath
    }
    if _, err := tx.ExecContext(ctx, q, g.GroupID, g.ContactName, g.ContactEmail, g.ContactPhone,
        g.TotalAmount, g.PaymentTxnID, shot, string(model.StatusPending), g.CreatedAt.UTC()); err != nil {
        if isDuplicateKey(err) {
            return ErrConflict
        }
        return err
    }
    if len(g.Members) == 0 {
        return nil
    }
    query := `INSERT INTO tier_pass_members
        (group_id, user_id, name, email, phone, college, tier, pass_type, pass_tier, position) VALUES `
    args := make([]interface{}, 0, len(g.Members)*10)
    for i, m := range g.Members {
        if i > 0 {
            query += ","
        }
        query += "(?, ?, ?, ?, ?, ?, ?, ?, ?, ?)"
        args = append(args, g.GroupID, m.UserID, m.Name, m.Email, m.Phone, m.College,
            nullable(m.Tier), nullable(m.PassType), nullable(m.PassTier), i)
    }
    if _, err := tx.ExecContext(ctx, query, args...); err != nil {
        if isDuplicateKey(err) {
            return ErrConflict
        }
        return err
    }
    return nil
}

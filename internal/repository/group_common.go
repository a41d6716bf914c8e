package repository

import (
    "context"
    "database/sql"
    "errors"
    "strings"
    "time"

    "github.com/iliyamo/fest-registration/internal/model"
)

// GroupRecord mirrors a row of either group table together with its member
// rows.  It is the raw shape handed to the registration service, which
// normalises it into model.Registration.  TotalAmount is whatever the row
// stored; it is not trusted by the service.
type GroupRecord struct {
    GroupID         string
    EventID         uint64 // event groups only
    EventName       string // event groups only
    EventPrice      int64  // event groups only
    ContactName     string
    ContactEmail    string
    ContactPhone    string
    TotalAmount     int64
    PaymentTxnID    string
    ScreenshotPath  *string
    Status          string
    CreatedAt       time.Time
    ReviewedAt      *time.Time
    ReviewedBy      *string
    RejectionReason *string
    Members         []MemberRecord
}

// MemberRecord mirrors a row of either member table.  Tier, PassType and
// PassTier are only populated for tier/pass members.
type MemberRecord struct {
    GroupID  string
    UserID   string
    Name     string
    Email    string
    Phone    string
    College  string
    Tier     string
    PassType string
    PassTier string
    Position int
}

// GroupFilter narrows FetchAll.  Zero values mean "no filter".
type GroupFilter struct {
    Status  string
    EventID uint64 // ignored by the tier/pass repository
}

// groupScanner accumulates the nullable columns shared by both group tables
// and copies them onto a GroupRecord once the row has been scanned.
type groupScanner struct {
    screenshot sql.NullString
    reviewedAt sql.NullTime
    reviewedBy sql.NullString
    reason     sql.NullString
}

func (s *groupScanner) apply(g *GroupRecord) {
    if s.screenshot.Valid {
        v := s.screenshot.String
        g.ScreenshotPath = &v
    }
    if s.reviewedAt.Valid {
        t := s.reviewedAt.Time.UTC()
        g.ReviewedAt = &t
    }
    if s.reviewedBy.Valid {
        v := s.reviewedBy.String
        g.ReviewedBy = &v
    }
    if s.reason.Valid {
        v := s.reason.String
        g.RejectionReason = &v
    }
    g.CreatedAt = g.CreatedAt.UTC()
}

// placeholders returns "?,?,?" for n arguments together with the ids
// converted to driver arguments.
func placeholders(ids []string) (string, []interface{}) {
    ph := make([]string, 0, len(ids))
    args := make([]interface{}, 0, len(ids))
    for _, id := range ids {
        ph = append(ph, "?")
        args = append(args, id)
    }
    return strings.Join(ph, ","), args
}

// guardedTransition performs the compare-and-swap status update used by the
// approval workflow.  The UPDATE only matches while the row is still in the
// expected status, so two concurrent reviewers can never both succeed.  When
// no row is affected the group is looked up once more to tell "missing"
// apart from "already reviewed".
func guardedTransition(ctx context.Context, db *sql.DB, table, groupID string, expected, next model.Status, meta model.ReviewMeta) error {
    var reason interface{}
    if meta.RejectionReason != "" {
        reason = meta.RejectionReason
    }
    q := `UPDATE ` + table + `
          SET status = ?, reviewed_at = ?, reviewed_by = ?, rejection_reason = ?
          WHERE group_id = ? AND status = ?`
    res, err := db.ExecContext(ctx, q, string(next), meta.ReviewedAt.UTC(), meta.ReviewedBy, reason, groupID, string(expected))
    if err != nil {
        return err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return err
    }
    if n == 1 {
        return nil
    }
    var one int
    err = db.QueryRowContext(ctx, `SELECT 1 FROM `+table+` WHERE group_id = ?`, groupID).Scan(&one)
    if errors.Is(err, sql.ErrNoRows) {
        return ErrNotFound
    }
    if err != nil {
        return err
    }
    return ErrPreconditionFailed
}

// groupExists reports whether groupID is present in table.
func groupExists(ctx context.Context, db *sql.DB, table, groupID string) (bool, error) {
    var one int
    err := db.QueryRowContext(ctx, `SELECT 1 FROM `+table+` WHERE group_id = ?`, groupID).Scan(&one)
    if errors.Is(err, sql.ErrNoRows) {
        return false, nil
    }
    if err != nil {
        return false, err
    }
    return true, nil
}

// attachMembers loads the member rows for all groups in a single query and
// appends them to the matching record.  Members keep their submission order.
func attachMembers(ctx context.Context, db *sql.DB, memberQuery string, groups []GroupRecord, scan func(*sql.Rows) (MemberRecord, error)) error {
    if len(groups) == 0 {
        return nil
    }
    index := make(map[string]int, len(groups))
    ids := make([]string, 0, len(groups))
    for i, g := range groups {
        index[g.GroupID] = i
        ids = append(ids, g.GroupID)
    }
    ph, args := placeholders(ids)
    rows, err := db.QueryContext(ctx, strings.Replace(memberQuery, "%IN%", ph, 1), args...)
    if err != nil {
        return err
    }
    defer rows.Close()
    for rows.Next() {
        m, err := scan(rows)
        if err != nil {
            return err
        }
        idx, ok := index[m.GroupID]
        if !ok {
            continue
        }
        groups[idx].Members = append(groups[idx].Members, m)
    }
    return rows.Err()
}

// groupIDsByEmail returns the distinct group ids whose contact or any member
// uses the given (already lower-cased) email.
func groupIDsByEmail(ctx context.Context, db *sql.DB, groupTable, memberTable, email string) ([]string, error) {
    q := `SELECT group_id FROM ` + memberTable + ` WHERE LOWER(email) = ?
          UNION
          SELECT group_id FROM ` + groupTable + ` WHERE LOWER(contact_email) = ?`
    rows, err := db.QueryContext(ctx, q, email, email)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    var ids []string
    for rows.Next() {
        var id string
        if err := rows.Scan(&id); err != nil {
            return nil, err
        }
        ids = append(ids, id)
    }
    return ids, rows.Err()
}

// groupIDByUserID resolves a member token to its owning group.
func groupIDByUserID(ctx context.Context, db *sql.DB, memberTable, userID string) (string, error) {
    var gid string
    err := db.QueryRowContext(ctx, `SELECT group_id FROM `+memberTable+` WHERE user_id = ?`, userID).Scan(&gid)
    if errors.Is(err, sql.ErrNoRows) {
        return "", ErrNotFound
    }
    return gid, err
}

// reserveGroupID claims groupID for kind in the table shared by both
// subsystems.  A second claim of the same id yields ErrConflict.
func reserveGroupID(ctx context.Context, tx *sql.Tx, groupID string, kind model.Kind) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO group_ids (group_id, kind) VALUES (?, ?)`, groupID, string(kind))
	if isDuplicateKey(err) {
		return ErrConflict
	}
	return err
}

func nullable(s string) interface{} {
    if s == "" {
        return nil
    }
    return s
}

// isDuplicateKey recognises unique-key violations from MySQL (1062) and
// SQLite.
func isDuplicateKey(err error) bool {
    if err == nil {
        return false
    }
    msg := strings.ToLower(err.Error())
    return strings.Contains(msg, "1062") || strings.Contains(msg, "unique constraint")
}

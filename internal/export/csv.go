// Package export flattens registrations into CSV for offline review.
package export

import (
    "encoding/csv"
    "fmt"
    "io"
    "strconv"
    "time"

    "github.com/iliyamo/fest-registration/internal/model"
)

// Mode selects the row granularity of an export.
type Mode string

const (
    ModeGroup  Mode = "group"  // one row per group
    ModeMember Mode = "member" // one row per member
)

// ParseMode maps a query value to a Mode.  Empty means ModeGroup.
func ParseMode(s string) (Mode, error) {
    switch Mode(s) {
    case "", ModeGroup:
        return ModeGroup, nil
    case ModeMember:
        return ModeMember, nil
    }
    return "", fmt.Errorf("unknown export mode %q", s)
}

var groupHeader = []string{
    "group_id", "kind", "event_name", "contact_name", "contact_email", "contact_phone",
    "members", "total_amount", "stored_total", "payment_transaction_id", "status",
    "created_at", "reviewed_at", "reviewed_by", "rejection_reason",
}

var memberHeader = []string{
    "group_id", "kind", "event_name", "status", "user_id", "name", "email", "phone",
    "college", "tier", "pass_type", "pass_tier", "amount",
}

// WriteCSV writes recs to w in the given mode, header first.  Records are
// written in the order given.
func WriteCSV(w io.Writer, recs []model.Registration, mode Mode) error {
    cw := csv.NewWriter(w)
    cw.UseCRLF = true
    var err error
    switch mode {
    case ModeGroup, "":
        err = writeGroups(cw, recs)
    case ModeMember:
        err = writeMembers(cw, recs)
    default:
        return fmt.Errorf("unknown export mode %q", mode)
    }
    if err != nil {
        return err
    }
    cw.Flush()
    return cw.Error()
}

func writeGroups(cw *csv.Writer, recs []model.Registration) error {
    if err := cw.Write(groupHeader); err != nil {
        return err
    }
    for _, r := range recs {
        row := []string{
            r.GroupID,
            string(r.Kind),
            r.EventName,
            r.Contact.Name,
            r.Contact.Email,
            r.Contact.Phone,
            strconv.Itoa(len(r.Members)),
            strconv.FormatInt(r.TotalAmount, 10),
            strconv.FormatInt(r.StoredTotal, 10),
            r.PaymentTransactionID,
            string(r.Status),
            r.CreatedAt.UTC().Format(time.RFC3339),
            formatTime(r.ReviewedAt),
            deref(r.ReviewedBy),
            deref(r.RejectionReason),
        }
        if err := cw.Write(row); err != nil {
            return err
        }
    }
    return nil
}

func writeMembers(cw *csv.Writer, recs []model.Registration) error {
    if err := cw.Write(memberHeader); err != nil {
        return err
    }
    for _, r := range recs {
        for _, m := range r.Members {
            row := []string{
                r.GroupID,
                string(r.Kind),
                r.EventName,
                string(r.Status),
                m.UserID,
                m.Name,
                m.Email,
                m.Phone,
                m.College,
                m.Selection.Tier,
                m.Selection.PassType,
                m.Selection.PassTier,
                strconv.FormatInt(m.Amount, 10),
            }
            if err := cw.Write(row); err != nil {
                return err
            }
        }
    }
    return nil
}

func formatTime(t *time.Time) string {
    if t == nil {
        return ""
    }
    return t.UTC().Format(time.RFC3339)
}

func deref(s *string) string {
    if s == nil {
        return ""
    }
    return *s
}

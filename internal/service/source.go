package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/iliyamo/fest-registration/internal/model"
	"github.com/iliyamo/fest-registration/internal/repository"
)

// Source is the read/transition surface of one registration subsystem.
// repository.TierPassRepo and repository.EventRegRepo both satisfy it.
type Source interface {
	Kind() model.Kind
	FetchGroup(ctx context.Context, groupID string) (repository.GroupRecord, error)
	FetchByEmail(ctx context.Context, email string) ([]repository.GroupRecord, error)
	FetchByUserID(ctx context.Context, userID string) (repository.GroupRecord, error)
	FetchAll(ctx context.Context, f repository.GroupFilter) ([]repository.GroupRecord, error)
	GuardedTransition(ctx context.Context, groupID string, expected, next model.Status, meta model.ReviewMeta) error
	GroupExists(ctx context.Context, groupID string) (bool, error)
}

// Sources holds both subsystems in a fixed order: tier/pass first, then
// events.  That order is the "fetch order" used as the sort tie-break.
type Sources struct {
	TierPass Source
	Event    Source
}

func (s Sources) all() []Source { return []Source{s.TierPass, s.Event} }

func (s Sources) byKind(k model.Kind) Source {
	if k == model.KindEvent {
		return s.Event
	}
	return s.TierPass
}

// Normalize maps a raw group row of the given kind into the unified
// Registration shape.  Member amounts and the total are recomputed from the
// price table (tier/pass) or the event price (event); the stored total is
// kept only for comparison and any disagreement is listed in Issues.
func Normalize(kind model.Kind, g repository.GroupRecord) model.Registration {
	reg := model.Registration{
		GroupID:               g.GroupID,
		Kind:                  kind,
		Contact:               model.Contact{Name: g.ContactName, Email: g.ContactEmail, Phone: g.ContactPhone},
		Members:               make([]model.Member, 0, len(g.Members)),
		StoredTotal:           g.TotalAmount,
		PaymentTransactionID:  g.PaymentTxnID,
		PaymentScreenshotPath: g.ScreenshotPath,
		Status:                model.Status(g.Status),
		CreatedAt:             g.CreatedAt,
		ReviewedAt:            g.ReviewedAt,
		ReviewedBy:            g.ReviewedBy,
		RejectionReason:       g.RejectionReason,
	}
	if kind == model.KindEvent {
		reg.EventID = g.EventID
		reg.EventName = g.EventName
	}
	for _, m := range g.Members {
		mem := model.Member{
			UserID:  m.UserID,
			Name:    m.Name,
			Email:   m.Email,
			Phone:   m.Phone,
			College: m.College,
		}
		switch kind {
		case model.KindTierPass:
			mem.Selection = model.Selection{Tier: m.Tier, PassType: m.PassType, PassTier: m.PassTier}
			amt, err := model.PriceOf(mem.Selection)
			if err != nil {
				reg.Issues = append(reg.Issues, fmt.Sprintf("member %s: %v", m.UserID, err))
			}
			mem.Amount = amt
		case model.KindEvent:
			mem.Amount = g.EventPrice
		}
		reg.Members = append(reg.Members, mem)
	}
	reg.TotalAmount = RecomputeTotal(reg)
	reg.Issues = append(reg.Issues, integrityIssues(reg)...)
	return reg
}

// RecomputeTotal derives a group's amount from its members.  For event
// groups every member carries the event price, so the sum equals price ×
// member count.
func RecomputeTotal(reg model.Registration) int64 {
	var total int64
	for _, m := range reg.Members {
		total += m.Amount
	}
	return total
}

// integrityIssues checks the data invariants that storage could have
// violated.  Problems are reported, never repaired.
func integrityIssues(reg model.Registration) []string {
	var out []string
	if len(reg.Members) == 0 {
		out = append(out, "group has no members")
	}
	if reg.TotalMismatch() {
		out = append(out, fmt.Sprintf("stored total %d differs from computed total %d", reg.StoredTotal, reg.TotalAmount))
	}
	if !reg.Status.Valid() {
		out = append(out, fmt.Sprintf("unknown status %q", reg.Status))
		return out
	}
	reviewed := reg.ReviewedAt != nil && reg.ReviewedBy != nil
	unreviewed := reg.ReviewedAt == nil && reg.ReviewedBy == nil
	switch {
	case reg.Status.Terminal() && !reviewed:
		out = append(out, "reviewed group is missing review metadata")
	case reg.Status == model.StatusPending && !unreviewed:
		out = append(out, "pending group carries review metadata")
	}
	hasReason := reg.RejectionReason != nil && strings.TrimSpace(*reg.RejectionReason) != ""
	if hasReason != (reg.Status == model.StatusRejected) {
		out = append(out, "rejection reason does not match status")
	}
	return out
}

package service

import (
    "context"
    "database/sql"
    "errors"
    "fmt"
    "strings"
    "time"

    "github.com/go-playground/validator/v10"
    "go.uber.org/zap"

    "github.com/iliyamo/fest-registration/internal/metrics"
    "github.com/iliyamo/fest-registration/internal/model"
    "github.com/iliyamo/fest-registration/internal/repository"
    "github.com/iliyamo/fest-registration/internal/utils"
)

// maxIDAttempts bounds how often a submission is retried when a generated
// group or member token collides with an existing row.
const maxIDAttempts = 5

// MemberInput is one attendee of a submission.  Tier and PassType are only
// read for tier/pass submissions; exactly one of them must be set there.
type MemberInput struct {
    Name     string `json:"name" validate:"required,max=120"`
    Email    string `json:"email" validate:"required,email,max=190"`
    Phone    string `json:"phone" validate:"required,min=7,max=20"`
    College  string `json:"college" validate:"required,max=200"`
    Tier     string `json:"tier,omitempty" validate:"omitempty,max=32"`
    PassType string `json:"pass_type,omitempty" validate:"omitempty,max=32"`
    PassTier string `json:"pass_tier,omitempty" validate:"omitempty,max=32"`
}

// PaymentInput carries the UPI proof attached to a submission.
type PaymentInput struct {
    TransactionID  string  `json:"transaction_id" validate:"required,min=6,max=64"`
    ScreenshotPath *string `json:"screenshot_path,omitempty" validate:"omitempty,max=255"`
}

// TierPassSubmission is the body of a delegate tier/pass registration.  The
// first member is the group contact.
type TierPassSubmission struct {
    Members []MemberInput `json:"members" validate:"required,min=1,max=10,dive"`
    Payment PaymentInput  `json:"payment" validate:"required"`
}

// EventSubmission is the body of a per-event registration.  The first
// member is the team contact.
type EventSubmission struct {
    Members []MemberInput `json:"members" validate:"required,min=1,max=10,dive"`
    Payment PaymentInput  `json:"payment" validate:"required"`
}

// GroupWriter persists a new group inside a caller-owned transaction.
type GroupWriter interface {
    DB() *sql.DB
    CreateTx(ctx context.Context, tx *sql.Tx, g repository.GroupRecord) error
}

// EventCatalog looks up a single event.
type EventCatalog interface {
    GetEvent(ctx context.Context, id uint64) (model.Event, error)
}

// Submissions creates new pending registrations in either subsystem.
type Submissions struct {
    sources  Sources
    tierPass GroupWriter
    events   GroupWriter
    catalog  EventCatalog
    validate *validator.Validate
    log      *zap.Logger
    metrics  *metrics.Metrics
    now      func() time.Time
}

// NewSubmissions wires the submission flow.  The sources are consulted for
// identifier collisions across both subsystems before anything is written.
func NewSubmissions(sources Sources, tierPass, events GroupWriter, catalog EventCatalog, log *zap.Logger, m *metrics.Metrics) *Submissions {
    if log == nil {
        log = zap.NewNop()
    }
    return &Submissions{
        sources:  sources,
        tierPass: tierPass,
        events:   events,
        catalog:  catalog,
        validate: validator.New(),
        log:      log,
        metrics:  m,
        now:      time.Now,
    }
}

// SubmitTierPass prices every member from the tier/pass table and stores a
// pending group.  An unknown tier or pass is a validation error.
func (s *Submissions) SubmitTierPass(ctx context.Context, in TierPassSubmission) (model.Registration, error) {
    in.Members, in.Payment = normalizeMembers(in.Members), normalizePayment(in.Payment)
    if err := s.check(in); err != nil {
        return model.Registration{}, err
    }
    g := newRecord(in.Members, in.Payment)
    for i, m := range in.Members {
        sel := model.Selection{Tier: m.Tier, PassType: m.PassType, PassTier: m.PassTier}
        amt, err := model.PriceOf(sel)
        if err != nil {
            return model.Registration{}, validationf("members[%d]: %v", i, err)
        }
        g.Members[i].Tier, g.Members[i].PassType, g.Members[i].PassTier = sel.Tier, sel.PassType, sel.PassTier
        g.TotalAmount += amt
    }
    if err := s.store(ctx, s.tierPass, &g); err != nil {
        return model.Registration{}, err
    }
    s.metrics.ObserveSubmission(string(model.KindTierPass))
    s.log.Info("tier/pass registration submitted",
        zap.String("group_id", g.GroupID),
        zap.Int("members", len(g.Members)),
        zap.Int64("total_amount", g.TotalAmount),
    )
    return Normalize(model.KindTierPass, g), nil
}

// SubmitEvent stores a pending team registration for an active event.  The
// team may not exceed the event's maximum size.
func (s *Submissions) SubmitEvent(ctx context.Context, eventID uint64, in EventSubmission) (model.Registration, error) {
    in.Members, in.Payment = normalizeMembers(in.Members), normalizePayment(in.Payment)
    if err := s.check(in); err != nil {
        return model.Registration{}, err
    }
    ev, err := s.catalog.GetEvent(ctx, eventID)
    if errors.Is(err, repository.ErrNotFound) {
        return model.Registration{}, notFoundf("event %d not found", eventID)
    }
    if err != nil {
        return model.Registration{}, storeUnavailable("load event", err)
    }
    if !ev.IsActive {
        return model.Registration{}, validationf("event %q is closed for registration", ev.Name)
    }
    if ev.MaxTeamSize > 0 && len(in.Members) > ev.MaxTeamSize {
        return model.Registration{}, validationf("event %q allows at most %d participants", ev.Name, ev.MaxTeamSize)
    }
    g := newRecord(in.Members, in.Payment)
    g.EventID, g.EventName, g.EventPrice = ev.ID, ev.Name, ev.PriceAmount
    g.TotalAmount = ev.PriceAmount * int64(len(g.Members))
    if err := s.store(ctx, s.events, &g); err != nil {
        return model.Registration{}, err
    }
    s.metrics.ObserveSubmission(string(model.KindEvent))
    s.log.Info("event registration submitted",
        zap.String("group_id", g.GroupID),
        zap.Uint64("event_id", ev.ID),
        zap.Int("members", len(g.Members)),
    )
    return Normalize(model.KindEvent, g), nil
}

// normalizeMembers returns a trimmed copy of members with lower-cased
// emails.  The caller's slice is left untouched.
func normalizeMembers(members []MemberInput) []MemberInput {
    if members == nil {
        return nil
    }
    out := make([]MemberInput, len(members))
    for i, m := range members {
        out[i] = MemberInput{
            Name:     strings.TrimSpace(m.Name),
            Email:    strings.ToLower(strings.TrimSpace(m.Email)),
            Phone:    strings.TrimSpace(m.Phone),
            College:  strings.TrimSpace(m.College),
            Tier:     strings.TrimSpace(m.Tier),
            PassType: strings.TrimSpace(m.PassType),
            PassTier: strings.TrimSpace(m.PassTier),
        }
    }
    return out
}

func normalizePayment(p PaymentInput) PaymentInput {
    p.TransactionID = strings.TrimSpace(p.TransactionID)
    if p.ScreenshotPath != nil {
        v := strings.TrimSpace(*p.ScreenshotPath)
        if v == "" {
            p.ScreenshotPath = nil
        } else {
            p.ScreenshotPath = &v
        }
    }
    return p
}

func (s *Submissions) check(in interface{}) error {
    if err := s.validate.Struct(in); err != nil {
        var ve validator.ValidationErrors
        if errors.As(err, &ve) && len(ve) > 0 {
            fe := ve[0]
            return validationf("%s failed %q", fieldPath(fe.Namespace()), fe.Tag())
        }
        return validationf("invalid submission: %v", err)
    }
    return nil
}

// fieldPath drops the root struct name from a validator namespace.
func fieldPath(ns string) string {
    if i := strings.IndexByte(ns, '.'); i >= 0 {
        return ns[i+1:]
    }
    return ns
}

// newRecord builds the group skeleton shared by both kinds from normalized
// input.
func newRecord(members []MemberInput, pay PaymentInput) repository.GroupRecord {
    g := repository.GroupRecord{
        PaymentTxnID:   pay.TransactionID,
        ScreenshotPath: pay.ScreenshotPath,
        Status:         string(model.StatusPending),
        Members:        make([]repository.MemberRecord, 0, len(members)),
    }
    for i, m := range members {
        g.Members = append(g.Members, repository.MemberRecord{
            Name:     m.Name,
            Email:    m.Email,
            Phone:    m.Phone,
            College:  m.College,
            Position: i,
        })
    }
    lead := g.Members[0]
    g.ContactName, g.ContactEmail, g.ContactPhone = lead.Name, lead.Email, lead.Phone
    return g
}

// store assigns fresh identifiers and inserts g, retrying when an identifier
// is already taken in either subsystem.
func (s *Submissions) store(ctx context.Context, w GroupWriter, g *repository.GroupRecord) error {
    for attempt := 1; attempt <= maxIDAttempts; attempt++ {
        g.GroupID = utils.NewGroupID()
        for i := range g.Members {
            g.Members[i].GroupID = g.GroupID
            g.Members[i].UserID = utils.NewUserID()
        }
        g.CreatedAt = s.now().UTC().Truncate(time.Second)

        taken, err := s.groupIDTaken(ctx, g.GroupID)
        if err != nil {
            return storeUnavailable("check group id", err)
        }
        if taken {
            continue
        }
        err = s.insert(ctx, w, *g)
        if errors.Is(err, repository.ErrConflict) {
            s.log.Debug("identifier collision, retrying", zap.String("group_id", g.GroupID), zap.Int("attempt", attempt))
            continue
        }
        if err != nil {
            return storeUnavailable("create group", err)
        }
        return nil
    }
    return storeUnavailable("create group", fmt.Errorf("no free identifier after %d attempts", maxIDAttempts))
}

func (s *Submissions) groupIDTaken(ctx context.Context, groupID string) (bool, error) {
    for _, src := range s.sources.all() {
        ok, err := src.GroupExists(ctx, groupID)
        if err != nil || ok {
            return ok, err
        }
    }
    return false, nil
}

func (s *Submissions) insert(ctx context.Context, w GroupWriter, g repository.GroupRecord) error {
    tx, err := w.DB().BeginTx(ctx, nil)
    if err != nil {
        return err
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()
    if err := w.CreateTx(ctx, tx, g); err != nil {
        return err
    }
    if err := tx.Commit(); err != nil {
        return err
    }
    committed = true
    return nil
}

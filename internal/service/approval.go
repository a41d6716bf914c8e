package service

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/fest-registration/internal/metrics"
	"github.com/iliyamo/fest-registration/internal/model"
	"github.com/iliyamo/fest-registration/internal/repository"
)

// Notification template keys understood by the mail consumer.
const (
	TemplateApproved = "registration_approved"
	TemplateRejected = "registration_rejected"
)

// notifyTimeout bounds a single notification dispatch.  It is detached from
// the request context so a client disconnect cannot cancel a notice for a
// decision that has already been stored.
const notifyTimeout = 5 * time.Second

// Notifier delivers a templated notice to a registrant.  Implementations
// are best-effort; the approval workflow logs their failures and moves on.
type Notifier interface {
	SendApprovalNotice(ctx context.Context, email, templateKey string, vars map[string]string) error
}

// Approvals drives the pending → approved | rejected workflow.
type Approvals struct {
	resolver       *Resolver
	notifier       Notifier
	log            *zap.Logger
	metrics        *metrics.Metrics
	now            func() time.Time
	notifyOnReject bool
}

// ApprovalsOption customises an Approvals.
type ApprovalsOption func(*Approvals)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) ApprovalsOption {
	return func(a *Approvals) { a.now = now }
}

// WithMetrics attaches Prometheus collectors.
func WithMetrics(m *metrics.Metrics) ApprovalsOption {
	return func(a *Approvals) { a.metrics = m }
}

// WithRejectNotice also notifies registrants whose group is rejected.
func WithRejectNotice(enabled bool) ApprovalsOption {
	return func(a *Approvals) { a.notifyOnReject = enabled }
}

// NewApprovals wires the workflow.  notifier may be nil, in which case no
// notices are sent.
func NewApprovals(sources Sources, notifier Notifier, log *zap.Logger, opts ...ApprovalsOption) *Approvals {
	if log == nil {
		log = zap.NewNop()
	}
	a := &Approvals{
		resolver: NewResolver(sources),
		notifier: notifier,
		log:      log,
		now:      time.Now,
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

// Approve moves a pending group to approved and sends exactly one approval
// notice to its contact.  A group that is no longer pending yields an
// invalid-transition error and nothing is written or sent.  The returned
// registration reflects the stored state after the transition.
func (a *Approvals) Approve(ctx context.Context, groupID, reviewerID string) (model.Registration, error) {
	reviewerID = strings.TrimSpace(reviewerID)
	if reviewerID == "" {
		return model.Registration{}, validationf("reviewer is required")
	}
	reg, err := a.transition(ctx, groupID, model.StatusApproved, model.ReviewMeta{ReviewedBy: reviewerID})
	if err != nil {
		return model.Registration{}, err
	}
	a.notify(ctx, reg, TemplateApproved)
	return reg, nil
}

// Reject moves a pending group to rejected with the given reason.  An empty
// reason is refused before the store is touched.
func (a *Approvals) Reject(ctx context.Context, groupID, reviewerID, reason string) (model.Registration, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return model.Registration{}, validationf("rejection reason is required")
	}
	reviewerID = strings.TrimSpace(reviewerID)
	if reviewerID == "" {
		return model.Registration{}, validationf("reviewer is required")
	}
	reg, err := a.transition(ctx, groupID, model.StatusRejected, model.ReviewMeta{ReviewedBy: reviewerID, RejectionReason: reason})
	if err != nil {
		return model.Registration{}, err
	}
	if a.notifyOnReject {
		a.notify(ctx, reg, TemplateRejected)
	}
	return reg, nil
}

// transition locates the group, checks it is still pending and performs the
// guarded update.  The pre-check only saves a write; the conditional UPDATE
// is what makes concurrent reviews safe.
func (a *Approvals) transition(ctx context.Context, groupID string, next model.Status, meta model.ReviewMeta) (model.Registration, error) {
	src, reg, err := a.resolver.locate(ctx, groupID)
	if err != nil {
		return model.Registration{}, err
	}
	kind := string(reg.Kind)
	if reg.Status != model.StatusPending {
		a.metrics.ObserveTransition(kind, string(next), "invalid")
		return model.Registration{}, invalidTransitionf("group %s is already %s", reg.GroupID, reg.Status)
	}
	meta.ReviewedAt = a.now().UTC().Truncate(time.Second)
	err = src.GuardedTransition(ctx, reg.GroupID, model.StatusPending, next, meta)
	switch {
	case errors.Is(err, repository.ErrPreconditionFailed):
		a.metrics.ObserveTransition(kind, string(next), "invalid")
		return model.Registration{}, invalidTransitionf("group %s was reviewed concurrently", reg.GroupID)
	case errors.Is(err, repository.ErrNotFound):
		return model.Registration{}, notFoundf("group %s not found", reg.GroupID)
	case err != nil:
		a.metrics.ObserveTransition(kind, string(next), "error")
		return model.Registration{}, storeUnavailable("transition group", err)
	}
	a.metrics.ObserveTransition(kind, string(next), "ok")
	a.log.Info("registration reviewed",
		zap.String("group_id", reg.GroupID),
		zap.String("kind", kind),
		zap.String("status", string(next)),
		zap.String("reviewed_by", meta.ReviewedBy),
	)

	reg.Status = next
	at, by := meta.ReviewedAt, meta.ReviewedBy
	reg.ReviewedAt, reg.ReviewedBy = &at, &by
	if next == model.StatusRejected {
		reason := meta.RejectionReason
		reg.RejectionReason = &reason
	}
	return reg, nil
}

// notify dispatches one notice after the decision has been stored.  Errors
// are logged and counted, never returned.
func (a *Approvals) notify(ctx context.Context, reg model.Registration, template string) {
	if a.notifier == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	defer cancel()
	err := a.notifier.SendApprovalNotice(ctx, reg.Contact.Email, template, NoticeVars(reg))
	a.metrics.ObserveNotification(template, err)
	if err != nil {
		a.log.Warn("notification failed",
			zap.String("group_id", reg.GroupID),
			zap.String("template", template),
			zap.Error(err),
		)
	}
}

// NoticeVars builds the template variables for a registration notice.
func NoticeVars(reg model.Registration) map[string]string {
	vars := map[string]string{
		"name":         reg.Contact.Name,
		"group_id":     reg.GroupID,
		"kind":         string(reg.Kind),
		"status":       string(reg.Status),
		"total_amount": strconv.FormatInt(reg.TotalAmount, 10),
		"members":      strconv.Itoa(len(reg.Members)),
	}
	if reg.EventName != "" {
		vars["event_name"] = reg.EventName
	}
	if reg.RejectionReason != nil {
		vars["reason"] = *reg.RejectionReason
	}
	return vars
}

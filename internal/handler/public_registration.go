package handler

import (
    "context"
    "net/http"
    "strconv"
    "time"

    "github.com/labstack/echo/v4"
    "go.uber.org/zap"

    "github.com/iliyamo/fest-registration/internal/model"
    "github.com/iliyamo/fest-registration/internal/service"
)

// PublicRegistrationHandler accepts attendee submissions and answers status
// checks.  No authentication is required; the group token is the secret.
type PublicRegistrationHandler struct {
    Submissions *service.Submissions
    Resolver    *service.Resolver
    Log         *zap.Logger
}

func NewPublicRegistrationHandler(s *service.Submissions, r *service.Resolver, log *zap.Logger) *PublicRegistrationHandler {
    if log == nil {
        log = zap.NewNop()
    }
    return &PublicRegistrationHandler{Submissions: s, Resolver: r, Log: log}
}

// submissionResp is what a registrant sees after submitting: the tokens to
// quote at the desk and the amount they should have paid.
type submissionResp struct {
    GroupID     string         `json:"group_id"`
    Kind        model.Kind     `json:"kind"`
    EventName   string         `json:"event_name,omitempty"`
    Status      model.Status   `json:"status"`
    TotalAmount int64          `json:"total_amount"`
    Members     []memberTicket `json:"members"`
}

type memberTicket struct {
    UserID string `json:"user_id"`
    Name   string `json:"name"`
    Amount int64  `json:"amount"`
}

func toSubmissionResp(reg model.Registration) submissionResp {
    out := submissionResp{
        GroupID:     reg.GroupID,
        Kind:        reg.Kind,
        EventName:   reg.EventName,
        Status:      reg.Status,
        TotalAmount: reg.TotalAmount,
        Members:     make([]memberTicket, 0, len(reg.Members)),
    }
    for _, m := range reg.Members {
        out.Members = append(out.Members, memberTicket{UserID: m.UserID, Name: m.Name, Amount: m.Amount})
    }
    return out
}

// SubmitTierPass: POST /v1/registrations/tier-pass
func (h *PublicRegistrationHandler) SubmitTierPass(c echo.Context) error {
    var req service.TierPassSubmission
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
    defer cancel()

    reg, err := h.Submissions.SubmitTierPass(ctx, req)
    if err != nil {
        return serviceError(c, h.Log, err)
    }
    return c.JSON(http.StatusCreated, toSubmissionResp(reg))
}

// SubmitEvent: POST /v1/registrations/events/:id
func (h *PublicRegistrationHandler) SubmitEvent(c echo.Context) error {
    id, err := strconv.ParseUint(c.Param("id"), 10, 64)
    if err != nil || id == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
    }
    var req service.EventSubmission
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
    defer cancel()

    reg, err := h.Submissions.SubmitEvent(ctx, id, req)
    if err != nil {
        return serviceError(c, h.Log, err)
    }
    return c.JSON(http.StatusCreated, toSubmissionResp(reg))
}

// Status: GET /v1/registrations/:groupId/status.  Only the review outcome is
// exposed, never contact details.
func (h *PublicRegistrationHandler) Status(c echo.Context) error {
    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    reg, err := h.Resolver.Get(ctx, c.Param("groupId"))
    if err != nil {
        return serviceError(c, h.Log, err)
    }
    resp := echo.Map{
        "group_id":     reg.GroupID,
        "kind":         reg.Kind,
        "status":       reg.Status,
        "total_amount": reg.TotalAmount,
        "submitted_at": reg.CreatedAt,
    }
    if reg.EventName != "" {
        resp["event_name"] = reg.EventName
    }
    if reg.ReviewedAt != nil {
        resp["reviewed_at"] = reg.ReviewedAt
    }
    if reg.RejectionReason != nil {
        resp["rejection_reason"] = *reg.RejectionReason
    }
    return c.JSON(http.StatusOK, resp)
}

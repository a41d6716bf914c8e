package handler

import (
    "context"
    "fmt"
    "net/http"
    "strconv"
    "strings"
    "time"

    "github.com/labstack/echo/v4"
    "go.uber.org/zap"

    "github.com/iliyamo/fest-registration/internal/export"
    "github.com/iliyamo/fest-registration/internal/middleware"
    "github.com/iliyamo/fest-registration/internal/model"
    "github.com/iliyamo/fest-registration/internal/service"
)

// AdminRegistrationHandler serves the review console: the unified listing,
// statistics, search, export and the approve/reject actions.
type AdminRegistrationHandler struct {
    Agg       *service.Aggregator
    Resolver  *service.Resolver
    Approvals *service.Approvals
    Log       *zap.Logger
}

func NewAdminRegistrationHandler(agg *service.Aggregator, res *service.Resolver, appr *service.Approvals, log *zap.Logger) *AdminRegistrationHandler {
    if log == nil {
        log = zap.NewNop()
    }
    return &AdminRegistrationHandler{Agg: agg, Resolver: res, Approvals: appr, Log: log}
}

type rejectReq struct {
    Reason string `json:"reason"`
}

// List: GET /v1/admin/registrations?status=&kind=&event=&q=&sort=&page=&page_size=&stats=true
func (h *AdminRegistrationHandler) List(c echo.Context) error {
    opts, err := listOptions(c)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
    defer cancel()

    res, err := h.Agg.List(ctx, opts)
    if err != nil {
        return serviceError(c, h.Log, err)
    }
    return c.JSON(http.StatusOK, res)
}

// Stats: GET /v1/admin/registrations/stats
func (h *AdminRegistrationHandler) Stats(c echo.Context) error {
    ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
    defer cancel()

    st, err := h.Agg.Stats(ctx)
    if err != nil {
        return serviceError(c, h.Log, err)
    }
    return c.JSON(http.StatusOK, st)
}

// Search: GET /v1/admin/registrations/search?q=<email|GRP-…|USER-…>
func (h *AdminRegistrationHandler) Search(c echo.Context) error {
    q := strings.TrimSpace(c.QueryParam("q"))
    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    recs, err := h.Resolver.Resolve(ctx, q)
    if err != nil {
        return serviceError(c, h.Log, err)
    }
    return c.JSON(http.StatusOK, echo.Map{
        "query":   q,
        "matched": service.Classify(q),
        "items":   recs,
    })
}

// Export: GET /v1/admin/registrations/export.csv?mode=group|member plus the
// list filters.  Pagination is ignored.
func (h *AdminRegistrationHandler) Export(c echo.Context) error {
    mode, err := export.ParseMode(c.QueryParam("mode"))
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
    }
    opts, err := listOptions(c)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
    }
    opts.Page, opts.PageSize, opts.WithStats = 0, 0, false

    ctx, cancel := context.WithTimeout(c.Request().Context(), 30*time.Second)
    defer cancel()

    res, err := h.Agg.List(ctx, opts)
    if err != nil {
        return serviceError(c, h.Log, err)
    }
    filename := fmt.Sprintf("registrations-%s-%s.csv", mode, time.Now().UTC().Format("20060102-150405"))
    c.Response().Header().Set(echo.HeaderContentType, "text/csv; charset=utf-8")
    c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s"`, filename))
    c.Response().WriteHeader(http.StatusOK)
    if err := export.WriteCSV(c.Response(), res.Items, mode); err != nil {
        h.Log.Error("csv export failed", zap.Error(err))
    }
    return nil
}

// Get: GET /v1/admin/registrations/:groupId
func (h *AdminRegistrationHandler) Get(c echo.Context) error {
    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    reg, err := h.Resolver.Get(ctx, c.Param("groupId"))
    if err != nil {
        return serviceError(c, h.Log, err)
    }
    return c.JSON(http.StatusOK, reg)
}

// Approve: POST /v1/admin/registrations/:groupId/approve
func (h *AdminRegistrationHandler) Approve(c echo.Context) error {
    ctx, cancel := context.WithTimeout(c.Request().Context(), 15*time.Second)
    defer cancel()

    reg, err := h.Approvals.Approve(ctx, c.Param("groupId"), middleware.ReviewerID(c))
    if err != nil {
        return serviceError(c, h.Log, err)
    }
    return c.JSON(http.StatusOK, reg)
}

// Reject: POST /v1/admin/registrations/:groupId/reject {"reason": "..."}
func (h *AdminRegistrationHandler) Reject(c echo.Context) error {
    var req rejectReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), 15*time.Second)
    defer cancel()

    reg, err := h.Approvals.Reject(ctx, c.Param("groupId"), middleware.ReviewerID(c), req.Reason)
    if err != nil {
        return serviceError(c, h.Log, err)
    }
    return c.JSON(http.StatusOK, reg)
}

// listOptions parses the shared listing query string.
func listOptions(c echo.Context) (service.ListOptions, error) {
    opts := service.ListOptions{
        Status:    model.Status(strings.ToLower(strings.TrimSpace(c.QueryParam("status")))),
        Kind:      model.Kind(strings.ToLower(strings.TrimSpace(c.QueryParam("kind")))),
        EventName: strings.TrimSpace(c.QueryParam("event")),
        Search:    strings.TrimSpace(c.QueryParam("q")),
        Sort:      service.SortKey(strings.ToLower(strings.TrimSpace(c.QueryParam("sort")))),
        WithStats: c.QueryParam("stats") == "true" || c.QueryParam("stats") == "1",
    }
    var err error
    if opts.Page, err = queryInt(c, "page"); err != nil {
        return opts, err
    }
    if opts.PageSize, err = queryInt(c, "page_size"); err != nil {
        return opts, err
    }
    return opts, nil
}

func queryInt(c echo.Context, name string) (int, error) {
    s := strings.TrimSpace(c.QueryParam(name))
    if s == "" {
        return 0, nil
    }
    n, err := strconv.Atoi(s)
    if err != nil || n < 0 {
        return 0, fmt.Errorf("invalid %s", name)
    }
    return n, nil
}

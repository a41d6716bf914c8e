package handler

import (
    "context"
    "net/http"
    "time"

    "github.com/labstack/echo/v4"
    "go.uber.org/zap"

    "github.com/iliyamo/fest-registration/internal/model"
)

// EventLister lists the events open for registration.
type EventLister interface {
    ListEvents(ctx context.Context) ([]model.Event, error)
}

// CatalogHandler publishes what can be bought: the tier/pass price list and
// the active events.  The route sits behind the Redis response cache.
type CatalogHandler struct {
    Events EventLister
    Log    *zap.Logger
}

func NewCatalogHandler(events EventLister, log *zap.Logger) *CatalogHandler {
    if log == nil {
        log = zap.NewNop()
    }
    return &CatalogHandler{Events: events, Log: log}
}

// Get: GET /v1/catalog
func (h *CatalogHandler) Get(c echo.Context) error {
    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    events, err := h.Events.ListEvents(ctx)
    if err != nil {
        h.Log.Error("list events failed", zap.Error(err))
        return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "catalog unavailable"})
    }
    return c.JSON(http.StatusOK, echo.Map{
        "currency": "INR",
        "prices":   model.PriceList(),
        "events":   events,
    })
}

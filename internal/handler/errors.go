package handler

import (
    "errors"
    "net/http"

    "github.com/labstack/echo/v4"
    "go.uber.org/zap"

    "github.com/iliyamo/fest-registration/internal/service"
)

// serviceError maps a service failure to its HTTP status:
// validation 400, not found 404, invalid transition 409, store 503.
func serviceError(c echo.Context, log *zap.Logger, err error) error {
    msg := "internal error"
    var e *service.Error
    if errors.As(err, &e) {
        msg = e.Msg
    }
    switch service.KindOf(err) {
    case service.KindValidation:
        return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
    case service.KindNotFound:
        return c.JSON(http.StatusNotFound, echo.Map{"error": msg})
    case service.KindInvalidTransition:
        return c.JSON(http.StatusConflict, echo.Map{"error": msg})
    case service.KindStoreUnavailable:
        log.Error("store unavailable", zap.String("route", c.Path()), zap.Error(err))
        return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "registration store unavailable"})
    }
    log.Error("unexpected error", zap.String("route", c.Path()), zap.Error(err))
    return c.JSON(http.StatusInternalServerError, echo.Map{"error": msg})
}

package middleware

import (
    "github.com/labstack/echo/v4"
    echomw "github.com/labstack/echo/v4/middleware"
    "go.uber.org/zap"
)

// Recover turns a handler panic into a 500 and logs it with its stack.
func Recover(log *zap.Logger) echo.MiddlewareFunc {
    if log == nil {
        log = zap.NewNop()
    }
    return echomw.RecoverWithConfig(echomw.RecoverConfig{
        StackSize: 4 << 10,
        LogErrorFunc: func(c echo.Context, err error, stack []byte) error {
            log.Error("handler panic",
                zap.String("route", c.Path()),
                zap.Error(err),
                zap.ByteString("stack", stack),
            )
            return err
        },
    })
}

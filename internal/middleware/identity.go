package middleware

// identity.go holds the helpers that turn the values stored by JWTAuth back
// into a caller identity.  Unauthenticated requests get an empty Principal.

import (
    "github.com/labstack/echo/v4"

    "github.com/iliyamo/fest-registration/internal/authz"
)

// PrincipalFrom returns the authenticated caller stored by JWTAuth.
func PrincipalFrom(c echo.Context) authz.Principal {
    return authz.Principal{
        UserID: ctxString(c, "user_id"),
        Email:  ctxString(c, "email"),
        Role:   ctxString(c, "role"),
    }
}

// ReviewerID is the identifier recorded as reviewed_by.  The email is
// preferred because it stays meaningful in exports; the numeric subject is
// the fallback.
func ReviewerID(c echo.Context) string {
    p := PrincipalFrom(c)
    if p.Email != "" {
        return p.Email
    }
    return p.UserID
}

func ctxString(c echo.Context, key string) string {
    if s, ok := c.Get(key).(string); ok {
        return s
    }
    return ""
}

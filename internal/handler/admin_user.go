package handler

import (
    "context"
    "errors"
    "net/http"
    "strconv"
    "strings"
    "time"

    "github.com/labstack/echo/v4"
    "go.uber.org/zap"

    "github.com/iliyamo/fest-registration/internal/middleware"
    "github.com/iliyamo/fest-registration/internal/model"
    "github.com/iliyamo/fest-registration/internal/repository"
)

// AdminUserHandler lets an existing reviewer manage console roles.
type AdminUserHandler struct {
    Users *repository.UserRepo
    Log   *zap.Logger
}

func NewAdminUserHandler(u *repository.UserRepo, log *zap.Logger) *AdminUserHandler {
    if log == nil {
        log = zap.NewNop()
    }
    return &AdminUserHandler{Users: u, Log: log}
}

type roleReq struct {
    Role string `json:"role"`
}

// SetRole: PUT /v1/admin/users/:id/role {"role":"ADMIN"|"VOLUNTEER"}
func (h *AdminUserHandler) SetRole(c echo.Context) error {
    id, err := strconv.ParseUint(c.Param("id"), 10, 64)
    if err != nil || id == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user id"})
    }
    var req roleReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    role := strings.ToUpper(strings.TrimSpace(req.Role))
    if role != model.RoleAdmin && role != model.RoleVolunteer {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "role must be ADMIN or VOLUNTEER"})
    }
    caller := middleware.PrincipalFrom(c)
    if caller.UserID == strconv.FormatUint(id, 10) {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "cannot change your own role"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    if err := h.Users.SetRole(ctx, id, role); err != nil {
        if errors.Is(err, repository.ErrNotFound) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
        }
        h.Log.Error("set role failed", zap.Uint64("user_id", id), zap.Error(err))
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "set role failed"})
    }
    h.Log.Info("console role changed",
        zap.Uint64("user_id", id),
        zap.String("role", role),
        zap.String("by", middleware.ReviewerID(c)),
    )
    return c.JSON(http.StatusOK, echo.Map{"id": id, "role": role})
}

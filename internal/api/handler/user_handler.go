package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

type UserHandler struct{}

func NewUserHandler() *UserHandler {
	return &UserHandler{}
}

// Me returns the authenticated user.
//
// @Summary      Current user
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        X-Windows-User  header  string  false  "Proxy supplied Windows identity"
// @Success      200  {object}  domain.User
// @Failure      401  {object}  errorDoc
// @Router       /me [get]
func (h *UserHandler) Me(c echo.Context) error {
	u, err := ctxUser(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, u)
}

type pingResponse struct {
	Status   string `json:"status"`
	Username string `json:"username"`
}

// AdminPing is a coupon_admin only probe.
//
// @Summary      Admin probe
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  pingResponse
// @Failure      403  {object}  errorDoc
// @Router       /admin/ping [get]
func (h *UserHandler) AdminPing(c echo.Context) error {
	u, err := ctxUser(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pingResponse{Status: "ok", Username: u.Username})
}

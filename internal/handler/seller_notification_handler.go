package handler

import (
	"net/http"
	"strconv"

	"app/internal/config"
	"app/internal/middleware"
	"app/internal/repository"
	"app/internal/usecase"

	"github.com/labstack/echo/v4"
)

type SellerNotificationHandler struct {
	uc *usecase.SellerNotificationUsecase
}

func NewSellerNotificationHandler(uc *usecase.SellerNotificationUsecase) *SellerNotificationHandler {
	return &SellerNotificationHandler{uc: uc}
}

func (h *SellerNotificationHandler) RegisterRoutes(e *echo.Echo, cfg config.Config) {
	seller := e.Group("/seller")
	seller.Use(middleware.AuthJWT(cfg))
	seller.Use(middleware.SellerRoleGuard())

	seller.GET("/notifications", h.list)
	seller.PUT("/notifications/:id/read", h.markRead)
	seller.DELETE("/notifications/:id", h.delete)
}

func (h *SellerNotificationHandler) list(c echo.Context) error {
	sellerID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	page := 1
	if v := c.QueryParam("page"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid page"})
		}
		page = p
	}

	limit := 50
	if v := c.QueryParam("limit"); v != "" {
		l, err := strconv.Atoi(v)
		if err != nil {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid limit"})
		}
		limit = l
	}

	f := repository.NotificationListFilter{
		Page:       page,
		Limit:      limit,
		UnreadOnly: c.QueryParam("unread") == "true",
	}

	out, err := h.uc.List(c.Request().Context(), sellerID, f)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *SellerNotificationHandler) markRead(c echo.Context) error {
	sellerID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
	}

	if err := h.uc.MarkRead(c.Request().Context(), sellerID, id); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, SuccessResponse{Message: "notification marked as read"})
}

func (h *SellerNotificationHandler) delete(c echo.Context) error {
	sellerID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
	}

	if err := h.uc.Delete(c.Request().Context(), sellerID, id); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, SuccessResponse{Message: "notification deleted"})
}

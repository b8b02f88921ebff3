package handler

import (
	"net/http"

	"app/internal/config"
	"app/internal/middleware"
	"app/internal/usecase"

	"github.com/labstack/echo/v4"
)

type PaymentHandler struct {
	uc *usecase.OrderUsecase
}

func NewPaymentHandler(uc *usecase.OrderUsecase) *PaymentHandler {
	return &PaymentHandler{uc: uc}
}

type PaymentInitiateRequest struct {
	Items []usecase.OrderItemInput `json:"items"`
}

type PaymentCallbackRequest struct {
	//ゲートウェイが返してきたフィールドをそのまま入れる
	Payload map[string]string        `json:"payload"`
	Items   []usecase.OrderItemInput `json:"items"`
	Address usecase.AddressInput     `json:"address"`
}

func (h *PaymentHandler) RegisterRoutes(e *echo.Echo, cfg config.Config) {
	g := e.Group("/payments")
	g.Use(middleware.AuthJWT(cfg))

	g.POST("/:gateway/initiate", h.initiate)
	g.POST("/:gateway/callback", h.callback)
}

// リダイレクトの組み立てだけ。ここでは何も保存しない
func (h *PaymentHandler) initiate(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	var req PaymentInitiateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	out, err := h.uc.InitiateOnlinePayment(c.Request().Context(), userID, c.Param("gateway"), usecase.InitiatePaymentInput{
		Items: req.Items,
	})
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, out)
}

// 決済完了後の戻り。検証が通ったときだけ注文ができる
func (h *PaymentHandler) callback(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	var req PaymentCallbackRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	out, err := h.uc.CompleteOnlinePayment(c.Request().Context(), userID, c.Param("gateway"), usecase.CompletePaymentInput{
		Payload: req.Payload,
		Items:   req.Items,
		Address: req.Address,
	})
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, out)
}

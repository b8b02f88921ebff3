package server

import (
	"app/internal/config"
	"app/internal/handler"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
)

func New(
	cfg config.Config,
	orderH *handler.OrderHandler,
	paymentH *handler.PaymentHandler,
	sellerOrderH *handler.SellerOrderHandler,
	sellerNotifH *handler.SellerNotificationHandler,
) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	e.Use(echomw.Recover())

	orderH.RegisterRoutes(e, cfg)
	paymentH.RegisterRoutes(e, cfg)
	sellerOrderH.RegisterRoutes(e, cfg)
	sellerNotifH.RegisterRoutes(e, cfg)

	return e
}

func Start(addr string, e *echo.Echo) error {
	return e.Start(addr)
}

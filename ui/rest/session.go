package rest

import (
	"encoding/base64"

	"github.com/gofiber/fiber/v2"

	domainGateway "github.com/AzielCF/az-blast/domains/gateway"
	"github.com/AzielCF/az-blast/pkg/utils"
)

// Session exposes pairing and connection management for the WhatsApp gateway.
type Session struct {
	Gateway domainGateway.IGateway
	Pairing domainGateway.ISession
}

func InitRestSession(app fiber.Router, gateway domainGateway.IGateway, pairing domainGateway.ISession) Session {
	rest := Session{Gateway: gateway, Pairing: pairing}
	app.Get("/session/login", rest.Login)
	app.Get("/session/logout", rest.Logout)
	app.Get("/session/reconnect", rest.Reconnect)
	app.Get("/session/status", rest.Status)
	return rest
}

func (controller *Session) Login(c *fiber.Ctx) error {
	png, code, err := controller.Pairing.LoginQR(c.UserContext())
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Scan the QR code to pair",
		Results: map[string]any{
			"qr_code":  code,
			"qr_image": "data:image/png;base64," + base64.StdEncoding.EncodeToString(png),
		},
	})
}

func (controller *Session) Logout(c *fiber.Ctx) error {
	err := controller.Pairing.Logout(c.UserContext())
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Success logout",
	})
}

func (controller *Session) Reconnect(c *fiber.Ctx) error {
	err := controller.Gateway.Connect()
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Reconnect success",
	})
}

func (controller *Session) Status(c *fiber.Ctx) error {
	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Connection status retrieved",
		Results: map[string]any{
			"is_connected": controller.Gateway.IsConnected(),
			"device_id":    controller.Pairing.DeviceAddress(),
		},
	})
}

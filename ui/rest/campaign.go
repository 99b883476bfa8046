package rest

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	domainCampaign "github.com/AzielCF/az-blast/domains/campaign"
	"github.com/AzielCF/az-blast/pkg/utils"
)

type Campaign struct {
	Service domainCampaign.ICampaignUsecase
}

func InitRestCampaign(app fiber.Router, service domainCampaign.ICampaignUsecase) Campaign {
	rest := Campaign{Service: service}
	app.Post("/campaigns", rest.Create)
	app.Get("/campaigns", rest.List)
	app.Get("/campaigns/:id", rest.Get)
	app.Delete("/campaigns/:id", rest.Delete)
	app.Post("/campaigns/:id/contacts", rest.AddContacts)
	app.Get("/campaigns/:id/contacts", rest.ListContacts)
	app.Get("/campaigns/:id/logs", rest.ListLogs)
	app.Post("/campaigns/:id/start", rest.Start)
	app.Post("/campaigns/:id/pause", rest.Pause)
	app.Post("/campaigns/:id/stop", rest.Stop)
	return rest
}

func (controller *Campaign) Create(c *fiber.Ctx) error {
	var request domainCampaign.CreateCampaignRequest
	err := c.BodyParser(&request)
	utils.PanicIfNeeded(err)

	campaign, err := controller.Service.Create(c.UserContext(), request)
	utils.PanicIfNeeded(err)

	return c.Status(fiber.StatusCreated).JSON(utils.ResponseData{
		Status:  201,
		Code:    "SUCCESS",
		Message: "Success create campaign",
		Results: campaign,
	})
}

func (controller *Campaign) List(c *fiber.Ctx) error {
	campaigns, err := controller.Service.List(c.UserContext())
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Success fetch campaigns",
		Results: campaigns,
	})
}

func (controller *Campaign) Get(c *fiber.Ctx) error {
	campaign, err := controller.Service.GetByID(c.UserContext(), c.Params("id"))
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Success fetch campaign",
		Results: campaign,
	})
}

func (controller *Campaign) Delete(c *fiber.Ctx) error {
	err := controller.Service.Delete(c.UserContext(), c.Params("id"))
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Success delete campaign",
	})
}

func (controller *Campaign) AddContacts(c *fiber.Ctx) error {
	var request domainCampaign.AddContactsRequest
	err := c.BodyParser(&request)
	utils.PanicIfNeeded(err)

	contacts, err := controller.Service.AddContacts(c.UserContext(), c.Params("id"), request)
	utils.PanicIfNeeded(err)

	return c.Status(fiber.StatusCreated).JSON(utils.ResponseData{
		Status:  201,
		Code:    "SUCCESS",
		Message: "Success add contacts",
		Results: contacts,
	})
}

func (controller *Campaign) ListContacts(c *fiber.Ctx) error {
	contacts, err := controller.Service.ListContacts(c.UserContext(), c.Params("id"))
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Success fetch contacts",
		Results: contacts,
	})
}

func (controller *Campaign) ListLogs(c *fiber.Ctx) error {
	limit := 100
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	logs, err := controller.Service.ListLogs(c.UserContext(), c.Params("id"), limit)
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Success fetch activity logs",
		Results: logs,
	})
}

func (controller *Campaign) Start(c *fiber.Ctx) error {
	err := controller.Service.Start(c.UserContext(), c.Params("id"))
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Campaign started",
	})
}

func (controller *Campaign) Pause(c *fiber.Ctx) error {
	err := controller.Service.Pause(c.UserContext(), c.Params("id"))
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Campaign paused",
	})
}

func (controller *Campaign) Stop(c *fiber.Ctx) error {
	err := controller.Service.Stop(c.UserContext(), c.Params("id"))
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Campaign stopped",
	})
}

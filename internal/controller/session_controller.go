package controller

import (
	"voicepilot-be/internal/dto"
	"voicepilot-be/internal/pkg/serverutils"
	"voicepilot-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type ISessionController interface {
	RegisterRoutes(r fiber.Router)
	Start(ctx *fiber.Ctx) error
	ProcessInput(ctx *fiber.Ctx) error
	Pause(ctx *fiber.Ctx) error
	Resume(ctx *fiber.Ctx) error
	End(ctx *fiber.Ctx) error
	Stats(ctx *fiber.Ctx) error
}

type sessionController struct {
	sessionService service.ISessionService
}

func NewSessionController(sessionService service.ISessionService) ISessionController {
	return &sessionController{
		sessionService: sessionService,
	}
}

func (c *sessionController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/session/v1")
	h.Use(serverutils.JwtMiddleware)
	h.Post("", c.Start)
	h.Post(":id/input", c.ProcessInput)
	h.Post(":id/pause", c.Pause)
	h.Post(":id/resume", c.Resume)
	h.Delete(":id", c.End)
	h.Get(":id/stats", c.Stats)
}

func (c *sessionController) Start(ctx *fiber.Ctx) error {
	clientId := ctx.Locals("client_id").(string)

	var req dto.StartSessionRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}

	err := serverutils.ValidateRequest(req)
	if err != nil {
		return err
	}

	res, err := c.sessionService.Start(ctx.Context(), clientId, &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success start session", res))
}

func (c *sessionController) ProcessInput(ctx *fiber.Ctx) error {
	sessionId := ctx.Params("id")

	var req dto.ProcessInputRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}

	err := serverutils.ValidateRequest(req)
	if err != nil {
		return err
	}

	res, err := c.sessionService.ProcessInput(ctx.Context(), sessionId, &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success process input", res))
}

func (c *sessionController) Pause(ctx *fiber.Ctx) error {
	sessionId := ctx.Params("id")

	if err := c.sessionService.Pause(ctx.Context(), sessionId); err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse[any]("Success pause session", nil))
}

func (c *sessionController) Resume(ctx *fiber.Ctx) error {
	sessionId := ctx.Params("id")

	if err := c.sessionService.Resume(ctx.Context(), sessionId); err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse[any]("Success resume session", nil))
}

func (c *sessionController) End(ctx *fiber.Ctx) error {
	sessionId := ctx.Params("id")

	res, err := c.sessionService.End(ctx.Context(), sessionId)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success end session", res))
}

func (c *sessionController) Stats(ctx *fiber.Ctx) error {
	sessionId := ctx.Params("id")

	res, err := c.sessionService.Stats(ctx.Context(), sessionId)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get session stats", res))
}

package controller

import (
	"voicepilot-be/internal/dto"
	"voicepilot-be/internal/pkg/serverutils"
	"voicepilot-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IKnowledgeController interface {
	RegisterRoutes(r fiber.Router)
	Initialize(ctx *fiber.Ctx) error
	Ingest(ctx *fiber.Ctx) error
	Query(ctx *fiber.Ctx) error
	DeleteDocument(ctx *fiber.Ctx) error
	DeleteClient(ctx *fiber.Ctx) error
	Stats(ctx *fiber.Ctx) error
	StatsAll(ctx *fiber.Ctx) error
}

type knowledgeController struct {
	knowledgeService service.IKnowledgeService
}

func NewKnowledgeController(knowledgeService service.IKnowledgeService) IKnowledgeController {
	return &knowledgeController{
		knowledgeService: knowledgeService,
	}
}

func (c *knowledgeController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/knowledge/v1")
	h.Use(serverutils.JwtMiddleware)
	h.Get("stats/all", c.StatsAll)
	h.Get("stats", c.Stats)
	h.Post("initialize", c.Initialize)
	h.Post("documents", c.Ingest)
	h.Post("query", c.Query)
	h.Delete("documents/:docId", c.DeleteDocument)
	h.Delete("", c.DeleteClient)
}

func (c *knowledgeController) Initialize(ctx *fiber.Ctx) error {
	clientId := ctx.Locals("client_id").(string)

	var req dto.InitializeKnowledgeRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}

	err := serverutils.ValidateRequest(req)
	if err != nil {
		return err
	}

	res, err := c.knowledgeService.Initialize(ctx.Context(), clientId, &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success initialize knowledge base", res))
}

func (c *knowledgeController) Ingest(ctx *fiber.Ctx) error {
	clientId := ctx.Locals("client_id").(string)

	var req dto.IngestDocumentRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}

	err := serverutils.ValidateRequest(req)
	if err != nil {
		return err
	}

	res, err := c.knowledgeService.Ingest(ctx.Context(), clientId, &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success ingest document", res))
}

func (c *knowledgeController) Query(ctx *fiber.Ctx) error {
	clientId := ctx.Locals("client_id").(string)

	var req dto.QueryKnowledgeRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}

	err := serverutils.ValidateRequest(req)
	if err != nil {
		return err
	}

	res, err := c.knowledgeService.Query(ctx.Context(), clientId, &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success query knowledge base", res))
}

func (c *knowledgeController) DeleteDocument(ctx *fiber.Ctx) error {
	clientId := ctx.Locals("client_id").(string)
	docId := ctx.Params("docId")

	if err := c.knowledgeService.DeleteDocument(ctx.Context(), clientId, docId); err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse[any]("Success delete document", nil))
}

func (c *knowledgeController) DeleteClient(ctx *fiber.Ctx) error {
	clientId := ctx.Locals("client_id").(string)

	if err := c.knowledgeService.DeleteClient(ctx.Context(), clientId); err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse[any]("Success delete knowledge base", nil))
}

func (c *knowledgeController) Stats(ctx *fiber.Ctx) error {
	clientId := ctx.Locals("client_id").(string)

	res, err := c.knowledgeService.Stats(ctx.Context(), clientId)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get knowledge stats", res))
}

func (c *knowledgeController) StatsAll(ctx *fiber.Ctx) error {
	res, err := c.knowledgeService.StatsAll(ctx.Context())
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get knowledge stats", res))
}

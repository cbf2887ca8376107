package handler

import (
	"errors"
	"net/url"
	"time"

	"github.com/gofiber/fiber/v2"

	"searchvolume-go/internal/service"
	"searchvolume-go/pkg/analyze"
	"searchvolume-go/pkg/logger"
	"searchvolume-go/pkg/store"
)

// Controller exposes the sync job and the stored volume documents over HTTP.
type Controller struct {
	sync    *service.SyncService
	storage store.Storage
	log     *logger.Logger
}

func NewController(sync *service.SyncService, storage store.Storage, log *logger.Logger) *Controller {
	if log == nil {
		log = logger.Nop()
	}
	return &Controller{
		sync:    sync,
		storage: storage,
		log:     log.WithField("component", "http_controller"),
	}
}

// Register mounts all routes on the app.
func (ct *Controller) Register(app *fiber.App) {
	app.Get("/healthz", ct.health)

	api := app.Group("/api/v1")
	api.Post("/sync", ct.runSync)
	api.Get("/keywords", ct.listKeywords)
	api.Get("/keywords/:keyword", ct.getKeyword)
	api.Get("/stats", ct.stats)
}

func (ct *Controller) health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

type syncRequest struct {
	Keywords []string `json:"keywords"`
}

func (ct *Controller) runSync(c *fiber.Ctx) error {
	var req syncRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if len(req.Keywords) == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "keywords list cannot be empty")
	}

	report, err := ct.sync.Run(c.Context(), req.Keywords)
	if err != nil {
		ct.log.WithError(err).Error("Sync run failed")
		return fiber.NewError(fiber.StatusBadGateway, err.Error())
	}
	return c.JSON(report)
}

func (ct *Controller) listKeywords(c *fiber.Ctx) error {
	docs, err := ct.storage.List(c.Context())
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
	return c.JSON(fiber.Map{"count": len(docs), "keywords": docs})
}

func (ct *Controller) getKeyword(c *fiber.Ctx) error {
	keyword, err := url.PathUnescape(c.Params("keyword"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid keyword")
	}

	doc, err := ct.storage.Load(c.Context(), keyword)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "keyword not found")
		}
		ct.log.WithError(err).WithField("keyword", keyword).Error("Keyword lookup failed")
		return fiber.NewError(fiber.StatusInternalServerError, "storage failure")
	}
	return c.JSON(doc)
}

func (ct *Controller) stats(c *fiber.Ctx) error {
	docs, err := ct.storage.List(c.Context())
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}

	entries := make([]analyze.VolumeEntry, 0, len(docs))
	for _, doc := range docs {
		entries = append(entries, analyze.VolumeEntry{Keyword: doc.Keyword, Volume: doc.SearchVolume})
	}

	topN := c.QueryInt("top", 20)
	return c.JSON(fiber.Map{
		"stats": analyze.Summarize(entries),
		"top":   analyze.TopN(entries, topN),
	})
}

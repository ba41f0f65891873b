package handlers

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/gofiber/fiber/v2"
	"github.com/postertrack/backend/internal/apperr"
	"github.com/postertrack/backend/internal/http/dto"
	"github.com/postertrack/backend/internal/middleware"
	"github.com/postertrack/backend/internal/models"
	"github.com/postertrack/backend/internal/repositories"
	"github.com/postertrack/backend/internal/services"
	"go.uber.org/zap"
)

type ImageHandler struct {
	imageService *services.ImageService
	log          *zap.Logger
}

func NewImageHandler(imageService *services.ImageService, log *zap.Logger) *ImageHandler {
	return &ImageHandler{imageService: imageService, log: log}
}

// Upload accepts a multipart form with the photo in field "image" and optional "notes".
func (h *ImageHandler) Upload(c *fiber.Ctx) error {
	campaignID, err := parseID(c, "id")
	if err != nil {
		return err
	}
	fh, err := c.FormFile("image")
	if err != nil {
		if errors.Is(err, fiber.ErrRequestEntityTooLarge) {
			return err
		}
		return apperr.ValidationFields("image file is required", map[string]string{"image": "is required"})
	}
	f, err := fh.Open()
	if err != nil {
		return err
	}
	defer f.Close()

	var notes *string
	if n := strings.TrimSpace(c.FormValue("notes")); n != "" {
		if utf8.RuneCountInString(n) > 2000 {
			return apperr.ValidationFields("invalid request", map[string]string{"notes": "must be at most 2000 characters"})
		}
		notes = &n
	}

	img, err := h.imageService.Upload(c.UserContext(), middleware.GetActor(c), campaignID, services.UploadInput{
		File:             f,
		OriginalFilename: fh.Filename,
		ContentType:      fh.Header.Get(fiber.HeaderContentType),
		Notes:            notes,
	})
	if err != nil {
		return err
	}
	return created(c, img)
}

func (h *ImageHandler) Get(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	img, err := h.imageService.Get(c.UserContext(), middleware.GetActor(c), id)
	if err != nil {
		return err
	}
	return ok(c, img)
}

func imageFilter(c *fiber.Ctx) repositories.ImageFilter {
	limit, offset := page(c)
	f := repositories.ImageFilter{Limit: limit, Offset: offset}
	if v := c.Query("status"); v != "" {
		status := models.ImageStatus(v)
		f.Status = &status
	}
	return f
}

func (h *ImageHandler) List(c *fiber.Ctx) error {
	f := imageFilter(c)
	campaignID, err := queryID(c, "campaign_id")
	if err != nil {
		return err
	}
	f.CampaignID = campaignID
	list, total, err := h.imageService.List(c.UserContext(), middleware.GetActor(c), f)
	if err != nil {
		return err
	}
	return c.JSON(dto.List(list, total, f.Limit, f.Offset))
}

func (h *ImageHandler) ListByCampaign(c *fiber.Ctx) error {
	campaignID, err := parseID(c, "id")
	if err != nil {
		return err
	}
	f := imageFilter(c)
	list, total, err := h.imageService.ListByCampaign(c.UserContext(), middleware.GetActor(c), campaignID, f)
	if err != nil {
		return err
	}
	return c.JSON(dto.List(list, total, f.Limit, f.Offset))
}

func (h *ImageHandler) ListMine(c *fiber.Ctx) error {
	f := imageFilter(c)
	list, total, err := h.imageService.ListMyUploads(c.UserContext(), middleware.GetActor(c), f)
	if err != nil {
		return err
	}
	return c.JSON(dto.List(list, total, f.Limit, f.Offset))
}

func (h *ImageHandler) Approve(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	img, err := h.imageService.Approve(c.UserContext(), middleware.GetActor(c), id)
	if err != nil {
		return err
	}
	return ok(c, img)
}

func (h *ImageHandler) Reject(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var req dto.RejectImageRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	img, err := h.imageService.Reject(c.UserContext(), middleware.GetActor(c), id, req.Reason)
	if err != nil {
		return err
	}
	return ok(c, img)
}

func (h *ImageHandler) Delete(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	if err := h.imageService.Delete(c.UserContext(), middleware.GetActor(c), id); err != nil {
		return err
	}
	return ok(c, dto.MessageResponse{Message: "image deleted"})
}

func (h *ImageHandler) File(c *fiber.Ctx) error {
	return h.serve(c, false)
}

func (h *ImageHandler) Thumbnail(c *fiber.Ctx) error {
	return h.serve(c, true)
}

func (h *ImageHandler) serve(c *fiber.Ctx, thumbnail bool) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	f, img, err := h.imageService.OpenFile(c.UserContext(), middleware.GetActor(c), id, thumbnail)
	if err != nil {
		return err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return err
	}

	contentType := img.MimeType
	if thumbnail {
		contentType = "image/jpeg"
	} else {
		c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("inline; filename=%q", img.OriginalFilename))
	}
	c.Set(fiber.HeaderContentType, contentType)
	c.Set("X-Content-Type-Options", "nosniff")
	c.Set(fiber.HeaderCacheControl, "private, max-age=3600")
	// fasthttp closes the file once the body has been written.
	return c.SendStream(f, int(info.Size()))
}

package services

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/postertrack/backend/internal/apperr"
	"github.com/postertrack/backend/internal/config"
	"github.com/postertrack/backend/internal/events"
	"github.com/postertrack/backend/internal/filesecurity"
	"github.com/postertrack/backend/internal/models"
	"github.com/postertrack/backend/internal/rbac"
	"github.com/postertrack/backend/internal/repositories"
	"github.com/postertrack/backend/internal/storage"
	"go.uber.org/zap"
)

// UploadScanner is implemented by *filesecurity.Scanner.
type UploadScanner interface {
	Allowed(mime string) bool
	Scan(path, declaredMIME string) (*filesecurity.Result, error)
}

var _ UploadScanner = (*filesecurity.Scanner)(nil)

type ImageService struct {
	imageRepo      ImageStore
	campaignRepo   CampaignStore
	assignmentRepo AssignmentStore
	scanner        UploadScanner
	files          FileStore
	mirror         storage.Mirror
	audit          *AuditService
	publisher      events.Publisher
	cfg            *config.Config
	log            *zap.Logger
}

func NewImageService(
	imageRepo ImageStore,
	campaignRepo CampaignStore,
	assignmentRepo AssignmentStore,
	scanner UploadScanner,
	files FileStore,
	mirror storage.Mirror,
	audit *AuditService,
	publisher events.Publisher,
	cfg *config.Config,
	log *zap.Logger,
) *ImageService {
	return &ImageService{
		imageRepo:      imageRepo,
		campaignRepo:   campaignRepo,
		assignmentRepo: assignmentRepo,
		scanner:        scanner,
		files:          files,
		mirror:         mirror,
		audit:          audit,
		publisher:      publisher,
		cfg:            cfg,
		log:            log,
	}
}

type UploadInput struct {
	File             io.Reader
	OriginalFilename string
	ContentType      string
	Notes            *string
}

// Upload stores a proof-of-placement photo for a campaign the contractor is assigned to.
// Files that fail the security scan are deleted and no row is created.
func (s *ImageService) Upload(ctx context.Context, actor rbac.Actor, campaignID uuid.UUID, in UploadInput) (*models.Image, error) {
	if !actor.Can(rbac.PermUploadImages) {
		return nil, apperr.Forbidden("only contractors can upload images")
	}
	c, err := s.campaignRepo.GetByID(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	assigned, err := s.assignmentRepo.Exists(ctx, campaignID, actor.UserID)
	if err != nil {
		return nil, err
	}
	if !assigned {
		return nil, apperr.Forbidden("you are not assigned to this campaign")
	}
	if c.Status != models.CampaignStatusInProgress {
		return nil, apperr.Validation("campaign is %s, uploads are only accepted while it is in progress", c.Status)
	}
	if !s.scanner.Allowed(in.ContentType) {
		return nil, apperr.ValidationFields("unsupported file type", map[string]string{"image": "type " + in.ContentType + " is not allowed"})
	}

	tmp, _, err := s.files.SaveTemp(in.File, s.cfg.MaxUploadBytes)
	if errors.Is(err, storage.ErrTooLarge) {
		return nil, apperr.ValidationFields("file is too large", map[string]string{"image": "exceeds the upload size limit"})
	}
	if err != nil {
		return nil, err
	}

	res, err := s.scanner.Scan(tmp, in.ContentType)
	if err != nil {
		s.discardTemp(tmp)
		if errors.Is(err, filesecurity.ErrUnsafeFile) {
			e := entryFor(actor, models.AuditUploadBlocked, models.EntityCampaign, campaignID)
			e.NewValues = map[string]any{"filename": in.OriginalFilename, "threats": threatsOf(res)}
			s.audit.Record(ctx, e)
		}
		return nil, err
	}

	rel, err := s.files.Promote(tmp, campaignID, res.Extension)
	if err != nil {
		s.discardTemp(tmp)
		return nil, err
	}
	stored := []string{rel}

	var thumbPath *string
	if thumb, err := s.files.MakeThumbnail(rel, s.cfg.ThumbnailMaxPx); err != nil {
		s.log.Warn("thumbnail generation failed", zap.String("path", rel), zap.Error(err))
	} else {
		thumbPath = &thumb
		stored = append(stored, thumb)
	}

	img := &models.Image{
		CampaignID:       campaignID,
		UploadedBy:       actor.UserID,
		Filename:         filepath.Base(rel),
		OriginalFilename: cleanFilename(in.OriginalFilename),
		FilePath:         rel,
		ThumbnailPath:    thumbPath,
		FileSize:         res.Size,
		MimeType:         res.DetectedMIME,
		Notes:            in.Notes,
		Status:           models.ImageStatusPending,
	}
	if res.Width > 0 {
		img.Width, img.Height = &res.Width, &res.Height
	}
	if err := s.imageRepo.Create(ctx, img); err != nil {
		if rmErr := s.files.Remove(stored...); rmErr != nil {
			s.log.Warn("failed to remove files of unsaved image", zap.Strings("paths", stored), zap.Error(rmErr))
		}
		return nil, err
	}

	s.mirrorFiles(ctx, img)

	e := entryFor(actor, models.AuditImageUploaded, models.EntityImage, img.ID)
	e.NewValues = map[string]any{"campaign_id": campaignID, "filename": img.OriginalFilename, "size": img.FileSize}
	s.audit.Record(ctx, e)
	s.publish(ctx, c.CompanyID, img, events.EventImageUploaded)
	return img, nil
}

func (s *ImageService) Get(ctx context.Context, actor rbac.Actor, id uuid.UUID) (*models.ImageWithCampaign, error) {
	img, err := s.imageRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	ok, err := s.canSee(ctx, actor, img)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.NotFound("image")
	}
	return img, nil
}

func (s *ImageService) canSee(ctx context.Context, actor rbac.Actor, img *models.ImageWithCampaign) (bool, error) {
	switch actor.Role {
	case rbac.RoleCompanyEmployee:
		return true, nil
	case rbac.RoleClient:
		return actor.CompanyID != nil && *actor.CompanyID == img.CompanyID, nil
	case rbac.RoleContractor:
		return s.assignmentRepo.Exists(ctx, img.CampaignID, actor.UserID)
	}
	return false, nil
}

// List returns images across all campaigns the actor may see.
func (s *ImageService) List(ctx context.Context, actor rbac.Actor, f repositories.ImageFilter) ([]models.ImageWithCampaign, int, error) {
	if f.Status != nil && !models.IsValidImageStatus(*f.Status) {
		return nil, 0, apperr.ValidationFields("invalid filter", map[string]string{"status": "unknown image status"})
	}
	f.Scope = rbac.ScopeFor(actor)
	return s.imageRepo.List(ctx, f)
}

func (s *ImageService) ListByCampaign(ctx context.Context, actor rbac.Actor, campaignID uuid.UUID, f repositories.ImageFilter) ([]models.ImageWithCampaign, int, error) {
	visible, err := s.campaignRepo.IsVisible(ctx, campaignID, rbac.ScopeFor(actor))
	if err != nil {
		return nil, 0, err
	}
	if !visible {
		return nil, 0, apperr.NotFound("campaign")
	}
	f.CampaignID = &campaignID
	return s.List(ctx, actor, f)
}

// ListMyUploads returns the contractor's own images.
func (s *ImageService) ListMyUploads(ctx context.Context, actor rbac.Actor, f repositories.ImageFilter) ([]models.ImageWithCampaign, int, error) {
	if !actor.IsContractor() {
		return nil, 0, apperr.Forbidden("only contractors have uploads")
	}
	f.UploadedBy = &actor.UserID
	return s.List(ctx, actor, f)
}

func (s *ImageService) Approve(ctx context.Context, actor rbac.Actor, id uuid.UUID) (*models.ImageWithCampaign, error) {
	return s.review(ctx, actor, id, models.ImageStatusApproved, "")
}

func (s *ImageService) Reject(ctx context.Context, actor rbac.Actor, id uuid.UUID, reason string) (*models.ImageWithCampaign, error) {
	return s.review(ctx, actor, id, models.ImageStatusRejected, reason)
}

func (s *ImageService) review(ctx context.Context, actor rbac.Actor, id uuid.UUID, decision models.ImageStatus, reason string) (*models.ImageWithCampaign, error) {
	if !actor.Can(rbac.PermReviewImages) {
		return nil, ErrEmployeeOnly
	}
	if !models.IsValidImageDecision(decision) {
		return nil, apperr.Validation("invalid review decision %q", decision)
	}
	var reasonPtr *string
	if decision == models.ImageStatusRejected {
		reason = strings.TrimSpace(reason)
		if reason == "" {
			return nil, apperr.ValidationFields("rejection reason is required", map[string]string{"reason": "is required"})
		}
		reasonPtr = &reason
	}

	img, err := s.imageRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.campaignRepo.GetByID(ctx, img.CampaignID); err != nil {
		return nil, err
	}
	if !models.CanReviewImage(img.Status) {
		return nil, apperr.Conflict("image has already been %s", img.Status)
	}

	reviewedAt, err := s.imageRepo.Review(ctx, id, decision, reasonPtr, actor.UserID)
	if err != nil {
		return nil, err
	}
	old := img.Status
	reviewer := actor.UserID
	img.Status = decision
	img.RejectionReason = reasonPtr
	img.ReviewedBy = &reviewer
	img.ReviewedAt = &reviewedAt

	action := models.AuditImageApproved
	if decision == models.ImageStatusRejected {
		action = models.AuditImageRejected
	}
	e := entryFor(actor, action, models.EntityImage, id)
	e.OldValues = map[string]any{"status": old}
	e.NewValues = map[string]any{"status": decision, "rejection_reason": reasonPtr}
	s.audit.Record(ctx, e)
	s.publish(ctx, img.CompanyID, &img.Image, events.EventImageReviewed)
	return img, nil
}

// Delete removes an image and its files. Contractors may only delete their own pending uploads.
func (s *ImageService) Delete(ctx context.Context, actor rbac.Actor, id uuid.UUID) error {
	img, err := s.Get(ctx, actor, id)
	if err != nil {
		return err
	}
	switch {
	case actor.IsEmployee():
	case actor.IsContractor() && img.UploadedBy == actor.UserID:
		if img.Status != models.ImageStatusPending {
			return apperr.Forbidden("reviewed images can only be deleted by company employees")
		}
	default:
		return apperr.Forbidden("you cannot delete this image")
	}

	if err := s.imageRepo.Delete(ctx, id); err != nil {
		return err
	}
	paths := []string{img.FilePath}
	if img.HasThumbnail() {
		paths = append(paths, *img.ThumbnailPath)
	}
	removeStored(ctx, s.files, s.mirror, s.log, paths...)

	e := entryFor(actor, models.AuditImageDeleted, models.EntityImage, id)
	e.OldValues = map[string]any{"campaign_id": img.CampaignID, "filename": img.OriginalFilename, "status": img.Status}
	s.audit.Record(ctx, e)
	s.publish(ctx, img.CompanyID, &img.Image, events.EventImageDeleted)
	return nil
}

// OpenFile opens the stored original, or its thumbnail, of an image the actor may see.
func (s *ImageService) OpenFile(ctx context.Context, actor rbac.Actor, id uuid.UUID, thumbnail bool) (*os.File, *models.ImageWithCampaign, error) {
	img, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, nil, err
	}
	rel := img.FilePath
	if thumbnail {
		if !img.HasThumbnail() {
			return nil, nil, apperr.NotFound("thumbnail")
		}
		rel = *img.ThumbnailPath
	}
	f, err := s.files.Open(rel)
	if err != nil {
		return nil, nil, err
	}
	return f, img, nil
}

func (s *ImageService) discardTemp(path string) {
	if err := s.files.RemoveTemp(path); err != nil {
		s.log.Warn("failed to remove temp upload", zap.String("path", path), zap.Error(err))
	}
}

func (s *ImageService) mirrorFiles(ctx context.Context, img *models.Image) {
	put := func(rel, contentType string) {
		abs, err := s.files.Abs(rel)
		if err == nil {
			err = s.mirror.Put(ctx, rel, abs, contentType)
		}
		if err != nil {
			s.log.Warn("failed to mirror file", zap.String("path", rel), zap.Error(err))
		}
	}
	put(img.FilePath, img.MimeType)
	if img.HasThumbnail() {
		put(*img.ThumbnailPath, "image/jpeg")
	}
}

func (s *ImageService) publish(ctx context.Context, companyID uuid.UUID, img *models.Image, eventType string) {
	contractors, err := s.assignmentRepo.ContractorIDs(ctx, img.CampaignID)
	if err != nil {
		s.log.Warn("failed to load event recipients", zap.String("campaign_id", img.CampaignID.String()), zap.Error(err))
	}
	err = s.publisher.Publish(ctx, events.StreamImage, events.Event{
		Type:          eventType,
		CompanyID:     &companyID,
		ContractorIDs: contractors,
		Payload: map[string]any{
			"image_id":    img.ID.String(),
			"campaign_id": img.CampaignID.String(),
			"uploaded_by": img.UploadedBy.String(),
			"status":      img.Status,
		},
	})
	if err != nil {
		s.log.Error("failed to publish image event", zap.String("type", eventType), zap.Error(err))
	}
}

func threatsOf(res *filesecurity.Result) []string {
	if res == nil {
		return nil
	}
	return res.Threats
}

const maxFilenameRunes = 255

// cleanFilename keeps the base name of a client-supplied filename for display.
func cleanFilename(name string) string {
	name = strings.ToValidUTF8(name, "")
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		return "upload"
	}
	if utf8.RuneCountInString(name) <= maxFilenameRunes {
		return name
	}
	// Trim the stem on a rune boundary and keep short extensions.
	ext := filepath.Ext(name)
	if utf8.RuneCountInString(ext) > 16 {
		ext = ""
	}
	stem := []rune(strings.TrimSuffix(name, ext))
	return string(stem[:maxFilenameRunes-utf8.RuneCountInString(ext)]) + ext
}

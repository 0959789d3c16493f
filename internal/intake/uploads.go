package intake

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"lusterd/internal/apperr"
	"lusterd/internal/models"
	"lusterd/internal/objectstore"
	"lusterd/internal/store"
	"lusterd/internal/utils"
)

const maxUploadBytes = 50 * 1024 * 1024 // 50 MiB

var allowedContentTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
	"image/heic": true,
}

type UploadHandler struct {
	shoots     *store.ShootStore
	assets     *store.AssetStore
	objects    *objectstore.Client
	presignTTL time.Duration
}

func NewUploadHandler(shoots *store.ShootStore, assets *store.AssetStore, objects *objectstore.Client, presignTTL time.Duration) *UploadHandler {
	return &UploadHandler{shoots: shoots, assets: assets, objects: objects, presignTTL: presignTTL}
}

type presignRequest struct {
	ShootID     uuid.UUID `json:"shoot_id" binding:"required"`
	Filename    string    `json:"filename" binding:"required"`
	ContentType string    `json:"content_type" binding:"required"`
	MaxBytes    int64     `json:"max_bytes"`
}

// PresignUpload handles POST /uploads/presign.
func (h *UploadHandler) PresignUpload(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		writeErr(c, apperr.New(apperr.KindUnauthenticated, "missing caller"))
		return
	}

	var req presignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErr(c, apperr.Wrap(apperr.KindInvalidArgument, "invalid request body", err))
		return
	}
	if !allowedContentTypes[req.ContentType] {
		writeErr(c, apperr.New(apperr.KindInvalidArgument, "unsupported content type"))
		return
	}
	maxBytes := req.MaxBytes
	if maxBytes <= 0 || maxBytes > maxUploadBytes {
		maxBytes = maxUploadBytes
	}

	if _, err := h.shoots.GetOwned(c.Request.Context(), req.ShootID, uid); err != nil {
		writeErr(c, err)
		return
	}

	assetID := uuid.New()
	ext := extensionFor(req.ContentType)
	objectKey := models.OriginalObjectKey(uid, req.ShootID, assetID, ext)

	presigned, err := h.objects.PresignUpload(c.Request.Context(), objectKey, req.ContentType, h.presignTTL)
	if err != nil {
		writeErr(c, apperr.Wrap(apperr.KindInternal, "presign upload", err))
		return
	}

	// maxBytes is informational only: a presigned PUT can't enforce a size
	// ceiling at the URL itself, and ConfirmUpload checks the object the store
	// really received against the fixed maxUploadBytes ceiling, not against
	// this per-request value.
	utils.SendSuccess(c, "upload credentials minted", gin.H{
		"asset_id":   assetID,
		"object_key": objectKey,
		"url":        presigned.URL,
		"max_bytes":  maxBytes,
		"expires_in": int(h.presignTTL.Seconds()),
	})
}

type confirmRequest struct {
	AssetID     uuid.UUID `json:"asset_id" binding:"required"`
	ShootID     uuid.UUID `json:"shoot_id" binding:"required"`
	ObjectKey   string    `json:"object_key" binding:"required"`
	Filename    string    `json:"filename" binding:"required"`
	ContentType string    `json:"content_type" binding:"required"`
}

// ConfirmUpload handles POST /uploads/confirm.
func (h *UploadHandler) ConfirmUpload(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		writeErr(c, apperr.New(apperr.KindUnauthenticated, "missing caller"))
		return
	}

	var req confirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErr(c, apperr.Wrap(apperr.KindInvalidArgument, "invalid request body", err))
		return
	}

	if _, err := h.shoots.GetOwned(c.Request.Context(), req.ShootID, uid); err != nil {
		writeErr(c, err)
		return
	}

	exists, err := h.objects.Exists(c.Request.Context(), req.ObjectKey)
	if err != nil {
		writeErr(c, apperr.Wrap(apperr.KindInternal, "check object existence", err))
		return
	}
	if !exists {
		writeErr(c, apperr.New(apperr.KindFailedPrecondition, "object not found in store"))
		return
	}

	// The size cap is enforced here, against what the store actually
	// received, not a client-declared value: a presigned PUT can't cap the
	// body size a client sends.
	actualSize, err := h.objects.Stat(c.Request.Context(), req.ObjectKey)
	if err != nil {
		writeErr(c, apperr.Wrap(apperr.KindInternal, "stat uploaded object", err))
		return
	}
	if actualSize > maxUploadBytes {
		if delErr := h.objects.Delete(c.Request.Context(), req.ObjectKey); delErr != nil {
			slog.Warn("failed to delete oversized upload", "object_key", req.ObjectKey, "error", delErr)
		}
		writeErr(c, apperr.New(apperr.KindInvalidArgument, "uploaded object exceeds size cap"))
		return
	}

	asset := &models.Asset{
		ID:        req.AssetID,
		ShootID:   req.ShootID,
		UserID:    uid,
		ObjectKey: req.ObjectKey,
		Filename:  req.Filename,
		Size:      actualSize,
		MimeType:  req.ContentType,
	}
	if err := h.assets.Create(c.Request.Context(), asset); err != nil {
		writeErr(c, err)
		return
	}

	utils.SendCreated(c, "asset registered", gin.H{
		"id":         asset.ID,
		"filename":   asset.Filename,
		"size":       asset.Size,
		"object_key": asset.ObjectKey,
	})
}

func extensionFor(contentType string) string {
	switch contentType {
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	case "image/heic":
		return ".heic"
	default:
		return ".jpg"
	}
}

package intake

import (
	"log/slog"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"lusterd/internal/apperr"
	"lusterd/internal/models"
	"lusterd/internal/objectstore"
	"lusterd/internal/store"
	"lusterd/internal/utils"
)

type ShootHandler struct {
	shoots  *store.ShootStore
	assets  *store.AssetStore
	objects *objectstore.Client
}

func NewShootHandler(shoots *store.ShootStore, assets *store.AssetStore, objects *objectstore.Client) *ShootHandler {
	return &ShootHandler{shoots: shoots, assets: assets, objects: objects}
}

type createShootRequest struct {
	Name string `json:"name" binding:"required"`
}

// CreateShoot handles POST /shoots.
func (h *ShootHandler) CreateShoot(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		writeErr(c, apperr.New(apperr.KindUnauthenticated, "missing caller"))
		return
	}

	var req createShootRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErr(c, apperr.Wrap(apperr.KindInvalidArgument, "invalid request body", err))
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" || len(name) > 255 {
		writeErr(c, apperr.New(apperr.KindInvalidArgument, "name must be 1-255 characters"))
		return
	}

	shoot, err := h.shoots.Create(c.Request.Context(), uid, name)
	if err != nil {
		writeErr(c, err)
		return
	}
	utils.SendSuccess(c, "shoot created", gin.H{"id": shoot.ID, "name": shoot.Name})
}

// ListShoots handles GET /shoots, a listing endpoint supplementing the core
// create/delete surface so a client can discover its shoots without
// out-of-band bookkeeping.
func (h *ShootHandler) ListShoots(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		writeErr(c, apperr.New(apperr.KindUnauthenticated, "missing caller"))
		return
	}

	page, limit := utils.GetPagination(c)
	shoots, err := h.shoots.ListByUser(c.Request.Context(), uid, limit, utils.GetOffset(page, limit))
	if err != nil {
		writeErr(c, err)
		return
	}
	utils.SendSuccess(c, "shoots retrieved", gin.H{"shoots": shoots, "page": page, "limit": limit})
}

// ListAssets handles GET /shoots/{id}/assets, a shoot-scoped asset listing
// supplementing the core upload/confirm surface.
func (h *ShootHandler) ListAssets(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		writeErr(c, apperr.New(apperr.KindUnauthenticated, "missing caller"))
		return
	}
	shootID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		writeErr(c, apperr.New(apperr.KindInvalidArgument, "invalid shoot id"))
		return
	}

	if _, err := h.shoots.GetOwned(c.Request.Context(), shootID, uid); err != nil {
		writeErr(c, err)
		return
	}

	assets, err := h.assets.ListByShoot(c.Request.Context(), shootID, uid)
	if err != nil {
		writeErr(c, err)
		return
	}
	utils.SendSuccess(c, "assets retrieved", assets)
}

// DeleteShoot handles DELETE /shoots/{id}. The database cascade (assets,
// jobs, job_events via ON DELETE CASCADE) is authoritative; object store
// cleanup is best-effort and failures are logged, not propagated.
func (h *ShootHandler) DeleteShoot(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		writeErr(c, apperr.New(apperr.KindUnauthenticated, "missing caller"))
		return
	}
	shootID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		writeErr(c, apperr.New(apperr.KindInvalidArgument, "invalid shoot id"))
		return
	}

	if _, err := h.shoots.GetOwned(c.Request.Context(), shootID, uid); err != nil {
		writeErr(c, err)
		return
	}

	deletedAssets, err := h.assets.ListByShoot(c.Request.Context(), shootID, uid)
	if err != nil {
		writeErr(c, err)
		return
	}

	if err := h.shoots.Delete(c.Request.Context(), shootID, uid); err != nil {
		writeErr(c, err)
		return
	}

	prefix := models.ShootPrefix(uid, shootID)
	if err := h.objects.DeletePrefix(c.Request.Context(), prefix); err != nil {
		slog.Error("best-effort shoot object cleanup failed", "shoot_id", shootID, "error", err)
	}

	utils.SendSuccess(c, "shoot deleted", gin.H{"deleted_assets": len(deletedAssets)})
}

package intake

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"lusterd/internal/apperr"
	"lusterd/internal/models"
	"lusterd/internal/objectstore"
	"lusterd/internal/store"
	"lusterd/internal/utils"
)

type JobHandler struct {
	jobs       *store.JobStore
	assets     *store.AssetStore
	credits    *store.CreditStore
	objects    *objectstore.Client
	presignTTL time.Duration
}

func NewJobHandler(jobs *store.JobStore, assets *store.AssetStore, credits *store.CreditStore,
	objects *objectstore.Client, presignTTL time.Duration) *JobHandler {
	return &JobHandler{jobs: jobs, assets: assets, credits: credits, objects: objects, presignTTL: presignTTL}
}

type createJobRequest struct {
	AssetID uuid.UUID `json:"asset_id" binding:"required"`
	Prompt  string    `json:"prompt" binding:"required"`
	Tier    string    `json:"tier" binding:"required"`
}

// CreateJob handles POST /jobs: loads the asset, reserves credits, and
// inserts the job in one transaction (store.JobStore.Create).
func (h *JobHandler) CreateJob(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		writeErr(c, apperr.New(apperr.KindUnauthenticated, "missing caller"))
		return
	}

	var req createJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErr(c, apperr.Wrap(apperr.KindInvalidArgument, "invalid request body", err))
		return
	}
	tier, err := models.ParseTier(req.Tier)
	if err != nil {
		writeErr(c, apperr.Wrap(apperr.KindInvalidArgument, "invalid tier", err))
		return
	}

	asset, err := h.assets.GetOwned(c.Request.Context(), req.AssetID, uid)
	if err != nil {
		writeErr(c, err)
		return
	}

	job := &models.Job{
		ID:          uuid.New(),
		AssetID:     asset.ID,
		UserID:      uid,
		Prompt:      req.Prompt,
		Tier:        tier,
		Status:      models.JobQueued,
		CreditsUsed: tier.Cost(),
		RetryCount:  0,
		MaxRetries:  3,
	}
	if err := h.jobs.Create(c.Request.Context(), h.credits, job); err != nil {
		writeErr(c, err)
		return
	}

	utils.SendSuccess(c, "job created", gin.H{
		"id":           job.ID,
		"status":       job.Status,
		"credits_used": job.CreditsUsed,
	})
}

// GetJob handles GET /jobs/{id}, minting an output URL on demand when the
// job has a recorded output key rather than ever persisting one.
func (h *JobHandler) GetJob(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		writeErr(c, apperr.New(apperr.KindUnauthenticated, "missing caller"))
		return
	}
	jobID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		writeErr(c, apperr.New(apperr.KindInvalidArgument, "invalid job id"))
		return
	}

	job, err := h.jobs.GetOwned(c.Request.Context(), jobID, uid)
	if err != nil {
		writeErr(c, err)
		return
	}

	view := gin.H{
		"id":           job.ID,
		"status":       job.Status,
		"credits_used": job.CreditsUsed,
		"retry_count":  job.RetryCount,
		"error":        job.Error,
		"created_at":   job.CreatedAt,
		"completed_at": job.CompletedAt,
	}
	if job.OutputKey != nil {
		url, err := h.objects.PresignDownload(c.Request.Context(), *job.OutputKey, h.presignTTL)
		if err != nil {
			writeErr(c, apperr.Wrap(apperr.KindInternal, "presign output url", err))
			return
		}
		view["output_url"] = url
	}

	utils.SendSuccess(c, "job retrieved", view)
}

// RefundJob handles POST /jobs/{id}/refund: only callable against a failed
// job, idempotent against repeated calls.
func (h *JobHandler) RefundJob(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		writeErr(c, apperr.New(apperr.KindUnauthenticated, "missing caller"))
		return
	}
	jobID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		writeErr(c, apperr.New(apperr.KindInvalidArgument, "invalid job id"))
		return
	}

	job, err := h.jobs.GetOwned(c.Request.Context(), jobID, uid)
	if err != nil {
		writeErr(c, err)
		return
	}
	if job.Status != models.JobFailed {
		writeErr(c, apperr.New(apperr.KindFailedPrecondition, "job is not in failed state"))
		return
	}
	if job.CreditsUsed == 0 {
		writeErr(c, apperr.New(apperr.KindFailedPrecondition, "job has no credits to refund"))
		return
	}

	if err := h.credits.Refund(c.Request.Context(), job.ID, uid, job.CreditsUsed, "manual_refund"); err != nil {
		writeErr(c, err)
		return
	}

	balance, err := h.credits.Balance(c.Request.Context(), uid)
	if err != nil {
		writeErr(c, err)
		return
	}

	utils.SendSuccess(c, "refund applied", gin.H{
		"success":          true,
		"credits_refunded": job.CreditsUsed,
		"new_balance":      balance,
	})
}

// ListJobs handles GET /jobs, a keyset-paginated listing supplementing the
// core get/refund surface.
func (h *JobHandler) ListJobs(c *gin.Context) {
	uid, ok := userID(c)
	if !ok {
		writeErr(c, apperr.New(apperr.KindUnauthenticated, "missing caller"))
		return
	}

	var before *time.Time
	if v := c.Query("before"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeErr(c, apperr.New(apperr.KindInvalidArgument, "before must be RFC3339"))
			return
		}
		before = &t
	}

	limit := 20
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}

	jobs, err := h.jobs.ListByUser(c.Request.Context(), uid, before, limit)
	if err != nil {
		writeErr(c, err)
		return
	}
	utils.SendSuccess(c, "jobs retrieved", jobs)
}

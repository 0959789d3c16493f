package worker

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/sethvargo/go-retry"
	_ "golang.org/x/image/webp"

	"lusterd/internal/apperr"
	"lusterd/internal/models"
	"lusterd/internal/objectstore"
	"lusterd/internal/provider"
	"lusterd/internal/store"
)

// Pipeline performs the download -> enhance -> upload -> finalize sequence
// for a single claimed job.
type Pipeline struct {
	jobs             *store.JobStore
	assets           *store.AssetStore
	credits          *store.CreditStore
	objects          *objectstore.Client
	enhancer         provider.Enhancer
	providerDeadline time.Duration
}

func NewPipeline(jobs *store.JobStore, assets *store.AssetStore, credits *store.CreditStore,
	objects *objectstore.Client, enhancer provider.Enhancer, providerDeadline time.Duration) *Pipeline {
	return &Pipeline{
		jobs:             jobs,
		assets:           assets,
		credits:          credits,
		objects:          objects,
		enhancer:         enhancer,
		providerDeadline: providerDeadline,
	}
}

// Run executes the full lifecycle for a claimed job: fetch its asset,
// download the original, call the provider with a bounded retry loop,
// strip metadata from the result, upload the output and record success; any
// unretryable failure marks the job failed and refunds its reservation.
func (p *Pipeline) Run(ctx context.Context, job *models.Job) error {
	log := slog.With("job_id", job.ID, "asset_id", job.AssetID, "retry_count", job.RetryCount)

	// ClaimNext reclaims an expired lease by incrementing retry_count before
	// handing the job back, so a job whose budget is already exhausted on
	// this very reclaim can reach here. It must fail outright, before the
	// asset lookup or any provider call, never get a last over-budget shot
	// at succeeding.
	if job.RetryCount >= job.MaxRetries {
		return p.failExhausted(ctx, job, "max retries exceeded on lease reclaim", "")
	}

	asset, err := p.assets.GetOwned(ctx, job.AssetID, job.UserID)
	if err != nil {
		return p.fail(ctx, job, fmt.Sprintf("asset lookup failed: %v", err), "")
	}

	original, err := p.objects.Get(ctx, asset.ObjectKey)
	if err != nil {
		// A transient storage hiccup shouldn't burn a retry budget
		// disproportionate to what a provider call costs, so surface it
		// as a job failure only once retries are genuinely exhausted.
		return p.failOrRetry(ctx, job, fmt.Errorf("download original: %w", err), asset.ObjectKey)
	}

	result, err := p.enhanceWithRetry(ctx, job, original, asset.MimeType)
	if err != nil {
		return p.failOrRetry(ctx, job, err, asset.ObjectKey)
	}

	stripped, err := finalizeOutput(result.ImageData, job.Tier.Quality().Resolution)
	if err != nil {
		log.Warn("output finalize failed, uploading original provider output", "error", err)
		stripped = result.ImageData
	}

	outputKey := models.OutputObjectKey(job.UserID, asset.ShootID, asset.ID, job.ID)
	if err := p.objects.Put(ctx, outputKey, stripped, "image/jpeg"); err != nil {
		return p.failOrRetry(ctx, job, fmt.Errorf("upload output: %w", err), asset.ObjectKey)
	}

	if err := p.jobs.CompleteSuccess(ctx, job.ID, outputKey); err != nil {
		return fmt.Errorf("finalize job success: %w", err)
	}

	p.deleteOriginal(ctx, asset.ObjectKey)
	log.Info("job succeeded", "output_key", outputKey)
	return nil
}

// enhanceWithRetry calls the provider with bounded exponential backoff,
// stopping immediately on a permanent error and exhausting the backoff
// budget on transient ones, all within providerDeadline.
func (p *Pipeline) enhanceWithRetry(ctx context.Context, job *models.Job, imageData []byte, mimeType string) (*provider.Result, error) {
	ctx, cancel := context.WithTimeout(ctx, p.providerDeadline)
	defer cancel()

	backoff := retry.NewExponential(200 * time.Millisecond)
	backoff = retry.WithMaxRetries(3, backoff)

	var result *provider.Result
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		res, err := p.enhancer.Enhance(ctx, provider.Request{
			Prompt:    job.Prompt,
			Quality:   job.Tier.Quality(),
			ImageData: imageData,
			MimeType:  mimeType,
		})
		if err != nil {
			if provider.IsTransient(err) {
				return retry.RetryableError(err)
			}
			return err
		}
		result = res
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// failOrRetry routes a pipeline error to a permanent job failure, to an
// exhausted-budget failure, or lets it sit for ClaimNext/SweepExhausted to
// reclaim if retry budget remains.
func (p *Pipeline) failOrRetry(ctx context.Context, job *models.Job, cause error, originalKey string) error {
	if job.RetryCount >= job.MaxRetries {
		return p.failExhausted(ctx, job, cause.Error(), originalKey)
	}
	if provider.IsPermanent(cause) {
		return p.fail(ctx, job, cause.Error(), originalKey)
	}
	if err := p.jobs.ScheduleRetry(ctx, job.ID); err != nil {
		return fmt.Errorf("schedule retry after %v: %w", cause, err)
	}
	slog.Warn("job will retry", "job_id", job.ID, "error", cause, "retry_count", job.RetryCount)
	return nil
}

// fail finalizes a permanent (non-budget) failure: CompleteFailure refunds
// the reservation and records the standard failed event. originalKey, when
// known, is best-effort deleted to bound storage per the terminal-state
// cleanup contract; it is empty when the job never got far enough to resolve
// its asset.
func (p *Pipeline) fail(ctx context.Context, job *models.Job, reason string, originalKey string) error {
	if err := p.jobs.CompleteFailure(ctx, p.credits, job, reason); err != nil {
		return apperr.Wrap(apperr.KindInternal, "finalize job failure", err)
	}
	p.deleteOriginal(ctx, originalKey)
	slog.Error("job failed", "job_id", job.ID, "reason", reason)
	return nil
}

// failExhausted finalizes a failure caused by the retry budget running out,
// recording the max_retries_exceeded event in addition to the standard
// failed event and refund that CompleteFailure performs.
func (p *Pipeline) failExhausted(ctx context.Context, job *models.Job, reason string, originalKey string) error {
	if err := p.jobs.FailExhausted(ctx, p.credits, job, reason); err != nil {
		return apperr.Wrap(apperr.KindInternal, "finalize exhausted job failure", err)
	}
	p.deleteOriginal(ctx, originalKey)
	slog.Error("job failed, retry budget exhausted", "job_id", job.ID, "reason", reason)
	return nil
}

// deleteOriginal best-effort removes the source object after a terminal
// transition in either direction, to bound storage; failures are logged, not
// propagated, matching the shoot-deletion cleanup contract in internal/intake.
func (p *Pipeline) deleteOriginal(ctx context.Context, key string) {
	if key == "" {
		return
	}
	if err := p.objects.Delete(ctx, key); err != nil {
		slog.Warn("best-effort original delete failed", "object_key", key, "error", err)
	}
}

// finalizeOutput fits the provider's output within the tier's target
// resolution and re-encodes it, which drops EXIF/ICC metadata the provider
// may have carried through as a side effect, matching the teacher's
// resizeAndCrop/StripEXIF pair in internal/imaging/processor.go.
func finalizeOutput(data []byte, resolution string) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode provider output: %w", err)
	}

	if w, h, ok := parseResolution(resolution); ok {
		img = imaging.Fit(img, w, h, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 92}); err != nil {
		return nil, fmt.Errorf("re-encode finalized output: %w", err)
	}
	return buf.Bytes(), nil
}

// parseResolution parses a "WxH" string like "2048x2048" into its dimensions.
func parseResolution(resolution string) (int, int, bool) {
	parts := strings.SplitN(resolution, "x", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}
	w, err1 := strconv.Atoi(parts[0])
	h, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil || w <= 0 || h <= 0 {
		return 0, 0, false
	}
	return w, h, true
}

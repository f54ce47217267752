package service

import (
	"context"
	"strings"

	"threadcart/internal/media"
	"threadcart/internal/repository"

	"go.uber.org/zap"
)

// SweepReport summarizes one reconciliation run. WouldDelete counts orphans
// found in dry-run mode, where Deleted stays zero.
type SweepReport struct {
	Scanned     int
	Referenced  int
	Deleted     int
	WouldDelete int
	Failed      int
}

// Reconciler deletes media store objects that no catalog row references.
// It compensates for the non-atomic create/delete paths in CatalogService:
// a failed catalog write after a successful upload leaves an orphan, and
// this job bounds how long such orphans accumulate.
type Reconciler struct {
	products repository.ProductRepository
	media    media.Store
	folder   string
	dryRun   bool
	logger   *zap.Logger
}

// NewReconciler creates a reconciler over the given stores. With dryRun set
// it only reports what it would delete.
func NewReconciler(products repository.ProductRepository, mediaStore media.Store, folder string, dryRun bool, logger *zap.Logger) *Reconciler {
	return &Reconciler{
		products: products,
		media:    mediaStore,
		folder:   folder,
		dryRun:   dryRun,
		logger:   logger,
	}
}

// Sweep runs one reconciliation pass. The two reads are independent
// snapshots: a product created or deleted mid-sweep may be seen by one read
// and not the other, which is acceptable best-effort semantics. Individual
// destroy failures are logged and skipped, never aborting the pass.
func (r *Reconciler) Sweep(ctx context.Context) (*SweepReport, error) {
	refs, err := r.products.ImageRefs(ctx)
	if err != nil {
		return nil, err
	}

	referenced := make(map[string]struct{}, len(refs))
	for _, ref := range refs {
		referenced[baseURL(ref.URL)] = struct{}{}
		if ref.PublicID != "" {
			referenced[ref.PublicID] = struct{}{}
		}
	}

	assets, err := r.media.List(ctx, r.folder+"/")
	if err != nil {
		return nil, err
	}

	report := &SweepReport{Scanned: len(assets)}

	for _, asset := range assets {
		if _, ok := referenced[baseURL(asset.URL)]; ok {
			report.Referenced++
			continue
		}
		if _, ok := referenced[asset.PublicID]; ok {
			report.Referenced++
			continue
		}

		if r.dryRun {
			r.logger.Info("Orphaned media object (dry run)",
				zap.String("public_id", asset.PublicID),
				zap.String("url", asset.URL),
			)
			report.WouldDelete++
			continue
		}

		if _, err := r.media.Destroy(ctx, asset.PublicID); err != nil {
			report.Failed++
			r.logger.Warn("Failed to delete orphaned media object",
				zap.String("public_id", asset.PublicID),
				zap.Error(err),
			)
			continue
		}

		report.Deleted++
		r.logger.Info("Deleted orphaned media object",
			zap.String("public_id", asset.PublicID),
			zap.String("url", asset.URL),
		)
	}

	return report, nil
}

// baseURL strips any cache-busting or transformation query suffix so URLs
// compare on their stable part.
func baseURL(rawURL string) string {
	if i := strings.IndexByte(rawURL, '?'); i >= 0 {
		return rawURL[:i]
	}
	return rawURL
}

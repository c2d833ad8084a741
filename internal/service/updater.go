package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"

	"github.com/vilaca/org-issue-sync/internal/org"
)

// DocumentStore loads and persists the org document.
type DocumentStore interface {
	Load(path string) (*org.Document, error)
	Save(path string, doc *org.Document) error
}

// Updater runs one sync: fetch, transform, reconcile, save.
type Updater struct {
	fetcher     *Fetcher
	transformer *Transformer
	reconciler  *Reconciler
	store       DocumentStore
	path        string
}

// NewUpdater wires the pipeline stages around the document at path.
func NewUpdater(fetcher *Fetcher, transformer *Transformer, reconciler *Reconciler, store DocumentStore, path string) *Updater {
	return &Updater{
		fetcher:     fetcher,
		transformer: transformer,
		reconciler:  reconciler,
		store:       store,
		path:        path,
	}
}

// Update runs the pipeline once. The document is only opened after a
// successful fetch, and is written back even when nothing changed.
func (u *Updater) Update(ctx context.Context) (ReconcileResult, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "updater.Update")
	defer span.End()

	start := time.Now()
	result, err := u.update(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return ReconcileResult{}, err
	}

	slog.InfoContext(ctx, "sync complete",
		"path", u.path,
		"projects_created", result.ProjectsCreated,
		"promoted", result.Promoted,
		"inserted", result.Inserted,
		"duration", time.Since(start).Round(time.Millisecond))
	return result, nil
}

func (u *Updater) update(ctx context.Context) (ReconcileResult, error) {
	if err := u.fetcher.Fetch(ctx); err != nil {
		return ReconcileResult{}, fmt.Errorf("fetching issues: %w", err)
	}

	data, err := u.transformer.GetData(ctx)
	if err != nil {
		return ReconcileResult{}, fmt.Errorf("transforming issues: %w", err)
	}

	doc, err := u.store.Load(u.path)
	if err != nil {
		return ReconcileResult{}, fmt.Errorf("loading document: %w", err)
	}

	result := u.reconciler.UpdateHeadings(ctx, doc, data)

	if err := u.store.Save(u.path, doc); err != nil {
		return ReconcileResult{}, fmt.Errorf("saving document: %w", err)
	}

	return result, nil
}

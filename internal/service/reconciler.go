package service

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/vilaca/org-issue-sync/internal/logger"
	"github.com/vilaca/org-issue-sync/internal/org"
)

// ReconcileResult counts what a reconciliation changed.
type ReconcileResult struct {
	ProjectsCreated int
	Promoted        int
	Inserted        int
}

func (r ReconcileResult) add(o ReconcileResult) ReconcileResult {
	return ReconcileResult{
		ProjectsCreated: r.ProjectsCreated + o.ProjectsCreated,
		Promoted:        r.Promoted + o.Promoted,
		Inserted:        r.Inserted + o.Inserted,
	}
}

// Changed reports whether the document was modified.
func (r ReconcileResult) Changed() bool {
	return r.ProjectsCreated+r.Promoted+r.Inserted > 0
}

// Reconciler merges transformed headings into an existing document.
// It never deletes headings and never moves a done heading back to open.
type Reconciler struct{}

func NewReconciler() *Reconciler {
	return &Reconciler{}
}

// UpdateHeadings merges each project's headings under the top-level
// heading named after the project.
func (r *Reconciler) UpdateHeadings(ctx context.Context, doc *org.Document, data []ProjectHeadings) ReconcileResult {
	ctx = logger.WithLogFields(ctx, logger.LogFields{Component: "sync.reconciler"})
	ctx, span := otel.Tracer(tracerName).Start(ctx, "reconciler.UpdateHeadings")
	defer span.End()

	var total ReconcileResult
	for _, project := range data {
		result := r.mergeProject(doc, project)
		if result.Changed() {
			slog.InfoContext(logger.WithLogFields(ctx, logger.LogFields{Project: project.Project}),
				"project merged",
				"created", result.ProjectsCreated == 1,
				"promoted", result.Promoted,
				"inserted", result.Inserted)
		}
		total = total.add(result)
	}

	span.SetAttributes(
		attribute.Int("projects_created", total.ProjectsCreated),
		attribute.Int("promoted", total.Promoted),
		attribute.Int("inserted", total.Inserted),
	)
	return total
}

func (r *Reconciler) mergeProject(doc *org.Document, project ProjectHeadings) ReconcileResult {
	var result ReconcileResult

	parent := doc.HeadingByPath(project.Project)
	if parent == nil {
		parent = org.NewHeading(1, "", project.Project)
		doc.Root.AddChild(parent)
		result.ProjectsCreated = 1
	}

	// Work on a snapshot so insertions below never show up as existing
	existing := append([]*org.Heading(nil), parent.Children()...)

	var closedNew []*org.Heading
	for _, h := range project.Headings {
		if doc.IsDone(h) {
			closedNew = append(closedNew, h)
		}
	}

	var openExisting []*org.Heading
	for _, h := range existing {
		if doc.IsOpen(h) {
			openExisting = append(openExisting, h)
		}
	}

	for _, h := range openExisting {
		match := findSameIssue(closedNew, h)
		if match == nil {
			continue
		}
		h.SetTodo(match.Todo())
		if closed, ok := match.Closed(); ok {
			h.SetClosed(closed)
		}
		result.Promoted++
	}

	var inserted []*org.Heading
	for _, h := range project.Headings {
		if current := findSameIssue(existing, h); current != nil {
			adoptIdentity(current, h)
			continue
		}
		if findSameIssue(inserted, h) != nil {
			continue
		}
		parent.AddChild(h)
		inserted = append(inserted, h)
	}
	result.Inserted = len(inserted)

	return result
}

// sameIssue reports whether two headings describe the same issue: by
// stable id when both carry one, otherwise by exact title.
func sameIssue(a, b *org.Heading) bool {
	idA, _ := a.Property(PropertyIssueID)
	idB, _ := b.Property(PropertyIssueID)
	if idA != "" && idB != "" {
		return idA == idB
	}
	return a.Title() == b.Title()
}

func findSameIssue(candidates []*org.Heading, h *org.Heading) *org.Heading {
	for _, c := range candidates {
		if sameIssue(c, h) {
			return c
		}
	}
	return nil
}

// adoptIdentity records the stable id on a heading matched by title, and
// follows upstream renames of a heading matched by id.
func adoptIdentity(current, incoming *org.Heading) {
	id, ok := incoming.Property(PropertyIssueID)
	if !ok || id == "" {
		return
	}
	if existing, _ := current.Property(PropertyIssueID); existing == "" {
		current.SetProperty(PropertyIssueID, id)
		return
	}
	current.SetTitle(incoming.Title())
}

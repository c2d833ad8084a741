package service

import (
	"context"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/vilaca/org-issue-sync/internal/domain"
	"github.com/vilaca/org-issue-sync/internal/org"
)

const fixBugTitle = "[[https://github.com/org/repo-a/issues/1][Fix bug]]"

func parseDocument(text string) *org.Document {
	doc, err := org.Parse(strings.NewReader(text), testTodos())
	Expect(err).NotTo(HaveOccurred())
	return doc
}

func titles(headings []*org.Heading) []string {
	out := make([]string, 0, len(headings))
	for _, h := range headings {
		out = append(out, h.Title())
	}
	return out
}

var _ = Describe("Reconciler", func() {
	var (
		ctx         context.Context
		transformer *Transformer
		reconciler  *Reconciler
		closedAt    time.Time
	)

	BeforeEach(func() {
		ctx = context.Background()
		transformer = NewTransformer(&mockWaiter{}, TransformerConfig{Todos: testTodos(), Location: time.UTC})
		reconciler = NewReconciler()
		closedAt = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	})

	project := func(name string, issues ...domain.Issue) ProjectHeadings {
		headings := make([]*org.Heading, 0, len(issues))
		for _, issue := range issues {
			headings = append(headings, transformer.Transform(issue, ""))
		}
		return ProjectHeadings{Project: name, Headings: headings}
	}

	Context("with an empty document", func() {
		It("creates the project heading with the closed issue below it", func() {
			doc := org.NewDocument(testTodos())
			data := []ProjectHeadings{
				project("repo-a", githubIssue("repo-a", 1, "Fix bug", domain.IssueStateClosed, &closedAt)),
			}

			result := reconciler.UpdateHeadings(ctx, doc, data)

			Expect(result).To(Equal(ReconcileResult{ProjectsCreated: 1, Inserted: 1}))
			Expect(titles(doc.Root.Children())).To(Equal([]string{"repo-a"}))

			children := doc.HeadingByPath("repo-a").Children()
			Expect(children).To(HaveLen(1))
			Expect(children[0].Title()).To(Equal(fixBugTitle))
			Expect(children[0].Todo()).To(Equal("DONE"))
			Expect(children[0].Level()).To(Equal(2))
			closed, ok := children[0].Closed()
			Expect(ok).To(BeTrue())
			Expect(closed).To(HavePrefix("[2024-01-01"))
		})

		It("creates project headings in fetch order", func() {
			doc := org.NewDocument(testTodos())
			data := []ProjectHeadings{
				project("repo-b", githubIssue("repo-b", 1, "b", domain.IssueStateOpen, nil)),
				project("repo-a", githubIssue("repo-a", 1, "a", domain.IssueStateOpen, nil)),
			}

			reconciler.UpdateHeadings(ctx, doc, data)

			Expect(titles(doc.Root.Children())).To(Equal([]string{"repo-b", "repo-a"}))
		})

		It("creates a project heading even when the project has no issues", func() {
			doc := org.NewDocument(testTodos())

			result := reconciler.UpdateHeadings(ctx, doc, []ProjectHeadings{{Project: "repo-a"}})

			Expect(result).To(Equal(ReconcileResult{ProjectsCreated: 1}))
			Expect(doc.HeadingByPath("repo-a")).NotTo(BeNil())
		})
	})

	Context("promotion", func() {
		It("closes an open heading whose issue was closed, without duplicating it", func() {
			doc := parseDocument("* repo-a\n** TODO " + fixBugTitle + "\n")
			data := []ProjectHeadings{
				project("repo-a", githubIssue("repo-a", 1, "Fix bug", domain.IssueStateClosed, &closedAt)),
			}

			result := reconciler.UpdateHeadings(ctx, doc, data)

			Expect(result.Promoted).To(Equal(1))
			Expect(result.Inserted).To(Equal(0))
			children := doc.HeadingByPath("repo-a").Children()
			Expect(children).To(HaveLen(1))
			Expect(children[0].Todo()).To(Equal("DONE"))
			closed, _ := children[0].Closed()
			Expect(closed).To(Equal("[2024-01-01 Mon 00:00]"))
		})

		It("backfills the issue id on a heading matched by title", func() {
			doc := parseDocument("* repo-a\n** TODO " + fixBugTitle + "\n")
			data := []ProjectHeadings{
				project("repo-a", githubIssue("repo-a", 1, "Fix bug", domain.IssueStateOpen, nil)),
			}

			reconciler.UpdateHeadings(ctx, doc, data)

			id, ok := doc.HeadingByPath("repo-a", fixBugTitle).Property(PropertyIssueID)
			Expect(ok).To(BeTrue())
			Expect(id).To(Equal("github:repo-a-1"))
		})

		It("matches by issue id after an upstream rename", func() {
			doc := parseDocument(strings.Join([]string{
				"* repo-a",
				"** TODO [[https://github.com/org/repo-a/issues/1][Old title]]",
				":PROPERTIES:",
				":ISSUE_ID: github:repo-a-1",
				":END:",
				"",
			}, "\n"))
			data := []ProjectHeadings{
				project("repo-a", githubIssue("repo-a", 1, "Fix bug", domain.IssueStateClosed, &closedAt)),
			}

			result := reconciler.UpdateHeadings(ctx, doc, data)

			Expect(result).To(Equal(ReconcileResult{Promoted: 1}))
			children := doc.HeadingByPath("repo-a").Children()
			Expect(children).To(HaveLen(1))
			Expect(children[0].Title()).To(Equal(fixBugTitle))
			Expect(children[0].Todo()).To(Equal("DONE"))
		})

		It("never reopens a done heading", func() {
			doc := parseDocument(strings.Join([]string{
				"* repo-a",
				"** DONE " + fixBugTitle,
				"CLOSED: [2023-06-01 Thu 10:00]",
				"",
			}, "\n"))
			data := []ProjectHeadings{
				project("repo-a", githubIssue("repo-a", 1, "Fix bug", domain.IssueStateOpen, nil)),
			}

			result := reconciler.UpdateHeadings(ctx, doc, data)

			Expect(result.Promoted).To(Equal(0))
			h := doc.HeadingByPath("repo-a", fixBugTitle)
			Expect(h.Todo()).To(Equal("DONE"))
			closed, _ := h.Closed()
			Expect(closed).To(Equal("[2023-06-01 Thu 10:00]"))
		})
	})

	Context("insertion", func() {
		It("adds exactly the previously unknown issues", func() {
			doc := parseDocument(strings.Join([]string{
				"* repo-a",
				"** TODO " + fixBugTitle,
				"** DONE [[https://github.com/org/repo-a/issues/2][Old]]",
				"",
			}, "\n"))
			data := []ProjectHeadings{
				project("repo-a",
					githubIssue("repo-a", 1, "Fix bug", domain.IssueStateOpen, nil),
					githubIssue("repo-a", 2, "Old", domain.IssueStateClosed, &closedAt),
					githubIssue("repo-a", 3, "New one", domain.IssueStateOpen, nil),
					githubIssue("repo-a", 4, "New two", domain.IssueStateClosed, &closedAt),
				),
			}

			result := reconciler.UpdateHeadings(ctx, doc, data)

			Expect(result.Inserted).To(Equal(2))
			Expect(doc.HeadingByPath("repo-a").Children()).To(HaveLen(4))
		})

		It("does not insert the same issue twice from one fetch", func() {
			doc := org.NewDocument(testTodos())
			issue := githubIssue("repo-a", 1, "Fix bug", domain.IssueStateOpen, nil)
			data := []ProjectHeadings{project("repo-a", issue, issue)}

			result := reconciler.UpdateHeadings(ctx, doc, data)

			Expect(result.Inserted).To(Equal(1))
			Expect(doc.HeadingByPath("repo-a").Children()).To(HaveLen(1))
		})

		It("keeps headings the fetch no longer reports", func() {
			text := strings.Join([]string{
				"#+TITLE: Issues",
				"* repo-a",
				"** TODO [[https://github.com/org/repo-a/issues/9][Gone upstream]] :work:",
				"Some notes I wrote.",
				"** Meeting notes",
				"* Personal",
				"** TODO Buy milk",
				"",
			}, "\n")
			doc := parseDocument(text)
			data := []ProjectHeadings{
				project("repo-a", githubIssue("repo-a", 1, "Fix bug", domain.IssueStateOpen, nil)),
			}

			reconciler.UpdateHeadings(ctx, doc, data)

			Expect(doc.String()).To(HavePrefix(strings.Join([]string{
				"#+TITLE: Issues",
				"* repo-a",
				"** TODO [[https://github.com/org/repo-a/issues/9][Gone upstream]] :work:",
				"Some notes I wrote.",
				"** Meeting notes",
				"** TODO " + fixBugTitle,
			}, "\n")))
			Expect(doc.String()).To(HaveSuffix("* Personal\n** TODO Buy milk\n"))
		})
	})
})

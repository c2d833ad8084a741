package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/vilaca/org-issue-sync/internal/api"
	"github.com/vilaca/org-issue-sync/internal/domain"
	"github.com/vilaca/org-issue-sync/internal/org"
)

// recordingStore wraps a FileStore and counts calls. A non-nil saveErr
// fails every Save without touching the file.
type recordingStore struct {
	*org.FileStore
	loads   int
	saves   int
	saveErr error
}

func (s *recordingStore) Load(path string) (*org.Document, error) {
	s.loads++
	return s.FileStore.Load(path)
}

func (s *recordingStore) Save(path string, doc *org.Document) error {
	s.saves++
	if s.saveErr != nil {
		return s.saveErr
	}
	return s.FileStore.Save(path, doc)
}

var _ = Describe("Updater", func() {
	var (
		ctx    context.Context
		path   string
		store  *recordingStore
		source *staticSource
	)

	newUpdater := func(src api.Source) *Updater {
		fetcher := NewFetcher(src, FetcherConfig{PollInterval: time.Second})
		transformer := NewTransformer(fetcher, TransformerConfig{Todos: testTodos(), Location: time.UTC})
		return NewUpdater(fetcher, transformer, NewReconciler(), store, path)
	}

	readDocument := func() string {
		content, err := os.ReadFile(path)
		Expect(err).NotTo(HaveOccurred())
		return string(content)
	}

	writeDocument := func(text string) {
		Expect(os.MkdirAll(filepath.Dir(path), 0755)).To(Succeed())
		Expect(os.WriteFile(path, []byte(text), 0600)).To(Succeed())
	}

	BeforeEach(func() {
		ctx = context.Background()
		path = filepath.Join(GinkgoT().TempDir(), "org", "github.org")
		store = &recordingStore{FileStore: org.NewFileStore(testTodos())}

		closedAt := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		source = &staticSource{
			projects: []domain.Project{
				{ID: "org/repo-a", Name: "repo-a", Platform: domain.PlatformGitHub},
				{ID: "org/repo-b", Name: "repo-b", Platform: domain.PlatformGitHub},
			},
			issues: map[string][]domain.Issue{
				"org/repo-a": {
					githubIssue("repo-a", 1, "Fix bug", domain.IssueStateClosed, &closedAt),
					githubIssue("repo-a", 2, "Add feature", domain.IssueStateOpen, nil),
				},
				"org/repo-b": {
					githubIssue("repo-b", 7, "Write docs", domain.IssueStateOpen, nil),
				},
			},
			languages: map[string][]domain.Language{
				"org/repo-a": {{Name: "Python", Share: 900}, {Name: "Shell", Share: 100}},
			},
		}
	})

	It("writes the fetched issues into a new document", func() {
		result, err := newUpdater(source).Update(ctx)

		Expect(err).NotTo(HaveOccurred())
		Expect(result).To(Equal(ReconcileResult{ProjectsCreated: 2, Inserted: 3}))
		Expect(readDocument()).To(Equal(strings.Join([]string{
			"* repo-a",
			"** DONE " + fixBugTitle,
			"CLOSED: [2024-01-01 Mon 00:00]",
			":PROPERTIES:",
			":agenda-group: 🐍 Python",
			":ISSUE_ID: github:repo-a-1",
			":END:",
			"** TODO [[https://github.com/org/repo-a/issues/2][Add feature]]",
			":PROPERTIES:",
			":agenda-group: 🐍 Python",
			":ISSUE_ID: github:repo-a-2",
			":END:",
			"* repo-b",
			"** TODO [[https://github.com/org/repo-b/issues/7][Write docs]]",
			":PROPERTIES:",
			":ISSUE_ID: github:repo-b-7",
			":END:",
			"",
		}, "\n")))
	})

	It("is idempotent across runs", func() {
		writeDocument(strings.Join([]string{
			"#+TITLE: Issues",
			"* repo-a",
			"** TODO " + fixBugTitle + " :urgent:",
			"Notes about the bug.",
			"* Personal",
			"** TODO Call the plumber",
			"",
		}, "\n"))

		first, err := newUpdater(source).Update(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(first.Promoted).To(Equal(1))
		afterFirst := readDocument()

		second, err := newUpdater(source).Update(ctx)
		Expect(err).NotTo(HaveOccurred())

		Expect(second.Changed()).To(BeFalse())
		Expect(readDocument()).To(Equal(afterFirst))
		Expect(afterFirst).To(ContainSubstring("Notes about the bug.\n"))
		Expect(afterFirst).To(ContainSubstring("* Personal\n** TODO Call the plumber\n"))
		Expect(strings.Count(afterFirst, "issues/1]")).To(Equal(1))
	})

	It("leaves the document untouched when the source fails", func() {
		original := "* repo-a\n** TODO " + fixBugTitle + "\n"
		writeDocument(original)
		sourceErr := errors.New("connection refused")
		failing := &mockSource{
			getProjectsFunc: func(ctx context.Context) ([]domain.Project, error) {
				return nil, sourceErr
			},
		}

		_, err := newUpdater(failing).Update(ctx)

		Expect(err).To(MatchError(sourceErr))
		Expect(store.loads).To(Equal(0))
		Expect(store.saves).To(Equal(0))
		Expect(readDocument()).To(Equal(original))
	})

	It("fails without saving when the document cannot be parsed", func() {
		broken := "* repo-a\n:PROPERTIES:\n:ISSUE_ID: x\n"
		writeDocument(broken)

		_, err := newUpdater(source).Update(ctx)

		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("loading document"))
		Expect(store.saves).To(Equal(0))
		Expect(readDocument()).To(Equal(broken))
	})

	It("returns the error and keeps the old document when saving fails", func() {
		original := "* repo-a\n** TODO " + fixBugTitle + "\n"
		writeDocument(original)
		diskFull := errors.New("no space left on device")
		store.saveErr = diskFull

		_, err := newUpdater(source).Update(ctx)

		Expect(err).To(MatchError(diskFull))
		Expect(err.Error()).To(ContainSubstring("saving document"))
		Expect(store.saves).To(Equal(1))
		Expect(readDocument()).To(Equal(original))
	})

	It("rewrites the document when nothing was fetched", func() {
		writeDocument("* Notes")
		empty := &staticSource{projects: []domain.Project{{ID: "org/repo-a", Name: "repo-a"}}}

		result, err := newUpdater(empty).Update(ctx)

		Expect(err).NotTo(HaveOccurred())
		Expect(result.Changed()).To(BeFalse())
		Expect(store.saves).To(Equal(1))
		Expect(readDocument()).To(Equal("* Notes\n"))
	})
})

package commit_test

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/rancher/commit-on-branch-action/internal/commit"
	gh "github.com/rancher/commit-on-branch-action/internal/github"
)

const (
	headH    = "1111111111111111111111111111111111111111"
	pushedBy = "2222222222222222222222222222222222222222"
)

type fakeGHClient struct {
	heads         map[string]string
	resolveErr    error
	resolveCalls  int
	createInputs  []gh.CreateCommitInput
	createErr     error
	omitURL       bool
	moveOnResolve string // simulates a concurrent push right after resolution
	commitCounter int
}

func (f *fakeGHClient) ResolveBranch(_ context.Context, owner, repo, branch string) (gh.BranchRef, error) {
	f.resolveCalls++
	if f.resolveErr != nil {
		return gh.BranchRef{}, f.resolveErr
	}
	ref := gh.BranchRef{Name: branch, HeadOID: f.heads[branch]}
	if f.moveOnResolve != "" && ref.Exists() {
		f.heads[branch] = f.moveOnResolve
	}
	return ref, nil
}

func (f *fakeGHClient) CreateCommitOnBranch(_ context.Context, input gh.CreateCommitInput) (gh.CreatedCommit, error) {
	f.createInputs = append(f.createInputs, input)
	if f.createErr != nil {
		return gh.CreatedCommit{}, f.createErr
	}

	branch := input.Branch.BranchName
	if f.heads[branch] != input.ExpectedHeadOID {
		return gh.CreatedCommit{}, &gh.ConflictError{
			Branch:          branch,
			ExpectedHeadOID: input.ExpectedHeadOID,
			Message:         fmt.Sprintf("Expected branch to point to %q but it did not. Pull and try again.", input.ExpectedHeadOID),
		}
	}

	f.commitCounter++
	oid := fmt.Sprintf("%040x", f.commitCounter+0xabc)
	f.heads[branch] = oid

	if f.omitURL {
		return gh.CreatedCommit{}, nil
	}
	return gh.CreatedCommit{
		URL: fmt.Sprintf("https://github.com/%s/commit/%s", input.Branch.RepositoryNameWithOwner, oid),
		OID: oid,
	}, nil
}

var _ = Describe("Submitter", func() {
	var (
		ctx     context.Context
		cfg     commit.Config
		client  *fakeGHClient
		workDir string
		req     commit.Request
	)

	writeFile := func(name, contents string) {
		path := filepath.Join(workDir, filepath.FromSlash(name))
		Expect(os.MkdirAll(filepath.Dir(path), 0o755)).To(Succeed())
		Expect(os.WriteFile(path, []byte(contents), 0o644)).To(Succeed())
	}

	BeforeEach(func() {
		ctx = context.Background()
		workDir = GinkgoT().TempDir()
		cfg = commit.Config{WorkDir: workDir}
		client = &fakeGHClient{heads: map[string]string{"main": headH}}
		req = commit.Request{
			Owner:   "rancher",
			Repo:    "repo",
			Branch:  "main",
			Message: "m",
		}
	})

	Describe("validation", func() {
		It("fails without any network call when no files are given", func() {
			req.Changed = []string{"", ""}
			req.Deleted = nil

			_, err := commit.New(cfg, client, nil).Submit(ctx, req)
			Expect(err).To(HaveOccurred())
			Expect(commit.IsValidation(err)).To(BeTrue())
			Expect(err.Error()).To(ContainSubstring("no files specified"))
			Expect(client.resolveCalls).To(BeZero())
			Expect(client.createInputs).To(BeEmpty())
		})

		It("fails without any network call when the message is empty", func() {
			req.Changed = []string{"f1.txt"}
			req.Message = ""

			_, err := commit.New(cfg, client, nil).Submit(ctx, req)
			Expect(commit.IsValidation(err)).To(BeTrue())
			Expect(client.resolveCalls).To(BeZero())
		})

		It("fails without any network call when the branch is empty", func() {
			req.Changed = []string{"f1.txt"}
			req.Branch = " "

			_, err := commit.New(cfg, client, nil).Submit(ctx, req)
			Expect(commit.IsValidation(err)).To(BeTrue())
			Expect(client.resolveCalls).To(BeZero())
		})

		It("requires a github client", func() {
			_, err := commit.New(cfg, nil, nil).Submit(ctx, req)
			Expect(err).To(MatchError(ContainSubstring("github client is required")))
		})
	})

	Describe("Normalize", func() {
		It("returns de-duplicated lists in first occurrence order", func() {
			req.Changed = []string{"a", "a", "", "b"}
			req.Deleted = []string{"c", "c"}

			changed, deleted, err := commit.Normalize(req)
			Expect(err).NotTo(HaveOccurred())
			Expect(changed).To(Equal([]string{"a", "b"}))
			Expect(deleted).To(Equal([]string{"c"}))
		})
	})

	It("fails with a precondition error before reading files when the branch does not exist", func() {
		req.Branch = "missing"
		req.Changed = []string{"not-on-disk.txt"}

		_, err := commit.New(cfg, client, nil).Submit(ctx, req)
		Expect(err).To(HaveOccurred())
		Expect(commit.IsPrecondition(err)).To(BeTrue())
		Expect(commit.IsIO(err)).To(BeFalse())
		Expect(client.resolveCalls).To(Equal(1))
		Expect(client.createInputs).To(BeEmpty())
	})

	It("propagates transport errors from branch resolution", func() {
		client.resolveErr = &gh.TransportError{Op: "resolve branch", Err: errors.New("connection refused")}
		req.Changed = []string{"f1.txt"}
		writeFile("f1.txt", "one")

		_, err := commit.New(cfg, client, nil).Submit(ctx, req)
		Expect(gh.IsTransport(err)).To(BeTrue())
		Expect(commit.IsPrecondition(err)).To(BeFalse())
		Expect(client.createInputs).To(BeEmpty())
	})

	It("aborts without a mutation when a changed file cannot be read", func() {
		writeFile("present.txt", "here")
		req.Changed = []string{"present.txt", "absent.txt"}

		_, err := commit.New(cfg, client, nil).Submit(ctx, req)
		Expect(commit.IsIO(err)).To(BeTrue())
		Expect(err.Error()).To(ContainSubstring("absent.txt"))
		Expect(errors.Is(err, os.ErrNotExist)).To(BeTrue())
		Expect(client.createInputs).To(BeEmpty())
	})

	It("sends a single addition with base64 contents and omits deletions", func() {
		writeFile("f1.txt", "hello world\n")
		req.Changed = []string{"f1.txt"}

		result, err := commit.New(cfg, client, nil).Submit(ctx, req)
		Expect(err).NotTo(HaveOccurred())
		Expect(client.createInputs).To(HaveLen(1))

		input := client.createInputs[0]
		Expect(input.Branch).To(Equal(gh.CommittableBranch{RepositoryNameWithOwner: "rancher/repo", BranchName: "main"}))
		Expect(input.Message).To(Equal(gh.CommitMessage{Headline: "m"}))
		Expect(input.ExpectedHeadOID).To(Equal(headH))
		Expect(input.FileChanges.Additions).To(Equal([]gh.FileAddition{{
			Path:     "f1.txt",
			Contents: base64.StdEncoding.EncodeToString([]byte("hello world\n")),
		}}))
		Expect(input.FileChanges.Deletions).To(BeNil())

		Expect(result.URL).To(MatchRegexp(`^https://github\.com/rancher/repo/commit/[0-9a-f]{40}$`))
		Expect(result.ExpectedHeadOID).To(Equal(headH))
		Expect(result.Additions).To(Equal([]string{"f1.txt"}))
		Expect(result.DryRun).To(BeFalse())
	})

	It("sends only deletions when no files changed", func() {
		req.Deleted = []string{"f2.txt"}

		_, err := commit.New(cfg, client, nil).Submit(ctx, req)
		Expect(err).NotTo(HaveOccurred())

		input := client.createInputs[0]
		Expect(input.FileChanges.Additions).To(BeNil())
		Expect(input.FileChanges.Deletions).To(Equal([]gh.FileDeletion{{Path: "f2.txt"}}))
	})

	It("uses the description as commit body and keeps additions in input order", func() {
		writeFile("b.txt", "b")
		writeFile("dir/a.txt", "a")
		req.Changed = []string{"b.txt", "dir/a.txt", "b.txt"}
		req.Description = "the description of the commit"

		_, err := commit.New(cfg, client, nil).Submit(ctx, req)
		Expect(err).NotTo(HaveOccurred())

		input := client.createInputs[0]
		Expect(input.Message.Body).To(Equal("the description of the commit"))
		Expect(input.FileChanges.Additions).To(HaveLen(2))
		Expect(input.FileChanges.Additions[0].Path).To(Equal("b.txt"))
		Expect(input.FileChanges.Additions[1].Path).To(Equal("dir/a.txt"))
	})

	It("forwards a path listed as both changed and deleted without reconciling it", func() {
		writeFile("both.txt", "x")
		req.Changed = []string{"both.txt"}
		req.Deleted = []string{"both.txt"}

		_, err := commit.New(cfg, client, nil).Submit(ctx, req)
		Expect(err).NotTo(HaveOccurred())

		input := client.createInputs[0]
		Expect(input.FileChanges.Additions).To(HaveLen(1))
		Expect(input.FileChanges.Deletions).To(Equal([]gh.FileDeletion{{Path: "both.txt"}}))
	})

	It("reports an accepted commit without url as success", func() {
		client.omitURL = true
		req.Deleted = []string{"f2.txt"}

		result, err := commit.New(cfg, client, nil).Submit(ctx, req)
		Expect(err).NotTo(HaveOccurred())
		Expect(result.URL).To(BeEmpty())
	})

	It("surfaces a conflict when the branch moves after resolution and does not retry", func() {
		client.moveOnResolve = pushedBy
		req.Deleted = []string{"f2.txt"}

		_, err := commit.New(cfg, client, nil).Submit(ctx, req)
		Expect(err).To(HaveOccurred())
		Expect(gh.IsConflict(err)).To(BeTrue())
		Expect(client.resolveCalls).To(Equal(1))
		Expect(client.createInputs).To(HaveLen(1))
		Expect(client.createInputs[0].ExpectedHeadOID).To(Equal(headH))
	})

	It("rejects a second commit built on a stale head", func() {
		writeFile("f1.txt", "v1")
		req.Changed = []string{"f1.txt"}

		first, err := commit.New(cfg, client, nil).Submit(ctx, req)
		Expect(err).NotTo(HaveOccurred())
		Expect(first.URL).NotTo(BeEmpty())

		stale := commit.BuildInput(req, first.ExpectedHeadOID, nil, []string{"f1.txt"})
		_, err = client.CreateCommitOnBranch(ctx, stale)
		Expect(gh.IsConflict(err)).To(BeTrue())

		second, err := commit.New(cfg, client, nil).Submit(ctx, req)
		Expect(err).NotTo(HaveOccurred())
		Expect(second.ExpectedHeadOID).To(Equal(first.OID))
	})

	It("builds the payload but skips the mutation on dry run", func() {
		writeFile("f1.txt", "v1")
		cfg.DryRun = true
		req.Changed = []string{"f1.txt"}
		req.Deleted = []string{"old.txt"}

		result, err := commit.New(cfg, client, nil).Submit(ctx, req)
		Expect(err).NotTo(HaveOccurred())
		Expect(result.DryRun).To(BeTrue())
		Expect(result.ExpectedHeadOID).To(Equal(headH))
		Expect(result.Additions).To(Equal([]string{"f1.txt"}))
		Expect(result.Deletions).To(Equal([]string{"old.txt"}))
		Expect(client.resolveCalls).To(Equal(1))
		Expect(client.createInputs).To(BeEmpty())
	})

	It("still fails on unreadable files during dry run", func() {
		cfg.DryRun = true
		req.Changed = []string{"absent.txt"}

		_, err := commit.New(cfg, client, nil).Submit(ctx, req)
		Expect(commit.IsIO(err)).To(BeTrue())
	})
})

var _ = Describe("BuildInput", func() {
	It("omits both file lists when nothing is passed", func() {
		input := commit.BuildInput(commit.Request{Owner: "o", Repo: "r", Branch: "b", Message: "m"}, headH, nil, nil)
		Expect(input.FileChanges.Additions).To(BeNil())
		Expect(input.FileChanges.Deletions).To(BeNil())
		Expect(input.Branch.RepositoryNameWithOwner).To(Equal("o/r"))
	})
})

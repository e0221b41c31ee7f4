package acceptance_test

import (
	"os"
	"os/exec"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/gitops-tools/reconcile-pr-action/internal/reconcile"
	"github.com/gitops-tools/reconcile-pr-action/internal/vcs"
)

// These specs drive the reconciliation engine directly against real temporary
// git repositories (a bare "remote" plus a working clone), covering the six
// scenarios of §8. They do not exercise the compiled binary's "run"
// subcommand: that subcommand always hands off to the real GitHub API once a
// branch carries a diff, which this suite has no way to stand up locally.
// cli_test.go exercises the binary itself for the parts of its surface
// (version, validate) that never need network access.
var _ = Describe("branch reconciliation scenarios", func() {
	const (
		defaultBranch = "main"
		targetBranch  = "reconcile/patch"
	)

	var (
		tmpDir    string
		remoteDir string
		workDir   string
		repo      *vcs.Repo
	)

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "reconcile-acceptance-*")
		Expect(err).NotTo(HaveOccurred())

		remoteDir = filepath.Join(tmpDir, "remote.git")
		runGit(tmpDir, "init", "--bare", "-b", defaultBranch, remoteDir)

		workDir = filepath.Join(tmpDir, "work")
		runGit(tmpDir, "clone", remoteDir, workDir)
		writeFile(filepath.Join(workDir, "README.md"), "hello\n")
		runGit(workDir, "add", "README.md")
		runGit(workDir, "commit", "-m", "initial commit")
		runGit(workDir, "push", "origin", defaultBranch)

		repo = vcs.NewRepo(workDir)
		repo.ExtraEnv = []string{
			"GIT_AUTHOR_NAME=Test", "GIT_AUTHOR_EMAIL=test@test.com",
			"GIT_COMMITTER_NAME=Test", "GIT_COMMITTER_EMAIL=test@test.com",
		}
	})

	AfterEach(func() {
		cleanupTestRepo(tmpDir)
	})

	// run mirrors what the orchestrator does in production: reconcile, then
	// push the target branch to the remote whenever it was created or
	// updated, so a subsequent run observes it the way a real second
	// invocation of the action would.
	run := func() reconcile.Result {
		result, err := reconcile.Run(repo, reconcile.Options{
			RepoURL:       remoteDir,
			CommitMessage: "automated changes",
			Base:          defaultBranch,
			Branch:        targetBranch,
		})
		ExpectWithOffset(1, err).NotTo(HaveOccurred())

		if result.Action == reconcile.ActionCreated || result.Action == reconcile.ActionUpdated {
			ExpectWithOffset(1, repo.PushForce(remoteDir, targetBranch)).NotTo(HaveOccurred())
		}
		return result
	}

	It("does nothing when the working tree carries no change over base", func() {
		result := run()
		Expect(result.Action).To(Equal(reconcile.ActionNone))
		Expect(result.Diff).To(BeFalse())
	})

	It("creates the target branch on its first run with a real change", func() {
		writeFile(filepath.Join(workDir, "feature.txt"), "content\n")
		runGit(workDir, "add", "-A")
		runGit(workDir, "commit", "-m", "add feature")

		result := run()
		Expect(result.Action).To(Equal(reconcile.ActionCreated))
		Expect(result.Diff).To(BeTrue())

		runGit(tmpDir, "clone", remoteDir, filepath.Join(tmpDir, "verify"))
		runGit(filepath.Join(tmpDir, "verify"), "checkout", targetBranch)
		Expect(readFile(filepath.Join(tmpDir, "verify", "feature.txt"))).To(Equal("content\n"))
	})

	It("updates an existing target branch on a second run with a new change", func() {
		writeFile(filepath.Join(workDir, "feature.txt"), "v1\n")
		runGit(workDir, "add", "-A")
		runGit(workDir, "commit", "-m", "add feature v1")
		first := run()
		Expect(first.Action).To(Equal(reconcile.ActionCreated))

		runGit(workDir, "checkout", defaultBranch)
		writeFile(filepath.Join(workDir, "feature.txt"), "v2\n")
		runGit(workDir, "add", "-A")
		runGit(workDir, "commit", "-m", "add feature v2")

		second := run()
		Expect(second.Action).To(Equal(reconcile.ActionUpdated))
		Expect(second.Diff).To(BeTrue())
	})

	It("reports no diff when the working tree reverts back to exactly base", func() {
		writeFile(filepath.Join(workDir, "feature.txt"), "content\n")
		runGit(workDir, "add", "-A")
		runGit(workDir, "commit", "-m", "add feature")
		first := run()
		Expect(first.Action).To(Equal(reconcile.ActionCreated))

		// Checking out base with no further edits or commits leaves HEAD
		// identical to base: zero commits ahead, which IsAhead reports as no
		// diff even though the previously published target branch still
		// carries the old feature content.
		runGit(workDir, "checkout", defaultBranch)

		second := run()
		Expect(second.Diff).To(BeFalse())
	})

	It("is idempotent across repeated runs with no intervening change", func() {
		first := run()
		Expect(first.Action).To(Equal(reconcile.ActionNone))

		second := run()
		Expect(second.Action).To(Equal(reconcile.ActionNone))
	})
})

func runGit(dir string, args ...string) {
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(),
		"GIT_AUTHOR_NAME=Test", "GIT_AUTHOR_EMAIL=test@test.com",
		"GIT_COMMITTER_NAME=Test", "GIT_COMMITTER_EMAIL=test@test.com",
	)
	out, err := cmd.CombinedOutput()
	ExpectWithOffset(1, err).NotTo(HaveOccurred(), "git %v: %s", args, string(out))
}

func writeFile(path, content string) {
	dir := filepath.Dir(path)
	err := os.MkdirAll(dir, 0755)
	ExpectWithOffset(1, err).NotTo(HaveOccurred())
	err = os.WriteFile(path, []byte(content), 0644)
	ExpectWithOffset(1, err).NotTo(HaveOccurred())
}

func readFile(path string) string {
	data, err := os.ReadFile(path)
	ExpectWithOffset(1, err).NotTo(HaveOccurred())
	return string(data)
}

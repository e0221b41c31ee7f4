package acceptance_test

import (
	"os"
	"os/exec"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("the compiled binary's non-networked subcommands", func() {
	It("prints a version string", func() {
		cmd := exec.Command(binaryPath, "version")
		output, err := cmd.CombinedOutput()
		Expect(err).NotTo(HaveOccurred(), "output: %s", string(output))
		Expect(string(output)).To(ContainSubstring("reconcile-pr-action"))
	})

	It("rejects an empty environment", func() {
		cmd := exec.Command(binaryPath, "validate")
		cmd.Env = []string{"PATH=" + os.Getenv("PATH")}
		output, err := cmd.CombinedOutput()
		Expect(err).To(HaveOccurred(), "output: %s", string(output))
		Expect(string(output)).To(ContainSubstring("CPR_TOKEN"))
	})

	It("accepts a minimally complete environment", func() {
		cmd := exec.Command(binaryPath, "validate")
		cmd.Env = append(os.Environ(),
			"CPR_TOKEN=test-token",
			"GITHUB_REPOSITORY=acme/widgets",
		)
		output, err := cmd.CombinedOutput()
		Expect(err).NotTo(HaveOccurred(), "output: %s", string(output))
		Expect(string(output)).To(ContainSubstring("Configuration is valid"))
	})
})

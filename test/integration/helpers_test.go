//go:build integration
// +build integration

package integration

import (
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"testing"
	"time"
)

func skipUnlessEnabled(t *testing.T) {
	t.Helper()
	if os.Getenv("VAULTGIT_INTEGRATION_TESTS") != "1" {
		t.Skip("Skipping integration test. Set VAULTGIT_INTEGRATION_TESTS=1 to run")
	}
}

// buildVaultgit compiles the binary once per test run.
func buildVaultgit(t *testing.T) string {
	t.Helper()

	bin, err := filepath.Abs(filepath.Join("..", "..", "build", "vaultgit"))
	if err != nil {
		t.Fatalf("Failed to resolve binary path: %v", err)
	}
	if _, err := os.Stat(bin); os.IsNotExist(err) {
		buildCmd := exec.Command("go", "build", "-o", bin, "../../cmd/vaultgit")
		if out, err := buildCmd.CombinedOutput(); err != nil {
			t.Fatalf("Failed to build vaultgit binary: %v\n%s", err, out)
		}
	}
	return bin
}

func git(t *testing.T, dir string, args ...string) string {
	t.Helper()
	cmd := exec.Command("git", append([]string{"-C", dir}, args...)...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("git %s failed: %v\n%s", strings.Join(args, " "), err, out)
	}
	return strings.TrimSpace(string(out))
}

// setupVault creates a bare remote and a clone of it holding one pushed
// commit. It returns the vault and the remote.
func setupVault(t *testing.T) (vault, remote string) {
	t.Helper()

	remote = filepath.Join(t.TempDir(), "remote.git")
	if out, err := exec.Command("git", "init", "--bare", remote).CombinedOutput(); err != nil {
		t.Fatalf("Failed to create remote: %v\n%s", err, out)
	}

	vault = filepath.Join(t.TempDir(), "vault")
	if out, err := exec.Command("git", "clone", remote, vault).CombinedOutput(); err != nil {
		t.Fatalf("Failed to clone remote: %v\n%s", err, out)
	}

	git(t, vault, "config", "user.email", "test@example.com")
	git(t, vault, "config", "user.name", "Test User")

	if err := os.WriteFile(filepath.Join(vault, "index.md"), []byte("# Index\n"), 0o644); err != nil {
		t.Fatalf("Failed to create initial note: %v", err)
	}
	git(t, vault, "add", "index.md")
	git(t, vault, "commit", "-m", "Initial commit")
	git(t, vault, "push", "-u", "origin", "HEAD")

	return vault, remote
}

func remoteCommits(t *testing.T, remote string) int {
	t.Helper()
	n, err := strconv.Atoi(git(t, remote, "rev-list", "--count", "--all"))
	if err != nil {
		t.Fatalf("Failed to count commits: %v", err)
	}
	return n
}

type vaultgit struct {
	bin    string
	vault  string
	config string
}

func newVaultgit(t *testing.T, vault string) *vaultgit {
	t.Helper()
	return &vaultgit{
		bin:    buildVaultgit(t),
		vault:  vault,
		config: filepath.Join(t.TempDir(), "vault.toml"),
	}
}

func (v *vaultgit) command(args ...string) *exec.Cmd {
	full := append([]string{"-C", v.vault, "--config", v.config, "--non-interactive"}, args...)
	return exec.Command(v.bin, full...)
}

func (v *vaultgit) run(t *testing.T, args ...string) string {
	t.Helper()
	out, err := v.command(args...).CombinedOutput()
	if err != nil {
		t.Fatalf("vaultgit %s failed: %v\n%s", strings.Join(args, " "), err, out)
	}
	return string(out)
}

// startDaemon launches `vaultgit run` and returns a function that stops it
// with SIGINT and waits for it to exit.
func (v *vaultgit) startDaemon(t *testing.T) (stop func()) {
	t.Helper()

	cmd := v.command("run")
	if err := cmd.Start(); err != nil {
		t.Fatalf("Failed to start vaultgit: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	stopped := false
	t.Cleanup(func() {
		if !stopped && cmd.Process != nil {
			_ = cmd.Process.Kill()
		}
	})

	// startup pulls before watching
	time.Sleep(2 * time.Second)

	return func() {
		stopped = true
		if err := cmd.Process.Signal(syscall.SIGINT); err != nil {
			t.Fatalf("Failed to signal vaultgit: %v", err)
		}
		select {
		case err := <-done:
			if err != nil {
				t.Fatalf("vaultgit exited with error: %v", err)
			}
		case <-time.After(30 * time.Second):
			_ = cmd.Process.Kill()
			t.Fatal("vaultgit did not exit after SIGINT")
		}
	}
}

func writeNote(t *testing.T, vault, name, content string) {
	t.Helper()
	path := filepath.Join(vault, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("Failed to create note directory: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write %s: %v", name, err)
	}
}

package cli

import (
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/smokyabdulrahman/salat/internal/method"
)

var (
	buildOnce sync.Map // ldflags -> path
	buildDir  string
)

func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "salat-cli-test")
	if err != nil {
		panic(err)
	}
	buildDir = dir
	code := m.Run()
	os.RemoveAll(dir)
	os.Exit(code)
}

// buildBinary compiles the salat binary once per ldflags value.
func buildBinary(t *testing.T, ldflags string) string {
	t.Helper()
	if p, ok := buildOnce.Load(ldflags); ok {
		return p.(string)
	}

	binPath := filepath.Join(buildDir, "salat")
	if ldflags != "" {
		binPath += "-ldflags"
	}

	args := []string{"build"}
	if ldflags != "" {
		args = append(args, "-ldflags", ldflags)
	}
	args = append(args, "-o", binPath, "../../cmd/salat")

	cmd := exec.Command("go", args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("build failed: %v\n%s", err, out)
	}
	buildOnce.Store(ldflags, binPath)
	return binPath
}

// isolatedEnv points config and cache at temp dirs so the user's files are
// never touched.
func isolatedEnv(t *testing.T) []string {
	t.Helper()
	home := t.TempDir()
	var env []string
	for _, kv := range os.Environ() {
		if strings.HasPrefix(kv, "SALAT_") || strings.HasPrefix(kv, "HOME=") || strings.HasPrefix(kv, "XDG_CONFIG_HOME=") {
			continue
		}
		env = append(env, kv)
	}
	return append(env, "HOME="+home, "XDG_CONFIG_HOME="+filepath.Join(home, ".config"), "NO_COLOR=1")
}

// riyadhArgs fixes the location so no network lookup happens.
var riyadhArgs = []string{"--latitude", "24.7136", "--longitude", "46.6753", "--utc-offset", "3", "--method", "4"}

func run(t *testing.T, env []string, args ...string) (string, error) {
	t.Helper()
	cmd := exec.Command(buildBinary(t, ""), args...)
	cmd.Env = env
	out, err := cmd.Output()
	return string(out), err
}

// TestVersionFlag verifies that --version prints the version string.
func TestVersionFlag(t *testing.T) {
	binPath := buildBinary(t, "-X main.version=v1.2.3-test")

	out, err := exec.Command(binPath, "--version").Output()
	if err != nil {
		t.Fatalf("--version failed: %v", err)
	}

	got := strings.TrimSpace(string(out))
	want := "salat version v1.2.3-test"
	if got != want {
		t.Errorf("--version = %q, want %q", got, want)
	}
}

// TestVersionFlag_Dev verifies the default "dev" version when no ldflags.
func TestVersionFlag_Dev(t *testing.T) {
	out, err := run(t, isolatedEnv(t), "--version")
	if err != nil {
		t.Fatalf("--version failed: %v", err)
	}

	got := strings.TrimSpace(out)
	if !strings.HasPrefix(got, "salat version ") {
		t.Errorf("--version output unexpected: %q", got)
	}
}

// TestMethodsSubcommand verifies that 'methods' prints calculation methods.
func TestMethodsSubcommand(t *testing.T) {
	out, err := run(t, isolatedEnv(t), "methods")
	if err != nil {
		t.Fatalf("methods failed: %v", err)
	}

	for _, m := range method.All() {
		if !strings.Contains(out, m.Name) {
			t.Errorf("methods output missing %q", m.Name)
		}
	}
	if !strings.Contains(out, "Fajr 18.5°, Isha 90 min") {
		t.Errorf("methods output missing Umm Al-Qura angles:\n%s", out)
	}
}

// TestHelpFlag verifies that --help shows the expected subcommands.
func TestHelpFlag(t *testing.T) {
	out, err := run(t, isolatedEnv(t), "--help")
	if err != nil {
		t.Fatalf("--help failed: %v", err)
	}

	expectedSubcommands := []string{
		"next", "list", "week", "month", "query", "config", "methods",
		"search", "watch", "serve", "verify",
	}
	for _, sub := range expectedSubcommands {
		if !strings.Contains(out, sub) {
			t.Errorf("--help output missing subcommand %q", sub)
		}
	}
}

// TestQueryJSON checks that an explicit location needs no network.
func TestQueryJSON(t *testing.T) {
	out, err := run(t, isolatedEnv(t), append(riyadhArgs, "--json", "query", "fajr")...)
	if err != nil {
		t.Fatalf("query failed: %v\n%s", err, out)
	}

	var got queryJSONSingle
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("invalid JSON %q: %v", out, err)
	}
	if got.Prayer != "fajr" || len(got.Time) != 5 {
		t.Errorf("unexpected query output %+v", got)
	}
}

// TestVerifyKnownDate checks a fixed day against the ephemeris.
func TestVerifyKnownDate(t *testing.T) {
	args := append(riyadhArgs, "--json", "verify", "--date", "2026-02-28", "--tolerance", "10m")
	out, err := run(t, isolatedEnv(t), args...)
	if err != nil {
		t.Fatalf("verify failed: %v\n%s", err, out)
	}

	var got verifyJSON
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("invalid JSON %q: %v", out, err)
	}
	if !got.Agrees {
		t.Errorf("expected agreement, got %+v", got)
	}
	want := map[string]string{"fajr": "04:59", "sunrise": "06:17", "maghrib": "17:55", "isha": "19:25"}
	for _, r := range got.Rows {
		if r.Local != want[r.Prayer] {
			t.Errorf("%s local = %s, want %s", r.Prayer, r.Local, want[r.Prayer])
		}
	}
}

// TestListDays checks the list grid and its JSON shape.
func TestListDays(t *testing.T) {
	env := isolatedEnv(t)

	out, err := run(t, env, append(riyadhArgs, "list", "3")...)
	if err != nil {
		t.Fatalf("list failed: %v\n%s", err, out)
	}
	if !strings.Contains(out, "3 Days") || !strings.Contains(out, "Maghrib") {
		t.Errorf("list output unexpected:\n%s", out)
	}

	out, err = run(t, env, append(riyadhArgs, "--json", "week")...)
	if err != nil {
		t.Fatalf("week failed: %v\n%s", err, out)
	}
	var got listJSONOutput
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(got.Days) != 7 {
		t.Errorf("week returned %d days, want 7", len(got.Days))
	}
}

// TestConfigRoundTrip sets, shows and resets a value in an isolated home.
func TestConfigRoundTrip(t *testing.T) {
	env := isolatedEnv(t)

	if out, err := run(t, env, "config", "set", "method", "4"); err != nil {
		t.Fatalf("config set failed: %v\n%s", err, out)
	}
	out, err := run(t, env, "config")
	if err != nil {
		t.Fatalf("config failed: %v", err)
	}
	if !strings.Contains(out, "4 (Umm Al-Qura University, Makkah)") {
		t.Errorf("config output missing method label:\n%s", out)
	}

	if _, err := run(t, env, "config", "set", "method", "6"); err == nil {
		t.Error("expected unknown method 6 to be rejected")
	}

	if _, err := run(t, env, "config", "reset"); err != nil {
		t.Fatalf("config reset failed: %v", err)
	}
	out, _ = run(t, env, "config", "path")
	if _, err := os.Stat(strings.TrimSpace(out)); !os.IsNotExist(err) {
		t.Errorf("config file still present after reset: %v", err)
	}
}

// TestInvalidInput_ExitCode verifies bad input exits non-zero.
func TestInvalidInput_ExitCode(t *testing.T) {
	cases := [][]string{
		append(riyadhArgs, "query", "lunch"),
		append(riyadhArgs, "list", "0"),
		append(riyadhArgs, "--timezone", "Mars/Olympus", "--utc-offset", "3", "--method", "99"),
		{"--latitude", "24.7", "--longitude", "46.6", "--timezone", "Mars/Olympus"},
	}

	for _, args := range cases {
		t.Run(strings.Join(args, "_"), func(t *testing.T) {
			cmd := exec.Command(buildBinary(t, ""), args...)
			cmd.Env = isolatedEnv(t)
			err := cmd.Run()
			exitErr, ok := err.(*exec.ExitError)
			if !ok {
				t.Fatalf("expected ExitError, got %T: %v", err, err)
			}
			if exitErr.ExitCode() == 0 {
				t.Error("expected non-zero exit code")
			}
		})
	}
}

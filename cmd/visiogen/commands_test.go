package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"visiogen/internal/logging"
	"visiogen/internal/staging"
)

const sampleWords = `[
  {"word": "Hello", "start": 0.0, "end": 0.5},
  {"word": "world", "start": 0.5, "end": 1.0}
]`

func TestConfigInitCreatesSample(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	target := filepath.Join(t.TempDir(), "nested", "visiogen.toml")

	out, err := runCLI(t, "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	if !strings.Contains(out, target) {
		t.Fatalf("expected path in output, got %q", out)
	}
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("sample not written: %v", err)
	}

	if _, err := runCLI(t, "config", "init", "--path", target); err == nil {
		t.Fatal("expected error when config exists without --overwrite")
	}
	if _, err := runCLI(t, "config", "init", "--path", target, "--overwrite"); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
}

func TestConfigShowAndValidate(t *testing.T) {
	env := newCLIEnv(t)

	out, err := env.run(t, "config", "show")
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	if !strings.Contains(out, env.configPath) || !strings.Contains(out, "[render]") {
		t.Fatalf("unexpected config show output:\n%s", out)
	}

	out, err = env.run(t, "config", "validate")
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	if !strings.Contains(out, "Configuration valid") {
		t.Fatalf("unexpected validate output %q", out)
	}
}

func TestInvalidConfigIsConfigurationFailure(t *testing.T) {
	env := newCLIEnv(t)
	writeFile(t, env.configPath, "[render]\nexcess_policy = \"sometimes\"\n")

	_, err := env.run(t, "fonts")
	if err == nil {
		t.Fatal("expected config error")
	}
	if exitCode(err) != 2 {
		t.Fatalf("expected exit code 2, got %d (%v)", exitCode(err), err)
	}
}

func TestAlignCommandPrintsTable(t *testing.T) {
	env := newCLIEnv(t)
	words := writeFile(t, filepath.Join(env.base, "words.json"), sampleWords)

	out, err := env.run(t, "align", "--text", "Hello world", "--words", words, "--fps", "10")
	if err != nil {
		t.Fatalf("align: %v", err)
	}
	for _, want := range []string{"Hello", "world", "0-5", "5-10"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
	if strings.Contains(out, "Warning") {
		t.Fatalf("unexpected mismatch warning:\n%s", out)
	}
}

func TestAlignCommandReportsMismatch(t *testing.T) {
	env := newCLIEnv(t)
	words := writeFile(t, filepath.Join(env.base, "words.json"), sampleWords)

	out, err := env.run(t, "align", "--text", "Hello world again", "--words", words, "--fps", "10", "--excess", "suppress")
	if err != nil {
		t.Fatalf("align: %v", err)
	}
	if !strings.Contains(out, "display text has 3 words, timestamps have 2") {
		t.Fatalf("expected mismatch warning:\n%s", out)
	}
	if !strings.Contains(out, "First difference at word 3") {
		t.Fatalf("expected divergence:\n%s", out)
	}
	if !strings.Contains(out, "hidden") {
		t.Fatalf("suppressed word should render hidden:\n%s", out)
	}
}

func TestAlignCommandJSON(t *testing.T) {
	env := newCLIEnv(t)
	words := writeFile(t, filepath.Join(env.base, "words.json"), `{"segments":[{"text":"Hello world","words":[{"word":"Hello","start":0.1,"end":0.4},{"word":"world","start":0.4,"end":0.9}]}]}`)
	textFile := writeFile(t, filepath.Join(env.base, "text.txt"), "Hello world\n")

	out, err := env.run(t, "align", "--text-file", textFile, "--words", words, "--fps", "10", "--json")
	if err != nil {
		t.Fatalf("align: %v", err)
	}
	var payload struct {
		Entries []alignEntry `json:"entries"`
		Policy  string       `json:"excess_policy"`
	}
	if err := json.Unmarshal([]byte(out), &payload); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	want := []alignEntry{{Word: "Hello", StartFrame: 1, EndFrame: 4}, {Word: "world", StartFrame: 4, EndFrame: 9}}
	if len(payload.Entries) != len(want) {
		t.Fatalf("entries = %+v", payload.Entries)
	}
	for i := range want {
		if payload.Entries[i] != want[i] {
			t.Fatalf("entry %d = %+v, want %+v", i, payload.Entries[i], want[i])
		}
	}
	if payload.Policy != "zero" {
		t.Fatalf("policy = %q", payload.Policy)
	}
}

func TestAlignCommandMissingText(t *testing.T) {
	env := newCLIEnv(t)
	words := writeFile(t, filepath.Join(env.base, "words.json"), sampleWords)

	_, err := env.run(t, "align", "--words", words)
	if err == nil {
		t.Fatal("expected error for empty display text")
	}
	if exitCode(err) != 2 {
		t.Fatalf("expected missing input exit code, got %d (%v)", exitCode(err), err)
	}
}

func TestFontsCommandListsBuiltins(t *testing.T) {
	env := newCLIEnv(t)

	out, err := env.run(t, "fonts")
	if err != nil {
		t.Fatalf("fonts: %v", err)
	}
	for _, want := range []string{"go-bold *", "go-regular", "built-in"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestCleanCommandRemovesStaleScratch(t *testing.T) {
	env := newCLIEnv(t)
	stale := filepath.Join(env.scratchDir, "work-old")
	if err := os.MkdirAll(stale, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	old := time.Now().Add(-72 * time.Hour)
	if err := os.Chtimes(stale, old, old); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	out, err := env.run(t, "clean", "--list")
	if err != nil {
		t.Fatalf("clean --list: %v", err)
	}
	if !strings.Contains(out, "work-old") {
		t.Fatalf("expected listing to include stale dir:\n%s", out)
	}

	out, err = env.run(t, "clean")
	if err != nil {
		t.Fatalf("clean: %v", err)
	}
	if !strings.Contains(out, "Removed 1 scratch directories") {
		t.Fatalf("unexpected clean output %q", out)
	}
	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Fatalf("stale dir still present: %v", err)
	}
}

func TestCleanAllKeepsActiveWorkspace(t *testing.T) {
	env := newCLIEnv(t)
	ws, err := staging.Acquire(filepath.Join(env.scratchDir, "work"), filepath.Join(env.scratchDir, "visiogen.lock"), logging.NewNop())
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	defer ws.Release()
	stale := filepath.Join(env.scratchDir, "work-old")
	if err := os.MkdirAll(stale, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	out, err := env.run(t, "clean", "--all")
	if err != nil {
		t.Fatalf("clean --all: %v", err)
	}
	if !strings.Contains(out, "workspace is kept") {
		t.Fatalf("expected in-progress notice, got %q", out)
	}
	if _, err := os.Stat(ws.FramesDir()); err != nil {
		t.Fatalf("active workspace removed: %v", err)
	}
	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Fatalf("stale dir still present: %v", err)
	}
}

func TestCacheCommands(t *testing.T) {
	env := newCLIEnv(t)

	out, err := env.run(t, "cache", "stats")
	if err != nil {
		t.Fatalf("cache stats: %v", err)
	}
	if !strings.Contains(out, "Entries: 0") {
		t.Fatalf("unexpected stats output %q", out)
	}

	out, err = env.run(t, "cache", "clear")
	if err != nil {
		t.Fatalf("cache clear: %v", err)
	}
	if !strings.Contains(out, "Removed 0 cached transcripts") {
		t.Fatalf("unexpected clear output %q", out)
	}
}

func TestFormatDuration(t *testing.T) {
	tests := map[time.Duration]string{
		30 * time.Minute: "30m",
		5 * time.Hour:    "5h",
		50 * time.Hour:   "2d",
	}
	for in, want := range tests {
		if got := formatDuration(in); got != want {
			t.Fatalf("formatDuration(%v) = %q, want %q", in, got, want)
		}
	}
}

func TestHumanBytes(t *testing.T) {
	if got := humanBytes(512); got != "512 B" {
		t.Fatalf("humanBytes(512) = %q", got)
	}
	if got := humanBytes(3 << 20); got != "3.0 MiB" {
		t.Fatalf("humanBytes(3MiB) = %q", got)
	}
}

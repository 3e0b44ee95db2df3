package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// Default-family identifiers with enough segments for extraction.
var corpusIDs = []string{
	"expA_s1_a_b_c_d_1_wordA_c1.wav",
	"expA_s2_e_f_g_h_2_wordB_c2.wav",
	"expA_s3_i_j_k_l_3_wordC_c3.wav",
}

func setupEnv(t *testing.T) (stimuliRoot, sessionRoot string) {
	t.Helper()
	stimuliRoot = t.TempDir()
	sessionRoot = t.TempDir()
	for _, phase := range []string{"practice", "test"} {
		if err := os.MkdirAll(filepath.Join(stimuliRoot, phase), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
	}
	for _, id := range corpusIDs {
		if err := os.WriteFile(filepath.Join(stimuliRoot, "test", id), []byte("wav"), 0o644); err != nil {
			t.Fatalf("write stimulus: %v", err)
		}
	}
	if err := os.WriteFile(filepath.Join(stimuliRoot, "practice", corpusIDs[0]), []byte("wav"), 0o644); err != nil {
		t.Fatalf("write stimulus: %v", err)
	}
	t.Setenv("STIMCORE_STIMULI_DRIVER", "fs")
	t.Setenv("STIMCORE_STIMULI_FS_ROOT", stimuliRoot)
	t.Setenv("STIMCORE_SESSION_DRIVER", "flatfile")
	t.Setenv("STIMCORE_SESSION_FS_ROOT", sessionRoot)
	return stimuliRoot, sessionRoot
}

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := cli(args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestCLIUsage(t *testing.T) {
	code, _, stderr := runCLI(t)
	if code != 2 || !strings.Contains(stderr, "usage:") {
		t.Fatalf("code %d stderr %q", code, stderr)
	}
	code, _, _ = runCLI(t, "help")
	if code != 0 {
		t.Fatalf("help code %d", code)
	}
	code, _, stderr = runCLI(t, "frobnicate")
	if code != 2 || !strings.Contains(stderr, "unknown command") {
		t.Fatalf("code %d stderr %q", code, stderr)
	}
}

func TestRandomizePersistsAndReplaysOrder(t *testing.T) {
	_, sessionRoot := setupEnv(t)

	code, stdout, stderr := runCLI(t, "randomize", "-participant", "p01", "-phase", "test")
	if code != 0 {
		t.Fatalf("code %d stderr %q", code, stderr)
	}
	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	if len(lines) != len(corpusIDs)+1 {
		t.Fatalf("stdout %q", stdout)
	}
	if !strings.HasPrefix(lines[len(lines)-1], "# 3 stimuli") {
		t.Fatalf("summary %q", lines[len(lines)-1])
	}

	orderPath := filepath.Join(sessionRoot, "randomization_lists", "p01", "test_randomized_stimuli.csv")
	if _, err := os.Stat(orderPath); err != nil {
		t.Fatalf("order file: %v", err)
	}

	code, again, stderr := runCLI(t, "randomize", "-participant", "p01", "-phase", "test")
	if code != 0 {
		t.Fatalf("code %d stderr %q", code, stderr)
	}
	if again != stdout {
		t.Fatalf("second run diverged:\n%q\n%q", stdout, again)
	}
}

func TestRandomizeRejectsBadPhase(t *testing.T) {
	setupEnv(t)
	code, _, stderr := runCLI(t, "randomize", "-participant", "p01", "-phase", "warmup")
	if code != 1 || !strings.Contains(stderr, "unknown phase") {
		t.Fatalf("code %d stderr %q", code, stderr)
	}
}

func TestStatusReportsProgress(t *testing.T) {
	setupEnv(t)
	code, stdout, stderr := runCLI(t, "status", "-participant", "p01")
	if code != 0 {
		t.Fatalf("code %d stderr %q", code, stderr)
	}
	if !strings.Contains(stdout, "practice: 0/1 completed") {
		t.Fatalf("stdout %q", stdout)
	}
	if !strings.Contains(stdout, "test: 0/3 completed") {
		t.Fatalf("stdout %q", stdout)
	}
	if !strings.Contains(stdout, "practice done: false") {
		t.Fatalf("stdout %q", stdout)
	}
}

func TestSeedUploadsWavFiles(t *testing.T) {
	stimuliRoot, _ := setupEnv(t)

	src := t.TempDir()
	for _, name := range []string{"expB_s1_a_b_c_d_1_wordX_c1.wav", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(src, name), []byte("data"), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	code, stdout, stderr := runCLI(t, "seed", "-dir", src, "-phase", "practice")
	if code != 0 {
		t.Fatalf("code %d stderr %q", code, stderr)
	}
	if !strings.Contains(stdout, "seeded 1 stimuli under practice/") {
		t.Fatalf("stdout %q", stdout)
	}
	if _, err := os.Stat(filepath.Join(stimuliRoot, "practice", "expB_s1_a_b_c_d_1_wordX_c1.wav")); err != nil {
		t.Fatalf("uploaded file: %v", err)
	}
}

func TestExportWritesArtifacts(t *testing.T) {
	stimuliRoot, _ := setupEnv(t)

	code, _, stderr := runCLI(t, "export", "-participant", "p01")
	if code != 0 {
		t.Fatalf("code %d stderr %q", code, stderr)
	}
	matches, err := filepath.Glob(filepath.Join(stimuliRoot, "exports", "p01", "*"))
	if err != nil || len(matches) != 2 {
		t.Fatalf("artifacts %v err %v", matches, err)
	}
}

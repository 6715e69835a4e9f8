package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"hashtools/internal/record"
	"hashtools/internal/selection"
	"hashtools/internal/testsupport"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "success", want: 0},
		{name: "failure", err: errors.New("disk full"), want: exitFailure},
		{name: "structural", err: record.Structural(errors.New("bad columns")), want: exitStructural},
		{name: "wrapped structural", err: fmt.Errorf("load: %w", record.Structural(errors.New("x"))), want: exitStructural},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := exitCode(tt.err); got != tt.want {
				t.Fatalf("exitCode = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLITestEnv(t, "vault")

	out, _, err := runCLI(t, []string{"config", "validate"}, env.configPath)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")
	requireContains(t, out, env.root("vault"))

	target := filepath.Join(t.TempDir(), "config.toml")
	out, _, err = runCLI(t, []string{"config", "init", "--path", target}, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, ""); err == nil {
		t.Fatal("expected error when config already exists")
	}
}

func TestConfigValidateReportsMissingRoot(t *testing.T) {
	env := setupCLITestEnv(t, "vault")
	if err := os.Remove(env.root("vault")); err != nil {
		t.Fatalf("remove root: %v", err)
	}
	out, _, err := runCLI(t, []string{"config", "validate"}, env.configPath)
	if err == nil {
		t.Fatal("expected failure for missing root")
	}
	requireContains(t, out, "FAIL")
}

func TestGenerateWritesRecordFile(t *testing.T) {
	env := setupCLITestEnv(t)
	root := filepath.Join(env.baseDir, "scan")
	testsupport.WriteContent(t, filepath.Join(root, "a.txt"), "alpha\n", time.Time{})
	testsupport.WriteContent(t, filepath.Join(root, "sub", "b.txt"), "bravo\n", time.Time{})

	output := filepath.Join(env.baseDir, "out.meta")
	_, _, err := runCLI(t, []string{"generate", root, "-t", "2", "-q", "4", "-b", "1", "-o", output, "-s"}, env.configPath)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	recs := testsupport.ReadRecords(t, output)
	if len(recs) != 2 {
		t.Fatalf("records = %d, want 2", len(recs))
	}
	for _, rec := range recs {
		if rec.StorageRoot != root {
			t.Fatalf("storage root = %q, want %q", rec.StorageRoot, root)
		}
		if err := rec.Validate(); err != nil {
			t.Fatalf("invalid record %+v: %v", rec, err)
		}
	}
}

func TestGenerateToStdout(t *testing.T) {
	env := setupCLITestEnv(t)
	root := filepath.Join(env.baseDir, "scan")
	testsupport.WriteContent(t, filepath.Join(root, "a.txt"), "alpha\n", time.Time{})

	out, _, err := runCLI(t, []string{"generate", root, "-o", "-"}, env.configPath)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	lines := nonEmptyLines(out)
	if len(lines) != 1 {
		t.Fatalf("stdout lines = %d, want 1: %q", len(lines), out)
	}
	if _, err := record.Parse(lines[0]); err != nil {
		t.Fatalf("parse stdout record: %v", err)
	}
}

func TestMetaSelectPrefersLowerPriorityRoot(t *testing.T) {
	env := setupCLITestEnv(t, "vault", "photos")
	vault, photos := env.root("vault"), env.root("photos")

	h := testsupport.Hash('a')
	file := filepath.Join(env.baseDir, "all.meta")
	testsupport.WriteRecords(t, file, []record.FileRecord{
		testsupport.Record(h, "2024-01-01T00:00:00", photos, "img.jpg"),
		testsupport.Record(h, "2024-01-01T00:00:00", vault, "img.jpg"),
		testsupport.Record(testsupport.Hash('b'), "2024-01-01T00:00:00", photos, "solo.jpg"),
	})

	out, stderr, err := runCLI(t, []string{"meta", "select", file, "--paths"}, env.configPath)
	if err != nil {
		t.Fatalf("meta select: %v", err)
	}
	lines := nonEmptyLines(out)
	if len(lines) != 2 || lines[0] != vault+"/img.jpg" || lines[1] != photos+"/solo.jpg" {
		t.Fatalf("primaries = %q", lines)
	}
	requireContains(t, stderr, "Groups: 2")
}

func TestMetaSelectUnknownRootIsStructural(t *testing.T) {
	env := setupCLITestEnv(t, "vault")
	file := filepath.Join(env.baseDir, "all.meta")
	testsupport.WriteRecords(t, file, []record.FileRecord{
		testsupport.Record(testsupport.Hash('a'), "2024-01-01T00:00:00", "/elsewhere", "img.jpg"),
	})

	_, _, err := runCLI(t, []string{"meta", "select", file}, env.configPath)
	if err == nil || exitCode(err) != exitStructural {
		t.Fatalf("err = %v, want structural", err)
	}
}

func TestMetaPrunePreviewKeepsFiles(t *testing.T) {
	env := setupCLITestEnv(t, "vault", "photos")
	vault, photos := env.root("vault"), env.root("photos")
	testsupport.WriteFile(t, filepath.Join(vault, "img.jpg"), 100)
	testsupport.WriteFile(t, filepath.Join(photos, "img.jpg"), 100)

	h := testsupport.Hash('a')
	file := filepath.Join(env.baseDir, "all.meta")
	testsupport.WriteRecords(t, file, []record.FileRecord{
		testsupport.Record(h, "2024-01-01T00:00:00", photos, "img.jpg"),
		testsupport.Record(h, "2024-01-01T00:00:00", vault, "img.jpg"),
	})

	out, _, err := runCLI(t, []string{"meta", "prune", file}, env.configPath)
	if err != nil {
		t.Fatalf("meta prune: %v", err)
	}
	requireContains(t, out, "would delete "+photos+"/img.jpg")
	if _, err := os.Stat(filepath.Join(photos, "img.jpg")); err != nil {
		t.Fatalf("preview removed file: %v", err)
	}

	out, _, err = runCLI(t, []string{"meta", "prune", file, "--force"}, env.configPath)
	if err != nil {
		t.Fatalf("meta prune --force: %v", err)
	}
	requireContains(t, out, "deleted "+photos+"/img.jpg")
	if _, err := os.Stat(filepath.Join(photos, "img.jpg")); !os.IsNotExist(err) {
		t.Fatalf("redundant copy still present: %v", err)
	}
	if _, err := os.Stat(filepath.Join(vault, "img.jpg")); err != nil {
		t.Fatalf("primary removed: %v", err)
	}
}

func TestMetaSummaryJSON(t *testing.T) {
	env := setupCLITestEnv(t)
	h := testsupport.Hash('a')
	file := filepath.Join(env.baseDir, "all.meta")
	testsupport.WriteRecords(t, file, []record.FileRecord{
		testsupport.Record(h, "2024-01-01T00:00:00", "/r1", "a.jpg"),
		testsupport.Record(h, "2024-01-02T00:00:00", "/r2", "a.jpg"),
		testsupport.Record(testsupport.Hash('b'), "2024-01-03T00:00:00", "/r1", "b.jpg"),
	})

	out, _, err := runCLI(t, []string{"meta", "summary", file, "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("meta summary: %v", err)
	}
	var summary selection.Summary
	if err := json.Unmarshal([]byte(out), &summary); err != nil {
		t.Fatalf("decode summary: %v\n%s", err, out)
	}
	if summary.Total != 3 || summary.UniqueHashes != 2 || summary.Duplicates != 1 {
		t.Fatalf("summary = %+v", summary)
	}
	if summary.Oldest != "2024-01-01T00:00:00" || summary.Newest != "2024-01-03T00:00:00" {
		t.Fatalf("oldest/newest = %s/%s", summary.Oldest, summary.Newest)
	}

	out, _, err = runCLI(t, []string{"meta", "summary", file}, env.configPath)
	if err != nil {
		t.Fatalf("meta summary table: %v", err)
	}
	requireContains(t, out, "Unique hashes")
}

func TestMetaValidateFailsStructurally(t *testing.T) {
	file := filepath.Join(t.TempDir(), "bad.meta")
	testsupport.WriteContent(t, file, "not\ta\trecord\n", time.Time{})

	out, _, err := runCLI(t, []string{"meta", "validate", file}, "")
	if err == nil || exitCode(err) != exitStructural {
		t.Fatalf("err = %v, want structural", err)
	}
	requireContains(t, out, "line 1")
}

func TestMetaIntersect(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.meta")
	b := filepath.Join(dir, "b.meta")
	testsupport.WriteRecords(t, a, []record.FileRecord{
		testsupport.Record(testsupport.Hash('a'), "2024-01-01T00:00:00", "/r1", "shared.jpg"),
		testsupport.Record(testsupport.Hash('b'), "2024-01-01T00:00:00", "/r1", "only-a.jpg"),
	})
	testsupport.WriteRecords(t, b, []record.FileRecord{
		testsupport.Record(testsupport.Hash('a'), "2024-01-05T00:00:00", "/r2", "copy.jpg"),
	})

	out, _, err := runCLI(t, []string{"meta", "intersect", a, b}, "")
	if err != nil {
		t.Fatalf("meta intersect: %v", err)
	}
	lines := nonEmptyLines(out)
	if len(lines) != 1 {
		t.Fatalf("lines = %q", lines)
	}
	rec, err := record.Parse(lines[0])
	if err != nil || rec.RelativePath != "shared.jpg" {
		t.Fatalf("intersect record = %+v, %v", rec, err)
	}
}

func TestDBImportConsistencyAndDeleteStale(t *testing.T) {
	env := setupCLITestEnv(t, "vault", "photos")
	vault, photos := env.root("vault"), env.root("photos")
	testsupport.WriteFile(t, filepath.Join(vault, "kept.jpg"), 100)

	h := testsupport.Hash('a')
	file := filepath.Join(env.baseDir, "all.meta")
	testsupport.WriteRecords(t, file, []record.FileRecord{
		testsupport.Record(h, "2024-01-01T00:00:00", vault, "kept.jpg"),
		testsupport.Record(h, "2024-01-01T00:00:00", photos, "gone.jpg"),
	})

	out, _, err := runCLI(t, []string{"db", "import", file}, env.configPath)
	if err != nil {
		t.Fatalf("db import: %v", err)
	}
	requireContains(t, out, "store holds 2")

	out, _, err = runCLI(t, []string{"db", "view", "--redundant"}, env.configPath)
	if err != nil {
		t.Fatalf("db view: %v", err)
	}
	requireContains(t, out, photos+"/gone.jpg")
	if strings.Contains(out, vault+"/kept.jpg") {
		t.Fatalf("primary listed as redundant:\n%s", out)
	}

	out, _, err = runCLI(t, []string{"db", "consistency", "--no-progress"}, env.configPath)
	if err != nil {
		t.Fatalf("db consistency: %v", err)
	}
	report := filepath.Join(env.cfg.Paths.ReportDir, "missing_rows_photos.tsv")
	requireContains(t, out, report)

	out, _, err = runCLI(t, []string{"db", "delete-stale", report}, env.configPath)
	if err != nil {
		t.Fatalf("db delete-stale preview: %v", err)
	}
	requireContains(t, out, "Preview only")

	out, _, err = runCLI(t, []string{"db", "delete-stale", report, "--force"}, env.configPath)
	if err != nil {
		t.Fatalf("db delete-stale: %v", err)
	}
	requireContains(t, out, "Deleted 1 of 1")

	out, _, err = runCLI(t, []string{"db", "view"}, env.configPath)
	if err != nil {
		t.Fatalf("db view: %v", err)
	}
	if strings.Contains(out, "gone.jpg") {
		t.Fatalf("stale row still listed:\n%s", out)
	}
	requireContains(t, out, vault+"/kept.jpg")
}

func TestDBConsistencyAbortsOnMissingRoot(t *testing.T) {
	env := setupCLITestEnv(t, "vault")
	vault := env.root("vault")

	file := filepath.Join(env.baseDir, "all.meta")
	testsupport.WriteRecords(t, file, []record.FileRecord{
		testsupport.Record(testsupport.Hash('a'), "2024-01-01T00:00:00", vault, "x.jpg"),
	})
	if _, _, err := runCLI(t, []string{"db", "import", file}, env.configPath); err != nil {
		t.Fatalf("db import: %v", err)
	}
	if err := os.Remove(vault); err != nil {
		t.Fatalf("remove root: %v", err)
	}

	_, _, err := runCLI(t, []string{"db", "consistency", "--no-progress"}, env.configPath)
	if err == nil || exitCode(err) != exitFailure {
		t.Fatalf("err = %v, want non-structural failure", err)
	}
	if _, err := os.Stat(filepath.Join(env.cfg.Paths.ReportDir, "missing_rows_vault.tsv")); !os.IsNotExist(err) {
		t.Fatalf("report created despite abort: %v", err)
	}
}

func TestMetaViewSkipsMalformedLines(t *testing.T) {
	env := setupCLITestEnv(t, "vault", "photos")
	vault, photos := env.root("vault"), env.root("photos")

	h := testsupport.Hash('a')
	file := filepath.Join(env.baseDir, "all.meta")
	testsupport.WriteRecords(t, file, []record.FileRecord{
		testsupport.Record(h, "2024-01-01T00:00:00", photos, "img.jpg"),
		testsupport.Record(h, "2024-01-01T00:00:00", vault, "img.jpg"),
	})
	f, err := os.OpenFile(file, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.WriteString("garbage line\n"); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}

	out, stderr, err := runCLI(t, []string{"meta", "view", file}, env.configPath)
	if err != nil {
		t.Fatalf("meta view: %v", err)
	}
	requireContains(t, out, h)
	requireContains(t, out, vault+"/img.jpg")
	requireContains(t, out, photos+"/img.jpg")
	requireContains(t, stderr, "Skipped 1 malformed lines")
}

func TestGenerateBadRootLeavesNoOutput(t *testing.T) {
	env := setupCLITestEnv(t)
	output := filepath.Join(env.baseDir, "out.meta")

	_, _, err := runCLI(t, []string{"generate", filepath.Join(env.baseDir, "absent"), "-o", output, "-s"}, env.configPath)
	if exitCode(err) != exitStructural {
		t.Fatalf("exit code = %d (%v), want %d", exitCode(err), err, exitStructural)
	}
	if _, statErr := os.Stat(output); !os.IsNotExist(statErr) {
		t.Fatalf("output created for a rejected root: %v", statErr)
	}
}

func TestMetaRemovePreviewThenForce(t *testing.T) {
	env := setupCLITestEnv(t, "vault", "photos")
	vault, photos := env.root("vault"), env.root("photos")
	testsupport.WriteFile(t, filepath.Join(vault, "img.jpg"), 100)
	testsupport.WriteFile(t, filepath.Join(photos, "img.jpg"), 100)

	h := testsupport.Hash('a')
	file := filepath.Join(env.baseDir, "all.meta")
	testsupport.WriteRecords(t, file, []record.FileRecord{
		testsupport.Record(h, "2024-01-01T00:00:00", photos, "img.jpg"),
		testsupport.Record(h, "2024-01-01T00:00:00", vault, "img.jpg"),
	})
	logPath := filepath.Join(env.baseDir, "logs", "remove.log")
	target := filepath.Join(photos, "img.jpg")

	out, stderr, err := runCLI(t, []string{"meta", "remove", "--reference", file, "--log", logPath, target}, env.configPath)
	if err != nil {
		t.Fatalf("meta remove: %v", err)
	}
	requireContains(t, out, "delete\t"+filepath.Join(vault, "img.jpg"))
	requireContains(t, out, "delete\t"+target)
	requireContains(t, stderr, "Preview only")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("preview removed file: %v", err)
	}
	logged, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read removal log: %v", err)
	}
	if got := len(nonEmptyLines(string(logged))); got != 2 {
		t.Fatalf("removal log has %d lines, want 2", got)
	}

	out, _, err = runCLI(t, []string{"meta", "remove", "-r", file, "--log", logPath, "--force", target}, env.configPath)
	if err != nil {
		t.Fatalf("meta remove --force: %v", err)
	}
	requireContains(t, out, "deleted\t"+target)
	for _, path := range []string{target, filepath.Join(vault, "img.jpg")} {
		if _, err := os.Stat(path); !os.IsNotExist(err) {
			t.Fatalf("%s still present: %v", path, err)
		}
	}
}

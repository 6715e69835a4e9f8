package selection_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"hashtools/internal/logging"
	"hashtools/internal/record"
	"hashtools/internal/selection"
	"hashtools/internal/testsupport"
)

func TestSummarizeFilesIsLenient(t *testing.T) {
	dir := t.TempDir()
	h1, h2 := testsupport.Hash('1'), testsupport.Hash('2')
	big := testsupport.Record(h2, "2022-06-01T00:00:00", rootA, "v.mp4")
	big.ContentType = "video/mp4"
	big.Size = 2_500_000_000
	recs := []record.FileRecord{
		testsupport.Record(h1, "2020-01-01T00:00:00", rootA, "a.jpg"),
		testsupport.Record(h1, "2019-01-01T00:00:00", rootB, "a.jpg"),
		big,
	}
	path := filepath.Join(dir, "all.meta")
	testsupport.WriteRecords(t, path, recs)

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.WriteString("only\ttwo\n"); err != nil {
		t.Fatal(err)
	}
	f.Close()

	sum, err := selection.SummarizeFiles([]string{path}, false, logging.NewNop())
	if err != nil {
		t.Fatalf("SummarizeFiles: %v", err)
	}
	if sum.Total != 3 || sum.UniqueHashes != 2 || sum.Duplicates != 1 || sum.Skipped != 1 {
		t.Fatalf("unexpected counts: %+v", sum)
	}
	if sum.Oldest != "2019-01-01T00:00:00" || sum.Newest != "2022-06-01T00:00:00" {
		t.Fatalf("unexpected range: %s..%s", sum.Oldest, sum.Newest)
	}
	if len(sum.Types) != 2 || sum.Types[0] != (selection.TypeCount{Type: "image", Count: 2}) {
		t.Fatalf("unexpected types: %+v", sum.Types)
	}
	if sum.Sizes[0].Label != "< 1KB" || sum.Sizes[0].Count != 2 || sum.Sizes[3].Count != 1 {
		t.Fatalf("unexpected size buckets: %+v", sum.Sizes)
	}

	detail, err := selection.SummarizeFiles([]string{path}, true, logging.NewNop())
	if err != nil {
		t.Fatalf("SummarizeFiles detail: %v", err)
	}
	if detail.Types[1].Type != "video/mp4" {
		t.Fatalf("expected full types in detail mode, got %+v", detail.Types)
	}
}

func TestSplitByType(t *testing.T) {
	dir := t.TempDir()
	png := testsupport.Record(testsupport.Hash('2'), "2020-01-01T00:00:00", rootA, "b.png")
	png.ContentType = "image/png"
	recs := []record.FileRecord{
		testsupport.Record(testsupport.Hash('1'), "2020-01-01T00:00:00", rootA, "a.jpg"),
		png,
		testsupport.Record(testsupport.Hash('3'), "2020-01-01T00:00:00", rootA, "c.jpg"),
	}

	outputs, err := selection.Split(recs, selection.SplitOptions{Dir: dir, Prefix: "photos"})
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if len(outputs) != 2 {
		t.Fatalf("expected two outputs, got %+v", outputs)
	}
	jpeg := testsupport.ReadRecords(t, filepath.Join(dir, "photos_image_jpeg.meta"))
	if len(jpeg) != 2 {
		t.Fatalf("expected 2 jpeg records, got %d", len(jpeg))
	}

	major, err := selection.Split(recs, selection.SplitOptions{Dir: dir, Prefix: "all", MajorType: true})
	if err != nil {
		t.Fatalf("Split major: %v", err)
	}
	if len(major) != 1 || major[0].Count != 3 || filepath.Base(major[0].Path) != "all_image.meta" {
		t.Fatalf("unexpected major split: %+v", major)
	}
}

func TestValidateFilesReportsEveryIssue(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.meta")
	testsupport.WriteRecords(t, good, []record.FileRecord{
		testsupport.Record(testsupport.Hash('a'), "2020-01-01T00:00:00", rootA, "a.jpg"),
	})
	if issues, err := selection.ValidateFiles([]string{good}); err != nil || len(issues) != 0 {
		t.Fatalf("expected clean file, got %v %v", issues, err)
	}

	bad := filepath.Join(dir, "bad.meta")
	lines := []string{
		"xyz\t2020-01-01T00:00:00\t10\timage/jpeg\t/mnt/a\tx.jpg",
		testsupport.Hash('b') + "\t2020-13-01T00:00:00\tten\timage/jpeg\t/mnt/a\ty.jpg",
		testsupport.Hash('c') + "\t2020-01-01T00:00:00\t10\timage/jpeg\tz.jpg",
	}
	if err := os.WriteFile(bad, []byte(strings.Join(lines, "\n")+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	issues, err := selection.ValidateFiles([]string{good, bad})
	if !errors.Is(err, selection.ErrInvalidRecords) || !record.IsStructural(err) {
		t.Fatalf("expected structural ErrInvalidRecords, got %v", err)
	}
	if len(issues) != 4 {
		t.Fatalf("expected 4 issues, got %d: %v", len(issues), issues)
	}
	if issues[0].Line != 1 || issues[3].Line != 3 || !strings.Contains(issues[3].Message, "legacy") {
		t.Fatalf("unexpected issues: %v", issues)
	}
}

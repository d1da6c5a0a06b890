package ingest

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestFromRowsHeaderDetection(t *testing.T) {
	rows := [][]string{
		{"id", "date", "Feedback"},
		{"1", "2024-01-02", "the staff was rude"},
		{"2", "2024-01-03", "great value"},
	}

	records, err := FromRows(rows)
	if err != nil {
		t.Fatalf("FromRows: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].Text != "the staff was rude" || records[0].Index != 0 {
		t.Errorf("first record = %+v", records[0])
	}
	if records[1].Index != 1 {
		t.Errorf("indices must be sequential, got %d", records[1].Index)
	}
}

func TestFromRowsContentDetection(t *testing.T) {
	// No recognizable header: the longest column is the comment column.
	rows := [][]string{
		{"1", "the delivery was late and the box was crushed"},
		{"2", "support never answered my ticket"},
		{"3", "works fine"},
	}

	records, err := FromRows(rows)
	if err != nil {
		t.Fatalf("FromRows: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}
	if records[0].Text != "the delivery was late and the box was crushed" {
		t.Errorf("picked wrong column: %q", records[0].Text)
	}
}

func TestFromRowsDeduplicatesAndSkipsBlanks(t *testing.T) {
	rows := [][]string{
		{"comment"},
		{"same feedback"},
		{"  "},
		{"Same Feedback"},
		{"different feedback"},
	}

	records, err := FromRows(rows)
	if err != nil {
		t.Fatalf("FromRows: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records after dedup, got %d: %+v", len(records), records)
	}
	if records[0].Index != 0 || records[1].Index != 1 {
		t.Errorf("indices must stay gapless after filtering: %+v", records)
	}
}

func TestFromRowsRaggedRows(t *testing.T) {
	rows := [][]string{
		{"id", "comment"},
		{"1", "all good here"},
		{"2"}, // missing comment cell
		{"3", "another note"},
	}

	records, err := FromRows(rows)
	if err != nil {
		t.Fatalf("FromRows: %v", err)
	}
	if len(records) != 2 {
		t.Errorf("expected 2 records, got %d", len(records))
	}
}

func TestFromRowsEmpty(t *testing.T) {
	if _, err := FromRows(nil); !errors.Is(err, ErrNoCommentColumn) {
		t.Errorf("expected ErrNoCommentColumn, got %v", err)
	}
}

func TestLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "comments.csv")
	data := "review,score\n\"too expensive, not worth it\",1\n\"love it\",5\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	records, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].Text != "too expensive, not worth it" {
		t.Errorf("first record = %q", records[0].Text)
	}
}

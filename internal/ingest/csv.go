package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/hannah-abbo/ai-comment-analysis-tool/internal/models"
)

// ErrNoCommentColumn means no column in the file looked like free text.
var ErrNoCommentColumn = errors.New("could not detect a comment column")

// Header names that identify a comment column outright, checked in order.
var commentHeaders = []string{
	"comment", "comments", "feedback", "review", "reviews",
	"text", "response", "responses", "description", "message",
}

// Load reads a CSV file and returns the deduplicated comment records,
// indexed 0-based in original order.
func Load(path string) ([]models.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening csv: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1 // ragged rows are common in exported feedback
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parsing csv: %w", err)
	}
	return FromRows(rows)
}

// FromRows extracts comment records from parsed CSV rows. The first row
// is treated as a header when any cell matches a known comment header
// name; otherwise every row is data and the column is chosen by content.
func FromRows(rows [][]string) ([]models.Record, error) {
	if len(rows) == 0 {
		return nil, ErrNoCommentColumn
	}

	col, hasHeader := detectByHeader(rows[0])
	data := rows
	if hasHeader {
		data = rows[1:]
	} else {
		col = detectByContent(rows)
	}
	if col < 0 {
		return nil, ErrNoCommentColumn
	}

	seen := make(map[string]struct{}, len(data))
	records := make([]models.Record, 0, len(data))
	for _, row := range data {
		if col >= len(row) {
			continue
		}
		text := strings.TrimSpace(row[col])
		if text == "" {
			continue
		}
		key := strings.ToLower(text)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		records = append(records, models.Record{Index: len(records), Text: text})
	}
	return records, nil
}

func detectByHeader(header []string) (int, bool) {
	for _, want := range commentHeaders {
		for i, cell := range header {
			if strings.EqualFold(strings.TrimSpace(cell), want) {
				return i, true
			}
		}
	}
	return -1, false
}

// detectByContent picks the column with the greatest mean cell length,
// which is almost always the free-text one.
func detectByContent(rows [][]string) int {
	width := 0
	for _, row := range rows {
		if len(row) > width {
			width = len(row)
		}
	}
	if width == 0 {
		return -1
	}

	best, bestMean := -1, 0.0
	for col := 0; col < width; col++ {
		total, cells := 0, 0
		for _, row := range rows {
			if col < len(row) {
				total += len(strings.TrimSpace(row[col]))
				cells++
			}
		}
		if cells == 0 {
			continue
		}
		mean := float64(total) / float64(cells)
		if mean > bestMean {
			best, bestMean = col, mean
		}
	}
	if bestMean == 0 {
		return -1
	}
	return best
}

package corpus

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/normanking/pheoni/internal/meetings"
)

// JSONSource loads a keyed-pair dataset: a JSON array of
// {"question": ..., "answer": ...} objects.
type JSONSource struct {
	Path string
}

// Name identifies the source in logs.
func (s *JSONSource) Name() string { return "json:" + s.Path }

// Load reads and decodes the whole file.
func (s *JSONSource) Load(_ context.Context) ([]Entry, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.Path, err)
	}
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("decode %s: %w", s.Path, err)
	}
	return entries, nil
}

// CSVSource loads a tabular dataset with a question,answer header row.
// Column order follows the header, so extra columns are tolerated.
type CSVSource struct {
	Path string
}

// Name identifies the source in logs.
func (s *CSVSource) Name() string { return "csv:" + s.Path }

// Load reads the whole table.
func (s *CSVSource) Load(_ context.Context) ([]Entry, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", s.Path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1 // ragged rows happen in hand-edited dialog files

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read header of %s: %w", s.Path, err)
	}
	qCol, aCol := -1, -1
	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "question":
			qCol = i
		case "answer":
			aCol = i
		}
	}
	if qCol < 0 || aCol < 0 {
		return nil, fmt.Errorf("%s: header must contain question and answer columns", s.Path)
	}

	var entries []Entry
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", s.Path, err)
		}
		if qCol >= len(row) || aCol >= len(row) {
			continue
		}
		entries = append(entries, Entry{
			Question: strings.TrimSpace(row[qCol]),
			Answer:   strings.TrimSpace(row[aCol]),
		})
	}
	return entries, nil
}

// MeetingSource projects live meeting records into question/answer pairs so
// that corpus lookups can answer questions about scheduled meetings. The
// store keeps ownership of the records; this is a read-only view.
type MeetingSource struct {
	Store *meetings.Store
}

// Name identifies the source in logs.
func (s *MeetingSource) Name() string { return "meetings" }

// Load reads the current records and projects each into a probe/answer pair.
func (s *MeetingSource) Load(ctx context.Context) ([]Entry, error) {
	all, err := s.Store.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list meetings: %w", err)
	}

	entries := make([]Entry, 0, len(all))
	for _, m := range all {
		entries = append(entries, Entry{
			Question: fmt.Sprintf("meeting with %s", strings.ToLower(m.Counterpart)),
			Answer:   fmt.Sprintf("You have a meeting on %s at %s with %s.", m.Date, m.Time, m.Counterpart),
		})
	}
	return entries, nil
}

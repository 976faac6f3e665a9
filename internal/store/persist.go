package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/starford/notewiki/internal/apperr"
	"github.com/starford/notewiki/internal/models"
	"github.com/starford/notewiki/internal/storage"
)

// Records returns the persisted projection of every note in id order.
// Kids are omitted; they are rebuilt from tags on load.
func (s *Store) Records() []models.Record {
	ids := s.IDs()
	out := make([]models.Record, 0, len(ids))
	for _, id := range ids {
		n := s.notes[id]
		out = append(out, models.Record{
			Title:   n.Title,
			Content: n.Content,
			Tags:    s.titlesOf(n.Tags),
		})
	}
	return out
}

// Encode writes the store as a pretty-printed JSON array.
func (s *Store) Encode(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s.Records()); err != nil {
		return fmt.Errorf("store: encode: %w: %v", apperr.ErrIO, err)
	}
	return nil
}

// Save rewrites the file at path with the current graph.
func (s *Store) Save(path string) error {
	f, err := storage.NewFile(path)
	if err != nil {
		return fmt.Errorf("store: save: %w", err)
	}
	var buf bytes.Buffer
	if err := s.Encode(&buf); err != nil {
		return err
	}
	if err := f.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("store: save: %w", err)
	}
	s.logger.Info("store: saved", slog.String("path", f.Path()), slog.Int("notes", s.Len()))
	return nil
}

// Load ingests the JSON array stored at path into s.
func (s *Store) Load(path string) error {
	f, err := storage.NewFile(path)
	if err != nil {
		return fmt.Errorf("store: load: %w", err)
	}
	data, err := f.Read()
	if err != nil {
		return fmt.Errorf("store: load: %w", err)
	}
	return s.Decode(bytes.NewReader(data))
}

// Decode ingests a JSON array of records read from r. Records are applied
// as they are parsed, so on a parse error the records before it stay in
// the store. Records without a title are skipped.
func (s *Store) Decode(r io.Reader) error {
	dec := json.NewDecoder(r)
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("store: decode: %w: %v", apperr.ErrParse, err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '[' {
		return fmt.Errorf("store: decode: %w: expected array, got %v", apperr.ErrParse, tok)
	}
	for i := 0; dec.More(); i++ {
		var rec models.Record
		if err := dec.Decode(&rec); err != nil {
			return fmt.Errorf("store: decode element %d: %w: %v", i, apperr.ErrParse, err)
		}
		if err := rec.Validate(); err != nil {
			s.logger.Warn("store: skipping invalid record",
				slog.Int("index", i),
				slog.String("error", err.Error()))
			continue
		}
		s.ingest(rec)
	}
	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("store: decode: %w: %v", apperr.ErrParse, err)
	}
	return nil
}

// ingest fills in rec's note. A title seen earlier in the same file is
// overwritten, tag edges included.
func (s *Store) ingest(rec models.Record) {
	id := s.intern(rec.Title)
	n := s.notes[id]
	tags := s.internAll(rec.Tags)
	n.Content = rec.Content
	s.setEdges(n, tags, slices.Clone(n.Kids))
}

// Package export writes scraped postings to jobs.json and per-posting Markdown files.
package export

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"go-linkedin-scraper/internal/scraper"

	"github.com/gofrs/flock"
)

const JSONFile = "jobs.json"

// MergeStats describes what one Merge changed.
type MergeStats struct {
	Added   int
	Updated int
	Total   int
}

// JSONStore is the aggregate jobs.json array, merged by id.
// Records already in the file are kept verbatim unless a new record with the same id replaces them.
type JSONStore struct {
	path string
	log  *slog.Logger
	now  func() time.Time

	//mu serialises merges in this process; the file lock covers other processes
	mu sync.Mutex
}

func NewJSONStore(path string, log *slog.Logger) *JSONStore {
	if log == nil {
		log = slog.Default()
	}
	return &JSONStore{path: path, log: log, now: time.Now}
}

func (s *JSONStore) Path() string {
	return s.path
}

// Merge replaces records whose id is already stored and appends new ones in input order.
// Merging the same records twice leaves the file byte-identical.
func (s *JSONStore) Merge(jobs []*scraper.JobPosting) (MergeStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return MergeStats{}, fmt.Errorf("create output dir: %w", err)
	}

	lock := flock.New(s.path + ".lock")
	if err := lock.Lock(); err != nil {
		return MergeStats{}, fmt.Errorf("lock %s: %w", s.path, err)
	}
	defer lock.Unlock()

	records, err := s.load()
	if err != nil {
		return MergeStats{}, err
	}

	index := make(map[string]int, len(records))
	for i, rec := range records {
		if id := recordID(rec); id != "" {
			index[id] = i
		}
	}

	var stats MergeStats
	for _, job := range jobs {
		if job == nil {
			continue
		}
		raw, err := marshal(job)
		if err != nil {
			return MergeStats{}, fmt.Errorf("encode job %s: %w", job.ID, err)
		}
		if i, ok := index[job.ID]; ok {
			records[i] = raw
			stats.Updated++
			continue
		}
		index[job.ID] = len(records)
		records = append(records, raw)
		stats.Added++
	}
	stats.Total = len(records)

	data, err := encode(records)
	if err != nil {
		return MergeStats{}, err
	}
	if err := writeFileAtomic(s.path, data, 0644); err != nil {
		return MergeStats{}, fmt.Errorf("write %s: %w", s.path, err)
	}

	s.log.Info("💾 Saved jobs", slog.String("file", s.path),
		slog.Int("added", stats.Added), slog.Int("updated", stats.Updated), slog.Int("total", stats.Total))
	return stats, nil
}

// Load returns the postings currently stored.
func (s *JSONStore) Load() ([]scraper.JobPosting, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var jobs []scraper.JobPosting
	if err := json.Unmarshal(data, &jobs); err != nil {
		return nil, fmt.Errorf("parse %s: %w", s.path, err)
	}
	return jobs, nil
}

// load reads the stored array. A single object is accepted as a one-element array;
// anything unreadable is moved aside so the run can still save its results.
func (s *JSONStore) load() ([]json.RawMessage, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}

	var records []json.RawMessage
	if err := json.Unmarshal(data, &records); err == nil {
		return records, nil
	}
	var single map[string]json.RawMessage
	if err := json.Unmarshal(data, &single); err == nil {
		return []json.RawMessage{json.RawMessage(bytes.TrimSpace(data))}, nil
	}

	aside := s.path + ".corrupt-" + strconv.FormatInt(s.now().Unix(), 10)
	if err := os.Rename(s.path, aside); err != nil {
		return nil, fmt.Errorf("move corrupt %s aside: %w", s.path, err)
	}
	s.log.Warn("⚠️ jobs file was not valid JSON, moved aside", slog.String("file", s.path), slog.String("backup", aside))
	return nil, nil
}

func recordID(raw json.RawMessage) string {
	var rec struct {
		ID json.RawMessage `json:"id"`
	}
	if err := json.Unmarshal(raw, &rec); err != nil || len(rec.ID) == 0 {
		return ""
	}
	var id string
	if err := json.Unmarshal(rec.ID, &id); err == nil {
		return id
	}
	//numeric ids written by other tools
	return string(rec.ID)
}

// marshal keeps <, > and & readable; descriptionHtml is full of them.
func marshal(v any) (json.RawMessage, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func encode(records []json.RawMessage) ([]byte, error) {
	if records == nil {
		records = []json.RawMessage{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(records); err != nil {
		return nil, fmt.Errorf("encode jobs: %w", err)
	}
	return buf.Bytes(), nil
}

func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(perm); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

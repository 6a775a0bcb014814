package content

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const filePrefix = "content-"

// ErrNoContent is returned when the content directory holds no batches.
var ErrNoContent = errors.New("no content found")

// Store reads and writes content batches as JSON files in Dir.
type Store struct {
	Dir   string
	Clock func() time.Time
}

// NewStore returns a store rooted at dir.
func NewStore(dir string) *Store {
	return &Store{Dir: strings.TrimSpace(dir)}
}

// Save stamps and writes batch, returning the file path.
func (s *Store) Save(batch *Batch) (string, error) {
	if s == nil || s.Dir == "" {
		return "", errors.New("content directory is required")
	}
	if batch == nil || len(batch.Items) == 0 {
		return "", errors.New("batch has no items")
	}

	batch.Stamp(s.now())

	// #nosec G301 -- content directories use 0755 like other data directories
	if err := os.MkdirAll(s.Dir, 0755); err != nil {
		return "", fmt.Errorf("create content directory: %w", err)
	}

	payload, err := json.MarshalIndent(batch, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode batch: %w", err)
	}

	name := fmt.Sprintf("%s%d.json", filePrefix, batch.GeneratedAt.UnixNano())
	path := filepath.Join(s.Dir, name)
	// #nosec G306 -- generated content is not sensitive
	if err := os.WriteFile(path, payload, 0644); err != nil {
		return "", fmt.Errorf("write batch: %w", err)
	}
	return path, nil
}

// Files lists batch files in write order.
func (s *Store) Files() ([]string, error) {
	if s == nil || s.Dir == "" {
		return nil, errors.New("content directory is required")
	}
	matches, err := filepath.Glob(filepath.Join(s.Dir, filePrefix+"*.json"))
	if err != nil {
		return nil, fmt.Errorf("scan content: %w", err)
	}
	sort.Slice(matches, func(i, j int) bool {
		return batchSeq(matches[i]) < batchSeq(matches[j])
	})
	return matches, nil
}

// LoadAll returns every item across all batches, oldest batch first.
func (s *Store) LoadAll() ([]Item, error) {
	files, err := s.Files()
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, ErrNoContent
	}

	var items []Item
	for _, path := range files {
		batch, err := ReadBatch(path)
		if err != nil {
			return nil, err
		}
		items = append(items, batch.Items...)
	}
	return items, nil
}

// LoadLatest returns the most recently written batch.
func (s *Store) LoadLatest() (*Batch, error) {
	files, err := s.Files()
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, ErrNoContent
	}
	return ReadBatch(files[len(files)-1])
}

// ReadBatch decodes a single batch file.
func ReadBatch(path string) (*Batch, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path comes from the content directory listing
	if err != nil {
		return nil, fmt.Errorf("read batch %s: %w", path, err)
	}
	var batch Batch
	if err := json.Unmarshal(data, &batch); err != nil {
		return nil, fmt.Errorf("decode batch %s: %w", path, err)
	}
	return &batch, nil
}

func (s *Store) now() time.Time {
	if s.Clock != nil {
		return s.Clock()
	}
	return time.Now().UTC()
}

func batchSeq(path string) int64 {
	base := strings.TrimSuffix(strings.TrimPrefix(filepath.Base(path), filePrefix), ".json")
	var seq int64
	if _, err := fmt.Sscanf(base, "%d", &seq); err != nil {
		return 0
	}
	return seq
}

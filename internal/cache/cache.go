package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/apex-evals/apexeval/internal/models"
)

// Cache stores generation responses on disk so re-runs of the same task
// against the same profile do not repeat the model call.
type Cache struct {
	dir string
	mu  sync.Mutex
}

// New creates a cache rooted at dir. An empty dir disables the cache.
func New(dir string) *Cache {
	return &Cache{dir: dir}
}

// Key derives the cache key for one generation call. The key covers:
//   - the model profile (ID, provider, sampling settings, model_configs)
//   - the fully rendered prompt
//   - the content of every attachment
//
// Changing any of these invalidates the entry.
func Key(profile models.ModelProfile, prompt string, attachments []models.Attachment) (string, error) {
	h := sha256.New()

	if err := writeString(h, profile.ModelID); err != nil {
		return "", err
	}
	if err := writeString(h, profile.Provider); err != nil {
		return "", err
	}
	if err := writeFloat(h, profile.Temperature); err != nil {
		return "", err
	}
	if err := writeFloat(h, profile.TopP); err != nil {
		return "", err
	}
	if err := writeInt(h, profile.MaxTokens); err != nil {
		return "", err
	}
	if err := writeInt(h, profile.MaxInputTokens); err != nil {
		return "", err
	}

	// Maps marshal with sorted keys, so this is deterministic.
	configsJSON, err := json.Marshal(profile.ModelConfigs)
	if err != nil {
		return "", fmt.Errorf("marshaling model_configs: %w", err)
	}
	if _, err := h.Write(configsJSON); err != nil {
		return "", err
	}

	if err := writeString(h, prompt); err != nil {
		return "", err
	}

	if err := hashAttachments(h, attachments); err != nil {
		return "", fmt.Errorf("hashing attachments: %w", err)
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// Get retrieves a cached generation result if it exists.
func (c *Cache) Get(key string) (*models.GenerationResult, bool) {
	if c.dir == "" {
		return nil, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	path := c.cachePath(key)
	data, err := os.ReadFile(path)
	if err != nil {
		// Cache miss
		return nil, false
	}

	var result models.GenerationResult
	if err := json.Unmarshal(data, &result); err != nil {
		// Invalid cache entry, treat as miss
		return nil, false
	}

	return &result, true
}

// Put stores a generation result in the cache.
func (c *Cache) Put(key string, result *models.GenerationResult) error {
	if c.dir == "" {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := os.MkdirAll(c.dir, 0755); err != nil {
		return fmt.Errorf("creating cache directory: %w", err)
	}

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling result: %w", err)
	}

	path := c.cachePath(key)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing cache file: %w", err)
	}

	return nil
}

// Stats summarizes what the cache currently holds.
type Stats struct {
	Entries    int
	TotalBytes int64
}

// Stats reports the number of cached entries and their combined size.
// A missing or disabled cache reports zeros.
func (c *Cache) Stats() (Stats, error) {
	var st Stats
	if c.dir == "" {
		return st, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	entries, err := os.ReadDir(c.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return st, nil
		}
		return st, fmt.Errorf("reading cache directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		st.Entries++
		st.TotalBytes += info.Size()
	}
	return st, nil
}

// Clear removes all cached results.
func (c *Cache) Clear() error {
	if c.dir == "" {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := os.Stat(c.dir); os.IsNotExist(err) {
		return nil
	}

	// Safety check: verify this looks like a cache directory before removing.
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return fmt.Errorf("reading cache directory: %w", err)
	}

	if len(entries) > 0 {
		hasValidCache := false
		for _, entry := range entries {
			if entry.IsDir() {
				return fmt.Errorf("cache directory contains subdirectories - refusing to delete for safety")
			}
			if filepath.Ext(entry.Name()) == ".json" {
				hasValidCache = true
			} else {
				return fmt.Errorf("cache directory contains non-cache files - refusing to delete for safety")
			}
		}
		if !hasValidCache {
			return fmt.Errorf("no valid cache files found in directory - refusing to delete for safety")
		}
	}

	return os.RemoveAll(c.dir)
}

// cachePath returns the file path for a cache key
func (c *Cache) cachePath(key string) string {
	return filepath.Join(c.dir, key+".json")
}

// Deterministic reports whether a profile's sampling settings make repeat
// calls reproducible. A cached response for a profile sampling at nonzero
// temperature is just one draw from the distribution.
func Deterministic(profile models.ModelProfile) bool {
	return profile.Temperature == 0
}

// Helper functions

func writeString(w io.Writer, s string) error {
	// Write string with null byte delimiter to prevent hash collisions
	_, err := w.Write([]byte(s + "\x00"))
	return err
}

func writeInt(w io.Writer, i int) error {
	// Write int with null byte delimiter to prevent hash collisions
	_, err := fmt.Fprintf(w, "%d\x00", i)
	return err
}

func writeFloat(w io.Writer, f float64) error {
	_, err := fmt.Fprintf(w, "%g\x00", f)
	return err
}

func hashAttachments(h io.Writer, attachments []models.Attachment) error {
	if len(attachments) == 0 {
		return nil
	}

	// Sort by URL for deterministic hashing
	sorted := make([]models.Attachment, len(attachments))
	copy(sorted, attachments)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].URL < sorted[j].URL })

	for _, att := range sorted {
		path := strings.TrimPrefix(att.URL, "file://")

		// Hash the file content
		if err := hashFile(h, path); err != nil {
			// If the file doesn't exist, include the path in the hash anyway.
			// This ensures cache invalidation if attachments are added/removed.
			if os.IsNotExist(err) {
				if err := writeString(h, att.URL); err != nil {
					return err
				}
				continue
			}
			return fmt.Errorf("hashing attachment %s: %w", att.Filename, err)
		}
	}

	return nil
}

func hashFile(h io.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close() //nolint:errcheck

	if _, err := io.Copy(h, f); err != nil {
		return err
	}

	return nil
}

package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

type Entry struct {
	Data      interface{} `json:"data"`
	Timestamp time.Time   `json:"timestamp"`
}

// Cache is a JSON-file store under <basePath>/.cache, used for course
// metadata and per-course download state.
type Cache struct {
	BasePath string
	mutex    sync.RWMutex
}

var subdirs = []string{"courses", "downloads", "state"}

func New(basePath string) (*Cache, error) {
	cachePath := filepath.Join(basePath, ".cache")

	for _, dir := range subdirs {
		if err := os.MkdirAll(filepath.Join(cachePath, dir), 0755); err != nil {
			return nil, fmt.Errorf("failed to create cache directory %s: %v", dir, err)
		}
	}

	return &Cache{BasePath: cachePath}, nil
}

// subdirFor routes keys into a subdirectory by prefix so course metadata and
// download state stay apart.
func subdirFor(key string) string {
	switch {
	case strings.HasPrefix(key, "course_"):
		return "courses"
	case strings.HasPrefix(key, "download_"):
		return "downloads"
	default:
		return "state"
	}
}

func sanitizeKey(key string) string {
	key = strings.ReplaceAll(key, "/", "_")
	return strings.ReplaceAll(key, "\\", "_")
}

func (c *Cache) Set(key string, data interface{}) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	key = sanitizeKey(key)
	dirPath := filepath.Join(c.BasePath, subdirFor(key))
	filePath := filepath.Join(dirPath, key+".json")

	if err := os.MkdirAll(dirPath, 0755); err != nil {
		return fmt.Errorf("failed to ensure cache directory: %v", err)
	}

	entry := Entry{
		Data:      data,
		Timestamp: time.Now(),
	}

	jsonData, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal cache data: %v", err)
	}

	// Write to a temp file first so a crash never leaves a torn entry.
	tmpFile := filePath + ".tmp"
	if err := os.WriteFile(tmpFile, jsonData, 0644); err != nil {
		return fmt.Errorf("failed to write cache file: %v", err)
	}

	if err := os.Rename(tmpFile, filePath); err != nil {
		if rmErr := os.Remove(tmpFile); rmErr != nil {
			return rmErr
		}
		return fmt.Errorf("failed to save cache file: %v", err)
	}

	return nil
}

func (c *Cache) Get(key string, data interface{}) (bool, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	key = sanitizeKey(key)
	filePath := filepath.Join(c.BasePath, subdirFor(key), key+".json")
	if _, err := os.Stat(filePath); err != nil {
		return false, nil
	}

	jsonData, err := os.ReadFile(filePath)
	if err != nil {
		return false, fmt.Errorf("failed to read cache file: %v", err)
	}

	var entry Entry
	if err := json.Unmarshal(jsonData, &entry); err != nil {
		return false, fmt.Errorf("failed to unmarshal cache entry: %v", err)
	}

	jsonData, err = json.Marshal(entry.Data)
	if err != nil {
		return false, fmt.Errorf("failed to marshal cached data: %v", err)
	}

	if err := json.Unmarshal(jsonData, data); err != nil {
		return false, fmt.Errorf("failed to unmarshal into target type: %v", err)
	}

	return true, nil
}

// IsStale reports whether the entry is missing, unreadable or older than
// maxAge. Missing entries count as stale so callers refetch.
func (c *Cache) IsStale(key string, maxAge time.Duration) bool {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	key = sanitizeKey(key)
	filePath := filepath.Join(c.BasePath, subdirFor(key), key+".json")

	jsonData, err := os.ReadFile(filePath)
	if err != nil {
		return true
	}

	var entry Entry
	if err := json.Unmarshal(jsonData, &entry); err != nil {
		return true
	}

	return time.Since(entry.Timestamp) > maxAge
}

// List prints every cache entry grouped by subdirectory.
func (c *Cache) List() {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	fmt.Printf("\nCache directory: %s\n", c.BasePath)

	for _, subdir := range subdirs {
		fmt.Printf("\n%s/\n", subdir)

		files, err := os.ReadDir(filepath.Join(c.BasePath, subdir))
		if err != nil {
			fmt.Printf("  Error reading directory: %v\n", err)
			continue
		}

		if len(files) == 0 {
			fmt.Println("  (empty)")
			continue
		}

		for _, file := range files {
			if file.IsDir() {
				continue
			}
			info, err := file.Info()
			if err != nil {
				continue
			}
			fmt.Printf("  - %s (%d bytes)\n", file.Name(), info.Size())
		}
	}
	fmt.Println()
}

func (c *Cache) Clear() error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if err := os.RemoveAll(c.BasePath); err != nil {
		return fmt.Errorf("failed to clear cache: %v", err)
	}

	for _, dir := range subdirs {
		if err := os.MkdirAll(filepath.Join(c.BasePath, dir), 0755); err != nil {
			return fmt.Errorf("failed to recreate cache directory %s: %v", dir, err)
		}
	}

	return nil
}

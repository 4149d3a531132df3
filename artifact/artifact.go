package artifact

import (
	"compress/gzip"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// ErrNotFound is returned when a requested artifact does not exist.
var ErrNotFound = errors.New("artifact not found")

// Standard artifact names. Per-attempt artifacts use the Attempt helpers.
const (
	ArtifactAnalysis    = "analysis.json"
	ArtifactFingerprint = "fingerprint.json"
	ArtifactSnippets    = "snippets.json"
	ArtifactResult      = "result.json"
)

// AttemptFix returns the artifact name for attempt n's generated fix.
func AttemptFix(n int) string {
	return fmt.Sprintf("fix-%02d.json", n)
}

// AttemptReview returns the artifact name for attempt n's review verdict.
func AttemptReview(n int) string {
	return fmt.Sprintf("review-%02d.json", n)
}

// AttemptTests returns the artifact name for attempt n's test result.
func AttemptTests(n int) string {
	return fmt.Sprintf("tests-%02d.json", n)
}

// Config holds storage settings.
type Config struct {
	BaseDir       string // default ".fixflow"
	CompressAbove int64  // gzip artifacts larger than this, default 10KB
	RetentionDays int    // default 30
}

// Manager stores run artifacts on disk.
type Manager struct {
	baseDir       string
	compressAbove int64
	retentionDays int
}

// Info describes a stored artifact.
type Info struct {
	Name       string    `json:"name"`
	Size       int64     `json:"size"`
	Compressed bool      `json:"compressed"`
	CreatedAt  time.Time `json:"createdAt"`
}

// NewManager creates a manager, filling in defaults.
func NewManager(cfg Config) *Manager {
	if cfg.BaseDir == "" {
		cfg.BaseDir = ".fixflow"
	}
	if cfg.CompressAbove == 0 {
		cfg.CompressAbove = 10 * 1024
	}
	if cfg.RetentionDays == 0 {
		cfg.RetentionDays = 30
	}
	return &Manager{
		baseDir:       cfg.BaseDir,
		compressAbove: cfg.CompressAbove,
		retentionDays: cfg.RetentionDays,
	}
}

// RunDir returns the directory holding one run's artifacts.
func (m *Manager) RunDir(runID string) string {
	return filepath.Join(m.baseDir, "runs", runID)
}

// BaseDir returns the storage root.
func (m *Manager) BaseDir() string {
	return m.baseDir
}

// Save stores an artifact, compressing large ones.
func (m *Manager) Save(runID, name string, data []byte) error {
	path := filepath.Join(m.RunDir(runID), name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	if int64(len(data)) >= m.compressAbove {
		os.Remove(path)
		return saveCompressed(path+".gz", data)
	}
	os.Remove(path + ".gz")
	return os.WriteFile(path, data, 0644)
}

// SaveJSON marshals v and stores it under name.
func (m *Manager) SaveJSON(runID, name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal artifact %s: %w", name, err)
	}
	return m.Save(runID, name, data)
}

// Load returns an artifact's content, decompressing transparently.
func (m *Manager) Load(runID, name string) ([]byte, error) {
	path := filepath.Join(m.RunDir(runID), name)

	if data, err := loadCompressed(path + ".gz"); err == nil {
		return data, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return data, nil
}

// LoadJSON loads an artifact and unmarshals it into v.
func (m *Manager) LoadJSON(runID, name string, v any) error {
	data, err := m.Load(runID, name)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

// Has reports whether an artifact exists.
func (m *Manager) Has(runID, name string) bool {
	path := filepath.Join(m.RunDir(runID), name)
	if _, err := os.Stat(path + ".gz"); err == nil {
		return true
	}
	_, err := os.Stat(path)
	return err == nil
}

// List returns all artifacts for a run, sorted by name.
func (m *Manager) List(runID string) ([]Info, error) {
	entries, err := os.ReadDir(m.RunDir(runID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var infos []Info
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		fi, err := entry.Info()
		if err != nil {
			continue
		}

		name := entry.Name()
		compressed := strings.HasSuffix(name, ".gz")
		if compressed {
			name = strings.TrimSuffix(name, ".gz")
		}
		infos = append(infos, Info{
			Name:       name,
			Size:       fi.Size(),
			Compressed: compressed,
			CreatedAt:  fi.ModTime(),
		})
	}

	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos, nil
}

// ListRuns returns all stored run IDs.
func (m *Manager) ListRuns() ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(m.baseDir, "runs"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var runs []string
	for _, entry := range entries {
		if entry.IsDir() {
			runs = append(runs, entry.Name())
		}
	}
	sort.Strings(runs)
	return runs, nil
}

// Cleanup deletes runs whose artifacts are all older than the retention
// window. It returns the IDs of deleted runs.
func (m *Manager) Cleanup() ([]string, error) {
	runs, err := m.ListRuns()
	if err != nil {
		return nil, err
	}

	threshold := time.Now().Add(-time.Duration(m.retentionDays) * 24 * time.Hour)
	var deleted []string

	for _, runID := range runs {
		runDir := m.RunDir(runID)
		if newestModTime(runDir).After(threshold) {
			continue
		}
		if err := os.RemoveAll(runDir); err != nil {
			return deleted, fmt.Errorf("delete run %s: %w", runID, err)
		}
		deleted = append(deleted, runID)
	}
	return deleted, nil
}

func newestModTime(dir string) time.Time {
	var newest time.Time
	filepath.Walk(dir, func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if info.ModTime().After(newest) {
			newest = info.ModTime()
		}
		return nil
	})
	return newest
}

func saveCompressed(path string, data []byte) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	gz := gzip.NewWriter(f)
	if _, err := gz.Write(data); err != nil {
		gz.Close()
		return err
	}
	return gz.Close()
}

func loadCompressed(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer gz.Close()

	return io.ReadAll(gz)
}

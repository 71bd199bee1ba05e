package services

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/vipreceiver/backend/internal/config"
)

// ArtifactService stores credential artifacts (session files) on local disk,
// partitioned by region code: <SessionsDir>/<code>/<phone>.session. A flow in
// progress works on a temp file inside the partition and promotes it by
// rename once the credential is secured.
type ArtifactService struct {
	cfg *config.Config
}

// ArtifactInfo describes one stored artifact.
type ArtifactInfo struct {
	Phone    string    `json:"phone"`
	Path     string    `json:"path"`
	Size     int64     `json:"size"`
	Modified time.Time `json:"modified"`
}

func NewArtifactService(cfg *config.Config) *ArtifactService {
	_ = os.MkdirAll(cfg.SessionsDir, 0o755)
	return &ArtifactService{cfg: cfg}
}

// RegionDir returns the partition directory for a region code, creating it
// if needed. An empty code falls back to the root sessions directory.
func (s *ArtifactService) RegionDir(code string) string {
	if code == "" {
		return s.cfg.SessionsDir
	}
	dir := filepath.Join(s.cfg.SessionsDir, code)
	_ = os.MkdirAll(dir, 0o755)
	return dir
}

// Path returns the durable artifact location for a phone number.
func (s *ArtifactService) Path(regionCode, phone string) string {
	return filepath.Join(s.RegionDir(regionCode), phone+".session")
}

// NewTemp allocates a fresh temp artifact path inside the region partition.
func (s *ArtifactService) NewTemp(regionCode string) string {
	name := fmt.Sprintf("tmp_%s.session", uuid.New().String())
	return filepath.Join(s.RegionDir(regionCode), name)
}

// Promote moves a temp artifact to its durable per-phone location.
func (s *ArtifactService) Promote(tempPath, regionCode, phone string) error {
	final := s.Path(regionCode, phone)
	if err := os.Rename(tempPath, final); err != nil {
		return fmt.Errorf("promote artifact for %s: %w", phone, err)
	}
	return nil
}

// Remove deletes an artifact if it exists. Missing files are not an error:
// a flow that failed before the provider wrote anything has nothing to clean.
func (s *ArtifactService) Remove(path string) error {
	if path == "" {
		return nil
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Exists reports whether an artifact file is present on disk.
func (s *ArtifactService) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Size returns the artifact's size in bytes.
func (s *ArtifactService) Size(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// ListRegion lists the durable artifacts stored under one region partition.
// Temp files of in-flight verifications are skipped.
func (s *ArtifactService) ListRegion(code string) ([]ArtifactInfo, error) {
	dir := filepath.Join(s.cfg.SessionsDir, code)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var out []ArtifactInfo
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".session") || strings.HasPrefix(name, "tmp_") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		out = append(out, ArtifactInfo{
			Phone:    strings.TrimSuffix(name, ".session"),
			Path:     filepath.Join(dir, name),
			Size:     info.Size(),
			Modified: info.ModTime(),
		})
	}
	return out, nil
}

// ListAll lists durable artifacts across every region partition.
func (s *ArtifactService) ListAll() (map[string][]ArtifactInfo, error) {
	entries, err := os.ReadDir(s.cfg.SessionsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string][]ArtifactInfo{}, nil
		}
		return nil, err
	}

	out := make(map[string][]ArtifactInfo)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		code := entry.Name()
		infos, err := s.ListRegion(code)
		if err != nil {
			return nil, err
		}
		if len(infos) > 0 {
			out[code] = infos
		}
	}
	return out, nil
}

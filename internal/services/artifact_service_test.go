package services

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArtifactPathLayout(t *testing.T) {
	cfg := testConfig(t)
	artifacts := NewArtifactService(cfg)

	path := artifacts.Path("+998", "+998901234567")
	assert.Equal(t, filepath.Join(cfg.SessionsDir, "+998", "+998901234567.session"), path)

	temp := artifacts.NewTemp("+998")
	assert.True(t, strings.HasPrefix(filepath.Base(temp), "tmp_"))
	assert.Equal(t, filepath.Join(cfg.SessionsDir, "+998"), filepath.Dir(temp))
}

func TestArtifactPromote(t *testing.T) {
	cfg := testConfig(t)
	artifacts := NewArtifactService(cfg)

	temp := artifacts.NewTemp("+1")
	require.NoError(t, os.WriteFile(temp, []byte("session-data"), 0o644))

	require.NoError(t, artifacts.Promote(temp, "+1", "+12025550147"))

	final := artifacts.Path("+1", "+12025550147")
	assert.True(t, artifacts.Exists(final))
	assert.False(t, artifacts.Exists(temp))

	size, err := artifacts.Size(final)
	require.NoError(t, err)
	assert.Equal(t, int64(len("session-data")), size)
}

func TestArtifactRemoveMissingIsNotAnError(t *testing.T) {
	cfg := testConfig(t)
	artifacts := NewArtifactService(cfg)

	assert.NoError(t, artifacts.Remove(filepath.Join(cfg.SessionsDir, "nope.session")))
	assert.NoError(t, artifacts.Remove(""))
}

func TestArtifactListSkipsTempFiles(t *testing.T) {
	cfg := testConfig(t)
	artifacts := NewArtifactService(cfg)

	dir := artifacts.RegionDir("+998")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "+998901234567.session"), []byte("a"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tmp_abc.session"), []byte("b"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("c"), 0o644))

	infos, err := artifacts.ListRegion("+998")
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, "+998901234567", infos[0].Phone)

	all, err := artifacts.ListAll()
	require.NoError(t, err)
	require.Contains(t, all, "+998")
	assert.Len(t, all["+998"], 1)
}

func TestArtifactListMissingRegion(t *testing.T) {
	cfg := testConfig(t)
	artifacts := NewArtifactService(cfg)

	infos, err := artifacts.ListRegion("+49")
	require.NoError(t, err)
	assert.Empty(t, infos)
}

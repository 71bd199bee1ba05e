package services

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedArtifacts(t *testing.T, artifacts *ArtifactService) {
	t.Helper()
	for region, phones := range map[string][]string{
		"+1":   {"+12025550147", "+12025550148"},
		"+998": {"+998901234567"},
	} {
		dir := artifacts.RegionDir(region)
		for _, phone := range phones {
			require.NoError(t, os.WriteFile(filepath.Join(dir, phone+".session"), []byte("data-"+phone), 0o644))
		}
	}
}

func TestZipRegion(t *testing.T) {
	cfg := testConfig(t)
	artifacts := NewArtifactService(cfg)
	reports := NewReportService(artifacts)
	seedArtifacts(t, artifacts)

	data, count, err := reports.ZipRegion("+1")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	names := make(map[string]bool)
	for _, f := range zr.File {
		names[f.Name] = true
	}
	// Entries live under the region folder without the plus sign.
	assert.True(t, names["1/+12025550147.session"])
	assert.True(t, names["1/+12025550148.session"])
}

func TestZipRegionEmpty(t *testing.T) {
	cfg := testConfig(t)
	reports := NewReportService(NewArtifactService(cfg))

	data, count, err := reports.ZipRegion("+49")
	require.NoError(t, err)
	assert.Nil(t, data)
	assert.Zero(t, count)
}

func TestZipAll(t *testing.T) {
	cfg := testConfig(t)
	artifacts := NewArtifactService(cfg)
	reports := NewReportService(artifacts)
	seedArtifacts(t, artifacts)

	data, count, err := reports.ZipAll()
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	assert.Len(t, zr.File, 3)
}

func TestRegionInfoJSON(t *testing.T) {
	cfg := testConfig(t)
	artifacts := NewArtifactService(cfg)
	reports := NewReportService(artifacts)
	seedArtifacts(t, artifacts)

	data, err := reports.RegionInfoJSON("+998")
	require.NoError(t, err)

	var infos []ArtifactInfo
	require.NoError(t, json.Unmarshal(data, &infos))
	require.Len(t, infos, 1)
	assert.Equal(t, "+998901234567", infos[0].Phone)
	assert.Equal(t, int64(len("data-+998901234567")), infos[0].Size)
}

func TestInventoryPDF(t *testing.T) {
	cfg := testConfig(t)
	artifacts := NewArtifactService(cfg)
	reports := NewReportService(artifacts)
	seedArtifacts(t, artifacts)

	data, err := reports.InventoryPDF()
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF")))
}

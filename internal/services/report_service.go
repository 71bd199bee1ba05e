package services

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// ReportService packages stored credential artifacts for admin export: zip
// archives per region or for the whole tree, a JSON inventory, and a PDF
// summary report.
type ReportService struct {
	artifacts *ArtifactService
}

func NewReportService(artifacts *ArtifactService) *ReportService {
	return &ReportService{artifacts: artifacts}
}

// ZipRegion bundles every durable artifact of one region into a zip archive.
// Returns (nil, 0, nil) when the region holds no artifacts.
func (s *ReportService) ZipRegion(code string) ([]byte, int, error) {
	infos, err := s.artifacts.ListRegion(code)
	if err != nil {
		return nil, 0, err
	}
	if len(infos) == 0 {
		return nil, 0, nil
	}
	return s.zipArtifacts(map[string][]ArtifactInfo{code: infos})
}

// ZipAll bundles every durable artifact across all regions.
func (s *ReportService) ZipAll() ([]byte, int, error) {
	byRegion, err := s.artifacts.ListAll()
	if err != nil {
		return nil, 0, err
	}
	if len(byRegion) == 0 {
		return nil, 0, nil
	}
	return s.zipArtifacts(byRegion)
}

func (s *ReportService) zipArtifacts(byRegion map[string][]ArtifactInfo) ([]byte, int, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	count := 0

	for code, infos := range byRegion {
		folder := strings.TrimPrefix(code, "+")
		for _, info := range infos {
			f, err := os.Open(info.Path)
			if err != nil {
				continue
			}
			w, err := zw.Create(fmt.Sprintf("%s/%s.session", folder, info.Phone))
			if err != nil {
				f.Close()
				return nil, 0, err
			}
			if _, err := io.Copy(w, f); err != nil {
				f.Close()
				return nil, 0, err
			}
			f.Close()
			count++
		}
	}

	if err := zw.Close(); err != nil {
		return nil, 0, err
	}
	return buf.Bytes(), count, nil
}

// RegionInfoJSON renders the artifact inventory of one region as an
// indented JSON document.
func (s *ReportService) RegionInfoJSON(code string) ([]byte, error) {
	infos, err := s.artifacts.ListRegion(code)
	if err != nil {
		return nil, err
	}
	if len(infos) == 0 {
		return nil, nil
	}
	return json.MarshalIndent(infos, "", "  ")
}

// InventoryPDF generates an A4 summary of stored artifacts per region.
func (s *ReportService) InventoryPDF() ([]byte, error) {
	byRegion, err := s.artifacts.ListAll()
	if err != nil {
		return nil, err
	}

	codes := make([]string, 0, len(byRegion))
	for code := range byRegion {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Arial", "B", 18)
	pdf.Cell(0, 10, "Session Inventory")
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Generated: %s", time.Now().UTC().Format("2006-01-02 15:04:05 UTC")))
	pdf.Ln(12)

	pdf.SetFont("Arial", "B", 11)
	pdf.CellFormat(40, 8, "Region", "1", 0, "L", false, 0, "")
	pdf.CellFormat(40, 8, "Sessions", "1", 0, "R", false, 0, "")
	pdf.CellFormat(50, 8, "Total Size (bytes)", "1", 1, "R", false, 0, "")

	pdf.SetFont("Arial", "", 11)
	total := 0
	for _, code := range codes {
		infos := byRegion[code]
		var size int64
		for _, info := range infos {
			size += info.Size
		}
		pdf.CellFormat(40, 8, code, "1", 0, "L", false, 0, "")
		pdf.CellFormat(40, 8, fmt.Sprintf("%d", len(infos)), "1", 0, "R", false, 0, "")
		pdf.CellFormat(50, 8, fmt.Sprintf("%d", size), "1", 1, "R", false, 0, "")
		total += len(infos)
	}

	pdf.Ln(6)
	pdf.SetFont("Arial", "B", 11)
	pdf.Cell(0, 8, fmt.Sprintf("Total: %d sessions in %d regions", total, len(codes)))

	var out bytes.Buffer
	if err := pdf.Output(&out); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

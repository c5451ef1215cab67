package importer

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/hazyhaar/recruitmatch/pkg/institution"
)

func init() {
	Register(&ipedsAdapter{})
}

// ipedsAdapter imports the NCES IPEDS institutional characteristics
// directory (HDyyyy). One entity per institution: INSTNM is the canonical
// name, IALIAS the pipe- or comma-separated aliases, WEBADDR the payload.
type ipedsAdapter struct{}

func (a *ipedsAdapter) ID() string       { return "ipeds-institutions-us" }
func (a *ipedsAdapter) CorpusID() string { return "ipeds-institutions-us" }
func (a *ipedsAdapter) Description() string {
	return "IPEDS directory of US postsecondary institutions (NCES)"
}
func (a *ipedsAdapter) DefaultURL() string {
	return "https://nces.ed.gov/ipeds/datacenter/data/HD2023.zip"
}
func (a *ipedsAdapter) License() string { return "Public Domain" }

// ipedsLayout is how the HD file is read.
var ipedsLayout = institution.FormatSpec{
	Type:           institution.FormatCSV,
	Encoding:       "windows-1252",
	NameColumn:     "INSTNM",
	AliasColumn:    "IALIAS",
	AliasSeparator: "|,",
	PayloadColumn:  "WEBADDR",
}

var ipedsMetadata = []institution.MetadataColumn{
	{Name: "unitid", Column: "UNITID"},
	{Name: "city", Column: "CITY"},
	{Name: "state", Column: "STABBR"},
}

func (a *ipedsAdapter) Import(ctx context.Context, sourceURL, outputDir string) error {
	dlDir := filepath.Join(outputDir, "_download")
	if err := ensureDir(dlDir); err != nil {
		return err
	}
	defer os.RemoveAll(dlDir)

	zipPath := filepath.Join(dlDir, "hd.zip")
	slog.Info("downloading", "adapter", a.ID(), "url", sourceURL)
	if err := downloadFile(ctx, sourceURL, zipPath); err != nil {
		return fmt.Errorf("download: %w", err)
	}

	files, err := unzipFile(zipPath, dlDir)
	if err != nil {
		return fmt.Errorf("unzip: %w", err)
	}
	csvPath := ipedsDirectoryFile(files)
	if csvPath == "" {
		return fmt.Errorf("no HD*.csv in archive %s", sourceURL)
	}

	entities, err := institution.ReadCSV(csvPath, &institution.Manifest{
		ID:           a.CorpusID(),
		Format:       ipedsLayout,
		MetadataCols: ipedsMetadata,
	})
	if err != nil {
		return fmt.Errorf("read %s: %w", filepath.Base(csvPath), err)
	}
	if len(entities) == 0 {
		return fmt.Errorf("%s: no institutions", filepath.Base(csvPath))
	}
	slog.Info("institutions read", "adapter", a.ID(), "count", len(entities))

	return writeCorpus(outputDir, &institution.Manifest{
		ID:          a.CorpusID(),
		Version:     strings.ToLower(strings.TrimSuffix(filepath.Base(csvPath), filepath.Ext(csvPath))),
		Description: a.Description(),
		Source:      "NCES IPEDS",
		SourceURL:   sourceURL,
		License:     a.License(),
	}, entities)
}

// ipedsDirectoryFile picks the HD csv from an extracted archive, preferring
// the revised (_rv) release when both are present.
func ipedsDirectoryFile(files []string) string {
	var found string
	for _, f := range files {
		base := strings.ToLower(filepath.Base(f))
		if !strings.HasPrefix(base, "hd") || filepath.Ext(base) != ".csv" {
			continue
		}
		if found == "" || strings.Contains(base, "_rv") {
			found = f
		}
	}
	return found
}

package institution

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// writeTestCorpus writes a manifest and a data file in a temp directory and
// returns the corpus directory.
func writeTestCorpus(t *testing.T, id, manifestExtra, dataFile, data string) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	manifest := `id: ` + id + `
version: "1.0"
source: unit test
license: test
data_file: ` + dataFile + `
` + manifestExtra
	if err := os.WriteFile(filepath.Join(dir, "manifest.yaml"), []byte(manifest), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, dataFile), []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	return dir
}

func names(entities []Entity) []string {
	out := make([]string, len(entities))
	for i, e := range entities {
		out[i] = e.Name
	}
	return out
}

func TestLoadCorpus_JSONArray(t *testing.T) {
	dir := writeTestCorpus(t, "schools", "format:\n  type: json\n", "data.json", `[
  {"name": "University of Alabama", "alternativeNames": ["Bama", "UA"], "logo": "https://x/ua.png"},
  {"name": "Ohio State University", "alternativeNames": ["OSU"]},
  {"name": "   "}
]`)

	c, err := LoadCorpus(dir)
	if err != nil {
		t.Fatalf("LoadCorpus: %v", err)
	}
	if c.ID() != "schools" {
		t.Errorf("ID = %q, want schools", c.ID())
	}
	if c.Len() != 2 {
		t.Fatalf("Len = %d, want 2 (blank name dropped)", c.Len())
	}
	got := c.Entities()
	if got[0].Payload != "https://x/ua.png" {
		t.Errorf("payload = %q", got[0].Payload)
	}
	if len(got[0].AltNames) != 2 || got[0].AltNames[0] != "Bama" {
		t.Errorf("alt names = %v", got[0].AltNames)
	}
}

func TestDecodeJSON_ObjectKeepsOrder(t *testing.T) {
	doc := `{
  "Zeta College": "https://x/zeta.png",
  "Alpha University": {"alternativeNames": ["AU"], "logo": "https://x/alpha.png"},
  "Mid State": ""
}`
	entities, err := DecodeJSON(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("DecodeJSON: %v", err)
	}
	want := []string{"Zeta College", "Alpha University", "Mid State"}
	got := names(entities)
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Fatalf("order = %v, want %v", got, want)
	}
	if entities[0].Payload != "https://x/zeta.png" {
		t.Errorf("zeta payload = %q", entities[0].Payload)
	}
	if entities[1].Payload != "https://x/alpha.png" || len(entities[1].AltNames) != 1 {
		t.Errorf("alpha = %+v", entities[1])
	}
}

func TestDecodeJSON_Invalid(t *testing.T) {
	for _, doc := range []string{``, `"string"`, `[{"name": 3}]`, `{"A": 12}`} {
		if _, err := DecodeJSON(strings.NewReader(doc)); err == nil {
			t.Errorf("DecodeJSON(%q): expected error", doc)
		}
	}
}

func TestLoadCorpus_CSV(t *testing.T) {
	extra := `format:
  type: csv
  delimiter: ","
  name_column: INSTNM
  alias_column: IALIAS
  alias_separator: "|,"
  payload_column: WEBADDR
metadata_columns:
  - name: state
    column: STABBR
`
	data := "\ufeffINSTNM,IALIAS,WEBADDR,STABBR\n" +
		"The University of Alabama,\"Bama | UA, Alabama\",www.ua.edu,AL\n" +
		",orphan,,XX\n" +
		"Ohio State University-Main Campus,,www.osu.edu,OH\n"
	dir := writeTestCorpus(t, "ipeds", extra, "data.csv", data)

	c, err := LoadCorpus(dir)
	if err != nil {
		t.Fatalf("LoadCorpus: %v", err)
	}
	if c.Len() != 2 {
		t.Fatalf("Len = %d, want 2", c.Len())
	}
	ua := c.Entities()[0]
	if got := strings.Join(ua.AltNames, "|"); got != "Bama|UA|Alabama" {
		t.Errorf("aliases = %q, want Bama|UA|Alabama", got)
	}
	if ua.Payload != "www.ua.edu" {
		t.Errorf("payload = %q", ua.Payload)
	}
	if ua.Metadata["state"] != "AL" {
		t.Errorf("state = %q, want AL", ua.Metadata["state"])
	}
}

func TestLoadCorpus_CSVWindows1252(t *testing.T) {
	extra := `format:
  type: csv
  encoding: windows-1252
  name_column: name
`
	// 0xE9 is é in Windows-1252.
	data := "name\nUniversit\xe9 Laval\n"
	dir := writeTestCorpus(t, "cp1252", extra, "data.csv", data)

	c, err := LoadCorpus(dir)
	if err != nil {
		t.Fatalf("LoadCorpus: %v", err)
	}
	if got := c.Entities()[0].Name; got != "Université Laval" {
		t.Errorf("name = %q, want Université Laval", got)
	}
	if name, ok := c.Name("universite laval"); !ok || name != "Université Laval" {
		t.Errorf("Name = %q, %v", name, ok)
	}
}

func TestLoadCorpus_CSVMissingNameColumn(t *testing.T) {
	extra := "format:\n  type: csv\n  name_column: nope\n"
	dir := writeTestCorpus(t, "bad", extra, "data.csv", "name\nX\n")
	if _, err := LoadCorpus(dir); err == nil {
		t.Error("expected error for missing name column")
	}
}

func TestLoadCorpus_MissingManifest(t *testing.T) {
	if _, err := LoadCorpus(t.TempDir()); err == nil {
		t.Error("expected error for missing manifest")
	}
}

func TestLoadManifest_Defaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "manifest.yaml")
	os.WriteFile(path, []byte("id: minimal\n"), 0o644)

	m, err := LoadManifest(path)
	if err != nil {
		t.Fatalf("LoadManifest: %v", err)
	}
	if m.Format.Type != FormatJSON {
		t.Errorf("type = %q, want json", m.Format.Type)
	}
	if m.DataFile != "data.json" {
		t.Errorf("data file = %q, want data.json", m.DataFile)
	}
}

func TestLoadManifest_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing id", "version: \"1\"\n"},
		{"unknown format", "id: x\nformat:\n  type: xml\n"},
		{"csv without name column", "id: x\nformat:\n  type: csv\n"},
		{"bad yaml", "id: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "manifest.yaml")
			os.WriteFile(path, []byte(tt.body), 0o644)
			if _, err := LoadManifest(path); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestWriteManifest_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "manifest.yaml")
	in := &Manifest{
		ID:       "ipeds-institutions-us",
		Version:  "2024",
		Source:   "NCES IPEDS",
		License:  "public domain",
		DataFile: "data.gob",
		Format:   FormatSpec{Type: FormatGob},
	}
	if err := WriteManifest(path, in); err != nil {
		t.Fatalf("WriteManifest: %v", err)
	}
	out, err := LoadManifest(path)
	if err != nil {
		t.Fatalf("LoadManifest: %v", err)
	}
	if out.ID != in.ID || out.Version != in.Version || out.Format.Type != FormatGob || out.DataFile != "data.gob" {
		t.Errorf("round trip = %+v", out)
	}
}

func TestSplitAliases(t *testing.T) {
	tests := []struct {
		cell, seps string
		want       []string
	}{
		{"", "|", nil},
		{"  ", "|", nil},
		{"Bama", "|", []string{"Bama"}},
		{"Bama | UA", "|", []string{"Bama", "UA"}},
		{"Bama|UA, Alabama", "|,", []string{"Bama", "UA", "Alabama"}},
		{"| ,", "|,", nil},
	}
	for _, tt := range tests {
		got := SplitAliases(tt.cell, tt.seps)
		if strings.Join(got, "/") != strings.Join(tt.want, "/") || len(got) != len(tt.want) {
			t.Errorf("SplitAliases(%q, %q) = %v, want %v", tt.cell, tt.seps, got, tt.want)
		}
	}
}

func TestCorpus_EntitiesIsACopy(t *testing.T) {
	c := NewCorpus(nil, []Entity{{Name: "Ohio State University", AltNames: []string{"OSU"}}})
	got := c.Entities()
	got[0].Name = "mutated"
	got[0].AltNames[0] = "mutated"
	again := c.Entities()
	if again[0].Name != "Ohio State University" || again[0].AltNames[0] != "OSU" {
		t.Errorf("corpus mutated through Entities: %+v", again[0])
	}
}

func TestCorpus_DuplicateNames(t *testing.T) {
	c := NewCorpus(nil, []Entity{
		{Name: "Saint Mary's College"},
		{Name: "Saint Marys College"},
		{Name: "Other"},
	})
	if got := c.duplicateNames(); got != 1 {
		t.Errorf("duplicateNames = %d, want 1", got)
	}
}

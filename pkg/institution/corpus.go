package institution

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/hazyhaar/recruitmatch/pkg/fuzzy"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"
)

// Corpus is an immutable, ordered set of canonical entities with their
// normalized forms precomputed. A *Corpus is safe for concurrent use.
type Corpus struct {
	Manifest *Manifest
	entities []Entity
	norm     []normEntity
}

type normText struct {
	text  string
	words map[string]struct{}
}

type normEntity struct {
	normText
	alts []normText
}

// NewCorpus builds a corpus from entities, keeping their order. Entities
// with a blank name are dropped. The slice is copied.
func NewCorpus(m *Manifest, entities []Entity) *Corpus {
	c := &Corpus{
		Manifest: m,
		entities: make([]Entity, 0, len(entities)),
		norm:     make([]normEntity, 0, len(entities)),
	}
	for _, e := range entities {
		name := fuzzy.Normalize(e.Name)
		if name == "" {
			continue
		}
		n := normEntity{normText: normText{text: name, words: fuzzy.Words(name)}}
		for _, alt := range e.AltNames {
			if a := fuzzy.Normalize(alt); a != "" {
				n.alts = append(n.alts, normText{text: a, words: fuzzy.Words(a)})
			}
		}
		c.entities = append(c.entities, e.clone())
		c.norm = append(c.norm, n)
	}
	return c
}

// ID returns the manifest id, or "" for an ad-hoc corpus.
func (c *Corpus) ID() string {
	if c == nil || c.Manifest == nil {
		return ""
	}
	return c.Manifest.ID
}

// Len returns the number of entities.
func (c *Corpus) Len() int {
	if c == nil {
		return 0
	}
	return len(c.entities)
}

// Entities returns a copy of the corpus entities in order.
func (c *Corpus) Entities() []Entity {
	out := make([]Entity, c.Len())
	for i := range out {
		out[i] = c.entities[i].clone()
	}
	return out
}

// duplicateNames counts entities whose normalized primary name repeats an
// earlier one. Only the first of them can win an exact match.
func (c *Corpus) duplicateNames() int {
	seen := make(map[string]struct{}, len(c.norm))
	var dups int
	for _, n := range c.norm {
		if _, ok := seen[n.text]; ok {
			dups++
			continue
		}
		seen[n.text] = struct{}{}
	}
	return dups
}

// LoadCorpus reads manifest.yaml in dir and the corpus data: data.gob when
// present, otherwise the manifest's data file in its declared format.
func LoadCorpus(dir string) (*Corpus, error) {
	m, err := LoadManifest(filepath.Join(dir, "manifest.yaml"))
	if err != nil {
		return nil, err
	}

	var entities []Entity
	gobPath := filepath.Join(dir, "data.gob")
	if _, statErr := os.Stat(gobPath); statErr == nil {
		entities, err = loadGob(gobPath)
	} else {
		dataPath := filepath.Join(dir, m.DataFile)
		switch m.Format.Type {
		case FormatJSON:
			entities, err = loadJSONFile(dataPath)
		case FormatCSV:
			entities, err = ReadCSV(dataPath, m)
		case FormatGob:
			entities, err = loadGob(dataPath)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("corpus %s: %w", m.ID, err)
	}

	c := NewCorpus(m, entities)
	if dups := c.duplicateNames(); dups > 0 {
		slog.Warn("duplicate institution names after normalization", "corpus", m.ID, "duplicates", dups)
	}
	return c, nil
}

// jsonEntity is the on-disk shape of an entity in JSON corpora.
type jsonEntity struct {
	Name     string            `json:"name"`
	AltNames []string          `json:"alternativeNames"`
	Logo     string            `json:"logo"`
	Metadata map[string]string `json:"metadata"`
}

func (j jsonEntity) entity() Entity {
	return Entity{Name: j.Name, AltNames: j.AltNames, Payload: j.Logo, Metadata: j.Metadata}
}

func loadJSONFile(path string) ([]Entity, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open data file: %w", err)
	}
	defer f.Close()
	return DecodeJSON(f)
}

// DecodeJSON reads entities from either an array of entity objects or an
// object keyed by institution name whose values are entity objects or bare
// logo URLs. Document order is preserved.
func DecodeJSON(r io.Reader) ([]Entity, error) {
	dec := json.NewDecoder(r)
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("read json: %w", err)
	}

	var entities []Entity
	switch tok {
	case json.Delim('['):
		for dec.More() {
			var je jsonEntity
			if err := dec.Decode(&je); err != nil {
				return nil, fmt.Errorf("decode entity %d: %w", len(entities), err)
			}
			entities = append(entities, je.entity())
		}
	case json.Delim('{'):
		for dec.More() {
			keyTok, err := dec.Token()
			if err != nil {
				return nil, fmt.Errorf("read key: %w", err)
			}
			name, _ := keyTok.(string)
			var raw json.RawMessage
			if err := dec.Decode(&raw); err != nil {
				return nil, fmt.Errorf("decode %q: %w", name, err)
			}
			e, err := keyedEntity(name, raw)
			if err != nil {
				return nil, err
			}
			entities = append(entities, e)
		}
	default:
		return nil, errors.New("json corpus must be an array or an object")
	}
	return entities, nil
}

func keyedEntity(name string, raw json.RawMessage) (Entity, error) {
	var logo string
	if err := json.Unmarshal(raw, &logo); err == nil {
		return Entity{Name: name, Payload: logo}, nil
	}
	var je jsonEntity
	if err := json.Unmarshal(raw, &je); err != nil {
		return Entity{}, fmt.Errorf("decode %q: %w", name, err)
	}
	je.Name = name
	return je.entity(), nil
}

// ReadCSV reads the entities of a CSV data file laid out as m.Format
// describes, transcoding from m.Format.Encoding when it is not UTF-8.
func ReadCSV(path string, m *Manifest) ([]Entity, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open data file: %w", err)
	}
	defer f.Close()

	// Transcode non-UTF-8 encodings declared in the manifest.
	var reader io.Reader = f
	if enc := m.Format.Encoding; enc != "" && !isUTF8(enc) {
		e, err := htmlindex.Get(enc)
		if err != nil {
			return nil, fmt.Errorf("unsupported encoding %q: %w", enc, err)
		}
		reader = transform.NewReader(f, e.NewDecoder())
	}

	r := csv.NewReader(reader)
	if delim := m.Format.Delimiter; delim != "" {
		r.Comma = []rune(delim)[0]
	}
	r.LazyQuotes = true
	r.TrimLeadingSpace = true
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, h := range header {
		col[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}

	nameIdx, ok := col[m.Format.NameColumn]
	if !ok {
		return nil, fmt.Errorf("name column %q not found in header %v", m.Format.NameColumn, header)
	}
	aliasIdx, payloadIdx := -1, -1
	if c := m.Format.AliasColumn; c != "" {
		if i, ok := col[c]; ok {
			aliasIdx = i
		}
	}
	if c := m.Format.PayloadColumn; c != "" {
		if i, ok := col[c]; ok {
			payloadIdx = i
		}
	}
	metaIdx := make(map[string]int)
	for _, mc := range m.MetadataCols {
		if i, ok := col[mc.Column]; ok {
			metaIdx[mc.Name] = i
		}
	}
	seps := m.Format.AliasSeparator
	if seps == "" {
		seps = "|"
	}

	field := func(record []string, i int) string {
		if i < 0 || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	var entities []Entity
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		name := field(record, nameIdx)
		if name == "" {
			continue
		}
		e := Entity{
			Name:     name,
			AltNames: SplitAliases(field(record, aliasIdx), seps),
			Payload:  field(record, payloadIdx),
		}
		if len(metaIdx) > 0 {
			e.Metadata = make(map[string]string, len(metaIdx))
			for k, i := range metaIdx {
				e.Metadata[k] = field(record, i)
			}
		}
		entities = append(entities, e)
	}
	return entities, nil
}

// SplitAliases splits an alias cell on any rune of seps, dropping blanks.
func SplitAliases(cell, seps string) []string {
	if strings.TrimSpace(cell) == "" {
		return nil
	}
	parts := strings.FieldsFunc(cell, func(r rune) bool { return strings.ContainsRune(seps, r) })
	aliases := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			aliases = append(aliases, p)
		}
	}
	if len(aliases) == 0 {
		return nil
	}
	return aliases
}

func isUTF8(enc string) bool {
	e := strings.ToLower(strings.ReplaceAll(enc, "-", ""))
	return e == "utf8" || e == ""
}

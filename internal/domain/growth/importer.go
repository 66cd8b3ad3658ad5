package growth

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// ImportManifest lists the WHO table files to load.
//
//	tables:
//	  - gender: male
//	    type: weight
//	    file: wfa-boys-zscore-expanded-tables.txt
type ImportManifest struct {
	Tables []ManifestTable `yaml:"tables"`
}

type ManifestTable struct {
	Gender string `yaml:"gender"`
	Type   string `yaml:"type"`
	File   string `yaml:"file"`
}

type ImportedTable struct {
	Gender Gender          `json:"gender"`
	Type   MeasurementType `json:"type"`
	File   string          `json:"file"`
	Rows   int             `json:"rows"`
}

// LoadManifest reads a manifest and resolves table paths relative to it.
func LoadManifest(path string) (*ImportManifest, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	var m ImportManifest
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", path, err)
	}
	if len(m.Tables) == 0 {
		return nil, fmt.Errorf("manifest %s lists no tables", path)
	}
	dir := filepath.Dir(path)
	for i := range m.Tables {
		if !filepath.IsAbs(m.Tables[i].File) {
			m.Tables[i].File = filepath.Join(dir, m.Tables[i].File)
		}
	}
	return &m, nil
}

// Importer loads WHO tables listed in a manifest into a ReferenceWriter.
type Importer struct {
	writer ReferenceWriter
	logger zerolog.Logger
}

func NewImporter(w ReferenceWriter, logger zerolog.Logger) *Importer {
	return &Importer{writer: w, logger: logger}
}

func (im *Importer) Import(ctx context.Context, m *ImportManifest) ([]ImportedTable, error) {
	var out []ImportedTable
	for _, tbl := range m.Tables {
		g, err := ParseGender(tbl.Gender)
		if err != nil {
			return out, fmt.Errorf("table %s: %w", tbl.File, err)
		}
		t, err := ParseMeasurementType(tbl.Type)
		if err != nil {
			return out, fmt.Errorf("table %s: %w", tbl.File, err)
		}

		f, err := os.Open(tbl.File)
		if err != nil {
			return out, fmt.Errorf("open table: %w", err)
		}
		points, err := ParseReferenceTable(f, g)
		f.Close()
		if err != nil {
			return out, fmt.Errorf("parse %s: %w", tbl.File, err)
		}
		// Validate ordering and uniqueness before anything is written.
		if _, err := NewReferenceSeries(g, t, points); err != nil {
			return out, err
		}
		if err := im.writer.ReplaceReference(ctx, g, t, points); err != nil {
			return out, fmt.Errorf("store %s/%s: %w", g, t, err)
		}

		im.logger.Info().
			Str("gender", string(g)).
			Str("type", string(t)).
			Str("file", tbl.File).
			Int("rows", len(points)).
			Msg("reference table imported")
		out = append(out, ImportedTable{Gender: g, Type: t, File: tbl.File, Rows: len(points)})
	}
	return out, nil
}

var tableColumns = map[string]string{
	"day": "age", "age": "age", "month": "month",
	"l": "l", "m": "m", "s": "s",
	"sd4neg": "sd4neg", "sd3neg": "sd3neg", "sd2neg": "sd2neg", "sd1neg": "sd1neg",
	"sd0": "sd0", "sd1": "sd1", "sd2": "sd2", "sd3": "sd3", "sd4": "sd4",
}

// ParseReferenceTable reads a WHO z-score table: a header row naming the
// columns (Day or Month, L, M, S, SD4neg ... SD4) followed by one row per
// age. Tab, comma and space separators are accepted. SD4neg and SD4 are optional.
func ParseReferenceTable(r io.Reader, g Gender) ([]ReferencePoint, error) {
	sc := bufio.NewScanner(r)
	split := func(line string) []string {
		return strings.FieldsFunc(line, func(c rune) bool { return c == '\t' || c == ',' || c == ' ' || c == ';' })
	}

	var idx map[string]int
	var points []ReferencePoint
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(strings.TrimPrefix(sc.Text(), "\ufeff"))
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := split(line)

		if idx == nil {
			idx = make(map[string]int)
			for i, f := range fields {
				if col, ok := tableColumns[strings.ToLower(f)]; ok {
					idx[col] = i
				}
			}
			for _, req := range []string{"l", "m", "s", "sd3neg", "sd2neg", "sd1neg", "sd0", "sd1", "sd2", "sd3"} {
				if _, ok := idx[req]; !ok {
					return nil, fmt.Errorf("line %d: missing column %q", lineNo, req)
				}
			}
			_, hasAge := idx["age"]
			_, hasMonth := idx["month"]
			if !hasAge && !hasMonth {
				return nil, fmt.Errorf("line %d: missing Day or Month column", lineNo)
			}
			continue
		}

		get := func(col string) (float64, bool, error) {
			i, ok := idx[col]
			if !ok || i >= len(fields) {
				return 0, false, nil
			}
			v, err := strconv.ParseFloat(fields[i], 64)
			if err != nil {
				return 0, false, fmt.Errorf("line %d column %s: %w", lineNo, col, err)
			}
			return v, true, nil
		}

		p := ReferencePoint{Gender: g}
		if v, ok, err := get("age"); err != nil {
			return nil, err
		} else if ok {
			p.AgeDays = int(v)
		} else {
			mo, _, err := get("month")
			if err != nil {
				return nil, err
			}
			p.AgeDays = int(math.Round(mo * DaysPerMonth))
		}

		dst := map[string]*float64{
			"l": &p.L, "m": &p.M, "s": &p.S,
			"sd3neg": &p.SD3Neg, "sd2neg": &p.SD2Neg, "sd1neg": &p.SD1Neg, "sd0": &p.SD0,
			"sd1": &p.SD1, "sd2": &p.SD2, "sd3": &p.SD3,
		}
		for col, ptr := range dst {
			v, ok, err := get(col)
			if err != nil {
				return nil, err
			}
			if !ok {
				return nil, fmt.Errorf("line %d: missing value for %s", lineNo, col)
			}
			*ptr = v
		}
		if v, ok, err := get("sd4neg"); err != nil {
			return nil, err
		} else if ok {
			p.SD4Neg = ptrFloat(v)
		}
		if v, ok, err := get("sd4"); err != nil {
			return nil, err
		} else if ok {
			p.SD4 = ptrFloat(v)
		}
		points = append(points, p)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if idx == nil {
		return nil, fmt.Errorf("empty reference table")
	}
	return points, nil
}

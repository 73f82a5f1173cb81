package catalog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spherical-ai/phone-advisor/internal/observability"
)

// ErrNoSource is returned when the catalog file does not exist.
var ErrNoSource = errors.New("catalog source not found")

// Column headers of the phone dataset.
const (
	ColName    = "Name"
	ColBrand   = "Brand"
	ColPrice   = "Price"
	ColBattery = "Battery capacity (mAh)"
	ColRAM     = "RAM (MB)"
	ColCamera  = "Rear camera"
	ColScreen  = "Screen size (inches)"
	ColEmbed   = "sketchfab_embed"
	ColModel   = "Model"
	ColStorage = "Internal storage (GB)"
	ColOS      = "Operating system"
)

// LoadWarning describes a field that could not be parsed and was replaced by 0.
type LoadWarning struct {
	Row     int
	Column  string
	Value   string
	Message string
}

// LoadResult is the outcome of reading a catalog file.
type LoadResult struct {
	Catalog  *Catalog
	Warnings []LoadWarning
	Skipped  int
}

// LoadFile reads a phone CSV from path.
func LoadFile(path string, logger *observability.Logger) (*LoadResult, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNoSource, path)
		}
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer file.Close()

	result, err := Load(file)
	if err != nil {
		return nil, fmt.Errorf("load catalog %s: %w", path, err)
	}

	if logger != nil {
		for _, w := range result.Warnings {
			logger.Warn().
				Int("row", w.Row).
				Str("column", w.Column).
				Str("value", w.Value).
				Msg(w.Message)
		}
		logger.Info().
			Str("path", path).
			Int("phones", result.Catalog.Len()).
			Int("skipped", result.Skipped).
			Msg("Catalog loaded")
	}

	return result, nil
}

// Load parses phone records from CSV. Unparsable numeric fields degrade to 0
// and are reported as warnings; rows without a name are skipped.
func Load(r io.Reader) (*LoadResult, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return &LoadResult{Catalog: New(nil)}, nil
		}
		return nil, fmt.Errorf("read header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}
	if _, ok := cols[ColName]; !ok {
		return nil, fmt.Errorf("missing required column %q", ColName)
	}

	result := &LoadResult{}
	var phones []Phone

	for row := 2; ; row++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", row, err)
		}

		rp := rowParser{cols: cols, record: record, row: row, result: result}

		name := rp.str(ColName)
		if name == "" {
			result.Skipped++
			continue
		}

		phone := Phone{
			Name:      name,
			Brand:     rp.str(ColBrand),
			Price:     rp.float(ColPrice),
			Battery:   rp.int(ColBattery),
			RAM:       rp.int(ColRAM),
			CameraMP:  rp.int(ColCamera),
			Screen:    rp.float(ColScreen),
			Model:     rp.str(ColModel),
			StorageGB: rp.str(ColStorage),
			OS:        rp.str(ColOS),
		}
		if embed := rp.str(ColEmbed); embed != "" {
			phone.ImageURL = &embed
		}

		phones = append(phones, phone)
	}

	result.Catalog = New(phones)
	return result, nil
}

type rowParser struct {
	cols   map[string]int
	record []string
	row    int
	result *LoadResult
}

func (p rowParser) str(col string) string {
	idx, ok := p.cols[col]
	if !ok || idx >= len(p.record) {
		return ""
	}
	return strings.TrimSpace(p.record[idx])
}

func (p rowParser) float(col string) float64 {
	raw := p.str(col)
	v, err := parseNumber(raw)
	if err != nil || v < 0 {
		p.warn(col, raw)
		return 0
	}
	return v
}

// int truncates like the source data's "12.2" camera values.
func (p rowParser) int(col string) int {
	raw := p.str(col)
	v, err := parseNumber(raw)
	if err != nil || v < 0 {
		p.warn(col, raw)
		return 0
	}
	return int(v)
}

func (p rowParser) warn(col, raw string) {
	p.result.Warnings = append(p.result.Warnings, LoadWarning{
		Row:     p.row,
		Column:  col,
		Value:   raw,
		Message: "unparsable numeric field, defaulting to 0",
	})
}

func parseNumber(value string) (float64, error) {
	cleaned := strings.ReplaceAll(strings.TrimSpace(value), ",", "")
	if cleaned == "" {
		return 0, errors.New("empty value")
	}
	return strconv.ParseFloat(cleaned, 64)
}

package table

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Options controls how delimited files are parsed.
type Options struct {
	// Delimiter for CSV. If 0, picks '\t' for .tsv files and ',' otherwise.
	Delimiter rune
	// DecimalSeparator for numeric cells. If 0, auto-detect per value.
	DecimalSeparator rune
	// ThousandsSeparator is stripped from numeric cells when set.
	ThousandsSeparator rune
	// SheetName and SheetIndex select the XLSX sheet; SheetIndex is 1-based.
	SheetName  string
	SheetIndex int
}

// DefaultOptions parses plain dot-decimal CSV.
func DefaultOptions() Options {
	return Options{DecimalSeparator: '.', SheetIndex: 1}
}

// missingTokens mirrors the markers common CSV exporters use for empty cells.
var missingTokens = map[string]struct{}{
	"": {}, "#N/A": {}, "#N/A N/A": {}, "#NA": {}, "-1.#IND": {}, "-1.#QNAN": {},
	"-NaN": {}, "-nan": {}, "1.#IND": {}, "1.#QNAN": {}, "<NA>": {}, "N/A": {},
	"NA": {}, "NULL": {}, "NaN": {}, "None": {}, "n/a": {}, "nan": {}, "null": {},
}

func isMissingToken(s string) bool {
	_, ok := missingTokens[s]
	return ok
}

// LoadCSV reads a delimited file with a header row into a Table.
func LoadCSV(path string, opt Options) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()
	if opt.Delimiter == 0 {
		opt.Delimiter = sniffDelimiter(path)
	}
	return ReadCSV(f, opt)
}

// ReadCSV parses delimited text with a header row into a Table.
func ReadCSV(rd io.Reader, opt Options) (*Table, error) {
	r := csv.NewReader(rd)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	if opt.Delimiter != 0 {
		r.Comma = opt.Delimiter
	}
	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("read header: file is empty")
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	var records [][]string
	for {
		rec, err := r.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("read row %d: %w", len(records)+1, err)
		}
		records = append(records, rec)
	}
	return fromRecords(header, records, opt)
}

// fromRecords infers column kinds and builds a Table from raw string cells.
// A column is numeric when every non-missing cell parses as a number.
func fromRecords(header []string, records [][]string, opt Options) (*Table, error) {
	ncol := len(header)
	if ncol == 0 {
		return nil, errors.New("header has no columns")
	}
	for i, rec := range records {
		if len(rec) > ncol {
			return nil, fmt.Errorf("row %d has %d fields, header has %d", i+1, len(rec), ncol)
		}
	}
	cols := make([]Column, ncol)
	for j := range header {
		name := strings.TrimSpace(header[j])
		if name == "" {
			name = fmt.Sprintf("Unnamed: %d", j)
		}
		cols[j] = Column{Name: name, Kind: KindNumeric, Values: make([]float64, len(records))}
	}
	for j := range cols {
		c := &cols[j]
		numeric := true
		for i, rec := range records {
			cell := cellAt(rec, j)
			if isMissingToken(cell) {
				c.Values[i] = Absent
				continue
			}
			x, ok := parseNumeric(cell, opt)
			if !ok {
				numeric = false
				break
			}
			c.Values[i] = x
		}
		if numeric {
			continue
		}
		c.Kind = KindCategorical
		codes := map[string]int{}
		for i, rec := range records {
			cell := cellAt(rec, j)
			if isMissingToken(cell) {
				c.Values[i] = Absent
				continue
			}
			code, ok := codes[cell]
			if !ok {
				code = len(c.Levels)
				codes[cell] = code
				c.Levels = append(c.Levels, cell)
			}
			c.Values[i] = float64(code)
		}
	}
	return FromColumns(cols...)
}

// cellAt pads short rows with missing cells.
func cellAt(rec []string, j int) string {
	if j >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[j])
}

// EncodeCSV writes the table as comma separated text with a header row and
// no index column. Absent cells are written empty.
func EncodeCSV(w io.Writer, t *Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Names()); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	rec := make([]string, t.Cols())
	for r := 0; r < t.Rows(); r++ {
		for j, c := range t.cols {
			rec[j] = c.Label(r)
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write row %d: %w", r+1, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteCSV encodes the table and writes it through write, which is expected to
// replace path atomically.
func WriteCSV(path string, t *Table, write func(string, []byte) error) error {
	var buf bytes.Buffer
	if err := EncodeCSV(&buf, t); err != nil {
		return err
	}
	if err := write(path, buf.Bytes()); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}

func sniffDelimiter(path string) rune {
	if strings.HasSuffix(strings.ToLower(path), ".tsv") {
		return '\t'
	}
	return ','
}

func parseNumeric(s string, opt Options) (float64, bool) {
	raw := strings.ReplaceAll(s, "\u00A0", " ")
	raw = strings.TrimSpace(raw)
	dec := opt.DecimalSeparator
	thou := opt.ThousandsSeparator
	if dec == 0 {
		cpos := strings.LastIndex(raw, ",")
		dpos := strings.LastIndex(raw, ".")
		switch {
		case cpos >= 0 && dpos >= 0 && cpos > dpos:
			dec, thou = ',', '.'
		case cpos >= 0 && dpos >= 0:
			dec, thou = '.', ','
		case cpos >= 0:
			dec = ','
		default:
			dec = '.'
		}
	}
	if thou != 0 && thou != dec {
		raw = strings.ReplaceAll(raw, string(thou), "")
	}
	if dec != '.' {
		raw = strings.ReplaceAll(raw, string(dec), ".")
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

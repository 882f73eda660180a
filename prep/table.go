package prep

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// SampleNameColumn is the identifier column of prep files.
const SampleNameColumn = "sample_name"

type options struct {
	indexColumn string
	delimiter   rune
}

// Option configures Parse and ParseTable.
type Option func(*options)

// WithIndexColumn selects the identifier column by name. By default the first
// header column is the identifier.
func WithIndexColumn(name string) Option {
	return func(o *options) { o.indexColumn = name }
}

// WithDelimiter overrides the default tab delimiter.
func WithDelimiter(r rune) Option {
	return func(o *options) { o.delimiter = r }
}

// Record holds the non-identifier columns of one row.
type Record map[string]string

// Records is a parsed table keyed by identifier, in file order.
type Records struct {
	Index   string
	Columns []string
	IDs     []SampleID
	ByID    map[SampleID]Record
}

// Get returns the row for id.
func (r *Records) Get(id SampleID) (Record, bool) {
	rec, ok := r.ByID[id]
	return rec, ok
}

// Table is a full prep table that keeps its column order.
type Table struct {
	Path  string
	Index string
	df    dataframe.DataFrame
}

// Names returns the column names in order.
func (t *Table) Names() []string { return t.df.Names() }

// Nrow returns the number of data rows.
func (t *Table) Nrow() int { return t.df.Nrow() }

// HasColumn reports whether the table has a column called name.
func (t *Table) HasColumn(name string) bool {
	for _, n := range t.df.Names() {
		if n == name {
			return true
		}
	}
	return false
}

// Column returns a copy of the values of a column.
func (t *Table) Column(name string) ([]string, error) {
	if !t.HasColumn(name) {
		return nil, fmt.Errorf("column %q not found in %s", name, t.Path)
	}
	return t.df.Col(name).Records(), nil
}

// SetColumn replaces the values of an existing column, or appends a new
// trailing column.
func (t *Table) SetColumn(name string, values []string) error {
	if len(values) != t.df.Nrow() {
		return fmt.Errorf("column %q has %d values, table has %d rows", name, len(values), t.df.Nrow())
	}
	df := t.df.Mutate(series.New(values, series.String, name))
	if df.Err != nil {
		return df.Err
	}
	t.df = df
	return nil
}

// Write writes the header and rows, tab delimited, with no index column. A
// field is quoted only when it holds a tab, a quote or a line break, so
// untouched values are written back byte for byte.
func (t *Table) Write(w io.Writer) error {
	bw := bufio.NewWriter(w)
	for _, record := range t.df.Records() {
		for i, field := range record {
			if i > 0 {
				bw.WriteByte('\t')
			}
			bw.WriteString(quoteField(field))
		}
		bw.WriteByte('\n')
	}
	return bw.Flush()
}

func quoteField(field string) string {
	if !strings.ContainsAny(field, "\t\"\r\n") {
		return field
	}
	return `"` + strings.ReplaceAll(field, `"`, `""`) + `"`
}

// Parse reads a delimited file into records keyed by the identifier column.
// Every value is kept as a string.
func Parse(path string, opts ...Option) (*Records, error) {
	header, rows, idx, err := readRaw(path, opts...)
	if err != nil {
		return nil, err
	}

	out := &Records{
		Index: header[idx],
		ByID:  make(map[SampleID]Record, len(rows)),
	}
	for i, name := range header {
		if i != idx {
			out.Columns = append(out.Columns, name)
		}
	}

	for _, row := range rows {
		id := SampleID(row[idx])
		rec := make(Record, len(header)-1)
		for i, name := range header {
			if i != idx {
				rec[name] = row[i]
			}
		}
		out.IDs = append(out.IDs, id)
		out.ByID[id] = rec
	}
	return out, nil
}

// ParseTable reads a delimited file into a Table, keeping column order and
// string typing.
func ParseTable(path string, opts ...Option) (*Table, error) {
	header, rows, idx, err := readRaw(path, opts...)
	if err != nil {
		return nil, err
	}

	// Columns are built directly so gota never infers types or maps "NA" to NaN.
	cols := make([]series.Series, len(header))
	for i, name := range header {
		values := make([]string, len(rows))
		for r, row := range rows {
			values[r] = row[i]
		}
		cols[i] = series.New(values, series.String, name)
	}
	df := dataframe.New(cols...)
	if df.Err != nil {
		return nil, &MalformedTableError{Path: path, Reason: df.Err.Error()}
	}
	return &Table{Path: path, Index: header[idx], df: df}, nil
}

func readRaw(path string, opts ...Option) (header []string, rows [][]string, idx int, err error) {
	cfg := options{delimiter: '\t'}
	for _, opt := range opts {
		opt(&cfg)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, nil, 0, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.Comma = cfg.delimiter
	reader.LazyQuotes = true

	header, err = reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil, 0, &MalformedTableError{Path: path, Reason: "missing header"}
	}
	if err != nil {
		return nil, nil, 0, &MalformedTableError{Path: path, Reason: err.Error()}
	}

	seen := make(map[string]bool, len(header))
	idx = -1
	for i, name := range header {
		if strings.TrimSpace(name) == "" {
			return nil, nil, 0, &MalformedTableError{Path: path, Line: 1, Reason: fmt.Sprintf("column %d has no name", i+1)}
		}
		if seen[name] {
			return nil, nil, 0, &MalformedTableError{Path: path, Line: 1, Reason: fmt.Sprintf("duplicate column %q", name)}
		}
		seen[name] = true
		if name == cfg.indexColumn {
			idx = i
		}
	}
	if cfg.indexColumn == "" {
		idx = 0
	}
	if idx < 0 {
		return nil, nil, 0, &MalformedTableError{Path: path, Line: 1, Reason: fmt.Sprintf("missing identifier column %q", cfg.indexColumn)}
	}

	firstLine := make(map[string]int)
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, 0, &MalformedTableError{Path: path, Reason: err.Error()}
		}
		line, _ := reader.FieldPos(0)

		id := row[idx]
		if strings.TrimSpace(id) == "" {
			return nil, nil, 0, &MalformedTableError{Path: path, Line: line, Reason: fmt.Sprintf("empty identifier in column %q", header[idx])}
		}
		if prev, ok := firstLine[id]; ok {
			return nil, nil, 0, &DuplicateIdentifierError{Path: path, ID: SampleID(id), Lines: []int{prev, line}}
		}
		firstLine[id] = line

		rows = append(rows, row)
	}
	return header, rows, idx, nil
}

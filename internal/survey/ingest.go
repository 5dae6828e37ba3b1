package survey

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/scheme-cli/internal/scheme"
	"github.com/sells-group/scheme-cli/internal/stats"
	"github.com/sells-group/scheme-cli/internal/taxonomy"
)

// DefaultZone receives records without a zone column or with an empty zone cell.
const DefaultZone = "ALL"

// Options maps survey columns to taxonomy inputs. Columns are addressed by
// header name, or by 1-based position when the survey has no header row.
type Options struct {
	TaxonomyColumn string
	ZoneColumn     string
	DefaultZone    string
	HeightColumn   string
	YearColumn     string
	HeightRanges   taxonomy.RangeGroups
	YearRanges     taxonomy.RangeGroups
	HasHeader      bool
}

// Rejection is one record that could not be ingested.
type Rejection struct {
	Line  int
	Value string
	Err   error
}

// Report summarizes an ingestion run.
type Report struct {
	Accepted int
	Rejected []Rejection
	Zones    map[string]int
}

// Builder accumulates records into one statistics tree per zone.
type Builder struct {
	codec  *taxonomy.Codec
	opts   Options
	setup  func(*stats.Tree) error
	scheme *scheme.Scheme
	report Report

	header   bool
	taxCol   int
	zoneCol  int
	hgtCol   int
	yearCol  int
	resolved bool
}

// NewBuilder validates opts and prepares a builder. setup, if not nil,
// configures every new zone tree (attribute order, skip and modifier levels).
func NewBuilder(codec *taxonomy.Codec, opts Options, setup func(*stats.Tree) error) (*Builder, error) {
	if opts.TaxonomyColumn == "" {
		return nil, eris.New("survey: taxonomy column is required")
	}
	if err := opts.HeightRanges.Validate(); err != nil {
		return nil, eris.Wrap(err, "survey: height ranges")
	}
	if err := opts.YearRanges.Validate(); err != nil {
		return nil, eris.Wrap(err, "survey: year ranges")
	}
	if opts.DefaultZone == "" {
		opts.DefaultZone = DefaultZone
	}
	b := &Builder{
		codec:   codec,
		opts:    opts,
		setup:   setup,
		scheme:  scheme.New(codec),
		report:  Report{Zones: make(map[string]int)},
		header:  opts.HasHeader,
		zoneCol: -1,
		hgtCol:  -1,
		yearCol: -1,
	}
	if !opts.HasHeader {
		if err := b.resolve(nil); err != nil {
			return nil, err
		}
	}
	return b, nil
}

func (b *Builder) resolve(header []string) error {
	find := func(name string) (int, error) {
		if name == "" {
			return -1, nil
		}
		if header == nil {
			n, err := strconv.Atoi(name)
			if err != nil || n < 1 {
				return -1, eris.Errorf("survey: column %q must be a 1-based position without a header row", name)
			}
			return n - 1, nil
		}
		for i, h := range header {
			if strings.EqualFold(strings.TrimSpace(h), name) {
				return i, nil
			}
		}
		return -1, eris.Errorf("survey: column %q not found in header", name)
	}

	var err error
	if b.taxCol, err = find(b.opts.TaxonomyColumn); err != nil {
		return err
	}
	if b.zoneCol, err = find(b.opts.ZoneColumn); err != nil {
		return err
	}
	if b.hgtCol, err = find(b.opts.HeightColumn); err != nil {
		return err
	}
	if b.yearCol, err = find(b.opts.YearColumn); err != nil {
		return err
	}
	b.resolved = true
	return nil
}

// Add ingests one row. The first row is taken as the header when the survey
// has one. A record that cannot be ingested is rejected, logged and reported;
// only a bad header is returned as an error.
func (b *Builder) Add(row Row) error {
	if b.header {
		b.header = false
		return b.resolve(row.Cells)
	}
	if !b.resolved {
		return eris.New("survey: columns not resolved")
	}
	if len(row.Cells) == 0 || (len(row.Cells) == 1 && row.Cells[0] == "") {
		return nil
	}

	value := cell(row.Cells, b.taxCol)
	if err := b.add(row.Cells, value); err != nil {
		b.reject(row.Line, value, err)
	}
	return nil
}

func (b *Builder) add(cells []string, value string) error {
	if b.taxCol >= len(cells) {
		return eris.Errorf("survey: record has %d fields", len(cells))
	}
	parts := []string{value}
	if raw := cell(cells, b.hgtCol); raw != "" {
		s, err := formatNumeric(raw, b.opts.HeightRanges, taxonomy.FormatHeight, taxonomy.Exact)
		if err != nil {
			return eris.Wrap(err, "survey: height")
		}
		parts = append(parts, s)
	}
	if raw := cell(cells, b.yearCol); raw != "" {
		s, err := formatNumeric(raw, b.opts.YearRanges, taxonomy.FormatYear, taxonomy.Approximate)
		if err != nil {
			return eris.Wrap(err, "survey: year")
		}
		parts = append(parts, s)
	}

	zone := cell(cells, b.zoneCol)
	if zone == "" {
		zone = b.opts.DefaultZone
	}
	tree, ok := b.scheme.AssignmentByName(zone)
	fresh := !ok
	if fresh {
		tree = stats.New(b.codec)
		if b.setup != nil {
			if err := b.setup(tree); err != nil {
				return eris.Wrapf(err, "survey: configure zone %q", zone)
			}
		}
	}
	if err := tree.AddCase(strings.Join(parts, taxonomy.GroupSeparator)); err != nil {
		return err
	}
	if fresh {
		if err := b.scheme.Assign(zone, tree); err != nil {
			return err
		}
	}
	b.report.Accepted++
	b.report.Zones[zone]++
	return nil
}

func (b *Builder) reject(line int, value string, err error) {
	b.report.Rejected = append(b.report.Rejected, Rejection{Line: line, Value: value, Err: err})
	zap.L().Warn("survey: record rejected",
		zap.Int("line", line),
		zap.String("value", value),
		zap.Error(err),
	)
}

// formatNumeric encodes a height or year cell. With range groups the value is
// bucketed into a range; without, it is encoded with the fallback qualifier.
// Cells must hold whole numbers ("3" or "3.0").
func formatNumeric(raw string, ranges taxonomy.RangeGroups, format func(lo, hi *int, q taxonomy.Qualifier) string, fallback taxonomy.Qualifier) (string, error) {
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return "", eris.Errorf("not a number: %q", raw)
	}
	if f != math.Trunc(f) {
		return "", eris.Errorf("not a whole number: %q", raw)
	}
	if math.Abs(f) > math.MaxInt32 {
		return "", eris.Errorf("out of range: %q", raw)
	}
	v := int(f)
	if len(ranges) == 0 {
		return format(&v, &v, fallback), nil
	}
	bucket, ok := ranges.Bucket(v)
	if !ok {
		return format(nil, nil, taxonomy.Range), nil
	}
	return format(&bucket.Min, &bucket.Max, taxonomy.Range), nil
}

func cell(cells []string, i int) string {
	if i < 0 || i >= len(cells) {
		return ""
	}
	return cells[i]
}

// Consume drains a row stream into the builder.
func (b *Builder) Consume(ctx context.Context, rows <-chan Row, errs <-chan error) error {
	for row := range rows {
		if err := b.Add(row); err != nil {
			// keep draining so the producer goroutine can exit
			for range rows {
			}
			return err
		}
	}
	for err := range errs {
		if err != nil {
			return err
		}
	}
	return ctx.Err()
}

// Finish finalizes every zone tree and returns the scheme with the run report.
func (b *Builder) Finish() (*scheme.Scheme, Report) {
	for _, z := range b.scheme.Zones() {
		z.Tree.Finalize()
	}
	zap.L().Info("survey: ingestion complete",
		zap.Int("accepted", b.report.Accepted),
		zap.Int("rejected", len(b.report.Rejected)),
		zap.Int("zones", len(b.report.Zones)),
	)
	return b.scheme, b.report
}

// Source describes a survey file.
type Source struct {
	Path string
	CSV  CSVOptions
	XLSX XLSXOptions
}

// BuildFile ingests a CSV or XLSX survey (chosen by extension) into a finalized scheme.
func BuildFile(ctx context.Context, src Source, codec *taxonomy.Codec, opts Options, setup func(*stats.Tree) error) (*scheme.Scheme, Report, error) {
	b, err := NewBuilder(codec, opts, setup)
	if err != nil {
		return nil, Report{}, err
	}

	var (
		rows <-chan Row
		errs <-chan error
	)
	switch strings.ToLower(filepath.Ext(src.Path)) {
	case ".xlsx":
		rows, errs = StreamXLSX(ctx, src.Path, src.XLSX)
	default:
		f, err := os.Open(src.Path)
		if err != nil {
			return nil, Report{}, eris.Wrapf(err, "survey: open %s", src.Path)
		}
		defer f.Close() //nolint:errcheck
		rows, errs = StreamCSV(ctx, f, src.CSV)
	}

	if err := b.Consume(ctx, rows, errs); err != nil {
		return nil, Report{}, eris.Wrapf(err, "survey: ingest %s", src.Path)
	}
	s, report := b.Finish()
	return s, report, nil
}

// String summarizes a rejection for display.
func (r Rejection) String() string {
	return fmt.Sprintf("line %d: %q: %v", r.Line, r.Value, r.Err)
}

package domain

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// Canonical identifier column names after renaming.
const (
	ColCounty      = "county"
	ColCountyState = "county_state"
	ColFIPS        = "fips"
	ColLatitude    = "latitude"
	ColLongitude   = "longitud"
)

// State column candidates, in detection order.
var stateColumns = []string{"state", "province_state"}

// dateLayouts are tried in order against each date header.
var dateLayouts = []string{"1/2/06", "1/2/2006", "2006-01-02"}

type meltRules struct {
	metric Metric
	drop   map[string]bool
	rename map[string]string
	ids    []string
}

func casesRules(stateCol string) meltRules {
	return meltRules{
		metric: MetricCases,
		drop: map[string]bool{
			"uid": true, "iso3": true, "code3": true, "fips": true, "long_": true, "lat": true,
		},
		rename: map[string]string{"combined_key": ColCountyState},
		ids:    []string{ColCounty, stateCol, ColCountyState},
	}
}

func deathsRules(stateCol string) meltRules {
	return meltRules{
		metric: MetricDeaths,
		drop:   map[string]bool{"iso3": true, "population": true},
		rename: map[string]string{
			"combined_key": ColCountyState,
			"late":         ColLatitude,
			"lat":          ColLatitude,
			"long_":        ColLongitude,
		},
		ids: []string{ColFIPS, ColCounty, stateCol, ColLatitude, ColLongitude, ColCountyState},
	}
}

// NormalizeColumns returns a copy of df with lower-cased column names.
func NormalizeColumns(df dataframe.DataFrame) (dataframe.DataFrame, error) {
	if df.Err != nil {
		return df, fmt.Errorf("normalize columns: %w: %v", ErrSchema, df.Err)
	}
	out := df.Copy()
	names := out.Names()
	for i, n := range names {
		names[i] = strings.ToLower(strings.TrimSpace(n))
	}
	if err := out.SetNames(names...); err != nil {
		return df, fmt.Errorf("normalize columns: %w: %v", ErrSchema, err)
	}
	return out, nil
}

// DetectStateColumn returns "state" when present, else "province_state".
func DetectStateColumn(names []string) (string, error) {
	for _, candidate := range stateColumns {
		for _, n := range names {
			if n == candidate {
				return candidate, nil
			}
		}
	}
	return "", fmt.Errorf("detect state column: %w: none of %v present", ErrSchema, stateColumns)
}

// DistinctStates returns the sorted distinct non-missing values of col.
func DistinctStates(df dataframe.DataFrame, col string) ([]string, error) {
	if !hasColumn(df.Names(), col) {
		return nil, fmt.Errorf("distinct states: %w: column %q not found", ErrSchema, col)
	}
	seen := make(map[string]struct{})
	for _, v := range df.Col(col).Records() {
		if isMissing(v) {
			continue
		}
		seen[strings.TrimSpace(v)] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for s := range seen {
		out = append(out, s)
	}
	sort.Strings(out)
	return out, nil
}

// MeltCases reshapes the wide cases table into long form.
func MeltCases(df dataframe.DataFrame, stateCol string) (LongTable, error) {
	lt, err := melt(df, stateCol, casesRules(stateCol))
	return lt, AtStage(StageReshape, err)
}

// MeltDeaths reshapes the wide deaths table into long form.
func MeltDeaths(df dataframe.DataFrame, stateCol string) (LongTable, error) {
	lt, err := melt(df, stateCol, deathsRules(stateCol))
	return lt, AtStage(StageReshape, err)
}

func melt(df dataframe.DataFrame, stateCol string, rules meltRules) (LongTable, error) {
	if df.Err != nil {
		return LongTable{}, fmt.Errorf("melt %s: %w: %v", rules.metric, ErrSchema, df.Err)
	}

	isID := make(map[string]bool, len(rules.ids))
	for _, id := range rules.ids {
		isID[id] = true
	}

	type dateCol struct {
		source string
		header string
		date   time.Time
	}
	var (
		idSource = make(map[string]string) // canonical -> source column
		idOrder  []string
		dates    []dateCol
	)
	for _, name := range df.Names() {
		if rules.drop[name] {
			continue
		}
		canonical := name
		if r, ok := rules.rename[name]; ok {
			canonical = r
		}
		if isID[canonical] {
			if _, dup := idSource[canonical]; !dup {
				idSource[canonical] = name
				idOrder = append(idOrder, canonical)
			}
			continue
		}
		d, err := ParseDateHeader(name)
		if err != nil {
			return LongTable{}, fmt.Errorf("melt %s: %w", rules.metric, err)
		}
		dates = append(dates, dateCol{source: name, header: name, date: d})
	}

	for _, required := range []string{ColCounty, stateCol} {
		if _, ok := idSource[required]; !ok {
			return LongTable{}, fmt.Errorf("melt %s: %w: column %q not found", rules.metric, ErrSchema, required)
		}
	}

	idValues := make(map[string][]string, len(idOrder))
	for _, canonical := range idOrder {
		idValues[canonical] = df.Col(idSource[canonical]).Records()
	}
	ids := make([]Identity, df.Nrow())
	for i := range ids {
		ids[i] = Identity{
			County:      cell(idValues[ColCounty], i),
			State:       cell(idValues[stateCol], i),
			CountyState: cell(idValues[ColCountyState], i),
			FIPS:        cell(idValues[ColFIPS], i),
			Latitude:    cell(idValues[ColLatitude], i),
			Longitude:   cell(idValues[ColLongitude], i),
		}
	}

	lt := LongTable{
		Metric:      rules.metric,
		StateColumn: stateCol,
		IDColumns:   idOrder,
		DateColumns: make([]string, 0, len(dates)),
		Rows:        make([]LongRow, 0, len(dates)*len(ids)),
	}
	for _, dc := range dates {
		lt.DateColumns = append(lt.DateColumns, dc.header)
		values := df.Col(dc.source).Records()
		for i, raw := range values {
			v, err := ParseCount(raw)
			if err != nil {
				return LongTable{}, fmt.Errorf("melt %s: column %q row %d: %w", rules.metric, dc.header, i, err)
			}
			lt.Rows = append(lt.Rows, LongRow{ID: ids[i], Date: dc.date, Value: v})
		}
	}
	return lt, nil
}

// Pivot rebuilds the wide table from its long form. Identifier columns come
// first, then one column per date header, with rows in first-seen order.
func Pivot(lt LongTable) (dataframe.DataFrame, error) {
	header := make([]string, 0, len(lt.IDColumns)+len(lt.DateColumns))
	header = append(header, lt.IDColumns...)
	header = append(header, lt.DateColumns...)

	dateIndex := make(map[int64]int, len(lt.DateColumns))
	for j, h := range lt.DateColumns {
		d, err := ParseDateHeader(h)
		if err != nil {
			return dataframe.DataFrame{}, AtStage(StageReshape, fmt.Errorf("pivot %s: %w", lt.Metric, err))
		}
		dateIndex[d.Unix()] = len(lt.IDColumns) + j
	}

	rowIndex := make(map[Identity]int)
	records := [][]string{header}
	for _, r := range lt.Rows {
		idx, ok := rowIndex[r.ID]
		if !ok {
			rec := make([]string, len(header))
			for j, col := range lt.IDColumns {
				rec[j] = identityValue(r.ID, col, lt.StateColumn)
			}
			records = append(records, rec)
			idx = len(records) - 1
			rowIndex[r.ID] = idx
		}
		col, ok := dateIndex[r.Date.Unix()]
		if !ok {
			return dataframe.DataFrame{}, AtStage(StageReshape,
				fmt.Errorf("pivot %s: %w: date %s has no column", lt.Metric, ErrSchema, r.Date.Format(time.DateOnly)))
		}
		records[idx][col] = strconv.FormatInt(r.Value, 10)
	}

	df := dataframe.LoadRecords(records,
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
	)
	if df.Err != nil {
		return df, AtStage(StageReshape, fmt.Errorf("pivot %s: %w: %v", lt.Metric, ErrSchema, df.Err))
	}
	return df, nil
}

// ParseDateHeader parses a wide-table date header as a UTC calendar date.
func ParseDateHeader(h string) (time.Time, error) {
	s := strings.TrimSpace(h)
	for _, layout := range dateLayouts {
		if d, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return d, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrMalformedDateColumn, h)
}

// ParseCount parses a cumulative count cell. Missing markers count as zero and
// fractional values are rounded.
func ParseCount(raw string) (int64, error) {
	s := strings.TrimSpace(raw)
	if isMissing(s) {
		return 0, nil
	}
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return v, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%w: count %q is not numeric", ErrSchema, raw)
	}
	if math.IsNaN(f) {
		return 0, nil
	}
	return int64(math.Round(f)), nil
}

func isMissing(s string) bool {
	switch strings.TrimSpace(s) {
	case "", "NA", "NaN", "nan", "<nil>":
		return true
	}
	return false
}

func cell(values []string, i int) string {
	if values == nil || i >= len(values) || isMissing(values[i]) {
		return ""
	}
	return strings.TrimSpace(values[i])
}

func identityValue(id Identity, col, stateCol string) string {
	switch col {
	case ColCounty:
		return id.County
	case stateCol:
		return id.State
	case ColCountyState:
		return id.CountyState
	case ColFIPS:
		return id.FIPS
	case ColLatitude:
		return id.Latitude
	case ColLongitude:
		return id.Longitude
	}
	return ""
}

func hasColumn(names []string, col string) bool {
	for _, n := range names {
		if n == col {
			return true
		}
	}
	return false
}

package census

import (
	"context"
	"encoding/json"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/one-labs/streets-cli/internal/fetcher"
	"github.com/one-labs/streets-cli/internal/resilience"
)

// Level selects the geography of an ACS query.
type Level int

const (
	// LevelTract queries tract-level estimates.
	LevelTract Level = iota
	// LevelBlockGroup queries block-group-level estimates.
	LevelBlockGroup
)

// geoColumns is the number of trailing geography columns the API appends to
// every response row for this level.
func (l Level) geoColumns() int {
	if l == LevelBlockGroup {
		return 4 // state, county, tract, block group
	}
	return 3 // state, county, tract
}

func (l Level) forClause() string {
	if l == LevelBlockGroup {
		return "block group:*"
	}
	return "tract:*"
}

func (l Level) inClause(state, county string) string {
	in := "state:" + zfill(state, stateWidth) + " county:" + zfill(county, countyWidth)
	if l == LevelBlockGroup {
		in += " tract:*"
	}
	return in
}

// Table is a tabular estimate dataset: a header row plus data rows keyed by
// the trailing geography columns of each fetch batch.
type Table struct {
	Header []string
	Rows   [][]string
}

// ACSClient retrieves wide tabular datasets from the ACS API, batching the
// variable list to stay under the columns-per-request limit.
type ACSClient struct {
	http       *fetcher.Client
	baseURL    string
	apiKey     string
	batchSize  int
	batchDelay time.Duration
	retry      resilience.Policy
	sleep      func(ctx context.Context, d time.Duration) error
}

// NewACSClient creates an ACSClient. batchSize is the number of variables
// requested per call; batchDelay is honored between successful batches.
func NewACSClient(http *fetcher.Client, baseURL, apiKey string, batchSize int, batchDelay time.Duration, retry resilience.Policy) *ACSClient {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &ACSClient{
		http:       http,
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		batchSize:  batchSize,
		batchDelay: batchDelay,
		retry:      retry,
		sleep:      sleepCtx,
	}
}

// geo pseudo-variables that appear in variables.json but are not estimates.
var pseudoVariables = map[string]bool{
	"state":       true,
	"county":      true,
	"tract":       true,
	"block group": true,
	"for":         true,
	"in":          true,
	"NAME":        true,
}

// Variables retrieves the dataset's variable list and keeps the estimate
// variables (the "E"-suffixed ones), sorted for deterministic batching.
// NAME is excluded here because every request leads with it.
func (c *ACSClient) Variables(ctx context.Context) ([]string, error) {
	body, err := resilience.DoVal(ctx, c.retry, func(ctx context.Context) ([]byte, error) {
		return c.http.Get(ctx, c.baseURL+"/variables.json")
	})
	if err != nil {
		return nil, eris.Wrap(err, "census: fetch variable list")
	}

	var payload struct {
		Variables map[string]json.RawMessage `json:"variables"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, eris.Wrap(err, "census: parse variable list")
	}

	var vars []string
	for name := range payload.Variables {
		if strings.HasSuffix(name, "E") && !pseudoVariables[name] {
			vars = append(vars, name)
		}
	}
	sort.Strings(vars)

	zap.L().Info("retrieved ACS variable list", zap.Int("estimate_variables", len(vars)))
	return vars, nil
}

// FetchCounty retrieves all variables for one county at the given level,
// issuing ceil(len(variables)/batchSize) requests and merging the batches
// column-wise. Any batch failing after retries fails the whole county.
func (c *ACSClient) FetchCounty(ctx context.Context, level Level, state, county string, variables []string) (*Table, error) {
	log := zap.L().With(
		zap.String("component", "census.acs"),
		zap.String("county", county),
	)

	batches := batchVariables(variables, c.batchSize)
	geoCols := level.geoColumns()

	var table *Table
	// Geography keys from the first batch; every later batch must return
	// the same rows in the same order, which the API does not guarantee
	// explicitly, so it is verified rather than assumed.
	var geoKeys []string

	for i, batch := range batches {
		log.Debug("fetching variable batch",
			zap.Int("batch", i+1),
			zap.Int("batches", len(batches)),
			zap.Int("variables", len(batch)),
		)

		rows, err := c.fetchBatch(ctx, level, state, county, batch)
		if err != nil {
			return nil, eris.Wrapf(err, "census: county %s batch %d/%d", county, i+1, len(batches))
		}

		if table == nil {
			table = &Table{Header: rows[0], Rows: rows[1:]}
			geoKeys = trailingKeys(rows[1:], geoCols)
		} else if err := mergeBatch(table, rows, geoCols, geoKeys); err != nil {
			return nil, eris.Wrapf(err, "census: county %s batch %d/%d", county, i+1, len(batches))
		}

		if i < len(batches)-1 {
			if err := c.sleep(ctx, c.batchDelay); err != nil {
				return nil, eris.Wrap(err, "census: county fetch cancelled")
			}
		}
	}

	if table == nil {
		return nil, eris.Errorf("census: no data returned for county %s", county)
	}
	log.Info("county fetch complete",
		zap.Int("rows", len(table.Rows)),
		zap.Int("columns", len(table.Header)),
	)
	return table, nil
}

// fetchBatch issues one ACS request for a variable batch, retrying with the
// shared policy. The response is a 2-D array whose row 0 is the header.
func (c *ACSClient) fetchBatch(ctx context.Context, level Level, state, county string, batch []string) ([][]string, error) {
	params := url.Values{
		"get": {"NAME," + strings.Join(batch, ",")},
		"for": {level.forClause()},
		"in":  {level.inClause(state, county)},
	}
	if c.apiKey != "" {
		params.Set("key", c.apiKey)
	}
	reqURL := c.baseURL + "?" + params.Encode()

	policy := c.retry
	policy.OnRetry = resilience.RetryLogger("acs", "fetch batch")

	body, err := resilience.DoVal(ctx, policy, func(ctx context.Context) ([]byte, error) {
		return c.http.Get(ctx, reqURL)
	})
	if err != nil {
		return nil, err
	}

	var rows [][]string
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, eris.Wrap(err, "parse response")
	}
	if len(rows) < 1 {
		return nil, eris.New("empty response")
	}
	// A ragged payload would index out of range downstream, so it is a hard
	// error here rather than a retry.
	for i, row := range rows[1:] {
		if len(row) != len(rows[0]) {
			return nil, eris.Errorf("row %d width %d does not match header width %d", i, len(row), len(rows[0]))
		}
	}
	return rows, nil
}

// mergeBatch extends every row of table with the new batch's variable
// columns, dropping the batch's duplicated NAME column and trailing
// geography columns. Row count and per-row geography keys must match the
// first batch exactly; a mismatch would silently misalign values across
// geographies, so it aborts the merge instead.
func mergeBatch(table *Table, rows [][]string, geoCols int, geoKeys []string) error {
	header, data := rows[0], rows[1:]
	if len(data) != len(table.Rows) {
		return eris.Errorf("row count mismatch: batch returned %d rows, expected %d", len(data), len(table.Rows))
	}
	if len(header) < 1+geoCols {
		return eris.Errorf("batch header too narrow: %d columns", len(header))
	}

	for i, row := range data {
		if len(row) != len(header) {
			return eris.Errorf("row %d width %d does not match header width %d", i, len(row), len(header))
		}
		key := strings.Join(row[len(row)-geoCols:], "|")
		if key != geoKeys[i] {
			return eris.Errorf("geography mismatch at row %d: %q != %q", i, key, geoKeys[i])
		}
	}

	table.Header = append(table.Header, header[1:len(header)-geoCols]...)
	for i, row := range data {
		table.Rows[i] = append(table.Rows[i], row[1:len(row)-geoCols]...)
	}
	return nil
}

// trailingKeys extracts the joined trailing geography columns of each row.
func trailingKeys(rows [][]string, geoCols int) []string {
	keys := make([]string, len(rows))
	for i, row := range rows {
		if len(row) >= geoCols {
			keys[i] = strings.Join(row[len(row)-geoCols:], "|")
		}
	}
	return keys
}

// batchVariables partitions variables into fixed-size batches.
func batchVariables(variables []string, size int) [][]string {
	var batches [][]string
	for start := 0; start < len(variables); start += size {
		end := start + size
		if end > len(variables) {
			end = len(variables)
		}
		batches = append(batches, variables[start:end])
	}
	return batches
}

// ConcatTables concatenates per-county tables with identical headers into
// one table, preserving row order across counties.
func ConcatTables(tables []*Table) (*Table, error) {
	if len(tables) == 0 {
		return nil, eris.New("census: no tables to concatenate")
	}
	out := &Table{Header: tables[0].Header}
	for _, t := range tables {
		if len(t.Header) != len(out.Header) {
			return nil, eris.Errorf("census: header width mismatch: %d != %d", len(t.Header), len(out.Header))
		}
		out.Rows = append(out.Rows, t.Rows...)
	}
	return out, nil
}

// GEOIDs computes the composite GEOID for every row from the table's
// geography columns (located by header name, since merged rows interleave
// variable and geography columns).
func (t *Table) GEOIDs(level Level) ([]string, error) {
	stateIdx := fetcher.ColumnIndex(t.Header, "state")
	countyIdx := fetcher.ColumnIndex(t.Header, "county")
	tractIdx := fetcher.ColumnIndex(t.Header, "tract")
	bgIdx := fetcher.ColumnIndex(t.Header, "block group")

	if stateIdx < 0 || countyIdx < 0 || tractIdx < 0 {
		return nil, eris.New("census: table missing geography columns")
	}
	if level == LevelBlockGroup && bgIdx < 0 {
		return nil, eris.New("census: table missing block group column")
	}

	ids := make([]string, len(t.Rows))
	for i, row := range t.Rows {
		if level == LevelBlockGroup {
			ids[i] = BlockGroupGEOID(row[stateIdx], row[countyIdx], row[tractIdx], row[bgIdx])
		} else {
			ids[i] = TractGEOID(row[stateIdx], row[countyIdx], row[tractIdx])
		}
	}
	return ids, nil
}

package census

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/one-labs/streets-cli/internal/fetcher"
	"github.com/one-labs/streets-cli/internal/resilience"
)

func fastRetry() resilience.Policy {
	return resilience.Policy{MaxAttempts: 2, BaseDelay: time.Millisecond, Multiplier: 2.0, MaxDelay: time.Millisecond}
}

func newTestACSClient(srv *httptest.Server, batchSize int) *ACSClient {
	c := NewACSClient(fetcher.NewClient(fetcher.HTTPOptions{}), srv.URL, "", batchSize, 0, fastRetry())
	c.sleep = func(ctx context.Context, d time.Duration) error { return nil }
	return c
}

// acsHandler answers tract-level estimate requests with synthetic values of
// the form <variable>/<tract> so merged columns can be traced back.
func acsHandler(t *testing.T, tracts []string, requests *int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		*requests++
		get := r.URL.Query().Get("get")
		require.True(t, strings.HasPrefix(get, "NAME,"), "every request leads with NAME")
		assert.Equal(t, "tract:*", r.URL.Query().Get("for"))
		assert.Equal(t, "state:36 county:005", r.URL.Query().Get("in"))

		cols := strings.Split(get, ",")
		rows := [][]string{append(append([]string{}, cols...), "state", "county", "tract")}
		for _, tract := range tracts {
			row := []string{"Census Tract " + tract}
			for _, v := range cols[1:] {
				row = append(row, v+"/"+tract)
			}
			row = append(row, "36", "005", tract)
			rows = append(rows, row)
		}
		json.NewEncoder(w).Encode(rows)
	}
}

func TestFetchCountyBatchesAndMerges(t *testing.T) {
	variables := []string{"B01_1E", "B01_2E", "B02_1E", "B02_2E", "B03_1E"}
	tracts := []string{"000100", "000200"}

	requests := 0
	srv := httptest.NewServer(acsHandler(t, tracts, &requests))
	defer srv.Close()

	c := newTestACSClient(srv, 2)
	table, err := c.FetchCounty(context.Background(), LevelTract, "36", "005", variables)
	require.NoError(t, err)

	// ceil(5/2) = 3 requests.
	assert.Equal(t, 3, requests)

	// First batch keeps NAME and the geography columns; later batches
	// contribute only their variable columns.
	assert.Equal(t, []string{"NAME", "B01_1E", "B01_2E", "state", "county", "tract", "B02_1E", "B02_2E", "B03_1E"}, table.Header)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, "Census Tract 000100", table.Rows[0][0])
	assert.Equal(t, "B01_1E/000100", table.Rows[0][1])
	assert.Equal(t, "B03_1E/000200", table.Rows[1][8])

	ids, err := table.GEOIDs(LevelTract)
	require.NoError(t, err)
	assert.Equal(t, []string{"36005000100", "36005000200"}, ids)
}

func TestFetchCountyFailsAfterRetries(t *testing.T) {
	requests := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := newTestACSClient(srv, 10)
	_, err := c.FetchCounty(context.Background(), LevelTract, "36", "005", []string{"B01_1E"})
	require.Error(t, err)
	assert.Equal(t, 2, requests)
	assert.Contains(t, err.Error(), "county 005")
}

func TestFetchCountyRejectsRaggedRows(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[
			["NAME","B01_1E","state","county","tract"],
			["Tract 1","1500","36","005","000100"],
			["short"]
		]`))
	}))
	defer srv.Close()

	c := newTestACSClient(srv, 10)
	table, err := c.FetchCounty(context.Background(), LevelTract, "36", "005", []string{"B01_1E"})
	require.Error(t, err)
	assert.Nil(t, table)
	assert.Contains(t, err.Error(), "width 1 does not match header width 5")
}

func TestVariablesKeepsEstimates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/variables.json", r.URL.Path)
		w.Write([]byte(`{"variables":{
			"B01001_001E":{},
			"B01001_001M":{},
			"B02001_002E":{},
			"NAME":{},
			"state":{},
			"for":{}
		}}`))
	}))
	defer srv.Close()

	c := newTestACSClient(srv, 10)
	vars, err := c.Variables(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"B01001_001E", "B02001_002E"}, vars)
}

func TestMergeBatchRowCountMismatch(t *testing.T) {
	table := &Table{
		Header: []string{"NAME", "V1E", "state", "county", "tract"},
		Rows:   [][]string{{"a", "1", "36", "005", "000100"}, {"b", "2", "36", "005", "000200"}},
	}
	keys := trailingKeys(table.Rows, 3)

	batch := [][]string{
		{"NAME", "V2E", "state", "county", "tract"},
		{"a", "9", "36", "005", "000100"},
	}
	err := mergeBatch(table, batch, 3, keys)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "row count mismatch")
}

func TestMergeBatchGeographyMismatch(t *testing.T) {
	table := &Table{
		Header: []string{"NAME", "V1E", "state", "county", "tract"},
		Rows:   [][]string{{"a", "1", "36", "005", "000100"}, {"b", "2", "36", "005", "000200"}},
	}
	keys := trailingKeys(table.Rows, 3)

	// Rows come back in a different order.
	batch := [][]string{
		{"NAME", "V2E", "state", "county", "tract"},
		{"b", "9", "36", "005", "000200"},
		{"a", "8", "36", "005", "000100"},
	}
	err := mergeBatch(table, batch, 3, keys)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "geography mismatch")
}

func TestBatchVariables(t *testing.T) {
	batches := batchVariables([]string{"a", "b", "c", "d", "e"}, 2)
	require.Len(t, batches, 3)
	assert.Equal(t, []string{"a", "b"}, batches[0])
	assert.Equal(t, []string{"e"}, batches[2])

	assert.Nil(t, batchVariables(nil, 2))
}

func TestConcatTables(t *testing.T) {
	a := &Table{Header: []string{"NAME", "state"}, Rows: [][]string{{"a", "36"}}}
	b := &Table{Header: []string{"NAME", "state"}, Rows: [][]string{{"b", "36"}, {"c", "36"}}}

	out, err := ConcatTables([]*Table{a, b})
	require.NoError(t, err)
	require.Len(t, out.Rows, 3)
	assert.Equal(t, "a", out.Rows[0][0])
	assert.Equal(t, "c", out.Rows[2][0])

	_, err = ConcatTables([]*Table{a, {Header: []string{"NAME"}}})
	assert.Error(t, err)

	_, err = ConcatTables(nil)
	assert.Error(t, err)
}

func TestTableGEOIDsBlockGroup(t *testing.T) {
	table := &Table{
		Header: []string{"NAME", "B01E", "state", "county", "tract", "block group"},
		Rows:   [][]string{{"x", "1", "36", "5", "100", "1"}},
	}
	ids, err := table.GEOIDs(LevelBlockGroup)
	require.NoError(t, err)
	assert.Equal(t, []string{"360050001001"}, ids)

	_, err = (&Table{Header: []string{"NAME"}}).GEOIDs(LevelTract)
	assert.Error(t, err)
}

package fetcher

import (
	"encoding/csv"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/charmap"
)

// ReadCSVFile reads a CSV file with a text-encoding fallback chain:
// UTF-8, then Latin-1 (ISO 8859-1), then Windows-1252. Lookup tables
// exported from desktop GIS tools routinely arrive in one of the legacy
// encodings, so decode failure falls back rather than aborting.
//
// Latin-1 assigns a code point to every byte, so the Windows-1252 leg is
// reached only if the chain order is ever changed; it is kept to mirror the
// documented fallback contract.
func ReadCSVFile(path string) ([][]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "fetcher: read csv %s", path)
	}

	text, enc, err := decodeFallback(data)
	if err != nil {
		return nil, eris.Wrapf(err, "fetcher: decode csv %s", path)
	}
	if enc != "utf-8" {
		zap.L().Debug("fetcher: csv decoded with fallback encoding",
			zap.String("path", path),
			zap.String("encoding", enc),
		)
	}

	reader := csv.NewReader(strings.NewReader(text))
	reader.FieldsPerRecord = -1 // allow variable fields
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, eris.Wrapf(err, "fetcher: parse csv %s", path)
	}
	return rows, nil
}

// decodeFallback decodes data with the first encoding in the chain that
// accepts it, returning the text and the encoding name.
func decodeFallback(data []byte) (string, string, error) {
	if utf8.Valid(data) {
		return string(data), "utf-8", nil
	}

	for _, cand := range []struct {
		name string
		cm   *charmap.Charmap
	}{
		{"latin-1", charmap.ISO8859_1},
		{"cp1252", charmap.Windows1252},
	} {
		decoded, err := cand.cm.NewDecoder().Bytes(data)
		if err == nil {
			return string(decoded), cand.name, nil
		}
	}

	return "", "", eris.New("no encoding in the fallback chain accepted the input")
}

// ColumnIndex returns the index of the named column in a header row,
// matching case-insensitively, or -1 if absent.
func ColumnIndex(header []string, name string) int {
	for i, h := range header {
		if strings.EqualFold(strings.TrimSpace(h), name) {
			return i
		}
	}
	return -1
}

package dataset

import (
	"bytes"
	"context"
	"encoding/csv"
	"io"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// CSVOptions configures delimited-text parsing.
type CSVOptions struct {
	Delimiter rune // 0 = sniff from the header line
	Comment   rune // comment character (0 = none)
	TrimSpace bool
}

// sniffCandidates lists delimiters tried when none is configured, in
// tie-break order.
var sniffCandidates = []rune{',', ';', '\t', '|'}

// ParseCSV reads delimited text with a header row. A UTF-8 or UTF-16 byte
// order mark is honored and stripped.
func ParseCSV(ctx context.Context, name string, r io.Reader, opts CSVOptions) (*Table, error) {
	decoded := transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))
	data, err := io.ReadAll(decoded)
	if err != nil {
		return nil, eris.Wrap(err, "csv: read input")
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, eris.New("csv: input is empty")
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = opts.Delimiter
	if reader.Comma == 0 {
		reader.Comma = SniffDelimiter(firstLine(data))
	}
	if opts.Comment != 0 {
		reader.Comment = opts.Comment
	}
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1 // allow ragged rows

	var header []string
	var records [][]string
	for {
		if ctx.Err() != nil {
			return nil, eris.Wrap(ctx.Err(), "csv: context cancelled")
		}

		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrap(err, "csv: read row")
		}

		if opts.TrimSpace {
			for i, field := range record {
				record[i] = strings.TrimSpace(field)
			}
		}

		if header == nil {
			header = record
			continue
		}
		records = append(records, record)
	}

	if header == nil {
		return nil, eris.New("csv: missing header row")
	}
	return fromRecords(name, header, records), nil
}

// SniffDelimiter picks the candidate delimiter occurring most often outside
// quotes in line. Comma wins ties and empty input.
func SniffDelimiter(line string) rune {
	counts := make(map[rune]int, len(sniffCandidates))
	inQuotes := false
	for _, r := range line {
		if r == '"' {
			inQuotes = !inQuotes
			continue
		}
		if !inQuotes {
			counts[r]++
		}
	}

	best := ','
	bestCount := 0
	for _, c := range sniffCandidates {
		if counts[c] > bestCount {
			best, bestCount = c, counts[c]
		}
	}
	return best
}

func firstLine(data []byte) string {
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		return string(data[:i])
	}
	return string(data)
}

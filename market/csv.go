package market

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"
)

// LoadCSV reads price history rows:
//
//	time,instrument,price[,volume]
//
// where time is RFC3339 or RFC3339Nano. A header row ("time,...") is
// allowed, empty and short rows are skipped, and rows are kept in file
// order per instrument.
func LoadCSV(r io.Reader) (StaticProvider, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	out := StaticProvider{}
	first := true
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if len(row) == 0 {
			continue
		}
		if first {
			first = false
			if strings.EqualFold(strings.TrimSpace(row[0]), "time") {
				continue
			}
		}

		sym, p, ok, err := parsePointRow(row)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		out[sym] = append(out[sym], p)
	}
	return out, nil
}

// LoadCSVFile opens path and reads it with LoadCSV.
func LoadCSVFile(path string) (StaticProvider, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return LoadCSV(f)
}

// WriteCSV writes hist in the LoadCSV layout, instruments sorted.
func WriteCSV(w io.Writer, hist map[string]Series) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"time", "instrument", "price", "volume"}); err != nil {
		return err
	}
	for _, sym := range Symbols(hist) {
		for _, p := range hist[sym] {
			row := []string{
				p.Time.UTC().Format(time.RFC3339),
				sym,
				strconv.FormatFloat(p.Price, 'f', -1, 64),
				strconv.FormatFloat(p.Volume, 'f', -1, 64),
			}
			if err := cw.Write(row); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

func parsePointRow(row []string) (string, Point, bool, error) {
	if len(row) < 3 {
		return "", Point{}, false, nil
	}

	ts := strings.TrimSpace(row[0])
	if ts == "" {
		return "", Point{}, false, nil
	}
	t, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		t2, err2 := time.Parse(time.RFC3339Nano, ts)
		if err2 != nil {
			return "", Point{}, false, fmt.Errorf("bad time %q: %w", ts, err)
		}
		t = t2
	}

	sym := strings.ToUpper(strings.TrimSpace(row[1]))
	if sym == "" {
		return "", Point{}, false, nil
	}

	price, err := strconv.ParseFloat(strings.TrimSpace(row[2]), 64)
	if err != nil {
		return "", Point{}, false, fmt.Errorf("bad price %q: %w", row[2], err)
	}

	var vol float64
	if len(row) > 3 && strings.TrimSpace(row[3]) != "" {
		vol, err = strconv.ParseFloat(strings.TrimSpace(row[3]), 64)
		if err != nil {
			return "", Point{}, false, fmt.Errorf("bad volume %q: %w", row[3], err)
		}
	}

	return sym, Point{Time: t, Price: price, Volume: vol}, true, nil
}

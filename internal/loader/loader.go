// Package loader parses the CSV files the pipeline consumes: dated economic
// series records and daily OHLCV price bars. It is a boundary collaborator;
// everything it returns still goes through the validator.
package loader

import (
	"encoding/csv"
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"econquant/internal/domain/models"
	"econquant/pkg/util"
)

// ReadRecords parses a series_id,date,value[,source] file into raw records.
// An empty value cell becomes NaN and an empty date cell a zero time, so the
// validator can report or repair them; anything malformed beyond that is a
// load failure.
func ReadRecords(path string) ([]models.RawIndicatorRecord, error) {
	rows, cols, err := readTable(path, []string{"series_id", "date", "value"})
	if err != nil {
		return nil, err
	}

	sourceIdx, hasSource := cols["source"]
	records := make([]models.RawIndicatorRecord, 0, len(rows))
	for i, row := range rows {
		rec := models.RawIndicatorRecord{
			SeriesID: cell(row, cols["series_id"]),
			Value:    math.NaN(),
		}
		if hasSource {
			rec.Source = cell(row, sourceIdx)
		}

		if ds := cell(row, cols["date"]); ds != "" {
			t, ok := util.ParseDate(ds)
			if !ok {
				return nil, loadErr(path, fmt.Errorf("row %d: unparsable date %q", i+2, ds))
			}
			rec.Date = t
		}
		if vs := cell(row, cols["value"]); vs != "" {
			v, err := strconv.ParseFloat(vs, 64)
			if err != nil {
				return nil, loadErr(path, fmt.Errorf("row %d value: %w", i+2, err))
			}
			rec.Value = v
		}
		records = append(records, rec)
	}
	return records, nil
}

// ReadPrices parses a symbol,date,open,high,low,close[,volume] file into
// daily bars. Price rows are strict: the backtest ledger cannot repair a
// missing close the way the validator repairs a series gap.
func ReadPrices(path string) ([]models.OHLCV, error) {
	required := []string{"symbol", "date", "open", "high", "low", "close"}
	rows, cols, err := readTable(path, required)
	if err != nil {
		return nil, err
	}

	volumeIdx, hasVolume := cols["volume"]
	prices := make([]models.OHLCV, 0, len(rows))
	for i, row := range rows {
		bar := models.OHLCV{Symbol: cell(row, cols["symbol"])}

		ds := cell(row, cols["date"])
		t, ok := util.ParseDate(ds)
		if !ok {
			return nil, loadErr(path, fmt.Errorf("row %d: unparsable date %q", i+2, ds))
		}
		bar.Date = t

		for _, f := range []struct {
			name string
			dst  *float64
		}{
			{"open", &bar.Open}, {"high", &bar.High}, {"low", &bar.Low}, {"close", &bar.Close},
		} {
			v, err := strconv.ParseFloat(cell(row, cols[f.name]), 64)
			if err != nil {
				return nil, loadErr(path, fmt.Errorf("row %d %s: %w", i+2, f.name, err))
			}
			*f.dst = v
		}
		if hasVolume {
			if vs := cell(row, volumeIdx); vs != "" {
				v, err := strconv.ParseFloat(vs, 64)
				if err != nil {
					return nil, loadErr(path, fmt.Errorf("row %d volume: %w", i+2, err))
				}
				bar.Volume = v
			}
		}
		prices = append(prices, bar)
	}
	return prices, nil
}

// readTable reads the whole file, maps lowercased header names to column
// indexes, and checks the required columns are present.
func readTable(path string, required []string) ([][]string, map[string]int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, loadErr(path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	all, err := reader.ReadAll()
	if err != nil {
		return nil, nil, loadErr(path, err)
	}
	if len(all) <= 1 {
		return nil, nil, loadErr(path, errors.New("no data rows"))
	}

	cols := map[string]int{}
	for idx, name := range all[0] {
		cols[strings.ToLower(strings.TrimSpace(name))] = idx
	}
	for _, name := range required {
		if _, ok := cols[name]; !ok {
			return nil, nil, loadErr(path, fmt.Errorf("missing column %q", name))
		}
	}
	return all[1:], cols, nil
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func loadErr(path string, err error) error {
	return &models.DataLoadError{Path: path, Err: err}
}

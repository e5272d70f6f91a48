// Package loader is the reference Bar loader of spec.md §6: a CSV reader
// that turns one file per symbol into a bar.Series, plus a helper that
// merges several symbols' series into the synchronized Timestep stream the
// backtest engine consumes. It is a non-core collaborator: any caller that
// can produce bar.Series can drive the engine without it.
package loader

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/vadiminshakov/dgquant/backtest"
	"github.com/vadiminshakov/dgquant/bar"
)

// expected CSV header: timestamp,open,high,low,close,volume
// timestamp is RFC3339.
var csvHeader = []string{"timestamp", "open", "high", "low", "close", "volume"}

// LoadCSV reads one symbol's bar.Series from a CSV file at path.
func LoadCSV(path string) (bar.Series, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return nil, errors.Wrapf(err, "read header of %s", path)
	}
	if err := validateHeader(header); err != nil {
		return nil, errors.Wrapf(err, "%s", path)
	}

	var series bar.Series
	line := 1
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, "%s: line %d", path, line)
		}
		line++

		b, err := parseRecord(record)
		if err != nil {
			return nil, errors.Wrapf(err, "%s: line %d", path, line)
		}
		series = append(series, b)
	}

	if err := series.Validate(); err != nil {
		return nil, errors.Wrapf(err, "%s: series validation", path)
	}
	return series, nil
}

func validateHeader(header []string) error {
	if len(header) != len(csvHeader) {
		return errors.Errorf("expected %d columns, got %d", len(csvHeader), len(header))
	}
	for i, want := range csvHeader {
		if strings.TrimSpace(strings.ToLower(header[i])) != want {
			return errors.Errorf("expected column %d to be %q, got %q", i, want, header[i])
		}
	}
	return nil
}

func parseRecord(record []string) (bar.Bar, error) {
	if len(record) != len(csvHeader) {
		return bar.Bar{}, errors.Errorf("expected %d fields, got %d", len(csvHeader), len(record))
	}
	ts, err := time.Parse(time.RFC3339, strings.TrimSpace(record[0]))
	if err != nil {
		return bar.Bar{}, errors.Wrap(err, "parse timestamp")
	}
	open, err := decimal.NewFromString(strings.TrimSpace(record[1]))
	if err != nil {
		return bar.Bar{}, errors.Wrap(err, "parse open")
	}
	high, err := decimal.NewFromString(strings.TrimSpace(record[2]))
	if err != nil {
		return bar.Bar{}, errors.Wrap(err, "parse high")
	}
	low, err := decimal.NewFromString(strings.TrimSpace(record[3]))
	if err != nil {
		return bar.Bar{}, errors.Wrap(err, "parse low")
	}
	closeVal, err := decimal.NewFromString(strings.TrimSpace(record[4]))
	if err != nil {
		return bar.Bar{}, errors.Wrap(err, "parse close")
	}
	volume, err := decimal.NewFromString(strings.TrimSpace(record[5]))
	if err != nil {
		return bar.Bar{}, errors.Wrap(err, "parse volume")
	}
	return bar.New(ts, open, high, low, closeVal, volume)
}

// LoadDir reads every "<symbol>.csv" file in dir into a map keyed by
// symbol (the file's base name without extension).
func LoadDir(dir string) (map[string]bar.Series, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "read dir %s", dir)
	}
	out := make(map[string]bar.Series)
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".csv" {
			continue
		}
		symbol := strings.TrimSuffix(entry.Name(), ".csv")
		series, err := LoadCSV(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		out[symbol] = series
	}
	return out, nil
}

// BuildTimesteps merges per-symbol bar.Series sharing a common interval
// into a sorted, deduplicated stream of backtest.Timestep, one per
// distinct timestamp across all symbols. A symbol missing a bar at a given
// timestamp is simply absent from that Timestep's Bars map (spec.md §7's
// data-gap case).
func BuildTimesteps(series map[string]bar.Series) []backtest.Timestep {
	byTime := make(map[time.Time]map[string]bar.Bar)
	for symbol, s := range series {
		for _, b := range s {
			bucket, ok := byTime[b.Timestamp]
			if !ok {
				bucket = make(map[string]bar.Bar)
				byTime[b.Timestamp] = bucket
			}
			bucket[symbol] = b
		}
	}

	timestamps := make([]time.Time, 0, len(byTime))
	for ts := range byTime {
		timestamps = append(timestamps, ts)
	}
	sort.Slice(timestamps, func(i, j int) bool { return timestamps[i].Before(timestamps[j]) })

	steps := make([]backtest.Timestep, 0, len(timestamps))
	for _, ts := range timestamps {
		steps = append(steps, backtest.Timestep{Timestamp: ts, Bars: byTime[ts]})
	}
	return steps
}

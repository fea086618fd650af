package utils

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"

	"fxHedgeBot/internal/domain"
)

func WriteBarsToCSV(bars []domain.Bar, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	// Write header
	writer.Write([]string{"time", "instrument", "open", "high", "low", "close", "volume"})

	for _, b := range bars {
		writer.Write([]string{
			b.Time.Format(time.RFC3339),
			b.Instrument,
			strconv.FormatFloat(b.Open, 'f', -1, 64),
			strconv.FormatFloat(b.High, 'f', -1, 64),
			strconv.FormatFloat(b.Low, 'f', -1, 64),
			strconv.FormatFloat(b.Close, 'f', -1, 64),
			strconv.FormatFloat(b.Volume, 'f', -1, 64),
		})
	}
	return writer.Error()
}

// ReadBarsFromCSV loads a bar series written by WriteBarsToCSV. Bars
// read from file are finished intervals, so Complete is always set.
func ReadBarsFromCSV(filename string) ([]domain.Bar, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("%s: no bar rows", filename)
	}

	bars := make([]domain.Bar, 0, len(records)-1)
	for i, rec := range records[1:] { // skip header
		if len(rec) != 7 {
			return nil, fmt.Errorf("%s row %d: expected 7 columns, got %d", filename, i+2, len(rec))
		}
		t, err := time.Parse(time.RFC3339, rec[0])
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", filename, i+2, err)
		}
		open, err := strconv.ParseFloat(rec[2], 64)
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", filename, i+2, err)
		}
		high, err := strconv.ParseFloat(rec[3], 64)
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", filename, i+2, err)
		}
		low, err := strconv.ParseFloat(rec[4], 64)
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", filename, i+2, err)
		}
		closePrice, err := strconv.ParseFloat(rec[5], 64)
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", filename, i+2, err)
		}
		volume, err := strconv.ParseFloat(rec[6], 64)
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", filename, i+2, err)
		}
		bars = append(bars, domain.Bar{
			Time:       t,
			Instrument: rec[1],
			Open:       open,
			High:       high,
			Low:        low,
			Close:      closePrice,
			Volume:     volume,
			Complete:   true,
		})
	}
	return bars, nil
}

func WriteTradesToCSV(trades []*domain.ClosedTrade, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	// Write header
	writer.Write([]string{"leg", "instrument", "direction", "entry_time", "exit_time", "entry_price", "exit_price", "pips", "reason"})

	for _, t := range trades {
		writer.Write([]string{
			strconv.Itoa(t.LegID),
			t.Instrument,
			string(t.Direction),
			t.EntryTime.Format(time.RFC3339),
			t.ExitTime.Format(time.RFC3339),
			strconv.FormatFloat(t.EntryPrice, 'f', -1, 64),
			strconv.FormatFloat(t.ExitPrice, 'f', -1, 64),
			strconv.FormatFloat(t.Pips, 'f', -1, 64),
			string(t.Reason),
		})
	}
	return writer.Error()
}

// ReadTradesFromCSV loads a trade log written by WriteTradesToCSV.
func ReadTradesFromCSV(filename string) ([]*domain.ClosedTrade, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 1 {
		return nil, fmt.Errorf("%s: empty trade log", filename)
	}

	trades := make([]*domain.ClosedTrade, 0, len(records)-1)
	for i, rec := range records[1:] { // skip header
		if len(rec) != 9 {
			return nil, fmt.Errorf("%s row %d: expected 9 columns, got %d", filename, i+2, len(rec))
		}
		legID, err := strconv.Atoi(rec[0])
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", filename, i+2, err)
		}
		entryTime, err := time.Parse(time.RFC3339, rec[3])
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", filename, i+2, err)
		}
		exitTime, err := time.Parse(time.RFC3339, rec[4])
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", filename, i+2, err)
		}
		entryPrice, err := strconv.ParseFloat(rec[5], 64)
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", filename, i+2, err)
		}
		exitPrice, err := strconv.ParseFloat(rec[6], 64)
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", filename, i+2, err)
		}
		pips, err := strconv.ParseFloat(rec[7], 64)
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", filename, i+2, err)
		}
		trades = append(trades, &domain.ClosedTrade{
			LegID:      legID,
			Instrument: rec[1],
			Direction:  domain.Direction(rec[2]),
			EntryTime:  entryTime,
			ExitTime:   exitTime,
			EntryPrice: entryPrice,
			ExitPrice:  exitPrice,
			Pips:       pips,
			Win:        pips > 0,
			Reason:     domain.CloseReason(rec[8]),
		})
	}
	return trades, nil
}

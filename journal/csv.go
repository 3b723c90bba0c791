package journal

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

var (
	transitionHeader = []string{"order_id", "trade_id", "symbol", "from_state", "to_state", "at", "payload"}
	tradeHeader      = []string{"trade_id", "symbol", "side", "lots", "risk_amount", "realized_pnl", "open_time", "close_time", "reason"}
)

// CSV writes transitions and trades to per-day CSV files under a base
// directory. With rotation on, files are named transitions_YYYY-MM-DD.csv
// and rotate naturally when the date in loc changes between appends, so
// file boundaries line up with the engine's daily boundary.
type CSV struct {
	dir    string
	rotate bool
	loc    *time.Location
	now    func() time.Time

	transitions *csvFile
	trades      *csvFile
}

type csvFile struct {
	name   string // "transitions" or "trades"
	header []string
	date   string
	w      *csv.Writer
	f      *os.File
}

// NewCSV creates the base directory if needed. loc controls which
// timezone the rotation date is taken in; nil means UTC.
func NewCSV(dir string, rotateDaily bool, loc *time.Location) (*CSV, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create journal dir: %w", err)
	}
	if loc == nil {
		loc = time.UTC
	}
	return &CSV{
		dir:         dir,
		rotate:      rotateDaily,
		loc:         loc,
		now:         time.Now,
		transitions: &csvFile{name: "transitions", header: transitionHeader},
		trades:      &csvFile{name: "trades", header: tradeHeader},
	}, nil
}

func (j *CSV) path(name, date string) string {
	if j.rotate {
		return filepath.Join(j.dir, name+"_"+date+".csv")
	}
	return filepath.Join(j.dir, name+".csv")
}

// writer returns the csv.Writer for today's file, rotating if the date
// changed since the last append. The header is written when the file is
// created.
func (j *CSV) writer(cf *csvFile) (*csv.Writer, error) {
	date := j.now().In(j.loc).Format("2006-01-02")
	if cf.w != nil && (!j.rotate || cf.date == date) {
		return cf.w, nil
	}

	if cf.f != nil {
		cf.w.Flush()
		cf.f.Close()
		cf.w, cf.f = nil, nil
	}

	path := j.path(cf.name, date)
	_, statErr := os.Stat(path)
	fresh := os.IsNotExist(statErr)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open journal file: %w", err)
	}

	w := csv.NewWriter(f)
	if fresh {
		if err := w.Write(cf.header); err != nil {
			f.Close()
			return nil, err
		}
		w.Flush()
		if err := w.Error(); err != nil {
			f.Close()
			return nil, err
		}
	}

	cf.f, cf.w, cf.date = f, w, date
	return w, nil
}

func (j *CSV) append(cf *csvFile, row []string) error {
	w, err := j.writer(cf)
	if err != nil {
		return err
	}
	if err := w.Write(row); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

func (j *CSV) RecordTransition(r TransitionRecord) error {
	return j.append(j.transitions, []string{
		r.OrderID,
		r.TradeID,
		r.Symbol,
		string(r.From),
		string(r.To),
		r.At.Format(time.RFC3339Nano),
		r.Payload,
	})
}

func (j *CSV) RecordTrade(r TradeRecord) error {
	return j.append(j.trades, []string{
		r.TradeID,
		r.Symbol,
		r.Side,
		f(r.Lots),
		f(r.RiskAmount),
		f(r.RealizedPnL),
		r.OpenTime.Format(time.RFC3339),
		r.CloseTime.Format(time.RFC3339),
		r.Reason,
	})
}

func (j *CSV) Close() error {
	var firstErr error
	for _, cf := range []*csvFile{j.transitions, j.trades} {
		if cf.f == nil {
			continue
		}
		cf.w.Flush()
		if err := cf.w.Error(); err != nil && firstErr == nil {
			firstErr = err
		}
		if err := cf.f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		cf.w, cf.f = nil, nil
	}
	return firstErr
}

func f(x float64) string {
	return strconv.FormatFloat(x, 'f', 6, 64)
}

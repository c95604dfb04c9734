// Package runlog persists completed runs to an append-only CSV log.
package runlog

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/verte-zerg/runtally/internal/model"
)

// isoLayout matches ISO-8601 local time with seconds precision and offset.
const isoLayout = "2006-01-02T15:04:05-07:00"

var columns = []string{
	"session_id",
	"run_number",
	"started_at",
	"ended_at",
	"duration_ms",
	"duration_sec",
	"note",
}

// File is a CSV-backed run log: a header row followed by one row per
// completed run, in arrival order. A File has a single writer, the
// tracker that owns it.
type File struct {
	path string
}

// Open prepares a run log at path, creating parent directories and the
// header row when the file is missing or empty.
func Open(path string) (*File, error) {
	if path == "" {
		return nil, fmt.Errorf("run log path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create run log directory: %w", err)
	}
	f := &File{path: path}
	if err := f.ensureHeader(); err != nil {
		return nil, err
	}
	return f, nil
}

// Path returns the backing file path.
func (f *File) Path() string {
	return f.path
}

func (f *File) ensureHeader() error {
	info, err := os.Stat(f.path)
	if err == nil && info.Size() > 0 {
		return nil
	}
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to stat run log: %w", err)
	}
	return f.writeRows(nil)
}

// Append adds one completed run to the log, writing the header first if
// the file vanished since Open.
func (f *File) Append(rec model.RunRecord) error {
	if err := f.ensureHeader(); err != nil {
		return err
	}
	file, err := os.OpenFile(f.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open run log: %w", err)
	}
	w := csv.NewWriter(file)
	err = w.Write(encodeRecord(rec))
	if err == nil {
		w.Flush()
		err = w.Error()
	}
	if err != nil {
		if cerr := file.Close(); cerr != nil {
			// Best-effort close on write failure.
			_ = cerr
		}
		return fmt.Errorf("failed to append run: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to close run log: %w", err)
	}
	return nil
}

// RemoveMostRecentForSession deletes the last row belonging to the given
// session and rewrites the file, preserving every other row in order.
// Rows from other sessions may be interleaved at any position. Returns
// false when the file does not exist or no row matches.
func (f *File) RemoveMostRecentForSession(sessionID string) (bool, error) {
	rows, err := f.readRawRows()
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	for i := len(rows) - 1; i >= 0; i-- {
		if len(rows[i]) > 0 && rows[i][0] == sessionID {
			rows = append(rows[:i], rows[i+1:]...)
			if err := f.writeRows(rows); err != nil {
				return false, err
			}
			return true, nil
		}
	}
	return false, nil
}

// ReadAll parses every data row in file order. Rows shorter than the
// full column set are padded with empty fields.
func (f *File) ReadAll() ([]model.RunRecord, error) {
	rows, err := f.readRawRows()
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	records := make([]model.RunRecord, 0, len(rows))
	for i, row := range rows {
		rec, err := decodeRecord(row)
		if err != nil {
			return nil, fmt.Errorf("run log row %d: %w", i+1, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// readRawRows returns all data rows (header excluded) as raw fields.
func (f *File) readRawRows() ([][]string, error) {
	file, err := os.Open(f.path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := file.Close(); cerr != nil {
			// Best-effort close for read-only access.
			_ = cerr
		}
	}()
	r := csv.NewReader(file)
	r.FieldsPerRecord = -1
	all, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read run log: %w", err)
	}
	if len(all) <= 1 {
		return nil, nil
	}
	return all[1:], nil
}

// writeRows rewrites the whole file (header plus rows) through a temp
// file and rename so a crash never leaves a truncated log.
func (f *File) writeRows(rows [][]string) error {
	tmp := f.path + ".tmp"
	file, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create temp run log: %w", err)
	}
	w := csv.NewWriter(file)
	err = w.Write(columns)
	for _, row := range rows {
		if err != nil {
			break
		}
		err = w.Write(row)
	}
	if err == nil {
		w.Flush()
		err = w.Error()
	}
	if err != nil {
		if cerr := file.Close(); cerr != nil {
			// Best-effort close on write failure.
			_ = cerr
		}
		return fmt.Errorf("failed to write run log: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to close temp run log: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("failed to replace run log: %w", err)
	}
	return nil
}

func encodeRecord(rec model.RunRecord) []string {
	return []string{
		rec.SessionID,
		strconv.Itoa(rec.RunNumber),
		rec.StartedAt.Format(isoLayout),
		rec.EndedAt.Format(isoLayout),
		strconv.FormatInt(rec.DurationMs, 10),
		strconv.FormatFloat(rec.DurationSec, 'f', 3, 64),
		rec.Note,
	}
}

func decodeRecord(row []string) (model.RunRecord, error) {
	fields := make([]string, len(columns))
	copy(fields, row)
	runNumber, err := strconv.Atoi(strings.TrimSpace(fields[1]))
	if err != nil {
		return model.RunRecord{}, fmt.Errorf("bad run_number %q", fields[1])
	}
	startedAt, err := time.Parse(isoLayout, fields[2])
	if err != nil {
		return model.RunRecord{}, fmt.Errorf("bad started_at %q", fields[2])
	}
	endedAt, err := time.Parse(isoLayout, fields[3])
	if err != nil {
		return model.RunRecord{}, fmt.Errorf("bad ended_at %q", fields[3])
	}
	durationMs, err := strconv.ParseInt(strings.TrimSpace(fields[4]), 10, 64)
	if err != nil {
		return model.RunRecord{}, fmt.Errorf("bad duration_ms %q", fields[4])
	}
	durationSec, err := strconv.ParseFloat(strings.TrimSpace(fields[5]), 64)
	if err != nil {
		return model.RunRecord{}, fmt.Errorf("bad duration_sec %q", fields[5])
	}
	return model.RunRecord{
		SessionID:   fields[0],
		RunNumber:   runNumber,
		StartedAt:   startedAt,
		EndedAt:     endedAt,
		DurationMs:  durationMs,
		DurationSec: durationSec,
		Note:        fields[6],
	}, nil
}

// SessionPath derives a per-session log file name from a base path by
// inserting a timestamp before the extension, adding _1.._999 on
// collision. Used at startup and whenever a new session rotates the log.
func SessionPath(base string, now time.Time) string {
	dir := filepath.Dir(base)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(filepath.Base(base), ext)
	if stem == "" {
		stem = "runs"
	}
	if ext == "" {
		ext = ".csv"
	}
	ts := now.Format("2006-01-02_15-04-05")
	path := filepath.Join(dir, stem+"_"+ts+ext)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return path
	}
	for i := 1; i < 1000; i++ {
		alt := filepath.Join(dir, fmt.Sprintf("%s_%s_%d%s", stem, ts, i, ext))
		if _, err := os.Stat(alt); os.IsNotExist(err) {
			return alt
		}
	}
	return filepath.Join(dir, fmt.Sprintf("%s_%s_%d%s", stem, ts, now.UnixNano(), ext))
}

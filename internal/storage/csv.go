package storage

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/radiusdt/campaign-dashboard/internal/models"
)

// Default log file names inside a CSV log directory.
const (
	ClickLogFile      = "click_log.csv"
	ImpressionLogFile = "impression_log.csv"
	ServerLogFile     = "server_log.csv"
)

// CSVSource loads campaign logs from a directory of CSV exports.
type CSVSource struct {
	dir    string
	logger *zap.Logger
}

// NewCSVSource creates a CSV source reading from dir.
func NewCSVSource(dir string, logger *zap.Logger) *CSVSource {
	return &CSVSource{dir: dir, logger: logger}
}

func (s *CSVSource) Name() string { return "csv" }

// Load reads all three log files. A missing click or server log is treated as
// empty; the impression log is required.
func (s *CSVSource) Load(ctx context.Context) (*Snapshot, error) {
	snap := &Snapshot{}

	impRows, err := s.readFile(ImpressionLogFile, true)
	if err != nil {
		return nil, err
	}
	for _, row := range impRows {
		snap.Impressions = append(snap.Impressions, parseImpressionRow(row))
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	clickRows, err := s.readFile(ClickLogFile, false)
	if err != nil {
		return nil, err
	}
	for _, row := range clickRows {
		snap.Clicks = append(snap.Clicks, parseClickRow(row))
	}

	serverRows, err := s.readFile(ServerLogFile, false)
	if err != nil {
		return nil, err
	}
	for _, row := range serverRows {
		snap.Servers = append(snap.Servers, parseServerRow(row))
	}

	s.logger.Info("loaded CSV logs",
		zap.String("dir", s.dir),
		zap.Int("impressions", len(snap.Impressions)),
		zap.Int("clicks", len(snap.Clicks)),
		zap.Int("server", len(snap.Servers)),
	)

	return snap, nil
}

// csvRow maps normalized header names to cell values.
type csvRow map[string]string

func (s *CSVSource) readFile(name string, required bool) ([]csvRow, error) {
	path := filepath.Join(s.dir, name)
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !required {
			s.logger.Warn("log file not found, treating as empty", zap.String("path", path))
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	rows, err := readCSV(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return rows, nil
}

func readCSV(r io.Reader) ([]csvRow, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	for i, h := range header {
		header[i] = normalizeHeader(h)
	}

	var rows []csvRow
	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		row := make(csvRow, len(header))
		for i, h := range header {
			if i < len(rec) {
				row[h] = strings.TrimSpace(rec[i])
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// normalizeHeader turns "Impression Cost" into "impression_cost".
func normalizeHeader(h string) string {
	h = strings.TrimPrefix(h, "\ufeff")
	h = strings.ToLower(strings.TrimSpace(h))
	return strings.ReplaceAll(h, " ", "_")
}

func parseImpressionRow(row csvRow) models.ImpressionRecord {
	return models.ImpressionRecord{
		Date:           models.ParseLogDate(row["date"]),
		UserID:         row["id"],
		Gender:         row["gender"],
		Age:            row["age"],
		Income:         row["income"],
		Context:        row["context"],
		ImpressionCost: parseFloat(row["impression_cost"]),
		IP:             row["ip"],
		Country:        row["country"],
	}
}

func parseClickRow(row csvRow) models.ClickRecord {
	return models.ClickRecord{
		Date:      models.ParseLogDate(row["date"]),
		UserID:    row["id"],
		ClickCost: parseFloat(row["click_cost"]),
	}
}

func parseServerRow(row csvRow) models.ServerRecord {
	return models.ServerRecord{
		EntryDate:   models.ParseLogDate(row["entry_date"]),
		UserID:      row["id"],
		ExitDate:    models.ParseLogDate(row["exit_date"]),
		PagesViewed: parsePages(row["pages_viewed"]),
		Conversion:  parseBool(row["conversion"]),
	}
}

// parseFloat returns -1 for unparseable costs so the engine excludes them.
func parseFloat(s string) float64 {
	if s == "" {
		return -1
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return -1
	}
	return f
}

// parsePages returns models.UnknownPages for a missing or unparseable count.
func parsePages(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 {
		return models.UnknownPages
	}
	return n
}

func parseBool(s string) bool {
	switch strings.ToLower(s) {
	case "yes", "true", "1", "y":
		return true
	}
	return false
}

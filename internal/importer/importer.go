// Package importer loads words into a deck from Excel workbooks and CSV files.
package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/danieldreier/mcp-vocab/internal/storage"
)

// Store is the persistence the importer needs.
type Store interface {
	GetDeck(ctx context.Context, id int64) (storage.Deck, error)
	ListWords(ctx context.Context, deckID *int64) ([]storage.WordWithProgress, error)
	CreateWord(ctx context.Context, in storage.WordInput) (storage.WordWithProgress, error)
}

// Config defines the import configuration
type Config struct {
	FilePath string // Path to the .xlsx or .csv file
	DeckID   int64  // Deck receiving the words

	TermColumn       string // Column with the term
	DefinitionColumn string // Column with the definition
	ExampleColumn    string // Column with an example sentence, optional
	PhoneticColumn   string // Column with the pronunciation, optional

	SheetName  string // Sheet to import; empty means the first sheet
	SkipHeader bool   // Skip the first row
}

// DefaultConfig returns the default import configuration
func DefaultConfig() Config {
	return Config{
		TermColumn:       "A",
		DefinitionColumn: "B",
		ExampleColumn:    "C",
		PhoneticColumn:   "D",
		SkipHeader:       true,
	}
}

// Result holds the result of an import operation
type Result struct {
	Processed int      `json:"processed"`
	Created   int      `json:"created"`
	Skipped   int      `json:"skipped"`
	Errors    []string `json:"errors,omitempty"`
}

type columns struct {
	term, definition, example, phonetic int
}

func (c Config) columns() (columns, error) {
	var cols columns
	var err error
	if cols.term, err = columnIndex(c.TermColumn, true); err != nil {
		return cols, fmt.Errorf("term column: %w", err)
	}
	if cols.definition, err = columnIndex(c.DefinitionColumn, true); err != nil {
		return cols, fmt.Errorf("definition column: %w", err)
	}
	if cols.example, err = columnIndex(c.ExampleColumn, false); err != nil {
		return cols, fmt.Errorf("example column: %w", err)
	}
	if cols.phonetic, err = columnIndex(c.PhoneticColumn, false); err != nil {
		return cols, fmt.Errorf("phonetic column: %w", err)
	}
	return cols, nil
}

// columnIndex converts a column letter to a zero-based index. An empty
// optional column yields -1.
func columnIndex(name string, required bool) (int, error) {
	if name == "" {
		if required {
			return 0, errors.New("column is required")
		}
		return -1, nil
	}
	n, err := excelize.ColumnNameToNumber(name)
	if err != nil {
		return 0, err
	}
	return n - 1, nil
}

// Importer writes imported rows through a Store.
type Importer struct {
	store  Store
	logger *zap.Logger
}

// New returns an Importer.
func New(store Store, logger *zap.Logger) *Importer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Importer{store: store, logger: logger}
}

// Import reads cfg.FilePath and creates a word for every usable row. Rows
// with an empty term or definition, and terms already in the deck, are
// skipped. Per-row failures are collected in the result; only problems with
// the file or the deck itself are returned as errors.
func (im *Importer) Import(ctx context.Context, cfg Config) (*Result, error) {
	cols, err := cfg.columns()
	if err != nil {
		return nil, err
	}
	if _, err := im.store.GetDeck(ctx, cfg.DeckID); err != nil {
		return nil, fmt.Errorf("deck %d: %w", cfg.DeckID, err)
	}

	var rows [][]string
	if strings.ToLower(filepath.Ext(cfg.FilePath)) == ".csv" {
		rows, err = readCSV(cfg.FilePath)
	} else {
		rows, err = readExcel(cfg.FilePath, cfg.SheetName)
	}
	if err != nil {
		return nil, err
	}

	existing, err := im.store.ListWords(ctx, &cfg.DeckID)
	if err != nil {
		return nil, fmt.Errorf("list deck words: %w", err)
	}
	seen := make(map[string]bool, len(existing))
	for _, w := range existing {
		seen[strings.ToLower(w.Word.Term)] = true
	}

	result := &Result{}
	for i, row := range rows {
		if i == 0 && cfg.SkipHeader {
			continue
		}
		if isBlank(row) {
			continue
		}
		result.Processed++

		in := storage.WordInput{
			DeckID:     cfg.DeckID,
			Term:       cell(row, cols.term),
			Definition: cell(row, cols.definition),
			Example:    cell(row, cols.example),
			Phonetic:   cell(row, cols.phonetic),
		}
		if in.Term == "" || in.Definition == "" {
			result.Skipped++
			result.Errors = append(result.Errors, fmt.Sprintf("Row %d: term and definition are required", i+1))
			continue
		}
		key := strings.ToLower(in.Term)
		if seen[key] {
			result.Skipped++
			continue
		}

		if _, err := im.store.CreateWord(ctx, in); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("Row %d: %v", i+1, err))
			continue
		}
		seen[key] = true
		result.Created++
	}

	im.logger.Info("Import finished",
		zap.String("file", cfg.FilePath),
		zap.Int64("deck_id", cfg.DeckID),
		zap.Int("processed", result.Processed),
		zap.Int("created", result.Created),
		zap.Int("skipped", result.Skipped),
		zap.Int("errors", len(result.Errors)),
	)
	return result, nil
}

func readExcel(path, sheet string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to get rows of sheet %q: %w", sheet, err)
	}
	return rows, nil
}

func readCSV(path string) ([][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1 // Allow variable number of fields
	reader.LazyQuotes = true

	var rows [][]string
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error reading CSV: %w", err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func isBlank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// Package export writes curated products-in-listing records and collection
// snapshots to files.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/eikewelk/econdata/internal/api"
	"github.com/eikewelk/econdata/internal/junction"
	"github.com/parquet-go/parquet-go"
	"gopkg.in/yaml.v3"
)

// TrainingRow is the flat form of one products-in-listing record.
type TrainingRow struct {
	RecordID       string `json:"record_id" yaml:"record_id" parquet:"record_id"`
	ListingID      string `json:"listing_id" yaml:"listing_id" parquet:"listing_id"`
	ProductID      string `json:"product_id,omitempty" yaml:"product_id,omitempty" parquet:"product_id,optional"`
	ProductName    string `json:"product_name,omitempty" yaml:"product_name,omitempty" parquet:"product_name,optional"`
	State          string `json:"state" yaml:"state" parquet:"state"`
	IsTrainingData bool   `json:"is_training_data" yaml:"is_training_data" parquet:"is_training_data"`
}

// Rows flattens resolved records.
func Rows(records []junction.Record) []TrainingRow {
	rows := make([]TrainingRow, 0, len(records))
	for _, rec := range records {
		row := TrainingRow{
			RecordID:       string(rec.ID),
			State:          rec.State.String(),
			IsTrainingData: rec.IsTrainingData,
		}
		if id, ok := api.IDFromURL(rec.Listing); ok {
			row.ListingID = string(id)
		}
		switch {
		case rec.Product != nil:
			row.ProductID = string(rec.Product.ID)
			row.ProductName = rec.Product.Name
		case rec.ProductURL != nil:
			if id, ok := api.IDFromURL(*rec.ProductURL); ok {
				row.ProductID = string(id)
			}
		}
		rows = append(rows, row)
	}
	return rows
}

// Snapshot is the document written by the YAML and JSON formats.
type Snapshot[T any] struct {
	Source     string `json:"source" yaml:"source"`
	Collection string `json:"collection" yaml:"collection"`
	Timestamp  string `json:"timestamp" yaml:"timestamp"`
	Count      int    `json:"count" yaml:"count"`
	Items      []T    `json:"items" yaml:"items"`
}

// NewSnapshot wraps items with their provenance.
func NewSnapshot[T any](source, collection string, items []T) Snapshot[T] {
	return Snapshot[T]{
		Source:     source,
		Collection: collection,
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		Count:      len(items),
		Items:      items,
	}
}

// FormatFromPath picks the format from a file extension.
func FormatFromPath(path string) (string, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		return "yaml", nil
	case ".json":
		return "json", nil
	case ".parquet":
		return "parquet", nil
	default:
		return "", fmt.Errorf("unsupported file format: %s (supported: .yaml, .json, .parquet)", ext)
	}
}

// Encode writes the snapshot as YAML or JSON.
func Encode[T any](w io.Writer, format string, snap Snapshot[T]) error {
	switch format {
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(&snap); err != nil {
			return fmt.Errorf("failed to marshal YAML: %w", err)
		}
		return enc.Close()
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(snap); err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

// WriteFile writes the snapshot to path in the format implied by its
// extension. Parquet files hold the items only.
func WriteFile[T any](path string, snap Snapshot[T]) error {
	format, err := FormatFromPath(path)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	if format == "parquet" {
		if err := parquet.WriteFile(path, snap.Items); err != nil {
			return fmt.Errorf("failed to write parquet file %s: %w", path, err)
		}
		return nil
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := Encode(f, format, snap); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// ReadParquet loads rows written by WriteFile.
func ReadParquet[T any](path string) ([]T, error) {
	rows, err := parquet.ReadFile[T](path)
	if err != nil {
		return nil, fmt.Errorf("failed to read parquet file %s: %w", path, err)
	}
	return rows, nil
}

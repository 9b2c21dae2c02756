// Package interchange converts between the durable store and the portable
// JSON document format used for backup, migration, and external consumption.
package interchange

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"sar_tracker/internal/fieldlog"
	"sar_tracker/internal/storage"
)

// Export loads the full document from the store at storePath and writes it
// to docPath, pretty-printed for human review. If the store's database file
// does not exist the error is storage.ErrNotFound and the destination is not
// touched. An existing destination is overwritten.
func Export(storePath, docPath string) error {
	doc, err := storage.Load(storePath)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(doc, "", "    ")
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}
	data = append(data, '\n')

	if dir := filepath.Dir(docPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create export directory: %w", err)
		}
	}
	if err := os.WriteFile(docPath, data, 0o644); err != nil {
		return fmt.Errorf("write document: %w", err)
	}
	return nil
}

// Import parses the JSON document at docPath and replaces the full contents
// of the store at storePath with it. A missing source document is an error;
// fields absent from the document default to empty collections.
func Import(docPath, storePath string) error {
	data, err := os.ReadFile(docPath)
	if err != nil {
		return fmt.Errorf("read document: %w", err)
	}

	var doc fieldlog.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parse document: %w", err)
	}
	doc.Normalize()

	s, err := storage.Open(storePath)
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	return s.ReplaceAll(&doc)
}

// Package spreadsheet renders the field log as a multi-sheet XLSX workbook
// for readable presentation: one sheet per current per-team snapshot, full
// per-team history, and chronological transmission traffic.
package spreadsheet

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/xuri/excelize/v2"

	"sar_tracker/internal/fieldlog"
	"sar_tracker/internal/storage"
)

const (
	sheetCurrent       = "Current Status"
	sheetHistory       = "Status History"
	sheetTransmissions = "Transmissions"
)

// ExportXLSX loads the store at storePath and writes a workbook to xlsxPath,
// creating parent directories as needed. An absent store exports the empty
// document; the workbook is still produced with headers only.
func ExportXLSX(storePath, xlsxPath string) error {
	doc, err := storage.Load(storePath)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			return err
		}
		doc = fieldlog.NewDocument()
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := writeCurrentStatus(f, doc); err != nil {
		return err
	}
	if err := writeHistory(f, doc); err != nil {
		return err
	}
	if err := writeTransmissions(f, doc); err != nil {
		return err
	}

	if dir := filepath.Dir(xlsxPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create export directory: %w", err)
		}
	}
	if err := f.SaveAs(xlsxPath); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	return nil
}

func writeCurrentStatus(f *excelize.File, doc *fieldlog.Document) error {
	// Rename the default sheet rather than leaving an empty Sheet1 behind.
	if err := f.SetSheetName("Sheet1", sheetCurrent); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	headers := []any{"Team", "Current Location", "Location Status", "Transit", "Status Code", "Updated"}
	if err := f.SetSheetRow(sheetCurrent, "A1", &headers); err != nil {
		return fmt.Errorf("write headers: %w", err)
	}

	row := 2
	for _, team := range sortedTeams(doc) {
		history := doc.StatusByTeam[team]
		locStatus, transit, statusCode, updated := "", "", "", ""
		if len(history) > 0 {
			current := history[len(history)-1]
			locStatus = current.LocationStatus
			if current.Transit != nil {
				transit = *current.Transit
			}
			if current.StatusCode != nil {
				statusCode = fmt.Sprintf("%d", *current.StatusCode)
			}
			updated = current.Timestamp
		}

		cell := fmt.Sprintf("A%d", row)
		values := []any{team, doc.LocationByTeam[team], locStatus, transit, statusCode, updated}
		if err := f.SetSheetRow(sheetCurrent, cell, &values); err != nil {
			return fmt.Errorf("write row for %q: %w", team, err)
		}
		row++
	}

	return finishSheet(f, sheetCurrent, "F", row-1, 40)
}

func writeHistory(f *excelize.File, doc *fieldlog.Document) error {
	if _, err := f.NewSheet(sheetHistory); err != nil {
		return fmt.Errorf("create history sheet: %w", err)
	}

	headers := []any{"Team", "Timestamp", "Location", "Location Status", "Transit", "Status Code"}
	if err := f.SetSheetRow(sheetHistory, "A1", &headers); err != nil {
		return fmt.Errorf("write headers: %w", err)
	}

	row := 2
	for _, team := range sortedTeams(doc) {
		for _, e := range doc.StatusByTeam[team] {
			transit, statusCode := "", ""
			if e.Transit != nil {
				transit = *e.Transit
			}
			if e.StatusCode != nil {
				statusCode = fmt.Sprintf("%d", *e.StatusCode)
			}

			cell := fmt.Sprintf("A%d", row)
			values := []any{team, e.Timestamp, e.Location, e.LocationStatus, transit, statusCode}
			if err := f.SetSheetRow(sheetHistory, cell, &values); err != nil {
				return fmt.Errorf("write history row: %w", err)
			}
			row++
		}
	}

	return finishSheet(f, sheetHistory, "F", row-1, 40)
}

func writeTransmissions(f *excelize.File, doc *fieldlog.Document) error {
	if _, err := f.NewSheet(sheetTransmissions); err != nil {
		return fmt.Errorf("create transmissions sheet: %w", err)
	}

	headers := []any{"Timestamp", "Dest", "Src", "Message"}
	if err := f.SetSheetRow(sheetTransmissions, "A1", &headers); err != nil {
		return fmt.Errorf("write headers: %w", err)
	}

	row := 2
	for _, t := range doc.Transmissions {
		cell := fmt.Sprintf("A%d", row)
		values := []any{t.Timestamp, t.Dest, t.Src, t.Msg}
		if err := f.SetSheetRow(sheetTransmissions, cell, &values); err != nil {
			return fmt.Errorf("write transmission row: %w", err)
		}
		row++
	}

	// Wrap the message column for readability.
	wrap, err := f.NewStyle(&excelize.Style{Alignment: &excelize.Alignment{WrapText: true}})
	if err != nil {
		return fmt.Errorf("create wrap style: %w", err)
	}
	if row > 2 {
		if err := f.SetCellStyle(sheetTransmissions, "D2", fmt.Sprintf("D%d", row-1), wrap); err != nil {
			return fmt.Errorf("style message column: %w", err)
		}
	}
	if err := finishSheet(f, sheetTransmissions, "D", row-1, 24); err != nil {
		return err
	}
	if err := f.SetColWidth(sheetTransmissions, "D", "D", 80); err != nil {
		return fmt.Errorf("size message column: %w", err)
	}
	return nil
}

// finishSheet applies the shared presentation: bold filled header row, frozen
// top row, auto-filter over the data range, and sized columns.
func finishSheet(f *excelize.File, sheet, lastCol string, lastRow int, colWidth float64) error {
	header, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"DDDDDD"}, Pattern: 1},
	})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}
	if err := f.SetCellStyle(sheet, "A1", lastCol+"1", header); err != nil {
		return fmt.Errorf("style header: %w", err)
	}

	if err := f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("freeze header: %w", err)
	}

	if lastRow < 1 {
		lastRow = 1
	}
	filterRange := fmt.Sprintf("A1:%s%d", lastCol, lastRow)
	if err := f.AutoFilter(sheet, filterRange, nil); err != nil {
		return fmt.Errorf("set auto-filter: %w", err)
	}

	if err := f.SetColWidth(sheet, "A", lastCol, colWidth); err != nil {
		return fmt.Errorf("size columns: %w", err)
	}
	return nil
}

func sortedTeams(doc *fieldlog.Document) []string {
	seen := make(map[string]bool)
	var names []string
	for name := range doc.StatusByTeam {
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	for name := range doc.LocationByTeam {
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

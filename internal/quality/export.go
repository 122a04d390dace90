// internal/quality/export.go

package quality

import (
	"database/sql"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"
	"github.com/xuri/excelize/v2"
)

// Export writes a report to path, picking the sink from the file
// extension: .json, .csv, .xlsx, or .sqlite/.db.
func Export(report Report, path string) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return exportJSON(report, path)
	case ".csv":
		return exportCSV(report, path)
	case ".xlsx":
		return exportExcel(report, path)
	case ".sqlite", ".db":
		return exportSQLite(report, path)
	default:
		return fmt.Errorf("unsupported export format: %s", filepath.Ext(path))
	}
}

func exportJSON(report Report, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}
	return nil
}

var issueHeader = []string{"content_type", "item_id", "item_title", "field", "severity", "message", "current", "auto_fixable", "suggested"}

func issueRow(i Issue) []string {
	return []string{
		string(i.ContentType),
		i.ItemID,
		i.ItemTitle,
		i.Field,
		string(i.Severity),
		i.Message,
		i.Current,
		fmt.Sprintf("%t", i.AutoFixable),
		i.Suggested,
	}
}

func exportCSV(report Report, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(issueHeader); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for _, s := range report.Summaries {
		for _, issue := range s.Issues {
			if err := w.Write(issueRow(issue)); err != nil {
				return fmt.Errorf("writing row: %w", err)
			}
		}
	}
	w.Flush()
	return w.Error()
}

// exportExcel writes a summary sheet plus one issues sheet per content type
// that has findings.
func exportExcel(report Report, path string) error {
	f := excelize.NewFile()
	defer f.Close()

	const summarySheet = "Summary"
	f.SetSheetName(f.GetSheetName(0), summarySheet)

	header := []string{"content_type", "total", "errors", "warnings", "infos"}
	for col, h := range header {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		f.SetCellValue(summarySheet, cell, h)
	}
	for row, s := range report.Summaries {
		values := []interface{}{string(s.ContentType), s.Total, s.Errors, s.Warnings, s.Infos}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			f.SetCellValue(summarySheet, cell, v)
		}
	}

	for _, s := range report.Summaries {
		if len(s.Issues) == 0 {
			continue
		}
		sheet := capitalize(string(s.ContentType)) + " Issues"
		if _, err := f.NewSheet(sheet); err != nil {
			return fmt.Errorf("creating sheet %s: %w", sheet, err)
		}
		for col, h := range issueHeader {
			cell, _ := excelize.CoordinatesToCellName(col+1, 1)
			f.SetCellValue(sheet, cell, h)
		}
		for row, issue := range s.Issues {
			for col, v := range issueRow(issue) {
				cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
				f.SetCellValue(sheet, cell, v)
			}
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("saving %s: %w", path, err)
	}
	return nil
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS quality_issues (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	generated_at TEXT NOT NULL,
	content_type TEXT NOT NULL,
	item_id TEXT NOT NULL,
	item_title TEXT,
	field TEXT NOT NULL,
	severity TEXT NOT NULL,
	message TEXT NOT NULL,
	current_value TEXT,
	auto_fixable INTEGER NOT NULL DEFAULT 0,
	suggested TEXT
);`

func exportSQLite(report Report, path string) error {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer db.Close()

	if _, err := db.Exec(sqliteSchema); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	stmt, err := tx.Prepare(`INSERT INTO quality_issues
		(generated_at, content_type, item_id, item_title, field, severity, message, current_value, auto_fixable, suggested)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	generated := report.GeneratedAt.UTC().Format("2006-01-02T15:04:05Z")
	for _, s := range report.Summaries {
		for _, issue := range s.Issues {
			if _, err := stmt.Exec(generated, string(issue.ContentType), issue.ItemID,
				issue.ItemTitle, issue.Field, string(issue.Severity), issue.Message,
				issue.Current, issue.AutoFixable, issue.Suggested); err != nil {
				tx.Rollback()
				return fmt.Errorf("inserting issue: %w", err)
			}
		}
	}
	return tx.Commit()
}

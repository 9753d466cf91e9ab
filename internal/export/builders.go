package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"

	activity "engine-monitor/internal/activity/domain"
	telemetry "engine-monitor/internal/telemetry/domain"
	"engine-monitor/internal/wib"
)

const timestampLayout = "2006-01-02 15:04:05"

var readingHeader = []string{"timestamp_wib", "rpm", "iat", "clt", "afr", "map", "tps"}

// WriteReadingsCSV streams readings as CSV. Timestamps render in WIB.
func WriteReadingsCSV(w io.Writer, readings []telemetry.Reading) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(readingHeader); err != nil {
		return err
	}
	for _, reading := range readings {
		record := []string{
			wib.ToWIB(reading.Timestamp).Format(timestampLayout),
			formatValue(reading.RPM),
			formatValue(reading.IAT),
			formatValue(reading.CLT),
			formatValue(reading.AFR),
			formatValue(reading.MAP),
			formatValue(reading.TPS),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// BuildReadingsXLSX renders readings as a single-sheet workbook.
func BuildReadingsXLSX(readings []telemetry.Reading, from, to time.Time) ([]byte, error) {
	f := excelize.NewFile()
	sheet := "readings"
	f.SetSheetName("Sheet1", sheet)

	_ = f.SetCellValue(sheet, "A1", "Engine Readings")
	_ = f.SetCellValue(sheet, "A2", fmt.Sprintf("Range (WIB): %s to %s",
		wib.ToWIB(from).Format("2006-01-02"), wib.ToWIB(to).Format("2006-01-02")))

	headerRow := 4
	for i, column := range readingHeader {
		cell, _ := excelize.CoordinatesToCellName(i+1, headerRow)
		_ = f.SetCellValue(sheet, cell, column)
	}
	for i, reading := range readings {
		row := headerRow + 1 + i
		values := []any{
			wib.ToWIB(reading.Timestamp).Format(timestampLayout),
			reading.RPM, reading.IAT, reading.CLT, reading.AFR, reading.MAP, reading.TPS,
		}
		for col, value := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			_ = f.SetCellValue(sheet, cell, value)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BuildActivityPDF renders a daily activity report.
func BuildActivityPDF(records []activity.DailyRecord, from, to time.Time) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	pdf.Cell(0, 8, "Engine Activity Report")
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Range (WIB): %s to %s",
		wib.ToWIB(from).Format("2006-01-02"), wib.ToWIB(to).Format("2006-01-02")))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Generated: %s", time.Now().UTC().Format(time.RFC3339)))
	pdf.Ln(8)

	total := 0
	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(50, 6, "Day", "1", 0, "C", false, 0, "")
	pdf.CellFormat(60, 6, "Active Time (min)", "1", 0, "C", false, 0, "")
	pdf.CellFormat(40, 6, "Active", "1", 0, "C", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 10)
	for _, record := range records {
		active := "no"
		if record.IsActive {
			active = "yes"
		}
		pdf.CellFormat(50, 6, wib.ToWIB(record.DayStart).Format("2006-01-02"), "1", 0, "C", false, 0, "")
		pdf.CellFormat(60, 6, strconv.Itoa(record.ActiveTime), "1", 0, "R", false, 0, "")
		pdf.CellFormat(40, 6, active, "1", 0, "C", false, 0, "")
		pdf.Ln(-1)
		total += record.ActiveTime
	}

	pdf.Ln(4)
	pdf.SetFont("Arial", "B", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Total active time: %d min (%.1f h)", total, float64(total)/60))

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func formatValue(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}

package report

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"aulabot/internal/ledger"
)

var header = []string{"Day", "Room", "Seat", "Seat ID", "Start", "End", "Status", "Recorded at"}

// WriteExcel writes the booking ledger entries to an xlsx file, one row
// per segment.
func WriteExcel(path string, entries []ledger.Entry) error {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Bookings"
	f.SetSheetName("Sheet1", sheet)

	for i, col := range header {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, col); err != nil {
			return err
		}
	}
	if style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		start, _ := excelize.CoordinatesToCellName(1, 1)
		end, _ := excelize.CoordinatesToCellName(len(header), 1)
		_ = f.SetCellStyle(sheet, start, end, style)
	}

	for row, e := range entries {
		for col, val := range entryRowValues(e) {
			cell, err := excelize.CoordinatesToCellName(col+1, row+2)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheet, cell, val); err != nil {
				return err
			}
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save report %s: %w", path, err)
	}
	return nil
}

func entryRowValues(e ledger.Entry) []interface{} {
	return []interface{}{
		e.Day,
		e.Room,
		e.SeatName,
		e.SeatID,
		e.StartTime,
		e.EndTime,
		e.Status,
		e.CreatedAt.Format("2006-01-02 15:04:05"),
	}
}

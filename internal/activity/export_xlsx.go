package activity

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

const exportSheet = "Activity"

// RenderXLSX builds a spreadsheet of activity events.
func RenderXLSX(events []Event) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	f.SetSheetName("Sheet1", exportSheet)

	headers := []string{"Time (UTC)", "Event", "Generation", "Document", "Detail"}
	for i, h := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(exportSheet, cell, h); err != nil {
			return nil, err
		}
	}

	for row, ev := range events {
		values := []any{
			ev.CreatedAt.UTC().Format("2006-01-02 15:04:05"),
			ev.EventType,
			ev.GenerationID,
			ev.DocumentID,
			ev.Detail,
		}
		for col, val := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row+2)
			if err != nil {
				return nil, err
			}
			if err := f.SetCellValue(exportSheet, cell, val); err != nil {
				return nil, err
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write xlsx: %w", err)
	}
	return buf.Bytes(), nil
}

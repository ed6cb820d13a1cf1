package roster

import (
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// sheetRows returns the rows of the named sheet, or of the first sheet when
// name is empty.
func sheetRows(f *xlsx.File, name string) ([][]string, error) {
	var sheet *xlsx.Sheet
	if name != "" {
		s, ok := f.Sheet[name]
		if !ok {
			return nil, eris.Errorf("roster: sheet %q not found", name)
		}
		sheet = s
	} else {
		if len(f.Sheets) == 0 {
			return nil, eris.New("roster: workbook has no sheets")
		}
		sheet = f.Sheets[0]
	}

	rows := make([][]string, 0, len(sheet.Rows))
	for _, row := range sheet.Rows {
		if row == nil {
			rows = append(rows, nil)
			continue
		}
		cells := make([]string, len(row.Cells))
		for i, cell := range row.Cells {
			cells[i] = cell.String()
		}
		rows = append(rows, cells)
	}
	return rows, nil
}

func readXLSXFile(path, sheet string) ([][]string, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "roster: open workbook %s", path)
	}
	return sheetRows(f, sheet)
}

func readXLSXBytes(data []byte, sheet string) ([][]string, error) {
	f, err := xlsx.OpenBinary(data)
	if err != nil {
		return nil, eris.Wrap(err, "roster: open workbook")
	}
	return sheetRows(f, sheet)
}

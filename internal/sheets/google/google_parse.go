package google

import (
	"errors"
	"fmt"
	"strings"

	ports "caja/internal/sheets"
)

// Columns expected in the import range: date, type, amount, description,
// category, tx_ref. Category and tx_ref are optional.
const minColumns = 4

func parseRow(raw []interface{}) (ports.StagedRow, error) {
	if len(raw) < minColumns {
		return ports.StagedRow{}, fmt.Errorf("expected at least %d columns, got %d", minColumns, len(raw))
	}

	cells := make([]string, 6)
	for i := 0; i < len(cells) && i < len(raw); i++ {
		cells[i] = strings.TrimSpace(fmt.Sprint(raw[i]))
	}

	row := ports.StagedRow{
		Date:        cells[0],
		Type:        strings.ToLower(cells[1]),
		Amount:      cells[2],
		Description: cells[3],
		Category:    cells[4],
		TxRef:       cells[5],
	}

	if row.Date == "" {
		return ports.StagedRow{}, errors.New("empty date")
	}
	if row.Type != "income" && row.Type != "expense" {
		return ports.StagedRow{}, fmt.Errorf("unknown type %q", row.Type)
	}
	if row.Amount == "" {
		return ports.StagedRow{}, errors.New("empty amount")
	}
	if row.Description == "" {
		return ports.StagedRow{}, errors.New("empty description")
	}

	return row, nil
}

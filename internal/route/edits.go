package route

import (
	"fmt"
	"strconv"
	"strings"
)

// Table column positions used by the edit protocol.
const (
	colCity       = 0
	colDistance   = 1
	colTravelDays = 2
)

// PendingEdits carries a user's accumulated table edits: rows deleted by
// their position in the base route, and cell edits keyed "row:column" where
// the row refers to the table after deletions. Only the travel-days column
// is editable; city and distance are derived.
type PendingEdits struct {
	DeletedRows []int             `json:"deleted_rows"`
	EditedCells map[string]string `json:"edited_cells"`
}

// Empty reports whether applying the edits would change nothing but dates.
func (e PendingEdits) Empty() bool {
	return len(e.DeletedRows) == 0 && len(e.EditedCells) == 0
}

// ApplyEdits produces a finalized route from a base route and pending edits.
// Deletions are applied first, by base index; indices that do not address a
// row are ignored so re-applying a deletion is a no-op. Cell edits are then
// applied by post-deletion position. Finally every arrival date from position
// 1 onward is recomputed as the previous stop's arrival plus its travel days;
// the first stop keeps the route's original start date. The base route is
// never mutated, and on any ErrInvalidEdit no route is returned.
func ApplyEdits(base Route, edits PendingEdits) (Route, error) {
	if len(base) == 0 {
		return Route{}, nil
	}
	startDate := base[0].ArrivalDate

	deleted := make(map[int]struct{}, len(edits.DeletedRows))
	for _, idx := range edits.DeletedRows {
		deleted[idx] = struct{}{}
	}

	final := make(Route, 0, len(base))
	for i, stop := range base {
		if _, gone := deleted[i]; gone {
			continue
		}
		final = append(final, stop)
	}

	for key, value := range edits.EditedCells {
		row, col, err := parseCellKey(key)
		if err != nil {
			return nil, err
		}
		if row < 0 || row >= len(final) {
			return nil, fmt.Errorf("%w: row %d out of range", ErrInvalidEdit, row)
		}
		if col != colTravelDays {
			return nil, fmt.Errorf("%w: column %d is not editable", ErrInvalidEdit, col)
		}
		days, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil || days < 0 {
			return nil, fmt.Errorf("%w: travel days must be a non-negative integer, got %q", ErrInvalidEdit, value)
		}
		final[row].TravelDaysToNext = days
	}

	if len(final) > 0 {
		final[0].ArrivalDate = startDate
		for i := 1; i < len(final); i++ {
			final[i].ArrivalDate = final[i-1].ArrivalDate.AddDate(0, 0, final[i-1].TravelDaysToNext)
		}
	}

	return final, nil
}

func parseCellKey(key string) (row, col int, err error) {
	parts := strings.SplitN(key, ":", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("%w: malformed cell key %q", ErrInvalidEdit, key)
	}
	row, rowErr := strconv.Atoi(parts[0])
	col, colErr := strconv.Atoi(parts[1])
	if rowErr != nil || colErr != nil {
		return 0, 0, fmt.Errorf("%w: malformed cell key %q", ErrInvalidEdit, key)
	}
	return row, col, nil
}

package extract

import (
	"fmt"

	"github.com/wonny/sales-etl/internal/contracts"
)

// union accumulates rows from sheets whose headers may differ
type union struct {
	columns  []string
	position map[string]int
	sheetCol int
	rows     [][]string
}

func newUnion() *union {
	return &union{position: make(map[string]int), sheetCol: -1}
}

func (u *union) column(name string) int {
	if i, ok := u.position[name]; ok {
		return i
	}
	u.columns = append(u.columns, name)
	u.position[name] = len(u.columns) - 1
	return len(u.columns) - 1
}

// addHeader registers a sheet's header row and returns where each of its
// columns lands in the union. A name repeated within one sheet gets a
// numeric suffix ("Price", "Price.1") so both columns survive.
func (u *union) addHeader(header []string) []int {
	index := make([]int, len(header))
	local := make(map[string]int, len(header))

	for i, name := range header {
		key := name
		if n := local[name]; n > 0 {
			key = fmt.Sprintf("%s.%d", name, n)
		}
		local[name]++
		index[i] = u.column(key)
	}

	if u.sheetCol < 0 {
		u.sheetCol = u.column(contracts.ColSourceSheet)
	}
	return index
}

func (u *union) addRow(index []int, cells []string, sheet string) {
	row := make([]string, len(u.columns))
	for i, cell := range cells {
		if i < len(index) {
			row[index[i]] = cell
		}
	}
	row[u.sheetCol] = sheet
	u.rows = append(u.rows, row)
}

// table returns the accumulated rows. Rows from earlier sheets may be
// shorter than the final column list; RawTable.Cell reads the gap as "".
func (u *union) table() *contracts.RawTable {
	return &contracts.RawTable{Columns: u.columns, Rows: u.rows}
}

// Package tables implements table editing on top of the state package: a
// map of the cell grid that accounts for merged cells, a selection of cell
// rectangles, the row and column commands, header toggles, column resizing
// and row/column drag-to-reorder.
//
// Table nodes are recognized by the TableRole of their spec ("table", "row",
// "cell" and "header_cell"), so the package works with any schema that
// declares those roles.
package tables

import (
	"fmt"
	"sync"

	"github.com/shodgson/eddytor/model"
)

// Rect is a rectangle of the grid, in columns and rows. Right and Bottom are
// exclusive.
type Rect struct {
	Left, Top, Right, Bottom int
}

// Problem describes a table whose shape is not rectangular.
type Problem struct {
	Kind string
	Pos  int
	N    int
}

// TableMap gives the grid of a table: Map holds, for each slot of the grid
// (row by row), the offset of the cell covering it, relative to the start of
// the table content. Merged cells cover several slots.
type TableMap struct {
	Width    int
	Height   int
	Map      []int
	Problems []Problem
}

type mapEntry struct {
	table *model.Node
	m     *TableMap
}

var (
	mapCacheMutex sync.Mutex
	mapCache      = make([]mapEntry, 8)
	mapCachePos   = 0
)

// Get returns the map of a table node. Maps are cached for the last tables
// seen, since nodes are immutable.
func Get(table *model.Node) *TableMap {
	mapCacheMutex.Lock()
	defer mapCacheMutex.Unlock()
	for _, entry := range mapCache {
		if entry.table == table {
			return entry.m
		}
	}
	m := computeMap(table)
	mapCache[mapCachePos] = mapEntry{table, m}
	mapCachePos = (mapCachePos + 1) % len(mapCache)
	return m
}

func span(attrs map[string]interface{}, name string) int {
	n, ok := model.AttrInt(attrs[name])
	if !ok || n < 1 {
		return 1
	}
	return n
}

func computeMap(table *model.Node) *TableMap {
	width, height := findWidth(table), table.ChildCount()
	m := &TableMap{Width: width, Height: height, Map: make([]int, width*height)}
	filled := make([]bool, width*height)
	mapPos, pos := 0, 0
	for row := 0; row < height; row++ {
		rowNode := table.Content.Content[row]
		pos++
		for i := 0; ; i++ {
			for mapPos < len(m.Map) && filled[mapPos] {
				mapPos++
			}
			if i == rowNode.ChildCount() {
				break
			}
			cell := rowNode.Content.Content[i]
			colspan, rowspan := span(cell.Attrs, "colspan"), span(cell.Attrs, "rowspan")
			for h := 0; h < rowspan; h++ {
				if h+row >= height {
					m.Problems = append(m.Problems, Problem{Kind: "overlong_rowspan", Pos: pos, N: rowspan - h})
					break
				}
				start := mapPos + h*width
				for w := 0; w < colspan; w++ {
					if start+w >= len(m.Map) {
						break
					}
					if !filled[start+w] {
						m.Map[start+w] = pos
						filled[start+w] = true
					} else {
						m.Problems = append(m.Problems, Problem{Kind: "collision", Pos: pos, N: colspan - w})
					}
				}
			}
			mapPos += colspan
			pos += cell.NodeSize()
		}
		end := (row + 1) * width
		missing := 0
		for mapPos < end {
			if !filled[mapPos] {
				missing++
			}
			mapPos++
		}
		if missing > 0 {
			m.Problems = append(m.Problems, Problem{Kind: "missing", Pos: row, N: missing})
		}
		pos++
	}
	return m
}

func findWidth(table *model.Node) int {
	width := -1
	hasRowSpan := false
	for row := 0; row < table.ChildCount(); row++ {
		rowNode := table.Content.Content[row]
		rowWidth := 0
		if hasRowSpan {
			for j := 0; j < row; j++ {
				for _, cell := range table.Content.Content[j].Content.Content {
					if j+span(cell.Attrs, "rowspan") > row {
						rowWidth += span(cell.Attrs, "colspan")
					}
				}
			}
		}
		for _, cell := range rowNode.Content.Content {
			rowWidth += span(cell.Attrs, "colspan")
			if span(cell.Attrs, "rowspan") > 1 {
				hasRowSpan = true
			}
		}
		if rowWidth > width {
			width = rowWidth
		}
	}
	if width < 0 {
		return 0
	}
	return width
}

// FindCell finds the rectangle covered by the cell at the given offset.
func (m *TableMap) FindCell(pos int) (Rect, error) {
	for i, cur := range m.Map {
		if cur != pos {
			continue
		}
		left, top := i%m.Width, i/m.Width
		right, bottom := left+1, top+1
		for j := 1; right < m.Width && m.Map[i+j] == cur; j++ {
			right++
		}
		for j := 1; bottom < m.Height && m.Map[i+m.Width*j] == cur; j++ {
			bottom++
		}
		return Rect{Left: left, Top: top, Right: right, Bottom: bottom}, nil
	}
	return Rect{}, fmt.Errorf("no cell with offset %d found", pos)
}

// ColCount returns the left-most column of the cell at the given offset.
func (m *TableMap) ColCount(pos int) (int, error) {
	for i, cur := range m.Map {
		if cur == pos {
			return i % m.Width, nil
		}
	}
	return 0, fmt.Errorf("no cell with offset %d found", pos)
}

// NextCell finds the next cell in the given direction, horizontally when
// horiz is set and vertically otherwise. It returns false at the edge of the
// table.
func (m *TableMap) NextCell(pos int, horiz bool, dir int) (int, bool) {
	rect, err := m.FindCell(pos)
	if err != nil {
		return 0, false
	}
	if horiz {
		if (dir < 0 && rect.Left == 0) || (dir > 0 && rect.Right == m.Width) {
			return 0, false
		}
		col := rect.Right
		if dir < 0 {
			col = rect.Left - 1
		}
		return m.Map[rect.Top*m.Width+col], true
	}
	if (dir < 0 && rect.Top == 0) || (dir > 0 && rect.Bottom == m.Height) {
		return 0, false
	}
	row := rect.Bottom
	if dir < 0 {
		row = rect.Top - 1
	}
	return m.Map[rect.Left+m.Width*row], true
}

// RectBetween returns the smallest rectangle covering the two cells.
func (m *TableMap) RectBetween(a, b int) (Rect, error) {
	ra, err := m.FindCell(a)
	if err != nil {
		return Rect{}, err
	}
	rb, err := m.FindCell(b)
	if err != nil {
		return Rect{}, err
	}
	return Rect{
		Left:   min(ra.Left, rb.Left),
		Top:    min(ra.Top, rb.Top),
		Right:  max(ra.Right, rb.Right),
		Bottom: max(ra.Bottom, rb.Bottom),
	}, nil
}

// CellsInRect returns the offsets of the cells that start in the rectangle.
func (m *TableMap) CellsInRect(rect Rect) []int {
	var result []int
	seen := map[int]bool{}
	for row := rect.Top; row < rect.Bottom; row++ {
		for col := rect.Left; col < rect.Right; col++ {
			index := row*m.Width + col
			pos := m.Map[index]
			if seen[pos] {
				continue
			}
			seen[pos] = true
			if (col == rect.Left && col > 0 && m.Map[index-1] == pos) ||
				(row == rect.Top && row > 0 && m.Map[index-m.Width] == pos) {
				continue
			}
			result = append(result, pos)
		}
	}
	return result
}

// PositionAt returns the offset at which a cell for the given row and
// column would start, skipping the slots covered by cells from rows above.
func (m *TableMap) PositionAt(row, col int, table *model.Node) int {
	rowStart := 0
	for i := 0; ; i++ {
		rowEnd := rowStart + table.Content.Content[i].NodeSize()
		if i == row {
			index, rowEndIndex := col+row*m.Width, (row+1)*m.Width
			for index < rowEndIndex && m.Map[index] < rowStart {
				index++
			}
			if index == rowEndIndex {
				return rowEnd - 1
			}
			return m.Map[index]
		}
		rowStart = rowEnd
	}
}

// Rectangular reports whether the table has no spans sticking out of it and
// no missing or overlapping cells.
func (m *TableMap) Rectangular() bool {
	return len(m.Problems) == 0
}

package tables

import (
	"github.com/shodgson/eddytor/keymap"
	"github.com/shodgson/eddytor/state"
)

// Bindings are the table editing shortcuts. Tab and Shift-Tab are not bound
// here: cell navigation is composed with list indentation by the editor's
// tab handling.
func Bindings() map[string]state.Command {
	return map[string]state.Command{
		"Mod-Shift-t": AddRowAfter,
		"Mod-Alt-t":   AddRowBefore,
		"Mod-Shift-y": AddColumnAfter,
		"Mod-Alt-y":   AddColumnBefore,
		"Mod-Shift-d": DeleteRow,
		"Mod-Alt-d":   DeleteColumn,
		"Mod-Shift-m": MergeCells,
		"Mod-Alt-m":   SplitCell,
		"Mod-Shift-h": ToggleHeaderRow,
		"Mod-Alt-h":   ToggleHeaderColumn,
	}
}

// Keymap returns a keymap plugin with the table bindings.
func Keymap() *state.Plugin {
	return keymap.New(Bindings())
}

// MenuItem describes a table operation for menus.
type MenuItem struct {
	ID      string
	Label   string
	Icon    string
	Command state.Command
}

// MenuItems lists the table operations offered in menus.
var MenuItems = []MenuItem{
	{ID: "addRowBefore", Label: "Insert row before", Icon: "row-insert-before", Command: AddRowBefore},
	{ID: "addRowAfter", Label: "Insert row after", Icon: "row-insert-after", Command: AddRowAfter},
	{ID: "deleteRow", Label: "Delete row", Icon: "row-delete", Command: DeleteRow},
	{ID: "addColumnBefore", Label: "Insert column before", Icon: "column-insert-before", Command: AddColumnBefore},
	{ID: "addColumnAfter", Label: "Insert column after", Icon: "column-insert-after", Command: AddColumnAfter},
	{ID: "deleteColumn", Label: "Delete column", Icon: "column-delete", Command: DeleteColumn},
	{ID: "mergeCells", Label: "Merge cells", Icon: "cells-merge", Command: MergeCells},
	{ID: "splitCell", Label: "Split cell", Icon: "cell-split", Command: SplitCell},
	{ID: "toggleHeaderRow", Label: "Toggle header row", Icon: "header-row", Command: ToggleHeaderRow},
	{ID: "toggleHeaderColumn", Label: "Toggle header column", Icon: "header-column", Command: ToggleHeaderColumn},
	{ID: "toggleHeaderCell", Label: "Toggle header cell", Icon: "header-cell", Command: ToggleHeaderCell},
	{ID: "deleteTable", Label: "Delete table", Icon: "table-delete", Command: DeleteTable},
}

// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package orchestrator

import (
	"errors"
	"fmt"
	"image"
)

// Grid places windows in a rows-by-columns layout starting at the
// top-left of the primary screen. Cells are numbered row by row.
//
// CellWidth and CellHeight are normally set explicitly to the client
// size the game runs at. When both are zero they are derived by
// dividing ScreenWidth/ScreenHeight evenly, leaving Padding around
// every cell.
type Grid struct {
	Columns int
	Rows    int

	CellWidth  int
	CellHeight int
	Padding    int

	ScreenWidth  int
	ScreenHeight int
}

// Validate checks that the grid has cells of positive size.
func (g Grid) Validate() error {
	if g.Columns < 1 || g.Rows < 1 {
		return fmt.Errorf("grid must have at least one column and row, got %dx%d", g.Columns, g.Rows)
	}
	if g.Padding < 0 {
		return errors.New("grid padding must not be negative")
	}
	width, height := g.CellSize()
	if width < 1 || height < 1 {
		return fmt.Errorf("grid cells must be non-empty, got %dx%d", width, height)
	}
	return nil
}

// CellSize returns the configured cell size, or the size derived from
// the screen when none is configured.
func (g Grid) CellSize() (int, int) {
	if g.CellWidth > 0 && g.CellHeight > 0 {
		return g.CellWidth, g.CellHeight
	}
	if g.Columns < 1 || g.Rows < 1 {
		return 0, 0
	}
	return (g.ScreenWidth - g.Padding*(g.Columns+1)) / g.Columns,
		(g.ScreenHeight - g.Padding*(g.Rows+1)) / g.Rows
}

// Len returns the number of cells.
func (g Grid) Len() int { return g.Columns * g.Rows }

// Cell returns the screen rectangle of the cell at index.
func (g Grid) Cell(index int) (image.Rectangle, error) {
	if index < 0 || index >= g.Len() {
		return image.Rectangle{}, fmt.Errorf("grid index %d out of range for %dx%d grid", index, g.Columns, g.Rows)
	}
	width, height := g.CellSize()
	row, column := index/g.Columns, index%g.Columns
	x := g.Padding + column*(width+g.Padding)
	y := g.Padding + row*(height+g.Padding)
	return image.Rect(x, y, x+width, y+height), nil
}

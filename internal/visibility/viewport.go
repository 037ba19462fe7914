package visibility

import "math"

// Viewport models a vertically scrolling grid of equal-height rows. Hosts
// without a native intersection primitive (the terminal UI) use it to
// produce Entry batches.
type Viewport struct {
	Height    float64 // visible height
	RowHeight float64
	Columns   int
	Offset    float64 // scroll position of the top edge
}

func (v Viewport) columns() int {
	if v.Columns < 1 {
		return 1
	}
	return v.Columns
}

// Row returns the row holding item index i.
func (v Viewport) Row(i int) int {
	return i / v.columns()
}

// MaxOffset is the largest valid Offset for n items.
func (v Viewport) MaxOffset(n int) float64 {
	rows := (n + v.columns() - 1) / v.columns()
	return math.Max(0, float64(rows)*v.RowHeight-v.Height)
}

// Scroll returns v moved by delta, clamped to the content.
func (v Viewport) Scroll(delta float64, n int) Viewport {
	v.Offset = math.Min(math.Max(v.Offset+delta, 0), v.MaxOffset(n))
	return v
}

// ScrollTo returns v with item i's row at the top, clamped.
func (v Viewport) ScrollTo(i, n int) Viewport {
	v.Offset = 0
	return v.Scroll(float64(v.Row(i))*v.RowHeight, n)
}

// Entries computes the visible ratio of every region. ids are in layout
// order, filled row by row.
func (v Viewport) Entries(ids []string) []Entry {
	if v.RowHeight <= 0 {
		return nil
	}
	entries := make([]Entry, len(ids))
	for i, id := range ids {
		top := float64(v.Row(i))*v.RowHeight - v.Offset
		bottom := top + v.RowHeight
		visible := math.Min(bottom, v.Height) - math.Max(top, 0)
		entries[i] = Entry{RegionID: id, Ratio: math.Max(0, visible) / v.RowHeight}
	}
	return entries
}

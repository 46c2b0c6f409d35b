package model

import "unicode/utf16"

// DiffEnd is where a difference ends, as a position in each of the two
// compared fragments.
type DiffEnd struct {
	A int
	B int
}

// Positions count UTF-16 code units, so shared text is measured in them too.

func commonPrefix(a, b string) int {
	ua, ub := utf16.Encode([]rune(a)), utf16.Encode([]rune(b))
	n := 0
	for n < len(ua) && n < len(ub) && ua[n] == ub[n] {
		n++
	}
	return n
}

func commonSuffix(a, b string) int {
	ua, ub := utf16.Encode([]rune(a)), utf16.Encode([]rune(b))
	n := 0
	for n < len(ua) && n < len(ub) && ua[len(ua)-n-1] == ub[len(ub)-n-1] {
		n++
	}
	return n
}

func findDiffStart(a, b *Fragment, pos int) *int {
	shared := minInt(a.ChildCount(), b.ChildCount())
	for i := 0; i < shared; i++ {
		childA, childB := a.Content[i], b.Content[i]
		switch {
		case childA == childB:
		case !childA.SameMarkup(childB):
			return &pos
		case childA.IsText() && *childA.Text != *childB.Text:
			pos += commonPrefix(*childA.Text, *childB.Text)
			return &pos
		case childA.Content.Size > 0 || childB.Content.Size > 0:
			if inner := findDiffStart(childA.Content, childB.Content, pos+1); inner != nil {
				return inner
			}
		}
		pos += childA.NodeSize()
	}
	if a.ChildCount() == b.ChildCount() {
		return nil
	}
	return &pos
}

func findDiffEnd(a, b *Fragment, posA, posB int) *DiffEnd {
	ia, ib := a.ChildCount(), b.ChildCount()
	for ia > 0 && ib > 0 {
		ia--
		ib--
		childA, childB := a.Content[ia], b.Content[ib]
		switch {
		case childA == childB:
		case !childA.SameMarkup(childB):
			return &DiffEnd{A: posA, B: posB}
		case childA.IsText() && *childA.Text != *childB.Text:
			same := commonSuffix(*childA.Text, *childB.Text)
			return &DiffEnd{A: posA - same, B: posB - same}
		case childA.Content.Size > 0 || childB.Content.Size > 0:
			if inner := findDiffEnd(childA.Content, childB.Content, posA-1, posB-1); inner != nil {
				return inner
			}
		}
		posA -= childA.NodeSize()
		posB -= childB.NodeSize()
	}
	if ia == ib {
		return nil
	}
	return &DiffEnd{A: posA, B: posB}
}

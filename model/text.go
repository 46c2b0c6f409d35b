package model

import "unicode/utf16"

// Positions inside text nodes count UTF-16 code units, like the JavaScript
// editors that produce and consume the same JSON documents.

func textLength(s string) int {
	n := 0
	for _, r := range s {
		n += utf16.RuneLen(r)
	}
	return n
}

// sliceText returns the part of s between the from and to offsets, counted
// in UTF-16 code units. A surrogate pair is kept when it starts inside the
// range.
func sliceText(s string, from, to int) string {
	if from <= 0 && to >= textLength(s) {
		return s
	}
	start, end := -1, len(s)
	unit := 0
	for i, r := range s {
		if start < 0 && unit >= from {
			start = i
		}
		if unit >= to {
			end = i
			break
		}
		unit += utf16.RuneLen(r)
	}
	if start < 0 {
		return ""
	}
	if end < start {
		return ""
	}
	return s[start:end]
}

// TextLength is the size of the given string in document positions.
func TextLength(s string) int {
	return textLength(s)
}

// SliceText cuts the given string by document position offsets.
func SliceText(s string, from, to int) string {
	return sliceText(s, from, to)
}

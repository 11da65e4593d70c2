package rewrite

import (
	"bytes"
	"fmt"
	"sort"
)

type edit struct {
	start, end int
	text       string
}

// Buffer is a queue of byte-range replacements against an immutable source.
// Edits are recorded first and applied together by Bytes, so byte offsets
// taken from the syntax tree stay valid for the whole pass.
type Buffer struct {
	src   []byte
	edits []edit
}

func NewBuffer(src []byte) *Buffer {
	return &Buffer{src: src}
}

// Replace schedules src[start:end] to be replaced by text. Repeating an
// identical edit is a no-op; an edit overlapping a different one is an error.
func (b *Buffer) Replace(start, end int, text string) error {
	if start < 0 || end < start || end > len(b.src) {
		return fmt.Errorf("edit range [%d,%d) out of bounds (len %d)", start, end, len(b.src))
	}
	for _, e := range b.edits {
		if e.start == start && e.end == end {
			if e.text == text {
				return nil
			}
			return fmt.Errorf("conflicting edits at [%d,%d): %q vs %q", start, end, e.text, text)
		}
		if start < e.end && e.start < end {
			return fmt.Errorf("edit [%d,%d) overlaps [%d,%d)", start, end, e.start, e.end)
		}
	}
	b.edits = append(b.edits, edit{start: start, end: end, text: text})
	return nil
}

// Len reports the number of scheduled edits.
func (b *Buffer) Len() int {
	return len(b.edits)
}

// Bytes returns the source with all scheduled edits applied.
func (b *Buffer) Bytes() []byte {
	if len(b.edits) == 0 {
		out := make([]byte, len(b.src))
		copy(out, b.src)
		return out
	}
	edits := make([]edit, len(b.edits))
	copy(edits, b.edits)
	sort.Slice(edits, func(i, j int) bool { return edits[i].start < edits[j].start })

	var out bytes.Buffer
	out.Grow(len(b.src) + 16*len(edits))
	offset := 0
	for _, e := range edits {
		out.Write(b.src[offset:e.start])
		out.WriteString(e.text)
		offset = e.end
	}
	out.Write(b.src[offset:])
	return out.Bytes()
}

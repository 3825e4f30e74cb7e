package indent

const (
	flagMixed   = 1 << 0
	flagError   = 1 << 1
	flagIgnored = 1 << 2
)

// slot locates one line's blocks within the arena.
type slot struct {
	off int32
	n   int32
}

// DocumentData is a columnar store for the per-line analyses of one
// document. Block offsets for all lines live in a single growable
// arena; each line owns an (offset, length) slot into it plus one flag
// byte. Replacing a line appends its new blocks and repoints the slot,
// so lines may be rewritten in any order. Stale arena regions are
// reclaimed by Compact once garbage crosses a threshold.
//
// DocumentData is not safe for concurrent use; the update pipeline is
// its single writer.
type DocumentData struct {
	arena    []int32
	slots    []slot
	flags    []byte
	analyzed []uint64
	garbage  int
}

// NewDocumentData creates a store sized for lineCount lines, none of
// which have been analyzed yet.
func NewDocumentData(lineCount int) *DocumentData {
	if lineCount < 0 {
		lineCount = 0
	}
	return &DocumentData{
		slots:    make([]slot, lineCount),
		flags:    make([]byte, lineCount),
		analyzed: make([]uint64, (lineCount+63)/64),
	}
}

// LineCount returns the number of lines the store is sized for.
func (d *DocumentData) LineCount() int {
	return len(d.slots)
}

// Resize grows or shrinks the store to lineCount lines. Surviving
// lines keep their data; new lines start unanalyzed. Shrinking marks
// the dropped lines' blocks as garbage and may trigger compaction.
func (d *DocumentData) Resize(lineCount int) {
	if lineCount < 0 {
		lineCount = 0
	}
	old := len(d.slots)
	if lineCount == old {
		return
	}

	if lineCount < old {
		for i := lineCount; i < old; i++ {
			d.garbage += int(d.slots[i].n)
		}
		d.slots = d.slots[:lineCount]
		d.flags = d.flags[:lineCount]
	} else {
		for old < lineCount {
			d.slots = append(d.slots, slot{})
			d.flags = append(d.flags, 0)
			old++
		}
	}

	words := (lineCount + 63) / 64
	for len(d.analyzed) < words {
		d.analyzed = append(d.analyzed, 0)
	}
	d.analyzed = d.analyzed[:words]
	// Clear stale bits past the new line count.
	if rem := lineCount % 64; rem != 0 && words > 0 {
		d.analyzed[words-1] &= (1 << uint(rem)) - 1
	}

	d.maybeCompact()
}

// SetLine stores the analysis for line i, replacing any prior data.
// Out-of-range indexes are ignored.
func (d *DocumentData) SetLine(i int, a Analysis) {
	if i < 0 || i >= len(d.slots) {
		return
	}

	s := d.slots[i]
	if int(s.n) >= len(a.Blocks) {
		// New blocks fit in the old region; overwrite in place.
		for j, b := range a.Blocks {
			d.arena[int(s.off)+j] = int32(b)
		}
		d.garbage += int(s.n) - len(a.Blocks)
		d.slots[i].n = int32(len(a.Blocks))
	} else {
		d.garbage += int(s.n)
		d.slots[i] = slot{off: int32(len(d.arena)), n: int32(len(a.Blocks))}
		for _, b := range a.Blocks {
			d.arena = append(d.arena, int32(b))
		}
	}

	var f byte
	if a.Mixed {
		f |= flagMixed
	}
	if a.Error {
		f |= flagError
	}
	if a.Ignored {
		f |= flagIgnored
	}
	d.flags[i] = f
	d.analyzed[i/64] |= 1 << uint(i%64)
}

// SetIgnored updates only the ignored flag for line i, preserving the
// stored blocks. Unanalyzed lines are left untouched.
func (d *DocumentData) SetIgnored(i int, ignored bool) {
	if i < 0 || i >= len(d.flags) || !d.HasLine(i) {
		return
	}
	if ignored {
		d.flags[i] |= flagIgnored
	} else {
		d.flags[i] &^= flagIgnored
	}
}

// Line returns the stored analysis for line i. Lines never analyzed
// (and out-of-range indexes) yield a well-formed zero Analysis. The
// store keeps blocks and flags only; VisualWidth is not round-tripped.
func (d *DocumentData) Line(i int) Analysis {
	if !d.HasLine(i) {
		return Analysis{}
	}

	s := d.slots[i]
	var a Analysis
	if s.n > 0 {
		a.Blocks = make([]int, s.n)
		for j := range a.Blocks {
			a.Blocks[j] = int(d.arena[int(s.off)+j])
		}
	}
	f := d.flags[i]
	a.Mixed = f&flagMixed != 0
	a.Error = f&flagError != 0
	a.Ignored = f&flagIgnored != 0
	return a
}

// BlockCount returns the number of blocks stored for line i without
// materializing the analysis.
func (d *DocumentData) BlockCount(i int) int {
	if !d.HasLine(i) {
		return 0
	}
	return int(d.slots[i].n)
}

// HasLine reports whether line i has ever been analyzed. A line with
// zero blocks still counts as analyzed; the distinction is tracked in
// a separate bitset rather than inferred from slot contents.
func (d *DocumentData) HasLine(i int) bool {
	if i < 0 || i >= len(d.slots) {
		return false
	}
	return d.analyzed[i/64]&(1<<uint(i%64)) != 0
}

// Compact rebuilds the arena, dropping regions no slot points at.
func (d *DocumentData) Compact() {
	fresh := make([]int32, 0, len(d.arena)-d.garbage)
	for i := range d.slots {
		s := d.slots[i]
		d.slots[i].off = int32(len(fresh))
		fresh = append(fresh, d.arena[s.off:s.off+s.n]...)
	}
	d.arena = fresh
	d.garbage = 0
}

// maybeCompact rebuilds the arena once more than half of it is garbage.
func (d *DocumentData) maybeCompact() {
	if d.garbage > 0 && d.garbage*2 > len(d.arena) {
		d.Compact()
	}
}

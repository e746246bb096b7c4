package efs

// Outcome is a visitor's verdict for one visited block, replacing the
// source driver's mixed ENOENT/1 return convention with a single
// three-way enum.
type Outcome int

const (
	// Continue advances the walk to the next logical block.
	Continue Outcome = iota
	// Stop terminates iteration successfully.
	Stop
	// Error terminates iteration with failure; the visitor is expected
	// to record its own error out-of-band (via a closure variable).
	Error
)

// Visitor is invoked once per logical block in ascending order with the
// block's device BB number and its logical block number.
type Visitor func(deviceBn, logicalBB uint32) Outcome

// Walk iterates inode's logical blocks in [startBB, startBB+maxNblks),
// or unbounded when maxNblks == 0, visiting only blocks that extents
// actually map (holes are skipped). It performs no I/O itself.
func Walk(in *Inode, startBB uint32, maxNblks uint32, visit Visitor) error {
	var end uint32
	unbounded := maxNblks == 0
	if !unbounded {
		end = startBB + maxNblks
	}

	for _, ext := range in.Extents {
		extEnd := ext.Offset + ext.Len
		if extEnd <= startBB {
			continue
		}
		if !unbounded && ext.Offset >= end {
			break
		}

		rangeStart := ext.Offset
		if startBB > rangeStart {
			rangeStart = startBB
		}
		rangeEnd := extEnd
		if !unbounded && end < rangeEnd {
			rangeEnd = end
		}

		for cur := rangeStart; cur < rangeEnd; cur++ {
			deviceBn := ext.Bn + (cur - ext.Offset)
			switch visit(deviceBn, cur) {
			case Continue:
				continue
			case Stop:
				return nil
			case Error:
				return errWalkAborted
			}
		}
	}

	return nil
}

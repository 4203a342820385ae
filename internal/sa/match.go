// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package sa

// compareSelector applies the IBTA 2-bit selector semantics used on
// MTU/Rate/PacketLifeTime fields: equal, greater-or-equal, less-or-equal,
// or "largest available" (callers treat that case as always matching,
// since it asks the SA to pick rather than filter).
func compareSelector(sel Selector, want, have uint8) bool {
	switch sel {
	case SelectorEqual:
		return have == want
	case SelectorGreaterEqual:
		return have >= want
	case SelectorLessEqual:
		return have <= want
	case SelectorLargestAvailable:
		return true
	default:
		return have == want
	}
}

// lidRangeContains reports whether lid falls within [begin,end], the
// range-containment exception IBTA defines for component-mask fields
// that carry a LID range instead of a single value (InformInfo's
// LIDRangeBegin/End).
func lidRangeContains(begin, end, lid uint16) bool {
	if begin == 0 && end == 0 {
		return true // unrestricted
	}
	return lid >= begin && lid <= end
}

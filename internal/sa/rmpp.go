// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package sa

import "github.com/ibfabric/osmd/internal/mad"

// pageSize is the number of records packed into a single RMPP segment.
// IBTA bounds this by the 256-byte MAD payload and per-record size; a
// fixed conservative count keeps every record type within one segment
// without per-type packing math.
const pageSize = 8

// Paginate splits records into RMPP segments for GetTable responses that
// don't fit in one MAD; RMPPFlagsFor supplies each segment's first/last
// flags.
func Paginate[T any](records []T) [][]T {
	if len(records) == 0 {
		return nil
	}
	var pages [][]T
	for i := 0; i < len(records); i += pageSize {
		end := i + pageSize
		if end > len(records) {
			end = len(records)
		}
		pages = append(pages, records[i:end])
	}
	return pages
}

// RMPPFlagsFor returns the RMPP header flags for segment i of n.
func RMPPFlagsFor(i, n int) mad.RMPPFlags {
	f := mad.RMPPFlagActive
	if i == 0 {
		f |= mad.RMPPFlagFirst
	}
	if i == n-1 {
		f |= mad.RMPPFlagLast
	}
	return f
}

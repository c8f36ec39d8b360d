// Package sku implements the lenience-widening VM-size matcher: given a
// requested core count and RAM amount, find the catalog entry that is the
// closest fit, widening the acceptance window a bit at a time until at
// least one candidate survives.
package sku

// Entry is one cloud-provider VM size, reduced to the properties the
// matcher cares about. A cloud backend is responsible for turning its own
// catalog format into a slice of these (internal/cloud/azure does this for
// `az vm list-skus`).
type Entry struct {
	Name              string
	CoreCount         int
	RAMGB             int
	MaxDiskCount      int
	MaxDiskCapacityGB int
}

// withinBoundsIncl mirrors the teacher specification's within_bounds_incl!
// macro: true if lo <= v <= hi, with lo/hi computed from a center value and
// a (possibly larger-than-center) deviation — so the lower bound saturates
// at 0 instead of going negative.
func withinBoundsIncl(center, deviation, v int) bool {
	lo := center - deviation
	if lo < 0 {
		lo = 0
	}
	hi := center + deviation
	return v >= lo && v <= hi
}

func filterByCoreCount(in []Entry, coreCount, deviation int) []Entry {
	out := in[:0:0]
	for _, e := range in {
		if withinBoundsIncl(coreCount, deviation, e.CoreCount) {
			out = append(out, e)
		}
	}
	return out
}

func filterByRAM(in []Entry, ramGB, deviation int) []Entry {
	out := in[:0:0]
	for _, e := range in {
		if withinBoundsIncl(ramGB, deviation, e.RAMGB) {
			out = append(out, e)
		}
	}
	return out
}

// FindBestMatchingVMName searches catalog for an entry matching the
// requested core count and RAM amount. Either constraint may be omitted
// (nil) to mean "don't care".
//
// The search widens in lenience steps exactly the way the original
// implementation does: core-count deviation grows a quarter as fast as
// RAM deviation (lenience/4), and the loop has no upper bound — if the
// catalog can never satisfy the request (e.g. asking for negative cores)
// this runs forever. That is a deliberate, inherited property, not an
// oversight: the original never bounds the search either, and capping it
// would silently turn "no match" into an arbitrary match rather than a
// hang an operator would notice and investigate. See DESIGN.md's Open
// Question notes for the reasoning.
func FindBestMatchingVMName(catalog []Entry, coreCount, ramGB *int) Entry {
	for lenience := 0; ; lenience++ {
		candidates := catalog
		if coreCount != nil {
			candidates = filterByCoreCount(candidates, *coreCount, lenience/4)
		}
		if ramGB != nil {
			candidates = filterByRAM(candidates, *ramGB, lenience)
		}
		if len(candidates) > 0 {
			// Arbitrary choice among equally-lenient candidates, matching
			// the original's "pick the first" behavior — which catalog
			// entry this resolves to for a tied search is intentionally
			// unspecified.
			return candidates[0]
		}
	}
}

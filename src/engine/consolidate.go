package engine

// Consolidate merges implied levels into a copy of the outright ladder.
// An implied level at an existing price adds its size to that level and
// leaves the order count alone. Otherwise it is inserted at its price rank,
// pushing worse levels down and evicting the last; a level that ranks
// below every occupied slot of a full ladder is dropped.
//
// Empty outright levels are dropped first, so the result is packed from
// the top even when the outright ladder has gaps.
func Consolidate(outright, implied Ladder) Ladder {
	out := LadderOf(outright.side, outright.Depth(), outright.Top(0)...)

	for _, il := range implied.levels {
		if il.Empty() {
			continue
		}
		for i := range out.levels {
			slot := out.levels[i]
			if slot.Empty() {
				out.levels[i] = il
				break
			}
			if slot.Price == il.Price {
				out.levels[i].Size += il.Size
				break
			}
			if out.better(il.Price, slot.Price) {
				out.insertAt(i, il)
				break
			}
		}
	}
	return out
}

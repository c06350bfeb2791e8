package geoio

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// lineEnd identifies one endpoint of one input line.
type lineEnd struct {
	line    int
	atStart bool
}

// MergeLines joins lines that meet end to end into the longest possible
// chains. Two lines are joined only through a node where exactly two line
// ends meet; a line may be reversed to continue a chain. Chains are
// returned in the order of the first input line they contain.
func MergeLines(lines []orb.LineString) []orb.LineString {
	nodes := make(map[orb.Point][]lineEnd)
	for i, ls := range lines {
		if len(ls) < 2 {
			continue
		}
		nodes[ls[0]] = append(nodes[ls[0]], lineEnd{line: i, atStart: true})
		nodes[ls[len(ls)-1]] = append(nodes[ls[len(ls)-1]], lineEnd{line: i, atStart: false})
	}

	used := make([]bool, len(lines))

	// next finds the unused line continuing through p, if p joins exactly two ends.
	next := func(p orb.Point) (lineEnd, bool) {
		ends := nodes[p]
		if len(ends) != 2 {
			return lineEnd{}, false
		}
		for _, e := range ends {
			if !used[e.line] {
				return e, true
			}
		}
		return lineEnd{}, false
	}

	merged := make([]orb.LineString, 0, len(lines))
	for i, ls := range lines {
		if used[i] || len(ls) < 2 {
			continue
		}
		used[i] = true
		chain := append(orb.LineString(nil), ls...)

		for {
			e, ok := next(chain[len(chain)-1])
			if !ok {
				break
			}
			used[e.line] = true
			seg := lines[e.line]
			if !e.atStart {
				seg = reversed(seg)
			}
			chain = append(chain, seg[1:]...)
		}

		for {
			e, ok := next(chain[0])
			if !ok {
				break
			}
			used[e.line] = true
			seg := lines[e.line]
			if e.atStart {
				seg = reversed(seg)
			}
			head := append(orb.LineString(nil), seg[:len(seg)-1]...)
			chain = append(head, chain...)
		}

		merged = append(merged, chain)
	}
	return merged
}

func reversed(ls orb.LineString) orb.LineString {
	out := make(orb.LineString, len(ls))
	for i, p := range ls {
		out[len(ls)-1-i] = p
	}
	return out
}

// longestLine returns the line with the greatest planar length. Ties keep
// the earliest line.
func longestLine(lines []orb.LineString) orb.LineString {
	var best orb.LineString
	bestLen := -1.0
	for _, ls := range lines {
		if l := planar.Length(ls); l > bestLen {
			best, bestLen = ls, l
		}
	}
	return best
}

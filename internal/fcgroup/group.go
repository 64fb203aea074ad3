// Package fcgroup computes per-device function-code register groups: the
// partition of a device's tags by resolved function code, and the minimal
// register range covering each group. This is the sole implementation of
// that computation; nothing in the rest of the tree duplicates it.
package fcgroup

import (
	"sort"

	"github.com/modbusd/modbusd/internal/modbus"
)

// Tag is the minimal view fcgroup needs from a configured tag.
type Tag struct {
	ID           int64
	Address      int
	Datatype     modbus.Datatype
	FunctionCode *modbus.FunctionCode // nil means "use the device default"
}

// Group is one precomputed bulk-read range sharing a function code.
type Group struct {
	FunctionCode modbus.FunctionCode
	Start        int
	Count        int
	Tags         []Tag
}

// Compute partitions tags by resolved function code (tag.FunctionCode, or
// defaultFC when unset) and, within each group, computes the minimal
// [start, start+count) register range covering every tag's normalized
// address through its datatype's span.
func Compute(tags []Tag, defaultFC modbus.FunctionCode) []Group {
	byFC := make(map[modbus.FunctionCode][]Tag)
	for _, t := range tags {
		fc := defaultFC
		if t.FunctionCode != nil {
			fc = *t.FunctionCode
		}
		byFC[fc] = append(byFC[fc], t)
	}

	fcs := make([]modbus.FunctionCode, 0, len(byFC))
	for fc := range byFC {
		fcs = append(fcs, fc)
	}
	sort.Slice(fcs, func(i, j int) bool { return fcs[i] < fcs[j] })

	groups := make([]Group, 0, len(fcs))
	for _, fc := range fcs {
		gtags := byFC[fc]
		start := -1
		end := -1
		for _, t := range gtags {
			n := modbus.Normalize(t.Address)
			if start == -1 || n < start {
				start = n
			}
			span := t.Datatype.Span()
			if fc.IsBitType() {
				span = 1
			}
			if n+span > end {
				end = n + span
			}
		}
		groups = append(groups, Group{
			FunctionCode: fc,
			Start:        start,
			Count:        end - start,
			Tags:         gtags,
		})
	}
	return groups
}

// Copyright 2010-2024 Google LLC
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package wcsp

import (
	"fmt"
	"sort"
	"strings"
)

// Interval is the closed range of values `[Lo,Hi]`. It is empty when `Lo > Hi`.
type Interval struct {
	Lo Value
	Hi Value
}

// Domain is a set of values stored as sorted, non-adjacent intervals. A Domain is
// never modified in place: every reduction returns a new Domain, so an old Domain can
// be kept on a trail and reinstated on backtrack.
type Domain struct {
	intervals []Interval
}

// normalize drops empty intervals, sorts the rest and merges the ones that overlap or
// touch.
func normalize(itvs []Interval) []Interval {
	var kept []Interval
	for _, v := range itvs {
		if v.Lo <= v.Hi {
			kept = append(kept, v)
		}
	}
	if len(kept) == 0 {
		return nil
	}
	sort.Slice(kept, func(i, j int) bool {
		if kept[i].Lo != kept[j].Lo {
			return kept[i].Lo < kept[j].Lo
		}
		return kept[i].Hi < kept[j].Hi
	})
	merged := []Interval{kept[0]}
	for _, itv := range kept[1:] {
		last := &merged[len(merged)-1]
		if last.Hi+1 >= itv.Lo {
			if last.Hi < itv.Hi {
				last.Hi = itv.Hi
			}
		} else {
			merged = append(merged, itv)
		}
	}
	return merged
}

// NewDomain returns the domain `[lo,hi]`, empty if `lo > hi`.
func NewDomain(lo, hi Value) Domain {
	if lo > hi {
		return Domain{}
	}
	return Domain{[]Interval{{lo, hi}}}
}

// DomainFromValues builds a domain from unsorted, possibly repeated values.
func DomainFromValues(values []Value) Domain {
	itvs := make([]Interval, 0, len(values))
	for _, v := range values {
		itvs = append(itvs, Interval{v, v})
	}
	return Domain{normalize(itvs)}
}

// Empty reports whether the domain has no value.
func (d Domain) Empty() bool { return len(d.intervals) == 0 }

// Size returns the number of values.
func (d Domain) Size() int {
	n := 0
	for _, itv := range d.intervals {
		n += int(itv.Hi-itv.Lo) + 1
	}
	return n
}

// Min returns the smallest value, and false if the domain is empty.
func (d Domain) Min() (Value, bool) {
	if len(d.intervals) == 0 {
		return 0, false
	}
	return d.intervals[0].Lo, true
}

// Max returns the largest value, and false if the domain is empty.
func (d Domain) Max() (Value, bool) {
	if len(d.intervals) == 0 {
		return 0, false
	}
	return d.intervals[len(d.intervals)-1].Hi, true
}

// Contains reports whether `v` belongs to the domain.
func (d Domain) Contains(v Value) bool {
	i := sort.Search(len(d.intervals), func(i int) bool { return d.intervals[i].Hi >= v })
	return i < len(d.intervals) && d.intervals[i].Lo <= v
}

// Values lists the values in increasing order.
func (d Domain) Values() []Value {
	vals := make([]Value, 0, d.Size())
	for _, itv := range d.intervals {
		for v := itv.Lo; v <= itv.Hi; v++ {
			vals = append(vals, v)
		}
	}
	return vals
}

// Remove returns the domain without `v`.
func (d Domain) Remove(v Value) Domain {
	if !d.Contains(v) {
		return d
	}
	itvs := make([]Interval, 0, len(d.intervals)+1)
	for _, itv := range d.intervals {
		if itv.Lo <= v && v <= itv.Hi {
			itvs = append(itvs, Interval{itv.Lo, v - 1}, Interval{v + 1, itv.Hi})
			continue
		}
		itvs = append(itvs, itv)
	}
	return Domain{normalize(itvs)}
}

// Restrict returns the values of the domain within `[lo,hi]`.
func (d Domain) Restrict(lo, hi Value) Domain {
	itvs := make([]Interval, 0, len(d.intervals))
	for _, itv := range d.intervals {
		if itv.Lo < lo {
			itv.Lo = lo
		}
		if itv.Hi > hi {
			itv.Hi = hi
		}
		itvs = append(itvs, itv)
	}
	return Domain{normalize(itvs)}
}

// Intervals returns a copy of the interval list.
func (d Domain) Intervals() []Interval {
	return append([]Interval(nil), d.intervals...)
}

// String formats the domain as `[0,2][5,5]`.
func (d Domain) String() string {
	var sb strings.Builder
	for _, itv := range d.intervals {
		fmt.Fprintf(&sb, "[%d,%d]", itv.Lo, itv.Hi)
	}
	return sb.String()
}

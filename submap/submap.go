// Package submap implements the active-submap-pair lifecycle: a growing
// probability grid that accumulates range data until it crosses a scan-count
// threshold, at which point it is finalized and a fresh submap takes its
// place.
package submap

import (
	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"

	"github.com/viam-modules/local-trajectory-builder/probabilitygrid"
)

// DefaultOccupiedThreshold is the occupancy probability above which a cell
// is reported as occupied when extracting a point cloud from a submap.
const DefaultOccupiedThreshold = 0.6

// Options configures submap grid resolution, ray-casting probabilities and
// the scan-count rotation threshold.
type Options struct {
	GridOptions  probabilitygrid.Options
	NumRangeData int
}

// DefaultOptions returns Options with the default grid resolution and a
// rotation threshold of 90 scans, matching Cartographer's default submap
// size.
func DefaultOptions() Options {
	return Options{
		GridOptions:  probabilitygrid.DefaultOptions(),
		NumRangeData: 90,
	}
}

// Submap is a probability grid plus the number of scans inserted into it.
type Submap struct {
	Grid      *probabilitygrid.Grid
	NumScans  int
	finalized bool
}

// NewSubmap constructs an empty submap.
func NewSubmap(opts probabilitygrid.Options) *Submap {
	return &Submap{Grid: probabilitygrid.NewGrid(opts)}
}

// Finalized reports whether this submap has stopped accepting insertions.
func (s *Submap) Finalized() bool {
	return s.finalized
}

// InsertRangeData updates the grid by ray-casting origin to every return as a
// hit and every miss point as a free-space ray, then increments the scan
// count.
func (s *Submap) InsertRangeData(origin r2.Point, returns, misses []r2.Point) {
	for _, p := range returns {
		s.Grid.InsertRay(origin, p)
	}
	for _, p := range misses {
		s.Grid.InsertMissRay(origin, p)
	}
	s.NumScans++
}

// OccupiedPoints returns the occupied cells of this submap's grid as points
// in the submap frame, with Z always zero.
func (s *Submap) OccupiedPoints(threshold float64) []r3.Vector {
	cells, _ := s.Grid.OccupiedCells(threshold)
	points := make([]r3.Vector, len(cells))
	for i, c := range cells {
		points[i] = r3.Vector{X: c.X, Y: c.Y}
	}
	return points
}

// ActiveSubmaps is the ordered pair of submaps the trajectory builder
// inserts into: index 0 is the matching target, index 1 is younger.
type ActiveSubmaps struct {
	opts    Options
	submaps []*Submap
}

// NewActiveSubmaps constructs the pair, eagerly creating two empty submaps
// so the matching target always exists before the first insertion.
func NewActiveSubmaps(opts Options) *ActiveSubmaps {
	return &ActiveSubmaps{
		opts: opts,
		submaps: []*Submap{
			NewSubmap(opts.GridOptions),
			NewSubmap(opts.GridOptions),
		},
	}
}

// Submaps returns the current pair: index 0 is the matching target, index 1
// is younger. Always has length 2.
func (a *ActiveSubmaps) Submaps() []*Submap {
	return a.submaps
}

// Matching returns the index-0 (matching target) submap.
func (a *ActiveSubmaps) Matching() *Submap {
	return a.submaps[0]
}

// InsertRangeData inserts origin/returns/misses (already expressed in the
// submap frame) into both submaps in the pair, and rotates the pair if the
// matching submap has crossed its threshold.
func (a *ActiveSubmaps) InsertRangeData(origin r2.Point, returns, misses []r2.Point) {
	for _, s := range a.submaps {
		s.InsertRangeData(origin, returns, misses)
	}
	if a.submaps[0].NumScans >= a.opts.NumRangeData {
		a.submaps[0].finalized = true
		a.submaps = []*Submap{a.submaps[1], NewSubmap(a.opts.GridOptions)}
	}
}

// OccupiedPoints returns the union of occupied cells across the submap pair,
// deduplicated by cell center, as points in the submap frame.
func (a *ActiveSubmaps) OccupiedPoints(threshold float64) []r3.Vector {
	seen := make(map[r3.Vector]struct{})
	var points []r3.Vector
	for _, s := range a.submaps {
		for _, p := range s.OccupiedPoints(threshold) {
			if _, ok := seen[p]; ok {
				continue
			}
			seen[p] = struct{}{}
			points = append(points, p)
		}
	}
	return points
}

// Package probabilitygrid implements the 2D log-odds occupancy grid used as
// the scan matcher's map representation: a sparse, growing map of cells, each
// holding the log-odds probability that the cell is occupied, updated by a
// ray-casting rule as range data is inserted.
package probabilitygrid

import (
	"math"

	"github.com/golang/geo/r2"
)

const (
	minProbability = 0.1
	maxProbability = 0.9
)

// defaults for the ray-casting hit/miss update rule, matching the values
// Cartographer's range-data inserter ships with.
const (
	DefaultHitProbability  = 0.55
	DefaultMissProbability = 0.49
)

// Options configures grid resolution and the ray-casting update rule.
type Options struct {
	// Resolution is the edge length of one cell, in meters.
	Resolution float64
	// HitProbability is the probability assigned to a cell a return landed in.
	HitProbability float64
	// MissProbability is the probability assigned to a cell a ray passed through.
	MissProbability float64
}

// DefaultOptions returns Options with a 0.05m grid and the standard
// hit/miss probabilities.
func DefaultOptions() Options {
	return Options{
		Resolution:      0.05,
		HitProbability:  DefaultHitProbability,
		MissProbability: DefaultMissProbability,
	}
}

// Grid is a 2D log-odds occupancy grid. Cells outside the currently known
// bounds read as unknown (probability 0.5) and the grid grows to cover any
// cell it is asked to update.
type Grid struct {
	opts Options

	// limits, in cell-index space: [minX, maxX) x [minY, maxY).
	minX, minY, maxX, maxY int

	// logOdds is the sparse map from cell index to log-odds value. Unknown
	// cells are absent, matching Cartographer's sparse probability grid's
	// lazy-allocation behavior.
	logOdds map[cellIndex]float64

	hitOdds  float64
	missOdds float64
}

type cellIndex struct {
	X, Y int
}

// NewGrid constructs an empty grid with no known cells.
func NewGrid(opts Options) *Grid {
	if opts.Resolution <= 0 {
		opts.Resolution = DefaultOptions().Resolution
	}
	if opts.HitProbability == 0 {
		opts.HitProbability = DefaultHitProbability
	}
	if opts.MissProbability == 0 {
		opts.MissProbability = DefaultMissProbability
	}
	return &Grid{
		opts:     opts,
		logOdds:  make(map[cellIndex]float64),
		hitOdds:  logOddsFromProbability(opts.HitProbability),
		missOdds: logOddsFromProbability(opts.MissProbability),
	}
}

func logOddsFromProbability(p float64) float64 {
	return math.Log(p / (1 - p))
}

func probabilityFromLogOdds(o float64) float64 {
	return 1 - 1/(1+math.Exp(o))
}

func clampProbability(p float64) float64 {
	if p < minProbability {
		return minProbability
	}
	if p > maxProbability {
		return maxProbability
	}
	return p
}

// CellIndex returns the cell containing point p.
func (g *Grid) CellIndex(p r2.Point) (int, int) {
	return int(math.Floor(p.X / g.opts.Resolution)), int(math.Floor(p.Y / g.opts.Resolution))
}

func (g *Grid) growTo(x, y int) {
	if len(g.logOdds) == 0 {
		g.minX, g.maxX = x, x+1
		g.minY, g.maxY = y, y+1
		return
	}
	if x < g.minX {
		g.minX = x
	}
	if x >= g.maxX {
		g.maxX = x + 1
	}
	if y < g.minY {
		g.minY = y
	}
	if y >= g.maxY {
		g.maxY = y + 1
	}
}

// Probability returns the occupancy probability of the cell at (x, y),
// 0.5 if it has never been updated.
func (g *Grid) Probability(x, y int) float64 {
	odds, ok := g.logOdds[cellIndex{x, y}]
	if !ok {
		return 0.5
	}
	return probabilityFromLogOdds(odds)
}

// InterpolatedProbability returns the bilinearly interpolated occupancy
// probability at the continuous point p, used by the nonlinear scan matcher.
func (g *Grid) InterpolatedProbability(p r2.Point) float64 {
	fx := p.X / g.opts.Resolution
	fy := p.Y / g.opts.Resolution
	x0 := int(math.Floor(fx))
	y0 := int(math.Floor(fy))
	tx := fx - float64(x0)
	ty := fy - float64(y0)

	p00 := g.Probability(x0, y0)
	p10 := g.Probability(x0+1, y0)
	p01 := g.Probability(x0, y0+1)
	p11 := g.Probability(x0+1, y0+1)

	top := p00*(1-tx) + p10*tx
	bottom := p01*(1-tx) + p11*tx
	return top*(1-ty) + bottom*ty
}

// applyOdds updates the cell with the given log-odds delta, clamping the
// resulting probability to [minProbability, maxProbability].
func (g *Grid) applyOdds(x, y int, delta float64) {
	g.growTo(x, y)
	idx := cellIndex{x, y}
	current, ok := g.logOdds[idx]
	if !ok {
		current = 0
	}
	p := clampProbability(probabilityFromLogOdds(current + delta))
	g.logOdds[idx] = logOddsFromProbability(p)
}

// Bounds returns the known cell-index extents as [minX, maxX) x [minY, maxY).
func (g *Grid) Bounds() (minX, minY, maxX, maxY int) {
	return g.minX, g.minY, g.maxX, g.maxY
}

// OccupiedCells returns the world-space center of every cell whose occupancy
// probability exceeds threshold, alongside that probability. Only cells with
// an explicit log-odds entry are considered; unknown cells never qualify.
func (g *Grid) OccupiedCells(threshold float64) ([]r2.Point, []float64) {
	var points []r2.Point
	var probabilities []float64
	for idx, odds := range g.logOdds {
		p := probabilityFromLogOdds(odds)
		if p <= threshold {
			continue
		}
		points = append(points, r2.Point{
			X: (float64(idx.X) + 0.5) * g.opts.Resolution,
			Y: (float64(idx.Y) + 0.5) * g.opts.Resolution,
		})
		probabilities = append(probabilities, p)
	}
	return points, probabilities
}

// InsertHit registers an occupied cell at point p.
func (g *Grid) InsertHit(p r2.Point) {
	x, y := g.CellIndex(p)
	g.applyOdds(x, y, g.hitOdds)
}

// InsertMiss registers a free cell at point p.
func (g *Grid) InsertMiss(p r2.Point) {
	x, y := g.CellIndex(p)
	g.applyOdds(x, y, g.missOdds)
}

// InsertRay updates every free cell along the ray from origin to endpoint
// (exclusive) as a miss, then marks endpoint as a hit. This is the
// ray-casting update rule used when inserting range data into a submap.
func (g *Grid) InsertRay(origin, endpoint r2.Point) {
	for _, c := range supercoverLine(origin, endpoint, g.opts.Resolution) {
		g.applyOdds(c.X, c.Y, g.missOdds)
	}
	g.InsertHit(endpoint)
}

// InsertMissRay marks every free cell along the ray from origin to endpoint,
// including endpoint itself, as a miss. Used for synthetic out-of-range rays
// that never hit a surface.
func (g *Grid) InsertMissRay(origin, endpoint r2.Point) {
	for _, c := range supercoverLine(origin, endpoint, g.opts.Resolution) {
		g.applyOdds(c.X, c.Y, g.missOdds)
	}
	x, y := g.CellIndex(endpoint)
	g.applyOdds(x, y, g.missOdds)
}

// supercoverLine returns the cell indices sampled along the segment from
// origin towards endpoint using a DDA grid traversal. The origin's cell is
// included; the endpoint sample is not.
func supercoverLine(origin, endpoint r2.Point, resolution float64) []cellIndex {
	x0, y0 := origin.X/resolution, origin.Y/resolution
	x1, y1 := endpoint.X/resolution, endpoint.Y/resolution

	dx := x1 - x0
	dy := y1 - y0
	steps := int(math.Max(math.Abs(dx), math.Abs(dy)))
	if steps == 0 {
		return nil
	}

	out := make([]cellIndex, 0, steps)
	for i := 0; i < steps; i++ {
		t := float64(i) / float64(steps)
		x := x0 + dx*t
		y := y0 + dy*t
		out = append(out, cellIndex{int(math.Floor(x)), int(math.Floor(y))})
	}
	return out
}

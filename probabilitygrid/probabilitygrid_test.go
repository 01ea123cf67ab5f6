package probabilitygrid

import (
	"testing"

	"github.com/golang/geo/r2"
	"go.viam.com/test"
)

func TestUnknownCellReadsAsOneHalf(t *testing.T) {
	g := NewGrid(DefaultOptions())
	test.That(t, g.Probability(0, 0), test.ShouldEqual, 0.5)
}

func TestInsertHitRaisesProbability(t *testing.T) {
	g := NewGrid(DefaultOptions())
	p := r2.Point{X: 1, Y: 1}
	g.InsertHit(p)
	x, y := g.CellIndex(p)
	test.That(t, g.Probability(x, y) > 0.5, test.ShouldBeTrue)
}

func TestInsertMissLowersProbability(t *testing.T) {
	g := NewGrid(DefaultOptions())
	p := r2.Point{X: 1, Y: 1}
	g.InsertMiss(p)
	x, y := g.CellIndex(p)
	test.That(t, g.Probability(x, y) < 0.5, test.ShouldBeTrue)
}

func TestInterpolatedProbabilityIsUnknownFarFromAnyHit(t *testing.T) {
	g := NewGrid(DefaultOptions())
	g.InsertHit(r2.Point{X: 0, Y: 0})
	test.That(t, g.InterpolatedProbability(r2.Point{X: 100, Y: 100}), test.ShouldEqual, 0.5)
}

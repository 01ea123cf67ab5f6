package scanmatching

import (
	"testing"

	"github.com/golang/geo/r2"
	"go.viam.com/test"

	"github.com/viam-modules/local-trajectory-builder/probabilitygrid"
	"github.com/viam-modules/local-trajectory-builder/transform"
)

func TestCorrelativeMatchFindsOffsetThatAlignsReturns(t *testing.T) {
	grid := probabilitygrid.NewGrid(probabilitygrid.DefaultOptions())
	for i := 0; i < 50; i++ {
		for k := 0; k < 5; k++ {
			grid.InsertHit(r2.Point{X: 1.05, Y: float64(i-25) * 0.05})
		}
	}

	returns := []r2.Point{{X: 1, Y: 0}}
	initial := transform.IdentityRigid2()
	opts := DefaultCorrelativeOptions()

	best, score := CorrelativeMatch(initial, returns, grid, opts)
	test.That(t, score > probabilitygridScoreAt(initial, returns, grid), test.ShouldBeTrue)
	test.That(t, best.Translation.X != 0 || best.Translation.Y != 0 || best.Angle != 0, test.ShouldBeTrue)
}

func probabilitygridScoreAt(pose transform.Rigid2, returns []r2.Point, grid *probabilitygrid.Grid) float64 {
	return scoreCandidate(pose, returns, grid)
}

package scanmatching

import (
	"math"

	"github.com/golang/geo/r2"

	"github.com/viam-modules/local-trajectory-builder/probabilitygrid"
	"github.com/viam-modules/local-trajectory-builder/transform"
)

// CorrelativeOptions configures the exhaustive grid search window and
// resolution.
type CorrelativeOptions struct {
	LinearSearchWindow   float64
	AngularSearchWindow  float64
	AngularStep          float64
	TranslationDeltaCost float64
	RotationDeltaCost    float64
}

// DefaultCorrelativeOptions returns a modest search window suitable for
// correcting small odometry drift between scan-matched fixes.
func DefaultCorrelativeOptions() CorrelativeOptions {
	return CorrelativeOptions{
		LinearSearchWindow:   0.1,
		AngularSearchWindow:  0.175,
		AngularStep:          0.025,
		TranslationDeltaCost: 1,
		RotationDeltaCost:    1,
	}
}

// CorrelativeMatch performs an exhaustive search over (dx, dy, dtheta) within
// opts' window around initial, scoring each candidate pose by the summed
// occupancy probability the returns land on, penalized by how far the
// candidate has drifted from initial. It returns the highest-scoring
// candidate pose and its score.
func CorrelativeMatch(
	initial transform.Rigid2,
	returns []r2.Point,
	grid *probabilitygrid.Grid,
	opts CorrelativeOptions,
) (transform.Rigid2, float64) {
	resolution := opts.AngularStep
	if resolution <= 0 {
		resolution = 0.025
	}
	linStep := resolution
	if linStep <= 0 {
		linStep = 0.025
	}

	best := initial
	bestScore := math.Inf(-1)

	for dtheta := -opts.AngularSearchWindow; dtheta <= opts.AngularSearchWindow; dtheta += resolution {
		for dx := -opts.LinearSearchWindow; dx <= opts.LinearSearchWindow; dx += linStep {
			for dy := -opts.LinearSearchWindow; dy <= opts.LinearSearchWindow; dy += linStep {
				candidate := transform.Rigid2{
					Translation: r2.Point{X: initial.Translation.X + dx, Y: initial.Translation.Y + dy},
					Angle:       initial.Angle + dtheta,
				}
				score := scoreCandidate(candidate, returns, grid)
				score -= opts.TranslationDeltaCost * math.Hypot(dx, dy)
				score -= opts.RotationDeltaCost * math.Abs(dtheta)
				if score > bestScore {
					bestScore = score
					best = candidate
				}
			}
		}
	}
	return best, bestScore
}

func scoreCandidate(pose transform.Rigid2, returns []r2.Point, grid *probabilitygrid.Grid) float64 {
	var sum float64
	for _, p := range returns {
		transformed := pose.Apply(p)
		sum += grid.InterpolatedProbability(transformed)
	}
	return sum
}

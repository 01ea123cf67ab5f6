// Package scanmatching implements the two-stage scan matcher: an optional
// correlative exhaustive search that coarsely refines a pose prediction,
// followed by a nonlinear least-squares refinement against the matching
// submap's probability grid.
package scanmatching

import (
	"github.com/golang/geo/r2"

	"github.com/viam-modules/local-trajectory-builder/probabilitygrid"
	"github.com/viam-modules/local-trajectory-builder/transform"
)

// Options bundles both stages' configuration plus the toggle for the
// correlative stage.
type Options struct {
	UseOnlineCorrelativeScanMatching bool
	Correlative                      CorrelativeOptions
	Ceres                            CeresOptions
}

// DefaultOptions returns the default configuration for both stages with the
// correlative stage enabled.
func DefaultOptions() Options {
	return Options{
		UseOnlineCorrelativeScanMatching: true,
		Correlative:                      DefaultCorrelativeOptions(),
		Ceres:                            DefaultCeresOptions(),
	}
}

// Result is the outcome of a scan match: the pose observation in the
// tracking frame (embedding tracking_2d_to_map back through the gravity
// alignment transform) and the nonlinear stage's convergence summary.
type Result struct {
	PoseObservation transform.Rigid3
	Summary         Summary
}

// Match runs both stages against the matching submap's grid. posePrediction
// is the full 3D pose prediction (odometry + constant-velocity model);
// trackingToTracking2D is the gravity-alignment transform computed by the
// caller; returns are the filtered returns, already expressed
// in the 2D tracking frame. Callers must not invoke Match with an empty
// returns set.
func Match(
	posePrediction transform.Rigid3,
	trackingToTracking2D transform.Rigid3,
	returns []r2.Point,
	grid *probabilitygrid.Grid,
	opts Options,
) Result {
	posePrediction2D := transform.Project2D(transform.Multiply3(posePrediction, trackingToTracking2D.Inverse()))

	initialCeresPose := posePrediction2D
	if opts.UseOnlineCorrelativeScanMatching {
		initialCeresPose, _ = CorrelativeMatch(posePrediction2D, returns, grid, opts.Correlative)
	}

	tracking2DToMap, summary := NonlinearMatch(posePrediction2D, initialCeresPose, returns, grid, opts.Ceres)

	poseObservation := transform.Multiply3(transform.Embed3D(tracking2DToMap), trackingToTracking2D)
	return Result{PoseObservation: poseObservation, Summary: summary}
}

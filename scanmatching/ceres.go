package scanmatching

import (
	"math"

	"github.com/golang/geo/r2"
	"gonum.org/v1/gonum/mat"

	"github.com/viam-modules/local-trajectory-builder/probabilitygrid"
	"github.com/viam-modules/local-trajectory-builder/transform"
)

// CeresOptions configures the nonlinear refinement's residual weights and
// iteration budget. Named after Cartographer's Ceres-based solver even
// though this package rolls its own small gradient-descent loop over a
// numerically differentiated cost.
type CeresOptions struct {
	OccupancyWeight   float64
	TranslationWeight float64
	RotationWeight    float64
	MaxIterations     int
}

// DefaultCeresOptions mirrors Cartographer's default residual weighting:
// occupancy dominates, with light regularization toward the correlative
// estimate and the original prediction.
func DefaultCeresOptions() CeresOptions {
	return CeresOptions{
		OccupancyWeight:   1,
		TranslationWeight: 10,
		RotationWeight:    40,
		MaxIterations:     20,
	}
}

// Summary reports whether the nonlinear refinement's iteration converged,
// mirroring the ceres::Solver::Summary Cartographer reads but never acts on.
type Summary struct {
	Converged  bool
	Iterations int
	FinalCost  float64
}

// NonlinearMatch refines initialCeresPose against grid's occupancy surface,
// regularized toward initialCeresPose (translation) and predicted
// (rotation). It returns the refined pose and a convergence summary.
func NonlinearMatch(
	predicted transform.Rigid2,
	initialCeresPose transform.Rigid2,
	returns []r2.Point,
	grid *probabilitygrid.Grid,
	opts CeresOptions,
) (transform.Rigid2, Summary) {
	x := mat.NewVecDense(3, []float64{
		initialCeresPose.Translation.X,
		initialCeresPose.Translation.Y,
		initialCeresPose.Angle,
	})

	maxIter := opts.MaxIterations
	if maxIter <= 0 {
		maxIter = 20
	}

	const step = 1e-4
	const learningRate = 0.5

	prevCost := math.Inf(1)
	converged := false
	iter := 0
	for ; iter < maxIter; iter++ {
		cost, grad := costAndGradient(x, predicted, initialCeresPose, returns, grid, opts, step)
		if math.Abs(prevCost-cost) < 1e-9 {
			converged = true
			break
		}
		prevCost = cost

		for i := 0; i < 3; i++ {
			x.SetVec(i, x.AtVec(i)-learningRate*grad.AtVec(i))
		}
	}

	result := transform.Rigid2{
		Translation: r2.Point{X: x.AtVec(0), Y: x.AtVec(1)},
		Angle:       x.AtVec(2),
	}
	return result, Summary{Converged: converged, Iterations: iter, FinalCost: prevCost}
}

func poseFromVec(x *mat.VecDense) transform.Rigid2 {
	return transform.Rigid2{
		Translation: r2.Point{X: x.AtVec(0), Y: x.AtVec(1)},
		Angle:       x.AtVec(2),
	}
}

// cost evaluates the weighted residual sum: occupancy mismatch over returns,
// translation deviation from the correlative estimate, and rotation
// deviation from the original prediction.
func cost(x *mat.VecDense, predicted, initialCeresPose transform.Rigid2, returns []r2.Point, grid *probabilitygrid.Grid, opts CeresOptions) float64 {
	pose := poseFromVec(x)
	var occupancyCost float64
	for _, p := range returns {
		transformed := pose.Apply(p)
		residual := 1 - grid.InterpolatedProbability(transformed)
		occupancyCost += residual * residual
	}
	dx := pose.Translation.X - initialCeresPose.Translation.X
	dy := pose.Translation.Y - initialCeresPose.Translation.Y
	translationCost := dx*dx + dy*dy

	dtheta := angleDiff(pose.Angle, predicted.Angle)
	rotationCost := dtheta * dtheta

	return opts.OccupancyWeight*occupancyCost +
		opts.TranslationWeight*translationCost +
		opts.RotationWeight*rotationCost
}

func angleDiff(a, b float64) float64 {
	d := a - b
	for d > math.Pi {
		d -= 2 * math.Pi
	}
	for d < -math.Pi {
		d += 2 * math.Pi
	}
	return d
}

// costAndGradient evaluates cost and its central-difference gradient with
// respect to x. A bilinearly-interpolated occupancy surface is not smooth
// enough in closed form to be worth differentiating analytically here; a
// numeric gradient keeps the solver simple and is cheap at three parameters.
func costAndGradient(
	x *mat.VecDense,
	predicted, initialCeresPose transform.Rigid2,
	returns []r2.Point,
	grid *probabilitygrid.Grid,
	opts CeresOptions,
	step float64,
) (float64, *mat.VecDense) {
	base := cost(x, predicted, initialCeresPose, returns, grid, opts)
	grad := mat.NewVecDense(3, nil)
	for i := 0; i < 3; i++ {
		perturbed := mat.NewVecDense(3, nil)
		perturbed.CopyVec(x)
		perturbed.SetVec(i, perturbed.AtVec(i)+step)
		plus := cost(perturbed, predicted, initialCeresPose, returns, grid, opts)
		perturbed.SetVec(i, perturbed.AtVec(i)-2*step)
		minus := cost(perturbed, predicted, initialCeresPose, returns, grid, opts)
		grad.SetVec(i, (plus-minus)/(2*step))
	}
	return base, grad
}

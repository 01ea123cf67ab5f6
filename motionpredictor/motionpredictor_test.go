package motionpredictor

import (
	"testing"
	"time"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"github.com/viam-modules/local-trajectory-builder/imutracker"
	"github.com/viam-modules/local-trajectory-builder/transform"
)

func TestPredictWithoutCursorReturnsPoseUnchanged(t *testing.T) {
	base := time.Now()
	tracker := imutracker.New(base, 0)
	pose := transform.Rigid3{Translation: r3.Vector{X: 1, Y: 2}, Rotation: transform.IdentityRigid3().Rotation}

	out := Predict(tracker, base, false, base.Add(time.Second), pose, r2.Point{X: 1, Y: 1})
	test.That(t, out, test.ShouldEqual, pose)
}

func TestPredictExtrapolatesTranslationByVelocityAndElapsedTime(t *testing.T) {
	base := time.Now()
	tracker := imutracker.New(base, 0)
	pose := transform.IdentityRigid3()

	out := Predict(tracker, base, true, base.Add(2*time.Second), pose, r2.Point{X: 1, Y: 2})
	test.That(t, out.Translation.X, test.ShouldAlmostEqual, 2.0)
	test.That(t, out.Translation.Y, test.ShouldAlmostEqual, 4.0)
}

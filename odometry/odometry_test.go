package odometry

import (
	"testing"
	"time"

	"go.viam.com/test"

	"github.com/viam-modules/local-trajectory-builder/transform"
)

func TestTrackerEvictsOldestBeyondCapacity(t *testing.T) {
	tr := NewTracker(2)
	base := time.Now()
	tr.AddOdometryState(State{Time: base})
	tr.AddOdometryState(State{Time: base.Add(time.Second)})
	tr.AddOdometryState(State{Time: base.Add(2 * time.Second)})

	test.That(t, len(tr.States()), test.ShouldEqual, 2)
	test.That(t, tr.States()[0].Time.Equal(base.Add(time.Second)), test.ShouldBeTrue)
	test.That(t, tr.Newest().Time.Equal(base.Add(2*time.Second)), test.ShouldBeTrue)
}

func TestEmptyTrackerReportsEmpty(t *testing.T) {
	tr := NewTracker(3)
	test.That(t, tr.Empty(), test.ShouldBeTrue)
	tr.AddOdometryState(State{OdometerPose: transform.IdentityRigid3()})
	test.That(t, tr.Empty(), test.ShouldBeFalse)
}

package motionfilter

import (
	"testing"
	"time"

	"go.viam.com/test"

	"github.com/viam-modules/local-trajectory-builder/transform"
)

func TestFirstPoseIsNeverSimilar(t *testing.T) {
	f := NewFilter(Options{MaxTime: time.Second, MaxDistance: 1, MaxAngle: 1})
	test.That(t, f.IsSimilar(time.Now(), transform.IdentityRigid2()), test.ShouldBeFalse)
}

func TestIdenticalPoseIsRejectedAfterAcceptance(t *testing.T) {
	f := NewFilter(Options{MaxTime: time.Second, MaxDistance: 0.1, MaxAngle: 0.1})
	base := time.Now()
	test.That(t, f.ShouldInsert(base, transform.IdentityRigid2()), test.ShouldBeTrue)
	test.That(t, f.ShouldInsert(base.Add(time.Millisecond), transform.IdentityRigid2()), test.ShouldBeFalse)
}

func TestZeroThresholdsAlwaysAccept(t *testing.T) {
	f := NewFilter(Options{})
	base := time.Now()
	test.That(t, f.ShouldInsert(base, transform.IdentityRigid2()), test.ShouldBeTrue)
	test.That(t, f.ShouldInsert(base, transform.IdentityRigid2()), test.ShouldBeTrue)
}

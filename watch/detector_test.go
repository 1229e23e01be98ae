package watch

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectorFiresOnBaselineAndChangeOnly(t *testing.T) {
	for k := 2; k <= 6; k++ {
		t.Run(fmt.Sprintf("change at tick %d", k), func(t *testing.T) {
			d := NewDetector()
			var fired []int
			for tick := 1; tick <= 8; tick++ {
				hash := "1111111111111111111111111111111111111111"
				if tick >= k {
					hash = "2222222222222222222222222222222222222222"
				}
				if d.Observe(hash, nil) == OutcomeChanged {
					fired = append(fired, tick)
				}
			}
			assert.Equal(t, []int{1, k}, fired)
			assert.Equal(t, 2, d.State().Changes)
		})
	}
}

func TestDetectorIdenticalHashAfterBaseline(t *testing.T) {
	d := NewDetector()
	assert.Equal(t, OutcomeChanged, d.Observe("abc123", nil))
	assert.Equal(t, OutcomeUnchanged, d.Observe("abc123", nil))
	assert.Equal(t, OutcomeUnchanged, d.Observe("abc123", nil))
	assert.Equal(t, 1, d.State().Changes)
}

func TestDetectorSyncFailureKeepsBaseline(t *testing.T) {
	d := NewDetector()
	d.Observe("abc123", nil)
	before := d.State()

	assert.Equal(t, OutcomeSyncFailed, d.Observe("", fmt.Errorf("pull failed")))
	after := d.State()
	assert.Equal(t, before.LastCommitHash, after.LastCommitHash)
	assert.Equal(t, before.ConsecutiveFailureCount+1, after.ConsecutiveFailureCount)
	assert.False(t, after.LastSyncSucceeded)
	assert.Equal(t, "pull failed", after.LastError)

	assert.Equal(t, OutcomeSyncFailed, d.Observe("", fmt.Errorf("pull failed")))
	assert.Equal(t, 2, d.State().ConsecutiveFailureCount)

	// The next comparison is against the unchanged hash.
	assert.Equal(t, OutcomeUnchanged, d.Observe("abc123", nil))
	st := d.State()
	assert.Equal(t, 0, st.ConsecutiveFailureCount)
	assert.Equal(t, 2, st.TotalFailures)
	assert.True(t, st.LastSyncSucceeded)
}

func TestDetectorFailureBeforeBaseline(t *testing.T) {
	d := NewDetector()
	assert.Equal(t, OutcomeSyncFailed, d.Observe("", fmt.Errorf("clone failed")))
	assert.False(t, d.State().HasBaseline())
	assert.Equal(t, OutcomeChanged, d.Observe("abc123", nil))
	assert.True(t, d.State().HasBaseline())
}

func TestDetectorEmptyHashIsFailure(t *testing.T) {
	d := NewDetector()
	assert.Equal(t, OutcomeSyncFailed, d.Observe("", nil))
	assert.Equal(t, 1, d.State().ConsecutiveFailureCount)
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "changed", OutcomeChanged.String())
	assert.Equal(t, "unchanged", OutcomeUnchanged.String())
	assert.Equal(t, "sync_failed", OutcomeSyncFailed.String())
}

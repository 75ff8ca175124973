package timeoutmgr

import (
	"testing"
	"time"

	"github.com/javsanpar/ogServer/internal/ogpeer"
	"github.com/stretchr/testify/require"
)

func TestDeadline_RESTClientAlwaysTenSeconds(t *testing.T) {
	t.Parallel()

	now := time.Now()
	for _, receiving := range []bool{true, false} {
		d := Deadline(ogpeer.RoleRESTClient, receiving, now)
		require.Equal(t, now.Add(RESTClientTimeout), d)
	}
}

func TestDeadline_AgentReceivingGetsThirtySeconds(t *testing.T) {
	t.Parallel()

	now := time.Now()
	d := Deadline(ogpeer.RoleAgent, true, now)
	require.Equal(t, now.Add(AgentTimeout), d)
}

// TestDeadline_AgentIdleIsExempt is property P6 / invariant I5: an
// agent waiting between messages gets no deadline at all.
func TestDeadline_AgentIdleIsExempt(t *testing.T) {
	t.Parallel()

	d := Deadline(ogpeer.RoleAgent, false, time.Now())
	require.True(t, d.IsZero())
}

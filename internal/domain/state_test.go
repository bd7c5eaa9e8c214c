package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMigrationState_Flags(t *testing.T) {
	tests := []struct {
		state                     MigrationState
		name, label               string
		resolved, applied, failed bool
	}{
		{StatePending, "PENDING", "Pending", true, false, false},
		{StateAboveTarget, "ABOVE_TARGET", ">Target", true, false, false},
		{StateBelowBaseline, "BELOW_BASELINE", "<Baseln", true, false, false},
		{StateBaseline, "BASELINE", "Baselin", true, true, false},
		{StateIgnored, "IGNORED", "Ignored", true, false, false},
		{StateMissingSuccess, "MISSING_SUCCESS", "Missing", false, true, false},
		{StateMissingFailed, "MISSING_FAILED", "MisFail", false, true, true},
		{StateSuccess, "SUCCESS", "Success", true, true, false},
		{StateFailed, "FAILED", "Failed", true, true, true},
		{StateOutOfOrder, "OUT_OF_ORDER", "OutOrdr", true, true, false},
		{StateFutureSuccess, "FUTURE_SUCCESS", "Future", false, true, false},
		{StateFutureFailed, "FUTURE_FAILED", "FutFail", false, true, true},
	}

	assert.Len(t, AllStates(), len(tests))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.name, tt.state.String())
			assert.Equal(t, tt.label, tt.state.DisplayName())
			assert.Equal(t, tt.resolved, tt.state.IsResolved())
			assert.Equal(t, tt.applied, tt.state.IsApplied())
			assert.Equal(t, tt.failed, tt.state.IsFailed())
		})
	}
}

func TestMigrationState_Unknown(t *testing.T) {
	s := MigrationState(99)
	assert.Equal(t, "UNKNOWN", s.String())
	assert.False(t, s.IsResolved())
}

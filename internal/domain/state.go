package domain

// MigrationState は照合結果としてのマイグレーションの状態を表す。
type MigrationState int

const (
	// StatePending はローカルに存在し、まだ適用されていない。
	StatePending MigrationState = iota
	// StateAboveTarget はターゲットより上位のため適用対象外。
	StateAboveTarget
	// StateBelowBaseline は台帳がより上位のバージョンでベースライン化されたため適用対象外。
	StateBelowBaseline
	// StateBaseline はベースラインを設定したマイグレーション。
	StateBaseline
	// StateIgnored はより上位のバージョンが適用済みのため無視された。
	StateIgnored
	// StateMissingSuccess は台帳上成功しているが、ローカルに存在しない。
	StateMissingSuccess
	// StateMissingFailed は台帳上失敗しており、ローカルに存在しない。
	StateMissingFailed
	// StateSuccess は順序どおりに成功した。
	StateSuccess
	// StateFailed は適用に失敗した。
	StateFailed
	// StateOutOfOrder は成功したが、より上位のバージョンの後に適用された。
	StateOutOfOrder
	// StateFutureSuccess はローカルの全バージョンより上位で、成功している。
	StateFutureSuccess
	// StateFutureFailed はローカルの全バージョンより上位で、失敗している。
	StateFutureFailed
)

type stateAttrs struct {
	name        string
	displayName string
	resolved    bool
	applied     bool
	failed      bool
}

var states = [...]stateAttrs{
	StatePending:        {"PENDING", "Pending", true, false, false},
	StateAboveTarget:    {"ABOVE_TARGET", ">Target", true, false, false},
	StateBelowBaseline:  {"BELOW_BASELINE", "<Baseln", true, false, false},
	StateBaseline:       {"BASELINE", "Baselin", true, true, false},
	StateIgnored:        {"IGNORED", "Ignored", true, false, false},
	StateMissingSuccess: {"MISSING_SUCCESS", "Missing", false, true, false},
	StateMissingFailed:  {"MISSING_FAILED", "MisFail", false, true, true},
	StateSuccess:        {"SUCCESS", "Success", true, true, false},
	StateFailed:         {"FAILED", "Failed", true, true, true},
	StateOutOfOrder:     {"OUT_OF_ORDER", "OutOrdr", true, true, false},
	StateFutureSuccess:  {"FUTURE_SUCCESS", "Future", false, true, false},
	StateFutureFailed:   {"FUTURE_FAILED", "FutFail", false, true, true},
}

func (s MigrationState) attrs() stateAttrs {
	if s < 0 || int(s) >= len(states) {
		return stateAttrs{name: "UNKNOWN", displayName: "Unknown"}
	}
	return states[s]
}

// String は状態の識別名（例: "OUT_OF_ORDER"）を返す。
func (s MigrationState) String() string { return s.attrs().name }

// DisplayName は表示用の短いラベル（例: "OutOrdr"）を返す。
func (s MigrationState) DisplayName() string { return s.attrs().displayName }

// IsResolved はローカルで発見されたマイグレーションかを返す。
func (s MigrationState) IsResolved() bool { return s.attrs().resolved }

// IsApplied は台帳に記録されているかを返す。
func (s MigrationState) IsApplied() bool { return s.attrs().applied }

// IsFailed は失敗として記録されているかを返す。
func (s MigrationState) IsFailed() bool { return s.attrs().failed }

// MarshalText は識別名を返す。
func (s MigrationState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// AllStates は全ての状態を宣言順に返す。
func AllStates() []MigrationState {
	all := make([]MigrationState, len(states))
	for i := range states {
		all[i] = MigrationState(i)
	}
	return all
}

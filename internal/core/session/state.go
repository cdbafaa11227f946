package session

import "fmt"

// State 匯入工作階段狀態
type State string

const (
	StateIdle           State = "idle"
	StateClassifying    State = "classifying"
	StateExtracting     State = "extracting"
	StateRetrying       State = "retrying"
	StateStructuring    State = "structuring"
	StateReadyForReview State = "ready_for_review"
	StateSaving         State = "saving"
	StateCompleted      State = "completed"
	StateFailed         State = "failed"
)

// 允許的狀態轉換，回到 idle 只能透過 ClearState
var transitions = map[State][]State{
	StateIdle:           {StateClassifying},
	StateClassifying:    {StateExtracting, StateStructuring, StateFailed},
	StateExtracting:     {StateStructuring, StateRetrying, StateFailed},
	StateRetrying:       {StateExtracting, StateFailed},
	StateStructuring:    {StateReadyForReview, StateFailed},
	StateReadyForReview: {StateSaving},
	StateSaving:         {StateCompleted, StateReadyForReview, StateFailed},
	StateCompleted:      {},
	StateFailed:         {},
}

// CanTransitionTo 檢查轉換是否合法
func (s State) CanTransitionTo(next State) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Busy 是否有遠端呼叫或處理正在進行
func (s State) Busy() bool {
	switch s {
	case StateClassifying, StateExtracting, StateRetrying, StateStructuring, StateSaving:
		return true
	}
	return false
}

// Terminal 是否為終止狀態
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}

func (s State) String() string { return string(s) }

type transitionError struct {
	from, to State
}

func (e transitionError) Error() string {
	return fmt.Sprintf("invalid session transition %s -> %s", e.from, e.to)
}

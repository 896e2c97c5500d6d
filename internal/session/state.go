package session

import (
	"context"
	"fmt"

	"github.com/qmuntal/stateless"
)

type State string

const (
	Unauthenticated State = "unauthenticated"
	Authenticating  State = "authenticating"
	Authenticated   State = "authenticated"
	Refreshing      State = "refreshing"
	Expired         State = "expired"
)

type trigger string

const (
	triggerLogin            trigger = "login"
	triggerVerifyOTP        trigger = "verify_otp"
	triggerLoginSucceeded   trigger = "login_succeeded"
	triggerLoginFailed      trigger = "login_failed"
	triggerRestore          trigger = "restore"
	triggerExpire           trigger = "expire"
	triggerRefresh          trigger = "refresh"
	triggerRefreshSucceeded trigger = "refresh_succeeded"
	triggerRefreshFailed    trigger = "refresh_failed"
	triggerRefreshAborted   trigger = "refresh_aborted"
	triggerLogout           trigger = "logout"
)

// TransitionError is returned when an operation is not allowed in the current state
type TransitionError struct {
	From    State
	Trigger string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("session: %s not allowed while %s", e.Trigger, e.From)
}

func newMachine() *stateless.StateMachine {
	sm := stateless.NewStateMachine(Unauthenticated)

	sm.Configure(Unauthenticated).
		Permit(triggerLogin, Authenticating).
		Permit(triggerVerifyOTP, Authenticating).
		Permit(triggerRestore, Authenticated).
		Permit(triggerExpire, Expired).
		Permit(triggerRefresh, Refreshing).
		Ignore(triggerLogout)

	sm.Configure(Authenticating).
		Permit(triggerLoginSucceeded, Authenticated).
		Permit(triggerLoginFailed, Unauthenticated).
		Permit(triggerLogout, Unauthenticated)

	sm.Configure(Authenticated).
		Permit(triggerLogin, Authenticating).
		Permit(triggerRefresh, Refreshing).
		Permit(triggerExpire, Expired).
		Permit(triggerLogout, Unauthenticated)

	sm.Configure(Refreshing).
		Permit(triggerRefreshSucceeded, Authenticated).
		Permit(triggerRefreshFailed, Unauthenticated).
		PermitDynamic(triggerRefreshAborted, backTo).
		Permit(triggerLogout, Unauthenticated)

	sm.Configure(Expired).
		Permit(triggerLogin, Authenticating).
		Permit(triggerRefresh, Refreshing).
		Permit(triggerLogout, Unauthenticated)

	return sm
}

// backTo returns to the state an interrupted refresh started from
func backTo(_ context.Context, args ...any) (stateless.State, error) {
	if len(args) == 1 {
		if s, ok := args[0].(State); ok {
			return s, nil
		}
	}
	return Expired, nil
}

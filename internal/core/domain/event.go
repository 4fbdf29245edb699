package domain

import "time"

// Op names a store operation in result events.
type Op string

const (
	OpSignup         Op = "session.signup"
	OpLogin          Op = "session.login"
	OpLogout         Op = "session.logout"
	OpFetchProfile   Op = "session.profile"
	OpUpdateProfile  Op = "session.update_profile"
	OpChangePassword Op = "session.change_password"
	OpDeleteAccount  Op = "session.delete_account"

	OpListLeads  Op = "lead.list"
	OpGetLead    Op = "lead.get"
	OpCreateLead Op = "lead.create"
	OpUpdateLead Op = "lead.update"
	OpDeleteLead Op = "lead.delete"
)

// Outcome is the result of an operation.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
)

// Event is emitted by the stores after every operation settles.
type Event struct {
	Op      Op
	Outcome Outcome
	Failure FailureKind
	Message string
	At      time.Time
}

// Succeeded builds a success event.
func Succeeded(op Op, msg string) Event {
	return Event{Op: op, Outcome: OutcomeSuccess, Message: msg, At: time.Now().UTC()}
}

// Failed builds a failure event classified from err.
func Failed(op Op, err error) Event {
	return Event{
		Op:      op,
		Outcome: OutcomeFailure,
		Failure: Classify(err),
		Message: UserMessage(err),
		At:      time.Now().UTC(),
	}
}

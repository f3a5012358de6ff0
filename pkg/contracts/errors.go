package contracts

import "errors"

// Kind buckets every failure for reporting and denial monitoring.
// Classification drives how callers and the audit pipeline treat an
// error; it never changes propagation, which is always abort-the-call.
type Kind string

const (
	KindValidation    Kind = "VALIDATION"
	KindAuthorization Kind = "AUTHORIZATION"
	KindState         Kind = "STATE"
	KindInvariant     Kind = "INVARIANT"
	KindReentrancy    Kind = "REENTRANCY"
	KindUnknown       Kind = "UNKNOWN"
)

// Validation failures: the caller supplied a bad amount, duration or
// fee rate. Reported, never retried automatically.
var (
	ErrInvalidAmount      = errors.New("amount must be positive")
	ErrAmountBelowMinimum = errors.New("amount below minimum bond")
	ErrAmountAboveMaximum = errors.New("amount exceeds maximum bond")
	ErrInvalidDuration    = errors.New("duration must be positive and bounded")
	ErrInvalidFeeBps      = errors.New("fee basis points exceed 10000")
	ErrInvalidHash        = errors.New("evidence hash must not be empty")
)

// Authorization failures: wrong identity, admin, governance or governor.
// Logged as denial events for monitoring.
var (
	ErrNotAuthorized = errors.New("caller is not the bond owner")
	ErrNotAdmin      = errors.New("caller is not the admin")
	ErrNotGovernance = errors.New("caller is not the governance principal")
	ErrNotGovernor   = errors.New("caller is not a governor")
)

// State failures: the operation does not apply to the current state.
var (
	ErrBondAlreadyExists          = errors.New("active bond already exists for identity")
	ErrBondNotFound               = errors.New("no bond exists for identity")
	ErrBondNotActive              = errors.New("bond is not active")
	ErrInsufficientBalance        = errors.New("insufficient withdrawable balance")
	ErrNotRollingBond             = errors.New("bond is not a rolling bond")
	ErrWithdrawalNotRequested     = errors.New("no withdrawal has been requested")
	ErrWithdrawalAlreadyRequested = errors.New("withdrawal already requested")
	ErrNoticePeriodNotElapsed     = errors.New("notice period has not elapsed")
	ErrLockupElapsed              = errors.New("lock-up has ended; use a normal withdrawal")
	ErrProposalNotFound           = errors.New("proposal not found")
	ErrProposalNotPending         = errors.New("proposal is not pending")
	ErrProposalNotApproved        = errors.New("proposal is not approved")
	ErrProposalNotDisputed        = errors.New("proposal is not disputed")
	ErrAlreadyExecuted            = errors.New("proposal already in a terminal state")
	ErrAlreadyVoted               = errors.New("governor already voted on this proposal")
	ErrDuplicateEvidence          = errors.New("evidence hash already submitted")
	ErrEvidenceNotFound           = errors.New("evidence record not found")
	ErrRecordNotFound             = errors.New("emergency record not found")
	ErrGovernanceUninitialized    = errors.New("governance is not initialized")
	ErrEmergencyDisabled          = errors.New("emergency mode is disabled")
	ErrEmergencyUnconfigured      = errors.New("emergency config is not set")
	ErrInsufficientAvailable      = errors.New("amount exceeds available bond balance")
)

// Invariant violations: fatal, the call aborts with nothing applied.
var (
	ErrOverflow         = errors.New("arithmetic overflow")
	ErrSlashExceedsBond = errors.New("slashed amount would exceed bonded amount")
)

// ErrReentrantCall is returned when a lock-guarded entry point is entered
// while the execution lock is already held.
var ErrReentrantCall = errors.New("reentrant call rejected")

var kinds = map[error]Kind{
	ErrInvalidAmount:      KindValidation,
	ErrAmountBelowMinimum: KindValidation,
	ErrAmountAboveMaximum: KindValidation,
	ErrInvalidDuration:    KindValidation,
	ErrInvalidFeeBps:      KindValidation,
	ErrInvalidHash:        KindValidation,

	ErrNotAuthorized: KindAuthorization,
	ErrNotAdmin:      KindAuthorization,
	ErrNotGovernance: KindAuthorization,
	ErrNotGovernor:   KindAuthorization,

	ErrBondAlreadyExists:          KindState,
	ErrBondNotFound:               KindState,
	ErrBondNotActive:              KindState,
	ErrInsufficientBalance:        KindState,
	ErrNotRollingBond:             KindState,
	ErrWithdrawalNotRequested:     KindState,
	ErrWithdrawalAlreadyRequested: KindState,
	ErrNoticePeriodNotElapsed:     KindState,
	ErrLockupElapsed:              KindState,
	ErrProposalNotFound:           KindState,
	ErrProposalNotPending:         KindState,
	ErrProposalNotApproved:        KindState,
	ErrProposalNotDisputed:        KindState,
	ErrAlreadyExecuted:            KindState,
	ErrAlreadyVoted:               KindState,
	ErrDuplicateEvidence:          KindState,
	ErrEvidenceNotFound:           KindState,
	ErrRecordNotFound:             KindState,
	ErrGovernanceUninitialized:    KindState,
	ErrEmergencyDisabled:          KindState,
	ErrEmergencyUnconfigured:      KindState,
	ErrInsufficientAvailable:      KindState,

	ErrOverflow:         KindInvariant,
	ErrSlashExceedsBond: KindInvariant,

	ErrReentrantCall: KindReentrancy,
}

// KindOf classifies err against the sentinel taxonomy, unwrapping as
// needed. Unrecognized errors report KindUnknown.
func KindOf(err error) Kind {
	for sentinel, kind := range kinds {
		if errors.Is(err, sentinel) {
			return kind
		}
	}
	return KindUnknown
}

// IsDenial reports whether err should be logged as an access denial.
func IsDenial(err error) bool {
	return KindOf(err) == KindAuthorization
}

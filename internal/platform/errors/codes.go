package errors

import "net/http"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// CodeMalformedRequest marks an unparseable request body or parameter.
	CodeMalformedRequest Code = "MALFORMED_REQUEST"

	// Authentication errors
	CodeUnauthenticated       Code = "UNAUTHENTICATED"
	CodeIdentityTokenInvalid  Code = "IDENTITY_TOKEN_INVALID"
	CodeIdentityTokenExpired  Code = "IDENTITY_TOKEN_EXPIRED"
	CodeIdentityTokenMismatch Code = "IDENTITY_TOKEN_MISMATCH"

	// Family errors
	CodeFamilyNotFound  Code = "FAMILY_NOT_FOUND"
	CodeFamilyNameEmpty Code = "FAMILY_NAME_EMPTY"

	// Membership errors
	CodeNotAParent          Code = "NOT_A_PARENT"
	CodeNotAMember          Code = "NOT_A_MEMBER"
	CodeAlreadyMember       Code = "ALREADY_MEMBER"
	CodeCannotRemoveCreator Code = "CANNOT_REMOVE_CREATOR"
	CodeInvalidIdentity     Code = "INVALID_IDENTITY"
	CodeInvalidRole         Code = "INVALID_ROLE"
	CodeMemberNameEmpty     Code = "MEMBER_NAME_EMPTY"

	// Proposal errors
	CodeProposalNotFound      Code = "PROPOSAL_NOT_FOUND"
	CodeProposalTitleEmpty    Code = "PROPOSAL_TITLE_EMPTY"
	CodeProposalAmountInvalid Code = "PROPOSAL_AMOUNT_INVALID"
	CodeRecipientEmpty        Code = "PROPOSAL_RECIPIENT_EMPTY"
	CodeDurationInvalid       Code = "PROPOSAL_DURATION_INVALID"
	CodeAlreadyVoted          Code = "ALREADY_VOTED"
	CodeVotingClosed          Code = "VOTING_CLOSED"
	CodeVotingOpen            Code = "VOTING_OPEN"
	CodeNotPending            Code = "PROPOSAL_NOT_PENDING"
	CodeCannotVetoOwnProposal Code = "CANNOT_VETO_OWN_PROPOSAL"

	// Claim errors
	CodeInsufficientVotes Code = "INSUFFICIENT_VOTES"
	CodeAlreadyWithdrawn  Code = "ALREADY_WITHDRAWN"
	CodeInsufficientFunds Code = "INSUFFICIENT_FUNDS"
	CodeTransferFailed    Code = "TRANSFER_FAILED"

	// Custody errors
	CodeWalletNotFound    Code = "WALLET_NOT_FOUND"
	CodeWalletUnauthorized Code = "WALLET_UNAUTHORIZED"

	// Storage errors
	CodeNotFound Code = "NOT_FOUND"
	CodeInternal Code = "INTERNAL"
)

// HTTPStatus maps domain codes to HTTP response status codes.
func (c Code) HTTPStatus() int {
	switch c {
	// Bad request - validation failures, malformed input
	case CodeMalformedRequest,
		CodeFamilyNameEmpty,
		CodeInvalidIdentity,
		CodeInvalidRole,
		CodeMemberNameEmpty,
		CodeProposalTitleEmpty,
		CodeProposalAmountInvalid,
		CodeRecipientEmpty,
		CodeDurationInvalid:
		return http.StatusBadRequest

	// Unauthorized - missing or unusable caller identity
	case CodeUnauthenticated,
		CodeIdentityTokenInvalid,
		CodeIdentityTokenExpired,
		CodeIdentityTokenMismatch:
		return http.StatusUnauthorized

	// Forbidden - caller lacks the required role
	case CodeNotAParent,
		CodeNotAMember,
		CodeCannotVetoOwnProposal,
		CodeCannotRemoveCreator,
		CodeWalletUnauthorized:
		return http.StatusForbidden

	// Not found - resource doesn't exist
	case CodeFamilyNotFound,
		CodeProposalNotFound,
		CodeWalletNotFound,
		CodeNotFound:
		return http.StatusNotFound

	// Conflict - state doesn't allow the operation
	case CodeAlreadyMember,
		CodeAlreadyVoted,
		CodeVotingClosed,
		CodeVotingOpen,
		CodeNotPending,
		CodeInsufficientVotes,
		CodeAlreadyWithdrawn,
		CodeInsufficientFunds:
		return http.StatusConflict

	// Bad gateway - the external value transfer failed
	case CodeTransferFailed:
		return http.StatusBadGateway

	default:
		return http.StatusInternalServerError
	}
}

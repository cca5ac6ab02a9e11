package domain

import "net/http"

// OutcomeKind discriminates NotificationOutcome variants.
type OutcomeKind string

const (
	OutcomeSuccess      OutcomeKind = "success"
	OutcomeDegraded     OutcomeKind = "degraded"
	OutcomeUnauthorized OutcomeKind = "unauthorized"
	OutcomeFailure      OutcomeKind = "failure"
)

// FailureKind classifies a Failure outcome.
type FailureKind string

const (
	FailureInput     FailureKind = "InputError"
	FailureAuth      FailureKind = "AuthError"
	FailureDirectory FailureKind = "DirectoryError"
	FailurePublish   FailureKind = "PublishError"
	FailureInternal  FailureKind = "Internal"
)

// Reasons and levels reported to callers.
const (
	ReasonNoThreadPermission = "no thread permission"
	LevelAuthenticatedUser   = "authenticated user"
)

// Outcome is the only value the join gateway returns. Fields beyond Kind
// are populated according to the variant.
type Outcome struct {
	Kind          OutcomeKind
	ThreadID      string
	PostID        string
	Reason        string
	RequiredLevel string
	Failure       FailureKind

	// Actor is the identity the request resolved to; never serialized.
	Actor ActorIdentity
}

// Success reports a created post.
func Success(threadID, postID string) Outcome {
	return Outcome{Kind: OutcomeSuccess, ThreadID: threadID, PostID: postID}
}

// Degraded reports a soft failure of the durable channel.
func Degraded(reason string) Outcome {
	return Outcome{Kind: OutcomeDegraded, Reason: reason}
}

// Unauthorized reports that the caller lacks the required level.
func Unauthorized(requiredLevel string) Outcome {
	return Outcome{Kind: OutcomeUnauthorized, RequiredLevel: requiredLevel}
}

// Failure reports a hard failure of the given kind.
func Failure(kind FailureKind, reason string) Outcome {
	return Outcome{Kind: OutcomeFailure, Failure: kind, Reason: reason}
}

// HTTPStatus maps the outcome to its response status code.
func (o Outcome) HTTPStatus() int {
	switch o.Kind {
	case OutcomeSuccess, OutcomeDegraded:
		return http.StatusOK
	case OutcomeUnauthorized:
		return http.StatusUnauthorized
	}
	switch o.Failure {
	case FailureInput:
		return http.StatusBadRequest
	case FailureAuth:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// Label is a short tag for logs and audit entries.
func (o Outcome) Label() string {
	if o.Kind == OutcomeFailure {
		return string(o.Kind) + ":" + string(o.Failure)
	}
	return string(o.Kind)
}

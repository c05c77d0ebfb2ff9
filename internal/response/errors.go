package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrInvalidCredentials ErrCode = "INVALID_CREDENTIALS"
	ErrTokenRequired      ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid       ErrCode = "TOKEN_INVALID"
	ErrTokenExpired       ErrCode = "TOKEN_EXPIRED"

	// ─── Authorization ─────────────────────────────────────────────────
	ErrForbidden ErrCode = "FORBIDDEN"
	ErrNotOwner  ErrCode = "NOT_OWNER"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidID      ErrCode = "INVALID_ID"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound  ErrCode = "NOT_FOUND"
	ErrConflict  ErrCode = "CONFLICT"
	ErrSlugTaken ErrCode = "SLUG_TAKEN"

	// ─── Questions & tests ─────────────────────────────────────────────
	ErrIncompatibleVisibility ErrCode = "INCOMPATIBLE_VISIBILITY"
	ErrQuestionInUse          ErrCode = "QUESTION_IN_USE"
	ErrQuestionArchived       ErrCode = "QUESTION_ARCHIVED"
	ErrTestDisabled           ErrCode = "TEST_DISABLED"

	// ─── Assessments ───────────────────────────────────────────────────
	ErrAssessmentCompleted ErrCode = "ASSESSMENT_COMPLETED"
	ErrAssessmentAbandoned ErrCode = "ASSESSMENT_ABANDONED"
	ErrAssessmentExpired   ErrCode = "ASSESSMENT_EXPIRED"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Authentication ────────────────────────────────────────────────
	case ErrInvalidCredentials:
		return "Email or password is incorrect."
	case ErrTokenRequired:
		return "An authentication token is required."
	case ErrTokenInvalid:
		return "The authentication token is invalid."
	case ErrTokenExpired:
		return "The authentication token has expired."

	// ─── Authorization ─────────────────────────────────────────────────
	case ErrForbidden:
		return "You do not have permission to access this resource."
	case ErrNotOwner:
		return "You are not the owner of this resource."

	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "Validation failed. Please check your input."
	case ErrInvalidID:
		return "The ID format is invalid."
	case ErrInvalidPayload:
		return "The request payload is invalid."

	// ─── Resources ─────────────────────────────────────────────────────
	case ErrNotFound:
		return "The requested resource was not found."
	case ErrConflict:
		return "The resource already exists."
	case ErrSlugTaken:
		return "This slug is already in use by another test."

	// ─── Questions & tests ─────────────────────────────────────────────
	case ErrIncompatibleVisibility:
		return "The visibility change is blocked by incompatible linked entities."
	case ErrQuestionInUse:
		return "The question is linked to one or more tests and was archived instead of deleted."
	case ErrQuestionArchived:
		return "An archived question cannot be attached to a test."
	case ErrTestDisabled:
		return "This test is not currently accepting new assessments."

	// ─── Assessments ───────────────────────────────────────────────────
	case ErrAssessmentCompleted:
		return "This assessment has already been submitted."
	case ErrAssessmentAbandoned:
		return "This assessment was abandoned."
	case ErrAssessmentExpired:
		return "This assessment has expired."

	// ─── Rate Limiting ─────────────────────────────────────────────────
	case ErrRateLimitExceeded:
		return "Too many requests. Please try again later."

	// ─── Server ────────────────────────────────────────────────────────
	case ErrInternal:
		return "An internal server error occurred."
	default:
		return "An unexpected error occurred."
	}
}

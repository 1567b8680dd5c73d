package i18n

// Error codes must match the codes defined in internal/platform/errors/codes.go.
const (
	CodeUnknown                    = "UNKNOWN"
	CodeValidationRequired         = "VALIDATION_REQUIRED"
	CodeValidationInvalidEnum      = "VALIDATION_INVALID_ENUM"
	CodeValidationTooLong          = "VALIDATION_TOO_LONG"
	CodeValidationOutOfRange       = "VALIDATION_OUT_OF_RANGE"
	CodeValidationInvalidURL       = "VALIDATION_INVALID_URL"
	CodeUnauthenticated            = "UNAUTHENTICATED"
	CodeForbidden                  = "FORBIDDEN"
	CodeMembershipRequired         = "MEMBERSHIP_REQUIRED"
	CodeNotFound                   = "NOT_FOUND"
	CodeJoinRequestAlreadyResolved = "JOIN_REQUEST_ALREADY_RESOLVED"
	CodeRoomInactive               = "ROOM_INACTIVE"
	CodeLastTeacherRequired        = "LAST_TEACHER_REQUIRED"
	CodeConflict                   = "CONFLICT"
	CodeDependencyFailure          = "DEPENDENCY_FAILURE"
)

var enUSMessages = map[Code]string{
	CodeUnknown:                    "Something went wrong. Please try again.",
	CodeValidationRequired:         "{{.Field}} is required.",
	CodeValidationInvalidEnum:      "{{.Field}} must be one of: {{.Allowed}}.",
	CodeValidationTooLong:          "{{.Field}} must be at most {{.Max}} characters.",
	CodeValidationOutOfRange:       "{{.Field}} is out of range.",
	CodeValidationInvalidURL:       "{{.Field}} must be an http or https link.",
	CodeUnauthenticated:            "Sign in to continue.",
	CodeForbidden:                  "You do not have permission to do that in this room.",
	CodeMembershipRequired:         "Only approved room members can do that.",
	CodeNotFound:                   "The {{.Resource}} could not be found.",
	CodeJoinRequestAlreadyResolved: "This join request was already {{.Status}}.",
	CodeRoomInactive:               "This room is closed.",
	CodeLastTeacherRequired:        "A room must keep at least one teacher.",
	CodeConflict:                   "That change conflicts with the current room state.",
	CodeDependencyFailure:          "The room service is temporarily unavailable.",
}

package models

// Form names accepted by the submission stub.
const (
	FormLogin         = "login"
	FormSignup        = "signup"
	FormFindID        = "find_id"
	FormResetPassword = "reset_password"
)

// FormSubmission is whatever the rendering layer posted from an auth screen.
type FormSubmission struct {
	Form   string            `json:"form"`
	FlowID string            `json:"flow_id,omitempty"`
	Fields map[string]string `json:"fields"`
}

// SubmitResult is the answer of the authentication boundary.
type SubmitResult struct {
	Form    string `json:"form"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

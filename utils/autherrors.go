package utils

// Closed set of user-facing authentication failure categories. The client
// binds these codes to UI copy; anything unmapped reports as unknown.
const (
	AuthErrInvalidCredentials = "invalid-credentials"
	AuthErrUnknownAccount     = "unknown-account"
	AuthErrEmailTaken         = "email-taken"
	AuthErrWeakPassword       = "weak-password"
	AuthErrRateLimited        = "rate-limited"
	AuthErrUnknown            = "unknown"
)

var authErrorMessages = map[string]string{
	AuthErrInvalidCredentials: "Invalid email or password",
	AuthErrUnknownAccount:     "No account is linked to this email",
	AuthErrEmailTaken:         "Email is already registered",
	AuthErrWeakPassword:       "Password must be at least 6 characters",
	AuthErrRateLimited:        "Too many failed attempts, try again later",
	AuthErrUnknown:            "Authentication failed",
}

// AuthErrorMessage resolves a category code to its user-facing message.
func AuthErrorMessage(code string) string {
	if msg, ok := authErrorMessages[code]; ok {
		return msg
	}
	return authErrorMessages[AuthErrUnknown]
}

package session

import "github.com/contesthub/contesthub/internal/identity"

const (
	TitleSignInFailed  = "Login Failed"
	TitleSignUpFailed  = "Registration Failed"
	TitleOAuthFailed   = "Google Sign-In Failed"
	TitleUpdateFailed  = "Update Failed"
	TitleSignedIn      = "Welcome back!"
	TitleSignedUp      = "Account created!"
	TitleSignedOut     = "Logged out"
	TitleProfileUpdate = "Profile updated"
)

const (
	MessageUserNotFound   = "No account found with this email"
	MessageWrongPassword  = "Incorrect password"
	MessageInvalidEmail   = "Invalid email address"
	MessageEmailInUse     = "Email already in use"
	MessageWeakPassword   = "Password should be at least 6 characters"
	MessageSignInFallback = "Invalid email or password"
	MessageSignUpFallback = "Registration failed"
	MessageNoUser         = "No user logged in"
	MessageUpdateFallback = "Failed to update profile"
)

var credentialMessages = map[identity.Code]string{
	identity.CodeUserNotFound:  MessageUserNotFound,
	identity.CodeWrongPassword: MessageWrongPassword,
	identity.CodeInvalidEmail:  MessageInvalidEmail,
	identity.CodeEmailInUse:    MessageEmailInUse,
	identity.CodeWeakPassword:  MessageWeakPassword,
}

// CredentialMessage maps a provider failure to the text shown to the user. Codes outside the
// credential set get fallback.
func CredentialMessage(code identity.Code, fallback string) string {
	if msg, ok := credentialMessages[code]; ok {
		return msg
	}
	return fallback
}

func credentialError(title, fallback string, err error) *AuthError {
	code := identity.CodeOf(err)
	return &AuthError{
		Kind:    KindCredential,
		Code:    code,
		Title:   title,
		Message: CredentialMessage(code, fallback),
		Err:     err,
	}
}

// oauthError surfaces the provider's own message; the popup flow has no credential codes of
// its own.
func oauthError(err error) *AuthError {
	code := identity.CodeOf(err)
	kind := KindCredential
	if code == identity.CodePopupClosed {
		kind = KindPopup
	}
	msg := identity.MessageOf(err)
	if m, ok := credentialMessages[code]; ok {
		msg = m
	}
	if msg == "" {
		msg = MessageSignInFallback
	}
	return &AuthError{Kind: kind, Code: code, Title: TitleOAuthFailed, Message: msg, Err: err}
}

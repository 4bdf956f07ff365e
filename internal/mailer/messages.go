package mailer

import (
	"html/template"
	"net/url"
	"strings"
)

// actionLink builds a frontend deep link of the form
// {frontendURL}/auth/{path}?token={token}.
func actionLink(frontendURL, path, token string) string {
	base := strings.TrimRight(frontendURL, "/")
	return base + "/auth/" + path + "?token=" + url.QueryEscape(token)
}

// VerificationEmail renders the account-verification message carrying the
// signed verification token as a frontend link.
func VerificationEmail(frontendURL, token string) (subject, html string) {
	link := actionLink(frontendURL, "verify-email", token)
	html = `
      <h1>Verify Your Email Address</h1>
      <p>Thank you for registering. Please verify your email address by clicking the link below:</p>
      <a href="` + template.HTMLEscapeString(link) + `" target="_blank">Verify Email</a>
      <p>If you did not register, please ignore this email.</p>
    `
	return "Email Verification - Complete Your Registration", html
}

// ResetPasswordEmail renders the forgotten-password message carrying the
// signed reset token as a frontend link.
func ResetPasswordEmail(frontendURL, token string) (subject, html string) {
	link := actionLink(frontendURL, "reset-password", token)
	html = `
      <h1>Reset Your Password</h1>
      <p>We received a request to reset your password. Click the link below to choose a new one:</p>
      <a href="` + template.HTMLEscapeString(link) + `" target="_blank">Reset Password</a>
      <p>If you did not request a password reset, please ignore this email.</p>
    `
	return "Password Reset - Choose a New Password", html
}

// WelcomeEmail renders the message sent once an account completes
// verification.
func WelcomeEmail(firstName string) (subject, html string) {
	html = `
      <h1>Welcome, ` + template.HTMLEscapeString(firstName) + `!</h1>
      <p>Your account has been verified and is ready to use.</p>
    `
	return "Welcome Aboard", html
}

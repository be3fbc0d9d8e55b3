package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/writedesk/internal/common"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
// They point to interactive input helpers and can be swapped in tests.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

var errMissingInput = errors.New("input required")

// Login prompts for credentials and signs in. When the account has two-factor
// authentication enabled the code is asked for right away; an empty answer
// leaves the login pending for a later verify-2fa.
func (a *App) Login(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}
	if email == "" {
		return a.report(errMissingInput)
	}

	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	remember, err := getSimpleText(a.reader, "Remember me? (y/N)", a.out)
	if err != nil {
		return err
	}

	res, err := a.session.Login(ctx, email, string(password), isYes(remember))
	if err != nil {
		return a.report(err)
	}

	if res.Requires2FA {
		a.pendingEmail = email
		code, err := getSimpleText(a.reader, "Enter two-factor code (empty to enter later with verify-2fa)", a.out)
		if err != nil {
			return err
		}
		if code == "" {
			return nil
		}
		return a.verify2FA(ctx, code)
	}

	a.pendingEmail = ""
	a.greet()
	return nil
}

// VerifyOTP completes a sign-in with a one-time password sent by e-mail.
// Usage: verify-otp [email] [code].
func (a *App) VerifyOTP(ctx context.Context, args []string) error {
	email, err := a.argOrPrompt(args, 0, "Enter email")
	if err != nil {
		return err
	}
	otp, err := a.argOrPrompt(args, 1, "Enter one-time password")
	if err != nil {
		return err
	}

	if _, err := a.session.VerifyOTP(ctx, email, otp); err != nil {
		return a.report(err)
	}
	a.pendingEmail = ""
	a.greet()
	return nil
}

// Verify2FA completes a pending login. Usage: verify-2fa [code].
func (a *App) Verify2FA(ctx context.Context, args []string) error {
	if a.pendingEmail == "" {
		email, err := getSimpleText(a.reader, "Enter email", a.out)
		if err != nil {
			return err
		}
		a.pendingEmail = email
	}
	code, err := a.argOrPrompt(args, 0, "Enter two-factor code")
	if err != nil {
		return err
	}
	return a.verify2FA(ctx, code)
}

func (a *App) verify2FA(ctx context.Context, code string) error {
	if _, err := a.session.Verify2FA(ctx, a.pendingEmail, code); err != nil {
		return a.report(err)
	}
	a.pendingEmail = ""
	a.greet()
	return nil
}

// Logout ends the session and forgets everything cached for it.
func (a *App) Logout(ctx context.Context) error {
	err := a.session.Logout(ctx)
	a.cache.Reset()
	if err != nil {
		return a.report(err)
	}
	fmt.Fprintln(a.out, "Logged out.")
	return nil
}

// WhoAmI re-fetches and prints the current profile.
func (a *App) WhoAmI(ctx context.Context) error {
	p, err := a.session.Profile(ctx)
	if err != nil {
		return a.report(err)
	}
	fmt.Fprintf(a.out, "Name:  %s\n", p.DisplayName())
	fmt.Fprintf(a.out, "Email: %s\n", p.Email)
	if p.Role != "" {
		fmt.Fprintf(a.out, "Role:  %s\n", p.Role)
	}
	if p.Institution != "" {
		fmt.Fprintf(a.out, "Institution: %s\n", p.Institution)
	}
	fmt.Fprintf(a.out, "2FA:   %s\n", onOff(p.TwoFactorEnabled))
	return nil
}

func (a *App) greet() {
	if p, ok := a.session.CurrentProfile(); ok {
		fmt.Fprintf(a.out, "Welcome, %s!\n", p.DisplayName())
		return
	}
	if u, ok := a.session.User(); ok {
		fmt.Fprintf(a.out, "Welcome, %s!\n", u.Email)
		return
	}
	fmt.Fprintln(a.out, "Success!")
}

// argOrPrompt returns args[i] when present, otherwise asks the user.
func (a *App) argOrPrompt(args []string, i int, prompt string) (string, error) {
	if i < len(args) {
		return args[i], nil
	}
	v, err := getSimpleText(a.reader, prompt, a.out)
	if err != nil {
		return "", err
	}
	if v == "" {
		return "", a.report(errMissingInput)
	}
	return v, nil
}

func isYes(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "y", "yes":
		return true
	}
	return false
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

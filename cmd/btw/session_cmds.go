package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"btw-buddy/internal/auth"
	"btw-buddy/internal/metrics"
	"btw-buddy/internal/timeutil"
)

func cmdLogin(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	fs.SetOutput(a.out)
	email := fs.String("email", "", "Account email")
	password := fs.String("password", "", "Password (default $BTW_PASSWORD, else prompted)")
	code := fs.String("otp", "", "One-time code, when two-factor authentication is on")
	totpSecret := fs.String("totp-secret", "", "Base32 TOTP secret to generate the one-time code from")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	var err error
	if *email == "" {
		if *email, err = a.prompt("Email"); err != nil {
			return err
		}
	}
	if *password == "" {
		*password = os.Getenv("BTW_PASSWORD")
	}
	if *password == "" {
		if *password, err = a.prompt("Password"); err != nil {
			return err
		}
	}

	resp, err := a.session.Login(ctx, *email, *password)
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}

	if !resp.Requires2FA {
		fmt.Fprintf(a.out, "Logged in as %s\n", a.session.User().Email)
		return nil
	}

	if *code == "" && *totpSecret != "" {
		if *code, err = auth.GenerateOTP(*totpSecret, time.Now()); err != nil {
			return fmt.Errorf("generate one-time code: %w", err)
		}
	}
	if *code == "" {
		if resp.Message != "" {
			fmt.Fprintln(a.out, resp.Message)
		}
		fmt.Fprintf(a.out, "Two-factor code required. Run: btw verify-otp -user %d -code <code>\n", resp.UserID)
		return nil
	}
	return verifyOTP(ctx, a, resp.UserID, *code)
}

func cmdVerifyOTP(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("verify-otp", flag.ContinueOnError)
	fs.SetOutput(a.out)
	userID := fs.Int("user", 0, "User id from the login response")
	code := fs.String("code", "", "Six digit code from the authenticator app")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if *userID == 0 || *code == "" {
		fs.Usage()
		return errUsage
	}
	return verifyOTP(ctx, a, *userID, *code)
}

func verifyOTP(ctx context.Context, a *app, userID int, code string) error {
	if !auth.ValidOTPFormat(code) {
		return errors.New("the code must be 6 digits")
	}
	if _, err := a.session.VerifyOTP(ctx, userID, code); err != nil {
		return fmt.Errorf("verify code: %w", err)
	}
	fmt.Fprintf(a.out, "Logged in as %s\n", a.session.User().Email)
	return nil
}

func cmdLogout(_ context.Context, a *app, _ []string) error {
	a.session.Logout()
	fmt.Fprintln(a.out, "Logged out")
	return nil
}

func cmdWhoami(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("whoami", flag.ContinueOnError)
	fs.SetOutput(a.out)
	offline := fs.Bool("offline", false, "Only decode the stored token, do not ask the server")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if err := a.requireSession(); err != nil {
		return err
	}

	user := a.session.User()
	fmt.Fprintf(a.out, "User:    %s (id %d)\n", user.Email, user.UserID)
	fmt.Fprintf(a.out, "Expires: %s\n", timeutil.ToLocal(user.ExpiresAt).Format("02-01-2006 15:04:05"))
	if *offline {
		return nil
	}

	me, err := a.client.Me(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Name:    %s %s\n", me.FirstName, me.LastName)
	if me.CompanyName != "" {
		fmt.Fprintf(a.out, "Company: %s (KvK %s)\n", me.CompanyName, me.KvKNumber)
	}
	fmt.Fprintf(a.out, "2FA:     %v\n", me.TOTPEnabled)
	return nil
}

func cmdRefresh(ctx context.Context, a *app, _ []string) error {
	if _, err := a.session.RefreshAccessToken(ctx); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Access token valid until %s\n",
		timeutil.ToLocal(a.session.User().ExpiresAt).Format("02-01-2006 15:04:05"))
	return nil
}

// cmdKeepalive refreshes shortly before expiry until the context ends. With a
// metrics address it also serves /metrics so the refresh counters can be scraped.
func cmdKeepalive(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("keepalive", flag.ContinueOnError)
	fs.SetOutput(a.out)
	interval := fs.Duration("interval", 15*time.Second, "How often to check the token")
	addr := fs.String("metrics", a.cfg.Metrics.Addr, "Address to serve /metrics on, e.g. :9101")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if err := a.requireSession(); err != nil {
		return err
	}

	if *addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		srv := &http.Server{Addr: *addr, Handler: mux}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				fmt.Fprintf(a.out, "metrics server: %v\n", err)
			}
		}()
		defer srv.Close()
	}

	skew := a.cfg.RefreshSkew()
	fmt.Fprintf(a.out, "Keeping session for %s alive (refresh %s before expiry)\n", a.session.User().Email, skew)

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()
	for {
		if a.session.ExpiresWithin(skew) {
			if _, err := a.session.RefreshAccessToken(ctx); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "%s refreshed, valid until %s\n",
				timeutil.Now().Format("15:04:05"), timeutil.ToLocal(a.session.User().ExpiresAt).Format("15:04:05"))
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func cmdVerifyEmail(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("verify-email", flag.ContinueOnError)
	fs.SetOutput(a.out)
	token := fs.String("token", "", "Token from the verification email")
	resend := fs.String("resend", "", "Send a new verification email to this address instead")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	switch {
	case *resend != "":
		if err := a.auth.SendVerificationEmail(ctx, *resend); err != nil {
			return err
		}
		fmt.Fprintf(a.out, "If %s has an unverified account, a new email is on its way\n", *resend)
	case *token != "":
		if err := a.auth.VerifyEmail(ctx, *token); err != nil {
			return err
		}
		fmt.Fprintln(a.out, "Email address verified")
	default:
		fs.Usage()
		return errUsage
	}
	return nil
}

func cmdTwoFactor(ctx context.Context, a *app, args []string) error {
	if len(args) == 0 {
		fmt.Fprintln(a.out, "Usage: btw 2fa setup | enable -code <code>")
		return errUsage
	}
	if err := a.requireSession(); err != nil {
		return err
	}

	switch args[0] {
	case "setup":
		setup, err := a.client.Setup2FA(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "Add this account to your authenticator app:\n")
		fmt.Fprintf(a.out, "  Issuer:  %s\n  Account: %s\n  Secret:  %s\n", setup.Issuer, setup.AccountName, setup.Secret)
		fmt.Fprintln(a.out, "Then confirm with: btw 2fa enable -code <code>")
		return nil
	case "enable":
		fs := flag.NewFlagSet("2fa enable", flag.ContinueOnError)
		fs.SetOutput(a.out)
		code := fs.String("code", "", "Six digit code from the authenticator app")
		if err := fs.Parse(args[1:]); err != nil {
			return errUsage
		}
		if !auth.ValidOTPFormat(*code) {
			return errors.New("the code must be 6 digits")
		}
		if err := a.client.Enable2FA(ctx, auth.NormalizeOTP(*code)); err != nil {
			return err
		}
		fmt.Fprintln(a.out, "Two-factor authentication enabled")
		return nil
	}
	return fmt.Errorf("unknown 2fa command %q", args[0])
}

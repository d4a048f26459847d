package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/MrEthical07/authclient"
)

func register(c *cli.Context) error {
	if err := requireArgs(c, 2, "EMAIL USERNAME"); err != nil {
		return err
	}
	if !c.Bool(flagAcceptPrivacy) {
		return fmt.Errorf("register requires --%s", flagAcceptPrivacy)
	}
	password, err := newPrompter(c).secret(c, flagPassword, "Password")
	if err != nil {
		return err
	}

	m, release, err := getManager(c)
	if err != nil {
		return err
	}
	defer release()

	if err := m.Register(c.Context, authclient.RegisterRequest{
		Email:           c.Args().Get(0),
		Username:        c.Args().Get(1),
		Password:        password,
		PrivacyAccepted: true,
	}); err != nil {
		return failure(c, err)
	}

	fmt.Fprintf(c.App.Writer, "Account %s created. Check your inbox to verify %s.\n",
		c.Args().Get(1), c.Args().Get(0))
	return nil
}

func passwordForgot(c *cli.Context) error {
	if err := requireArgs(c, 1, "EMAIL"); err != nil {
		return err
	}

	m, release, err := getManager(c)
	if err != nil {
		return err
	}
	defer release()

	if err := m.ForgotPassword(c.Context, c.Args().First()); err != nil {
		return failure(c, err)
	}

	fmt.Fprintln(c.App.Writer, "If the address is registered, a reset link is on its way.")
	return nil
}

func passwordReset(c *cli.Context) error {
	if err := requireArgs(c, 1, "TOKEN"); err != nil {
		return err
	}
	next, err := newPrompter(c).secret(c, flagNewPassword, "New password")
	if err != nil {
		return err
	}

	m, release, err := getManager(c)
	if err != nil {
		return err
	}
	defer release()

	if err := m.ResetPassword(c.Context, authclient.ResetPasswordRequest{
		Token:       c.Args().First(),
		NewPassword: next,
	}); err != nil {
		return failure(c, err)
	}

	fmt.Fprintln(c.App.Writer, "Password reset. Sign in with the new password.")
	return nil
}

func passwordChange(c *cli.Context) error {
	if err := requireArgs(c, 0, "no arguments"); err != nil {
		return err
	}
	p := newPrompter(c)
	current, err := p.secret(c, flagCurrentPassword, "Current password")
	if err != nil {
		return err
	}
	next, err := p.secret(c, flagNewPassword, "New password")
	if err != nil {
		return err
	}

	m, release, err := getManager(c)
	if err != nil {
		return err
	}
	defer release()

	if err := m.ChangePassword(c.Context, authclient.ChangePasswordRequest{
		CurrentPassword: current,
		NewPassword:     next,
	}); err != nil {
		return failure(c, err)
	}

	fmt.Fprintln(c.App.Writer, "Password changed.")
	return nil
}

func emailVerify(c *cli.Context) error {
	if err := requireArgs(c, 1, "TOKEN"); err != nil {
		return err
	}

	m, release, err := getManager(c)
	if err != nil {
		return err
	}
	defer release()

	if err := m.VerifyEmail(c.Context, c.Args().First()); err != nil {
		return failure(c, err)
	}

	fmt.Fprintln(c.App.Writer, "E-mail address verified.")
	return nil
}

func emailResend(c *cli.Context) error {
	if err := requireArgs(c, 1, "EMAIL"); err != nil {
		return err
	}

	m, release, err := getManager(c)
	if err != nil {
		return err
	}
	defer release()

	if err := m.ResendVerification(c.Context, c.Args().First()); err != nil {
		return failure(c, err)
	}

	fmt.Fprintln(c.App.Writer, "Verification e-mail requested.")
	return nil
}

func exportData(c *cli.Context) error {
	if err := requireArgs(c, 0, "no arguments"); err != nil {
		return err
	}

	m, release, err := getManager(c)
	if err != nil {
		return err
	}
	defer release()

	data, err := m.ExportData(c.Context)
	if err != nil {
		return failure(c, err)
	}

	file := c.String(flagFile)
	if file == "" {
		fmt.Fprintln(c.App.Writer, string(data))
		return nil
	}
	if err := os.WriteFile(file, data, 0o600); err != nil {
		return fmt.Errorf("error writing %s: %w", file, err)
	}
	fmt.Fprintf(c.App.Writer, "Export written to %s.\n", file)
	return nil
}

func deleteAccount(c *cli.Context) error {
	if err := requireArgs(c, 0, "no arguments"); err != nil {
		return err
	}
	if !c.Bool(flagYes) {
		return errors.New("delete-account is permanent; pass --yes to confirm")
	}
	password, err := newPrompter(c).secret(c, flagPassword, "Password")
	if err != nil {
		return err
	}

	m, release, err := getManager(c)
	if err != nil {
		return err
	}
	defer release()

	if err := m.DeleteAccount(c.Context, password); err != nil {
		return failure(c, err)
	}

	fmt.Fprintln(c.App.Writer, "Account deleted. You have been signed out.")
	return nil
}

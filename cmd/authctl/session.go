package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gosuri/uitable"
	"github.com/urfave/cli/v2"

	"github.com/MrEthical07/authclient"
)

func login(c *cli.Context) error {
	if err := requireArgs(c, 1, "EMAIL"); err != nil {
		return err
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

	if err := m.Login(c.Context, authclient.LoginRequest{
		Email:    c.Args().First(),
		Password: password,
		Remember: c.Bool(flagRemember),
	}); err != nil {
		return failure(c, err)
	}

	fmt.Fprintf(c.App.Writer, "Signed in as %s.\n", m.State().User.Username)
	return nil
}

func adminLogin(c *cli.Context) error {
	if err := requireArgs(c, 1, "USERNAME"); err != nil {
		return err
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

	if err := m.AdminLogin(c.Context, authclient.AdminLoginRequest{
		Username: c.Args().First(),
		Password: password,
	}); err != nil {
		return failure(c, err)
	}

	fmt.Fprintf(c.App.Writer, "Signed in as administrator %s.\n", m.State().User.Username)
	return nil
}

func logout(c *cli.Context) error {
	if err := requireArgs(c, 0, "no arguments"); err != nil {
		return err
	}

	m, release, err := getManager(c)
	if err != nil {
		return err
	}
	defer release()

	// the local session is cleared even when the backend call fails
	m.Logout(c.Context)

	fmt.Fprintln(c.App.Writer, "Signed out.")
	return nil
}

func refresh(c *cli.Context) error {
	if err := requireArgs(c, 0, "no arguments"); err != nil {
		return err
	}

	m, release, err := getManager(c)
	if err != nil {
		return err
	}
	defer release()

	if !m.State().IsAuthenticated {
		return failure(c, authclient.ErrNotAuthenticated)
	}
	if err := m.RefreshTokens(c.Context); err != nil {
		return failure(c, err)
	}

	fmt.Fprintf(c.App.Writer, "Session refreshed%s.\n", expiresSuffix(m.Credentials().ExpiresAt))
	return nil
}

type whoamiView struct {
	ID         string              `json:"id"`
	Email      string              `json:"email"`
	Username   string              `json:"username"`
	IsVerified bool                `json:"is_verified"`
	IsAdmin    bool                `json:"is_admin"`
	ExpiresAt  *time.Time          `json:"expires_at,omitempty"`
	Profile    *authclient.Profile `json:"profile,omitempty"`
}

func whoami(c *cli.Context) error {
	if err := requireArgs(c, 0, "no arguments"); err != nil {
		return err
	}
	output := strings.ToLower(c.String(flagOutput))
	if err := validateOutputFormat(output); err != nil {
		return err
	}

	m, release, err := getManager(c)
	if err != nil {
		return err
	}
	defer release()

	state := m.State()
	if !state.IsAuthenticated {
		fmt.Fprintln(c.App.Writer, "Not signed in.")
		return nil
	}

	view := whoamiView{
		ID:         state.User.ID,
		Email:      state.User.Email,
		Username:   state.User.Username,
		IsVerified: state.User.IsVerified,
		IsAdmin:    state.IsAdmin,
		Profile:    state.User.Profile,
	}
	if exp := state.Credentials.ExpiresAt; !exp.IsZero() {
		view.ExpiresAt = &exp
	}

	switch output {
	case "table":
		table := uitable.New()
		table.AddRow("USERNAME", view.Username)
		table.AddRow("EMAIL", view.Email)
		table.AddRow("ID", view.ID)
		table.AddRow("VERIFIED", strconv.FormatBool(view.IsVerified))
		table.AddRow("ADMIN", strconv.FormatBool(view.IsAdmin))
		if view.ExpiresAt != nil {
			table.AddRow("TOKEN EXPIRES", view.ExpiresAt.Local().Format(time.RFC1123))
		}
		if p := view.Profile; p != nil {
			table.AddRow("LEVEL", strconv.Itoa(p.Level))
			table.AddRow("XP", strconv.Itoa(p.XP))
			table.AddRow("STREAK", strconv.Itoa(p.Streak))
			table.AddRow("COMPLETED", strconv.Itoa(p.CompletedCount))
		}
		fmt.Fprintln(c.App.Writer, table)

	case "json":
		out, err := json.MarshalIndent(view, "", "  ")
		if err != nil {
			return fmt.Errorf("error formatting output: %w", err)
		}
		fmt.Fprintln(c.App.Writer, string(out))
	}
	return nil
}

func validateOutputFormat(output string) error {
	switch output {
	case "table", "json":
		return nil
	default:
		return fmt.Errorf("unknown output format %q", output)
	}
}

func expiresSuffix(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return ", access token valid until " + t.Local().Format(time.Kitchen)
}

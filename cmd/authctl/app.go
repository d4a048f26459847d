package main

import (
	"github.com/urfave/cli/v2"
)

func newApp() *cli.App {
	app := cli.NewApp()
	app.Name = "authctl"
	app.Usage = "Sign in to an authentication backend and manage the local session"
	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:    flagConfig,
			Aliases: []string{"c"},
			Usage:   "TOML configuration file; AUTHCLIENT_* variables are used when omitted",
			EnvVars: []string{"AUTHCTL_CONFIG"},
		},
		&cli.StringFlag{
			Name:  flagEnvFile,
			Usage: "File of KEY=VALUE lines loaded into the environment before configuration",
			Value: ".env",
		},
		&cli.StringFlag{
			Name:  flagStore,
			Usage: "Override the session store: memory, file, sqlite or redis",
		},
		&cli.BoolFlag{
			Name:  flagDebug,
			Usage: "Log client activity to standard error",
		},
		&cli.BoolFlag{
			Name:  flagAudit,
			Usage: "Write audit events as JSON lines to standard error",
		},
	}
	app.Before = loadEnvFile
	app.Commands = []*cli.Command{
		{
			Name:      "login",
			Usage:     "Sign in with e-mail and password",
			ArgsUsage: "EMAIL",
			Flags: []cli.Flag{
				cliFlagPassword,
				&cli.BoolFlag{
					Name:  flagRemember,
					Usage: "Ask the backend for a long-lived session",
				},
			},
			Action: login,
		},
		{
			Name:      "admin-login",
			Usage:     "Sign in as the administrator",
			ArgsUsage: "USERNAME",
			Flags:     []cli.Flag{cliFlagPassword},
			Action:    adminLogin,
		},
		{
			Name:   "logout",
			Usage:  "Sign out and clear the stored session",
			Action: logout,
		},
		{
			Name:   "refresh",
			Usage:  "Exchange the refresh token for a new credential bundle",
			Action: refresh,
		},
		{
			Name:   "whoami",
			Usage:  "Show the signed-in user",
			Flags:  []cli.Flag{cliFlagOutput},
			Action: whoami,
		},
		{
			Name:      "register",
			Usage:     "Create an account",
			ArgsUsage: "EMAIL USERNAME",
			Flags: []cli.Flag{
				cliFlagPassword,
				&cli.BoolFlag{
					Name:  flagAcceptPrivacy,
					Usage: "Accept the privacy policy (required)",
				},
			},
			Action: register,
		},
		{
			Name:  "password",
			Usage: "Manage the account password",
			Subcommands: []*cli.Command{
				{
					Name:      "forgot",
					Usage:     "Request a password reset e-mail",
					ArgsUsage: "EMAIL",
					Action:    passwordForgot,
				},
				{
					Name:      "reset",
					Usage:     "Set a new password with a reset token",
					ArgsUsage: "TOKEN",
					Flags:     []cli.Flag{cliFlagNewPassword},
					Action:    passwordReset,
				},
				{
					Name:  "change",
					Usage: "Change the signed-in user's password",
					Flags: []cli.Flag{
						&cli.StringFlag{
							Name:  flagCurrentPassword,
							Usage: "Current password; read from standard input when omitted",
						},
						cliFlagNewPassword,
					},
					Action: passwordChange,
				},
			},
		},
		{
			Name:  "email",
			Usage: "Manage e-mail verification",
			Subcommands: []*cli.Command{
				{
					Name:      "verify",
					Usage:     "Confirm an e-mail address with a verification token",
					ArgsUsage: "TOKEN",
					Action:    emailVerify,
				},
				{
					Name:      "resend",
					Usage:     "Request a new verification e-mail",
					ArgsUsage: "EMAIL",
					Action:    emailResend,
				},
			},
		},
		{
			Name:  "export",
			Usage: "Download the signed-in user's data",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:    flagFile,
					Aliases: []string{"f"},
					Usage:   "Write the export to a file instead of standard output",
				},
			},
			Action: exportData,
		},
		{
			Name:  "delete-account",
			Usage: "Delete the signed-in user's account",
			Flags: []cli.Flag{
				cliFlagPassword,
				&cli.BoolFlag{
					Name:  flagYes,
					Usage: "Confirm the deletion",
				},
			},
			Action: deleteAccount,
		},
	}
	return app
}

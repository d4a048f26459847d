package main

import "github.com/urfave/cli/v2"

const (
	flagAcceptPrivacy   = "accept-privacy"
	flagAudit           = "audit"
	flagConfig          = "config"
	flagCurrentPassword = "current-password"
	flagDebug           = "debug"
	flagEnvFile         = "env-file"
	flagFile            = "file"
	flagNewPassword     = "new-password"
	flagOutput          = "output"
	flagPassword        = "password"
	flagRemember        = "remember"
	flagStore           = "store"
	flagYes             = "yes"
)

var (
	cliFlagOutput = &cli.StringFlag{
		Name:    flagOutput,
		Aliases: []string{"o"},
		Usage:   "Return output in another format. Supported formats: table, json",
		Value:   "table",
	}
	cliFlagPassword = &cli.StringFlag{
		Name:    flagPassword,
		Aliases: []string{"p"},
		Usage:   "Password; read from standard input when omitted",
		EnvVars: []string{"AUTHCTL_PASSWORD"},
	}
	cliFlagNewPassword = &cli.StringFlag{
		Name:  flagNewPassword,
		Usage: "New password; read from standard input when omitted",
	}
)

/*
 * Gitscape
 * Copyright (C) 2025  Gitscape, Inc.
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU Affero General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU Affero General Public License for more details.
 *
 * You should have received a copy of the GNU Affero General Public License
 * along with this program.  If not, see <http://www.gnu.org/licenses/>.
 */

package utils

import (
	"bytes"
	"context"
	"crypto/x509"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"strconv"
	"strings"

	"github.com/alecthomas/kingpin/v2"
	"github.com/gravitational/trace"

	"github.com/gitscape/gitscape"
	logutils "github.com/gitscape/gitscape/lib/utils/log"
)

// InitCLIParser configures kingpin command line args parser with
// some defaults common for all Gitscape CLI tools.
func InitCLIParser(appName, appHelp string) (app *kingpin.Application) {
	app = kingpin.New(appName, appHelp)

	// hide "--help" flag
	app.HelpFlag.Hidden()
	app.HelpFlag.NoEnvar()

	// set our own help template
	return app.UsageTemplate(createUsageTemplate())
}

// UpdateAppUsageTemplate updates usage template for kingpin applications by
// pre-parsing the arguments then applying any changes to the usage template if
// necessary.
func UpdateAppUsageTemplate(app *kingpin.Application, args []string) {
	app.UsageTemplate(createUsageTemplate(
		withCommandPrintfWidth(app, args),
	))
}

// createUsageTemplate creates an usage template for kingpin applications.
func createUsageTemplate(opts ...func(*usageTemplateOptions)) string {
	opt := &usageTemplateOptions{
		commandPrintfWidth: defaultCommandPrintfWidth,
	}

	for _, optFunc := range opts {
		optFunc(opt)
	}
	return fmt.Sprintf(defaultUsageTemplate, opt.commandPrintfWidth)
}

// withCommandPrintfWidth returns a usage template option that
// updates command printf width if longer than default.
func withCommandPrintfWidth(app *kingpin.Application, args []string) func(*usageTemplateOptions) {
	return func(opt *usageTemplateOptions) {
		var commands []*kingpin.CmdModel

		// When selected command is "help", skip the "help" arg
		// so the intended command is selected for calculation.
		if len(args) > 0 && args[0] == "help" {
			args = args[1:]
		}

		appContext, err := app.ParseContext(args)
		switch {
		case appContext == nil:
			slog.WarnContext(context.Background(), "No application context found")
			return

		// Note that ParseContext may return the current selected command that's
		// causing the error. We should continue in those cases when appContext is
		// not nil.
		case err != nil:
			slog.InfoContext(context.Background(), "Error parsing application context", "error", err)
		}

		if appContext.SelectedCommand != nil {
			commands = appContext.SelectedCommand.Model().FlattenedCommands()
		} else {
			commands = app.Model().FlattenedCommands()
		}

		for _, command := range commands {
			if !command.Hidden && len(command.FullCommand) > opt.commandPrintfWidth {
				opt.commandPrintfWidth = len(command.FullCommand)
			}
		}
	}
}

// usageTemplateOptions defines options to format the usage template.
type usageTemplateOptions struct {
	// commandPrintfWidth is the width of the command name with padding, for
	//   {{.FullCommand | printf "%%-%ds"}}
	commandPrintfWidth int
}

// defaultCommandPrintfWidth is the default command printf width.
const defaultCommandPrintfWidth = 12

// defaultUsageTemplate is a fmt format that defines the usage template with
// compactly formatted commands. Should be only used in createUsageTemplate.
const defaultUsageTemplate = `{{define "FormatCommand" -}}
{{if .FlagSummary}} {{.FlagSummary}}{{end -}}
{{range .Args}} {{if not .Required}}[{{end}}<{{.Name}}>{{if .Value|IsCumulative}}...{{end}}{{if not .Required}}]{{end}}{{end -}}
{{end}}
{{define "FormatCommands" -}}
{{range .FlattenedCommands -}}
{{if not .Hidden}}  {{.FullCommand | printf "%%-%ds"}}{{.Help}}
{{end -}}
{{end -}}
{{end}}
{{define "FormatUsage" -}}
{{template "FormatCommand" .}}{{if .Commands}} <command> [<args> ...]{{end}}
{{if .Help}}
{{.Help|Wrap 0 -}}
{{end -}}
{{end}}
{{if .Context.SelectedCommand}}Usage: {{.App.Name}} {{.Context.SelectedCommand}}{{template "FormatUsage" .Context.SelectedCommand}}
{{else}}Usage: {{.App.Name}}{{template "FormatUsage" .App}}
{{end}}
{{if .Context.Flags -}}
Flags:
{{.Context.Flags|FlagsToTwoColumns|FormatTwoColumns}}
{{end -}}
{{if .Context.Args -}}
Args:
{{.Context.Args|ArgsToTwoColumns|FormatTwoColumns}}
{{end -}}
{{if .Context.SelectedCommand -}}
{{if .Context.SelectedCommand.Commands -}}
Commands:
{{template "FormatCommands" .Context.SelectedCommand}}
{{end -}}
{{else if .App.Commands -}}
Commands:
{{template "FormatCommands" .App}}
{{end -}}
`

// FatalError is for CLI front-ends: it detects gravitational/trace debugging
// information, sends it to the logger, strips it off and prints a clean
// message to stderr.
func FatalError(err error) {
	fmt.Fprintln(os.Stderr, UserMessageFromError(err))
	os.Exit(1)
}

// PrintVersion prints human readable version.
func PrintVersion() {
	if gitscape.Gitref != "" {
		fmt.Printf("Gitscape v%v git:%v %v\n", gitscape.Version, gitscape.Gitref, runtime.Version())
	} else {
		fmt.Printf("Gitscape v%v %v\n", gitscape.Version, runtime.Version())
	}
}

// UserMessageFromError returns user-friendly error message from error.
// The error message will be formatted for output depending on the debug
// flag.
func UserMessageFromError(err error) string {
	if err == nil {
		return ""
	}
	var buf bytes.Buffer
	if slog.Default().Enabled(context.Background(), logutils.TraceLevel) {
		fmt.Fprintln(&buf, trace.DebugReport(err))
	}
	var unknownAuthority x509.UnknownAuthorityError
	if errors.As(err, &unknownAuthority) {
		return `WARNING:

  The server you are connecting to has presented a certificate signed by a
  unknown authority. This is most likely due to either being presented
  with a self-signed certificate or the certificate was truly signed by an
  authority not known to the client.

  If you are sure you trust the server, use the --insecure flag to skip
  certificate verification.`
	}
	var invalidCert x509.CertificateInvalidError
	if errors.As(err, &invalidCert) {
		return fmt.Sprintf(`WARNING:

  The certificate presented by the server is invalid: %v.

  Contact your system administrator to resolve this issue.`, invalidCert)
	}
	if userMessage := trace.UserMessage(err); userMessage != "" {
		fmt.Fprint(&buf, Color(Red, "ERROR: ")+AllowWhitespace(userMessage))
	}
	return buf.String()
}

const (
	// Red is an ANSI color code for red terminal color.
	Red = 31
	// Yellow is an ANSI color code for yellow terminal color.
	Yellow = 33
)

// Color formats the string in a terminal escape color.
func Color(color int, v any) string {
	return fmt.Sprintf("\x1b[%dm%v\x1b[0m", color, v)
}

// EscapeControl escapes all ANSI escape sequences from string and returns a
// string that is safe to print on the CLI. This is to ensure that malicious
// servers can not hide output. If quotes are not needed for safety, the
// original string is returned.
func EscapeControl(s string) string {
	if needsQuoting(s) {
		return fmt.Sprintf("%q", s)
	}
	return s
}

// AllowWhitespace escapes all ANSI escape sequences except newlines and tabs,
// which are preserved so that formatted output stays readable.
func AllowWhitespace(s string) string {
	if !needsQuoting(s) {
		return s
	}
	var sb strings.Builder
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		parts := strings.Split(line, "\t")
		for j, part := range parts {
			sb.WriteString(EscapeControl(part))
			if j < len(parts)-1 {
				sb.WriteString("\t")
			}
		}
		if i < len(lines)-1 {
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

// needsQuoting returns true if any non-printable characters are found.
func needsQuoting(text string) bool {
	for _, r := range text {
		if !strconv.IsPrint(r) {
			return true
		}
	}
	return false
}

package failfast

import (
	"context"
	"io"

	"github.com/fatih/color"
	"github.com/pkg/errors"

	"tagdeploy/internal/logger"
	"tagdeploy/internal/prompt"
	"tagdeploy/internal/release"
	"tagdeploy/internal/ship"
	"tagdeploy/internal/sshconfig"
)

// Category groups the ways a run can end.
type Category int

const (
	Success     Category = iota
	Declined             // the operator said no to a required confirmation
	Environment          // the server or its folder is not what the run expects
	Interrupted          // the run was cancelled from outside
	Unexpected           // anything else: git, archive, network, permissions
)

func (c Category) String() string {
	switch c {
	case Success:
		return "success"
	case Declined:
		return "declined"
	case Environment:
		return "environment"
	case Interrupted:
		return "interrupted"
	}
	return "unexpected"
}

// ExitCode is the process status for a category.
func (c Category) ExitCode() int {
	switch c {
	case Success:
		return 0
	case Interrupted:
		return 130
	}
	return 1
}

func Classify(err error) Category {
	if err == nil {
		return Success
	}

	var (
		unknown *sshconfig.UnknownHostError
		invalid *sshconfig.InvalidHostError
		missing *ship.MissingFolderError
	)
	switch {
	case errors.Is(err, context.Canceled):
		return Interrupted
	case errors.Is(err, release.ErrTagCreationDeclined), errors.Is(err, prompt.ErrNoInput):
		return Declined
	case errors.As(err, &unknown), errors.As(err, &invalid), errors.As(err, &missing):
		return Environment
	}
	return Unexpected
}

var (
	flog = logger.PackageLogger("failfast", "🚨 FailFast::")

	errorColor = color.New(color.FgRed, color.Bold)
	warnColor  = color.New(color.FgYellow, color.Bold)
)

// Report prints err for the operator and returns the exit code to use.
func Report(w io.Writer, err error) int {
	cat := Classify(err)
	switch cat {
	case Success:
	case Declined:
		warnColor.Fprintf(w, "🛑 Operação cancelada: %v\n", err)
	case Interrupted:
		warnColor.Fprintln(w, "🚨 Execução interrompida")
	case Environment:
		errorColor.Fprintf(w, "❌ %v\n", err)
	default:
		errorColor.Fprintf(w, "💥 Erro inesperado: %v\n", err)
		flog.Debug("%+v", err)
	}
	return cat.ExitCode()
}

package main

import (
	"context"
	"os"

	"github.com/ariel-frischer/matrix-runner/internal/cli"
	"github.com/ariel-frischer/matrix-runner/internal/errors"
)

func main() {
	if err := cli.Execute(context.Background()); err != nil {
		errors.Fprint(os.Stderr, err)
		os.Exit(errors.ExitCode(err))
	}
}

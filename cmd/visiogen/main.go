package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"visiogen/internal/services"
)

func main() {
	_ = godotenv.Load()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cmd := newRootCommand()
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, formatFailure(err))
		os.Exit(exitCode(err))
	}
}

// formatFailure renders marker errors as "kind (stage): message" and other
// errors verbatim.
func formatFailure(err error) string {
	failure := services.Details(err)
	if failure.Kind == services.KindInternal {
		return err.Error()
	}
	return failure.String()
}

func exitCode(err error) int {
	switch services.FailureKind(err) {
	case services.KindCanceled:
		return 130
	case services.KindMissingInput, services.KindValidation, services.KindConfiguration:
		return 2
	default:
		return 1
	}
}

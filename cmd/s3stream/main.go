// Command s3stream streams data into S3 objects using parallel multipart uploads.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/bitrise-io/go-utils/v2/env"
	"github.com/bitrise-io/go-utils/v2/log"
)

func main() {
	logger := log.NewLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root, err := newRootCmd(newApp(logger, env.NewRepository()))
	if err != nil {
		logger.Errorf("%s", err)
		os.Exit(1)
	}

	if err := root.ExecuteContext(ctx); err != nil {
		logger.Errorf("%s", err)
		stop()
		os.Exit(1)
	}
}

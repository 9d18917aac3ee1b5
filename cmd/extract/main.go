package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/Adithya-Monish-Kumar-K/Text-Retrieval-Core/internal/extract"
	"github.com/Adithya-Monish-Kumar-K/Text-Retrieval-Core/pkg/logger"
)

func main() {
	level := flag.String("log-level", "info", "log level (debug, info, warn, error)")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] input_dir output_dir\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 2 {
		flag.Usage()
		os.Exit(2)
	}
	logger.Setup("extract", *level, "text")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sum, err := extract.ExtractDir(ctx, flag.Arg(0), flag.Arg(1))
	if err != nil {
		slog.Error("extraction failed", "error", err, "files", sum.Files, "docs", sum.Docs)
		os.Exit(1)
	}
	slog.Info("extraction complete", "files", sum.Files, "docs", sum.Docs)
}

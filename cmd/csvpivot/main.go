// Package main is the entry point for the csvpivot CLI.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/viper"

	"github.com/jeffhb60/csv-pivot-app/cmd/csvpivot/commands"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := commands.NewApp(viper.New())
	defer app.Close(context.Background())

	rootCmd := commands.NewRootCommand(app)
	rootCmd.AddCommand(commands.NewDescribeCommand(app))
	rootCmd.AddCommand(commands.NewPreviewCommand(app))
	rootCmd.AddCommand(commands.NewPivotCommand(app))
	rootCmd.AddCommand(commands.NewInteractiveCommand(app))
	rootCmd.AddCommand(commands.NewInitCommand(app))
	rootCmd.AddCommand(commands.NewVersionCommand(app))

	return rootCmd.ExecuteContext(ctx)
}

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var rootCmd = &cobra.Command{
	Use:          "watchparty",
	Short:        "Shared video room: uploads, background conversion, push events and chat",
	SilenceUsage: true,
	RunE:         runServe, // без подкоманды запускаем сервер
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newZap(level string) *zap.Logger {
	var (
		z   *zap.Logger
		err error
	)
	if level == "debug" {
		z, err = zap.NewDevelopment()
	} else {
		z, err = zap.NewProduction()
	}
	if err != nil {
		return zap.NewNop()
	}
	return z
}

// Author: Kaviru Hapuarachchi
// GitHub: https://github.com/Kavirubc
// Created: 2026-02-02
// Last Modified: 2026-10-12

// Package main is the entry point for the tuleap-migrate CLI.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/similigh/tuleap-migrate/cmd/tuleap-migrate/commands"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := commands.Execute(ctx)
	stop()

	if err != nil {
		os.Exit(1)
	}
}

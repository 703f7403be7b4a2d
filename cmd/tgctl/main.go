// Command tgctl queries a TeselaGen platform from the command line.
//
//	tgctl --config tg.yaml --lab Synbio aliquots list --all
//	TG_USERNAME=me@example.com TG_PASSWORD=... tgctl samples get 42
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd, a := newRootCmd()
	err := cmd.ExecuteContext(ctx)
	if cerr := a.close(); cerr != nil {
		log.Warn().Err(cerr).Msg("Failed to release clients")
	}
	if err != nil {
		log.Error().Err(err).Msg("tgctl failed")
		stop()
		os.Exit(1)
	}
}

// Command dispd runs the compositor core as a standalone process: it
// loads (or bootstraps) a seat/device configuration, wires the raw
// input event pump into a Display, and idles until interrupted (spec §6
// "CLI entry and argument parsing are not covered" — this is the
// minimal flag-based entry point SPEC_FULL.md's AMBIENT STACK section
// calls for, grounded on cmd/gogio/main.go's flag-parse-then-run shape).
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/kestrelos/dispd/display"
	"github.com/kestrelos/dispd/dsid"
	"github.com/kestrelos/dispd/ievent"
)

var instance = flag.Int("instance", 0, "service instance number (spec §6); selects this instance's persisted configuration file")

func cfgPathFor(instance int) string {
	dir := os.Getenv("DISPD_CFG_DIR")
	if dir == "" {
		dir = "/var/lib/dispd"
	}
	return filepath.Join(dir, fmt.Sprintf("display-%d.yaml", instance))
}

// resolveIdev is the name-service lookup LoadCfg needs to turn a
// persisted device service name back into a live device id. Real device
// discovery is an external input service, out of scope per spec §1;
// until one is wired in, every persisted binding is dropped on load
// rather than resolved.
func resolveIdev(svcName string) (dsid.IdevID, bool) {
	return 0, false
}

func main() {
	flag.Parse()

	log := zerolog.New(zerolog.NewConsoleWriter()).With().Timestamp().
		Int("instance", *instance).Logger()

	d := display.New(display.FlagDoubleBuffer, log)

	path := cfgPathFor(*instance)
	if err := d.LoadCfg(path, resolveIdev); err != nil {
		log.Info().Err(err).Msg("dispd: starting with fresh configuration")
		if _, err := d.CreateSeat("Alice"); err != nil {
			log.Error().Err(err).Msg("dispd: failed to create the default seat")
			os.Exit(1)
		}
	}

	pump := ievent.NewPump(d)
	go pump.Run()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig

	pump.Stop()
	if err := d.SaveCfg(path); err != nil {
		log.Error().Err(err).Msg("dispd: failed to persist configuration on shutdown")
	}
}

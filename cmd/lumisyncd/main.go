package main

import (
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/lumisync/lumisync/internal/capture"
	"github.com/lumisync/lumisync/internal/config"
	"github.com/lumisync/lumisync/internal/controller/channelhid"
	"github.com/lumisync/lumisync/internal/controller/netmatrix"
	"github.com/lumisync/lumisync/internal/controller/serialstrip"
	"github.com/lumisync/lumisync/internal/controller/spistrip"
	"github.com/lumisync/lumisync/internal/device"
	"github.com/lumisync/lumisync/internal/effect/matrixtest"
	"github.com/lumisync/lumisync/internal/effect/monochrome"
	"github.com/lumisync/lumisync/internal/effect/rainbow"
	"github.com/lumisync/lumisync/internal/effect/spectrum"
	"github.com/lumisync/lumisync/internal/effect/turnoff"
	"github.com/lumisync/lumisync/internal/manager"
	"github.com/lumisync/lumisync/internal/server"
)

func main() {
	var (
		configPath = flag.String("config", "config.yaml", "path to config.yaml")
		addr       = flag.String("addr", "", "command server address (overrides config)")
	)
	flag.Parse()

	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen})

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", *configPath).Msg("config load failed")
	}
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(level)
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}

	// All families register here, before anything probes or lists.
	audio := capture.NewAudio(nil)
	registry := device.NewRegistry()
	registry.RegisterController(serialstrip.Info())
	registry.RegisterController(channelhid.Info())
	registry.RegisterController(netmatrix.Info())
	if cfg.SPIStrip.Enabled {
		registry.RegisterController(spistrip.Info(spistrip.Config{
			Port:     cfg.SPIStrip.Port,
			LEDCount: cfg.SPIStrip.LEDCount,
			LUTPath:  cfg.SPIStrip.LUTPath,
		}))
	}
	registry.RegisterEffect(rainbow.Info())
	registry.RegisterEffect(monochrome.Info())
	registry.RegisterEffect(turnoff.Info())
	registry.RegisterEffect(matrixtest.Info())
	registry.RegisterEffect(spectrum.Info(audio))

	mgr := manager.New(registry)
	devices := mgr.ScanDevices()
	log.Info().Int("devices", len(devices)).Msg("initial scan complete")

	store, err := config.NewStore(cfg.StateDir)
	if err != nil {
		log.Fatal().Err(err).Str("dir", cfg.StateDir).Msg("state store init failed")
	}
	if saved, err := store.LoadAll(); err != nil {
		log.Warn().Err(err).Msg("stored device state unreadable")
	} else if len(saved) > 0 {
		states := make(map[string]manager.StoredState, len(saved))
		for port, s := range saved {
			states[port] = manager.StoredState{Brightness: s.Brightness, EffectID: s.EffectID}
		}
		mgr.Restore(states)
	}

	srv := server.New(mgr)
	httpSrv := &http.Server{
		Addr:        cfg.Server.Addr,
		Handler:     srv.Routes(),
		ReadTimeout: 5 * time.Second,
		IdleTimeout: 60 * time.Second,
	}
	go func() {
		log.Info().Str("addr", cfg.Server.Addr).Msg("command server starting")
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("command server crashed")
		}
	}()

	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	sig := <-ch
	log.Info().Str("signal", sig.String()).Msg("shutting down")

	_ = httpSrv.Close()

	for port, state := range mgr.State() {
		err := store.Save(port, config.DeviceState{Brightness: state.Brightness, EffectID: state.EffectID})
		if err != nil {
			log.Warn().Err(err).Str("port", port).Msg("state save failed")
		}
	}
	mgr.Close()
}

package main

import (
	"context"
	"flag"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/muxable/paxscan/pkg/config"
	"github.com/muxable/paxscan/pkg/gap"
	"github.com/muxable/paxscan/pkg/hci"
	"github.com/muxable/paxscan/pkg/macs"
)

var (
	configPath = flag.String("config", "", "path to a yaml config file")
	devMode    = flag.Bool("dev", false, "verbose development logging")
)

func main() {
	flag.Parse()

	var logger *zap.Logger
	var err error
	if *devMode {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		panic(err)
	}
	defer logger.Sync()
	undo := zap.ReplaceGlobals(logger)
	defer undo()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	store, err := macs.NewStore(cfg.Database)
	if err != nil {
		logger.Fatal("failed to open cycle store", zap.Error(err))
	}
	defer store.Close()

	counter := macs.NewCounter(256, cfg.RSSILimit, logger)

	sck, err := hci.NewSocket(cfg.Device)
	if err != nil {
		// Radio bring-up failure is not locally recoverable; exit so the
		// supervisor restarts the device.
		logger.Fatal("failed to open hci device", zap.Error(err))
	}
	defer sck.Close()

	adapter := hci.NewAdapter(sck)
	if err := adapter.Reset(); err != nil {
		logger.Fatal("failed to reset controller", zap.Error(err))
	}
	addr, err := adapter.ReadBDAddr()
	if err != nil {
		logger.Fatal("failed to read controller address", zap.Error(err))
	}
	logger.Info("controller up", zap.String("bdaddr", fmt.Sprintf("%x", addr)))
	if err := adapter.SetEventMask(hci.EventMaskHardwareErrorEvent | hci.EventMaskLEMetaEvent); err != nil {
		logger.Fatal("failed to set event mask", zap.Error(err))
	}
	if err := adapter.LESetEventMask(hci.LEEventMaskAdvertisingReportEvent); err != nil {
		logger.Fatal("failed to set le event mask", zap.Error(err))
	}

	radio := hci.NewRadio(adapter)
	scanner := gap.NewScanner(radio, counter, logger)

	var signature []byte
	if cfg.ENSCount {
		signature = gap.ENSSignature
	}
	if err := scanner.Start(gap.NewScanConfig(cfg.ScanWindow(), cfg.MACFilter, signature)); err != nil {
		logger.Fatal("failed to start scanning", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go counter.Run(ctx)

	ticker := time.NewTicker(cfg.SendInterval())
	defer ticker.Stop()

loop:
	for {
		select {
		case <-ticker.C:
			flush(logger, store, counter)
		case <-ctx.Done():
			break loop
		}
	}

	if err := scanner.Stop(); err != nil {
		logger.Fatal("failed to stop scanning", zap.Error(err))
	}
	flush(logger, store, counter)
	logger.Info("shutdown complete")
}

func flush(logger *zap.Logger, store *macs.Store, counter *macs.Counter) {
	tally := counter.Reset()
	id, err := store.RecordCycle(tally, time.Now())
	if err != nil {
		logger.Error("failed to record cycle", zap.Error(err))
		return
	}
	logger.Info("cycle complete",
		zap.String("cycle", id),
		zap.Int("devices", tally.Devices),
		zap.Int("signature", tally.Signature))
}

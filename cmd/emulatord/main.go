package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/edgesim/ttn-emulator-sdk-golang/pkg/api"
	"github.com/edgesim/ttn-emulator-sdk-golang/pkg/config"
	"github.com/edgesim/ttn-emulator-sdk-golang/pkg/gateways/ttn"
	"github.com/edgesim/ttn-emulator-sdk-golang/pkg/gateways/ttn/network"
	"github.com/edgesim/ttn-emulator-sdk-golang/pkg/logging"
)

func main() {
	conf, err := config.Load()
	if err != nil {
		logging.NewLogrus("info", os.Stdout).Get("emulatord").Fatalln(err)
	}

	logger := logging.NewLogrus(conf.LogLevel, os.Stdout).Get("emulatord")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry, err := ttn.NewRegistry(conf.DeviceConfigPath, logger)
	if err != nil {
		logger.Fatalln(err)
	}

	baseURL := conf.BaseURL
	if baseURL == "" {
		baseURL = network.BaseURLForRegion(conf.TTN.Region)
	}
	dispatcher := network.NewSimulator(network.SimulatorConfig{
		BaseURL:    baseURL,
		AppID:      conf.TTN.AppID,
		APIKey:     conf.TTN.APIKey,
		Timeout:    conf.RequestTimeout,
		MaxRetries: conf.MaxRetries,
	}, logger)

	emulator := ttn.NewEmulator(dispatcher, ttn.EmulatorConfig{
		DefaultInterval:        conf.DefaultInterval,
		MaxLogs:                conf.MaxLogs,
		DuplicationFilter:      conf.DuplicationFilter,
		FilterCapacity:         conf.FilterCapacity,
		DuplicationProbability: conf.DuplicationProbability,
		FilterResetUsage:       conf.FilterResetUsage,
	}, logger)
	defer emulator.Close()

	if conf.AMQPURL != "" {
		handler := network.NewAMQPHandler(network.NewAmqpConnection(conf.AMQPURL), logger)
		if err := handler.Start(); err != nil {
			logger.Errorln("broker connection error")
		} else {
			logger.Println("broker connected")
			publisher := network.NewEventPublisher(handler)
			emulator.Log().Subscribe(func(entry ttn.EmulationLogEntry) {
				if err := publisher.PublishUplinkResult(entry); err != nil {
					logger.Errorln(err)
				}
			})
			defer handler.Stop()
		}
	}

	emulator.Reconcile(ctx, registry.Devices())

	server := api.New(conf.ListenAddr, conf.BearerToken, ctx, emulator, registry)
	if err := server.Run(ctx); err != nil {
		logger.Fatalln(err)
	}
}

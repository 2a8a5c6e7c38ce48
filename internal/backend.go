package internal

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bmcfanctl/bmcfanctl/internal/api"
	"github.com/bmcfanctl/bmcfanctl/internal/bmc"
	"github.com/bmcfanctl/bmcfanctl/internal/bridge"
	"github.com/bmcfanctl/bmcfanctl/internal/configuration"
	"github.com/bmcfanctl/bmcfanctl/internal/controller"
	"github.com/bmcfanctl/bmcfanctl/internal/curves"
	"github.com/bmcfanctl/bmcfanctl/internal/statistics"
	"github.com/bmcfanctl/bmcfanctl/internal/ui"
	"github.com/oklog/run"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func RunDaemon() {
	config := configuration.CurrentConfig

	client := bmc.NewClient(config.Bmc)

	engine, err := curves.NewEngine(config.Curve, config.Controller)
	if err != nil {
		ui.Fatal("Unable to process curve configuration: %v", err)
	}

	var mqttBridge *bridge.MqttBridge
	if len(config.Mqtt.Broker) > 0 {
		mqttBridge = bridge.NewMqttBridge(config.Mqtt)
	}

	var publisher controller.Publisher
	if mqttBridge != nil {
		publisher = mqttBridge
	}
	fanController := controller.NewFanController(client, engine, publisher, config.Controller, config.Sensors)
	if mqttBridge != nil {
		mqttBridge.Attach(fanController)
	}

	statistics.Register(statistics.NewSensorCollector(fanController))
	statistics.Register(statistics.NewControllerCollector(fanController))

	ctx, cancel := context.WithCancel(context.Background())

	var g run.Group
	{
		enabled := config.Statistics.Enabled
		if enabled {
			// === Prometheus Exporter
			g.Add(func() error {
				port := config.Statistics.Port
				if port <= 0 || port >= 65535 {
					port = 9000
				}
				endpoint := "/metrics"
				addr := fmt.Sprintf(":%d", port)
				handler := promhttp.Handler()
				http.Handle(endpoint, handler)
				server := &http.Server{Addr: addr, Handler: handler}
				if err := server.ListenAndServe(); err != nil {
					ui.Error("Cannot start prometheus metrics endpoint (%s)", err.Error())
				}

				<-ctx.Done()
				ui.Info("Stopping statistics server...")
				timeoutCtx, timeoutCancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer timeoutCancel()
				return server.Shutdown(timeoutCtx)
			}, func(err error) {
				if err != nil {
					ui.Warning("Error stopping statistics server: " + err.Error())
				} else {
					ui.Info("Statistics server stopped.")
				}
			})
		}
	}
	{
		enabled := config.Api.Enabled
		if enabled {
			// === REST API
			restService := api.CreateRestService(fanController)
			g.Add(func() error {
				addr := fmt.Sprintf("%s:%d", config.Api.Host, config.Api.Port)
				if err := restService.Start(addr); err != nil && err != http.ErrServerClosed {
					ui.Error("Cannot start REST api endpoint (%s)", err.Error())
				}

				<-ctx.Done()
				ui.Info("Stopping REST api...")
				timeoutCtx, timeoutCancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer timeoutCancel()
				return restService.Shutdown(timeoutCtx)
			}, func(err error) {
				if err != nil {
					ui.Warning("Error stopping REST api: " + err.Error())
				} else {
					ui.Info("REST api stopped.")
				}
			})
		}
	}
	{
		if mqttBridge != nil {
			// === MQTT bridge
			g.Add(func() error {
				err := mqttBridge.Run(ctx)
				ui.Info("MQTT bridge stopped.")
				return err
			}, func(err error) {
				if err != nil {
					ui.Warning("Error running MQTT bridge: %v", err)
				}
			})
		}
	}
	{
		// === control loop
		g.Add(func() error {
			err := fanController.Run(ctx)
			ui.Info("Fan controller stopped.")
			return err
		}, func(err error) {
			if err != nil {
				ui.Warning("Something went wrong: %v", err)
			}
		})
	}
	{
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

		g.Add(func() error {
			<-sig
			ui.Info("Received SIGTERM signal, exiting...")
			return nil
		}, func(err error) {
			defer close(sig)
			cancel()
		})
	}

	if err := g.Run(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	} else {
		ui.Info("Done.")
		os.Exit(0)
	}
}

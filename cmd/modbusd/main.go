// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package main

import (
	"context"
	"flag"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/modbusd/modbusd/internal/config"
	"github.com/modbusd/modbusd/internal/modbuslog"
	"github.com/modbusd/modbusd/internal/repository"
	"github.com/modbusd/modbusd/internal/supervisor"
	"github.com/modbusd/modbusd/pkg/nats"
	"github.com/modbusd/modbusd/pkg/runtimeEnv"

	_ "github.com/mattn/go-sqlite3"
)

func main() {
	var flagConfigFile string
	var flagReinitDB bool
	var flagUser, flagGroup string
	flag.StringVar(&flagConfigFile, "config", "./config.json", "Overwrite the default configuration options by those specified in `config.json`")
	flag.BoolVar(&flagReinitDB, "init-db", false, "Run migrations and exit without starting the acquisition engine")
	flag.StringVar(&flagUser, "user", "", "Drop privileges to this user after the listeners are bound")
	flag.StringVar(&flagGroup, "group", "", "Drop privileges to this group after the listeners are bound")
	flag.Parse()

	if err := runtimeEnv.LoadEnv("./.env"); err != nil {
		modbuslog.Fatalf("parsing './.env' file failed: %s", err.Error())
	}

	if err := config.Init(flagConfigFile); err != nil {
		modbuslog.Fatal(err)
	}
	modbuslog.SetLogLevel(config.Keys.LogLevel)

	if err := repository.MigrateDB(config.Keys.DBDriver, config.Keys.DB); err != nil {
		modbuslog.Fatal(err)
	}
	repository.Connect(config.Keys.DBDriver, config.Keys.DB)
	repo := repository.GetRepository()

	if flagReinitDB {
		return
	}

	cache := repository.NewConfigCache(repo)
	if err := cache.ReloadIfNeeded(); err != nil {
		modbuslog.Fatal(err)
	}

	var natsClient *nats.Client
	if config.Keys.NatsURL != "" {
		var err error
		natsClient, err = nats.NewClient(&nats.NatsConfig{Address: config.Keys.NatsURL})
		if err != nil {
			modbuslog.Warnf("NATS connection failed, continuing with websocket delivery only: %v", err)
		} else {
			defer natsClient.Close()
		}
	}

	sup := supervisor.New(repo, cache, natsClient)

	var metricsServer *http.Server
	if config.Keys.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", sup.Metrics().Handler())
		metricsServer = &http.Server{Addr: config.Keys.MetricsAddr, Handler: mux}
		metricsListener, err := net.Listen("tcp", config.Keys.MetricsAddr)
		if err != nil {
			modbuslog.Fatalf("metrics server: %v", err)
		}
		go func() {
			modbuslog.Infof("metrics listening at %s", config.Keys.MetricsAddr)
			if err := metricsServer.Serve(metricsListener); err != nil && err != http.ErrServerClosed {
				modbuslog.Errorf("metrics server: %v", err)
			}
		}()
	}

	wsMux := http.NewServeMux()
	wsMux.HandleFunc("/ws", sup.WSHub().ServeHTTP)
	wsServer := &http.Server{
		Addr:         config.Keys.WebsocketAddr,
		Handler:      wsMux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 0, // websocket connections are long-lived
	}
	wsListener, err := net.Listen("tcp", config.Keys.WebsocketAddr)
	if err != nil {
		modbuslog.Fatalf("websocket server: %v", err)
	}

	if err := runtimeEnv.DropPrivileges(flagUser, flagGroup); err != nil {
		modbuslog.Fatalf("error while changing user: %s", err.Error())
	}

	ctx, cancel := context.WithCancel(context.Background())
	if err := sup.Start(ctx); err != nil {
		modbuslog.Fatal(err)
	}

	go func() {
		modbuslog.Infof("websocket server listening at %s", config.Keys.WebsocketAddr)
		if err := wsServer.Serve(wsListener); err != nil && err != http.ErrServerClosed {
			modbuslog.Errorf("websocket server: %v", err)
		}
	}()

	runtimeEnv.SystemdNotifiy(true, "running")

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs

	runtimeEnv.SystemdNotifiy(false, "shutting down")
	cancel()
	sup.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	wsServer.Shutdown(shutdownCtx)
	if metricsServer != nil {
		metricsServer.Shutdown(shutdownCtx)
	}

	modbuslog.Info("graceful shutdown completed")
}

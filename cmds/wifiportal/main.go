// Copyright 2026 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build linux

// wifiportal serves a captive portal until a client submits credentials
// for a WiFi network, then joins that network.
//
// Synopsis:
//
//	wifiportal [-v] [-c FILE]
package main

import (
	"io/fs"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	flag "github.com/spf13/pflag"
	"github.com/u-root/u-root/pkg/ulog"

	"github.com/u-root/wifiportal/pkg/announce"
	"github.com/u-root/wifiportal/pkg/config"
	"github.com/u-root/wifiportal/pkg/portal"
	"github.com/u-root/wifiportal/pkg/provision"
	"github.com/u-root/wifiportal/pkg/report"
	"github.com/u-root/wifiportal/pkg/wifi"
)

var (
	v          = flag.BoolP("verbose", "v", false, "Verbose output")
	verbose    = func(string, ...interface{}) {}
	configPath = flag.StringP("config", "c", "", "Path of the YAML configuration file")
)

func main() {
	flag.Parse()
	if *v {
		verbose = log.Printf
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal(err)
	}
	verbose("Configuration: %+v", cfg)

	radio, err := wifi.NewIWLWorker(os.Stdout, os.Stderr, ulog.Log, cfg.Interface)
	if err != nil {
		log.Fatal(err)
	}

	addr, err := cfg.APAddress()
	if err != nil {
		log.Fatal(err)
	}
	var landing fs.FS
	if cfg.Portal.LandingDir != "" {
		landing = os.DirFS(cfg.Portal.LandingDir)
	}
	srv := portal.NewServer(portal.Options{
		Interface: cfg.Interface,
		Address:   addr,
		Channel:   cfg.AccessPoint.Channel,
		HTTPAddr:  cfg.Portal.HTTPAddr,
		DNSAddr:   cfg.Portal.DNSAddr,
		AccessPoint: &portal.Hostapd{
			ConfPath: cfg.AccessPoint.HostapdConf,
			Stdout:   os.Stdout,
			Stderr:   os.Stderr,
			Log:      ulog.Log,
		},
		Landing: landing,
		Logger:  ulog.Log,
		Verbose: verbose,
	})

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	if cfg.Portal.Metrics {
		srv.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	}

	o := provision.New(radio, srv,
		provision.WithConfig(cfg.Provision()),
		provision.WithLogger(ulog.Log),
		provision.WithMetrics(provision.NewMetrics(reg)),
		provision.OnTransition(func(from, to provision.State) {
			verbose("State %v -> %v", from, to)
		}),
	)
	r, err := o.Run()
	if err != nil {
		log.Fatal(err)
	}
	log.Print(r)

	if cfg.ReportPath != "" {
		if err := report.Write(cfg.ReportPath, report.FromReport(r, time.Now())); err != nil {
			log.Print(err)
		} else {
			verbose("Report written to %s", cfg.ReportPath)
		}
	}

	var a *announce.Announcer
	if r.Success() && cfg.Announce.Enabled {
		a, err = announce.Start(service(cfg, r), ulog.Log)
		if err != nil {
			log.Print(err)
		}
	}

	// The device stays up after the run, connected or not.
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	s := <-sig
	verbose("Got %v, exiting", s)
	a.Shutdown()
}

func service(cfg config.Config, r provision.Report) announce.Service {
	instance := cfg.Announce.Instance
	if instance == "" {
		instance, _ = os.Hostname()
	}
	return announce.Service{
		Instance:  instance,
		Service:   cfg.Announce.Service,
		Port:      cfg.Announce.Port,
		Interface: cfg.Interface,
		Text:      announce.Text(r),
	}
}

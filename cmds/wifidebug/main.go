// Copyright 2021 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build linux

// wifidebug drives the radio the same way wifiportal does, one step at a
// time, to make spotting errors in WiFi bugs easier.
//
// Synopsis:
//
//	wifidebug [-v] [-i IFACE] [--mode MODE] [--essid NAME --pass PASSPHRASE]
package main

import (
	"fmt"
	"log"
	"os"

	flag "github.com/spf13/pflag"
	"github.com/u-root/u-root/pkg/ulog"

	"github.com/u-root/wifiportal/pkg/clock"
	"github.com/u-root/wifiportal/pkg/provision"
	"github.com/u-root/wifiportal/pkg/scan"
	"github.com/u-root/wifiportal/pkg/wifi"
)

var (
	v       = flag.BoolP("verbose", "v", false, "Verbose output")
	verbose = func(string, ...interface{}) {}
	iface   = flag.StringP("interface", "i", "wlan0", "Wireless interface")
	mode    = flag.String("mode", "", "Switch to this mode first: station or ap")
	essid   = flag.String("essid", "", "Network to connect to")
	pass    = flag.String("pass", "", "Passphrase for --essid")
	exclude = flag.String("exclude", "", "Network name to leave out of the listing")
)

func main() {
	flag.Parse()
	if *v {
		verbose = log.Printf
	}

	w, err := wifi.NewIWLWorker(os.Stdout, os.Stderr, ulog.Log, *iface)
	if err != nil {
		log.Fatal(err)
	}
	clk := clock.Real()

	if *mode != "" {
		target, err := parseMode(*mode)
		if err != nil {
			log.Fatal(err)
		}
		if err := w.SetMode(target); err != nil {
			log.Printf("set mode: %v", err)
		}
		ok := provision.WaitForMode(clk, w, target, provision.DefaultModeTimeout)
		verbose("Mode %v reached: %v", target, ok)
	}
	if m, err := w.Mode(); err != nil {
		log.Printf("mode: %v", err)
	} else {
		fmt.Println("mode:", m)
	}

	opts, err := w.Scan()
	if err != nil {
		log.Fatalf("scan: %v", err)
	}
	for _, o := range opts {
		fmt.Printf("%-32q %v\n", o.Essid, o.AuthSuite)
	}
	fmt.Println(string(scan.Filter(opts, *exclude).JSON()))

	if *essid == "" {
		return
	}
	if err := provision.CheckCredential(*essid, *pass); err != nil {
		log.Fatal(err)
	}
	if err := w.Connect(*essid, *pass); err != nil {
		log.Fatal(err)
	}
	d := clock.NewDeadline(clk, provision.DefaultConfig().ConnectTimeout)
	for s := w.Status(); s != wifi.StatusConnected; s = w.Status() {
		verbose("status: %v", s)
		if d.Expired() {
			log.Fatalf("not connected after %v", provision.DefaultConfig().ConnectTimeout)
		}
		clk.Sleep(provision.DefaultConfig().StatusInterval)
	}
	id, _ := w.GetID()
	ip, err := w.LocalIP()
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("connected to %q as %v\n", id, ip)
}

func parseMode(s string) (wifi.Mode, error) {
	switch s {
	case "station", "sta", "managed":
		return wifi.ModeStation, nil
	case "ap", "master":
		return wifi.ModeAccessPoint, nil
	}
	return wifi.ModeOff, fmt.Errorf("unknown mode %q, want station or ap", s)
}

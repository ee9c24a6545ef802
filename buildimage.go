// Copyright 2019 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build ignore

// buildimage builds a u-root initramfs that boots into the WiFi portal.
//
// Synopsis:
//
//	go run buildimage.go [-v] [-u "u-root options"] [-c cmds] [--config FILE]
package main

import (
	"log"
	"os"
	"os/exec"
	"strings"

	flag "github.com/spf13/pflag"
)

var (
	debug = func(string, ...interface{}) {}

	verbose = flag.BoolP("verbose", "v", true, "verbose debugging output")
	uroot   = flag.StringP("uroot", "u", "", "options for u-root")
	cmds    = flag.StringP("cmds", "c", "core", "u-root commands to build into the image")
	wcmds   = flag.StringP("wifi", "w", "./cmds/wifiportal ./cmds/wifidebug", "wifiportal commands to build into the image")
	config  = flag.String("config", "", "Optional configuration file, installed as /etc/wifiportal.yaml")
	landing = flag.String("landing", "", "Optional landing page directory, installed as /etc/wifiportal")
)

// The radio and access point tools have no Go replacement; they must be
// installed on the build host.
var hostTools = []string{"iw", "iwlist", "iwgetid", "wpa_supplicant", "hostapd"}

// extraBinMust has to succeed or we die.
func extraBinMust(n string) string {
	p, err := exec.LookPath(n)
	if err != nil {
		log.Fatalf("extraBinMust(%q): %v", n, err)
	}
	return p
}

func main() {
	flag.Parse()
	if *verbose {
		debug = log.Printf
	}

	args := []string{"go", "run", "github.com/u-root/u-root/.", "-uinitcmd", "wifiportal -v -c /etc/wifiportal.yaml"}
	for _, t := range hostTools {
		args = append(args, "-files", extraBinMust(t))
	}
	if *config != "" {
		args = append(args, "-files", *config+":etc/wifiportal.yaml")
	}
	if *landing != "" {
		args = append(args, "-files", *landing+":etc/wifiportal")
	}
	args = append(args, strings.Fields(*uroot)...)
	args = append(args, *cmds)
	args = append(args, strings.Fields(*wcmds)...)

	for _, cmd := range [][]string{
		{"date"},
		args,
	} {
		debug("Run %v", cmd)
		c := exec.Command(cmd[0], cmd[1:]...)
		c.Stdout, c.Stderr = os.Stdout, os.Stderr
		if err := c.Run(); err != nil {
			log.Fatalf("%s failed: %v", cmd, err)
		}
	}
	debug("done")
}

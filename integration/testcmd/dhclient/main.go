// Copyright 2013-2019 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// dhclient configures one interface with the same DHCP client wifiportal
// runs after joining a network.
package main

import (
	"context"
	"log"
	"time"

	flag "github.com/spf13/pflag"
	"github.com/u-root/u-root/pkg/ulog"

	"github.com/u-root/wifiportal/pkg/dhclient"
)

var (
	iface   = flag.StringP("interface", "i", "eth0", "Interface to configure")
	timeout = flag.Int("timeout", 15, "Lease timeout in seconds")
	retry   = flag.Int("retry", 5, "Max number of attempts for DHCP clients to send requests. -1 means infinity")
	ipv4    = flag.Bool("ipv4", true, "use IPV4")
	ipv6    = flag.Bool("ipv6", false, "use IPV6")
)

func main() {
	flag.Parse()

	c := dhclient.DefaultConfig()
	c.Timeout = time.Duration(*timeout) * time.Second
	c.Retries = *retry
	c.IPv4, c.IPv6 = *ipv4, *ipv6
	c.Verbose = true

	ctx, cancel := context.WithTimeout(context.Background(), c.Deadline())
	defer cancel()
	if err := dhclient.Configure(ctx, *iface, c, ulog.Log); err != nil {
		log.Fatal(err)
	}
	log.Printf("Configured %s", *iface)
}

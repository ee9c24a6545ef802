// Copyright 2026 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package portal

import (
	"errors"
	"net"
	"os"
	"time"

	"github.com/miekg/dns"
)

const (
	// dnsTTL is short so clients re-resolve once they leave the portal.
	dnsTTL = 60
	// maxQueriesPerTick bounds the work done by one ProcessDNS call.
	maxQueriesPerTick = 16
)

// captiveReply answers every A query with addr. Other query types get an
// empty authoritative answer.
func captiveReply(req *dns.Msg, addr net.IP) *dns.Msg {
	resp := new(dns.Msg)
	resp.SetReply(req)
	resp.Authoritative = true
	for _, q := range req.Question {
		if q.Qclass != dns.ClassINET {
			continue
		}
		if q.Qtype != dns.TypeA && q.Qtype != dns.TypeANY {
			continue
		}
		resp.Answer = append(resp.Answer, &dns.A{
			Hdr: dns.RR_Header{
				Name:   q.Name,
				Rrtype: dns.TypeA,
				Class:  dns.ClassINET,
				Ttl:    dnsTTL,
			},
			A: addr.To4(),
		})
	}
	return resp
}

// serveDNS handles the queries already queued on conn. It returns when
// the socket has nothing more to read.
func (s *Server) serveDNS(conn net.PacketConn) {
	buf := make([]byte, dns.MaxMsgSize)
	for i := 0; i < maxQueriesPerTick; i++ {
		if err := conn.SetReadDeadline(time.Now().Add(time.Millisecond)); err != nil {
			return
		}
		n, from, err := conn.ReadFrom(buf)
		if err != nil {
			if !errors.Is(err, os.ErrDeadlineExceeded) && !errors.Is(err, net.ErrClosed) {
				s.log.Printf("portal: dns read: %v", err)
			}
			return
		}
		req := new(dns.Msg)
		if err := req.Unpack(buf[:n]); err != nil {
			s.verbose("portal: dropping malformed dns query from %v: %v", from, err)
			continue
		}
		out, err := captiveReply(req, s.opts.Address.IP).Pack()
		if err != nil {
			s.log.Printf("portal: dns pack: %v", err)
			continue
		}
		if _, err := conn.WriteTo(out, from); err != nil {
			s.log.Printf("portal: dns write to %v: %v", from, err)
		}
	}
}

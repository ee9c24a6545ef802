// Copyright 2026 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package portal

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/http"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/u-root/u-root/pkg/ulog"
)

//go:embed web
var webFS embed.FS

// DefaultLanding is the landing page shipped with the portal.
const DefaultLanding = "index.html"

// Options configures a Server. Zero fields take the defaults from
// NewServer.
type Options struct {
	Interface string
	// Address is the device's address and prefix on the portal network.
	Address  *net.IPNet
	Channel  int
	HTTPAddr string
	DNSAddr  string

	AccessPoint AccessPoint
	// Landing holds the landing page and its assets.
	Landing fs.FS

	ShutdownTimeout time.Duration
	Logger          ulog.Logger
	Verbose         func(string, ...interface{})
}

type route struct {
	path, method string
}

// Server implements Portal.
type Server struct {
	opts    Options
	log     ulog.Logger
	verbose func(string, ...interface{})

	mu          sync.Mutex
	ap          APConfig
	landingPage string
	initialized bool
	running     bool
	apUp        bool
	routes      map[route]Handler
	paths       map[string]bool
	raw         map[string]http.Handler
	httpSrv     *http.Server
	httpLn      net.Listener
	dnsConn     net.PacketConn
}

var _ Portal = &Server{}

// NewServer returns a stopped portal.
func NewServer(opts Options) *Server {
	if opts.Interface == "" {
		opts.Interface = "wlan0"
	}
	if opts.Address == nil {
		opts.Address = &net.IPNet{IP: net.IPv4(192, 168, 4, 1), Mask: net.CIDRMask(24, 32)}
	}
	if opts.HTTPAddr == "" {
		opts.HTTPAddr = ":80"
	}
	if opts.DNSAddr == "" {
		opts.DNSAddr = ":53"
	}
	if opts.ShutdownTimeout == 0 {
		opts.ShutdownTimeout = 2 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = ulog.Log
	}
	if opts.Verbose == nil {
		opts.Verbose = func(string, ...interface{}) {}
	}
	if opts.AccessPoint == nil {
		opts.AccessPoint = &Hostapd{ConfPath: "/tmp/hostapd.conf", Log: opts.Logger}
	}
	if opts.Landing == nil {
		sub, err := fs.Sub(webFS, "web")
		if err != nil {
			panic(fmt.Sprintf("portal: embedded landing page: %v", err))
		}
		opts.Landing = sub
	}
	return &Server{
		opts:    opts,
		log:     opts.Logger,
		verbose: opts.Verbose,
		routes:  make(map[route]Handler),
		paths:   make(map[string]bool),
		raw:     make(map[string]http.Handler),
	}
}

func (s *Server) initialize(ssid, password, landingPage string) error {
	if landingPage == "" {
		landingPage = DefaultLanding
	}
	c := APConfig{
		Interface: s.opts.Interface,
		SSID:      ssid,
		Password:  password,
		Channel:   s.opts.Channel,
		Address:   s.opts.Address,
	}
	if _, err := hostapdConfig(c); err != nil {
		return err
	}
	if _, err := fs.Stat(s.opts.Landing, landingPage); err != nil {
		return fmt.Errorf("portal: landing page %q: %w", landingPage, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ap, s.landingPage, s.initialized = c, landingPage, true
	return nil
}

func (s *Server) InitializeOpen(ssid, landingPage string) error {
	return s.initialize(ssid, "", landingPage)
}

func (s *Server) InitializeSecured(ssid, password, landingPage string) error {
	if password == "" {
		return ErrBadPassword
	}
	return s.initialize(ssid, password, landingPage)
}

func (s *Server) RegisterRoute(p, method string, h Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.routes[route{p, method}] = h
	s.paths[p] = true
}

// Handle serves p with a plain http.Handler for every method.
func (s *Server) Handle(p string, h http.Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.raw[p] = h
}

func (s *Server) StartAccessPoint() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initialized {
		return ErrNotInitialized
	}
	if s.running {
		return nil
	}

	if !s.apUp {
		if err := s.opts.AccessPoint.Start(s.ap); err != nil {
			return fmt.Errorf("portal: start access point %q: %w", s.ap.SSID, err)
		}
		s.apUp = true
	}
	conn, err := net.ListenPacket("udp4", s.opts.DNSAddr)
	if err != nil {
		s.stopAPLocked()
		return fmt.Errorf("portal: dns listen %s: %w", s.opts.DNSAddr, err)
	}
	ln, err := net.Listen("tcp", s.opts.HTTPAddr)
	if err != nil {
		conn.Close()
		s.stopAPLocked()
		return fmt.Errorf("portal: http listen %s: %w", s.opts.HTTPAddr, err)
	}
	srv := &http.Server{
		Handler:           s,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       30 * time.Second,
	}
	go func() {
		if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			s.log.Printf("portal: http serve: %v", err)
		}
	}()

	s.dnsConn, s.httpLn, s.httpSrv, s.running = conn, ln, srv, true
	s.log.Printf("portal: access point %q up, portal at %v", s.ap.SSID, s.opts.Address.IP)
	return nil
}

func (s *Server) stopAPLocked() {
	if err := s.opts.AccessPoint.Stop(); err != nil {
		s.log.Printf("portal: stop access point: %v", err)
		return
	}
	s.apUp = false
}

func (s *Server) StopAccessPoint() bool {
	s.mu.Lock()
	srv, conn := s.httpSrv, s.dnsConn
	s.httpSrv, s.httpLn, s.dnsConn, s.running = nil, nil, nil, false
	s.mu.Unlock()

	// In-flight handlers take s.mu, so shut HTTP down without holding it.
	if srv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
		if err := srv.Shutdown(ctx); err != nil {
			s.log.Printf("portal: http shutdown: %v", err)
			srv.Close()
		}
		cancel()
	}
	if conn != nil {
		conn.Close()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.apUp {
		s.stopAPLocked()
	}
	return !s.apUp
}

func (s *Server) ProcessDNS() {
	s.mu.Lock()
	conn := s.dnsConn
	s.mu.Unlock()
	if conn != nil {
		s.serveDNS(conn)
	}
}

// HTTPAddr is the address the portal is serving HTTP on, or "" when
// stopped.
func (s *Server) HTTPAddr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.httpLn == nil {
		return ""
	}
	return s.httpLn.Addr().String()
}

// DNSAddr is the address the portal is answering DNS on, or "" when
// stopped.
func (s *Server) DNSAddr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dnsConn == nil {
		return ""
	}
	return s.dnsConn.LocalAddr().String()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	running := s.running
	h, isRoute := s.routes[route{r.URL.Path, r.Method}]
	raw := s.raw[r.URL.Path]
	known := s.paths[r.URL.Path]
	s.mu.Unlock()

	s.verbose("portal: %s %s from %s", r.Method, r.URL.Path, r.RemoteAddr)
	switch {
	case !running:
		http.Error(w, "portal not started", http.StatusServiceUnavailable)
	case isRoute:
		s.serveRoute(w, r, h)
	case raw != nil:
		raw.ServeHTTP(w, r)
	case known:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	default:
		s.serveLanding(w, r)
	}
}

func (s *Server) serveRoute(w http.ResponseWriter, r *http.Request, h Handler) {
	req := &Request{Method: r.Method, Path: r.URL.Path, Params: r.URL.Query()}
	if r.Method == http.MethodPost {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Bad request", http.StatusBadRequest)
			return
		}
		req.Params = r.PostForm
	}
	resp := &responder{w: w}
	h(req, resp)
	if !resp.sent {
		resp.Send(http.StatusInternalServerError, "text/plain", "no response")
	}
}

// serveLanding serves assets that exist and the landing page for every
// other path, which is what makes client devices show the portal.
func (s *Server) serveLanding(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	landing := s.landingPage
	s.mu.Unlock()

	name := strings.TrimPrefix(path.Clean(r.URL.Path), "/")
	if name != "" && name != landing {
		if st, err := fs.Stat(s.opts.Landing, name); err == nil && !st.IsDir() {
			http.ServeFileFS(w, r, s.opts.Landing, name)
			return
		}
	}
	page, err := fs.ReadFile(s.opts.Landing, landing)
	if err != nil {
		http.Error(w, "landing page missing", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(page)
}

// Copyright 2025 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package webserver serves browser test applications and collects their
// console output.
package webserver

import (
	"bufio"
	"context"
	"crypto/tls"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"go.xharness.dev/xharness/errors"
	"go.xharness.dev/xharness/internal/logging"
)

// ConsolePath is the endpoint receiving console output. The last path
// element names the stream, e.g. "/console/stdout".
const ConsolePath = "/console"

// LineFunc receives one console line of the application.
type LineFunc func(stream, line string)

// Options configures a Server.
type Options struct {
	// Root is the directory served at "/".
	Root string
	// Console receives lines posted to ConsolePath.
	Console LineFunc
	// Middleware wraps every route, outermost first.
	Middleware []func(http.Handler) http.Handler
	// CORS allows cross-origin requests from any origin.
	CORS bool
	// COP sets the cross-origin opener and embedder policies needed for
	// SharedArrayBuffer.
	COP bool
	// HTTPS serves with a self-signed certificate.
	HTTPS bool
}

// NewHandler returns the handler serving opts.
func NewHandler(ctx context.Context, opts *Options) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(ctx))
	if opts.CORS {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{http.MethodGet, http.MethodHead, http.MethodPost},
			AllowedHeaders: []string{"*"},
		}))
	}
	if opts.COP {
		r.Use(middleware.SetHeader("Cross-Origin-Opener-Policy", "same-origin"))
		r.Use(middleware.SetHeader("Cross-Origin-Embedder-Policy", "require-corp"))
	}
	for _, m := range opts.Middleware {
		r.Use(m)
	}

	r.Post(ConsolePath+"/{stream}", func(w http.ResponseWriter, req *http.Request) {
		stream := chi.URLParam(req, "stream")
		sc := bufio.NewScanner(req.Body)
		sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
		for sc.Scan() {
			if opts.Console != nil {
				opts.Console(stream, strings.TrimSuffix(sc.Text(), "\r"))
			}
		}
		if err := sc.Err(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
	r.Handle("/*", http.FileServer(http.Dir(opts.Root)))
	return r
}

func requestLogger(ctx context.Context) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logging.Debugf(ctx, "%s %s %d (%v)", r.Method, r.URL.Path, ww.Status(), time.Since(start).Round(time.Millisecond))
		})
	}
}

// Server is a running web server on a loopback port.
type Server struct {
	srv *http.Server
	ln  net.Listener
	url string
	err chan error
}

// Start serves opts on a free loopback port until Close is called.
func Start(ctx context.Context, opts *Options) (*Server, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, errors.Wrap(err, "failed to listen")
	}
	s := &Server{
		srv: &http.Server{Handler: NewHandler(ctx, opts), ReadHeaderTimeout: 10 * time.Second},
		ln:  ln,
		url: "http://" + ln.Addr().String(),
		err: make(chan error, 1),
	}
	if opts.HTTPS {
		cert, err := selfSignedCert(time.Now())
		if err != nil {
			ln.Close()
			return nil, err
		}
		s.ln = tls.NewListener(ln, &tls.Config{Certificates: []tls.Certificate{cert}})
		s.url = "https://" + ln.Addr().String()
	}
	go func() { s.err <- s.srv.Serve(s.ln) }()
	logging.Infof(ctx, "Serving %s at %s", opts.Root, s.url)
	return s, nil
}

// URL returns the base URL of s, without a trailing slash.
func (s *Server) URL() string { return s.url }

// Close stops s, waiting briefly for requests in flight.
func (s *Server) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.srv.Shutdown(ctx); err != nil {
		return errors.Wrap(err, "failed to stop web server")
	}
	if err := <-s.err; err != nil && err != http.ErrServerClosed {
		return errors.Wrap(err, "web server failed")
	}
	return nil
}

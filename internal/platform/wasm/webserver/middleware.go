// Copyright 2025 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package webserver

import (
	"net/http"
	"os"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
	"gopkg.in/yaml.v2"

	"go.xharness.dev/xharness/errors"
	"go.xharness.dev/xharness/internal/plugin"
)

// Middleware wraps a handler of the web server.
type Middleware = func(http.Handler) http.Handler

// Middlewares holds the middleware selectable with
// --web-server-middleware=<path>,<name>. Each factory reads its settings
// from path.
var Middlewares = plugin.NewRegistry[Middleware]("web server middleware")

func init() {
	Middlewares.Register("headers", newHeaders)
	Middlewares.Register("compress", newCompress)
	Middlewares.Register("nocache", newNoCache)
}

// newHeaders reads a YAML mapping of response header names to values.
// Headers are set in name order.
func newHeaders(path string) (Middleware, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read headers")
	}
	// Decoding into strings keeps scalars as written, e.g. "yes" or "0123".
	var m map[string]string
	if err := yaml.Unmarshal(b, &m); err != nil {
		return nil, errors.Wrapf(err, "bad headers file %s", path)
	}
	type header struct{ name, value string }
	var hs []header
	names := maps.Keys(m)
	slices.Sort(names)
	for _, k := range names {
		hs = append(hs, header{http.CanonicalHeaderKey(k), m[k]})
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, h := range hs {
				w.Header().Set(h.name, h.value)
			}
			next.ServeHTTP(w, r)
		})
	}, nil
}

// newCompress reads the content types to gzip, one per line.
func newCompress(path string) (Middleware, error) {
	types, err := readList(path)
	if err != nil {
		return nil, err
	}
	if len(types) == 0 {
		return nil, errors.Errorf("%s lists no content types", path)
	}
	return middleware.Compress(5, types...), nil
}

// newNoCache reads URL path prefixes served with caching disabled, one per
// line. An empty list disables caching everywhere.
func newNoCache(path string) (Middleware, error) {
	prefixes, err := readList(path)
	if err != nil {
		return nil, err
	}
	return func(next http.Handler) http.Handler {
		nc := middleware.NoCache(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(prefixes) == 0 {
				nc.ServeHTTP(w, r)
				return
			}
			for _, p := range prefixes {
				if strings.HasPrefix(r.URL.Path, p) {
					nc.ServeHTTP(w, r)
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}, nil
}

// readList returns the non-blank lines of path that are not comments.
func readList(path string) ([]string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", path)
	}
	var out []string
	for _, l := range strings.Split(string(b), "\n") {
		l = strings.TrimSpace(l)
		if l != "" && !strings.HasPrefix(l, "#") {
			out = append(out, l)
		}
	}
	return out, nil
}

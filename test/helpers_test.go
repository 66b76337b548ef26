//go:build integration
// +build integration

package test

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/CraveEvents/craveAuth/internal/httpapi"
	"github.com/CraveEvents/craveAuth/internal/testkit"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// cmdCounter is a go-redis hook counting commands and pipeline round-trips.
type cmdCounter struct {
	commands  atomic.Int64
	pipelines atomic.Int64
}

func (h *cmdCounter) DialHook(next redis.DialHook) redis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		return next(ctx, network, addr)
	}
}

func (h *cmdCounter) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		h.commands.Add(1)
		return next(ctx, cmd)
	}
}

func (h *cmdCounter) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		h.pipelines.Add(1)
		h.commands.Add(int64(len(cmds)))
		return next(ctx, cmds)
	}
}

func (h *cmdCounter) Reset() {
	h.commands.Store(0)
	h.pipelines.Store(0)
}

func (h *cmdCounter) Commands() int64 { return h.commands.Load() }

// newCountedKit returns a kit whose Redis client counts commands. The
// connection is warmed first so handshake traffic is not counted.
func newCountedKit(t *testing.T) (*testkit.Kit, *cmdCounter) {
	t.Helper()

	kit := testkit.New(t, testkit.Config())
	if err := kit.RDB.Ping(context.Background()).Err(); err != nil {
		t.Fatalf("warmup ping: %v", err)
	}
	counter := &cmdCounter{}
	kit.RDB.AddHook(counter)
	return kit, counter
}

// browser talks to a real HTTP server and keeps cookies in a jar.
type browser struct {
	t      *testing.T
	server *httptest.Server
	client *http.Client
}

func newBrowser(t *testing.T, kit *testkit.Kit) *browser {
	t.Helper()

	gin.SetMode(gin.TestMode)
	srv := httptest.NewServer(httpapi.NewRouter(kit.Engine, httpapi.Options{}))
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookiejar: %v", err)
	}
	return &browser{t: t, server: srv, client: &http.Client{Jar: jar}}
}

type apiResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func (b *browser) call(method, path string, body any) (int, apiResponse) {
	b.t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			b.t.Fatalf("encode: %v", err)
		}
	}
	req, err := http.NewRequest(method, b.server.URL+path, &buf)
	if err != nil {
		b.t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		b.t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	var out apiResponse
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp.StatusCode, out
}

func (b *browser) cookie(name string) string {
	req, _ := http.NewRequest(http.MethodGet, b.server.URL, nil)
	for _, ck := range b.client.Jar.Cookies(req.URL) {
		if ck.Name == name {
			return ck.Value
		}
	}
	return ""
}

package server

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fortytw2/leaktest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plasmacash/plasma/libs/log"
)

func TestMaxOpenConnections(t *testing.T) {
	const max = 5 // max simultaneous connections

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Start the server.
	var open int32
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if n := atomic.AddInt32(&open, 1); n > int32(max) {
			t.Errorf("%d open connections, want <= %d", n, max)
		}
		defer atomic.AddInt32(&open, -1)
		time.Sleep(10 * time.Millisecond)
		fmt.Fprint(w, "some body")
	})
	l, err := Listen("tcp://127.0.0.1:0", max)
	require.NoError(t, err)
	defer l.Close()

	go Serve(ctx, l, mux, log.NewNopLogger(), DefaultConfig()) //nolint:errcheck

	// Make N GET calls to the server.
	attempts := max * 2
	var wg sync.WaitGroup
	var failed int32
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c := http.Client{Timeout: 3 * time.Second}
			r, err := c.Get("http://" + l.Addr().String())
			if err != nil {
				atomic.AddInt32(&failed, 1)
				return
			}
			defer r.Body.Close()
		}()
	}
	wg.Wait()

	// We expect some Gets to fail as the server's accept queue is filled,
	// but most should succeed.
	if int(failed) >= attempts/2 {
		t.Errorf("%d requests failed within %d attempts", failed, attempts)
	}
}

func TestServeHonorsBodyLimitAndShutdown(t *testing.T) {
	defer leaktest.Check(t)()

	ctx, cancel := context.WithCancel(context.Background())

	mux := http.NewServeMux()
	RegisterRPCFuncs(mux, map[string]*RPCFunc{
		"n": NewNoArgsRPCFunc(func(ctx context.Context) (int, error) { return 1, nil }),
	}, log.NewNopLogger())

	l, err := Listen("127.0.0.1:0", 0)
	require.NoError(t, err)

	cfg := DefaultConfig()
	cfg.MaxBodyBytes = 64
	done := make(chan error, 1)
	go func() { done <- Serve(ctx, l, mux, log.NewNopLogger(), cfg) }()

	client := &http.Client{Timeout: 3 * time.Second, Transport: &http.Transport{DisableKeepAlives: true}}
	url := "http://" + l.Addr().String()

	res, err := client.Post(url, "application/json", strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"n"}`))
	require.NoError(t, err)
	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	res.Body.Close()
	assert.Contains(t, string(body), `"result":1`)

	big := `{"jsonrpc":"2.0","id":1,"method":"n","params":"` + strings.Repeat("x", 128) + `"}`
	res, err = client.Post(url, "application/json", strings.NewReader(big))
	require.NoError(t, err)
	body, err = io.ReadAll(res.Body)
	require.NoError(t, err)
	res.Body.Close()
	assert.Contains(t, string(body), "reading request body")

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

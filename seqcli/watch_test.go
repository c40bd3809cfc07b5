package seqcli

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"path/filepath"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
	"oss.terrastruct.com/diff"
	"oss.terrastruct.com/xos"
)

func freePort(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()
	_, port, err := net.SplitHostPort(l.Addr().String())
	require.NoError(t, err)
	return port
}

func TestWatch(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	dir := t.TempDir()
	writeFile(t, dir, "pay.drawio", model)
	port := freePort(t)
	addr := net.JoinHostPort("127.0.0.1", port)

	tms := testMain(xos.NewEnv(nil), "--watch", "--browser=0", "--host=127.0.0.1", "--port="+port, filepath.Join(dir, "pay.drawio"))
	tms.Start(t, ctx)
	defer tms.Cleanup(t)

	c := &http.Client{Transport: &http.Transport{DisableKeepAlives: true}}

	var script string
	require.Eventually(t, func() bool {
		resp, err := c.Get(fmt.Sprintf("http://%s/script", addr))
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		b, err := io.ReadAll(resp.Body)
		if err != nil || resp.StatusCode != http.StatusOK {
			return false
		}
		script = string(b)
		return true
	}, 30*time.Second, 50*time.Millisecond)
	diff.AssertStringEq(t, exp, script)
	diff.AssertStringEq(t, exp, readFile(t, dir, "pay.txt"))

	resp, err := c.Get(fmt.Sprintf("http://%s/", addr))
	require.NoError(t, err)
	page, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Contains(t, string(page), "./static/watch.js")

	ws, _, err := websocket.Dial(ctx, fmt.Sprintf("ws://%s/watch", addr), &websocket.DialOptions{
		HTTPClient: c,
	})
	require.NoError(t, err)
	defer ws.Close(websocket.StatusNormalClosure, "")

	var res compileResult
	require.NoError(t, wsjson.Read(ctx, ws, &res))
	assert.Equal(t, "", res.Err)
	diff.AssertStringEq(t, exp, res.Script)

	writeFile(t, dir, "pay.drawio", strings.Replace(model, `value="pay()" edge="1"`, `value="pay()" style="dashed=1;" edge="1"`, 1))
	for res.Err == "" {
		require.NoError(t, wsjson.Read(ctx, ws, &res))
	}
	assert.Contains(t, res.Err, "failed to regenerate")
	assert.Contains(t, res.Err, `return arrow "M1"`)

	writeFile(t, dir, "pay.drawio", strings.ReplaceAll(model, `"M2"`, `"M3"`))
	for res.Err != "" {
		require.NoError(t, wsjson.Read(ctx, ws, &res))
	}
	diff.AssertStringEq(t, strings.ReplaceAll(exp, "M2", "M3"), res.Script)

	// Keep reading so the server's close handshake completes.
	ws.CloseRead(ctx)

	require.NoError(t, tms.Signal(ctx, syscall.SIGTERM))
	assert.NoError(t, tms.Wait(ctx))
}

package command

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tyrowin/gorelay/internal/relayclient"
	"github.com/Tyrowin/gorelay/internal/testhelpers"
)

func init() {
	color.NoColor = true
}

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := cmd.ExecuteContext(ctx)
	return out.String(), err
}

func TestSendCommand(t *testing.T) {
	relay := testhelpers.StartRelay(t, nil)
	peer := testhelpers.ConnectClients(t, relay, 1)[0]

	_, err := runCommand(t, "send", "--url", relay.WSURL(), `{"text":"hello"}`)
	require.NoError(t, err)
	assert.Equal(t, `{"text":"hello"}`, testhelpers.ReceiveText(t, peer))

	_, err = runCommand(t, "send", "--url", relay.WSURL(), "--hex", "00ff")
	require.NoError(t, err)
	_, data := testhelpers.ReceiveRawMessage(t, peer, 2*time.Second)
	assert.Equal(t, []byte{0x00, 0xff}, data)
}

// Each run gets its own context and flag values, so a later run neither sees
// the earlier run's cancelled context nor inherits its --hex.
func TestSendCommand_RunsAreIndependent(t *testing.T) {
	relay := testhelpers.StartRelay(t, nil)
	peer := testhelpers.ConnectClients(t, relay, 1)[0]

	_, err := runCommand(t, "send", "--url", relay.WSURL(), "--hex", "6869")
	require.NoError(t, err)
	msgType, data := testhelpers.ReceiveRawMessage(t, peer, 2*time.Second)
	assert.Equal(t, websocket.BinaryMessage, msgType)
	assert.Equal(t, []byte("hi"), data)

	for _, payload := range []string{"6869", "again"} {
		_, err = runCommand(t, "send", "--url", relay.WSURL(), payload)
		require.NoError(t, err)
		msgType, data = testhelpers.ReceiveRawMessage(t, peer, 2*time.Second)
		assert.Equal(t, websocket.TextMessage, msgType)
		assert.Equal(t, []byte(payload), data)
	}
}

func TestSendCommand_BadHex(t *testing.T) {
	_, err := runCommand(t, "send", "--url", "ws://127.0.0.1:1/ws", "--hex", "zz")
	assert.ErrorContains(t, err, "decode hex payload")
}

func TestListenCommand(t *testing.T) {
	relay := testhelpers.StartRelay(t, nil)
	peer := testhelpers.ConnectClients(t, relay, 1)[0]

	done := make(chan struct{})
	var out string
	var err error
	go func() {
		defer close(done)
		out, err = runCommand(t, "listen", "--url", relay.WSURL(), "--count", "2")
	}()

	testhelpers.WaitForClients(t, relay.Hub, 2)
	testhelpers.SendText(t, peer, "first")
	testhelpers.SendText(t, peer, "second")

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("listen did not exit after --count messages")
	}
	require.NoError(t, err)
	assert.Equal(t, "first\nsecond\n", out)
}

func TestReceive_StopsWhenRelayCloses(t *testing.T) {
	relay := testhelpers.StartRelay(t, nil)
	conn, err := relayclient.Dial(context.Background(), relay.WSURL(), "")
	require.NoError(t, err)
	defer conn.Close()
	testhelpers.WaitForClients(t, relay.Hub, 1)

	require.NoError(t, relay.Hub.Shutdown(time.Second))

	var out bytes.Buffer
	assert.NoError(t, receive(conn, &out, 0))
	assert.Empty(t, out.String())
}

func TestSendLines(t *testing.T) {
	relay := testhelpers.StartRelay(t, nil)
	peer := testhelpers.ConnectClients(t, relay, 1)[0]

	conn, err := relayclient.Dial(context.Background(), relay.WSURL(), "")
	require.NoError(t, err)
	defer conn.Close()
	testhelpers.WaitForClients(t, relay.Hub, 2)

	input := strings.NewReader("one\n\ntwo\n/quit\nnever sent\n")
	require.NoError(t, sendLines(conn, input))

	assert.Equal(t, "one", testhelpers.ReceiveText(t, peer))
	assert.Equal(t, "two", testhelpers.ReceiveText(t, peer))
	testhelpers.ExpectNoMessage(t, peer, 200*time.Millisecond)
}

func TestPrintMessage(t *testing.T) {
	var out bytes.Buffer
	printMessage(&out, relayclient.Message{Data: []byte(`{"text":"hi"}`)})
	printMessage(&out, relayclient.Message{Binary: true, Data: []byte{0xab, 0xcd}})

	assert.Equal(t, "{\"text\":\"hi\"}\n[binary 2 bytes] abcd\n", out.String())
}

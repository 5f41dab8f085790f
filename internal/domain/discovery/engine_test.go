package discovery

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"hue-bridge-client/internal/bridgetest"
	"hue-bridge-client/internal/domain/model"
)

func remoteServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestDiscover_LocalSkipsMalformedAndDuplicates(t *testing.T) {
	bridge := bridgetest.New()
	defer bridge.Close()

	datagrams := &bridgetest.Datagrams{Replies: [][]byte{
		[]byte("garbage"),
		bridge.SSDPReply(),
		[]byte("HTTP/1.1 200 OK\r\nSERVER: IpBridge/1.60.0\r\n\r\n"),
		bridge.SSDPReply(),
		[]byte("HTTP/1.1 200 OK\r\nLOCATION: http://192.168.1.1:49152/rootDesc.xml\r\nSERVER: MiniUPnPd/2.1\r\n\r\n"),
	}}
	e := NewEngine(datagrams, http.DefaultClient,
		WithStrategy(StrategyLocal), WithQuietInterval(50*time.Millisecond), WithLogger(zerolog.Nop()))

	results, err := e.Discover(context.Background(), 2*time.Second)
	require.NoError(t, err)
	found := results.Collect()

	require.Len(t, found, 1)
	assert.Equal(t, bridge.Address(), found[0].Address)
	assert.Equal(t, bridge.ID, found[0].ID)
	assert.Equal(t, []model.Source{model.SourceLocal}, found[0].Sources)

	searches := datagrams.Searches()
	require.Len(t, searches, 1)
	assert.Contains(t, searches[0], "M-SEARCH")
	assert.Contains(t, searches[0], "MX: 2")
}

func TestDiscover_NoRespondersWithinTimeout(t *testing.T) {
	e := NewEngine(&bridgetest.Datagrams{}, nil, WithLogger(zerolog.Nop()))

	start := time.Now()
	results, err := e.Discover(context.Background(), 150*time.Millisecond)
	require.NoError(t, err)
	found := results.Collect()
	elapsed := time.Since(start)

	assert.NotNil(t, found)
	assert.Empty(t, found)
	assert.GreaterOrEqual(t, elapsed, 100*time.Millisecond)
	assert.Less(t, elapsed, time.Second)
}

func TestDiscover_TinyOrZeroWindowIsEmpty(t *testing.T) {
	bridge := bridgetest.New()
	defer bridge.Close()

	for _, timeout := range []time.Duration{0, -time.Second, time.Nanosecond} {
		datagrams := &bridgetest.Datagrams{Replies: [][]byte{bridge.SSDPReply()}}
		e := NewEngine(datagrams, nil, WithStrategy(StrategyLocal), WithLogger(zerolog.Nop()))

		results, err := e.Discover(context.Background(), timeout)
		require.NoError(t, err, "timeout %s", timeout)
		assert.NotNil(t, results.Collect())
	}
}

func TestDiscover_NoTransport(t *testing.T) {
	cause := errors.New("bind: permission denied")
	e := NewEngine(&bridgetest.Datagrams{OpenErr: cause}, http.DefaultClient,
		WithStrategy(StrategyLocal), WithLogger(zerolog.Nop()))

	results, err := e.Discover(context.Background(), time.Second)
	assert.Nil(t, results)
	assert.ErrorIs(t, err, model.ErrNoTransport)
	assert.ErrorIs(t, err, cause)

	e = NewEngine(&bridgetest.Datagrams{SendErr: cause}, nil, WithLogger(zerolog.Nop()))
	_, err = e.Discover(context.Background(), time.Second)
	assert.ErrorIs(t, err, model.ErrNoTransport)
}

func TestDiscover_RemoteFallbackWhenSocketUnavailable(t *testing.T) {
	remote := remoteServer(t, http.StatusOK, `[{"id":"ecb5fafffe000001","internalipaddress":"192.168.1.50"}]`)
	e := NewEngine(&bridgetest.Datagrams{OpenErr: errors.New("no multicast route")}, remote.Client(),
		WithRemoteURL(remote.URL), WithLogger(zerolog.Nop()))

	results, err := e.Discover(context.Background(), time.Second)
	require.NoError(t, err)
	found := results.Collect()

	require.Len(t, found, 1)
	assert.Equal(t, "192.168.1.50", found[0].Address)
	assert.Equal(t, "ecb5fafffe000001", found[0].ID)
	assert.Equal(t, []model.Source{model.SourceRemote}, found[0].Sources)
}

func TestDiscover_MergesLocalAndRemote(t *testing.T) {
	bridge := bridgetest.New()
	defer bridge.Close()

	remote := remoteServer(t, http.StatusOK, fmt.Sprintf(`[
		{"id":"001788fffe102201","internalipaddress":%q},
		{"id":"ecb5fafffe000001","internalipaddress":"192.168.1.50"},
		{"id":"ecb5fafffe000002","internalipaddress":""}
	]`, bridge.Address()))

	datagrams := &bridgetest.Datagrams{Replies: [][]byte{bridge.SSDPReply()}}
	e := NewEngine(datagrams, http.DefaultClient,
		WithRemoteURL(remote.URL), WithQuietInterval(50*time.Millisecond), WithLogger(zerolog.Nop()))

	results, err := e.Discover(context.Background(), 2*time.Second)
	require.NoError(t, err)
	found := results.Collect()
	require.Len(t, found, 2)

	byAddr := map[string]model.BridgeDescriptor{}
	for _, d := range found {
		byAddr[d.Address] = d
	}
	both := byAddr[bridge.Address()]
	assert.True(t, both.Confirmed())
	assert.Equal(t, bridge.ID, both.ID)

	only := byAddr["192.168.1.50"]
	assert.False(t, only.Confirmed())
	assert.Equal(t, []model.Source{model.SourceRemote}, only.Sources)
}

func TestDiscover_RemoteFailureIsSoft(t *testing.T) {
	bridge := bridgetest.New()
	defer bridge.Close()

	remote := remoteServer(t, http.StatusInternalServerError, `oops`)
	datagrams := &bridgetest.Datagrams{Replies: [][]byte{bridge.SSDPReply()}}
	e := NewEngine(datagrams, http.DefaultClient,
		WithRemoteURL(remote.URL), WithQuietInterval(50*time.Millisecond), WithLogger(zerolog.Nop()))

	results, err := e.Discover(context.Background(), 2*time.Second)
	require.NoError(t, err)
	found := results.Collect()
	require.Len(t, found, 1)
	assert.Equal(t, bridge.Address(), found[0].Address)
}

func TestDiscover_Descriptions(t *testing.T) {
	bridge := bridgetest.New()
	defer bridge.Close()

	datagrams := &bridgetest.Datagrams{Replies: [][]byte{bridge.SSDPReply()}}
	e := NewEngine(datagrams, http.DefaultClient, WithStrategy(StrategyLocal),
		WithDescriptions(true), WithQuietInterval(50*time.Millisecond), WithLogger(zerolog.Nop()))

	results, err := e.Discover(context.Background(), 2*time.Second)
	require.NoError(t, err)
	found := results.Collect()
	require.Len(t, found, 1)
	assert.Equal(t, "Philips hue ("+bridge.Address()+")", found[0].FriendlyName)
	assert.Equal(t, "Philips hue bridge 2015", found[0].ModelName)
	assert.Equal(t, bridge.ID, found[0].ID)
}

func TestResults_NotRestartable(t *testing.T) {
	bridge := bridgetest.New()
	defer bridge.Close()

	datagrams := &bridgetest.Datagrams{Replies: [][]byte{bridge.SSDPReply()}}
	e := NewEngine(datagrams, nil, WithQuietInterval(50*time.Millisecond), WithLogger(zerolog.Nop()))

	results, err := e.Discover(context.Background(), time.Second)
	require.NoError(t, err)

	first := 0
	for range results.All() {
		first++
	}
	second := 0
	for range results.All() {
		second++
	}
	assert.Equal(t, 1, first)
	assert.Equal(t, 0, second)
}

func TestResults_EarlyStop(t *testing.T) {
	a := bridgetest.New()
	defer a.Close()
	b := bridgetest.New()
	defer b.Close()

	datagrams := &bridgetest.Datagrams{Replies: [][]byte{a.SSDPReply(), b.SSDPReply()}}
	e := NewEngine(datagrams, nil, WithLogger(zerolog.Nop()))

	results, err := e.Discover(context.Background(), 5*time.Second)
	require.NoError(t, err)

	start := time.Now()
	for range results.All() {
		break
	}
	assert.Less(t, time.Since(start), 2*time.Second)
}

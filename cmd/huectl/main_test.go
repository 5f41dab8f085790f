package main

import (
	"bytes"
	"context"
	"flag"
	"hue-bridge-client/internal/adapters/output/httpclient"
	"hue-bridge-client/internal/adapters/output/persistence"
	"hue-bridge-client/internal/bridgetest"
	"hue-bridge-client/internal/config"
	"hue-bridge-client/internal/domain/model"
	"hue-bridge-client/internal/domain/service"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/amimof/huego"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCLI(t *testing.T, bridge *bridgetest.Bridge) (*cli, *bytes.Buffer) {
	t.Helper()
	cfg := config.Default()
	cfg.Discovery.Strategy = "local"
	cfg.Discovery.Timeout = config.Duration(time.Second)
	cfg.Discovery.QuietInterval = config.Duration(100 * time.Millisecond)
	cfg.Pairing.PollInterval = config.Duration(10 * time.Millisecond)
	cfg.Pairing.MaxWait = config.Duration(time.Second)
	cfg.Credentials.Path = filepath.Join(t.TempDir(), "credentials.json")

	var out bytes.Buffer
	return &cli{
		cfg:       cfg,
		out:       &out,
		http:      httpclient.NewClient(time.Second, httpclient.WithLogger(zerolog.Nop())),
		datagrams: &bridgetest.Datagrams{Replies: [][]byte{bridge.SSDPReply()}},
		creds:     service.NewCredentialService(persistence.NewJSONCredentialRepository(cfg.Credentials.Path)),
	}, &out
}

func TestCLI_DiscoverPairAndControl(t *testing.T) {
	b := bridgetest.New()
	defer b.Close()
	b.AddLight("2", huego.Light{Name: "Hall", State: &huego.State{Reachable: true}})
	b.AddLight("10", huego.Light{Name: "Porch", State: &huego.State{Reachable: true}})
	b.PressLinkButton()
	c, out := testCLI(t, b)
	ctx := context.Background()

	require.NoError(t, c.run(ctx, []string{"discover"}))
	assert.Contains(t, out.String(), b.Address())
	assert.Contains(t, out.String(), b.ID)

	out.Reset()
	require.NoError(t, c.run(ctx, []string{"pair"}))
	assert.Contains(t, out.String(), "paired with "+strings.ToLower(b.ID))

	out.Reset()
	require.NoError(t, c.run(ctx, []string{"lights"}))
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "2 "), lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "10 "), lines[1])

	require.NoError(t, c.run(ctx, []string{"set", "10", "-on", "-bri", "200"}))
	l, _ := b.Light("10")
	assert.True(t, l.State.On)
	assert.Equal(t, uint8(200), l.State.Bri)

	out.Reset()
	require.NoError(t, c.run(ctx, []string{"config"}))
	assert.Contains(t, out.String(), b.ID)

	require.NoError(t, c.run(ctx, []string{"forget", b.Address()}))
	err := c.run(ctx, []string{"lights"})
	assert.ErrorIs(t, err, service.ErrNoPairedBridge)
}

func TestCLI_PairExplicitBridgeFillsID(t *testing.T) {
	b := bridgetest.New()
	defer b.Close()
	b.PressLinkButton()
	c, _ := testCLI(t, b)

	require.NoError(t, c.run(context.Background(), []string{"pair", "-bridge", b.Address()}))
	p, err := c.creds.Lookup(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, b.ID, p.Bridge.ID)
}

func TestCLI_Usage(t *testing.T) {
	b := bridgetest.New()
	defer b.Close()
	c, _ := testCLI(t, b)

	assert.ErrorIs(t, c.run(context.Background(), nil), errUsage)
	assert.ErrorIs(t, c.run(context.Background(), []string{"dance"}), errUsage)
}

func TestStateFlags(t *testing.T) {
	parse := func(args ...string) (model.StateUpdate, error) {
		fs := flag.NewFlagSet("set", flag.ContinueOnError)
		build := stateFlags(fs)
		require.NoError(t, fs.Parse(args))
		return build()
	}

	u, err := parse("-bri", "200")
	require.NoError(t, err)
	assert.Equal(t, model.StateUpdate{Brightness: model.Some(uint8(200))}, u)

	u, err = parse("-off", "-transition", "0")
	require.NoError(t, err)
	assert.Equal(t, model.Some(false), u.On)
	assert.Equal(t, model.Some(uint16(0)), u.TransitionTime)

	u, err = parse("-percent", "50", "-kelvin", "2700", "-degrees", "120")
	require.NoError(t, err)
	assert.Equal(t, model.Some(uint8(127)), u.Brightness)
	assert.Equal(t, model.Some(uint16(370)), u.ColorTemperature)
	assert.Equal(t, model.Some(uint16(21845)), u.Hue)

	_, err = parse("-degrees", "NaN")
	assert.Error(t, err)
	_, err = parse("-bri", "10", "-percent", "10")
	assert.Error(t, err)
	_, err = parse("-bri", "300")
	assert.Error(t, err)
	_, err = parse("-on", "-off")
	assert.Error(t, err)
	_, err = parse()
	assert.Error(t, err)
}

func TestCompareIDs(t *testing.T) {
	assert.Negative(t, compareIDs("2", "10"))
	assert.Positive(t, compareIDs("a", "1"))
	assert.Negative(t, compareIDs("1", "a"))
	assert.Zero(t, compareIDs("7", "7"))
}

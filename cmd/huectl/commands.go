package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"hue-bridge-client/internal/domain/discovery"
	"hue-bridge-client/internal/domain/model"
	"hue-bridge-client/internal/domain/pairing"
	"hue-bridge-client/internal/domain/service"
	"hue-bridge-client/internal/domain/translator"
	"hue-bridge-client/internal/ports"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
)

var errUsage = errors.New("usage")

func (c *cli) run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	cmd, rest := args[0], args[1:]
	switch cmd {
	case "discover":
		return c.discover(ctx, rest)
	case "pair":
		return c.pair(ctx, rest)
	case "bridges":
		return c.bridges(ctx)
	case "forget":
		return c.forget(ctx, rest)
	case "lights":
		return c.lights(ctx, rest)
	case "light":
		return c.light(ctx, rest)
	case "set":
		return c.set(ctx, rest)
	case "config":
		return c.bridgeConfig(ctx, rest)
	}
	return fmt.Errorf("%w: unknown command %q", errUsage, cmd)
}

func (c *cli) engine() (*discovery.Engine, error) {
	dc := c.cfg.Discovery
	strategy, err := dc.ParsedStrategy()
	if err != nil {
		return nil, err
	}
	return discovery.NewEngine(c.datagrams, c.http,
		discovery.WithStrategy(strategy),
		discovery.WithRemoteURL(dc.RemoteURL),
		discovery.WithQuietInterval(dc.QuietInterval.Duration()),
		discovery.WithMX(dc.MX),
		discovery.WithDescriptions(dc.Descriptions),
	), nil
}

func (c *cli) discover(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("discover", flag.ContinueOnError)
	timeout := fs.Duration("timeout", c.cfg.Discovery.Timeout.Duration(), "How long to search")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	engine, err := c.engine()
	if err != nil {
		return err
	}
	results, err := engine.Discover(ctx, *timeout)
	if err != nil {
		return err
	}
	n := 0
	for d := range results.All() {
		n++
		printBridge(c.out, d)
	}
	if n == 0 {
		fmt.Fprintln(c.out, "no bridges found")
	}
	return nil
}

func (c *cli) pair(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("pair", flag.ContinueOnError)
	address := fs.String("bridge", "", "Bridge address; discovered when empty")
	name := fs.String("name", c.cfg.Pairing.DeviceName, "Device name recorded by the bridge")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	bridge := model.BridgeDescriptor{Address: *address}
	if bridge.Address == "" {
		found, err := c.findOne(ctx)
		if err != nil {
			return err
		}
		bridge = found
	}

	fmt.Fprintf(c.out, "press the link button on the bridge at %s\n", bridge.Address)
	var session ports.CredentialRequester = pairing.NewSession(bridge, c.http)
	cred, err := session.RequestCredential(ctx, *name,
		c.cfg.Pairing.PollInterval.Duration(), c.cfg.Pairing.MaxWait.Duration())
	if err != nil {
		return err
	}

	if bridge.ID == "" {
		client := service.NewBridgeClient(bridge, cred, c.http)
		if bc, err := client.Config(ctx); err != nil {
			log.Warn().Err(err).Msg("Paired, but could not read bridge id")
		} else {
			bridge.ID = bc.BridgeID
		}
	}
	if err := c.creds.Remember(ctx, bridge, cred); err != nil {
		return fmt.Errorf("store credential: %w", err)
	}
	fmt.Fprintf(c.out, "paired with %s\n", bridge.Key())
	return nil
}

// findOne runs discovery and insists on a single candidate. Choosing between
// several bridges is left to the user.
func (c *cli) findOne(ctx context.Context) (model.BridgeDescriptor, error) {
	engine, err := c.engine()
	if err != nil {
		return model.BridgeDescriptor{}, err
	}
	results, err := engine.Discover(ctx, c.cfg.Discovery.Timeout.Duration())
	if err != nil {
		return model.BridgeDescriptor{}, err
	}
	found := results.Collect()
	switch len(found) {
	case 0:
		return model.BridgeDescriptor{}, errors.New("no bridge found, pass -bridge")
	case 1:
		return found[0], nil
	}
	for _, d := range found {
		printBridge(c.out, d)
	}
	return model.BridgeDescriptor{}, fmt.Errorf("%d bridges found, choose one with -bridge", len(found))
}

func (c *cli) bridges(ctx context.Context) error {
	all, err := c.creds.List(ctx)
	if err != nil {
		return err
	}
	if len(all) == 0 {
		fmt.Fprintln(c.out, "no paired bridges")
	}
	for _, p := range all {
		printBridge(c.out, p.Bridge)
	}
	return nil
}

func (c *cli) forget(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	p, err := c.creds.Lookup(ctx, args[0])
	if err != nil {
		return err
	}
	return c.creds.Forget(ctx, p.Bridge.Key())
}

// client parses the -bridge flag shared by the light commands and returns a
// client for the selected paired bridge with the remaining arguments.
func (c *cli) client(ctx context.Context, fs *flag.FlagSet, args []string) (ports.BridgePort, []string, error) {
	selector := fs.String("bridge", "", "Paired bridge id or address")
	if err := fs.Parse(args); err != nil {
		return nil, nil, errUsage
	}
	p, err := c.creds.Lookup(ctx, *selector)
	if err != nil {
		return nil, nil, err
	}
	return service.NewBridgeClient(p.Bridge, p.Credential, c.http), fs.Args(), nil
}

func (c *cli) lights(ctx context.Context, args []string) error {
	client, _, err := c.client(ctx, flag.NewFlagSet("lights", flag.ContinueOnError), args)
	if err != nil {
		return err
	}
	lights, err := client.ListLights(ctx)
	if err != nil {
		return err
	}
	ids := make([]model.LightID, 0, len(lights))
	for id := range lights {
		ids = append(ids, id)
	}
	slices.SortFunc(ids, compareIDs)
	for _, id := range ids {
		printLight(c.out, lights[id])
	}
	return nil
}

func (c *cli) light(ctx context.Context, args []string) error {
	client, rest, err := c.client(ctx, flag.NewFlagSet("light", flag.ContinueOnError), args)
	if err != nil {
		return err
	}
	if len(rest) != 1 {
		return errUsage
	}
	l, err := client.GetLight(ctx, model.LightID(rest[0]))
	if err != nil {
		return err
	}
	printLight(c.out, l)
	return nil
}

func (c *cli) set(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("set", flag.ContinueOnError)
	parse := stateFlags(fs)
	client, rest, err := c.client(ctx, fs, args)
	if err != nil {
		return err
	}
	if len(rest) != 1 {
		return errUsage
	}
	update, err := parse()
	if err != nil {
		return err
	}
	return client.SetLightState(ctx, model.LightID(rest[0]), update)
}

func (c *cli) bridgeConfig(ctx context.Context, args []string) error {
	client, _, err := c.client(ctx, flag.NewFlagSet("config", flag.ContinueOnError), args)
	if err != nil {
		return err
	}
	bc, err := client.Config(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "name:       %s\nbridge id:  %s\nmodel:      %s\napi:        %s\nsoftware:   %s\nmac:        %s\n",
		bc.Name, bc.BridgeID, bc.ModelID, bc.APIVersion, bc.SoftwareVersion, bc.MAC)
	return nil
}

// stateFlags registers the state flags on fs. The returned function builds
// the update from the flags that were actually given.
func stateFlags(fs *flag.FlagSet) func() (model.StateUpdate, error) {
	on := fs.Bool("on", false, "Switch on")
	off := fs.Bool("off", false, "Switch off")
	bri := fs.Uint("bri", 0, "Brightness 1-254")
	hue := fs.Uint("hue", 0, "Hue 0-65535")
	sat := fs.Uint("sat", 0, "Saturation 0-254")
	ct := fs.Uint("ct", 0, "Color temperature in mired")
	transition := fs.Uint("transition", 0, "Transition time in 100ms steps")
	percent := fs.Float64("percent", 0, "Brightness 0-100 %")
	kelvin := fs.Int("kelvin", 0, "Color temperature in kelvin")
	degrees := fs.Float64("degrees", 0, "Hue as a color wheel angle")
	alert := fs.String("alert", "", "none, select or lselect")
	effect := fs.String("effect", "", "none or colorloop")

	return func() (model.StateUpdate, error) {
		given := map[string]bool{}
		fs.Visit(func(f *flag.Flag) { given[f.Name] = true })

		var u model.StateUpdate
		if *on && *off {
			return u, errors.New("-on and -off are exclusive")
		}
		if given["on"] {
			u.On = model.Some(*on)
		}
		if given["off"] {
			u.On = model.Some(!*off)
		}
		var err error
		if given["bri"] {
			u.Brightness, err = bounded[uint8]("bri", *bri, 254)
		}
		if err == nil && given["hue"] {
			u.Hue, err = bounded[uint16]("hue", *hue, 65535)
		}
		if err == nil && given["sat"] {
			u.Saturation, err = bounded[uint8]("sat", *sat, 254)
		}
		if err == nil && given["ct"] {
			u.ColorTemperature, err = bounded[uint16]("ct", *ct, 65535)
		}
		if err == nil && given["transition"] {
			u.TransitionTime, err = bounded[uint16]("transition", *transition, 65535)
		}
		if err == nil {
			err = applyHumanUnits(&u, given, *percent, *kelvin, *degrees)
		}
		if err != nil {
			return model.StateUpdate{}, err
		}
		if given["alert"] {
			u.Alert = model.Some(*alert)
		}
		if given["effect"] {
			u.Effect = model.Some(*effect)
		}
		if u.IsEmpty() {
			return u, errors.New("nothing to set")
		}
		return u, nil
	}
}

func applyHumanUnits(u *model.StateUpdate, given map[string]bool, percent float64, kelvin int, degrees float64) error {
	for _, pair := range [][2]string{{"bri", "percent"}, {"ct", "kelvin"}, {"hue", "degrees"}} {
		if given[pair[0]] && given[pair[1]] {
			return fmt.Errorf("-%s and -%s are exclusive", pair[0], pair[1])
		}
	}
	if given["percent"] {
		bri, err := translator.PercentToBrightness(percent)
		if err != nil {
			return err
		}
		u.Brightness = model.Some(bri)
	}
	if given["kelvin"] {
		ct, err := translator.KelvinToMired(kelvin)
		if err != nil {
			return err
		}
		u.ColorTemperature = model.Some(ct)
	}
	if given["degrees"] {
		hue, err := translator.DegreesToHue(degrees)
		if err != nil {
			return err
		}
		u.Hue = model.Some(hue)
	}
	return nil
}

func bounded[T uint8 | uint16](name string, v uint, limit uint) (model.Optional[T], error) {
	if v > limit {
		return model.Optional[T]{}, fmt.Errorf("-%s %d out of range 0-%d", name, v, limit)
	}
	return model.Some(T(v)), nil
}

// compareIDs orders numeric ids numerically and everything else after them.
func compareIDs(a, b model.LightID) int {
	na, errA := strconv.Atoi(string(a))
	nb, errB := strconv.Atoi(string(b))
	switch {
	case errA == nil && errB == nil:
		return na - nb
	case errA == nil:
		return -1
	case errB == nil:
		return 1
	}
	return strings.Compare(string(a), string(b))
}

func printBridge(w io.Writer, d model.BridgeDescriptor) {
	sources := make([]string, len(d.Sources))
	for i, s := range d.Sources {
		sources[i] = string(s)
	}
	id := d.ID
	if id == "" {
		id = "-"
	}
	line := fmt.Sprintf("%-22s %-18s %s", d.Address, id, strings.Join(sources, ","))
	if d.FriendlyName != "" {
		line += "  " + d.FriendlyName
	}
	fmt.Fprintln(w, line)
}

func printLight(w io.Writer, l model.Light) {
	power := "off"
	if l.State.On {
		power = "on"
	}
	if !l.State.Reachable {
		power += " (unreachable)"
	}
	line := fmt.Sprintf("%-4s %-24s %-16s", l.ID, l.Name, power)
	if bri, ok := l.State.Brightness.Get(); ok {
		line += fmt.Sprintf(" bri=%d (%.0f%%)", bri, translator.BrightnessToPercent(bri))
	}
	if hue, ok := l.State.Hue.Get(); ok {
		line += fmt.Sprintf(" hue=%d (%.0f°)", hue, translator.HueToDegrees(hue))
	}
	if sat, ok := l.State.Saturation.Get(); ok {
		line += fmt.Sprintf(" sat=%d", sat)
	}
	if ct, ok := l.State.ColorTemperature.Get(); ok {
		line += fmt.Sprintf(" ct=%d (%dK)", ct, translator.MiredToKelvin(ct))
	}
	fmt.Fprintln(w, line)
}

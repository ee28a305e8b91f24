package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"reflect"
	"strings"
	"time"

	"github.com/leodido/structcli"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/thediveo/enumflag/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sys/unix"

	"github.com/mintwifi/hotspot"
	"github.com/mintwifi/hotspot/firewall"
)

// Build metadata injected via ldflags. Zero values mean a plain `go build`.
var (
	version = ""
	commit  = ""
	date    = ""
)

// errSessionEnded signals a clean daemon exit after auto-off or an
// operator-driven stop.
var errSessionEnded = errors.New("session ended")

func main() {
	root := rootCmd()
	root.AddCommand(interfacesCmd())
	root.AddCommand(probeCmd())
	root.AddCommand(versionCmd())

	if err := root.Execute(); err != nil {
		os.Exit(hotspot.ExitCode(err))
	}
}

// RunOptions defines the flags of the root (run) command.
type RunOptions struct {
	SSID      string       `flag:"ssid" flagshort:"s" flagdescr:"Network name (1-32 characters)"`
	Password  string       `flag:"password" flagshort:"p" flagdescr:"WPA2 passphrase (8-63 characters)"`
	Interface string       `flag:"interface" flagshort:"i" flagdescr:"Wi-Fi interface hosting the hotspot (auto-selected when empty)"`
	Upstream  string       `flag:"upstream" flagshort:"u" flagdescr:"Interface whose connectivity is shared (auto-detected when empty)"`
	Band      hotspot.Band `flag:"band" flagshort:"b" flagdescr:"Frequency band: 2.4 or 5" flagcustom:"true"`
	Hidden    bool         `flag:"hidden" flagdescr:"Do not broadcast the SSID"`
	DNS       string       `flag:"dns" flagdescr:"Push this DNS server to clients instead of the default"`
	Timer     uint         `flag:"timer" flagshort:"t" flagdescr:"Auto-off timer in minutes, 1-120 (0 disables)"`
	BlockMAC  macList      `flag:"block-mac" flagdescr:"Drop traffic from this client MAC (repeatable)" flagcustom:"true"`
	AllowMAC  allowMACList `flag:"allow-mac" flagdescr:"Only forward traffic from these client MACs (repeatable)" flagcustom:"true"`

	ExcludeVPN bool `flag:"exclude-vpn" flagdescr:"Share the physical uplink even when a VPN tunnel is active"`
	Force      bool `flag:"force-single-interface" flagdescr:"Override the single-adapter lockout (drops the current connection)"`

	Backend string `flag:"firewall-backend" flagdescr:"Firewall backend: iptables or nftables"`
	Debug   bool   `flag:"debug" flagdescr:"Verbose logging"`
	Stop    bool   `flag:"stop" flagdescr:"Stop a running hotspot daemon and exit"`
}

func (o *RunOptions) Attach(c *cobra.Command) error {
	return structcli.Define(c, o)
}

var bandIdentifiers = map[hotspot.Band][]string{
	hotspot.Band24GHz: {"2.4", "bg", "g"},
	hotspot.Band5GHz:  {"5", "a"},
}

func (o *RunOptions) DefineBand(name, short, descr string, structField reflect.StructField, fieldValue reflect.Value) (pflag.Value, string) {
	fieldPtr := fieldValue.Addr().Interface().(*hotspot.Band)
	return enumflag.New(fieldPtr, "band", bandIdentifiers, enumflag.EnumCaseInsensitive), descr
}

func (o *RunOptions) DecodeBand(input any) (any, error) {
	s, ok := input.(string)
	if !ok {
		return input, nil
	}
	return parseBand(s)
}

func (o *RunOptions) DefineBlockMAC(name, short, descr string, structField reflect.StructField, fieldValue reflect.Value) (pflag.Value, string) {
	fieldPtr := fieldValue.Addr().Interface().(*macList)
	*fieldPtr = nil
	return fieldPtr, descr
}

func (o *RunOptions) DecodeBlockMAC(input any) (any, error) {
	return decodeMACList(input)
}

func (o *RunOptions) DefineAllowMAC(name, short, descr string, structField reflect.StructField, fieldValue reflect.Value) (pflag.Value, string) {
	fieldPtr := fieldValue.Addr().Interface().(*allowMACList)
	*fieldPtr = nil
	return fieldPtr, descr
}

func (o *RunOptions) DecodeAllowMAC(input any) (any, error) {
	out, err := decodeMACList(input)
	if err != nil {
		return nil, err
	}
	if l, ok := out.(macList); ok {
		return allowMACList(l), nil
	}
	return out, nil
}

func rootCmd() *cobra.Command {
	opts := &RunOptions{}

	cmd := &cobra.Command{
		Use:   "hotspotd",
		Short: "Share this machine's internet connection over Wi-Fi",
		Long: `hotspotd turns a Linux machine into a Wi-Fi access point.

It inventories the host's network interfaces, probes the selected adapter
for AP support, refuses unsafe configurations with actionable remedies,
and shares the upstream connection via NAT. An active VPN tunnel becomes
the egress automatically, with a killswitch that fails closed if the
tunnel drops.`,
		SilenceUsage: true,
		PreRunE: func(c *cobra.Command, args []string) error {
			return structcli.Unmarshal(c, opts)
		},
		RunE: func(c *cobra.Command, args []string) error {
			if opts.Stop {
				return stopDaemon(c.Context())
			}
			return runDaemon(c.Context(), opts)
		},
	}

	if err := opts.Attach(cmd); err != nil {
		panic(err)
	}
	return cmd
}

func runDaemon(ctx context.Context, opts *RunOptions) error {
	if os.Geteuid() != 0 {
		return errors.New("hotspotd must run as root")
	}
	if len(opts.BlockMAC) > 0 && len(opts.AllowMAC) > 0 {
		return &hotspot.ConfigError{Field: "mac filter", Reason: "--block-mac and --allow-mac are mutually exclusive"}
	}

	log := newLogger(opts.Debug)
	defer log.Sync()

	runner := hotspot.NewRunner()

	ctx, stopSig := signal.NotifyContext(ctx, os.Interrupt, unix.SIGTERM)
	defer stopSig()

	sess, err := buildSession(ctx, runner, opts, log)
	if err != nil {
		return err
	}

	fw, err := firewall.New(&firewall.Config{Backend: opts.Backend, Runner: runner})
	if err != nil {
		return err
	}
	defer fw.Close()

	pub, err := hotspot.NewPublisher(hotspot.DefaultRuntimeDir())
	if err != nil {
		return err
	}

	ctrl, err := hotspot.NewController(hotspot.Options{
		Inventory: func(ctx context.Context) ([]hotspot.NetworkInterface, error) {
			return hotspot.ListInterfaces(ctx, runner)
		},
		Probe: func(ctx context.Context, iface string) (*hotspot.CapabilitySet, error) {
			return hotspot.ProbeCapabilities(ctx, runner, iface)
		},
		Clients: func(ctx context.Context, iface string) int {
			return hotspot.CountClients(ctx, runner, iface)
		},
		Firewall:   fw,
		AP:         hotspot.NewNMService(runner),
		Forwarding: hotspot.NewForwardingControl(),
		Publisher:  pub,
		Logger:     log,
	})
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return ctrl.Run(ctx)
	})

	if err := ctrl.Start(ctx, sess); err != nil {
		stopSig()
		_ = g.Wait()
		return err
	}

	if err := pub.WritePID(); err != nil {
		log.Warn("pid file not written", zap.Error(err))
	}
	defer pub.RemovePID()

	fmt.Printf("Hotspot %q is up on %s\n", sess.SSID, sess.HotspotInterface)

	// Exit once the session ends on its own (auto-off or external stop).
	g.Go(func() error {
		t := time.NewTicker(time.Second)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-t.C:
				if ctrl.Status().State == hotspot.StateIdle {
					return errSessionEnded
				}
			}
		}
	})

	err = g.Wait()
	if errors.Is(err, context.Canceled) || errors.Is(err, errSessionEnded) {
		return nil
	}
	return err
}

// buildSession turns flags into a session, filling unset interface choices
// by automatic selection and upstream detection.
func buildSession(ctx context.Context, runner hotspot.Runner, opts *RunOptions, log *zap.Logger) (*hotspot.Session, error) {
	sess := &hotspot.Session{
		SSID:                 opts.SSID,
		Password:             opts.Password,
		HotspotInterface:     opts.Interface,
		InternetSource:       opts.Upstream,
		Band:                 opts.Band,
		Hidden:               opts.Hidden,
		DNSOverride:          opts.DNS,
		VPNRouting:           !opts.ExcludeVPN,
		AutoOff:              time.Duration(opts.Timer) * time.Minute,
		ForceSingleInterface: opts.Force,
	}
	switch {
	case len(opts.AllowMAC) > 0:
		sess.MACFilter = hotspot.MACFilter{Mode: hotspot.MACModeAllow, Addrs: []string(opts.AllowMAC)}
	case len(opts.BlockMAC) > 0:
		sess.MACFilter = hotspot.MACFilter{Mode: hotspot.MACModeBlock, Addrs: []string(opts.BlockMAC)}
	}

	if sess.HotspotInterface == "" || sess.InternetSource == "" {
		inv, err := hotspot.ListInterfaces(ctx, runner)
		if err != nil {
			return nil, err
		}
		caps, err := hotspot.ProbeAll(ctx, runner, wifiNames(inv))
		if err != nil {
			return nil, err
		}
		sel, err := hotspot.SelectInterfaces(inv, caps)
		if err != nil {
			return nil, err
		}
		if sess.HotspotInterface == "" {
			sess.HotspotInterface = sel.Hotspot
		}
		if sess.InternetSource == "" {
			sess.InternetSource = sel.InternetSource
		}
		for _, w := range sel.Warnings {
			log.Warn("interface selection", zap.String("warning", w))
		}
	}

	if sess.InternetSource == "" {
		// Last resort: follow the default route.
		if dev, err := hotspot.DetectUpstream(ctx, runner, opts.ExcludeVPN); err == nil {
			sess.InternetSource = dev
		}
	}

	return sess, nil
}

// stopDaemon signals a running daemon and cleans up what it can reach.
func stopDaemon(ctx context.Context) error {
	pub, err := hotspot.NewPublisher(hotspot.DefaultRuntimeDir())
	if err != nil {
		return err
	}

	pid, err := pub.ReadPID()
	if err != nil {
		// No daemon recorded; remove a possibly orphaned AP profile anyway.
		svc := hotspot.NewNMService(hotspot.NewRunner())
		if err := svc.StopAP(ctx); err != nil {
			return fmt.Errorf("no running daemon found and cleanup failed: %w", err)
		}
		fmt.Println("No running daemon found; cleaned up leftover AP profile")
		return nil
	}

	if err := unix.Kill(pid, unix.SIGTERM); err != nil {
		_ = pub.RemovePID()
		return fmt.Errorf("signal pid %d: %w", pid, err)
	}
	fmt.Printf("Sent stop signal to hotspotd (pid %d)\n", pid)
	return nil
}

func wifiNames(inv []hotspot.NetworkInterface) []string {
	var names []string
	for _, ni := range inv {
		if ni.Kind.IsWifi() {
			names = append(names, ni.Name)
		}
	}
	return names
}

func newLogger(debug bool) *zap.Logger {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.DisableStacktrace = true
	if debug {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	log, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return log
}

func parseBand(s string) (hotspot.Band, error) {
	needle := strings.ToLower(strings.TrimSpace(s))
	for band, ids := range bandIdentifiers {
		for _, id := range ids {
			if needle == id {
				return band, nil
			}
		}
	}
	return hotspot.Band24GHz, fmt.Errorf("unknown band %q (use 2.4 or 5)", s)
}

// macList is a repeatable MAC address flag.
type macList []string

func (m *macList) String() string {
	return strings.Join(*m, ",")
}

func (m *macList) Set(input string) error {
	for _, part := range strings.Split(input, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		hw, err := net.ParseMAC(part)
		if err != nil {
			return fmt.Errorf("invalid MAC address %q", part)
		}
		*m = append(*m, hw.String())
	}
	return nil
}

func (m *macList) Type() string {
	return "mac"
}

// allowMACList is macList under a distinct name: structcli requires each
// custom-flag field to use its own type.
type allowMACList macList

func (m *allowMACList) String() string { return (*macList)(m).String() }

func (m *allowMACList) Set(input string) error { return (*macList)(m).Set(input) }

func (m *allowMACList) Type() string { return (*macList)(m).Type() }

func decodeMACList(input any) (any, error) {
	s, ok := input.(string)
	if !ok {
		return input, nil
	}
	var l macList
	if err := l.Set(s); err != nil {
		return nil, err
	}
	return l, nil
}

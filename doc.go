// Package hotspot turns a Linux machine into a Wi-Fi access point that
// shares another interface's connectivity.
//
// The package splits the problem into snapshot collection and pure
// decision making:
//   - [ListInterfaces] enumerates and classifies network interfaces via
//     NetworkManager.
//   - [ProbeCapabilities] reads a radio's AP support, bands, rfkill state
//     and valid interface combinations from iw and rfkill output.
//   - [Evaluate] reduces those snapshots to a go/no-go [SafetyVerdict]
//     with operator-facing remedies. It is a pure function and never
//     consults the system.
//   - [BuildPlan] generates the NAT and forwarding rule set for a
//     session, pinned to one literal egress interface so a vanished VPN
//     tunnel fails closed instead of leaking.
//   - [Controller] owns the session state machine: validate, apply with
//     rollback, run with auto-off and VPN re-pinning, tear down.
//
// # Quick Start
//
//	ctrl, err := hotspot.NewController(hotspot.Options{
//	    Inventory:  func(ctx context.Context) ([]hotspot.NetworkInterface, error) {
//	        return hotspot.ListInterfaces(ctx, runner)
//	    },
//	    Probe:      func(ctx context.Context, iface string) (*hotspot.CapabilitySet, error) {
//	        return hotspot.ProbeCapabilities(ctx, runner, iface)
//	    },
//	    Firewall:   fw,
//	    AP:         hotspot.NewNMService(runner),
//	    Forwarding: hotspot.NewForwardingControl(),
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	go ctrl.Run(ctx)
//	err = ctrl.Start(ctx, &hotspot.Session{
//	    SSID:             "HomeShare",
//	    Password:         "correcthorse",
//	    HotspotInterface: "wlan1",
//	    InternetSource:   "eth0",
//	})
//
// Start fails with a [*ConfigError] on invalid input, a [*BlockError]
// carrying every failing safety rule, or [ErrSessionActive] when a session
// already runs. [ExitCode] maps these to process exit codes for the CLI.
//
// All system interaction goes through the [Runner] interface and the
// injectable functions in [Options], so every decision path is testable
// without a wireless adapter.
package hotspot

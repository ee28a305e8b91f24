package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"reflect"

	"github.com/leodido/structcli"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/thediveo/enumflag/v2"

	"github.com/mintwifi/hotspot"
)

// ListOptions defines flags for the interfaces subcommand.
type ListOptions struct {
	JSON bool `flag:"json" flagshort:"j" flagdescr:"Output in JSON format"`
}

func (o *ListOptions) Attach(c *cobra.Command) error {
	return structcli.Define(c, o)
}

func interfacesCmd() *cobra.Command {
	opts := &ListOptions{}

	cmd := &cobra.Command{
		Use:   "interfaces",
		Short: "List network interfaces with their hotspot roles",
		PreRunE: func(c *cobra.Command, args []string) error {
			return structcli.Unmarshal(c, opts)
		},
		RunE: func(c *cobra.Command, args []string) error {
			runner := hotspot.NewRunner()
			inv, err := hotspot.ListInterfaces(c.Context(), runner)
			if err != nil {
				return err
			}
			caps, err := hotspot.ProbeAll(c.Context(), runner, wifiNames(inv))
			if err != nil {
				return err
			}

			if opts.JSON {
				return printJSON(map[string]any{
					"interfaces":   inv,
					"capabilities": caps,
				})
			}

			for _, ni := range inv {
				fmt.Println(ni.Label(caps[ni.Name]))
			}
			return nil
		},
	}

	if err := opts.Attach(cmd); err != nil {
		panic(err)
	}
	return cmd
}

// ProbeOptions defines flags for the probe subcommand.
type ProbeOptions struct {
	JSON  bool         `flag:"json" flagshort:"j" flagdescr:"Output in JSON format"`
	Band  hotspot.Band `flag:"band" flagshort:"b" flagdescr:"Band to evaluate against: 2.4 or 5" flagcustom:"true"`
	Force bool         `flag:"force-single-interface" flagdescr:"Evaluate with the single-adapter lockout overridden"`
}

func (o *ProbeOptions) Attach(c *cobra.Command) error {
	return structcli.Define(c, o)
}

func (o *ProbeOptions) DefineBand(name, short, descr string, structField reflect.StructField, fieldValue reflect.Value) (pflag.Value, string) {
	fieldPtr := fieldValue.Addr().Interface().(*hotspot.Band)
	return enumflag.New(fieldPtr, "band", bandIdentifiers, enumflag.EnumCaseInsensitive), descr
}

func (o *ProbeOptions) DecodeBand(input any) (any, error) {
	s, ok := input.(string)
	if !ok {
		return input, nil
	}
	return parseBand(s)
}

func probeCmd() *cobra.Command {
	opts := &ProbeOptions{}

	cmd := &cobra.Command{
		Use:   "probe <interface>",
		Short: "Probe one interface and report whether a hotspot could start",
		Args:  cobra.ExactArgs(1),
		PreRunE: func(c *cobra.Command, args []string) error {
			return structcli.Unmarshal(c, opts)
		},
		RunE: func(c *cobra.Command, args []string) error {
			iface := args[0]
			runner := hotspot.NewRunner()

			inv, err := hotspot.ListInterfaces(c.Context(), runner)
			if err != nil {
				return err
			}
			probed, probeErr := hotspot.ProbeCapabilities(c.Context(), runner, iface)
			caps, err := probedCapabilities(iface, probed, probeErr)
			if err != nil {
				return err
			}

			verdict := hotspot.Evaluate(hotspot.EvaluateRequest{
				HotspotInterface:     iface,
				Band:                 opts.Band,
				Inventory:            inv,
				Capabilities:         caps,
				ForceSingleInterface: opts.Force,
			})

			if opts.JSON {
				return printJSON(map[string]any{
					"capabilities": caps,
					"verdict":      verdict,
				})
			}

			fmt.Print(caps)
			fmt.Printf("Verdict: %s\n", verdict)
			return nil
		},
	}

	if err := opts.Attach(cmd); err != nil {
		panic(err)
	}
	return cmd
}

// probedCapabilities resolves a probe outcome. An unreachable device is not
// a command failure: it reads as "assume not capable" so the verdict can
// still be rendered with its remedies.
func probedCapabilities(iface string, caps *hotspot.CapabilitySet, err error) (*hotspot.CapabilitySet, error) {
	if err != nil {
		if errors.Is(err, hotspot.ErrDeviceUnreachable) {
			return &hotspot.CapabilitySet{Interface: iface, Mode: hotspot.ModeUnknown}, nil
		}
		return nil, err
	}
	return caps, nil
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show tool and kernel version",
		RunE: func(c *cobra.Command, args []string) error {
			if version != "" {
				fmt.Printf("hotspotd %s", version)
				if commit != "" {
					fmt.Printf(" (%s)", commit)
				}
				if date != "" {
					fmt.Printf(" built %s", date)
				}
				fmt.Println()
			} else {
				fmt.Println("hotspotd (dev)")
			}

			if k := hotspot.KernelRelease(); k != "" {
				fmt.Printf("Kernel: %s\n", k)
			}
			return nil
		},
	}
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

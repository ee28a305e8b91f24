package hotspot

import "strings"

// deviceSnapshot is the immutable raw view of one device, as reported by
// NetworkManager plus sysfs bus/driver metadata. Classification operates on
// this snapshot only, never on live system state.
type deviceSnapshot struct {
	Name       string
	NMType     string // nmcli TYPE column: wifi, ethernet, gsm, bridge, tun, ...
	State      string // nmcli STATE column: connected, disconnected, unavailable, unmanaged
	Connection string
	Driver     string // kernel driver name, empty if unknown
	USB        bool   // device sits on a USB bus
	PCI        bool   // device sits on a PCI bus (and not behind USB)
}

// Phone tethering shows up as a USB ethernet gadget with one of these
// drivers.
var tetherDrivers = map[string]bool{
	"rndis_host": true,
	"cdc_ether":  true,
	"cdc_ncm":    true,
	"ipheth":     true,
}

var vpnNamePrefixes = []string{"tun", "tap", "wg", "ppp"}

func hasVPNPrefix(name string) bool {
	for _, p := range vpnNamePrefixes {
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	return false
}

// classifyKind maps a device snapshot to an InterfaceKind. Pure: same
// snapshot in, same kind out.
func classifyKind(s deviceSnapshot) InterfaceKind {
	switch {
	case s.NMType == "wifi":
		if s.USB {
			return KindUSBWifi
		}
		return KindBuiltinWifi
	case s.NMType == "gsm" || s.NMType == "wwan" || strings.HasPrefix(s.Name, "wwan"):
		return KindMobileBroadband
	case s.NMType == "tun" || s.NMType == "wireguard" || s.NMType == "vpn" || hasVPNPrefix(s.Name):
		return KindVPNTunnel
	case s.NMType == "bridge" || strings.HasPrefix(s.Name, "br"):
		return KindBridge
	case s.NMType == "ethernet":
		if s.USB && tetherDrivers[s.Driver] {
			return KindPhoneTether
		}
		return KindEthernet
	default:
		return KindUnknown
	}
}

// skipDevice filters loopback, container and P2P devices out of the
// inventory, matching what the operator can actually select.
func skipDevice(name, nmType string) bool {
	if nmType == "loopback" || nmType == "wifi-p2p" {
		return true
	}
	for _, p := range []string{"lo", "docker", "veth", "virbr", "p2p-"} {
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	return false
}

// parseDeviceList parses `nmcli -t -f DEVICE,TYPE,STATE,CONNECTION device`
// terse output into device snapshots. Bus and driver fields are left for
// the caller to fill from sysfs.
func parseDeviceList(out string) []deviceSnapshot {
	var devices []deviceSnapshot

	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		parts := strings.SplitN(line, ":", 4)
		if len(parts) < 3 {
			continue
		}

		name, nmType, state := parts[0], parts[1], parts[2]
		if skipDevice(name, nmType) {
			continue
		}

		conn := ""
		if len(parts) > 3 && parts[3] != "" && parts[3] != "--" {
			conn = parts[3]
		}

		devices = append(devices, deviceSnapshot{
			Name:       name,
			NMType:     nmType,
			State:      state,
			Connection: conn,
		})
	}

	return devices
}

// snapshotToInterface builds the inventory entry for a snapshot. The
// upstream name marks which interface carries the default route.
func snapshotToInterface(s deviceSnapshot, upstream string) NetworkInterface {
	return NetworkInterface{
		Name:            s.Name,
		Kind:            classifyKind(s),
		Up:              s.State == "connected" || s.State == "disconnected" || s.State == "connecting",
		Connection:      s.Connection,
		CarriesInternet: s.Name == upstream && upstream != "",
	}
}

// findInterface returns the inventory entry with the given name.
func findInterface(inv []NetworkInterface, name string) (NetworkInterface, bool) {
	for _, ni := range inv {
		if ni.Name == name {
			return ni, true
		}
	}
	return NetworkInterface{}, false
}

package hotspot

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestStartAPCommandSequence(t *testing.T) {
	r := &fakeRunner{}
	svc := NewNMService(r)

	s := validSession()
	s.Band = Band5GHz
	s.Hidden = true
	s.DNSOverride = "9.9.9.9"

	if err := svc.StartAP(context.Background(), s); err != nil {
		t.Fatal(err)
	}

	wantPrefixes := []string{
		"nmcli radio wifi on",
		"nmcli connection delete hotspotd-ap",
		"nmcli connection add type wifi ifname wlan1 con-name hotspotd-ap autoconnect no ssid HomeShare",
		"nmcli connection modify hotspotd-ap",
		"nmcli connection up hotspotd-ap",
	}
	for _, p := range wantPrefixes {
		if !r.called(p) {
			t.Errorf("missing command %q in %v", p, r.calls)
		}
	}

	// The modify call carries mode, band, sharing, security, hidden and DNS.
	var modify string
	for _, c := range r.calls {
		if strings.HasPrefix(c, "nmcli connection modify") {
			modify = c
		}
	}
	for _, want := range []string{
		"802-11-wireless.mode ap",
		"802-11-wireless.band a",
		"ipv4.method shared",
		"wifi-sec.key-mgmt wpa-psk",
		"wifi-sec.psk correcthorse",
		"802-11-wireless.hidden yes",
		"ipv4.dns 9.9.9.9",
	} {
		if !strings.Contains(modify, want) {
			t.Errorf("modify command missing %q: %s", want, modify)
		}
	}
}

func TestStartAPCleansUpOnActivationFailure(t *testing.T) {
	r := &fakeRunner{responses: map[string]fakeResponse{
		"nmcli connection up hotspotd-ap": {err: errors.New("activation failed")},
	}}
	svc := NewNMService(r)

	err := svc.StartAP(context.Background(), validSession())
	var ae *ApplyError
	if !errors.As(err, &ae) {
		t.Fatalf("got %v, want *ApplyError", err)
	}

	// The half-created profile must not survive.
	deletes := 0
	for _, c := range r.calls {
		if c == "nmcli connection delete hotspotd-ap" {
			deletes++
		}
	}
	if deletes < 2 { // pre-start cleanup plus failure cleanup
		t.Errorf("profile not cleaned up after failure: %v", r.calls)
	}
}

func TestStopAPToleratesMissingProfile(t *testing.T) {
	r := &fakeRunner{responses: map[string]fakeResponse{
		"nmcli connection delete hotspotd-ap": {
			out: "Error: unknown connection 'hotspotd-ap'.",
			err: errors.New("exit status 10"),
		},
	}}
	if err := NewNMService(r).StopAP(context.Background()); err != nil {
		t.Fatalf("missing profile must not error: %v", err)
	}
}

func TestParseActiveSSID(t *testing.T) {
	out := "no:HomeNet\nno:Neighbor\nyes:HomeShare\nno:CafeWifi\n"
	if got := parseActiveSSID(out); got != "HomeShare" {
		t.Errorf("got %q, want HomeShare", got)
	}
	if got := parseActiveSSID("no:HomeNet\n"); got != "" {
		t.Errorf("got %q, want empty", got)
	}
}

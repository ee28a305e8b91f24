package hotspot

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func validSession() *Session {
	return &Session{
		SSID:             "HomeShare",
		Password:         "correcthorse",
		HotspotInterface: "wlan1",
		InternetSource:   "enp3s0",
	}
}

func TestSessionValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Session)
		wantField string
	}{
		{"valid", func(s *Session) {}, ""},
		{"empty ssid", func(s *Session) { s.SSID = "" }, "ssid"},
		{"ssid too long", func(s *Session) { s.SSID = strings.Repeat("x", 33) }, "ssid"},
		{"ssid at limit", func(s *Session) { s.SSID = strings.Repeat("x", 32) }, ""},
		{"password too short", func(s *Session) { s.Password = "seven77" }, "password"},
		{"password at minimum", func(s *Session) { s.Password = "eight888" }, ""},
		{"password too long", func(s *Session) { s.Password = strings.Repeat("x", 64) }, "password"},
		{"no interface", func(s *Session) { s.HotspotInterface = "" }, "interface"},
		{"timer below minimum", func(s *Session) { s.AutoOff = 30 * time.Second }, "timer"},
		{"timer above maximum", func(s *Session) { s.AutoOff = 121 * time.Minute }, "timer"},
		{"timer disabled", func(s *Session) { s.AutoOff = 0 }, ""},
		{"timer at bounds", func(s *Session) { s.AutoOff = 120 * time.Minute }, ""},
		{"bad dns", func(s *Session) { s.DNSOverride = "not-an-ip" }, "dns"},
		{"good dns", func(s *Session) { s.DNSOverride = "9.9.9.9" }, ""},
		{"bad mac", func(s *Session) {
			s.MACFilter = MACFilter{Mode: MACModeBlock, Addrs: []string{"zz:zz:zz"}}
		}, "mac filter"},
		{"good macs", func(s *Session) {
			s.MACFilter = MACFilter{Mode: MACModeAllow, Addrs: []string{"aa:bb:cc:dd:ee:ff"}}
		}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := validSession()
			tt.mutate(s)
			err := s.Validate()

			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}

			var ce *ConfigError
			if !errors.As(err, &ce) {
				t.Fatalf("got %v, want *ConfigError", err)
			}
			if ce.Field != tt.wantField {
				t.Errorf("field = %q, want %q", ce.Field, tt.wantField)
			}
		})
	}
}

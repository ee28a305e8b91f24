package hotspot

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

type fakeAP struct {
	mu       sync.Mutex
	started  int
	stopped  int
	startErr error
	last     *Session
}

func (f *fakeAP) StartAP(_ context.Context, s *Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.startErr != nil {
		return f.startErr
	}
	f.started++
	f.last = s
	return nil
}

func (f *fakeAP) StopAP(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped++
	return nil
}

func (f *fakeAP) ActiveSSID(context.Context, string) (string, error) { return "", nil }

type fakeForwarding struct {
	enabled   int
	restored  int
	enableErr error
}

func (f *fakeForwarding) Enable() error {
	if f.enableErr != nil {
		return f.enableErr
	}
	f.enabled++
	return nil
}

func (f *fakeForwarding) Restore() error {
	f.restored++
	return nil
}

// testRig bundles a controller with all its fakes.
type testRig struct {
	ctrl *Controller
	fw   *fakeFirewall
	ap   *fakeAP
	fwd  *fakeForwarding
	pub  *Publisher

	mu      sync.Mutex
	inv     []NetworkInterface
	caps    *CapabilitySet
	clients int
	now     time.Time
}

func (r *testRig) setInventory(inv []NetworkInterface) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.inv = inv
}

func (r *testRig) advance(d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.now = r.now.Add(d)
}

func newTestRig(t *testing.T) *testRig {
	t.Helper()

	pub, err := NewPublisher(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	rig := &testRig{
		fw:  &fakeFirewall{},
		ap:  &fakeAP{},
		fwd: &fakeForwarding{},
		pub: pub,
		inv: dualAdapterInventory(),
		now: time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC),
	}
	rig.caps = capableSet("wlan1")

	ctrl, err := NewController(Options{
		Inventory: func(context.Context) ([]NetworkInterface, error) {
			rig.mu.Lock()
			defer rig.mu.Unlock()
			return rig.inv, nil
		},
		Probe: func(_ context.Context, iface string) (*CapabilitySet, error) {
			rig.mu.Lock()
			defer rig.mu.Unlock()
			return rig.caps, nil
		},
		Clients: func(context.Context, string) int {
			rig.mu.Lock()
			defer rig.mu.Unlock()
			return rig.clients
		},
		Firewall:   rig.fw,
		AP:         rig.ap,
		Forwarding: rig.fwd,
		Publisher:  rig.pub,
		Now: func() time.Time {
			rig.mu.Lock()
			defer rig.mu.Unlock()
			return rig.now
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	rig.ctrl = ctrl
	return rig
}

func TestControllerStart(t *testing.T) {
	rig := newTestRig(t)
	ctx := context.Background()

	if err := rig.ctrl.startSession(ctx, validSession()); err != nil {
		t.Fatal(err)
	}

	snap := rig.ctrl.Status()
	if snap.State != StateRunning {
		t.Fatalf("state = %v, want running", snap.State)
	}
	if rig.ap.started != 1 || rig.fwd.enabled != 1 {
		t.Errorf("ap started %d, forwarding enabled %d; want 1 and 1", rig.ap.started, rig.fwd.enabled)
	}
	if len(rig.fw.added) == 0 {
		t.Error("no firewall rules applied")
	}
	if snap.Plan.Egress != "enp3s0" {
		t.Errorf("egress = %q, want enp3s0", snap.Plan.Egress)
	}
}

func TestControllerRejectsSecondStart(t *testing.T) {
	rig := newTestRig(t)
	ctx := context.Background()

	if err := rig.ctrl.startSession(ctx, validSession()); err != nil {
		t.Fatal(err)
	}
	if err := rig.ctrl.startSession(ctx, validSession()); !errors.Is(err, ErrSessionActive) {
		t.Fatalf("got %v, want ErrSessionActive", err)
	}
	// The first session must be untouched.
	if rig.ctrl.Status().State != StateRunning {
		t.Error("running session disturbed by rejected start")
	}
	if rig.ap.started != 1 {
		t.Errorf("ap started %d times, want 1", rig.ap.started)
	}
}

func TestControllerStartRejectsBadConfig(t *testing.T) {
	rig := newTestRig(t)
	s := validSession()
	s.Password = "short"

	err := rig.ctrl.startSession(context.Background(), s)
	var ce *ConfigError
	if !errors.As(err, &ce) {
		t.Fatalf("got %v, want *ConfigError", err)
	}
	snap := rig.ctrl.Status()
	if snap.State != StateFailed {
		t.Errorf("state = %v, want failed", snap.State)
	}
	if snap.LastError == nil {
		t.Error("failed validation must carry the error")
	}
	if len(rig.fw.added) != 0 || rig.ap.started != 0 {
		t.Error("invalid config must not touch the system")
	}

	// Failed after a rejected config is retryable.
	if err := rig.ctrl.startSession(context.Background(), validSession()); err != nil {
		t.Fatalf("retry after rejected config: %v", err)
	}
}

func TestControllerStartBlockedByVerdict(t *testing.T) {
	rig := newTestRig(t)
	rig.caps.RFKill.Hard = true

	err := rig.ctrl.startSession(context.Background(), validSession())
	var be *BlockError
	if !errors.As(err, &be) {
		t.Fatalf("got %v, want *BlockError", err)
	}
	if be.Reasons[0] != BlockRFKillActive {
		t.Errorf("reasons = %v", be.Reasons)
	}
	if len(rig.fw.added) != 0 {
		t.Error("blocked start must not apply rules")
	}

	// A refused start lands in Failed and the record carries the reasons,
	// so a poller can render the remedy.
	snap := rig.ctrl.Status()
	if snap.State != StateFailed {
		t.Fatalf("state = %v, want failed", snap.State)
	}
	if !errors.Is(snap.LastError, err) {
		t.Error("failed state must carry the block error")
	}
	rec, readErr := rig.pub.ReadStatus()
	if readErr != nil {
		t.Fatalf("no status record published after blocked start: %v", readErr)
	}
	if rec.State != "failed" {
		t.Errorf("published state = %q, want failed", rec.State)
	}
	if !strings.Contains(rec.LastError, "rfkill-active") {
		t.Errorf("published error %q missing the blocking reason", rec.LastError)
	}

	// Clearing the block makes the next start succeed.
	rig.caps.RFKill.Hard = false
	if err := rig.ctrl.startSession(context.Background(), validSession()); err != nil {
		t.Fatalf("retry after clearing the block: %v", err)
	}
}

func TestControllerRollsBackOnAPFailure(t *testing.T) {
	rig := newTestRig(t)
	rig.ap.startErr = errors.New("nmcli: activation failed")

	err := rig.ctrl.startSession(context.Background(), validSession())
	if err == nil {
		t.Fatal("expected failure")
	}

	snap := rig.ctrl.Status()
	if snap.State != StateFailed {
		t.Fatalf("state = %v, want failed", snap.State)
	}
	if snap.LastError == nil {
		t.Error("failed state must carry the error")
	}
	if rig.fwd.restored != 1 {
		t.Errorf("forwarding restored %d times, want 1", rig.fwd.restored)
	}
	if len(rig.fw.removed) != len(rig.fw.added) {
		t.Errorf("applied %d rules but removed %d", len(rig.fw.added), len(rig.fw.removed))
	}

	// Failed is retryable.
	rig.ap.startErr = nil
	if err := rig.ctrl.startSession(context.Background(), validSession()); err != nil {
		t.Fatalf("retry after failure: %v", err)
	}
	if rig.ctrl.Status().State != StateRunning {
		t.Error("retry should reach running")
	}
}

func TestControllerStop(t *testing.T) {
	rig := newTestRig(t)
	ctx := context.Background()

	if err := rig.ctrl.startSession(ctx, validSession()); err != nil {
		t.Fatal(err)
	}
	applied := len(rig.fw.added)

	if err := rig.ctrl.stopSession(ctx); err != nil {
		t.Fatal(err)
	}

	snap := rig.ctrl.Status()
	if snap.State != StateIdle {
		t.Fatalf("state = %v, want idle", snap.State)
	}
	if rig.ap.stopped != 1 || rig.fwd.restored != 1 {
		t.Errorf("ap stopped %d, forwarding restored %d; want 1 and 1", rig.ap.stopped, rig.fwd.restored)
	}
	if len(rig.fw.removed) != applied {
		t.Errorf("removed %d of %d rules", len(rig.fw.removed), applied)
	}

	// Stopping again is a no-op.
	if err := rig.ctrl.stopSession(ctx); err != nil {
		t.Fatalf("idempotent stop: %v", err)
	}
	if rig.ap.stopped != 1 {
		t.Error("second stop must not touch the AP service")
	}
}

func TestControllerAutoOff(t *testing.T) {
	rig := newTestRig(t)
	ctx := context.Background()

	s := validSession()
	s.AutoOff = 30 * time.Minute
	if err := rig.ctrl.startSession(ctx, s); err != nil {
		t.Fatal(err)
	}

	// Before the deadline nothing happens.
	rig.advance(29 * time.Minute)
	rig.ctrl.tick(ctx, 1)
	if rig.ctrl.Status().State != StateRunning {
		t.Fatal("stopped before the deadline")
	}

	rig.advance(1 * time.Minute)
	rig.ctrl.tick(ctx, 2)
	if got := rig.ctrl.Status().State; got != StateIdle {
		t.Fatalf("state = %v, want idle after deadline", got)
	}
	if rig.ap.stopped != 1 {
		t.Error("auto-off must tear down the AP")
	}
}

func TestControllerClientCount(t *testing.T) {
	rig := newTestRig(t)
	ctx := context.Background()

	if err := rig.ctrl.startSession(ctx, validSession()); err != nil {
		t.Fatal(err)
	}

	rig.mu.Lock()
	rig.clients = 4
	rig.mu.Unlock()

	// Counting happens every fifth tick only.
	rig.ctrl.tick(ctx, 4)
	if got := rig.ctrl.Status().Clients; got != 0 {
		t.Errorf("clients counted too early: %d", got)
	}
	rig.ctrl.tick(ctx, 5)
	if got := rig.ctrl.Status().Clients; got != 4 {
		t.Errorf("clients = %d, want 4", got)
	}
}

func TestControllerRepinsToNewVPN(t *testing.T) {
	rig := newTestRig(t)
	ctx := context.Background()

	s := validSession()
	s.VPNRouting = true
	if err := rig.ctrl.startSession(ctx, s); err != nil {
		t.Fatal(err)
	}
	if got := rig.ctrl.Status().Plan.Egress; got != "enp3s0" {
		t.Fatalf("initial egress = %q, want enp3s0", got)
	}
	rulesBefore := len(rig.fw.added)

	// A tunnel comes up; the next tick must move the plan onto it.
	rig.setInventory(append(dualAdapterInventory(),
		NetworkInterface{Name: "wg0", Kind: KindVPNTunnel, Up: true, CarriesInternet: true}))
	rig.ctrl.tick(ctx, 1)

	snap := rig.ctrl.Status()
	if snap.Plan.Egress != "wg0" || !snap.Plan.VPNPinned {
		t.Fatalf("egress = %q (vpn=%v), want wg0 pinned", snap.Plan.Egress, snap.Plan.VPNPinned)
	}
	if len(rig.fw.added) <= rulesBefore {
		t.Error("new plan rules not applied")
	}
	if len(rig.fw.removed) != rulesBefore {
		t.Errorf("old rules not removed: %d of %d", len(rig.fw.removed), rulesBefore)
	}
}

func TestControllerKeepsRulesWhenVPNVanishes(t *testing.T) {
	rig := newTestRig(t)
	ctx := context.Background()

	rig.setInventory(append(dualAdapterInventory(),
		NetworkInterface{Name: "wg0", Kind: KindVPNTunnel, Up: true, CarriesInternet: true}))

	s := validSession()
	s.VPNRouting = true
	s.InternetSource = "wg0"
	if err := rig.ctrl.startSession(ctx, s); err != nil {
		t.Fatal(err)
	}
	if got := rig.ctrl.Status().Plan.Egress; got != "wg0" {
		t.Fatalf("egress = %q, want wg0", got)
	}

	// Tunnel drops with no replacement: the stale rules stay, so hotspot
	// traffic keeps hitting the fallback drop instead of leaking.
	rig.setInventory(dualAdapterInventory())
	rig.ctrl.tick(ctx, 1)

	snap := rig.ctrl.Status()
	if snap.Plan.Egress != "wg0" {
		t.Errorf("plan rebound to %q; must stay pinned to the dead tunnel", snap.Plan.Egress)
	}
	if len(rig.fw.removed) != 0 {
		t.Error("rules must not be removed when the tunnel vanishes")
	}
}

func TestControllerRunLoop(t *testing.T) {
	rig := newTestRig(t)
	rig.ctrl.opts.TickInterval = 5 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- rig.ctrl.Run(ctx) }()

	if err := rig.ctrl.Start(ctx, validSession()); err != nil {
		t.Fatal(err)
	}
	if rig.ctrl.Status().State != StateRunning {
		t.Fatal("start through the loop did not reach running")
	}
	if err := rig.ctrl.Stop(ctx); err != nil {
		t.Fatal(err)
	}
	if rig.ctrl.Status().State != StateIdle {
		t.Fatal("stop through the loop did not reach idle")
	}

	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("run returned %v, want context.Canceled", err)
	}
}

func TestControllerCancelTearsDown(t *testing.T) {
	rig := newTestRig(t)
	rig.ctrl.opts.TickInterval = 5 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- rig.ctrl.Run(ctx) }()

	if err := rig.ctrl.Start(ctx, validSession()); err != nil {
		t.Fatal(err)
	}

	cancel()
	<-done

	if rig.ctrl.Status().State != StateIdle {
		t.Error("cancellation must tear the session down")
	}
	if rig.ap.stopped != 1 {
		t.Errorf("ap stopped %d times, want 1", rig.ap.stopped)
	}
}

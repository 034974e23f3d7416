package hotplug

import (
	"context"
	"testing"
	"time"
)

var t0 = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func at(ms int) time.Time {
	return t0.Add(time.Duration(ms) * time.Millisecond)
}

func transition(path string, id uint32, from, to State) Change {
	return Change{Reading: reading(path, id, to), Kind: ChangeTransition, Previous: from}
}

func initial(path string, id uint32, s State) Change {
	return Change{Reading: reading(path, id, s), Kind: ChangeInitial}
}

func TestDebounceFilter_InitialBypasses(t *testing.T) {
	ctx := context.Background()
	f := NewDebounceFilter(100 * time.Millisecond)

	got := f.Admit(ctx, []Change{
		initial("/dev/dri/card0", 1, StateConnected),
		initial("/dev/dri/card0", 2, StateDisconnected),
		initial("/dev/dri/card0", 3, StateUnknown),
	}, at(0), nil)

	if len(got) != 3 {
		t.Fatalf("expected all 3 initial changes immediately, got %d", len(got))
	}
	if f.Pending() != 0 {
		t.Errorf("expected nothing pending, got %d", f.Pending())
	}
}

func TestDebounceFilter_ConnectFastPath(t *testing.T) {
	ctx := context.Background()
	f := NewDebounceFilter(100 * time.Millisecond)

	got := f.Admit(ctx, []Change{transition("/dev/dri/card0", 1, StateDisconnected, StateConnected)}, at(0), nil)
	if len(got) != 1 || got[0].State != StateConnected {
		t.Fatalf("expected connect reported in the same cycle, got %+v", got)
	}
	if f.Pending() != 0 {
		t.Errorf("expected nothing pending, got %d", f.Pending())
	}
}

func TestDebounceFilter_DisconnectDebounce(t *testing.T) {
	ctx := context.Background()
	f := NewDebounceFilter(100 * time.Millisecond)
	c := transition("/dev/dri/card0", 1, StateConnected, StateDisconnected)

	if got := f.Admit(ctx, []Change{c}, at(0), nil); len(got) != 0 {
		t.Fatalf("expected disconnect to be held, got %+v", got)
	}
	if got := f.Admit(ctx, nil, at(99), nil); len(got) != 0 {
		t.Fatalf("expected nothing before quiet period, got %+v", got)
	}
	if f.Due(at(99)) {
		t.Error("expected not due at 99ms")
	}
	if !f.Due(at(100)) {
		t.Error("expected due at 100ms")
	}

	got := f.Admit(ctx, nil, at(100), nil)
	if len(got) != 1 || got[0].State != StateDisconnected {
		t.Fatalf("expected disconnect at quiet period, got %+v", got)
	}
	if f.Pending() != 0 {
		t.Errorf("expected pending cleared, got %d", f.Pending())
	}
	if got := f.Admit(ctx, nil, at(500), nil); len(got) != 0 {
		t.Errorf("expected promotion to happen once, got %+v", got)
	}
}

func TestDebounceFilter_FlickerAbsorption(t *testing.T) {
	ctx := context.Background()
	f := NewDebounceFilter(100 * time.Millisecond)
	path := "/dev/dri/card0"

	f.Admit(ctx, []Change{transition(path, 1, StateConnected, StateDisconnected)}, at(0), nil)

	got := f.Admit(ctx, []Change{transition(path, 1, StateDisconnected, StateConnected)}, at(10), nil)
	if len(got) != 1 || got[0].State != StateConnected {
		t.Fatalf("expected connect fast path, got %+v", got)
	}
	if f.Pending() != 0 {
		t.Fatalf("expected pending disconnect removed, got %d", f.Pending())
	}

	for _, ms := range []int{100, 200, 1000} {
		for _, c := range f.Admit(ctx, nil, at(ms), nil) {
			if c.State == StateDisconnected {
				t.Fatalf("disconnect reported at %dms", ms)
			}
		}
	}
}

func TestDebounceFilter_NewCandidateRestartsTimer(t *testing.T) {
	ctx := context.Background()
	f := NewDebounceFilter(100 * time.Millisecond)
	path := "/dev/dri/card0"

	f.Admit(ctx, []Change{transition(path, 1, StateConnected, StateDisconnected)}, at(0), nil)
	f.Admit(ctx, []Change{transition(path, 1, StateDisconnected, StateUnknown)}, at(60), nil)

	if got := f.Admit(ctx, nil, at(100), nil); len(got) != 0 {
		t.Fatalf("expected timer restart at 60ms, got %+v", got)
	}
	got := f.Admit(ctx, nil, at(160), nil)
	if len(got) != 1 || got[0].State != StateUnknown {
		t.Fatalf("expected most recent candidate to win, got %+v", got)
	}
}

func TestDebounceFilter_InitialSupersedesPending(t *testing.T) {
	ctx := context.Background()
	f := NewDebounceFilter(100 * time.Millisecond)
	path := "/dev/dri/card0"

	f.Admit(ctx, []Change{transition(path, 1, StateConnected, StateDisconnected)}, at(0), nil)
	got := f.Admit(ctx, []Change{initial(path, 1, StateDisconnected)}, at(20), nil)
	if len(got) != 1 || got[0].Kind != ChangeInitial {
		t.Fatalf("expected initial report, got %+v", got)
	}
	if f.Pending() != 0 {
		t.Errorf("expected pending dropped, got %d", f.Pending())
	}
}

func TestDebounceFilter_Override(t *testing.T) {
	ctx := context.Background()
	slow := NewConnectorKey("/dev/dri/card1", 7)
	f := NewDebounceFilter(100*time.Millisecond).Override(slow, 500*time.Millisecond)

	f.Admit(ctx, []Change{
		transition("/dev/dri/card0", 7, StateConnected, StateDisconnected),
		transition("/dev/dri/card1", 7, StateConnected, StateDisconnected),
	}, at(0), nil)

	got := f.Admit(ctx, nil, at(100), nil)
	if len(got) != 1 || got[0].Controller != "/dev/dri/card0" {
		t.Fatalf("expected only the default connector at 100ms, got %+v", got)
	}
	got = f.Admit(ctx, nil, at(500), nil)
	if len(got) != 1 || got[0].Key != slow {
		t.Fatalf("expected overridden connector at 500ms, got %+v", got)
	}
	if d := f.QuietPeriodFor(slow); d != 500*time.Millisecond {
		t.Errorf("expected override 500ms, got %v", d)
	}
}

func TestDebounceFilter_MultiControllerIsolation(t *testing.T) {
	ctx := context.Background()
	f := NewDebounceFilter(100 * time.Millisecond)

	f.Admit(ctx, []Change{transition("/dev/dri/card0", 1, StateConnected, StateDisconnected)}, at(0), nil)
	got := f.Admit(ctx, []Change{transition("/dev/dri/card1", 1, StateDisconnected, StateConnected)}, at(10), nil)

	if len(got) != 1 || got[0].Controller != "/dev/dri/card1" {
		t.Fatalf("expected card1 connect, got %+v", got)
	}
	if f.Pending() != 1 {
		t.Fatalf("card1 connect must not clear card0's pending disconnect, pending=%d", f.Pending())
	}
}

// A connector disconnects, reconnects without the reconnect being observed
// as a candidate, and the timer fires. Revalidation drops the stale
// disconnect; the original policy reports it.
func TestDebounceFilter_RevalidateDropsStaleCandidate(t *testing.T) {
	ctx := context.Background()
	c := transition("/dev/dri/card0", 1, StateConnected, StateDisconnected)
	live := func(ConnectorKey) (State, LiveStatus) { return StateConnected, LiveFresh }

	f := NewDebounceFilter(100 * time.Millisecond)
	f.Admit(ctx, []Change{c}, at(0), nil)
	if got := f.Admit(ctx, nil, at(100), live); len(got) != 0 {
		t.Fatalf("expected stale disconnect dropped, got %+v", got)
	}
	if f.Pending() != 0 {
		t.Errorf("expected stale entry removed, got %d", f.Pending())
	}
}

func TestDebounceFilter_OriginalPromotesStaleCandidate(t *testing.T) {
	ctx := context.Background()
	c := transition("/dev/dri/card0", 1, StateConnected, StateDisconnected)
	live := func(ConnectorKey) (State, LiveStatus) { return StateConnected, LiveFresh }

	f := NewDebounceFilter(100 * time.Millisecond).Policy(PromoteOriginal)
	f.Admit(ctx, []Change{c}, at(0), nil)
	got := f.Admit(ctx, nil, at(100), live)
	if len(got) != 1 || got[0].State != StateDisconnected {
		t.Fatalf("expected original policy to report captured disconnect, got %+v", got)
	}
}

func TestDebounceFilter_RevalidateHoldsUnverifiedCandidate(t *testing.T) {
	ctx := context.Background()
	c := transition("/dev/dri/card0", 1, StateConnected, StateDisconnected)
	status := LiveHeld
	live := func(ConnectorKey) (State, LiveStatus) { return StateDisconnected, status }

	f := NewDebounceFilter(100 * time.Millisecond)
	f.Admit(ctx, []Change{c}, at(0), nil)
	if got := f.Admit(ctx, nil, at(100), live); len(got) != 0 {
		t.Fatalf("expected unverified candidate held, got %+v", got)
	}
	if f.Pending() != 1 || !f.Due(at(150)) {
		t.Fatalf("expected candidate still pending and due, pending=%d", f.Pending())
	}

	status = LiveFresh
	if got := f.Admit(ctx, nil, at(150), live); len(got) != 1 || got[0].State != StateDisconnected {
		t.Fatalf("expected promotion once verified, got %+v", got)
	}
}

func TestDebounceFilter_RevalidatePromotesMissingKey(t *testing.T) {
	ctx := context.Background()
	c := transition("/dev/dri/card0", 1, StateConnected, StateDisconnected)
	live := func(ConnectorKey) (State, LiveStatus) { return StateUnknown, LiveMissing }

	f := NewDebounceFilter(100 * time.Millisecond)
	f.Admit(ctx, []Change{c}, at(0), nil)
	if got := f.Admit(ctx, nil, at(100), live); len(got) != 1 {
		t.Fatalf("expected vanished connector promoted as captured, got %+v", got)
	}
}

func TestDebounceFilter_PreviousIsLastReported(t *testing.T) {
	ctx := context.Background()
	f := NewDebounceFilter(100 * time.Millisecond)

	f.Admit(ctx, []Change{initial("/dev/dri/card0", 1, StateConnected)}, at(0), nil)
	f.Admit(ctx, []Change{transition("/dev/dri/card0", 1, StateConnected, StateDisconnected)}, at(10), nil)
	got := f.Admit(ctx, []Change{transition("/dev/dri/card0", 1, StateDisconnected, StateConnected)}, at(20), nil)

	if len(got) != 1 || got[0].State != StateConnected {
		t.Fatalf("expected connect fast path, got %+v", got)
	}
	if got[0].Previous != StateConnected {
		t.Errorf("expected previous to be the last reported state, got %s", got[0].Previous)
	}

	f.Admit(ctx, []Change{transition("/dev/dri/card0", 1, StateConnected, StateDisconnected)}, at(30), nil)
	got = f.Admit(ctx, nil, at(130), nil)
	if len(got) != 1 || got[0].Previous != StateConnected {
		t.Errorf("expected connected -> disconnected promotion, got %+v", got)
	}
}

func TestDebounceFilter_PromotionsAreOrdered(t *testing.T) {
	ctx := context.Background()
	f := NewDebounceFilter(0)

	var cs []Change
	for id := uint32(10); id > 0; id-- {
		cs = append(cs, transition("/dev/dri/card0", id, StateConnected, StateDisconnected))
	}
	got := f.Admit(ctx, cs, at(0), nil)
	if len(got) != 10 {
		t.Fatalf("expected 10 promotions with zero quiet period, got %d", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i].Key.less(got[i-1].Key) {
			t.Fatalf("promotions out of order at %d", i)
		}
	}
}

func TestDebounceFilter_Drain(t *testing.T) {
	ctx := context.Background()
	f := NewDebounceFilter(time.Second)
	f.Admit(ctx, []Change{
		transition("/dev/dri/card0", 1, StateConnected, StateDisconnected),
		transition("/dev/dri/card0", 2, StateConnected, StateUnknown),
	}, at(0), nil)

	drained := f.Drain()
	if len(drained) != 2 {
		t.Fatalf("expected 2 drained, got %d", len(drained))
	}
	if f.Pending() != 0 {
		t.Errorf("expected filter empty after drain, got %d", f.Pending())
	}
}

func TestParsePromotionPolicy(t *testing.T) {
	for in, want := range map[string]PromotionPolicy{
		"":           PromoteRevalidate,
		"revalidate": PromoteRevalidate,
		"original":   PromoteOriginal,
	} {
		got, err := ParsePromotionPolicy(in)
		if err != nil || got != want {
			t.Errorf("ParsePromotionPolicy(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParsePromotionPolicy("eager"); err == nil {
		t.Error("expected error for unknown policy")
	}
}

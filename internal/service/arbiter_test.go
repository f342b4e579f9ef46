package service

import (
	"errors"
	"testing"
)

// weightedFeeder enlists its service as one instance with a fixed
// weight/priority, as a tuner would for an occupied adapter.
type weightedFeeder struct {
	testFeeder
	weight int
	prio   int
	gone   bool // stop confirming the instance, as if the adapter vanished
}

func (f *weightedFeeder) Enlist(s *Service, list *InstanceList) {
	if f.gone {
		return
	}
	list.Add(s, 0, f.prio, f.weight)
}

func buildChannel(t *testing.T, c *Core, weights, prios []int) (*Channel, []*Service, []*weightedFeeder) {
	t.Helper()
	ch := c.NewChannel("ch-1", "Test Channel")
	services := make([]*Service, len(weights))
	feeders := make([]*weightedFeeder, len(weights))
	for i := range weights {
		f := &weightedFeeder{weight: weights[i], prio: prios[i]}
		s := c.NewService(Params{ID: string(rune('a' + i)), ServiceID: i + 1, Enabled: true, Feeder: f})
		s.MakeNicename()
		c.MapChannel(ch, s)
		services[i] = s
		feeders[i] = f
	}
	return ch, services, feeders
}

func TestArbitrationPreemptsWeakestClaim(t *testing.T) {
	c := newTestCore()
	ch, services, _ := buildChannel(t, c, []int{5, 3, 8}, []int{1, 1, 1})

	list := &InstanceList{}
	si, err := c.FindInstance(nil, ch, list, 6)
	if err != nil {
		t.Fatalf("FindInstance() error = %v", err)
	}
	if si.Service != services[1] {
		t.Errorf("picked weight %v, want the weight-3 candidate", si.Weight)
	}
	if si.Weight != 3 {
		t.Errorf("picked weight = %v, want 3", si.Weight)
	}
	list.Clear()
}

func TestArbitrationReusePrecedence(t *testing.T) {
	c := newTestCore()
	ch, services, _ := buildChannel(t, c, []int{100, 1}, []int{1, 1})

	// Put the heavy candidate in the running state first.
	c.mu.Lock()
	if code := services[0].start(0); code != CodeOK {
		c.mu.Unlock()
		t.Fatalf("start() = %v", code)
	}
	c.mu.Unlock()

	list := &InstanceList{}
	si, err := c.FindInstance(nil, ch, list, 1)
	if err != nil {
		t.Fatalf("FindInstance() error = %v", err)
	}
	if si.Service != services[0] {
		t.Error("running candidate with weight 100 not reused for a weight-1 request")
	}
	list.Clear()
}

func TestArbitrationPrefersFreeCandidate(t *testing.T) {
	c := newTestCore()
	ch, services, feeders := buildChannel(t, c, []int{4, 0}, []int{1, 2})

	list := &InstanceList{}
	si, err := c.FindInstance(nil, ch, list, 10)
	if err != nil {
		t.Fatalf("FindInstance() error = %v", err)
	}
	if si.Service != services[1] {
		t.Error("free candidate not preferred over preempting an occupied one")
	}
	if feeders[0].starts != 0 {
		t.Error("occupied candidate was started")
	}
	list.Clear()
}

func TestArbitrationNoCandidateFails(t *testing.T) {
	c := newTestCore()
	ch, _, _ := buildChannel(t, c, []int{5, 8}, []int{1, 1})

	// Requester weight outranks nobody.
	list := &InstanceList{}
	_, err := c.FindInstance(nil, ch, list, 2)
	if !errors.Is(err, ErrNoFreeAdapter) {
		t.Fatalf("FindInstance() error = %v, want %v", err, ErrNoFreeAdapter)
	}
	if got := list.ErrorCode(); got != CodeNoFreeAdapter {
		t.Errorf("ErrorCode() = %v, want %v", got, CodeNoFreeAdapter)
	}
	list.Clear()
}

func TestArbitrationEmptyListFails(t *testing.T) {
	c := newTestCore()
	ch := c.NewChannel("ch-empty", "Empty")

	list := &InstanceList{}
	_, err := c.FindInstance(nil, ch, list, 10)
	if !errors.Is(err, ErrNoFreeAdapter) {
		t.Fatalf("FindInstance() error = %v, want %v", err, ErrNoFreeAdapter)
	}
}

func TestArbitrationDisabledServiceNotEnlisted(t *testing.T) {
	c := newTestCore()
	ch, services, _ := buildChannel(t, c, []int{0}, []int{1})
	c.SetEnabled(services[0], false)

	list := &InstanceList{}
	if _, err := c.FindInstance(nil, ch, list, 10); !errors.Is(err, ErrNoFreeAdapter) {
		t.Fatalf("FindInstance() error = %v, want %v", err, ErrNoFreeAdapter)
	}
	if list.Len() != 0 {
		t.Errorf("disabled service produced %v candidates", list.Len())
	}
}

func TestArbitrationTuningFailureIsSticky(t *testing.T) {
	c := newTestCore()
	ch, services, feeders := buildChannel(t, c, []int{0, 0}, []int{1, 2})
	feeders[0].startCode = CodeTuningFailed

	list := &InstanceList{}
	_, err := c.FindInstance(nil, ch, list, 10)
	if !errors.Is(err, ErrTuningFailed) {
		t.Fatalf("first FindInstance() error = %v, want %v", err, ErrTuningFailed)
	}
	if got := list.ErrorCode(); got != CodeTuningFailed {
		t.Errorf("ErrorCode() = %v, want %v", got, CodeTuningFailed)
	}

	// Second call with the same context skips the failed candidate and
	// claims the next-best one.
	si, err := c.FindInstance(nil, ch, list, 10)
	if err != nil {
		t.Fatalf("second FindInstance() error = %v", err)
	}
	if si.Service != services[1] {
		t.Error("failed candidate not skipped on retry")
	}
	if feeders[0].starts != 1 {
		t.Errorf("failed candidate started %v times, want 1", feeders[0].starts)
	}
	list.Clear()
}

func TestArbitrationPrunesVanishedCandidates(t *testing.T) {
	c := newTestCore()
	ch, _, feeders := buildChannel(t, c, []int{5, 8}, []int{1, 1})

	list := &InstanceList{}
	if _, err := c.FindInstance(nil, ch, list, 2); !errors.Is(err, ErrNoFreeAdapter) {
		t.Fatalf("FindInstance() error = %v, want %v", err, ErrNoFreeAdapter)
	}
	if list.Len() != 2 {
		t.Fatalf("candidate count = %v, want 2", list.Len())
	}

	feeders[1].gone = true
	if _, err := c.FindInstance(nil, ch, list, 2); !errors.Is(err, ErrNoFreeAdapter) {
		t.Fatalf("FindInstance() error = %v, want %v", err, ErrNoFreeAdapter)
	}
	if list.Len() != 1 {
		t.Errorf("candidate count after prune = %v, want 1", list.Len())
	}
	list.Clear()
}

func TestInstanceListRanking(t *testing.T) {
	c := newTestCore()
	f := &testFeeder{}
	a := c.NewService(Params{ID: "a", Enabled: true, Feeder: f})
	b := c.NewService(Params{ID: "b", Enabled: true, Feeder: f})
	d := c.NewService(Params{ID: "d", Enabled: true, Feeder: f})

	list := &InstanceList{}
	list.Add(a, 0, 2, 5)
	list.Add(b, 0, 1, 5)
	list.Add(d, 0, 9, 0)

	// Sorted by weight then priority, lowest first.
	if list.items[0].Service != d || list.items[1].Service != b || list.items[2].Service != a {
		t.Errorf("ranking order = [%v %v %v], want [d b a]",
			list.items[0].Service.ID, list.items[1].Service.ID, list.items[2].Service.ID)
	}

	// Re-adding with a changed weight re-ranks in place.
	list.Add(d, 0, 9, 10)
	if list.items[2].Service != d {
		t.Error("re-ranked candidate not moved to the tail")
	}
	if list.Len() != 3 {
		t.Errorf("re-add duplicated the candidate, len = %v", list.Len())
	}
	list.Clear()
}

func TestInstanceListHoldsServiceReference(t *testing.T) {
	c := newTestCore()
	f := &testFeeder{}
	s := c.NewService(Params{ID: "a", Enabled: true, Feeder: f})

	released := 0
	s.onRelease = func() { released++ }

	list := &InstanceList{}
	list.Add(s, 0, 0, 0)

	c.DestroyService(s) // drops the creator's reference
	if released != 0 {
		t.Fatal("service released while a candidate still references it")
	}

	list.Clear()
	if released != 1 {
		t.Errorf("release fired %v times, want 1", released)
	}
}

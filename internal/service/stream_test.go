package service

import "testing"

func TestStreamCreateIdempotent(t *testing.T) {
	c := newTestCore()
	f := &testFeeder{}
	s := newTestService(c, "svc-1", f)

	first := s.StreamCreate(101, StreamH264)
	second := s.StreamCreate(101, StreamH264)
	if first != second {
		t.Error("re-announcing a PID created a new component")
	}
	if s.StreamCount() != 1 {
		t.Errorf("StreamCount() = %v, want 1", s.StreamCount())
	}
	if second.Index != first.Index {
		t.Errorf("index advanced on re-announce: %v -> %v", first.Index, second.Index)
	}
}

func TestStreamIndexMonotonicAcrossDeletion(t *testing.T) {
	c := newTestCore()
	f := &testFeeder{}
	s := newTestService(c, "svc-1", f)

	a := s.StreamCreate(101, StreamH264)
	b := s.StreamCreate(102, StreamAAC)
	if b.Index <= a.Index {
		t.Fatalf("indices not increasing: %v then %v", a.Index, b.Index)
	}

	s.StreamDestroy(b)
	d := s.StreamCreate(103, StreamAC3)
	if d.Index <= b.Index {
		t.Errorf("index reused after deletion: destroyed %v, new %v", b.Index, d.Index)
	}
}

func TestStreamFind(t *testing.T) {
	c := newTestCore()
	f := &testFeeder{}
	s := newTestService(c, "svc-1", f)

	es := s.StreamCreate(101, StreamH264)
	if got := s.StreamFind(101); got != es {
		t.Error("StreamFind() did not return the created component")
	}
	// Second lookup hits the memoized entry.
	if got := s.StreamFind(101); got != es {
		t.Error("memoized StreamFind() returned a different component")
	}
	if got := s.StreamFind(999); got != nil {
		t.Errorf("StreamFind(999) = %v, want nil", got)
	}

	s.StreamDestroy(es)
	if got := s.StreamFind(101); got != nil {
		t.Error("StreamFind() returned a destroyed component")
	}
}

func TestSortStreamsByPosition(t *testing.T) {
	c := newTestCore()
	f := &testFeeder{}
	s := newTestService(c, "svc-1", f)

	// Created in PID-scan order, positions from the original descriptor.
	a := s.StreamCreate(301, StreamAAC)
	a.Position = 2
	v := s.StreamCreate(101, StreamH264)
	v.Position = 0
	sub := s.StreamCreate(401, StreamDVBSub)
	sub.Position = 3
	au := s.StreamCreate(201, StreamAC3)
	au.Position = 1

	s.SortStreams()

	want := []int{101, 201, 301, 401}
	for i, es := range s.components {
		if es.PID != want[i] {
			t.Errorf("position %v holds PID %v, want %v", i, es.PID, want[i])
		}
	}
}

func TestStreamNicename(t *testing.T) {
	c := newTestCore()
	f := &testFeeder{}
	s := newTestService(c, "svc-1", f)

	es := s.StreamCreate(101, StreamH264)
	if want := "adapter0/mux-498MHz/Test TV: H264 @ #101"; es.NiceName() != want {
		t.Errorf("NiceName() = %q, want %q", es.NiceName(), want)
	}
}

func TestStreamInitOnRunningService(t *testing.T) {
	c := newTestCore()
	f := &testFeeder{}
	s := newTestService(c, "svc-1", f)

	idle := s.StreamCreate(101, StreamH264)
	if idle.cc != 0 {
		t.Errorf("idle component cc = %v, want zero value until start", idle.cc)
	}

	if code := s.start(0); code != CodeOK {
		t.Fatalf("start() = %v", code)
	}
	if idle.cc != -1 {
		t.Errorf("component not initialized on start, cc = %v", idle.cc)
	}

	live := s.StreamCreate(102, StreamAAC)
	if live.cc != -1 {
		t.Errorf("component created while running not initialized, cc = %v", live.cc)
	}
}

func TestStreamTypeClasses(t *testing.T) {
	tests := []struct {
		typ      StreamType
		video    bool
		audio    bool
		subtitle bool
	}{
		{StreamMPEG2Video, true, false, false},
		{StreamH264, true, false, false},
		{StreamMPEG2Audio, false, true, false},
		{StreamAC3, false, true, false},
		{StreamEAC3, false, true, false},
		{StreamAAC, false, true, false},
		{StreamDVBSub, false, false, true},
		{StreamTextSub, false, false, true},
		{StreamTeletext, false, false, false},
		{StreamCA, false, false, false},
	}
	for _, tt := range tests {
		if got := tt.typ.IsVideo(); got != tt.video {
			t.Errorf("%v.IsVideo() = %v, want %v", tt.typ, got, tt.video)
		}
		if got := tt.typ.IsAudio(); got != tt.audio {
			t.Errorf("%v.IsAudio() = %v, want %v", tt.typ, got, tt.audio)
		}
		if got := tt.typ.IsSubtitle(); got != tt.subtitle {
			t.Errorf("%v.IsSubtitle() = %v, want %v", tt.typ, got, tt.subtitle)
		}
	}
}

func TestStreamTypeFromText(t *testing.T) {
	for _, typ := range []StreamType{StreamMPEG2Video, StreamH264, StreamAC3, StreamCA} {
		if got := StreamTypeFromText(typ.String()); got != typ {
			t.Errorf("StreamTypeFromText(%q) = %v, want %v", typ.String(), got, typ)
		}
	}
	if got := StreamTypeFromText("NOT_A_TYPE"); got != StreamNone {
		t.Errorf("StreamTypeFromText(unknown) = %v, want %v", got, StreamNone)
	}
}

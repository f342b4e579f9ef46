package service

import "testing"

func TestSaveRecordPersistedOrder(t *testing.T) {
	c := newTestCore()
	f := &testFeeder{}
	s := newTestService(c, "svc-1", f)
	s.PCRPid = 101
	s.PMTPid = 32

	// Creation order differs from descriptor order.
	au := s.StreamCreate(201, StreamAC3)
	au.Position = 1
	au.Lang = "fra"
	au.AudioType = 1
	v := s.StreamCreate(101, StreamH264)
	v.Position = 0
	v.Width = 1920
	v.Height = 1080

	rec := s.SaveRecord()
	if rec.ID != "svc-1" || rec.PCRPid != 101 || rec.PMTPid != 32 {
		t.Errorf("record header = %+v", rec)
	}
	if len(rec.Streams) != 2 {
		t.Fatalf("record carries %v streams, want 2", len(rec.Streams))
	}
	if rec.Streams[0].PID != 101 || rec.Streams[1].PID != 201 {
		t.Errorf("streams not in persisted order: [%v %v]", rec.Streams[0].PID, rec.Streams[1].PID)
	}
	if rec.Streams[0].Height != 1080 {
		t.Errorf("video height = %v, want 1080", rec.Streams[0].Height)
	}
	if rec.Streams[0].AudioType != 0 {
		t.Error("audio-only field persisted on a video stream")
	}
	if rec.Streams[1].Lang != "fra" || rec.Streams[1].AudioType != 1 {
		t.Errorf("audio stream = %+v", rec.Streams[1])
	}
}

func TestLoadRecordRebuildsComponents(t *testing.T) {
	c := newTestCore()
	f := &testFeeder{}
	s := newTestService(c, "svc-1", f)

	rec := &Record{
		ID:     "svc-1",
		PCRPid: 101,
		PMTPid: 32,
		Streams: []StreamRecord{
			{PID: 201, Type: "AC3", Position: 1, Language: "eng"},
			{PID: 101, Type: "H264", Position: 0, Width: 1280, Height: 720},
			{PID: 301, Type: "BOGUS", Position: 2},
			{PID: 401, Type: "CA", Position: 3, CAIDs: []CAID{{CAID: 0x0500}}},
		},
	}
	s.LoadRecord(rec)

	if s.StreamCount() != 3 {
		t.Fatalf("StreamCount() = %v, want 3 (unknown type skipped)", s.StreamCount())
	}
	if s.PCRPid != 101 || s.PMTPid != 32 {
		t.Errorf("pids = pcr=%v pmt=%v", s.PCRPid, s.PMTPid)
	}

	// Components end up in persisted order.
	if s.components[0].PID != 101 || s.components[1].PID != 201 || s.components[2].PID != 401 {
		t.Errorf("component order = [%v %v %v]",
			s.components[0].PID, s.components[1].PID, s.components[2].PID)
	}

	v := s.StreamFind(101)
	if v == nil || v.Height != 720 {
		t.Errorf("video component = %+v", v)
	}
	ca := s.StreamFind(401)
	if ca == nil || len(ca.CAIDs) != 1 || ca.CAIDs[0].CAID != 0x0500 {
		t.Errorf("CA component = %+v", ca)
	}
	if !s.IsEncrypted() {
		t.Error("service with restored CA stream not reported encrypted")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	c := newTestCore()
	f := &testFeeder{}
	src := newTestService(c, "src", f)
	src.PCRPid = 101

	v := src.StreamCreate(101, StreamMPEG2Video)
	v.Position = 0
	v.Height = 576
	sub := src.StreamCreate(501, StreamDVBSub)
	sub.Position = 1
	sub.Lang = "swe"
	sub.CompositionID = 4
	sub.AncillaryID = 7

	dst := newTestService(c, "dst", f)
	dst.LoadRecord(src.SaveRecord())

	if dst.StreamCount() != 2 {
		t.Fatalf("StreamCount() = %v, want 2", dst.StreamCount())
	}
	got := dst.StreamFind(501)
	if got == nil || got.CompositionID != 4 || got.AncillaryID != 7 || got.Lang != "swe" {
		t.Errorf("subtitle component = %+v", got)
	}
}

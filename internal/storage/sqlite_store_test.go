package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/roman-kulish/sounding-telemetry/internal/sounding"
)

func newTestStore(t *testing.T) *SqliteStore {
	t.Helper()
	s := NewSqliteStore(filepath.Join(t.TempDir(), "flights.db"))
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testFlight() sounding.Flight {
	start := time.Date(2024, 1, 1, 11, 30, 0, 0, time.UTC)
	return sounding.Flight{
		RadiosondeID:   "T1234567",
		StartTime:      start,
		RadioResetTime: start.Add(-time.Minute),
		LaunchTime:     125,
		Operator:       "ops",
	}
}

func TestSqliteStore_Flights(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	f := testFlight()
	id, err := s.CreateFlight(ctx, f, "/data/RawData.txt", "/data/XData.txt")
	if err != nil {
		t.Fatalf("creating flight: %v", err)
	}

	if _, err := s.CreateFlight(ctx, f, "", ""); err == nil {
		t.Error("duplicate flight accepted")
	}

	got, err := s.Flight(ctx, id)
	if err != nil {
		t.Fatalf("reading flight: %v", err)
	}
	if got.RadiosondeID != f.RadiosondeID || !got.StartTime.Equal(f.StartTime) || got.LaunchTime != 125 {
		t.Errorf("unexpected flight: %+v", got)
	}
	if got.CompletedAt != nil {
		t.Errorf("new flight already completed at %v", got.CompletedAt)
	}
	if !got.Flight().ReleaseTime().Equal(f.ReleaseTime()) {
		t.Errorf("release time = %v, want %v", got.Flight().ReleaseTime(), f.ReleaseTime())
	}

	end := f.StartTime.Add(2 * time.Hour)
	if err := s.FinishFlight(ctx, id, "burst at 30 km", end); err != nil {
		t.Fatalf("finishing flight: %v", err)
	}

	found, err := s.FindFlight(ctx, f.RadiosondeID, f.StartTime)
	if err != nil {
		t.Fatalf("finding flight: %v", err)
	}
	if found.ID != id || found.Comments != "burst at 30 km" {
		t.Errorf("unexpected flight: %+v", found)
	}
	if found.CompletedAt == nil || !found.CompletedAt.Equal(end) {
		t.Errorf("completed at = %v, want %v", found.CompletedAt, end)
	}

	all, err := s.Flights(ctx)
	if err != nil {
		t.Fatalf("listing flights: %v", err)
	}
	if len(all) != 1 {
		t.Errorf("got %d flights, want 1", len(all))
	}
}

func TestSqliteStore_FlightNotFound(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	if _, err := s.Flight(ctx, 42); !errors.Is(err, ErrFlightNotFound) {
		t.Errorf("Flight() error = %v, want ErrFlightNotFound", err)
	}
	if err := s.FinishFlight(ctx, 42, "", time.Now()); !errors.Is(err, ErrFlightNotFound) {
		t.Errorf("FinishFlight() error = %v, want ErrFlightNotFound", err)
	}
	if _, err := s.ReadRecords(ctx, 42); !errors.Is(err, ErrFlightNotFound) {
		t.Errorf("ReadRecords() error = %v, want ErrFlightNotFound", err)
	}
}

func TestSqliteStore_Records(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	id, err := s.CreateFlight(ctx, testFlight(), "", "")
	if err != nil {
		t.Fatalf("creating flight: %v", err)
	}

	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC).Unix()

	// more rows than one multi-row insert holds
	var records []Record
	for i := range 150 {
		p := sounding.NewPtuSample(float64(i))
		p.Pressure = 1000 - float64(i)
		p.Temperature = -float64(i) / 10
		records = append(records, Record{FlightID: id, Timestamp: base + int64(i), Sample: p})
	}
	if err := s.StoreRecords(ctx, records); err != nil {
		t.Fatalf("storing records: %v", err)
	}

	r, err := s.ReadRecords(ctx, id, WithTimeRange[Record](time.Unix(base+10, 0), time.Unix(base+19, 0)))
	if err != nil {
		t.Fatalf("creating reader: %v", err)
	}
	defer r.Close()

	if r.Flight().ID != id {
		t.Errorf("reader flight = %d, want %d", r.Flight().ID, id)
	}

	got, err := ReadAll[Record](ctx, r)
	if err != nil {
		t.Fatalf("reading records: %v", err)
	}
	if len(got) != 10 {
		t.Fatalf("got %d records, want 10", len(got))
	}
	for i, rec := range got {
		if rec.Timestamp != base+10+int64(i) {
			t.Errorf("record %d timestamp = %d", i, rec.Timestamp)
		}
	}

	first := got[0].Sample
	if first.Pressure != 990 || first.Temperature != -1 {
		t.Errorf("unexpected sample: %+v", first)
	}
	if !sounding.IsMissing(first.WindSpeed) || !sounding.IsMissing(first.Latitude) {
		t.Errorf("missing values not restored: %+v", first)
	}

	recordsSpan, xdataSpan, err := s.Spans(ctx, id)
	if err != nil {
		t.Fatalf("reading spans: %v", err)
	}
	if recordsSpan.Count != 150 || recordsSpan.First.Unix() != base || recordsSpan.Last.Unix() != base+149 {
		t.Errorf("unexpected records span: %+v", recordsSpan)
	}
	if xdataSpan.Count != 0 || !xdataSpan.First.IsZero() {
		t.Errorf("unexpected xdata span: %+v", xdataSpan)
	}
}

func TestSqliteStore_XData(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	id, err := s.CreateFlight(ctx, testFlight(), "", "")
	if err != nil {
		t.Fatalf("creating flight: %v", err)
	}

	x := sounding.XDataSample{
		Time:             12.5,
		Offset:           sounding.MissingValue,
		InstrumentType:   60,
		InstrumentNumber: 1,
		ServerTime:       1234,
		GPSOffset:        18,
		Payload:          "0103E8FFFF",
	}
	if err := x.Decode(); err != nil {
		t.Fatalf("decoding payload: %v", err)
	}

	if err := s.StoreXData(ctx, []XDataRecord{{FlightID: id, Timestamp: 100, Sample: x}}); err != nil {
		t.Fatalf("storing xdata: %v", err)
	}

	r, err := s.ReadXData(ctx, id)
	if err != nil {
		t.Fatalf("creating reader: %v", err)
	}
	defer r.Close()

	if !r.Next(ctx) {
		t.Fatalf("no xdata read: %v", r.Error())
	}
	got := r.Current().Sample
	if got != x {
		t.Errorf("got  %+v\nwant %+v", got, x)
	}

	if r.Next(ctx) {
		t.Error("unexpected second record")
	}
	if err := r.Error(); err != nil {
		t.Errorf("reader error: %v", err)
	}
}

func TestSqliteStore_CloseTwice(t *testing.T) {
	s := NewSqliteStore(filepath.Join(t.TempDir(), "flights.db"))
	if _, err := s.Flights(context.Background()); err != nil {
		t.Fatalf("listing flights: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("first close: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("second close: %v", err)
	}
}

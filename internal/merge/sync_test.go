package merge

import (
	"math"
	"strings"
	"testing"
	"time"

	"github.com/roman-kulish/sounding-telemetry/internal/sounding"
	"github.com/roman-kulish/sounding-telemetry/internal/table"
)

var epoch = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

func ptuAt(t float64) sounding.PtuSample {
	p := sounding.NewPtuSample(t)
	p.Pressure = 1013.25
	p.Temperature = -5.0
	p.Humidity = 80.0
	p.AscentRate = 5.0
	return p
}

func positionAt(t float64, status sounding.WindStatus) sounding.PositionSample {
	return sounding.PositionSample{
		Time:      t,
		Longitude: 24.5,
		Latitude:  60.25,
		Height:    1234.4,
		WindNorth: 4,
		WindEast:  3,
		Status:    status,
	}
}

func TestWind(t *testing.T) {
	tests := []struct {
		name          string
		north, east   float64
		wantDirection float64
		wantSpeed     float64
	}{
		{name: "from north", north: -1, east: 0, wantDirection: 360, wantSpeed: 1},
		{name: "from east", north: 0, east: 1, wantDirection: 270, wantSpeed: 1},
		{name: "from south", north: 1, east: 0, wantDirection: 180, wantSpeed: 1},
		{name: "from west", north: 0, east: -1, wantDirection: 90, wantSpeed: 1},
		{name: "3-4-5", north: 4, east: 3, wantDirection: 216.8698976458440, wantSpeed: 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dd, ff, ok := Wind(tt.north, tt.east)
			if !ok {
				t.Fatal("wind not computed")
			}
			if math.Abs(dd-tt.wantDirection) > 1e-9 {
				t.Errorf("direction = %v, want %v", dd, tt.wantDirection)
			}
			if math.Abs(ff-tt.wantSpeed) > 1e-9 {
				t.Errorf("speed = %v, want %v", ff, tt.wantSpeed)
			}
			if dd <= 0 || dd > 360 {
				t.Errorf("direction %v outside (0, 360]", dd)
			}
		})
	}
}

func TestWind_Missing(t *testing.T) {
	if _, _, ok := Wind(sounding.MissingValue, 3); ok {
		t.Error("wind computed from a missing north component")
	}
	if _, _, ok := Wind(4, sounding.MissingValue); ok {
		t.Error("wind computed from a missing east component")
	}
}

func TestSynchronize_Alignment(t *testing.T) {
	tests := []struct {
		ptu, pos float64
		want     bool
	}{
		{ptu: 10.4, pos: 10.6, want: false},
		{ptu: 10.4, pos: 10.2, want: true},
		{ptu: 10.4, pos: 11.4, want: false},
		{ptu: 10.6, pos: 11.4, want: true},
		{ptu: 10.5, pos: 11.0, want: true},
	}

	for _, tt := range tests {
		_, ok := Synchronize(ptuAt(tt.ptu), positionAt(tt.pos, sounding.StatusAutonomous), epoch)
		if ok != tt.want {
			t.Errorf("Synchronize(%v, %v) emitted = %v, want %v", tt.ptu, tt.pos, ok, tt.want)
		}
		if Aligned(tt.ptu, tt.pos) != (math.Round(tt.ptu) == math.Round(tt.pos)) {
			t.Errorf("Aligned(%v, %v) disagrees with rounding", tt.ptu, tt.pos)
		}
	}
}

func TestSynchronize_Line(t *testing.T) {
	line, ok := Synchronize(ptuAt(10.4), positionAt(10.2, sounding.StatusAutonomous), epoch)
	if !ok {
		t.Fatal("no line emitted")
	}

	want := "2024-01-01 12:00:10 1013.25 -5.00 80.00 217 5.00 4.00 3.00 1234 24.500000 60.250000 5.00"
	if line != want {
		t.Errorf("got  %q\nwant %q", line, want)
	}
}

func TestSynchronize_OmitsGPSBlock(t *testing.T) {
	tests := []struct {
		name string
		pos  sounding.PositionSample
	}{
		{name: "no solution", pos: positionAt(10, sounding.StatusUnavailable)},
		{name: "other solution", pos: positionAt(10, sounding.StatusOther)},
		{name: "missing north", pos: func() sounding.PositionSample {
			p := positionAt(10, sounding.StatusDifferential)
			p.WindNorth = sounding.MissingValue
			return p
		}()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			line, ok := Synchronize(ptuAt(10), tt.pos, epoch)
			if !ok {
				t.Fatal("no line emitted")
			}

			fields := strings.Fields(line)
			if len(fields) != 6 {
				t.Fatalf("got %d fields, want 6: %q", len(fields), line)
			}
			if fields[5] != "5.00" {
				t.Errorf("ascent rate = %q", fields[5])
			}
		})
	}
}

func TestSynchronize_MissingPTUFields(t *testing.T) {
	ptu := ptuAt(10)
	ptu.Pressure = sounding.MissingValue
	ptu.AscentRate = sounding.MissingValue

	pos := positionAt(10, sounding.StatusAutonomous)
	pos.Height = sounding.MissingValue

	line, ok := Synchronize(ptu, pos, epoch)
	if !ok {
		t.Fatal("no line emitted")
	}

	fields := strings.Fields(line)
	if len(fields) != 13 {
		t.Fatalf("got %d fields, want 13: %q", len(fields), line)
	}
	for _, i := range []int{2, 9, 12} {
		if fields[i] != sounding.Placeholder {
			t.Errorf("field %d = %q, want placeholder", i, fields[i])
		}
	}
	if strings.Contains(line, "-32768") {
		t.Errorf("raw sentinel leaked into %q", line)
	}
}

func TestSynchronize_RoundTripsThroughParser(t *testing.T) {
	line, ok := Synchronize(ptuAt(10.4), positionAt(10.2, sounding.StatusAutonomous), epoch)
	if !ok {
		t.Fatal("no line emitted")
	}

	row, err := table.RawSchema{}.Decode(strings.Fields(line))
	if err != nil {
		t.Fatalf("decoding emitted line: %v", err)
	}
	if row.Time != epoch.Unix()+10 {
		t.Errorf("timestamp = %d", row.Time)
	}
	if row.Sample.WindSpeed != 5 || row.Sample.WindDirection != 217 {
		t.Errorf("unexpected wind: %+v", row.Sample)
	}
}

func TestFormatXData(t *testing.T) {
	x := sounding.XDataSample{
		Time:             10.256,
		Offset:           sounding.MissingValue,
		InstrumentType:   60,
		InstrumentNumber: 1,
		ServerTime:       1234.5,
		GPSOffset:        18,
		Payload:          "0103E8FFFF",
	}

	want := "10.26\t////////\t60\t1\t1234.5\t18\t0103E8FFFF"
	if got := FormatXData(x); got != want {
		t.Errorf("got  %q\nwant %q", got, want)
	}

	x.Time = sounding.MissingValue
	x.Payload = ""
	got := strings.Split(FormatXData(x), ColumnSeparator)
	if got[0] != sounding.Placeholder || got[6] != sounding.Placeholder {
		t.Errorf("missing fields not replaced: %q", got)
	}
}

func TestXDataHeader(t *testing.T) {
	h := XDataHeader()
	if len(h) != 2 {
		t.Fatalf("got %d header rows", len(h))
	}
	if h[0] != "    time\toffset\tInstrumentType\tInstrumentNumber\tSrvTime\tGpsOffset\tXData" {
		t.Errorf("columns = %q", h[0])
	}
	if h[1] != "    s\t    s\t/\t/\t    s\t    s\tHz" {
		t.Errorf("units = %q", h[1])
	}
}

func TestMerge(t *testing.T) {
	merged := Merge(ptuAt(10.4), positionAt(10.2, sounding.StatusAutonomous))
	if merged.Time != 10.4 || merged.Pressure != 1013.25 || merged.AscentRate != 5 {
		t.Errorf("PTU fields not kept: %+v", merged)
	}
	if merged.WindDirection != 217 || merged.WindSpeed != 5 || merged.Height != 1234.4 || merged.Latitude != 60.25 {
		t.Errorf("GPS block not merged: %+v", merged)
	}

	merged = Merge(ptuAt(10), positionAt(10, sounding.StatusOther))
	if !sounding.IsMissing(merged.WindSpeed) || !sounding.IsMissing(merged.Longitude) {
		t.Errorf("GPS block merged without a wind solution: %+v", merged)
	}
}

func TestTimestamp(t *testing.T) {
	if got := Timestamp(epoch, 10.9); !got.Equal(epoch.Add(10 * time.Second)) {
		t.Errorf("Timestamp() = %v", got)
	}
}

func TestFormatRecord(t *testing.T) {
	for _, status := range []sounding.WindStatus{sounding.StatusAutonomous, sounding.StatusUnavailable} {
		ptu, pos := ptuAt(10.4), positionAt(10.2, status)

		want, ok := Synchronize(ptu, pos, epoch)
		if !ok {
			t.Fatal("no line emitted")
		}
		if got := FormatRecord(Timestamp(epoch, ptu.Time), Merge(ptu, pos)); got != want {
			t.Errorf("%s: got  %q\nwant %q", status, got, want)
		}
	}
}

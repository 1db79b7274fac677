package sounding

import (
	"testing"
	"time"
)

func TestIsMissing(t *testing.T) {
	if !IsMissing(-32768) {
		t.Error("sentinel not detected")
	}
	if IsMissing(-32767.999) {
		t.Error("near value treated as sentinel")
	}
	if IsMissing(0) {
		t.Error("zero treated as sentinel")
	}
}

func TestParseValue(t *testing.T) {
	tests := []struct {
		token   string
		want    float64
		wantErr bool
	}{
		{token: "1013.25", want: 1013.25},
		{token: " -5.0 ", want: -5},
		{token: "////////", want: MissingValue},
		{token: "-32768.00", want: MissingValue},
		{token: "-32768", want: MissingValue},
		{token: "", want: MissingValue},
		{token: "NaN", want: MissingValue},
		{token: "abc", want: MissingValue, wantErr: true},
	}

	for _, tt := range tests {
		got, err := ParseValue(tt.token)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseValue(%q) error = %v, wantErr %v", tt.token, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseValue(%q) = %v, want %v", tt.token, got, tt.want)
		}
	}
}

func TestFormatValue(t *testing.T) {
	if got := FormatValue(MissingValue, 2); got != Placeholder {
		t.Errorf("got %q, want placeholder", got)
	}
	if got := FormatValue(1013.254, 2); got != "1013.25" {
		t.Errorf("got %q", got)
	}
	if got := FormatShortest(12.5); got != "12.5" {
		t.Errorf("got %q", got)
	}
	if got := FormatShortest(MissingValue); got != Placeholder {
		t.Errorf("got %q, want placeholder", got)
	}
}

func TestValuePointers(t *testing.T) {
	if Value(MissingValue) != nil {
		t.Error("missing value should map to nil")
	}
	if v := Value(3); v == nil || *v != 3 {
		t.Error("value lost")
	}
	if FromPointer(nil) != MissingValue {
		t.Error("nil should map to missing")
	}
}

func TestWindStatus(t *testing.T) {
	for name, want := range map[string]WindStatus{
		"Autonomous":   StatusAutonomous,
		"differential": StatusDifferential,
		"":             StatusUnavailable,
		"Other":        StatusOther,
		"Estimated":    StatusOther,
	} {
		if got := ParseWindStatus(name); got != want {
			t.Errorf("ParseWindStatus(%q) = %v, want %v", name, got, want)
		}
	}

	if !StatusAutonomous.HasWind() || !StatusDifferential.HasWind() {
		t.Error("autonomous and differential must carry wind")
	}
	if StatusOther.HasWind() || StatusUnavailable.HasWind() {
		t.Error("other and unavailable must not carry wind")
	}
}

func TestFlight(t *testing.T) {
	f := Flight{
		StartTime:  time.Date(2021, 11, 23, 10, 15, 0, 0, time.UTC),
		LaunchTime: 95.6,
	}
	if got := f.Stamp(); got != "20211123101500" {
		t.Errorf("Stamp() = %q", got)
	}
	if got := f.ReleaseTime(); !got.Equal(f.StartTime.Add(96 * time.Second)) {
		t.Errorf("ReleaseTime() = %v", got)
	}
}

func TestParseXDataSource(t *testing.T) {
	if s, err := ParseXDataSource(""); err != nil || s != SourceAdditionalSensorData {
		t.Errorf("default source = %q, %v", s, err)
	}
	if _, err := ParseXDataSource("RawPtu"); err == nil {
		t.Error("expected an error for an unknown source")
	}
}

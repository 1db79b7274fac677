package merge

import (
	"testing"

	"github.com/roman-kulish/sounding-telemetry/internal/sounding"
	"github.com/roman-kulish/sounding-telemetry/internal/table"
)

func TestNearestJoin(t *testing.T) {
	ptu := &table.Table[sounding.PtuSample]{Rows: []table.Row[sounding.PtuSample]{
		{Time: 100, Sample: ptuAt(100)},
		{Time: 101, Sample: ptuAt(101)},
		{Time: 110, Sample: ptuAt(110)},
	}}
	xdata := &table.Table[sounding.XDataSample]{Rows: []table.Row[sounding.XDataSample]{
		{Time: 99, Sample: sounding.XDataSample{Payload: "a"}},
		{Time: 102, Sample: sounding.XDataSample{Payload: "b"}},
	}}

	joined := NearestJoin(ptu, xdata, 2)
	if len(joined) != 3 {
		t.Fatalf("got %d rows, want 3", len(joined))
	}

	if joined[0].XData == nil || joined[0].XData.Payload != "a" {
		t.Errorf("row 0 joined to %+v", joined[0].XData)
	}
	if joined[1].XData == nil || joined[1].XData.Payload != "b" {
		t.Errorf("row 1 joined to %+v", joined[1].XData)
	}
	if joined[2].XData != nil {
		t.Errorf("row 2 should have no partner, got %+v", joined[2].XData)
	}
}

func TestNearestJoin_EmptyXData(t *testing.T) {
	ptu := &table.Table[sounding.PtuSample]{Rows: []table.Row[sounding.PtuSample]{{Time: 1, Sample: ptuAt(1)}}}

	joined := NearestJoin(ptu, nil, 5)
	if len(joined) != 1 || joined[0].XData != nil {
		t.Errorf("unexpected join: %+v", joined)
	}
}

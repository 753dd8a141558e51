package tracer

import "testing"

func TestFixedSchedulerSlicesFrame(t *testing.T) {
	sch := NewFixedScheduler(1000)

	batches := sch.Schedule(2500)
	if len(batches) != 3 {
		t.Fatalf("expected 3 batches; got %d", len(batches))
	}

	var covered uint32
	for i, batch := range batches {
		if batch.Offset != covered {
			t.Fatalf("batch %d starts at %d; expected %d", i, batch.Offset, covered)
		}
		if batch.Count == 0 || batch.Count > 1000 {
			t.Fatalf("batch %d has invalid count %d", i, batch.Count)
		}
		covered += batch.Count
	}
	if covered != 2500 {
		t.Fatalf("batches cover %d pixels; expected 2500", covered)
	}
	if batches[2].Count != 500 {
		t.Fatalf("expected the last batch to carry the remainder; got %d", batches[2].Count)
	}
}

func TestFixedSchedulerSmallFrame(t *testing.T) {
	sch := NewFixedScheduler(1 << 16)

	batches := sch.Schedule(64)
	if len(batches) != 1 || batches[0].Count != 64 {
		t.Fatalf("expected a single batch of 64 pixels; got %+v", batches)
	}

	if batches = sch.Schedule(0); batches != nil {
		t.Fatalf("expected no batches for an empty frame; got %+v", batches)
	}
}

func TestSettingsComparable(t *testing.T) {
	a := DefaultSettings()
	b := DefaultSettings()
	if a != b {
		t.Fatal("expected identical settings to compare equal")
	}

	b.Svgf.AtrousIterations++
	if a == b {
		t.Fatal("expected differing svgf settings to compare unequal")
	}
}

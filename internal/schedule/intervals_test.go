package schedule

import (
	"reflect"
	"testing"
)

func TestFreeIntervalsSplitsAroundBusyBlock(t *testing.T) {
	working := []Range{{540, 1020}} // 09:00-17:00
	busy := []Range{{600, 660}}     // 10:00-11:00

	got := FreeIntervals(working, busy)
	want := []Range{{540, 600}, {660, 1020}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("FreeIntervals = %v, want %v", got, want)
	}
}

func TestFreeIntervalsEdges(t *testing.T) {
	tests := []struct {
		name    string
		working []Range
		busy    []Range
		want    []Range
	}{
		{
			name:    "no busy",
			working: []Range{{540, 1020}},
			busy:    nil,
			want:    []Range{{540, 1020}},
		},
		{
			name:    "busy covers whole range",
			working: []Range{{540, 1020}},
			busy:    []Range{{500, 1100}},
			want:    []Range{},
		},
		{
			name:    "busy overlaps start",
			working: []Range{{540, 1020}},
			busy:    []Range{{500, 600}},
			want:    []Range{{600, 1020}},
		},
		{
			name:    "busy overlaps end",
			working: []Range{{540, 1020}},
			busy:    []Range{{1000, 1100}},
			want:    []Range{{540, 1000}},
		},
		{
			name:    "adjacent busy does not eat working time",
			working: []Range{{540, 600}},
			busy:    []Range{{600, 660}},
			want:    []Range{{540, 600}},
		},
		{
			name:    "empty busy range ignored",
			working: []Range{{540, 600}},
			busy:    []Range{{560, 560}, {580, 570}},
			want:    []Range{{540, 600}},
		},
		{
			name:    "unsorted busy handled",
			working: []Range{{0, 100}},
			busy:    []Range{{60, 70}, {10, 20}},
			want:    []Range{{0, 10}, {20, 60}, {70, 100}},
		},
		{
			name:    "multiple working ranges",
			working: []Range{{540, 720}, {780, 1020}},
			busy:    []Range{{700, 800}},
			want:    []Range{{540, 700}, {800, 1020}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FreeIntervals(tt.working, tt.busy)
			if len(got) == 0 && len(tt.want) == 0 {
				return
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("FreeIntervals = %v, want %v", got, tt.want)
			}
		})
	}
}

// No free minute may fall inside a busy range, and every working minute
// outside every busy range must land in exactly one free range.
func TestFreeIntervalsCoversExactly(t *testing.T) {
	working := []Range{{100, 400}, {500, 700}}
	busy := []Range{{150, 200}, {180, 250}, {390, 520}, {690, 900}}

	free := FreeIntervals(working, busy)

	inAny := func(m int, rs []Range) int {
		n := 0
		for _, r := range rs {
			if m >= r.Start && m < r.End {
				n++
			}
		}
		return n
	}

	for m := 0; m < 1000; m++ {
		inWorking := inAny(m, working) > 0
		inBusy := inAny(m, busy) > 0
		inFree := inAny(m, free)

		if inFree > 1 {
			t.Fatalf("minute %d appears in %d free ranges", m, inFree)
		}
		if inBusy && inFree > 0 {
			t.Fatalf("minute %d is busy but reported free", m)
		}
		if inWorking && !inBusy && inFree != 1 {
			t.Fatalf("minute %d is working and not busy but not free", m)
		}
		if !inWorking && inFree > 0 {
			t.Fatalf("minute %d is outside working hours but reported free", m)
		}
	}
}

func TestSlotStarts(t *testing.T) {
	free := []Range{{540, 600}, {660, 1020}}

	got := SlotStarts(free, 30, 15)

	want := []int{540, 555, 570}
	for s := 660; s+30 <= 1020; s += 15 {
		want = append(want, s)
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("SlotStarts = %v, want %v", got, want)
	}
	if got[len(got)-1] != 990 {
		t.Fatalf("last start = %d, want 990", got[len(got)-1])
	}
}

func TestSlotStartsRespectsDuration(t *testing.T) {
	free := []Range{{0, 29}}
	if got := SlotStarts(free, 30, 15); got != nil {
		t.Fatalf("expected no slots in a 29-minute range, got %v", got)
	}
	free = []Range{{0, 30}}
	if got := SlotStarts(free, 30, 15); !reflect.DeepEqual(got, []int{0}) {
		t.Fatalf("expected exactly one slot, got %v", got)
	}
}

func TestSlotStartsStepFloor(t *testing.T) {
	// A zero or negative step still advances.
	got := SlotStarts([]Range{{0, 5}}, 1, 0)
	want := []int{0, 1, 2, 3, 4}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("SlotStarts = %v, want %v", got, want)
	}
}

func TestClip(t *testing.T) {
	tests := []struct {
		in   Range
		want Range
	}{
		{Range{-60, 120}, Range{0, 120}},
		{Range{1400, 1500}, Range{1400, 1440}},
		{Range{-10, -5}, Range{0, 0}},
		{Range{100, 200}, Range{100, 200}},
	}
	for _, tt := range tests {
		if got := Clip(tt.in, 0, 1440); got != tt.want {
			t.Errorf("Clip(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

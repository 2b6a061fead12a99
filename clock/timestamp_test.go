package clock

import (
	"math/rand"
	"testing"
)

func TestTimestampUpdate(t *testing.T) {
	testCases := []struct {
		name  string
		mark  Tick
		ticks []Tick
		want  uint64
	}{
		{"no movement", 100, []Tick{100}, 0},
		{"forward", 100, []Tick{150, 400}, 300},
		{"single wrap", 0xFFFFFF00, []Tick{0x100}, 0x200},
		{"wrap every step", 0, []Tick{0xF0000000, 0x10000000, 0xF0000000, 0x10000000}, 0x210000000},
		{"full span minus one", 5, []Tick{4}, 0xFFFFFFFF},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ts := Timestamp{Mark: tc.mark}
			for _, tick := range tc.ticks {
				ts.Update(tick)
				if ts.Mark != tick {
					t.Fatalf("Mark = %#x after update to %#x", ts.Mark, tick)
				}
			}
			if ts.Time != tc.want {
				t.Errorf("Time = %#x, want %#x", ts.Time, tc.want)
			}
		})
	}
}

func TestTimestampUpdateSumsWrappedDeltas(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	ts := Timestamp{Time: 7, Mark: Tick(rng.Uint32())}
	var want uint64 = 7

	for i := 0; i < 10000; i++ {
		delta := Tick(rng.Uint32())
		next := ts.Mark + delta
		before := ts.Time

		ts.Update(next)
		want += uint64(delta)

		if ts.Time < before {
			t.Fatalf("step %d: time went backwards: %d -> %d", i, before, ts.Time)
		}
	}
	if ts.Time != want {
		t.Errorf("Time = %d, want %d", ts.Time, want)
	}
}

func TestTimestampElapsedSinceIsPure(t *testing.T) {
	ts := Timestamp{Time: 1000, Mark: 0xFFFFFFF0}

	if got := ts.ElapsedSince(0x10); got != 1000+0x20 {
		t.Errorf("ElapsedSince across wrap = %d, want %d", got, 1000+0x20)
	}
	if ts.Time != 1000 || ts.Mark != 0xFFFFFFF0 {
		t.Errorf("ElapsedSince modified the timestamp: %+v", ts)
	}

	a := ts.ElapsedSince(0xFFFFFFF8)
	b := ts.ElapsedSince(0x4)
	if !(a < b) {
		t.Errorf("readings not increasing: %d then %d", a, b)
	}
}

func TestTimestampRebase(t *testing.T) {
	ts := Timestamp{Time: 99, Mark: 3}
	ts.Rebase(12345, 0xABCDEF)
	if ts.Time != 12345 || ts.Mark != 0xABCDEF {
		t.Errorf("Rebase left %+v", ts)
	}
}

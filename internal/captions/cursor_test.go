package captions

import (
	"math/rand/v2"
	"testing"
)

func TestCursorMatchesLookup(t *testing.T) {
	tables := map[string]Table{
		"sequential": {
			{Word: "a", StartFrame: 0, EndFrame: 15},
			{Word: "b", StartFrame: 15, EndFrame: 30},
		},
		"overlap": {
			{Word: "long", StartFrame: 0, EndFrame: 40},
			{Word: "inner", StartFrame: 10, EndFrame: 20},
			{Word: "tail", StartFrame: 35, EndFrame: 50},
		},
		"later entry first": {
			{Word: "late", StartFrame: 30, EndFrame: 40},
			{Word: "early", StartFrame: 0, EndFrame: 35},
		},
		"gaps": {
			{Word: "x", StartFrame: 5, EndFrame: 6},
			{Word: "y", StartFrame: 20, EndFrame: 20},
		},
		"zero fallback": {
			{Word: "a", StartFrame: 0, EndFrame: 24},
			{Word: "b", StartFrame: 0, EndFrame: 0},
		},
		"suppressed": {
			{Word: "gone", StartFrame: 0, EndFrame: 5, Hidden: true},
			{Word: "here", StartFrame: 2, EndFrame: 3},
		},
		"empty": {},
	}
	for name, table := range tables {
		t.Run(name, func(t *testing.T) {
			cursor := NewCursor(table)
			for frame := 0; frame <= 60; frame++ {
				assertSame(t, table, cursor, frame)
			}
		})
	}
}

func TestCursorHandlesBackwardJumps(t *testing.T) {
	table := Table{
		{Word: "a", StartFrame: 0, EndFrame: 9},
		{Word: "b", StartFrame: 10, EndFrame: 19},
		{Word: "c", StartFrame: 25, EndFrame: 30},
	}
	cursor := NewCursor(table)
	for _, frame := range []int{28, 3, 22, 12, 0, 31, 10, 25} {
		assertSame(t, table, cursor, frame)
	}
}

func TestCursorRandomTables(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	for round := 0; round < 50; round++ {
		table := make(Table, rng.IntN(12))
		for i := range table {
			start := rng.IntN(80)
			table[i] = Entry{Word: string(rune('a' + i)), StartFrame: start, EndFrame: start + rng.IntN(20) - 2}
		}
		cursor := NewCursor(table)
		for frame := 0; frame < 110; frame++ {
			assertSame(t, table, cursor, frame)
		}
	}
}

func assertSame(t *testing.T, table Table, cursor *Cursor, frame int) {
	t.Helper()
	want, wantOK := table.Lookup(frame)
	got, gotOK := cursor.At(frame)
	if want != got || wantOK != gotOK {
		t.Fatalf("frame %d: cursor = %+v,%v lookup = %+v,%v", frame, got, gotOK, want, wantOK)
	}
}

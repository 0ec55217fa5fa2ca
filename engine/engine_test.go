package engine

import "testing"

func TestLiteralDatabaseOverlappingMatches(t *testing.T) {
	db, err := CompileLiteralDB([]string{"abc", "bcd"})
	if err != nil {
		t.Fatalf("CompileLiteralDB() error = %v", err)
	}
	var got [][3]int
	db.Scan([]byte("xabcdx"), func(id, start, end int) {
		got = append(got, [3]int{id, start, end})
	})
	want := map[[3]int]bool{{0, 1, 4}: true, {1, 2, 5}: true}
	if len(got) != 2 {
		t.Fatalf("matches = %v, want 2 overlapping matches", got)
	}
	for _, g := range got {
		if !want[g] {
			t.Errorf("unexpected match %v", g)
		}
	}
}

func TestLiteralDatabaseEmpty(t *testing.T) {
	db, err := CompileLiteralDB(nil)
	if err != nil {
		t.Fatalf("CompileLiteralDB() error = %v", err)
	}
	called := false
	db.Scan([]byte("anything"), func(id, start, end int) { called = true })
	if called {
		t.Error("empty database reported a match")
	}
}

func TestLiteralDatabaseRoundTrip(t *testing.T) {
	db, err := CompileLiteralDB([]string{"needle"})
	if err != nil {
		t.Fatalf("CompileLiteralDB() error = %v", err)
	}
	data, err := db.Serialize()
	if err != nil {
		t.Fatalf("Serialize() error = %v", err)
	}
	db2, err := DeserializeLiteralDB(data)
	if err != nil {
		t.Fatalf("DeserializeLiteralDB() error = %v", err)
	}
	var got []int
	db2.Scan([]byte("a needle in a haystack"), func(id, start, end int) { got = append(got, start) })
	if len(got) != 1 || got[0] != 2 {
		t.Errorf("matches after round-trip = %v, want [2]", got)
	}
}

func TestRegexDatabaseDotMatchesNewline(t *testing.T) {
	db, err := CompileRegexDB([]string{"a.b"})
	if err != nil {
		t.Fatalf("CompileRegexDB() error = %v", err)
	}
	var got []int
	db.Scan([]byte("a\nb"), func(id, start, end int) { got = append(got, start) })
	if len(got) != 1 {
		t.Errorf("matches = %v, want a single match (dot-matches-newline)", got)
	}
}

func TestRegexDatabaseRejectsBadPattern(t *testing.T) {
	if _, err := CompileRegexDB([]string{"("}); err == nil {
		t.Fatal("CompileRegexDB() error = nil, want rejection of unbalanced group")
	}
}

func TestMutexDatabaseSingleMatchPerName(t *testing.T) {
	db, err := CompileMutexDB([]string{`^Global\\Foo.*$`})
	if err != nil {
		t.Fatalf("CompileMutexDB() error = %v", err)
	}
	buf := JoinMutexNames([]string{`Global\Foo1`, `Global\Foo2`, `Unrelated`})
	hits := 0
	db.Scan(buf, func(id int) { hits++ })
	if hits != 1 {
		t.Errorf("hits = %d, want 1 (existence only, not per-line count)", hits)
	}
}

func TestJoinMutexNames(t *testing.T) {
	got := string(JoinMutexNames([]string{"a", "b"}))
	if got != "a\nb\n" {
		t.Errorf("JoinMutexNames() = %q, want %q", got, "a\nb\n")
	}
}

// FuzzLiteralDatabaseScan checks that the automaton never reports a match
// that isn't actually present in buf at the reported offsets, across
// arbitrary pattern/buffer pairs.
func FuzzLiteralDatabaseScan(f *testing.F) {
	f.Add("abc", "xxabcyy")
	f.Add("", "anything")
	f.Add("aa", "aaaa")
	f.Fuzz(func(t *testing.T, pattern, buf string) {
		if pattern == "" {
			return
		}
		db, err := CompileLiteralDB([]string{pattern})
		if err != nil {
			t.Fatalf("CompileLiteralDB() error = %v", err)
		}
		data := []byte(buf)
		db.Scan(data, func(id, start, end int) {
			if id != 0 {
				t.Fatalf("id = %d, want 0", id)
			}
			if start < 0 || end > len(data) || start >= end {
				t.Fatalf("invalid match range [%d,%d) in buffer of length %d", start, end, len(data))
			}
			if string(data[start:end]) != pattern {
				t.Fatalf("reported match %q at [%d,%d), want %q", data[start:end], start, end, pattern)
			}
		})
	})
}

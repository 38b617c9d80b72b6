package history

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/armcalc/armcalc/internal/testutil"
)

func testStore(t *testing.T, limit int) *Store {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "history.db"), limit)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestAddAndList(t *testing.T) {
	ctx := context.Background()
	s := testStore(t, 10)

	id, err := s.Add(ctx, 1, "2+2", "4", "calc")
	if err != nil {
		t.Fatal(err)
	}
	if id == 0 {
		t.Fatal("want non-zero entry ID")
	}
	if _, err := s.Add(ctx, 1, "100 usdt amd", "39500", "convert"); err != nil {
		t.Fatal(err)
	}
	// Another user's entry must not leak into user 1's history.
	if _, err := s.Add(ctx, 2, "3*3", "9", "calc"); err != nil {
		t.Fatal(err)
	}

	entries, err := s.List(ctx, 1, 0, "")
	if err != nil {
		t.Fatal(err)
	}
	testutil.AssertEqual(t, len(entries), 2)
	// Newest first.
	testutil.AssertEqual(t, entries[0].Expression, "100 usdt amd")
	testutil.AssertEqual(t, entries[0].Type, "convert")
	testutil.AssertEqual(t, entries[1].Formatted(), "2+2 = 4")

	filtered, err := s.List(ctx, 1, 0, "calc")
	if err != nil {
		t.Fatal(err)
	}
	testutil.AssertEqual(t, len(filtered), 1)
	testutil.AssertEqual(t, filtered[0].Expression, "2+2")
}

func TestPrune(t *testing.T) {
	ctx := context.Background()
	s := testStore(t, 3)

	// Pruning kicks in only past twice the limit.
	for i := 0; i < 7; i++ {
		if _, err := s.Add(ctx, 1, fmt.Sprintf("%d+%d", i, i), fmt.Sprint(2*i), "calc"); err != nil {
			t.Fatal(err)
		}
	}

	entries, err := s.List(ctx, 1, 100, "")
	if err != nil {
		t.Fatal(err)
	}
	testutil.AssertEqual(t, len(entries), 3)
	// The newest entries survive.
	testutil.AssertEqual(t, entries[0].Expression, "6+6")
}

func TestClear(t *testing.T) {
	ctx := context.Background()
	s := testStore(t, 10)

	for i := 0; i < 3; i++ {
		if _, err := s.Add(ctx, 1, fmt.Sprint(i), fmt.Sprint(i), "calc"); err != nil {
			t.Fatal(err)
		}
	}

	n, err := s.Clear(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	testutil.AssertEqual(t, n, int64(3))

	entries, err := s.List(ctx, 1, 0, "")
	if err != nil {
		t.Fatal(err)
	}
	testutil.AssertEqual(t, len(entries), 0)
}

func TestStats(t *testing.T) {
	ctx := context.Background()
	s := testStore(t, 10)

	empty, err := s.Stats(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	testutil.AssertEqual(t, empty.Total, int64(0))

	if _, err := s.Add(ctx, 1, "2+2", "4", "calc"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Add(ctx, 1, "3+3", "6", "calc"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Add(ctx, 1, "btc", "$60000", "price"); err != nil {
		t.Fatal(err)
	}

	st, err := s.Stats(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	testutil.AssertEqual(t, st.Total, int64(3))
	testutil.AssertEqual(t, st.ByType["calc"], int64(2))
	testutil.AssertEqual(t, st.ByType["price"], int64(1))
	if st.FirstUse.IsZero() || st.LastUse.IsZero() {
		t.Fatal("first/last use must be set")
	}
	if st.LastUse.Before(st.FirstUse) {
		t.Fatal("last use before first use")
	}
}

package ranking

import (
	"math/rand"
	"testing"

	"hookstat/src/contracts"
)

func rec(id contracts.EventID, count int64) contracts.Record {
	return contracts.Record{Key: contracts.Key{Analysis: "a", ID: id}, Count: count}
}

func ids(ranked []RankedRecord) []contracts.EventID {
	out := make([]contracts.EventID, len(ranked))
	for i, r := range ranked {
		out[i] = r.Record.Key.ID
	}
	return out
}

func equalIDs(a, b []contracts.EventID) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestRank(t *testing.T) {
	tests := []struct {
		name           string
		records        []contracts.Record
		opts           Options
		want           []contracts.EventID
		wantSuppressed int
		wantTruncated  int
	}{
		{
			name:    "descending count",
			records: []contracts.Record{rec(1, 3), rec(2, 2)},
			want:    []contracts.EventID{1, 2},
		},
		{
			name:           "threshold is strictly greater than",
			records:        []contracts.Record{rec(3, 1), rec(4, 2)},
			opts:           Options{Threshold: 1},
			want:           []contracts.EventID{4},
			wantSuppressed: 1,
		},
		{
			name:          "limit after sort",
			records:       []contracts.Record{rec(1, 5), rec(2, 9)},
			opts:          Options{Limit: 1},
			want:          []contracts.EventID{2},
			wantTruncated: 1,
		},
		{
			name:    "ties broken by key",
			records: []contracts.Record{rec(9, 4), rec(2, 4), rec(5, 4)},
			want:    []contracts.EventID{2, 5, 9},
		},
		{
			name:    "negative limit is unbounded",
			records: []contracts.Record{rec(1, 1), rec(2, 2)},
			opts:    Options{Limit: -1},
			want:    []contracts.EventID{2, 1},
		},
		{
			name:           "threshold before limit",
			records:        []contracts.Record{rec(1, 1), rec(2, 1), rec(3, 7)},
			opts:           Options{Threshold: 1, Limit: 2},
			want:           []contracts.EventID{3},
			wantSuppressed: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Rank(tt.records, tt.opts)
			if !equalIDs(ids(got.Reported), tt.want) {
				t.Errorf("Rank() reported = %v, want %v", ids(got.Reported), tt.want)
			}
			_, suppressed, truncated := got.Counts()
			if suppressed != tt.wantSuppressed || truncated != tt.wantTruncated {
				t.Errorf("Counts() suppressed=%d truncated=%d, want %d/%d", suppressed, truncated, tt.wantSuppressed, tt.wantTruncated)
			}
			for i, r := range got.Reported {
				if r.Rank != i+1 {
					t.Errorf("Reported[%d].Rank = %d, want %d", i, r.Rank, i+1)
				}
			}
		})
	}
}

func TestRankEmpty(t *testing.T) {
	got := Rank(nil, Options{})
	if got.Reported == nil || len(got.Reported) != 0 {
		t.Errorf("Rank(nil).Reported = %#v, want empty non-nil", got.Reported)
	}
}

// TestRankProperty checks threshold, limit and ordering over random inputs.
func TestRankProperty(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for iter := 0; iter < 200; iter++ {
		n := rng.Intn(30)
		records := make([]contracts.Record, n)
		for i := range records {
			records[i] = rec(contracts.EventID(i), rng.Int63n(10))
		}
		opts := Options{Threshold: rng.Int63n(4), Limit: rng.Intn(8) - 2}

		got := Rank(records, opts)

		above := 0
		for _, r := range records {
			if r.Count > opts.Threshold {
				above++
			}
		}
		want := above
		if opts.Limit > 0 && opts.Limit < want {
			want = opts.Limit
		}
		if len(got.Reported) != want {
			t.Fatalf("iter %d: reported %d, want %d", iter, len(got.Reported), want)
		}
		for i, r := range got.Reported {
			if r.Record.Count <= opts.Threshold {
				t.Fatalf("iter %d: reported count %d <= threshold %d", iter, r.Record.Count, opts.Threshold)
			}
			if i > 0 && !Less(got.Reported[i-1].Record, r.Record) {
				t.Fatalf("iter %d: order violated at %d", iter, i)
			}
		}
	}
}

// TestRankDeterministic shuffles input and expects identical output.
func TestRankDeterministic(t *testing.T) {
	base := []contracts.Record{rec(1, 2), rec(2, 2), rec(3, 5), rec(4, 1), rec(5, 2)}
	first := ids(Rank(base, Options{}).Reported)

	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 20; i++ {
		shuffled := make([]contracts.Record, len(base))
		copy(shuffled, base)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		if got := ids(Rank(shuffled, Options{}).Reported); !equalIDs(got, first) {
			t.Fatalf("Rank() = %v, want %v", got, first)
		}
	}
}

func TestSortFindings(t *testing.T) {
	findings := []contracts.Finding{
		{Key: contracts.Key{Analysis: "b", ID: 1}, Count: 2},
		{Key: contracts.Key{Analysis: "a", ID: 1}, Count: 2},
		{Key: contracts.Key{Analysis: "a", ID: 7}, Count: 9},
	}

	sorted := SortFindings(findings)

	wantAnalyses := []string{"a", "a", "b"}
	wantIDs := []contracts.EventID{7, 1, 1}
	for i := range sorted {
		if sorted[i].Key.Analysis != wantAnalyses[i] || sorted[i].Key.ID != wantIDs[i] {
			t.Errorf("sorted[%d] = %v, want %s/%d", i, sorted[i].Key, wantAnalyses[i], wantIDs[i])
		}
		if sorted[i].Rank != i+1 {
			t.Errorf("sorted[%d].Rank = %d, want %d", i, sorted[i].Rank, i+1)
		}
	}
	if findings[0].Rank != 0 {
		t.Error("SortFindings() modified its input")
	}
}

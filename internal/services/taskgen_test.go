package services

import (
	"testing"

	"github.com/google/uuid"
)

func imageIDs(n int) []uuid.UUID {
	ids := make([]uuid.UUID, n)
	for i := range ids {
		ids[i] = uuid.New()
	}
	return ids
}

func TestBuildPairsAdjacent(t *testing.T) {
	ids := imageIDs(5)

	pairs := buildPairs(ids, StrategyAdjacent, 200)
	if len(pairs) != 4 {
		t.Fatalf("pair count: want=4 got=%d", len(pairs))
	}
	for i, pair := range pairs {
		if pair[0] != ids[i] || pair[1] != ids[i+1] {
			t.Fatalf("pair %d: want=(%s,%s) got=(%s,%s)", i, ids[i], ids[i+1], pair[0], pair[1])
		}
	}
}

func TestBuildPairsAllPairs(t *testing.T) {
	ids := imageIDs(5)

	pairs := buildPairs(ids, StrategyAllPairs, 200)
	if len(pairs) != 10 {
		t.Fatalf("pair count: want=10 got=%d", len(pairs))
	}

	seen := map[[2]uuid.UUID]bool{}
	for _, pair := range pairs {
		if pair[0] == pair[1] {
			t.Fatalf("self-pair emitted: %s", pair[0])
		}
		if seen[pair] {
			t.Fatalf("duplicate pair: (%s,%s)", pair[0], pair[1])
		}
		seen[pair] = true
	}
}

func TestBuildPairsHonorsMaxTasks(t *testing.T) {
	ids := imageIDs(20)

	if got := len(buildPairs(ids, StrategyAllPairs, 7)); got != 7 {
		t.Fatalf("all_pairs cap: want=7 got=%d", got)
	}
	if got := len(buildPairs(ids, StrategyAdjacent, 3)); got != 3 {
		t.Fatalf("adjacent cap: want=3 got=%d", got)
	}
}

func TestBuildPairsSmallPools(t *testing.T) {
	if got := len(buildPairs(nil, StrategyAdjacent, 200)); got != 0 {
		t.Fatalf("empty pool: want=0 got=%d", got)
	}
	if got := len(buildPairs(imageIDs(1), StrategyAllPairs, 200)); got != 0 {
		t.Fatalf("single image: want=0 got=%d", got)
	}
}

package roomkey

import (
	"strings"
	"testing"
)

func TestGenerateUsesDistinctLists(t *testing.T) {
	owner := make(map[string]int)
	for i, list := range pools {
		for _, w := range list {
			owner[w] = i
		}
	}

	for range 200 {
		key := Generate()
		words := strings.Split(key, "-")
		if len(words) != DefaultWords {
			t.Fatalf("key=%q has %d words, want %d", key, len(words), DefaultWords)
		}
		seen := make(map[int]bool)
		for _, w := range words {
			list, ok := owner[w]
			if !ok {
				t.Fatalf("word %q from key %q is not in any list", w, key)
			}
			if seen[list] {
				t.Fatalf("key %q reuses word list %d", key, list)
			}
			seen[list] = true
		}
	}
}

func TestGenerateN(t *testing.T) {
	key, err := GenerateN(len(pools))
	if err != nil {
		t.Fatalf("GenerateN: %v", err)
	}
	if got := len(strings.Split(key, "-")); got != len(pools) {
		t.Fatalf("words=%d, want %d", got, len(pools))
	}

	for _, n := range []int{0, len(pools) + 1} {
		if _, err := GenerateN(n); err != ErrTooManyWords {
			t.Fatalf("GenerateN(%d) err=%v, want ErrTooManyWords", n, err)
		}
	}
}

func TestPermutation(t *testing.T) {
	p, err := permutation(6)
	if err != nil {
		t.Fatal(err)
	}
	seen := make(map[int]bool)
	for _, v := range p {
		if v < 0 || v >= 6 || seen[v] {
			t.Fatalf("permutation=%v", p)
		}
		seen[v] = true
	}
}

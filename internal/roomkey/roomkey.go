package roomkey

import (
	"crypto/rand"
	"errors"
	"math/big"
	"strings"
)

// DefaultWords is the number of words in a generated key.
const DefaultWords = 4

// pools holds every word list; a key takes each word from a different pool.
var pools = [][]string{animals, dishes, names, randomWords, adjectives, extras}

// ErrTooManyWords is returned when more words are requested than there are
// word lists.
var ErrTooManyWords = errors.New("roomkey: more words requested than word lists")

// Generate returns a random, memorable room key of DefaultWords words, e.g.
// "kitten-waffle-stardust-happy".
func Generate() string {
	key, err := GenerateN(DefaultWords)
	if err != nil {
		panic(err)
	}
	return key
}

// GenerateN returns a key of n hyphen-joined words, each picked from a
// distinct word list chosen at random.
func GenerateN(n int) (string, error) {
	if n < 1 || n > len(pools) {
		return "", ErrTooManyWords
	}

	order, err := permutation(len(pools))
	if err != nil {
		return "", err
	}

	words := make([]string, n)
	for i := range words {
		list := pools[order[i]]
		idx, err := randomIndex(len(list))
		if err != nil {
			return "", err
		}
		words[i] = list[idx]
	}
	return strings.Join(words, "-"), nil
}

// permutation returns a random ordering of 0..n-1 (Fisher-Yates).
func permutation(n int) ([]int, error) {
	p := make([]int, n)
	for i := range p {
		p[i] = i
	}
	for i := n - 1; i > 0; i-- {
		j, err := randomIndex(i + 1)
		if err != nil {
			return nil, err
		}
		p[i], p[j] = p[j], p[i]
	}
	return p, nil
}

// randomIndex returns a cryptographically secure random index for a slice of given length.
func randomIndex(max int) (int, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(max)))
	if err != nil {
		return 0, err
	}
	return int(n.Int64()), nil
}

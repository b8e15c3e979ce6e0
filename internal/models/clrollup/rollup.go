package clrollup

import (
	"math"
	"sort"
	"time"

	"biostore/internal/models/clerrors"
)

// DayLayout est le format des clés de jour des séries
const DayLayout = "2006-01-02"

type Period string

const (
	Period1d  Period = "1d"
	Period7d  Period = "7d"
	Period30d Period = "30d"
)

// ParsePeriod accepte 1d, 7d ou 30d; vide retourne def
func ParsePeriod(s string, def Period) (Period, error) {
	switch Period(s) {
	case "":
		return def, nil
	case Period1d, Period7d, Period30d:
		return Period(s), nil
	}
	return "", clerrors.Validation("period must be one of 1d, 7d, 30d")
}

func (p Period) Days() int {
	switch p {
	case Period1d:
		return 1
	case Period30d:
		return 30
	default:
		return 7
	}
}

// Start retourne le début de la fenêtre: now moins le nombre de jours
func (p Period) Start(now time.Time) time.Time {
	return now.AddDate(0, 0, -p.Days())
}

// DayKey retourne la date du timestamp, sans conversion de fuseau
func DayKey(t time.Time) string {
	return t.Format(DayLayout)
}

// DayKeys génère la série dense de today-(days-1) à today inclus
func DayKeys(now time.Time, days int) []string {
	keys := make([]string, 0, days)
	for i := days - 1; i >= 0; i-- {
		keys = append(keys, DayKey(now.AddDate(0, 0, -i)))
	}
	return keys
}

// Ranked est une entrée comptée d'un Tally
type Ranked[T any] struct {
	Key   string
	Count int64
	Value T
}

// Tally compte des occurrences par clé en conservant l'ordre de première apparition
type Tally[T any] struct {
	index   map[string]int
	entries []Ranked[T]
}

func NewTally[T any]() *Tally[T] {
	return &Tally[T]{index: make(map[string]int)}
}

// Add incrémente key. first initialise la valeur à la première occurrence,
// update (optionnel) est appliqué à chaque occurrence.
func (t *Tally[T]) Add(key string, first func() T, update func(*T)) {
	i, ok := t.index[key]
	if !ok {
		var v T
		if first != nil {
			v = first()
		}
		t.entries = append(t.entries, Ranked[T]{Key: key, Value: v})
		i = len(t.entries) - 1
		t.index[key] = i
	}
	t.entries[i].Count++
	if update != nil {
		update(&t.entries[i].Value)
	}
}

func (t *Tally[T]) Len() int {
	return len(t.entries)
}

// Top trie par nombre décroissant, les égalités gardent l'ordre de rencontre
func (t *Tally[T]) Top(n int) []Ranked[T] {
	out := make([]Ranked[T], len(t.entries))
	copy(out, t.entries)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Count > out[j].Count
	})
	if n >= 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// Round arrondit à decimals chiffres après la virgule
func Round(v float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(v*p) / p
}

// Ratio retourne num/den*100 arrondi à une décimale, 0 si den est nul
func Ratio(num, den int64) float64 {
	if den == 0 {
		return 0
	}
	return Round(float64(num)/float64(den)*100, 1)
}

package selector

import (
	"math/rand"
	"testing"
)

func marioOptions() Options {
	return Options{
		RegionPriority: []string{"USA", "Europe", "Japan"},
		PreferVerified: true,
		PreferParent:   true,
	}
}

func TestScoreMatchesSpecExample(t *testing.T) {
	c := Candidate{
		Name:       "Super Mario Bros. (USA) [!]",
		Region:     "USA",
		IsVerified: true,
	}
	if got := Score(c, marioOptions()); got != 70 {
		t.Fatalf("Score() = %d, want 70", got)
	}
}

func TestCleanNameStripsTags(t *testing.T) {
	got := CleanName("Super Mario Bros. (USA) [!]")
	if got != "Super Mario Bros." {
		t.Fatalf("CleanName() = %q, want %q", got, "Super Mario Bros.")
	}
}

func TestGroupAndSelectGroupsByCleanNameWithoutParent(t *testing.T) {
	cands := []Candidate{
		{Name: "Super Mario Bros. (USA) [!]", CleanName: "Super Mario Bros.", Region: "USA", IsVerified: true},
		{Name: "Super Mario Bros. (Europe)", CleanName: "Super Mario Bros.", Region: "Europe"},
		{Name: "Super Mario Bros. (Japan)", CleanName: "Super Mario Bros.", Region: "Japan"},
	}
	groups := GroupAndSelect(cands, marioOptions())
	if len(groups) != 1 {
		t.Fatalf("expected 1 group, got %d", len(groups))
	}
	g := groups[0]
	if g.Selected.Region != "USA" {
		t.Fatalf("selected region = %q, want USA", g.Selected.Region)
	}
	if len(g.Alternatives) != 2 {
		t.Fatalf("expected 2 alternatives, got %d", len(g.Alternatives))
	}
}

func TestGroupAndSelectGroupsByParent(t *testing.T) {
	cands := []Candidate{
		{Name: "Game A", Parent: ""},
		{Name: "Game A (Rev 1)", Parent: "Game A", Revision: 1},
	}
	groups := GroupAndSelect(cands, Options{PreferParent: true, PreferLatestRevision: true})
	if len(groups) != 1 {
		t.Fatalf("expected 1 group sharing parent key, got %d", len(groups))
	}
}

func TestExcludeCategoriesRejectsCandidate(t *testing.T) {
	cands := []Candidate{
		{Name: "Good Game", CleanName: "Good Game"},
		{Name: "Good Game (Proto)", CleanName: "Good Game", Categories: []string{"Prototype"}},
	}
	groups := GroupAndSelect(cands, Options{ExcludeCategories: []string{"Prototype"}})
	if len(groups) != 1 {
		t.Fatalf("expected 1 group, got %d", len(groups))
	}
	if groups[0].Selected.Name != "Good Game" {
		t.Fatalf("expected excluded-category candidate to lose, got %q selected", groups[0].Selected.Name)
	}
}

func TestGroupAndSelectIsDeterministicUnderPermutation(t *testing.T) {
	cands := []Candidate{
		{Name: "Game A (USA)", CleanName: "Game A", Region: "USA"},
		{Name: "Game A (Europe)", CleanName: "Game A", Region: "Europe"},
		{Name: "Game A (Japan)", CleanName: "Game A", Region: "Japan"},
		{Name: "Game B (USA)", CleanName: "Game B", Region: "USA"},
		{Name: "Game B (Europe)", CleanName: "Game B", Region: "Europe"},
	}
	o := Options{RegionPriority: []string{"USA", "Europe", "Japan"}}

	baseline := GroupAndSelect(cands, o)

	rng := rand.New(rand.NewSource(1))
	for trial := 0; trial < 20; trial++ {
		shuffled := make([]Candidate, len(cands))
		copy(shuffled, cands)
		rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })

		got := GroupAndSelect(shuffled, o)
		if len(got) != len(baseline) {
			t.Fatalf("trial %d: group count mismatch", trial)
		}
		for i := range baseline {
			if got[i].Key != baseline[i].Key {
				t.Fatalf("trial %d: group order mismatch at %d: %q vs %q", trial, i, got[i].Key, baseline[i].Key)
			}
			if got[i].Selected.Name != baseline[i].Selected.Name {
				t.Fatalf("trial %d: selected mismatch for group %q: %q vs %q", trial, got[i].Key, got[i].Selected.Name, baseline[i].Selected.Name)
			}
		}
	}
}

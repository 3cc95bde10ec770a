package crawler

import (
	"errors"
	"slices"
	"strings"
	"testing"
)

const testOrigin = "https://play.limitlesstcg.com"

const indexPage = `<html><body>
<table class="meta">
  <tr><th>#</th><th></th><th>Deck</th><th>Count</th><th>Share</th><th>Score</th></tr>
  <tr data-share="0.123456" data-winrate="0.51234">
    <td>1</td><td><img src="/x.png"></td>
    <td><a href="/decks/pikachu-ex?game=POCKET"> Pikachu <span>ex</span> </a></td>
    <td>1200</td><td>12.35%</td><td>610-<b>540</b>-50</td>
  </tr>
  <tr data-share="0.05" data-winrate="">
    <td>2</td><td></td>
    <td><a href="/decks/mewtwo-ex?game=POCKET">Mewtwo ex</a></td>
    <td>500</td><td>5%</td><td>40-50-10</td>
  </tr>
</table>
</body></html>`

const resultsPage = `<html><body>
<table class="striped">
  <tr><th>Place</th><th>Player</th><th>Tournament</th><th>Date</th><th>Score</th><th>List</th></tr>
  <tr><td>1st</td><td>Ash</td><td>Weekly</td><td>Mar 1</td><td>5-1-0</td><td><a href="/tournament/1/player/ash/decklist">list</a></td></tr>
  <tr><td>2nd</td><td>Misty</td><td>Weekly</td><td>Mar 1</td><td>4-2-1</td><td><a href="https://play.limitlesstcg.com/tournament/1/player/misty/decklist">list</a></td></tr>
</table>
</body></html>`

const decklistPage = `<html><body>
<div class="cards">
  <p> 2 Pikachu ex </p>
  <p>1 Professor's Research</p>
  <p>2 Poké Ball</p>
</div>
<div class="other"><p>not a card</p></div>
</body></html>`

func newTestParser(t *testing.T) *Parser {
	t.Helper()

	p, err := NewParser(testOrigin)
	if err != nil {
		t.Fatalf("failed to create parser: %v", err)
	}
	return p
}

func TestNewParser(t *testing.T) {
	t.Parallel()

	t.Run("accepts absolute origin", func(t *testing.T) {
		t.Parallel()

		if _, err := NewParser(testOrigin); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("rejects relative origin", func(t *testing.T) {
		t.Parallel()

		if _, err := NewParser("/decks"); err == nil {
			t.Error("expected error for relative origin")
		}
	})
}

func TestParseIndex(t *testing.T) {
	t.Parallel()

	t.Run("extracts decks in row order", func(t *testing.T) {
		t.Parallel()

		decks, err := newTestParser(t).ParseIndex(strings.NewReader(indexPage))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(decks) != 2 {
			t.Fatalf("expected 2 decks, got %d", len(decks))
		}

		d := decks[0]
		if d.Name != "Pikachuex" {
			t.Errorf("expected fragments joined without spaces, got %q", d.Name)
		}
		if d.Share != 0.1235 {
			t.Errorf("expected share 0.1235, got %v", d.Share)
		}
		if d.WinRate != 0.5123 {
			t.Errorf("expected winrate 0.5123, got %v", d.WinRate)
		}
		if d.PlayerCount != 1200 {
			t.Errorf("expected 1200 players, got %d", d.PlayerCount)
		}
		if d.Wins != 610 || d.Losses != 540 || d.Ties != 50 || d.Games != 1200 {
			t.Errorf("unexpected record: %+v", d)
		}
		if d.URL != testOrigin+"/decks/pikachu-ex?game=POCKET" {
			t.Errorf("unexpected url %q", d.URL)
		}
		if d.Finishes == nil {
			t.Error("expected empty finish list")
		}

		if decks[1].Name != "Mewtwo ex" {
			t.Errorf("expected second deck Mewtwo ex, got %q", decks[1].Name)
		}
	})

	t.Run("unparseable win rate defaults to zero", func(t *testing.T) {
		t.Parallel()

		decks, err := newTestParser(t).ParseIndex(strings.NewReader(indexPage))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if decks[1].WinRate != 0 {
			t.Errorf("expected winrate 0, got %v", decks[1].WinRate)
		}
	})

	t.Run("missing win rate attribute defaults to zero", func(t *testing.T) {
		t.Parallel()

		page := strings.Replace(indexPage, ` data-winrate="0.51234"`, "", 1)
		decks, err := newTestParser(t).ParseIndex(strings.NewReader(page))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if decks[0].WinRate != 0 {
			t.Errorf("expected winrate 0, got %v", decks[0].WinRate)
		}
	})

	t.Run("fails the page on bad fields", func(t *testing.T) {
		t.Parallel()

		tests := []struct {
			name  string
			old   string
			new   string
			field string
		}{
			{"missing share", `data-share="0.05" `, "", "data-share"},
			{"bad share", `data-share="0.05"`, `data-share="abc"`, "data-share"},
			{"nan share", `data-share="0.05"`, `data-share="NaN"`, "data-share"},
			{"bad player count", `<td>500</td>`, `<td>five hundred</td>`, "player count"},
			{"bad record", `40-50-10`, `40-50`, "record"},
			{"missing link", `<a href="/decks/mewtwo-ex?game=POCKET">Mewtwo ex</a>`, `Mewtwo ex`, "deck link"},
			{"missing cells", `<td>5%</td><td>40-50-10</td>`, ``, "td[5]"},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				t.Parallel()

				page := strings.Replace(indexPage, tt.old, tt.new, 1)
				_, err := newTestParser(t).ParseIndex(strings.NewReader(page))

				var ee *ExtractionError
				if !errors.As(err, &ee) {
					t.Fatalf("expected ExtractionError, got %v", err)
				}
				if ee.Page != PageIndex || ee.Row != 2 || ee.Field != tt.field {
					t.Errorf("unexpected error details: %+v", ee)
				}
			})
		}
	})

	t.Run("header-only table yields no decks", func(t *testing.T) {
		t.Parallel()

		page := `<table class="meta"><tr><th>Deck</th></tr></table>`
		decks, err := newTestParser(t).ParseIndex(strings.NewReader(page))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(decks) != 0 {
			t.Errorf("expected no decks, got %d", len(decks))
		}
	})
}

func TestParseResults(t *testing.T) {
	t.Parallel()

	t.Run("extracts finishes", func(t *testing.T) {
		t.Parallel()

		finishes, err := newTestParser(t).ParseResults(strings.NewReader(resultsPage))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(finishes) != 2 {
			t.Fatalf("expected 2 finishes, got %d", len(finishes))
		}

		f := finishes[0]
		if f.Wins != 5 || f.Losses != 1 || f.Ties != 0 {
			t.Errorf("unexpected record: %+v", f.Record)
		}
		if f.URL != testOrigin+"/tournament/1/player/ash/decklist" {
			t.Errorf("unexpected url %q", f.URL)
		}
		if f.Resolved || f.Cards != nil {
			t.Error("expected finish without cards")
		}
		if finishes[1].URL != testOrigin+"/tournament/1/player/misty/decklist" {
			t.Errorf("expected absolute link kept, got %q", finishes[1].URL)
		}
	})

	t.Run("bad record fails the page", func(t *testing.T) {
		t.Parallel()

		page := strings.Replace(resultsPage, "4-2-1", "4-x-1", 1)
		_, err := newTestParser(t).ParseResults(strings.NewReader(page))

		var ee *ExtractionError
		if !errors.As(err, &ee) {
			t.Fatalf("expected ExtractionError, got %v", err)
		}
		if ee.Page != PageResults || ee.Row != 2 || !errors.Is(err, ErrMalformedRecord) {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("missing decklist link fails the page", func(t *testing.T) {
		t.Parallel()

		page := strings.Replace(resultsPage, `<a href="/tournament/1/player/ash/decklist">list</a>`, "", 1)
		_, err := newTestParser(t).ParseResults(strings.NewReader(page))
		if !errors.Is(err, ErrMissingLink) {
			t.Errorf("expected ErrMissingLink, got %v", err)
		}
	})
}

func TestParseDecklist(t *testing.T) {
	t.Parallel()

	t.Run("returns cards in descending order", func(t *testing.T) {
		t.Parallel()

		cards, err := newTestParser(t).ParseDecklist(strings.NewReader(decklistPage))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		want := []string{"2 Poké Ball", "2 Pikachu ex", "1 Professor's Research"}
		if !slices.Equal(cards, want) {
			t.Errorf("got %q, want %q", cards, want)
		}
	})

	t.Run("on-page order does not matter", func(t *testing.T) {
		t.Parallel()

		a := `<div class="cards"><p>B</p><p>A</p><p>A</p></div>`
		b := `<div class="cards"><p>A</p><p>B</p><p>A</p></div>`

		p := newTestParser(t)
		ca, _ := p.ParseDecklist(strings.NewReader(a))
		cb, _ := p.ParseDecklist(strings.NewReader(b))
		if !slices.Equal(ca, cb) {
			t.Errorf("expected equal lists, got %q and %q", ca, cb)
		}
	})

	t.Run("decomposed accents are normalized", func(t *testing.T) {
		t.Parallel()

		page := "<div class=\"cards\"><p>Poke\u0301 Ball</p></div>"
		cards, _ := newTestParser(t).ParseDecklist(strings.NewReader(page))
		if len(cards) != 1 || cards[0] != "Pok\u00e9 Ball" {
			t.Errorf("expected NFC label, got %q", cards)
		}
	})

	t.Run("page without cards yields empty list", func(t *testing.T) {
		t.Parallel()

		cards, err := newTestParser(t).ParseDecklist(strings.NewReader("<html></html>"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cards == nil || len(cards) != 0 {
			t.Errorf("expected empty non-nil list, got %#v", cards)
		}
	})
}

func TestParseRecord(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		wantErr bool
		games   int
	}{
		{"5-2-1", false, 8},
		{"0-0-0", false, 0},
		{"10 - 3 - 0", false, 13},
		{"5-2", true, 0},
		{"5-2-1-0", true, 0},
		{"a-b-c", true, 0},
		{"", true, 0},
	}

	for _, tt := range tests {
		r, err := parseRecord(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseRecord(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && r.Games() != tt.games {
			t.Errorf("parseRecord(%q) games = %d, want %d", tt.in, r.Games(), tt.games)
		}
	}
}

func TestParseFloatOrDefault(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want float64
	}{
		{"0.5", 0.5},
		{" 0.25 ", 0.25},
		{"", 0},
		{"n/a", 0},
		{"Inf", 0},
	}

	for _, tt := range tests {
		if got := parseFloatOrDefault(tt.in, 0); got != tt.want {
			t.Errorf("parseFloatOrDefault(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

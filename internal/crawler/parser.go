package crawler

import (
	"fmt"
	"io"
	"math"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/nao1215/metacrawl/internal/model"
	"golang.org/x/net/html"
	"golang.org/x/text/unicode/norm"
)

// Selectors for the three page kinds.
const (
	indexRowSelector   = "table.meta tr"
	resultsRowSelector = "table.striped tr"
	cardSelector       = ".cards p"
)

// Cell positions within a data row.
const (
	indexNameCell    = 2
	indexPlayersCell = 3
	indexRecordCell  = 5

	resultsRecordCell = 4
	resultsLinkCell   = 5
)

// Parser extracts records from the site's pages. It does no I/O of its
// own: callers hand it page bodies that were already fetched.
type Parser struct {
	// origin is the site root that relative links are resolved against.
	origin *url.URL
}

// NewParser creates a Parser resolving links against origin.
func NewParser(origin string) (*Parser, error) {
	u, err := url.Parse(origin)
	if err != nil {
		return nil, err
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("origin %q is not an absolute URL", origin)
	}
	return &Parser{origin: u}, nil
}

// ParseIndex reads one deck per data row of the metagame table, in page
// order. A row with a missing or malformed field fails the whole page,
// except for the win rate attribute, which defaults to 0.
func (p *Parser) ParseIndex(content io.Reader) ([]model.Deck, error) {
	doc, err := parseDocument(content)
	if err != nil {
		return nil, err
	}

	decks := make([]model.Deck, 0)
	var rowErr error
	dataRows(doc, indexRowSelector).EachWithBreak(func(i int, row *goquery.Selection) bool {
		deck, err := p.parseIndexRow(i+1, row)
		if err != nil {
			rowErr = err
			return false
		}
		decks = append(decks, deck)
		return true
	})
	if rowErr != nil {
		return nil, rowErr
	}

	return decks, nil
}

func (p *Parser) parseIndexRow(rowNum int, row *goquery.Selection) (model.Deck, error) {
	fail := func(field string, err error) (model.Deck, error) {
		return model.Deck{}, &ExtractionError{Page: PageIndex, Row: rowNum, Field: field, Err: err}
	}

	rawShare, ok := row.Attr("data-share")
	if !ok {
		return fail("data-share", ErrMissingAttribute)
	}
	share, err := parseFloat(rawShare)
	if err != nil {
		return fail("data-share", err)
	}

	rawWinRate, _ := row.Attr("data-winrate")
	winRate := parseFloatOrDefault(rawWinRate, 0)

	cells := row.Find("td")
	if cells.Length() <= indexRecordCell {
		return fail(fmt.Sprintf("td[%d]", indexRecordCell), ErrMissingCell)
	}

	nameCell := cells.Eq(indexNameCell)
	deckURL, err := p.linkTarget(nameCell)
	if err != nil {
		return fail("deck link", err)
	}

	players, err := strconv.Atoi(cellText(cells.Eq(indexPlayersCell)))
	if err != nil {
		return fail("player count", err)
	}
	if players < 0 {
		return fail("player count", fmt.Errorf("negative player count %d", players))
	}

	record, err := parseRecord(cellText(cells.Eq(indexRecordCell)))
	if err != nil {
		return fail("record", err)
	}

	deck := model.Deck{
		Name:        norm.NFC.String(cellText(nameCell)),
		Share:       model.Round4(share),
		PlayerCount: players,
		WinRate:     model.Round4(winRate),
		URL:         deckURL,
		Finishes:    make([]model.Finish, 0),
	}
	deck.SetRecord(record)

	return deck, nil
}

// ParseResults reads one finish per data row of a deck's results table.
// Cards are not known yet; they come from the decklist page.
func (p *Parser) ParseResults(content io.Reader) ([]model.Finish, error) {
	doc, err := parseDocument(content)
	if err != nil {
		return nil, err
	}

	finishes := make([]model.Finish, 0)
	var rowErr error
	dataRows(doc, resultsRowSelector).EachWithBreak(func(i int, row *goquery.Selection) bool {
		fail := func(field string, err error) bool {
			rowErr = &ExtractionError{Page: PageResults, Row: i + 1, Field: field, Err: err}
			return false
		}

		cells := row.Find("td")
		if cells.Length() <= resultsLinkCell {
			return fail(fmt.Sprintf("td[%d]", resultsLinkCell), ErrMissingCell)
		}

		record, err := parseRecord(cellText(cells.Eq(resultsRecordCell)))
		if err != nil {
			return fail("record", err)
		}

		decklistURL, err := p.linkTarget(cells.Eq(resultsLinkCell))
		if err != nil {
			return fail("decklist link", err)
		}

		finishes = append(finishes, model.Finish{Record: record, URL: decklistURL})
		return true
	})
	if rowErr != nil {
		return nil, rowErr
	}

	return finishes, nil
}

// ParseDecklist returns the card labels of a decklist page in descending
// lexical order. A page without card entries yields an empty list.
func (p *Parser) ParseDecklist(content io.Reader) ([]string, error) {
	doc, err := parseDocument(content)
	if err != nil {
		return nil, err
	}

	cards := make([]string, 0)
	doc.Find(cardSelector).Each(func(_ int, s *goquery.Selection) {
		cards = append(cards, norm.NFC.String(cellText(s)))
	})

	return model.SortCards(cards), nil
}

// parseDocument parses content with the standard HTML5 tree builder.
func parseDocument(content io.Reader) (*goquery.Document, error) {
	root, err := html.Parse(content)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return goquery.NewDocumentFromNode(root), nil
}

// dataRows returns the rows matched by selector, minus the header row.
func dataRows(doc *goquery.Document, selector string) *goquery.Selection {
	rows := doc.Find(selector)
	if rows.Length() < 2 {
		return rows.Slice(0, 0)
	}
	return rows.Slice(1, goquery.ToEnd)
}

// linkTarget resolves the href of the first anchor inside s.
func (p *Parser) linkTarget(s *goquery.Selection) (string, error) {
	href, ok := s.Find("a").First().Attr("href")
	if !ok || strings.TrimSpace(href) == "" {
		return "", ErrMissingLink
	}

	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return "", err
	}
	return p.origin.ResolveReference(ref).String(), nil
}

// cellText trims every text fragment under s and joins them with
// nothing in between, so "<b> 5 </b>-<b>2</b>" reads as "5-2".
func cellText(s *goquery.Selection) string {
	var b strings.Builder

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(strings.TrimSpace(n.Data))
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	for _, n := range s.Nodes {
		walk(n)
	}

	return b.String()
}

// parseRecord parses a "wins-losses-ties" string.
func parseRecord(text string) (model.Record, error) {
	parts := strings.Split(text, "-")
	if len(parts) != 3 {
		return model.Record{}, fmt.Errorf("%w: %q", ErrMalformedRecord, text)
	}

	var counts [3]int
	for i, part := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return model.Record{}, fmt.Errorf("%w: %q", ErrMalformedRecord, text)
		}
		counts[i] = n
	}

	return model.Record{Wins: counts[0], Losses: counts[1], Ties: counts[2]}, nil
}

// parseFloatOrDefault parses s as a float and returns def when that
// fails. Only the index win rate is read this way; every other numeric
// field fails its row.
func parseFloatOrDefault(s string, def float64) float64 {
	v, err := parseFloat(s)
	if err != nil {
		return def
	}
	return v
}

// parseFloat parses a finite float.
func parseFloat(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%q is not a finite number", s)
	}
	return v, nil
}

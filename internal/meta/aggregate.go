package meta

import "github.com/nao1215/metacrawl/internal/model"

// Aggregate groups finishes by card list and returns one decklist per
// distinct list, in the order each list was first seen.
//
// Finishes whose decklist page was never fetched are skipped. Counters
// of each decklist are exact sums over its finishes. WinRate is only
// computed when the decklist has at least one game.
func Aggregate(finishes []model.Finish) []model.Decklist {
	decklists := make([]model.Decklist, 0)
	index := make(map[string]int)

	for _, f := range finishes {
		if !f.Resolved {
			continue
		}

		cards := model.SortCards(f.Cards)
		fp := Fingerprint(cards)

		i, ok := index[fp]
		if !ok {
			i = len(decklists)
			index[fp] = i
			decklists = append(decklists, model.Decklist{
				Cards:       cards,
				Fingerprint: fp,
			})
		}
		decklists[i].Add(f.Record)
	}

	for i := range decklists {
		if decklists[i].Games > 0 {
			decklists[i].WinRate = model.Round4(float64(decklists[i].Wins) / float64(decklists[i].Games))
		}
	}

	return decklists
}

package meta

import (
	"encoding/hex"

	"github.com/nao1215/metacrawl/internal/model"
	"golang.org/x/crypto/blake2b"
)

// cardTerminator cannot occur inside a parsed card label. It follows
// every card, so an empty label still contributes a byte.
var cardTerminator = []byte{0}

// Fingerprint returns the exact-match identity of a card list.
// Cards are sorted in descending order first, so the result does not
// depend on the order the cards were listed in.
func Fingerprint(cards []string) string {
	h, err := blake2b.New256(nil)
	if err != nil {
		// New256 only fails for keys longer than 64 bytes.
		panic(err)
	}
	for _, card := range model.SortCards(cards) {
		h.Write([]byte(card))
		h.Write(cardTerminator)
	}
	return hex.EncodeToString(h.Sum(nil))
}

package board

import (
	"context"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/matlycreative/seo-prospects/internal/card"
	"github.com/matlycreative/seo-prospects/pkg/trello"
)

// TrelloBoard targets one list; new blanks are cloned from a template card
// so they inherit the list's labels and checklists.
type TrelloBoard struct {
	client     *trello.Client
	listID     string
	templateID string
	now        func() time.Time
}

// NewTrelloBoard creates a board over one Trello list. templateID may be
// empty, in which case EnsureBlanks cannot create records.
func NewTrelloBoard(client *trello.Client, listID, templateID string) *TrelloBoard {
	return &TrelloBoard{client: client, listID: listID, templateID: templateID, now: time.Now}
}

func (b *TrelloBoard) BlankRecords(ctx context.Context, limit int) ([]Record, error) {
	cards, err := b.client.ListCards(ctx, b.listID)
	if err != nil {
		return nil, eris.Wrap(err, "board: list cards")
	}
	var out []Record
	for _, c := range cards {
		if !card.IsBlank(c.Desc) {
			continue
		}
		out = append(out, Record{ID: c.ID, Title: c.Name, Text: c.Desc})
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (b *TrelloBoard) EnsureBlanks(ctx context.Context, need int) error {
	if need <= 0 {
		return nil
	}
	if b.templateID == "" {
		return eris.New("board: no template card configured")
	}
	blanks, err := b.BlankRecords(ctx, need)
	if err != nil {
		return err
	}
	missing := need - len(blanks)
	for i := 0; i < missing; i++ {
		name := fmt.Sprintf("Lead (auto) %d-%d", b.now().Unix()%100000, i+1)
		id, err := b.client.CloneCard(ctx, b.templateID, b.listID, name)
		if err != nil {
			return eris.Wrap(err, "board: clone template card")
		}
		zap.L().Debug("cloned blank record", zap.String("card_id", id))
	}
	return nil
}

func (b *TrelloBoard) Update(ctx context.Context, id string, upd Update) error {
	return b.client.UpdateCard(ctx, id, trello.CardUpdate{Name: upd.Title, Desc: upd.Text})
}

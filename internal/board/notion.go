package board

import (
	"context"
	"fmt"
	"time"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"

	"github.com/matlycreative/seo-prospects/internal/card"
	"github.com/matlycreative/seo-prospects/pkg/notion"
)

// Notion property names the board uses. The title property carries the
// record title; the record property holds the merge-managed text document.
const (
	notionTitleProp  = "Name"
	notionRecordProp = "Record"
)

// NotionBoard stores records as pages of one database, with the record text
// in a rich_text property.
type NotionBoard struct {
	client notion.Client
	dbID   string
	now    func() time.Time
}

// NewNotionBoard creates a board over one Notion database.
func NewNotionBoard(client notion.Client, dbID string) *NotionBoard {
	return &NotionBoard{client: client, dbID: dbID, now: time.Now}
}

func pageRecord(p notionapi.Page) Record {
	return Record{
		ID:    string(p.ID),
		Title: notion.PlainText(p.Properties[notionTitleProp]),
		Text:  notion.PlainText(p.Properties[notionRecordProp]),
	}
}

func (b *NotionBoard) BlankRecords(ctx context.Context, limit int) ([]Record, error) {
	pages, err := notion.QueryAll(ctx, b.client, b.dbID, nil)
	if err != nil {
		return nil, eris.Wrap(err, "board: query records")
	}
	var out []Record
	for _, p := range pages {
		rec := pageRecord(p)
		if !card.IsBlank(rec.Text) {
			continue
		}
		out = append(out, rec)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (b *NotionBoard) EnsureBlanks(ctx context.Context, need int) error {
	if need <= 0 {
		return nil
	}
	blanks, err := b.BlankRecords(ctx, need)
	if err != nil {
		return err
	}
	missing := need - len(blanks)
	for i := 0; i < missing; i++ {
		name := fmt.Sprintf("Lead (auto) %d-%d", b.now().Unix()%100000, i+1)
		req := &notionapi.PageCreateRequest{
			Parent: notionapi.Parent{
				Type:       notionapi.ParentTypeDatabaseID,
				DatabaseID: notionapi.DatabaseID(b.dbID),
			},
			Properties: notionapi.Properties{
				notionTitleProp:  notion.Title(name),
				notionRecordProp: notion.RichText(""),
			},
		}
		if _, err := b.client.CreatePage(ctx, req); err != nil {
			return eris.Wrap(err, "board: create blank record")
		}
	}
	return nil
}

func (b *NotionBoard) Update(ctx context.Context, id string, upd Update) error {
	props := notionapi.Properties{}
	if upd.Title != nil {
		props[notionTitleProp] = notion.Title(*upd.Title)
	}
	if upd.Text != nil {
		props[notionRecordProp] = notion.RichText(*upd.Text)
	}
	if len(props) == 0 {
		return nil
	}
	req := &notionapi.PageUpdateRequest{Properties: props}
	if _, err := b.client.UpdatePage(ctx, id, req); err != nil {
		return eris.Wrap(err, "board: update record")
	}
	return nil
}

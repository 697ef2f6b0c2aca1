package notionsync

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jomei/notionapi"

	"github.com/dvloznov/ledgerbook/internal/domain"
)

// syncKeyProperty is the rich-text column that carries the deterministic row
// key. The sync uses it to tell current pages from stale ones.
const syncKeyProperty = "Sync Key"

// SyncKey derives a stable key for a ledger row from its position and
// content. Worksheet rows have no IDs of their own, so any edit to a row
// changes its key and the sync replaces the page instead of updating it.
func SyncKey(i int, tx domain.Transaction) string {
	key := fmt.Sprintf("ledgerbook://notionsync/%d|%s|%s|%s|%s|%s|%s",
		i, tx.Date, tx.Description, tx.Category, tx.Amount.String(), tx.Type, tx.Balance.String())
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(key)).String()
}

// TransactionProperties converts a ledger transaction to Notion properties
// for the transactions database: Description (title), Date, Category, Type,
// Amount, Balance and the sync key.
func TransactionProperties(tx domain.Transaction, key string) notionapi.Properties {
	props := notionapi.Properties{
		"Description": notionapi.TitleProperty{
			Title: []notionapi.RichText{
				{
					Type: notionapi.ObjectTypeText,
					Text: &notionapi.Text{
						Content: tx.Description,
					},
				},
			},
		},
		"Amount": notionapi.NumberProperty{
			Number: tx.Amount.InexactFloat64(),
		},
		"Balance": notionapi.NumberProperty{
			Number: tx.Balance.InexactFloat64(),
		},
		syncKeyProperty: notionapi.RichTextProperty{
			RichText: []notionapi.RichText{
				{
					Type: notionapi.ObjectTypeText,
					Text: &notionapi.Text{
						Content: key,
					},
				},
			},
		},
	}

	// The date column is omitted for rows whose date does not parse; the
	// page still syncs so nothing silently disappears from Notion.
	if day, err := tx.Day(); err == nil {
		props["Date"] = notionapi.DateProperty{
			Date: &notionapi.DateObject{
				Start: func() *notionapi.Date {
					d := notionapi.Date(time.Date(
						day.Year(), day.Month(), day.Day(),
						0, 0, 0, 0, time.UTC,
					))
					return &d
				}(),
			},
		}
	}

	if tx.Category != "" {
		props["Category"] = notionapi.SelectProperty{
			Select: notionapi.Option{
				Name: tx.Category,
			},
		}
	}

	if tx.Type != "" {
		props["Type"] = notionapi.SelectProperty{
			Select: notionapi.Option{
				Name: string(tx.Type),
			},
		}
	}

	return props
}

// pageSyncKey extracts the sync key from a Notion page's properties.
// Returns empty string if not found.
func pageSyncKey(page notionapi.Page) string {
	if prop, ok := page.Properties[syncKeyProperty]; ok {
		if richText, ok := prop.(*notionapi.RichTextProperty); ok {
			if len(richText.RichText) > 0 {
				return richText.RichText[0].PlainText
			}
		}
	}
	return ""
}

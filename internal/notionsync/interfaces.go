package notionsync

import (
	"context"

	"github.com/jomei/notionapi"
)

// NotionService is the subset of the Notion API the sync needs: one page of
// a database query, page creation, and archival. It exists so tests can run
// against a fake instead of the live workspace.
type NotionService interface {
	CreatePage(ctx context.Context, databaseID string, properties notionapi.Properties) (*notionapi.Page, error)
	QueryDatabase(ctx context.Context, databaseID string, query *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error)
	DeletePage(ctx context.Context, pageID string) error
}

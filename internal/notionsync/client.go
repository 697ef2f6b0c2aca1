package notionsync

import (
	"context"
	"fmt"

	"github.com/jomei/notionapi"
)

// Client implements NotionService over the official Notion SDK.
type Client struct {
	api *notionapi.Client
}

// NewClient creates a Client authenticated with the given integration token.
func NewClient(token string) *Client {
	return &Client{api: notionapi.NewClient(notionapi.Token(token))}
}

// CreatePage adds a page carrying the given properties to a database.
func (c *Client) CreatePage(ctx context.Context, databaseID string, properties notionapi.Properties) (*notionapi.Page, error) {
	page, err := c.api.Page.Create(ctx, &notionapi.PageCreateRequest{
		Parent: notionapi.Parent{
			Type:       notionapi.ParentTypeDatabaseID,
			DatabaseID: notionapi.DatabaseID(databaseID),
		},
		Properties: properties,
	})
	if err != nil {
		return nil, fmt.Errorf("creating notion page: %w", err)
	}
	return page, nil
}

// QueryDatabase runs one page of a database query; callers follow
// NextCursor for the rest.
func (c *Client) QueryDatabase(ctx context.Context, databaseID string, query *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error) {
	resp, err := c.api.Database.Query(ctx, notionapi.DatabaseID(databaseID), query)
	if err != nil {
		return nil, fmt.Errorf("querying notion database: %w", err)
	}
	return resp, nil
}

// DeletePage archives a page. The Notion API has no hard delete; archiving
// removes the page from the database view.
func (c *Client) DeletePage(ctx context.Context, pageID string) error {
	req := &notionapi.PageUpdateRequest{Archived: true}
	if _, err := c.api.Page.Update(ctx, notionapi.PageID(pageID), req); err != nil {
		return fmt.Errorf("archiving notion page: %w", err)
	}
	return nil
}

var _ NotionService = (*Client)(nil)

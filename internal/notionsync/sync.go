package notionsync

import (
	"context"
	"fmt"

	"github.com/jomei/notionapi"

	"github.com/dvloznov/ledgerbook/internal/domain"
	"github.com/dvloznov/ledgerbook/internal/logger"
)

const (
	// BatchSize defines the number of transactions to process in a single batch
	BatchSize = 100

	// queryPageSize is the Notion API page size for reading existing pages.
	queryPageSize = 100
)

// Result summarizes a sync run.
type Result struct {
	Created int `json:"created"`
	Deleted int `json:"deleted"`
	Skipped int `json:"skipped"`
	Total   int `json:"total"`
}

// SyncTransactions mirrors the ledger into a Notion database. Pages whose
// sync key no longer matches any ledger row are archived, missing rows get
// new pages, and unchanged rows are skipped. With dryRun set the plan is
// logged but nothing is written.
func SyncTransactions(ctx context.Context, notionClient NotionService, databaseID string, txs []domain.Transaction, dryRun bool) (Result, error) {
	log := logger.FromContext(ctx)
	var res Result
	res.Total = len(txs)

	log.Info().
		Int("transactions", len(txs)).
		Bool("dry_run", dryRun).
		Msg("starting transaction sync to notion")

	keys := make([]string, len(txs))
	validKeys := make(map[string]bool, len(txs))
	for i, tx := range txs {
		keys[i] = SyncKey(i, tx)
		validKeys[keys[i]] = true
	}

	notionPages, err := queryAllNotionPages(ctx, notionClient, databaseID)
	if err != nil {
		return res, fmt.Errorf("failed to query notion pages: %w", err)
	}
	log.Info().Int("notion_pages", len(notionPages)).Msg("retrieved existing notion pages")

	existingKeys := make(map[string]bool, len(notionPages))
	for _, page := range notionPages {
		if key := pageSyncKey(page); key != "" {
			existingKeys[key] = true
		}
	}

	// Pages without a key come from manual edits or an old sync format and
	// are treated as stale.
	for _, page := range notionPages {
		key := pageSyncKey(page)
		if key != "" && validKeys[key] {
			continue
		}

		if dryRun {
			log.Info().
				Str("sync_key", key).
				Str("page_id", string(page.ID)).
				Msg("[DRY RUN] would delete stale notion page")
			res.Deleted++
			continue
		}
		if err := notionClient.DeletePage(ctx, string(page.ID)); err != nil {
			log.Warn().
				Err(err).
				Str("sync_key", key).
				Str("page_id", string(page.ID)).
				Msg("failed to delete stale notion page")
			continue
		}
		log.Info().
			Str("sync_key", key).
			Str("page_id", string(page.ID)).
			Msg("deleted stale notion page")
		res.Deleted++
	}

	for start := 0; start < len(txs); start += BatchSize {
		end := start + BatchSize
		if end > len(txs) {
			end = len(txs)
		}
		log.Debug().
			Int("batch_start", start).
			Int("batch_end", end).
			Msg("processing batch")

		for i := start; i < end; i++ {
			tx := txs[i]
			key := keys[i]

			if existingKeys[key] {
				res.Skipped++
				continue
			}

			if dryRun {
				log.Info().
					Str("sync_key", key).
					Str("description", tx.Description).
					Msg("[DRY RUN] would create notion page")
				res.Created++
				continue
			}

			props := TransactionProperties(tx, key)
			page, err := notionClient.CreatePage(ctx, databaseID, props)
			if err != nil {
				log.Warn().
					Err(err).
					Str("sync_key", key).
					Str("description", tx.Description).
					Msg("failed to create notion page")
				continue
			}
			log.Info().
				Str("sync_key", key).
				Str("page_id", string(page.ID)).
				Msg("created notion page")
			res.Created++
		}
	}

	log.Info().
		Int("created", res.Created).
		Int("deleted", res.Deleted).
		Int("skipped", res.Skipped).
		Int("total", res.Total).
		Msg("transaction sync completed")

	return res, nil
}

// queryAllNotionPages reads every page of the database, following the
// pagination cursor.
func queryAllNotionPages(ctx context.Context, notionClient NotionService, databaseID string) ([]notionapi.Page, error) {
	var allPages []notionapi.Page
	var cursor notionapi.Cursor

	for {
		req := &notionapi.DatabaseQueryRequest{
			PageSize: queryPageSize,
		}
		if cursor != "" {
			req.StartCursor = cursor
		}

		resp, err := notionClient.QueryDatabase(ctx, databaseID, req)
		if err != nil {
			return nil, fmt.Errorf("queryAllNotionPages: %w", err)
		}

		allPages = append(allPages, resp.Results...)

		if !resp.HasMore {
			break
		}
		cursor = resp.NextCursor
	}

	return allPages, nil
}

package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/user/crawl-pilot/internal/entity"
	"github.com/user/crawl-pilot/internal/repository"
)

// SessionArchiveRepoImpl stores frontier snapshots in PostgreSQL.
type SessionArchiveRepoImpl struct {
	db *pgxpool.Pool
}

func NewSessionArchiveRepo(db *pgxpool.Pool) *SessionArchiveRepoImpl {
	return &SessionArchiveRepoImpl{db: db}
}

var _ repository.FrontierArchiveRepository = (*SessionArchiveRepoImpl)(nil)

// Save replaces the archive with the given id in a single transaction.
// Raw page markup is not archived.
func (r *SessionArchiveRepoImpl) Save(ctx context.Context, archiveID string, snap *entity.SessionSnapshot) error {
	bulkJSON, err := json.Marshal(snap.BulkScan)
	if err != nil {
		return err
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO crawl_sessions (id, seed_url, started_at, archived_at, bulk_scan)
		VALUES ($1, $2, $3, NOW(), $4)
		ON CONFLICT (id) DO UPDATE SET
			seed_url = EXCLUDED.seed_url,
			started_at = EXCLUDED.started_at,
			archived_at = EXCLUDED.archived_at,
			bulk_scan = EXCLUDED.bulk_scan;
	`, archiveID, snap.SeedURL, snap.StartedAt, bulkJSON)
	if err != nil {
		return fmt.Errorf("failed to upsert session: %w", err)
	}

	batch := &pgx.Batch{}
	batch.Queue(`DELETE FROM discovered_links WHERE session_id = $1`, archiveID)
	batch.Queue(`DELETE FROM discovered_assets WHERE session_id = $1`, archiveID)
	for i, l := range snap.Frontier.Links {
		batch.Queue(`INSERT INTO discovered_links (session_id, position, url, status, title, content, error, updated_at)
		             VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			archiveID, i, l.URL, string(l.Status), l.Title, l.Text, l.Error, l.UpdatedAt)
	}
	for i, a := range snap.Frontier.Assets {
		batch.Queue(`INSERT INTO discovered_assets (session_id, position, url, kind, source_page, alt)
		             VALUES ($1, $2, $3, $4, $5, $6)`,
			archiveID, i, a.URL, string(a.Kind), a.SourcePage, a.Alt)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to write frontier: %w", err)
	}

	return tx.Commit(ctx)
}

// FindByID loads the session header and frontier. The transcript is not
// part of this archive.
func (r *SessionArchiveRepoImpl) FindByID(ctx context.Context, archiveID string) (*entity.SessionSnapshot, error) {
	snap := &entity.SessionSnapshot{ID: archiveID}
	var bulkJSON []byte

	err := r.db.QueryRow(ctx, `
		SELECT seed_url, started_at, bulk_scan
		FROM crawl_sessions
		WHERE id = $1;
	`, archiveID).Scan(&snap.SeedURL, &snap.StartedAt, &bulkJSON)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrArchiveNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(bulkJSON, &snap.BulkScan); err != nil {
		return nil, err
	}

	links, err := r.links(ctx, archiveID)
	if err != nil {
		return nil, err
	}
	assets, err := r.assets(ctx, archiveID)
	if err != nil {
		return nil, err
	}
	snap.Frontier = entity.FrontierSnapshot{Links: links, Assets: assets}
	return snap, nil
}

func (r *SessionArchiveRepoImpl) links(ctx context.Context, archiveID string) ([]entity.DiscoveredLink, error) {
	rows, err := r.db.Query(ctx, `
		SELECT url, status, title, content, error, updated_at
		FROM discovered_links
		WHERE session_id = $1
		ORDER BY position ASC;
	`, archiveID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	links := []entity.DiscoveredLink{}
	for rows.Next() {
		var (
			l      entity.DiscoveredLink
			status string
		)
		if err := rows.Scan(&l.URL, &status, &l.Title, &l.Text, &l.Error, &l.UpdatedAt); err != nil {
			return nil, err
		}
		l.Status = entity.LinkStatus(status)
		links = append(links, l)
	}
	return links, rows.Err()
}

func (r *SessionArchiveRepoImpl) assets(ctx context.Context, archiveID string) ([]entity.DiscoveredAsset, error) {
	rows, err := r.db.Query(ctx, `
		SELECT url, kind, source_page, alt
		FROM discovered_assets
		WHERE session_id = $1
		ORDER BY position ASC;
	`, archiveID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	assets := []entity.DiscoveredAsset{}
	for rows.Next() {
		var (
			a    entity.DiscoveredAsset
			kind string
		)
		if err := rows.Scan(&a.URL, &kind, &a.SourcePage, &a.Alt); err != nil {
			return nil, err
		}
		a.Kind = entity.AssetKind(kind)
		assets = append(assets, a)
	}
	return assets, rows.Err()
}

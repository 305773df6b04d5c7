package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"

	"github.com/vitislabs/decant/internal/domain/model"
	"github.com/vitislabs/decant/pkg/metrics"
)

// Row models for the Postgres schema.

type wineRow struct {
	bun.BaseModel `bun:"table:wines,alias:w"`

	ID       string  `bun:"id,pk"`
	Name     string  `bun:"name,notnull"`
	Producer string  `bun:"producer,notnull"`
	Vintage  *int    `bun:"vintage"`
	Variety  *string `bun:"variety"`
	Region   *string `bun:"region"`
	LabelURL *string `bun:"label_image_url"`
	Category *string `bun:"category"`
}

type ratingRow struct {
	bun.BaseModel `bun:"table:rankings,alias:r"`

	UserID    string    `bun:"user_id,pk"`
	WineID    string    `bun:"wine_id,pk"`
	EloScore  float64   `bun:"elo_score,notnull"`
	Position  int       `bun:"position,notnull,default:0"`
	UpdatedAt time.Time `bun:"updated_at,notnull"`
}

type comparisonRow struct {
	bun.BaseModel `bun:"table:comparisons,alias:c"`

	ID        string    `bun:"id,pk"`
	UserID    string    `bun:"user_id,notnull"`
	WineAID   string    `bun:"wine_a_id,notnull"`
	WineBID   string    `bun:"wine_b_id,notnull"`
	WinnerID  string    `bun:"winner_id,notnull"`
	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

type activityRow struct {
	bun.BaseModel `bun:"table:activity_feed,alias:af"`

	ID           string    `bun:"id,pk"`
	UserID       string    `bun:"user_id,notnull"`
	ActivityType string    `bun:"activity_type,notnull"`
	WineID       string    `bun:"wine_id,notnull"`
	TargetWineID string    `bun:"target_wine_id"`
	CreatedAt    time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

type cellarRow struct {
	bun.BaseModel `bun:"table:cellar_items,alias:ci"`

	ID        string    `bun:"id,pk"`
	UserID    string    `bun:"user_id,notnull"`
	WineID    string    `bun:"wine_id,notnull"`
	Status    string    `bun:"status,notnull"`
	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

// NewDB opens a PostgreSQL connection for the given DSN.
func NewDB(dsn string, debug bool) *bun.DB {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())

	if debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}

	return db
}

// CreateTables creates all tables in dependency order.
func CreateTables(ctx context.Context, db *bun.DB) error {
	tables := []interface{}{
		(*wineRow)(nil),
		(*ratingRow)(nil),
		(*comparisonRow)(nil),
		(*activityRow)(nil),
		(*cellarRow)(nil),
	}

	for _, m := range tables {
		if _, err := db.NewCreateTable().Model(m).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("creating table for %T: %w", m, err)
		}
	}

	constraints := []string{
		`DO $$ BEGIN IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'cellar_items_no_dupes') THEN ALTER TABLE cellar_items ADD CONSTRAINT cellar_items_no_dupes UNIQUE (user_id, wine_id); END IF; END $$`,
	}
	for _, stmt := range constraints {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("adding constraint: %w", err)
		}
	}

	return nil
}

// PostgresStore implements Store on top of bun.
type PostgresStore struct {
	db *bun.DB
}

// NewPostgresStore wraps an open bun.DB.
func NewPostgresStore(db *bun.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// pairRow is the flat shape returned by the pair-selection query.
type pairRow struct {
	WineAID       string  `bun:"wine_a_id"`
	WineAName     string  `bun:"wine_a_name"`
	WineAProducer string  `bun:"wine_a_producer"`
	WineAVintage  *int    `bun:"wine_a_vintage"`
	WineAVariety  *string `bun:"wine_a_variety"`
	WineARegion   *string `bun:"wine_a_region"`
	WineALabelURL *string `bun:"wine_a_label_url"`
	WineAIsNew    bool    `bun:"wine_a_is_new"`
	WineBID       string  `bun:"wine_b_id"`
	WineBName     string  `bun:"wine_b_name"`
	WineBProducer string  `bun:"wine_b_producer"`
	WineBVintage  *int    `bun:"wine_b_vintage"`
	WineBVariety  *string `bun:"wine_b_variety"`
	WineBRegion   *string `bun:"wine_b_region"`
	WineBLabelURL *string `bun:"wine_b_label_url"`
}

// nextPairSQL selects the duel pair atomically: slot A prefers an unrated
// candidate (collecting its first rating), slot B prefers a rated opponent.
// Zero rows means the candidate pool holds fewer than two wines.
const nextPairSQL = `
WITH pool AS (
    SELECT ci.wine_id, (r.wine_id IS NULL) AS is_new
    FROM cellar_items ci
    LEFT JOIN rankings r ON r.user_id = ci.user_id AND r.wine_id = ci.wine_id
    WHERE ci.user_id = ? AND ci.status = 'had'
), slot_a AS (
    SELECT wine_id, is_new FROM pool
    ORDER BY is_new DESC, random()
    LIMIT 1
), slot_b AS (
    SELECT p.wine_id FROM pool p, slot_a a
    WHERE p.wine_id <> a.wine_id
    ORDER BY p.is_new ASC, random()
    LIMIT 1
)
SELECT
    wa.id AS wine_a_id, wa.name AS wine_a_name, wa.producer AS wine_a_producer,
    wa.vintage AS wine_a_vintage, wa.variety AS wine_a_variety,
    wa.region AS wine_a_region, wa.label_image_url AS wine_a_label_url,
    a.is_new AS wine_a_is_new,
    wb.id AS wine_b_id, wb.name AS wine_b_name, wb.producer AS wine_b_producer,
    wb.vintage AS wine_b_vintage, wb.variety AS wine_b_variety,
    wb.region AS wine_b_region, wb.label_image_url AS wine_b_label_url
FROM slot_a a, slot_b b
JOIN wines wa ON wa.id = a.wine_id
JOIN wines wb ON wb.id = b.wine_id
`

func (s *PostgresStore) NextPair(ctx context.Context, userID string) (model.Pair, bool, error) {
	start := time.Now()
	defer func() {
		metrics.RecordRepositoryQueryLatency(float64(time.Since(start).Milliseconds()))
	}()

	var row pairRow
	err := s.db.NewRaw(nextPairSQL, userID).Scan(ctx, &row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Pair{}, false, nil
	}
	if err != nil {
		return model.Pair{}, false, fmt.Errorf("selecting duel pair: %w", err)
	}

	return model.Pair{
		WineA: model.Wine{
			ID:       row.WineAID,
			Name:     row.WineAName,
			Producer: row.WineAProducer,
			Vintage:  row.WineAVintage,
			Variety:  row.WineAVariety,
			Region:   row.WineARegion,
			LabelURL: row.WineALabelURL,
		},
		WineB: model.Wine{
			ID:       row.WineBID,
			Name:     row.WineBName,
			Producer: row.WineBProducer,
			Vintage:  row.WineBVintage,
			Variety:  row.WineBVariety,
			Region:   row.WineBRegion,
			LabelURL: row.WineBLabelURL,
		},
		WineAIsNew: row.WineAIsNew,
	}, true, nil
}

func (s *PostgresStore) CountCandidates(ctx context.Context, userID string) (int, error) {
	n, err := s.db.NewSelect().Model((*cellarRow)(nil)).
		Where("ci.user_id = ?", userID).
		Where("ci.status = ?", model.CellarStatusHad).
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("counting candidates: %w", err)
	}
	return n, nil
}

func (s *PostgresStore) Rating(ctx context.Context, userID, wineID string) (float64, bool, error) {
	var row ratingRow
	err := s.db.NewSelect().Model(&row).
		Column("elo_score").
		Where("r.user_id = ?", userID).
		Where("r.wine_id = ?", wineID).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("reading rating: %w", err)
	}
	return row.EloScore, true, nil
}

func (s *PostgresStore) UpsertRating(ctx context.Context, r model.Rating) error {
	start := time.Now()
	defer func() {
		metrics.RecordRepositoryUpdateLatency(float64(time.Since(start).Milliseconds()))
	}()

	row := ratingRow{
		UserID:    r.UserID,
		WineID:    r.WineID,
		EloScore:  r.EloScore,
		Position:  r.Position,
		UpdatedAt: r.UpdatedAt,
	}
	_, err := s.db.NewInsert().Model(&row).
		On("CONFLICT (user_id, wine_id) DO UPDATE").
		Set("elo_score = EXCLUDED.elo_score").
		Set("position = EXCLUDED.position").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("upserting rating: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListRatings(ctx context.Context, userID string) ([]model.Rating, error) {
	var rows []ratingRow
	if err := s.db.NewSelect().Model(&rows).Where("r.user_id = ?", userID).Scan(ctx); err != nil {
		return nil, fmt.Errorf("listing ratings: %w", err)
	}

	out := make([]model.Rating, len(rows))
	for i, row := range rows {
		out[i] = model.Rating{
			UserID:    row.UserID,
			WineID:    row.WineID,
			EloScore:  row.EloScore,
			Position:  row.Position,
			UpdatedAt: row.UpdatedAt,
		}
	}
	return out, nil
}

// UpdatePositions writes each position row individually; a failed row is
// collected rather than aborting the batch, so the remaining rows still land.
func (s *PostgresStore) UpdatePositions(ctx context.Context, userID string, updates []model.Rating) error {
	var errs []error
	for _, u := range updates {
		_, err := s.db.NewUpdate().Model((*ratingRow)(nil)).
			Set("position = ?", u.Position).
			Set("updated_at = ?", u.UpdatedAt).
			Where("r.user_id = ?", userID).
			Where("r.wine_id = ?", u.WineID).
			Exec(ctx)
		if err != nil {
			errs = append(errs, fmt.Errorf("positioning wine %s: %w", u.WineID, err))
		}
	}
	return errors.Join(errs...)
}

func (s *PostgresStore) ListRankings(ctx context.Context, userID string) ([]model.RankedWine, error) {
	var rows []struct {
		Position int     `bun:"position"`
		EloScore float64 `bun:"elo_score"`
		WineID   string  `bun:"wine_id"`
		Name     string  `bun:"name"`
		Producer string  `bun:"producer"`
		Vintage  *int    `bun:"vintage"`
		Variety  *string `bun:"variety"`
		Region   *string `bun:"region"`
		LabelURL *string `bun:"label_image_url"`
		Category *string `bun:"category"`
	}
	err := s.db.NewSelect().Model((*ratingRow)(nil)).
		ColumnExpr("r.position, r.elo_score, r.wine_id").
		ColumnExpr("w.name, w.producer, w.vintage, w.variety, w.region, w.label_image_url, w.category").
		Join("JOIN wines AS w ON w.id = r.wine_id").
		Where("r.user_id = ?", userID).
		OrderExpr("r.position ASC").
		Scan(ctx, &rows)
	if err != nil {
		return nil, fmt.Errorf("listing rankings: %w", err)
	}

	out := make([]model.RankedWine, len(rows))
	for i, row := range rows {
		out[i] = model.RankedWine{
			Position: row.Position,
			EloScore: row.EloScore,
			Wine: model.Wine{
				ID:       row.WineID,
				Name:     row.Name,
				Producer: row.Producer,
				Vintage:  row.Vintage,
				Variety:  row.Variety,
				Region:   row.Region,
				LabelURL: row.LabelURL,
				Category: row.Category,
			},
		}
	}
	return out, nil
}

func (s *PostgresStore) AppendComparison(ctx context.Context, c model.Comparison) error {
	row := comparisonRow{
		ID:        c.ID,
		UserID:    c.UserID,
		WineAID:   c.WineAID,
		WineBID:   c.WineBID,
		WinnerID:  c.WinnerID,
		CreatedAt: c.CreatedAt,
	}
	if _, err := s.db.NewInsert().Model(&row).Exec(ctx); err != nil {
		return fmt.Errorf("appending comparison: %w", err)
	}
	return nil
}

func (s *PostgresStore) AppendActivity(ctx context.Context, a model.Activity) error {
	row := activityRow{
		ID:           a.ID,
		UserID:       a.UserID,
		ActivityType: a.Type,
		WineID:       a.WineID,
		TargetWineID: a.TargetWineID,
		CreatedAt:    a.CreatedAt,
	}
	if _, err := s.db.NewInsert().Model(&row).Exec(ctx); err != nil {
		return fmt.Errorf("appending activity: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListActivity(ctx context.Context, userID string, limit int) ([]model.Activity, error) {
	if limit < 1 {
		return nil, ErrInvalidLimit
	}

	var rows []activityRow
	err := s.db.NewSelect().Model(&rows).
		Where("af.user_id = ?", userID).
		OrderExpr("af.created_at DESC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing activity: %w", err)
	}

	out := make([]model.Activity, len(rows))
	for i, row := range rows {
		out[i] = model.Activity{
			ID:           row.ID,
			UserID:       row.UserID,
			Type:         row.ActivityType,
			WineID:       row.WineID,
			TargetWineID: row.TargetWineID,
			CreatedAt:    row.CreatedAt,
		}
	}
	return out, nil
}

func (s *PostgresStore) UpsertWine(ctx context.Context, w model.Wine) error {
	row := wineRow{
		ID:       w.ID,
		Name:     w.Name,
		Producer: w.Producer,
		Vintage:  w.Vintage,
		Variety:  w.Variety,
		Region:   w.Region,
		LabelURL: w.LabelURL,
		Category: w.Category,
	}
	_, err := s.db.NewInsert().Model(&row).
		On("CONFLICT (id) DO UPDATE").
		Set("name = EXCLUDED.name").
		Set("producer = EXCLUDED.producer").
		Set("vintage = EXCLUDED.vintage").
		Set("variety = EXCLUDED.variety").
		Set("region = EXCLUDED.region").
		Set("label_image_url = EXCLUDED.label_image_url").
		Set("category = EXCLUDED.category").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("upserting wine: %w", err)
	}
	return nil
}

func (s *PostgresStore) AddCellarItem(ctx context.Context, item model.CellarItem) error {
	row := cellarRow{
		ID:        item.ID,
		UserID:    item.UserID,
		WineID:    item.WineID,
		Status:    item.Status,
		CreatedAt: item.CreatedAt,
	}
	_, err := s.db.NewInsert().Model(&row).
		On("CONFLICT (user_id, wine_id) DO UPDATE").
		Set("status = EXCLUDED.status").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("adding cellar item: %w", err)
	}
	return nil
}

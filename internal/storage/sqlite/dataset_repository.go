package sqlite

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	dcerrors "github.com/ternarybob/datacat/internal/errors"
	"github.com/ternarybob/datacat/internal/interfaces"
	"github.com/ternarybob/datacat/internal/models"
)

// keywordSeparator joins keywords within the flattened keywords column;
// chosen because it cannot appear in a catalogue keyword string.
const keywordSeparator = "\x1f"

// DatasetRepository implements interfaces.Repository against the
// datasets table, denormalising every Dataset field into a dedicated
// column or JSON-text column.
type DatasetRepository struct {
	db     *SQLiteDB
	logger arbor.ILogger
	mu     sync.Mutex // serializes writes to avoid SQLITE_BUSY with the single shared connection
}

// NewDatasetRepository returns a Repository backed by db.
func NewDatasetRepository(db *SQLiteDB, logger arbor.ILogger) interfaces.Repository {
	return &DatasetRepository{db: db, logger: logger}
}

type datasetRow struct {
	topicCategory       string
	keywords            string
	boundingBox         sql.NullString
	temporalExtent      sql.NullString
	responsibleParties  string
	distributions       string
	relatedDocuments    string
	supportingDocuments string
	embeddingModel      sql.NullString
	embedding           []byte
}

func marshalDataset(d *models.Dataset) (datasetRow, error) {
	var row datasetRow

	categories := make([]string, len(d.TopicCategories))
	for i, c := range d.TopicCategories {
		categories[i] = string(c)
	}
	row.topicCategory = strings.Join(categories, ",")

	row.keywords = strings.Join(d.Keywords, keywordSeparator)

	if d.BoundingBox != nil {
		b, err := json.Marshal(d.BoundingBox)
		if err != nil {
			return row, err
		}
		row.boundingBox = sql.NullString{String: string(b), Valid: true}
	}

	if d.TemporalExtent != nil {
		b, err := json.Marshal(d.TemporalExtent)
		if err != nil {
			return row, err
		}
		row.temporalExtent = sql.NullString{String: string(b), Valid: true}
	}

	parties, err := json.Marshal(d.ResponsibleParties)
	if err != nil {
		return row, err
	}
	row.responsibleParties = string(parties)

	distributions, err := json.Marshal(d.Distributions)
	if err != nil {
		return row, err
	}
	row.distributions = string(distributions)

	related, err := json.Marshal(d.RelatedDocuments)
	if err != nil {
		return row, err
	}
	row.relatedDocuments = string(related)

	supporting, err := json.Marshal(d.SupportingDocuments)
	if err != nil {
		return row, err
	}
	row.supportingDocuments = string(supporting)

	if d.EmbeddingModel != "" {
		row.embeddingModel = sql.NullString{String: d.EmbeddingModel, Valid: true}
	}
	if len(d.Embedding) > 0 {
		row.embedding = encodeEmbedding(d.Embedding)
	}

	return row, nil
}

// Save upserts a single dataset, keyed on identifier.
func (r *DatasetRepository) Save(ctx context.Context, d *models.Dataset) (string, error) {
	if err := d.Validate(); err != nil {
		return "", err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	row, err := marshalDataset(d)
	if err != nil {
		return "", fmt.Errorf("%w: failed to marshal dataset: %v", dcerrors.ErrStore, err)
	}

	now := time.Now().Unix()
	accessLevel := models.DefaultAccessLevel(d.AccessLevel)

	_, err = r.db.db.ExecContext(ctx, upsertDatasetSQL,
		d.Identifier, d.Identifier, d.SourceFormat,
		d.Title, d.Abstract, row.topicCategory, row.keywords,
		row.boundingBox, row.temporalExtent, row.responsibleParties,
		row.distributions, row.relatedDocuments, row.supportingDocuments,
		string(accessLevel), contentHash(d), row.embedding, row.embeddingModel,
		now, now,
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", dcerrors.ErrStore, err)
	}

	return d.Identifier, nil
}

const upsertDatasetSQL = `
	INSERT INTO datasets (
		id, source_id, source_type, title, abstract, topic_category, keywords,
		bounding_box, temporal_extent, responsible_parties, distributions,
		related_documents, supporting_documents, access_level, content_hash,
		embedding, embedding_model, created_at, updated_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		source_type = excluded.source_type,
		title = excluded.title,
		abstract = excluded.abstract,
		topic_category = excluded.topic_category,
		keywords = excluded.keywords,
		bounding_box = excluded.bounding_box,
		temporal_extent = excluded.temporal_extent,
		responsible_parties = excluded.responsible_parties,
		distributions = excluded.distributions,
		related_documents = excluded.related_documents,
		supporting_documents = excluded.supporting_documents,
		access_level = excluded.access_level,
		content_hash = excluded.content_hash,
		updated_at = excluded.updated_at
`

// SaveMany upserts each dataset independently; a failure on one does not
// abort the others, matching the unordered bulk-write contract.
func (r *DatasetRepository) SaveMany(ctx context.Context, datasets []*models.Dataset) (*models.BulkResult, error) {
	result := models.NewBulkResult()

	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to begin transaction: %v", dcerrors.ErrStore, err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, upsertDatasetSQL)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to prepare statement: %v", dcerrors.ErrStore, err)
	}
	defer stmt.Close()

	now := time.Now().Unix()
	for _, d := range datasets {
		if err := d.Validate(); err != nil {
			result.Failed[d.Identifier] = err.Error()
			continue
		}

		row, err := marshalDataset(d)
		if err != nil {
			result.Failed[d.Identifier] = err.Error()
			continue
		}

		accessLevel := models.DefaultAccessLevel(d.AccessLevel)
		_, err = stmt.ExecContext(ctx,
			d.Identifier, d.Identifier, d.SourceFormat,
			d.Title, d.Abstract, row.topicCategory, row.keywords,
			row.boundingBox, row.temporalExtent, row.responsibleParties,
			row.distributions, row.relatedDocuments, row.supportingDocuments,
			string(accessLevel), contentHash(d), row.embedding, row.embeddingModel,
			now, now,
		)
		if err != nil {
			result.Failed[d.Identifier] = err.Error()
			continue
		}

		result.Succeeded = append(result.Succeeded, d.Identifier)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%w: failed to commit batch: %v", dcerrors.ErrStore, err)
	}

	return result, nil
}

const selectDatasetColumns = `
	id, title, abstract, topic_category, keywords, bounding_box, temporal_extent,
	responsible_parties, distributions, related_documents, supporting_documents,
	access_level, source_type, embedding, embedding_model
`

// Get retrieves a dataset by identifier, or (nil, nil) if not found.
func (r *DatasetRepository) Get(ctx context.Context, id string) (*models.Dataset, error) {
	row := r.db.db.QueryRowContext(ctx, "SELECT "+selectDatasetColumns+" FROM datasets WHERE id = ?", id)
	d, err := scanDataset(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return d, nil
}

// Exists reports whether a dataset with the given identifier is stored.
func (r *DatasetRepository) Exists(ctx context.Context, id string) (bool, error) {
	var count int
	err := r.db.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM datasets WHERE id = ?", id).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Delete removes a dataset by identifier, reporting whether a row existed.
func (r *DatasetRepository) Delete(ctx context.Context, id string) (bool, error) {
	result, err := r.db.db.ExecContext(ctx, "DELETE FROM datasets WHERE id = ?", id)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// Count returns the total number of stored datasets.
func (r *DatasetRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM datasets").Scan(&count)
	return count, err
}

// GetAllIdentifiers returns every stored dataset identifier.
func (r *DatasetRepository) GetAllIdentifiers(ctx context.Context) ([]string, error) {
	rows, err := r.db.db.QueryContext(ctx, "SELECT id FROM datasets")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// GetAllForEmbedding returns every dataset, projected to the fields the
// embedding pipeline needs.
func (r *DatasetRepository) GetAllForEmbedding(ctx context.Context) ([]*models.Dataset, error) {
	rows, err := r.db.db.QueryContext(ctx, "SELECT id, title, abstract FROM datasets")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var datasets []*models.Dataset
	for rows.Next() {
		var id, title string
		var abstract sql.NullString
		if err := rows.Scan(&id, &title, &abstract); err != nil {
			return nil, err
		}
		datasets = append(datasets, &models.Dataset{
			Identifier: id,
			Title:      title,
			Abstract:   abstract.String,
		})
	}
	return datasets, rows.Err()
}

// GetPaged returns a page of datasets ordered by most recently updated.
func (r *DatasetRepository) GetPaged(ctx context.Context, page, pageSize int) (*models.PagedResult, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 50
	}

	total, err := r.Count(ctx)
	if err != nil {
		return nil, err
	}

	query := "SELECT " + selectDatasetColumns + " FROM datasets ORDER BY updated_at DESC LIMIT ? OFFSET ?"
	rows, err := r.db.db.QueryContext(ctx, query, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items, err := scanDatasets(rows)
	if err != nil {
		return nil, err
	}

	return &models.PagedResult{Items: items, Total: total, Page: page, PageSize: pageSize}, nil
}

// Search performs a case-insensitive substring match on title OR
// abstract; % and _ are escaped so the query is treated literally.
func (r *DatasetRepository) Search(ctx context.Context, query string, limit int) ([]*models.Dataset, error) {
	if limit <= 0 {
		limit = 50
	}
	escaped := escapeLike(query)
	pattern := "%" + escaped + "%"

	sqlQuery := `
		SELECT ` + selectDatasetColumns + `
		FROM datasets
		WHERE LOWER(title) LIKE LOWER(?) ESCAPE '\' OR LOWER(abstract) LIKE LOWER(?) ESCAPE '\'
		ORDER BY updated_at DESC
		LIMIT ?
	`
	rows, err := r.db.db.QueryContext(ctx, sqlQuery, pattern, pattern, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanDatasets(rows)
}

func escapeLike(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "%", "\\%")
	s = strings.ReplaceAll(s, "_", "\\_")
	return s
}

// SaveEmbedding persists a computed embedding onto the stored dataset
// record without otherwise mutating it.
func (r *DatasetRepository) SaveEmbedding(ctx context.Context, id string, embedding []float32, model string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.db.ExecContext(ctx,
		"UPDATE datasets SET embedding = ?, embedding_model = ?, updated_at = ? WHERE id = ?",
		encodeEmbedding(embedding), model, time.Now().Unix(), id,
	)
	if err != nil {
		return fmt.Errorf("%w: %v", dcerrors.ErrEmbedding, err)
	}
	return nil
}

// ClearEmbeddings unsets every stored embedding.
func (r *DatasetRepository) ClearEmbeddings(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.db.ExecContext(ctx, "UPDATE datasets SET embedding = NULL, embedding_model = NULL")
	return err
}

func scanDataset(row *sql.Row) (*models.Dataset, error) {
	d, scanArgs := newScanTarget()
	if err := row.Scan(scanArgs...); err != nil {
		return nil, err
	}
	if err := populateDataset(d); err != nil {
		return nil, err
	}
	return d.dataset, nil
}

func scanDatasets(rows *sql.Rows) ([]*models.Dataset, error) {
	var out []*models.Dataset
	for rows.Next() {
		d, scanArgs := newScanTarget()
		if err := rows.Scan(scanArgs...); err != nil {
			return nil, err
		}
		if err := populateDataset(d); err != nil {
			return nil, err
		}
		out = append(out, d.dataset)
	}
	return out, rows.Err()
}

// scanTarget holds the raw column values for a single row before
// deserialization into a *models.Dataset.
type scanTarget struct {
	dataset *models.Dataset

	abstract            sql.NullString
	topicCategory       sql.NullString
	keywords            sql.NullString
	boundingBox         sql.NullString
	temporalExtent      sql.NullString
	responsibleParties  sql.NullString
	distributions       sql.NullString
	relatedDocuments    sql.NullString
	supportingDocuments sql.NullString
	accessLevel         sql.NullString
	sourceType          sql.NullString
	embedding           []byte
	embeddingModel      sql.NullString
}

func newScanTarget() (*scanTarget, []interface{}) {
	t := &scanTarget{dataset: &models.Dataset{}}
	args := []interface{}{
		&t.dataset.Identifier, &t.dataset.Title, &t.abstract, &t.topicCategory,
		&t.keywords, &t.boundingBox, &t.temporalExtent, &t.responsibleParties,
		&t.distributions, &t.relatedDocuments, &t.supportingDocuments,
		&t.accessLevel, &t.sourceType, &t.embedding, &t.embeddingModel,
	}
	return t, args
}

func populateDataset(t *scanTarget) error {
	d := t.dataset
	d.Abstract = t.abstract.String
	d.SourceFormat = t.sourceType.String
	d.AccessLevel = models.DefaultAccessLevel(models.AccessLevel(t.accessLevel.String))

	if t.topicCategory.String != "" {
		for _, c := range strings.Split(t.topicCategory.String, ",") {
			d.TopicCategories = append(d.TopicCategories, models.TopicCategory(c))
		}
	}

	if t.keywords.String != "" {
		d.Keywords = strings.Split(t.keywords.String, keywordSeparator)
	}

	if t.boundingBox.Valid {
		var bb models.BoundingBox
		if err := json.Unmarshal([]byte(t.boundingBox.String), &bb); err != nil {
			return fmt.Errorf("failed to unmarshal bounding_box: %w", err)
		}
		d.BoundingBox = &bb
	}

	if t.temporalExtent.Valid {
		var te models.TemporalExtent
		if err := json.Unmarshal([]byte(t.temporalExtent.String), &te); err != nil {
			return fmt.Errorf("failed to unmarshal temporal_extent: %w", err)
		}
		d.TemporalExtent = &te
	}

	if t.responsibleParties.Valid && t.responsibleParties.String != "" {
		if err := json.Unmarshal([]byte(t.responsibleParties.String), &d.ResponsibleParties); err != nil {
			return fmt.Errorf("failed to unmarshal responsible_parties: %w", err)
		}
	}

	if t.distributions.Valid && t.distributions.String != "" {
		if err := json.Unmarshal([]byte(t.distributions.String), &d.Distributions); err != nil {
			return fmt.Errorf("failed to unmarshal distributions: %w", err)
		}
	}

	if t.relatedDocuments.Valid && t.relatedDocuments.String != "" {
		if err := json.Unmarshal([]byte(t.relatedDocuments.String), &d.RelatedDocuments); err != nil {
			return fmt.Errorf("failed to unmarshal related_documents: %w", err)
		}
	}

	if t.supportingDocuments.Valid && t.supportingDocuments.String != "" {
		if err := json.Unmarshal([]byte(t.supportingDocuments.String), &d.SupportingDocuments); err != nil {
			return fmt.Errorf("failed to unmarshal supporting_documents: %w", err)
		}
	}

	if t.embeddingModel.Valid {
		d.EmbeddingModel = t.embeddingModel.String
	}
	if len(t.embedding) > 0 {
		d.Embedding = decodeEmbedding(t.embedding)
	}

	return nil
}

// contentHash is a stable hash of the fields that determine whether a
// dataset's content has changed since the last sync.
func contentHash(d *models.Dataset) string {
	sum := sha256.Sum256([]byte(d.Title + "\x00" + d.Abstract))
	return fmt.Sprintf("%x", sum)
}

// encodeEmbedding packs a float32 vector into a little-endian BLOB so it
// can round-trip through the embedding column without a text encoding.
func encodeEmbedding(vec []float32) []byte {
	if len(vec) == 0 {
		return nil
	}
	buf := make([]byte, len(vec)*4)
	for i, f := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func decodeEmbedding(buf []byte) []float32 {
	if len(buf) == 0 {
		return nil
	}
	vec := make([]float32, len(buf)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return vec
}

package sqlite

const schemaSQL = `
-- Canonical dataset catalogue entries, normalized from all upstream parsers.
-- embedding stores the cached vector as a flat BLOB of little-endian float32s
-- so repeated searches don't need to recompute or refetch it from the vector
-- store; embedding_model records which model produced it so a model change
-- can be detected and the cache invalidated.
CREATE TABLE IF NOT EXISTS datasets (
	id TEXT PRIMARY KEY,
	source_id TEXT NOT NULL,
	source_type TEXT NOT NULL,
	title TEXT NOT NULL,
	abstract TEXT,
	topic_category TEXT,
	keywords TEXT,
	bounding_box TEXT,
	temporal_extent TEXT,
	responsible_parties TEXT,
	distributions TEXT,
	related_documents TEXT,
	supporting_documents TEXT,
	access_level TEXT NOT NULL DEFAULT 'public',
	content_hash TEXT NOT NULL,
	embedding BLOB,
	embedding_model TEXT,
	source_version TEXT,
	last_synced INTEGER,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_datasets_source ON datasets(source_type, source_id);
CREATE INDEX IF NOT EXISTS idx_datasets_access_level ON datasets(access_level);
CREATE INDEX IF NOT EXISTS idx_datasets_topic ON datasets(topic_category);
CREATE INDEX IF NOT EXISTS idx_datasets_embedding_model ON datasets(embedding_model) WHERE embedding IS NOT NULL;
CREATE INDEX IF NOT EXISTS idx_datasets_updated ON datasets(updated_at DESC);

-- Pipeline run checkpoints, one row per named run, for crash-resumable ETL.
CREATE TABLE IF NOT EXISTS pipeline_checkpoints (
	run_id TEXT PRIMARY KEY,
	processed_ids TEXT NOT NULL,
	failed_ids TEXT NOT NULL,
	stage TEXT NOT NULL,
	updated_at INTEGER NOT NULL
);
`

// InitSchema initializes the database schema.
func (s *SQLiteDB) InitSchema() error {
	_, err := s.db.Exec(schemaSQL)
	if err != nil {
		return err
	}
	s.logger.Info().Msg("Database schema initialized")
	return nil
}

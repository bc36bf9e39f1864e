package store

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/ppiankov/claimgate/internal/model"
)

// SQLiteStore persists policy chunks and the decision audit log
type SQLiteStore struct {
	db       *sql.DB
	embedder Embedder
}

// NewSQLiteStore opens (creating if needed) the claimgate database
func NewSQLiteStore(path string, embedder Embedder) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS policy_chunks (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		source      TEXT NOT NULL,
		chunk_index INTEGER NOT NULL,
		content     TEXT NOT NULL,
		embedding   BLOB NOT NULL,
		created_at  DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_policy_chunks_source ON policy_chunks(source);

	CREATE TABLE IF NOT EXISTS decisions (
		id                 INTEGER PRIMARY KEY AUTOINCREMENT,
		claim_id           TEXT DEFAULT '',
		final_decision     TEXT NOT NULL,
		final_reasoning    TEXT DEFAULT '',
		recommendation     TEXT DEFAULT '',
		price_check_result TEXT DEFAULT '',
		is_valid           INTEGER,
		llm_provider       TEXT DEFAULT '',
		llm_model          TEXT DEFAULT '',
		record_json        TEXT NOT NULL,
		started_at         DATETIME,
		completed_at       DATETIME,
		created_at         DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_decisions_claim_id ON decisions(claim_id);
	CREATE INDEX IF NOT EXISTS idx_decisions_created_at ON decisions(created_at);
	`
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return &SQLiteStore{db: db, embedder: embedder}, nil
}

// Close closes the underlying database
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ChunkCount returns the number of stored policy chunks
func (s *SQLiteStore) ChunkCount() (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM policy_chunks`).Scan(&n)
	return n, err
}

// AddDocument chunks, embeds, and persists one policy document.
// Re-ingesting a source replaces its previous chunks.
func (s *SQLiteStore) AddDocument(ctx context.Context, source, text string, chunkSize, chunkOverlap int) (int, error) {
	if s.embedder == nil {
		return 0, fmt.Errorf("no embedder configured")
	}

	fragments := SplitText(text, chunkSize, chunkOverlap)
	if len(fragments) == 0 {
		return 0, nil
	}

	vectors, err := s.embedder.EmbedBatch(ctx, fragments)
	if err != nil {
		return 0, fmt.Errorf("embed document: %w", err)
	}

	chunks := make([]Chunk, len(fragments))
	for i, content := range fragments {
		chunks[i] = Chunk{
			Source:    source,
			Index:     i,
			Content:   content,
			Embedding: vectors[i],
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM policy_chunks WHERE source = ?`, source); err != nil {
		return 0, fmt.Errorf("clear previous chunks: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO policy_chunks (source, chunk_index, content, embedding) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, chunk := range chunks {
		if _, err := stmt.ExecContext(ctx, chunk.Source, chunk.Index, chunk.Content, encodeVector(chunk.Embedding)); err != nil {
			return 0, fmt.Errorf("insert chunk %d: %w", chunk.Index, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return len(chunks), nil
}

// Search embeds the query and returns the topK most similar chunk texts,
// most similar first. An empty store yields an empty result, not an error.
func (s *SQLiteStore) Search(ctx context.Context, query string, topK int) ([]string, error) {
	if s.embedder == nil {
		return nil, fmt.Errorf("no embedder configured")
	}
	if topK <= 0 {
		topK = 3
	}

	queryVec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT content, embedding FROM policy_chunks`)
	if err != nil {
		return nil, fmt.Errorf("query chunks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	type scored struct {
		content string
		score   float64
	}
	var candidates []scored

	for rows.Next() {
		var content string
		var blob []byte
		if err := rows.Scan(&content, &blob); err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}
		candidates = append(candidates, scored{
			content: content,
			score:   CosineSimilarity(queryVec, decodeVector(blob)),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chunks: %w", err)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})

	if len(candidates) > topK {
		candidates = candidates[:topK]
	}

	results := make([]string, 0, len(candidates))
	for _, c := range candidates {
		results = append(results, c.content)
	}
	return results, nil
}

// RecordDecision appends a terminal claim record to the audit log
func (s *SQLiteStore) RecordDecision(rec *model.ClaimRecord, provider, llmModel string) error {
	recordJSON, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}

	var isValid interface{}
	if rec.IsValid != nil {
		isValid = *rec.IsValid
	}

	_, err = s.db.Exec(`
		INSERT INTO decisions (claim_id, final_decision, final_reasoning, recommendation,
			price_check_result, is_valid, llm_provider, llm_model, record_json, started_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ClaimID, string(rec.FinalDecision), rec.FinalReasoning, string(rec.Recommendation),
		string(rec.PriceCheckResult), isValid, provider, llmModel, string(recordJSON),
		rec.StartedAt, rec.CompletedAt)
	if err != nil {
		return fmt.Errorf("insert decision: %w", err)
	}
	return nil
}

// DecisionRow is one audit log entry
type DecisionRow struct {
	ID             int64     `json:"id"`
	ClaimID        string    `json:"claim_id"`
	FinalDecision  string    `json:"final_decision"`
	FinalReasoning string    `json:"final_reasoning"`
	LLMProvider    string    `json:"llm_provider"`
	LLMModel       string    `json:"llm_model"`
	CreatedAt      time.Time `json:"created_at"`
}

// RecentDecisions returns the latest audit log entries, newest first
func (s *SQLiteStore) RecentDecisions(limit int) ([]DecisionRow, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.Query(`
		SELECT id, claim_id, final_decision, final_reasoning, llm_provider, llm_model, created_at
		FROM decisions ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query decisions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []DecisionRow
	for rows.Next() {
		var d DecisionRow
		if err := rows.Scan(&d.ID, &d.ClaimID, &d.FinalDecision, &d.FinalReasoning,
			&d.LLMProvider, &d.LLMModel, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan decision: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// encodeVector packs a float32 vector into a little-endian blob
func encodeVector(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

// decodeVector unpacks a little-endian blob into a float32 vector
func decodeVector(blob []byte) []float32 {
	vec := make([]float32, len(blob)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[i*4:]))
	}
	return vec
}

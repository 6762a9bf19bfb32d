package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"social-account-lab/internal/domain"
	"social-account-lab/internal/storage"
)

// CandidateStore implements storage.CandidateStore using PostgreSQL.
// Scalar discovery fields are explicit columns; the optional nested
// structures (metrics, quality, attributes) are jsonb documents.
type CandidateStore struct {
	pool *Pool
}

// NewCandidateStore creates a new CandidateStore.
func NewCandidateStore(pool *Pool) *CandidateStore {
	return &CandidateStore{pool: pool}
}

// Compile-time interface check.
var _ storage.CandidateStore = (*CandidateStore)(nil)

const candidateColumns = `
	candidate_id, handle, display_name, description, confidence, origin,
	profile_url, query, metrics, quality, attributes, diversity_score, discovered_at
`

// Insert adds a new candidate. Returns ErrDuplicateKey if candidate_id exists.
func (s *CandidateStore) Insert(ctx context.Context, c *domain.CandidateAccount) error {
	if c == nil || c.CandidateID == "" || c.Handle == "" {
		return storage.ErrInvalidInput
	}

	metricsJSON, qualityJSON, attrsJSON, err := encodeNested(c)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO candidate_accounts (` + candidateColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err = s.pool.Exec(ctx, query,
		c.CandidateID,
		domain.NormalizeHandle(c.Handle),
		c.DisplayName,
		c.Description,
		c.Confidence,
		string(c.Origin),
		c.ProfileURL,
		c.Query,
		metricsJSON,
		qualityJSON,
		attrsJSON,
		c.DiversityScore,
		c.DiscoveredAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert candidate: %w", err)
	}
	return nil
}

// GetByID retrieves a candidate by its ID. Returns ErrNotFound if not exists.
func (s *CandidateStore) GetByID(ctx context.Context, candidateID string) (*domain.CandidateAccount, error) {
	query := `
		SELECT ` + candidateColumns + `
		FROM candidate_accounts
		WHERE candidate_id = $1
	`

	row := s.pool.QueryRow(ctx, query, candidateID)
	c, err := scanCandidate(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get candidate by id: %w", err)
	}
	return c, nil
}

// GetByHandle retrieves all candidates for a handle, ordered by discovered_at ASC.
func (s *CandidateStore) GetByHandle(ctx context.Context, handle string) ([]*domain.CandidateAccount, error) {
	query := `
		SELECT ` + candidateColumns + `
		FROM candidate_accounts
		WHERE handle = $1
		ORDER BY discovered_at ASC, candidate_id ASC
	`

	rows, err := s.pool.Query(ctx, query, domain.NormalizeHandle(handle))
	if err != nil {
		return nil, fmt.Errorf("get candidates by handle: %w", err)
	}
	defer rows.Close()

	return scanCandidates(rows)
}

// GetByOrigin retrieves all candidates of a given discovery origin.
func (s *CandidateStore) GetByOrigin(ctx context.Context, origin domain.SourceOrigin) ([]*domain.CandidateAccount, error) {
	query := `
		SELECT ` + candidateColumns + `
		FROM candidate_accounts
		WHERE origin = $1
		ORDER BY discovered_at ASC, candidate_id ASC
	`

	rows, err := s.pool.Query(ctx, query, string(origin))
	if err != nil {
		return nil, fmt.Errorf("get candidates by origin: %w", err)
	}
	defer rows.Close()

	return scanCandidates(rows)
}

// GetByTimeRange retrieves candidates discovered within [start, end] (inclusive).
func (s *CandidateStore) GetByTimeRange(ctx context.Context, start, end int64) ([]*domain.CandidateAccount, error) {
	query := `
		SELECT ` + candidateColumns + `
		FROM candidate_accounts
		WHERE discovered_at >= $1 AND discovered_at <= $2
		ORDER BY discovered_at ASC, candidate_id ASC
	`

	rows, err := s.pool.Query(ctx, query, start, end)
	if err != nil {
		return nil, fmt.Errorf("get candidates by time range: %w", err)
	}
	defer rows.Close()

	return scanCandidates(rows)
}

func encodeNested(c *domain.CandidateAccount) (metrics, quality, attrs []byte, err error) {
	if c.Metrics != nil {
		if metrics, err = json.Marshal(c.Metrics); err != nil {
			return nil, nil, nil, fmt.Errorf("encode metrics: %w", err)
		}
	}
	if c.Quality != nil {
		if quality, err = json.Marshal(c.Quality); err != nil {
			return nil, nil, nil, fmt.Errorf("encode quality: %w", err)
		}
	}
	if c.Attributes != nil {
		if attrs, err = json.Marshal(c.Attributes); err != nil {
			return nil, nil, nil, fmt.Errorf("encode attributes: %w", err)
		}
	}
	return metrics, quality, attrs, nil
}

// scanCandidate scans a single row into a CandidateAccount.
func scanCandidate(row pgx.Row) (*domain.CandidateAccount, error) {
	var c domain.CandidateAccount
	var originStr string
	var metricsJSON, qualityJSON, attrsJSON []byte

	err := row.Scan(
		&c.CandidateID,
		&c.Handle,
		&c.DisplayName,
		&c.Description,
		&c.Confidence,
		&originStr,
		&c.ProfileURL,
		&c.Query,
		&metricsJSON,
		&qualityJSON,
		&attrsJSON,
		&c.DiversityScore,
		&c.DiscoveredAt,
	)
	if err != nil {
		return nil, err
	}

	c.Origin = domain.SourceOrigin(originStr)
	if err := decodeNested(&c, metricsJSON, qualityJSON, attrsJSON); err != nil {
		return nil, err
	}
	return &c, nil
}

// scanCandidates scans multiple rows into a slice of CandidateAccount.
func scanCandidates(rows pgx.Rows) ([]*domain.CandidateAccount, error) {
	var candidates []*domain.CandidateAccount

	for rows.Next() {
		c, err := scanCandidate(rows)
		if err != nil {
			return nil, fmt.Errorf("scan candidate row: %w", err)
		}
		candidates = append(candidates, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate candidate rows: %w", err)
	}

	return candidates, nil
}

func decodeNested(c *domain.CandidateAccount, metricsJSON, qualityJSON, attrsJSON []byte) error {
	if len(metricsJSON) > 0 {
		c.Metrics = &domain.AccountMetrics{}
		if err := json.Unmarshal(metricsJSON, c.Metrics); err != nil {
			return fmt.Errorf("decode metrics: %w", err)
		}
	}
	if len(qualityJSON) > 0 {
		c.Quality = &domain.QualityAssessment{}
		if err := json.Unmarshal(qualityJSON, c.Quality); err != nil {
			return fmt.Errorf("decode quality: %w", err)
		}
	}
	if len(attrsJSON) > 0 {
		c.Attributes = &domain.DiversityAttributes{}
		if err := json.Unmarshal(attrsJSON, c.Attributes); err != nil {
			return fmt.Errorf("decode attributes: %w", err)
		}
	}
	return nil
}

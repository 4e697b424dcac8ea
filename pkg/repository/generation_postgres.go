package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/KunBoy5240/chatgpt-on-wechat/pkg/domain"
)

type generationPostgresRepository struct {
	db *sql.DB
}

func NewGenerationPostgresRepository(db *sql.DB) *generationPostgresRepository {
	return &generationPostgresRepository{db: db}
}

func (g *generationPostgresRepository) Save(ctx context.Context, generation domain.Generation) (string, error) {
	const query = `
		INSERT INTO generations (session_id, params, result_url, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`

	params, err := json.Marshal(generation.Params)
	if err != nil {
		return "", fmt.Errorf("marshaling params: %w", err)
	}

	var id int64
	err = g.db.QueryRowContext(ctx, query, generation.SessionID, string(params), generation.ResultURL, generation.CreatedAt).
		Scan(&id)
	if err != nil {
		return "", fmt.Errorf("saving generation: %w", err)
	}

	return strconv.FormatInt(id, 10), nil
}

func (g *generationPostgresRepository) GetByID(ctx context.Context, id string) (*domain.Generation, error) {
	const query = `
		SELECT id, session_id, params, result_url, created_at
		FROM generations
		WHERE id = $1
	`

	numericID, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid generation id %q: %w", id, domain.ErrNotFound)
	}

	var (
		generation domain.Generation
		rowID      int64
		params     []byte
	)
	err = g.db.QueryRowContext(ctx, query, numericID).
		Scan(&rowID, &generation.SessionID, &params, &generation.ResultURL, &generation.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("fetching generation by id: %w", err)
	}

	if err := json.Unmarshal(params, &generation.Params); err != nil {
		return nil, fmt.Errorf("unmarshaling params: %w", err)
	}
	generation.ID = strconv.FormatInt(rowID, 10)

	return &generation, nil
}

func (g *generationPostgresRepository) Close() error {
	return g.db.Close()
}

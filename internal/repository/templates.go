package repository

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/storekit/wa-bridge/internal/model"
)

type TemplatesRepository interface {
	GetByNameLang(ctx context.Context, name, language string) (*model.Template, error)
	List(ctx context.Context) ([]model.Template, error)
	// Upsert is used by provider sync and manual definition; name+language is
	// the unique key.
	Upsert(ctx context.Context, t model.Template) error
	UpdateApproval(ctx context.Context, name, language string, approval model.TemplateApproval) error
}

type TemplatesRepositoryImpl struct {
	db *sqlx.DB
}

func NewTemplatesRepository(db *sqlx.DB) *TemplatesRepositoryImpl {
	return &TemplatesRepositoryImpl{db: db}
}

var _ TemplatesRepository = (*TemplatesRepositoryImpl)(nil)

func (r *TemplatesRepositoryImpl) GetByNameLang(ctx context.Context, name, language string) (*model.Template, error) {
	var t model.Template
	err := r.db.GetContext(ctx, &t, `
		SELECT * FROM templates WHERE name = ? AND language = ? LIMIT 1
	`, name, language)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *TemplatesRepositoryImpl) List(ctx context.Context) ([]model.Template, error) {
	var out []model.Template
	err := r.db.SelectContext(ctx, &out, `SELECT * FROM templates ORDER BY name, language`)
	return out, err
}

func (r *TemplatesRepositoryImpl) Upsert(ctx context.Context, t model.Template) error {
	const q = `
		INSERT INTO templates (name, language, body, variables, category, approval, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, NOW(), NOW())
		ON DUPLICATE KEY UPDATE
		    body = VALUES(body),
		    variables = VALUES(variables),
		    category = VALUES(category),
		    approval = VALUES(approval),
		    updated_at = VALUES(updated_at)
	`
	_, err := r.db.ExecContext(ctx, q,
		t.Name, t.Language, t.Body, t.Variables, string(t.Category), string(t.Approval))
	return err
}

func (r *TemplatesRepositoryImpl) UpdateApproval(ctx context.Context, name, language string, approval model.TemplateApproval) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE templates SET approval = ?, updated_at = NOW() WHERE name = ? AND language = ?
	`, string(approval), name, language)
	return err
}

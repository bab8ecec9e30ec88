package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"stevedore/internal/document/models"
	"stevedore/internal/platform/postgres"
	"stevedore/pkg/domain"
	"stevedore/pkg/fingerprint"
	"stevedore/pkg/platform/sentinel"
	txcontext "stevedore/pkg/platform/tx"
)

// Postgres persists documents against the documents/document_versions tables.
// Uniqueness of (type, primary_reference) and (document_id, fingerprint) is
// enforced by the schema; violations surface as sentinel.ErrAlreadyUsed.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Postgres) q(ctx context.Context) querier {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *Postgres) CreateIfAbsent(ctx context.Context, doc *models.Document) error {
	query := `
		INSERT INTO documents (id, doc_type, primary_reference, carrier_code, version_count, created_at, updated_at)
		VALUES ($1, $2, $3, $4, 0, $5, $5)
	`
	_, err := s.q(ctx).ExecContext(ctx, query,
		uuid.UUID(doc.ID), doc.Type.String(), doc.PrimaryReference, nullable(doc.CarrierCode), doc.CreatedAt,
	)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

const documentColumns = `id, doc_type, primary_reference, COALESCE(carrier_code, ''),
	COALESCE(current_version_id, '00000000-0000-0000-0000-000000000000'), version_count, created_at, updated_at`

func (s *Postgres) FindByTypeAndReference(ctx context.Context, docType domain.DocumentType, reference string) (*models.Document, error) {
	row := s.q(ctx).QueryRowContext(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE doc_type = $1 AND primary_reference = $2`,
		docType.String(), reference,
	)
	return scanDocument(row)
}

func (s *Postgres) FindByID(ctx context.Context, id domain.DocumentID) (*models.Document, error) {
	row := s.q(ctx).QueryRowContext(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE id = $1`, uuid.UUID(id),
	)
	return scanDocument(row)
}

func scanDocument(row *sql.Row) (*models.Document, error) {
	var doc models.Document
	var id, currentVersion uuid.UUID
	var docType string
	err := row.Scan(&id, &docType, &doc.PrimaryReference, &doc.CarrierCode,
		&currentVersion, &doc.VersionCount, &doc.CreatedAt, &doc.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan document: %w", err)
	}
	doc.ID = domain.DocumentID(id)
	doc.Type = domain.DocumentType(docType)
	doc.CurrentVersionID = domain.DocumentVersionID(currentVersion)
	return &doc, nil
}

func (s *Postgres) CreateVersion(ctx context.Context, v *models.DocumentVersion) error {
	query := `
		INSERT INTO document_versions
			(id, document_id, version_number, version_label, status, fingerprint, supersedes_id, source_email_id, attachment_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := s.q(ctx).ExecContext(ctx, query,
		uuid.UUID(v.ID), uuid.UUID(v.DocumentID), v.Number, nullable(v.Label), string(v.Status),
		v.Fingerprint.String(), nullableID(uuid.UUID(v.SupersedesID)),
		nullableID(uuid.UUID(v.SourceEmailID)), nullableID(uuid.UUID(v.AttachmentID)), v.CreatedAt,
	)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("insert document version: %w", err)
	}
	return nil
}

const versionColumns = `id, document_id, version_number, COALESCE(version_label, ''), status, fingerprint,
	COALESCE(supersedes_id, '00000000-0000-0000-0000-000000000000'),
	COALESCE(source_email_id, '00000000-0000-0000-0000-000000000000'),
	COALESCE(attachment_id, '00000000-0000-0000-0000-000000000000'), created_at`

func (s *Postgres) FindVersionByFingerprint(ctx context.Context, docID domain.DocumentID, fp fingerprint.Fingerprint) (*models.DocumentVersion, error) {
	row := s.q(ctx).QueryRowContext(ctx,
		`SELECT `+versionColumns+` FROM document_versions WHERE document_id = $1 AND fingerprint = $2`,
		uuid.UUID(docID), fp.String(),
	)
	return scanVersionRow(row)
}

func (s *Postgres) FindLatestVersion(ctx context.Context, docID domain.DocumentID) (*models.DocumentVersion, error) {
	row := s.q(ctx).QueryRowContext(ctx,
		`SELECT `+versionColumns+` FROM document_versions WHERE document_id = $1 ORDER BY version_number DESC LIMIT 1`,
		uuid.UUID(docID),
	)
	return scanVersionRow(row)
}

func (s *Postgres) ListVersions(ctx context.Context, docID domain.DocumentID) ([]*models.DocumentVersion, error) {
	rows, err := s.q(ctx).QueryContext(ctx,
		`SELECT `+versionColumns+` FROM document_versions WHERE document_id = $1 ORDER BY version_number ASC`,
		uuid.UUID(docID),
	)
	if err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	defer rows.Close()

	var out []*models.DocumentVersion
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanVersionRow(row *sql.Row) (*models.DocumentVersion, error) {
	v, err := scanVersion(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	return v, err
}

func scanVersion(row rowScanner) (*models.DocumentVersion, error) {
	var v models.DocumentVersion
	var id, docID, supersedes, emailID, attachmentID uuid.UUID
	var status, fp string
	err := row.Scan(&id, &docID, &v.Number, &v.Label, &status, &fp,
		&supersedes, &emailID, &attachmentID, &v.CreatedAt)
	if err != nil {
		return nil, err
	}
	v.ID = domain.DocumentVersionID(id)
	v.DocumentID = domain.DocumentID(docID)
	v.Status = models.VersionStatus(status)
	v.Fingerprint = fingerprint.Fingerprint(fp)
	v.SupersedesID = domain.DocumentVersionID(supersedes)
	v.SourceEmailID = domain.EmailID(emailID)
	v.AttachmentID = domain.AttachmentID(attachmentID)
	return &v, nil
}

// SetCurrentVersion is idempotent: re-applying the same version id leaves
// the row unchanged, and a stale pointer (lower version number) never
// overwrites a newer one.
func (s *Postgres) SetCurrentVersion(ctx context.Context, docID domain.DocumentID, versionID domain.DocumentVersionID, versionNumber int) error {
	query := `
		UPDATE documents
		SET current_version_id = $2, version_count = $3, updated_at = NOW()
		WHERE id = $1 AND version_count < $3
	`
	_, err := s.q(ctx).ExecContext(ctx, query, uuid.UUID(docID), uuid.UUID(versionID), versionNumber)
	if err != nil {
		return fmt.Errorf("set current version: %w", err)
	}
	return nil
}

func (s *Postgres) MarkSuperseded(ctx context.Context, versionID domain.DocumentVersionID) error {
	_, err := s.q(ctx).ExecContext(ctx,
		`UPDATE document_versions SET status = $2 WHERE id = $1`,
		uuid.UUID(versionID), string(models.VersionStatusSuperseded),
	)
	if err != nil {
		return fmt.Errorf("mark superseded: %w", err)
	}
	return nil
}

func (s *Postgres) SaveOrphanFingerprint(ctx context.Context, o *models.OrphanFingerprint) error {
	query := `
		INSERT INTO orphan_fingerprints (fingerprint, source_email_id, first_seen_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (fingerprint) DO NOTHING
	`
	_, err := s.q(ctx).ExecContext(ctx, query,
		o.Fingerprint.String(), nullableID(uuid.UUID(o.SourceEmailID)), o.FirstSeenAt,
	)
	if err != nil {
		return fmt.Errorf("save orphan fingerprint: %w", err)
	}
	return nil
}

func (s *Postgres) FindOrphanFingerprint(ctx context.Context, fp fingerprint.Fingerprint) (*models.OrphanFingerprint, error) {
	var o models.OrphanFingerprint
	var fpStr string
	var emailID uuid.UUID
	err := s.q(ctx).QueryRowContext(ctx,
		`SELECT fingerprint, COALESCE(source_email_id, '00000000-0000-0000-0000-000000000000'), first_seen_at
		 FROM orphan_fingerprints WHERE fingerprint = $1`, fp.String(),
	).Scan(&fpStr, &emailID, &o.FirstSeenAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find orphan fingerprint: %w", err)
	}
	o.Fingerprint = fingerprint.Fingerprint(fpStr)
	o.SourceEmailID = domain.EmailID(emailID)
	return &o, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullableID(id uuid.UUID) any {
	if id == uuid.Nil {
		return nil
	}
	return id
}

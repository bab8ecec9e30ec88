// Package service implements the document registry: it resolves
// (document type, reference number) to a Document and (Document, content
// fingerprint) to a DocumentVersion, deduplicating byte-identical deliveries.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	docmetrics "stevedore/internal/document/metrics"
	"stevedore/internal/document/models"
	"stevedore/pkg/domain"
	dErrors "stevedore/pkg/domain-errors"
	"stevedore/pkg/fingerprint"
	"stevedore/pkg/platform/sentinel"
	"stevedore/pkg/platform/tx"
	"stevedore/pkg/requestcontext"
)

// Store persists documents, versions, and orphaned fingerprints.
type Store interface {
	// CreateIfAbsent inserts doc unless a Document with the same
	// (type, primary reference) exists; sentinel.ErrAlreadyUsed signals the
	// conflict so concurrent registrations converge.
	CreateIfAbsent(ctx context.Context, doc *models.Document) error
	FindByTypeAndReference(ctx context.Context, docType domain.DocumentType, reference string) (*models.Document, error)
	FindByID(ctx context.Context, id domain.DocumentID) (*models.Document, error)

	// CreateVersion inserts a version; sentinel.ErrAlreadyUsed signals a
	// (document id, fingerprint) collision.
	CreateVersion(ctx context.Context, v *models.DocumentVersion) error
	FindVersionByFingerprint(ctx context.Context, docID domain.DocumentID, fp fingerprint.Fingerprint) (*models.DocumentVersion, error)
	FindLatestVersion(ctx context.Context, docID domain.DocumentID) (*models.DocumentVersion, error)
	ListVersions(ctx context.Context, docID domain.DocumentID) ([]*models.DocumentVersion, error)

	// SetCurrentVersion advances the document's current-version pointer and
	// version count. Idempotent: re-applying with the same version id is a
	// no-op.
	SetCurrentVersion(ctx context.Context, docID domain.DocumentID, versionID domain.DocumentVersionID, versionNumber int) error
	// MarkSuperseded flips the prior version's status once its successor is
	// durably linked.
	MarkSuperseded(ctx context.Context, versionID domain.DocumentVersionID) error

	// SaveOrphanFingerprint indexes content that yielded no reference.
	SaveOrphanFingerprint(ctx context.Context, o *models.OrphanFingerprint) error
	FindOrphanFingerprint(ctx context.Context, fp fingerprint.Fingerprint) (*models.OrphanFingerprint, error)
}

// Service is the document registry.
type Service struct {
	store   Store
	runner  tx.Runner
	logger  *slog.Logger
	metrics *docmetrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *docmetrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithTxRunner(r tx.Runner) Option {
	return func(s *Service) { s.runner = r }
}

func New(store Store, opts ...Option) *Service {
	s := &Service{store: store, runner: tx.NoopRunner{}, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RegisterAttachmentInput is one attachment (or email body) to register.
type RegisterAttachmentInput struct {
	Type                domain.DocumentType
	ReferenceCandidates []string
	Filename            string
	Content             string
	// Fingerprint may be pre-computed by the caller; computed from Content
	// when zero.
	Fingerprint   fingerprint.Fingerprint
	SourceEmailID domain.EmailID
	AttachmentID  domain.AttachmentID
}

// RegisterAttachment resolves the input to a Document and DocumentVersion.
//
// Write order inside the transaction is version, then document pointer, then
// supersede link; each step is individually idempotent so a retried unit of
// work converges instead of duplicating.
func (s *Service) RegisterAttachment(ctx context.Context, in RegisterAttachmentInput) (*models.RegistrationResult, error) {
	if in.Type == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "document type is required")
	}

	fp := in.Fingerprint
	if fp.IsZero() {
		fp = fingerprint.OfText(in.Content)
	}

	ref, ok := models.DeriveReference(in.ReferenceCandidates, in.Filename, in.Content)
	if !ok {
		// No reference derivable: hash-index the content so a later
		// delivery of the same bytes is still recognizable, and return a
		// null document.
		if err := s.registerOrphan(ctx, fp, in.SourceEmailID); err != nil {
			return nil, err
		}
		return &models.RegistrationResult{ReferenceFound: false}, nil
	}

	var result *models.RegistrationResult
	err := s.runner.RunInTx(ctx, func(txCtx context.Context) error {
		r, err := s.register(txCtx, in, ref, fp)
		if err != nil {
			return err
		}
		result = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.observe(result)
	s.logger.InfoContext(ctx, "attachment registered",
		"document_type", in.Type,
		"reference", ref.Reference,
		"pattern", ref.PatternName,
		"new_document", result.IsNewDocument,
		"new_version", result.IsNewVersion,
		"duplicate", result.IsDuplicate,
	)
	return result, nil
}

func (s *Service) register(ctx context.Context, in RegisterAttachmentInput, ref models.ReferenceMatch, fp fingerprint.Fingerprint) (*models.RegistrationResult, error) {
	now := requestcontext.Now(ctx)

	doc, isNewDoc, err := s.findOrCreateDocument(ctx, in.Type, ref, now)
	if err != nil {
		return nil, err
	}

	// Exact fingerprint match against the same Document is a duplicate and
	// returns the existing version untouched. Fingerprint uniqueness is
	// scoped to the Document: identical bytes under a different reference
	// are a distinct registration.
	existing, err := s.store.FindVersionByFingerprint(ctx, doc.ID, fp)
	if err == nil {
		return &models.RegistrationResult{
			DocumentID:     doc.ID,
			VersionID:      existing.ID,
			VersionNumber:  existing.Number,
			VersionLabel:   existing.Label,
			IsNewDocument:  isNewDoc,
			IsDuplicate:    true,
			ReferenceFound: true,
		}, nil
	}
	if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeTransient, "fingerprint lookup failed")
	}

	var prior *models.DocumentVersion
	if !isNewDoc {
		prior, err = s.store.FindLatestVersion(ctx, doc.ID)
		if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(err, dErrors.CodeTransient, "latest version lookup failed")
		}
	}

	version := &models.DocumentVersion{
		ID:            domain.NewDocumentVersionID(),
		DocumentID:    doc.ID,
		Number:        doc.VersionCount + 1,
		Label:         s.resolveLabel(in, prior),
		Status:        models.VersionStatusActive,
		Fingerprint:   fp,
		SourceEmailID: in.SourceEmailID,
		AttachmentID:  in.AttachmentID,
		CreatedAt:     now,
	}
	if prior != nil {
		version.SupersedesID = prior.ID
	}

	if err := s.store.CreateVersion(ctx, version); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			// Concurrent registration of the same bytes won the race;
			// re-read and report the duplicate.
			winner, ferr := s.store.FindVersionByFingerprint(ctx, doc.ID, fp)
			if ferr != nil {
				return nil, dErrors.Wrap(ferr, dErrors.CodeTransient, "duplicate re-read failed")
			}
			return &models.RegistrationResult{
				DocumentID:     doc.ID,
				VersionID:      winner.ID,
				VersionNumber:  winner.Number,
				VersionLabel:   winner.Label,
				IsNewDocument:  isNewDoc,
				IsDuplicate:    true,
				ReferenceFound: true,
			}, nil
		}
		return nil, dErrors.Wrap(err, dErrors.CodeTransient, "create version failed")
	}

	if err := s.store.SetCurrentVersion(ctx, doc.ID, version.ID, version.Number); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeTransient, "advance current version failed")
	}
	if prior != nil {
		if err := s.store.MarkSuperseded(ctx, prior.ID); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeTransient, "mark superseded failed")
		}
	}

	return &models.RegistrationResult{
		DocumentID:     doc.ID,
		VersionID:      version.ID,
		VersionNumber:  version.Number,
		VersionLabel:   version.Label,
		IsNewDocument:  isNewDoc,
		IsNewVersion:   true,
		ReferenceFound: true,
	}, nil
}

func (s *Service) findOrCreateDocument(ctx context.Context, docType domain.DocumentType, ref models.ReferenceMatch, now time.Time) (*models.Document, bool, error) {
	doc, err := s.store.FindByTypeAndReference(ctx, docType, ref.Reference)
	if err == nil {
		return doc, false, nil
	}
	if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, false, dErrors.Wrap(err, dErrors.CodeTransient, "document lookup failed")
	}

	doc = &models.Document{
		ID:               domain.NewDocumentID(),
		Type:             docType,
		PrimaryReference: ref.Reference,
		CarrierCode:      ref.CarrierCode,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.store.CreateIfAbsent(ctx, doc); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			// Lost the create race; the winner's row is the Document.
			existing, ferr := s.store.FindByTypeAndReference(ctx, docType, ref.Reference)
			if ferr != nil {
				return nil, false, dErrors.Wrap(ferr, dErrors.CodeTransient, "document re-read failed")
			}
			return existing, false, nil
		}
		return nil, false, dErrors.Wrap(err, dErrors.CodeTransient, "create document failed")
	}
	return doc, true, nil
}

// resolveLabel picks the version label. An explicitly numbered label always
// wins; the bare AMENDED/UPDATED/REVISED heuristic only applies when no
// numbered label was parsed, and it bumps from the prior explicit revision
// rather than inventing one.
func (s *Service) resolveLabel(in RegisterAttachmentInput, prior *models.DocumentVersion) string {
	label, ok := models.ParseVersionLabel(in.Filename, in.Content)
	if !ok {
		return ""
	}
	if !label.Heuristic {
		return label.Text
	}
	if prior != nil {
		if priorLabel, ok := models.ParseVersionLabel("", prior.Label); ok && priorLabel.Revision > 0 {
			return models.BumpedLabel(label.Text, priorLabel.Revision+1)
		}
	}
	return label.Text
}

func (s *Service) registerOrphan(ctx context.Context, fp fingerprint.Fingerprint, emailID domain.EmailID) error {
	orphan := &models.OrphanFingerprint{
		Fingerprint:   fp,
		SourceEmailID: emailID,
		FirstSeenAt:   requestcontext.Now(ctx),
	}
	if err := s.store.SaveOrphanFingerprint(ctx, orphan); err != nil && !errors.Is(err, sentinel.ErrAlreadyUsed) {
		return dErrors.Wrap(err, dErrors.CodeTransient, "save orphan fingerprint failed")
	}
	return nil
}

// GetDocument returns a document by id.
func (s *Service) GetDocument(ctx context.Context, id domain.DocumentID) (*models.Document, error) {
	doc, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "document not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeTransient, "document lookup failed")
	}
	return doc, nil
}

// ListVersions returns all versions of a document in registration order.
func (s *Service) ListVersions(ctx context.Context, id domain.DocumentID) ([]*models.DocumentVersion, error) {
	versions, err := s.store.ListVersions(ctx, id)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeTransient, "list versions failed")
	}
	return versions, nil
}

func (s *Service) observe(r *models.RegistrationResult) {
	if s.metrics == nil {
		return
	}
	switch {
	case r.IsDuplicate:
		s.metrics.IncDuplicate()
	case r.IsNewDocument:
		s.metrics.IncDocumentCreated()
		s.metrics.IncVersionCreated()
	case r.IsNewVersion:
		s.metrics.IncVersionCreated()
	}
}

//go:build integration

package store

import (
	"context"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/stretchr/testify/suite"

	"stevedore/internal/document/models"
	"stevedore/pkg/domain"
	"stevedore/pkg/fingerprint"
	"stevedore/pkg/platform/sentinel"
	"stevedore/pkg/testutil/containers"
)

// PostgresStoreSuite runs the document store against a real Postgres so the
// schema-level uniqueness rules are what the test exercises, not in-memory
// approximations of them.
type PostgresStoreSuite struct {
	suite.Suite
	pg    *containers.PostgresContainer
	store *Postgres
	ctx   context.Context
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.pg = containers.NewPostgresContainer(s.T(), "../../../migrations")
	s.store = NewPostgres(s.pg.DB)
	s.ctx = context.Background()
}

func (s *PostgresStoreSuite) TearDownSuite() {
	s.pg.Close(context.Background())
}

func (s *PostgresStoreSuite) SetupTest() {
	err := s.pg.TruncateAll(s.ctx, "document_versions", "documents", "orphan_fingerprints")
	s.Require().NoError(err)
}

func TestPostgresStoreSuite(t *testing.T) {
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) newDocument(reference string) *models.Document {
	return &models.Document{
		ID:               domain.NewDocumentID(),
		Type:             domain.DocTypeBookingConfirmation,
		PrimaryReference: reference,
		CarrierCode:      "MAEU",
		CreatedAt:        time.Now().UTC().Truncate(time.Microsecond),
	}
}

func (s *PostgresStoreSuite) TestCreateAndFindDocument() {
	doc := s.newDocument("EBKG12345678")
	s.Require().NoError(s.store.CreateIfAbsent(s.ctx, doc))

	found, err := s.store.FindByTypeAndReference(s.ctx, domain.DocTypeBookingConfirmation, "EBKG12345678")
	s.Require().NoError(err)
	s.Equal(doc.ID, found.ID)
	s.Equal("MAEU", found.CarrierCode)
	s.Equal(0, found.VersionCount)
}

func (s *PostgresStoreSuite) TestDuplicateIdentityRejected() {
	s.Require().NoError(s.store.CreateIfAbsent(s.ctx, s.newDocument("EBKG12345678")))

	err := s.store.CreateIfAbsent(s.ctx, s.newDocument("EBKG12345678"))
	s.ErrorIs(err, sentinel.ErrAlreadyUsed)
}

func (s *PostgresStoreSuite) TestFindMissingDocument() {
	_, err := s.store.FindByTypeAndReference(s.ctx, domain.DocTypeBookingConfirmation, "NOPE")
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestVersionFingerprintUnique() {
	doc := s.newDocument("EBKG12345678")
	s.Require().NoError(s.store.CreateIfAbsent(s.ctx, doc))

	fp := fingerprint.OfText("Booking No: EBKG12345678")
	v1 := &models.DocumentVersion{
		ID:          domain.NewDocumentVersionID(),
		DocumentID:  doc.ID,
		Number:      1,
		Status:      models.VersionStatusActive,
		Fingerprint: fp,
		CreatedAt:   time.Now().UTC(),
	}
	s.Require().NoError(s.store.CreateVersion(s.ctx, v1))

	dup := &models.DocumentVersion{
		ID:          domain.NewDocumentVersionID(),
		DocumentID:  doc.ID,
		Number:      2,
		Status:      models.VersionStatusActive,
		Fingerprint: fp,
		CreatedAt:   time.Now().UTC(),
	}
	s.ErrorIs(s.store.CreateVersion(s.ctx, dup), sentinel.ErrAlreadyUsed)

	found, err := s.store.FindVersionByFingerprint(s.ctx, doc.ID, fp)
	s.Require().NoError(err)
	s.Equal(v1.ID, found.ID)
}

func (s *PostgresStoreSuite) TestVersionChain() {
	doc := s.newDocument("EBKG12345678")
	s.Require().NoError(s.store.CreateIfAbsent(s.ctx, doc))

	v1 := &models.DocumentVersion{
		ID: domain.NewDocumentVersionID(), DocumentID: doc.ID, Number: 1,
		Status: models.VersionStatusActive, Fingerprint: fingerprint.OfText("rev 1"),
		CreatedAt: time.Now().UTC(),
	}
	s.Require().NoError(s.store.CreateVersion(s.ctx, v1))
	s.Require().NoError(s.store.SetCurrentVersion(s.ctx, doc.ID, v1.ID, 1))

	v2 := &models.DocumentVersion{
		ID: domain.NewDocumentVersionID(), DocumentID: doc.ID, Number: 2, Label: "AMENDED",
		Status: models.VersionStatusActive, Fingerprint: fingerprint.OfText("rev 2"),
		SupersedesID: v1.ID, CreatedAt: time.Now().UTC(),
	}
	s.Require().NoError(s.store.CreateVersion(s.ctx, v2))
	s.Require().NoError(s.store.MarkSuperseded(s.ctx, v1.ID))
	s.Require().NoError(s.store.SetCurrentVersion(s.ctx, doc.ID, v2.ID, 2))

	// A stale pointer write loses.
	s.Require().NoError(s.store.SetCurrentVersion(s.ctx, doc.ID, v1.ID, 1))

	found, err := s.store.FindByID(s.ctx, doc.ID)
	s.Require().NoError(err)
	s.Equal(v2.ID, found.CurrentVersionID)
	s.Equal(2, found.VersionCount)

	latest, err := s.store.FindLatestVersion(s.ctx, doc.ID)
	s.Require().NoError(err)
	s.Equal(v2.ID, latest.ID)
	s.Equal(v1.ID, latest.SupersedesID)

	versions, err := s.store.ListVersions(s.ctx, doc.ID)
	s.Require().NoError(err)
	s.Require().Len(versions, 2)
	s.Equal(models.VersionStatusSuperseded, versions[0].Status)
}

func (s *PostgresStoreSuite) TestOrphanFingerprintIdempotent() {
	fp := fingerprint.OfText("no reference anywhere")
	o := &models.OrphanFingerprint{
		Fingerprint:   fp,
		SourceEmailID: domain.NewEmailID(),
		FirstSeenAt:   time.Now().UTC().Truncate(time.Microsecond),
	}
	s.Require().NoError(s.store.SaveOrphanFingerprint(s.ctx, o))

	// Re-saving under a different email keeps the first sighting.
	again := &models.OrphanFingerprint{Fingerprint: fp, SourceEmailID: domain.NewEmailID(), FirstSeenAt: time.Now().UTC()}
	s.Require().NoError(s.store.SaveOrphanFingerprint(s.ctx, again))

	found, err := s.store.FindOrphanFingerprint(s.ctx, fp)
	s.Require().NoError(err)
	s.Equal(o.SourceEmailID, found.SourceEmailID)
}

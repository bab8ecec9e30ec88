package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"stevedore/internal/document/store"
	"stevedore/pkg/domain"
	dErrors "stevedore/pkg/domain-errors"
)

type DocumentServiceSuite struct {
	suite.Suite
	svc   *Service
	store *store.InMemory
	ctx   context.Context
}

func (s *DocumentServiceSuite) SetupTest() {
	s.store = store.NewInMemory()
	s.svc = New(s.store)
	s.ctx = context.Background()
}

func TestDocumentServiceSuite(t *testing.T) {
	suite.Run(t, new(DocumentServiceSuite))
}

func (s *DocumentServiceSuite) register(content, filename string) *RegisterAttachmentInput {
	return &RegisterAttachmentInput{
		Type:          domain.DocTypeBookingConfirmation,
		Filename:      filename,
		Content:       content,
		SourceEmailID: domain.NewEmailID(),
		AttachmentID:  domain.NewAttachmentID(),
	}
}

func (s *DocumentServiceSuite) TestIdempotentRegistration() {
	in := s.register("Booking confirmation MAEU123456789", "confirmation.pdf")

	first, err := s.svc.RegisterAttachment(s.ctx, *in)
	s.Require().NoError(err)
	s.True(first.IsNewDocument)
	s.True(first.IsNewVersion)
	s.False(first.IsDuplicate)
	s.Equal(1, first.VersionNumber)

	second, err := s.svc.RegisterAttachment(s.ctx, *in)
	s.Require().NoError(err)
	s.True(second.IsDuplicate)
	s.False(second.IsNewVersion)
	s.Equal(first.DocumentID, second.DocumentID)
	s.Equal(first.VersionID, second.VersionID)

	doc, err := s.svc.GetDocument(s.ctx, first.DocumentID)
	s.Require().NoError(err)
	s.Equal(1, doc.VersionCount, "duplicate must not change version count")
}

func (s *DocumentServiceSuite) TestVersionOrderingAndSupersedes() {
	contents := []string{
		"Booking confirmation MAEU123456789 ETD 2024-03-01",
		"Booking confirmation MAEU123456789 ETD 2024-03-05",
		"Booking confirmation MAEU123456789 ETD 2024-03-08",
	}

	var results []*storeResult
	for _, c := range contents {
		r, err := s.svc.RegisterAttachment(s.ctx, *s.register(c, ""))
		s.Require().NoError(err)
		results = append(results, &storeResult{docID: r.DocumentID, versionID: r.VersionID, number: r.VersionNumber})
	}

	for i, r := range results {
		s.Equal(i+1, r.number)
		s.Equal(results[0].docID, r.docID, "same reference converges on one document")
	}

	versions, err := s.svc.ListVersions(s.ctx, results[0].docID)
	s.Require().NoError(err)
	s.Require().Len(versions, 3)
	s.True(versions[0].SupersedesID.IsNil())
	s.Equal(versions[0].ID, versions[1].SupersedesID)
	s.Equal(versions[1].ID, versions[2].SupersedesID)
}

func (s *DocumentServiceSuite) TestSameBytesDifferentReferenceNotDuplicate() {
	// Byte-identical content under different reference numbers belongs to
	// different documents.
	a, err := s.svc.RegisterAttachment(s.ctx, *s.register("shared boilerplate", "BL_MAEU123456789.pdf"))
	s.Require().NoError(err)
	b, err := s.svc.RegisterAttachment(s.ctx, *s.register("shared boilerplate", "BL_MAEU987654321.pdf"))
	s.Require().NoError(err)

	s.NotEqual(a.DocumentID, b.DocumentID)
	s.False(b.IsDuplicate)
	s.True(b.IsNewDocument)
}

func (s *DocumentServiceSuite) TestNoReferenceYieldsNullDocument() {
	in := s.register("Dear team, please find attached.", "scan001.pdf")

	res, err := s.svc.RegisterAttachment(s.ctx, *in)
	s.Require().NoError(err)
	s.False(res.ReferenceFound)
	s.True(res.DocumentID.IsNil())

	// Registering the same unresolvable bytes again must not fail.
	res2, err := s.svc.RegisterAttachment(s.ctx, *in)
	s.Require().NoError(err)
	s.False(res2.ReferenceFound)
}

func (s *DocumentServiceSuite) TestVersionLabelParsing() {
	first, err := s.svc.RegisterAttachment(s.ctx, *s.register("SI DRAFT 1 for booking MAEU123456789", ""))
	s.Require().NoError(err)
	s.Equal("DRAFT 1", first.VersionLabel)

	second, err := s.svc.RegisterAttachment(s.ctx, *s.register("SI 3RD UPDATE for booking MAEU123456789", ""))
	s.Require().NoError(err)
	s.Equal("3RD UPDATE", second.VersionLabel)
}

func (s *DocumentServiceSuite) TestHeuristicAmendmentBumpsFromExplicitRevision() {
	_, err := s.svc.RegisterAttachment(s.ctx, *s.register("Booking MAEU123456789 DRAFT 2", ""))
	s.Require().NoError(err)

	res, err := s.svc.RegisterAttachment(s.ctx, *s.register("AMENDED booking MAEU123456789 new cutoff", ""))
	s.Require().NoError(err)
	s.Equal("AMENDED 3", res.VersionLabel, "heuristic bump continues from the explicit revision")
}

func (s *DocumentServiceSuite) TestMissingTypeRejected() {
	in := s.register("Booking MAEU123456789", "")
	in.Type = ""
	_, err := s.svc.RegisterAttachment(s.ctx, *in)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

type storeResult struct {
	docID     domain.DocumentID
	versionID domain.DocumentVersionID
	number    int
}

package models

import (
	"time"

	"stevedore/pkg/domain"
	"stevedore/pkg/fingerprint"
)

// Document is a unique business document identified by (type, primary
// reference number, optional carrier code).
//
// Invariants:
//   - At most one Document per (type, primary reference)
//   - VersionCount equals the number of versions ever registered; version
//     numbers are never reused
//   - CurrentVersionID points at the latest registered version
type Document struct {
	ID               domain.DocumentID
	Type             domain.DocumentType
	PrimaryReference string
	CarrierCode      string
	CurrentVersionID domain.DocumentVersionID
	VersionCount     int
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// VersionStatus is the lifecycle state of one document version.
type VersionStatus string

const (
	VersionStatusActive     VersionStatus = "active"
	VersionStatusSuperseded VersionStatus = "superseded"
)

// DocumentVersion is one observed content state of a Document.
//
// Invariants:
//   - Fingerprint is unique within its parent Document (the same bytes seen
//     twice under the same Document is a duplicate, not a new version)
//   - Number is monotonic and 1-based
type DocumentVersion struct {
	ID            domain.DocumentVersionID
	DocumentID    domain.DocumentID
	Number        int
	Label         string
	Status        VersionStatus
	Fingerprint   fingerprint.Fingerprint
	SupersedesID  domain.DocumentVersionID
	SourceEmailID domain.EmailID
	AttachmentID  domain.AttachmentID
	CreatedAt     time.Time
}

// OrphanFingerprint records content that could not be tied to a reference
// number. It keeps the hash indexed so a later delivery of the same bytes is
// still recognizable as previously seen.
type OrphanFingerprint struct {
	Fingerprint   fingerprint.Fingerprint
	SourceEmailID domain.EmailID
	FirstSeenAt   time.Time
}

// RegistrationResult reports one RegisterAttachment outcome.
type RegistrationResult struct {
	DocumentID    domain.DocumentID
	VersionID     domain.DocumentVersionID
	VersionNumber int
	VersionLabel  string
	IsNewDocument bool
	IsNewVersion  bool
	IsDuplicate   bool
	// ReferenceFound is false when no reference number could be derived; the
	// fingerprint was persisted but no Document exists.
	ReferenceFound bool
}

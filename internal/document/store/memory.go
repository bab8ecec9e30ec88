package store

import (
	"context"
	"sort"
	"sync"

	"stevedore/internal/document/models"
	"stevedore/pkg/domain"
	"stevedore/pkg/fingerprint"
	"stevedore/pkg/platform/sentinel"
)

// InMemory is the map-backed document store used by unit tests and local
// runs. It mirrors the uniqueness constraints the Postgres schema enforces.
type InMemory struct {
	mu       sync.RWMutex
	docs     map[domain.DocumentID]*models.Document
	byKey    map[docKey]domain.DocumentID
	versions map[domain.DocumentVersionID]*models.DocumentVersion
	byFP     map[versionKey]domain.DocumentVersionID
	orphans  map[fingerprint.Fingerprint]*models.OrphanFingerprint
}

type docKey struct {
	docType   domain.DocumentType
	reference string
}

type versionKey struct {
	docID domain.DocumentID
	fp    fingerprint.Fingerprint
}

func NewInMemory() *InMemory {
	return &InMemory{
		docs:     make(map[domain.DocumentID]*models.Document),
		byKey:    make(map[docKey]domain.DocumentID),
		versions: make(map[domain.DocumentVersionID]*models.DocumentVersion),
		byFP:     make(map[versionKey]domain.DocumentVersionID),
		orphans:  make(map[fingerprint.Fingerprint]*models.OrphanFingerprint),
	}
}

func (s *InMemory) CreateIfAbsent(_ context.Context, doc *models.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := docKey{docType: doc.Type, reference: doc.PrimaryReference}
	if _, exists := s.byKey[key]; exists {
		return sentinel.ErrAlreadyUsed
	}
	cp := *doc
	s.docs[doc.ID] = &cp
	s.byKey[key] = doc.ID
	return nil
}

func (s *InMemory) FindByTypeAndReference(_ context.Context, docType domain.DocumentType, reference string) (*models.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byKey[docKey{docType: docType, reference: reference}]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *s.docs[id]
	return &cp, nil
}

func (s *InMemory) FindByID(_ context.Context, id domain.DocumentID) (*models.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *doc
	return &cp, nil
}

func (s *InMemory) CreateVersion(_ context.Context, v *models.DocumentVersion) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := versionKey{docID: v.DocumentID, fp: v.Fingerprint}
	if _, exists := s.byFP[key]; exists {
		return sentinel.ErrAlreadyUsed
	}
	cp := *v
	s.versions[v.ID] = &cp
	s.byFP[key] = v.ID
	return nil
}

func (s *InMemory) FindVersionByFingerprint(_ context.Context, docID domain.DocumentID, fp fingerprint.Fingerprint) (*models.DocumentVersion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byFP[versionKey{docID: docID, fp: fp}]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *s.versions[id]
	return &cp, nil
}

func (s *InMemory) FindLatestVersion(_ context.Context, docID domain.DocumentID) (*models.DocumentVersion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var latest *models.DocumentVersion
	for _, v := range s.versions {
		if v.DocumentID != docID {
			continue
		}
		if latest == nil || v.Number > latest.Number {
			latest = v
		}
	}
	if latest == nil {
		return nil, sentinel.ErrNotFound
	}
	cp := *latest
	return &cp, nil
}

func (s *InMemory) ListVersions(_ context.Context, docID domain.DocumentID) ([]*models.DocumentVersion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.DocumentVersion
	for _, v := range s.versions {
		if v.DocumentID == docID {
			cp := *v
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

func (s *InMemory) SetCurrentVersion(_ context.Context, docID domain.DocumentID, versionID domain.DocumentVersionID, versionNumber int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[docID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if doc.CurrentVersionID == versionID {
		return nil
	}
	doc.CurrentVersionID = versionID
	doc.VersionCount = versionNumber
	return nil
}

func (s *InMemory) MarkSuperseded(_ context.Context, versionID domain.DocumentVersionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.versions[versionID]
	if !ok {
		return sentinel.ErrNotFound
	}
	v.Status = models.VersionStatusSuperseded
	return nil
}

func (s *InMemory) SaveOrphanFingerprint(_ context.Context, o *models.OrphanFingerprint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.orphans[o.Fingerprint]; exists {
		return sentinel.ErrAlreadyUsed
	}
	cp := *o
	s.orphans[o.Fingerprint] = &cp
	return nil
}

func (s *InMemory) FindOrphanFingerprint(_ context.Context, fp fingerprint.Fingerprint) (*models.OrphanFingerprint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.orphans[fp]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

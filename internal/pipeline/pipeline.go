// Package pipeline sequences the registries for one incoming unit of work:
// one email, optionally with one attachment. Document registration and the
// sender-identity lookup run in parallel; party resolution consumes both;
// shipment registration consumes party and document identifiers plus the
// extracted fields; the workflow registry runs only once a shipment
// resolved. A failed step is recorded, not fatal: later steps still run
// where their inputs are available, and partial success is first-class.
package pipeline

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	docmodels "stevedore/internal/document/models"
	docservice "stevedore/internal/document/service"
	"stevedore/internal/events"
	eventmodels "stevedore/internal/events/models"
	"stevedore/internal/extraction"
	partymodels "stevedore/internal/party/models"
	partyservice "stevedore/internal/party/service"
	shipmodels "stevedore/internal/shipment/models"
	shipservice "stevedore/internal/shipment/service"
	wfmodels "stevedore/internal/workflow/models"
	wfservice "stevedore/internal/workflow/service"
	"stevedore/pkg/domain"
	dErrors "stevedore/pkg/domain-errors"
)

// DocumentRegistry is the document-side dependency of the orchestrator.
type DocumentRegistry interface {
	RegisterAttachment(ctx context.Context, in docservice.RegisterAttachmentInput) (*docmodels.RegistrationResult, error)
}

// PartyRegistry resolves party sightings and email senders.
type PartyRegistry interface {
	Resolve(ctx context.Context, in partyservice.ResolveInput) (*partymodels.Resolution, error)
	ResolveSender(ctx context.Context, address, displayName string) (*partymodels.Resolution, error)
}

// ShipmentRegistry is the convergence point.
type ShipmentRegistry interface {
	Register(ctx context.Context, in shipservice.RegisterInput) (*shipmodels.RegisterResult, error)
}

// WorkflowRegistry records state transitions.
type WorkflowRegistry interface {
	RecordTransition(ctx context.Context, shipmentID domain.ShipmentID, docType domain.DocumentType, direction domain.Direction, refs wfservice.SourceRefs) (*wfmodels.TransitionResult, error)
}

// Extractor is the AI classification/extraction collaborator. Optional: a
// unit may arrive with its classification and fields already attached.
type Extractor interface {
	Extract(ctx context.Context, u Unit) (extraction.Classification, extraction.ShipmentFields, error)
}

// Email is the metadata of the incoming message.
type Email struct {
	ID          domain.EmailID
	FromAddress string
	FromDisplay string
	Subject     string
	// DeclaredDirection is the mailbox's own flag, refined by detection.
	DeclaredDirection domain.Direction
	ReceivedAt        time.Time
}

// Attachment is the optional document payload of the unit.
type Attachment struct {
	ID       domain.AttachmentID
	Filename string
	Content  string
}

// Unit is one (email, optional attachment) unit of work.
type Unit struct {
	Email      Email
	Attachment *Attachment
	// Classification and Fields may be pre-supplied; when empty and an
	// Extractor is configured, the orchestrator fills them.
	Classification extraction.Classification
	Fields         extraction.ShipmentFields
}

// StepError records one failed step without aborting the unit.
type StepError struct {
	Step string
	Err  error
}

// Result aggregates everything the unit produced. Success is the conjunction
// of all attempted steps; a partially-failed unit still reports whatever was
// durably recorded.
type Result struct {
	Success   bool
	Errors    []StepError
	Direction domain.Direction

	Document   *docmodels.RegistrationResult
	Sender     *partymodels.Resolution
	Parties    map[domain.PartyRole]domain.PartyID
	Shipment   *shipmodels.RegisterResult
	Transition *wfmodels.TransitionResult
}

func (r *Result) fail(step string, err error) {
	r.Errors = append(r.Errors, StepError{Step: step, Err: err})
}

// Orchestrator wires the registries together.
type Orchestrator struct {
	documents DocumentRegistry
	parties   PartyRegistry
	shipments ShipmentRegistry
	workflow  *workflowDeps
	extractor Extractor
	emitter   *events.Emitter
	logger    *slog.Logger
	tracer    trace.Tracer

	stepTimeout time.Duration
	// batchDelay spaces extraction calls apart in batch/backfill mode.
	batchDelay time.Duration
}

type workflowDeps struct {
	registry WorkflowRegistry
	detector *wfservice.Detector
}

type Option func(*Orchestrator)

func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = logger }
}

func WithExtractor(e Extractor) Option {
	return func(o *Orchestrator) { o.extractor = e }
}

func WithEmitter(e *events.Emitter) Option {
	return func(o *Orchestrator) { o.emitter = e }
}

func WithStepTimeout(d time.Duration) Option {
	return func(o *Orchestrator) { o.stepTimeout = d }
}

func WithBatchDelay(d time.Duration) Option {
	return func(o *Orchestrator) { o.batchDelay = d }
}

func New(
	documents DocumentRegistry,
	parties PartyRegistry,
	shipments ShipmentRegistry,
	workflow WorkflowRegistry,
	detector *wfservice.Detector,
	opts ...Option,
) *Orchestrator {
	o := &Orchestrator{
		documents:   documents,
		parties:     parties,
		shipments:   shipments,
		workflow:    &workflowDeps{registry: workflow, detector: detector},
		logger:      slog.Default(),
		tracer:      otel.Tracer("stevedore/pipeline"),
		stepTimeout: 10 * time.Second,
		batchDelay:  time.Second,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Process runs one unit through the registries.
func (o *Orchestrator) Process(ctx context.Context, u Unit) *Result {
	ctx, span := o.tracer.Start(ctx, "pipeline.process",
		trace.WithAttributes(attribute.String("email_id", u.Email.ID.String())))
	defer span.End()

	res := &Result{Parties: make(map[domain.PartyRole]domain.PartyID)}

	o.extract(ctx, &u, res)

	res.Direction = o.workflow.detector.Detect(wfservice.DirectionInput{
		FromAddress: u.Email.FromAddress,
		FromDisplay: u.Email.FromDisplay,
		Subject:     u.Email.Subject,
		Declared:    u.Email.DeclaredDirection,
	})

	// Document registration and sender lookup have no data dependency on
	// each other; run them in parallel with a shared deadline.
	o.registerAndLookup(ctx, u, res)

	o.resolveParties(ctx, u, res)
	o.registerShipment(ctx, u, res)
	o.recordTransition(ctx, u, res)

	res.Success = len(res.Errors) == 0
	o.logger.InfoContext(ctx, "unit processed",
		"email_id", u.Email.ID,
		"success", res.Success,
		"failed_steps", len(res.Errors),
	)
	return res
}

// ProcessBatch runs units sequentially with an explicit delay between them,
// which is the rate limit on the extraction collaborator in backfill mode.
func (o *Orchestrator) ProcessBatch(ctx context.Context, units []Unit) []*Result {
	results := make([]*Result, 0, len(units))
	for i, u := range units {
		if i > 0 && o.extractor != nil {
			select {
			case <-ctx.Done():
				return results
			case <-time.After(o.batchDelay):
			}
		}
		results = append(results, o.Process(ctx, u))
	}
	return results
}

func (o *Orchestrator) extract(ctx context.Context, u *Unit, res *Result) {
	if o.extractor == nil || u.Classification.DocumentType != "" {
		return
	}
	ctx, span := o.tracer.Start(ctx, "pipeline.extract")
	defer span.End()
	ctx, cancel := context.WithTimeout(ctx, o.stepTimeout)
	defer cancel()

	cls, fields, err := o.extractor.Extract(ctx, *u)
	if err != nil {
		// Extraction being unavailable is "no new information": record it
		// and continue with whatever the unit already carries.
		res.fail("extract", dErrors.Wrap(err, dErrors.CodeExtractionUnavailable, "extraction failed"))
		return
	}
	u.Classification = cls
	u.Fields = fields
}

func (o *Orchestrator) registerAndLookup(ctx context.Context, u Unit, res *Result) {
	ctx, cancel := context.WithTimeout(ctx, o.stepTimeout)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	// Each goroutine writes only its own slot; failures are folded into the
	// result after Wait so one step failing never cancels the other.
	var (
		doc       *docmodels.RegistrationResult
		docErr    error
		sender    *partymodels.Resolution
		senderErr error
	)

	g.Go(func() error {
		if u.Attachment == nil || u.Classification.DocumentType == "" {
			return nil
		}
		sctx, span := o.tracer.Start(gctx, "pipeline.document")
		defer span.End()
		doc, docErr = o.documents.RegisterAttachment(sctx, docservice.RegisterAttachmentInput{
			Type:                u.Classification.DocumentType,
			ReferenceCandidates: u.Classification.ReferenceCandidates,
			Filename:            u.Attachment.Filename,
			Content:             u.Attachment.Content,
			SourceEmailID:       u.Email.ID,
			AttachmentID:        u.Attachment.ID,
		})
		return nil
	})

	g.Go(func() error {
		if u.Email.FromAddress == "" {
			return nil
		}
		sctx, span := o.tracer.Start(gctx, "pipeline.sender")
		defer span.End()
		sender, senderErr = o.parties.ResolveSender(sctx, u.Email.FromAddress, u.Email.FromDisplay)
		return nil
	})

	_ = g.Wait()

	if docErr != nil {
		res.fail("document", docErr)
	} else {
		res.Document = doc
	}
	if senderErr != nil {
		res.fail("sender", senderErr)
	} else {
		res.Sender = sender
	}

	if res.Document != nil && o.emitter != nil {
		o.emitter.Emit(ctx, eventmodels.KindDocumentRegistered, domain.ShipmentID{}, map[string]any{
			"document_id":   res.Document.DocumentID.String(),
			"version":       res.Document.VersionNumber,
			"is_duplicate":  res.Document.IsDuplicate,
			"document_type": string(u.Classification.DocumentType),
		})
	}
}

// partySightings maps extracted party-name fields to their roles.
func partySightings(f extraction.ShipmentFields) []struct {
	role domain.PartyRole
	name *extraction.Value
} {
	return []struct {
		role domain.PartyRole
		name *extraction.Value
	}{
		{domain.RoleShipper, f.ShipperName},
		{domain.RoleConsignee, f.ConsigneeName},
		{domain.RoleNotifyParty, f.NotifyPartyName},
		{domain.RoleCarrier, f.CarrierName},
	}
}

func (o *Orchestrator) resolveParties(ctx context.Context, u Unit, res *Result) {
	ctx, span := o.tracer.Start(ctx, "pipeline.parties")
	defer span.End()
	ctx, cancel := context.WithTimeout(ctx, o.stepTimeout)
	defer cancel()

	for _, sighting := range partySightings(u.Fields) {
		if !sighting.name.IsSet() {
			continue
		}
		resolution, err := o.parties.Resolve(ctx, partyservice.ResolveInput{
			Name:       sighting.name.Get(),
			Role:       sighting.role,
			SourceType: u.Classification.DocumentType,
		})
		if err != nil {
			res.fail("party_"+string(sighting.role), err)
			continue
		}
		if resolution.Excluded {
			continue
		}
		res.Parties[sighting.role] = resolution.PartyID
	}
}

func (o *Orchestrator) registerShipment(ctx context.Context, u Unit, res *Result) {
	if !u.Fields.BookingNumber.IsSet() {
		// Nothing to converge on. Not an error: many mails (invoices,
		// general correspondence) carry no booking number.
		return
	}
	ctx, span := o.tracer.Start(ctx, "pipeline.shipment")
	defer span.End()
	ctx, cancel := context.WithTimeout(ctx, o.stepTimeout)
	defer cancel()

	links := shipservice.Linkage{
		EmailID:       u.Email.ID,
		ShipperID:     res.Parties[domain.RoleShipper],
		ConsigneeID:   res.Parties[domain.RoleConsignee],
		NotifyPartyID: res.Parties[domain.RoleNotifyParty],
		CarrierID:     res.Parties[domain.RoleCarrier],
	}
	if res.Document != nil {
		links.DocumentID = res.Document.DocumentID
	}

	sh, err := o.shipments.Register(ctx, shipservice.RegisterInput{
		BookingNumber: u.Fields.BookingNumber.Get(),
		Fields:        u.Fields,
		IsAmendment:   u.Classification.IsAmendment,
		Links:         links,
	})
	if err != nil {
		res.fail("shipment", err)
		return
	}
	res.Shipment = sh

	if o.emitter != nil {
		o.emitter.Emit(ctx, eventmodels.KindShipmentUpdated, sh.ShipmentID, map[string]any{
			"booking_number": u.Fields.BookingNumber.Get(),
			"new":            sh.IsNewShipment,
			"fields_updated": sh.FieldsUpdated,
		})
	}
}

func (o *Orchestrator) recordTransition(ctx context.Context, u Unit, res *Result) {
	if res.Shipment == nil || u.Classification.DocumentType == "" {
		return
	}
	ctx, span := o.tracer.Start(ctx, "pipeline.workflow")
	defer span.End()
	ctx, cancel := context.WithTimeout(ctx, o.stepTimeout)
	defer cancel()

	refs := wfservice.SourceRefs{EmailID: u.Email.ID}
	if res.Document != nil {
		refs.DocumentID = res.Document.DocumentID
	}
	tr, err := o.workflow.registry.RecordTransition(ctx,
		res.Shipment.ShipmentID, u.Classification.DocumentType, res.Direction, refs)
	if err != nil {
		res.fail("workflow", err)
		return
	}
	res.Transition = tr

	if tr.Accepted && o.emitter != nil {
		o.emitter.Emit(ctx, eventmodels.KindWorkflowTransitioned, res.Shipment.ShipmentID, map[string]any{
			"from": tr.FromState,
			"to":   tr.ToState,
		})
	}
}

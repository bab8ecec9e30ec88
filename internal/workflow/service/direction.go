package service

import (
	"regexp"
	"strings"

	"stevedore/pkg/domain"
	"stevedore/pkg/email"
)

// DirectionInput is the email metadata the detector works from.
type DirectionInput struct {
	FromAddress string
	FromDisplay string
	Subject     string
	// Declared is the mailbox's own inbound/outbound flag, trusted only when
	// nothing in the message contradicts it.
	Declared domain.Direction
}

// Detector classifies a message as authored by us (outbound) or by a
// counterparty (inbound). SelfDomains are the operating company's own mail
// domains; CarrierMarkers are names whose presence in a subject marks a
// relayed carrier notification.
type Detector struct {
	SelfDomains    []string
	CarrierMarkers []string
}

// DefaultCarrierMarkers covers the major ocean carriers seen in the wild.
var DefaultCarrierMarkers = []string{
	"MAERSK", "MSC", "CMA CGM", "CMA-CGM", "HAPAG", "HAPAG-LLOYD",
	"ONE", "OCEAN NETWORK EXPRESS", "EVERGREEN", "COSCO", "YANG MING", "ZIM", "HMM",
}

// viaRe matches forwarding display names like "Maersk Notification via Ops".
// The true author is the part before "via".
var viaRe = regexp.MustCompile(`(?i)^(.*\S)\s+via\s+\S`)

// carrierRefRe matches carrier-specific booking/BL number shapes in subject
// lines. A self-domain mail whose subject carries one of these is a relayed
// carrier notification, not something we authored.
var carrierRefRe = regexp.MustCompile(`\b(?:MAEU\d{9}|MSCU[A-Z0-9]{7,10}|EBKG\d{8}|CAD\d{7}|CMDU[A-Z0-9]{9}|HLCU[A-Z]{3}\d{9,10}|ONEY[A-Z0-9]{8,12}|EGLV\d{12}|COSU\d{10})\b`)

// oneWordRe keeps the carrier "ONE" from matching inside ordinary words.
var oneWordRe = regexp.MustCompile(`\bONE\b`)

func NewDetector(selfDomains []string) *Detector {
	return &Detector{SelfDomains: selfDomains, CarrierMarkers: DefaultCarrierMarkers}
}

// Detect runs the decision procedure:
//  1. Unwrap a "via"-forwarding display name to recover the original author.
//  2. A sender outside our own domains is always inbound.
//  3. A sender inside our own domains is inbound when the recovered author or
//     the subject carries a carrier marker or a carrier reference shape
//     (carrier-authored mail relayed through our notification address);
//     otherwise the declared mailbox direction stands.
func (d *Detector) Detect(in DirectionInput) domain.Direction {
	author := in.FromDisplay
	if m := viaRe.FindStringSubmatch(in.FromDisplay); m != nil {
		author = m[1]
	}

	if !d.isSelfDomain(email.Domain(in.FromAddress)) {
		return domain.DirectionInbound
	}

	if d.hasCarrierMarker(author) || d.hasCarrierMarker(in.Subject) || carrierRefRe.MatchString(strings.ToUpper(in.Subject)) {
		return domain.DirectionInbound
	}

	if in.Declared == domain.DirectionInbound || in.Declared == domain.DirectionOutbound {
		return in.Declared
	}
	return domain.DirectionOutbound
}

func (d *Detector) isSelfDomain(dom string) bool {
	for _, sd := range d.SelfDomains {
		if strings.EqualFold(dom, sd) {
			return true
		}
	}
	return false
}

func (d *Detector) hasCarrierMarker(s string) bool {
	up := strings.ToUpper(s)
	for _, marker := range d.CarrierMarkers {
		if marker == "ONE" {
			if oneWordRe.MatchString(up) {
				return true
			}
			continue
		}
		if strings.Contains(up, marker) {
			return true
		}
	}
	return false
}

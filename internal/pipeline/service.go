// Package pipeline orchestrates the positional assembly flow:
// validate → normalize → store under role → assemble when all three
// roles are occupied → publish → retire the consumed occupants.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/frameloop/frameloop/internal/intake"
	"github.com/frameloop/frameloop/internal/model"
	"github.com/frameloop/frameloop/internal/slot"
	"github.com/frameloop/frameloop/internal/synth"
	"github.com/frameloop/frameloop/internal/title"
)

// Publisher persists a finished artifact.
type Publisher interface {
	Publish(ctx context.Context, title string, data []byte) (model.Artifact, error)
}

// Notifier is told about each publication (live feed).
type Notifier interface {
	ArtifactPublished(art model.Artifact)
}

// Auditor records intake and synthesis events off the request path.
type Auditor interface {
	LogUpload(clientID, role, outcome, reason, key string)
	LogSynthesis(art model.Artifact, sources [3]string, took time.Duration)
}

// Service is the assembly pipeline behind the upload endpoint.
type Service struct {
	validator  *intake.Validator
	normalizer *intake.Normalizer
	slots      *slot.Store
	synth      *synth.Synthesizer
	titles     *title.Corpus
	pub        Publisher
	feed       Notifier
	audit      Auditor

	// assembleMu serializes the scan-synthesize-publish-delete sequence.
	// Without it two concurrent intakes can both observe a full triple
	// and double-consume occupants. Put and FindOne stay concurrent.
	// Holds within one process only; multi-instance deployments would
	// need a distributed lease here.
	assembleMu sync.Mutex
}

// NewService wires the pipeline.
func NewService(
	validator *intake.Validator,
	normalizer *intake.Normalizer,
	slots *slot.Store,
	synth *synth.Synthesizer,
	titles *title.Corpus,
	pub Publisher,
	feed Notifier,
	audit Auditor,
) *Service {
	return &Service{
		validator:  validator,
		normalizer: normalizer,
		slots:      slots,
		synth:      synth,
		titles:     titles,
		pub:        pub,
		feed:       feed,
		audit:      audit,
	}
}

// Ingest is the main business flow:
//
//  1. Validate the candidate (client-caused failures return *intake.Rejection)
//  2. Normalize to the canonical frame
//  3. Store as a role occupant
//  4. Attempt assembly; a failed attempt never fails the upload itself
//
// clientID is the admission identity, used only for audit records here.
func (s *Service) Ingest(ctx context.Context, clientID string, role model.Role, c model.Candidate) (*model.UploadResponse, error) {
	// ── Step 1: Validate ──
	src, err := s.validator.Validate(c)
	if err != nil {
		s.audit.LogUpload(clientID, role.String(), "rejected", err.Error(), "")
		return nil, err
	}

	// ── Step 2: Normalize ──
	normalized, err := s.normalizer.Normalize(src)
	if err != nil {
		s.audit.LogUpload(clientID, role.String(), "error", err.Error(), "")
		return nil, fmt.Errorf("normalize image: %w", err)
	}

	// ── Step 3: Store occupant ──
	occ, err := s.slots.Put(ctx, role, normalized, c.Filename)
	if err != nil {
		s.audit.LogUpload(clientID, role.String(), "error", err.Error(), "")
		return nil, fmt.Errorf("store occupant: %w", err)
	}
	s.audit.LogUpload(clientID, role.String(), "accepted", "", occ.Key)
	log.Printf("[pipeline] stored occupant role=%s key=%s client=%s", role, occ.Key, clientID)

	// ── Step 4: Try to assemble ──
	// The occupant is durably stored either way; assembly failure only
	// defers synthesis to a later intake.
	art, err := s.tryAssemble(ctx)
	if err != nil {
		log.Printf("[pipeline] assembly attempt failed: %v", err)
	}

	return &model.UploadResponse{ImageURL: occ.URI, Artifact: art}, nil
}

// tryAssemble scans the three roles and, when all are occupied,
// synthesizes one artifact from a random occupant of each. Source
// occupants are deleted only after successful publication; on a publish
// failure they stay in place for the next attempt.
func (s *Service) tryAssemble(ctx context.Context) (*model.Artifact, error) {
	s.assembleMu.Lock()
	defer s.assembleMu.Unlock()

	started := time.Now()

	var picks [3]*model.Occupant
	for i, role := range model.Roles {
		occ, err := s.slots.FindOne(ctx, role)
		if err != nil {
			return nil, fmt.Errorf("scan role %s: %w", role, err)
		}
		if occ == nil {
			return nil, nil // triple incomplete, the new occupant waits
		}
		picks[i] = occ
	}

	var frames [3][]byte
	for i, occ := range picks {
		data, err := s.slots.Get(ctx, occ.Key)
		if err != nil {
			return nil, fmt.Errorf("fetch occupant %s: %w", occ.Key, err)
		}
		frames[i] = data
	}

	encoded, err := s.synth.Synthesize(frames[0], frames[1], frames[2])
	if err != nil {
		return nil, fmt.Errorf("synthesize: %w", err)
	}

	art, err := s.pub.Publish(ctx, s.titles.Random(), encoded)
	if err != nil {
		return nil, fmt.Errorf("publish: %w", err)
	}

	// Best-effort cleanup: the artifact is already published, so a
	// failed delete only leaves a stale occupant for a later pick.
	var sources [3]string
	for i, occ := range picks {
		sources[i] = occ.Key
		if err := s.slots.Delete(ctx, occ.Key); err != nil {
			log.Printf("[pipeline] delete consumed occupant %s: %v", occ.Key, err)
		}
	}

	took := time.Since(started)
	log.Printf("[pipeline] published artifact key=%s title=%q in %s", art.Key, art.Title, took)

	s.audit.LogSynthesis(art, sources, took)
	s.feed.ArtifactPublished(art)

	return &art, nil
}

// Occupancy reports current occupant keys per role.
func (s *Service) Occupancy(ctx context.Context) (map[model.Role][]string, error) {
	return s.slots.Occupancy(ctx)
}

// PurgeOccupant removes a stuck occupant (admin surface).
func (s *Service) PurgeOccupant(ctx context.Context, key string) error {
	return s.slots.Delete(ctx, key)
}

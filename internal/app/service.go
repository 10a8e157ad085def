// Package app is the application layer, the only component that references
// multiple domain components. It orchestrates all citizen-facing use cases
// and owns the profile cache key.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/openmahalla/portalcore/internal/address"
	"github.com/openmahalla/portalcore/internal/apperrors"
	"github.com/openmahalla/portalcore/internal/domain"
	"github.com/openmahalla/portalcore/internal/fetchcache"
	"github.com/openmahalla/portalcore/internal/form"
	"github.com/openmahalla/portalcore/internal/workflow"
)

const defaultProfileStaleTime = 5 * time.Minute

// ProfileKey is the cache key for the citizen's own account record.
func ProfileKey() fetchcache.Key {
	return fetchcache.K("profile", "me")
}

// Service wires the workflow engine, region catalog and profile store
// behind the use cases the HTTP layer exposes.
type Service struct {
	flow     *workflow.Service
	cache    *fetchcache.Store
	catalog  domain.RegionCatalog
	profiles domain.ProfileStore

	catalogStaleTime time.Duration
	profileStaleTime time.Duration
}

func NewService(flow *workflow.Service, cache *fetchcache.Store, catalog domain.RegionCatalog, profiles domain.ProfileStore, catalogStaleTime, profileStaleTime time.Duration) *Service {
	if profileStaleTime <= 0 {
		profileStaleTime = defaultProfileStaleTime
	}
	return &Service{
		flow:             flow,
		cache:            cache,
		catalog:          catalog,
		profiles:         profiles,
		catalogStaleTime: catalogStaleTime,
		profileStaleTime: profileStaleTime,
	}
}

// ListSubmissions returns the citizen's submissions of one kind.
func (s *Service) ListSubmissions(ctx context.Context, kind domain.Kind) ([]domain.Submission, error) {
	return s.flow.ListMine(ctx, kind)
}

// GetSubmission returns one of the citizen's submissions by id.
func (s *Service) GetSubmission(ctx context.Context, kind domain.Kind, id string) (*domain.Submission, error) {
	return s.flow.GetMine(ctx, kind, id)
}

// ListRegions lists one catalog level, cached under the same keys the
// address resolver uses so wizard and listing traffic share entries.
// Non-root levels require a parent.
func (s *Service) ListRegions(ctx context.Context, nodeType domain.GeoNodeType, parentID string) ([]domain.GeoNode, error) {
	switch nodeType {
	case domain.GeoRegion:
		if parentID != "" {
			return nil, apperrors.Validation("regions are the root level and take no parent")
		}
	case domain.GeoDistrict, domain.GeoNeighborhood, domain.GeoStreet:
		if parentID == "" {
			return nil, apperrors.Validation(fmt.Sprintf("listing %s entries requires a parent", nodeType))
		}
	default:
		return nil, apperrors.Validation(fmt.Sprintf("unknown catalog level %q", nodeType))
	}

	return fetchcache.Query(ctx, s.cache, address.CatalogKey(nodeType, parentID), func(ctx context.Context) ([]domain.GeoNode, error) {
		return s.catalog.ListGeoNodes(ctx, nodeType, parentID)
	}, fetchcache.Options{Enabled: true, StaleTime: s.catalogStaleTime})
}

// GetProfile returns the citizen's account record, cached under the profile key.
func (s *Service) GetProfile(ctx context.Context) (*domain.Profile, error) {
	return fetchcache.Query(ctx, s.cache, ProfileKey(), func(ctx context.Context) (*domain.Profile, error) {
		return s.profiles.GetProfile(ctx)
	}, fetchcache.Options{Enabled: true, StaleTime: s.profileStaleTime})
}

// SaveAddress re-validates a completed address draft and commits it to the
// profile. The wizard already validated client-side; running the draft
// through a fresh resolver keeps the invariants authoritative here.
func (s *Service) SaveAddress(ctx context.Context, addr domain.Address) (domain.Address, error) {
	resolver := address.NewResolver(s.cache, s.catalog, s.catalogStaleTime)
	resolver.PrefillFromExisting(&addr)

	built, err := resolver.Build()
	if err != nil {
		return domain.Address{}, err
	}

	_, err = fetchcache.Mutate(ctx, s.cache, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.profiles.SaveAddress(ctx, built)
	})
	if err != nil {
		return domain.Address{}, err
	}

	s.cache.Invalidate(ProfileKey())
	return built, nil
}

// SubmissionInput is the citizen-entered content of a create or edit.
type SubmissionInput struct {
	CategoryRef string
	ServiceRef  string
	Description string
	Contact     domain.Contact
	Address     *domain.Address
}

// CreateSubmission drives a full create form: description step, contact
// step with one-time profile prefill, then submit. An address attached to
// the input is re-validated before it reaches the upstream.
func (s *Service) CreateSubmission(ctx context.Context, kind domain.Kind, input SubmissionInput) (*domain.Submission, error) {
	addr := input.Address
	if addr != nil {
		resolver := address.NewResolver(s.cache, s.catalog, s.catalogStaleTime)
		resolver.PrefillFromExisting(addr)
		built, err := resolver.Build()
		if err != nil {
			return nil, err
		}
		addr = &built
	}

	controller := form.NewCreate(s.flow, kind, input.CategoryRef, input.ServiceRef, addr)
	return s.drive(ctx, controller, input)
}

// UpdateSubmission drives an edit form against the cached submission. The
// workflow engine still guards the open-state rule.
func (s *Service) UpdateSubmission(ctx context.Context, kind domain.Kind, id string, input SubmissionInput) (*domain.Submission, error) {
	existing, err := s.flow.GetMine(ctx, kind, id)
	if err != nil {
		return nil, err
	}

	controller := form.NewEdit(s.flow, existing)
	return s.drive(ctx, controller, input)
}

func (s *Service) drive(ctx context.Context, controller *form.Controller, input SubmissionInput) (*domain.Submission, error) {
	controller.SetDescription(input.Description)
	if err := controller.Advance(); err != nil {
		return nil, err
	}

	controller.SetContact(input.Contact.FirstName, input.Contact.LastName, input.Contact.Phone)

	// Best effort: an unreachable profile only costs the prefill.
	if profile, err := s.GetProfile(ctx); err == nil {
		controller.PrefillContact(profile)
	} else {
		slog.DebugContext(ctx, "Contact prefill skipped", "error", err)
	}

	return controller.Submit(ctx)
}

// CancelSubmission cancels one of the citizen's submissions by id.
func (s *Service) CancelSubmission(ctx context.Context, kind domain.Kind, id string, reason string) (*domain.Submission, error) {
	sub, err := s.flow.GetMine(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	return s.flow.Cancel(ctx, sub, reason)
}

// ConfirmSubmission accepts or disputes a resolution claim.
func (s *Service) ConfirmSubmission(ctx context.Context, kind domain.Kind, id string, confirmed bool) (*domain.Submission, error) {
	sub, err := s.flow.GetMine(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	return s.flow.Confirm(ctx, sub, confirmed)
}

// LatestReport returns the newest report filed against a service. Reports
// are append-only per service; the newest one decides which actions the
// citizen is offered.
func (s *Service) LatestReport(ctx context.Context, serviceRef string) (*domain.Submission, error) {
	if serviceRef == "" {
		return nil, apperrors.Validation("service is required")
	}
	reports, err := s.flow.ListMine(ctx, domain.KindServiceReport)
	if err != nil {
		return nil, err
	}
	latest := workflow.LatestForService(reports, serviceRef)
	if latest == nil {
		return nil, apperrors.NotFound(fmt.Sprintf("no report filed for service %q", serviceRef))
	}
	return latest, nil
}

// ReopenReport files a fresh outage report for the same service as a
// finished one.
func (s *Service) ReopenReport(ctx context.Context, id string) (*domain.Submission, error) {
	report, err := s.flow.GetMine(ctx, domain.KindServiceReport, id)
	if err != nil {
		return nil, err
	}
	return s.flow.ReopenAsUnavailable(ctx, report)
}

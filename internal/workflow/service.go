// Package workflow is the submission status state machine. One generic
// engine drives all three submission kinds from a per-kind rule table;
// guards fire before any upstream call, and every successful mutation
// synchronously invalidates the cache keys it could have changed.
package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/openmahalla/portalcore/internal/apperrors"
	"github.com/openmahalla/portalcore/internal/domain"
	"github.com/openmahalla/portalcore/internal/fetchcache"
	"github.com/openmahalla/portalcore/internal/metrics"
)

const defaultListStaleTime = 30 * time.Second

// ListKey is the cache key for a kind's "my submissions" list.
func ListKey(kind domain.Kind) fetchcache.Key {
	return fetchcache.K("submissions", string(kind), "my")
}

// DetailKey is the cache key for a single cached submission.
func DetailKey(kind domain.Kind, id string) fetchcache.Key {
	return fetchcache.K("submissions", string(kind), id)
}

// Service coordinates submission reads and mutations through the fetch
// cache. It is the only component that writes submission state.
type Service struct {
	api           domain.SubmissionAPI
	cache         *fetchcache.Store
	listStaleTime time.Duration
}

// NewService creates the workflow engine. listStaleTime <= 0 falls back to
// the default window.
func NewService(api domain.SubmissionAPI, cache *fetchcache.Store, listStaleTime time.Duration) *Service {
	if listStaleTime <= 0 {
		listStaleTime = defaultListStaleTime
	}
	return &Service{api: api, cache: cache, listStaleTime: listStaleTime}
}

// ListMine returns the citizen's submissions of one kind, cached under the
// kind's list key.
func (s *Service) ListMine(ctx context.Context, kind domain.Kind) ([]domain.Submission, error) {
	if _, ok := RulesFor(kind); !ok {
		return nil, apperrors.Validation(fmt.Sprintf("unknown submission kind %q", kind))
	}
	return fetchcache.Query(ctx, s.cache, ListKey(kind), func(ctx context.Context) ([]domain.Submission, error) {
		return s.api.ListMine(ctx, kind)
	}, fetchcache.Options{Enabled: true, StaleTime: s.listStaleTime})
}

// GetMine returns one of the citizen's submissions by id, cached under the
// detail key. The upstream API has no detail endpoint for own submissions,
// so the loader lists and picks.
func (s *Service) GetMine(ctx context.Context, kind domain.Kind, id string) (*domain.Submission, error) {
	if _, ok := RulesFor(kind); !ok {
		return nil, apperrors.Validation(fmt.Sprintf("unknown submission kind %q", kind))
	}
	return fetchcache.Query(ctx, s.cache, DetailKey(kind, id), func(ctx context.Context) (*domain.Submission, error) {
		list, err := s.api.ListMine(ctx, kind)
		if err != nil {
			return nil, err
		}
		for i := range list {
			if list[i].ID == id {
				return &list[i], nil
			}
		}
		return nil, apperrors.NotFound(fmt.Sprintf("%s %s not found", kind, id))
	}, fetchcache.Options{Enabled: true, StaleTime: s.listStaleTime})
}

// Create submits a new submission. The created record starts in the kind's
// open state upstream; on success the kind's list key is invalidated.
func (s *Service) Create(ctx context.Context, kind domain.Kind, payload domain.CreateSubmission) (*domain.Submission, error) {
	if _, ok := RulesFor(kind); !ok {
		return nil, apperrors.Validation(fmt.Sprintf("unknown submission kind %q", kind))
	}

	created, err := fetchcache.Mutate(ctx, s.cache, func(ctx context.Context) (*domain.Submission, error) {
		return s.api.Create(ctx, kind, payload)
	})
	if err != nil {
		metrics.WorkflowOpsTotal.WithLabelValues(string(kind), "create", "error").Inc()
		return nil, err
	}

	s.cache.Invalidate(ListKey(kind))
	metrics.WorkflowOpsTotal.WithLabelValues(string(kind), "create", "success").Inc()
	return created, nil
}

// Edit updates a submission still in its kind's open state. Any other
// status is rejected with NotEditable before the upstream is touched.
func (s *Service) Edit(ctx context.Context, sub *domain.Submission, patch domain.SubmissionPatch) (*domain.Submission, error) {
	rules, ok := RulesFor(sub.Kind)
	if !ok {
		return nil, apperrors.Validation(fmt.Sprintf("unknown submission kind %q", sub.Kind))
	}
	if sub.Status != rules.Open {
		metrics.WorkflowOpsTotal.WithLabelValues(string(sub.Kind), "edit", "guard_rejected").Inc()
		return nil, apperrors.NotEditable(fmt.Sprintf("submission in status %q can no longer be edited", sub.Status)).
			WithContext("id", sub.ID)
	}

	updated, err := fetchcache.Mutate(ctx, s.cache, func(ctx context.Context) (*domain.Submission, error) {
		return s.api.Update(ctx, sub.Kind, sub.ID, patch)
	})
	if err != nil {
		metrics.WorkflowOpsTotal.WithLabelValues(string(sub.Kind), "edit", "error").Inc()
		return nil, err
	}

	s.invalidateSubmission(sub.Kind, sub.ID)
	metrics.WorkflowOpsTotal.WithLabelValues(string(sub.Kind), "edit", "success").Inc()
	return updated, nil
}

// Cancel moves a submission to cancelled, storing the optional reason.
// Statuses in the kind's terminal-or-pending-confirmation set are rejected
// with NotCancellable.
func (s *Service) Cancel(ctx context.Context, sub *domain.Submission, reason string) (*domain.Submission, error) {
	rules, ok := RulesFor(sub.Kind)
	if !ok {
		return nil, apperrors.Validation(fmt.Sprintf("unknown submission kind %q", sub.Kind))
	}
	if !rules.Statuses[sub.Status] {
		return nil, apperrors.InvalidTransition(fmt.Sprintf("unknown status %q for kind %q", sub.Status, sub.Kind))
	}
	if rules.CancelDisallowed[sub.Status] {
		metrics.WorkflowOpsTotal.WithLabelValues(string(sub.Kind), "cancel", "guard_rejected").Inc()
		return nil, apperrors.NotCancellable(fmt.Sprintf("submission in status %q cannot be cancelled", sub.Status)).
			WithContext("id", sub.ID)
	}

	cancelled, err := fetchcache.Mutate(ctx, s.cache, func(ctx context.Context) (*domain.Submission, error) {
		return s.api.Cancel(ctx, sub.Kind, sub.ID, reason)
	})
	if err != nil {
		metrics.WorkflowOpsTotal.WithLabelValues(string(sub.Kind), "cancel", "error").Inc()
		return nil, err
	}

	s.invalidateSubmission(sub.Kind, sub.ID)
	metrics.WorkflowOpsTotal.WithLabelValues(string(sub.Kind), "cancel", "success").Inc()
	return cancelled, nil
}

// Confirm acknowledges or disputes an administrator's claim of resolution.
// Only pending_confirmation submissions accept it. confirmed=true lands on
// confirmed; confirmed=false returns the submission to the kind's working
// state, never to a terminal one.
func (s *Service) Confirm(ctx context.Context, sub *domain.Submission, confirmed bool) (*domain.Submission, error) {
	if _, ok := RulesFor(sub.Kind); !ok {
		return nil, apperrors.Validation(fmt.Sprintf("unknown submission kind %q", sub.Kind))
	}
	if !CanConfirm(sub) {
		metrics.WorkflowOpsTotal.WithLabelValues(string(sub.Kind), "confirm", "guard_rejected").Inc()
		return nil, apperrors.InvalidTransition(fmt.Sprintf("submission in status %q is not awaiting confirmation", sub.Status)).
			WithContext("id", sub.ID)
	}

	result, err := fetchcache.Mutate(ctx, s.cache, func(ctx context.Context) (*domain.Submission, error) {
		return s.api.Confirm(ctx, sub.Kind, sub.ID, confirmed)
	})
	if err != nil {
		metrics.WorkflowOpsTotal.WithLabelValues(string(sub.Kind), "confirm", "error").Inc()
		return nil, err
	}

	s.invalidateSubmission(sub.Kind, sub.ID)
	metrics.WorkflowOpsTotal.WithLabelValues(string(sub.Kind), "confirm", "success").Inc()
	return result, nil
}

// ReopenAsUnavailable files a fresh outage report for the same service after
// the previous one reached confirmed, rejected or cancelled. Report history
// is append-only per service: the old report is never mutated.
func (s *Service) ReopenAsUnavailable(ctx context.Context, report *domain.Submission) (*domain.Submission, error) {
	if report.Kind != domain.KindServiceReport {
		return nil, apperrors.InvalidTransition(fmt.Sprintf("%s submissions cannot be reopened", report.Kind))
	}
	switch report.Status {
	case domain.StatusConfirmed, domain.StatusRejected, domain.StatusCancelled:
	default:
		metrics.WorkflowOpsTotal.WithLabelValues(string(report.Kind), "reopen", "guard_rejected").Inc()
		return nil, apperrors.InvalidTransition(fmt.Sprintf("report in status %q cannot be reopened", report.Status)).
			WithContext("id", report.ID)
	}

	return s.Create(ctx, domain.KindServiceReport, domain.CreateSubmission{
		ServiceRef:  report.ServiceRef,
		Description: report.Description,
		Contact:     report.Contact,
	})
}

// LatestForService picks the newest report filed against a service.
// Reports are append-only; the newest one decides which actions the citizen
// is offered.
func LatestForService(reports []domain.Submission, serviceRef string) *domain.Submission {
	var latest *domain.Submission
	for i := range reports {
		r := &reports[i]
		if r.ServiceRef != serviceRef {
			continue
		}
		if latest == nil || r.CreatedAt.After(latest.CreatedAt) {
			latest = r
		}
	}
	return latest
}

// invalidateSubmission clears the list and detail keys in the same task
// turn as the successful mutation, before any view re-reads the cache.
func (s *Service) invalidateSubmission(kind domain.Kind, id string) {
	s.cache.Invalidate(ListKey(kind))
	s.cache.Invalidate(DetailKey(kind, id))
}

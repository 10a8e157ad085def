// Package form drives the two-step submission create/edit flow: step one
// collects the description, step two the contact details. The controller
// encodes the edge-case policy the views rely on: one-time contact prefill,
// no double submit, and state preservation across failed attempts.
package form

import (
	"context"
	"strings"
	"sync"

	"github.com/openmahalla/portalcore/internal/apperrors"
	"github.com/openmahalla/portalcore/internal/domain"
	"github.com/openmahalla/portalcore/internal/workflow"
)

const (
	StepDescription = 1
	StepContact     = 2
)

// Controller is the working state of one create or edit form.
type Controller struct {
	flow *workflow.Service

	kind        domain.Kind
	categoryRef string
	serviceRef  string
	address     *domain.Address
	existing    *domain.Submission

	mu          sync.Mutex
	step        int
	description string
	contact     domain.Contact
	prefilled   bool
	inFlight    bool
	lastError   string
}

// NewCreate starts a creation form. The address, when the kind carries one,
// is a completed resolver draft attached to the new submission.
func NewCreate(flow *workflow.Service, kind domain.Kind, categoryRef, serviceRef string, address *domain.Address) *Controller {
	return &Controller{
		flow:        flow,
		kind:        kind,
		categoryRef: categoryRef,
		serviceRef:  serviceRef,
		address:     address,
		step:        StepDescription,
	}
}

// NewEdit starts an edit form seeded from the existing submission. The
// workflow engine still guards the actual edit; the form only carries state.
func NewEdit(flow *workflow.Service, existing *domain.Submission) *Controller {
	return &Controller{
		flow:        flow,
		kind:        existing.Kind,
		categoryRef: existing.CategoryRef,
		existing:    existing,
		step:        StepDescription,
		description: existing.Description,
		contact:     existing.Contact,
		prefilled:   true,
	}
}

func (c *Controller) Step() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.step
}

func (c *Controller) SetDescription(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.description = text
}

func (c *Controller) SetContact(firstName, lastName, phone string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.contact = domain.Contact{FirstName: firstName, LastName: lastName, Phone: phone}
}

// PrefillContact seeds empty contact fields from the profile. It applies on
// first entry only; anything the citizen has already typed stays.
func (c *Controller) PrefillContact(profile *domain.Profile) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.prefilled || profile == nil {
		return
	}
	c.prefilled = true
	if c.contact.FirstName == "" {
		c.contact.FirstName = profile.FirstName
	}
	if c.contact.LastName == "" {
		c.contact.LastName = profile.LastName
	}
	if c.contact.Phone == "" {
		c.contact.Phone = profile.Phone
	}
}

// Advance moves from the description step to the contact step, rejecting an
// empty description.
func (c *Controller) Advance() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.step != StepDescription {
		return nil
	}
	if strings.TrimSpace(c.description) == "" {
		return apperrors.Validation("enter a description")
	}
	c.step = StepContact
	return nil
}

func (c *Controller) Back() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.step == StepContact {
		c.step = StepDescription
	}
}

// InFlight reports whether a submit is pending. Views disable every input
// and the trigger itself while this is true.
func (c *Controller) InFlight() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inFlight
}

// LastError returns the failure message of the most recent submit attempt,
// empty after a success.
func (c *Controller) LastError() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastError
}

// Submit validates both steps and runs the create or edit mutation. A
// submit while another is pending is rejected without touching the
// workflow; a failed submit preserves the citizen's input and records the
// failure message. The form never retries on its own.
func (c *Controller) Submit(ctx context.Context) (*domain.Submission, error) {
	c.mu.Lock()
	if c.inFlight {
		c.mu.Unlock()
		return nil, apperrors.Validation("a submission is already in progress")
	}
	if err := c.validateLocked(); err != nil {
		c.mu.Unlock()
		return nil, err
	}
	c.inFlight = true
	description := strings.TrimSpace(c.description)
	contact := domain.Contact{
		FirstName: strings.TrimSpace(c.contact.FirstName),
		LastName:  strings.TrimSpace(c.contact.LastName),
		Phone:     strings.TrimSpace(c.contact.Phone),
	}
	c.mu.Unlock()

	var (
		sub *domain.Submission
		err error
	)
	if c.existing != nil {
		sub, err = c.flow.Edit(ctx, c.existing, domain.SubmissionPatch{
			CategoryRef: c.categoryRef,
			Description: description,
			Contact:     contact,
		})
	} else {
		sub, err = c.flow.Create(ctx, c.kind, domain.CreateSubmission{
			CategoryRef: c.categoryRef,
			ServiceRef:  c.serviceRef,
			Description: description,
			Contact:     contact,
			Address:     c.address,
		})
	}

	c.mu.Lock()
	c.inFlight = false
	if err != nil {
		c.lastError = apperrors.AsStructuredError(err).Message
	} else {
		c.lastError = ""
	}
	c.mu.Unlock()

	return sub, err
}

func (c *Controller) validateLocked() error {
	if strings.TrimSpace(c.description) == "" {
		return apperrors.Validation("enter a description")
	}
	if strings.TrimSpace(c.contact.FirstName) == "" {
		return apperrors.Validation("enter the first name")
	}
	if strings.TrimSpace(c.contact.LastName) == "" {
		return apperrors.Validation("enter the last name")
	}
	if strings.TrimSpace(c.contact.Phone) == "" {
		return apperrors.Validation("enter the phone number")
	}
	return nil
}

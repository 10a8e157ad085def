package domain

import (
	"context"
	"time"
)

// Kind identifies which submission family a record belongs to. The kind
// selects the status set and transition rules that apply to it.
type Kind string

const (
	KindRequest       Kind = "request"
	KindServiceReport Kind = "service-report"
	KindMskOrder      Kind = "msk-order"
)

// Kinds lists all submission kinds in a stable order.
var Kinds = []Kind{KindRequest, KindServiceReport, KindMskOrder}

type Status string

const (
	StatusPending             Status = "pending"
	StatusInReview            Status = "in_review"
	StatusResolved            Status = "resolved"
	StatusUnavailable         Status = "unavailable"
	StatusInProgress          Status = "in_progress"
	StatusPendingConfirmation Status = "pending_confirmation"
	StatusConfirmed           Status = "confirmed"
	StatusRejected            Status = "rejected"
	StatusCancelled           Status = "cancelled"
)

// Contact is the reachable-person block every submission carries.
type Contact struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Phone     string `json:"phone"`
}

// Submission generalizes the three citizen-facing record types: service
// requests, utility outage reports and maintenance-company work orders.
// Address is only present for request and msk-order kinds.
type Submission struct {
	ID              string    `json:"id"`
	Kind            Kind      `json:"kind"`
	CategoryRef     string    `json:"category"`
	ServiceRef      string    `json:"service,omitempty"`
	Description     string    `json:"description"`
	Contact         Contact   `json:"contact"`
	Status          Status    `json:"status"`
	RejectionReason string    `json:"rejectionReason,omitempty"`
	CancelReason    string    `json:"cancelReason,omitempty"`
	Address         *Address  `json:"address,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
}

// StatusLabels maps each kind's statuses to their display labels. The
// gateway attaches these to list and detail payloads so the web client does
// not maintain its own lookup table.
var StatusLabels = map[Kind]map[Status]string{
	KindRequest: {
		StatusPending:   "Kutilmoqda",
		StatusInReview:  "Ko'rib chiqilmoqda",
		StatusResolved:  "Yechildi",
		StatusRejected:  "Rad etildi",
		StatusCancelled: "Bekor qilingan",
	},
	KindServiceReport: {
		StatusUnavailable:         "Mavjud emas",
		StatusInProgress:          "Jarayonda",
		StatusPendingConfirmation: "Tasdiq kutilmoqda",
		StatusConfirmed:           "Tasdiqlandi",
		StatusRejected:            "Rad etildi",
		StatusCancelled:           "Bekor qilingan",
	},
	KindMskOrder: {
		StatusPending:             "Kutilmoqda",
		StatusInReview:            "Ko'rib chiqilmoqda",
		StatusPendingConfirmation: "Tasdiq kutilmoqda",
		StatusConfirmed:           "Tasdiqlandi",
		StatusRejected:            "Rad etildi",
		StatusCancelled:           "Bekor qilingan",
	},
}

// CreateSubmission is the payload accepted by SubmissionAPI.Create.
type CreateSubmission struct {
	CategoryRef string   `json:"category,omitempty"`
	ServiceRef  string   `json:"service,omitempty"`
	Description string   `json:"description"`
	Contact     Contact  `json:"contact"`
	Address     *Address `json:"address,omitempty"`
}

// SubmissionPatch carries the fields a citizen may change while a
// submission is still in its open state.
type SubmissionPatch struct {
	CategoryRef string  `json:"category,omitempty"`
	Description string  `json:"description"`
	Contact     Contact `json:"contact"`
}

// SubmissionAPI is the upstream municipal API surface the workflow engine
// drives. Implementations own transport concerns (auth headers, retries on
// idempotent reads); the core never retries.
type SubmissionAPI interface {
	Create(ctx context.Context, kind Kind, payload CreateSubmission) (*Submission, error)
	ListMine(ctx context.Context, kind Kind) ([]Submission, error)
	Update(ctx context.Context, kind Kind, id string, patch SubmissionPatch) (*Submission, error)
	Cancel(ctx context.Context, kind Kind, id string, reason string) (*Submission, error)
	Confirm(ctx context.Context, kind Kind, id string, confirmed bool) (*Submission, error)
}

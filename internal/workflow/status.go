package workflow

// Status is the review workflow state of a project.
type Status string

const (
	StatusDraft            Status = "DRAFT"
	StatusInReview         Status = "IN_REVIEW"
	StatusApproved         Status = "APPROVED"
	StatusChangesRequested Status = "CHANGES_REQUESTED"
)

// Timeline event titles. These are stable strings scanned by resend
// detection and rendered verbatim by clients, so treat them as part of
// the API surface.
const (
	TitleProjectCreated      = "Project Created"
	TitleDocumentRegenerated = "Document Regenerated"
	TitleEnhancedReady       = "Enhanced Ready"
	TitleReviewSent          = "Review Sent"
	TitleReviewResent        = "Review Resent"
	TitleClientApproved      = "Client Approved"
	TitleChangesRequested    = "Changes Requested"
)

var transitions = map[Status][]Status{
	StatusDraft:            {StatusInReview},
	StatusInReview:         {StatusInReview, StatusApproved, StatusChangesRequested},
	StatusChangesRequested: {StatusInReview},
	StatusApproved:         {},
}

// IsValid reports whether s is a known workflow status.
func IsValid(s Status) bool {
	_, ok := transitions[s]
	return ok
}

// CanTransition reports whether the workflow allows moving from one
// status to another. IN_REVIEW -> IN_REVIEW is allowed and represents a
// resend of the review request. Regeneration never moves the status and
// is not modeled as a transition.
func CanTransition(from, to Status) bool {
	for _, t := range transitions[from] {
		if t == to {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transitions leave the status.
func Terminal(s Status) bool {
	return IsValid(s) && len(transitions[s]) == 0
}

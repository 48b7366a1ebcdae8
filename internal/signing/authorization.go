package signing

import (
	"strings"

	"quill-sign/signing-portal/signing-portal-backend/internal/auth"
	"quill-sign/signing-portal/signing-portal-backend/internal/documents"
)

// AccessKind distinguishes opening a document from acting on it.
type AccessKind string

const (
	// KindAccess covers viewing the document through a signing link
	KindAccess AccessKind = "ACCESS"
	// KindAction covers inserting field values and completing
	KindAction AccessKind = "ACTION"
)

// effectiveRequirement resolves the auth rule for a request: the recipient
// level override wins, then the document global setting, then none.
func effectiveRequirement(kind AccessKind, doc *documents.Document, recipient *documents.Recipient) documents.AuthRequirement {
	if kind == KindAction && recipient.ActionAuth != documents.AuthNone {
		return recipient.ActionAuth
	}
	if kind == KindAction {
		return doc.ActionAuth
	}
	return doc.AccessAuth
}

// IsRecipientAuthorized evaluates the current actor against the document's
// auth rules. It reports false rather than erroring for unmet requirements,
// so callers can present an authentication challenge instead of a failure.
func IsRecipientAuthorized(kind AccessKind, doc *documents.Document, recipient *documents.Recipient, actor *auth.Actor) bool {
	switch effectiveRequirement(kind, doc, recipient) {
	case documents.AuthNone:
		return true
	case documents.AuthAccount:
		return actor != nil
	case documents.AuthAccountEmail:
		return actor != nil && strings.EqualFold(actor.Email, recipient.Email)
	case documents.AuthSecondFactor:
		return actor != nil && actor.SecondFactorVerified
	default:
		// Unknown requirements deny rather than allow
		return false
	}
}

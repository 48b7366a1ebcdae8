package notifications

import (
	"fmt"
	"html"

	"quill-sign/signing-portal/signing-portal-backend/internal/documents"
)

func signingRequestBody(doc *documents.Document, recipient *documents.Recipient, link string) string {
	action := "sign"
	switch recipient.Role {
	case documents.RoleViewer:
		action = "view"
	case documents.RoleApprover:
		action = "approve"
	}

	body := fmt.Sprintf(`
		<p>Hi %s,</p>
		<p>You have been asked to %s the document <strong>%s</strong>.</p>`,
		html.EscapeString(recipient.Name), action, html.EscapeString(doc.Title))

	if doc.Message != "" {
		body += fmt.Sprintf("<blockquote>%s</blockquote>", html.EscapeString(doc.Message))
	}

	body += fmt.Sprintf(`<p><a href="%s">Open the document</a></p>`, link)
	return body
}

func signingReminderBody(doc *documents.Document, recipient *documents.Recipient, link string) string {
	return fmt.Sprintf(`
		<p>Hi %s,</p>
		<p>The document <strong>%s</strong> is still waiting for you.</p>
		<p><a href="%s">Open the document</a></p>`,
		html.EscapeString(recipient.Name), html.EscapeString(doc.Title), link)
}

func documentCompletedBody(doc *documents.Document, recipient *documents.Recipient, link string) string {
	return fmt.Sprintf(`
		<p>Hi %s,</p>
		<p>All parties have completed <strong>%s</strong>.</p>
		<p><a href="%s">View the completed document</a></p>`,
		html.EscapeString(recipient.Name), html.EscapeString(doc.Title), link)
}

package signing

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"quill-sign/signing-portal/signing-portal-backend/internal/auth"
	"quill-sign/signing-portal/signing-portal-backend/internal/documents"
)

func TestIsRecipientAuthorized(t *testing.T) {
	matching := &auth.Actor{Email: "signer@example.com"}
	other := &auth.Actor{Email: "someone-else@example.com"}
	verified := &auth.Actor{Email: "signer@example.com", SecondFactorVerified: true}

	tests := []struct {
		name      string
		kind      AccessKind
		docAccess documents.AuthRequirement
		docAction documents.AuthRequirement
		recAction documents.AuthRequirement
		actor     *auth.Actor
		want      bool
	}{
		{
			name:  "no requirement allows anonymous access",
			kind:  KindAccess,
			actor: nil,
			want:  true,
		},
		{
			name:      "account access denies anonymous",
			kind:      KindAccess,
			docAccess: documents.AuthAccount,
			actor:     nil,
			want:      false,
		},
		{
			name:      "account access allows any signed-in actor",
			kind:      KindAccess,
			docAccess: documents.AuthAccount,
			actor:     other,
			want:      true,
		},
		{
			name:      "account email requires the recipient's address",
			kind:      KindAction,
			docAction: documents.AuthAccountEmail,
			actor:     other,
			want:      false,
		},
		{
			name:      "account email matches case-insensitively",
			kind:      KindAction,
			docAction: documents.AuthAccountEmail,
			actor:     &auth.Actor{Email: "SIGNER@example.com"},
			want:      true,
		},
		{
			name:      "second factor denies unverified actor",
			kind:      KindAction,
			docAction: documents.AuthSecondFactor,
			actor:     matching,
			want:      false,
		},
		{
			name:      "second factor allows verified actor",
			kind:      KindAction,
			docAction: documents.AuthSecondFactor,
			actor:     verified,
			want:      true,
		},
		{
			name:      "recipient override wins over document action setting",
			kind:      KindAction,
			docAction: documents.AuthNone,
			recAction: documents.AuthAccountEmail,
			actor:     nil,
			want:      false,
		},
		{
			name:      "recipient override does not apply to access",
			kind:      KindAccess,
			docAccess: documents.AuthNone,
			recAction: documents.AuthSecondFactor,
			actor:     nil,
			want:      true,
		},
		{
			name:      "action check ignores the access setting",
			kind:      KindAction,
			docAccess: documents.AuthSecondFactor,
			docAction: documents.AuthNone,
			actor:     nil,
			want:      true,
		},
		{
			name:      "unknown requirement denies",
			kind:      KindAccess,
			docAccess: documents.AuthRequirement("PASSKEY"),
			actor:     verified,
			want:      false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := &documents.Document{
				AccessAuth: tt.docAccess,
				ActionAuth: tt.docAction,
			}
			recipient := &documents.Recipient{
				Email:      "signer@example.com",
				ActionAuth: tt.recAction,
			}
			got := IsRecipientAuthorized(tt.kind, doc, recipient, tt.actor)
			assert.Equal(t, tt.want, got)
		})
	}
}

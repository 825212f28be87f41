package domain

import "time"

// SignatureMethod is how the customer signature is collected.
type SignatureMethod string

const (
	SignatureMethodPresencial   SignatureMethod = "presencial"
	SignatureMethodLinkWhatsApp SignatureMethod = "link_whatsapp"
	SignatureMethodAutentique   SignatureMethod = "autentique"
)

// SignatureStatus tracks the signature sub-lifecycle, independent of ticket status.
type SignatureStatus string

const (
	SignatureStatusNone    SignatureStatus = "none"
	SignatureStatusPending SignatureStatus = "pending"
	SignatureStatusSigned  SignatureStatus = "signed"
)

// Signature holds the signature_* fields of a ticket.
type Signature struct {
	Method         SignatureMethod
	Status         SignatureStatus
	URL            *string
	Date           *time.Time
	RequesterToken *string
	DocumentID     *string
}

// Signed reports whether a signature file is already attached.
func (s Signature) Signed() bool {
	return s.URL != nil && *s.URL != ""
}

// CanStart reports why method cannot begin, or nil when it can.
func (s Signature) CanStart(method SignatureMethod) error {
	if s.Signed() {
		return ErrAlreadySigned
	}
	if s.Status == SignatureStatusPending && s.Method != method {
		return ErrSignatureMethodConflict
	}
	return nil
}

// SignInPerson records a signature captured in person. It is signed immediately.
func (t *Ticket) SignInPerson(url string, now time.Time) error {
	if err := t.Signature.CanStart(SignatureMethodPresencial); err != nil {
		return err
	}
	signedAt := now
	t.Signature = Signature{
		Method: SignatureMethodPresencial,
		Status: SignatureStatusSigned,
		URL:    &url,
		Date:   &signedAt,
	}
	t.touch(now)
	return nil
}

// RequestSignatureLink stores the link token sent to the customer and marks the signature pending.
// Requesting again while a link is pending replaces the token.
func (t *Ticket) RequestSignatureLink(token string, now time.Time) error {
	if err := t.Signature.CanStart(SignatureMethodLinkWhatsApp); err != nil {
		return err
	}
	t.Signature = Signature{
		Method:         SignatureMethodLinkWhatsApp,
		Status:         SignatureStatusPending,
		RequesterToken: &token,
	}
	t.touch(now)
	return nil
}

// RequestProviderSignature records the external e-signature document and marks the signature pending.
func (t *Ticket) RequestProviderSignature(documentID string, now time.Time) error {
	if err := t.Signature.CanStart(SignatureMethodAutentique); err != nil {
		return err
	}
	t.Signature = Signature{
		Method:     SignatureMethodAutentique,
		Status:     SignatureStatusPending,
		DocumentID: &documentID,
	}
	t.touch(now)
	return nil
}

// CompleteSignature moves a pending signature of the given method to signed.
func (t *Ticket) CompleteSignature(method SignatureMethod, url string, now time.Time) error {
	if t.Signature.Signed() {
		return ErrAlreadySigned
	}
	if t.Signature.Status != SignatureStatusPending || t.Signature.Method != method {
		return ErrSignatureNotPending
	}
	signedAt := now
	t.Signature.Status = SignatureStatusSigned
	t.Signature.URL = &url
	t.Signature.Date = &signedAt
	t.touch(now)
	return nil
}

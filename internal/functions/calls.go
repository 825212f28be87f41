package functions

import (
	"context"
	"fmt"
)

// Function names exposed by the backend.
const (
	FnAssignRoundRobin     = "assignTicketRoundRobin"
	FnCreateSignatureDoc   = "createAutentiqueDocument"
	FnCheckSignatureDoc    = "checkAutentiqueDocument"
	FnDistributeCompletion = "distributeTicketCompletion"
)

// SignatureDocument is the provider document created for a ticket.
type SignatureDocument struct {
	DocumentID string `json:"document_id"`
	SignURL    string `json:"sign_url"`
}

// SignatureDocumentStatus is the provider view of a document.
type SignatureDocumentStatus struct {
	Signed        bool   `json:"signed"`
	SignedFileURL string `json:"signed_file_url"`
}

// AssignRoundRobin asks the backend which agent of the queue should get the ticket next.
func AssignRoundRobin(ctx context.Context, inv Invoker, ticketID string, queueID *string) (string, error) {
	var out struct {
		AgentID string `json:"agent_id"`
	}
	payload := map[string]any{"ticket_id": ticketID}
	if queueID != nil {
		payload["queue_id"] = *queueID
	}
	if err := inv.Invoke(ctx, FnAssignRoundRobin, payload, &out); err != nil {
		return "", err
	}
	if out.AgentID == "" {
		return "", fmt.Errorf("%s returned no agent", FnAssignRoundRobin)
	}
	return out.AgentID, nil
}

// CreateSignatureDocument registers the ticket document with the e-signature provider.
func CreateSignatureDocument(ctx context.Context, inv Invoker, ticketID, signerName, signerEmail string) (SignatureDocument, error) {
	var out SignatureDocument
	err := inv.Invoke(ctx, FnCreateSignatureDoc, map[string]any{
		"ticket_id":    ticketID,
		"signer_name":  signerName,
		"signer_email": signerEmail,
	}, &out)
	if err != nil {
		return SignatureDocument{}, err
	}
	if out.DocumentID == "" {
		return SignatureDocument{}, fmt.Errorf("%s returned no document id", FnCreateSignatureDoc)
	}
	return out, nil
}

// CheckSignatureDocument fetches the provider status of a document.
func CheckSignatureDocument(ctx context.Context, inv Invoker, documentID string) (SignatureDocumentStatus, error) {
	var out SignatureDocumentStatus
	err := inv.Invoke(ctx, FnCheckSignatureDoc, map[string]any{"document_id": documentID}, &out)
	return out, err
}

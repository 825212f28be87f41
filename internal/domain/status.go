package domain

import (
	"fmt"
	"strings"
)

// TicketFamily selects which status vocabulary a ticket uses.
type TicketFamily string

const (
	FamilySupport    TicketFamily = "support"
	FamilyCollection TicketFamily = "collection"
)

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	StatusNovo               TicketStatus = "novo"
	StatusAtribuido          TicketStatus = "atribuido"
	StatusEmAtendimento      TicketStatus = "em_atendimento"
	StatusAguardandoCliente  TicketStatus = "aguardando_cliente"
	StatusAguardandoTerceiro TicketStatus = "aguardando_terceiro"
	StatusResolvido          TicketStatus = "resolvido"
	StatusFechado            TicketStatus = "fechado"
)

var familyStatuses = map[TicketFamily][]TicketStatus{
	FamilySupport: {
		StatusNovo,
		StatusAtribuido,
		StatusEmAtendimento,
		StatusAguardandoCliente,
		StatusAguardandoTerceiro,
		StatusResolvido,
		StatusFechado,
	},
	FamilyCollection: {
		StatusNovo,
		StatusEmAtendimento,
		StatusAguardandoCliente,
		StatusAtribuido,
		StatusResolvido,
	},
}

// ParseFamily validates a raw family value. An empty value means support.
func ParseFamily(raw string) (TicketFamily, error) {
	switch TicketFamily(strings.ToLower(strings.TrimSpace(raw))) {
	case "", FamilySupport:
		return FamilySupport, nil
	case FamilyCollection:
		return FamilyCollection, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFamily, raw)
}

// Statuses lists the vocabulary of the family in display order.
func (f TicketFamily) Statuses() []TicketStatus {
	statuses := familyStatuses[f]
	out := make([]TicketStatus, len(statuses))
	copy(out, statuses)
	return out
}

// ArchivableFamilies lists the families whose vocabulary has fechado.
func ArchivableFamilies() []TicketFamily {
	var out []TicketFamily
	for _, f := range []TicketFamily{FamilySupport, FamilyCollection} {
		if f.Allows(StatusFechado) {
			out = append(out, f)
		}
	}
	return out
}

// Allows reports whether status belongs to the family vocabulary.
func (f TicketFamily) Allows(status TicketStatus) bool {
	for _, candidate := range familyStatuses[f] {
		if candidate == status {
			return true
		}
	}
	return false
}

// ParseStatus maps a stored free-text status into the family vocabulary.
func ParseStatus(family TicketFamily, raw string) (TicketStatus, error) {
	status := TicketStatus(strings.ToLower(strings.TrimSpace(raw)))
	if !family.Allows(status) {
		return "", fmt.Errorf("%w: %q for %s tickets", ErrUnknownStatus, raw, family)
	}
	return status, nil
}

// IsResolved reports whether the status counts as finished work.
func (s TicketStatus) IsResolved() bool {
	return s == StatusResolvido || s == StatusFechado
}

// IsWaiting reports whether the ticket is parked on someone else.
func (s TicketStatus) IsWaiting() bool {
	return s == StatusAguardandoCliente || s == StatusAguardandoTerceiro
}

// manualTransitions lists status changes an agent may pick directly. Assignment,
// first reply, completion, reopen and archival have dedicated operations.
var manualTransitions = map[TicketStatus][]TicketStatus{
	StatusAtribuido:          {StatusAguardandoCliente, StatusAguardandoTerceiro},
	StatusEmAtendimento:      {StatusAguardandoCliente, StatusAguardandoTerceiro},
	StatusAguardandoCliente:  {StatusEmAtendimento, StatusAguardandoTerceiro},
	StatusAguardandoTerceiro: {StatusEmAtendimento, StatusAguardandoCliente},
}

// CanChangeManually reports whether current -> next is a legal manual move in family.
func CanChangeManually(family TicketFamily, current, next TicketStatus) bool {
	if !family.Allows(next) {
		return false
	}
	for _, candidate := range manualTransitions[current] {
		if candidate == next {
			return true
		}
	}
	return false
}

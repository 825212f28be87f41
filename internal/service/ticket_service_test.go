package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/atendimento-service/internal/domain"
	"github.com/spec-kit/atendimento-service/internal/events"
	"github.com/spec-kit/atendimento-service/internal/repository"
)

func TestCreateTicket(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ticket, err := f.tickets.CreateTicket(ctx, f.actor, TicketCreateInput{
		Family:   domain.FamilyCollection,
		Priority: domain.PriorityP1,
		Subject:  "  Acordo de parcelas ",
		Fields:   domain.StructuredFields{"parcelas": "3"},
		QueueID:  &f.queue.ID,
	})
	require.NoError(t, err)

	assert.Equal(t, domain.StatusNovo, ticket.Status)
	assert.Equal(t, "Acordo de parcelas", ticket.Subject)
	assert.Equal(t, f.queue.ID, *ticket.QueueID)
	assert.Empty(t, ticket.QueueHistory, "initial queue is not a transfer")
	require.NotNil(t, ticket.SLAResolutionDeadline)
	assert.Equal(t, baseTime.Add(4*time.Hour), *ticket.SLAResolutionDeadline)
	assert.Equal(t, []events.EventType{events.EventTicketCreated}, f.recorder.types())

	details, err := f.tickets.GetTicket(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, "3", details.Fields["parcelas"])
	assert.False(t, details.SLA.AtRisk)
}

func TestCreateTicket_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	inactive := f.seedQueue(t, "Antiga", false)

	_, err := f.tickets.CreateTicket(ctx, f.actor, TicketCreateInput{Subject: " "})
	requireCode(t, err, "VALIDATION_FAILED")

	_, err = f.tickets.CreateTicket(ctx, f.actor, TicketCreateInput{Subject: "x", Priority: "P9"})
	requireCode(t, err, "VALIDATION_FAILED")

	_, err = f.tickets.CreateTicket(ctx, f.actor, TicketCreateInput{Subject: "x", Family: "sales"})
	requireCode(t, err, "VALIDATION_FAILED")

	_, err = f.tickets.CreateTicket(ctx, f.actor, TicketCreateInput{Subject: "x", QueueID: &inactive.ID})
	requireCode(t, err, "CONFLICT")

	missing := "nope"
	_, err = f.tickets.CreateTicket(ctx, f.actor, TicketCreateInput{Subject: "x", QueueID: &missing})
	requireCode(t, err, "NOT_FOUND")
}

func TestGetTicket_NotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.tickets.GetTicket(context.Background(), "missing")
	requireCode(t, err, "NOT_FOUND")
}

func TestGetTicket_DegradesOnPlainDescription(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ticket, err := f.tickets.CreateTicket(ctx, f.actor, TicketCreateInput{Subject: "x", Description: "{quebrado"})
	require.NoError(t, err)

	details, err := f.tickets.GetTicket(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Nil(t, details.Fields)
	assert.Equal(t, "{quebrado", details.Ticket.Description)
}

func TestAppendMessage_AgentReplyStartsWork(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ticket := f.newTicket(t, domain.FamilySupport)
	_, err := f.assignments.AssignAgent(ctx, f.actor, ticket.ID, f.agent.ID)
	require.NoError(t, err)
	f.recorder.reset()

	res, err := f.tickets.AppendMessage(ctx, f.actor, ticket.ID, MessageInput{Type: domain.MessageTypeAgentReply, Body: "Bom dia"})
	require.NoError(t, err)

	assert.True(t, res.FirstReplied)
	assert.Equal(t, domain.StatusEmAtendimento, res.Ticket.Status)
	require.NotNil(t, res.Ticket.FirstResponseAt)
	assert.Equal(t, baseTime, *res.Ticket.FirstResponseAt)
	assert.Equal(t, domain.DefaultChannel, res.Message.Channel)
	assert.Equal(t, []events.EventType{
		events.EventTicketMessageAdded,
		events.EventTicketStatusChanged,
		events.EventTicketFirstResponse,
	}, f.recorder.types())

	stored := f.reload(t, ticket.ID)
	assert.Equal(t, domain.StatusEmAtendimento, stored.Status)
	assert.Equal(t, baseTime, *stored.FirstResponseAt)
}

func TestAppendMessage_FirstResponseSetOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ticket := f.workedTicket(t, domain.FamilySupport)
	first := *ticket.FirstResponseAt

	f.clock.Advance(time.Hour)
	res, err := f.tickets.AppendMessage(ctx, f.actor, ticket.ID, MessageInput{Type: domain.MessageTypeAgentReply, Body: "de novo"})
	require.NoError(t, err)

	assert.False(t, res.FirstReplied)
	assert.Equal(t, first, *f.reload(t, ticket.ID).FirstResponseAt)
}

func TestAppendMessage_FromNovoWithoutAssignment(t *testing.T) {
	f := newFixture(t)
	ticket := f.newTicket(t, domain.FamilySupport)

	res, err := f.tickets.AppendMessage(context.Background(), f.actor, ticket.ID, MessageInput{Type: domain.MessageTypeAgentReply, Body: "oi"})
	require.NoError(t, err)

	assert.Equal(t, domain.StatusEmAtendimento, res.Ticket.Status)
	assert.Nil(t, res.Ticket.AgentID)
}

func TestAppendMessage_NonAgentMessagesDoNotAdvance(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ticket := f.newTicket(t, domain.FamilySupport)

	for _, typ := range []domain.TicketMessageType{domain.MessageTypeCustomerReply, domain.MessageTypeInternalNote, domain.MessageTypeSystemEvent} {
		res, err := f.tickets.AppendMessage(ctx, f.actor, ticket.ID, MessageInput{Type: typ, Body: "nota", Channel: "whatsapp"})
		require.NoError(t, err)
		assert.False(t, res.FirstReplied)
		assert.Equal(t, "whatsapp", res.Message.Channel)
	}

	stored := f.reload(t, ticket.ID)
	assert.Equal(t, domain.StatusNovo, stored.Status)
	assert.Nil(t, stored.FirstResponseAt)

	msgs, err := f.tickets.ListMessages(ctx, ticket.ID, 0, 0)
	require.NoError(t, err)
	assert.Len(t, msgs, 3)
}

func TestAppendMessage_AfterCompletionKeepsStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ticket := f.workedTicket(t, domain.FamilySupport)
	_, err := f.tickets.Complete(ctx, f.actor, ticket.ID, domain.Completion{Reason: "resolvido"})
	require.NoError(t, err)

	res, err := f.tickets.AppendMessage(ctx, f.actor, ticket.ID, MessageInput{Type: domain.MessageTypeAgentReply, Body: "obrigado"})
	require.NoError(t, err)

	assert.False(t, res.FirstReplied)
	assert.Equal(t, domain.StatusResolvido, res.Ticket.Status)
}

func TestAppendMessage_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ticket := f.newTicket(t, domain.FamilySupport)

	_, err := f.tickets.AppendMessage(ctx, f.actor, ticket.ID, MessageInput{Type: "sms", Body: "x"})
	requireCode(t, err, "VALIDATION_FAILED")

	_, err = f.tickets.AppendMessage(ctx, f.actor, ticket.ID, MessageInput{Type: domain.MessageTypeAgentReply, Body: "   "})
	requireCode(t, err, "VALIDATION_FAILED")

	_, err = f.tickets.AppendMessage(ctx, f.actor, "missing", MessageInput{Type: domain.MessageTypeAgentReply, Body: "x"})
	requireCode(t, err, "NOT_FOUND")

	msgs, err := f.tickets.ListMessages(ctx, ticket.ID, 10, 0)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestAppendMessage_SanitizesBody(t *testing.T) {
	f := newFixture(t)
	ticket := f.newTicket(t, domain.FamilySupport)

	res, err := f.tickets.AppendMessage(context.Background(), f.actor, ticket.ID, MessageInput{
		Type: domain.MessageTypeCustomerReply,
		Body: `<script>alert(1)</script><b>Olá</b>`,
	})
	require.NoError(t, err)

	assert.NotContains(t, res.Message.Body, "<script")
	assert.True(t, strings.Contains(res.Message.Body, "<b>Olá</b>"))
}

func TestComplete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ticket := f.workedTicket(t, domain.FamilySupport)
	f.recorder.reset()
	f.clock.Advance(2 * time.Hour)

	done, err := f.tickets.Complete(ctx, f.actor, ticket.ID, domain.Completion{Reason: "duvida_sanada", Category: "financeiro"})
	require.NoError(t, err)

	assert.Equal(t, domain.StatusResolvido, done.Status)
	assert.Equal(t, baseTime.Add(2*time.Hour), *done.ResolvedAt)
	assert.Equal(t, f.agent.Email, *done.CompletedByAgentID, "completed_by_agent_id records the acting agent like the other actor fields")
	assert.Equal(t, "financeiro", done.Completion.Category)
	assert.Equal(t, []events.EventType{events.EventTicketStatusChanged, events.EventTicketCompleted}, f.recorder.types())
}

func TestComplete_Preconditions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	fresh := f.newTicket(t, domain.FamilySupport)
	_, err := f.tickets.Complete(ctx, f.actor, fresh.ID, domain.Completion{Reason: "x"})
	requireCode(t, err, "INVALID_TRANSITION")

	worked := f.workedTicket(t, domain.FamilySupport)
	_, err = f.tickets.Complete(ctx, f.actor, worked.ID, domain.Completion{})
	requireCode(t, err, "VALIDATION_FAILED")
	assert.Equal(t, domain.StatusEmAtendimento, f.reload(t, worked.ID).Status, "failed completion writes nothing")

	_, err = f.tickets.Complete(ctx, f.actor, worked.ID, domain.Completion{Reason: "ok"})
	require.NoError(t, err)
	_, err = f.tickets.Complete(ctx, f.actor, worked.ID, domain.Completion{Reason: "ok"})
	requireCode(t, err, "INVALID_TRANSITION")
}

func TestReopen(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ticket := f.workedTicket(t, domain.FamilySupport)
	_, err := f.tickets.Complete(ctx, f.actor, ticket.ID, domain.Completion{Reason: "ok"})
	require.NoError(t, err)

	reopened, err := f.tickets.Reopen(ctx, f.actor, ticket.ID)
	require.NoError(t, err)

	assert.Equal(t, domain.StatusEmAtendimento, reopened.Status)
	assert.Equal(t, 1, reopened.ReopenedCount)
	require.Len(t, reopened.ReopenHistory, 1)
	assert.Equal(t, domain.StatusResolvido, reopened.ReopenHistory[0].PreviousStatus)
	assert.Equal(t, f.actor.Email, reopened.ReopenHistory[0].ReopenedBy)
	assert.Nil(t, reopened.ResolvedAt)
	assert.Equal(t, "ok", reopened.Completion.Reason, "completion kept by default")

	_, err = f.tickets.Reopen(ctx, f.actor, ticket.ID)
	requireCode(t, err, "INVALID_TRANSITION")
}

func TestReopen_ClearsCompletionWhenConfigured(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.tickets = NewTicketService(TicketDependencies{
		Store:                  f.store,
		Dispatcher:             f.dispatcher,
		ReopenClearsCompletion: true,
		Now:                    f.clock.Now,
	})
	ticket := f.workedTicket(t, domain.FamilySupport)
	_, err := f.tickets.Complete(ctx, f.actor, ticket.ID, domain.Completion{Reason: "ok"})
	require.NoError(t, err)

	reopened, err := f.tickets.Reopen(ctx, f.actor, ticket.ID)
	require.NoError(t, err)

	assert.Empty(t, reopened.Completion.Reason)
	assert.Nil(t, reopened.CompletedByAgentID)
}

func TestChangeStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	support := f.workedTicket(t, domain.FamilySupport)
	collection := f.workedTicket(t, domain.FamilyCollection)

	waiting, err := f.tickets.ChangeStatus(ctx, f.actor, support.ID, "aguardando_terceiro")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusAguardandoTerceiro, waiting.Status)

	_, err = f.tickets.ChangeStatus(ctx, f.actor, support.ID, "aguardando_terceiro")
	requireCode(t, err, "CONFLICT")

	_, err = f.tickets.ChangeStatus(ctx, f.actor, support.ID, "resolvido")
	requireCode(t, err, "INVALID_TRANSITION")

	_, err = f.tickets.ChangeStatus(ctx, f.actor, collection.ID, "aguardando_terceiro")
	requireCode(t, err, "VALIDATION_FAILED")
}

func TestArchive(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	support := f.workedTicket(t, domain.FamilySupport)
	collection := f.workedTicket(t, domain.FamilyCollection)
	open := f.workedTicket(t, domain.FamilySupport)
	for _, id := range []string{support.ID, collection.ID} {
		_, err := f.tickets.Complete(ctx, f.actor, id, domain.Completion{Reason: "ok"})
		require.NoError(t, err)
	}
	f.clock.Advance(48 * time.Hour)

	result, err := f.tickets.Archive(ctx, 24*time.Hour, 0)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Archived)
	assert.Zero(t, result.Skipped, "collection tickets are not archive candidates")
	archived := f.reload(t, support.ID)
	assert.Equal(t, domain.StatusFechado, archived.Status)
	assert.NotNil(t, archived.ResolvedAt)
	assert.Equal(t, domain.StatusResolvido, f.reload(t, collection.ID).Status)
	assert.Equal(t, domain.StatusEmAtendimento, f.reload(t, open.ID).Status)

	reopened, err := f.tickets.Reopen(ctx, f.actor, support.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFechado, reopened.ReopenHistory[0].PreviousStatus)
}

func TestArchive_OlderCollectionTicketDoesNotStarveSupport(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	collection := f.workedTicket(t, domain.FamilyCollection)
	support := f.workedTicket(t, domain.FamilySupport)

	_, err := f.tickets.Complete(ctx, f.actor, collection.ID, domain.Completion{Reason: "pago"})
	require.NoError(t, err)
	f.clock.Advance(time.Hour)
	_, err = f.tickets.Complete(ctx, f.actor, support.ID, domain.Completion{Reason: "ok"})
	require.NoError(t, err)
	f.clock.Advance(48 * time.Hour)

	result, err := f.tickets.Archive(ctx, 24*time.Hour, 1)
	require.NoError(t, err)

	assert.Equal(t, ArchiveResult{Archived: 1}, result)
	assert.Equal(t, domain.StatusFechado, f.reload(t, support.ID).Status)
	assert.Equal(t, domain.StatusResolvido, f.reload(t, collection.ID).Status)
}

func TestAttachments(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ticket := f.newTicket(t, domain.FamilySupport)

	_, err := f.tickets.AddAttachment(ctx, f.actor, ticket.ID, domain.Attachment{Name: "rg.pdf", URL: "https://files/rg.pdf", Size: 10})
	require.NoError(t, err)
	updated, err := f.tickets.AddAttachment(ctx, f.actor, ticket.ID, domain.Attachment{Name: "cpf.pdf", URL: "https://files/cpf.pdf"})
	require.NoError(t, err)
	require.Len(t, updated.Attachments, 2)

	_, err = f.tickets.AddAttachment(ctx, f.actor, ticket.ID, domain.Attachment{Name: "sem-url"})
	requireCode(t, err, "VALIDATION_FAILED")

	updated, err = f.tickets.RemoveAttachment(ctx, f.actor, ticket.ID, 0)
	require.NoError(t, err)
	require.Len(t, updated.Attachments, 1)
	assert.Equal(t, "cpf.pdf", f.reload(t, ticket.ID).Attachments[0].Name)

	_, err = f.tickets.RemoveAttachment(ctx, f.actor, ticket.ID, 5)
	requireCode(t, err, "NOT_FOUND")
}

func TestListAtRisk(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	soon := baseTime.Add(2 * time.Hour)
	later := baseTime.Add(10 * time.Hour)
	sooner := baseTime.Add(time.Hour)

	for _, deadline := range []time.Time{soon, later, sooner} {
		d := deadline
		_, err := f.tickets.CreateTicket(ctx, f.actor, TicketCreateInput{Subject: "x", SLADeadline: &d})
		require.NoError(t, err)
	}

	atRisk, err := f.tickets.ListAtRisk(ctx, 10)
	require.NoError(t, err)

	require.Len(t, atRisk, 2)
	assert.Equal(t, sooner, *atRisk[0].Ticket.SLAResolutionDeadline)
	assert.Equal(t, soon, *atRisk[1].Ticket.SLAResolutionDeadline)
	assert.Equal(t, time.Hour, atRisk[0].SLA.Remaining)
}

func TestListTickets_Filters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.newTicket(t, domain.FamilySupport)
	f.workedTicket(t, domain.FamilyCollection)

	family := domain.FamilyCollection
	got, err := f.tickets.ListTickets(ctx, repository.TicketFilter{Family: &family})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, domain.FamilyCollection, got[0].Family)

	got, err = f.tickets.ListTickets(ctx, repository.TicketFilter{AgentID: &f.agent.ID})
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestAudit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ticket := f.workedTicket(t, domain.FamilySupport)
	_, err := f.tickets.Complete(ctx, f.actor, ticket.ID, domain.Completion{Reason: "ok"})
	require.NoError(t, err)
	_, err = f.tickets.Reopen(ctx, f.actor, ticket.ID)
	require.NoError(t, err)

	findings, err := f.tickets.Audit(ctx)
	require.NoError(t, err)
	assert.Empty(t, findings)

	broken := f.reload(t, ticket.ID)
	broken.ReopenedCount = 5
	require.NoError(t, f.store.Tickets().Update(ctx, broken))

	findings, err = f.tickets.Audit(ctx)
	require.NoError(t, err)
	require.Len(t, findings, 1)
	assert.Equal(t, ticket.ID, findings[0].TicketID)
}

func TestMapStoreError(t *testing.T) {
	requireCode(t, mapStoreError(repository.ErrVersionConflict, "ticket", "t1"), "CONFLICT")
	requireCode(t, mapStoreError(repository.ErrNotFound, "ticket", "t1"), "NOT_FOUND")
	requireCode(t, mapStoreError(assert.AnError, "ticket", "t1"), "REMOTE_FAILURE")
	assert.ErrorIs(t, mapStoreError(context.DeadlineExceeded, "ticket", "t1"), context.DeadlineExceeded)
}

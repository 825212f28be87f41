package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStatus(t *testing.T) {
	tests := []struct {
		name    string
		family  TicketFamily
		raw     string
		want    TicketStatus
		wantErr bool
	}{
		{name: "support novo", family: FamilySupport, raw: "novo", want: StatusNovo},
		{name: "trims and lowers", family: FamilySupport, raw: " Em_Atendimento ", want: StatusEmAtendimento},
		{name: "support fechado", family: FamilySupport, raw: "fechado", want: StatusFechado},
		{name: "collection atribuido", family: FamilyCollection, raw: "atribuido", want: StatusAtribuido},
		{name: "collection has no fechado", family: FamilyCollection, raw: "fechado", wantErr: true},
		{name: "collection has no terceiro", family: FamilyCollection, raw: "aguardando_terceiro", wantErr: true},
		{name: "unknown", family: FamilySupport, raw: "pendente", wantErr: true},
		{name: "empty", family: FamilySupport, raw: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseStatus(tt.family, tt.raw)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnknownStatus)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseFamily(t *testing.T) {
	f, err := ParseFamily("")
	require.NoError(t, err)
	assert.Equal(t, FamilySupport, f)

	f, err = ParseFamily("Collection")
	require.NoError(t, err)
	assert.Equal(t, FamilyCollection, f)

	_, err = ParseFamily("sales")
	assert.ErrorIs(t, err, ErrUnknownFamily)
}

func TestFamilyStatusesIsACopy(t *testing.T) {
	statuses := FamilyCollection.Statuses()
	require.Len(t, statuses, 5)
	statuses[0] = "changed"

	assert.Equal(t, StatusNovo, FamilyCollection.Statuses()[0])
}

func TestParsePriority(t *testing.T) {
	p, err := ParsePriority("p1")
	require.NoError(t, err)
	assert.Equal(t, PriorityP1, p)

	p, err = ParsePriority("")
	require.NoError(t, err)
	assert.Equal(t, DefaultPriority, p)

	_, err = ParsePriority("P5")
	assert.ErrorIs(t, err, ErrUnknownPriority)
}

func TestPriorityRank(t *testing.T) {
	assert.Equal(t, 1, PriorityP1.Rank())
	assert.Equal(t, 4, PriorityP4.Rank())
	assert.True(t, PriorityP1.MoreUrgentThan(PriorityP2))
	assert.False(t, PriorityP4.MoreUrgentThan(PriorityP3))
	assert.True(t, PriorityP4.MoreUrgentThan(TicketPriority("??")))
}

package etl

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/datopublico/civicingest/internal/civic"
	"github.com/datopublico/civicingest/internal/identity"
)

const senadoVotacionesXML = `<?xml version="1.0" encoding="ISO-8859-1"?>
<votaciones>
  <votacion>
    <FECHA>11/03/2022</FECHA>
    <TEMA>Proyecto de ley sobre protección de datos</TEMA>
    <SI>30</SI>
    <NO>5</NO>
    <QUORUM>QC</QUORUM>
    <TIPOVOTACION>General</TIPOVOTACION>
    <DETALLE_VOTACION>
      <VOTO><PARLAMENTARIO>Tuma Z., Eugenio</PARLAMENTARIO><SELECCION>SI</SELECCION></VOTO>
      <VOTO><PARLAMENTARIO>Allende B., Isabel</PARLAMENTARIO><SELECCION>NO</SELECCION></VOTO>
      <VOTO><PARLAMENTARIO>Desconocido P., Juan</PARLAMENTARIO><SELECCION>SI</SELECCION></VOTO>
      <VOTO><SELECCION>SI</SELECCION></VOTO>
    </DETALLE_VOTACION>
  </votacion>
</votaciones>`

func senateRoster() []civic.Senator {
	return []civic.Senator{
		{ID: 901, FirstName: "Eugenio", PaternalSurname: "Tuma"},
		{ID: 902, FirstName: "Isabel", PaternalSurname: "Allende"},
	}
}

func newSenateVotes(fetcher *fakeFetcher, store *fakeLegStore, t *testing.T) *SenateVotes {
	return &SenateVotes{
		Fetcher: fetcher,
		Store:   store,
		Clock:   fixedClock{t: time.Date(2024, 4, 10, 12, 0, 0, 0, time.UTC)},
		Pauser:  noPause{},
		Logger:  zaptest.NewLogger(t),
		BaseURL: "http://senado.test",
	}
}

func TestSenateVotesSynthesizesIdsAndResolvesRoster(t *testing.T) {
	fetcher := &fakeFetcher{lenient: map[string]string{
		"http://senado.test/votaciones.php?boletin=8575": senadoVotacionesXML,
	}}
	store := &fakeLegStore{
		keysSince: []string{"8575-07"},
		roster:    senateRoster(),
	}
	s := newSenateVotes(fetcher, store, t)

	require.NoError(t, s.Run(context.Background()))

	require.Len(t, store.floorVotes, 1)
	vote := store.floorVotes[0]
	require.True(t, identity.InBand(vote.ID))
	wantID := identity.VoteID("8575-07", "11/03/2022", "Proyecto de ley sobre protección de datos")
	require.Equal(t, wantID, vote.ID)
	require.Equal(t, "8575-07", vote.Bulletin)
	require.Equal(t, "Proyecto de ley sobre protección de datos", vote.Subject)
	require.Equal(t, "Sí: 30, No: 5, Abs: 0", vote.Outcome, "a missing tally count reads as zero")
	require.Equal(t, "QC", vote.Quorum)
	require.Equal(t, "General", vote.VoteType)
	require.NotNil(t, vote.Date)
	require.Equal(t, time.Date(2022, 3, 11, 0, 0, 0, 0, time.UTC), *vote.Date)

	require.Len(t, store.voteRecords, 1)
	ballots := store.voteRecords[0]
	require.Len(t, ballots, 2, "unknown surnames and nameless ballots are dropped")
	require.Equal(t, civic.VoteRecord{
		VoteID:         wantID,
		LegislatorID:   901,
		Chamber:        civic.ChamberSenate,
		LegislatorName: "Tuma Z., Eugenio",
		Choice:         "SI",
	}, ballots[0])
	require.Equal(t, 902, ballots[1].LegislatorID)
}

func TestSenateVotesDisambiguatesSharedSurnames(t *testing.T) {
	roster := []civic.Senator{
		{ID: 901, FirstName: "Eugenio", PaternalSurname: "Tuma"},
		{ID: 903, FirstName: "Isabel", PaternalSurname: "Tuma"},
	}
	index := indexSenators(roster)

	got, ok := resolveSenator(index, "Tuma", "Eugenio")
	require.True(t, ok)
	require.Equal(t, 901, got.ID)

	got, ok = resolveSenator(index, "Tuma Z.", "Isabel")
	require.True(t, ok)
	require.Equal(t, 903, got.ID)

	// No first-name match falls back to the first roster entry.
	got, ok = resolveSenator(index, "Tuma Z.", "Patricio")
	require.True(t, ok)
	require.Equal(t, 901, got.ID)

	_, ok = resolveSenator(index, "Walker", "Ignacio")
	require.False(t, ok)
}

func TestSplitBallotName(t *testing.T) {
	last, first := splitBallotName("Tuma Z., Eugenio")
	require.Equal(t, "Tuma Z.", last)
	require.Equal(t, "Eugenio", first)

	last, first = splitBallotName("Sin Coma")
	require.Equal(t, "Sin Coma", last)
	require.Empty(t, first)
}

func TestSenateVotesPropagatesRosterFailure(t *testing.T) {
	store := &fakeLegStore{rosterErr: errors.New("connection refused")}
	s := newSenateVotes(&fakeFetcher{}, store, t)
	require.Error(t, s.Run(context.Background()))
}

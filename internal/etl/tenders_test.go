package etl

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const tendersJSON = `{
  "Cantidad": 3,
  "Listado": [
    {
      "CodigoExterno": "2024-LE24-101",
      "Nombre": "Construcción de sede vecinal",
      "Estado": "Publicada",
      "Comprador": {"NombreOrganismo": "Gobierno Regional", "CodigoOrganismo": "GR-09"},
      "FechaCreacion": "2024-04-09T08:00:00",
      "FechaCierre": "2024-04-25T15:00:00",
      "Moneda": "CLP",
      "MontoEstimado": 52000000,
      "Tipo": "LE"
    },
    {
      "CodigoExternal": "2024-LP24-102",
      "Nombre": "Variante con código en la otra grafía",
      "Estado": "Cerrada"
    },
    {
      "Nombre": "Sin código, se descarta"
    }
  ]
}`

func newTenders(fetcher *fakeFetcher, store *fakeProcStore, t *testing.T) *Tenders {
	return &Tenders{
		Fetcher: fetcher,
		Store:   store,
		Clock:   fixedClock{t: time.Date(2024, 4, 10, 12, 0, 0, 0, time.UTC)},
		Logger:  zaptest.NewLogger(t),
		BaseURL: "http://mercado.test",
		Ticket:  "TICKET-123",
	}
}

func TestTendersIngestsYesterdaysListing(t *testing.T) {
	fetcher := &fakeFetcher{strict: map[string]string{
		"http://mercado.test/licitaciones.json?fecha=09042024&ticket=TICKET-123": tendersJSON,
	}}
	store := &fakeProcStore{}
	tr := newTenders(fetcher, store, t)

	require.NoError(t, tr.Run(context.Background()))

	require.Len(t, store.tenders, 1)
	tenders := store.tenders[0]
	require.Len(t, tenders, 2, "rows without a code under either spelling are dropped")

	first := tenders[0]
	require.Equal(t, "2024-LE24-101", first.Code)
	require.Equal(t, "Construcción de sede vecinal", first.Name)
	require.Equal(t, "Publicada", first.Status)
	require.Equal(t, "Gobierno Regional", first.BuyerName)
	require.Equal(t, "GR-09", first.BuyerCode)
	require.NotNil(t, first.PublishedAt)
	require.Equal(t, time.Date(2024, 4, 9, 8, 0, 0, 0, time.UTC), *first.PublishedAt)
	require.NotNil(t, first.ClosesAt)
	require.Equal(t, time.Date(2024, 4, 25, 15, 0, 0, 0, time.UTC), *first.ClosesAt)
	require.Equal(t, "CLP", first.Currency)
	require.Equal(t, float64(52000000), first.Estimate)
	require.Equal(t, "LE", first.Kind)

	second := tenders[1]
	require.Equal(t, "2024-LP24-102", second.Code, "the drifted code spelling is accepted")
	require.Nil(t, second.PublishedAt)
	require.Nil(t, second.ClosesAt)
}

func TestTendersSkipsWritesOnEmptyListing(t *testing.T) {
	fetcher := &fakeFetcher{strict: map[string]string{
		"http://mercado.test/licitaciones.json?fecha=09042024&ticket=TICKET-123": `{"Cantidad": 0}`,
	}}
	store := &fakeProcStore{}
	tr := newTenders(fetcher, store, t)

	require.NoError(t, tr.Run(context.Background()))
	require.Empty(t, store.tenders)
}

func TestTendersPropagatesFetchFailure(t *testing.T) {
	tr := newTenders(&fakeFetcher{}, &fakeProcStore{}, t)
	require.Error(t, tr.Run(context.Background()))
}

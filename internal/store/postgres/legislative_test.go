package postgres

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/datopublico/civicingest/internal/civic"
)

// anyArgs builds n argument matchers that accept anything; pgxmock requires
// the expected argument count to match even when values are not checked.
func anyArgs(n int) []any {
	args := make([]any, n)
	for i := range args {
		args[i] = pgxmock.AnyArg()
	}
	return args
}

func newLegislativeMock(t *testing.T) (*LegislativeStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewLegislativeStoreWithPool(mock, zaptest.NewLogger(t)), mock
}

// 250 rows with chunk size 100 produce 3 statements; a failure in the
// second chunk is absorbed and the written count reflects the other two.
func TestUpsertBillKeysChunkFailureIsolation(t *testing.T) {
	t.Parallel()

	store, mock := newLegislativeMock(t)

	keys := make([]string, 250)
	for i := range keys {
		keys[i] = fmt.Sprintf("%d-07", 10000+i)
	}

	mock.ExpectExec("INSERT INTO proyectos_ley").
		WithArgs(anyArgs(100)...).
		WillReturnResult(pgxmock.NewResult("INSERT", 100))
	mock.ExpectExec("INSERT INTO proyectos_ley").
		WithArgs(anyArgs(100)...).
		WillReturnError(errors.New("connection reset"))
	mock.ExpectExec("INSERT INTO proyectos_ley").
		WithArgs(anyArgs(50)...).
		WillReturnResult(pgxmock.NewResult("INSERT", 50))

	written := store.UpsertBillKeys(context.Background(), keys)
	require.Equal(t, 150, written)
	require.NoError(t, mock.ExpectationsWereMet())
}

// Placeholder bill rows must not clobber enriched rows: the conflict
// action is DO NOTHING.
func TestUpsertBillKeysIgnoresDuplicates(t *testing.T) {
	t.Parallel()

	store, mock := newLegislativeMock(t)

	mock.ExpectExec(`INSERT INTO proyectos_ley \(boletin\) VALUES \(\$1\) ON CONFLICT \(boletin\) DO NOTHING`).
		WithArgs("8575-07").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	written := store.UpsertBillKeys(context.Background(), []string{"8575-07"})
	require.Equal(t, 1, written)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertBillsUpdatesOnConflict(t *testing.T) {
	t.Parallel()

	store, mock := newLegislativeMock(t)

	filed := time.Date(2022, time.May, 2, 0, 0, 0, 0, time.UTC)
	bill := civic.Bill{
		Bulletin:      "8575-07",
		Title:         "Sobre protección de datos personales",
		FiledAt:       &filed,
		Initiative:    "Moción",
		OriginChamber: "Senado",
		Stage:         "Tramitación terminada",
		UpdatedAt:     time.Unix(1700000000, 0).UTC(),
	}

	mock.ExpectExec(`INSERT INTO proyectos_ley .+ ON CONFLICT \(boletin\) DO UPDATE SET titulo = EXCLUDED\.titulo`).
		WithArgs(
			bill.Bulletin, bill.Title, bill.FiledAt, bill.Initiative,
			bill.OriginChamber, bill.Urgency, bill.Stage, bill.TramitationURL, bill.UpdatedAt,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	written := store.UpsertBills(context.Background(), []civic.Bill{bill})
	require.Equal(t, 1, written)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertFloorVotePropagatesFailure(t *testing.T) {
	t.Parallel()

	store, mock := newLegislativeMock(t)

	mock.ExpectExec("INSERT INTO votaciones_sala").
		WithArgs(anyArgs(8)...).
		WillReturnError(errors.New("permission denied"))

	err := store.UpsertFloorVote(context.Background(), civic.FloorVote{ID: 38997, Bulletin: "8575-07"})
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertVoteRecordsAppendOnly(t *testing.T) {
	t.Parallel()

	store, mock := newLegislativeMock(t)

	rec := civic.VoteRecord{
		VoteID:         38997,
		LegislatorID:   1001,
		Chamber:        civic.ChamberDeputies,
		LegislatorName: "Ana Soto",
		Choice:         "Afirmativo",
	}

	mock.ExpectExec(`INSERT INTO fact_votaciones_detalle \(votacion_id, parlamentario_id, camara, nombre_parlamentario, opcion_voto\) VALUES \(\$1, \$2, \$3, \$4, \$5\)$`).
		WithArgs(rec.VoteID, rec.LegislatorID, rec.Chamber, rec.LegislatorName, rec.Choice).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	written := store.InsertVoteRecords(context.Background(), []civic.VoteRecord{rec})
	require.Equal(t, 1, written)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBillKeysFiledSince(t *testing.T) {
	t.Parallel()

	store, mock := newLegislativeMock(t)

	cutoff := time.Date(2022, time.March, 11, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery("SELECT boletin FROM proyectos_ley WHERE fecha_ingreso").
		WithArgs(cutoff).
		WillReturnRows(pgxmock.NewRows([]string{"boletin"}).
			AddRow("8575-07").
			AddRow("16197-07"))

	keys, err := store.BillKeysFiledSince(context.Background(), cutoff)
	require.NoError(t, err)
	require.Equal(t, []string{"8575-07", "16197-07"}, keys)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSenatorsLoadsRoster(t *testing.T) {
	t.Parallel()

	store, mock := newLegislativeMock(t)

	mock.ExpectQuery("SELECT id, nombre, apellido_paterno, apellido_materno FROM senadores").
		WillReturnRows(pgxmock.NewRows([]string{"id", "nombre", "apellido_paterno", "apellido_materno"}).
			AddRow(905, "Eugenio", "Tuma", "Zedan").
			AddRow(906, "Isabel", "Tuma", "Rojas"))

	senators, err := store.Senators(context.Background())
	require.NoError(t, err)
	require.Len(t, senators, 2)
	require.Equal(t, "Tuma", senators[0].PaternalSurname)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertSessionsEmptyBatchWritesNothing(t *testing.T) {
	t.Parallel()

	store, mock := newLegislativeMock(t)

	written := store.UpsertSessions(context.Background(), nil)
	require.Zero(t, written)
	require.NoError(t, mock.ExpectationsWereMet())
}

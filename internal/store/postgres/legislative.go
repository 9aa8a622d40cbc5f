package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/datopublico/civicingest/internal/civic"
)

// LegislativeStore writes the legislative table group: sessions, bills,
// rosters, floor votes and their per-legislator detail rows.
type LegislativeStore struct {
	pool   pool
	writer *batchWriter
	logger *zap.Logger
}

// NewLegislativeStore connects to the legislative database. The DSN must
// carry the privileged writer role; the pipeline bypasses the row-level
// read policies the public application is subject to.
func NewLegislativeStore(ctx context.Context, dsn string, logger *zap.Logger) (*LegislativeStore, error) {
	if dsn == "" {
		return nil, fmt.Errorf("legislative dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse legislative dsn: %w", err)
	}
	p, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect legislative db: %w", err)
	}
	return NewLegislativeStoreWithPool(p, logger), nil
}

// NewLegislativeStoreWithPool constructs a store from an existing pool
// (primarily for testing).
func NewLegislativeStoreWithPool(p pool, logger *zap.Logger) *LegislativeStore {
	return &LegislativeStore{
		pool:   p,
		writer: &batchWriter{pool: p, logger: logger},
		logger: logger,
	}
}

// Close releases the underlying pool resources.
func (s *LegislativeStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// UpsertSessions writes chamber sessions keyed by their synthetic id.
func (s *LegislativeStore) UpsertSessions(ctx context.Context, sessions []civic.Session) int {
	cols := []string{"id", "camara", "numero", "legislatura", "fecha", "tipo", "updated_at"}
	rows := make([][]any, 0, len(sessions))
	for _, ses := range sessions {
		rows = append(rows, []any{ses.ID, ses.Chamber, ses.Number, ses.Legislature, ses.Date, ses.Type, ses.UpdatedAt})
	}
	return s.writer.upsert(ctx, "sesiones", cols, "id", false, DefaultChunkSize, rows)
}

// UpsertBillKeys writes bare placeholder bill rows holding only the natural
// key. Duplicates are ignored so rows already enriched by the detail
// extractor are never clobbered back to empty.
func (s *LegislativeStore) UpsertBillKeys(ctx context.Context, bulletins []string) int {
	rows := make([][]any, 0, len(bulletins))
	for _, b := range bulletins {
		rows = append(rows, []any{b})
	}
	return s.writer.upsert(ctx, "proyectos_ley", []string{"boletin"}, "boletin", true, DefaultChunkSize, rows)
}

// UpsertBills writes fully populated bill rows keyed by boletín.
func (s *LegislativeStore) UpsertBills(ctx context.Context, bills []civic.Bill) int {
	cols := []string{
		"boletin", "titulo", "fecha_ingreso", "iniciativa",
		"camara_origen", "urgencia_actual", "etapa", "link_tramitacion", "updated_at",
	}
	rows := make([][]any, 0, len(bills))
	for _, b := range bills {
		rows = append(rows, []any{
			b.Bulletin, b.Title, b.FiledAt, b.Initiative,
			b.OriginChamber, b.Urgency, b.Stage, b.TramitationURL, b.UpdatedAt,
		})
	}
	return s.writer.upsert(ctx, "proyectos_ley", cols, "boletin", false, DefaultChunkSize, rows)
}

// UpsertDeputies writes the lower-chamber roster.
func (s *LegislativeStore) UpsertDeputies(ctx context.Context, deputies []civic.Deputy) int {
	cols := []string{
		"id", "nombre", "apellido_paterno", "apellido_materno",
		"partido", "distrito", "url_foto", "updated_at",
	}
	rows := make([][]any, 0, len(deputies))
	for _, d := range deputies {
		rows = append(rows, []any{
			d.ID, d.FirstName, d.PaternalSurname, d.MaternalSurname,
			d.Party, d.District, d.PhotoURL, d.UpdatedAt,
		})
	}
	return s.writer.upsert(ctx, "diputados", cols, "id", false, DefaultChunkSize, rows)
}

// UpsertSenators writes the upper-chamber roster.
func (s *LegislativeStore) UpsertSenators(ctx context.Context, senators []civic.Senator) int {
	cols := []string{
		"id", "nombre", "apellido_paterno", "apellido_materno", "partido",
		"region", "circunscripcion", "email", "telefono", "url_foto", "updated_at",
	}
	rows := make([][]any, 0, len(senators))
	for _, sen := range senators {
		rows = append(rows, []any{
			sen.ID, sen.FirstName, sen.PaternalSurname, sen.MaternalSurname, sen.Party,
			sen.Region, sen.Constituency, sen.Email, sen.Phone, sen.PhotoURL, sen.UpdatedAt,
		})
	}
	return s.writer.upsert(ctx, "senadores", cols, "id", false, DefaultChunkSize, rows)
}

// UpsertFloorVote writes one vote header. Unlike the batch writers this
// reports failure: detail rows reference the header and must not be
// appended when it was never written.
func (s *LegislativeStore) UpsertFloorVote(ctx context.Context, v civic.FloorVote) error {
	sql := `INSERT INTO votaciones_sala (id, boletin, fecha, materia, resultado, quorum, tipo_votacion, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (id) DO UPDATE SET
	boletin = EXCLUDED.boletin,
	fecha = EXCLUDED.fecha,
	materia = EXCLUDED.materia,
	resultado = EXCLUDED.resultado,
	quorum = EXCLUDED.quorum,
	tipo_votacion = EXCLUDED.tipo_votacion,
	updated_at = EXCLUDED.updated_at`
	_, err := s.pool.Exec(ctx, sql, v.ID, v.Bulletin, v.Date, v.Subject, v.Outcome, v.Quorum, v.VoteType, v.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert floor vote %d: %w", v.ID, err)
	}
	return nil
}

// InsertVoteRecords appends per-legislator ballot rows. The table has no
// conflict key; re-runs append and downstream consumers deduplicate.
func (s *LegislativeStore) InsertVoteRecords(ctx context.Context, records []civic.VoteRecord) int {
	cols := []string{"votacion_id", "parlamentario_id", "camara", "nombre_parlamentario", "opcion_voto"}
	rows := make([][]any, 0, len(records))
	for _, r := range records {
		rows = append(rows, []any{r.VoteID, r.LegislatorID, r.Chamber, r.LegislatorName, r.Choice})
	}
	return s.writer.insert(ctx, "fact_votaciones_detalle", cols, DefaultChunkSize, rows)
}

// BillKeys returns every known bill natural key.
func (s *LegislativeStore) BillKeys(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT boletin FROM proyectos_ley`)
	if err != nil {
		return nil, fmt.Errorf("select bill keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("scan bill key: %w", err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bill keys: %w", err)
	}
	return keys, nil
}

// BillKeysFiledSince returns keys of bills filed on or after the cutoff.
func (s *LegislativeStore) BillKeysFiledSince(ctx context.Context, cutoff time.Time) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT boletin FROM proyectos_ley WHERE fecha_ingreso >= $1`, cutoff)
	if err != nil {
		return nil, fmt.Errorf("select bill keys since %s: %w", cutoff.Format("2006-01-02"), err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("scan bill key: %w", err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bill keys: %w", err)
	}
	return keys, nil
}

// Senators loads the senator roster fields the senate vote extractor needs
// to resolve free-text ballot names.
func (s *LegislativeStore) Senators(ctx context.Context) ([]civic.Senator, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, nombre, apellido_paterno, apellido_materno FROM senadores`)
	if err != nil {
		return nil, fmt.Errorf("select senators: %w", err)
	}
	defer rows.Close()

	var senators []civic.Senator
	for rows.Next() {
		var sen civic.Senator
		if err := rows.Scan(&sen.ID, &sen.FirstName, &sen.PaternalSurname, &sen.MaternalSurname); err != nil {
			return nil, fmt.Errorf("scan senator: %w", err)
		}
		senators = append(senators, sen)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate senators: %w", err)
	}
	return senators, nil
}

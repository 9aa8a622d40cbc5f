package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/datopublico/civicingest/internal/civic"
)

// supplierChunkSize is larger than the default: supplier rows are tiny and
// a day of orders can reference thousands of vendors.
const supplierChunkSize = 500

// ProcurementStore writes the procurement table group: purchase orders,
// tenders, and the deduplicated supplier registry.
type ProcurementStore struct {
	pool   pool
	writer *batchWriter
	logger *zap.Logger
}

// NewProcurementStore connects to the procurement database.
func NewProcurementStore(ctx context.Context, dsn string, logger *zap.Logger) (*ProcurementStore, error) {
	if dsn == "" {
		return nil, fmt.Errorf("procurement dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse procurement dsn: %w", err)
	}
	p, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect procurement db: %w", err)
	}
	return NewProcurementStoreWithPool(p, logger), nil
}

// NewProcurementStoreWithPool constructs a store from an existing pool
// (primarily for testing).
func NewProcurementStoreWithPool(p pool, logger *zap.Logger) *ProcurementStore {
	return &ProcurementStore{
		pool:   p,
		writer: &batchWriter{pool: p, logger: logger},
		logger: logger,
	}
}

// Close releases the underlying pool resources.
func (s *ProcurementStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// UpsertOrders writes purchase orders keyed by their código.
func (s *ProcurementStore) UpsertOrders(ctx context.Context, orders []civic.ProcurementOrder) int {
	cols := []string{
		"codigo", "fecha", "organismo", "monto", "moneda", "estado",
		"tipo", "descripcion", "sector", "proveedor_rut", "proveedor_nombre",
	}
	rows := make([][]any, 0, len(orders))
	for _, o := range orders {
		rows = append(rows, []any{
			o.Code, o.Date, o.Agency, o.Amount, o.Currency, o.Status,
			o.Kind, o.Description, o.Sector, o.SupplierRUT, o.SupplierName,
		})
	}
	return s.writer.upsert(ctx, "datos_mercadopublico", cols, "codigo", false, DefaultChunkSize, rows)
}

// UpsertSuppliers writes the deduplicated supplier registry keyed by RUT.
func (s *ProcurementStore) UpsertSuppliers(ctx context.Context, suppliers []civic.Supplier) int {
	rows := make([][]any, 0, len(suppliers))
	for _, sup := range suppliers {
		rows = append(rows, []any{sup.RUT, sup.Name})
	}
	return s.writer.upsert(ctx, "proveedores", []string{"rut", "nombre"}, "rut", false, supplierChunkSize, rows)
}

// UpsertTenders writes public tenders keyed by their código.
func (s *ProcurementStore) UpsertTenders(ctx context.Context, tenders []civic.Tender) int {
	cols := []string{
		"codigo", "nombre", "estado", "comprador_nombre", "comprador_codigo",
		"fecha_publicacion", "fecha_cierre", "moneda", "monto_estimado", "tipo",
	}
	rows := make([][]any, 0, len(tenders))
	for _, t := range tenders {
		rows = append(rows, []any{
			t.Code, t.Name, t.Status, t.BuyerName, t.BuyerCode,
			t.PublishedAt, t.ClosesAt, t.Currency, t.Estimate, t.Kind,
		})
	}
	return s.writer.upsert(ctx, "licitaciones", cols, "codigo", false, DefaultChunkSize, rows)
}

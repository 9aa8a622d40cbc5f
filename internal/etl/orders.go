package etl

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/datopublico/civicingest/internal/civic"
	"github.com/datopublico/civicingest/internal/dates"
)

// orderListing mirrors the ordenesdecompra.json payload.
type orderListing struct {
	Cantidad int        `json:"Cantidad"`
	Listado  []orderRow `json:"Listado"`
}

type orderRow struct {
	Codigo        string  `json:"Codigo"`
	Nombre        string  `json:"Nombre"`
	Estado        string  `json:"Estado"`
	MontoTotal    float64 `json:"MontoTotal"`
	TipoMoneda    string  `json:"TipoMoneda"`
	FechaCreacion string  `json:"FechaCreacion"`
	Comprador     struct {
		NombreOrganismo string `json:"NombreOrganismo"`
		Sector          string `json:"Sector"`
	} `json:"Comprador"`
	Proveedor struct {
		RutSucursal string `json:"RutSucursal"`
		Nombre      string `json:"Nombre"`
	} `json:"Proveedor"`
}

// Orders ingests yesterday's purchase orders from the procurement API and
// derives the unique-supplier roster from them.
type Orders struct {
	Fetcher Fetcher
	Store   ProcurementStore
	Clock   Clock
	Logger  *zap.Logger
	BaseURL string
	Ticket  string
}

// Name identifies the extractor in pipeline summaries.
func (o *Orders) Name() string { return "orders" }

// Run fetches one day of orders and upserts orders plus suppliers.
func (o *Orders) Run(ctx context.Context) error {
	base := o.BaseURL
	if base == "" {
		base = DefaultProcurementBaseURL
	}

	day := dates.YesterdayCompact(o.Clock.Now())
	o.Logger.Info("fetching purchase orders", zap.String("date", day))

	text, err := o.Fetcher.FetchStrict(ctx, base+"/ordenesdecompra.json?fecha="+day+"&ticket="+o.Ticket)
	if err != nil {
		return err
	}

	var listing orderListing
	if err := json.Unmarshal([]byte(text), &listing); err != nil {
		return err
	}

	orders := mapOrders(listing, o.Clock)
	if len(orders) == 0 {
		o.Logger.Warn("no orders in listing", zap.String("date", day))
		return nil
	}

	written := o.Store.UpsertOrders(ctx, orders)
	o.Logger.Info("orders written", zap.Int("rows", written))

	suppliers := uniqueSuppliers(orders)
	if len(suppliers) > 0 {
		o.Logger.Info("updating suppliers", zap.Int("unique", len(suppliers)))
		o.Store.UpsertSuppliers(ctx, suppliers)
	}
	return nil
}

// mapOrders shapes the listing into order records. Rows without a code are
// skipped; rows without a parseable creation date get the current time.
func mapOrders(listing orderListing, clock Clock) []civic.ProcurementOrder {
	orders := make([]civic.ProcurementOrder, 0, len(listing.Listado))
	for _, row := range listing.Listado {
		if row.Codigo == "" {
			continue
		}
		date := clock.Now()
		if parsed := dates.MaybeISO(row.FechaCreacion); parsed != nil {
			date = *parsed
		}
		sector := row.Comprador.Sector
		if sector == "" {
			sector = "Sin Clasificar"
		}
		orders = append(orders, civic.ProcurementOrder{
			Code:         row.Codigo,
			Date:         date,
			Agency:       row.Comprador.NombreOrganismo,
			Amount:       row.MontoTotal,
			Currency:     row.TipoMoneda,
			Status:       row.Estado,
			Kind:         "Orden de Compra",
			Description:  row.Nombre,
			Sector:       sector,
			SupplierRUT:  row.Proveedor.RutSucursal,
			SupplierName: row.Proveedor.Nombre,
		})
	}
	return orders
}

// uniqueSuppliers keeps the first appearance of each RUT, in order.
func uniqueSuppliers(orders []civic.ProcurementOrder) []civic.Supplier {
	seen := make(map[string]struct{}, len(orders))
	suppliers := make([]civic.Supplier, 0, len(orders))
	for _, order := range orders {
		if order.SupplierRUT == "" {
			continue
		}
		if _, ok := seen[order.SupplierRUT]; ok {
			continue
		}
		seen[order.SupplierRUT] = struct{}{}
		suppliers = append(suppliers, civic.Supplier{RUT: order.SupplierRUT, Name: order.SupplierName})
	}
	return suppliers
}

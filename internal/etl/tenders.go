package etl

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/datopublico/civicingest/internal/civic"
	"github.com/datopublico/civicingest/internal/dates"
)

// tenderListing mirrors the licitaciones.json payload.
type tenderListing struct {
	Cantidad int         `json:"Cantidad"`
	Listado  []tenderRow `json:"Listado"`
}

type tenderRow struct {
	CodigoExterno  string `json:"CodigoExterno"`
	CodigoExternal string `json:"CodigoExternal"`
	Nombre         string `json:"Nombre"`
	Estado         string `json:"Estado"`
	Comprador      struct {
		NombreOrganismo string `json:"NombreOrganismo"`
		CodigoOrganismo string `json:"CodigoOrganismo"`
	} `json:"Comprador"`
	FechaCreacion string  `json:"FechaCreacion"`
	FechaCierre   string  `json:"FechaCierre"`
	Moneda        string  `json:"Moneda"`
	MontoEstimado float64 `json:"MontoEstimado"`
	Tipo          string  `json:"Tipo"`
}

// Tenders ingests yesterday's public tenders from the procurement API.
type Tenders struct {
	Fetcher Fetcher
	Store   ProcurementStore
	Clock   Clock
	Logger  *zap.Logger
	BaseURL string
	Ticket  string
}

// Name identifies the extractor in pipeline summaries.
func (t *Tenders) Name() string { return "tenders" }

// Run fetches one day of tenders and upserts them by code.
func (t *Tenders) Run(ctx context.Context) error {
	base := t.BaseURL
	if base == "" {
		base = DefaultProcurementBaseURL
	}

	day := dates.YesterdayCompact(t.Clock.Now())
	t.Logger.Info("fetching tenders", zap.String("date", day))

	text, err := t.Fetcher.FetchStrict(ctx, base+"/licitaciones.json?fecha="+day+"&ticket="+t.Ticket)
	if err != nil {
		return err
	}

	var listing tenderListing
	if err := json.Unmarshal([]byte(text), &listing); err != nil {
		return err
	}

	tenders := mapTenders(listing)
	if len(tenders) == 0 {
		t.Logger.Warn("no tenders in listing", zap.String("date", day))
		return nil
	}

	written := t.Store.UpsertTenders(ctx, tenders)
	t.Logger.Info("tenders written", zap.Int("rows", written))
	return nil
}

// mapTenders shapes the listing into tender records. The code field has
// drifted between spellings across API versions, so both are accepted.
// Rows with no code under either spelling are skipped.
func mapTenders(listing tenderListing) []civic.Tender {
	tenders := make([]civic.Tender, 0, len(listing.Listado))
	for _, row := range listing.Listado {
		code := row.CodigoExterno
		if code == "" {
			code = row.CodigoExternal
		}
		if code == "" {
			continue
		}
		tenders = append(tenders, civic.Tender{
			Code:        code,
			Name:        row.Nombre,
			Status:      row.Estado,
			BuyerName:   row.Comprador.NombreOrganismo,
			BuyerCode:   row.Comprador.CodigoOrganismo,
			PublishedAt: dates.MaybeISO(row.FechaCreacion),
			ClosesAt:    dates.MaybeISO(row.FechaCierre),
			Currency:    row.Moneda,
			Estimate:    row.MontoEstimado,
			Kind:        row.Tipo,
		})
	}
	return tenders
}

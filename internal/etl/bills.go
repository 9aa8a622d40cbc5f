package etl

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/datopublico/civicingest/internal/civic"
	"github.com/datopublico/civicingest/internal/dates"
	"github.com/datopublico/civicingest/internal/markup"
)

const billPause = 500 * time.Millisecond

// bootstrapBulletins seed the detail crawl when the store holds no bills
// yet, so a fresh environment produces observable rows on its first run.
var bootstrapBulletins = []string{"8575-07", "16197-07"}

// BillDetail enriches previously discovered bill keys with their
// tramitación detail: title, filing date, origin chamber, urgency, stage.
type BillDetail struct {
	Fetcher Fetcher
	Store   LegislativeStore
	Clock   Clock
	Pauser  Pauser
	Logger  *zap.Logger
	BaseURL string
}

// Name identifies the extractor in pipeline summaries.
func (b *BillDetail) Name() string { return "bills" }

// Run fetches and upserts detail for every known bill key.
func (b *BillDetail) Run(ctx context.Context) error {
	base := b.BaseURL
	if base == "" {
		base = DefaultSenateBaseURL
	}

	bulletins, err := b.Store.BillKeys(ctx)
	if err != nil {
		b.Logger.Error("reading bill keys failed, using bootstrap set", zap.Error(err))
	}
	if len(bulletins) == 0 {
		bulletins = bootstrapBulletins
	}

	b.Logger.Info("processing bill details", zap.Int("bulletins", len(bulletins)))

	total := 0
	for _, bulletin := range bulletins {
		// The service resolves the bulletin without its check-digit suffix.
		query := strings.SplitN(bulletin, "-", 2)[0]

		text, err := b.Fetcher.FetchStrict(ctx, base+"/tramitacion.php?boletin="+query)
		if err != nil {
			return err
		}

		bills, err := mapBillDetails(text, b.Clock.Now())
		if err != nil {
			b.Logger.Error("malformed bill detail, skipping",
				zap.String("bulletin", bulletin), zap.Error(err))
			b.Pauser.Pause(ctx, billPause)
			continue
		}
		if len(bills) > 0 {
			total += b.Store.UpsertBills(ctx, bills)
		}
		b.Pauser.Pause(ctx, billPause)
	}

	b.Logger.Info("bill details finished", zap.Int("updated", total))
	return nil
}

// mapBillDetails extracts bill records from one tramitación document. The
// document may describe several projects; entries without a bulletin key
// are skipped.
func mapBillDetails(text string, now time.Time) ([]civic.Bill, error) {
	tree, err := markup.Parse(text)
	if err != nil {
		return nil, err
	}

	projects := markup.EnsureSlice(markup.Child(tree, "proyectos", "proyecto"))
	bills := make([]civic.Bill, 0, len(projects))
	for _, p := range projects {
		desc := markup.Child(p, "descripcion")
		bulletin := markup.Text(desc, "boletin")
		if bulletin == "" {
			continue
		}
		bills = append(bills, civic.Bill{
			Bulletin:       bulletin,
			Title:          markup.Text(desc, "titulo"),
			FiledAt:        dates.MaybeDMY(markup.Text(desc, "fecha_ingreso")),
			Initiative:     markup.Text(desc, "iniciativa"),
			OriginChamber:  markup.Text(desc, "camara_origen"),
			Urgency:        markup.Text(desc, "urgencia_actual"),
			Stage:          markup.Text(desc, "etapa"),
			TramitationURL: markup.Text(desc, "link_mensaje_mocion"),
			UpdatedAt:      now,
		})
	}
	return bills, nil
}

package etl

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/datopublico/civicingest/internal/civic"
	"github.com/datopublico/civicingest/internal/markup"
)

// Deputies ingests the current lower-chamber roster in one pass: a single
// strict fetch, no per-item remote calls.
type Deputies struct {
	Fetcher Fetcher
	Store   LegislativeStore
	Clock   Clock
	Logger  *zap.Logger
	BaseURL string
}

// Name identifies the extractor in pipeline summaries.
func (d *Deputies) Name() string { return "deputies" }

// Run fetches and upserts the deputy roster.
func (d *Deputies) Run(ctx context.Context) error {
	base := d.BaseURL
	if base == "" {
		base = DefaultChamberBaseURL
	}

	text, err := d.Fetcher.FetchStrict(ctx, base+"/getDiputados_Vigentes")
	if err != nil {
		return err
	}

	deputies, err := mapDeputies(text, d.Clock.Now())
	if err != nil {
		return fmt.Errorf("deputies: %w", err)
	}
	if len(deputies) == 0 {
		d.Logger.Warn("deputy roster came back empty")
		return nil
	}

	written := d.Store.UpsertDeputies(ctx, deputies)
	d.Logger.Info("deputy roster recorded", zap.Int("written", written))
	return nil
}

// mapDeputies shapes roster entries. The party comes from the most recent
// entry in the militancy-period history; the photo URL follows the fixed
// chamber image endpoint.
func mapDeputies(text string, now time.Time) ([]civic.Deputy, error) {
	tree, err := markup.Parse(text)
	if err != nil {
		return nil, err
	}

	entries := markup.EnsureSlice(markup.Child(tree, "Diputados", "Diputado"))
	deputies := make([]civic.Deputy, 0, len(entries))
	for _, entry := range entries {
		rawID := markup.Text(entry, "DIPID")
		id, err := strconv.Atoi(rawID)
		if err != nil {
			continue
		}

		party := ""
		militancies := markup.EnsureSlice(markup.Child(entry, "Militancias_Periodos", "Militancia"))
		if len(militancies) > 0 {
			party = markup.Text(militancies[len(militancies)-1], "Partido")
		}

		deputies = append(deputies, civic.Deputy{
			ID:              id,
			FirstName:       markup.Text(entry, "Nombre"),
			PaternalSurname: markup.Text(entry, "Apellido_Paterno"),
			MaternalSurname: markup.Text(entry, "Apellido_Materno"),
			Party:           party,
			PhotoURL:        "http://www.camara.cl/img.aspx?pId=" + rawID + "&pT=1",
			UpdatedAt:       now,
		})
	}
	return deputies, nil
}

// Senators ingests the current upper-chamber roster in one pass.
type Senators struct {
	Fetcher Fetcher
	Store   LegislativeStore
	Clock   Clock
	Logger  *zap.Logger
	BaseURL string
}

// Name identifies the extractor in pipeline summaries.
func (s *Senators) Name() string { return "senators" }

// Run fetches and upserts the senator roster.
func (s *Senators) Run(ctx context.Context) error {
	base := s.BaseURL
	if base == "" {
		base = DefaultSenateBaseURL
	}

	text, err := s.Fetcher.FetchStrict(ctx, base+"/senadores_vigentes.php")
	if err != nil {
		return err
	}

	senators, err := mapSenators(text, s.Clock.Now())
	if err != nil {
		return fmt.Errorf("senators: %w", err)
	}
	if len(senators) == 0 {
		s.Logger.Warn("senator roster came back empty")
		return nil
	}

	written := s.Store.UpsertSenators(ctx, senators)
	s.Logger.Info("senator roster recorded", zap.Int("written", written))
	return nil
}

func mapSenators(text string, now time.Time) ([]civic.Senator, error) {
	tree, err := markup.Parse(text)
	if err != nil {
		return nil, err
	}

	entries := markup.EnsureSlice(markup.Child(tree, "senadores", "senador"))
	senators := make([]civic.Senator, 0, len(entries))
	for _, entry := range entries {
		id, err := strconv.Atoi(markup.Text(entry, "PARLID"))
		if err != nil {
			continue
		}
		senators = append(senators, civic.Senator{
			ID:              id,
			FirstName:       markup.Text(entry, "PARLNOMBRE"),
			PaternalSurname: markup.Text(entry, "PARLAPELLIDOPATERNO"),
			MaternalSurname: markup.Text(entry, "PARLAPELLIDOMATERNO"),
			Party:           markup.Text(entry, "PARTIDO"),
			Region:          markup.Text(entry, "REGION"),
			Constituency:    markup.Text(entry, "CIRCUNSCRIPCION"),
			Email:           markup.Text(entry, "EMAIL"),
			Phone:           markup.Text(entry, "FONO"),
			PhotoURL:        markup.Text(entry, "FOTO"),
			UpdatedAt:       now,
		})
	}
	return senators, nil
}

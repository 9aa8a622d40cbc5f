package etl

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/datopublico/civicingest/internal/civic"
	"github.com/datopublico/civicingest/internal/dates"
	"github.com/datopublico/civicingest/internal/markup"
)

const (
	recentLegislatures = 5
	recentSessions     = 20
	sessionPause       = 500 * time.Millisecond
)

// Bill sub-trees appear under two equivalent tag spellings depending on the
// document, and the bulletin identifier moves between an attribute, an
// element, and an upper-cased attribute.
var (
	projectTags    = []string{"Proyecto", "PROYECTO_LEY"}
	bulletinIDKeys = []string{"@_Boletin", "Boletin", "@_BOLETIN"}
)

// Discovery enumerates recent legislative periods and their sessions,
// records the sessions, and mines each session document for bill keys,
// landing them as bare placeholder rows for the detail extractor to
// enrich on later runs.
type Discovery struct {
	Fetcher Fetcher
	Store   LegislativeStore
	Clock   Clock
	Pauser  Pauser
	Logger  *zap.Logger
	BaseURL string
}

// Name identifies the extractor in pipeline summaries.
func (d *Discovery) Name() string { return "discovery" }

// Run executes the discovery crawl.
func (d *Discovery) Run(ctx context.Context) error {
	base := d.BaseURL
	if base == "" {
		base = DefaultChamberBaseURL
	}

	text, ok := d.Fetcher.FetchLenient(ctx, base+"/getLegislaturas")
	if !ok {
		return fmt.Errorf("discovery: legislature list unavailable")
	}
	tree, err := markup.Parse(text)
	if err != nil {
		return fmt.Errorf("discovery: %w", err)
	}

	legislatures := recentByNumericID(
		markup.EnsureSlice(markup.Child(tree, "Legislaturas", "Legislatura")),
		"ID", recentLegislatures)

	totalFound := 0
	for _, leg := range legislatures {
		legID := markup.Text(leg, "ID")
		d.Logger.Info("processing legislature", zap.String("legislature", legID))

		sesText, ok := d.Fetcher.FetchLenient(ctx, base+"/getSesiones?prmLegislaturaID="+legID)
		if !ok {
			d.Logger.Warn("session list unavailable", zap.String("legislature", legID))
			continue
		}
		sesTree, err := markup.Parse(sesText)
		if err != nil {
			d.Logger.Error("malformed session list", zap.String("legislature", legID), zap.Error(err))
			continue
		}

		sessions := recentByNumericID(
			markup.EnsureSlice(markup.Child(sesTree, "Sesiones", "Sesion")),
			"ID", recentSessions)

		batch := mapSessions(legID, sessions, d.Clock.Now())
		if len(batch) > 0 {
			written := d.Store.UpsertSessions(ctx, batch)
			d.Logger.Info("sessions recorded",
				zap.String("legislature", legID),
				zap.Int("written", written))
		}

		for _, ses := range sessions {
			sesID := markup.Text(ses, "ID")
			bulletins := d.sessionBulletins(ctx, base, sesID)
			if len(bulletins) > 0 {
				d.Store.UpsertBillKeys(ctx, bulletins)
				totalFound += len(bulletins)
				d.Logger.Info("bulletins discovered",
					zap.String("session", sesID),
					zap.Int("count", len(bulletins)))
			}
			d.Pauser.Pause(ctx, sessionPause)
		}
	}

	d.Logger.Info("discovery finished", zap.Int("total_bulletins", totalFound))
	return nil
}

// sessionBulletins mines one session document for bill keys. Absence or a
// malformed document yields nothing; the crawl moves on.
func (d *Discovery) sessionBulletins(ctx context.Context, base, sessionID string) []string {
	text, ok := d.Fetcher.FetchLenient(ctx, base+"/getSesionBoletinXML?prmSesionID="+sessionID)
	if !ok {
		return nil
	}
	tree, err := markup.Parse(text)
	if err != nil {
		d.Logger.Error("malformed session document", zap.String("session", sessionID), zap.Error(err))
		return nil
	}

	scope := markup.Child(tree, "BOLETINXML", "SESION")
	found := markup.FindIdentifiers(scope, projectTags, bulletinIDKeys)

	bulletins := make([]string, 0, len(found))
	for b := range found {
		bulletins = append(bulletins, b)
	}
	// Deterministic write order for idempotent re-runs.
	sort.Strings(bulletins)
	return bulletins
}

// recentByNumericID keeps the n items with the highest numeric value under
// key, ordered descending. Items whose key does not parse are dropped.
func recentByNumericID(items []any, key string, n int) []map[string]any {
	type numbered struct {
		id   int
		item map[string]any
	}
	parsed := make([]numbered, 0, len(items))
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		id, err := strconv.Atoi(markup.Text(m, key))
		if err != nil {
			continue
		}
		parsed = append(parsed, numbered{id: id, item: m})
	}
	sort.SliceStable(parsed, func(i, j int) bool { return parsed[i].id > parsed[j].id })
	if len(parsed) > n {
		parsed = parsed[:n]
	}
	out := make([]map[string]any, 0, len(parsed))
	for _, p := range parsed {
		out = append(out, p.item)
	}
	return out
}

// mapSessions shapes session nodes into records. The synthetic id prefixes
// the source id with the chamber so both chambers can share one table.
func mapSessions(legislatureID string, sessions []map[string]any, now time.Time) []civic.Session {
	legislature, _ := strconv.Atoi(legislatureID)

	out := make([]civic.Session, 0, len(sessions))
	for _, ses := range sessions {
		id := markup.Text(ses, "ID")
		if id == "" {
			continue
		}
		number, _ := strconv.Atoi(markup.Text(ses, "Numero"))
		out = append(out, civic.Session{
			ID:          "DIP-" + id,
			Chamber:     civic.ChamberDeputies,
			Number:      number,
			Legislature: legislature,
			Date:        dates.MaybeISO(markup.Text(ses, "Fecha")),
			Type:        markup.Text(ses, "Tipo"),
			UpdatedAt:   now,
		})
	}
	return out
}

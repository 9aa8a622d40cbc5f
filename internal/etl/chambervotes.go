package etl

import (
	"context"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/datopublico/civicingest/internal/civic"
	"github.com/datopublico/civicingest/internal/dates"
	"github.com/datopublico/civicingest/internal/markup"
)

const chamberVotePause = 200 * time.Millisecond

// ChamberVotes ingests lower-chamber roll-call votes for bills filed in
// the current legislative period. Vote headers use the source's native
// numeric id; ballot detail rows are appended per legislator.
type ChamberVotes struct {
	Fetcher Fetcher
	Store   LegislativeStore
	Clock   Clock
	Pauser  Pauser
	Logger  *zap.Logger
	BaseURL string
	Cutoff  time.Time
}

// Name identifies the extractor in pipeline summaries.
func (c *ChamberVotes) Name() string { return "chamber-votes" }

// Run walks eligible bills, their votes, and each vote's ballots.
func (c *ChamberVotes) Run(ctx context.Context) error {
	base := c.BaseURL
	if base == "" {
		base = DefaultChamberBaseURL
	}
	cutoff := c.Cutoff
	if cutoff.IsZero() {
		cutoff = DefaultVoteCutoff
	}

	bulletins, err := c.Store.BillKeysFiledSince(ctx, cutoff)
	if err != nil {
		return err
	}
	c.Logger.Info("processing chamber votes", zap.Int("bulletins", len(bulletins)))

	totalBallots := 0
	for _, bulletin := range bulletins {
		text, ok := c.Fetcher.FetchLenient(ctx, base+"/getVotaciones_Boletin?prmBoletin="+bulletin)
		if !ok {
			c.Pauser.Pause(ctx, chamberVotePause)
			continue
		}
		tree, err := markup.Parse(text)
		if err != nil {
			c.Logger.Error("malformed vote list, skipping bulletin",
				zap.String("bulletin", bulletin), zap.Error(err))
			c.Pauser.Pause(ctx, chamberVotePause)
			continue
		}

		votes := markup.EnsureSlice(markup.Child(tree, "Votaciones", "Votacion"))
		for _, raw := range votes {
			vote, ok := mapChamberVote(raw, bulletin, c.Clock.Now())
			if !ok {
				continue
			}
			// Header first: ballot rows reference it.
			if err := c.Store.UpsertFloorVote(ctx, vote); err != nil {
				c.Logger.Error("vote header write failed, skipping detail",
					zap.Int64("vote_id", vote.ID), zap.Error(err))
				continue
			}
			totalBallots += c.ingestBallots(ctx, base, vote.ID)
			c.Pauser.Pause(ctx, chamberVotePause)
		}
		c.Pauser.Pause(ctx, chamberVotePause)
	}

	c.Logger.Info("chamber votes finished", zap.Int("ballots", totalBallots))
	return nil
}

// ingestBallots fetches and appends the per-legislator detail of one vote.
func (c *ChamberVotes) ingestBallots(ctx context.Context, base string, voteID int64) int {
	text, ok := c.Fetcher.FetchLenient(ctx, base+"/getVotacion_Detalle?prmVotacionID="+strconv.FormatInt(voteID, 10))
	if !ok {
		return 0
	}
	tree, err := markup.Parse(text)
	if err != nil {
		c.Logger.Error("malformed ballot detail", zap.Int64("vote_id", voteID), zap.Error(err))
		return 0
	}

	records := mapChamberBallots(tree, voteID)
	if len(records) == 0 {
		return 0
	}
	return c.Store.InsertVoteRecords(ctx, records)
}

// mapChamberVote shapes one vote header. Votes without a parseable native
// id are skipped.
func mapChamberVote(raw any, bulletin string, now time.Time) (civic.FloorVote, bool) {
	id, err := strconv.ParseInt(markup.Text(raw, "ID"), 10, 64)
	if err != nil {
		return civic.FloorVote{}, false
	}
	return civic.FloorVote{
		ID:       id,
		Bulletin: bulletin,
		Date:     dates.MaybeISO(markup.Text(raw, "Fecha")),
		Subject:  markup.Text(raw, "Tipo", "Nombre"),
		// Resultado arrives as a bare string or as a #text-wrapped node.
		Outcome:   markup.String(markup.Child(raw, "Resultado")),
		Quorum:    markup.Text(raw, "Quorum", "Nombre"),
		UpdatedAt: now,
	}, true
}

// mapChamberBallots shapes the per-legislator rows of one ballot document.
// Entries without a legislator id are skipped.
func mapChamberBallots(tree map[string]any, voteID int64) []civic.VoteRecord {
	ballots := markup.EnsureSlice(markup.Child(tree, "Votacion", "Votos", "Voto"))
	records := make([]civic.VoteRecord, 0, len(ballots))
	for _, ballot := range ballots {
		deputy := markup.Child(ballot, "Diputado")
		id, err := strconv.Atoi(markup.Text(deputy, "DIPID"))
		if err != nil {
			continue
		}

		// OpcionVoto is a bare string in older documents and a node with
		// a Nombre child in newer ones.
		choice := markup.String(markup.Child(ballot, "OpcionVoto"))
		if choice == "" {
			choice = markup.Text(ballot, "OpcionVoto", "Nombre")
		}

		name := strings.TrimSpace(markup.Text(deputy, "Nombre") + " " + markup.Text(deputy, "Apellido_Paterno"))
		records = append(records, civic.VoteRecord{
			VoteID:         voteID,
			LegislatorID:   id,
			Chamber:        civic.ChamberDeputies,
			LegislatorName: name,
			Choice:         choice,
		})
	}
	return records
}

package etl

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/datopublico/civicingest/internal/civic"
	"github.com/datopublico/civicingest/internal/dates"
	"github.com/datopublico/civicingest/internal/identity"
	"github.com/datopublico/civicingest/internal/markup"
)

const senateVotePause = 300 * time.Millisecond

// SenateVotes ingests upper-chamber votes. The senate feed carries no
// numeric vote id and identifies voters by display name only, so headers
// get a synthesized id and ballots are matched against the senator roster
// by surname.
type SenateVotes struct {
	Fetcher Fetcher
	Store   LegislativeStore
	Clock   Clock
	Pauser  Pauser
	Logger  *zap.Logger
	BaseURL string
	Cutoff  time.Time
}

// Name identifies the extractor in pipeline summaries.
func (s *SenateVotes) Name() string { return "senate-votes" }

// Run walks eligible bills and appends each vote's roster-resolved ballots.
func (s *SenateVotes) Run(ctx context.Context) error {
	base := s.BaseURL
	if base == "" {
		base = DefaultSenateBaseURL
	}
	cutoff := s.Cutoff
	if cutoff.IsZero() {
		cutoff = DefaultVoteCutoff
	}

	roster, err := s.Store.Senators(ctx)
	if err != nil {
		return err
	}
	index := indexSenators(roster)

	bulletins, err := s.Store.BillKeysFiledSince(ctx, cutoff)
	if err != nil {
		return err
	}
	s.Logger.Info("processing senate votes",
		zap.Int("bulletins", len(bulletins)), zap.Int("roster", len(roster)))

	totalBallots := 0
	for _, bulletin := range bulletins {
		// The senate endpoint wants the boletín without its check digit.
		bare := strings.SplitN(bulletin, "-", 2)[0]
		text, ok := s.Fetcher.FetchLenient(ctx, base+"/votaciones.php?boletin="+bare)
		if !ok {
			s.Pauser.Pause(ctx, 200*time.Millisecond)
			continue
		}
		tree, err := markup.Parse(text)
		if err != nil {
			s.Logger.Error("malformed senate vote document, skipping bulletin",
				zap.String("bulletin", bulletin), zap.Error(err))
			s.Pauser.Pause(ctx, senateVotePause)
			continue
		}

		votes := markup.EnsureSlice(markup.Child(tree, "votaciones", "votacion"))
		for _, raw := range votes {
			vote, records := mapSenateVote(raw, bulletin, index, s.Clock.Now())
			if !identity.InBand(vote.ID) {
				s.Logger.Warn("synthesized vote id out of band, skipping",
					zap.Int64("vote_id", vote.ID), zap.String("bulletin", bulletin))
				continue
			}
			if err := s.Store.UpsertFloorVote(ctx, vote); err != nil {
				s.Logger.Error("vote header write failed, skipping detail",
					zap.Int64("vote_id", vote.ID), zap.Error(err))
				continue
			}
			if len(records) > 0 {
				totalBallots += s.Store.InsertVoteRecords(ctx, records)
			}
		}
		s.Pauser.Pause(ctx, senateVotePause)
	}

	s.Logger.Info("senate votes finished", zap.Int("ballots", totalBallots))
	return nil
}

// mapSenateVote shapes one vote header plus its ballots. The header id is
// derived from bulletin, date, and subject so re-runs land on the same row.
func mapSenateVote(raw any, bulletin string, index map[string][]civic.Senator, now time.Time) (civic.FloorVote, []civic.VoteRecord) {
	dateText := markup.Text(raw, "FECHA")
	subject := markup.Text(raw, "TEMA")
	id := identity.VoteID(bulletin, dateText, subject)

	vote := civic.FloorVote{
		ID:        id,
		Bulletin:  bulletin,
		Date:      dates.MaybeDMY(dateText),
		Subject:   truncateRunes(subject, 500),
		Outcome:   senateOutcome(raw),
		Quorum:    markup.Text(raw, "QUORUM"),
		VoteType:  markup.Text(raw, "TIPOVOTACION"),
		UpdatedAt: now,
	}

	ballots := markup.EnsureSlice(markup.Child(raw, "DETALLE_VOTACION", "VOTO"))
	records := make([]civic.VoteRecord, 0, len(ballots))
	for _, ballot := range ballots {
		name := markup.Text(ballot, "PARLAMENTARIO")
		if name == "" {
			continue
		}
		last, first := splitBallotName(name)
		senator, ok := resolveSenator(index, last, first)
		if !ok {
			continue
		}
		records = append(records, civic.VoteRecord{
			VoteID:         id,
			LegislatorID:   senator.ID,
			Chamber:        civic.ChamberSenate,
			LegislatorName: name,
			Choice:         markup.Text(ballot, "SELECCION"),
		})
	}
	return vote, records
}

// senateOutcome summarizes the tally the way the destination expects it.
// Missing counts read as "0".
func senateOutcome(raw any) string {
	return fmt.Sprintf("Sí: %s, No: %s, Abs: %s",
		tallyCount(raw, "SI"), tallyCount(raw, "NO"), tallyCount(raw, "ABSTENCION"))
}

func tallyCount(raw any, key string) string {
	if v := markup.String(markup.Child(raw, key)); v != "" {
		return v
	}
	return "0"
}

// splitBallotName splits "Tuma Z., Eugenio" into surnames and first names.
// Names without a comma are all surname.
func splitBallotName(name string) (last, first string) {
	parts := strings.SplitN(name, ",", 2)
	last = strings.TrimSpace(parts[0])
	if len(parts) == 2 {
		first = strings.TrimSpace(parts[1])
	}
	return last, first
}

// indexSenators buckets the roster by lowercased paternal surname.
func indexSenators(roster []civic.Senator) map[string][]civic.Senator {
	index := make(map[string][]civic.Senator, len(roster))
	for _, senator := range roster {
		key := strings.ToLower(senator.PaternalSurname)
		index[key] = append(index[key], senator)
	}
	return index
}

// resolveSenator matches a ballot name against the roster. The surname
// bucket is keyed on the first word of the ballot's surname part; when a
// bucket holds several senators (siblings sharing a surname) the first
// names disambiguate by substring in either direction. An ambiguous bucket
// with no first-name match falls back to its first entry.
func resolveSenator(index map[string][]civic.Senator, last, first string) (civic.Senator, bool) {
	surname := strings.ToLower(strings.SplitN(last, " ", 2)[0])
	candidates := index[surname]
	switch len(candidates) {
	case 0:
		return civic.Senator{}, false
	case 1:
		return candidates[0], true
	}

	ballotFirst := strings.ToLower(first)
	for _, candidate := range candidates {
		rosterFirst := strings.ToLower(candidate.FirstName)
		if rosterFirst == "" || ballotFirst == "" {
			continue
		}
		if strings.Contains(rosterFirst, ballotFirst) || strings.Contains(ballotFirst, rosterFirst) {
			return candidate, true
		}
	}
	return candidates[0], true
}

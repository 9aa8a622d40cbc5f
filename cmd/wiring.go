package cmd

import (
	"go.uber.org/zap"

	"github.com/datopublico/civicingest/internal/config"
	"github.com/datopublico/civicingest/internal/etl"
	"github.com/datopublico/civicingest/internal/fetch"
	"github.com/datopublico/civicingest/internal/pipeline"
)

// legislativeSteps wires the six legislative extractors in dependency
// order: discovery seeds bill keys, rosters resolve voter identities,
// vote extraction comes last.
func legislativeSteps(cfg config.Config, client *fetch.Client, store etl.LegislativeStore, logger *zap.Logger) []pipeline.Step {
	clock := etl.SystemClock{}
	pauser := etl.TimerPauser{}
	return []pipeline.Step{
		&etl.Discovery{
			Fetcher: client, Store: store, Clock: clock, Pauser: pauser,
			Logger: logger, BaseURL: cfg.Sources.ChamberBaseURL,
		},
		&etl.BillDetail{
			Fetcher: client, Store: store, Clock: clock, Pauser: pauser,
			Logger: logger, BaseURL: cfg.Sources.SenateBaseURL,
		},
		&etl.Deputies{
			Fetcher: client, Store: store, Clock: clock,
			Logger: logger, BaseURL: cfg.Sources.ChamberBaseURL,
		},
		&etl.Senators{
			Fetcher: client, Store: store, Clock: clock,
			Logger: logger, BaseURL: cfg.Sources.SenateBaseURL,
		},
		&etl.ChamberVotes{
			Fetcher: client, Store: store, Clock: clock, Pauser: pauser,
			Logger: logger, BaseURL: cfg.Sources.ChamberBaseURL,
		},
		&etl.SenateVotes{
			Fetcher: client, Store: store, Clock: clock, Pauser: pauser,
			Logger: logger, BaseURL: cfg.Sources.SenateBaseURL,
		},
	}
}

// procurementSteps wires the two procurement extractors.
func procurementSteps(cfg config.Config, client *fetch.Client, store etl.ProcurementStore, logger *zap.Logger) []pipeline.Step {
	clock := etl.SystemClock{}
	return []pipeline.Step{
		&etl.Orders{
			Fetcher: client, Store: store, Clock: clock,
			Logger: logger, BaseURL: cfg.Sources.ProcurementBaseURL,
			Ticket: cfg.Procurement.Ticket,
		},
		&etl.Tenders{
			Fetcher: client, Store: store, Clock: clock,
			Logger: logger, BaseURL: cfg.Sources.ProcurementBaseURL,
			Ticket: cfg.Procurement.Ticket,
		},
	}
}

package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/alejandrodnm/tradecore/internal/domain"
)

// intentFile es el formato de -intents: trades ya cerrados para calentar la
// ventana del sizing, seguidos de los intents a decidir.
type intentFile struct {
	History []outcomeEntry `yaml:"history"`
	Intents []intentEntry  `yaml:"intents"`
}

type outcomeEntry struct {
	Outcome string  `yaml:"outcome"` // win | loss
	PnL     float64 `yaml:"pnl"`
}

type intentEntry struct {
	Market string  `yaml:"market"`
	Side   string  `yaml:"side"`
	Edge   float64 `yaml:"edge"`
	P      float64 `yaml:"p"`
}

type settledTrade struct {
	Outcome domain.Outcome
	PnL     float64
}

func loadIntents(path string) ([]domain.Intent, []settledTrade, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("loadIntents: read %q: %w", path, err)
	}
	return parseIntents(data)
}

func parseIntents(data []byte) ([]domain.Intent, []settledTrade, error) {
	var f intentFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, nil, fmt.Errorf("parseIntents: %w", err)
	}

	history := make([]settledTrade, 0, len(f.History))
	for i, h := range f.History {
		o, err := domain.ParseOutcome(h.Outcome)
		if err != nil {
			return nil, nil, fmt.Errorf("parseIntents: history[%d]: %w", i, err)
		}
		history = append(history, settledTrade{Outcome: o, PnL: h.PnL})
	}

	intents := make([]domain.Intent, 0, len(f.Intents))
	for i, e := range f.Intents {
		in, err := newIntent(e.Market, e.Side, e.Edge, e.P)
		if err != nil {
			return nil, nil, fmt.Errorf("parseIntents: intents[%d]: %w", i, err)
		}
		intents = append(intents, in)
	}
	if len(intents) == 0 {
		return nil, nil, fmt.Errorf("parseIntents: %w: no intents", domain.ErrInvalidInput)
	}
	return intents, history, nil
}

func newIntent(market, side string, edge, p float64) (domain.Intent, error) {
	s, err := domain.ParseSide(side)
	if err != nil {
		return domain.Intent{}, err
	}
	in := domain.Intent{MarketID: market, Side: s, EdgeFraction: edge, WinProbability: p}
	if err := in.Validate(); err != nil {
		return domain.Intent{}, err
	}
	return in, nil
}

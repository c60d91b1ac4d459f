package server

import (
	"rewario/internal/catalog"
	"rewario/internal/domain"
	"rewario/internal/engine"
	"rewario/internal/repo"
)

type loginRequest struct {
	Email    string `json:"email" example:"a@b.com"`
	Password string `json:"password" example:"secret"`
}

type registerRequest struct {
	Email    string `json:"email" example:"a@b.com"`
	Password string `json:"password" example:"secret"`
	Name     string `json:"name" example:"John"`
}

type withdrawRequest struct {
	Coins int `json:"coins" example:"500"`
}

type sessionResponse struct {
	Token     string      `json:"token"`
	ExpiresAt string      `json:"expires_at" format:"date-time"`
	User      domain.User `json:"user"`
}

type sessionStatus struct {
	Authenticated bool         `json:"authenticated"`
	User          *domain.User `json:"user,omitempty"`
}

type taskList struct {
	Items      []domain.Task `json:"items"`
	Categories []string      `json:"categories"`
}

type providerList struct {
	Items []domain.OfferwallProvider `json:"items"`
}

type levelList struct {
	Items []domain.LevelTier `json:"items"`
}

type transactionList struct {
	Items []domain.Transaction `json:"items"`
}

type eventList struct {
	Items []domain.Event `json:"items"`
}

type walletResponse struct {
	Coins         int            `json:"coins"`
	DailyEarnings int            `json:"dailyEarnings"`
	ValueINR      string         `json:"valueInr" example:"125.00"`
	MinWithdrawal int            `json:"minWithdrawal"`
	Totals        map[string]int `json:"totals"`
}

type withdrawalResponse struct {
	Transaction domain.Transaction `json:"transaction"`
	User        domain.User        `json:"user"`
	ValueINR    string             `json:"valueInr" example:"625.00"`
}

func walletFromEngine(w engine.Wallet) walletResponse {
	totals := map[string]int{}
	for k, v := range w.Totals {
		totals[string(k)] = v
	}
	return walletResponse{
		Coins:         w.Coins,
		DailyEarnings: w.DailyEarnings,
		ValueINR:      w.ValueINR.StringFixed(2),
		MinWithdrawal: w.MinWithdrawal,
		Totals:        totals,
	}
}

func taskFilter(category, search string) catalog.Filter {
	return catalog.Filter{Category: category, Search: search}
}

func eventFilters(actorID, typ, entityKind, entityID string, limit int) repo.EventFilters {
	return repo.EventFilters{
		Type:       typ,
		EntityKind: entityKind,
		EntityID:   entityID,
		ActorID:    actorID,
		Limit:      limit,
	}
}

func nonNilSlice[T any](in []T) []T {
	if in == nil {
		return []T{}
	}
	return in
}

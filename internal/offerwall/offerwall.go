// Package offerwall lists offerwall providers and generates their synthetic tasks.
package offerwall

import (
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"rewario/internal/domain"
	"rewario/internal/reward"
)

// GeneratedRate is the conversion rate stamped on generated tasks.
const GeneratedRate = 0.8

// DefaultTaskCount is how many tasks a provider page shows.
const DefaultTaskCount = 5

type Directory struct {
	providers []domain.OfferwallProvider

	mu  sync.Mutex
	rng *rand.Rand
}

// New builds a directory over providers. A nil rng is seeded from the clock.
func New(providers []domain.OfferwallProvider, rng *rand.Rand) *Directory {
	if rng == nil {
		now := uint64(time.Now().UnixNano())
		rng = rand.New(rand.NewPCG(now, now>>1))
	}
	return &Directory{providers: append([]domain.OfferwallProvider(nil), providers...), rng: rng}
}

// Providers returns every provider in catalog order, inactive ones included.
func (d *Directory) Providers() []domain.OfferwallProvider {
	return append([]domain.OfferwallProvider{}, d.providers...)
}

func (d *Directory) ActiveProviders() []domain.OfferwallProvider {
	res := []domain.OfferwallProvider{}
	for _, p := range d.providers {
		if p.Active {
			res = append(res, p)
		}
	}
	return res
}

func (d *Directory) Provider(id string) (domain.OfferwallProvider, error) {
	for _, p := range d.providers {
		if p.ID == id {
			return p, nil
		}
	}
	return domain.OfferwallProvider{}, fmt.Errorf("offerwall %s: %w", id, domain.ErrNotFound)
}

// GenerateTasks returns count fresh tasks for the provider, or none when it is unknown.
func (d *Directory) GenerateTasks(providerID string, count int) []domain.Task {
	tasks := []domain.Task{}
	p, err := d.Provider(providerID)
	if err != nil || count <= 0 {
		return tasks
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	for i := 0; i < count; i++ {
		tasks = append(tasks, d.generate(p, i))
	}
	return tasks
}

// generate draws in a fixed order so a seeded rng is reproducible. Caller holds mu.
func (d *Directory) generate(p domain.OfferwallProvider, i int) domain.Task {
	typ := domain.TaskTypes[d.rng.IntN(len(domain.TaskTypes))]
	category := categories[d.rng.IntN(len(categories))]
	rewardINR := float64(d.rng.IntN(100) + 10)
	title := pick(d.rng, titles[typ])
	timeRequired := pick(d.rng, durations[typ])
	minLevel := d.rng.IntN(3) + 1
	rate := GeneratedRate

	return domain.Task{
		ID:          fmt.Sprintf("%s-task-%d", p.ID, i),
		Title:       title,
		Description: descriptions[typ],
		Type:        typ,
		Partner: domain.Partner{
			ID:   p.ID,
			Name: p.Name,
			Logo: p.Logo,
			Type: domain.PartnerOfferwall,
		},
		TrackingURL:     fmt.Sprintf("https://example.com/%s/track?id=%d", p.ID, i),
		RewardINR:       rewardINR,
		CoinValue:       reward.DeriveCoinValue(rewardINR, rate),
		TimeRequired:    timeRequired,
		Instructions:    append([]string(nil), instructions[typ]...),
		Category:        category,
		Status:          domain.StatusAvailable,
		MinLevel:        &minLevel,
		Offerwall:       p.ID,
		OfferwallTaskID: fmt.Sprintf("%s-%d", p.ID, i),
		ConversionRate:  &rate,
	}
}

func pick(rng *rand.Rand, options []string) string {
	return options[rng.IntN(len(options))]
}

package memory

import (
	"context"
	"sync"

	"copytrader/internal/copier"
)

// Directory is an in-memory follower directory for tests.
type Directory struct {
	mu        sync.Mutex
	followers []copier.Follower
	err       error
}

func NewDirectory(followers ...copier.Follower) *Directory {
	return &Directory{followers: followers}
}

// Fail makes every directory call return err, simulating an outage.
func (d *Directory) Fail(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.err = err
}

func (d *Directory) ListEligible(_ context.Context, _ string) ([]copier.Follower, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.err != nil {
		return nil, d.err
	}

	eligible := make([]copier.Follower, 0, len(d.followers))
	for _, f := range d.followers {
		if f.Eligible() {
			eligible = append(eligible, f)
		}
	}
	return eligible, nil
}

func (d *Directory) Get(_ context.Context, id string) (*copier.Follower, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.err != nil {
		return nil, d.err
	}

	for _, f := range d.followers {
		if f.ID == id {
			cp := f
			return &cp, nil
		}
	}
	return nil, nil
}

package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/cmlabs-hris/qr-attendance/internal/domain/employee"
)

// Directory is an in-memory employee directory.
type Directory struct {
	mu       sync.RWMutex
	profiles map[string]employee.Profile
}

var _ employee.ProfileRepository = (*Directory)(nil)

// NewDirectory seeds a directory. It panics on a profile with an unknown timezone.
func NewDirectory(profiles ...employee.Profile) *Directory {
	d := &Directory{profiles: make(map[string]employee.Profile)}
	for _, p := range profiles {
		if err := d.Put(p); err != nil {
			panic(err)
		}
	}
	return d
}

// Put adds or replaces a profile, rejecting an unknown timezone.
func (d *Directory) Put(p employee.Profile) error {
	if err := p.ResolveTimezone(); err != nil {
		return err
	}
	p.OvertimeSlabs = slices.Clone(p.OvertimeSlabs)

	d.mu.Lock()
	d.profiles[p.ID] = p
	d.mu.Unlock()
	return nil
}

func (d *Directory) GetProfile(ctx context.Context, employeeID string) (employee.Profile, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	p, ok := d.profiles[employeeID]
	if !ok {
		return employee.Profile{}, employee.ErrEmployeeNotFound
	}
	p.OvertimeSlabs = slices.Clone(p.OvertimeSlabs)
	return p, nil
}

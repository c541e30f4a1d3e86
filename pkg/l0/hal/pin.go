package hal

import "sync"

// VirtualPin is an output pin that only tracks its level.
type VirtualPin struct {
	// OnChange, when set, is called with the new level on every write.
	OnChange func(level bool)

	lock   sync.Mutex
	level  bool
	writes int
}

// High implements Pin.
func (p *VirtualPin) High() {
	p.set(true)
}

// Low implements Pin.
func (p *VirtualPin) Low() {
	p.set(false)
}

// Level returns the current level.
func (p *VirtualPin) Level() bool {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.level
}

// Writes returns how many times the pin was driven.
func (p *VirtualPin) Writes() int {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.writes
}

func (p *VirtualPin) set(level bool) {
	p.lock.Lock()
	p.level = level
	p.writes++
	fn := p.OnChange
	p.lock.Unlock()
	if fn != nil {
		fn(level)
	}
}

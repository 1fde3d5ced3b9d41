package combat

import (
	"time"

	"github.com/cory-johannsen/survivors/internal/game/geom"
)

// PickupKind is what a pickup gives when collected.
type PickupKind string

const (
	PickupExperience PickupKind = "experience"
	PickupHeal       PickupKind = "heal"
	PickupCurrency   PickupKind = "currency"
	PickupMagnet     PickupKind = "magnet"
	PickupChest      PickupKind = "chest"
)

const (
	// pickupRadius is the collision radius of every pickup.
	pickupRadius = 6.0
	// pickupSpeed is how fast attracted pickups drift to the player.
	pickupSpeed = 320.0
)

// Pickup is an item lying on the field.
type Pickup struct {
	ID    uint64
	Kind  PickupKind
	Pos   geom.Vec2
	Value float64
	// Attracted pickups keep drifting toward the player until collected.
	Attracted bool
	Active    bool
}

// Update drifts the pickup toward target when it is attracted or within
// radius of it.
func (p *Pickup) Update(delta time.Duration, target geom.Vec2, radius float64) {
	if !p.Active {
		return
	}
	if !p.Attracted && p.Pos.DistSq(target) > radius*radius {
		return
	}
	p.Attracted = true
	step := pickupSpeed * delta.Seconds()
	to := target.Sub(p.Pos)
	if to.Len() <= step {
		p.Pos = target
		return
	}
	p.Pos = p.Pos.Add(to.Normalize().Scale(step))
}

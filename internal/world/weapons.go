package world

// WeaponID matches the client's weapon slot numbering.
type WeaponID int32

const (
	Hammer WeaponID = iota
	Gun
	Shotgun
	Grenade
	Laser
	Ninja
)

// WeaponClass decides which acquisition range tier applies.
type WeaponClass int

const (
	Melee WeaponClass = iota
	Projectile
)

// Weapon describes what the acquisition engine needs to know about a weapon.
type Weapon struct {
	ID              WeaponID    `json:"id"`
	Name            string      `json:"name"`
	Class           WeaponClass `json:"class"`
	ProjectileSpeed float64     `json:"projectileSpeed"` // units/s, 0 = hitscan or melee
}

// Weapons is the table of all known weapons.
// NOTE: laser is hitscan, so it gets no lead even though it uses the long range tier.
var Weapons = map[WeaponID]Weapon{
	Hammer:  {ID: Hammer, Name: "hammer", Class: Melee},
	Gun:     {ID: Gun, Name: "gun", Class: Projectile, ProjectileSpeed: 2200},
	Shotgun: {ID: Shotgun, Name: "shotgun", Class: Projectile, ProjectileSpeed: 2000},
	Grenade: {ID: Grenade, Name: "grenade", Class: Projectile, ProjectileSpeed: 1000},
	Laser:   {ID: Laser, Name: "laser", Class: Projectile},
	Ninja:   {ID: Ninja, Name: "ninja", Class: Melee},
}

// GetWeapon returns the weapon for id, falling back to the hammer.
func GetWeapon(id WeaponID) Weapon {
	if w, ok := Weapons[id]; ok {
		return w
	}
	return Weapons[Hammer]
}

func (id WeaponID) String() string { return GetWeapon(id).Name }

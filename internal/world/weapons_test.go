package world

import "testing"

func TestWeaponClasses(t *testing.T) {
	tests := []struct {
		id    WeaponID
		class WeaponClass
		speed float64
	}{
		{Hammer, Melee, 0},
		{Ninja, Melee, 0},
		{Gun, Projectile, 2200},
		{Shotgun, Projectile, 2000},
		{Grenade, Projectile, 1000},
		{Laser, Projectile, 0},
	}

	for _, tt := range tests {
		t.Run(tt.id.String(), func(t *testing.T) {
			w := GetWeapon(tt.id)
			if w.Class != tt.class {
				t.Errorf("Expected class %d, got %d", tt.class, w.Class)
			}
			if w.ProjectileSpeed != tt.speed {
				t.Errorf("Expected speed %f, got %f", tt.speed, w.ProjectileSpeed)
			}
		})
	}
}

func TestGetWeaponUnknownFallsBackToHammer(t *testing.T) {
	if w := GetWeapon(WeaponID(42)); w.ID != Hammer {
		t.Errorf("Expected hammer fallback, got %s", w.Name)
	}
}

func TestSameTeam(t *testing.T) {
	aff := SameTeam(map[int]int{1: 2, 2: 2, 3: 1})
	if !aff.Excluded(1, 2) {
		t.Error("Expected teammate to be excluded")
	}
	if aff.Excluded(1, 3) {
		t.Error("Expected opponent to be targetable")
	}
	if aff.Excluded(4, 5) {
		t.Error("Expected teamless subjects to be targetable")
	}
}

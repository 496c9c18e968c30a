// Package world declares the collaborators the input pipeline consumes but
// does not own: the terrain query service, the entity snapshot feed and the
// team/affiliation predicate.
package world

import "inputpipe/internal/geom"

// TileSize is the edge length of one terrain tile in world units.
const TileSize = 32

// Terrain answers collision and hazard queries against the loaded map.
type Terrain interface {
	// Obstructed reports whether the segment a->b intersects solid terrain.
	Obstructed(a, b geom.Vec2) bool
	// IsHazard reports whether p lies in a freeze or death tile.
	IsHazard(p geom.Vec2) bool
	// IsSolid reports whether p lies in a collidable tile.
	IsSolid(p geom.Vec2) bool
}

// Affiliation decides whether a subject must never be targeted by self
// (same team, friend list, ...). A nil Affiliation excludes nobody.
type Affiliation interface {
	Excluded(selfID, subjectID int) bool
}

// AffiliationFunc adapts a plain function to Affiliation.
type AffiliationFunc func(selfID, subjectID int) bool

func (f AffiliationFunc) Excluded(selfID, subjectID int) bool { return f(selfID, subjectID) }

// SameTeam excludes subjects that share self's non-zero team.
func SameTeam(teams map[int]int) Affiliation {
	return AffiliationFunc(func(selfID, subjectID int) bool {
		t := teams[selfID]
		return t != 0 && teams[subjectID] == t
	})
}

// Subject is another entity as reported by the snapshot feed.
type Subject struct {
	ID     int       `json:"id"`
	Active bool      `json:"active"`
	Pos    geom.Vec2 `json:"pos"`
	Vel    geom.Vec2 `json:"vel"`
	Team   int       `json:"team,omitempty"`
}

// Self is the locally controlled entity.
type Self struct {
	ID     int       `json:"id"`
	Alive  bool      `json:"alive"`
	Pos    geom.Vec2 `json:"pos"`
	Vel    geom.Vec2 `json:"vel"`
	Weapon WeaponID  `json:"weapon"`
}

// Snapshot is the per-tick view of the world handed to the pipeline.
type Snapshot struct {
	Self     Self
	Subjects []Subject
}

// Subject returns the subject with the given id.
func (s Snapshot) Subject(id int) (Subject, bool) {
	for _, sub := range s.Subjects {
		if sub.ID == id {
			return sub, true
		}
	}
	return Subject{}, false
}

// Package bridge connects the pipeline to an external controller over a
// local TCP socket. Each poll sends an observation and picks up the latest
// command without ever blocking the tick.
package bridge

import (
	"encoding/binary"
	"errors"
	"math"

	"inputpipe/internal/geom"
	"inputpipe/internal/input"
	"inputpipe/internal/world"
)

const (
	// DefaultAddress is where the external controller listens.
	DefaultAddress = "127.0.0.1:6666"

	// Observation grid geometry
	GridRadius = 5
	GridSide   = 2*GridRadius + 1
	GridCells  = GridSide * GridSide

	// Wire sizes in bytes
	ObservationSize = 2*4 + GridCells*4
	CommandSize     = 6 * 4
)

// Grid flag bits
const (
	FlagSolid  int32 = 1 << 0
	FlagHazard int32 = 1 << 1
)

var ErrShortPacket = errors.New("bridge: short packet")

// Observation is what the core sends each poll.
type Observation struct {
	PosX, PosY float32
	Grid       [GridCells]int32 // row-major, dy outer, dx inner
}

// Command is what the external controller sends back.
type Command struct {
	Move    int32 `json:"move"`
	Jump    int32 `json:"jump"`
	Hook    int32 `json:"hook"`
	Fire    int32 `json:"fire"`
	TargetX int32 `json:"targetX"`
	TargetY int32 `json:"targetY"`
}

// tileIndex returns the tile coordinate containing v.
func tileIndex(v float64) int {
	return int(math.Floor(v / world.TileSize))
}

// Observe samples the 11x11 tile neighbourhood around pos.
func Observe(terrain world.Terrain, pos geom.Vec2) Observation {
	obs := Observation{PosX: float32(pos.X), PosY: float32(pos.Y)}
	tx, ty := tileIndex(pos.X), tileIndex(pos.Y)

	i := 0
	for dy := -GridRadius; dy <= GridRadius; dy++ {
		for dx := -GridRadius; dx <= GridRadius; dx++ {
			c := geom.V(
				float64((tx+dx)*world.TileSize+world.TileSize/2),
				float64((ty+dy)*world.TileSize+world.TileSize/2),
			)
			var flags int32
			if terrain.IsSolid(c) {
				flags |= FlagSolid
			}
			if terrain.IsHazard(c) {
				flags |= FlagHazard
			}
			obs.Grid[i] = flags
			i++
		}
	}
	return obs
}

// Cell returns the flags at grid offset (dx, dy) from the center tile.
func (o *Observation) Cell(dx, dy int) int32 {
	return o.Grid[(dy+GridRadius)*GridSide+(dx+GridRadius)]
}

// AppendBinary appends the little-endian wire form of o to b.
func (o *Observation) AppendBinary(b []byte) []byte {
	b = binary.LittleEndian.AppendUint32(b, math.Float32bits(o.PosX))
	b = binary.LittleEndian.AppendUint32(b, math.Float32bits(o.PosY))
	for _, v := range o.Grid {
		b = binary.LittleEndian.AppendUint32(b, uint32(v))
	}
	return b
}

// DecodeObservation parses one observation from b.
func DecodeObservation(b []byte) (Observation, error) {
	var o Observation
	if len(b) < ObservationSize {
		return o, ErrShortPacket
	}
	o.PosX = math.Float32frombits(binary.LittleEndian.Uint32(b[0:4]))
	o.PosY = math.Float32frombits(binary.LittleEndian.Uint32(b[4:8]))
	for i := range o.Grid {
		o.Grid[i] = int32(binary.LittleEndian.Uint32(b[8+i*4:]))
	}
	return o, nil
}

// AppendBinary appends the little-endian wire form of c to b.
func (c Command) AppendBinary(b []byte) []byte {
	for _, v := range [...]int32{c.Move, c.Jump, c.Hook, c.Fire, c.TargetX, c.TargetY} {
		b = binary.LittleEndian.AppendUint32(b, uint32(v))
	}
	return b
}

// DecodeCommand parses one command from b.
func DecodeCommand(b []byte) (Command, error) {
	if len(b) < CommandSize {
		return Command{}, ErrShortPacket
	}
	field := func(i int) int32 { return int32(binary.LittleEndian.Uint32(b[i*4:])) }
	return Command{
		Move:    field(0),
		Jump:    field(1),
		Hook:    field(2),
		Fire:    field(3),
		TargetX: field(4),
		TargetY: field(5),
	}, nil
}

// Apply overrides movement, fire and aim on cmd. Fire toggles the edge
// counter only when its parity disagrees with the wanted state. A zero
// target keeps the current aim.
func (c Command) Apply(cmd *input.Command) {
	cmd.Direction = geom.Sign(float64(c.Move))
	cmd.Jump = boolInt(c.Jump != 0)
	cmd.Hook = boolInt(c.Hook != 0)
	cmd.Fire = cmd.Fire.Set(c.Fire != 0)
	if c.TargetX != 0 || c.TargetY != 0 {
		cmd.TargetX = c.TargetX
		cmd.TargetY = c.TargetY
	}
}

func boolInt(b bool) int32 {
	if b {
		return 1
	}
	return 0
}

package terrain

type Material uint8

const (
	Air   Material = 0
	Dirt  Material = 1
	Grass Material = 2
	Stone Material = 3
	Lava  Material = 4 // Instant death on touch
	Wood  Material = 5 // Only placed by Build Wall
)

func (m Material) String() string {
	switch m {
	case Air:
		return "Air"

	case Dirt:
		return "Dirt"

	case Grass:
		return "Grass"

	case Stone:
		return "Stone"

	case Lava:
		return "Lava"

	case Wood:
		return "Wood"

	default:
		return "Unknown"
	}
}

// Returns true if entities and projectiles collide with this material
func IsSolid(m Material) bool {
	switch m {
	case Dirt, Grass, Stone, Lava, Wood:
		return true

	default:
		return false // Air and unknown values are passable
	}
}

// Lava is solid for collision but kills anything touching it
func IsDeadly(m Material) bool {
	return m == Lava
}

// returns true if grass may grow on top of this material
func CanGrowGrass(m Material) bool {
	return m == Dirt || m == Stone
}

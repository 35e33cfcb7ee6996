package weapons

type Weapon uint8

const (
	Bazooka Weapon = iota
	Grenade
	Shotgun
	ClusterBomb
	BananaBomb
	HolyHandGrenade
	Dynamite
	Mine
	HomingMissile
	Mortar
	Sheep
	Airstrike
	NapalmStrike
	Teleport
	BaseballBat
	SniperRifle
	Uzi
	BananaBonanza
	ConcreteShell
	SuperSheep
	BuildWall
	Drill
	weaponCount
)

type Category uint8

const (
	Explosives Category = iota
	Ballistics
	Utilities
	Special
)

func (c Category) String() string {
	switch c {
	case Explosives:
		return "Explosives"

	case Ballistics:
		return "Ballistics"

	case Utilities:
		return "Utilities"

	case Special:
		return "Special"

	default:
		return "Unknown"
	}
}

// Behavior selects how a weapon is resolved once fired.
type Behavior uint8

const (
	Ballistic Behavior = iota
	Bouncing
	Homing
	Walking
	Placed
	Hitscan
	Spread
	AirDrop
	Utility
)

// Spec holds the fixed parameters of one weapon. Zero Fuse means no fuse.
type Spec struct {
	Name        string
	Category    Category
	Behavior    Behavior
	Radius      float64
	Damage      int
	SpeedFactor float64
	Fuse        float64
	Bounces     int
	Cluster     int
	Drag        float64 // fraction of velocity lost per second
	Info        string
}

var table = [weaponCount]Spec{
	Bazooka:         {Name: "Bazooka", Category: Explosives, Behavior: Ballistic, Radius: 30, Damage: 45, SpeedFactor: 12, Info: "Direct fire rocket"},
	Grenade:         {Name: "Grenade", Category: Explosives, Behavior: Bouncing, Radius: 25, Damage: 35, SpeedFactor: 9, Fuse: 3, Bounces: 3, Drag: 0.05, Info: "Bounces, then blows after 3s"},
	Shotgun:         {Name: "Shotgun", Category: Ballistics, Behavior: Spread, Radius: 12, Damage: 60, SpeedFactor: 14, Info: "Six pellets in a cone"},
	ClusterBomb:     {Name: "Cluster Bomb", Category: Explosives, Behavior: Bouncing, Radius: 35, Damage: 30, SpeedFactor: 8, Fuse: 2.5, Bounces: 2, Cluster: 5, Drag: 0.05, Info: "Splits into 5 bomblets"},
	BananaBomb:      {Name: "Banana Bomb", Category: Explosives, Behavior: Bouncing, Radius: 40, Damage: 50, SpeedFactor: 10, Fuse: 3, Bounces: 5, Cluster: 6, Drag: 0.05, Info: "Bounces a lot, splits into 6"},
	HolyHandGrenade: {Name: "Holy Hand Grenade", Category: Explosives, Behavior: Bouncing, Radius: 560, Damage: 100, SpeedFactor: 7, Fuse: 3, Bounces: 1, Drag: 0.05, Info: "Very large blast"},
	Dynamite:        {Name: "Dynamite", Category: Explosives, Behavior: Placed, Radius: 45, Damage: 50, Fuse: 5, Info: "Drop it and run"},
	Mine:            {Name: "Mine", Category: Explosives, Behavior: Placed, Radius: 30, Damage: 45, Fuse: 3, Info: "Short fuse trap"},
	HomingMissile:   {Name: "Homing Missile", Category: Ballistics, Behavior: Homing, Radius: 35, Damage: 40, SpeedFactor: 15, Info: "Seeks the nearest enemy"},
	Mortar:          {Name: "Mortar", Category: Explosives, Behavior: Ballistic, Radius: 38, Damage: 35, SpeedFactor: 11, Cluster: 3, Drag: 0.02, Info: "High arc, splits on impact"},
	Sheep:           {Name: "Sheep", Category: Special, Behavior: Walking, Radius: 50, Damage: 60, SpeedFactor: 5, Fuse: 5, Info: "Walks along the ground"},
	Airstrike:       {Name: "Airstrike", Category: Explosives, Behavior: AirDrop, Radius: 25, Damage: 30, Info: "Five bombs from above"},
	NapalmStrike:    {Name: "Napalm Strike", Category: Explosives, Behavior: AirDrop, Radius: 20, Damage: 25, Info: "Burning bombs from above"},
	Teleport:        {Name: "Teleport", Category: Utilities, Behavior: Utility, Info: "Move your ball anywhere"},
	BaseballBat:     {Name: "Baseball Bat", Category: Special, Behavior: Utility, Damage: 20, Info: "Melee knockback"},
	SniperRifle:     {Name: "Sniper Rifle", Category: Ballistics, Behavior: Hitscan, Damage: 50, Info: "Instant straight shot"},
	Uzi:             {Name: "Uzi", Category: Ballistics, Behavior: Spread, Damage: 5, Info: "Ten quick bullets"},
	BananaBonanza:   {Name: "Banana Bonanza", Category: Explosives, Behavior: Bouncing, Radius: 45, Damage: 35, SpeedFactor: 10, Fuse: 2, Cluster: 10, Drag: 0.05, Info: "Ten bomblets"},
	ConcreteShell:   {Name: "Concrete Shell", Category: Ballistics, Behavior: Ballistic, Radius: 10, Damage: 5, SpeedFactor: 20, Info: "Heavy slug, knocks balls away"},
	SuperSheep:      {Name: "Super Sheep", Category: Special, Behavior: Walking, Radius: 55, Damage: 70, SpeedFactor: 13, Fuse: 10, Info: "A faster, bigger sheep"},
	BuildWall:       {Name: "Build Wall", Category: Utilities, Behavior: Utility, SpeedFactor: 1, Info: "Place a short wooden wall"},
	Drill:           {Name: "Drill", Category: Utilities, Behavior: Utility, Info: "Bore a tunnel along your aim"},
}

func (w Weapon) Valid() bool {
	return w < weaponCount
}

// Spec returns the parameters for w, or the zero Spec for unknown values.
func (w Weapon) Spec() Spec {
	if !w.Valid() {
		return Spec{}
	}
	return table[w]
}

func (w Weapon) String() string {
	if !w.Valid() {
		return "Unknown"
	}
	return table[w].Name
}

func (w Weapon) Category() Category { return w.Spec().Category }

func (w Weapon) Behavior() Behavior { return w.Spec().Behavior }

// FromName maps a wire name such as "Cluster Bomb" back to a weapon.
func FromName(name string) (Weapon, bool) {
	for i := range table {
		if table[i].Name == name {
			return Weapon(i), true
		}
	}
	return 0, false
}

func All() []Weapon {
	out := make([]Weapon, 0, weaponCount)
	for w := Weapon(0); w < weaponCount; w++ {
		out = append(out, w)
	}
	return out
}

// InCategory lists the weapons of c in table order, for weapon menus.
func InCategory(c Category) []Weapon {
	var out []Weapon
	for _, w := range All() {
		if w.Category() == c {
			out = append(out, w)
		}
	}
	return out
}

// NeedsTarget reports whether firing w only arms a targeting mode that a
// later click resolves.
func (w Weapon) NeedsTarget() bool {
	switch w {
	case Airstrike, NapalmStrike, Teleport, BaseballBat, BuildWall:
		return true

	default:
		return false
	}
}

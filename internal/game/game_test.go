package game

import (
	"io"
	"math"
	"testing"

	"github.com/Scrimzay/ballwars/internal/terrain"
	"github.com/Scrimzay/ballwars/internal/weapons"
	"github.com/charmbracelet/log"
	"pgregory.net/rapid"
)

const step = 1.0 / 30.0

func flatGrid() *terrain.Grid {
	g := terrain.New(terrain.Width, terrain.Height)
	for y := 600; y < terrain.Height; y++ {
		for x := 0; x < terrain.Width; x++ {
			g.Set(x, y, terrain.Dirt)
		}
	}
	return g
}

func newSim(auth TurnAuthority, bots ...bool) *Simulation {
	s := NewOnGrid(flatGrid(), 7, Options{
		Authority: auth,
		Bots:      bots,
		Logger:    log.New(io.Discard),
	})
	for range 30 {
		for _, b := range s.Balls {
			b.Tick(s.Terrain, step)
		}
	}
	return s
}

// run ticks until done reports true or limit is hit and returns the number
// of ticks taken.
func run(s *Simulation, limit int, done func() bool) int {
	for i := 1; i <= limit; i++ {
		s.Update(step)
		if done() {
			return i
		}
	}
	return -1
}

func TestSpawnInterleavesTeams(t *testing.T) {
	s := newSim(Always())
	if len(s.Balls) != DefaultTeams*BallsPerTeam {
		t.Fatalf("Expected %d balls, got %d", DefaultTeams*BallsPerTeam, len(s.Balls))
	}
	for i, b := range s.Balls {
		if b.Team != i%DefaultTeams {
			t.Errorf("ball %d team = %d", i, b.Team)
		}
		if !b.Alive || !b.OnGround {
			t.Errorf("ball %d should be resting alive on the ground", i)
		}
		if i > 0 && b.X <= s.Balls[i-1].X {
			t.Errorf("balls should be spread left to right")
		}
	}
	if s.Phase != Aiming || s.CurrentBall != 0 || s.CurrentTurnIndex != 0 {
		t.Errorf("round should open on ball 0, got phase %v ball %d", s.Phase, s.CurrentBall)
	}
	if s.RNG != terrain.LCG(7) {
		t.Error("initial RNG must be LCG(seed)")
	}
}

func TestRotationVisitsEveryBall(t *testing.T) {
	s := newSim(Always())
	var got []int
	for range 4 {
		s.SyncToPlayerTurn(0)
		got = append(got, s.CurrentBall)
	}
	want := []int{2, 4, 0, 2}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("rotation = %v, want %v", got, want)
		}
	}
}

func TestRotationFairness(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		s := newSim(Always())
		for _, i := range []int{0, 2, 4} {
			if rapid.Bool().Draw(t, "kill") {
				s.Balls[i].Kill()
			}
		}
		if s.firstAlive(0) < 0 {
			s.Balls[4].Alive = true
			s.Balls[4].Health = 100
		}
		if rapid.Bool().Draw(t, "kill1") {
			s.Balls[1].Kill()
		}

		var alive []int
		for _, i := range []int{0, 2, 4} {
			if s.Balls[i].Alive {
				alive = append(alive, i)
			}
		}

		seen := make(map[int]int)
		for range len(alive) {
			s.SyncToPlayerTurn(0)
			b := s.Balls[s.CurrentBall]
			if !b.Alive || b.Team != 0 {
				t.Fatalf("picked ball %d alive=%v team=%d", s.CurrentBall, b.Alive, b.Team)
			}
			seen[s.CurrentBall]++
		}
		for _, i := range alive {
			if seen[i] != 1 {
				t.Fatalf("ball %d had %d turns in one rotation of %v", i, seen[i], alive)
			}
		}
	})
}

func TestGameOverIsTerminal(t *testing.T) {
	s := newSim(IndexMatch(0))
	for _, i := range []int{1, 3, 5} {
		s.Balls[i].Kill()
	}
	s.SyncToPlayerTurn(1)
	if s.Phase != GameOver || s.Winner != 0 {
		t.Fatalf("Expected game over with team 0 winning, got %v winner %d", s.Phase, s.Winner)
	}

	s.HandOff(1)
	s.ForceAdvance()
	s.Resync(nil, 1, "aiming", nil)
	s.AdvanceTurn()
	s.Update(step)
	if s.Phase != GameOver {
		t.Errorf("game over must be terminal, got %v", s.Phase)
	}
	if _, ok := s.PendingSync(); ok {
		t.Error("hand-off during game over must not be deferred")
	}

	var overs int
	for _, e := range s.TakeEvents() {
		if e.Kind == EventGameOver {
			overs++
		}
	}
	if overs != 1 {
		t.Errorf("Expected one game_over event, got %d", overs)
	}
}

func TestPhaseNames(t *testing.T) {
	for _, p := range []Phase{Aiming, Charging, ProjectileFlying, Settling, Retreat, TurnEnd, GameOver} {
		if p.Label() == "" || p.String() == "unknown" {
			t.Errorf("phase %d has no name", p)
		}
	}
	for _, p := range []Phase{Aiming, Retreat, TurnEnd} {
		if got := PhaseFromWire(p.String()); got != p {
			t.Errorf("PhaseFromWire(%q) = %v", p.String(), got)
		}
	}
	if PhaseFromWire("projectile") != Settling || PhaseFromWire("nonsense") != Aiming {
		t.Error("in-flight phases resume as Settling, unknown ones as Aiming")
	}
	if Phase(99).Label() != "" {
		t.Error("unknown phase should have no banner")
	}
}

func TestOfflineTurnCycle(t *testing.T) {
	s := newSim(Always())
	rng := s.RNG
	s.EndTurn()
	if s.Phase != TurnEnd {
		t.Fatalf("EndTurn should enter TurnEnd, got %v", s.Phase)
	}
	if len(s.TakeOutbound()) != 0 {
		t.Error("offline play must not queue messages")
	}

	n := run(s, 100, func() bool { return s.Phase == Aiming })
	if n < 0 {
		t.Fatal("turn never advanced")
	}
	if s.CurrentBall != 1 || s.CurrentTurnIndex != 1 {
		t.Errorf("Expected ball 1 of team 1, got ball %d team %d", s.CurrentBall, s.CurrentTurnIndex)
	}
	if s.RNG != terrain.LCG(rng) {
		t.Error("each turn start advances the RNG once")
	}
	if s.TurnTimer > TurnTime || s.TurnTimer < TurnTime-step {
		t.Errorf("turn timer = %v", s.TurnTimer)
	}
	if s.Aim != math.Pi+0.3 && s.Aim != -0.3 {
		t.Errorf("aim should reset by facing, got %v", s.Aim)
	}
}

func TestAdvanceSkipsDead(t *testing.T) {
	s := newSim(Always())
	s.Balls[1].Kill()
	s.AdvanceTurn()
	if s.CurrentBall != 2 || s.CurrentTurnIndex != 0 {
		t.Errorf("Expected ball 2, got %d", s.CurrentBall)
	}
}

func TestFlyingWatchdog(t *testing.T) {
	s := newSim(Always())
	c := weapons.PlaceCharge(weapons.Dynamite, s.Balls[0])
	c.Fuse = 1000
	s.Effects = append(s.Effects, c)
	s.Phase = ProjectileFlying

	n := run(s, 1000, func() bool { return s.Phase != ProjectileFlying })
	if n < 899 {
		t.Fatalf("watchdog fired after %d ticks", n)
	}
	if s.Phase != TurnEnd || len(s.Effects) != 0 {
		t.Errorf("watchdog should clear effects and end the turn, got %v with %d effects", s.Phase, len(s.Effects))
	}
}

func TestSettleTimeout(t *testing.T) {
	s := newSim(Always())
	s.enterSettling()
	var n int
	for n = 1; n <= 200; n++ {
		s.Balls[0].VX = 200
		s.Update(step)
		if s.Phase != Settling {
			break
		}
	}
	if n < 150 || n > 152 {
		t.Errorf("settling should time out after 5s, took %d ticks", n)
	}
	if s.Phase != TurnEnd {
		t.Errorf("Expected TurnEnd, got %v", s.Phase)
	}
}

func TestSettledShotEntersRetreat(t *testing.T) {
	s := newSim(Always())
	s.enterSettling()
	s.HasFired = true
	s.Update(step)
	if s.Phase != Retreat || s.RetreatTimer != RetreatTime {
		t.Errorf("Expected Retreat with a full timer, got %v %v", s.Phase, s.RetreatTimer)
	}
}

func TestDeferredHandOff(t *testing.T) {
	s := newSim(IndexMatch(1))
	s.Phase = ProjectileFlying
	s.HandOff(1)
	if team, ok := s.PendingSync(); !ok || team != 1 {
		t.Fatalf("hand-off during flight should be deferred, got %d %v", team, ok)
	}
	if s.Phase != ProjectileFlying {
		t.Fatalf("deferred hand-off must not change phase")
	}

	n := run(s, 10, func() bool { return s.Phase == Aiming })
	if n < 0 {
		t.Fatalf("pending hand-off never applied, phase %v", s.Phase)
	}
	if s.CurrentBall != 1 || s.CurrentTurnIndex != 1 {
		t.Errorf("Expected ball 1, got %d", s.CurrentBall)
	}
	if _, ok := s.PendingSync(); ok {
		t.Error("pending hand-off should be consumed")
	}
}

func TestHandOffImmediateInTurnEnd(t *testing.T) {
	s := newSim(IndexMatch(0))
	s.EndTurn()
	s.TakeOutbound()
	s.HandOff(1)
	if s.Phase != Aiming || s.CurrentBall != 1 {
		t.Errorf("Expected immediate sync to ball 1, got %v ball %d", s.Phase, s.CurrentBall)
	}
}

func TestForceAdvance(t *testing.T) {
	for _, p := range []Phase{Aiming, Charging, Retreat, TurnEnd} {
		s := newSim(IndexMatch(0))
		s.Phase = p
		s.ForceAdvance()
		if s.Phase != TurnEnd || s.TurnEndTimer != forceAdvanceDelay {
			t.Errorf("%v: Expected TurnEnd in 0.1s, got %v %v", p, s.Phase, s.TurnEndTimer)
		}
	}
	for _, p := range []Phase{ProjectileFlying, Settling} {
		s := newSim(IndexMatch(0))
		s.Phase = p
		s.ForceAdvance()
		if s.Phase != p {
			t.Errorf("%v must not be cut short", p)
		}
	}
}

func TestPhaseSwitchDropsEffects(t *testing.T) {
	s := newSim(Always())
	s.SelectWeapon(weapons.Dynamite)
	s.BeginCharge()
	s.Release()
	if s.Phase != Retreat || len(s.Effects) != 1 {
		t.Fatalf("Expected a lit charge in Retreat, got %v with %d effects", s.Phase, len(s.Effects))
	}
	s.ForceAdvance()
	if len(s.Effects) != 0 {
		t.Fatalf("forced advance kept %d effects", len(s.Effects))
	}
	if n := run(s, 400, func() bool { return s.Phase == Aiming }); n < 0 {
		t.Fatalf("turn never handed on, phase %v", s.Phase)
	}
	s.TakeBlasts()
	run(s, int(weapons.Dynamite.Spec().Fuse/step)+30, func() bool { return false })
	if blasts := s.TakeBlasts(); len(blasts) != 0 || len(s.Effects) != 0 {
		t.Errorf("old charge went off in the next turn: %+v", blasts)
	}

	r := newSim(IndexMatch(0))
	r.SelectWeapon(weapons.Bazooka)
	r.Aim = -0.7
	r.BeginCharge()
	r.Power = 50
	r.Release()
	if r.Phase != ProjectileFlying || len(r.Effects) != 1 {
		t.Fatalf("Expected a flying shot, got %v", r.Phase)
	}
	r.Resync(nil, 1, "aiming", nil)
	if r.Phase != Aiming || r.CurrentTurnIndex != 1 || len(r.Effects) != 0 {
		t.Errorf("resync kept the shot: phase %v turn %d effects %d", r.Phase, r.CurrentTurnIndex, len(r.Effects))
	}

	e := newSim(Always())
	e.SelectWeapon(weapons.Mine)
	e.BeginCharge()
	e.Release()
	e.EndTurn()
	if len(e.Effects) != 0 {
		t.Errorf("EndTurn kept %d effects", len(e.Effects))
	}
}

func TestOnlineTurnEndSafetyWindow(t *testing.T) {
	s := newSim(IndexMatch(0))
	s.EndTurn()
	n := run(s, 400, func() bool { return s.Phase == Aiming })
	want := int((TurnEndDelay + SafetyWindow) / step)
	if n < want-1 || n > want+2 {
		t.Errorf("Expected local advance after about %d ticks, took %d", want, n)
	}
}

func TestEndTurnPublishes(t *testing.T) {
	s := newSim(IndexMatch(0))
	s.Terrain.ApplyDamage(500, 600, 10)
	s.EndTurn()
	out := s.TakeOutbound()
	if len(out) != 3 {
		t.Fatalf("Expected ball state, terrain and end turn, got %d messages", len(out))
	}
	if _, ok := out[0].(BallStateMsg); !ok {
		t.Errorf("first message = %T", out[0])
	}
	if ops, ok := out[1].(TerrainOpsMsg); !ok || len(ops.Ops) != 1 {
		t.Errorf("second message = %#v", out[1])
	}
	if _, ok := out[2].(EndTurnMsg); !ok {
		t.Errorf("third message = %T", out[2])
	}
}

func TestBazookaTurn(t *testing.T) {
	s := newSim(Always())
	if !s.SelectWeapon(weapons.Bazooka) {
		t.Fatal("weapon select refused")
	}
	s.Aim = -0.7
	if !s.BeginCharge() {
		t.Fatal("charge refused")
	}
	s.Power = 50
	s.Release()
	if s.Phase != ProjectileFlying || !s.HasFired {
		t.Fatalf("Expected a flying shot, got %v", s.Phase)
	}

	if n := run(s, 600, func() bool { return s.Phase == Retreat }); n < 0 {
		t.Fatalf("shot never resolved, phase %v", s.Phase)
	}
	blasts := s.TakeBlasts()
	if len(blasts) != 1 || blasts[0].Radius != 30 {
		t.Errorf("Expected one bazooka blast, got %+v", blasts)
	}
	if len(s.Terrain.DamageLog()) != 1 {
		t.Error("the crater should be logged")
	}

	if n := run(s, 400, func() bool { return s.Phase == Aiming }); n < 0 {
		t.Fatal("turn never handed on")
	}
	if s.CurrentBall != 1 {
		t.Errorf("Expected ball 1 next, got %d", s.CurrentBall)
	}
}

func TestChargeAutoFires(t *testing.T) {
	s := newSim(Always())
	s.BeginCharge()
	n := run(s, 100, func() bool { return s.Phase != Charging })
	if n < 54 || n > 56 {
		t.Errorf("full charge should fire after about 55 ticks, took %d", n)
	}
	if !s.HasFired || s.Charging {
		t.Error("auto-fire should spend the shot")
	}
}

func TestTargetedWeaponNeedsClick(t *testing.T) {
	s := newSim(IndexMatch(0))
	s.SelectWeapon(weapons.Teleport)
	if w, ok := s.Targeting(); !ok || w != weapons.Teleport {
		t.Fatal("teleport should enter targeting")
	}
	if s.BeginCharge() {
		t.Error("no charging while targeting")
	}
	if !s.Click(900, 100) {
		t.Fatal("click refused")
	}
	b := s.Balls[0]
	if b.X != 900 || b.Y != 100 || s.Phase != Settling || !s.HasFired {
		t.Errorf("teleport failed: ball (%v,%v) phase %v", b.X, b.Y, s.Phase)
	}
	out := s.TakeOutbound()
	if len(out) != 1 {
		t.Fatalf("Expected one input message, got %d", len(out))
	}
	if m, ok := out[0].(InputMsg); !ok || m.Input.Kind != InputTeleport {
		t.Errorf("message = %#v", out[0])
	}
}

func TestBuildWallTwoClicks(t *testing.T) {
	s := newSim(Always())
	s.SelectWeapon(weapons.BuildWall)
	s.Click(400, 500)
	if s.HasFired {
		t.Fatal("first click only anchors")
	}
	s.Click(400, 500)
	if !s.HasFired || s.Phase != Settling {
		t.Fatal("second click should place the wall")
	}
	ops := s.TerrainOps()
	if s.Ops.Count(terrain.OpWall) != 1 || ops[len(ops)-1].C != terrain.MilliRadians(s.Aim) {
		t.Errorf("wall op = %+v, aim %v", ops, s.Aim)
	}
	if s.Terrain.Get(400, 500) != terrain.Wood {
		t.Error("wall should stamp wood at its anchor")
	}
}

func TestNotMyTurnRefusesControl(t *testing.T) {
	s := newSim(IndexMatch(1))
	if s.SelectWeapon(weapons.Grenade) || s.BeginCharge() {
		t.Error("control accepted on another seat's turn")
	}
	s.SetAim(1)
	if s.Aim == 1 {
		t.Error("aim changed on another seat's turn")
	}
	if s.Controlled() != -1 {
		t.Error("no ball should be controlled")
	}
	s.Phase = ProjectileFlying
	if s.Controlled() != 1 {
		t.Errorf("Expected to dodge with ball 1, got %d", s.Controlled())
	}

	a := newSim(AwaitIdentity())
	if a.IsMyTurn() || a.BeginCharge() {
		t.Error("no control before identity arrives")
	}
}

func TestApplyRemoteInput(t *testing.T) {
	s := newSim(IndexMatch(0))
	s.HandOff(1)
	s.ApplyInput(1, Input{Kind: InputFire, Weapon: weapons.Bazooka, Angle: -1, Power: 40})
	if s.Phase != ProjectileFlying || !s.HasFired || len(s.Effects) != 1 {
		t.Errorf("remote fire not replayed: phase %v effects %d", s.Phase, len(s.Effects))
	}
	if len(s.TakeOutbound()) != 0 {
		t.Error("replayed input must not be echoed")
	}

	r := newSim(IndexMatch(0))
	r.HandOff(1)
	r.ApplyInput(1, Input{Kind: InputFire, Weapon: weapons.Airstrike})
	if r.HasFired || r.Phase != Aiming {
		t.Error("a remote Fire of a targeted weapon does nothing")
	}
	r.ApplyInput(1, Input{Kind: InputStrike, Weapon: weapons.NapalmStrike, X: 700})
	if r.Phase != ProjectileFlying || len(r.Effects) != 7 {
		t.Errorf("Expected 7 napalm drops, got %d", len(r.Effects))
	}
}

func TestApplyBallStateNeverRevives(t *testing.T) {
	s := newSim(IndexMatch(0))
	s.Balls[1].Kill()
	x, hp, alive := 123.0, 100, true
	zero := 0
	s.ApplyBallState([]BallPatch{
		{X: &x},
		{X: &x, HP: &hp, Alive: &alive},
		{HP: &zero},
	})
	if s.Balls[0].X != 123 {
		t.Error("patch should move ball 0")
	}
	if s.Balls[1].Alive || s.Balls[1].X == 123 {
		t.Error("dead ball was revived or moved")
	}
	if s.Balls[2].Alive {
		t.Error("zero hp should kill")
	}
}

func TestResyncRestoresPhase(t *testing.T) {
	s := newSim(IndexMatch(0))
	rem := 12.5
	s.Resync(nil, 1, "projectile", &rem)
	if s.Phase != Settling || s.CurrentTurnIndex != 1 || s.TurnTimer != 12.5 {
		t.Errorf("resync gave phase %v team %d timer %v", s.Phase, s.CurrentTurnIndex, s.TurnTimer)
	}
	s.Resync(nil, 0, "retreat", nil)
	if s.Phase != Retreat {
		t.Errorf("Expected Retreat, got %v", s.Phase)
	}
}

func TestStreamTargets(t *testing.T) {
	s := newSim(IndexMatch(0))
	s.SetStreamTarget(0, 10, 10, 0, 0)
	s.SetStreamTarget(1, 800, 300, 5, 0)
	s.Update(step)
	if s.Balls[0].X == 10 {
		t.Error("own ball must ignore the stream")
	}
	if s.Balls[1].X != 800 || s.Balls[1].Y != 300 {
		t.Errorf("streamed ball at (%v,%v)", s.Balls[1].X, s.Balls[1].Y)
	}
	if i, ok := s.StreamedBall(); !ok || i != 0 {
		t.Errorf("Expected to stream ball 0, got %d %v", i, ok)
	}

	s.ClearStreamTargets()
	if s.streamed(1) {
		t.Error("targets should be cleared")
	}
	if _, ok := newSim(Always()).StreamedBall(); ok {
		t.Error("offline play streams nothing")
	}
}

func TestHitAndDeathEvents(t *testing.T) {
	s := newSim(Always())
	s.TakeEvents()
	b := s.Balls[1]
	s.Fires = append(s.Fires, weapons.NewFirePool(b.X, b.Y))
	s.Update(step)

	ev := s.TakeEvents()
	if len(ev) != 1 || ev[0].Kind != EventHit || ev[0].Damage != weapons.FirePoolDamage || ev[0].Name != b.Name {
		t.Fatalf("Expected a hit event, got %+v", ev)
	}

	d := s.Balls[3]
	d.Health = 3
	s.Fires = append(s.Fires, weapons.NewFirePool(d.X, d.Y))
	s.Update(step)
	if d.Alive {
		t.Fatal("fire pool should have finished the ball")
	}
	var died bool
	for _, e := range s.TakeEvents() {
		if e.Kind == EventDied && e.Name == d.Name {
			died = true
		}
	}
	if !died {
		t.Error("Expected a died event")
	}
}

func TestBotFiresHoming(t *testing.T) {
	s := newSim(Always(), false, true)
	s.EndTurn()
	run(s, 100, func() bool { return s.Phase == Aiming })
	if s.CurrentTurnIndex != 1 {
		t.Fatalf("Expected the bot's turn, got team %d", s.CurrentTurnIndex)
	}
	n := run(s, 60, func() bool { return s.Phase != Aiming })
	if n < 44 {
		t.Errorf("bot fired after %d ticks, before thinking", n)
	}
	if s.SelectedWeapon != weapons.HomingMissile || !s.HasFired {
		t.Error("bot should fire a homing missile")
	}
}

func TestRestart(t *testing.T) {
	s := newSim(Always())
	for _, i := range []int{1, 3, 5} {
		s.Balls[i].Kill()
	}
	s.AdvanceTurn()
	want := terrain.LCG(s.RNG)
	s.RequestRestart()
	s.Update(step)
	if s.Phase != Aiming || s.Seed != want {
		t.Errorf("restart gave phase %v seed %d, want seed %d", s.Phase, s.Seed, want)
	}
	for _, b := range s.Balls {
		if !b.Alive {
			t.Error("restart should revive the roster")
		}
	}

	o := newSim(IndexMatch(0))
	o.Phase = GameOver
	o.RequestRestart()
	out := o.TakeOutbound()
	if len(out) != 1 {
		t.Fatalf("Expected a restart message, got %d", len(out))
	}
	if _, ok := out[0].(RestartMsg); !ok {
		t.Errorf("message = %T", out[0])
	}
	if o.Phase != GameOver {
		t.Error("online restart waits for the relay")
	}
}

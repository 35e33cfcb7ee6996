package game

// SetStreamTarget records a peer's authoritative position for ball bi. Our
// own balls are never driven by the stream.
func (s *Simulation) SetStreamTarget(bi int, x, y, vx, vy float64) {
	if bi < 0 || bi >= len(s.targets) || s.ownBall(bi) {
		return
	}
	s.targets[bi] = &BallState{X: x, Y: y, VX: vx, VY: vy}
}

func (s *Simulation) ClearStreamTargets() {
	clear(s.targets)
}

func (s *Simulation) streamed(i int) bool {
	return s.Authority.Online() && !s.ownBall(i) && i < len(s.targets) && s.targets[i] != nil
}

// snapStreamed puts streamed balls exactly where their owner says they are.
func (s *Simulation) snapStreamed() {
	if !s.Authority.Online() {
		return
	}
	for i, t := range s.targets {
		if t == nil || s.ownBall(i) || !s.Balls[i].Alive {
			continue
		}
		s.Balls[i].Snap(t.X, t.Y, t.VX, t.VY)
	}
}

// StreamedBall returns the ball this peer should stream, if any: the
// current ball on our own turn, or our dodging ball while a shot flies.
func (s *Simulation) StreamedBall() (int, bool) {
	if _, ok := s.Authority.Seat(); !ok {
		return -1, false
	}
	idx := -1
	switch s.Phase {
	case Aiming, Charging, Retreat:
		if s.IsMyTurn() {
			idx = s.CurrentBall
		}

	case ProjectileFlying:
		idx = s.Controlled()
	}
	if idx < 0 || idx >= len(s.Balls) || !s.Balls[idx].Alive {
		return -1, false
	}
	return idx, true
}

package callbacks

// Player plays Track once, then silence.
type Player struct {
	idx   int
	Track []float32
}

func (p *Player) Process(_, out []float32) {
	n := copy(out, p.Track[p.idx:])
	p.idx += n
	clear(out[n:])
}

func (p *Player) Done() bool {
	return p.idx >= len(p.Track)
}

func (p *Player) Reset() {
	p.idx = 0
}

package framesim

import (
	"math/rand/v2"
	"strconv"
)

// Frame is one simulated detection with its ground truth.
type Frame struct {
	ID         string
	Truth      string
	Descriptor []float64
}

// Generator derives identity centroids and noisy frames from a seed, so a
// scenario replays identically.
type Generator struct {
	rng       *rand.Rand
	scenario  Scenario
	centroids map[string][]float64
}

// NewGenerator builds centroids for every identity in sc.
func NewGenerator(sc Scenario) *Generator {
	g := &Generator{
		rng:       rand.New(rand.NewPCG(sc.Seed, sc.Seed^0x9e3779b97f4a7c15)),
		scenario:  sc,
		centroids: make(map[string][]float64, len(sc.Identities)),
	}
	for _, id := range sc.Identities {
		c := make([]float64, sc.Dimension)
		for i := range c {
			c[i] = g.rng.NormFloat64() * sc.Spread
		}
		g.centroids[id.Name] = c
	}
	return g
}

// Centroid returns the clean descriptor of name.
func (g *Generator) Centroid(name string) []float64 {
	c := g.centroids[name]
	return append([]float64(nil), c...)
}

// Frames returns FramesPerIdentity noisy frames per identity, interleaved
// round-robin so identities alternate in front of the camera.
func (g *Generator) Frames() []Frame {
	sc := g.scenario
	out := make([]Frame, 0, sc.FramesPerIdentity*len(sc.Identities))
	for round := 0; round < sc.FramesPerIdentity; round++ {
		for _, id := range sc.Identities {
			out = append(out, Frame{
				ID:         frameID(id.Name, round),
				Truth:      id.Name,
				Descriptor: g.noisy(g.centroids[id.Name]),
			})
		}
	}
	return out
}

func (g *Generator) noisy(c []float64) []float64 {
	out := make([]float64, len(c))
	for i, v := range c {
		out[i] = v + g.rng.NormFloat64()*g.scenario.Noise
	}
	return out
}

func frameID(name string, round int) string {
	return name + "-" + strconv.Itoa(round)
}

// Package evolab is the toy genetic algorithm behind the evolution lab demo:
// a population of fixed-length float genomes evolves toward a target genome
// via tournament selection, single-point crossover and gaussian mutation.
// It is a visualization aid, not an optimizer; populations are tiny.
package evolab

import (
	"errors"
	"math"
	"math/rand"
)

// Config tunes one lab run. Zero values are replaced by defaults.
type Config struct {
	PopulationSize int     `json:"population_size"`
	GenomeLength   int     `json:"genome_length"`
	MutationRate   float64 `json:"mutation_rate"`
	MutationScale  float64 `json:"mutation_scale"`
	CrossoverRate  float64 `json:"crossover_rate"`
	TournamentSize int     `json:"tournament_size"`
	EliteCount     int     `json:"elite_count"`
}

// DefaultConfig matches the slider demo's defaults.
func DefaultConfig() Config {
	return Config{
		PopulationSize: 20,
		GenomeLength:   8,
		MutationRate:   0.1,
		MutationScale:  0.2,
		CrossoverRate:  0.7,
		TournamentSize: 3,
		EliteCount:     1,
	}
}

// Individual is one genome with its fitness against the target.
type Individual struct {
	Genome  []float64 `json:"genome"`
	Fitness float64   `json:"fitness"`
}

// Lab runs the algorithm with an injected rand source so demos and tests are
// reproducible.
type Lab struct {
	cfg Config
	rng *rand.Rand
}

var errDimensionMismatch = errors.New("population and target genome lengths differ")

// New builds a lab, filling in defaults for zero config fields.
func New(cfg Config, rng *rand.Rand) *Lab {
	def := DefaultConfig()
	if cfg.PopulationSize <= 0 {
		cfg.PopulationSize = def.PopulationSize
	}
	if cfg.GenomeLength <= 0 {
		cfg.GenomeLength = def.GenomeLength
	}
	if cfg.MutationRate <= 0 {
		cfg.MutationRate = def.MutationRate
	}
	if cfg.MutationScale <= 0 {
		cfg.MutationScale = def.MutationScale
	}
	if cfg.CrossoverRate <= 0 {
		cfg.CrossoverRate = def.CrossoverRate
	}
	if cfg.TournamentSize <= 0 {
		cfg.TournamentSize = def.TournamentSize
	}
	if cfg.EliteCount < 0 {
		cfg.EliteCount = def.EliteCount
	}
	return &Lab{cfg: cfg, rng: rng}
}

// Seed returns a random starting population, genes in [0,1).
func (l *Lab) Seed() [][]float64 {
	pop := make([][]float64, l.cfg.PopulationSize)
	for i := range pop {
		genome := make([]float64, l.cfg.GenomeLength)
		for j := range genome {
			genome[j] = l.rng.Float64()
		}
		pop[i] = genome
	}
	return pop
}

// Step advances the population one generation toward target and returns the
// next generation along with the best individual of the incoming one. With
// EliteCount >= 1 the best fitness never regresses between generations.
func (l *Lab) Step(pop [][]float64, target []float64) ([][]float64, Individual, error) {
	for _, genome := range pop {
		if len(genome) != len(target) {
			return nil, Individual{}, errDimensionMismatch
		}
	}
	if len(pop) == 0 {
		return nil, Individual{}, errors.New("empty population")
	}

	scored := make([]Individual, len(pop))
	for i, genome := range pop {
		scored[i] = Individual{Genome: genome, Fitness: Fitness(genome, target)}
	}

	best := scored[0]
	for _, ind := range scored[1:] {
		if ind.Fitness > best.Fitness {
			best = ind
		}
	}

	next := make([][]float64, 0, len(pop))
	for e := 0; e < l.cfg.EliteCount && e < len(pop); e++ {
		next = append(next, append([]float64(nil), best.Genome...))
	}

	for len(next) < len(pop) {
		a := l.tournament(scored)
		b := l.tournament(scored)
		child := l.crossover(a.Genome, b.Genome)
		l.mutate(child)
		next = append(next, child)
	}
	return next, best, nil
}

// Fitness maps mean squared error to (0,1], 1 meaning an exact match.
func Fitness(genome, target []float64) float64 {
	var mse float64
	for i := range genome {
		d := genome[i] - target[i]
		mse += d * d
	}
	mse /= float64(len(genome))
	return 1 / (1 + mse)
}

func (l *Lab) tournament(scored []Individual) Individual {
	best := scored[l.rng.Intn(len(scored))]
	for i := 1; i < l.cfg.TournamentSize; i++ {
		c := scored[l.rng.Intn(len(scored))]
		if c.Fitness > best.Fitness {
			best = c
		}
	}
	return best
}

func (l *Lab) crossover(a, b []float64) []float64 {
	child := append([]float64(nil), a...)
	if l.rng.Float64() >= l.cfg.CrossoverRate || len(a) < 2 {
		return child
	}
	point := 1 + l.rng.Intn(len(a)-1)
	copy(child[point:], b[point:])
	return child
}

func (l *Lab) mutate(genome []float64) {
	for i := range genome {
		if l.rng.Float64() >= l.cfg.MutationRate {
			continue
		}
		genome[i] += l.rng.NormFloat64() * l.cfg.MutationScale
		genome[i] = math.Max(0, math.Min(1, genome[i]))
	}
}

package evolab

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFitness(t *testing.T) {
	assert.Equal(t, 1.0, Fitness([]float64{0.5, 0.5}, []float64{0.5, 0.5}))
	assert.Less(t, Fitness([]float64{0, 0}, []float64{1, 1}), Fitness([]float64{0.9, 0.9}, []float64{1, 1}))
}

func TestSeedDimensions(t *testing.T) {
	lab := New(Config{PopulationSize: 12, GenomeLength: 6}, rand.New(rand.NewSource(1)))

	pop := lab.Seed()
	require.Len(t, pop, 12)
	for _, genome := range pop {
		require.Len(t, genome, 6)
		for _, g := range genome {
			assert.GreaterOrEqual(t, g, 0.0)
			assert.Less(t, g, 1.0)
		}
	}
}

func TestStepDeterministicUnderSeed(t *testing.T) {
	target := []float64{0.2, 0.8, 0.5, 0.5}

	run := func() ([][]float64, Individual) {
		lab := New(Config{GenomeLength: 4}, rand.New(rand.NewSource(42)))
		pop := lab.Seed()
		next, best, err := lab.Step(pop, target)
		require.NoError(t, err)
		return next, best
	}

	nextA, bestA := run()
	nextB, bestB := run()
	assert.Equal(t, nextA, nextB)
	assert.Equal(t, bestA, bestB)
}

func TestElitismNeverRegresses(t *testing.T) {
	lab := New(Config{GenomeLength: 4, EliteCount: 1}, rand.New(rand.NewSource(7)))
	target := []float64{0.1, 0.9, 0.3, 0.7}

	pop := lab.Seed()
	prevBest := -1.0
	for gen := 0; gen < 40; gen++ {
		next, best, err := lab.Step(pop, target)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, best.Fitness, prevBest, "generation %d", gen)
		prevBest = best.Fitness
		pop = next
	}
	// Forty generations of a tiny search space should get close.
	assert.Greater(t, prevBest, 0.8)
}

func TestStepMutationStaysInBounds(t *testing.T) {
	lab := New(Config{GenomeLength: 4, MutationRate: 1.0, MutationScale: 5}, rand.New(rand.NewSource(3)))
	target := []float64{0.5, 0.5, 0.5, 0.5}

	pop := lab.Seed()
	for gen := 0; gen < 5; gen++ {
		next, _, err := lab.Step(pop, target)
		require.NoError(t, err)
		for _, genome := range next {
			for _, g := range genome {
				assert.GreaterOrEqual(t, g, 0.0)
				assert.LessOrEqual(t, g, 1.0)
			}
		}
		pop = next
	}
}

func TestStepDimensionMismatch(t *testing.T) {
	lab := New(Config{GenomeLength: 4}, rand.New(rand.NewSource(1)))
	pop := lab.Seed()

	_, _, err := lab.Step(pop, []float64{0.5})
	assert.Error(t, err)

	_, _, err = lab.Step(nil, []float64{0.5})
	assert.Error(t, err)
}

package matchsim

import (
	"math/rand"
	"strings"

	"github.com/google/uuid"
	"github.com/okian/affinity/internal/domain/model"
)

var (
	industries = []string{"retail banking", "insurance", "healthcare", "logistics", "manufacturing", "energy", "telecom", "software"}
	needs      = []string{"cloud migration", "risk analytics", "compliance reporting", "data platform", "customer onboarding", "supply chain planning", "security review", "cost optimisation"}
	sizes      = []string{"small", "mid-market", "enterprise"}
	firstNames = []string{"Ana", "Ben", "Chen", "Dara", "Eli", "Femi", "Gita", "Hugo", "Ines", "Jon", "Kai", "Lena"}
	lastNames  = []string{"Ortiz", "Novak", "Okafor", "Larsen", "Mehta", "Silva", "Tanaka", "Weber"}
	companies  = []string{"Northwind", "Globex", "Initech", "Umbrella", "Stark", "Wayne", "Acme", "Hooli", "Vandelay", "Soylent"}
	depts      = []string{"Enterprise Sales", "Customer Success", "Solutions", "Partnerships"}
)

// Generator builds reproducible datasets from a seed.
type Generator struct {
	rng *rand.Rand
}

// NewGenerator creates a generator. The same seed yields the same dataset,
// ids included.
func NewGenerator(seed int64) *Generator {
	return &Generator{rng: rand.New(rand.NewSource(seed))} //nolint:gosec // synthetic data
}

// Generate creates numClients clients and numEmployees employees.
// leadRatio in [0,1] controls the share of leads.
func (g *Generator) Generate(numClients, numEmployees int, leadRatio float64) Dataset {
	ds := Dataset{
		Clients:   make([]model.Client, numClients),
		Employees: make([]model.Employee, numEmployees),
	}
	for i := range ds.Clients {
		ds.Clients[i] = g.client(leadRatio)
	}
	for i := range ds.Employees {
		ds.Employees[i] = g.employee()
	}
	return ds
}

func (g *Generator) id() string {
	id, err := uuid.NewRandomFromReader(g.rng)
	if err != nil {
		// math/rand readers never fail
		return uuid.NewString()
	}
	return id.String()
}

func (g *Generator) pick(list []string) string {
	return list[g.rng.Intn(len(list))]
}

func (g *Generator) client(leadRatio float64) model.Client {
	kind := model.KindCustomer
	if g.rng.Float64() < leadRatio {
		kind = model.KindLead
	}
	industry := g.pick(industries)
	need := g.pick(needs)
	size := g.pick(sizes)
	word := strings.Fields(industry)[0]
	name := g.pick(companies) + " " + strings.ToUpper(word[:1]) + word[1:]
	return model.Client{
		ID:       g.id(),
		Name:     name,
		Kind:     kind,
		Industry: industry,
		Needs:    need,
		Size:     size,
		Value:    float64(10_000 + g.rng.Intn(990_000)),
		Profile:  size + " " + industry + " company looking for " + need,
	}
}

func (g *Generator) employee() model.Employee {
	n := 2 + g.rng.Intn(3)
	specialties := make([]string, 0, n)
	seen := make(map[string]bool, n)
	for len(specialties) < n {
		var s string
		if g.rng.Intn(2) == 0 {
			s = g.pick(industries)
		} else {
			s = g.pick(needs)
		}
		if !seen[s] {
			seen[s] = true
			specialties = append(specialties, s)
		}
	}
	dept := g.pick(depts)
	return model.Employee{
		ID:          g.id(),
		Name:        g.pick(firstNames) + " " + g.pick(lastNames),
		Department:  dept,
		Specialties: specialties,
		Profile:     dept + " lead with " + g.pick(sizes) + " accounts experience in " + strings.Join(specialties, ", "),
	}
}

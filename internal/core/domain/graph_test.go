package domain_test

import (
	"slices"
	"strings"
	"testing"

	"go.trai.ch/conduit/internal/core/domain"
	"go.trai.ch/zerr"
)

func typ(name string) domain.InternedString {
	return domain.NewInternedString(name)
}

func ports(names ...string) []domain.Port {
	out := make([]domain.Port, 0, len(names))
	for _, n := range names {
		optional := strings.HasSuffix(n, "?")
		out = append(out, domain.Port{Type: typ(strings.TrimSuffix(n, "?")), Optional: optional})
	}
	return out
}

func entry(name string, imports, exports []string) *domain.Entrypoint {
	return &domain.Entrypoint{
		Name:     name,
		Imports:  ports(imports...),
		Exports:  ports(exports...),
		Priority: domain.PriorityMedium,
	}
}

func mustAdd(t *testing.T, g *domain.Graph, entrypoints ...*domain.Entrypoint) {
	t.Helper()
	for _, e := range entrypoints {
		if err := g.AddEntrypoint(e); err != nil {
			t.Fatalf("failed to add entrypoint %s: %v", e.Name, err)
		}
	}
}

func metadata(t *testing.T, err error) map[string]any {
	t.Helper()
	zErr, ok := err.(*zerr.Error)
	if !ok {
		t.Fatalf("expected *zerr.Error, got %T", err)
	}
	return zErr.Metadata()
}

func TestGraph_AddEntrypoint_DuplicateName(t *testing.T) {
	g := domain.NewGraph()
	mustAdd(t, g, entry("produce", nil, []string{"A"}))

	err := g.AddEntrypoint(entry("produce", nil, []string{"B"}))
	if err == nil {
		t.Fatal("expected error when adding duplicate entrypoint, got nil")
	}
	if name, ok := metadata(t, err)["entrypoint"].(string); !ok || name != "produce" {
		t.Errorf("expected metadata entrypoint=produce, got %v", metadata(t, err)["entrypoint"])
	}
}

func TestGraph_AddEntrypoint_DuplicateExport(t *testing.T) {
	g := domain.NewGraph()
	mustAdd(t, g, entry("first", nil, []string{"A"}))

	err := g.AddEntrypoint(entry("second", nil, []string{"A"}))
	if err == nil {
		t.Fatal("expected error for ambiguous producer, got nil")
	}
	if !strings.Contains(err.Error(), domain.ErrDuplicateExport.Error()) {
		t.Errorf("unexpected error: %v", err)
	}
	meta := metadata(t, err)
	if meta["type"] != "A" || meta["entrypoint"] != "second" {
		t.Errorf("expected metadata type=A entrypoint=second, got %v", meta)
	}
}

func TestGraph_AddEntrypoint_SecondBoundary(t *testing.T) {
	g := domain.NewGraph()
	mustAdd(t, g, domain.NewResultEntrypoint(ports("A")))

	second := domain.NewResultEntrypoint(ports("B"))
	second.Name = "result2"
	if err := g.AddEntrypoint(second); err == nil {
		t.Fatal("expected error for a second result entrypoint, got nil")
	}
}

func TestGraph_Validate_UnresolvedImport(t *testing.T) {
	g := domain.NewGraph()
	mustAdd(t, g,
		entry("produce", nil, []string{"A"}),
		entry("consume", []string{"A", "Missing"}, nil),
	)

	err := g.Validate()
	if err == nil {
		t.Fatal("expected error for unresolved import, got nil")
	}
	meta := metadata(t, err)
	if meta["type"] != "Missing" || meta["entrypoint"] != "consume" {
		t.Errorf("expected metadata naming consume and Missing, got %v", meta)
	}
}

func TestGraph_Validate_UnresolvedConstraint(t *testing.T) {
	g := domain.NewGraph()
	consume := entry("consume", []string{"A"}, nil)
	consume.Constraints = []domain.Constraint{{Type: typ("Ghost"), RequiresAbsent: true}}
	mustAdd(t, g, entry("produce", nil, []string{"A"}), consume)

	err := g.Validate()
	if err == nil {
		t.Fatal("expected error for unresolved constraint, got nil")
	}
	if !strings.Contains(err.Error(), domain.ErrUnresolvedConstraint.Error()) {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestGraph_Validate_UnusedExport(t *testing.T) {
	g := domain.NewGraph()
	mustAdd(t, g,
		entry("A", nil, []string{"X", "Orphan"}),
		entry("B", []string{"X"}, nil),
	)

	err := g.Validate()
	if err == nil {
		t.Fatal("expected error for unused export, got nil")
	}
	meta := metadata(t, err)
	if meta["entrypoints"] != "A" {
		t.Errorf("expected metadata entrypoints=A, got %v", meta["entrypoints"])
	}
	if exports, _ := meta["exports"].(string); !strings.Contains(exports, "Orphan") {
		t.Errorf("expected exports metadata to name Orphan, got %v", meta["exports"])
	}
}

func TestGraph_Validate_ConstraintDoesNotConsume(t *testing.T) {
	g := domain.NewGraph()
	gated := entry("gated", nil, []string{"Y"})
	gated.Constraints = []domain.Constraint{{Type: typ("X")}}
	mustAdd(t, g,
		entry("source", nil, []string{"X"}),
		gated,
		entry("sink", []string{"Y"}, nil),
	)

	if err := g.Validate(); err == nil {
		t.Fatal("expected unused export error for a type only used as a constraint, got nil")
	}
}

func TestGraph_Validate_ContextExempt(t *testing.T) {
	g := domain.NewGraph()
	mustAdd(t, g,
		domain.NewInitialEntrypoint(ports("Key")),
		entry("consume", []string{"Key"}, nil),
	)

	if err := g.Validate(); err != nil {
		t.Fatalf("expected the unconsumed context slot to be exempt, got %v", err)
	}
}

func TestGraph_Validate_Cycle(t *testing.T) {
	g := domain.NewGraph()
	mustAdd(t, g,
		entry("A", []string{"FromB"}, []string{"FromA"}),
		entry("B", []string{"FromA"}, []string{"FromB"}),
	)

	err := g.Validate()
	if err == nil {
		t.Fatal("expected error for cycle, got nil")
	}
	if cycle, ok := metadata(t, err)["cycle"].(string); !ok || cycle != "A -> B -> A" {
		t.Errorf("expected cycle metadata %q, got %v", "A -> B -> A", metadata(t, err)["cycle"])
	}
}

func TestGraph_Validate_CycleThroughConstraint(t *testing.T) {
	g := domain.NewGraph()
	a := entry("A", []string{"FromC"}, []string{"FromA"})
	c := entry("C", nil, []string{"FromC"})
	c.Constraints = []domain.Constraint{{Type: typ("FromB")}}
	mustAdd(t, g,
		entry("start", nil, nil),
		a,
		entry("B", []string{"FromA"}, []string{"FromB"}),
		c,
		entry("sink", []string{"FromB"}, nil),
	)

	err := g.Validate()
	if err == nil {
		t.Fatal("expected error for cycle, got nil")
	}
	if cycle := metadata(t, err)["cycle"]; cycle != "A -> C -> B -> A" {
		t.Errorf("expected cycle A -> C -> B -> A, got %v", cycle)
	}
}

func TestGraph_Validate_AmbiguousConstructor(t *testing.T) {
	newFn := func([]any) (any, error) { return struct{}{}, nil }
	first := &domain.Component{Name: "repo", New: newFn}
	second := &domain.Component{Name: "repo", New: newFn}

	g := domain.NewGraph()
	a := entry("A", nil, []string{"X"})
	a.Owner = first
	b := entry("B", []string{"X"}, nil)
	b.Owner = second
	mustAdd(t, g, a, b)

	err := g.Validate()
	if err == nil {
		t.Fatal("expected error for two components sharing a name, got nil")
	}
	if metadata(t, err)["component"] != "repo" {
		t.Errorf("expected metadata component=repo, got %v", metadata(t, err))
	}
}

func TestGraph_Walk(t *testing.T) {
	g := domain.NewGraph()
	// Registered consumer-first; the plan must still be produce, consume, result.
	mustAdd(t, g,
		domain.NewResultEntrypoint(ports("B")),
		entry("consume", []string{"A"}, []string{"B"}),
		entry("produce", nil, []string{"A"}),
	)

	if err := g.Validate(); err != nil {
		t.Fatalf("unexpected validation error: %v", err)
	}

	executed := make([]string, 0, 3)
	for e := range g.Walk() {
		executed = append(executed, e.Name)
	}

	if !slices.Equal(executed, []string{"produce", "consume", "result"}) {
		t.Errorf("unexpected execution order: %v", executed)
	}
}

func TestGraph_Validate_PriorityTieBreak(t *testing.T) {
	low := entry("low", nil, nil)
	low.Priority = domain.PriorityLow
	high := entry("high", nil, nil)
	high.Priority = domain.PriorityHigh
	medium := entry("medium", nil, nil)

	g := domain.NewGraph()
	mustAdd(t, g, low, medium, high)
	if err := g.Validate(); err != nil {
		t.Fatalf("unexpected validation error: %v", err)
	}

	plan, err := g.Plan()
	if err != nil {
		t.Fatalf("unexpected plan error: %v", err)
	}
	if names := plan.Names(); !slices.Equal(names, []string{"high", "medium", "low"}) {
		t.Errorf("expected priority order high, medium, low; got %v", names)
	}
}

func TestGraph_Validate_DependencyOverridesPriority(t *testing.T) {
	producer := entry("producer", nil, []string{"A"})
	producer.Priority = domain.PriorityLow
	consumer := entry("consumer", []string{"A"}, nil)
	consumer.Priority = domain.PriorityHigh

	g := domain.NewGraph()
	mustAdd(t, g, consumer, producer)
	if err := g.Validate(); err != nil {
		t.Fatalf("unexpected validation error: %v", err)
	}

	plan, _ := g.Plan()
	if names := plan.Names(); !slices.Equal(names, []string{"producer", "consumer"}) {
		t.Errorf("expected the producer to run first, got %v", names)
	}
}

func layeredGraph(t *testing.T) *domain.Graph {
	t.Helper()
	g := domain.NewGraph()
	mustAdd(t, g,
		entry("report", []string{"Total", "Audit?"}, nil),
		entry("sum", []string{"Prices", "Tax"}, []string{"Total"}),
		entry("audit", []string{"Prices"}, []string{"Audit"}),
		entry("tax", []string{"Region"}, []string{"Tax"}),
		entry("prices", []string{"Region"}, []string{"Prices"}),
		entry("region", nil, []string{"Region"}),
	)
	if err := g.Validate(); err != nil {
		t.Fatalf("unexpected validation error: %v", err)
	}
	return g
}

func TestGraph_Plan_TopologicalSoundness(t *testing.T) {
	g := layeredGraph(t)
	plan, err := g.Plan()
	if err != nil {
		t.Fatalf("unexpected plan error: %v", err)
	}

	position := make(map[int]int)
	for pos, idx := range plan.Order() {
		position[idx] = pos
	}
	if len(position) != g.Len() {
		t.Fatalf("expected every entrypoint to be scheduled once, got %d of %d", len(position), g.Len())
	}
	for idx := range g.Len() {
		for _, slot := range g.ImportSlots(idx) {
			producer := g.Producer(slot)
			if position[producer] >= position[idx] {
				t.Errorf("%s runs before its producer %s", g.Entrypoint(idx).Name, g.Entrypoint(producer).Name)
			}
		}
	}
}

func TestGraph_Plan_Deterministic(t *testing.T) {
	first, _ := layeredGraph(t).Plan()
	second, _ := layeredGraph(t).Plan()

	if !slices.Equal(first.Names(), second.Names()) {
		t.Errorf("expected identical plans, got %v and %v", first.Names(), second.Names())
	}
	if first.Fingerprint() != second.Fingerprint() {
		t.Errorf("expected identical fingerprints, got %s and %s", first.Fingerprint(), second.Fingerprint())
	}
}

func TestGraph_Plan_NotValidated(t *testing.T) {
	g := domain.NewGraph()
	mustAdd(t, g, entry("noop", nil, nil))

	if _, err := g.Plan(); err == nil {
		t.Fatal("expected error for a plan of an unvalidated graph, got nil")
	}
}

func TestGraph_Plan_SeedsAndResults(t *testing.T) {
	g := domain.NewGraph()
	mustAdd(t, g,
		domain.NewInitialEntrypoint(ports("Key")),
		entry("lookup", []string{"Key"}, []string{"Value"}),
		domain.NewResultEntrypoint(ports("Value?")),
	)
	if err := g.Validate(); err != nil {
		t.Fatalf("unexpected validation error: %v", err)
	}

	plan, _ := g.Plan()
	if plan.InputCount() != 1 {
		t.Errorf("expected one caller input, got %d", plan.InputCount())
	}
	if len(plan.Seeds()) != 2 {
		t.Fatalf("expected key and context seeds, got %v", plan.Seeds())
	}
	if g.SlotType(plan.Seeds()[1]) != domain.ContextType {
		t.Errorf("expected the context to be the last seed")
	}
	if len(plan.Results()) != 1 || !plan.ResultOptional(0) {
		t.Errorf("expected one optional result, got %v", plan.Results())
	}
	if plan.IsAsync() {
		t.Error("expected a synchronous plan")
	}
}

func TestGraph_Constraints_IncludeComponentConstraints(t *testing.T) {
	owner := &domain.Component{
		Name:        "db",
		New:         func([]any) (any, error) { return struct{}{}, nil },
		Constraints: []domain.Constraint{{Type: typ("Cached"), RequiresAbsent: true}},
	}
	fromDB := entry("fromDB", nil, []string{"Row?"})
	fromDB.Owner = owner

	g := domain.NewGraph()
	mustAdd(t, g,
		entry("cache", nil, []string{"Cached?"}),
		fromDB,
		entry("use", []string{"Row?", "Cached?"}, nil),
	)
	if err := g.Validate(); err != nil {
		t.Fatalf("unexpected validation error: %v", err)
	}

	slot, _ := g.SlotOf(typ("Cached"))
	constraints := g.Constraints(1)
	if len(constraints) != 1 || constraints[0].Slot != slot || !constraints[0].RequiresAbsent {
		t.Errorf("expected the component constraint on fromDB, got %v", constraints)
	}
}

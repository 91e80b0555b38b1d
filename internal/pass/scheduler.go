package pass

// ExecutionLevel holds passes that may run concurrently, grouped by the
// representation they read.
type ExecutionLevel struct {
	AST    []ID `json:"ast,omitempty"`
	IR     []ID `json:"ir,omitempty"`
	Hybrid []ID `json:"hybrid,omitempty"`
}

// Empty reports whether the level contains no passes.
func (l ExecutionLevel) Empty() bool {
	return len(l.AST)+len(l.IR)+len(l.Hybrid) == 0
}

// All returns the passes of the level in execution order.
func (l ExecutionLevel) All() []ID {
	out := make([]ID, 0, len(l.AST)+len(l.IR)+len(l.Hybrid))
	out = append(out, l.AST...)
	out = append(out, l.IR...)
	return append(out, l.Hybrid...)
}

// Schedule is an ordered list of levels. Levels run in order; passes within
// a level are independent.
type Schedule struct {
	Levels  []ExecutionLevel `json:"levels"`
	NeedsIR bool             `json:"needsIR"`
	// IRGenerationLevel is the index of the level containing IRGeneration,
	// or -1 when that pass is not scheduled.
	IRGenerationLevel int `json:"irGenerationLevel"`
}

// Len returns the number of scheduled passes.
func (s *Schedule) Len() int {
	n := 0
	for _, l := range s.Levels {
		n += len(l.AST) + len(l.IR) + len(l.Hybrid)
	}
	return n
}

// Scheduler turns registered passes into a Schedule.
type Scheduler struct {
	graph           *DependencyGraph
	representations map[ID]Representation
}

func NewScheduler() *Scheduler {
	return &Scheduler{
		graph:           NewDependencyGraph(),
		representations: make(map[ID]Representation),
	}
}

// Graph exposes the underlying dependency graph.
func (s *Scheduler) Graph() *DependencyGraph { return s.graph }

// Register records p, its representation and its dependency edges.
func (s *Scheduler) Register(p Pass) {
	id := p.ID()
	s.graph.AddPass(id)
	s.representations[id] = p.Representation()
	for _, dep := range p.Dependencies() {
		s.graph.AddDependency(id, dep)
	}
}

// Representation returns the recorded representation of id, defaulting to AST.
func (s *Scheduler) Representation(id ID) Representation {
	if r, ok := s.representations[id]; ok {
		return r
	}
	return AST
}

// NeedsIR reports whether any registered pass requires IR.
func (s *Scheduler) NeedsIR() bool {
	for _, r := range s.representations {
		if r.RequiresIR() {
			return true
		}
	}
	return false
}

// ComputeSchedule computes dependency levels and partitions each by
// representation. Empty levels are dropped.
func (s *Scheduler) ComputeSchedule() (*Schedule, error) {
	raw, err := s.graph.ComputeLevels()
	if err != nil {
		return nil, err
	}
	sched := &Schedule{NeedsIR: s.NeedsIR(), IRGenerationLevel: -1}
	for _, ids := range raw {
		var lvl ExecutionLevel
		for _, id := range ids {
			if id == IRGeneration {
				sched.IRGenerationLevel = len(sched.Levels)
			}
			switch s.Representation(id) {
			case IR:
				lvl.IR = append(lvl.IR, id)
			case Hybrid:
				lvl.Hybrid = append(lvl.Hybrid, id)
			default:
				lvl.AST = append(lvl.AST, id)
			}
		}
		if lvl.Empty() {
			continue
		}
		sched.Levels = append(sched.Levels, lvl)
	}
	return sched, nil
}

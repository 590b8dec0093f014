package sched

import (
	"github.com/tsgates/pcodec/internal/ir"
)

// Schedule is a DAG of Tasks reduced to wavefronts: index i of Wavefronts
// holds every task whose declared-order predecessors (by hazard) all fall
// in wavefronts < i.
type Schedule struct {
	tasks      []Task
	wavefronts [][]int // task indices, per wavefront
}

// Build computes the hazard DAG over tasks taken in declaration order —
// the order they would run in a purely sequential schedule — and layers
// it into wavefronts with Kahn's algorithm. A plain adjacency list plus
// Kahn's algorithm is enough for the handful of post-loop actions this
// models; nothing in the example pack reaches for a graph library for a
// DAG this small.
//
// Only forward edges (earlier index -> later index) are ever added, so
// the input order is itself already one valid topological order and
// Build can never discover a cycle.
func Build(tasks []Task) *Schedule {
	n := len(tasks)
	successors := make([][]int, n)
	indegree := make([]int, n)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if hazard(tasks[i], tasks[j]) {
				successors[i] = append(successors[i], j)
				indegree[j]++
			}
		}
	}

	var wavefronts [][]int
	remaining := indegree
	done := make([]bool, n)
	left := n
	for left > 0 {
		var front []int
		for i := 0; i < n; i++ {
			if !done[i] && remaining[i] == 0 {
				front = append(front, i)
			}
		}
		for _, i := range front {
			done[i] = true
			left--
			for _, j := range successors[i] {
				remaining[j]--
			}
		}
		wavefronts = append(wavefronts, front)
	}
	return &Schedule{tasks: tasks, wavefronts: wavefronts}
}

// Wavefronts returns the tasks grouped into topologically ordered
// wavefronts: tasks within one wavefront share no hazard with each other
// and so may run concurrently; each wavefront must fully complete before
// the next begins.
func (s *Schedule) Wavefronts() [][]Task {
	out := make([][]Task, len(s.wavefronts))
	for i, front := range s.wavefronts {
		row := make([]Task, len(front))
		for k, idx := range front {
			row[k] = s.tasks[idx]
		}
		out[i] = row
	}
	return out
}

// Sequential flattens the schedule back into one ordered task list —
// always a valid execution order, per §4.12 ("sequential execution is
// always valid; the wavefront representation is the contract for anyone
// wishing to exploit parallelism").
func (s *Schedule) Sequential() []Task {
	out := make([]Task, 0, len(s.tasks))
	for _, front := range s.wavefronts {
		for _, idx := range front {
			out = append(out, s.tasks[idx])
		}
	}
	return out
}

// Run executes the schedule against f, wavefront by wavefront, running
// each wavefront's tasks sequentially — the flattened-sequence fallback
// §4.12 requires of any implementation that does not itself exploit
// wavefront parallelism. It stops and returns the first error any task
// reports.
func (s *Schedule) Run(f *ir.Funcdata) error {
	for _, front := range s.wavefronts {
		for _, idx := range front {
			if _, err := s.tasks[idx].Action.Apply(f); err != nil {
				return err
			}
		}
	}
	return nil
}

package planner

import (
	"fmt"
	"math"
	"time"

	"github.com/emirpasic/gods/queues/priorityqueue"
	"github.com/npillmayer/kinoplan"
	"github.com/npillmayer/kinoplan/heuristic"
	"github.com/npillmayer/kinoplan/primitive"
	"github.com/npillmayer/kinoplan/traj"
)

// stateKey is the discretized identity of a state: quantized position and
// further active derivatives, up to 3 dimensions each, and yaw.
type stateKey [4*3 + 1]int64

// node is a lattice state known to the search.
type node[V kinoplan.Vector] struct {
	key    stateKey
	state  primitive.State[V]
	g, h   float64
	parent *node[V]
	pr     *primitive.Primitive[V] // primitive from parent to this node
	closed bool
}

// entry is an element of the open set. Entries are never updated in place:
// an improved node is pushed again and stale entries are skipped on pop.
type entry[V kinoplan.Vector] struct {
	n   *node[V]
	g   float64 // g of n at push time
	f   float64
	seq int64
}

func entryComparator[V kinoplan.Vector](a, b interface{}) int {
	ea, eb := a.(*entry[V]), b.(*entry[V])
	switch {
	case ea.f < eb.f:
		return -1
	case ea.f > eb.f:
		return 1
	case ea.n.h < eb.n.h:
		return -1
	case ea.n.h > eb.n.h:
		return 1
	case ea.seq < eb.seq:
		return -1
	case ea.seq > eb.seq:
		return 1
	}
	return 0
}

// search holds the state of a single planning query.
type search[V kinoplan.Vector] struct {
	p          *Planner[V]
	goal       primitive.State[V]
	h          heuristic.Func[V]
	bounds     primitive.Bounds
	nodes      map[stateKey]*node[V]
	open       *priorityqueue.Queue
	closed     []*node[V]
	seq        int64
	expansions int
	tip        *node[V] // goal node, or best partial node
	snapCost   float64  // cost of the goal snapping segment
	started    time.Time
}

func newSearch[V kinoplan.Vector](p *Planner[V], start, goal primitive.State[V]) *search[V] {
	s := &search[V]{
		p:     p,
		goal:  goal,
		h:     p.heuristic(start),
		nodes: make(map[stateKey]*node[V]),
		open:  priorityqueue.NewWith(entryComparator[V]),
		bounds: primitive.Bounds{
			Vmax:   p.opts.Vmax,
			Amax:   p.opts.Amax,
			Jmax:   p.opts.Jmax,
			YawMax: p.opts.YawMax,
		},
		started: time.Now(),
	}
	root := &node[V]{key: s.keyOf(start), state: start, h: s.h(start, goal)}
	s.nodes[root.key] = root
	s.push(root)
	return s
}

func (s *search[V]) keyOf(st primitive.State[V]) stateKey {
	var k stateKey
	res := s.p.opts.KeyResolution
	n := 0
	for d := 0; d <= primitive.MaxOrder; d++ {
		if !st.Uses(d) {
			continue
		}
		v := st.Derivative(d)
		for i := 0; i < len(v); i++ {
			k[n] = kinoplan.Quantize(v[i], res)
			n++
		}
	}
	if st.Control.Has(primitive.UseYaw) {
		k[len(k)-1] = kinoplan.Quantize(st.Yaw, res)
	}
	return k
}

func (s *search[V]) push(n *node[V]) {
	s.seq++
	s.open.Enqueue(&entry[V]{n: n, g: n.g, f: n.g + s.p.opts.Epsilon*n.h, seq: s.seq})
}

// pop returns the open node with minimal f, skipping stale entries.
func (s *search[V]) pop() *node[V] {
	for !s.open.Empty() {
		v, _ := s.open.Dequeue()
		e := v.(*entry[V])
		if e.n.closed || e.g != e.n.g {
			continue
		}
		return e.n
	}
	return nil
}

// isGoal is the goal box test.
func (s *search[V]) isGoal(st primitive.State[V]) bool {
	o := s.p.opts
	if kinoplan.NormInf(kinoplan.Sub(st.Pos, s.goal.Pos)) > o.TolPos {
		return false
	}
	if s.goal.Control.Has(primitive.UseVel) &&
		kinoplan.NormInf(kinoplan.Sub(st.Vel, s.goal.Vel)) > o.TolVel {
		return false
	}
	if s.goal.Control.Has(primitive.UseAcc) &&
		kinoplan.NormInf(kinoplan.Sub(st.Acc, s.goal.Acc)) > o.TolAcc {
		return false
	}
	return true
}

// limitHit is true if the expansion or time cap is reached.
func (s *search[V]) limitHit() bool {
	o := s.p.opts
	if o.MaxExpansions > 0 && s.expansions >= o.MaxExpansions {
		return true
	}
	return o.Timeout > 0 && time.Since(s.started) > o.Timeout
}

// run is the main search loop. It returns the node to build a trajectory
// to, which is the goal node on success.
func (s *search[V]) run() (*node[V], error) {
	for {
		cur := s.pop()
		if cur == nil {
			tracer().Infof("open set exhausted after %d expansions", s.expansions)
			return nil, fmt.Errorf("%w: %d states expanded", ErrNoPathFound, s.expansions)
		}
		if s.isGoal(cur.state) {
			s.tip = cur
			tracer().P("g", cur.g).Infof("goal reached after %d expansions", s.expansions)
			return cur, nil
		}
		if s.limitHit() {
			s.tip = s.closestClosed()
			return s.tip, fmt.Errorf("%w: after %d expansions", ErrExpansionLimit, s.expansions)
		}
		cur.closed = true
		s.closed = append(s.closed, cur)
		s.expansions++
		s.expand(cur)
	}
}

// expand relaxes all lattice edges leaving cur.
func (s *search[V]) expand(cur *node[V]) {
	o := s.p.opts
	for _, u := range s.p.u {
		pr := primitive.Generate(cur.state, u, o.Dt)
		if !pr.Within(s.bounds) {
			continue
		}
		cost, ok := s.traverse(pr)
		if !ok {
			continue
		}
		succ := pr.Successor()
		key := s.keyOf(succ)
		g := cur.g + cost
		n, seen := s.nodes[key]
		if seen && (n.closed || g >= n.g) {
			continue
		}
		if !seen {
			n = &node[V]{key: key, h: s.h(succ, s.goal)}
			s.nodes[key] = n
		}
		n.state, n.g, n.parent, n.pr = succ, g, cur, pr
		s.push(n)
	}
}

// traverse checks pr against the oracle and the search region and returns
// the edge cost.
func (s *search[V]) traverse(pr *primitive.Primitive[V]) (float64, bool) {
	o := s.p.opts
	dist := pr.MaxVel() * math.Sqrt(float64(kinoplan.Dim[V]())) * pr.Duration()
	n := max(1, int(math.Ceil(dist/s.p.oracle.Resolution())))
	dt := pr.Duration() / float64(n)
	usePotential := s.p.field != nil && (o.PotentialWeight > 0 || o.GradientWeight > 0)
	var potential float64
	for j := 1; j <= n; j++ {
		t := float64(j) * dt
		pos := pr.Pos(t)
		if !s.p.oracle.IsFree(pos) {
			return 0, false
		}
		if s.p.region != nil && !s.p.region.contains(pos) {
			return 0, false
		}
		if usePotential {
			phi, grad := s.p.field.Potential(pos)
			c := o.PotentialWeight * phi
			if o.GradientWeight > 0 {
				c += o.GradientWeight * math.Max(0, kinoplan.Dot(grad, pr.Vel(t)))
			}
			potential += c * dt
		}
	}
	cost := o.W*pr.Duration() + potential
	if o.EffortWeight > 0 {
		cost += o.EffortWeight * pr.J(max(pr.Control().Order(), 1))
	}
	return cost, true
}

// closestClosed returns the expanded node with the smallest heuristic value.
func (s *search[V]) closestClosed() *node[V] {
	var best *node[V]
	for _, n := range s.closed {
		if best == nil || n.h < best.h || (n.h == best.h && n.g < best.g) {
			best = n
		}
	}
	return best
}

// snap connects the goal node's state to the goal position by a boundary
// value segment of duration dt. Derivatives the goal does not use are kept
// from the goal node's state. Returns nil if the goal node already sits on
// the goal or the segment is infeasible.
func (s *search[V]) snap(tip *node[V]) *primitive.Primitive[V] {
	target := tip.state
	target.Pos = s.goal.Pos
	if s.goal.Control.Has(primitive.UseVel) {
		target.Vel = s.goal.Vel
	}
	if s.goal.Control.Has(primitive.UseAcc) {
		target.Acc = s.goal.Acc
	}
	if kinoplan.Equal(target.Pos, tip.state.Pos) && kinoplan.Equal(target.Vel, tip.state.Vel) &&
		kinoplan.Equal(target.Acc, tip.state.Acc) {
		return nil
	}
	pr, err := primitive.Connect(tip.state, target, s.p.opts.Dt)
	if err != nil {
		tracer().Debugf("goal snap: %v", err)
		return nil
	}
	if !pr.Within(s.bounds) {
		tracer().Debugf("goal snap: segment breaks limits")
		return nil
	}
	cost, ok := s.traverse(pr)
	if !ok {
		tracer().Debugf("goal snap: segment is blocked")
		return nil
	}
	s.snapCost = cost
	return pr
}

// trajectoryTo walks parent links from tip to the root and assembles the
// primitives in order, followed by tail. A root tip without tail gives a
// trajectory of duration 0.
func (s *search[V]) trajectoryTo(tip *node[V], tail ...*primitive.Primitive[V]) (*traj.Trajectory[V], error) {
	var prs []*primitive.Primitive[V]
	for n := tip; n.parent != nil; n = n.parent {
		prs = append(prs, n.pr)
	}
	for i, j := 0, len(prs)-1; i < j; i, j = i+1, j-1 {
		prs[i], prs[j] = prs[j], prs[i]
	}
	prs = append(prs, tail...)
	if len(prs) == 0 {
		var zero V
		prs = append(prs, primitive.Generate(tip.state, zero, 0))
	}
	return traj.New(prs)
}

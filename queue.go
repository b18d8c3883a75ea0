package dcsim

type Queue struct {
	q []*Cloudlet
}

func newQueue() *Queue {
	q := &Queue{q: make([]*Cloudlet, 0)}
	return q
}

func (q *Queue) String() string {
	str := ""
	for _, cl := range q.q {
		str += cl.String()
	}
	return str
}

func (q *Queue) getQ() []*Cloudlet {
	return q.q
}

func (q *Queue) enq(cl *Cloudlet) {
	q.q = append(q.q, cl)
}

func (q *Queue) deq() *Cloudlet {
	if len(q.q) == 0 {
		return nil
	}
	clSelected := q.q[0]
	q.q = q.q[1:]
	return clSelected
}

func (q *Queue) peek() *Cloudlet {
	if len(q.q) == 0 {
		return nil
	}
	return q.q[0]
}

func (q *Queue) drain() []*Cloudlet {
	cls := q.q
	q.q = make([]*Cloudlet, 0)
	return cls
}

func (q *Queue) qlen() int {
	return len(q.q)
}

package viewer

import (
	"golang.org/x/sync/errgroup"

	"starviewcore/internal/scene"
	"starviewcore/pkg/viewapi"
)

func (e *Engine) members(group *layer) []*layer {
	defs := e.cat.Members(group.def.ID)
	out := make([]*layer, 0, len(defs))
	for _, d := range defs {
		out = append(out, e.layers[d.ID])
	}
	return out
}

func (e *Engine) anyGuardianVisible(group *layer) bool {
	for _, m := range e.members(group) {
		if m.visible() {
			return true
		}
	}
	return false
}

func (e *Engine) allGuardiansVisible(group *layer) bool {
	n := 0
	for _, m := range e.members(group) {
		if !m.loaded() {
			continue
		}
		if !m.node.Visible {
			return false
		}
		n++
	}
	return n > 0
}

// activateGuardian loads every member concurrently on first use. Each member
// settles on its own; the group control stays disabled until all have. Once
// loaded, the group shows every loaded member unless all of them are already
// visible, in which case it hides them all.
func (e *Engine) activateGuardian(group *layer) {
	switch group.state {
	case viewapi.Loading:
		return
	case viewapi.Loaded:
		show := !e.allGuardiansVisible(group)
		for _, m := range e.members(group) {
			if m.loaded() {
				m.node.Visible = show
				e.notify(m)
			}
		}
		e.notify(group)
		return
	}

	members := e.members(group)
	group.state = viewapi.Loading
	group.err = nil
	e.notify(group)
	var pendingMembers []*layer
	for _, m := range members {
		if m.loaded() {
			continue
		}
		m.state = viewapi.Loading
		m.err = nil
		e.notify(m)
		pendingMembers = append(pendingMembers, m)
	}

	e.expect(len(pendingMembers) + 1)
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		var g errgroup.Group
		for _, m := range pendingMembers {
			url := m.def.URL
			g.Go(func() error {
				node, err := e.loader.Load(e.ctx, url)
				e.post(func() { e.finishGuardianSite(m, url, node, err) })
				return err
			})
		}
		first := g.Wait()
		e.post(func() { e.settleGuardian(group, first) })
	}()
}

func (e *Engine) finishGuardianSite(m *layer, url string, node *scene.Node, err error) {
	if err != nil {
		e.fail(m, url, err)
		return
	}
	styleTranslucent(node, m.opacity)
	e.attach(m, node)
}

// settleGuardian runs after every member has settled. The group fails only
// when no member loaded; otherwise failed members are reported as a partial
// failure and the group is usable.
func (e *Engine) settleGuardian(group *layer, first error) {
	var failed []*LoadError
	loaded := 0
	for _, m := range e.members(group) {
		if m.loaded() {
			loaded++
			continue
		}
		if le, ok := m.err.(*LoadError); ok {
			failed = append(failed, le)
		}
	}
	if len(failed) > 0 {
		group.err = &PartialLoadError{Group: group.def.ID, Failed: failed}
	}
	if loaded == 0 {
		group.state = viewapi.Failed
		e.logger.Error("layer group failed", "layer", group.def.ID, "err", first)
	} else {
		group.state = viewapi.Loaded
		if group.err != nil {
			e.logger.Warn("layer group partially loaded", "layer", group.def.ID, "err", group.err)
		}
	}
	e.notify(group)
}

// activateGuardianSite toggles one member. Members load only through their
// group and become individually togglable once the whole group has settled.
func (e *Engine) activateGuardianSite(m *layer) {
	group, ok := e.layers[m.def.Group]
	if !m.loaded() || (ok && group.state != viewapi.Loaded) {
		return
	}
	m.node.Visible = !m.node.Visible
	e.notify(m)
	if ok {
		e.notify(group)
	}
}

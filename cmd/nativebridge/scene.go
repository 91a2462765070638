package main

import (
	"fmt"
	"math/rand/v2"

	"github.com/vango-dev/nativebridge/pkg/host"
	"github.com/vango-dev/nativebridge/pkg/protocol"
)

const (
	sceneWidth  = 480
	rowHeight   = 28
	maxRows     = 8
	headerColor = "#1e3a8a"
)

// scene is the demo UI: a header with a click counter, a button and a
// list of rows that churns every frame. It is driven through the native
// ops a reactive driver would call.
type scene struct {
	ops host.NativeOps
	rng *rand.Rand

	header, label, button, list protocol.NodeID
	rows                        []protocol.NodeID
	clicks                      int
	next                        int
}

func newScene(ops host.NativeOps, seed uint64) *scene {
	return &scene{ops: ops, rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// mount builds the static part of the scene under root.
func (s *scene) mount(root protocol.NodeID) error {
	s.header = s.ops.CreateElement("view")
	s.label = s.ops.CreateTextNode("clicks: 0")
	s.button = s.ops.CreateElement("button")
	s.list = s.ops.CreateElement("view")

	props := []struct {
		id    protocol.NodeID
		name  string
		value any
	}{
		{s.header, "class", "row bg-blue-800"},
		{s.header, "width", sceneWidth},
		{s.header, "height", 40},
		{s.label, "color", "white"},
		{s.button, "class", "absolute"},
		{s.button, "x", sceneWidth - 96},
		{s.button, "y", 6},
		{s.button, "width", 88},
		{s.button, "height", rowHeight},
		{s.button, "color", headerColor},
		{s.button, "aria-label", "Increment"},
		{s.button, "onClick", func(host.Event) error { return s.click() }},
		{s.list, "class", "column overflow-hidden"},
		{s.list, "y", 48},
		{s.list, "width", sceneWidth},
		{s.list, "height", maxRows * rowHeight},
	}
	for _, p := range props {
		if err := s.ops.SetProperty(p.id, p.name, p.value, nil); err != nil {
			return err
		}
	}

	for _, step := range []struct{ parent, node protocol.NodeID }{
		{s.header, s.label},
		{s.header, s.button},
		{root, s.header},
		{root, s.list},
	} {
		if err := s.ops.InsertNode(step.parent, step.node, 0); err != nil {
			return err
		}
	}
	return nil
}

func (s *scene) click() error {
	s.clicks++
	return s.ops.ReplaceText(s.label, fmt.Sprintf("clicks: %d", s.clicks))
}

// step applies one frame of churn: add a row, then sometimes drop the
// oldest, move a row to the top or recolor one.
func (s *scene) step() error {
	if err := s.addRow(); err != nil {
		return err
	}
	if len(s.rows) > maxRows {
		old := s.rows[0]
		s.rows = s.rows[1:]
		if err := s.ops.RemoveNode(s.list, old); err != nil {
			return err
		}
	}
	switch s.rng.IntN(4) {
	case 0:
		i := s.rng.IntN(len(s.rows))
		row := s.rows[i]
		if err := s.ops.InsertNode(s.list, row, s.ops.GetFirstChild(s.list)); err != nil {
			return err
		}
		s.rows = append(s.rows[:i], s.rows[i+1:]...)
		s.rows = append([]protocol.NodeID{row}, s.rows...)
	case 1:
		row := s.rows[s.rng.IntN(len(s.rows))]
		color := [3]byte{byte(s.rng.IntN(256)), byte(s.rng.IntN(256)), byte(s.rng.IntN(256))}
		if err := s.ops.SetProperty(row, "color", color, nil); err != nil {
			return err
		}
	case 2:
		row := s.rows[s.rng.IntN(len(s.rows))]
		if err := s.ops.SetProperty(row, "opacity", 0.25+s.rng.Float64()*0.75, nil); err != nil {
			return err
		}
	}
	return s.layout()
}

func (s *scene) addRow() error {
	s.next++
	row := s.ops.CreateElement("view")
	text := s.ops.CreateTextNode(fmt.Sprintf("row %d", s.next))
	if err := s.ops.SetProperty(row, "width", sceneWidth, nil); err != nil {
		return err
	}
	if err := s.ops.SetProperty(row, "height", rowHeight, nil); err != nil {
		return err
	}
	if err := s.ops.InsertNode(row, text, 0); err != nil {
		return err
	}
	if err := s.ops.InsertNode(s.list, row, 0); err != nil {
		return err
	}
	s.rows = append(s.rows, row)
	return nil
}

// layout stacks the rows in list order.
func (s *scene) layout() error {
	i := 0
	for id := s.ops.GetFirstChild(s.list); id != 0; id = s.ops.GetNextSibling(id) {
		if err := s.ops.SetProperty(id, "y", i*rowHeight, nil); err != nil {
			return err
		}
		i++
	}
	return nil
}

// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package scene

// Demo builds the default room: a lit root, a ground plate, two side walls
// and a torus ahead of the viewer.
func Demo() *Node {
	root := &Node{Name: "sun", Kind: KindLight, Color: [3]float64{1, 1, 1}}
	root.Add(&Node{
		Name:        "sun-beacon",
		Kind:        KindSphere,
		Translation: [3]float64{0, 200, -200},
		Size:        []float64{2},
		Color:       [3]float64{1, 1, 1},
	})

	world := &Node{Name: "world", Kind: KindGroup}
	world.Add(
		&Node{
			Name:     "ground",
			Kind:     KindPlane,
			Rotation: &Rotation{Axis: [3]float64{1, 0, 0}, Degrees: 90},
			Size:     []float64{270, 270},
			Color:    [3]float64{1, 0.8, 0},
		},
		sideWall("wall-left", -136),
		sideWall("wall-right", 136),
		&Node{
			Name:        "torus",
			Kind:        KindTorus,
			Translation: [3]float64{0, 0, -500},
			Size:        []float64{10, 50},
			Color:       [3]float64{0, 0.8, 1},
		},
	)
	return root.Add(world)
}

func sideWall(name string, x float64) *Node {
	return &Node{
		Name:        name,
		Kind:        KindPlane,
		Translation: [3]float64{x, 50, 0},
		Rotation:    &Rotation{Axis: [3]float64{0, 1, 0}, Degrees: 90},
		Size:        []float64{1000, 100},
		Color:       [3]float64{0, 0.8, 1},
	}
}

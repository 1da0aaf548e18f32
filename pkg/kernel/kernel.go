// Package kernel defines the geometry kernel used to draw frame gizmos.
// Implementations (sdfx, manifold) build primitive solids, place them in space and
// tessellate them into triangle meshes for the renderer.
package kernel

// Solid is an opaque handle to a geometry kernel solid.
// Implementations wrap their internal representation.
type Solid interface {
	// BoundingBox returns the axis-aligned bounding box.
	BoundingBox() (min, max [3]float64)
}

// Kernel is the abstract geometry kernel interface.
//
// Primitives are built about the origin with their long axis on +Z: a
// cylinder or cone of height h spans z in [-h/2, h/2].
type Kernel interface {
	// Primitives
	Cylinder(height, radius float64) Solid
	Cone(height, baseRadius, tipRadius float64) Solid
	Sphere(radius float64) Solid

	Union(a, b Solid) Solid

	// Transforms
	Translate(s Solid, x, y, z float64) Solid
	Rotate(s Solid, axis [3]float64, angle float64) Solid // right-handed, radians

	// Mesh output
	ToMesh(s Solid) (*Mesh, error)
}

package math

/**
 * @brief Computes the axis aligned box enclosing points. An empty slice
 * yields zero extents.
 */
func ComputeBoundingBox(points []Vec3) Extents3D {
	if len(points) == 0 {
		return Extents3D{}
	}
	ext := Extents3D{Min: points[0], Max: points[0]}
	for _, p := range points[1:] {
		ext.Min = ext.Min.Minimize(p)
		ext.Max = ext.Max.Maximize(p)
	}
	return ext
}

/**
 * @brief Computes a sphere enclosing points, centered on their centroid with
 * the distance to the farthest point as radius.
 */
func ComputeBoundingSphere(points []Vec3) Sphere {
	if len(points) == 0 {
		return Sphere{}
	}
	var sum Vec3
	for _, p := range points {
		sum = sum.Add(p)
	}
	center := sum.MulScalar(1 / float32(len(points)))

	var radiusSq float32
	for _, p := range points {
		if d := p.Sub(center).LengthSquared(); d > radiusSq {
			radiusSq = d
		}
	}
	return Sphere{Center: center, Radius: ksqrt(radiusSq)}
}

// Center is the midpoint of the extents.
func (e Extents3D) Center() Vec3 {
	return e.Min.Add(e.Max).MulScalar(0.5)
}

// CircumscribedSphere returns the sphere passing through the box corners.
func (e Extents3D) CircumscribedSphere() Sphere {
	return Sphere{Center: e.Center(), Radius: e.Max.Sub(e.Min).Length() / 2}
}

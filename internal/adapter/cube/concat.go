package cube

import (
	"math"
	"sort"

	"go.ngs.io/climate-api/internal/adapter/interp"
	"go.ngs.io/climate-api/internal/domain"
)

// Concatenate joins cubes along the named axis into a single cube.
// Inputs are ordered by their first point on that axis; every other axis, the units
// and the CRS must agree, and the joined axis must stay strictly increasing.
func Concatenate(cubes []Cube, axis string) (Cube, error) {
	if len(cubes) == 0 {
		return nil, domain.DataErrorf("nothing to concatenate")
	}

	parts := make([]Cube, len(cubes))
	copy(parts, cubes)
	firstPoint := func(c Cube) float64 {
		a, err := c.Coord(axis)
		if err != nil || a.Len() == 0 {
			return math.Inf(1)
		}
		return a.Points[0]
	}
	sort.SliceStable(parts, func(i, j int) bool { return firstPoint(parts[i]) < firstPoint(parts[j]) })

	ref := parts[0]
	refAxes := ref.Axes()
	k := -1
	for i, a := range refAxes {
		if a.Name == axis {
			k = i
		}
	}
	if k < 0 {
		return nil, domain.DataErrorf("cube %s has no axis %q to concatenate along", ref.Name(), axis)
	}

	joined := Axis{Name: axis, Units: refAxes[k].Units}
	withBounds := true
	for _, p := range parts {
		if err := compatible(ref, p, k); err != nil {
			return nil, err
		}
		a := p.Axes()[k]
		joined.Points = append(joined.Points, a.Points...)
		if len(a.Bounds) == a.Len() {
			joined.Bounds = append(joined.Bounds, a.Bounds...)
		} else {
			withBounds = false
		}
	}
	if !withBounds {
		joined.Bounds = nil
	}
	if !interp.IsAscending(joined.Points) {
		return nil, domain.DataErrorf("cannot concatenate %s: %s values overlap or are out of order", ref.Name(), axis)
	}

	// Interleave each part's block for every combination of the leading axes.
	outer := 1
	for i := 0; i < k; i++ {
		outer *= refAxes[i].Len()
	}
	data := make([]float64, 0, outer*len(joined.Points))
	partData := make([][]float64, len(parts))
	blocks := make([]int, len(parts))
	for i, p := range parts {
		partData[i] = p.Data()
		if outer > 0 {
			blocks[i] = len(partData[i]) / outer
		}
	}
	for o := 0; o < outer; o++ {
		for i := range parts {
			data = append(data, partData[i][o*blocks[i]:(o+1)*blocks[i]]...)
		}
	}

	axes := ref.Axes()
	axes[k] = joined
	return NewDense(ref.Name(), ref.Units(), axes, data, ref.CRS())
}

func compatible(ref, c Cube, k int) error {
	ra, ca := ref.Axes(), c.Axes()
	if len(ra) != len(ca) {
		return domain.DataErrorf("cannot concatenate %s: %d axes vs %d", ref.Name(), len(ra), len(ca))
	}
	if ref.Name() != c.Name() || ref.Units() != c.Units() {
		return domain.DataErrorf("cannot concatenate %s (%s) with %s (%s)", ref.Name(), ref.Units(), c.Name(), c.Units())
	}
	if ref.CRS().String() != c.CRS().String() {
		return domain.DataErrorf("cannot concatenate %s: coordinate systems differ", ref.Name())
	}
	for i := range ra {
		if ra[i].Name != ca[i].Name || ra[i].Units != ca[i].Units {
			return domain.DataErrorf("cannot concatenate %s: axis %d is %s [%s] vs %s [%s]",
				ref.Name(), i, ra[i].Name, ra[i].Units, ca[i].Name, ca[i].Units)
		}
		if i == k {
			continue
		}
		if ra[i].Len() != ca[i].Len() {
			return domain.DataErrorf("cannot concatenate %s: axis %s has %d vs %d points",
				ref.Name(), ra[i].Name, ra[i].Len(), ca[i].Len())
		}
		for j := range ra[i].Points {
			if math.Abs(ra[i].Points[j]-ca[i].Points[j]) > interp.Tolerance {
				return domain.DataErrorf("cannot concatenate %s: axis %s differs at index %d",
					ref.Name(), ra[i].Name, j)
			}
		}
	}
	return nil
}

// Package store declares how parameters and their partition files are turned into cubes.
package store

import "go.ngs.io/climate-api/internal/adapter/cube"

// ParameterLoader is the interface for loading parameter data.
type ParameterLoader interface {
	// ListParameters returns the parameter names available.
	ListParameters() ([]string, error)

	// Load reads the partitions of parameter matching pattern as one cube.
	Load(parameter, pattern string) (cube.Cube, error)
}

// Reader loads one partition file into a cube.
type Reader interface {
	// Read decodes the file at path. Coordinate axes are renamed to the standard
	// cube.TimeAxis, cube.YAxis and cube.XAxis names.
	Read(path string) (cube.Cube, error)
}

// ReaderFunc adapts a function to the Reader interface.
type ReaderFunc func(path string) (cube.Cube, error)

// Read calls f(path).
func (f ReaderFunc) Read(path string) (cube.Cube, error) {
	return f(path)
}

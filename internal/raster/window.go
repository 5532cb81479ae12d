// Package raster implements the chunked raster reclassifier.
package raster

// Window is one rectangular read/write region of a raster grid, in pixel
// coordinates.
type Window struct {
	X      int
	Y      int
	Width  int
	Height int
}

// Partition tiles a width x height grid into square windows of edge chunk,
// clipped at the right and bottom edges. Order is deterministic: rows of
// windows top to bottom, windows left to right within a row. The windows
// cover every pixel exactly once.
func Partition(width, height, chunk int) []Window {
	if width <= 0 || height <= 0 || chunk <= 0 {
		return nil
	}
	windows := make([]Window, 0, NumWindows(width, height, chunk))
	for y := 0; y < height; y += chunk {
		h := chunk
		if y+h > height {
			h = height - y
		}
		for x := 0; x < width; x += chunk {
			w := chunk
			if x+w > width {
				w = width - x
			}
			windows = append(windows, Window{X: x, Y: y, Width: w, Height: h})
		}
	}
	return windows
}

// NumWindows returns the total window count for a grid and chunk edge.
func NumWindows(width, height, chunk int) int {
	if width <= 0 || height <= 0 || chunk <= 0 {
		return 0
	}
	across := (width + chunk - 1) / chunk
	down := (height + chunk - 1) / chunk
	return across * down
}

package coordmap

import "math"

// dotsScale converts 200 DPI image pixels to 72 DPI PDF points.
const dotsScale = 72.0 / 200.0

// normalize converts one element's native bbox and page to the shared
// [page, x1, x2, y1, y2] convention. Malformed elements report ok=false
// and are skipped individually rather than failing the whole mapping.
func normalize(el LayoutElement, system System) (Position, bool) {
	if len(el.BBox) != 4 {
		return Position{}, false
	}
	switch system {
	case SystemDOTS:
		// DOTS: [x1, y1, x2, y2] at 200 DPI, 1-based pages.
		if el.Page < 1 {
			return Position{}, false
		}
		return Position{
			float64(el.Page - 1),
			math.Trunc(el.BBox[0] * dotsScale),
			math.Trunc(el.BBox[2] * dotsScale),
			math.Trunc(el.BBox[1] * dotsScale),
			math.Trunc(el.BBox[3] * dotsScale),
		}, true
	case SystemMinerU:
		// MinerU: already [x1, x2, y1, y2] in PDF points, 0-based pages.
		if el.Page < 0 {
			return Position{}, false
		}
		return Position{
			float64(el.Page),
			el.BBox[0], el.BBox[1], el.BBox[2], el.BBox[3],
		}, true
	default:
		return Position{}, false
	}
}

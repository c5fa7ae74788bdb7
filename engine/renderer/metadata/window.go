package metadata

type Point struct {
	X, Y int
}

type Size struct {
	Width, Height int
}

func (s Size) Empty() bool {
	return s.Width <= 0 || s.Height <= 0
}

type Rect struct {
	X, Y          int
	Width, Height int
}

func (r Rect) Size() Size {
	return Size{Width: r.Width, Height: r.Height}
}

/** @brief Decoration of a top level window. */
type BorderStyle int

const (
	BorderSizable BorderStyle = iota
	BorderFixed
	BorderNone
)

type WindowState int

const (
	WindowStateNormal WindowState = iota
	WindowStateMinimized
	WindowStateMaximized
)

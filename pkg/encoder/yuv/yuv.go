// Package yuv converts packed RGBA frames into planar YUV I420, the
// input layout the H.264 encoder expects.
package yuv

// Conv owns a reusable I420 buffer for one frame geometry.
type Conv struct {
	w, h int
	data []byte
}

func NewConv(w, h int) *Conv {
	return &Conv{w: w, h: h, data: make([]byte, w*h*3/2)}
}

// Process converts one RGBA frame into the internal I420 buffer and
// returns it. The buffer is overwritten by the next call.
func (c *Conv) Process(rgba []byte, stride int) []byte {
	w, h := c.w, c.h
	ySize := w * h
	dy := c.data[:ySize]
	du := c.data[ySize : ySize+ySize/4]
	dv := c.data[ySize+ySize/4:]

	// BT.601 studio swing, fixed point
	i := 0
	for y := 0; y < h; y++ {
		row := rgba[y*stride:]
		for x := 0; x < w; x++ {
			p := x * 4
			r, g, b := int32(row[p]), int32(row[p+1]), int32(row[p+2])
			dy[i] = byte(((66*r + 129*g + 25*b) >> 8) + 16)
			i++
		}
	}

	i = 0
	for y := 0; y < h; y += 2 {
		row := rgba[y*stride:]
		for x := 0; x < w; x += 2 {
			p := x * 4
			r, g, b := int32(row[p]), int32(row[p+1]), int32(row[p+2])
			du[i] = byte(((-38*r - 74*g + 112*b) >> 8) + 128)
			dv[i] = byte(((112*r - 94*g - 18*b) >> 8) + 128)
			i++
		}
	}
	return c.data
}

package engine

// lowPass blends each pixel toward its 3x3 box average, weighted by amount
// in [0,1]. It operates on an RGBA8 buffer of width*rows pixels; rows at
// buffer borders average over the available neighbors only, so the filter
// can run per band without cross-band state.
func lowPass(pix []byte, width, rows int, amount float64) {
	if amount <= 0 || width < 2 || rows < 1 {
		return
	}
	if amount > 1 {
		amount = 1
	}
	src := make([]byte, len(pix))
	copy(src, pix)

	for y := 0; y < rows; y++ {
		for x := 0; x < width; x++ {
			var sumR, sumG, sumB, n int
			for dy := -1; dy <= 1; dy++ {
				yy := y + dy
				if yy < 0 || yy >= rows {
					continue
				}
				for dx := -1; dx <= 1; dx++ {
					xx := x + dx
					if xx < 0 || xx >= width {
						continue
					}
					i := (yy*width + xx) * 4
					sumR += int(src[i])
					sumG += int(src[i+1])
					sumB += int(src[i+2])
					n++
				}
			}
			i := (y*width + x) * 4
			pix[i] = mix(src[i], sumR, n, amount)
			pix[i+1] = mix(src[i+1], sumG, n, amount)
			pix[i+2] = mix(src[i+2], sumB, n, amount)
		}
	}
}

func mix(orig byte, sum, n int, amount float64) byte {
	avg := float64(sum) / float64(n)
	v := float64(orig) + (avg-float64(orig))*amount
	if v < 0 {
		v = 0
	} else if v > 255 {
		v = 255
	}
	return byte(v + 0.5)
}

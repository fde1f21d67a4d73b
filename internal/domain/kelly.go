package domain

import "math"

// SimpleKelly calcula la fracción de Kelly para una apuesta binaria cuyas
// net odds se derivan del edge.
//
// Fórmula:
//
//	b = edgeFraction / (1 - winProbability)
//	f = winProbability - (1 - winProbability) / b
//	resultado = clamp(f, 0, 1) × multiplier
//
// Con winProbability >= 1 la apuesta es segura y devuelve multiplier.
// Sin edge (b <= 0) devuelve 0. Función pura, sin estado.
func SimpleKelly(edgeFraction, winProbability, multiplier float64) float64 {
	if math.IsNaN(edgeFraction) || math.IsNaN(winProbability) || math.IsNaN(multiplier) {
		return 0
	}
	if multiplier < 0 {
		multiplier = 0
	}
	if winProbability >= 1 {
		return multiplier
	}
	if winProbability <= 0 {
		return 0
	}

	b := edgeFraction / (1 - winProbability)
	if b <= 0 {
		return 0
	}

	f := winProbability - (1-winProbability)/b
	return Clamp(f, 0, 1) * multiplier
}

// Clamp limita v al rango [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

package export

const geohashAlphabet = "0123456789bcdefghjkmnpqrstuvwxyz"

// UnknownGeohashBucket is where rows without a valid coordinate land.
const UnknownGeohashBucket = "_unknown"

// Geohash encodes a coordinate to the standard base-32 geohash alphabet,
// interleaving longitude bits first. Precision is the number of
// characters produced (3-8 are the only precisions the export stage
// allows; the function itself accepts any positive precision).
func Geohash(lat, lng float64, precision int) string {
	latLo, latHi := -90.0, 90.0
	lngLo, lngHi := -180.0, 180.0
	isLng := true
	bit := 0
	var ch byte
	bits := [5]byte{16, 8, 4, 2, 1}

	out := make([]byte, 0, precision)
	for len(out) < precision {
		if isLng {
			mid := (lngLo + lngHi) / 2
			if lng >= mid {
				ch |= bits[bit]
				lngLo = mid
			} else {
				lngHi = mid
			}
		} else {
			mid := (latLo + latHi) / 2
			if lat >= mid {
				ch |= bits[bit]
				latLo = mid
			} else {
				latHi = mid
			}
		}

		isLng = !isLng
		if bit < 4 {
			bit++
		} else {
			out = append(out, geohashAlphabet[ch])
			bit = 0
			ch = 0
		}
	}
	return string(out)
}

// ValidCoordinate reports whether a lat/lng pair is within range and
// therefore eligible for geohash bucketing rather than the unknown
// bucket.
func ValidCoordinate(lat, lng float64) bool {
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}

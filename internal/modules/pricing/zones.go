package pricing

import "github.com/shopspring/decimal"

type Zone string

const (
	ZoneInner    Zone = "inner"
	ZoneExtended Zone = "extended"
	ZoneOutside  Zone = "outside"
	ZonePickup   Zone = "pickup"
)

type Point struct {
	Lat float64 `json:"lat" binding:"gte=-90,lte=90"`
	Lng float64 `json:"lng" binding:"gte=-180,lte=180"`
}

// Polygon is a closed ring; the last vertex connects back to the first.
type Polygon []Point

// Contains is an even-odd ray cast with longitude as x and latitude as y.
func (poly Polygon) Contains(p Point) bool {
	inside := false
	for i, j := 0, len(poly)-1; i < len(poly); j, i = i, i+1 {
		a, b := poly[i], poly[j]
		if (a.Lat > p.Lat) != (b.Lat > p.Lat) {
			x := (b.Lng-a.Lng)*(p.Lat-a.Lat)/(b.Lat-a.Lat) + a.Lng
			if p.Lng < x {
				inside = !inside
			}
		}
	}
	return inside
}

type DeliveryZones struct {
	Inner       Polygon
	Extended    Polygon
	InnerFee    decimal.Decimal
	ExtendedFee decimal.Decimal
}

// DefaultDeliveryZones covers central Sofia (inner) and the ring-road districts (extended).
func DefaultDeliveryZones() DeliveryZones {
	return DeliveryZones{
		Inner: Polygon{
			{42.7120, 23.3050}, {42.7150, 23.3300}, {42.7050, 23.3500},
			{42.6850, 23.3520}, {42.6780, 23.3300}, {42.6830, 23.3050},
		},
		Extended: Polygon{
			{42.7500, 23.2300}, {42.7600, 23.3300}, {42.7400, 23.4200},
			{42.6500, 23.4300}, {42.6200, 23.3300}, {42.6400, 23.2300},
		},
		InnerFee:    decimal.RequireFromString("3.00"),
		ExtendedFee: decimal.RequireFromString("5.00"),
	}
}

// Classify tests the inner ring first, then the extended one.
func (z DeliveryZones) Classify(p Point) Zone {
	switch {
	case z.Inner.Contains(p):
		return ZoneInner
	case z.Extended.Contains(p):
		return ZoneExtended
	default:
		return ZoneOutside
	}
}

// Fee returns the delivery fee of a zone; ok is false for outside.
func (z DeliveryZones) Fee(zone Zone) (decimal.Decimal, bool) {
	switch zone {
	case ZonePickup:
		return decimal.Zero, true
	case ZoneInner:
		return z.InnerFee, true
	case ZoneExtended:
		return z.ExtendedFee, true
	default:
		return decimal.Zero, false
	}
}

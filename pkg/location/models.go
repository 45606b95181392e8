package location

// Location represents the geographical coordinates of the gateway host.
type Location struct {
	Latitude  float64
	Longitude float64
	Accuracy  float64
}

package domain

type HouseType string

const (
	HousePrivate   HouseType = "private"
	HouseApartment HouseType = "apartment"
)

// Address is a resolved residence location. For each of the neighborhood and
// street levels exactly one of the catalog reference or the custom free-text
// name is set once the level has been resolved. Apartment is required iff
// HouseType is HouseApartment.
type Address struct {
	Region             string    `json:"region"`
	District           string    `json:"district"`
	Neighborhood       string    `json:"neighborhood,omitempty"`
	NeighborhoodCustom string    `json:"neighborhoodCustom,omitempty"`
	Street             string    `json:"street,omitempty"`
	StreetCustom       string    `json:"streetCustom,omitempty"`
	HouseType          HouseType `json:"houseType"`
	HouseNumber        string    `json:"houseNumber"`
	Apartment          string    `json:"apartment,omitempty"`
}

// HasRegion reports whether the address carries at least a region reference.
// Routing uses this to decide whether the region setup flow is still needed.
func (a *Address) HasRegion() bool {
	return a != nil && a.Region != ""
}

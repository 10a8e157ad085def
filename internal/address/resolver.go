// Package address coordinates dependent selection over the four-level
// region hierarchy (region, district, neighborhood, street) plus the house
// details step. Neighborhood and street accept free-text overrides when the
// catalog has no matching entry.
package address

import (
	"context"
	"strings"
	"time"

	"github.com/openmahalla/portalcore/internal/apperrors"
	"github.com/openmahalla/portalcore/internal/domain"
	"github.com/openmahalla/portalcore/internal/fetchcache"
)

// Step is a position in the linear five-step wizard.
type Step int

const (
	StepRegion Step = iota + 1
	StepDistrict
	StepNeighborhood
	StepStreet
	StepHouse
)

const defaultCatalogStaleTime = 10 * time.Minute

// Resolver is the working draft of one address. It is built incrementally
// through the wizard and discarded once committed or abandoned; catalog
// lists are read through the shared fetch cache, keyed by level and parent.
type Resolver struct {
	cache     *fetchcache.Store
	catalog   domain.RegionCatalog
	staleTime time.Duration

	step      Step
	prefilled bool
	touched   bool

	region       string
	district     string
	neighborhood string
	street       string

	isNeighborhoodCustom bool
	isStreetCustom       bool
	neighborhoodCustom   string
	streetCustom         string

	houseType   domain.HouseType
	houseNumber string
	apartment   string
}

// State is a read-only snapshot of the draft, for handlers and tests.
type State struct {
	Step                 Step
	Region               string
	District             string
	Neighborhood         string
	Street               string
	IsNeighborhoodCustom bool
	IsStreetCustom       bool
	NeighborhoodCustom   string
	StreetCustom         string
	HouseType            domain.HouseType
	HouseNumber          string
	Apartment            string
	Prefilled            bool
}

// NewResolver creates a fresh draft positioned at the region step.
// staleTime <= 0 falls back to the default catalog window.
func NewResolver(cache *fetchcache.Store, catalog domain.RegionCatalog, staleTime time.Duration) *Resolver {
	if staleTime <= 0 {
		staleTime = defaultCatalogStaleTime
	}
	return &Resolver{
		cache:     cache,
		catalog:   catalog,
		staleTime: staleTime,
		step:      StepRegion,
		houseType: domain.HousePrivate,
	}
}

func (r *Resolver) State() State {
	return State{
		Step:                 r.step,
		Region:               r.region,
		District:             r.district,
		Neighborhood:         r.neighborhood,
		Street:               r.street,
		IsNeighborhoodCustom: r.isNeighborhoodCustom,
		IsStreetCustom:       r.isStreetCustom,
		NeighborhoodCustom:   r.neighborhoodCustom,
		StreetCustom:         r.streetCustom,
		HouseType:            r.houseType,
		HouseNumber:          r.houseNumber,
		Apartment:            r.apartment,
		Prefilled:            r.prefilled,
	}
}

// SelectRegion picks a region and clears every descendant selection. A
// descendant referencing a catalog entry outside the new region's subtree
// would be an invariant violation, so the cascade is unconditional.
func (r *Resolver) SelectRegion(id string) {
	r.touched = true
	r.region = id
	r.district = ""
	r.clearNeighborhoodLevel()
	r.clearStreetLevel()
}

// SelectDistrict picks a district and clears the neighborhood and street levels.
func (r *Resolver) SelectDistrict(id string) {
	r.touched = true
	r.district = id
	r.clearNeighborhoodLevel()
	r.clearStreetLevel()
}

// SelectNeighborhood picks a catalog neighborhood, dropping any custom
// override at this level and clearing the street level.
func (r *Resolver) SelectNeighborhood(id string) {
	r.touched = true
	r.neighborhood = id
	r.isNeighborhoodCustom = false
	r.neighborhoodCustom = ""
	r.clearStreetLevel()
}

// SelectStreet picks a catalog street, dropping any custom override.
func (r *Resolver) SelectStreet(id string) {
	r.touched = true
	r.street = id
	r.isStreetCustom = false
	r.streetCustom = ""
}

// ToggleCustom flips the free-text override for the neighborhood or street
// level. Turning it on clears that level's catalog selection; turning it
// off clears its custom text. Toggling the neighborhood also clears the
// street level, because street candidates are scoped to the neighborhood's
// catalog identity.
func (r *Resolver) ToggleCustom(level Step) error {
	r.touched = true
	switch level {
	case StepNeighborhood:
		r.isNeighborhoodCustom = !r.isNeighborhoodCustom
		if r.isNeighborhoodCustom {
			r.neighborhood = ""
		} else {
			r.neighborhoodCustom = ""
		}
		r.clearStreetLevel()
		return nil
	case StepStreet:
		r.isStreetCustom = !r.isStreetCustom
		if r.isStreetCustom {
			r.street = ""
		} else {
			r.streetCustom = ""
		}
		return nil
	default:
		return apperrors.Validation("only the neighborhood and street levels accept custom entries")
	}
}

// SetNeighborhoodCustomText records the free-text neighborhood name.
func (r *Resolver) SetNeighborhoodCustomText(text string) {
	r.touched = true
	r.neighborhoodCustom = text
}

// SetStreetCustomText records the free-text street name.
func (r *Resolver) SetStreetCustomText(text string) {
	r.touched = true
	r.streetCustom = text
}

// SetHouseType switches the house type. Moving between types drops the
// apartment number; it only applies to apartment buildings.
func (r *Resolver) SetHouseType(ht domain.HouseType) {
	r.touched = true
	r.houseType = ht
	r.apartment = ""
}

func (r *Resolver) SetHouseNumber(number string) {
	r.touched = true
	r.houseNumber = number
}

func (r *Resolver) SetApartment(apartment string) {
	r.touched = true
	r.apartment = apartment
}

// Advance validates the current step and moves forward. An incomplete step
// leaves the position unchanged and returns the validation error.
func (r *Resolver) Advance() error {
	if err := r.validateStep(r.step); err != nil {
		return err
	}
	if r.step < StepHouse {
		r.step++
	}
	return nil
}

// Back moves one step toward the region step. Already-entered values are kept.
func (r *Resolver) Back() {
	if r.step > StepRegion {
		r.step--
	}
}

func (r *Resolver) Step() Step {
	return r.step
}

// PrefillFromExisting seeds the draft from an address already on file. The
// custom flags are inferred: a level with custom text and no catalog id was
// a free-text entry. Prefill applies at most once per resolver lifetime and
// never after the user has started editing, so a late-arriving profile
// fetch cannot clobber in-progress input.
func (r *Resolver) PrefillFromExisting(addr *domain.Address) {
	if r.prefilled || r.touched || addr == nil {
		return
	}
	r.prefilled = true

	r.region = addr.Region
	r.district = addr.District
	r.neighborhood = addr.Neighborhood
	r.street = addr.Street
	r.neighborhoodCustom = addr.NeighborhoodCustom
	r.streetCustom = addr.StreetCustom
	r.isNeighborhoodCustom = addr.Neighborhood == "" && addr.NeighborhoodCustom != ""
	r.isStreetCustom = addr.Street == "" && addr.StreetCustom != ""
	if addr.HouseType != "" {
		r.houseType = addr.HouseType
	}
	r.houseNumber = addr.HouseNumber
	r.apartment = addr.Apartment
}

// Regions lists the root catalog level.
func (r *Resolver) Regions(ctx context.Context) ([]domain.GeoNode, error) {
	return r.listNodes(ctx, domain.GeoRegion, "", true)
}

// Districts lists districts of the selected region. The query is gated on a
// region being selected.
func (r *Resolver) Districts(ctx context.Context) ([]domain.GeoNode, error) {
	return r.listNodes(ctx, domain.GeoDistrict, r.region, r.region != "")
}

// Neighborhoods lists neighborhoods of the selected district. Gated on a
// district being selected and the custom override being off.
func (r *Resolver) Neighborhoods(ctx context.Context) ([]domain.GeoNode, error) {
	return r.listNodes(ctx, domain.GeoNeighborhood, r.district, r.district != "" && !r.isNeighborhoodCustom)
}

// Streets lists streets of the selected neighborhood. Gated on a catalog
// neighborhood being selected and the street custom override being off.
func (r *Resolver) Streets(ctx context.Context) ([]domain.GeoNode, error) {
	return r.listNodes(ctx, domain.GeoStreet, r.neighborhood, r.neighborhood != "" && !r.isStreetCustom)
}

func (r *Resolver) listNodes(ctx context.Context, nodeType domain.GeoNodeType, parentID string, enabled bool) ([]domain.GeoNode, error) {
	return fetchcache.Query(ctx, r.cache, CatalogKey(nodeType, parentID), func(ctx context.Context) ([]domain.GeoNode, error) {
		return r.catalog.ListGeoNodes(ctx, nodeType, parentID)
	}, fetchcache.Options{Enabled: enabled, StaleTime: r.staleTime})
}

// CatalogKey is the cache key for one catalog listing, keyed by level and parent.
func CatalogKey(nodeType domain.GeoNodeType, parentID string) fetchcache.Key {
	return fetchcache.K("regions", string(nodeType), parentID)
}

// Validate checks all steps in order and returns the first failure.
func (r *Resolver) Validate() error {
	for step := StepRegion; step <= StepHouse; step++ {
		if err := r.validateStep(step); err != nil {
			return err
		}
	}
	return nil
}

func (r *Resolver) validateStep(step Step) error {
	switch step {
	case StepRegion:
		if r.region == "" {
			return apperrors.Validation("select a region").WithContext("step", int(StepRegion))
		}
	case StepDistrict:
		if r.district == "" {
			return apperrors.Validation("select a district").WithContext("step", int(StepDistrict))
		}
	case StepNeighborhood:
		if r.isNeighborhoodCustom {
			if strings.TrimSpace(r.neighborhoodCustom) == "" {
				return apperrors.Validation("enter the neighborhood name").WithContext("step", int(StepNeighborhood))
			}
		} else if r.neighborhood == "" {
			return apperrors.Validation("select a neighborhood or enter its name").WithContext("step", int(StepNeighborhood))
		}
	case StepStreet:
		if r.isStreetCustom {
			if strings.TrimSpace(r.streetCustom) == "" {
				return apperrors.Validation("enter the street name").WithContext("step", int(StepStreet))
			}
		} else if r.street == "" {
			return apperrors.Validation("select a street or enter its name").WithContext("step", int(StepStreet))
		}
	case StepHouse:
		if strings.TrimSpace(r.houseNumber) == "" {
			return apperrors.Validation("enter the house number").WithContext("step", int(StepHouse))
		}
		if r.houseType == domain.HouseApartment && strings.TrimSpace(r.apartment) == "" {
			return apperrors.Validation("enter the apartment number").WithContext("step", int(StepHouse))
		}
	}
	return nil
}

// Build validates the whole draft and assembles the address. Each resolved
// level carries exactly one of a catalog reference or custom text.
func (r *Resolver) Build() (domain.Address, error) {
	if err := r.Validate(); err != nil {
		return domain.Address{}, err
	}

	addr := domain.Address{
		Region:      r.region,
		District:    r.district,
		HouseType:   r.houseType,
		HouseNumber: strings.TrimSpace(r.houseNumber),
	}
	if r.isNeighborhoodCustom {
		addr.NeighborhoodCustom = strings.TrimSpace(r.neighborhoodCustom)
	} else {
		addr.Neighborhood = r.neighborhood
	}
	if r.isStreetCustom {
		addr.StreetCustom = strings.TrimSpace(r.streetCustom)
	} else {
		addr.Street = r.street
	}
	if r.houseType == domain.HouseApartment {
		addr.Apartment = strings.TrimSpace(r.apartment)
	}
	return addr, nil
}

func (r *Resolver) clearNeighborhoodLevel() {
	r.neighborhood = ""
	r.isNeighborhoodCustom = false
	r.neighborhoodCustom = ""
}

func (r *Resolver) clearStreetLevel() {
	r.street = ""
	r.isStreetCustom = false
	r.streetCustom = ""
}

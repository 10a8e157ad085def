package domain

import "context"

// GeoNodeType is a level of the region hierarchy.
type GeoNodeType string

const (
	GeoRegion       GeoNodeType = "region"
	GeoDistrict     GeoNodeType = "district"
	GeoNeighborhood GeoNodeType = "neighborhood"
	GeoStreet       GeoNodeType = "street"
)

// GeoNode is a read-only catalog entry from the region catalog service.
// The core never mutates these.
type GeoNode struct {
	ID       string      `json:"id"`
	Name     string      `json:"name"`
	Type     GeoNodeType `json:"type"`
	ParentID string      `json:"parent,omitempty"`
}

// RegionCatalog lists catalog entries of one type, optionally scoped to a
// parent node. Root-level listings (regions) pass an empty parentID.
type RegionCatalog interface {
	ListGeoNodes(ctx context.Context, nodeType GeoNodeType, parentID string) ([]GeoNode, error)
}

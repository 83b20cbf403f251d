// Package ngsi provides the normalized wire model of the context broker query
// protocol: typed {type, value} attributes, ordered entities and projection.
package ngsi

import (
	"net/url"
	"time"
)

// AttributeType is the closed set of normalized attribute types.
type AttributeType string

const (
	TypeURL          AttributeType = "URL"
	TypeText         AttributeType = "Text"
	TypeDateTime     AttributeType = "DateTime"
	TypeNumber       AttributeType = "Number"
	TypeRelationship AttributeType = "Relationship"
	TypeGeoJSON      AttributeType = "geo:json"
)

// DateTimeLayout is the ISO-8601 layout used for DateTime values (UTC, millisecond precision).
const DateTimeLayout = "2006-01-02T15:04:05.000Z"

// Attribute is a normalized attribute object of shape {type, value}.
type Attribute struct {
	Type  AttributeType `json:"type"`
	Value any           `json:"value"`
}

// GeoJSONPoint is the value of a geo:json attribute.
type GeoJSONPoint struct {
	Type        string    `json:"type"`
	Coordinates []float64 `json:"coordinates"`
}

// Text creates a Text attribute.
func Text(s string) *Attribute {
	return &Attribute{Type: TypeText, Value: s}
}

// Number creates a Number attribute.
func Number(f float64) *Attribute {
	return &Attribute{Type: TypeNumber, Value: f}
}

// URL creates a URL attribute holding the href form of u.
func URL(u *url.URL) *Attribute {
	return &Attribute{Type: TypeURL, Value: u.String()}
}

// DateTime creates a DateTime attribute in UTC.
func DateTime(t time.Time) *Attribute {
	return &Attribute{Type: TypeDateTime, Value: t.UTC().Format(DateTimeLayout)}
}

// Relationship creates a Relationship attribute pointing at another entity URN.
func Relationship(urn string) *Attribute {
	return &Attribute{Type: TypeRelationship, Value: urn}
}

// GeoPoint creates a geo:json Point attribute from GeoJSON ordered coordinates.
func GeoPoint(coordinates ...float64) *Attribute {
	return &Attribute{
		Type: TypeGeoJSON,
		Value: GeoJSONPoint{
			Type:        "Point",
			Coordinates: coordinates,
		},
	}
}

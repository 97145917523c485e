// Package models contains GORM persistence models mirroring the domain
// entities. Models convert to and from domain types explicitly so schema
// concerns never leak into the domain layer.
package models
